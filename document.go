// Package psd implements a reader and writer for Adobe's layered raster
// document format (.psd/.psb): a layer tree with per-channel compressed
// rasters, a recursive descriptor language for tool metadata, and a
// UUID-keyed registry of smart-object source payloads.
package psd

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/blocks"
	"github.com/go-psd/psd/internal/channel"
	"github.com/go-psd/psd/internal/fileformat"
	"github.com/go-psd/psd/internal/linked"
)

// Document is the in-memory layered document: everything read from or
// written to a .psd/.psb file (spec.md §3 "Layered document tree").
type Document struct {
	Header         fileformat.Header
	ColorModeData  fileformat.ColorModeData
	ImageResources []fileformat.ImageResource
	Composite      fileformat.CompositeImage
	MergedAlpha    bool

	Root []Layer

	LinkedLayers *linked.Store

	// GlobalBlocks retains global tagged blocks this package doesn't
	// specifically interpret (everything but the linked-layer blocks,
	// which are unpacked into LinkedLayers).
	GlobalBlocks []blocks.Block

	compression func(depth uint8) channel.Compression
}

// NewDocument returns an empty document ready for layers to be added to,
// with the default compression policy (spec.md §4.6).
func NewDocument(h fileformat.Header) *Document {
	return &Document{
		Header:       h,
		LinkedLayers: linked.NewStore(),
		compression:  channel.DefaultCompressionPolicy,
	}
}

// SetCompression overrides the per-depth compression codec chosen for
// channels this document writes (spec.md §6 "set_compression(policy)").
func (d *Document) SetCompression(policy func(depth uint8) channel.Compression) {
	d.compression = policy
}

func (d *Document) compressionFor(depth uint8) channel.Compression {
	if d.compression == nil {
		return channel.DefaultCompressionPolicy(depth)
	}
	return d.compression(depth)
}

// TraversalOrder selects the direction Document.FlatLayers walks the tree.
type TraversalOrder int

const (
	// Forward is pre-order depth-first: a group precedes its children.
	Forward TraversalOrder = iota
	// Reverse is Forward reversed end-to-end.
	Reverse
)

// FlatLayers flattens the tree into a single slice, every group appearing
// alongside its descendants (spec.md §4.8 "flat_layers(order)").
func (d *Document) FlatLayers(order TraversalOrder) []Layer {
	var out []Layer
	var walk func([]Layer)
	walk = func(layers []Layer) {
		for _, l := range layers {
			out = append(out, l)
			if g, ok := l.(*GroupLayer); ok {
				walk(g.Children)
			}
		}
	}
	walk(d.Root)
	if order == Reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// DegradedLayers returns every smart-object layer whose UUID didn't
// resolve in LinkedLayers at read time (spec.md §3 invariant).
func (d *Document) DegradedLayers() []*SmartObjectLayer {
	var out []*SmartObjectLayer
	for _, l := range d.FlatLayers(Forward) {
		if so, ok := l.(*SmartObjectLayer); ok && so.Degraded {
			out = append(out, so)
		}
	}
	return out
}

// AddLayer appends l as the last child of the group named by parentPath
// ("" for the document root). Paths are "/"-separated layer names;
// duplicate names within one parent resolve to the first match (spec.md
// §4.8 "add_layer").
func (d *Document) AddLayer(parentPath string, l Layer) error {
	if parentPath == "" {
		d.Root = append(d.Root, l)
		return nil
	}
	parent, ok := d.findGroup(parentPath)
	if !ok {
		return errors.Errorf("psd: no such group %q", parentPath)
	}
	parent.Children = append(parent.Children, l)
	return nil
}

// RemoveLayer deletes the layer at path, then prunes every group in the
// document that has no children, its former parent included if the
// removal emptied it (documented open-question resolution, see
// DESIGN.md and spec.md testable property #9 "no dangling layers").
func (d *Document) RemoveLayer(path string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return errors.New("psd: empty layer path")
	}
	removed := removeFrom(&d.Root, segments)
	if !removed {
		return errors.Errorf("psd: no such layer %q", path)
	}
	pruneEmptyGroups(&d.Root)
	return nil
}

// MoveLayer relocates the layer at path to become the last child of
// newParentPath ("" for the document root), then prunes every group in the
// document that has no children, the layer's former parent included if
// the move emptied it (spec.md §4.8 "move_layer(path_or_handle, new_parent?)").
func (d *Document) MoveLayer(path, newParentPath string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return errors.New("psd: empty layer path")
	}
	moved, ok := extractFrom(&d.Root, segments)
	if !ok {
		return errors.Errorf("psd: no such layer %q", path)
	}
	if err := d.AddLayer(newParentPath, moved); err != nil {
		return err
	}
	pruneEmptyGroups(&d.Root)
	return nil
}

// FindLayer resolves a "/"-separated path to a layer.
func (d *Document) FindLayer(path string) (Layer, bool) {
	segments := splitPath(path)
	return findIn(d.Root, segments)
}

// FindLayerAs resolves path and type-asserts the result to T, matching
// spec.md §4.8's "find_layer_as<T>".
func FindLayerAs[T Layer](d *Document, path string) (T, bool) {
	var zero T
	l, ok := d.FindLayer(path)
	if !ok {
		return zero, false
	}
	t, ok := l.(T)
	return t, ok
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func findIn(layers []Layer, segments []string) (Layer, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	for _, l := range layers {
		if Name(l) != segments[0] {
			continue
		}
		if len(segments) == 1 {
			return l, true
		}
		g, ok := l.(*GroupLayer)
		if !ok {
			return nil, false
		}
		return findIn(g.Children, segments[1:])
	}
	return nil, false
}

func (d *Document) findGroup(path string) (*GroupLayer, bool) {
	l, ok := d.FindLayer(path)
	if !ok {
		return nil, false
	}
	g, ok := l.(*GroupLayer)
	return g, ok
}

func removeFrom(layers *[]Layer, segments []string) bool {
	for i, l := range *layers {
		if Name(l) != segments[0] {
			continue
		}
		if len(segments) == 1 {
			*layers = append((*layers)[:i], (*layers)[i+1:]...)
			return true
		}
		g, ok := l.(*GroupLayer)
		if !ok {
			return false
		}
		return removeFrom(&g.Children, segments[1:])
	}
	return false
}

func extractFrom(layers *[]Layer, segments []string) (Layer, bool) {
	for i, l := range *layers {
		if Name(l) != segments[0] {
			continue
		}
		if len(segments) == 1 {
			*layers = append((*layers)[:i], (*layers)[i+1:]...)
			return l, true
		}
		g, ok := l.(*GroupLayer)
		if !ok {
			return nil, false
		}
		return extractFrom(&g.Children, segments[1:])
	}
	return nil, false
}

// pruneEmptyGroups recursively removes any group left with zero children.
func pruneEmptyGroups(layers *[]Layer) {
	kept := (*layers)[:0]
	for _, l := range *layers {
		if g, ok := l.(*GroupLayer); ok {
			pruneEmptyGroups(&g.Children)
			if len(g.Children) == 0 {
				continue
			}
		}
		kept = append(kept, l)
	}
	*layers = kept
}
