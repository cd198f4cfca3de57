package psd

import (
	"github.com/google/uuid"

	"github.com/go-psd/psd/internal/blocks"
	"github.com/go-psd/psd/internal/channel"
	"github.com/go-psd/psd/internal/fileformat"
	"github.com/go-psd/psd/internal/warp"
)

// ChannelID identifies a layer channel by its on-disk int16 id: 0, 1, 2...
// for color channels in color-mode order, and the documented negatives for
// transparency and mask channels (spec.md §3 "Channel identifiers").
type ChannelID int16

const (
	ChannelTransparency ChannelID = -1
	ChannelUserMask     ChannelID = -2
	ChannelRealUserMask ChannelID = -3
)

// Channel is one decompressed channel raster plus the codec it should be
// re-encoded with on write (defaulting to whatever it was read with).
type Channel struct {
	ID          ChannelID
	Compression channel.Compression
	Raw         []byte
}

// LayerFlags decodes the layer record's flags byte (spec.md §3): visible
// is stored inverted on disk, so a freshly constructed LayerFlags{} (all
// false) is an invisible layer unless Visible is explicitly set true.
type LayerFlags struct {
	TransparencyProtected bool
	Visible               bool
	PixelDataIrrelevant   bool
}

func decodeLayerFlags(b uint8) LayerFlags {
	return LayerFlags{
		TransparencyProtected: b&0x01 != 0,
		Visible:               b&fileformat.FlagVisibleInverted == 0,
		PixelDataIrrelevant:   b&fileformat.FlagPixelDataIrrelevant == fileformat.FlagPixelDataIrrelevant,
	}
}

func encodeLayerFlags(f LayerFlags) uint8 {
	var b uint8
	if f.TransparencyProtected {
		b |= 0x01
	}
	if !f.Visible {
		b |= fileformat.FlagVisibleInverted
	}
	if f.PixelDataIrrelevant {
		b |= fileformat.FlagPixelDataIrrelevant
	}
	return b
}

// Base holds the fields every layer kind carries (spec.md §3 "Each
// layer:"). Concrete layer types embed Base and are held behind the Layer
// interface.
type Base struct {
	Name      string
	Opacity   uint8
	BlendMode BlendMode
	Clipping  uint8
	Flags     LayerFlags
	Locked    bool // from an lspf protection-flags block, independent of Flags
	Mask      *fileformat.MaskData
	Rect      fileformat.Rect
	Channels  []Channel

	// Blocks retains every tagged block this package didn't specifically
	// interpret (adjustment/effect descriptors, lrFX, etc.), so a
	// round-trip never silently drops authoring-tool data.
	Blocks []blocks.Block
}

// Layer is the closed set {ImageLayer, GroupLayer, SmartObjectLayer,
// AdjustmentLayer} a document tree is built from (spec.md §3).
type Layer interface {
	layerBase() *Base
}

func (b *Base) layerBase() *Base { return b }

// Name returns the layer's display name, valid for any Layer.
func Name(l Layer) string { return l.layerBase().Name }

// ImageLayer is a plain raster layer: pixels and nothing else.
type ImageLayer struct {
	Base
}

// AdjustmentLayer carries a non-destructive adjustment or fill descriptor
// (brightness/contrast, curves, hue/saturation, ...) instead of pixels.
// The adjustment payload itself is round-tripped opaquely in Base.Blocks;
// Kind names which tagged-block key identified it.
type AdjustmentLayer struct {
	Base
	Kind string
}

var adjustmentBlockKeys = map[string]bool{
	"levl": true, "curv": true, "blnc": true, "brit": true,
	"hue ": true, "hue2": true, "selc": true, "thrs": true,
	"post": true, "nvrt": true, "mixr": true, "clrL": true,
	"phfl": true, "grdm": true, "SoCo": true, "PtFl": true,
	"GdFl": true,
}

// detectAdjustmentKind returns the first recognized adjustment-block key
// present on a layer record, if any.
func detectAdjustmentKind(bs []blocks.Block) (string, bool) {
	for _, b := range bs {
		if adjustmentBlockKeys[b.Key] {
			return b.Key, true
		}
	}
	return "", false
}

// GroupLayer owns an ordered list of children and the section-divider
// state spec.md §4.8 describes. PassThrough mirrors the "pass" blend-mode
// asymmetry: when true, the on-disk lsct block carries blend mode "pass"
// while Base.BlendMode itself stays Normal.
type GroupLayer struct {
	Base
	Open        bool
	PassThrough bool
	Children    []Layer
}

// SmartObjectLayer references an embedded/external/alias payload in the
// document's linked-layer store by UUID, plus the warp and transform state
// applied to it (spec.md §3, §4.9).
type SmartObjectLayer struct {
	Base
	UUID      uuid.UUID
	Degraded  bool // UUID missing from the linked-layer store at read time
	WarpData        *warp.Warp
	Affine          warp.Quad
	NonAffine       warp.Quad
	LegacyTransform [8]float64 // legacy PlLd corner transform, present for old files

	CachedWidth  int
	CachedHeight int
}

// Warp returns the layer's warp record, or nil for an unwarped placement.
func (so *SmartObjectLayer) Warp() *warp.Warp { return so.WarpData }
