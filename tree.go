package psd

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/blocks"
	"github.com/go-psd/psd/internal/channel"
	"github.com/go-psd/psd/internal/descriptor"
	"github.com/go-psd/psd/internal/fileformat"
	"github.com/go-psd/psd/internal/linked"
	"github.com/go-psd/psd/internal/warp"
)

// flatRecord pairs one on-disk layer record with its decoded channel
// rasters, the unit buildTree and flattenTree operate on.
type flatRecord struct {
	record   fileformat.LayerRecord
	channels []fileformat.ChannelData
}

// buildTree reconstructs the layer tree from the flat, bottom-to-top
// on-disk layer list using the lsct/lsdv section-divider blocks (spec.md
// §4.8). An Open or Closed divider folds every layer accumulated since the
// last fold into a new group; a Bounded divider graduates the most
// recently folded group so it becomes eligible as a child of the next
// fold, which is how nesting happens even though a group's own divider
// record carries no children of its own. A trailing group with no
// graduating Bounded (the common case for the outermost, final group in a
// list) is accepted as-is once the list ends.
func buildTree(records []flatRecord, linkedLayers *linked.Store, version bio.Version) ([]Layer, error) {
	var pending []Layer
	var pendingGroup *GroupLayer

	flush := func() {
		if pendingGroup != nil {
			pending = append(pending, pendingGroup)
			pendingGroup = nil
		}
	}

	for i, fr := range records {
		sd, _, hasDivider := extractSectionDivider(fr.record.Blocks)
		switch {
		case hasDivider && (sd.Type == blocks.SectionOpen || sd.Type == blocks.SectionClosed):
			flush()
			if len(pending) == 0 {
				return nil, errors.Errorf("psd: layer %d closes an empty group", i)
			}
			g, err := groupFromRecord(fr.record, sd)
			if err != nil {
				return nil, errors.Wrapf(err, "psd: layer %d", i)
			}
			g.Children = pending
			pending = nil
			pendingGroup = g
		case hasDivider && sd.Type == blocks.SectionBounded:
			if pendingGroup == nil {
				return nil, errors.Errorf("psd: layer %d closes a group with none open", i)
			}
			pending = append(pending, pendingGroup)
			pendingGroup = nil
		default:
			flush()
			l, err := layerFromRecord(fr.record, fr.channels, linkedLayers, version)
			if err != nil {
				return nil, errors.Wrapf(err, "psd: layer %d", i)
			}
			pending = append(pending, l)
		}
	}
	flush()
	return pending, nil
}

func extractSectionDivider(bs []blocks.Block) (blocks.SectionDivider, blocks.Block, bool) {
	for _, b := range bs {
		if b.Key != "lsct" && b.Key != "lsdv" {
			continue
		}
		sd, err := blocks.ParseSectionDivider(b.Payload)
		if err != nil {
			continue
		}
		return sd, b, true
	}
	return blocks.SectionDivider{}, blocks.Block{}, false
}

func removeBlock(bs []blocks.Block, keys ...string) []blocks.Block {
	kept := make([]blocks.Block, 0, len(bs))
	for _, b := range bs {
		skip := false
		for _, k := range keys {
			if b.Key == k {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, b)
		}
	}
	return kept
}

func groupFromRecord(lr fileformat.LayerRecord, sd blocks.SectionDivider) (*GroupLayer, error) {
	g := &GroupLayer{
		Base:        baseFromRecord(lr),
		Open:        sd.Type == blocks.SectionOpen,
		PassThrough: sd.BlendMode == string(BlendPassThrough),
	}
	g.Blocks = removeBlock(g.Blocks, "lsct", "lsdv", "lspf", "luni")
	return g, nil
}

func baseFromRecord(lr fileformat.LayerRecord) Base {
	b := Base{
		Name:      lr.Name,
		Opacity:   lr.Opacity,
		BlendMode: BlendMode(lr.BlendMode),
		Clipping:  lr.Clipping,
		Flags:     decodeLayerFlags(lr.Flags),
		Mask:      lr.Mask,
		Rect:      lr.Rect,
		Blocks:    lr.Blocks,
	}
	if uname, ok := blocks.Find(lr.Blocks, "luni"); ok {
		if name, err := blocks.ParseUnicodeName(uname.Payload); err == nil {
			b.Name = name
		}
	}
	if pf, ok := blocks.Find(lr.Blocks, "lspf"); ok {
		if flags, err := blocks.ParseProtectionFlags(pf.Payload); err == nil {
			b.Locked = flags.Locked
		}
	}
	return b
}

func channelsFromData(cd []fileformat.ChannelData) []Channel {
	out := make([]Channel, len(cd))
	for i, c := range cd {
		out[i] = Channel{ID: ChannelID(c.ID), Compression: c.Compression, Raw: c.Raw}
	}
	return out
}

// layerFromRecord converts one non-divider layer record into a concrete
// Layer, detecting smart-object placement (PlLd/SoLd) and adjustment
// descriptors along the way.
func layerFromRecord(lr fileformat.LayerRecord, cd []fileformat.ChannelData, linkedLayers *linked.Store, version bio.Version) (Layer, error) {
	base := baseFromRecord(lr)
	base.Channels = channelsFromData(cd)

	if sold, ok := blocks.Find(lr.Blocks, "SoLd"); ok {
		so, err := smartObjectFromSoLd(sold.Payload, linkedLayers, version)
		if err != nil {
			return nil, errors.Wrap(err, "psd: parsing SoLd")
		}
		so.Base = base
		so.Base.Blocks = removeBlock(so.Base.Blocks, "SoLd", "PlLd", "lspf", "luni")
		if _, ok := linkedLayers.Get(so.UUID); !ok {
			so.Degraded = true
		}
		return so, nil
	}
	if pl, ok := blocks.Find(lr.Blocks, "PlLd"); ok {
		parsed, err := blocks.ParsePlacedLayer(pl.Payload, version)
		if err == nil {
			so := &SmartObjectLayer{Base: base}
			if id, err := uuid.Parse(parsed.UUID); err == nil {
				so.UUID = id
			}
			so.LegacyTransform = parsed.Transform
			so.Base.Blocks = removeBlock(so.Base.Blocks, "PlLd", "lspf", "luni")
			if _, ok := linkedLayers.Get(so.UUID); !ok {
				so.Degraded = true
			}
			return so, nil
		}
	}

	if kind, ok := detectAdjustmentKind(lr.Blocks); ok {
		a := &AdjustmentLayer{Base: base, Kind: kind}
		a.Base.Blocks = removeBlock(a.Base.Blocks, "lspf", "luni")
		return a, nil
	}

	img := &ImageLayer{Base: base}
	img.Base.Blocks = removeBlock(img.Base.Blocks, "lspf", "luni")
	return img, nil
}

// flattenTree walks the tree depth-first, emitting a group's children
// before its own divider record, the inverse of buildTree's
// fold-then-graduate reconstruction. A nested group (one that is itself a
// child being gathered for an enclosing group) gets a trailing bounded
// record so the enclosing fold picks it up instead of swallowing it as an
// ordinary layer; the outermost group in a subtree needs none, since
// there's nothing above it left to graduate into.
func flattenTree(layers []Layer, compressionFor func(uint8) channel.Compression, depth uint8, version bio.Version) ([]flatRecord, error) {
	var out []flatRecord
	var walk func(ls []Layer, nested bool) error
	walk = func(ls []Layer, nested bool) error {
		for _, l := range ls {
			switch v := l.(type) {
			case *GroupLayer:
				if err := walk(v.Children, true); err != nil {
					return err
				}
				fr, err := groupToRecord(v)
				if err != nil {
					return err
				}
				out = append(out, fr)
				if nested {
					bounded, err := boundedMarkerRecord()
					if err != nil {
						return err
					}
					out = append(out, bounded)
				}
			default:
				fr, err := recordFromLayer(l, compressionFor, depth, version)
				if err != nil {
					return err
				}
				out = append(out, fr)
			}
		}
		return nil
	}
	if err := walk(layers, false); err != nil {
		return nil, err
	}
	return out, nil
}

// boundedMarkerRecord is the hidden "</Layer group>" layer Photoshop
// writes to graduate a just-closed group so an enclosing group can claim
// it as a child.
func boundedMarkerRecord() (flatRecord, error) {
	payload, err := blocks.EncodeSectionDivider(blocks.SectionDivider{Type: blocks.SectionBounded})
	if err != nil {
		return flatRecord{}, err
	}
	lr := fileformat.LayerRecord{
		Name:      "</Layer group>",
		BlendMode: string(BlendNormal),
		Blocks:    []blocks.Block{{Key: "lsct", Payload: payload}},
	}
	return flatRecord{record: lr}, nil
}

func groupToRecord(g *GroupLayer) (flatRecord, error) {
	lr := recordFromBase(g.Base)
	sdType := blocks.SectionClosed
	if g.Open {
		sdType = blocks.SectionOpen
	}
	sd := blocks.SectionDivider{Type: sdType, HasExtra: true}
	if g.PassThrough {
		sd.BlendMode = string(BlendPassThrough)
	} else {
		sd.BlendMode = string(g.BlendMode)
	}
	payload, err := blocks.EncodeSectionDivider(sd)
	if err != nil {
		return flatRecord{}, err
	}
	lr.Blocks = append(lr.Blocks, blocks.Block{Key: "lsct", Payload: payload})
	return flatRecord{record: lr}, nil
}

func recordFromBase(b Base) fileformat.LayerRecord {
	lr := fileformat.LayerRecord{
		Rect:      b.Rect,
		BlendMode: string(b.BlendMode),
		Opacity:   b.Opacity,
		Clipping:  b.Clipping,
		Flags:     encodeLayerFlags(b.Flags),
		Mask:      b.Mask,
		Name:      asciiName(b.Name),
		Blocks:    append([]blocks.Block(nil), b.Blocks...),
	}
	if needsUnicodeName(b.Name) {
		payload, err := blocks.EncodeUnicodeName(b.Name)
		if err == nil {
			lr.Blocks = append(lr.Blocks, blocks.Block{Key: "luni", Payload: payload})
		}
	}
	if b.Locked {
		payload, err := blocks.EncodeProtectionFlags(blocks.ProtectionFlags{Locked: true})
		if err == nil {
			lr.Blocks = append(lr.Blocks, blocks.Block{Key: "lspf", Payload: payload})
		}
	}
	return lr
}

func asciiName(name string) string {
	for _, r := range name {
		if r > 0x7f {
			return "?"
		}
	}
	return name
}

func needsUnicodeName(name string) bool {
	for _, r := range name {
		if r > 0x7f {
			return true
		}
	}
	return len(name) > 255
}

func recordFromLayer(l Layer, compressionFor func(uint8) channel.Compression, depth uint8, version bio.Version) (flatRecord, error) {
	base := l.layerBase()
	lr := recordFromBase(*base)

	if so, ok := l.(*SmartObjectLayer); ok {
		payload, err := encodeSoLd(so, version)
		if err != nil {
			return flatRecord{}, errors.Wrap(err, "psd: encoding SoLd")
		}
		lr.Blocks = append(lr.Blocks, blocks.Block{Key: "SoLd", Payload: payload})
	}

	channels := make([]fileformat.ChannelData, len(base.Channels))
	for i, c := range base.Channels {
		comp := c.Compression
		if comp == channel.Raw && compressionFor != nil {
			comp = compressionFor(depth)
		}
		channels[i] = fileformat.ChannelData{ID: int16(c.ID), Compression: comp, Raw: c.Raw}
	}
	return flatRecord{record: lr, channels: channels}, nil
}

func smartObjectFromSoLd(payload []byte, linkedLayers *linked.Store, version bio.Version) (*SmartObjectLayer, error) {
	pld, err := blocks.ParsePlacedLayerData(payload, version)
	if err != nil {
		return nil, err
	}
	so := &SmartObjectLayer{}
	d := pld.Descriptor
	if idnt, ok := d.Get("Idnt").(descriptor.UnicodeString); ok {
		if id, err := uuid.Parse(string(idnt)); err == nil {
			so.UUID = id
		}
	}
	if wd, ok := d.Get("Warp").(descriptor.Descriptor); ok {
		if w, err := warp.FromDescriptor(wd); err == nil {
			so.WarpData = w
		}
	}
	if q, ok := quadFromDescriptor(d.Get("Trnf")); ok {
		so.Affine = q
		so.NonAffine = q
	}
	if q, ok := quadFromDescriptor(d.Get("nonAffineTrnf")); ok {
		so.NonAffine = q
	}
	if sz, ok := d.Get("Sz  ").(descriptor.Descriptor); ok {
		if w, ok := sz.Get("Wdth").(descriptor.Integer32); ok {
			so.CachedWidth = int(w)
		}
		if h, ok := sz.Get("Hght").(descriptor.Integer32); ok {
			so.CachedHeight = int(h)
		}
	}
	_ = linkedLayers
	return so, nil
}

func encodeSoLd(so *SmartObjectLayer, version bio.Version) ([]byte, error) {
	items := []descriptor.Item{
		{Key: "Idnt", Value: descriptor.UnicodeString(so.UUID.String())},
		{Key: "Trnf", Value: quadToDescriptorList(so.Affine)},
	}
	if so.NonAffine != so.Affine {
		items = append(items, descriptor.Item{Key: "nonAffineTrnf", Value: quadToDescriptorList(so.NonAffine)})
	}
	if so.WarpData != nil {
		items = append(items, descriptor.Item{Key: "Warp", Value: warp.ToDescriptor(so.WarpData)})
	}
	items = append(items, descriptor.Item{
		Key: "Sz  ",
		Value: descriptor.Descriptor{
			ClassID: "Pnt ",
			Items: []descriptor.Item{
				{Key: "Wdth", Value: descriptor.Integer32(so.CachedWidth)},
				{Key: "Hght", Value: descriptor.Integer32(so.CachedHeight)},
			},
		},
	})
	d := descriptor.Descriptor{ClassID: "SoLd", Items: items}
	return blocks.EncodePlacedLayerData(blocks.PlacedLayerData{Descriptor: d}, version)
}

// quadDiskOrder maps on-disk corner order (top-left, top-right,
// bottom-right, bottom-left) to warp.Quad's in-memory indices.
var quadDiskOrder = [4]int{0, 1, 3, 2}

func quadToDescriptorList(q warp.Quad) descriptor.List {
	vals := make([]descriptor.Value, 0, 8)
	for _, i := range quadDiskOrder {
		p := q[i]
		vals = append(vals, descriptor.Double(p.X), descriptor.Double(p.Y))
	}
	return descriptor.List{Items: vals}
}

func quadFromDescriptor(v descriptor.Value) (warp.Quad, bool) {
	list, ok := v.(descriptor.List)
	if !ok || len(list.Items) != 8 {
		return warp.Quad{}, false
	}
	var q warp.Quad
	for i := 0; i < 4; i++ {
		x, xok := list.Items[2*i].(descriptor.Double)
		y, yok := list.Items[2*i+1].(descriptor.Double)
		if !xok || !yok {
			return warp.Quad{}, false
		}
		q[quadDiskOrder[i]] = warp.Point2D{X: float64(x), Y: float64(y)}
	}
	return q, true
}
