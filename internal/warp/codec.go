package warp

import (
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/descriptor"
)

// ToDescriptor serializes w the way spec.md §4.9 describes: class-id
// "warp" for a Normal patch or "quiltWarp" for a Quilt, with the mesh
// points carried as a customEnvelopeWarp sub-descriptor and, for quilts,
// the slice arrays and deform dimensions appended.
func ToDescriptor(w *Warp) descriptor.Descriptor {
	classID := "warp"
	if w.Kind == Quilt {
		classID = "quiltWarp"
	}

	hrzn := make([]float64, len(w.Grid))
	vrtc := make([]float64, len(w.Grid))
	for i, p := range w.Grid {
		hrzn[i] = p.X
		vrtc[i] = p.Y
	}

	meshPoints := descriptor.ObjectArray{
		ItemsCount: 2,
		ClassID:    "rationalPoint",
		Items: []descriptor.Item{
			{Key: "Hrzn", Value: descriptor.UnitFloats{Unit: descriptor.UnitPixel, Values: hrzn}},
			{Key: "Vrtc", Value: descriptor.UnitFloats{Unit: descriptor.UnitPixel, Values: vrtc}},
		},
	}

	envelope := descriptor.Descriptor{
		ClassID: "customEnvelopeWarp",
		Items: []descriptor.Item{
			{Key: "meshPoints", Value: meshPoints},
		},
	}

	bounds := descriptor.Descriptor{
		ClassID: "classFloatPoint",
		Items: []descriptor.Item{
			{Key: "Top ", Value: descriptor.Double(w.Bounds.Top)},
			{Key: "Left", Value: descriptor.Double(w.Bounds.Left)},
			{Key: "Btom", Value: descriptor.Double(w.Bounds.Bottom)},
			{Key: "Rght", Value: descriptor.Double(w.Bounds.Right)},
		},
	}

	items := []descriptor.Item{
		{Key: "warpStyle", Value: descriptor.EnumeratedString{TypeID: "warpStyle", EnumID: string(w.Style)}},
		{Key: "warpValue", Value: descriptor.Double(w.Value)},
		{Key: "warpPerspective", Value: descriptor.Double(w.Perspective)},
		{Key: "warpPerspectiveOther", Value: descriptor.Double(w.PerspectiveOther)},
		{Key: "warpRotate", Value: descriptor.EnumeratedString{TypeID: "warpRotate", EnumID: string(w.Rotate)}},
		{Key: "bounds", Value: bounds},
		{Key: "uOrder", Value: descriptor.Integer32(w.UOrder)},
		{Key: "vOrder", Value: descriptor.Integer32(w.VOrder)},
		{Key: "customEnvelopeWarp", Value: envelope},
	}

	if w.Kind == Quilt {
		items = append(items,
			descriptor.Item{Key: "quiltSliceX", Value: sliceObjectArray(w.QuiltSliceX)},
			descriptor.Item{Key: "quiltSliceY", Value: sliceObjectArray(w.QuiltSliceY)},
			descriptor.Item{Key: "deformNumRows", Value: descriptor.Integer32((w.V - 1) / 3)},
			descriptor.Item{Key: "deformNumCols", Value: descriptor.Integer32((w.U - 1) / 3)},
		)
	}

	return descriptor.Descriptor{ClassID: classID, Items: items}
}

func sliceObjectArray(values []float64) descriptor.ObjectArray {
	return descriptor.ObjectArray{
		ItemsCount: uint32(len(values)),
		ClassID:    "quiltSliceValue",
		Items: []descriptor.Item{
			{Key: "quiltSlices", Value: descriptor.UnitFloats{Unit: descriptor.UnitPixel, Values: values}},
		},
	}
}

// FromDescriptor parses a warp/quiltWarp descriptor back into a Warp,
// reversing ToDescriptor.
func FromDescriptor(d descriptor.Descriptor) (*Warp, error) {
	w := &Warp{}
	switch d.ClassID {
	case "warp":
		w.Kind = Normal
	case "quiltWarp":
		w.Kind = Quilt
	default:
		return nil, errors.Errorf("warp: unexpected descriptor class-id %q", d.ClassID)
	}

	if es, ok := d.Get("warpStyle").(descriptor.EnumeratedString); ok {
		w.Style = Style(es.EnumID)
	}
	if v, ok := d.Get("warpValue").(descriptor.Double); ok {
		w.Value = float64(v)
	}
	if v, ok := d.Get("warpPerspective").(descriptor.Double); ok {
		w.Perspective = float64(v)
	}
	if v, ok := d.Get("warpPerspectiveOther").(descriptor.Double); ok {
		w.PerspectiveOther = float64(v)
	}
	if es, ok := d.Get("warpRotate").(descriptor.EnumeratedString); ok {
		w.Rotate = RotateAxis(es.EnumID)
	}
	if v, ok := d.Get("uOrder").(descriptor.Integer32); ok {
		w.UOrder = int32(v)
	}
	if v, ok := d.Get("vOrder").(descriptor.Integer32); ok {
		w.VOrder = int32(v)
	}
	if b, ok := d.Get("bounds").(descriptor.Descriptor); ok {
		if v, ok := b.Get("Top ").(descriptor.Double); ok {
			w.Bounds.Top = float64(v)
		}
		if v, ok := b.Get("Left").(descriptor.Double); ok {
			w.Bounds.Left = float64(v)
		}
		if v, ok := b.Get("Btom").(descriptor.Double); ok {
			w.Bounds.Bottom = float64(v)
		}
		if v, ok := b.Get("Rght").(descriptor.Double); ok {
			w.Bounds.Right = float64(v)
		}
	}

	envelope, ok := d.Get("customEnvelopeWarp").(descriptor.Descriptor)
	if !ok {
		return nil, errors.New("warp: missing customEnvelopeWarp")
	}
	meshPoints, ok := envelope.Get("meshPoints").(descriptor.ObjectArray)
	if !ok {
		return nil, errors.New("warp: missing meshPoints")
	}
	var hrzn, vrtc []float64
	for _, it := range meshPoints.Items {
		uf, ok := it.Value.(descriptor.UnitFloats)
		if !ok {
			continue
		}
		switch it.Key {
		case "Hrzn":
			hrzn = uf.Values
		case "Vrtc":
			vrtc = uf.Values
		}
	}
	if len(hrzn) != len(vrtc) {
		return nil, errors.Errorf("warp: mesh point axis length mismatch %d vs %d", len(hrzn), len(vrtc))
	}
	w.Grid = make([]Point2D, len(hrzn))
	for i := range hrzn {
		w.Grid[i] = Point2D{X: hrzn[i], Y: vrtc[i]}
	}

	if w.Kind == Quilt {
		cols, ok := d.Get("deformNumCols").(descriptor.Integer32)
		if !ok {
			return nil, errors.New("warp: quilt missing deformNumCols")
		}
		rows, ok := d.Get("deformNumRows").(descriptor.Integer32)
		if !ok {
			return nil, errors.New("warp: quilt missing deformNumRows")
		}
		w.U = 1 + 3*int(cols)
		w.V = 1 + 3*int(rows)
		if w.U*w.V != len(w.Grid) {
			return nil, errors.Errorf("warp: quilt grid size %d does not match %dx%d", len(w.Grid), w.U, w.V)
		}
		sliceX, err := readSliceObjectArray(d.Get("quiltSliceX"))
		if err != nil {
			return nil, errors.Wrap(err, "warp: quiltSliceX")
		}
		sliceY, err := readSliceObjectArray(d.Get("quiltSliceY"))
		if err != nil {
			return nil, errors.Wrap(err, "warp: quiltSliceY")
		}
		w.QuiltSliceX = sliceX
		w.QuiltSliceY = sliceY
	} else {
		w.U, w.V = 4, 4
		if len(w.Grid) != 16 {
			return nil, errors.Errorf("warp: normal patch must have 16 control points, got %d", len(w.Grid))
		}
	}

	return w, nil
}

func readSliceObjectArray(v descriptor.Value) ([]float64, error) {
	oa, ok := v.(descriptor.ObjectArray)
	if !ok {
		return nil, errors.New("not an object array")
	}
	for _, it := range oa.Items {
		if it.Key != "quiltSlices" {
			continue
		}
		uf, ok := it.Value.(descriptor.UnitFloats)
		if !ok {
			return nil, errors.New("quiltSlices is not a UnitFloats")
		}
		return uf.Values, nil
	}
	return nil, errors.New("missing quiltSlices")
}
