package blocks

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/descriptor"
	"github.com/go-psd/psd/internal/errkind"
	"github.com/go-psd/psd/internal/ustring"
)

// PlacedLayerType mirrors the PlLd layer-type field.
type PlacedLayerType uint32

const (
	PlacedUnknown PlacedLayerType = iota
	PlacedRaster
	PlacedVector
	PlacedImageStack
)

// PlacedLayer is the parsed PlLd payload (spec.md §4.5): a legacy
// smart-object placement record carried alongside the richer SoLd
// descriptor-based one for backward compatibility with older readers.
type PlacedLayer struct {
	UUID           string
	Page           uint32
	TotalPages     uint32
	AntiAlias      uint32
	Type           PlacedLayerType
	Transform      [8]float64 // 4 points, x,y interleaved
	WarpDescriptor descriptor.Descriptor
}

func ParsePlacedLayer(payload []byte, version bio.Version) (PlacedLayer, error) {
	r := bio.NewReader(bytes.NewReader(payload))
	if _, err := r.ExpectSignature("plcL"); err != nil {
		return PlacedLayer{}, errors.Wrap(err, "blocks: PlLd marker")
	}
	ver, err := r.ReadU32()
	if err != nil {
		return PlacedLayer{}, err
	}
	if ver != 3 {
		return PlacedLayer{}, errors.Wrapf(errkind.ErrUnsupportedVersion, "PlLd version %d", ver)
	}
	pl := PlacedLayer{}
	pl.UUID, err = ustring.ReadPascal(r, 1)
	if err != nil {
		return PlacedLayer{}, err
	}
	if pl.Page, err = r.ReadU32(); err != nil {
		return PlacedLayer{}, err
	}
	if pl.TotalPages, err = r.ReadU32(); err != nil {
		return PlacedLayer{}, err
	}
	if pl.AntiAlias, err = r.ReadU32(); err != nil {
		return PlacedLayer{}, err
	}
	typeVal, err := r.ReadU32()
	if err != nil {
		return PlacedLayer{}, err
	}
	pl.Type = PlacedLayerType(typeVal)
	for i := 0; i < 8; i++ {
		if pl.Transform[i], err = r.ReadF64(); err != nil {
			return PlacedLayer{}, err
		}
	}
	warpVersion, err := r.ReadU32()
	if err != nil {
		return PlacedLayer{}, err
	}
	if warpVersion != 0 {
		return PlacedLayer{}, errors.Wrapf(errkind.ErrUnsupportedVersion, "PlLd warp version %d", warpVersion)
	}
	descVersion, err := r.ReadU32()
	if err != nil {
		return PlacedLayer{}, err
	}
	if descVersion != 16 {
		return PlacedLayer{}, errors.Wrapf(errkind.ErrUnsupportedVersion, "PlLd descriptor version %d", descVersion)
	}
	v, err := descriptor.ReadValue(r, version, descriptor.DefaultScanWindow)
	if err != nil {
		return PlacedLayer{}, err
	}
	desc, ok := v.(descriptor.Descriptor)
	if !ok {
		return PlacedLayer{}, errors.Wrap(errkind.ErrCorruptDescriptor, "blocks: PlLd warp payload is not a Descriptor")
	}
	pl.WarpDescriptor = desc
	return pl, nil
}

func EncodePlacedLayer(pl PlacedLayer, version bio.Version) ([]byte, error) {
	seeker := newMemSeeker()
	w := bio.NewWriter(seeker)
	if err := w.WriteSignature("plcL"); err != nil {
		return nil, err
	}
	if err := w.WriteU32(3); err != nil {
		return nil, err
	}
	if err := ustring.WritePascal(w, pl.UUID, 1); err != nil {
		return nil, err
	}
	if err := w.WriteU32(pl.Page); err != nil {
		return nil, err
	}
	if err := w.WriteU32(pl.TotalPages); err != nil {
		return nil, err
	}
	if err := w.WriteU32(pl.AntiAlias); err != nil {
		return nil, err
	}
	if err := w.WriteU32(uint32(pl.Type)); err != nil {
		return nil, err
	}
	for _, v := range pl.Transform {
		if err := w.WriteF64(v); err != nil {
			return nil, err
		}
	}
	if err := w.WriteU32(0); err != nil { // warp version
		return nil, err
	}
	if err := w.WriteU32(16); err != nil { // descriptor version
		return nil, err
	}
	if err := descriptor.WriteValue(w, version, pl.WarpDescriptor); err != nil {
		return nil, err
	}
	return seeker.bytes(), nil
}

// PlacedLayerData is the parsed SoLd payload: the richer, descriptor-driven
// smart-object placement record that supersedes PlLd.
type PlacedLayerData struct {
	Descriptor descriptor.Descriptor
}

func ParsePlacedLayerData(payload []byte, version bio.Version) (PlacedLayerData, error) {
	r := bio.NewReader(bytes.NewReader(payload))
	if _, err := r.ExpectSignature("soLD"); err != nil {
		return PlacedLayerData{}, errors.Wrap(err, "blocks: SoLd marker")
	}
	ver, err := r.ReadU32()
	if err != nil {
		return PlacedLayerData{}, err
	}
	if ver != 4 {
		return PlacedLayerData{}, errors.Wrapf(errkind.ErrUnsupportedVersion, "SoLd version %d", ver)
	}
	descVersion, err := r.ReadU32()
	if err != nil {
		return PlacedLayerData{}, err
	}
	if descVersion != 16 {
		return PlacedLayerData{}, errors.Wrapf(errkind.ErrUnsupportedVersion, "SoLd descriptor version %d", descVersion)
	}
	v, err := descriptor.ReadValue(r, version, descriptor.DefaultScanWindow)
	if err != nil {
		return PlacedLayerData{}, err
	}
	desc, ok := v.(descriptor.Descriptor)
	if !ok {
		return PlacedLayerData{}, errors.Wrap(errkind.ErrCorruptDescriptor, "blocks: SoLd payload is not a Descriptor")
	}
	return PlacedLayerData{Descriptor: desc}, nil
}

func EncodePlacedLayerData(pld PlacedLayerData, version bio.Version) ([]byte, error) {
	seeker := newMemSeeker()
	w := bio.NewWriter(seeker)
	if err := w.WriteSignature("soLD"); err != nil {
		return nil, err
	}
	if err := w.WriteU32(4); err != nil {
		return nil, err
	}
	if err := w.WriteU32(16); err != nil {
		return nil, err
	}
	if err := descriptor.WriteValue(w, version, pld.Descriptor); err != nil {
		return nil, err
	}
	return seeker.bytes(), nil
}
