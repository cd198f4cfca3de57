package fileformat

import (
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/blocks"
	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/ustring"
)

// ChannelRef is one per-channel header entry inside a layer record: the
// channel id and the byte length of its compressed data, which follows
// all layer records in the same order (spec.md §3 "Layer-and-mask
// section").
type ChannelRef struct {
	ID     int16
	Length uint64
}

// MaskFlags decodes the mask-data flags byte.
type MaskFlags struct {
	PositionRelative bool
	Disabled         bool
	Invert           bool
	FromRender       bool
	HasParameters    bool
}

func decodeMaskFlags(b uint8) MaskFlags {
	return MaskFlags{
		PositionRelative: b&0x01 != 0,
		Disabled:         b&0x02 != 0,
		Invert:           b&0x04 != 0,
		FromRender:       b&0x08 != 0,
		HasParameters:    b&0x10 != 0,
	}
}

func encodeMaskFlags(f MaskFlags) uint8 {
	var b uint8
	if f.PositionRelative {
		b |= 0x01
	}
	if f.Disabled {
		b |= 0x02
	}
	if f.Invert {
		b |= 0x04
	}
	if f.FromRender {
		b |= 0x08
	}
	if f.HasParameters {
		b |= 0x10
	}
	return b
}

// MaskParameters are the optional density/feather follow-ups a mask with
// HasParameters set carries, each gated by its own bit in a leading flags
// byte (spec.md §3 "Parameter flags decode four optional double/uint8
// follow-ups").
type MaskParameters struct {
	UserMaskDensity    *uint8
	UserMaskFeather    *float64
	VectorMaskDensity  *uint8
	VectorMaskFeather  *float64
}

// Rect is an integer top/left/bottom/right rectangle.
type Rect struct {
	Top, Left, Bottom, Right int32
}

// MaskData is the 0/20/36-byte layer mask sub-record.
type MaskData struct {
	Rect       Rect
	DefaultColor uint8
	Flags      MaskFlags
	Parameters *MaskParameters
	RealUser   *RealUserMask
}

// RealUserMask is the optional extra sub-record some mask records carry
// describing the "real" (render-independent) user mask.
type RealUserMask struct {
	Rect         Rect
	DefaultColor uint8
	Flags        MaskFlags
}

func readMaskData(r *bio.Reader) (*MaskData, error) {
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	start, err := r.Offset()
	if err != nil {
		return nil, err
	}

	md := &MaskData{}
	if md.Rect, err = readRect(r); err != nil {
		return nil, err
	}
	if md.DefaultColor, err = r.ReadU8(); err != nil {
		return nil, err
	}
	flagByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	md.Flags = decodeMaskFlags(flagByte)

	if md.Flags.HasParameters {
		paramFlags, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		params := &MaskParameters{}
		if paramFlags&0x01 != 0 {
			v, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			params.UserMaskDensity = &v
		}
		if paramFlags&0x02 != 0 {
			v, err := r.ReadF64()
			if err != nil {
				return nil, err
			}
			params.UserMaskFeather = &v
		}
		if paramFlags&0x04 != 0 {
			v, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			params.VectorMaskDensity = &v
		}
		if paramFlags&0x08 != 0 {
			v, err := r.ReadF64()
			if err != nil {
				return nil, err
			}
			params.VectorMaskFeather = &v
		}
		md.Parameters = params
	}

	consumed, err := r.Offset()
	if err != nil {
		return nil, err
	}
	remaining := int64(length) - (consumed - start)
	if remaining >= 18 {
		ru := &RealUserMask{}
		if ru.Rect, err = readRect(r); err != nil {
			return nil, err
		}
		if ru.DefaultColor, err = r.ReadU8(); err != nil {
			return nil, err
		}
		rf, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		ru.Flags = decodeMaskFlags(rf)
		md.RealUser = ru
		consumed, err = r.Offset()
		if err != nil {
			return nil, err
		}
		remaining = int64(length) - (consumed - start)
	}
	if remaining > 0 {
		if err := r.ReadPadding(remaining); err != nil {
			return nil, err
		}
	}
	return md, nil
}

func writeMaskData(w *bio.Writer, md *MaskData) error {
	if md == nil {
		return w.WriteU32(0)
	}
	m, err := bio.BeginLength(w, 4)
	if err != nil {
		return err
	}
	if err := writeRect(w, md.Rect); err != nil {
		return err
	}
	if err := w.WriteU8(md.DefaultColor); err != nil {
		return err
	}
	if err := w.WriteU8(encodeMaskFlags(md.Flags)); err != nil {
		return err
	}
	if md.Parameters != nil {
		p := md.Parameters
		var pf uint8
		if p.UserMaskDensity != nil {
			pf |= 0x01
		}
		if p.UserMaskFeather != nil {
			pf |= 0x02
		}
		if p.VectorMaskDensity != nil {
			pf |= 0x04
		}
		if p.VectorMaskFeather != nil {
			pf |= 0x08
		}
		if err := w.WriteU8(pf); err != nil {
			return err
		}
		if p.UserMaskDensity != nil {
			if err := w.WriteU8(*p.UserMaskDensity); err != nil {
				return err
			}
		}
		if p.UserMaskFeather != nil {
			if err := w.WriteF64(*p.UserMaskFeather); err != nil {
				return err
			}
		}
		if p.VectorMaskDensity != nil {
			if err := w.WriteU8(*p.VectorMaskDensity); err != nil {
				return err
			}
		}
		if p.VectorMaskFeather != nil {
			if err := w.WriteF64(*p.VectorMaskFeather); err != nil {
				return err
			}
		}
	}
	if md.RealUser != nil {
		if err := writeRect(w, md.RealUser.Rect); err != nil {
			return err
		}
		if err := w.WriteU8(md.RealUser.DefaultColor); err != nil {
			return err
		}
		if err := w.WriteU8(encodeMaskFlags(md.RealUser.Flags)); err != nil {
			return err
		}
	}
	if md.Parameters == nil && md.RealUser == nil {
		// A lone mask is padded from 18 to the 20-byte record size.
		if err := w.WritePadding(2); err != nil {
			return err
		}
	}
	return bio.EndLength(w, m, 1, true)
}

func readRect(r *bio.Reader) (Rect, error) {
	top, err := r.ReadI32()
	if err != nil {
		return Rect{}, err
	}
	left, err := r.ReadI32()
	if err != nil {
		return Rect{}, err
	}
	bottom, err := r.ReadI32()
	if err != nil {
		return Rect{}, err
	}
	right, err := r.ReadI32()
	if err != nil {
		return Rect{}, err
	}
	return Rect{Top: top, Left: left, Bottom: bottom, Right: right}, nil
}

func writeRect(w *bio.Writer, rc Rect) error {
	if err := w.WriteI32(rc.Top); err != nil {
		return err
	}
	if err := w.WriteI32(rc.Left); err != nil {
		return err
	}
	if err := w.WriteI32(rc.Bottom); err != nil {
		return err
	}
	return w.WriteI32(rc.Right)
}

// LayerRecord is one entry from the layer-info list.
type LayerRecord struct {
	Rect            Rect
	Channels        []ChannelRef
	BlendMode       string
	Opacity         uint8
	Clipping        uint8
	Flags           uint8
	Mask            *MaskData
	BlendingRanges  []byte
	Name            string
	Blocks          []blocks.Block
}

const (
	FlagVisibleInverted     = 1 << 1
	FlagPixelDataIrrelevant = (1 << 3) | (1 << 4)
)

// LayerInfo is the count-prefixed list of layer records, plus the
// merged-alpha flag the spec folds into the count's sign bit.
type LayerInfo struct {
	MergedAlpha bool
	Layers      []LayerRecord
}

// ReadLayerInfo reads the count-prefixed layer-record list only, leaving
// the reader positioned right after the last layer record's extra-data
// block -- callers that also need per-layer channel pixel bytes (which
// follow every record on disk, after the full list) must read those
// separately via ReadChannels before consuming anything past this point.
func ReadLayerInfo(r *bio.Reader, version bio.Version) (LayerInfo, error) {
	count, err := r.ReadI16()
	if err != nil {
		return LayerInfo{}, err
	}
	info := LayerInfo{}
	layerCount := count
	if count < 0 {
		info.MergedAlpha = true
		layerCount = -count
	}
	info.Layers = make([]LayerRecord, layerCount)
	for i := range info.Layers {
		lr, err := readLayerRecord(r, version)
		if err != nil {
			return LayerInfo{}, errors.Wrapf(err, "fileformat: layer record %d", i)
		}
		info.Layers[i] = lr
	}
	return info, nil
}

func readLayerRecord(r *bio.Reader, version bio.Version) (LayerRecord, error) {
	lr := LayerRecord{}
	var err error
	if lr.Rect, err = readRect(r); err != nil {
		return lr, err
	}
	channelCount, err := r.ReadU16()
	if err != nil {
		return lr, err
	}
	lr.Channels = make([]ChannelRef, channelCount)
	for i := range lr.Channels {
		id, err := r.ReadI16()
		if err != nil {
			return lr, err
		}
		length, err := r.ReadVariadicLength(version)
		if err != nil {
			return lr, err
		}
		lr.Channels[i] = ChannelRef{ID: id, Length: length}
	}
	if _, err := r.ExpectSignature("8BIM"); err != nil {
		return lr, errors.Wrap(err, "fileformat: layer blend-mode signature")
	}
	sig, err := r.ReadSignature()
	if err != nil {
		return lr, err
	}
	lr.BlendMode = string(sig[:])
	if lr.Opacity, err = r.ReadU8(); err != nil {
		return lr, err
	}
	if lr.Clipping, err = r.ReadU8(); err != nil {
		return lr, err
	}
	if lr.Flags, err = r.ReadU8(); err != nil {
		return lr, err
	}
	if _, err := r.ReadU8(); err != nil { // filler
		return lr, err
	}

	extraLen, err := r.ReadU32()
	if err != nil {
		return lr, err
	}
	extraStart, err := r.Offset()
	if err != nil {
		return lr, err
	}

	if lr.Mask, err = readMaskData(r); err != nil {
		return lr, err
	}
	rangesLen, err := r.ReadU32()
	if err != nil {
		return lr, err
	}
	if lr.BlendingRanges, err = r.ReadBytes(int64(rangesLen)); err != nil {
		return lr, err
	}
	if lr.Name, err = ustring.ReadPascal(r, 4); err != nil {
		return lr, err
	}

	consumed, err := r.Offset()
	if err != nil {
		return lr, err
	}
	remaining := int64(extraLen) - (consumed - extraStart)
	if remaining < 0 {
		return lr, errors.New("fileformat: layer extra-data overran its own length")
	}
	if lr.Blocks, err = blocks.ReadAll(r, remaining, version, 1); err != nil {
		return lr, err
	}
	consumed, err = r.Offset()
	if err != nil {
		return lr, err
	}
	if pad := int64(extraLen) - (consumed - extraStart); pad > 0 {
		if err := r.ReadPadding(pad); err != nil {
			return lr, err
		}
	}
	return lr, nil
}

func WriteLayerInfo(w *bio.Writer, version bio.Version, info LayerInfo) error {
	count := int16(len(info.Layers))
	if info.MergedAlpha {
		count = -count
	}
	if err := w.WriteI16(count); err != nil {
		return err
	}
	for i, lr := range info.Layers {
		if err := writeLayerRecord(w, version, lr); err != nil {
			return errors.Wrapf(err, "fileformat: layer record %d", i)
		}
	}
	return nil
}

func writeLayerRecord(w *bio.Writer, version bio.Version, lr LayerRecord) error {
	if err := writeRect(w, lr.Rect); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(len(lr.Channels))); err != nil {
		return err
	}
	for _, ch := range lr.Channels {
		if err := w.WriteI16(ch.ID); err != nil {
			return err
		}
		if err := w.WriteVariadicLength(version, ch.Length); err != nil {
			return err
		}
	}
	if err := w.WriteSignature("8BIM"); err != nil {
		return err
	}
	if err := w.WriteSignature(pad4(lr.BlendMode)); err != nil {
		return err
	}
	if err := w.WriteU8(lr.Opacity); err != nil {
		return err
	}
	if err := w.WriteU8(lr.Clipping); err != nil {
		return err
	}
	if err := w.WriteU8(lr.Flags); err != nil {
		return err
	}
	if err := w.WriteU8(0); err != nil { // filler
		return err
	}

	m, err := bio.BeginLength(w, 4)
	if err != nil {
		return err
	}
	if err := writeMaskData(w, lr.Mask); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(lr.BlendingRanges))); err != nil {
		return err
	}
	if err := w.Write(lr.BlendingRanges); err != nil {
		return err
	}
	if err := ustring.WritePascal(w, lr.Name, 4); err != nil {
		return err
	}
	if err := blocks.WriteAll(w, lr.Blocks, version, 1); err != nil {
		return err
	}
	return bio.EndLength(w, m, 1, true)
}

func pad4(s string) string {
	for len(s) < 4 {
		s += " "
	}
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

// LayerAndMaskSection is the full parsed layer-and-mask section: the
// layer-info list and the global tagged blocks that follow it.
//
// This convenience wrapper assumes no per-layer channel pixel bytes sit
// between the layer records and the global blocks, which only holds when
// every layer's Channels list is empty. Real documents carry channel data
// there; the root package reads/writes the section itself with
// ReadLayerInfo/WriteLayerInfo plus ReadChannels/WriteChannels interleaved
// in between, rather than calling this function.
type LayerAndMaskSection struct {
	Info         LayerInfo
	GlobalBlocks []blocks.Block
}

func ReadLayerAndMaskSection(r *bio.Reader, version bio.Version) (LayerAndMaskSection, error) {
	total, err := r.ReadVariadicLength(version)
	if err != nil {
		return LayerAndMaskSection{}, errors.Wrap(err, "fileformat: layer-and-mask length")
	}
	start, err := r.Offset()
	if err != nil {
		return LayerAndMaskSection{}, err
	}

	innerLen, err := r.ReadU32()
	if err != nil {
		return LayerAndMaskSection{}, err
	}
	innerStart, err := r.Offset()
	if err != nil {
		return LayerAndMaskSection{}, err
	}

	info, err := ReadLayerInfo(r, version)
	if err != nil {
		return LayerAndMaskSection{}, err
	}

	consumed, err := r.Offset()
	if err != nil {
		return LayerAndMaskSection{}, err
	}
	if pad := int64(innerLen) - (consumed - innerStart); pad > 0 {
		if err := r.ReadPadding(pad); err != nil {
			return LayerAndMaskSection{}, err
		}
	}

	consumed, err = r.Offset()
	if err != nil {
		return LayerAndMaskSection{}, err
	}
	remaining := int64(total) - (consumed - start)
	var globalBlocks []blocks.Block
	if remaining >= 8 {
		globalBlocks, err = blocks.ReadAll(r, remaining, version, 4)
		if err != nil {
			return LayerAndMaskSection{}, err
		}
	}
	consumed, err = r.Offset()
	if err != nil {
		return LayerAndMaskSection{}, err
	}
	if pad := int64(total) - (consumed - start); pad > 0 {
		if err := r.ReadPadding(pad); err != nil {
			return LayerAndMaskSection{}, err
		}
	}

	return LayerAndMaskSection{Info: info, GlobalBlocks: globalBlocks}, nil
}

func WriteLayerAndMaskSection(w *bio.Writer, version bio.Version, s LayerAndMaskSection) error {
	outer, err := bio.BeginVariadicLength(w, version)
	if err != nil {
		return err
	}
	inner, err := bio.BeginLength(w, 4)
	if err != nil {
		return err
	}
	if err := WriteLayerInfo(w, version, s.Info); err != nil {
		return err
	}
	if err := bio.EndLength(w, inner, 2, true); err != nil {
		return err
	}
	if err := blocks.WriteAll(w, s.GlobalBlocks, version, 4); err != nil {
		return err
	}
	return bio.EndLength(w, outer, 2, true)
}
