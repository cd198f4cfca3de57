package bio

import "github.com/pkg/errors"

// LengthMarker is a write-time guard acquired at the file offset where a
// length field lives. BeginLength reserves the field's width by writing a
// zero; EndLength measures what was written since, pads the stream to the
// section's alignment, and back-patches the real, padded length.
//
// This models the destructor-ordering trick the source format's reference
// implementation relies on (see DESIGN.md): the guard must be threaded
// explicitly through Go code instead of falling out of scope automatically.
type LengthMarker struct {
	offset      int64 // file offset of the reserved length field
	width       int   // 4 or 8 bytes
	countOrigin int64 // offset from which the byte count is measured
}

// BeginLength reserves a fixed-width length field at the writer's current
// offset and returns a marker to close later with EndLength. The
// count-origin defaults to the marker's own offset; use BeginLengthFrom to
// include bytes written before the marker (e.g. a header field whose size
// the convention folds into the length).
func BeginLength(w *Writer, width int) (LengthMarker, error) {
	off, err := w.Offset()
	if err != nil {
		return LengthMarker{}, err
	}
	m := LengthMarker{offset: off, width: width, countOrigin: off}
	if err := reserve(w, width); err != nil {
		return LengthMarker{}, err
	}
	return m, nil
}

// BeginLengthFrom is BeginLength with an explicit count-origin, letting the
// caller include bytes already written earlier in the section.
func BeginLengthFrom(w *Writer, width int, countOrigin int64) (LengthMarker, error) {
	m, err := BeginLength(w, width)
	if err != nil {
		return m, err
	}
	m.countOrigin = countOrigin
	return m, nil
}

// BeginVariadicLength is BeginLength with the width chosen by version.
func BeginVariadicLength(w *Writer, version Version) (LengthMarker, error) {
	return BeginLength(w, version.Width())
}

func reserve(w *Writer, width int) error {
	switch width {
	case 4:
		return w.WriteU32(0)
	case 8:
		return w.WriteU64(0)
	default:
		return errors.Errorf("bio: unsupported length marker width %d", width)
	}
}

// EndLength measures the bytes written since the marker's count-origin,
// pads the stream so (count) is a multiple of pad, back-patches the marker
// with the padded count, and restores the write position to the end of the
// now-padded section. When excludeMarkerWidth is true the marker's own
// width is subtracted from the stored count (some blocks' length fields
// exclude themselves from the count they describe).
func EndLength(w *Writer, m LengthMarker, pad int64, excludeMarkerWidth bool) error {
	end, err := w.Offset()
	if err != nil {
		return err
	}
	rawCount := end - m.countOrigin
	paddedEnd := m.countOrigin + RoundUp(rawCount, pad)
	if err := w.WritePadding(paddedEnd - end); err != nil {
		return err
	}

	stored := paddedEnd - m.countOrigin
	if excludeMarkerWidth {
		stored -= int64(m.width)
	}
	if stored < 0 {
		return errors.Errorf("bio: negative length after marker exclusion at offset %d", m.offset)
	}

	if err := w.SetOffset(m.offset); err != nil {
		return err
	}
	if err := writeLength(w, m.width, uint64(stored)); err != nil {
		return err
	}
	return w.SetOffset(paddedEnd)
}

func writeLength(w *Writer, width int, v uint64) error {
	switch width {
	case 4:
		if v > 0xFFFFFFFF {
			return errors.Errorf("bio: length %d overflows 32-bit marker", v)
		}
		return w.WriteU32(uint32(v))
	case 8:
		return w.WriteU64(v)
	default:
		return errors.Errorf("bio: unsupported length marker width %d", width)
	}
}
