package channel

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/errkind"
)

// decodeRLE reads the per-scanline row-size table (height entries, u32
// under Wide / u16 under Narrow) followed by that many PackBits-encoded
// rows, and returns the decoded raster.
func decodeRLE(r io.Reader, width, height, bps int, version bio.Version) ([]byte, error) {
	rowWidth := width * bps
	rowSizes := make([]int, height)
	for i := range rowSizes {
		n, err := readRowSize(r, version)
		if err != nil {
			return nil, errors.Wrap(err, "rle: reading row-size table")
		}
		rowSizes[i] = n
	}

	out := make([]byte, 0, rowWidth*height)
	for i, size := range rowSizes {
		row := make([]byte, size)
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, errors.Wrapf(errkind.ErrCompression, "rle: row %d: %v", i, err)
		}
		decoded, err := decodePackBitsRow(row, rowWidth)
		if err != nil {
			return nil, errors.Wrapf(err, "rle: row %d", i)
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// decodePackBitsRow decodes one PackBits-encoded scanline, failing with
// ErrCompression (RleOverrun) if it would write more than want bytes.
func decodePackBitsRow(row []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	i := 0
	for i < len(row) {
		n := int(int8(row[i]))
		i++
		switch {
		case n == -128:
			// no-op control byte
		case n >= 0:
			count := n + 1
			if i+count > len(row) {
				return nil, errors.Wrap(errkind.ErrCompression, "rle: literal run overruns input")
			}
			if len(out)+count > want {
				return nil, errors.Wrap(errkind.ErrCompression, "rle: scanline overruns row-size entry")
			}
			out = append(out, row[i:i+count]...)
			i += count
		default:
			count := 1 - n
			if i >= len(row) {
				return nil, errors.Wrap(errkind.ErrCompression, "rle: replicate run overruns input")
			}
			if len(out)+count > want {
				return nil, errors.Wrap(errkind.ErrCompression, "rle: scanline overruns row-size entry")
			}
			b := row[i]
			i++
			for j := 0; j < count; j++ {
				out = append(out, b)
			}
		}
	}
	if len(out) != want {
		return nil, errors.Wrapf(errkind.ErrCompression, "rle: decoded %d bytes, want %d", len(out), want)
	}
	return out, nil
}

// encodeRLE PackBits-encodes each scanline independently, writes the
// row-size table, then the concatenated encoded rows.
func encodeRLE(w io.Writer, raw []byte, width, height, bps int, version bio.Version) (int64, error) {
	rowWidth := width * bps
	encodedRows := make([][]byte, height)
	for i := 0; i < height; i++ {
		row := raw[i*rowWidth : (i+1)*rowWidth]
		encodedRows[i] = encodePackBitsRow(row)
	}

	var written int64
	for _, row := range encodedRows {
		n, err := writeRowSize(w, version, len(row))
		written += int64(n)
		if err != nil {
			return written, errors.Wrap(err, "rle: writing row-size table")
		}
	}
	for _, row := range encodedRows {
		n, err := w.Write(row)
		written += int64(n)
		if err != nil {
			return written, errors.Wrap(err, "rle: writing row")
		}
	}
	return written, nil
}

// encodePackBitsRow is the standard PackBits greedy encoder: runs of 3+
// identical bytes become a replicate packet, everything else becomes
// literal packets of up to 128 bytes.
func encodePackBitsRow(row []byte) []byte {
	out := make([]byte, 0, len(row)+len(row)/64+1)
	i := 0
	for i < len(row) {
		runLen := 1
		for i+runLen < len(row) && runLen < 128 && row[i+runLen] == row[i] {
			runLen++
		}
		if runLen >= 3 {
			out = append(out, byte(int8(1-runLen)), row[i])
			i += runLen
			continue
		}

		litStart := i
		i++
		for i < len(row) {
			lookahead := 1
			for i+lookahead < len(row) && lookahead < 3 && row[i+lookahead] == row[i] {
				lookahead++
			}
			if lookahead >= 3 {
				break
			}
			if i-litStart >= 128 {
				break
			}
			i++
		}
		lit := row[litStart:i]
		for len(lit) > 0 {
			chunk := lit
			if len(chunk) > 128 {
				chunk = chunk[:128]
			}
			out = append(out, byte(len(chunk)-1))
			out = append(out, chunk...)
			lit = lit[len(chunk):]
		}
	}
	return out
}

func readRowSize(r io.Reader, version bio.Version) (int, error) {
	if version == bio.Wide {
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return int(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])), nil
	}
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int(uint16(b[0])<<8 | uint16(b[1])), nil
}

func writeRowSize(w io.Writer, version bio.Version, n int) (int, error) {
	if version == bio.Wide {
		b := [4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
		return w.Write(b[:])
	}
	b := [2]byte{byte(n >> 8), byte(n)}
	return w.Write(b[:])
}
