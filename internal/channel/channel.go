// Package channel implements the four channel-compression codecs a raster
// channel can be stored with: Raw, RLE (PackBits), Zip (deflate), and Zip
// with horizontal/byte-plane prediction (spec.md §4.6).
package channel

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/errkind"
)

// Compression is the 16-bit tag written immediately before a channel's
// compressed bytes.
type Compression uint16

const (
	Raw Compression = iota
	RLE
	Zip
	ZipPrediction
)

func (c Compression) String() string {
	switch c {
	case Raw:
		return "raw"
	case RLE:
		return "rle"
	case Zip:
		return "zip"
	case ZipPrediction:
		return "zip-prediction"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the storage width of one sample at the given bit
// depth. Only 8/16/32 participate end-to-end (spec.md §4.7); 1-bit is
// acknowledged in headers only.
func BytesPerSample(depth uint8) int {
	switch depth {
	case 8:
		return 1
	case 16:
		return 2
	case 32:
		return 4
	default:
		return 0
	}
}

// DefaultCompressionPolicy implements spec.md §4.6's default compressor
// choice: RLE for 8-bit channels, Zip-with-Prediction for everything wider.
func DefaultCompressionPolicy(depth uint8) Compression {
	if depth == 8 {
		return RLE
	}
	return ZipPrediction
}

// Decompress reads exactly the compressed representation of one
// height x width raster at the given bit depth from r (comp must already
// have been read by the caller) and returns the raw, big-endian sample
// bytes. compressedLen, when >= 0, bounds how many bytes Zip/ZipPrediction
// may read (their on-disk length usually comes from an enclosing
// variadic-length field, since deflate streams are not self-delimiting
// without one); -1 means "read until the raster is full" (used for the
// composite image data, which has no enclosing length).
func Decompress(r io.Reader, comp Compression, depth uint8, width, height int, version bio.Version, compressedLen int64) ([]byte, error) {
	bps := BytesPerSample(depth)
	if bps == 0 {
		return nil, errors.Wrapf(errkind.ErrCompression, "unsupported bit depth %d", depth)
	}
	rawLen := width * height * bps
	switch comp {
	case Raw:
		buf := make([]byte, rawLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(errkind.ErrCompression, "raw: "+err.Error())
		}
		return buf, nil
	case RLE:
		return decodeRLE(r, width, height, bps, version)
	case Zip:
		return decodeZip(r, rawLen, compressedLen)
	case ZipPrediction:
		filtered, err := decodeZip(r, rawLen, compressedLen)
		if err != nil {
			return nil, err
		}
		return unpredict(filtered, depth, width, height)
	default:
		return nil, errors.Wrapf(errkind.ErrCompression, "unknown compression tag %d", comp)
	}
}

// Compress writes raw (big-endian sample bytes for one height x width
// raster) to w using comp, returning the number of compressed bytes
// written (excluding the 16-bit compression tag itself, which callers
// write separately, immediately before the compressed bytes).
func Compress(w io.Writer, raw []byte, comp Compression, depth uint8, width, height int, version bio.Version) (int64, error) {
	bps := BytesPerSample(depth)
	if bps == 0 {
		return 0, errors.Wrapf(errkind.ErrCompression, "unsupported bit depth %d", depth)
	}
	if len(raw) != width*height*bps {
		return 0, errors.Wrapf(errkind.ErrCompression, "raw buffer is %d bytes, want %d", len(raw), width*height*bps)
	}
	switch comp {
	case Raw:
		n, err := w.Write(raw)
		return int64(n), err
	case RLE:
		return encodeRLE(w, raw, width, height, bps, version)
	case Zip:
		return encodeZip(w, raw)
	case ZipPrediction:
		filtered, err := predict(raw, depth, width, height)
		if err != nil {
			return 0, err
		}
		return encodeZip(w, filtered)
	default:
		return 0, errors.Wrapf(errkind.ErrCompression, "unknown compression tag %d", comp)
	}
}

func decodeZip(r io.Reader, rawLen int, compressedLen int64) ([]byte, error) {
	var src io.Reader = r
	if compressedLen >= 0 {
		src = io.LimitReader(r, compressedLen)
	}
	fr := flate.NewReader(src)
	defer fr.Close()
	buf := make([]byte, rawLen)
	if _, err := io.ReadFull(fr, buf); err != nil {
		return nil, errors.Wrap(errkind.ErrCompression, "zip: "+err.Error())
	}
	return buf, nil
}

func encodeZip(w io.Writer, raw []byte) (int64, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return 0, errors.Wrap(err, "zip: creating writer")
	}
	if _, err := fw.Write(raw); err != nil {
		return 0, errors.Wrap(err, "zip: writing")
	}
	if err := fw.Close(); err != nil {
		return 0, errors.Wrap(err, "zip: closing")
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
