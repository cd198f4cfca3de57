package psd

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/fileformat"
)

// FormatError reports that the input is not a valid layered-document file.
type FormatError string

func (e FormatError) Error() string { return "psd: invalid format: " + string(e) }

// UnsupportedError reports a structurally valid file this package doesn't
// know how to flatten into a standard image.Image (an unsupported color
// mode or bit depth for the composite preview).
type UnsupportedError string

func (e UnsupportedError) Error() string { return "psd: unsupported: " + string(e) }

func init() {
	image.RegisterFormat("psd", "8BPS", Decode, DecodeConfig)
}

// Decode reads a full document from r and flattens its composite preview
// into an image.Image, satisfying the standard library's image.Decode
// registry. Callers that need the layer tree should call Read directly.
func Decode(r io.Reader) (image.Image, error) {
	rs, err := asReadSeeker(r)
	if err != nil {
		return nil, err
	}
	doc, err := Read(rs, nil)
	if err != nil {
		return nil, classifyDecodeErr(err)
	}
	return compositeToImage(doc)
}

// DecodeConfig returns the color model and dimensions of a document
// without flattening its composite preview.
func DecodeConfig(r io.Reader) (image.Config, error) {
	rs, err := asReadSeeker(r)
	if err != nil {
		return image.Config{}, err
	}
	doc, err := Read(rs, nil)
	if err != nil {
		return image.Config{}, classifyDecodeErr(err)
	}
	model, err := colorModelFor(doc.Header)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: model,
		Width:      int(doc.Header.Width),
		Height:     int(doc.Header.Height),
	}, nil
}

func asReadSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "psd: buffering input")
	}
	return bytes.NewReader(b), nil
}

func classifyDecodeErr(err error) error {
	return err
}

func colorModelFor(h fileformat.Header) (color.Model, error) {
	switch h.ColorMode {
	case fileformat.Grayscale:
		if h.Depth == 16 {
			return color.Gray16Model, nil
		}
		return color.GrayModel, nil
	case fileformat.RGB:
		if h.Depth == 16 {
			return color.NRGBA64Model, nil
		}
		return color.NRGBAModel, nil
	case fileformat.CMYK:
		return color.CMYKModel, nil
	default:
		return nil, UnsupportedError("color mode not supported for composite flattening")
	}
}

// compositeToImage flattens Document.Composite into a standard image.Image
// (spec.md's non-goal "no rendering of the composite image" excludes doing
// blend-mode compositing of the layer tree, not decoding the file's own
// pre-flattened preview raster).
func compositeToImage(doc *Document) (image.Image, error) {
	h := doc.Header
	width, height := int(h.Width), int(h.Height)
	bounds := image.Rect(0, 0, width, height)
	ci := doc.Composite

	switch h.ColorMode {
	case fileformat.Grayscale:
		if h.Depth == 16 {
			img := image.NewGray16(bounds)
			interleave16(img.Pix, ci.Channels[0])
			return img, nil
		}
		img := image.NewGray(bounds)
		copy(img.Pix, ci.Channels[0])
		return img, nil

	case fileformat.RGB:
		hasAlpha := len(ci.Channels) >= 4
		if h.Depth == 16 {
			img := image.NewNRGBA64(bounds)
			fillNRGBA64(img.Pix, ci.Channels, hasAlpha)
			return img, nil
		}
		img := image.NewNRGBA(bounds)
		fillNRGBA(img.Pix, ci.Channels, hasAlpha)
		return img, nil

	case fileformat.CMYK:
		if h.Depth != 8 {
			return nil, UnsupportedError("CMYK composite flattening only supports 8-bit depth")
		}
		img := image.NewCMYK(bounds)
		n := width * height
		for i := 0; i < n; i++ {
			img.Pix[i*4+0] = 255 - ci.Channels[0][i]
			img.Pix[i*4+1] = 255 - ci.Channels[1][i]
			img.Pix[i*4+2] = 255 - ci.Channels[2][i]
			img.Pix[i*4+3] = 255 - ci.Channels[3][i]
		}
		return img, nil

	default:
		return nil, UnsupportedError("color mode not supported for composite flattening")
	}
}

func fillNRGBA(pix []byte, channels [][]byte, hasAlpha bool) {
	n := len(channels[0])
	for i := 0; i < n; i++ {
		pix[i*4+0] = channels[0][i]
		pix[i*4+1] = channels[1][i]
		pix[i*4+2] = channels[2][i]
		if hasAlpha {
			pix[i*4+3] = channels[3][i]
		} else {
			pix[i*4+3] = 255
		}
	}
}

func fillNRGBA64(pix []byte, channels [][]byte, hasAlpha bool) {
	n := len(channels[0]) / 2
	put := func(off, ch, i int) {
		pix[off] = channels[ch][i*2]
		pix[off+1] = channels[ch][i*2+1]
	}
	for i := 0; i < n; i++ {
		put(i*8+0, 0, i)
		put(i*8+2, 1, i)
		put(i*8+4, 2, i)
		if hasAlpha {
			put(i*8+6, 3, i)
		} else {
			pix[i*8+6] = 255
			pix[i*8+7] = 255
		}
	}
}

func interleave16(pix []byte, raw []byte) {
	copy(pix, raw)
}
