package fileformat

import (
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/ustring"
)

// ColorModeData is the length-prefixed blob following the header; only
// non-empty for Indexed/Duotone color modes (spec.md §3).
type ColorModeData []byte

func ReadColorModeData(r *bio.Reader, version bio.Version) (ColorModeData, error) {
	n, err := r.ReadVariadicLength(version)
	if err != nil {
		return nil, errors.Wrap(err, "fileformat: color mode data length")
	}
	b, err := r.ReadBytes(int64(n))
	if err != nil {
		return nil, err
	}
	return ColorModeData(b), nil
}

func WriteColorModeData(w *bio.Writer, version bio.Version, data ColorModeData) error {
	if err := w.WriteVariadicLength(version, uint64(len(data))); err != nil {
		return err
	}
	return w.Write(data)
}

// ImageResource is one "8BIM"-signed resource block from the
// image-resources section.
type ImageResource struct {
	ID      uint16
	Name    string
	Payload []byte
}

// ReadImageResources reads the length-prefixed sequence of resource
// blocks. Each block's Pascal name and data length are padded to 2 bytes.
func ReadImageResources(r *bio.Reader, version bio.Version) ([]ImageResource, error) {
	total, err := r.ReadVariadicLength(version)
	if err != nil {
		return nil, errors.Wrap(err, "fileformat: image resources length")
	}
	start, err := r.Offset()
	if err != nil {
		return nil, err
	}
	var out []ImageResource
	for {
		pos, err := r.Offset()
		if err != nil {
			return nil, err
		}
		if uint64(pos-start) >= total {
			break
		}
		res, err := readOneResource(r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func readOneResource(r *bio.Reader) (ImageResource, error) {
	if _, err := r.ExpectSignature("8BIM"); err != nil {
		return ImageResource{}, errors.Wrap(err, "fileformat: resource signature")
	}
	id, err := r.ReadU16()
	if err != nil {
		return ImageResource{}, err
	}
	name, err := ustring.ReadPascal(r, 2)
	if err != nil {
		return ImageResource{}, err
	}
	length, err := r.ReadU32()
	if err != nil {
		return ImageResource{}, err
	}
	payload, err := r.ReadBytes(int64(length))
	if err != nil {
		return ImageResource{}, err
	}
	if err := r.ReadPadding(bio.RoundUp(int64(length), 2) - int64(length)); err != nil {
		return ImageResource{}, err
	}
	return ImageResource{ID: id, Name: name, Payload: payload}, nil
}

func WriteImageResources(w *bio.Writer, version bio.Version, resources []ImageResource) error {
	m, err := bio.BeginVariadicLength(w, version)
	if err != nil {
		return err
	}
	for _, res := range resources {
		if err := writeOneResource(w, res); err != nil {
			return err
		}
	}
	return bio.EndLength(w, m, 1, true)
}

func writeOneResource(w *bio.Writer, res ImageResource) error {
	if err := w.WriteSignature("8BIM"); err != nil {
		return err
	}
	if err := w.WriteU16(res.ID); err != nil {
		return err
	}
	if err := ustring.WritePascal(w, res.Name, 2); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(res.Payload))); err != nil {
		return err
	}
	if err := w.Write(res.Payload); err != nil {
		return err
	}
	return w.WritePadding(bio.RoundUp(int64(len(res.Payload)), 2) - int64(len(res.Payload)))
}
