package fileformat

import (
	"github.com/go-psd/psd/internal/bio"
)

// File is the fully parsed on-disk skeleton: header through composite
// image data, with per-layer and composite channel rasters still in their
// compressed-or-not on-disk form where ReadChannels/WriteChannels weren't
// eagerly applied by the caller.
type File struct {
	Header         Header
	ColorModeData  ColorModeData
	ImageResources []ImageResource
	LayerAndMask   LayerAndMaskSection
	Composite      CompositeImage
}

// ReadFile parses the header, color-mode data, image resources,
// layer-and-mask section and composite image, reading the composite with
// the header's ChannelCount (which already counts any extra alpha
// channels).
func ReadFile(r *bio.Reader) (*File, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	cmd, err := ReadColorModeData(r, h.Version)
	if err != nil {
		return nil, err
	}
	resources, err := ReadImageResources(r, h.Version)
	if err != nil {
		return nil, err
	}
	lam, err := ReadLayerAndMaskSection(r, h.Version)
	if err != nil {
		return nil, err
	}
	composite, err := ReadCompositeImage(r, uint8(h.Depth), int(h.Width), int(h.Height), int(h.ChannelCount), h.Version)
	if err != nil {
		return nil, err
	}
	return &File{
		Header:         h,
		ColorModeData:  cmd,
		ImageResources: resources,
		LayerAndMask:   lam,
		Composite:      composite,
	}, nil
}

func WriteFile(w *bio.Writer, f *File) error {
	if err := WriteHeader(w, f.Header); err != nil {
		return err
	}
	if err := WriteColorModeData(w, f.Header.Version, f.ColorModeData); err != nil {
		return err
	}
	if err := WriteImageResources(w, f.Header.Version, f.ImageResources); err != nil {
		return err
	}
	if err := WriteLayerAndMaskSection(w, f.Header.Version, f.LayerAndMask); err != nil {
		return err
	}
	return WriteCompositeImage(w, f.Composite, uint8(f.Header.Depth), int(f.Header.Width), int(f.Header.Height), f.Header.Version)
}
