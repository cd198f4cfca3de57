// Package fileformat implements the sequential file skeleton (spec.md
// §4.7 "C7"): header, color-mode data, image resources, the layer-and-mask
// section, and composite image data, wired together in on-disk order.
package fileformat

import (
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/errkind"
)

// ColorMode identifies the document's color-mode header field.
type ColorMode uint16

const (
	Bitmap ColorMode = iota
	Grayscale
	Indexed
	RGB
	CMYK
	_ // 5 is unused in the real format
	Multichannel
	Duotone
	Lab
)

// Header is the fixed 26-byte file header.
type Header struct {
	Version      bio.Version
	ChannelCount uint16
	Height       uint32
	Width        uint32
	Depth        uint16
	ColorMode    ColorMode
}

func ReadHeader(r *bio.Reader) (Header, error) {
	if _, err := r.ExpectSignature("8BPS"); err != nil {
		return Header{}, errors.Wrap(err, "fileformat: header signature")
	}
	versionU16, err := r.ReadU16()
	if err != nil {
		return Header{}, err
	}
	version := bio.Version(versionU16)
	if version != bio.Narrow && version != bio.Wide {
		return Header{}, errors.Wrapf(errkind.ErrUnsupportedVersion, "header version %d", versionU16)
	}
	if err := r.ReadPadding(6); err != nil {
		return Header{}, err
	}
	h := Header{Version: version}
	if h.ChannelCount, err = r.ReadU16(); err != nil {
		return Header{}, err
	}
	if h.ChannelCount < 1 || h.ChannelCount > 56 {
		return Header{}, errors.Wrapf(errkind.ErrBoundsViolation, "channel count %d out of [1,56]", h.ChannelCount)
	}
	if h.Height, err = r.ReadU32(); err != nil {
		return Header{}, err
	}
	if h.Width, err = r.ReadU32(); err != nil {
		return Header{}, err
	}
	maxDim := uint32(version.MaxDimension())
	if h.Height < 1 || h.Height > maxDim || h.Width < 1 || h.Width > maxDim {
		return Header{}, errors.Wrapf(errkind.ErrBoundsViolation, "dimensions %dx%d out of bounds for %s", h.Width, h.Height, version)
	}
	if h.Depth, err = r.ReadU16(); err != nil {
		return Header{}, err
	}
	switch h.Depth {
	case 1, 8, 16, 32:
	default:
		return Header{}, errors.Wrapf(errkind.ErrBoundsViolation, "unsupported depth %d", h.Depth)
	}
	colorModeU16, err := r.ReadU16()
	if err != nil {
		return Header{}, err
	}
	h.ColorMode = ColorMode(colorModeU16)
	return h, nil
}

func WriteHeader(w *bio.Writer, h Header) error {
	if err := w.WriteSignature("8BPS"); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(h.Version)); err != nil {
		return err
	}
	if err := w.WritePadding(6); err != nil {
		return err
	}
	if err := w.WriteU16(h.ChannelCount); err != nil {
		return err
	}
	if err := w.WriteU32(h.Height); err != nil {
		return err
	}
	if err := w.WriteU32(h.Width); err != nil {
		return err
	}
	if err := w.WriteU16(h.Depth); err != nil {
		return err
	}
	return w.WriteU16(uint16(h.ColorMode))
}
