package psd

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/channel"
	"github.com/go-psd/psd/internal/fileformat"
)

func TestDecodeFlattensRGBComposite(t *testing.T) {
	d := NewDocument(fileformat.Header{
		Version:      bio.Narrow,
		ChannelCount: 3,
		Width:        2,
		Height:       2,
		Depth:        8,
		ColorMode:    fileformat.RGB,
	})
	d.Composite = fileformat.CompositeImage{
		Compression: channel.Raw,
		Channels: [][]byte{
			{10, 10, 10, 10},
			{20, 20, 20, 20},
			{30, 30, 30, 30},
		},
	}

	ws := &memSeeker{}
	require.NoError(t, Write(ws, d, nil))

	img, err := Decode(bytes.NewReader(ws.b))
	require.NoError(t, err)

	nrgba, ok := img.(*image.NRGBA)
	require.True(t, ok)
	r, g, b, a := nrgba.At(0, 0).RGBA()
	assert.Equal(t, uint32(10*0x101), r)
	assert.Equal(t, uint32(20*0x101), g)
	assert.Equal(t, uint32(30*0x101), b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestDecodeConfigReportsDimensions(t *testing.T) {
	d := NewDocument(fileformat.Header{
		Version:      bio.Narrow,
		ChannelCount: 1,
		Width:        7,
		Height:       3,
		Depth:        8,
		ColorMode:    fileformat.Grayscale,
	})
	d.Composite = fileformat.CompositeImage{
		Compression: channel.Raw,
		Channels:    [][]byte{make([]byte, 7*3)},
	}

	ws := &memSeeker{}
	require.NoError(t, Write(ws, d, nil))

	cfg, err := DecodeConfig(bytes.NewReader(ws.b))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Width)
	assert.Equal(t, 3, cfg.Height)
	assert.Equal(t, color.GrayModel, cfg.ColorModel)
}

func TestColorModelForUnsupported(t *testing.T) {
	_, err := colorModelFor(fileformat.Header{ColorMode: fileformat.Indexed})
	assert.Error(t, err)
	var unsupported UnsupportedError
	assert.ErrorAs(t, err, &unsupported)
}

func TestFormatErrorMessage(t *testing.T) {
	err := FormatError("bad signature")
	assert.Contains(t, err.Error(), "bad signature")
}
