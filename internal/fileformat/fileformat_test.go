package fileformat

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/channel"
)

type memSeeker struct {
	b   []byte
	pos int64
}

func (m *memSeeker) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.b)) {
		grown := make([]byte, end)
		copy(grown, m.b)
		m.b = grown
	}
	copy(m.b[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.b))
	}
	m.pos = base + offset
	return m.pos, nil
}

// TestS1ConstantColorLayer matches spec.md §8 scenario S1: a 4x2 RGB
// document with one constant-color image layer, RLE-compressed, Narrow
// version, whose header must match a fixed byte sequence.
func TestS1ConstantColorLayer(t *testing.T) {
	const width, height = 4, 2
	red := bytes.Repeat([]byte{255}, width*height)
	green := bytes.Repeat([]byte{0}, width*height)
	blue := bytes.Repeat([]byte{0}, width*height)

	f := &File{
		Header: Header{
			Version:      bio.Narrow,
			ChannelCount: 3,
			Height:       height,
			Width:        width,
			Depth:        8,
			ColorMode:    RGB,
		},
		LayerAndMask: LayerAndMaskSection{
			Info: LayerInfo{
				Layers: []LayerRecord{
					{
						Rect:      Rect{Top: 0, Left: 0, Bottom: height, Right: width},
						BlendMode: "norm",
						Opacity:   255,
						Name:      "Layer 1",
					},
				},
			},
		},
		Composite: CompositeImage{
			Compression: channel.Raw,
			Channels:    [][]byte{red, green, blue},
		},
	}

	channels := []ChannelData{
		{ID: 0, Compression: channel.RLE, Raw: red},
		{ID: 1, Compression: channel.RLE, Raw: green},
		{ID: 2, Compression: channel.RLE, Raw: blue},
	}

	seeker := &memSeeker{}
	w := bio.NewWriter(seeker)
	require.NoError(t, WriteHeader(w, f.Header))

	refs, err := WriteChannels(w, channels, uint8(f.Header.Depth), width, height, bio.Narrow)
	require.NoError(t, err)
	f.LayerAndMask.Info.Layers[0].Channels = refs

	headerBytes := seeker.bytes()
	wantHeader := []byte{
		'8', 'B', 'P', 'S',
		0, 1,
		0, 0, 0, 0, 0, 0,
		0, 3,
		0, 0, 0, 2,
		0, 0, 0, 4,
		0, 8,
		0, 3,
	}
	assert.Equal(t, wantHeader, headerBytes[:len(wantHeader)])

	r := bio.NewReader(bytes.NewReader(headerBytes))
	gotHeader, err := ReadHeader(r)
	require.NoError(t, err)
	assert.Equal(t, f.Header, gotHeader)

	gotChannels, err := ReadChannels(r, refs, uint8(f.Header.Depth), width, height, bio.Narrow)
	require.NoError(t, err)
	require.Len(t, gotChannels, 3)
	for _, v := range gotChannels[0].Raw {
		assert.EqualValues(t, 255, v)
	}
}

func TestFullFileRoundTrip(t *testing.T) {
	const width, height = 2, 2
	raw := make([]byte, width*height)
	f := &File{
		Header: Header{
			Version:      bio.Narrow,
			ChannelCount: 1,
			Height:       height,
			Width:        width,
			Depth:        8,
			ColorMode:    Grayscale,
		},
		ColorModeData:  nil,
		ImageResources: []ImageResource{{ID: 1000, Name: "", Payload: []byte{1, 2, 3, 4}}},
		LayerAndMask: LayerAndMaskSection{
			Info: LayerInfo{
				Layers: []LayerRecord{
					{
						Rect:      Rect{Top: 0, Left: 0, Bottom: height, Right: width},
						Channels:  []ChannelRef{{ID: 0, Length: 2 + uint64(len(raw))}},
						BlendMode: "norm",
						Opacity:   255,
						Name:      "bg",
					},
				},
			},
		},
		Composite: CompositeImage{
			Compression: channel.Raw,
			Channels:    [][]byte{raw},
		},
	}

	seeker := &memSeeker{}
	w := bio.NewWriter(seeker)
	require.NoError(t, WriteFile(w, f))

	r := bio.NewReader(bytes.NewReader(seeker.bytes()))
	got, err := ReadFile(r)
	require.NoError(t, err)
	assert.Equal(t, f.Header, got.Header)
	require.Len(t, got.ImageResources, 1)
	assert.Equal(t, f.ImageResources[0].Payload, got.ImageResources[0].Payload)
	require.Len(t, got.LayerAndMask.Info.Layers, 1)
	assert.Equal(t, "bg", got.LayerAndMask.Info.Layers[0].Name)
}

func (m *memSeeker) bytes() []byte { return m.b }
