package channel

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-psd/psd/internal/bio"
)

func testChannels(width, height, bps int, seed int64) [][]byte {
	rnd := rand.New(rand.NewSource(seed))
	n := width * height * bps
	constant := bytes.Repeat([]byte{0x42}, n)
	gradient := make([]byte, n)
	for i := range gradient {
		gradient[i] = byte(i % 256)
	}
	random := make([]byte, n)
	rnd.Read(random)
	edgeHeavy := make([]byte, n)
	for i := range edgeHeavy {
		if i%2 == 0 {
			edgeHeavy[i] = 0x00
		} else {
			edgeHeavy[i] = 0xFF
		}
	}
	return [][]byte{constant, gradient, random, edgeHeavy}
}

func TestCompressionRoundTrip(t *testing.T) {
	const width, height = 16, 12
	for _, depth := range []uint8{8, 16, 32} {
		bps := BytesPerSample(depth)
		for _, comp := range []Compression{Raw, RLE, Zip, ZipPrediction} {
			for i, raw := range testChannels(width, height, bps, int64(depth)) {
				var buf bytes.Buffer
				n, err := Compress(&buf, raw, comp, depth, width, height, bio.Narrow)
				require.NoError(t, err, "depth=%d comp=%s case=%d", depth, comp, i)
				assert.EqualValues(t, buf.Len(), n)

				got, err := Decompress(&buf, comp, depth, width, height, bio.Narrow, int64(buf.Len()))
				require.NoError(t, err, "depth=%d comp=%s case=%d", depth, comp, i)
				assert.Equal(t, raw, got, "depth=%d comp=%s case=%d", depth, comp, i)
			}
		}
	}
}

// S2 from spec.md §8: a flat 32x32 16-bit channel, all samples 65535,
// must round-trip exactly through ZipPrediction.
func TestS2ZipPredictionFlat16Bit(t *testing.T) {
	raw := make([]byte, 32*32*2)
	for i := 0; i < len(raw); i += 2 {
		raw[i] = 0xFF
		raw[i+1] = 0xFF
	}
	var buf bytes.Buffer
	_, err := Compress(&buf, raw, ZipPrediction, 16, 32, 32, bio.Narrow)
	require.NoError(t, err)
	got, err := Decompress(&buf, ZipPrediction, 16, 32, 32, bio.Narrow, int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

// S6 from spec.md §8: a single row [1.0, 2.0, 3.0, 4.0] as big-endian f32
// round-trips exactly through the 32-bit byte-plane interleave predictor.
func TestS6Predict32SingleRow(t *testing.T) {
	values := []float32{1.0, 2.0, 3.0, 4.0}
	raw := make([]byte, 4*4)
	for i, v := range values {
		bits := math.Float32bits(v)
		raw[4*i] = byte(bits >> 24)
		raw[4*i+1] = byte(bits >> 16)
		raw[4*i+2] = byte(bits >> 8)
		raw[4*i+3] = byte(bits)
	}
	filtered := predict32(raw, 4, 1)
	back := unpredict32(filtered, 4, 1)
	assert.Equal(t, raw, back)
}

func TestRLEOverrunIsDetected(t *testing.T) {
	// A literal run claiming more bytes than the row-size entry allows.
	_, err := decodePackBitsRow([]byte{2, 1, 2, 3, 4}, 2)
	require.Error(t, err)
}

func TestPackBitsNoOpByte(t *testing.T) {
	row, err := decodePackBitsRow([]byte{0x80, 1, 1, 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, row)
}
