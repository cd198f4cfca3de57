package descriptor

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-psd/psd/internal/bio"
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

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	sb := &memSeeker{}
	w := bio.NewWriter(sb)
	require.NoError(t, WriteValue(w, bio.Narrow, v))

	r := bio.NewReader(bytes.NewReader(sb.b))
	got, err := ReadValue(r, bio.Narrow, DefaultScanWindow)
	require.NoError(t, err)
	return got
}

func TestHomomorphismPrimitives(t *testing.T) {
	assert.Equal(t, Double(3.25), roundTrip(t, Double(3.25)))
	assert.Equal(t, Integer32(-42), roundTrip(t, Integer32(-42)))
	assert.Equal(t, Integer64(1<<40), roundTrip(t, Integer64(1<<40)))
	assert.Equal(t, Boolean(true), roundTrip(t, Boolean(true)))
	assert.Equal(t, UnicodeString("héllo"), roundTrip(t, UnicodeString("héllo")))
	assert.Equal(t, Identifier(7), roundTrip(t, Identifier(7)))
	assert.Equal(t, Index(3), roundTrip(t, Index(3)))
}

func TestHomomorphismEnumeratedString(t *testing.T) {
	v := EnumeratedString{TypeID: "blnM", EnumID: "Nrml"}
	assert.Equal(t, v, roundTrip(t, v))
}

func TestHomomorphismUnitFloat(t *testing.T) {
	v := UnitFloat{Unit: UnitPercent, Value: 50}
	assert.Equal(t, v, roundTrip(t, v))
}

func TestHomomorphismUnitFloats(t *testing.T) {
	v := UnitFloats{Unit: UnitPixel, Values: []float64{1, 2, 3}}
	assert.Equal(t, v, roundTrip(t, v))
}

func TestHomomorphismAliasPreservesTag(t *testing.T) {
	v := Alias([]byte{1, 2, 3})
	got := roundTrip(t, v)
	assert.Equal(t, v, got)
	assert.Equal(t, "alis", got.OSType())
}

func TestHomomorphismNestedDescriptor(t *testing.T) {
	v := Descriptor{
		ClassID: "warp",
		Items: []Item{
			{Key: "warpStyle", Value: EnumeratedString{TypeID: "warpStyle", EnumID: "warpNone"}},
			{Key: "warpValue", Value: Double(0)},
			{Key: "bounds", Value: Descriptor{
				ClassID: "Rctn",
				Items: []Item{
					{Key: "Top ", Value: Double(0)},
					{Key: "Left", Value: Double(0)},
					{Key: "Btom", Value: Double(100)},
					{Key: "Rght", Value: Double(100)},
				},
			}},
		},
	}
	assert.Equal(t, v, roundTrip(t, v))
}

func TestHomomorphismList(t *testing.T) {
	v := List{Items: []Value{Double(1), Double(2), Boolean(false)}}
	assert.Equal(t, v, roundTrip(t, v))
}

func TestHomomorphismObjectArray(t *testing.T) {
	v := ObjectArray{
		ItemsCount: 2,
		ClassID:    "quiltSliceX",
		Items: []Item{
			{Key: "Hrzn", Value: UnitFloats{Unit: UnitPixel, Values: []float64{-0.6, 2000.6}}},
		},
	}
	assert.Equal(t, v, roundTrip(t, v))
}

func TestHomomorphismReference(t *testing.T) {
	v := Reference{Items: []Value{
		Name{ClassID: "Lyr ", Value: "Layer 1"},
		Property{ClassID: "Lyr ", KeyID: "Clr "},
	}}
	assert.Equal(t, v, roundTrip(t, v))
}

func TestUnknownTagBoundedScanRecovers(t *testing.T) {
	sb := &memSeeker{}
	w := bio.NewWriter(sb)
	require.NoError(t, w.WriteSignature("zzzz")) // unrecognized
	require.NoError(t, w.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	require.NoError(t, WriteValue(w, bio.Narrow, Double(9)))

	r := bio.NewReader(bytes.NewReader(sb.b))
	got, err := ReadValue(r, bio.Narrow, DefaultScanWindow)
	require.NoError(t, err)
	unk, ok := got.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "zzzz", unk.Tag)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, unk.Body)

	next, err := ReadValue(r, bio.Narrow, DefaultScanWindow)
	require.NoError(t, err)
	assert.Equal(t, Double(9), next)
}

func TestUnknownTagFailsWhenNoKnownTagInWindow(t *testing.T) {
	sb := &memSeeker{}
	w := bio.NewWriter(sb)
	require.NoError(t, w.WriteSignature("zzzz"))
	require.NoError(t, w.Write(make([]byte, DefaultScanWindow)))

	r := bio.NewReader(bytes.NewReader(sb.b))
	_, err := ReadValue(r, bio.Narrow, DefaultScanWindow)
	require.Error(t, err)
}
