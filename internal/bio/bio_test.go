package bio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seekBuf adapts a bytes.Buffer into an io.WriteSeeker backed by a growable
// slice, the way an in-memory document write target behaves.
type seekBuf struct {
	b   []byte
	pos int64
}

func (s *seekBuf) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.b)) {
		grown := make([]byte, end)
		copy(grown, s.b)
		s.b = grown
	}
	copy(s.b[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		base = int64(len(s.b))
	}
	s.pos = base + offset
	return s.pos, nil
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, int64(10), RoundUp(10, 1))
	assert.Equal(t, int64(12), RoundUp(10, 4))
	assert.Equal(t, int64(8), RoundUp(8, 4))
	assert.Equal(t, int64(0), RoundUp(0, 4))
}

func TestLengthMarkerExactness(t *testing.T) {
	sb := &seekBuf{}
	w := NewWriter(sb)

	m, err := BeginLength(w, 4)
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte("abc"))) // 3 bytes, pad to 4 => 1 byte pad
	require.NoError(t, EndLength(w, m, 4, false))

	r := NewReader(bytes.NewReader(sb.b))
	got, err := r.ReadU32()
	require.NoError(t, err)
	assert.EqualValues(t, 4, got)

	off, err := w.Offset()
	require.NoError(t, err)
	assert.EqualValues(t, 8, off) // 4 (marker) + 4 (padded payload)
}

func TestLengthMarkerExcludesOwnWidth(t *testing.T) {
	sb := &seekBuf{}
	w := NewWriter(sb)

	m, err := BeginLength(w, 4)
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte("abcd")))
	require.NoError(t, EndLength(w, m, 1, true))

	r := NewReader(bytes.NewReader(sb.b))
	got, err := r.ReadU32()
	require.NoError(t, err)
	assert.EqualValues(t, 4, got)
}

func TestVariadicLengthWidthSelection(t *testing.T) {
	sb := &seekBuf{}
	w := NewWriter(sb)
	require.NoError(t, w.WriteVariadicLength(Narrow, 42))
	require.NoError(t, w.WriteVariadicLength(Wide, 42))

	r := NewReader(bytes.NewReader(sb.b))
	v, err := r.ReadVariadicLength(Narrow)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
	v, err = r.ReadVariadicLength(Wide)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestVariadicLengthOverflowFailsInsteadOfTruncating(t *testing.T) {
	sb := &seekBuf{}
	w := NewWriter(sb)
	err := w.WriteVariadicLength(Narrow, uint64(1)<<33)
	require.Error(t, err)
}

func TestReadWriteRoundTrip(t *testing.T) {
	sb := &seekBuf{}
	w := NewWriter(sb)
	require.NoError(t, w.WriteU8(0xAB))
	require.NoError(t, w.WriteU16(0x1234))
	require.NoError(t, w.WriteU32(0xDEADBEEF))
	require.NoError(t, w.WriteU64(0x0102030405060708))
	require.NoError(t, w.WriteF64(3.5))
	require.NoError(t, w.WriteSignature("8BIM"))

	r := NewReader(bytes.NewReader(sb.b))
	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.EqualValues(t, 0xAB, u8)
	u16, err := r.ReadU16()
	require.NoError(t, err)
	assert.EqualValues(t, 0x1234, u16)
	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.EqualValues(t, 0xDEADBEEF, u32)
	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.EqualValues(t, 0x0102030405060708, u64)
	f64, err := r.ReadF64()
	require.NoError(t, err)
	assert.Equal(t, 3.5, f64)
	sig, err := r.ExpectSignature("8BIM", "8B64")
	require.NoError(t, err)
	assert.Equal(t, "8BIM", string(sig[:]))
}
