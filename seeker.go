package psd

import "io"

// memSeeker is a minimal growable io.WriteSeeker used to stage one layer's
// compressed channel bytes before its final length is known (spec.md §3:
// channel lengths are part of the layer record, which precedes the bytes
// themselves on disk).
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
