package blocks

import "io"

// memSeeker is a minimal growable io.WriteSeeker backing the small,
// self-contained payloads individual tagged-block codecs build before
// handing them to WriteBlock.
type memSeeker struct {
	b   []byte
	pos int64
}

func newMemSeeker() *memSeeker {
	return &memSeeker{}
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

func (m *memSeeker) bytes() []byte {
	return m.b
}
