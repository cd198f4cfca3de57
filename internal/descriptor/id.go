package descriptor

import "github.com/go-psd/psd/internal/bio"

// readID reads the variable-length-or-4CC identifier convention used for
// descriptor keys, class IDs, type IDs, key IDs and enum IDs alike: a u32
// length prefix, where 0 means "the next 4 bytes are the id verbatim" and
// any other value means "the id is exactly that many bytes". Four zero
// bytes read back as the empty id.
func readID(r *bio.Reader) (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		n = 4
	}
	b, err := r.ReadBytes(int64(n))
	if err != nil {
		return "", err
	}
	if string(b) == "\x00\x00\x00\x00" {
		return "", nil
	}
	return string(b), nil
}

// writeID writes s using the same convention: a bare 4-byte id is written
// as length 0 followed by the 4 bytes, the empty id as length 0 followed
// by four zero bytes; anything else gets an explicit length prefix.
func writeID(w *bio.Writer, s string) error {
	if len(s) == 0 {
		s = "\x00\x00\x00\x00"
	}
	if len(s) == 4 {
		if err := w.WriteU32(0); err != nil {
			return err
		}
		return w.Write([]byte(s))
	}
	if err := w.WriteU32(uint32(len(s))); err != nil {
		return err
	}
	return w.Write([]byte(s))
}
