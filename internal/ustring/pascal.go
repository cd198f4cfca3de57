package ustring

import "github.com/go-psd/psd/internal/bio"

// ReadPascal reads a classic Pascal string: a 1-byte length followed by
// that many bytes of (Latin-1/ASCII) text, then padding so the whole
// section (length byte included) is a multiple of pad.
func ReadPascal(r *bio.Reader, pad int64) (string, error) {
	n, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int64(n))
	if err != nil {
		return "", err
	}
	total := int64(1 + int(n))
	if err := r.ReadPadding(bio.RoundUp(total, pad) - total); err != nil {
		return "", err
	}
	return string(b), nil
}

// WritePascal writes s as a Pascal string padded to pad bytes.
func WritePascal(w *bio.Writer, s string, pad int64) error {
	if len(s) > 255 {
		s = s[:255]
	}
	if err := w.WriteU8(uint8(len(s))); err != nil {
		return err
	}
	if err := w.Write([]byte(s)); err != nil {
		return err
	}
	total := int64(1 + len(s))
	return w.WritePadding(bio.RoundUp(total, pad) - total)
}
