// Package ustring implements the editor's length-prefixed UTF-16BE string
// encoding: a 4-byte code-unit count followed by that many big-endian
// UTF-16 code units, aligned to a configurable padding.
package ustring

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/errkind"
)

// Read decodes a unicode string: u32 code-unit count, then that many
// UTF-16BE code units, then padding so the whole section (length word
// included) is a multiple of pad.
func Read(r *bio.Reader, pad int64) (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", errors.Wrap(err, "ustring: reading length")
	}
	units := make([]uint16, n)
	for i := range units {
		u, err := r.ReadU16()
		if err != nil {
			return "", errors.Wrap(err, "ustring: reading code unit")
		}
		units[i] = u
	}
	total := int64(4 + 2*int(n))
	if err := r.ReadPadding(bio.RoundUp(total, pad) - total); err != nil {
		return "", errors.Wrap(err, "ustring: reading padding")
	}

	runes := utf16.Decode(units)
	if !utf8.ValidString(string(runes)) {
		return "", errors.Wrap(errkind.ErrInvalidEncoding, "ustring: invalid utf-16")
	}
	return string(runes), nil
}

// Write encodes s as a unicode string padded to pad bytes. The 4-byte pad
// variant used by layer-name blocks (luni) may end up appending two extra
// null bytes (one null code unit) as part of that padding; this is never
// treated as part of the payload.
func Write(w *bio.Writer, s string, pad int64) error {
	if !utf8.ValidString(s) {
		return errors.Wrap(errkind.ErrInvalidEncoding, "ustring: invalid utf-8")
	}
	units := utf16.Encode([]rune(s))
	if err := w.WriteU32(uint32(len(units))); err != nil {
		return errors.Wrap(err, "ustring: writing length")
	}
	for _, u := range units {
		if err := w.WriteU16(u); err != nil {
			return errors.Wrap(err, "ustring: writing code unit")
		}
	}
	total := int64(4 + 2*len(units))
	return w.WritePadding(bio.RoundUp(total, pad) - total)
}

// EncodedSize returns the on-disk byte count Write(s, pad) would produce,
// useful for pre-computing scoped-length contributions.
func EncodedSize(s string, pad int64) int64 {
	units := utf16.Encode([]rune(s))
	total := int64(4 + 2*len(units))
	return bio.RoundUp(total, pad)
}
