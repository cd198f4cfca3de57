// Package blocks implements the tagged-block registry (spec.md §4.5): the
// 4CC-keyed, length-prefixed records that carry everything from a layer's
// section-divider marker to its linked-layer registry. Unknown keys pass
// through as Opaque so a document round-trips even through blocks this
// module doesn't interpret.
package blocks

import (
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/errkind"
)

// wideLengthKeys is the closed set of tagged-block keys that use a 64-bit
// length field under the Wide (psb) file version regardless of the
// section's own padding; every other key always uses a 32-bit length.
var wideLengthKeys = map[string]bool{
	"LMsk": true,
	"Lr16": true,
	"Lr32": true,
	"Layr": true,
	"Mt16": true,
	"Mt32": true,
	"Alph": true,
	"FMsk": true,
	"lnk2": true,
	"lnk3": true,
	"lnkD": true,
	"Filt": true,
}

// Block is one tagged block: a 4CC key and its raw, already-length-bounded
// payload bytes, padded externally by the caller to the host section's
// alignment.
type Block struct {
	Signature string // "8BIM" or "8B64"
	Key       string
	Payload   []byte
}

// LengthWidth returns the width, in bytes, of this key's length field
// under version.
func LengthWidth(key string, version bio.Version) int {
	if version == bio.Wide && wideLengthKeys[key] {
		return 8
	}
	return 4
}

// ReadBlock reads one tagged block's signature, key, length and payload.
func ReadBlock(r *bio.Reader, version bio.Version) (Block, error) {
	sig, err := r.ExpectSignature("8BIM", "8B64")
	if err != nil {
		return Block{}, errors.Wrap(err, "blocks: reading signature")
	}
	keyBytes, err := r.ReadSignature()
	if err != nil {
		return Block{}, err
	}
	key := string(keyBytes[:])

	width := LengthWidth(key, version)
	var length uint64
	if width == 8 {
		length, err = r.ReadU64()
	} else {
		var n uint32
		n, err = r.ReadU32()
		length = uint64(n)
	}
	if err != nil {
		return Block{}, errors.Wrapf(err, "blocks: reading length for key %q", key)
	}

	payload, err := r.ReadBytes(int64(length))
	if err != nil {
		return Block{}, errors.Wrapf(err, "blocks: reading payload for key %q", key)
	}
	return Block{Signature: string(sig[:]), Key: key, Payload: payload}, nil
}

// ReadAll reads tagged blocks until fewer than 8 bytes remain (a signature
// plus a key, the minimum a block needs), matching the registry's
// back-to-back on-disk layout.
func ReadAll(r *bio.Reader, totalLen int64, version bio.Version, pad int64) ([]Block, error) {
	start, err := r.Offset()
	if err != nil {
		return nil, err
	}
	var out []Block
	for {
		pos, err := r.Offset()
		if err != nil {
			return nil, err
		}
		remaining := totalLen - (pos - start)
		if remaining < 8 {
			break
		}
		b, err := ReadBlock(r, version)
		if err != nil {
			return nil, err
		}
		if err := r.ReadPadding(bio.RoundUp(int64(len(b.Payload)), pad) - int64(len(b.Payload))); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// WriteBlock writes one tagged block, its length field, and padding so the
// payload occupies a multiple of pad bytes.
func WriteBlock(w *bio.Writer, b Block, version bio.Version, pad int64) error {
	sig := b.Signature
	if sig == "" {
		sig = "8BIM"
	}
	if err := w.WriteSignature(sig); err != nil {
		return err
	}
	if err := w.WriteSignature(padKey(b.Key)); err != nil {
		return err
	}
	width := LengthWidth(b.Key, version)
	if width == 8 {
		if err := w.WriteU64(uint64(len(b.Payload))); err != nil {
			return err
		}
	} else {
		if len(b.Payload) > 0xFFFFFFFF {
			return errors.Wrapf(errkind.ErrOverflowingLength, "blocks: key %q payload too large for 32-bit length", b.Key)
		}
		if err := w.WriteU32(uint32(len(b.Payload))); err != nil {
			return err
		}
	}
	if err := w.Write(b.Payload); err != nil {
		return err
	}
	return w.WritePadding(bio.RoundUp(int64(len(b.Payload)), pad) - int64(len(b.Payload)))
}

// WriteAll writes every block in order.
func WriteAll(w *bio.Writer, blocks []Block, version bio.Version, pad int64) error {
	for _, b := range blocks {
		if err := WriteBlock(w, b, version, pad); err != nil {
			return err
		}
	}
	return nil
}

func padKey(k string) string {
	for len(k) < 4 {
		k += " "
	}
	if len(k) > 4 {
		k = k[:4]
	}
	return k
}

// Find returns the first block with the given key, if any.
func Find(bs []Block, key string) (Block, bool) {
	for _, b := range bs {
		if b.Key == key {
			return b, true
		}
	}
	return Block{}, false
}

// FindAll returns every block with the given key, preserving order.
func FindAll(bs []Block, key string) []Block {
	var out []Block
	for _, b := range bs {
		if b.Key == key {
			out = append(out, b)
		}
	}
	return out
}
