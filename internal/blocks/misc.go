package blocks

import (
	"bytes"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/ustring"
)

// ParseUnicodeName decodes an luni tagged block: a unicode string padded
// to 4 bytes.
func ParseUnicodeName(payload []byte) (string, error) {
	r := bio.NewReader(bytes.NewReader(payload))
	return ustring.Read(r, 4)
}

// EncodeUnicodeName serializes an luni payload.
func EncodeUnicodeName(name string) ([]byte, error) {
	seeker := newMemSeeker()
	w := bio.NewWriter(seeker)
	if err := ustring.Write(w, name, 4); err != nil {
		return nil, err
	}
	return seeker.bytes(), nil
}

// ProtectionFlags is the parsed lspf payload. Only bit 7 of the first byte
// is meaningful (spec.md §4.5); the rest is preserved verbatim.
type ProtectionFlags struct {
	Locked bool
	Raw    uint32
}

func ParseProtectionFlags(payload []byte) (ProtectionFlags, error) {
	r := bio.NewReader(bytes.NewReader(payload))
	v, err := r.ReadU32()
	if err != nil {
		return ProtectionFlags{}, err
	}
	return ProtectionFlags{Locked: v&0x80000000 != 0, Raw: v}, nil
}

func EncodeProtectionFlags(pf ProtectionFlags) ([]byte, error) {
	seeker := newMemSeeker()
	w := bio.NewWriter(seeker)
	v := pf.Raw &^ 0x80000000
	if pf.Locked {
		v |= 0x80000000
	}
	if err := w.WriteU32(v); err != nil {
		return nil, err
	}
	return seeker.bytes(), nil
}

// ReferencePoint is the parsed fxrp payload: two doubles, x then y.
type ReferencePoint struct {
	X, Y float64
}

func ParseReferencePoint(payload []byte) (ReferencePoint, error) {
	r := bio.NewReader(bytes.NewReader(payload))
	x, err := r.ReadF64()
	if err != nil {
		return ReferencePoint{}, err
	}
	y, err := r.ReadF64()
	if err != nil {
		return ReferencePoint{}, err
	}
	return ReferencePoint{X: x, Y: y}, nil
}

func EncodeReferencePoint(rp ReferencePoint) ([]byte, error) {
	seeker := newMemSeeker()
	w := bio.NewWriter(seeker)
	if err := w.WriteF64(rp.X); err != nil {
		return nil, err
	}
	if err := w.WriteF64(rp.Y); err != nil {
		return nil, err
	}
	return seeker.bytes(), nil
}
