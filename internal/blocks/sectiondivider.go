package blocks

import (
	"bytes"

	"github.com/go-psd/psd/internal/bio"
)

// SectionType is the lsct/lsdv divider kind.
type SectionType uint32

const (
	SectionAny SectionType = iota
	SectionOpen
	SectionClosed
	SectionBounded
)

// SectionDivider is the parsed lsct/lsdv payload.
type SectionDivider struct {
	Type      SectionType
	BlendMode string // 4CC, empty if absent
	HasExtra  bool   // length >= 16, 4 reserved bytes present
}

// ParseSectionDivider decodes an lsct/lsdv tagged block payload.
func ParseSectionDivider(payload []byte) (SectionDivider, error) {
	r := bio.NewReader(bytes.NewReader(payload))
	t, err := r.ReadU32()
	if err != nil {
		return SectionDivider{}, err
	}
	sd := SectionDivider{Type: SectionType(t)}
	if len(payload) >= 12 {
		if _, err := r.ExpectSignature("8BIM"); err != nil {
			return SectionDivider{}, err
		}
		sig, err := r.ReadSignature()
		if err != nil {
			return SectionDivider{}, err
		}
		sd.BlendMode = string(sig[:])
	}
	if len(payload) >= 16 {
		sd.HasExtra = true
	}
	return sd, nil
}

// EncodeSectionDivider serializes sd back to a payload. sd.HasExtra forces
// the 4 trailing reserved bytes even when BlendMode is absent, matching
// the authoring behavior of some tools.
func EncodeSectionDivider(sd SectionDivider) ([]byte, error) {
	seeker := newMemSeeker()
	w := bio.NewWriter(seeker)
	if err := w.WriteU32(uint32(sd.Type)); err != nil {
		return nil, err
	}
	if sd.BlendMode != "" {
		if err := w.WriteSignature("8BIM"); err != nil {
			return nil, err
		}
		if err := w.WriteSignature(padKey(sd.BlendMode)); err != nil {
			return nil, err
		}
	}
	if sd.HasExtra {
		if err := w.WritePadding(4); err != nil {
			return nil, err
		}
	}
	return seeker.bytes(), nil
}
