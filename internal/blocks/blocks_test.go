package blocks

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/descriptor"
)

func TestReadWriteRoundTrip(t *testing.T) {
	bs := []Block{
		{Key: "luni", Payload: []byte{0, 0, 0, 3, 0, 'f', 0, 'o', 0, 'o'}},
		{Key: "lspf", Payload: []byte{0x80, 0, 0, 0}},
	}
	seeker := newMemSeeker()
	w := bio.NewWriter(seeker)
	require.NoError(t, WriteAll(w, bs, bio.Narrow, 4))

	r := bio.NewReader(bytes.NewReader(seeker.bytes()))
	got, err := ReadAll(r, int64(len(seeker.bytes())), bio.Narrow, 4)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "luni", got[0].Key)
	assert.Equal(t, bs[0].Payload, got[0].Payload)
	assert.Equal(t, "lspf", got[1].Key)
}

func TestWideLengthKeyUses64Bit(t *testing.T) {
	assert.Equal(t, 8, LengthWidth("Lr16", bio.Wide))
	assert.Equal(t, 4, LengthWidth("Lr16", bio.Narrow))
	assert.Equal(t, 4, LengthWidth("luni", bio.Wide))
}

func TestSectionDividerRoundTrip(t *testing.T) {
	sd := SectionDivider{Type: SectionOpen, BlendMode: "norm", HasExtra: true}
	payload, err := EncodeSectionDivider(sd)
	require.NoError(t, err)
	got, err := ParseSectionDivider(payload)
	require.NoError(t, err)
	assert.Equal(t, sd, got)
}

func TestSectionDividerBare(t *testing.T) {
	sd := SectionDivider{Type: SectionBounded}
	payload, err := EncodeSectionDivider(sd)
	require.NoError(t, err)
	got, err := ParseSectionDivider(payload)
	require.NoError(t, err)
	assert.Equal(t, sd, got)
}

// TestS3ReferencePointRoundTrip matches spec.md §8 scenario S3.
func TestS3ReferencePointRoundTrip(t *testing.T) {
	rp := ReferencePoint{X: 48.0, Y: 16.0}
	payload, err := EncodeReferencePoint(rp)
	require.NoError(t, err)
	got, err := ParseReferencePoint(payload)
	require.NoError(t, err)
	assert.Equal(t, rp, got)
}

func TestProtectionFlagsPreservesOtherBits(t *testing.T) {
	pf := ProtectionFlags{Locked: true, Raw: 0x00000042}
	payload, err := EncodeProtectionFlags(pf)
	require.NoError(t, err)
	got, err := ParseProtectionFlags(payload)
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.Equal(t, uint32(0x80000042), got.Raw)
}

func TestUnicodeNameRoundTrip(t *testing.T) {
	payload, err := EncodeUnicodeName("My Layer")
	require.NoError(t, err)
	got, err := ParseUnicodeName(payload)
	require.NoError(t, err)
	assert.Equal(t, "My Layer", got)
}

func TestPlacedLayerRoundTrip(t *testing.T) {
	pl := PlacedLayer{
		UUID:       "12345678-1234-1234-1234-123456789012",
		Page:       0,
		TotalPages: 1,
		AntiAlias:  1,
		Type:       PlacedRaster,
		Transform:  [8]float64{0, 0, 100, 0, 100, 100, 0, 100},
		WarpDescriptor: descriptor.Descriptor{
			ClassID: "warp",
			Items: []descriptor.Item{
				{Key: "warpValue", Value: descriptor.Double(0)},
			},
		},
	}
	payload, err := EncodePlacedLayer(pl, bio.Narrow)
	require.NoError(t, err)
	got, err := ParsePlacedLayer(payload, bio.Narrow)
	require.NoError(t, err)
	assert.Equal(t, pl.UUID, got.UUID)
	assert.Equal(t, pl.Transform, got.Transform)
	assert.Equal(t, pl.WarpDescriptor, got.WarpDescriptor)
}

func TestPlacedLayerDataRoundTrip(t *testing.T) {
	pld := PlacedLayerData{Descriptor: descriptor.Descriptor{ClassID: "SoLd"}}
	payload, err := EncodePlacedLayerData(pld, bio.Narrow)
	require.NoError(t, err)
	got, err := ParsePlacedLayerData(payload, bio.Narrow)
	require.NoError(t, err)
	assert.Equal(t, pld, got)
}
