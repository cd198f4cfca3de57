package warp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestS5QuiltDefault matches spec.md §8 scenario S5.
func TestS5QuiltDefault(t *testing.T) {
	w := GenerateDefault(Quilt, 4000, 2000, 7, 4)
	require.Len(t, w.Grid, 28)
	assert.Equal(t, Point2D{X: 0, Y: 0}, w.Grid[0])
	assert.Equal(t, Point2D{X: 4000, Y: 2000}, w.Grid[len(w.Grid)-1])

	assert.Equal(t, []float64{-0.6, 2000.0, 4000.6}, w.QuiltSliceX)
	assert.Equal(t, []float64{-0.6, 2000.6}, w.QuiltSliceY)
}

// TestS8WarpDefaults checks the Normal-patch default generator produces an
// axis-aligned identity warp: 16 control points on a 4x4 grid and
// rectangular affine/non-affine quads matching the target bounds.
func TestS8WarpDefaults(t *testing.T) {
	w := GenerateDefault(Normal, 800, 600, 0, 0)
	require.Len(t, w.Grid, 16)
	assert.Equal(t, Bounds{Top: 0, Left: 0, Bottom: 600, Right: 800}, w.Bounds)
	assert.Equal(t, Point2D{X: 0, Y: 0}, w.Affine.TopLeft())
	assert.Equal(t, Point2D{X: 800, Y: 0}, w.Affine.TopRight())
	assert.Equal(t, Point2D{X: 0, Y: 600}, w.Affine.BottomLeft())
	assert.Equal(t, Point2D{X: 800, Y: 600}, w.Affine.BottomRight())
	assert.NoError(t, w.Affine.Validate())

	// The default warp should reproduce its own bounds when evaluated at
	// the four patch corners.
	assert.Equal(t, Point2D{X: 0, Y: 0}, w.Point(0, 0))
	assert.InDelta(t, 800.0, w.Point(1, 0).X, 1e-9)
	assert.InDelta(t, 600.0, w.Point(0, 1).Y, 1e-9)
}

// TestS7HomographyIdentity checks the homography solver recovers the
// identity transform when source and destination quads coincide, and
// recovers a known translation otherwise.
func TestS7HomographyIdentity(t *testing.T) {
	quad := Quad{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10},
	}
	h, err := Homography(quad, quad)
	require.NoError(t, err)
	for _, p := range quad {
		got := h.Apply(p)
		assert.InDelta(t, p.X, got.X, 1e-6)
		assert.InDelta(t, p.Y, got.Y, 1e-6)
	}
}

func TestS7HomographyTranslation(t *testing.T) {
	src := Quad{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10},
	}
	dst := Quad{
		{X: 5, Y: 5}, {X: 15, Y: 5}, {X: 5, Y: 15}, {X: 15, Y: 15},
	}
	h, err := Homography(src, dst)
	require.NoError(t, err)
	for i, p := range src {
		got := h.Apply(p)
		assert.InDelta(t, dst[i].X, got.X, 1e-6)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6)
	}
}

func TestWarpDescriptorRoundTrip(t *testing.T) {
	w := GenerateDefault(Quilt, 1200, 800, 7, 7)
	w.Style = StyleCustom
	w.Value = 0.5
	w.Perspective = 0.1
	w.PerspectiveOther = 0.2
	w.Rotate = RotateVertical

	d := ToDescriptor(w)
	got, err := FromDescriptor(d)
	require.NoError(t, err)

	assert.Equal(t, w.Kind, got.Kind)
	assert.Equal(t, w.Style, got.Style)
	assert.InDelta(t, w.Value, got.Value, 1e-9)
	assert.Equal(t, w.Rotate, got.Rotate)
	assert.Equal(t, w.Bounds, got.Bounds)
	assert.Equal(t, w.Grid, got.Grid)
	assert.Equal(t, w.QuiltSliceX, got.QuiltSliceX)
	assert.Equal(t, w.QuiltSliceY, got.QuiltSliceY)
}

func TestNormalWarpDescriptorRoundTrip(t *testing.T) {
	w := GenerateDefault(Normal, 300, 200, 0, 0)
	d := ToDescriptor(w)
	assert.Equal(t, "warp", d.ClassID)
	got, err := FromDescriptor(d)
	require.NoError(t, err)
	assert.Equal(t, w.Grid, got.Grid)
}

func TestMeshProducesRequestedResolution(t *testing.T) {
	w := GenerateDefault(Normal, 100, 50, 0, 0)
	mesh, err := w.Mesh(4, 2)
	require.NoError(t, err)
	require.Len(t, mesh, 3)
	for _, row := range mesh {
		require.Len(t, row, 5)
	}
	assert.InDelta(t, 0.0, mesh[0][0].X, 1e-6)
	assert.InDelta(t, 0.0, mesh[0][0].Y, 1e-6)
	assert.InDelta(t, 100.0, mesh[0][4].X, 1e-6)
	assert.InDelta(t, 50.0, mesh[2][0].Y, 1e-6)
}

func TestAffineQuadValidateRejectsSkew(t *testing.T) {
	q := Quad{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 50},
	}
	assert.Error(t, q.Validate())
}
