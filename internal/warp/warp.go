// Package warp implements the smart-object warp model (spec.md §4.9): a
// Bézier control grid describing a single "Normal" patch or a "Quilt" of
// patches, the affine/non-affine transform quads layered on top of it, and
// the homography-driven resampling mesh used to rasterize a warped
// smart-object into its placed layer.
package warp

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Point2D is a double-precision 2D point, matching the descriptor
// UnitFloats pairs the on-disk format stores control points as.
type Point2D struct {
	X, Y float64
}

// Style mirrors the on-disk warp_style enum.
type Style string

const (
	StyleNone   Style = "warpNone"
	StyleCustom Style = "warpCustom"
)

// RotateAxis mirrors the on-disk warp_rotate enum.
type RotateAxis string

const (
	RotateHorizontal RotateAxis = "Hrzn"
	RotateVertical   RotateAxis = "Vrtc"
)

// Bounds is the warp's bounding rectangle in the same double-precision
// sense as the rest of the descriptor tree.
type Bounds struct {
	Top, Left, Bottom, Right float64
}

// Quad is the 4-corner transform shape used for both the affine and
// non-affine transforms, kept in memory as top-left, top-right,
// bottom-left, bottom-right. On disk the order is top-left, top-right,
// bottom-right, bottom-left; Read/Write swap accordingly.
type Quad [4]Point2D

func (q Quad) TopLeft() Point2D     { return q[0] }
func (q Quad) TopRight() Point2D    { return q[1] }
func (q Quad) BottomLeft() Point2D  { return q[2] }
func (q Quad) BottomRight() Point2D { return q[3] }

// Validate checks that opposing edges of an affine quad have matching
// slopes within the tolerance spec.md §4.9 specifies.
func (q Quad) Validate() error {
	const tol = 1e-3
	slope := func(a, b Point2D) float64 {
		dx := b.X - a.X
		if dx == 0 {
			return 1e18
		}
		return (b.Y - a.Y) / dx
	}
	topSlope := slope(q.TopLeft(), q.TopRight())
	bottomSlope := slope(q.BottomLeft(), q.BottomRight())
	if diff := topSlope - bottomSlope; diff > tol || diff < -tol {
		return errors.Errorf("warp: affine quad top/bottom slope mismatch %.6f vs %.6f", topSlope, bottomSlope)
	}
	leftSlope := slope(q.TopLeft(), q.BottomLeft())
	rightSlope := slope(q.TopRight(), q.BottomRight())
	if diff := leftSlope - rightSlope; diff > tol || diff < -tol {
		return errors.Errorf("warp: affine quad left/right slope mismatch %.6f vs %.6f", leftSlope, rightSlope)
	}
	return nil
}

// Kind selects between the single-patch and quilted control grid shapes.
type Kind uint8

const (
	Normal Kind = iota
	Quilt
)

// Warp is the full smart-object warp record: a control grid plus the
// affine/non-affine transform quads and the miscellaneous round-tripped
// scalar fields spec.md §4.9 lists.
type Warp struct {
	Kind Kind

	// Grid is u columns by v rows of control points, row-major. Normal
	// warps are always a fixed 4x4 grid; Quilt grids are u=4+3k by
	// v=4+3k' for k,k' >= 0.
	Grid []Point2D
	U, V int

	// QuiltSliceX/QuiltSliceY mark patch boundaries along each axis,
	// length patches+1, only populated for Kind == Quilt.
	QuiltSliceX []float64
	QuiltSliceY []float64

	Style               Style
	Value               float64
	Perspective         float64
	PerspectiveOther    float64
	Rotate              RotateAxis
	UOrder              int32
	VOrder              int32
	Bounds              Bounds
	Affine              Quad
	NonAffine           Quad
}

func (w *Warp) at(u, v int) Point2D {
	return w.Grid[v*w.U+u]
}

// Point evaluates the warp's Bézier surface at parametric coordinates
// u, v in [0,1], selecting the right quilt patch first when Kind == Quilt.
func (w *Warp) Point(u, v float64) Point2D {
	if w.Kind == Normal {
		return evalBezierPatch(w.Grid, 4, 4, u, v)
	}
	return w.quiltPoint(u, v)
}

func (w *Warp) quiltPoint(u, v float64) Point2D {
	patchesU := (w.U - 1) / 3
	patchesV := (w.V - 1) / 3
	pu := clampInt(int(u*float64(patchesU)), 0, patchesU-1)
	pv := clampInt(int(v*float64(patchesV)), 0, patchesV-1)

	localU := u*float64(patchesU) - float64(pu)
	localV := v*float64(patchesV) - float64(pv)

	patch := make([]Point2D, 16)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			patch[row*4+col] = w.at(pu*3+col, pv*3+row)
		}
	}
	return evalBezierPatch(patch, 4, 4, localU, localV)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// evalBezierPatch evaluates a cubic-Bézier surface defined by a uxv
// (u columns, v rows) control net at parametric coordinates (u,v) in
// [0,1], using De Casteljau's algorithm along each axis.
func evalBezierPatch(grid []Point2D, u, v int, paramU, paramV float64) Point2D {
	// Reduce along u for each row, producing v control points, then
	// reduce those along v.
	colPoints := make([]Point2D, v)
	for row := 0; row < v; row++ {
		rowPts := append([]Point2D(nil), grid[row*u:(row+1)*u]...)
		colPoints[row] = deCasteljau(rowPts, paramU)
	}
	return deCasteljau(colPoints, paramV)
}

func deCasteljau(pts []Point2D, t float64) Point2D {
	work := append([]Point2D(nil), pts...)
	for len(work) > 1 {
		next := make([]Point2D, len(work)-1)
		for i := range next {
			next[i] = Point2D{
				X: work[i].X + (work[i+1].X-work[i].X)*t,
				Y: work[i].Y + (work[i+1].Y-work[i].Y)*t,
			}
		}
		work = next
	}
	return work[0]
}

// Mesh rasterizes the warp into a (uRes+1) x (vRes+1) grid of points,
// composed through the affine and non-affine homographies in the order
// spec.md §4.9 describes: source-bbox -> affine, then affine -> non-affine.
func (w *Warp) Mesh(uRes, vRes int) ([][]Point2D, error) {
	if uRes < 1 || vRes < 1 {
		return nil, errors.Errorf("warp: mesh resolution must be >= 1, got %dx%d", uRes, vRes)
	}
	srcQuad := Quad{
		{X: w.Bounds.Left, Y: w.Bounds.Top},
		{X: w.Bounds.Right, Y: w.Bounds.Top},
		{X: w.Bounds.Left, Y: w.Bounds.Bottom},
		{X: w.Bounds.Right, Y: w.Bounds.Bottom},
	}
	hAffine, err := Homography(srcQuad, w.Affine)
	if err != nil {
		return nil, errors.Wrap(err, "warp: computing source->affine homography")
	}
	hNonAffine, err := Homography(w.Affine, w.NonAffine)
	if err != nil {
		return nil, errors.Wrap(err, "warp: computing affine->non-affine homography")
	}

	mesh := make([][]Point2D, vRes+1)
	for j := 0; j <= vRes; j++ {
		row := make([]Point2D, uRes+1)
		v := float64(j) / float64(vRes)
		for i := 0; i <= uRes; i++ {
			u := float64(i) / float64(uRes)
			p := w.Point(u, v)
			p = hAffine.Apply(p)
			p = hNonAffine.Apply(p)
			row[i] = p
		}
		mesh[j] = row
	}
	return mesh, nil
}

// Homography is a 3x3 projective transform, row-major.
type Homography [9]float64

// Apply transforms p by the homography, dividing through by the
// homogeneous w component.
func (h Homography) Apply(p Point2D) Point2D {
	x := h[0]*p.X + h[1]*p.Y + h[2]
	y := h[3]*p.X + h[4]*p.Y + h[5]
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point2D{}
	}
	return Point2D{X: x / w, Y: y / w}
}

// Homography solves for the 3x3 projective transform mapping src's four
// corners onto dst's four corners (spec.md §4.9): build the 8x9 linear
// system from the four point correspondences, take the eigenvector of
// AᵀA for the smallest eigenvalue, normalize so the (2,2) entry is 1.
func Homography(src, dst Quad) (Homography, error) {
	a := mat.NewDense(8, 9, nil)
	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{-sx, -sy, -1, 0, 0, 0, dx * sx, dx * sy, dx})
		a.SetRow(2*i+1, []float64{0, 0, 0, -sx, -sy, -1, dy * sx, dy * sy, dy})
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	sym := mat.NewSymDense(9, nil)
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			sym.SetSym(i, j, ata.At(i, j))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return Homography{}, errors.New("warp: eigendecomposition failed to converge")
	}
	values := eig.Values(nil)
	minIdx := 0
	for i, v := range values {
		if v < values[minIdx] {
			minIdx = i
		}
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	var h Homography
	for i := 0; i < 9; i++ {
		h[i] = vectors.At(i, minIdx)
	}
	if h[8] == 0 {
		return Homography{}, errors.New("warp: degenerate homography, h33 is zero")
	}
	for i := range h {
		h[i] /= h[8]
	}
	return h, nil
}

// GenerateDefault builds the identity warp spec.md §4.9's default generator
// describes: control points on an evenly spaced grid over [0,width]x
// [0,height], axis-aligned affine/non-affine quads, and (for quilts) the
// slice arrays at even increments with the -0.6/dim+0.6 end padding.
func GenerateDefault(kind Kind, width, height float64, uDims, vDims int) *Warp {
	w := &Warp{
		Kind:   kind,
		Style:  StyleNone,
		Rotate: RotateHorizontal,
		UOrder: 4,
		VOrder: 4,
		Bounds: Bounds{Top: 0, Left: 0, Bottom: height, Right: width},
	}

	u, v := 4, 4
	if kind == Quilt {
		u, v = uDims, vDims
	}
	w.U, w.V = u, v
	w.Grid = make([]Point2D, u*v)
	for row := 0; row < v; row++ {
		for col := 0; col < u; col++ {
			w.Grid[row*u+col] = Point2D{
				X: width * float64(col) / float64(u-1),
				Y: height * float64(row) / float64(v-1),
			}
		}
	}

	quad := Quad{
		{X: 0, Y: 0},
		{X: width, Y: 0},
		{X: 0, Y: height},
		{X: width, Y: height},
	}
	w.Affine = quad
	w.NonAffine = quad

	if kind == Quilt {
		w.QuiltSliceX = sliceArray(width, (u-1)/3)
		w.QuiltSliceY = sliceArray(height, (v-1)/3)
	}
	return w
}

// sliceArray builds the patches+1 monotone slice-position array marking
// patch boundaries: evenly spaced dim*i/patches for i in [0,patches], with
// the first entry replaced by -0.6 and the last by dim+0.6, per spec.md
// §4.9.
func sliceArray(dim float64, patches int) []float64 {
	out := make([]float64, patches+1)
	for i := 0; i <= patches; i++ {
		out[i] = dim * float64(i) / float64(patches)
	}
	out[0] = -0.6
	out[len(out)-1] = dim + 0.6
	return out
}
