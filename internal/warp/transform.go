package warp

// Matrix3x3 is a row-major 3x3 transform matrix, as used by
// Warp.Transform.
type Matrix3x3 [9]float64

// Identity3x3 is the identity transform.
func Identity3x3() Matrix3x3 {
	return Matrix3x3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Apply applies m to p in homogeneous coordinates.
func (m Matrix3x3) Apply(p Point2D) Point2D {
	x := m[0]*p.X + m[1]*p.Y + m[2]
	y := m[3]*p.X + m[4]*p.Y + m[5]
	w := m[6]*p.X + m[7]*p.Y + m[8]
	if w == 0 {
		return Point2D{}
	}
	return Point2D{X: x / w, Y: y / w}
}

// Transform applies m to both the affine and non-affine quads and to the
// bounds rectangle's corners, composing an additional placement transform
// on top of the existing warp.
func (w *Warp) Transform(m Matrix3x3) {
	for i := range w.Affine {
		w.Affine[i] = m.Apply(w.Affine[i])
	}
	for i := range w.NonAffine {
		w.NonAffine[i] = m.Apply(w.NonAffine[i])
	}
	tl := m.Apply(Point2D{X: w.Bounds.Left, Y: w.Bounds.Top})
	br := m.Apply(Point2D{X: w.Bounds.Right, Y: w.Bounds.Bottom})
	w.Bounds = Bounds{Top: tl.Y, Left: tl.X, Bottom: br.Y, Right: br.X}
}
