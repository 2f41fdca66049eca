package scene

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// affine is a 3x3 linear map followed by a translation, enough for glTF node
// transforms
type affine struct {
	// cols are the images of the X, Y and Z unit vectors
	cols [3]r3.Vec
	t    r3.Vec
}

func identity() affine {
	return affine{cols: [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}}
}

// apply transforms a point
func (a affine) apply(v r3.Vec) r3.Vec {
	return r3.Add(a.linear(v), a.t)
}

func (a affine) linear(v r3.Vec) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(v.X, a.cols[0]), r3.Scale(v.Y, a.cols[1])),
		r3.Scale(v.Z, a.cols[2]))
}

// then returns the transform applying a and then b
func (a affine) then(b affine) affine {
	return affine{
		cols: [3]r3.Vec{b.linear(a.cols[0]), b.linear(a.cols[1]), b.linear(a.cols[2])},
		t:    b.apply(a.t),
	}
}

// rotate applies the unit quaternion q to v
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// trs builds a transform from glTF translation, rotation (x, y, z, w) and
// scale
func trs(t [3]float64, r [4]float64, s [3]float64) affine {

	q := quat.Number{Real: r[3], Imag: r[0], Jmag: r[1], Kmag: r[2]}

	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	} else {
		q = quat.Number{Real: 1}
	}

	return affine{
		cols: [3]r3.Vec{
			rotate(q, r3.Vec{X: s[0]}),
			rotate(q, r3.Vec{Y: s[1]}),
			rotate(q, r3.Vec{Z: s[2]}),
		},
		t: r3.Vec{X: t[0], Y: t[1], Z: t[2]},
	}
}

// fromMatrix converts a column major glTF 4x4 matrix
func fromMatrix(m [16]float64) affine {
	return affine{
		cols: [3]r3.Vec{
			{X: m[0], Y: m[1], Z: m[2]},
			{X: m[4], Y: m[5], Z: m[6]},
			{X: m[8], Y: m[9], Z: m[10]},
		},
		t: r3.Vec{X: m[12], Y: m[13], Z: m[14]},
	}
}
