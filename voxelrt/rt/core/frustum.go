package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type FrustumResult int

const (
	Outside FrustumResult = iota
	Intersect
	Inside
)

// Frustum holds six inward facing planes (Left, Right, Bottom, Top, Near, Far)
// in Ax + By + Cz + D = 0 form and the box around its eight corners.
type Frustum struct {
	Planes [6]mgl32.Vec4
	bounds AABB
}

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	var f Frustum
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	f.Planes[0] = r3.Add(r0) // left
	f.Planes[1] = r3.Sub(r0) // right
	f.Planes[2] = r3.Add(r1) // bottom
	f.Planes[3] = r3.Sub(r1) // top
	f.Planes[4] = r3.Add(r2) // near (OpenGL-style -1..1)
	f.Planes[5] = r3.Sub(r2) // far

	for i := 0; i < 6; i++ {
		p := f.Planes[i]
		length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if length > 0 {
			f.Planes[i] = p.Mul(1.0 / length)
		}
	}

	f.bounds = EmptyAABB()
	inv := vp.Inv()
	for i := 0; i < 8; i++ {
		ndc := mgl32.Vec4{float32(i&1)*2 - 1, float32((i>>1)&1)*2 - 1, float32((i>>2)&1)*2 - 1, 1}
		w := inv.Mul4x1(ndc)
		if w[3] == 0 {
			continue
		}
		f.bounds = f.bounds.Extend(w.Vec3().Mul(1.0 / w[3]))
	}
	return f
}

// Bounds is the box around the frustum corners.
func (f Frustum) Bounds() AABB {
	return f.bounds
}

// Test classifies the box against all six planes.
func (f Frustum) Test(box AABB) FrustumResult {
	if box.IsEmpty() {
		return Outside
	}
	result := Inside
	for i := 0; i < 6; i++ {
		plane := f.Planes[i]
		// p is the corner furthest along the plane normal, n the nearest one
		var p, n mgl32.Vec3
		for a := 0; a < 3; a++ {
			if plane[a] > 0 {
				p[a], n[a] = box.Max[a], box.Min[a]
			} else {
				p[a], n[a] = box.Min[a], box.Max[a]
			}
		}
		if plane.Vec3().Dot(p)+plane[3] < 0 {
			return Outside
		}
		if plane.Vec3().Dot(n)+plane[3] < 0 {
			result = Intersect
		}
	}
	return result
}

func (f Frustum) Intersects(box AABB) bool {
	return f.Test(box) != Outside
}

// AABBInFrustum checks if an AABB is visible within the frustum defined by 6 planes.
// Planes are expected to be in Ax+By+Cz+D=0 form, with the normal pointing INSIDE.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	return Frustum{Planes: planes}.Test(AABB{Min: aabb[0], Max: aabb[1]}) != Outside
}
