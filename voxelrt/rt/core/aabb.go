package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis aligned box with float corners. An empty box has Min > Max.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns the identity for Extend and Union.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

func (b AABB) Extend(p mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min(b.Min.X(), p.X()), min(b.Min.Y(), p.Y()), min(b.Min.Z(), p.Z())},
		Max: mgl32.Vec3{max(b.Max.X(), p.X()), max(b.Max.Y(), p.Y()), max(b.Max.Z(), p.Z())},
	}
}

func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Contains reports whether o lies completely inside b (touching faces count).
func (b AABB) Contains(o AABB) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b AABB) Intersects(o AABB) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	for i := 0; i < 3; i++ {
		if o.Max[i] < b.Min[i] || o.Min[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

func (b AABB) Shift(d mgl32.Vec3) AABB {
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Split returns the eight octants of b, indexed x + 2*y + 4*z.
func (b AABB) Split() [8]AABB {
	var out [8]AABB
	c := b.Center()
	for i := 0; i < 8; i++ {
		x, y, z := i&1, (i>>1)&1, (i>>2)&1
		lo := mgl32.Vec3{pick(x, b.Min.X(), c.X()), pick(y, b.Min.Y(), c.Y()), pick(z, b.Min.Z(), c.Z())}
		hi := mgl32.Vec3{pick(x, c.X(), b.Max.X()), pick(y, c.Y(), b.Max.Y()), pick(z, c.Z(), b.Max.Z())}
		out[i] = AABB{Min: lo, Max: hi}
	}
	return out
}

func pick(bit int, a, b float32) float32 {
	if bit == 0 {
		return a
	}
	return b
}
