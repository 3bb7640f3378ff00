package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Region is an integer voxel box. Both corners are inclusive.
type Region struct {
	Lower [3]int
	Upper [3]int
}

func NewRegion(lx, ly, lz, ux, uy, uz int) Region {
	return Region{Lower: [3]int{lx, ly, lz}, Upper: [3]int{ux, uy, uz}}
}

func (r Region) Valid() bool {
	return r.Lower[0] <= r.Upper[0] && r.Lower[1] <= r.Upper[1] && r.Lower[2] <= r.Upper[2]
}

func (r Region) Width() int  { return r.Upper[0] - r.Lower[0] + 1 }
func (r Region) Height() int { return r.Upper[1] - r.Lower[1] + 1 }
func (r Region) Depth() int  { return r.Upper[2] - r.Lower[2] + 1 }

func (r Region) ContainsPoint(x, y, z int) bool {
	return x >= r.Lower[0] && x <= r.Upper[0] &&
		y >= r.Lower[1] && y <= r.Upper[1] &&
		z >= r.Lower[2] && z <= r.Upper[2]
}

func (r Region) Intersects(o Region) bool {
	for i := 0; i < 3; i++ {
		if o.Upper[i] < r.Lower[i] || o.Lower[i] > r.Upper[i] {
			return false
		}
	}
	return true
}

// Grow moves both corners outwards by the given amounts.
func (r Region) Grow(x, y, z int) Region {
	return Region{
		Lower: [3]int{r.Lower[0] - x, r.Lower[1] - y, r.Lower[2] - z},
		Upper: [3]int{r.Upper[0] + x, r.Upper[1] + y, r.Upper[2] + z},
	}
}

func (r Region) Centre() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(r.Lower[0]+r.Upper[0]) * 0.5,
		float32(r.Lower[1]+r.Upper[1]) * 0.5,
		float32(r.Lower[2]+r.Upper[2]) * 0.5,
	}
}

// AABB covers every voxel of the region, so the upper face sits at Upper+1.
func (r Region) AABB() AABB {
	return AABB{
		Min: mgl32.Vec3{float32(r.Lower[0]), float32(r.Lower[1]), float32(r.Lower[2])},
		Max: mgl32.Vec3{float32(r.Upper[0] + 1), float32(r.Upper[1] + 1), float32(r.Upper[2] + 1)},
	}
}

func (r Region) String() string {
	return fmt.Sprintf("%v-%v", r.Lower, r.Upper)
}
