package extract

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// ScheduleAround walks the chunk grid in the square of far plane radius around
// the camera, from y = 0 to maxHeight, and schedules every cell that touches
// the view frustum. It returns how many cells were newly scheduled.
func ScheduleAround(camera *core.Camera, meshSize [3]int, maxHeight int, s Scheduler) int {
	f := camera.Frustum()
	far := int(camera.Far)
	origin := camera.ChunkCoord(meshSize)

	lo := [3]int{origin[0] - far, 0, origin[2] - far}
	hi := [3]int{origin[0] + far, maxHeight, origin[2] + far}
	for i := range lo {
		lo[i] = floorDiv(lo[i], meshSize[i]) * meshSize[i]
	}

	scheduled := 0
	for x := lo[0]; x < hi[0]; x += meshSize[0] {
		for y := lo[1]; y < hi[1]; y += meshSize[1] {
			for z := lo[2]; z < hi[2]; z += meshSize[2] {
				cell := core.NewAABB(
					mgl32.Vec3{float32(x), float32(y), float32(z)},
					mgl32.Vec3{float32(x + meshSize[0]), float32(y + meshSize[1]), float32(z + meshSize[2])},
				)
				if !f.Intersects(cell) {
					continue
				}
				if s.Schedule([3]int{x, y, z}) {
					scheduled++
				}
			}
		}
	}
	return scheduled
}

func floorDiv(v, s int) int {
	if v < 0 {
		v -= s - 1
	}
	return v / s
}
