package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a Y-up perspective camera. It is passed explicitly into every
// traversal; nothing in the renderer keeps a current camera.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	FovY     float32 // radians
	Aspect   float32
	Near     float32
	Far      float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 64, 0},
		FovY:     mgl32.DegToRad(60),
		Aspect:   16.0 / 9.0,
		Near:     0.1,
		Far:      500,
	}
}

func (c *Camera) Forward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *Camera) View() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

func (c *Camera) Frustum() Frustum {
	return ExtractFrustum(c.ViewProjection())
}

// ChunkCoord snaps the camera position to the origin of the chunk cell that
// contains it.
func (c *Camera) ChunkCoord(meshSize [3]int) [3]int {
	var out [3]int
	for i := 0; i < 3; i++ {
		s := meshSize[i]
		if s <= 0 {
			s = 1
		}
		out[i] = int(math.Floor(float64(c.Position[i])/float64(s))) * s
	}
	return out
}
