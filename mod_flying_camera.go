package voxmirror

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// FlyingCameraModule installs the camera every renderer reads and, when Speed
// or TurnRate are set, flies it along a fixed course each frame.
type FlyingCameraModule struct {
	Camera *core.Camera
	// Speed is in voxels per frame along Move, which is relative to the view
	// (x right, y up, z forward).
	Speed float32
	Move  mgl32.Vec3
	// TurnRate is added to the yaw every frame, in radians.
	TurnRate float32
}

type FlyingCamera struct {
	Speed    float32
	Move     mgl32.Vec3
	TurnRate float32
}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	cam := m.Camera
	if cam == nil {
		cam = core.NewCamera()
	}
	cmd.AddResources(cam, &FlyingCamera{Speed: m.Speed, Move: m.Move, TurnRate: m.TurnRate})
	cmd.UseSystem(System(FlyingCameraControlSystem).InStage(Update))
}

func FlyingCameraControlSystem(fly *FlyingCamera, cam *core.Camera) {
	cam.Yaw += fly.TurnRate

	// Clamp pitch
	limit := mgl32.DegToRad(89)
	if cam.Pitch > limit {
		cam.Pitch = limit
	}
	if cam.Pitch < -limit {
		cam.Pitch = -limit
	}

	if fly.Speed == 0 || fly.Move.Len() == 0 {
		return
	}
	forward := cam.Forward().Normalize()
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up := mgl32.Vec3{0, 1, 0}

	moveDir := mgl32.Vec3{0, 0, 0}
	moveDir = moveDir.Add(right.Mul(fly.Move[0]))
	moveDir = moveDir.Add(up.Mul(fly.Move[1]))
	moveDir = moveDir.Add(forward.Mul(fly.Move[2]))

	if moveDir.Len() > 0 {
		cam.Position = cam.Position.Add(moveDir.Normalize().Mul(fly.Speed))
	}
}
