package gpu

import (
	"errors"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
)

var (
	// ErrDeviceResource is returned when a buffer cannot be created or written.
	// It points at a broken graphics context and is not retried silently.
	ErrDeviceResource = errors.New("gpu: device resource failure")
	// ErrQueryUnavailable means the backend has no occlusion query support.
	ErrQueryUnavailable = errors.New("gpu: occlusion queries unavailable")
	ErrInvalidHandle    = errors.New("gpu: invalid handle")
)

type BufferKind uint8

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
	InstanceBuffer
)

func (k BufferKind) String() string {
	switch k {
	case VertexBuffer:
		return "vertex"
	case IndexBuffer:
		return "index"
	case InstanceBuffer:
		return "instance"
	}
	return "unknown"
}

// Device is the slice of the graphics backend the renderer core talks to.
// Buffers and queries are owned by whoever created them; nothing else may
// touch a handle except through these calls.
type Device interface {
	CreateBuffer(kind BufferKind) (Handle, error)
	UpdateBuffer(h Handle, data []byte) error
	DestroyBuffer(h Handle)

	// BindAndDraw draws indexCount indices as triangles from the given buffers.
	BindAndDraw(vertices, indices Handle, indexCount uint32) error
	DrawInstanced(vertices, indices, instances Handle, indexCount, instanceCount uint32) error

	CreateOcclusionQuery() (Handle, error)
	DeleteOcclusionQuery(h Handle)
	BeginOcclusionQuery(h Handle) error
	EndOcclusionQuery(h Handle) error
	// PollOcclusionQuery never blocks. ready is false while the result is
	// still in flight.
	PollOcclusionQuery(h Handle) (samples int, ready bool)

	// SetColorWrites toggles writes to the colour attachment. Depth writes
	// are unaffected.
	SetColorWrites(enabled bool)
	// DrawBox draws a unit cube proxy scaled to the box.
	DrawBox(box core.AABB) error
}
