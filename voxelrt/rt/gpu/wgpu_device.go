package gpu

import (
	"fmt"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
)

// BufferHeadroom is added on every (re)allocation so small growth does not
// force a new buffer each upload.
const BufferHeadroom = 4 * 1024

type wgpuBuffer struct {
	kind BufferKind
	buf  *wgpu.Buffer
}

// WGPUDevice backs Device with a WebGPU device. Buffers are allocated lazily on
// first upload and grown on demand. Draws are recorded into the render pass
// handed to BeginFrame; the pipeline and bind groups are the caller's business.
//
// WebGPU occlusion query sets resolve through a buffer readback that maps
// asynchronously, which this backend does not wire yet, so query creation
// reports ErrQueryUnavailable and the culler falls back to frustum only.
type WGPUDevice struct {
	Device *wgpu.Device

	buffers Arena[*wgpuBuffer]
	pass    *wgpu.RenderPassEncoder
}

func NewWGPUDevice(device *wgpu.Device) *WGPUDevice {
	return &WGPUDevice{Device: device}
}

// BeginFrame points subsequent draws at pass. Pass nil to stop recording.
func (d *WGPUDevice) BeginFrame(pass *wgpu.RenderPassEncoder) {
	d.pass = pass
}

func (d *WGPUDevice) EndFrame() {
	d.pass = nil
}

func usageFor(kind BufferKind) wgpu.BufferUsage {
	switch kind {
	case IndexBuffer:
		return wgpu.BufferUsageIndex
	default:
		return wgpu.BufferUsageVertex
	}
}

func (d *WGPUDevice) CreateBuffer(kind BufferKind) (Handle, error) {
	if d.Device == nil {
		return InvalidHandle, fmt.Errorf("create %s buffer: no device: %w", kind, ErrDeviceResource)
	}
	return d.buffers.Insert(&wgpuBuffer{kind: kind}), nil
}

func (d *WGPUDevice) UpdateBuffer(h Handle, data []byte) error {
	b, ok := d.buffers.Get(h)
	if !ok {
		return fmt.Errorf("update buffer %#x: %w", uint64(h), ErrInvalidHandle)
	}
	if _, err := d.ensureBuffer(b.kind.String(), &b.buf, data, usageFor(b.kind), BufferHeadroom); err != nil {
		return err
	}
	return nil
}

func (d *WGPUDevice) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
			*buf = nil
		}

		newBuf, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            name,
			Size:             neededSize,
			Usage:            usage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return false, fmt.Errorf("allocate %s buffer (%d bytes): %v: %w", name, neededSize, err, ErrDeviceResource)
		}
		*buf = newBuf
		return true, d.write(name, newBuf, data)
	}
	return false, d.write(name, current, data)
}

func (d *WGPUDevice) write(name string, buf *wgpu.Buffer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := d.Device.GetQueue().WriteBuffer(buf, 0, data); err != nil {
		return fmt.Errorf("write %s buffer: %v: %w", name, err, ErrDeviceResource)
	}
	return nil
}

func (d *WGPUDevice) DestroyBuffer(h Handle) {
	b, ok := d.buffers.Remove(h)
	if !ok {
		return
	}
	if b.buf != nil {
		b.buf.Release()
	}
}

func (d *WGPUDevice) bound(vertices, indices Handle) (*wgpu.Buffer, *wgpu.Buffer, error) {
	vb, ok := d.buffers.Get(vertices)
	if !ok {
		return nil, nil, fmt.Errorf("draw: vertex buffer: %w", ErrInvalidHandle)
	}
	ib, ok := d.buffers.Get(indices)
	if !ok {
		return nil, nil, fmt.Errorf("draw: index buffer: %w", ErrInvalidHandle)
	}
	return vb.buf, ib.buf, nil
}

func (d *WGPUDevice) BindAndDraw(vertices, indices Handle, indexCount uint32) error {
	vb, ib, err := d.bound(vertices, indices)
	if err != nil {
		return err
	}
	if d.pass == nil || vb == nil || ib == nil || indexCount == 0 {
		return nil
	}
	d.pass.SetVertexBuffer(0, vb, 0, vb.GetSize())
	d.pass.SetIndexBuffer(ib, wgpu.IndexFormatUint32, 0, ib.GetSize())
	d.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
	return nil
}

func (d *WGPUDevice) DrawInstanced(vertices, indices, instances Handle, indexCount, instanceCount uint32) error {
	vb, ib, err := d.bound(vertices, indices)
	if err != nil {
		return err
	}
	inst, ok := d.buffers.Get(instances)
	if !ok {
		return fmt.Errorf("draw instanced: instance buffer: %w", ErrInvalidHandle)
	}
	if d.pass == nil || vb == nil || ib == nil || inst.buf == nil || instanceCount == 0 {
		return nil
	}
	d.pass.SetVertexBuffer(0, vb, 0, vb.GetSize())
	d.pass.SetVertexBuffer(1, inst.buf, 0, inst.buf.GetSize())
	d.pass.SetIndexBuffer(ib, wgpu.IndexFormatUint32, 0, ib.GetSize())
	d.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
	return nil
}

func (d *WGPUDevice) CreateOcclusionQuery() (Handle, error) {
	return InvalidHandle, ErrQueryUnavailable
}

func (d *WGPUDevice) DeleteOcclusionQuery(Handle) {}

func (d *WGPUDevice) BeginOcclusionQuery(Handle) error { return ErrQueryUnavailable }

func (d *WGPUDevice) EndOcclusionQuery(Handle) error { return ErrQueryUnavailable }

func (d *WGPUDevice) PollOcclusionQuery(Handle) (int, bool) { return -1, false }

// SetColorWrites is fixed per pipeline in WebGPU; nothing to toggle here.
func (d *WGPUDevice) SetColorWrites(bool) {}

func (d *WGPUDevice) DrawBox(core.AABB) error { return ErrQueryUnavailable }

// Release frees every buffer still alive.
func (d *WGPUDevice) Release() {
	var live []Handle
	d.buffers.Each(func(h Handle, _ *wgpuBuffer) bool {
		live = append(live, h)
		return true
	})
	for _, h := range live {
		d.DestroyBuffer(h)
	}
}
