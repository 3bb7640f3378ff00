package gpu

import (
	"fmt"
	"sync"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
)

// Counters tracks the work a device was asked to do.
type Counters struct {
	BuffersCreated   int
	BuffersDestroyed int
	BufferUpdates    int
	BytesUploaded    int
	Draws            int
	InstancedDraws   int
	QueriesCreated   int
	QueriesDeleted   int
	QueriesBegun     int
	ProxyDraws       int
}

type DrawCall struct {
	Vertices   Handle
	Indices    Handle
	Instances  Handle
	IndexCount uint32
	Instanced  uint32
}

type memBuffer struct {
	kind BufferKind
	data []byte
}

type memQuery struct {
	open      bool
	pending   bool
	remaining int
	samples   int
	lastBox   core.AABB
}

// MemoryDevice is a headless Device. Buffers live in host memory, draws are
// recorded, and occlusion results come from SampleFunc after QueryLatency polls.
type MemoryDevice struct {
	mu sync.Mutex

	buffers Arena[*memBuffer]
	queries Arena[*memQuery]

	counters    Counters
	draws       []DrawCall
	colorWrites bool
	openQuery   Handle

	// QueriesSupported=false makes CreateOcclusionQuery fail with ErrQueryUnavailable.
	QueriesSupported bool
	// QueryLatency is how many polls return not-ready before a result lands.
	QueryLatency int
	// SampleFunc decides how many samples the proxy box produced.
	SampleFunc func(box core.AABB) int
	// FailCreate and FailUpdate inject device failures.
	FailCreate error
	FailUpdate error
}

func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{
		QueriesSupported: true,
		colorWrites:      true,
		SampleFunc:       func(core.AABB) int { return 1000 },
	}
}

func (d *MemoryDevice) CreateBuffer(kind BufferKind) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate != nil {
		return InvalidHandle, fmt.Errorf("create %s buffer: %w", kind, d.FailCreate)
	}
	d.counters.BuffersCreated++
	return d.buffers.Insert(&memBuffer{kind: kind}), nil
}

func (d *MemoryDevice) UpdateBuffer(h Handle, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailUpdate != nil {
		return fmt.Errorf("update buffer: %w", d.FailUpdate)
	}
	buf, ok := d.buffers.Get(h)
	if !ok {
		return fmt.Errorf("update buffer %#x: %w", uint64(h), ErrInvalidHandle)
	}
	buf.data = append(buf.data[:0], data...)
	d.counters.BufferUpdates++
	d.counters.BytesUploaded += len(data)
	return nil
}

func (d *MemoryDevice) DestroyBuffer(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers.Remove(h); ok {
		d.counters.BuffersDestroyed++
	}
}

// BufferData returns a copy of the buffer contents.
func (d *MemoryDevice) BufferData(h Handle) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers.Get(h)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), buf.data...), true
}

func (d *MemoryDevice) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffers.Len()
}

func (d *MemoryDevice) BindAndDraw(vertices, indices Handle, indexCount uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers.Get(vertices); !ok {
		return fmt.Errorf("draw: vertex buffer: %w", ErrInvalidHandle)
	}
	if _, ok := d.buffers.Get(indices); !ok {
		return fmt.Errorf("draw: index buffer: %w", ErrInvalidHandle)
	}
	d.counters.Draws++
	d.draws = append(d.draws, DrawCall{Vertices: vertices, Indices: indices, IndexCount: indexCount})
	return nil
}

func (d *MemoryDevice) DrawInstanced(vertices, indices, instances Handle, indexCount, instanceCount uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers.Get(instances); !ok {
		return fmt.Errorf("draw instanced: instance buffer: %w", ErrInvalidHandle)
	}
	d.counters.InstancedDraws++
	d.draws = append(d.draws, DrawCall{
		Vertices:   vertices,
		Indices:    indices,
		Instances:  instances,
		IndexCount: indexCount,
		Instanced:  instanceCount,
	})
	return nil
}

func (d *MemoryDevice) CreateOcclusionQuery() (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.QueriesSupported {
		return InvalidHandle, ErrQueryUnavailable
	}
	d.counters.QueriesCreated++
	return d.queries.Insert(&memQuery{}), nil
}

func (d *MemoryDevice) DeleteOcclusionQuery(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queries.Remove(h); ok {
		d.counters.QueriesDeleted++
	}
}

func (d *MemoryDevice) BeginOcclusionQuery(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queries.Get(h)
	if !ok {
		return fmt.Errorf("begin query: %w", ErrInvalidHandle)
	}
	if d.openQuery.Valid() {
		return fmt.Errorf("begin query: another query is open")
	}
	q.open = true
	q.lastBox = core.EmptyAABB()
	d.openQuery = h
	d.counters.QueriesBegun++
	return nil
}

func (d *MemoryDevice) EndOcclusionQuery(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queries.Get(h)
	if !ok || !q.open {
		return fmt.Errorf("end query: %w", ErrInvalidHandle)
	}
	q.open = false
	q.pending = true
	q.remaining = d.QueryLatency
	q.samples = 0
	if d.SampleFunc != nil && !q.lastBox.IsEmpty() {
		q.samples = d.SampleFunc(q.lastBox)
	}
	d.openQuery = InvalidHandle
	return nil
}

func (d *MemoryDevice) PollOcclusionQuery(h Handle) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queries.Get(h)
	if !ok || !q.pending {
		return -1, false
	}
	if q.remaining > 0 {
		q.remaining--
		return -1, false
	}
	q.pending = false
	return q.samples, true
}

// QueryInFlight reports whether a query was ended but not yet read back.
func (d *MemoryDevice) QueryInFlight(h Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queries.Get(h)
	return ok && q.pending
}

func (d *MemoryDevice) SetColorWrites(enabled bool) {
	d.mu.Lock()
	d.colorWrites = enabled
	d.mu.Unlock()
}

func (d *MemoryDevice) ColorWrites() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.colorWrites
}

func (d *MemoryDevice) DrawBox(box core.AABB) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counters.ProxyDraws++
	if d.openQuery.Valid() {
		if q, ok := d.queries.Get(d.openQuery); ok {
			q.lastBox = q.lastBox.Union(box)
		}
	}
	return nil
}

func (d *MemoryDevice) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters
}

// Draws returns the draw calls recorded since the last ResetFrame.
func (d *MemoryDevice) Draws() []DrawCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DrawCall(nil), d.draws...)
}

// ResetFrame forgets recorded draw calls. Counters keep accumulating.
func (d *MemoryDevice) ResetFrame() {
	d.mu.Lock()
	d.draws = d.draws[:0]
	d.mu.Unlock()
}
