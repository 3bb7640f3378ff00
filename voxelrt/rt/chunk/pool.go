package chunk

import (
	"errors"
	"fmt"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/extract"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/gekko3d/voxmirror/voxelrt/rt/spatial"
)

type Config struct {
	Capacity int
	// MeshSize is the chunk extent in voxels; keys are multiples of it.
	MeshSize [3]int
	// MaxDistanceSq is compared against the squared x/z distance between a
	// chunk key and the camera's chunk.
	MaxDistanceSq int
	// DrainBatch bounds how many results one Drain call places.
	DrainBatch int
	// Bounds of the spatial index. Chunks outside are tracked but never drawn.
	Bounds   core.AABB
	MaxDepth int
}

// MaxDistanceSq derives the eviction threshold from the view distance: a
// chunk survives up to viewDistance plus multiplier chunk widths.
func MaxDistanceSq(viewDistance float32, meshSize [3]int, multiplier int) int {
	d := int(viewDistance) + max(meshSize[0], meshSize[2])*multiplier
	return d * d
}

// Pool is a fixed set of GPU resident chunk meshes fed by an extraction
// producer. It is driven from the render thread only.
type Pool struct {
	device   gpu.Device
	producer extract.Producer
	logger   core.Logger
	cfg      Config

	slots []Slot
	index *spatial.Octree[int]

	queriesUnavailable bool

	// OnPlace runs after a result landed in a slot.
	OnPlace func(r *extract.Result)
	// OnEvict runs after a slot was freed by distance.
	OnEvict func(key [3]int)

	stats Stats
}

func NewPool(device gpu.Device, producer extract.Producer, cfg Config, logger core.Logger) *Pool {
	if cfg.DrainBatch <= 0 {
		cfg.DrainBatch = 1
	}
	p := &Pool{
		device:   device,
		producer: producer,
		logger:   core.OrNop(logger),
		cfg:      cfg,
		slots:    make([]Slot, cfg.Capacity),
		index:    spatial.New[int](cfg.Bounds, cfg.MaxDepth),
	}
	for i := range p.slots {
		p.slots[i].Occlusion.Samples = -1
	}
	return p
}

func (p *Pool) Capacity() int  { return len(p.slots) }
func (p *Pool) Config() Config { return p.cfg }

// Slot returns a copy of slot i.
func (p *Pool) Slot(i int) Slot {
	return p.slots[i]
}

func (p *Pool) Handle(i int) SlotHandle {
	return SlotHandle{Index: i, Generation: p.slots[i].Generation}
}

// Resolve returns the slot behind h if it still holds the same chunk.
func (p *Pool) Resolve(h SlotHandle) (*Slot, bool) {
	if h.Index < 0 || h.Index >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.Index]
	if !s.InUse || s.Generation != h.Generation {
		return nil, false
	}
	return s, true
}

// Find returns the index of the in-use slot holding key.
func (p *Pool) Find(key [3]int) (int, bool) {
	for i := range p.slots {
		if p.slots[i].InUse && p.slots[i].Key == key {
			return i, true
		}
	}
	return -1, false
}

// QueriesUnavailable reports whether the device refused to create occlusion
// queries.
func (p *Pool) QueriesUnavailable() bool {
	return p.queriesUnavailable
}

// Drain places up to DrainBatch finished extractions. It never blocks. Only
// device failures are returned; a full pool drops the result with a warning.
func (p *Pool) Drain() (int, error) {
	placed := 0
	var errs []error
	for i := 0; i < p.cfg.DrainBatch; i++ {
		r, ok := p.producer.TryPop()
		if !ok {
			break
		}
		ok, err := p.place(&r)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			placed++
		}
	}
	return placed, errors.Join(errs...)
}

func (p *Pool) target(key [3]int) int {
	free := -1
	for i := range p.slots {
		s := &p.slots[i]
		if s.InUse && s.Key == key {
			return i
		}
		if free < 0 && !s.InUse {
			free = i
		}
	}
	return free
}

func (p *Pool) place(r *extract.Result) (bool, error) {
	idx := p.target(r.Key)
	if idx < 0 {
		p.stats.Dropped++
		p.logger.Warnf("chunk pool: no free slot for chunk %v, dropping extraction (%d slots in use)", r.Key, len(p.slots))
		// let the chunk come back once a slot frees up
		p.producer.AllowReExtraction(r.Key)
		return false, nil
	}
	s := &p.slots[idx]

	if s.Indexed {
		p.index.Remove(idx)
		s.Indexed = false
	}

	if err := p.upload(s, &r.Meshes); err != nil {
		p.free(idx)
		p.producer.AllowReExtraction(r.Key)
		return false, fmt.Errorf("chunk %v: %w", r.Key, err)
	}

	if !s.Occlusion.Query.Valid() && !p.queriesUnavailable {
		q, err := p.device.CreateOcclusionQuery()
		switch {
		case errors.Is(err, gpu.ErrQueryUnavailable):
			p.queriesUnavailable = true
			p.logger.Infof("chunk pool: occlusion queries unavailable, culling by frustum only")
		case err != nil:
			p.logger.Warnf("chunk pool: occlusion query for chunk %v: %v", r.Key, err)
		default:
			s.Occlusion = Occlusion{Query: q, Samples: -1}
		}
	}

	if !s.InUse {
		s.InUse = true
		p.stats.ActiveSlots++
	}
	s.Key = r.Key
	s.Ticket = r.Ticket
	s.AABB = core.MeshBounds(&r.Meshes.Opaque, &r.Meshes.Water)

	if !s.AABB.IsEmpty() {
		if p.index.Insert(idx, s.AABB) {
			s.Indexed = true
		} else {
			p.stats.Rejected++
			p.logger.Warnf("chunk pool: chunk %v box %v..%v is outside the spatial index, it will not be drawn", r.Key, s.AABB.Min, s.AABB.Max)
		}
	}

	p.stats.Placed++
	if p.OnPlace != nil {
		p.OnPlace(r)
	}
	return true, nil
}

func (p *Pool) upload(s *Slot, meshes *core.ChunkMeshes) error {
	if !s.Vertices.Valid() {
		h, err := p.device.CreateBuffer(gpu.VertexBuffer)
		if err != nil {
			return err
		}
		s.Vertices = h
	}
	if !s.Indices.Valid() {
		h, err := p.device.CreateBuffer(gpu.IndexBuffer)
		if err != nil {
			return err
		}
		s.Indices = h
	}
	merged := core.Merge(&meshes.Opaque, &meshes.Water)
	if err := p.device.UpdateBuffer(s.Vertices, merged.VertexBytes()); err != nil {
		return err
	}
	if err := p.device.UpdateBuffer(s.Indices, merged.IndexBytes()); err != nil {
		return err
	}
	s.IndexCount = uint32(len(merged.Indices))
	return nil
}

// free releases everything the slot holds on the device and leaves the struct
// for reuse.
func (p *Pool) free(idx int) {
	s := &p.slots[idx]
	if s.Indexed {
		p.index.Remove(idx)
	}
	if s.Occlusion.Query.Valid() {
		p.device.DeleteOcclusionQuery(s.Occlusion.Query)
	}
	if s.Vertices.Valid() {
		p.device.DestroyBuffer(s.Vertices)
	}
	if s.Indices.Valid() {
		p.device.DestroyBuffer(s.Indices)
	}
	if s.InUse {
		p.stats.ActiveSlots--
	}
	*s = Slot{
		Key:        s.Key,
		Generation: s.Generation + 1,
		AABB:       core.EmptyAABB(),
		Occlusion:  Occlusion{Samples: -1},
	}
}

// Evict frees every slot whose squared x/z distance to the camera's chunk
// exceeds MaxDistanceSq and tells the producer it may extract that chunk
// again.
func (p *Pool) Evict(camera *core.Camera) int {
	cc := camera.ChunkCoord(p.cfg.MeshSize)
	evicted := 0
	for i := range p.slots {
		s := &p.slots[i]
		if !s.InUse {
			continue
		}
		dx := s.Key[0] - cc[0]
		dz := s.Key[2] - cc[2]
		if dx*dx+dz*dz <= p.cfg.MaxDistanceSq {
			continue
		}
		key := s.Key
		p.free(i)
		p.producer.AllowReExtraction(key)
		if p.OnEvict != nil {
			p.OnEvict(key)
		}
		evicted++
	}
	p.stats.Evicted += evicted
	return evicted
}

// Reset frees every slot and empties the spatial index.
func (p *Pool) Reset() {
	for i := range p.slots {
		if p.slots[i].InUse {
			key := p.slots[i].Key
			p.free(i)
			p.producer.AllowReExtraction(key)
			if p.OnEvict != nil {
				p.OnEvict(key)
			}
		}
	}
	p.index.Clear()
	p.stats.ActiveSlots = 0
}

// QueryVisible visits the in-use slots whose box touches the frustum.
func (p *Pool) QueryVisible(f *core.Frustum, visit func(idx int, s *Slot) bool) {
	p.index.QueryFrustum(f, func(idx int) bool {
		return visit(idx, &p.slots[idx])
	})
}

func (p *Pool) Stats() Stats {
	st := p.stats
	st.PoolCapacity = len(p.slots)
	st.OctreeSize = p.index.Count()
	return st
}
