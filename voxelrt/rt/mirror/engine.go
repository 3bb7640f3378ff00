package mirror

import (
	"errors"
	"fmt"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/gekko3d/voxmirror/voxelrt/rt/voxel"
)

// Stats describes the last Sync pass.
type Stats struct {
	Visited     int
	Pruned      int
	Uploads     int
	Allocations int
	Releases    int
}

// Engine keeps a mirror tree of GPU buffers in step with a voxel.Octree.
// Only the parts of the tree whose timestamps moved since the last pass are
// touched. Not safe for concurrent use; call it from the render thread.
type Engine struct {
	device gpu.Device
	logger core.Logger
	root   *Node
	stats  Stats
}

func NewEngine(device gpu.Device, logger core.Logger) *Engine {
	return &Engine{device: device, logger: core.OrNop(logger)}
}

func (e *Engine) Root() *Node  { return e.root }
func (e *Engine) Stats() Stats { return e.stats }

// Sync brings the mirror tree up to date with tree. A device failure aborts
// the failing subtree only; its synced stamps stay behind so the next pass
// retries it. All failures of the pass are joined into the returned error.
func (e *Engine) Sync(tree *voxel.Octree) error {
	e.stats = Stats{}
	data := tree.Root()
	if data == nil {
		e.Release()
		return nil
	}
	if e.root != nil && e.root.source != data {
		e.destroy(e.root)
		e.root = nil
	}
	if e.root == nil {
		root, err := e.create(data)
		if err != nil {
			return err
		}
		e.root = root
	}
	return e.sync(tree.Time(), data, e.root)
}

func (e *Engine) sync(now core.TimeStamp, data *voxel.Node, m *Node) error {
	e.stats.Visited++
	if m.ChildrenAndSelfSynced >= data.NodeOrSubtreeChanged() {
		e.stats.Pruned++
		return nil
	}

	if data.PropertiesChanged() > m.PropertiesSynced {
		m.RenderThisNode = data.RenderThisNode()
		m.PropertiesSynced = now
	}

	if data.MeshChanged() > m.MeshSynced {
		if err := e.upload(data, m); err != nil {
			return err
		}
		m.MeshSynced = now
	}

	if data.StructureChanged() > m.StructureSynced {
		if err := e.syncStructure(data, m); err != nil {
			return err
		}
		m.StructureSynced = now
	}

	var errs []error
	for i := 0; i < 8; i++ {
		dc := data.ChildAt(i)
		if dc == nil || m.children[i] == nil {
			continue
		}
		if err := e.sync(now, dc, m.children[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	m.ChildrenAndSelfSynced = now
	return nil
}

func (e *Engine) upload(data *voxel.Node, m *Node) error {
	meshes := data.Meshes()
	merged := core.Merge(&meshes.Opaque, &meshes.Water)

	if err := e.device.UpdateBuffer(m.Vertices, merged.VertexBytes()); err != nil {
		return deviceError("upload vertices", data.Region(), err)
	}
	if err := e.device.UpdateBuffer(m.Indices, merged.IndexBytes()); err != nil {
		return deviceError("upload indices", data.Region(), err)
	}
	e.stats.Uploads++
	m.AABB = core.MeshBounds(&meshes.Opaque, &meshes.Water)
	m.IndexCount = uint32(len(merged.Indices))
	return nil
}

func (e *Engine) syncStructure(data *voxel.Node, m *Node) error {
	for i := 0; i < 8; i++ {
		dc := data.ChildAt(i)
		mc := m.children[i]
		if mc != nil && mc.source != dc {
			e.destroy(mc)
			m.children[i] = nil
			mc = nil
		}
		if dc != nil && mc == nil {
			c, err := e.create(dc)
			if err != nil {
				return err
			}
			m.children[i] = c
		}
	}
	return nil
}

// create allocates both buffers up front so the node can draw as soon as its
// first mesh lands.
func (e *Engine) create(data *voxel.Node) (*Node, error) {
	vb, err := e.device.CreateBuffer(gpu.VertexBuffer)
	if err != nil {
		return nil, deviceError("allocate vertex buffer", data.Region(), err)
	}
	ib, err := e.device.CreateBuffer(gpu.IndexBuffer)
	if err != nil {
		e.device.DestroyBuffer(vb)
		return nil, deviceError("allocate index buffer", data.Region(), err)
	}
	e.stats.Allocations++
	return &Node{
		Vertices: vb,
		Indices:  ib,
		AABB:     core.EmptyAABB(),
		source:   data,
	}, nil
}

func (e *Engine) destroy(m *Node) {
	for i, c := range m.children {
		if c != nil {
			e.destroy(c)
			m.children[i] = nil
		}
	}
	e.device.DestroyBuffer(m.Vertices)
	e.device.DestroyBuffer(m.Indices)
	m.Vertices, m.Indices = gpu.InvalidHandle, gpu.InvalidHandle
	m.IndexCount = 0
	e.stats.Releases++
}

// Release frees the whole mirror tree.
func (e *Engine) Release() {
	if e.root == nil {
		return
	}
	e.destroy(e.root)
	e.root = nil
	e.logger.Debugf("mirror: released tree (%d nodes)", e.stats.Releases)
}

func deviceError(op string, region core.Region, err error) error {
	if errors.Is(err, gpu.ErrDeviceResource) {
		return fmt.Errorf("mirror %s %s: %w", op, region, err)
	}
	return fmt.Errorf("mirror %s %s: %w: %w", op, region, gpu.ErrDeviceResource, err)
}
