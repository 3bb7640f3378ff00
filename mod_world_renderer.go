package voxmirror

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/chunk"
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/extract"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/gekko3d/voxmirror/voxelrt/rt/plants"
)

// Cull runs after PreRender so the mirror tree is synced before chunks are
// culled against the same camera.
var Cull = Stage{Name: "Cull"}

// WorldRenderModule draws the chunked world: finished extractions are drained
// into the chunk pool, far chunks are evicted, the rest are culled by frustum
// and, optionally, occlusion queries.
type WorldRenderModule struct {
	Config Config
	Queue  *extract.Queue
	// Schedule walks the chunk grid around the camera every frame and feeds
	// new cells to Queue.
	Schedule bool
	// PlantMesh is drawn once per plant instance. Without one plants are
	// still distributed but not drawn.
	PlantMesh core.Mesh
}

type WorldRenderer struct {
	Pool   *chunk.Pool
	Culler *chunk.Culler
	Plants *plants.Distributor
	Queue  *extract.Queue

	// Last frame.
	Placed     int
	Evicted    int
	Scheduled  int
	Draws      int
	PlantDraws int
	Err        error

	device    gpu.Device
	logger    Logger
	meshSize  [3]int
	maxHeight int
	schedule  bool

	plantVertices   gpu.Handle
	plantIndices    gpu.Handle
	plantIndexCount uint32
}

func (mod WorldRenderModule) Install(app *App, cmd *Commands) {
	if mod.Queue == nil {
		panic("WorldRenderModule needs a Queue")
	}
	ensureSingleRenderer(app, RendererWorld)
	g := requireGPU(app)
	logger := app.Logger()
	cfg := mod.Config

	pool := chunk.NewPool(g.Device, mod.Queue, cfg.ChunkPoolConfig(), logger)
	r := &WorldRenderer{
		Pool:      pool,
		Culler:    chunk.NewCuller(pool, cfg.CullConfig(), logger),
		Plants:    plants.NewDistributor(cfg.Plants.Buckets),
		Queue:     mod.Queue,
		device:    g.Device,
		logger:    logger,
		meshSize:  cfg.Pool.MeshSize,
		maxHeight: cfg.Extract.MaxHeight,
		schedule:  mod.Schedule,
	}
	pool.OnPlace = func(res *extract.Result) {
		r.Plants.SetChunk(res.Key, res.Plants)
	}
	pool.OnEvict = func(key [3]int) {
		r.Plants.RemoveChunk(key)
	}
	if !mod.PlantMesh.IsEmpty() {
		if err := r.uploadPlantMesh(&mod.PlantMesh); err != nil {
			logger.Errorf("plant mesh upload: %v, plants will not be drawn", err)
		}
	}
	logger.Infof("world renderer: %d chunk slots, eviction beyond %d voxels squared",
		pool.Capacity(), pool.Config().MaxDistanceSq)

	if !app.HasStage(Cull) {
		app.UseStage(Cull, AfterStage(PreRender))
	}
	cmd.AddResources(r)
	cmd.UseSystem(System(worldDrainSystem).InStage(PreUpdate))
	cmd.UseSystem(System(worldEvictSystem).InStage(Update))
	cmd.UseSystem(System(worldScheduleSystem).InStage(PostUpdate))
	cmd.UseSystem(System(worldCullSystem).InStage(Cull))
	cmd.UseSystem(System(worldDrawSystem).InStage(Render))
}

func (r *WorldRenderer) uploadPlantMesh(m *core.Mesh) error {
	vb, err := r.device.CreateBuffer(gpu.VertexBuffer)
	if err != nil {
		return err
	}
	ib, err := r.device.CreateBuffer(gpu.IndexBuffer)
	if err != nil {
		r.device.DestroyBuffer(vb)
		return err
	}
	if err := r.device.UpdateBuffer(vb, m.VertexBytes()); err != nil {
		r.device.DestroyBuffer(vb)
		r.device.DestroyBuffer(ib)
		return err
	}
	if err := r.device.UpdateBuffer(ib, m.IndexBytes()); err != nil {
		r.device.DestroyBuffer(vb)
		r.device.DestroyBuffer(ib)
		return err
	}
	r.plantVertices, r.plantIndices = vb, ib
	r.plantIndexCount = uint32(len(m.Indices))
	return nil
}

// Release frees every device resource the renderer holds.
func (r *WorldRenderer) Release() {
	r.Pool.Reset()
	r.Plants.Release(r.device)
	if r.plantVertices.Valid() {
		r.device.DestroyBuffer(r.plantVertices)
		r.device.DestroyBuffer(r.plantIndices)
		r.plantVertices, r.plantIndices = gpu.InvalidHandle, gpu.InvalidHandle
		r.plantIndexCount = 0
	}
}

func worldDrainSystem(r *WorldRenderer) {
	r.Err = nil
	placed, err := r.Pool.Drain()
	r.Placed = placed
	if err != nil {
		r.Err = err
		r.logger.Errorf("chunk drain: %v", err)
	}
}

func worldEvictSystem(r *WorldRenderer, cam *core.Camera) {
	r.Evicted = r.Pool.Evict(cam)
	if r.Evicted > 0 {
		r.logger.Debugf("evicted %d chunks", r.Evicted)
	}
}

func worldScheduleSystem(r *WorldRenderer, cam *core.Camera) {
	r.Scheduled = 0
	if !r.schedule {
		return
	}
	r.Scheduled = extract.ScheduleAround(cam, r.meshSize, r.maxHeight, r.Queue)
}

func worldCullSystem(r *WorldRenderer, cam *core.Camera) {
	if err := r.Culler.Cull(cam); err != nil {
		r.Err = err
		r.logger.Errorf("chunk cull: %v", err)
	}
	if r.Plants.Dirty() {
		r.Plants.Rebuild()
	}
	if err := r.Plants.Upload(r.device); err != nil {
		r.Err = err
		r.logger.Errorf("plant upload: %v", err)
	}
}

func worldDrawSystem(r *WorldRenderer) {
	draws, err := r.Culler.Draw()
	r.Draws = draws
	if err != nil {
		r.Err = err
		r.logger.Errorf("chunk draw: %v", err)
	}
	r.PlantDraws = 0
	if r.plantIndexCount == 0 {
		return
	}
	pd, err := r.Plants.Draw(r.device, r.plantVertices, r.plantIndices, r.plantIndexCount)
	r.PlantDraws = pd
	if err != nil {
		r.Err = err
		r.logger.Errorf("plant draw: %v", err)
	}
}
