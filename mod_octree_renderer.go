package voxmirror

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/mirror"
	"github.com/gekko3d/voxmirror/voxelrt/rt/voxel"
)

// OctreeRenderModule mirrors Tree onto the GPU and draws it every frame.
type OctreeRenderModule struct {
	Tree *voxel.Octree
}

// OctreeRenderer holds the mirror of one data octree.
type OctreeRenderer struct {
	Tree      *voxel.Octree
	Engine    *mirror.Engine
	Traversal mirror.Traversal

	// Draws and Err describe the last frame.
	Draws int
	Err   error

	logger Logger
}

func (mod OctreeRenderModule) Install(app *App, cmd *Commands) {
	if mod.Tree == nil {
		panic("OctreeRenderModule needs a Tree")
	}
	ensureSingleRenderer(app, RendererOctree)
	g := requireGPU(app)
	logger := app.Logger()
	cmd.AddResources(&OctreeRenderer{
		Tree:      mod.Tree,
		Engine:    mirror.NewEngine(g.Device, logger),
		Traversal: mirror.Traversal{Device: g.Device},
		logger:    logger,
	})
	cmd.UseSystem(System(octreeSyncSystem).InStage(PreRender))
	cmd.UseSystem(System(octreeDrawSystem).InStage(Render))
}

func octreeSyncSystem(r *OctreeRenderer) {
	r.Err = r.Engine.Sync(r.Tree)
	if r.Err != nil {
		// failed subtrees stay stale and are retried next frame
		r.logger.Errorf("octree sync: %v", r.Err)
	}
	if r.logger.DebugEnabled() {
		st := r.Engine.Stats()
		r.logger.Debugf("octree sync: visited %d pruned %d uploads %d", st.Visited, st.Pruned, st.Uploads)
	}
}

func octreeDrawSystem(r *OctreeRenderer, cam *core.Camera) {
	f := cam.Frustum()
	draws, err := r.Traversal.Render(r.Engine.Root(), &f)
	r.Draws = draws
	if err != nil {
		r.logger.Errorf("octree draw: %v", err)
		if r.Err == nil {
			r.Err = err
		}
	}
}
