package main

import (
	"context"

	"github.com/gekko3d/voxmirror"
	"github.com/gekko3d/voxmirror/voxelrt/rt/voxel"
)

// TerrainEditModule fills every leaf of Tree from Terrain and then touches one
// leaf every Every frames. A touched leaf is re-meshed on the following frame,
// so the mirror sees it hidden for one frame and back afterwards.
type TerrainEditModule struct {
	Tree    *voxel.Octree
	Terrain *Terrain
	Every   int
}

type terrainEditor struct {
	tree    *voxel.Octree
	terrain *Terrain
	every   int
	leaves  []*voxel.Node
	next    int
	pending []*voxel.Node
	edits   int
}

func (mod TerrainEditModule) Install(app *voxmirror.App, cmd *voxmirror.Commands) {
	e := &terrainEditor{tree: mod.Tree, terrain: mod.Terrain, every: mod.Every}
	mod.Tree.Visit(func(n *voxel.Node) bool {
		if n.IsLeaf() {
			e.leaves = append(e.leaves, n)
		}
		return true
	})
	for _, leaf := range e.leaves {
		e.remesh(leaf)
	}
	mod.Tree.SelectRenderNodes()
	app.Logger().Infof("terrain: %d leaves meshed", len(e.leaves))

	cmd.AddResources(e)
	cmd.UseSystem(voxmirror.System(terrainEditSystem).InStage(voxmirror.PreUpdate))
}

func (e *terrainEditor) remesh(n *voxel.Node) {
	meshes, _, err := e.terrain.Mesh(context.Background(), n.Region())
	if err != nil {
		return
	}
	e.tree.SetMesh(n, meshes)
}

func terrainEditSystem(e *terrainEditor, tm *voxmirror.Time) {
	if len(e.pending) > 0 {
		for _, n := range e.pending {
			e.remesh(n)
		}
		e.pending = e.pending[:0]
		e.tree.SelectRenderNodes()
	}
	if e.every <= 0 || len(e.leaves) == 0 || tm.Frame%uint64(e.every) != 0 {
		return
	}
	leaf := e.leaves[e.next%len(e.leaves)]
	e.next++
	e.tree.MarkDataModified(leaf.Region())
	// the edit also dirties leaves sharing a face with it
	for _, n := range e.leaves {
		if !n.MeshUpToDate() {
			e.pending = append(e.pending, n)
		}
	}
	e.tree.SelectRenderNodes()
	e.edits++
}
