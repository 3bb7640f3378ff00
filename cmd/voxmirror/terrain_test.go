package main

import (
	"context"
	"testing"

	"github.com/gekko3d/voxmirror"
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerrainHeightIsDeterministic(t *testing.T) {
	a, b := NewTerrain(7), NewTerrain(7)
	for _, p := range [][2]int{{0, 0}, {-5, 17}, {1000, -333}} {
		h := a.Height(p[0], p[1])
		assert.Equal(t, h, b.Height(p[0], p[1]))
		assert.GreaterOrEqual(t, h, a.Base)
		assert.LessOrEqual(t, h, a.Base+a.Amplitude)
	}
}

func TestTerrainMeshCoversRegion(t *testing.T) {
	ter := NewTerrain(7)
	meshes, plants, err := ter.Mesh(context.Background(), core.NewRegion(0, 0, 0, 31, 127, 31))
	require.NoError(t, err)
	// one quad per 4x4 column
	assert.Len(t, meshes.Opaque.Indices, 8*8*6)
	assert.Len(t, meshes.Opaque.Vertices, 8*8*4)
	for _, p := range plants {
		assert.Greater(t, int(p.Y()), ter.WaterLevel)
	}

	above, _, err := ter.Mesh(context.Background(), core.NewRegion(0, 128, 0, 31, 255, 31))
	require.NoError(t, err)
	assert.True(t, above.Opaque.IsEmpty())
	assert.True(t, above.Water.IsEmpty())
}

func TestTerrainMeshStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewTerrain(1).Mesh(ctx, core.NewRegion(0, 0, 0, 31, 63, 31))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerrainEditRemeshesNextFrame(t *testing.T) {
	tree, err := voxel.NewOctree(core.NewRegion(0, 0, 0, 63, 63, 63), 32)
	require.NoError(t, err)
	app := voxmirror.NewAppBuilder().UseModule(
		voxmirror.TimeModule{},
		TerrainEditModule{Tree: tree, Terrain: NewTerrain(3), Every: 2},
	).Build()

	e, ok := voxmirror.Resource[terrainEditor](app)
	require.True(t, ok)
	require.Len(t, e.leaves, 8)
	for _, n := range e.leaves {
		require.True(t, n.MeshUpToDate())
	}

	app.Step()
	assert.Zero(t, e.edits)

	app.Step()
	assert.Equal(t, 1, e.edits)
	assert.NotEmpty(t, e.pending)
	assert.False(t, e.leaves[0].MeshUpToDate())
	assert.False(t, e.leaves[0].RenderThisNode())

	app.Step()
	assert.Empty(t, e.pending)
	for _, n := range e.leaves {
		assert.True(t, n.MeshUpToDate())
	}
	assert.True(t, e.leaves[0].RenderThisNode())
}
