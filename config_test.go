package voxmirror

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxmirror.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Culling.Occlusion)
	assert.False(t, cfg.Culling.ShowOccluded)
	assert.Equal(t, 20, cfg.Culling.OcclusionThreshold)
	assert.Equal(t, float32(240), cfg.Culling.ViewDistance)
	assert.Equal(t, 40, cfg.Culling.Multiplier)

	pc := cfg.ChunkPoolConfig()
	assert.Equal(t, 1520*1520, pc.MaxDistanceSq)
	assert.Equal(t, cfg.Pool.Capacity, pc.Capacity)
	assert.Equal(t, mgl32.Vec3{-4096, 0, -4096}, pc.Bounds.Min)

	cc := cfg.CullConfig()
	assert.Equal(t, 20, cc.Threshold)
}

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
culling:
  occlusion: true
  occlusion_threshold: 5
  view_distance: 100
pool:
  capacity: 64
  mesh_size: [16, 64, 16]
camera:
  position: [1, 2, 3]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Culling.Occlusion)
	assert.Equal(t, 5, cfg.Culling.OcclusionThreshold)
	assert.Equal(t, 40, cfg.Culling.Multiplier, "untouched keys keep their defaults")
	assert.Equal(t, 64, cfg.Pool.Capacity)
	assert.Equal(t, [3]int{16, 64, 16}, cfg.Pool.MeshSize)
	assert.Equal(t, (100+16*40)*(100+16*40), cfg.ChunkPoolConfig().MaxDistanceSq)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, cfg.NewCamera().Position)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
culling:
  view_distance: -1
pool:
  capacity: 0
octree:
  base_node_size: 24
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "culling.view_distance")
	assert.Contains(t, err.Error(), "pool.capacity")
	assert.Contains(t, err.Error(), "octree.base_node_size")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "culling: [1, 2"))
	assert.Error(t, err)
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("configs", "voxmirror.yaml"))
	require.NoError(t, err)
	want := DefaultConfig()
	want.Culling.Occlusion = true
	assert.Equal(t, want, cfg)
}
