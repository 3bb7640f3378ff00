package voxmirror

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gekko3d/voxmirror/voxelrt/rt/chunk"
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug bool `yaml:"debug"`

	Culling CullingConfig `yaml:"culling"`
	Pool    PoolConfig    `yaml:"pool"`
	Extract ExtractConfig `yaml:"extract"`
	Octree  OctreeConfig  `yaml:"octree"`
	Plants  PlantsConfig  `yaml:"plants"`
	Camera  CameraConfig  `yaml:"camera"`
	Diag    DiagConfig    `yaml:"diag"`
}

type CullingConfig struct {
	Occlusion          bool    `yaml:"occlusion"`
	OcclusionThreshold int     `yaml:"occlusion_threshold"`
	ShowOccluded       bool    `yaml:"show_occluded"`
	ViewDistance       float32 `yaml:"view_distance"`
	Multiplier         int     `yaml:"multiplier"`
}

type PoolConfig struct {
	Capacity   int    `yaml:"capacity"`
	MeshSize   [3]int `yaml:"mesh_size"`
	DrainBatch int    `yaml:"drain_batch"`
	// IndexBounds is the extent of the chunk spatial index as min and max corners.
	IndexBounds [2][3]float32 `yaml:"index_bounds"`
	IndexDepth  int           `yaml:"index_depth"`
}

type ExtractConfig struct {
	Workers   int `yaml:"workers"`
	MaxHeight int `yaml:"max_height"`
}

type OctreeConfig struct {
	Region       [2][3]int `yaml:"region"`
	BaseNodeSize int       `yaml:"base_node_size"`
}

type PlantsConfig struct {
	Buckets int `yaml:"buckets"`
}

type CameraConfig struct {
	Position [3]float32 `yaml:"position"`
	FovY     float32    `yaml:"fov_y"`
	Far      float32    `yaml:"far"`
}

type DiagConfig struct {
	Addr         string `yaml:"addr"`
	PublishEvery int    `yaml:"publish_every"`
}

func DefaultConfig() Config {
	return Config{
		Culling: CullingConfig{
			Occlusion:          false,
			OcclusionThreshold: 20,
			ShowOccluded:       false,
			ViewDistance:       240,
			Multiplier:         40,
		},
		Pool: PoolConfig{
			Capacity:    512,
			MeshSize:    [3]int{32, 64, 32},
			DrainBatch:  1,
			IndexBounds: [2][3]float32{{-4096, 0, -4096}, {4096, 256, 4096}},
			IndexDepth:  10,
		},
		Extract: ExtractConfig{
			Workers:   4,
			MaxHeight: 256,
		},
		Octree: OctreeConfig{
			Region:       [2][3]int{{0, 0, 0}, {255, 255, 255}},
			BaseNodeSize: 32,
		},
		Plants: PlantsConfig{Buckets: 4},
		Camera: CameraConfig{
			Position: [3]float32{0, 64, 0},
			FovY:     60,
			Far:      500,
		},
		Diag: DiagConfig{PublishEvery: 30},
	}
}

// Load reads a YAML config on top of DefaultConfig. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Culling.OcclusionThreshold < 0 {
		errs = append(errs, errors.New("culling.occlusion_threshold must not be negative"))
	}
	if c.Culling.ViewDistance <= 0 {
		errs = append(errs, errors.New("culling.view_distance must be positive"))
	}
	if c.Culling.Multiplier < 0 {
		errs = append(errs, errors.New("culling.multiplier must not be negative"))
	}
	if c.Pool.Capacity <= 0 {
		errs = append(errs, errors.New("pool.capacity must be positive"))
	}
	for i, s := range c.Pool.MeshSize {
		if s <= 0 {
			errs = append(errs, fmt.Errorf("pool.mesh_size[%d] must be positive", i))
		}
	}
	if c.IndexBounds().IsEmpty() {
		errs = append(errs, errors.New("pool.index_bounds is empty"))
	}
	if c.Extract.Workers < 0 {
		errs = append(errs, errors.New("extract.workers must not be negative"))
	}
	if c.Plants.Buckets <= 0 {
		errs = append(errs, errors.New("plants.buckets must be positive"))
	}
	r := c.Octree.Region
	if r[0][0] > r[1][0] || r[0][1] > r[1][1] || r[0][2] > r[1][2] {
		errs = append(errs, errors.New("octree.region lower corner exceeds upper corner"))
	}
	if b := c.Octree.BaseNodeSize; b <= 0 || b&(b-1) != 0 {
		errs = append(errs, errors.New("octree.base_node_size must be a positive power of two"))
	}
	return errors.Join(errs...)
}

func (c Config) IndexBounds() core.AABB {
	b := c.Pool.IndexBounds
	return core.NewAABB(mgl32.Vec3(b[0]), mgl32.Vec3(b[1]))
}

func (c Config) OctreeRegion() core.Region {
	return core.Region{Lower: c.Octree.Region[0], Upper: c.Octree.Region[1]}
}

// ChunkPoolConfig derives the pool setup, including the eviction distance.
func (c Config) ChunkPoolConfig() chunk.Config {
	return chunk.Config{
		Capacity:      c.Pool.Capacity,
		MeshSize:      c.Pool.MeshSize,
		MaxDistanceSq: chunk.MaxDistanceSq(c.Culling.ViewDistance, c.Pool.MeshSize, c.Culling.Multiplier),
		DrainBatch:    c.Pool.DrainBatch,
		Bounds:        c.IndexBounds(),
		MaxDepth:      c.Pool.IndexDepth,
	}
}

func (c Config) CullConfig() chunk.CullConfig {
	return chunk.CullConfig{
		Occlusion:    c.Culling.Occlusion,
		Threshold:    c.Culling.OcclusionThreshold,
		ShowOccluded: c.Culling.ShowOccluded,
	}
}

func (c Config) NewCamera() *core.Camera {
	cam := core.NewCamera()
	cam.Position = mgl32.Vec3(c.Camera.Position)
	if c.Camera.FovY > 0 {
		cam.FovY = mgl32.DegToRad(c.Camera.FovY)
	}
	if c.Camera.Far > 0 {
		cam.Far = c.Camera.Far
	}
	return cam
}
