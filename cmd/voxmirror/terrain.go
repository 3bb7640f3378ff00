package main

import (
	"context"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Terrain is a seeded heightmap standing in for real voxel data. Surfaces are
// emitted as one quad per Step x Step column.
type Terrain struct {
	Seed       int64
	Base       int
	Amplitude  int
	WaterLevel int
	// Step is the column width of emitted quads and the lattice cell of the
	// heightmap is 4 steps.
	Step int
	// PlantChance is one in N columns above water.
	PlantChance uint64
}

func NewTerrain(seed int64) *Terrain {
	return &Terrain{
		Seed:        seed,
		Base:        40,
		Amplitude:   24,
		WaterLevel:  36,
		Step:        4,
		PlantChance: 16,
	}
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}

func floorDiv(v, s int) int {
	q := v / s
	if v%s != 0 && (v < 0) != (s < 0) {
		q--
	}
	return q
}

// Height is bilinear value noise over a lattice of 4*Step voxels.
func (t *Terrain) Height(x, z int) int {
	cell := t.Step * 4
	cx, cz := floorDiv(x, cell), floorDiv(z, cell)
	fx := float32(x-cx*cell) / float32(cell)
	fz := float32(z-cz*cell) / float32(cell)

	corner := func(dx, dz int) float32 {
		return float32(hash2(t.Seed, cx+dx, cz+dz)%1024) / 1023
	}
	top := corner(0, 0)*(1-fx) + corner(1, 0)*fx
	bottom := corner(0, 1)*(1-fx) + corner(1, 1)*fx
	v := top*(1-fz) + bottom*fz
	return t.Base + int(v*float32(t.Amplitude))
}

func quadAt(m *core.Mesh, x, y, z, size float32, info uint32) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices,
		core.Vertex{Position: mgl32.Vec3{x, y, z}, Info: info},
		core.Vertex{Position: mgl32.Vec3{x + size, y, z}, Info: info},
		core.Vertex{Position: mgl32.Vec3{x + size, y, z + size}, Info: info},
		core.Vertex{Position: mgl32.Vec3{x, y, z + size}, Info: info},
	)
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// Mesh implements extract.Mesher.
func (t *Terrain) Mesh(ctx context.Context, region core.Region) (core.ChunkMeshes, []mgl32.Vec3, error) {
	var (
		meshes core.ChunkMeshes
		plants []mgl32.Vec3
	)
	step := t.Step
	for x := region.Lower[0]; x <= region.Upper[0]; x += step {
		if err := ctx.Err(); err != nil {
			return core.ChunkMeshes{}, nil, err
		}
		for z := region.Lower[2]; z <= region.Upper[2]; z += step {
			h := t.Height(x, z)
			if h >= region.Lower[1] && h <= region.Upper[1] {
				quadAt(&meshes.Opaque, float32(x), float32(h), float32(z), float32(step), uint32(h))
				if h > t.WaterLevel && t.PlantChance > 0 && hash2(^t.Seed, x, z)%t.PlantChance == 0 {
					plants = append(plants, mgl32.Vec3{float32(x) + float32(step)/2, float32(h + 1), float32(z) + float32(step)/2})
				}
			}
			if h < t.WaterLevel && t.WaterLevel >= region.Lower[1] && t.WaterLevel <= region.Upper[1] {
				quadAt(&meshes.Water, float32(x), float32(t.WaterLevel), float32(z), float32(step), 0)
			}
		}
	}
	return meshes, plants, nil
}

// PlantMesh is a small cross of two quads drawn per plant instance.
func PlantMesh() core.Mesh {
	return core.Mesh{
		Vertices: []core.Vertex{
			{Position: mgl32.Vec3{-0.5, 0, 0}},
			{Position: mgl32.Vec3{0.5, 0, 0}},
			{Position: mgl32.Vec3{0.5, 1, 0}},
			{Position: mgl32.Vec3{-0.5, 1, 0}},
			{Position: mgl32.Vec3{0, 0, -0.5}},
			{Position: mgl32.Vec3{0, 0, 0.5}},
			{Position: mgl32.Vec3{0, 1, 0.5}},
			{Position: mgl32.Vec3{0, 1, -0.5}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7},
	}
}
