package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexSize is the packed size of a Vertex on the GPU.
// struct Vertex {
//    pos  : vec3<f32>; (12)
//    info : u32;       (4)
// }; -> 16 bytes
const VertexSize = 16

type Vertex struct {
	Position mgl32.Vec3
	Info     uint32
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Indices) == 0
}

// ChunkMeshes is the output of one surface extraction.
type ChunkMeshes struct {
	Opaque Mesh
	Water  Mesh
}

// MeshBounds is the union of every vertex position in the given meshes.
// Nil or vertex-less meshes contribute nothing.
func MeshBounds(meshes ...*Mesh) AABB {
	box := EmptyAABB()
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for _, v := range m.Vertices {
			box = box.Extend(v.Position)
		}
	}
	return box
}

// Merge concatenates the meshes, rebasing indices of later meshes.
func Merge(meshes ...*Mesh) Mesh {
	var out Mesh
	for _, m := range meshes {
		if m == nil {
			continue
		}
		offset := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, idx := range m.Indices {
			out.Indices = append(out.Indices, idx+offset)
		}
	}
	return out
}

func (m *Mesh) VertexBytes() []byte {
	buf := make([]byte, len(m.Vertices)*VertexSize)
	for i, v := range m.Vertices {
		o := i * VertexSize
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(v.Position.X()))
		binary.LittleEndian.PutUint32(buf[o+4:], math.Float32bits(v.Position.Y()))
		binary.LittleEndian.PutUint32(buf[o+8:], math.Float32bits(v.Position.Z()))
		binary.LittleEndian.PutUint32(buf[o+12:], v.Info)
	}
	return buf
}

func (m *Mesh) IndexBytes() []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}
