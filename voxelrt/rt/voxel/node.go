package voxel

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
)

// Node is one cube of the LOD octree. Height 0 nodes are base sized; every
// level up doubles the side. All timestamps come from the owning Octree's
// clock and are only written through Octree methods.
type Node struct {
	region   core.Region
	height   int
	parent   *Node
	children [2][2][2]*Node

	meshes         core.ChunkMeshes
	renderThisNode bool

	dataLastModified     core.TimeStamp
	structureChanged     core.TimeStamp
	propertiesChanged    core.TimeStamp
	meshChanged          core.TimeStamp
	nodeOrSubtreeChanged core.TimeStamp
}

func (n *Node) Region() core.Region { return n.region }
func (n *Node) Height() int         { return n.height }
func (n *Node) Parent() *Node       { return n.parent }

func (n *Node) Child(x, y, z int) *Node {
	return n.children[x][y][z]
}

// ChildAt addresses children by x + 2y + 4z, the same order as core.AABB.Split.
func (n *Node) ChildAt(i int) *Node {
	return n.children[i&1][(i>>1)&1][(i>>2)&1]
}

// ChildMask has bit x + 2y + 4z set for every existing child.
func (n *Node) ChildMask() uint8 {
	var mask uint8
	for i := 0; i < 8; i++ {
		if n.ChildAt(i) != nil {
			mask |= 1 << i
		}
	}
	return mask
}

func (n *Node) IsLeaf() bool {
	return n.ChildMask() == 0
}

func (n *Node) Meshes() *core.ChunkMeshes { return &n.meshes }
func (n *Node) RenderThisNode() bool      { return n.renderThisNode }

// MeshUpToDate reports whether the last mesh arrived after the last voxel
// edit inside this node.
func (n *Node) MeshUpToDate() bool {
	return n.meshChanged > n.dataLastModified
}

func (n *Node) StructureChanged() core.TimeStamp     { return n.structureChanged }
func (n *Node) PropertiesChanged() core.TimeStamp    { return n.propertiesChanged }
func (n *Node) MeshChanged() core.TimeStamp          { return n.meshChanged }
func (n *Node) NodeOrSubtreeChanged() core.TimeStamp { return n.nodeOrSubtreeChanged }
func (n *Node) DataLastModified() core.TimeStamp     { return n.dataLastModified }

func (n *Node) childRegion(x, y, z int) core.Region {
	half := n.region.Width() / 2
	lo := n.region.Lower
	lower := [3]int{lo[0] + x*half, lo[1] + y*half, lo[2] + z*half}
	return core.Region{
		Lower: lower,
		Upper: [3]int{lower[0] + half - 1, lower[1] + half - 1, lower[2] + half - 1},
	}
}

// touch stamps the node and everything above it as changed at t.
func (n *Node) touch(t core.TimeStamp) {
	for p := n; p != nil; p = p.parent {
		if p.nodeOrSubtreeChanged >= t {
			return
		}
		p.nodeOrSubtreeChanged = t
	}
}
