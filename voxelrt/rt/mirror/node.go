package mirror

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/gekko3d/voxmirror/voxelrt/rt/voxel"
)

// Node is the GPU side shadow of one voxel.Node. A node owns its buffers and
// its children; destroying it releases the whole subtree.
type Node struct {
	Vertices   gpu.Handle
	Indices    gpu.Handle
	IndexCount uint32
	// AABB spans the opaque and water vertices of the last uploaded mesh.
	AABB           core.AABB
	RenderThisNode bool

	PropertiesSynced      core.TimeStamp
	MeshSynced            core.TimeStamp
	StructureSynced       core.TimeStamp
	ChildrenAndSelfSynced core.TimeStamp

	children [8]*Node
	// source identifies the data node this one mirrors, so a child slot that
	// was emptied and refilled between passes is rebuilt from scratch.
	source *voxel.Node
}

// Child uses the x + 2y + 4z order of voxel.Node.ChildAt.
func (n *Node) Child(i int) *Node {
	return n.children[i]
}

func (n *Node) ChildMask() uint8 {
	var mask uint8
	for i, c := range n.children {
		if c != nil {
			mask |= 1 << i
		}
	}
	return mask
}

// Walk visits n and its subtree depth first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}
