package voxel

import (
	"testing"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) *Octree {
	t.Helper()
	tree, err := NewOctree(core.NewRegion(0, 0, 0, 255, 255, 255), 32)
	require.NoError(t, err)
	return tree
}

func quad(x, y, z float32) core.Mesh {
	return core.Mesh{
		Vertices: []core.Vertex{
			{Position: mgl32.Vec3{x, y, z}},
			{Position: mgl32.Vec3{x + 1, y, z}},
			{Position: mgl32.Vec3{x + 1, y, z + 1}},
			{Position: mgl32.Vec3{x, y, z + 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestNewOctreeBuildsFullTree(t *testing.T) {
	tree := newTree(t)
	assert.Equal(t, 585, tree.NodeCount())
	assert.Equal(t, 3, tree.Root().Height())
	assert.Equal(t, core.NewRegion(0, 0, 0, 255, 255, 255), tree.Root().Region())
	assert.Equal(t, uint8(0xff), tree.Root().ChildMask())

	leaves := 0
	tree.Visit(func(n *Node) bool {
		if n.IsLeaf() {
			leaves++
			assert.Equal(t, 0, n.Height())
			assert.Equal(t, 32, n.Region().Width())
		}
		return true
	})
	assert.Equal(t, 512, leaves)
}

func TestNewOctreeGrowsRegion(t *testing.T) {
	tree, err := NewOctree(core.NewRegion(0, 0, 0, 99, 31, 63), 32)
	require.NoError(t, err)
	root := tree.Root().Region()
	assert.Equal(t, 128, root.Width())
	assert.Equal(t, 128, root.Height())
	assert.Equal(t, 128, root.Depth())
	assert.True(t, root.ContainsPoint(0, 0, 0))
	assert.True(t, root.ContainsPoint(99, 31, 63))
	assert.Less(t, tree.NodeCount(), 1+8+64)
}

func TestNewOctreeValidates(t *testing.T) {
	_, err := NewOctree(core.NewRegion(1, 0, 0, 0, 0, 0), 32)
	assert.ErrorIs(t, err, ErrInvalidRegion)
	_, err = NewOctree(core.NewRegion(0, 0, 0, 63, 63, 63), 24)
	assert.ErrorIs(t, err, ErrBaseNodeSize)
}

func TestMutationsPropagateToRoot(t *testing.T) {
	tree := newTree(t)
	leaf := tree.FindLeaf(40, 8, 200)
	require.NotNil(t, leaf)
	require.Equal(t, 0, leaf.Height())

	before := tree.Root().NodeOrSubtreeChanged()
	tree.SetMesh(leaf, core.ChunkMeshes{Opaque: quad(40, 8, 200)})

	now := tree.Time()
	assert.Greater(t, now, before)
	assert.Equal(t, now, leaf.MeshChanged())
	for n := leaf; n != nil; n = n.Parent() {
		assert.Equal(t, now, n.NodeOrSubtreeChanged())
	}
	// siblings keep their stamps
	sibling := leaf.Parent().ChildAt(0)
	if sibling == leaf {
		sibling = leaf.Parent().ChildAt(1)
	}
	assert.Less(t, sibling.NodeOrSubtreeChanged(), now)
}

func TestSetRenderThisNodeNoopWhenUnchanged(t *testing.T) {
	tree := newTree(t)
	leaf := tree.FindLeaf(0, 0, 0)
	t0 := tree.Time()
	tree.SetRenderThisNode(leaf, false)
	assert.Equal(t, t0, tree.Time())
	tree.SetRenderThisNode(leaf, true)
	assert.Equal(t, t0+1, tree.Time())
	assert.Equal(t, tree.Time(), leaf.PropertiesChanged())
}

func TestCoarsenAndRefine(t *testing.T) {
	tree := newTree(t)
	parent := tree.FindLeaf(0, 0, 0).Parent()
	require.Equal(t, 8, tree.Coarsen(parent))
	assert.Equal(t, 585-8, tree.NodeCount())
	assert.True(t, parent.IsLeaf())
	assert.Equal(t, tree.Time(), parent.StructureChanged())

	c, err := tree.CreateChild(parent, 1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, core.NewRegion(32, 0, 32, 63, 31, 63), c.Region())
	assert.Equal(t, uint8(1<<5), parent.ChildMask())

	_, err = tree.CreateChild(parent, 1, 0, 1)
	assert.ErrorIs(t, err, ErrChildExists)
	_, err = tree.CreateChild(c, 0, 0, 0)
	assert.ErrorIs(t, err, ErrBaseNode)

	assert.True(t, tree.RemoveChild(parent, 1, 0, 1))
	assert.False(t, tree.RemoveChild(parent, 1, 0, 1))
}

func TestPropagateTimestampsMatchesIncremental(t *testing.T) {
	tree := newTree(t)
	tree.SetMesh(tree.FindLeaf(1, 1, 1), core.ChunkMeshes{Opaque: quad(1, 1, 1)})
	tree.SetRenderThisNode(tree.FindLeaf(200, 1, 1), true)

	want := map[*Node]core.TimeStamp{}
	tree.Visit(func(n *Node) bool {
		want[n] = n.NodeOrSubtreeChanged()
		return true
	})
	tree.PropagateTimestamps()
	tree.Visit(func(n *Node) bool {
		assert.Equal(t, want[n], n.NodeOrSubtreeChanged())
		return true
	})
}

func TestSelectRenderNodes(t *testing.T) {
	tree, err := NewOctree(core.NewRegion(0, 0, 0, 63, 63, 63), 32)
	require.NoError(t, err)
	parent := tree.Root()
	for i := 0; i < 8; i++ {
		c := parent.ChildAt(i)
		lo := c.Region().Lower
		tree.SetMesh(c, core.ChunkMeshes{Opaque: quad(float32(lo[0]), float32(lo[1]), float32(lo[2]))})
	}
	tree.SelectRenderNodes()
	for i := 0; i < 8; i++ {
		assert.True(t, parent.ChildAt(i).RenderThisNode())
	}
	assert.False(t, parent.RenderThisNode())

	// an edit invalidates one child; the parent has no current mesh either
	tree.MarkDataModified(core.NewRegion(5, 5, 5, 5, 5, 5))
	tree.SelectRenderNodes()
	for i := 0; i < 8; i++ {
		assert.False(t, parent.ChildAt(i).RenderThisNode())
	}
	assert.False(t, parent.RenderThisNode())

	tree.SetMesh(parent, core.ChunkMeshes{Opaque: quad(0, 0, 0)})
	tree.SelectRenderNodes()
	assert.True(t, parent.RenderThisNode())
}
