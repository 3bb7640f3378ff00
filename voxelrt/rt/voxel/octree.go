package voxel

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
)

var (
	ErrInvalidRegion = errors.New("voxel: invalid region")
	ErrBaseNodeSize  = errors.New("voxel: base node size must be a power of two")
	ErrChildExists   = errors.New("voxel: child already exists")
	ErrBaseNode      = errors.New("voxel: base sized nodes cannot be split")
)

// Octree is the authoritative LOD tree over a voxel region. It owns the
// logical clock: every mutation ticks it once and stamps the touched node and
// all of its ancestors.
type Octree struct {
	clock        core.Clock
	root         *Node
	cover        core.Region
	baseNodeSize int
	nodes        int
}

// NewOctree grows region to a power of two cube and builds every node down to
// baseNodeSize that intersects region.
func NewOctree(region core.Region, baseNodeSize int) (*Octree, error) {
	if !region.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegion, region)
	}
	if baseNodeSize <= 0 || baseNodeSize&(baseNodeSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrBaseNodeSize, baseNodeSize)
	}

	maxDim := max(region.Width(), region.Height(), region.Depth(), baseNodeSize)
	target := 1 << bits.Len(uint(maxDim-1))
	height := bits.Len(uint(target/baseNodeSize)) - 1

	grown := region
	inc := [3]int{target - region.Width(), target - region.Height(), target - region.Depth()}
	for i := range inc {
		if inc[i]%2 == 1 {
			grown.Upper[i]++
			inc[i]--
		}
	}
	grown = grown.Grow(inc[0]/2, inc[1]/2, inc[2]/2)

	o := &Octree{cover: region, baseNodeSize: baseNodeSize}
	t := o.clock.Tick()
	o.root = o.newNode(grown, nil, height, t)
	o.build(o.root, t)
	o.PropagateTimestamps()
	return o, nil
}

func (o *Octree) newNode(region core.Region, parent *Node, height int, t core.TimeStamp) *Node {
	o.nodes++
	return &Node{
		region:            region,
		height:            height,
		parent:            parent,
		structureChanged:  t,
		propertiesChanged: t,
	}
}

func (o *Octree) build(n *Node, t core.TimeStamp) {
	if n.height == 0 {
		return
	}
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				r := n.childRegion(x, y, z)
				if !r.Intersects(o.cover) {
					continue
				}
				c := o.newNode(r, n, n.height-1, t)
				n.children[x][y][z] = c
				o.build(c, t)
			}
		}
	}
}

func (o *Octree) Root() *Node                { return o.root }
func (o *Octree) Time() core.TimeStamp       { return o.clock.Now() }
func (o *Octree) BaseNodeSize() int          { return o.baseNodeSize }
func (o *Octree) NodeCount() int             { return o.nodes }
func (o *Octree) RegionToCover() core.Region { return o.cover }

func (o *Octree) SetMesh(n *Node, meshes core.ChunkMeshes) {
	t := o.clock.Tick()
	n.meshes = meshes
	n.meshChanged = t
	n.touch(t)
}

// SetRenderThisNode is a no-op when the flag does not change.
func (o *Octree) SetRenderThisNode(n *Node, render bool) {
	if n.renderThisNode == render {
		return
	}
	t := o.clock.Tick()
	n.renderThisNode = render
	n.propertiesChanged = t
	n.touch(t)
}

// CreateChild refines n by one level at (x, y, z).
func (o *Octree) CreateChild(n *Node, x, y, z int) (*Node, error) {
	if n.height == 0 {
		return nil, fmt.Errorf("create child of %s: %w", n.region, ErrBaseNode)
	}
	if n.children[x][y][z] != nil {
		return nil, fmt.Errorf("create child %d,%d,%d of %s: %w", x, y, z, n.region, ErrChildExists)
	}
	t := o.clock.Tick()
	c := o.newNode(n.childRegion(x, y, z), n, n.height-1, t)
	c.nodeOrSubtreeChanged = t
	n.children[x][y][z] = c
	n.structureChanged = t
	n.touch(t)
	return c, nil
}

func (o *Octree) RemoveChild(n *Node, x, y, z int) bool {
	c := n.children[x][y][z]
	if c == nil {
		return false
	}
	o.nodes -= countNodes(c)
	c.parent = nil
	n.children[x][y][z] = nil
	t := o.clock.Tick()
	n.structureChanged = t
	n.touch(t)
	return true
}

// Coarsen drops every child of n with a single structure change.
func (o *Octree) Coarsen(n *Node) int {
	removed := 0
	for i := 0; i < 8; i++ {
		c := n.ChildAt(i)
		if c == nil {
			continue
		}
		o.nodes -= countNodes(c)
		c.parent = nil
		n.children[i&1][(i>>1)&1][(i>>2)&1] = nil
		removed++
	}
	if removed > 0 {
		t := o.clock.Tick()
		n.structureChanged = t
		n.touch(t)
	}
	return removed
}

func countNodes(n *Node) int {
	c := 1
	for i := 0; i < 8; i++ {
		if child := n.ChildAt(i); child != nil {
			c += countNodes(child)
		}
	}
	return c
}

// MarkDataModified records a voxel edit inside region on every node whose
// region, grown by one voxel, overlaps it. Meshes of those nodes stop being
// up to date until SetMesh is called again.
func (o *Octree) MarkDataModified(region core.Region) {
	t := o.clock.Tick()
	o.markModified(o.root, region, t)
}

func (o *Octree) markModified(n *Node, region core.Region, t core.TimeStamp) {
	if !n.region.Grow(1, 1, 1).Intersects(region) {
		return
	}
	n.dataLastModified = t
	for i := 0; i < 8; i++ {
		if c := n.ChildAt(i); c != nil {
			o.markModified(c, region, t)
		}
	}
}

// SelectRenderNodes picks which nodes draw themselves: a parent whose
// children can all render stays hidden, otherwise the parent renders (when its
// mesh is current) and hides its direct children.
func (o *Octree) SelectRenderNodes() {
	o.selectRender(o.root)
}

func (o *Octree) selectRender(n *Node) bool {
	if n.IsLeaf() {
		ok := n.MeshUpToDate()
		o.SetRenderThisNode(n, ok)
		return ok
	}
	all := true
	for i := 0; i < 8; i++ {
		if c := n.ChildAt(i); c != nil {
			all = o.selectRender(c) && all
		}
	}
	if all {
		o.SetRenderThisNode(n, false)
		return true
	}
	for i := 0; i < 8; i++ {
		if c := n.ChildAt(i); c != nil {
			o.SetRenderThisNode(c, false)
		}
	}
	self := n.MeshUpToDate()
	o.SetRenderThisNode(n, self)
	return self
}

// PropagateTimestamps recomputes NodeOrSubtreeChanged bottom up as the max of
// each node's own stamps and its children's.
func (o *Octree) PropagateTimestamps() {
	propagate(o.root)
}

func propagate(n *Node) core.TimeStamp {
	sub := core.MaxTimeStamp(n.structureChanged, n.propertiesChanged, n.meshChanged)
	for i := 0; i < 8; i++ {
		if c := n.ChildAt(i); c != nil {
			sub = max(sub, propagate(c))
		}
	}
	n.nodeOrSubtreeChanged = sub
	return sub
}

// Visit walks the tree depth first. Returning false skips the node's children.
func (o *Octree) Visit(fn func(*Node) bool) {
	visit(o.root, fn)
}

func visit(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for i := 0; i < 8; i++ {
		if c := n.ChildAt(i); c != nil {
			visit(c, fn)
		}
	}
}

// FindLeaf returns the deepest node containing the voxel, or nil when the
// voxel is outside the tree.
func (o *Octree) FindLeaf(x, y, z int) *Node {
	n := o.root
	if !n.region.ContainsPoint(x, y, z) {
		return nil
	}
	for {
		var next *Node
		for i := 0; i < 8; i++ {
			c := n.ChildAt(i)
			if c != nil && c.region.ContainsPoint(x, y, z) {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}
