package spatial

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
)

const DefaultMaxDepth = 10

type entry[T comparable] struct {
	item   T
	bounds core.AABB
}

type node[T comparable] struct {
	bounds   core.AABB
	depth    int
	contents []entry[T]
	children []*node[T]
}

func (n *node[T]) isLeaf() bool {
	return len(n.children) == 0
}

func (n *node[T]) isEmpty() bool {
	return n.isLeaf() && len(n.contents) == 0
}

// Octree indexes items by their bounding box. Children are split lazily on
// insert and an item lands in the deepest node that fully contains it.
type Octree[T comparable] struct {
	root     *node[T]
	maxDepth int
	owners   map[T]*node[T]
	// dirty is set by any mutation and can drive query caches.
	dirty bool
}

func New[T comparable](bounds core.AABB, maxDepth int) *Octree[T] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Octree[T]{
		root:     &node[T]{bounds: bounds},
		maxDepth: maxDepth,
		owners:   make(map[T]*node[T]),
	}
}

func (o *Octree[T]) Bounds() core.AABB {
	return o.root.bounds
}

func (o *Octree[T]) Count() int {
	return len(o.owners)
}

func (o *Octree[T]) Contains(item T) bool {
	_, ok := o.owners[item]
	return ok
}

func (o *Octree[T]) Dirty() bool {
	return o.dirty
}

func (o *Octree[T]) MarkClean() {
	o.dirty = false
}

// Insert returns false if bounds is not fully inside the octree bounds. An
// item already present is moved to its new bounds.
func (o *Octree[T]) Insert(item T, bounds core.AABB) bool {
	if bounds.IsEmpty() || !o.root.bounds.Contains(bounds) {
		return false
	}
	if _, ok := o.owners[item]; ok {
		o.Remove(item)
	}
	n := o.root
	for {
		if n.isLeaf() {
			o.split(n)
		}
		var next *node[T]
		for _, c := range n.children {
			if c.bounds.Contains(bounds) {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		n = next
	}
	n.contents = append(n.contents, entry[T]{item: item, bounds: bounds})
	o.owners[item] = n
	o.dirty = true
	return true
}

func (o *Octree[T]) split(n *node[T]) {
	if n.depth >= o.maxDepth {
		return
	}
	size := n.bounds.Size()
	if size.X() <= 1 && size.Y() <= 1 && size.Z() <= 1 {
		return
	}
	parts := n.bounds.Split()
	n.children = make([]*node[T], len(parts))
	for i, b := range parts {
		n.children[i] = &node[T]{bounds: b, depth: n.depth + 1}
	}
}

func (o *Octree[T]) Remove(item T) bool {
	n, ok := o.owners[item]
	if !ok {
		return false
	}
	for i := range n.contents {
		if n.contents[i].item == item {
			last := len(n.contents) - 1
			n.contents[i] = n.contents[last]
			n.contents[last] = entry[T]{}
			n.contents = n.contents[:last]
			break
		}
	}
	delete(o.owners, item)
	o.dirty = true
	return true
}

func (o *Octree[T]) Clear() {
	o.root = &node[T]{bounds: o.root.bounds}
	clear(o.owners)
	o.dirty = true
}

// QueryFrustum calls visit once for every item whose bounds touch the
// frustum. Nodes fully inside report their whole subtree without further
// tests; nodes outside are skipped. Returning false from visit stops the query.
func (o *Octree[T]) QueryFrustum(f *core.Frustum, visit func(T) bool) {
	o.queryFrustum(o.root, f, visit)
}

func (o *Octree[T]) queryFrustum(n *node[T], f *core.Frustum, visit func(T) bool) bool {
	for _, e := range n.contents {
		if !f.Intersects(e.bounds) {
			continue
		}
		if !visit(e.item) {
			return false
		}
	}
	for _, c := range n.children {
		if c.isEmpty() {
			continue
		}
		switch f.Test(c.bounds) {
		case core.Inside:
			if !all(c, visit) {
				return false
			}
		case core.Intersect:
			if !o.queryFrustum(c, f, visit) {
				return false
			}
		}
	}
	return true
}

func all[T comparable](n *node[T], visit func(T) bool) bool {
	for _, e := range n.contents {
		if !visit(e.item) {
			return false
		}
	}
	for _, c := range n.children {
		if !all(c, visit) {
			return false
		}
	}
	return true
}

func (o *Octree[T]) QueryAABB(box core.AABB, visit func(T) bool) {
	o.queryAABB(o.root, box, visit)
}

func (o *Octree[T]) queryAABB(n *node[T], box core.AABB, visit func(T) bool) bool {
	for _, e := range n.contents {
		if box.Intersects(e.bounds) && !visit(e.item) {
			return false
		}
	}
	for _, c := range n.children {
		if c.isEmpty() || !c.bounds.Intersects(box) {
			continue
		}
		if box.Contains(c.bounds) {
			if !all(c, visit) {
				return false
			}
			continue
		}
		if !o.queryAABB(c, box, visit) {
			return false
		}
	}
	return true
}

// Items returns every indexed item in no particular order.
func (o *Octree[T]) Items() []T {
	out := make([]T, 0, len(o.owners))
	for item := range o.owners {
		out = append(out, item)
	}
	return out
}

// Visit walks the node tree depth first. Debug overlays use it to draw the
// node boxes.
func (o *Octree[T]) Visit(fn func(depth int, bounds core.AABB, items int) bool) {
	visitNode(o.root, fn)
}

func visitNode[T comparable](n *node[T], fn func(int, core.AABB, int) bool) bool {
	if !fn(n.depth, n.bounds, len(n.contents)) {
		return false
	}
	for _, c := range n.children {
		if !visitNode(c, fn) {
			return false
		}
	}
	return true
}
