package mirror

import (
	"errors"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
)

// Traversal draws a mirror tree. Every existing child is visited even when
// its parent is culled or hidden; only a missing child ends a branch.
type Traversal struct {
	Device gpu.Device
}

// Render returns how many nodes were drawn. Draw failures do not stop the
// walk and are joined into the error.
func (t Traversal) Render(root *Node, f *core.Frustum) (int, error) {
	var errs []error
	draws := t.render(root, f, &errs)
	return draws, errors.Join(errs...)
}

func (t Traversal) render(n *Node, f *core.Frustum, errs *[]error) int {
	if n == nil {
		return 0
	}
	draws := 0
	if n.IndexCount > 0 && n.RenderThisNode && f.Intersects(n.AABB) {
		if err := t.Device.BindAndDraw(n.Vertices, n.Indices, n.IndexCount); err != nil {
			*errs = append(*errs, err)
		} else {
			draws++
		}
	}
	for _, c := range n.children {
		draws += t.render(c, f, errs)
	}
	return draws
}
