package spatial

import (
	"sort"
	"testing"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float32) core.AABB {
	return core.NewAABB(mgl32.Vec3{minX, minY, minZ}, mgl32.Vec3{maxX, maxY, maxZ})
}

func collect(o *Octree[int], f *core.Frustum) []int {
	var out []int
	o.QueryFrustum(f, func(v int) bool {
		out = append(out, v)
		return true
	})
	sort.Ints(out)
	return out
}

func TestInsertRejectsOutOfBounds(t *testing.T) {
	o := New[int](box(-256, 0, -256, 256, 256, 256), 0)
	assert.True(t, o.Insert(1, box(0, 0, 0, 32, 64, 32)))
	assert.False(t, o.Insert(2, box(250, 0, 0, 282, 64, 32)))
	assert.False(t, o.Insert(3, core.EmptyAABB()))
	assert.Equal(t, 1, o.Count())
	assert.False(t, o.Contains(2))
}

func TestInsertGoesDeep(t *testing.T) {
	o := New[int](box(0, 0, 0, 256, 256, 256), 4)
	require.True(t, o.Insert(1, box(0, 0, 0, 8, 8, 8)))

	deepest := 0
	o.Visit(func(depth int, _ core.AABB, items int) bool {
		if items > 0 {
			deepest = depth
		}
		return true
	})
	assert.Equal(t, 4, deepest)

	// straddles the root split planes, must stay at the root
	require.True(t, o.Insert(2, box(120, 120, 120, 136, 136, 136)))
	var rootItems int
	o.Visit(func(depth int, _ core.AABB, items int) bool {
		if depth == 0 {
			rootItems = items
		}
		return true
	})
	assert.Equal(t, 1, rootItems)
}

func TestRemoveAndReinsert(t *testing.T) {
	o := New[int](box(0, 0, 0, 256, 256, 256), 0)
	require.True(t, o.Insert(7, box(0, 0, 0, 8, 8, 8)))
	o.MarkClean()

	assert.True(t, o.Remove(7))
	assert.True(t, o.Dirty())
	assert.False(t, o.Remove(7))
	assert.Equal(t, 0, o.Count())

	require.True(t, o.Insert(7, box(100, 0, 100, 108, 8, 108)))
	require.True(t, o.Insert(7, box(200, 0, 200, 208, 8, 208)))
	assert.Equal(t, 1, o.Count())

	var hits []int
	o.QueryAABB(box(199, 0, 199, 201, 1, 201), func(v int) bool {
		hits = append(hits, v)
		return true
	})
	assert.Equal(t, []int{7}, hits)

	hits = hits[:0]
	o.QueryAABB(box(99, 0, 99, 101, 1, 101), func(v int) bool {
		hits = append(hits, v)
		return true
	})
	assert.Empty(t, hits)
}

func TestQueryFrustum(t *testing.T) {
	o := New[int](box(-512, -512, -512, 512, 512, 512), 0)
	cam := core.NewCamera()
	f := cam.Frustum()

	require.True(t, o.Insert(1, box(-5, 60, -50, 5, 70, -40)))  // ahead
	require.True(t, o.Insert(2, box(-5, 60, 40, 5, 70, 50)))    // behind
	require.True(t, o.Insert(3, box(-1, 63, -300, 1, 65, -298))) // far ahead, inside far plane
	require.True(t, o.Insert(4, box(-100, 0, -4, 100, 128, 4)))  // straddles the camera

	assert.Equal(t, []int{1, 3, 4}, collect(o, &f))

	o.Clear()
	assert.Empty(t, collect(o, &f))
	assert.Equal(t, 0, o.Count())
}

func TestQueryStopsEarly(t *testing.T) {
	o := New[int](box(0, 0, 0, 64, 64, 64), 0)
	for i := 0; i < 8; i++ {
		x := float32(i * 8)
		require.True(t, o.Insert(i, box(x, 0, 0, x+4, 4, 4)))
	}
	n := 0
	o.QueryAABB(o.Bounds(), func(int) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}
