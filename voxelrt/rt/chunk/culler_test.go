package chunk

import (
	"testing"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occlusionConfig() CullConfig {
	return CullConfig{Occlusion: true, Threshold: 20}
}

// hideAtOrigin occludes the chunk whose box starts at x=0.
func hideAtOrigin(box core.AABB) int {
	if box.Min.X() == 0 {
		return 0
	}
	return 1000
}

func assertStatsConsistent(t *testing.T, st Stats) {
	t.Helper()
	assert.Equal(t, st.QueryResults-st.OccludedSlots, st.VisibleSlots)
}

func TestSubmitIsSingleFlight(t *testing.T) {
	f := newFixture(t, 2)
	f.push(t, chunkResult([3]int{0, 0, -64}, 10))
	c := NewCuller(f.pool, occlusionConfig(), f.logger)
	s := &f.pool.slots[0]

	issued, err := c.Submit(s, viewer())
	require.NoError(t, err)
	assert.True(t, issued)
	assert.Equal(t, QueryPending, s.Occlusion.State)
	assert.True(t, f.dev.QueryInFlight(s.Occlusion.Query))

	issued, err = c.Submit(s, viewer())
	require.NoError(t, err)
	assert.False(t, issued)
	assert.Equal(t, 1, f.dev.Counters().QueriesBegun)
	assert.True(t, f.dev.ColorWrites())
}

func TestPollKeepsVerdictUntilReady(t *testing.T) {
	f := newFixture(t, 2)
	f.dev.QueryLatency = 2
	f.dev.SampleFunc = func(core.AABB) int { return 0 }
	f.push(t, chunkResult([3]int{0, 0, -64}, 10))
	c := NewCuller(f.pool, occlusionConfig(), f.logger)
	s := &f.pool.slots[0]

	_, err := c.Submit(s, viewer())
	require.NoError(t, err)
	assert.False(t, c.Poll(s))
	assert.False(t, c.Poll(s))
	assert.Equal(t, QueryPending, s.Occlusion.State)
	assert.True(t, c.Poll(s))
	assert.Equal(t, QueryResolved, s.Occlusion.State)
	assert.Zero(t, s.Occlusion.Samples)

	// a newer query that has not landed leaves the old verdict in place
	f.dev.SampleFunc = func(core.AABB) int { return 1000 }
	_, err = c.Submit(s, viewer())
	require.NoError(t, err)
	assert.True(t, c.Poll(s))
	assert.Zero(t, s.Occlusion.Samples)
}

func TestSubmitSkipsWhenCameraInsideBox(t *testing.T) {
	f := newFixture(t, 2)
	f.push(t, chunkResult([3]int{0, 0, -64}, 10))
	c := NewCuller(f.pool, occlusionConfig(), f.logger)
	s := &f.pool.slots[0]
	s.Occlusion.Occluded = true

	cam := viewer()
	cam.Position = mgl32.Vec3{16, 5, -48}
	issued, err := c.Submit(s, cam)
	require.NoError(t, err)
	assert.False(t, issued)
	assert.False(t, s.Occlusion.Occluded)
	assert.Zero(t, f.dev.Counters().QueriesBegun)
}

func TestCullClassifiesByOcclusion(t *testing.T) {
	f := newFixture(t, 4)
	f.dev.SampleFunc = hideAtOrigin
	f.push(t, chunkResult([3]int{0, 0, -64}, 10), chunkResult([3]int{-32, 0, -64}, 10))
	c := NewCuller(f.pool, occlusionConfig(), f.logger)

	require.NoError(t, c.Cull(viewer()))
	assert.Equal(t, []int{1}, c.DrawList())
	st := c.Stats()
	assert.Equal(t, 2, st.QueryResults)
	assert.Equal(t, 1, st.OccludedSlots)
	assert.Equal(t, 1, st.VisibleSlots)
	assertStatsConsistent(t, st)
	assert.True(t, f.dev.ColorWrites())

	draws, err := c.Draw()
	require.NoError(t, err)
	assert.Equal(t, 1, draws)
	calls := f.dev.Draws()
	require.Len(t, calls, 1)
	assert.Equal(t, f.pool.Slot(1).Vertices, calls[0].Vertices)
}

func TestShowOccludedDrawsOnlyHiddenChunks(t *testing.T) {
	f := newFixture(t, 4)
	f.dev.SampleFunc = hideAtOrigin
	f.push(t, chunkResult([3]int{0, 0, -64}, 10), chunkResult([3]int{-32, 0, -64}, 10))
	cfg := occlusionConfig()
	cfg.ShowOccluded = true
	c := NewCuller(f.pool, cfg, f.logger)

	require.NoError(t, c.Cull(viewer()))
	assert.Equal(t, []int{0}, c.DrawList())
	st := c.Stats()
	assert.Equal(t, 1, st.OccludedSlots)
	assertStatsConsistent(t, st)
}

func TestCullWithoutQueriesFallsBackToFrustum(t *testing.T) {
	f := newFixture(t, 4)
	f.dev.QueriesSupported = false
	f.dev.SampleFunc = hideAtOrigin
	f.push(t, chunkResult([3]int{0, 0, -64}, 10), chunkResult([3]int{-32, 0, -64}, 10))
	require.True(t, f.pool.QueriesUnavailable())
	assert.False(t, f.pool.Slot(0).Occlusion.Query.Valid())

	c := NewCuller(f.pool, occlusionConfig(), f.logger)
	assert.False(t, c.OcclusionActive())
	require.NoError(t, c.Cull(viewer()))
	assert.ElementsMatch(t, []int{0, 1}, c.DrawList())
	st := c.Stats()
	assert.Zero(t, st.OccludedSlots)
	assert.Equal(t, 2, st.VisibleSlots)
	assertStatsConsistent(t, st)
	assert.Zero(t, f.dev.Counters().QueriesBegun)
}

func TestCullWithOcclusionOff(t *testing.T) {
	f := newFixture(t, 4)
	f.dev.SampleFunc = hideAtOrigin
	f.push(t, chunkResult([3]int{0, 0, -64}, 10), chunkResult([3]int{-32, 0, -64}, 10))
	c := NewCuller(f.pool, CullConfig{Threshold: 20}, f.logger)

	require.NoError(t, c.Cull(viewer()))
	assert.Len(t, c.DrawList(), 2)
	assert.Zero(t, f.dev.Counters().QueriesBegun)

	c.SetConfig(occlusionConfig())
	require.NoError(t, c.Cull(viewer()))
	assert.Equal(t, []int{1}, c.DrawList())
}

func TestCullAcrossFramesWithLatency(t *testing.T) {
	f := newFixture(t, 2)
	f.dev.QueryLatency = 3
	f.dev.SampleFunc = func(core.AABB) int { return 0 }
	f.push(t, chunkResult([3]int{0, 0, -64}, 10))
	c := NewCuller(f.pool, occlusionConfig(), f.logger)
	cam := viewer()

	for frame := 1; frame <= 3; frame++ {
		require.NoError(t, c.Cull(cam))
		assert.Len(t, c.DrawList(), 1, "frame %d", frame)
		assert.Equal(t, 1, f.dev.Counters().QueriesBegun, "frame %d", frame)
	}

	require.NoError(t, c.Cull(cam))
	assert.Empty(t, c.DrawList())
	assert.Equal(t, 1, c.Stats().OccludedSlots)

	// a fresh query goes out; the chunk stays hidden until it lands
	require.NoError(t, c.Cull(cam))
	assert.Equal(t, 2, f.dev.Counters().QueriesBegun)
	assert.Empty(t, c.DrawList())
}

func TestCullRefreshesCandidatesAfterEviction(t *testing.T) {
	f := newFixture(t, 4)
	f.push(t, chunkResult([3]int{0, 0, -64}, 10), chunkResult([3]int{0, 0, -128}, 10))
	c := NewCuller(f.pool, CullConfig{}, f.logger)
	cam := viewer()

	require.NoError(t, c.Cull(cam))
	assert.Equal(t, 2, c.Stats().QueryResults)

	// the further chunk lies beyond the eviction distance
	assert.Equal(t, 1, f.pool.Evict(cam))

	require.NoError(t, c.Cull(cam))
	assert.Equal(t, []int{0}, c.DrawList())
	assert.Equal(t, 1, c.Stats().QueryResults)
}

func TestDisableLogsOnce(t *testing.T) {
	f := newFixture(t, 1)
	c := NewCuller(f.pool, occlusionConfig(), f.logger)
	c.Disable("no readback")
	c.Disable("still no readback")
	assert.False(t, c.OcclusionActive())
	assert.Equal(t, 1, f.logger.Count("WARN"))
}
