package plants

import (
	"testing"

	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positions(n int, y float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, n)
	for i := range out {
		out[i] = mgl32.Vec3{float32(i), y, 0}
	}
	return out
}

func TestRebuildRoundRobin(t *testing.T) {
	d := NewDistributor(3)
	d.SetChunk([3]int{32, 0, 0}, positions(2, 2))
	d.SetChunk([3]int{0, 0, 0}, positions(3, 1))
	require.True(t, d.Dirty())

	buckets := d.Rebuild()
	require.Len(t, buckets, 3)
	assert.False(t, d.Dirty())

	// chunk 0,0,0 is dealt first
	assert.Equal(t, []mgl32.Vec3{{0, 1, 0}, {0, 2, 0}}, buckets[0].Positions)
	assert.Equal(t, []mgl32.Vec3{{1, 1, 0}, {1, 2, 0}}, buckets[1].Positions)
	assert.Equal(t, []mgl32.Vec3{{2, 1, 0}}, buckets[2].Positions)
}

func TestRebuildIsStable(t *testing.T) {
	a := NewDistributor(4)
	b := NewDistributor(4)
	keys := [][3]int{{0, 0, 0}, {-32, 0, 64}, {32, 0, -32}, {0, 64, 0}}
	for i, k := range keys {
		a.SetChunk(k, positions(i+1, float32(i)))
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b.SetChunk(keys[i], positions(i+1, float32(i)))
	}
	ba, bb := a.Rebuild(), b.Rebuild()
	for i := range ba {
		assert.Equal(t, ba[i].Positions, bb[i].Positions, "bucket %d", i)
	}
}

func TestSetChunkCopiesAndRemoves(t *testing.T) {
	d := NewDistributor(1)
	ps := positions(2, 0)
	d.SetChunk([3]int{0, 0, 0}, ps)
	ps[0] = mgl32.Vec3{9, 9, 9}
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, d.Rebuild()[0].Positions[0])

	d.SetChunk([3]int{0, 0, 0}, nil)
	assert.Zero(t, d.Chunks())
	assert.Empty(t, d.Rebuild()[0].Positions)

	d.RemoveChunk([3]int{1, 1, 1})
	assert.False(t, d.Dirty())
}

func TestUploadAndDraw(t *testing.T) {
	dev := gpu.NewMemoryDevice()
	vb, _ := dev.CreateBuffer(gpu.VertexBuffer)
	ib, _ := dev.CreateBuffer(gpu.IndexBuffer)

	d := NewDistributor(4)
	d.SetChunk([3]int{0, 0, 0}, positions(6, 0))
	d.Rebuild()
	require.NoError(t, d.Upload(dev))
	assert.Equal(t, 6, dev.LiveBuffers(), "4 instance buffers plus the plant mesh")

	data, ok := dev.BufferData(d.buckets[0].Instances)
	require.True(t, ok)
	assert.Equal(t, PackPositions([]mgl32.Vec3{{0, 0, 0}, {4, 0, 0}}), data)

	draws, err := d.Draw(dev, vb, ib, 36)
	require.NoError(t, err)
	assert.Equal(t, 4, draws)
	calls := dev.Draws()
	require.Len(t, calls, 4)
	assert.Equal(t, uint32(2), calls[0].Instanced)
	assert.Equal(t, uint32(1), calls[3].Instanced)
	assert.Equal(t, uint32(36), calls[3].IndexCount)

	// shrinking leaves the buffers allocated but skips empty buckets
	d.SetChunk([3]int{0, 0, 0}, positions(1, 0))
	d.Rebuild()
	require.NoError(t, d.Upload(dev))
	dev.ResetFrame()
	draws, err = d.Draw(dev, vb, ib, 36)
	require.NoError(t, err)
	assert.Equal(t, 1, draws)
	assert.Equal(t, 4, dev.Counters().BuffersCreated-2)
}

func TestUploadSkipsUntouchedBuckets(t *testing.T) {
	dev := gpu.NewMemoryDevice()
	d := NewDistributor(8)
	d.SetChunk([3]int{0, 0, 0}, positions(2, 0))
	d.Rebuild()
	require.NoError(t, d.Upload(dev))
	assert.Equal(t, 2, dev.LiveBuffers())

	updates := dev.Counters().BufferUpdates
	require.NoError(t, d.Upload(dev))
	assert.Equal(t, updates, dev.Counters().BufferUpdates)
}

func TestUploadFailure(t *testing.T) {
	dev := gpu.NewMemoryDevice()
	dev.FailCreate = gpu.ErrDeviceResource
	d := NewDistributor(2)
	d.SetChunk([3]int{0, 0, 0}, positions(2, 0))
	d.Rebuild()
	err := d.Upload(dev)
	assert.ErrorIs(t, err, gpu.ErrDeviceResource)

	dev.FailCreate = nil
	require.NoError(t, d.Upload(dev))
	assert.Equal(t, 2, dev.LiveBuffers())
}

func TestRelease(t *testing.T) {
	dev := gpu.NewMemoryDevice()
	d := NewDistributor(2)
	d.SetChunk([3]int{0, 0, 0}, positions(4, 0))
	d.Rebuild()
	require.NoError(t, d.Upload(dev))
	d.Release(dev)
	assert.Zero(t, dev.LiveBuffers())

	draws, err := d.Draw(dev, gpu.InvalidHandle, gpu.InvalidHandle, 3)
	require.NoError(t, err)
	assert.Zero(t, draws)

	require.NoError(t, d.Upload(dev))
	assert.Equal(t, 2, dev.LiveBuffers())
	assert.Equal(t, 1, d.Chunks())
}
