package plants

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// InstanceSize is the packed size of one plant instance: vec3<f32>.
const InstanceSize = 12

// Bucket is one instanced draw worth of plant positions.
type Bucket struct {
	Positions []mgl32.Vec3
	Instances gpu.Handle

	uploaded int
	dirty    bool
}

// Distributor spreads the plant positions of every resident chunk over a
// fixed number of instance buffers.
type Distributor struct {
	chunks  map[[3]int][]mgl32.Vec3
	keys    [][3]int
	buckets []Bucket
	dirty   bool
}

func NewDistributor(buckets int) *Distributor {
	if buckets < 1 {
		buckets = 1
	}
	return &Distributor{
		chunks:  make(map[[3]int][]mgl32.Vec3),
		buckets: make([]Bucket, buckets),
	}
}

// SetChunk replaces the plants of one chunk. An empty list removes it.
func (d *Distributor) SetChunk(key [3]int, positions []mgl32.Vec3) {
	if len(positions) == 0 {
		d.RemoveChunk(key)
		return
	}
	d.chunks[key] = append([]mgl32.Vec3(nil), positions...)
	d.dirty = true
}

func (d *Distributor) RemoveChunk(key [3]int) {
	if _, ok := d.chunks[key]; !ok {
		return
	}
	delete(d.chunks, key)
	d.dirty = true
}

func (d *Distributor) Chunks() int { return len(d.chunks) }

// Dirty reports whether chunks changed since the last Rebuild.
func (d *Distributor) Dirty() bool { return d.dirty }

// Rebuild deals every position round-robin into the buckets, walking chunks
// in key order so the same input always yields the same buckets. The returned
// slice is owned by the distributor.
func (d *Distributor) Rebuild() []Bucket {
	d.keys = d.keys[:0]
	for k := range d.chunks {
		d.keys = append(d.keys, k)
	}
	slices.SortFunc(d.keys, compareKeys)

	for i := range d.buckets {
		d.buckets[i].Positions = d.buckets[i].Positions[:0]
		d.buckets[i].dirty = true
	}
	n := 0
	for _, k := range d.keys {
		for _, p := range d.chunks[k] {
			b := &d.buckets[n%len(d.buckets)]
			b.Positions = append(b.Positions, p)
			n++
		}
	}
	d.dirty = false
	return d.buckets
}

func compareKeys(a, b [3]int) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	if c := cmp.Compare(a[1], b[1]); c != 0 {
		return c
	}
	return cmp.Compare(a[2], b[2])
}

// Upload writes every rebuilt bucket into its instance buffer.
func (d *Distributor) Upload(device gpu.Device) error {
	var errs []error
	for i := range d.buckets {
		b := &d.buckets[i]
		if !b.dirty {
			continue
		}
		if len(b.Positions) == 0 && !b.Instances.Valid() {
			b.dirty = false
			b.uploaded = 0
			continue
		}
		if !b.Instances.Valid() {
			h, err := device.CreateBuffer(gpu.InstanceBuffer)
			if err != nil {
				errs = append(errs, fmt.Errorf("plant bucket %d: %w", i, err))
				continue
			}
			b.Instances = h
		}
		if err := device.UpdateBuffer(b.Instances, PackPositions(b.Positions)); err != nil {
			errs = append(errs, fmt.Errorf("plant bucket %d: %w", i, err))
			continue
		}
		b.uploaded = len(b.Positions)
		b.dirty = false
	}
	return errors.Join(errs...)
}

// Draw issues one instanced draw of the plant mesh per non-empty bucket and
// returns the number of draws.
func (d *Distributor) Draw(device gpu.Device, vertices, indices gpu.Handle, indexCount uint32) (int, error) {
	if indexCount == 0 {
		return 0, nil
	}
	draws := 0
	var errs []error
	for i := range d.buckets {
		b := &d.buckets[i]
		if b.uploaded == 0 || !b.Instances.Valid() {
			continue
		}
		if err := device.DrawInstanced(vertices, indices, b.Instances, indexCount, uint32(b.uploaded)); err != nil {
			errs = append(errs, fmt.Errorf("plant bucket %d: %w", i, err))
			continue
		}
		draws++
	}
	return draws, errors.Join(errs...)
}

// Release destroys the instance buffers. Chunk data is kept, so a later
// Rebuild and Upload recreate them.
func (d *Distributor) Release(device gpu.Device) {
	for i := range d.buckets {
		b := &d.buckets[i]
		if b.Instances.Valid() {
			device.DestroyBuffer(b.Instances)
		}
		b.Instances = gpu.InvalidHandle
		b.uploaded = 0
		b.dirty = true
	}
}

func PackPositions(ps []mgl32.Vec3) []byte {
	buf := make([]byte, len(ps)*InstanceSize)
	for i, p := range ps {
		o := i * InstanceSize
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(p.X()))
		binary.LittleEndian.PutUint32(buf[o+4:], math.Float32bits(p.Y()))
		binary.LittleEndian.PutUint32(buf[o+8:], math.Float32bits(p.Z()))
	}
	return buf
}
