package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Result is one finished chunk extraction. Key is the grid aligned origin of
// the chunk.
type Result struct {
	Key    [3]int
	Meshes core.ChunkMeshes
	Plants []mgl32.Vec3
	Ticket uuid.UUID
}

// Producer is what the chunk pool drains. TryPop never blocks.
type Producer interface {
	TryPop() (Result, bool)
	AllowReExtraction(key [3]int) bool
}

// Scheduler accepts chunk positions for extraction.
type Scheduler interface {
	Schedule(key [3]int) bool
}

// Mesher turns a voxel region into meshes and plant positions. It runs on
// worker goroutines.
type Mesher interface {
	Mesh(ctx context.Context, region core.Region) (core.ChunkMeshes, []mgl32.Vec3, error)
}

type MesherFunc func(ctx context.Context, region core.Region) (core.ChunkMeshes, []mgl32.Vec3, error)

func (f MesherFunc) Mesh(ctx context.Context, region core.Region) (core.ChunkMeshes, []mgl32.Vec3, error) {
	return f(ctx, region)
}

type QueueStats struct {
	// Known counts positions scheduled or extracted and not yet released.
	Known     int
	Pending   int
	Ready     int
	Extracted int
	Failed    int
	Discarded int
}

// Queue hands chunk positions to a worker pool and collects the results for a
// single consumer. A position is extracted at most once until
// AllowReExtraction releases it.
type Queue struct {
	meshSize [3]int
	logger   core.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	known   map[[3]int]struct{}
	tasks   [][3]int
	results []Result
	closed  bool
	stats   QueueStats
	wg      sync.WaitGroup
}

func NewQueue(meshSize [3]int, logger core.Logger) *Queue {
	q := &Queue{
		meshSize: meshSize,
		logger:   core.OrNop(logger),
		known:    make(map[[3]int]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// GridPos snaps a voxel position to the origin of its chunk.
func (q *Queue) GridPos(p [3]int) [3]int {
	var out [3]int
	for i := range p {
		out[i] = floorDiv(p[i], q.meshSize[i]) * q.meshSize[i]
	}
	return out
}

// Region is the voxel region covered by the chunk at key.
func (q *Queue) Region(key [3]int) core.Region {
	return core.Region{
		Lower: key,
		Upper: [3]int{key[0] + q.meshSize[0] - 1, key[1] + q.meshSize[1] - 1, key[2] + q.meshSize[2] - 1},
	}
}

// Schedule queues the chunk containing p. It returns false if that chunk is
// already scheduled or extracted.
func (q *Queue) Schedule(p [3]int) bool {
	key := q.GridPos(p)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if _, ok := q.known[key]; ok {
		return false
	}
	q.known[key] = struct{}{}
	q.tasks = append(q.tasks, key)
	q.cond.Signal()
	return true
}

func (q *Queue) AllowReExtraction(key [3]int) bool {
	key = q.GridPos(key)
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.known[key]; !ok {
		return false
	}
	delete(q.known, key)
	for i, t := range q.tasks {
		if t == key {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			break
		}
	}
	return true
}

// Push adds a finished result directly, bypassing the workers.
func (q *Queue) Push(r Result) {
	r.Key = q.GridPos(r.Key)
	if r.Ticket == uuid.Nil {
		r.Ticket = uuid.New()
	}
	q.mu.Lock()
	q.known[r.Key] = struct{}{}
	q.results = append(q.results, r)
	q.mu.Unlock()
}

func (q *Queue) TryPop() (Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.results) == 0 {
		return Result{}, false
	}
	r := q.results[0]
	q.results[0] = Result{}
	q.results = q.results[1:]
	return r, true
}

func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := q.stats
	st.Known = len(q.known)
	st.Pending = len(q.tasks)
	st.Ready = len(q.results)
	return st
}

// Start runs workers goroutines that mesh scheduled chunks until ctx is done
// or Close is called.
func (q *Queue) Start(ctx context.Context, workers int, m Mesher) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, m)
	}
	go func() {
		<-ctx.Done()
		q.Close()
	}()
}

// Close stops the workers after their current chunk and drops queued tasks.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.tasks = nil
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Wait blocks until every worker has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) next() ([3]int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return [3]int{}, false
	}
	key := q.tasks[0]
	q.tasks = q.tasks[1:]
	return key, true
}

func (q *Queue) worker(ctx context.Context, m Mesher) {
	defer q.wg.Done()
	for {
		key, ok := q.next()
		if !ok {
			return
		}
		meshes, plants, err := q.mesh(ctx, m, key)

		q.mu.Lock()
		switch {
		case err != nil:
			q.stats.Failed++
			delete(q.known, key)
			q.mu.Unlock()
			q.logger.Warnf("extract: chunk %v: %v", key, err)
			continue
		case !q.isKnown(key):
			// released while meshing, the consumer no longer wants it
			q.stats.Discarded++
		default:
			q.stats.Extracted++
			q.results = append(q.results, Result{Key: key, Meshes: meshes, Plants: plants, Ticket: uuid.New()})
		}
		q.mu.Unlock()
	}
}

func (q *Queue) isKnown(key [3]int) bool {
	_, ok := q.known[key]
	return ok
}

func (q *Queue) mesh(ctx context.Context, m Mesher, key [3]int) (meshes core.ChunkMeshes, plants []mgl32.Vec3, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mesher panic: %v", r)
		}
	}()
	return m.Mesh(ctx, q.Region(key))
}
