package chunk

import (
	"errors"
	"fmt"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

type CullConfig struct {
	Occlusion bool
	// Threshold is the sample count below which a chunk counts as occluded.
	Threshold int
	// ShowOccluded inverts the draw list: only occluded chunks are drawn.
	ShowOccluded bool
}

// Culler decides every frame which pool slots get drawn: frustum first, then
// hardware occlusion queries when enabled. Query results arrive frames late;
// until then a slot keeps its previous verdict.
type Culler struct {
	pool   *Pool
	device gpu.Device
	logger core.Logger
	cfg    CullConfig

	disabled string

	candidates []int
	drawList   []int
	lastPlanes [6]mgl32.Vec4
	cached     bool

	visible  int
	occluded int
}

func NewCuller(pool *Pool, cfg CullConfig, logger core.Logger) *Culler {
	return &Culler{
		pool:   pool,
		device: pool.device,
		logger: core.OrNop(logger),
		cfg:    cfg,
	}
}

func (c *Culler) Config() CullConfig { return c.cfg }

func (c *Culler) SetConfig(cfg CullConfig) {
	c.cfg = cfg
}

// Disable turns occlusion culling off for good. Every chunk in the frustum is
// treated as visible from then on.
func (c *Culler) Disable(reason string) {
	if c.disabled != "" {
		return
	}
	c.disabled = reason
	c.logger.Warnf("occlusion culling disabled: %s", reason)
}

func (c *Culler) OcclusionActive() bool {
	return c.cfg.Occlusion && c.disabled == "" && !c.pool.QueriesUnavailable()
}

// Submit issues an occlusion query for s unless one is already in flight, the
// slot has no query, or the camera sits inside the slot's box. It reports
// whether a query was issued.
func (c *Culler) Submit(s *Slot, camera *core.Camera) (bool, error) {
	c.device.SetColorWrites(false)
	defer c.device.SetColorWrites(true)
	return c.submit(s, camera)
}

func (c *Culler) submit(s *Slot, camera *core.Camera) (bool, error) {
	occ := &s.Occlusion
	if occ.Pending() || !occ.Query.Valid() {
		return false, nil
	}
	if s.AABB.ContainsPoint(camera.Position) {
		// the proxy box would be clipped away; never hide the chunk we stand in
		occ.Occluded = false
		return false, nil
	}
	if err := c.device.BeginOcclusionQuery(occ.Query); err != nil {
		if errors.Is(err, gpu.ErrQueryUnavailable) {
			c.Disable(err.Error())
			return false, nil
		}
		return false, fmt.Errorf("begin occlusion query for chunk %v: %w", s.Key, err)
	}
	drawErr := c.device.DrawBox(s.AABB)
	if err := c.device.EndOcclusionQuery(occ.Query); err != nil {
		return false, fmt.Errorf("end occlusion query for chunk %v: %w", s.Key, err)
	}
	occ.State = QueryPending
	if drawErr != nil {
		return true, fmt.Errorf("occlusion proxy for chunk %v: %w", s.Key, drawErr)
	}
	return true, nil
}

// Poll returns whether s is occluded. It never waits: while the query is in
// flight the last verdict is returned unchanged.
func (c *Culler) Poll(s *Slot) bool {
	occ := &s.Occlusion
	if !occ.Pending() {
		return occ.Occluded
	}
	samples, ready := c.device.PollOcclusionQuery(occ.Query)
	if !ready {
		return occ.Occluded
	}
	occ.Samples = samples
	occ.Occluded = samples < c.cfg.Threshold
	occ.State = QueryResolved
	return occ.Occluded
}

// Cull builds this frame's draw list for camera.
func (c *Culler) Cull(camera *core.Camera) error {
	f := camera.Frustum()
	index := c.pool.index
	if !c.cached || f.Planes != c.lastPlanes || index.Dirty() {
		c.candidates = c.candidates[:0]
		c.pool.QueryVisible(&f, func(idx int, _ *Slot) bool {
			c.candidates = append(c.candidates, idx)
			return true
		})
		c.lastPlanes = f.Planes
		c.cached = true
		index.MarkClean()
	}

	var errs []error
	occlusion := c.OcclusionActive()
	if occlusion {
		c.device.SetColorWrites(false)
		for _, idx := range c.candidates {
			if _, err := c.submit(&c.pool.slots[idx], camera); err != nil {
				errs = append(errs, err)
			}
		}
		c.device.SetColorWrites(true)
		occlusion = c.OcclusionActive()
	}

	c.drawList = c.drawList[:0]
	c.visible, c.occluded = 0, 0
	for _, idx := range c.candidates {
		s := &c.pool.slots[idx]
		if occlusion && c.Poll(s) {
			c.occluded++
			if c.cfg.ShowOccluded {
				c.drawList = append(c.drawList, idx)
			}
			continue
		}
		c.visible++
		if !c.cfg.ShowOccluded {
			c.drawList = append(c.drawList, idx)
		}
	}
	return errors.Join(errs...)
}

// DrawList holds the slot indices the last Cull selected.
func (c *Culler) DrawList() []int {
	return c.drawList
}

// Draw issues one draw per listed slot with geometry.
func (c *Culler) Draw() (int, error) {
	draws := 0
	var errs []error
	for _, idx := range c.drawList {
		s := &c.pool.slots[idx]
		if s.IndexCount == 0 {
			continue
		}
		if err := c.device.BindAndDraw(s.Vertices, s.Indices, s.IndexCount); err != nil {
			errs = append(errs, fmt.Errorf("draw chunk %v: %w", s.Key, err))
			continue
		}
		draws++
	}
	return draws, errors.Join(errs...)
}

// Stats combines the pool counters with the last Cull.
func (c *Culler) Stats() Stats {
	st := c.pool.Stats()
	st.QueryResults = len(c.candidates)
	st.VisibleSlots = c.visible
	st.OccludedSlots = c.occluded
	return st
}
