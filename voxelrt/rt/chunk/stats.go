package chunk

import "fmt"

// Stats is the observation point for overlays. VisibleSlots always equals
// QueryResults - OccludedSlots.
type Stats struct {
	ActiveSlots   int `json:"active"`
	VisibleSlots  int `json:"visible"`
	OccludedSlots int `json:"occluded"`
	PoolCapacity  int `json:"capacity"`
	OctreeSize    int `json:"octreeSize"`
	QueryResults  int `json:"queryResults"`

	Placed   int `json:"placed"`
	Evicted  int `json:"evicted"`
	Dropped  int `json:"dropped"`
	Rejected int `json:"rejected"`
}

func (s Stats) String() string {
	return fmt.Sprintf("active %d/%d visible %d occluded %d octree %d dropped %d rejected %d",
		s.ActiveSlots, s.PoolCapacity, s.VisibleSlots, s.OccludedSlots, s.OctreeSize, s.Dropped, s.Rejected)
}
