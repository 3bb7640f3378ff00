package chunk

import (
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
	"github.com/google/uuid"
)

type QueryState uint8

const (
	// QueryNone: no query has been submitted since the slot was filled.
	QueryNone QueryState = iota
	// QueryPending: a query is in flight; nothing may be submitted on top.
	QueryPending
	// QueryResolved: Occluded holds the verdict of the last finished query.
	QueryResolved
)

func (s QueryState) String() string {
	switch s {
	case QueryNone:
		return "none"
	case QueryPending:
		return "pending"
	case QueryResolved:
		return "resolved"
	}
	return "unknown"
}

// Occlusion is the per slot occlusion query state machine.
type Occlusion struct {
	Query gpu.Handle
	State QueryState
	// Samples of the last resolved query, -1 until one resolved.
	Samples  int
	Occluded bool
}

func (o *Occlusion) Pending() bool {
	return o.State == QueryPending
}

// Slot is one entry of the fixed chunk pool. A freed slot keeps its struct
// (and bumps Generation) so it can be refilled without allocating.
type Slot struct {
	InUse bool
	Key   [3]int
	AABB  core.AABB

	Vertices   gpu.Handle
	Indices    gpu.Handle
	IndexCount uint32

	Occlusion Occlusion

	// Indexed is false while the slot is in use but its box was rejected by
	// the spatial index, or its mesh is empty.
	Indexed    bool
	Generation uint32
	Ticket     uuid.UUID
}

// SlotHandle names a slot for as long as it holds the same chunk.
type SlotHandle struct {
	Index      int
	Generation uint32
}
