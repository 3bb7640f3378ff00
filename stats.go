package voxmirror

import (
	"fmt"
	"strings"
	"time"

	"github.com/gekko3d/voxmirror/voxelrt/rt/chunk"
	"github.com/gekko3d/voxmirror/voxelrt/rt/extract"
	"github.com/gekko3d/voxmirror/voxelrt/rt/mirror"
)

// WorldStats is the per frame snapshot overlays and the diag feed read.
type WorldStats struct {
	Frame uint64 `json:"frame"`

	Chunks     chunk.Stats `json:"chunks"`
	ChunkDraws int         `json:"chunkDraws"`
	PlantDraws int         `json:"plantDraws"`
	Occlusion  bool        `json:"occlusion"`

	Mirror     mirror.Stats `json:"mirror"`
	MirrorDraw int          `json:"mirrorDraws"`

	Extract extract.QueueStats `json:"extract"`

	Errors int `json:"errors"`

	// FrameTime covers the stages before PostRender when a Profiler is installed.
	FrameTime time.Duration `json:"frameTimeNs"`
}

func (s WorldStats) String() string {
	return fmt.Sprintf("frame %d | %s | chunk draws %d plants %d | mirror visited %d pruned %d draws %d | extract pending %d ready %d | %s",
		s.Frame, s.Chunks, s.ChunkDraws, s.PlantDraws,
		s.Mirror.Visited, s.Mirror.Pruned, s.MirrorDraw,
		s.Extract.Pending, s.Extract.Ready, s.FrameTime.Round(time.Microsecond))
}

// OverlayText is the multi line form drawn by the stats overlay.
func (s WorldStats) OverlayText() string {
	occlusion := "off"
	if s.Occlusion {
		occlusion = "on"
	}
	lines := []string{
		fmt.Sprintf("frame %d  %s", s.Frame, s.FrameTime.Round(time.Microsecond)),
		fmt.Sprintf("chunks %d/%d  visible %d  occluded %d  queries %d", s.Chunks.ActiveSlots, s.Chunks.PoolCapacity, s.Chunks.VisibleSlots, s.Chunks.OccludedSlots, s.Chunks.QueryResults),
		fmt.Sprintf("occlusion %s  chunk draws %d  plant draws %d", occlusion, s.ChunkDraws, s.PlantDraws),
		fmt.Sprintf("mirror visited %d  pruned %d  draws %d", s.Mirror.Visited, s.Mirror.Pruned, s.MirrorDraw),
		fmt.Sprintf("extract pending %d  ready %d  failed %d", s.Extract.Pending, s.Extract.Ready, s.Extract.Failed),
	}
	if s.Errors > 0 {
		lines = append(lines, fmt.Sprintf("errors %d", s.Errors))
	}
	return strings.Join(lines, "\n")
}

// collectStatsSystem gathers the stats of whichever renderers are installed.
func collectStatsSystem(stats *WorldStats, cmd *Commands) {
	app := cmd.app
	*stats = WorldStats{Frame: app.Frame(), Errors: stats.Errors}
	if w, ok := Resource[WorldRenderer](app); ok {
		stats.Chunks = w.Culler.Stats()
		stats.ChunkDraws = w.Draws
		stats.PlantDraws = w.PlantDraws
		stats.Occlusion = w.Culler.OcclusionActive()
		stats.Extract = w.Queue.Stats()
		if w.Err != nil {
			stats.Errors++
		}
	}
	if p, ok := Resource[Profiler](app); ok {
		stats.FrameTime = p.Frame
	}
	if o, ok := Resource[OctreeRenderer](app); ok {
		stats.Mirror = o.Engine.Stats()
		stats.MirrorDraw = o.Draws
		if o.Err != nil {
			stats.Errors++
		}
	}
}
