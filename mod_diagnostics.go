package voxmirror

import (
	"image"

	"github.com/gekko3d/voxmirror/voxelrt/rt/diag"
)

// DiagnosticsModule collects WorldStats after every frame. With a Hub it
// publishes them every PublishEvery frames and applies the culling toggles
// clients send back.
type DiagnosticsModule struct {
	Hub          *diag.Hub
	PublishEvery int
	// LogEvery writes the stats line to the logger every LogEvery frames.
	LogEvery int
	// Overlay, when set, redraws Diagnostics.Image every PublishEvery frames.
	Overlay *diag.Overlay
}

type Diagnostics struct {
	Hub          *diag.Hub
	PublishEvery int
	LogEvery     int
	Published    int

	Overlay *diag.Overlay
	Image   *image.RGBA
}

func (mod DiagnosticsModule) Install(app *App, cmd *Commands) {
	every := mod.PublishEvery
	if every <= 0 {
		every = 1
	}
	cmd.AddResources(&WorldStats{}, &Diagnostics{Hub: mod.Hub, PublishEvery: every, LogEvery: mod.LogEvery, Overlay: mod.Overlay})
	cmd.UseSystem(System(collectStatsSystem).InStage(PostRender))
	cmd.UseSystem(System(diagnosticsSystem).InStage(PostRender))
}

func diagnosticsSystem(d *Diagnostics, stats *WorldStats, cmd *Commands) {
	app := cmd.app
	if d.LogEvery > 0 && stats.Frame%uint64(d.LogEvery) == 0 {
		app.Logger().Infof("%s", stats)
	}
	if d.Overlay != nil && stats.Frame%uint64(d.PublishEvery) == 0 {
		d.Image = d.Overlay.Render(stats.OverlayText())
	}
	if d.Hub == nil {
		return
	}
	if w, ok := Resource[WorldRenderer](app); ok {
		for _, c := range d.Hub.Controls() {
			applyControl(app.Logger(), w, c)
		}
	}
	if stats.Frame%uint64(d.PublishEvery) == 0 {
		d.Hub.Publish(*stats)
		d.Published++
	}
}

func applyControl(logger Logger, w *WorldRenderer, c diag.Control) {
	cfg := w.Culler.Config()
	if c.Occlusion != nil {
		cfg.Occlusion = *c.Occlusion
	}
	if c.ShowOccluded != nil {
		cfg.ShowOccluded = *c.ShowOccluded
	}
	if c.Threshold != nil && *c.Threshold >= 0 {
		cfg.Threshold = *c.Threshold
	}
	if cfg != w.Culler.Config() {
		logger.Infof("culling: occlusion %v threshold %d show occluded %v", cfg.Occlusion, cfg.Threshold, cfg.ShowOccluded)
		w.Culler.SetConfig(cfg)
	}
}
