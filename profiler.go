package voxmirror

import "time"

// Profiler records how long each stage of the current frame took. Stages that
// have not run yet this frame are absent.
type Profiler struct {
	Stages map[string]time.Duration
	Frame  time.Duration
}

func (p *Profiler) Reset() {
	clear(p.Stages)
	p.Frame = 0
}

func (p *Profiler) record(stage string, d time.Duration) {
	if p.Stages == nil {
		p.Stages = make(map[string]time.Duration)
	}
	p.Stages[stage] = d
	p.Frame += d
}

// ProfilerModule times every stage of every frame.
type ProfilerModule struct{}

func (ProfilerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Profiler{})
}
