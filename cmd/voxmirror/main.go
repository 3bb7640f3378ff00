package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gekko3d/voxmirror"
	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gekko3d/voxmirror/voxelrt/rt/diag"
	"github.com/gekko3d/voxmirror/voxelrt/rt/extract"
	"github.com/gekko3d/voxmirror/voxelrt/rt/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to voxmirror.yaml (built-in defaults when empty)")
		frames     = flag.Int("frames", 600, "frames to run (0 runs until interrupted)")
		backend    = flag.String("backend", voxmirror.BackendMemory, "gpu backend: memory or wgpu")
		diagAddr   = flag.String("diag", "", "diagnostics websocket listen address (overrides diag.addr)")
		workers    = flag.Int("workers", 0, "extraction workers (overrides extract.workers when > 0)")
		seed       = flag.Int64("seed", 1337, "terrain seed")
		speed      = flag.Float64("speed", 2, "camera speed in voxels per frame")
		turn       = flag.Float64("turn", 0.002, "camera yaw change per frame in radians")
		editEvery  = flag.Int("edit_every", 60, "touch one octree leaf every N frames (0 disables)")
		logEvery   = flag.Int("log_every", 120, "log world stats every N frames (0 disables)")
		overlay    = flag.String("overlay", "", "write the final stats overlay to this PNG")
		fontPath   = flag.String("font", "", "TrueType font for the overlay (built-in face when empty)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger := core.NewDefaultLogger("voxmirror", *debug)

	cfg, err := voxmirror.Load(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger.SetDebug(true)
	}
	if *workers > 0 {
		cfg.Extract.Workers = *workers
	}
	if addr := strings.TrimSpace(*diagAddr); addr != "" {
		cfg.Diag.Addr = addr
	}

	tree, err := voxel.NewOctree(cfg.OctreeRegion(), cfg.Octree.BaseNodeSize)
	if err != nil {
		logger.Errorf("octree: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	terrain := NewTerrain(*seed)
	queue := extract.NewQueue(cfg.Pool.MeshSize, logger)
	queue.Start(ctx, cfg.Extract.Workers, terrain)

	var hub *diag.Hub
	var srv *http.Server
	if cfg.Diag.Addr != "" {
		hub = diag.NewHub(logger)
		mux := http.NewServeMux()
		mux.Handle("/v1/stats", hub)
		srv = &http.Server{Addr: cfg.Diag.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Infof("diagnostics listening on %s", cfg.Diag.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("diagnostics server: %v", err)
			}
		}()
	}

	var ov *diag.Overlay
	if *overlay != "" {
		ov = diag.NewOverlay()
		if *fontPath != "" {
			if ov, err = diag.NewOverlayFromFont(*fontPath, 14); err != nil {
				logger.Errorf("overlay font: %v", err)
				os.Exit(1)
			}
		}
	}

	app := voxmirror.NewAppBuilder().UseModule(
		voxmirror.LoggingModule{Prefix: "voxmirror", Debug: logger.DebugEnabled()},
		voxmirror.TimeModule{},
		voxmirror.ProfilerModule{},
		voxmirror.GPUModule{Backend: *backend},
		voxmirror.FlyingCameraModule{
			Camera:   cfg.NewCamera(),
			Speed:    float32(*speed),
			Move:     mgl32.Vec3{0, 0, 1},
			TurnRate: float32(*turn),
		},
		TerrainEditModule{Tree: tree, Terrain: terrain, Every: *editEvery},
		voxmirror.OctreeRenderModule{Tree: tree},
		voxmirror.WorldRenderModule{
			Config:    cfg,
			Queue:     queue,
			Schedule:  true,
			PlantMesh: PlantMesh(),
		},
		voxmirror.DiagnosticsModule{Hub: hub, PublishEvery: cfg.Diag.PublishEvery, LogEvery: *logEvery, Overlay: ov},
		interruptModule{ctx: ctx},
	).Build()

	start := time.Now()
	ran := app.Run(*frames)
	elapsed := time.Since(start)

	if stats, ok := voxmirror.Resource[voxmirror.WorldStats](app); ok {
		logger.Infof("%s", stats)
		if ov != nil {
			if err := ov.WritePNG(*overlay, stats.OverlayText()); err != nil {
				logger.Errorf("overlay: %v", err)
			} else {
				logger.Infof("overlay written to %s", *overlay)
			}
		}
	}
	logger.Infof("ran %d frames in %s", ran, elapsed.Round(time.Millisecond))

	stop()
	queue.Close()
	queue.Wait()

	if w, ok := voxmirror.Resource[voxmirror.WorldRenderer](app); ok {
		w.Release()
	}
	if o, ok := voxmirror.Resource[voxmirror.OctreeRenderer](app); ok {
		o.Engine.Release()
	}
	if g, ok := voxmirror.Resource[voxmirror.GPU](app); ok {
		g.Release()
	}

	if srv != nil {
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// interruptModule quits the app once ctx is done.
type interruptModule struct {
	ctx context.Context
}

type interrupt struct {
	ctx context.Context
}

func (m interruptModule) Install(app *voxmirror.App, cmd *voxmirror.Commands) {
	cmd.AddResources(&interrupt{ctx: m.ctx})
	cmd.UseSystem(voxmirror.System(interruptSystem).InStage(voxmirror.Finale))
}

func interruptSystem(i *interrupt, cmd *voxmirror.Commands) {
	if i.ctx.Err() != nil {
		cmd.Quit()
	}
}
