package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/adapter/ws"
	"github.com/younwookim/motioncore/internal/application/core"
	"github.com/younwookim/motioncore/internal/application/system"
	"github.com/younwookim/motioncore/internal/application/trace"
	"github.com/younwookim/motioncore/internal/ecs"
	"github.com/younwookim/motioncore/internal/event"
	"github.com/younwookim/motioncore/internal/infrastructure/config"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	configDir := flag.String("config", "", "config directory (optional)")
	tracePath := flag.String("trace", "", "write a compressed motion trace to this file")
	flag.Parse()

	cfg := config.Default()
	if *configDir != "" {
		loaded, err := config.NewLoader(os.DirFS(*configDir)).LoadCore()
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	stage := system.NewTileStage(16, []string{
		"####################",
		"#..................#",
		"#..................#",
		"#......####........#",
		"#..................#",
		"#..........##......#",
		"#..................#",
		"####################",
	})

	world := ecs.NewWorld()
	bus := event.NewBus()
	c := core.New(cfg, world, bus, system.NewTileDetector(stage))

	if *tracePath != "" {
		f, err := os.Create(*tracePath)
		if err != nil {
			slog.Error("failed to create trace file", "path", *tracePath, "error", err)
			os.Exit(1)
		}
		rec, err := trace.NewRecorder(f)
		if err != nil {
			slog.Error("failed to create trace recorder", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				slog.Warn("trace close failed", "error", err)
			}
			f.Close()
		}()
		c.SetTracer(rec)
	}

	// One default controllable entity so clients have something to drive.
	id, err := c.Spawn(mgl64.Vec2{48, 32}, 12, 20, false)
	if err != nil {
		slog.Error("failed to spawn entity", "error", err)
		os.Exit(1)
	}
	slog.Info("spawned entity", "id", id)

	bus.Subscribe(event.EventEntityLanded, func(evt any) {
		if e, ok := evt.(event.GroundedEvent); ok {
			slog.Debug("entity landed", "id", e.EntityID, "position", e.Position)
		}
	})

	server := ws.NewServer(c)
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Physics.Timestep * float64(time.Second)))
		defer ticker.Stop()
		for range ticker.C {
			server.LockedTick()
		}
	}()

	http.HandleFunc("/ws", server.Handle)
	slog.Info("listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
