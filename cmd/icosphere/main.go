// Command icosphere opens a window and draws an instanced, subdivided icosphere with wgpu.
package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-icosphere/engine"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/config"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "icosphere.yaml", "path to the YAML configuration; a missing file uses defaults")
	profiling := flag.Bool("profile", false, "log frame statistics once per second")
	flag.Parse()

	os.Exit(run(*configPath, *profiling))
}

func run(configPath string, profiling bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		return 1
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	eng, err := engine.NewEngine(
		engine.WithConfig(cfg),
		engine.WithProfiling(profiling),
		engine.WithLogger(logger),
	)
	if err != nil {
		logger.Error("start", "error", err)
		return 1
	}
	defer eng.Release()

	if err := eng.Run(); err != nil {
		logger.Error("stopped", "error", err)
		return 1
	}
	return 0
}
