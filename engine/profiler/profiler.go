package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Logs stats at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastFPS        float64

	logger *slog.Logger
	now    func() time.Time
}

// ProfilerOption is a functional option applied by NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often stats are logged. Non-positive values keep the 1 second default.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ProfilerOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: the profiler options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per presented frame.
// Logs FPS, heap usage, allocation rate, GC count/pause times and total memory when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("frame stats",
		"fps", fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_pause_us", lastPauseUs,
		"gc_max_pause_us", maxPauseUs,
		"sys_mb", sysMB,
	)

	p.lastFPS = fps
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// FPS returns the frame rate measured over the last completed interval, zero before the first one.
func (p *Profiler) FPS() float64 {
	return p.lastFPS
}
