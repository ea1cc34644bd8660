package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bz888/murmur/internal/events"
	"github.com/bz888/murmur/internal/logger"
)

const bytesPerGB = 1 << 30

var ErrAlreadyRunning = errors.New("sampler already running")

// Snapshot is the system-usage event payload.
type Snapshot struct {
	CPU string `json:"cpu"`
	Mem string `json:"mem"`
}

// FormatCPU renders a percentage with two decimals, e.g. "12.50%".
func FormatCPU(percent float64) string {
	return fmt.Sprintf("%.2f%%", percent)
}

// FormatMem renders bytes as gigabytes rounded to one decimal, e.g. "7.3GB".
func FormatMem(bytes uint64) string {
	gb := math.Round(float64(bytes)/bytesPerGB*10) / 10
	return fmt.Sprintf("%.1fGB", gb)
}

func NewSnapshot(u Usage) Snapshot {
	return Snapshot{CPU: FormatCPU(u.CPUPercent), Mem: FormatMem(u.MemUsedBytes)}
}

// Sampler emits a Snapshot every interval until its context ends. At most
// one loop runs per Sampler.
type Sampler struct {
	probe    Probe
	sink     events.Sink
	interval time.Duration

	mu      sync.Mutex
	running bool
}

func NewSampler(probe Probe, sink events.Sink, interval time.Duration) *Sampler {
	return &Sampler{probe: probe, sink: sink, interval: interval}
}

// Start runs the loop in the background and returns immediately. It reports
// false when a loop is already running.
func (s *Sampler) Start(ctx context.Context) bool {
	if !s.claim() {
		return false
	}
	go s.loop(ctx)
	return true
}

// Run is the blocking form of Start.
func (s *Sampler) Run(ctx context.Context) error {
	if !s.claim() {
		return ErrAlreadyRunning
	}
	s.loop(ctx)
	return nil
}

func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Tick takes one sample and emits it.
func (s *Sampler) Tick(ctx context.Context) error {
	usage, err := s.probe.Sample(ctx)
	if err != nil {
		return fmt.Errorf("sampling host usage: %w", err)
	}
	if err := s.sink.Emit(events.SystemUsage, NewSnapshot(usage)); err != nil {
		return fmt.Errorf("emitting %s: %w", events.SystemUsage, err)
	}
	return nil
}

func (s *Sampler) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Sampler) loop(ctx context.Context) {
	localLogger := logger.NewLogger("monitor")
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		localLogger.Info("Monitoring stopped")
	}()

	localLogger.Info("Monitoring started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			localLogger.Warn("Skipped usage sample", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
