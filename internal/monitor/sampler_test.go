package monitor

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bz888/murmur/internal/events"
)

type fakeProbe struct {
	mu      sync.Mutex
	samples []Usage
	err     error
	calls   int
}

func (p *fakeProbe) Sample(context.Context) (Usage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return Usage{}, p.err
	}
	u := p.samples[(p.calls-1)%len(p.samples)]
	return u, nil
}

type collectSink struct {
	mu        sync.Mutex
	snapshots []Snapshot
	err       error
	emits     int
}

func (s *collectSink) Emit(name string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emits++
	if name != events.SystemUsage {
		return errors.New("unexpected event " + name)
	}
	if s.err != nil {
		return s.err
	}
	s.snapshots = append(s.snapshots, payload.(Snapshot))
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emits
}

var (
	cpuPattern = regexp.MustCompile(`^\d+\.\d{2}%$`)
	memPattern = regexp.MustCompile(`^\d+\.\dGB$`)
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.00%", FormatCPU(0))
	assert.Equal(t, "12.35%", FormatCPU(12.345678))
	assert.Equal(t, "100.00%", FormatCPU(100))

	assert.Equal(t, "0.0GB", FormatMem(0))
	assert.Equal(t, "1.0GB", FormatMem(1<<30))
	assert.Equal(t, "7.3GB", FormatMem(7_838_315_315))
	assert.Equal(t, "1.5GB", FormatMem(3<<29))
}

func TestTickEmitsExactlyOncePerCall(t *testing.T) {
	probe := &fakeProbe{samples: []Usage{
		{CPUPercent: 3.14159, MemUsedBytes: 8 << 30},
		{CPUPercent: 97.5, MemUsedBytes: 6_000_000_000},
	}}
	sink := &collectSink{}
	s := NewSampler(probe, sink, time.Hour)

	const ticks = 5
	for i := 0; i < ticks; i++ {
		require.NoError(t, s.Tick(context.Background()))
	}

	require.Len(t, sink.snapshots, ticks)
	for _, snap := range sink.snapshots {
		assert.Regexp(t, cpuPattern, snap.CPU)
		assert.Regexp(t, memPattern, snap.Mem)
	}
	assert.Equal(t, Snapshot{CPU: "3.14%", Mem: "8.0GB"}, sink.snapshots[0])
	assert.Equal(t, Snapshot{CPU: "97.50%", Mem: "5.6GB"}, sink.snapshots[1])
}

func TestTickProbeFailure(t *testing.T) {
	probe := &fakeProbe{err: errors.New("permission denied")}
	sink := &collectSink{}

	err := NewSampler(probe, sink, time.Hour).Tick(context.Background())

	assert.ErrorContains(t, err, "permission denied")
	assert.Zero(t, sink.count())
}

func TestRunKeepsGoingWhenSinkFails(t *testing.T) {
	probe := &fakeProbe{samples: []Usage{{CPUPercent: 1, MemUsedBytes: 1}}}
	sink := &collectSink{err: errors.New("window closed")}
	s := NewSampler(probe, sink, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.count() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sampler did not stop after cancel")
	}
	assert.False(t, s.Running())
}

func TestStartIsIdempotent(t *testing.T) {
	probe := &fakeProbe{samples: []Usage{{CPUPercent: 1, MemUsedBytes: 1}}}
	sink := &collectSink{}
	s := NewSampler(probe, sink, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.True(t, s.Start(ctx))
	assert.False(t, s.Start(ctx))
	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyRunning)

	// first sample is immediate, the next one is an hour away
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, time.Millisecond)
	assert.True(t, s.Running())

	cancel()
	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, time.Millisecond)
	assert.Equal(t, 1, sink.count())
}

func TestRestartAfterStop(t *testing.T) {
	probe := &fakeProbe{samples: []Usage{{CPUPercent: 1, MemUsedBytes: 1}}}
	sink := &collectSink{}
	s := NewSampler(probe, sink, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, s.Start(ctx))
	cancel()
	require.Eventually(t, func() bool { return !s.Running() }, time.Second, time.Millisecond)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	assert.True(t, s.Start(ctx2))
}

func TestHostProbe(t *testing.T) {
	u, err := HostProbe{}.Sample(context.Background())
	if err != nil {
		t.Skipf("host metrics unavailable: %v", err)
	}
	assert.GreaterOrEqual(t, u.CPUPercent, 0.0)
	assert.Greater(t, u.MemUsedBytes, uint64(0))
}
