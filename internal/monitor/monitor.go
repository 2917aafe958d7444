// Package monitor drives periodic sampling and, while a session is active,
// recording. It owns no timer of its own except in Run; callers such as the
// terminal UI invoke Tick from their own event loop.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/atinylittleshell/resmon/internal/recorder"
	"github.com/atinylittleshell/resmon/internal/system"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	MinInterval     = 500 * time.Millisecond
	MaxInterval     = 5000 * time.Millisecond
	DefaultInterval = 1000 * time.Millisecond
)

// Sampler reads host resource usage.
type Sampler interface {
	Initialize(ctx context.Context) (system.Totals, error)
	Sample(ctx context.Context) (system.Sample, error)
}

// Recorder persists samples while a session is active.
type Recorder interface {
	Start(now time.Time) error
	Stop()
	Recording() bool
	Record(sample system.Sample) error
	Elapsed() time.Duration
}

// Snapshot is what the presentation layer renders after each tick.
type Snapshot struct {
	Sample      system.Sample
	Totals      system.Totals
	RAMPercent  float64
	DiskPercent float64
	Recording   bool
	Elapsed     string
}

// Monitor combines a Sampler and a Recorder under a single tick interval.
type Monitor struct {
	sampler  Sampler
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	onTick   func(Snapshot)

	totals         system.Totals
	interval       time.Duration
	activeInterval time.Duration
	last           Snapshot
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.interval = ClampInterval(d)
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithTickHandler registers fn to receive the snapshot of every tick run by Run.
func WithTickHandler(fn func(Snapshot)) Option {
	return func(m *Monitor) {
		m.onTick = fn
	}
}

func New(sampler Sampler, rec Recorder, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		sampler:  sampler,
		recorder: rec,
		logger:   logger,
		now:      time.Now,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.activeInterval = m.interval
	return m
}

// ClampInterval bounds d to [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	return lo.Clamp(d, MinInterval, MaxInterval)
}

// Initialize captures the session totals and takes the first sample.
// A failure here is fatal for the caller.
func (m *Monitor) Initialize(ctx context.Context) error {
	totals, err := m.sampler.Initialize(ctx)
	if err != nil {
		return err
	}
	m.totals = totals
	m.last = Snapshot{Totals: totals}
	m.logger.Info("sampler initialized",
		zap.Float64("ram_total_gb", totals.RAMTotalGB),
		zap.Float64("disk_total_gb", totals.DiskTotalGB),
	)

	if _, err := m.Tick(ctx); err != nil {
		m.logger.Warn("initial sample failed", zap.Error(err))
	}
	return nil
}

// SetInterval changes the configured interval. A running session keeps the
// interval it was started with.
func (m *Monitor) SetInterval(d time.Duration) time.Duration {
	m.interval = ClampInterval(d)
	return m.interval
}

// Interval returns the configured interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// TickInterval returns the interval the driver should tick at right now.
func (m *Monitor) TickInterval() time.Duration {
	if m.recorder.Recording() {
		return m.activeInterval
	}
	return m.interval
}

func (m *Monitor) Recording() bool {
	return m.recorder.Recording()
}

// Start begins a recording session using the currently configured interval.
func (m *Monitor) Start() error {
	if err := m.recorder.Start(m.now()); err != nil {
		return err
	}
	m.activeInterval = m.interval
	m.last.Recording = true
	m.last.Elapsed = recorder.FormatElapsed(0)
	m.logger.Debug("session interval", zap.Duration("interval", m.activeInterval))
	return nil
}

func (m *Monitor) Stop() {
	m.recorder.Stop()
	m.last.Recording = false
	m.last.Elapsed = ""
}

// Last returns the most recent snapshot.
func (m *Monitor) Last() Snapshot {
	return m.last
}

// Tick samples once and records the sample if a session is active. On a
// probe failure the previous snapshot is returned unchanged along with the
// error. A storage failure still updates the snapshot.
func (m *Monitor) Tick(ctx context.Context) (Snapshot, error) {
	sample, err := m.sampler.Sample(ctx)
	if err != nil {
		m.logger.Warn("sample failed, keeping previous values", zap.Error(err))
		return m.last, err
	}

	var recordErr error
	if m.recorder.Recording() {
		if recordErr = m.recorder.Record(sample); recordErr != nil {
			m.logger.Warn("failed to record sample", zap.Error(recordErr))
		}
	}

	m.last = m.snapshot(sample)
	return m.last, recordErr
}

// Run records a session, ticking at the session interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Start(); err != nil && !errors.Is(err, recorder.ErrAlreadyRecording) {
		return err
	}
	defer m.Stop()

	ticker := time.NewTicker(m.activeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := m.Tick(ctx)
			var probeErr *system.ProbeError
			if errors.As(err, &probeErr) {
				continue
			}
			if m.onTick != nil {
				m.onTick(snap)
			}
		}
	}
}

func (m *Monitor) snapshot(sample system.Sample) Snapshot {
	snap := Snapshot{
		Sample:      sample,
		Totals:      m.totals,
		RAMPercent:  percent(sample.RAMUsedGB, m.totals.RAMTotalGB),
		DiskPercent: percent(sample.DiskUsedGB, m.totals.DiskTotalGB),
		Recording:   m.recorder.Recording(),
	}
	if snap.Recording {
		snap.Elapsed = recorder.FormatElapsed(m.recorder.Elapsed())
	}
	return snap
}

func percent(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used / total * 100
}
