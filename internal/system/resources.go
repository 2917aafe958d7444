package system

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// bytesPerGB converts byte counts to gibibytes.
const bytesPerGB = 1024 * 1024 * 1024

// Sample is one instantaneous reading of CPU, memory and disk utilization.
type Sample struct {
	Timestamp  time.Time
	CPUPercent float64 // 0-100
	RAMUsedGB  float64
	DiskUsedGB float64
}

// Totals holds the capacities captured once per session.
type Totals struct {
	RAMTotalGB  float64
	DiskTotalGB float64
}

// HostInfo describes the machine being sampled.
type HostInfo struct {
	Hostname string
	Platform string
}

// Prober is the operating system interface used by the Sampler.
type Prober interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (used uint64, total uint64, err error)
	Disk(ctx context.Context, path string) (used uint64, total uint64, err error)
}

// ProbeError indicates that an operating system resource query failed.
type ProbeError struct {
	Op  string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Op, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Sampler reads current resource usage. Totals are cached by Initialize and
// are not queried again for the lifetime of the Sampler.
type Sampler struct {
	prober Prober
	volume string
	now    func() time.Time

	totals      Totals
	initialized bool
}

// NewSampler returns a Sampler backed by gopsutil, reading the primary volume.
func NewSampler() *Sampler {
	return NewSamplerWithProber(gopsutilProber{}, PrimaryVolume())
}

// NewSamplerWithProber returns a Sampler using the given prober and volume path.
func NewSamplerWithProber(prober Prober, volume string) *Sampler {
	return &Sampler{
		prober: prober,
		volume: volume,
		now:    time.Now,
	}
}

// Initialize queries total memory and total disk space once.
func (s *Sampler) Initialize(ctx context.Context) (Totals, error) {
	_, ramTotal, err := s.prober.Memory(ctx)
	if err != nil {
		return Totals{}, &ProbeError{Op: "memory total", Err: err}
	}
	_, diskTotal, err := s.prober.Disk(ctx, s.volume)
	if err != nil {
		return Totals{}, &ProbeError{Op: "disk total", Err: err}
	}

	// Prime the CPU counters so the first Sample reports a delta.
	_, _ = s.prober.CPUPercent(ctx)

	s.totals = Totals{
		RAMTotalGB:  float64(ramTotal) / bytesPerGB,
		DiskTotalGB: float64(diskTotal) / bytesPerGB,
	}
	s.initialized = true
	return s.totals, nil
}

// Totals returns the capacities captured by Initialize.
func (s *Sampler) Totals() Totals {
	return s.totals
}

// Volume returns the path of the sampled volume.
func (s *Sampler) Volume() string {
	return s.volume
}

// Sample returns the current resource usage. The CPU reading does not block.
func (s *Sampler) Sample(ctx context.Context) (Sample, error) {
	if !s.initialized {
		return Sample{}, &ProbeError{Op: "sample", Err: fmt.Errorf("sampler not initialized")}
	}

	cpuPercent, err := s.prober.CPUPercent(ctx)
	if err != nil {
		return Sample{}, &ProbeError{Op: "cpu", Err: err}
	}
	ramUsed, _, err := s.prober.Memory(ctx)
	if err != nil {
		return Sample{}, &ProbeError{Op: "memory", Err: err}
	}
	diskUsed, _, err := s.prober.Disk(ctx, s.volume)
	if err != nil {
		return Sample{}, &ProbeError{Op: "disk", Err: err}
	}

	return Sample{
		Timestamp:  s.now(),
		CPUPercent: cpuPercent,
		RAMUsedGB:  float64(ramUsed) / bytesPerGB,
		DiskUsedGB: float64(diskUsed) / bytesPerGB,
	}, nil
}

// GetHostInfo returns the hostname and platform, or an empty HostInfo if they
// are unavailable.
func GetHostInfo(ctx context.Context) HostInfo {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		return HostInfo{}
	}
	platform := info.Platform
	if info.PlatformVersion != "" {
		platform += " " + info.PlatformVersion
	}
	return HostInfo{
		Hostname: info.Hostname,
		Platform: platform,
	}
}

type gopsutilProber struct{}

func (gopsutilProber) CPUPercent(ctx context.Context) (float64, error) {
	// interval=0 reports the delta since the previous call without sleeping
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("no cpu readings")
	}
	return percents[0], nil
}

func (gopsutilProber) Memory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Used, vm.Total, nil
}

func (gopsutilProber) Disk(ctx context.Context, path string) (uint64, uint64, error) {
	du, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	return du.Used, du.Total, nil
}
