package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const gb = 1024 * 1024 * 1024

type mockProber struct {
	mock.Mock
}

func (m *mockProber) CPUPercent(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockProber) Memory(ctx context.Context) (uint64, uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Get(1).(uint64), args.Error(2)
}

func (m *mockProber) Disk(ctx context.Context, path string) (uint64, uint64, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(uint64), args.Get(1).(uint64), args.Error(2)
}

func TestInitializeCachesTotals(t *testing.T) {
	prober := &mockProber{}
	prober.On("Memory", mock.Anything).Return(uint64(8*gb), uint64(16*gb), nil)
	prober.On("Disk", mock.Anything, "/").Return(uint64(100*gb), uint64(500*gb), nil)
	prober.On("CPUPercent", mock.Anything).Return(0.0, nil)

	sampler := NewSamplerWithProber(prober, "/")
	totals, err := sampler.Initialize(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 16.0, totals.RAMTotalGB, 1e-9)
	assert.InDelta(t, 500.0, totals.DiskTotalGB, 1e-9)
	assert.Equal(t, totals, sampler.Totals())
}

func TestInitializeFailsWithProbeError(t *testing.T) {
	prober := &mockProber{}
	prober.On("Memory", mock.Anything).Return(uint64(0), uint64(0), errors.New("no /proc"))

	sampler := NewSamplerWithProber(prober, "/")
	_, err := sampler.Initialize(context.Background())

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, "memory total", probeErr.Op)
	prober.AssertNotCalled(t, "Disk", mock.Anything, mock.Anything)
}

func TestSample(t *testing.T) {
	prober := &mockProber{}
	prober.On("Memory", mock.Anything).Return(uint64(8*gb), uint64(16*gb), nil)
	prober.On("Disk", mock.Anything, "/").Return(uint64(120*gb), uint64(500*gb), nil)
	prober.On("CPUPercent", mock.Anything).Return(42.5, nil)

	sampler := NewSamplerWithProber(prober, "/")
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	sampler.now = func() time.Time { return fixed }

	_, err := sampler.Initialize(context.Background())
	require.NoError(t, err)

	sample, err := sampler.Sample(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixed, sample.Timestamp)
	assert.Equal(t, 42.5, sample.CPUPercent)
	assert.InDelta(t, 8.0, sample.RAMUsedGB, 1e-9)
	assert.InDelta(t, 120.0, sample.DiskUsedGB, 1e-9)
	assert.LessOrEqual(t, sample.RAMUsedGB, sampler.Totals().RAMTotalGB)
	assert.LessOrEqual(t, sample.DiskUsedGB, sampler.Totals().DiskTotalGB)
}

func TestSampleDoesNotRequeryTotals(t *testing.T) {
	prober := &mockProber{}
	prober.On("Memory", mock.Anything).Return(uint64(4*gb), uint64(16*gb), nil).Once()
	prober.On("Disk", mock.Anything, "/").Return(uint64(10*gb), uint64(100*gb), nil).Once()
	prober.On("Memory", mock.Anything).Return(uint64(5*gb), uint64(32*gb), nil)
	prober.On("Disk", mock.Anything, "/").Return(uint64(11*gb), uint64(200*gb), nil)
	prober.On("CPUPercent", mock.Anything).Return(1.0, nil)

	sampler := NewSamplerWithProber(prober, "/")
	_, err := sampler.Initialize(context.Background())
	require.NoError(t, err)

	_, err = sampler.Sample(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 16.0, sampler.Totals().RAMTotalGB, 1e-9)
	assert.InDelta(t, 100.0, sampler.Totals().DiskTotalGB, 1e-9)
}

func TestSampleProbeErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(p *mockProber)
		wantOp string
	}{
		{
			name: "cpu failure",
			setup: func(p *mockProber) {
				p.On("CPUPercent", mock.Anything).Return(0.0, errors.New("boom"))
			},
			wantOp: "cpu",
		},
		{
			name: "disk failure",
			setup: func(p *mockProber) {
				p.On("CPUPercent", mock.Anything).Return(3.0, nil)
				p.On("Disk", mock.Anything, "/").Return(uint64(0), uint64(0), errors.New("boom"))
			},
			wantOp: "disk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &mockProber{}
			prober.On("Memory", mock.Anything).Return(uint64(1*gb), uint64(2*gb), nil)
			sampler := NewSamplerWithProber(prober, "/")
			sampler.initialized = true

			tt.setup(prober)

			_, err := sampler.Sample(context.Background())
			var probeErr *ProbeError
			require.ErrorAs(t, err, &probeErr)
			assert.Equal(t, tt.wantOp, probeErr.Op)
		})
	}
}

func TestSampleBeforeInitialize(t *testing.T) {
	sampler := NewSamplerWithProber(&mockProber{}, "/")
	_, err := sampler.Sample(context.Background())

	var probeErr *ProbeError
	assert.ErrorAs(t, err, &probeErr)
}
