package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseProfileTypes(t *testing.T) {
	t.Run("empty selects defaults", func(t *testing.T) {
		types, err := parseProfileTypes(nil)
		require.NoError(t, err)
		assert.Equal(t, defaultProfileTypes, types)

		// the defaults must not be aliased
		types[0] = pyroscope.ProfileGoroutines
		assert.Equal(t, pyroscope.ProfileCPU, defaultProfileTypes[0])
	})

	t.Run("case and duplicates", func(t *testing.T) {
		types, err := parseProfileTypes([]string{" CPU", "cpu", "Mutex_Count"})
		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileMutexCount}, types)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := parseProfileTypes([]string{"cpu", "heap"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"heap"`)
	})
}

func TestHasProfileType(t *testing.T) {
	types := []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileBlockDuration}
	assert.True(t, hasProfileType(types, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration))
	assert.False(t, hasProfileType(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration))
	assert.False(t, hasProfileType(nil, pyroscope.ProfileCPU))
}

func TestNewProfiler(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("disabled", func(t *testing.T) {
		p, err := NewProfiler(ProfilerConfig{Enabled: false}, logger)
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("requires server address", func(t *testing.T) {
		_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "installments"}, logger)
		assert.Error(t, err)
	})

	t.Run("requires application name", func(t *testing.T) {
		_, err := NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, logger)
		assert.Error(t, err)
	})

	t.Run("rejects unknown profile type", func(t *testing.T) {
		_, err := NewProfiler(ProfilerConfig{
			Enabled:         true,
			ServerAddress:   "http://localhost:4040",
			ApplicationName: "installments",
			ProfileTypes:    []string{"wall"},
		}, logger)
		assert.Error(t, err)
	})
}

func TestProfileLabels_Pairs(t *testing.T) {
	pairs := ProfileLabels{
		Operation: "register_payment",
		Route:     "/api/v1/obligations/" + strings.Repeat("x", MaxLabelValueLength),
		Currency:  "PEN",
	}.pairs()

	require.Len(t, pairs, 6)
	assert.Equal(t, []string{ProfilingLabelOperation, "register_payment"}, pairs[:2])
	assert.Equal(t, ProfilingLabelRoute, pairs[2])
	assert.Len(t, pairs[3], MaxLabelValueLength)
	assert.Equal(t, []string{ProfilingLabelCurrency, "PEN"}, pairs[4:])

	assert.Empty(t, ProfileLabels{}.pairs())
}

func TestProfile(t *testing.T) {
	calls := 0
	Profile(context.Background(), ProfileLabels{}, func(context.Context) { calls++ })
	Profile(context.Background(), ProfileLabels{Operation: "sweep_statuses"}, func(ctx context.Context) {
		v, ok := pprof.Label(ctx, ProfilingLabelOperation)
		assert.True(t, ok)
		assert.Equal(t, "sweep_statuses", v)
		calls++
	})
	assert.Equal(t, 2, calls)
}

func TestProfilerConfig_Validate(t *testing.T) {
	err := ProfilerConfig{Enabled: true, BasicAuthUser: "grafana"}.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server address")
	assert.Contains(t, err.Error(), "application name")
	assert.Contains(t, err.Error(), "basic auth")

	assert.NoError(t, ProfilerConfig{ServerAddress: "http://localhost:4040", ApplicationName: "installments"}.validate())
}
