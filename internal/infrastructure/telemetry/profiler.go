package telemetry

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig configures continuous profiling with Pyroscope
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string // e.g. http://pyroscope:4040
	ApplicationName string

	// Grafana Cloud credentials; both or neither
	BasicAuthUser     string
	BasicAuthPassword string

	// ProfileTypes lists profile names as pyroscope spells them ("cpu",
	// "alloc_space", "mutex_count", ...). Empty means cpu plus alloc and inuse space.
	ProfileTypes []string

	MutexProfileFraction int // default 5, applied only when a mutex profile is enabled
	BlockProfileRate     int // default 5, applied only when a block profile is enabled
}

func (c ProfilerConfig) validate() error {
	var errs []error
	if c.ServerAddress == "" {
		errs = append(errs, errors.New("profiler server address is required"))
	}
	if c.ApplicationName == "" {
		errs = append(errs, errors.New("profiler application name is required"))
	}
	if (c.BasicAuthUser == "") != (c.BasicAuthPassword == "") {
		errs = append(errs, errors.New("profiler basic auth needs both user and password"))
	}
	return errors.Join(errs...)
}

// hostTags label profiles with the host or pod they came from
func hostTags() map[string]string {
	tags := map[string]string{}
	if v := os.Getenv("HOSTNAME"); v != "" {
		tags["hostname"] = v
	}
	if v := os.Getenv("POD_NAME"); v != "" {
		tags["pod"] = v
	}
	return tags
}

// Profiler owns the Pyroscope session. A disabled profiler is a no-op.
type Profiler struct {
	session  *pyroscope.Profiler
	logger   *zap.Logger
	stopOnce sync.Once
	stopErr  error
}

// NewProfiler validates cfg and starts uploading profiles when enabled
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger.Named("profiler")}
	if !cfg.Enabled {
		p.logger.Info("continuous profiling disabled")
		return p, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	types, err := parseProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}
	if hasProfileType(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration) {
		runtime.SetMutexProfileFraction(positiveOr(cfg.MutexProfileFraction, 5))
	}
	if hasProfileType(types, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration) {
		runtime.SetBlockProfileRate(positiveOr(cfg.BlockProfileRate, 5))
	}

	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		// SugaredLogger already has the Infof/Debugf/Errorf set pyroscope wants
		Logger:       logger.Named("pyroscope").Sugar(),
		Tags:         hostTags(),
		ProfileTypes: types,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	p.session = session

	p.logger.Info("pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Any("profile_types", types),
	)
	return p, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// defaultProfileTypes are collected when no profile types are configured.
var defaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
}

var knownProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

// parseProfileTypes maps configured names onto pyroscope profile types,
// ignoring case and duplicates.
func parseProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	if len(names) == 0 {
		return slices.Clone(defaultProfileTypes), nil
	}

	types := make([]pyroscope.ProfileType, 0, len(names))
	for _, name := range names {
		t := pyroscope.ProfileType(strings.ToLower(strings.TrimSpace(name)))
		if !slices.Contains(knownProfileTypes, t) {
			return nil, fmt.Errorf("unknown profile type %q", t)
		}
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types, nil
}

func hasProfileType(types []pyroscope.ProfileType, want ...pyroscope.ProfileType) bool {
	return slices.ContainsFunc(want, func(w pyroscope.ProfileType) bool {
		return slices.Contains(types, w)
	})
}

// Stop flushes pending profiles. Later calls return the first call's result.
func (p *Profiler) Stop() error {
	p.stopOnce.Do(func() {
		if p.session == nil {
			return
		}
		if err := p.session.Stop(); err != nil {
			p.stopErr = fmt.Errorf("stop pyroscope: %w", err)
			return
		}
		p.logger.Info("pyroscope profiler stopped")
	})
	return p.stopErr
}

// IsEnabled reports whether profiles are being uploaded
func (p *Profiler) IsEnabled() bool {
	return p.session != nil
}
