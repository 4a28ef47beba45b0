package services

import (
	"context"
	"sort"
	"time"
)

const (
	healthStatusOK       = "ok"
	healthStatusDegraded = "degraded"
)

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	Build  BuildInfo
	Checks map[string]HealthChecker
	Clock  func() time.Time
	// CheckTimeout bounds each readiness probe.
	CheckTimeout time.Duration
}

type systemService struct {
	build   BuildInfo
	checks  map[string]HealthChecker
	clock   func() time.Time
	timeout time.Duration
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the system service.
func NewSystemService(deps SystemServiceDeps) SystemService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}
	timeout := deps.CheckTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &systemService{
		build:   build,
		checks:  deps.Checks,
		clock:   func() time.Time { return clock().UTC() },
		timeout: timeout,
	}
}

func (s *systemService) Info() BuildInfo { return s.build }

// Health reports liveness without touching dependencies.
func (s *systemService) Health(context.Context) HealthReport {
	now := s.clock()
	return HealthReport{Status: healthStatusOK, Uptime: now.Sub(s.build.StartedAt), Timestamp: now}
}

// Ready probes every registered dependency.
func (s *systemService) Ready(ctx context.Context) HealthReport {
	report := s.Health(ctx)
	report.Checks = make(map[string]string, len(s.checks))

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name].Ping(checkCtx)
		cancel()
		if err != nil {
			report.Checks[name] = err.Error()
			report.Status = healthStatusDegraded
			continue
		}
		report.Checks[name] = healthStatusOK
	}
	return report
}
