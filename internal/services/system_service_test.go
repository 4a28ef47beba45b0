package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSystemServiceReadyReportsDegradedChecks(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Second)
	svc := NewSystemService(SystemServiceDeps{
		Build: BuildInfo{Name: "taskboard-api", Version: "1.0.0", StartedAt: start},
		Checks: map[string]HealthChecker{
			"database": HealthCheckerFunc(func(context.Context) error { return nil }),
			"storage":  HealthCheckerFunc(func(context.Context) error { return errors.New("bucket missing") }),
		},
		Clock: func() time.Time { return now },
	})

	health := svc.Health(context.Background())
	if health.Status != "ok" || health.Uptime != 90*time.Second {
		t.Fatalf("unexpected health %+v", health)
	}

	ready := svc.Ready(context.Background())
	if ready.Status != "degraded" {
		t.Fatalf("expected degraded, got %s", ready.Status)
	}
	if ready.Checks["database"] != "ok" || ready.Checks["storage"] != "bucket missing" {
		t.Fatalf("unexpected checks %+v", ready.Checks)
	}
}
