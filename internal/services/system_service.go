package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/repositories"
)

const tariffCheckName = "tariff"

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	// Configs, when set, adds a tariff check reporting whether quotes can be served.
	Configs RateConfigSource
	Clock   func() time.Time
	Build   BuildInfo
}

type systemService struct {
	healthRepo repositories.HealthRepository
	configs    RateConfigSource
	clock      func() time.Time
	build      BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the service behind /healthz and /readyz.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}

	clock := utcClock(deps.Clock)
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}

	return &systemService{
		healthRepo: deps.HealthRepository,
		configs:    deps.Configs,
		clock:      clock,
		build:      build,
	}, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.healthRepo.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.clock()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	report.Version = firstNonEmpty(report.Version, s.build.Version)
	report.CommitSHA = firstNonEmpty(report.CommitSHA, s.build.CommitSHA)
	report.Environment = firstNonEmpty(report.Environment, s.build.Environment)
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	checks := make(map[string]domain.SystemHealthCheck, len(report.Checks)+1)
	for name, check := range report.Checks {
		checks[name] = check
	}
	report.Checks = checks

	if s.configs != nil {
		report.Checks[tariffCheckName] = s.tariffCheck(ctx, now)
		report.Status = ""
	}
	if strings.TrimSpace(report.Status) == "" {
		report.Status = deriveStatus(report.Checks)
	}
	return report, nil
}

// tariffCheck reports degraded while no tariff is published: the service is up but cannot price.
func (s *systemService) tariffCheck(ctx context.Context, now time.Time) domain.SystemHealthCheck {
	start := time.Now()
	cfg, err := s.configs.Current(ctx)
	check := domain.SystemHealthCheck{Latency: time.Since(start), CheckedAt: now}
	switch {
	case err == nil:
		check.Status = domain.HealthStatusOK
		check.Detail = "version " + strconv.Itoa(cfg.Version)
	case errors.Is(err, ErrConfigurationMissing):
		check.Status = domain.HealthStatusDegraded
		check.Detail = "no active tariff"
	default:
		check.Status = domain.HealthStatusError
		check.Error = err.Error()
	}
	return check
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func deriveStatus(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusOK, "":
			continue
		case domain.HealthStatusError:
			return domain.HealthStatusError
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
