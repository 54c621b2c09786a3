package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/repositories"
)

// RateConfigServiceDeps bundles collaborators for NewRateConfigService.
type RateConfigServiceDeps struct {
	Configs repositories.RateConfigRepository
	Cache   RateConfigSource
	Events  EventPublisher
	Metrics Metrics
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type rateConfigService struct {
	configs  repositories.RateConfigRepository
	cache    RateConfigSource
	events   EventPublisher
	metrics  Metrics
	validate *validator.Validate
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

var _ RateConfigService = (*rateConfigService)(nil)

// NewRateConfigService constructs the tariff admin service.
func NewRateConfigService(deps RateConfigServiceDeps) (RateConfigService, error) {
	if deps.Configs == nil {
		return nil, errors.New("rate config service: repository is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &rateConfigService{
		configs:  deps.Configs,
		cache:    deps.Cache,
		events:   deps.Events,
		metrics:  metrics,
		validate: newValidator(),
		clock:    utcClock(deps.Clock),
		logger:   logger,
	}, nil
}

func (s *rateConfigService) Active(ctx context.Context) (RateConfig, error) {
	cfg, err := s.configs.Active(ctx)
	if err != nil {
		if isNotFound(err) {
			return RateConfig{}, fmt.Errorf("%w: no active tariff", ErrConfigurationMissing)
		}
		return RateConfig{}, mapRepositoryError(err, nil, nil)
	}
	return cfg, nil
}

// Update publishes a new tariff version built from cmd.
func (s *rateConfigService) Update(ctx context.Context, cmd UpdateRateConfigCommand) (RateConfig, error) {
	cmd.ActorID = strings.TrimSpace(cmd.ActorID)
	if err := s.validate.StructCtx(ctx, cmd); err != nil {
		return RateConfig{}, validationError(ErrRateConfigInvalidInput, err)
	}

	next := RateConfig{
		Version:         cmd.ExpectedVersion + 1,
		GSTRate:         cmd.GSTRate,
		PickupCity:      cmd.PickupCity,
		PickupCityODA:   cmd.PickupCityODA,
		CityTier1:       cmd.CityTier1,
		CityTier2:       cmd.CityTier2,
		RegionalBase:    cmd.RegionalBase,
		RegionalPerKg:   cmd.RegionalPerKg,
		NationwideBase:  cmd.NationwideBase,
		NationwidePerKg: cmd.NationwidePerKg,
		ODASurcharge:    cmd.ODASurcharge,
		MinWeight:       cmd.MinWeight,
		VolumeRate:      cmd.VolumeRate,
		CancellationFee: cmd.CancellationFee,
		BookingPickup:   cmd.BookingPickup,
		ExtraPerKg:      cmd.ExtraPerKg,
		InsuranceRate:   cmd.InsuranceRate,
		CODFeeRate:      cmd.CODFeeRate,
		CardFeeRate:     cmd.CardFeeRate,
		UpdatedAt:       s.clock(),
		UpdatedBy:       cmd.ActorID,
	}
	// Exact decimal bounds; the validator above compares floats.
	if err := pricing.ValidateConfig(&next); err != nil {
		field, _ := pricing.FieldOf(err)
		return RateConfig{}, fieldError(ErrRateConfigInvalidInput, field, "range")
	}

	if err := s.publishVersion(ctx, next, cmd.ExpectedVersion); err != nil {
		return RateConfig{}, err
	}
	return next, nil
}

func (s *rateConfigService) History(ctx context.Context, limit int) ([]RateConfig, error) {
	if limit < 0 {
		return nil, fieldError(ErrRateConfigInvalidInput, "limit", "gte")
	}
	configs, err := s.configs.History(ctx, limit)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	return configs, nil
}

// SeedDefaults publishes the default tariff as version 1 when no tariff exists. The boolean reports
// whether a tariff was written.
func (s *rateConfigService) SeedDefaults(ctx context.Context, actorID string) (RateConfig, bool, error) {
	existing, err := s.configs.Active(ctx)
	switch {
	case err == nil:
		return existing, false, nil
	case !isNotFound(err):
		return RateConfig{}, false, mapRepositoryError(err, nil, nil)
	}

	cfg := pricing.DefaultRateConfig()
	cfg.Version = 1
	cfg.UpdatedAt = s.clock()
	cfg.UpdatedBy = strings.TrimSpace(actorID)
	if cfg.UpdatedBy == "" {
		cfg.UpdatedBy = "system"
	}
	if err := s.publishVersion(ctx, cfg, 0); err != nil {
		if errors.Is(err, ErrRateConfigConflict) {
			current, readErr := s.Active(ctx)
			return current, false, readErr
		}
		return RateConfig{}, false, err
	}
	return cfg, true, nil
}

func (s *rateConfigService) publishVersion(ctx context.Context, cfg RateConfig, expected int) error {
	if err := s.configs.Publish(ctx, cfg, expected); err != nil {
		return mapRepositoryError(err, nil, ErrRateConfigConflict)
	}
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.metrics.ObserveConfigUpdate()
	s.logger(ctx, "rate_config.updated", map[string]any{
		"version": cfg.Version,
		"actor":   cfg.UpdatedBy,
	})
	publish(ctx, s.events, s.logger, DomainEvent{
		Type:        EventRateConfigUpdated,
		AggregateID: "rate_config",
		Reference:   strconv.Itoa(cfg.Version),
		ActorID:     cfg.UpdatedBy,
		OccurredAt:  cfg.UpdatedAt,
		Data: map[string]any{
			"version":         cfg.Version,
			"previousVersion": expected,
		},
	})
	return nil
}
