package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parcelrate/api/internal/pricing"
)

func updateCommandFrom(cfg RateConfig, actor string) UpdateRateConfigCommand {
	return UpdateRateConfigCommand{
		ExpectedVersion: cfg.Version,
		GSTRate:         cfg.GSTRate,
		PickupCity:      cfg.PickupCity,
		PickupCityODA:   cfg.PickupCityODA,
		CityTier1:       cfg.CityTier1,
		CityTier2:       cfg.CityTier2,
		RegionalBase:    cfg.RegionalBase,
		RegionalPerKg:   cfg.RegionalPerKg,
		NationwideBase:  cfg.NationwideBase,
		NationwidePerKg: cfg.NationwidePerKg,
		ODASurcharge:    cfg.ODASurcharge,
		MinWeight:       cfg.MinWeight,
		VolumeRate:      cfg.VolumeRate,
		CancellationFee: cfg.CancellationFee,
		BookingPickup:   cfg.BookingPickup,
		ExtraPerKg:      cfg.ExtraPerKg,
		InsuranceRate:   cfg.InsuranceRate,
		CODFeeRate:      cfg.CODFeeRate,
		CardFeeRate:     cfg.CardFeeRate,
		ActorID:         actor,
	}
}

type rateConfigFixture struct {
	repo      *memoryRateConfigs
	cache     *RateConfigCache
	publisher *capturePublisher
	metrics   *captureMetrics
	svc       RateConfigService
}

func newRateConfigFixture(t *testing.T, repo *memoryRateConfigs) rateConfigFixture {
	t.Helper()
	cache, err := NewRateConfigCache(repo, time.Hour, fixedClock)
	if err != nil {
		t.Fatalf("NewRateConfigCache: %v", err)
	}
	publisher := &capturePublisher{}
	metrics := &captureMetrics{}
	svc, err := NewRateConfigService(RateConfigServiceDeps{
		Configs: repo,
		Cache:   cache,
		Events:  publisher,
		Metrics: metrics,
		Clock:   fixedClock,
	})
	if err != nil {
		t.Fatalf("NewRateConfigService: %v", err)
	}
	return rateConfigFixture{repo: repo, cache: cache, publisher: publisher, metrics: metrics, svc: svc}
}

func TestRateConfigServiceUpdatePublishesNextVersion(t *testing.T) {
	fx := newRateConfigFixture(t, seededConfigs())
	ctx := context.Background()

	if _, err := fx.cache.Current(ctx); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	cmd := updateCommandFrom(*fx.repo.active, "admin-1")
	cmd.CityTier1 = decimal.NewFromInt(350)
	updated, err := fx.svc.Update(ctx, cmd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != 2 || updated.UpdatedBy != "admin-1" || !updated.UpdatedAt.Equal(testNow) {
		t.Fatalf("unexpected updated config: version=%d by=%s at=%s", updated.Version, updated.UpdatedBy, updated.UpdatedAt)
	}

	current, err := fx.cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.Version != 2 || !current.CityTier1.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected cache to serve version 2, got %d", current.Version)
	}
	if got := fx.publisher.types(); len(got) != 1 || got[0] != EventRateConfigUpdated {
		t.Fatalf("expected rate_config.updated event, got %v", got)
	}
	if fx.metrics.updates != 1 {
		t.Fatalf("expected one config update metric, got %d", fx.metrics.updates)
	}
}

func TestRateConfigServiceUpdateStaleVersionConflicts(t *testing.T) {
	fx := newRateConfigFixture(t, seededConfigs())

	cmd := updateCommandFrom(*fx.repo.active, "admin-1")
	cmd.ExpectedVersion = 7
	_, err := fx.svc.Update(context.Background(), cmd)
	if !errors.Is(err, ErrRateConfigConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if fx.repo.active.Version != 1 {
		t.Fatalf("expected active tariff untouched, got version %d", fx.repo.active.Version)
	}
	if len(fx.publisher.events) != 0 {
		t.Fatalf("expected no events on conflict")
	}
}

func TestRateConfigServiceUpdateRejectsInvalidRates(t *testing.T) {
	fx := newRateConfigFixture(t, seededConfigs())
	base := *fx.repo.active

	cases := []struct {
		name  string
		mut   func(*UpdateRateConfigCommand)
		field string
	}{
		{"gst at one", func(c *UpdateRateConfigCommand) { c.GSTRate = decimal.NewFromInt(1) }, "gst_rate"},
		{"negative pickup", func(c *UpdateRateConfigCommand) { c.PickupCity = decimal.NewFromInt(-5) }, "pickup_city"},
		{"negative cod fee", func(c *UpdateRateConfigCommand) { c.CODFeeRate = decimal.RequireFromString("-0.01") }, "cod_fee_rate"},
		{"missing actor", func(c *UpdateRateConfigCommand) { c.ActorID = " " }, "actor_id"},
		{"missing version", func(c *UpdateRateConfigCommand) { c.ExpectedVersion = 0 }, "expected_version"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := updateCommandFrom(base, "admin-1")
			tc.mut(&cmd)
			_, err := fx.svc.Update(context.Background(), cmd)
			if !errors.Is(err, ErrRateConfigInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if got := fieldOf(err); got != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, got)
			}
		})
	}
}

func TestRateConfigServiceSeedDefaults(t *testing.T) {
	fx := newRateConfigFixture(t, &memoryRateConfigs{})
	ctx := context.Background()

	if _, err := fx.svc.Active(ctx); !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected missing configuration before seeding, got %v", err)
	}

	cfg, created, err := fx.svc.SeedDefaults(ctx, "")
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if !created || cfg.Version != 1 || cfg.UpdatedBy != "system" {
		t.Fatalf("unexpected seed result: created=%v version=%d by=%s", created, cfg.Version, cfg.UpdatedBy)
	}
	if !cfg.CancellationFee.Equal(pricing.DefaultRateConfig().CancellationFee) {
		t.Fatalf("expected default cancellation fee")
	}

	_, created, err = fx.svc.SeedDefaults(ctx, "ops")
	if err != nil {
		t.Fatalf("SeedDefaults again: %v", err)
	}
	if created {
		t.Fatalf("expected existing tariff to be kept")
	}
}

func TestRateConfigServiceHistory(t *testing.T) {
	fx := newRateConfigFixture(t, seededConfigs())
	ctx := context.Background()

	cmd := updateCommandFrom(*fx.repo.active, "admin-1")
	if _, err := fx.svc.Update(ctx, cmd); err != nil {
		t.Fatalf("Update: %v", err)
	}

	history, err := fx.svc.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].Version != 2 || history[1].Version != 1 {
		t.Fatalf("expected versions [2 1], got %+v", history)
	}
	if _, err := fx.svc.History(ctx, -1); !errors.Is(err, ErrRateConfigInvalidInput) {
		t.Fatalf("expected invalid input for negative limit, got %v", err)
	}
}

func TestRateConfigServicePublishFailureStillSurfaces(t *testing.T) {
	repo := seededConfigs()
	repo.publishErr = errUnavailable
	fx := newRateConfigFixture(t, repo)

	_, err := fx.svc.Update(context.Background(), updateCommandFrom(*repo.active, "admin-1"))
	if !errors.Is(err, ErrRepositoryUnavailable) {
		t.Fatalf("expected repository unavailable, got %v", err)
	}
}

func TestRateConfigServiceEventFailureDoesNotFailUpdate(t *testing.T) {
	fx := newRateConfigFixture(t, seededConfigs())
	fx.publisher.err = errors.New("pubsub down")

	if _, err := fx.svc.Update(context.Background(), updateCommandFrom(*fx.repo.active, "admin-1")); err != nil {
		t.Fatalf("expected update to succeed despite publish failure, got %v", err)
	}
}
