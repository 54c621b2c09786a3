package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/pricing"
)

func smallParcel(mode domain.PaymentMode) ShipmentRequest {
	return ShipmentRequest{
		Weight: decimal.NewFromInt(5),
		Dimensions: domain.Dimensions{
			Length: decimal.NewFromInt(10),
			Width:  decimal.NewFromInt(10),
			Height: decimal.NewFromInt(10),
		},
		PaymentMode: mode,
	}
}

func newTestPricingService(t *testing.T, configs *memoryRateConfigs, zones *memoryZones, metrics Metrics) PricingService {
	t.Helper()
	cache, err := NewRateConfigCache(configs, time.Minute, fixedClock)
	if err != nil {
		t.Fatalf("NewRateConfigCache: %v", err)
	}
	svc, err := NewPricingService(PricingServiceDeps{Configs: cache, Zones: zones, Metrics: metrics, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewPricingService: %v", err)
	}
	return svc
}

func TestPricingServiceQuoteUsesActiveTariff(t *testing.T) {
	metrics := &captureMetrics{}
	svc := newTestPricingService(t, seededConfigs(), newMemoryZones(), metrics)

	shipment := smallParcel("")
	shipment.Origin = domain.OriginCity
	shipment.Distance = decimal.NewFromInt(3)
	shipment.Weight = decimal.NewFromInt(2)

	got, err := svc.Quote(context.Background(), QuoteCommand{Shipment: shipment})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got.Total.StringFixed(2) != "472.00" {
		t.Fatalf("expected total 472.00, got %s", got.Total.StringFixed(2))
	}
	if got.ConfigVersion != 1 {
		t.Fatalf("expected config version 1, got %d", got.ConfigVersion)
	}
	if len(metrics.quotes) != 1 || metrics.quotes[0] != "quote:ok" {
		t.Fatalf("expected quote:ok metric, got %v", metrics.quotes)
	}
}

func TestPricingServiceQuoteUnknownOriginPricesAtZero(t *testing.T) {
	svc := newTestPricingService(t, seededConfigs(), newMemoryZones(), nil)

	for _, origin := range []domain.OriginClass{"", "lunar"} {
		shipment := smallParcel("")
		shipment.Origin = origin
		got, err := svc.Quote(context.Background(), QuoteCommand{Shipment: shipment})
		if err != nil {
			t.Fatalf("origin %q: expected no error, got %v", origin, err)
		}
		if !got.Pickup.IsZero() || !got.Delivery.IsZero() || !got.Total.IsZero() {
			t.Fatalf("origin %q: expected zero charges, got %+v", origin, got)
		}
	}
}

func TestPricingServiceQuoteWithoutTariff(t *testing.T) {
	metrics := &captureMetrics{}
	svc := newTestPricingService(t, &memoryRateConfigs{}, newMemoryZones(), metrics)

	_, err := svc.Quote(context.Background(), QuoteCommand{Shipment: smallParcel("")})
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected configuration missing, got %v", err)
	}
	if metrics.quotes[0] != "quote:unavailable" {
		t.Fatalf("expected unavailable outcome, got %v", metrics.quotes)
	}
}

func TestPricingServiceQuoteInvalidInputNamesField(t *testing.T) {
	svc := newTestPricingService(t, seededConfigs(), newMemoryZones(), nil)

	shipment := smallParcel("")
	shipment.Weight = decimal.NewFromInt(-1)
	_, err := svc.Quote(context.Background(), QuoteCommand{Shipment: shipment})
	if !errors.Is(err, pricing.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if fieldOf(err) != "weight" {
		t.Fatalf("expected weight field, got %q", fieldOf(err))
	}
}

func TestPricingServiceQuoteBooking(t *testing.T) {
	svc := newTestPricingService(t, seededConfigs(), newMemoryZones(metroZone()), nil)

	got, err := svc.QuoteBooking(context.Background(), BookingQuoteCommand{
		Shipment: smallParcel(domain.PaymentModePrepaid),
		ZoneID:   "zone-metro",
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("QuoteBooking: %v", err)
	}
	if got.Breakdown.Total.StringFixed(2) != "1003.00" {
		t.Fatalf("expected total 1003.00, got %s", got.Breakdown.Total.StringFixed(2))
	}
	if got.Zone.Name != "Metro" {
		t.Fatalf("expected Metro zone, got %s", got.Zone.Name)
	}
	want := time.Date(2024, time.March, 7, 10, 30, 0, 0, time.UTC)
	if !got.EstimatedDelivery.Equal(want) {
		t.Fatalf("expected estimate %s, got %s", want, got.EstimatedDelivery)
	}
}

func TestPricingServiceQuoteBookingRejectsUnusableZones(t *testing.T) {
	inactive := metroZone()
	inactive.ID = "zone-closed"
	inactive.Active = false
	svc := newTestPricingService(t, seededConfigs(), newMemoryZones(metroZone(), inactive), nil)

	for _, zoneID := range []string{"", "zone-missing", "zone-closed"} {
		_, err := svc.QuoteBooking(context.Background(), BookingQuoteCommand{
			Shipment: smallParcel(domain.PaymentModeCOD),
			ZoneID:   zoneID,
			Quantity: 1,
		})
		if !errors.Is(err, pricing.ErrInvalidInput) {
			t.Fatalf("zone %q: expected invalid input, got %v", zoneID, err)
		}
		if fieldOf(err) != "zone_id" {
			t.Fatalf("zone %q: expected zone_id field, got %q", zoneID, fieldOf(err))
		}
	}
}

func TestPricingServiceZoneLookupUnavailable(t *testing.T) {
	zones := newMemoryZones()
	zones.err = errUnavailable
	svc := newTestPricingService(t, seededConfigs(), zones, nil)

	_, err := svc.QuoteBooking(context.Background(), BookingQuoteCommand{
		Shipment: smallParcel(domain.PaymentModeCard),
		ZoneID:   "zone-metro",
		Quantity: 1,
	})
	if !errors.Is(err, ErrRepositoryUnavailable) {
		t.Fatalf("expected repository unavailable, got %v", err)
	}
}

func TestNewPricingServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewPricingService(PricingServiceDeps{Zones: newMemoryZones()}); err == nil {
		t.Fatalf("expected error without config source")
	}
	cache, _ := NewRateConfigCache(seededConfigs(), 0, nil)
	if _, err := NewPricingService(PricingServiceDeps{Configs: cache}); err == nil {
		t.Fatalf("expected error without zones")
	}
}
