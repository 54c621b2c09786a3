package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/repositories"
)

// Metrics receives business counters. *metrics.Registry satisfies it.
type Metrics interface {
	ObserveQuote(path, outcome string, total float64)
	ObserveOrderPlaced(zone, paymentMode string)
	ObserveStatusTransition(status string)
	ObserveConfigUpdate()
}

type noopMetrics struct{}

func (noopMetrics) ObserveQuote(string, string, float64) {}
func (noopMetrics) ObserveOrderPlaced(string, string) {}
func (noopMetrics) ObserveStatusTransition(string) {}
func (noopMetrics) ObserveConfigUpdate() {}

// PricingServiceDeps bundles collaborators for NewPricingService.
type PricingServiceDeps struct {
	Configs RateConfigSource
	Zones   repositories.ZoneRepository
	Metrics Metrics
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type pricingService struct {
	configs RateConfigSource
	zones   repositories.ZoneRepository
	metrics Metrics
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

var _ PricingService = (*pricingService)(nil)

// NewPricingService wires the pricing engine to the tariff source and zone repository.
func NewPricingService(deps PricingServiceDeps) (PricingService, error) {
	if deps.Configs == nil {
		return nil, errors.New("pricing service: rate config source is required")
	}
	if deps.Zones == nil {
		return nil, errors.New("pricing service: zone repository is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &pricingService{
		configs: deps.Configs,
		zones:   deps.Zones,
		metrics: metrics,
		clock:   utcClock(deps.Clock),
		logger:  logger,
	}, nil
}

func (s *pricingService) Quote(ctx context.Context, cmd QuoteCommand) (ChargeBreakdown, error) {
	cfg, err := s.configs.Current(ctx)
	if err != nil {
		s.observe(ctx, "quote", ChargeBreakdown{}, err)
		return ChargeBreakdown{}, err
	}
	breakdown, err := pricing.Quote(cmd.Shipment, cfg)
	s.observe(ctx, "quote", breakdown, err)
	return breakdown, err
}

func (s *pricingService) QuoteBooking(ctx context.Context, cmd BookingQuoteCommand) (BookingQuote, error) {
	cfg, err := s.configs.Current(ctx)
	if err != nil {
		s.observe(ctx, "booking", ChargeBreakdown{}, err)
		return BookingQuote{}, err
	}
	zone, err := activeZone(ctx, s.zones, cmd.ZoneID)
	if err != nil {
		s.observe(ctx, "booking", ChargeBreakdown{}, err)
		return BookingQuote{}, err
	}

	breakdown, err := pricing.Book(bookingRequest(cmd.Shipment, zone, cmd.Quantity), cfg)
	s.observe(ctx, "booking", breakdown, err)
	if err != nil {
		return BookingQuote{}, err
	}
	return BookingQuote{
		Zone:              zone,
		Breakdown:         breakdown,
		EstimatedDelivery: pricing.EstimateDelivery(s.clock(), zone.DeliveryDays),
	}, nil
}

// activeZone resolves a zone for the booking path. Unknown or inactive zones are input errors.
func activeZone(ctx context.Context, zones repositories.ZoneRepository, zoneID string) (Zone, error) {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return Zone{}, &pricing.InputError{Field: "zone_id", Reason: "is required"}
	}
	zone, err := zones.FindByID(ctx, zoneID)
	if err != nil {
		if isNotFound(err) {
			return Zone{}, &pricing.InputError{Field: "zone_id", Reason: "does not exist"}
		}
		return Zone{}, mapRepositoryError(err, nil, nil)
	}
	if !zone.Active {
		return Zone{}, &pricing.InputError{Field: "zone_id", Reason: "is not active"}
	}
	return zone, nil
}

func (s *pricingService) observe(ctx context.Context, path string, breakdown ChargeBreakdown, err error) {
	outcome := outcomeOf(err)
	total, _ := breakdown.Total.Float64()
	s.metrics.ObserveQuote(path, outcome, total)

	fields := map[string]any{"path": path, "outcome": outcome}
	if err != nil {
		if field, ok := pricing.FieldOf(err); ok {
			fields["field"] = field
		}
		fields["error"] = err.Error()
	} else {
		fields["total"] = breakdown.Total.StringFixed(2)
		fields["configVersion"] = breakdown.ConfigVersion
	}
	s.logger(ctx, "pricing.quote", fields)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pricing.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConfigurationMissing), errors.Is(err, ErrRepositoryUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func bookingRequest(shipment ShipmentRequest, zone Zone, quantity int) domain.BookingRequest {
	return domain.BookingRequest{Shipment: shipment, ZoneBaseRate: zone.BaseRate, Quantity: quantity}
}
