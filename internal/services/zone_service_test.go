package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/pricing"
)

func newTestZoneService(t *testing.T, zones *memoryZones, orders *memoryOrders) ZoneService {
	t.Helper()
	svc, err := NewZoneService(ZoneServiceDeps{
		Zones:       zones,
		Orders:      orders,
		Clock:       fixedClock,
		IDGenerator: sequenceIDs("zone"),
	})
	if err != nil {
		t.Fatalf("NewZoneService: %v", err)
	}
	return svc
}

func TestZoneServiceCreateAndUpdate(t *testing.T) {
	svc := newTestZoneService(t, newMemoryZones(), newMemoryOrders())
	ctx := context.Background()

	zone, err := svc.Create(ctx, CreateZoneCommand{
		Name:         "  Coastal ",
		BaseRate:     decimal.NewFromInt(70),
		DeliveryDays: 4,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if zone.ID != "zone-001" || zone.Name != "Coastal" || !zone.CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected zone: %+v", zone)
	}

	rate := decimal.NewFromInt(75)
	inactive := false
	updated, err := svc.Update(ctx, UpdateZoneCommand{ZoneID: zone.ID, BaseRate: &rate, Active: &inactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.BaseRate.Equal(rate) || updated.Active || updated.Name != "Coastal" || updated.DeliveryDays != 4 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	active, err := svc.List(ctx, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected inactive zone filtered, got %d", len(active))
	}
}

func TestZoneServiceRejectsDuplicateNames(t *testing.T) {
	svc := newTestZoneService(t, newMemoryZones(metroZone()), newMemoryOrders())

	_, err := svc.Create(context.Background(), CreateZoneCommand{Name: "metro", BaseRate: decimal.NewFromInt(10)})
	if !errors.Is(err, ErrZoneConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestZoneServiceValidation(t *testing.T) {
	svc := newTestZoneService(t, newMemoryZones(metroZone()), newMemoryOrders())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateZoneCommand{Name: "", BaseRate: decimal.NewFromInt(1)}); fieldOf(err) != "name" {
		t.Fatalf("expected name error, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateZoneCommand{Name: "North", BaseRate: decimal.NewFromInt(-1)}); !errors.Is(err, ErrZoneInvalidInput) {
		t.Fatalf("expected invalid base rate, got %v", err)
	}
	days := 90
	if _, err := svc.Update(ctx, UpdateZoneCommand{ZoneID: "zone-metro", DeliveryDays: &days}); fieldOf(err) != "delivery_days" {
		t.Fatalf("expected delivery_days error, got %v", err)
	}
	if _, err := svc.Get(ctx, "zone-unknown"); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestZoneServiceDeleteBlockedWhileReferenced(t *testing.T) {
	orders := newMemoryOrders()
	orders.orders["order-1"] = domain.Order{ID: "order-1", ZoneID: "zone-metro"}
	svc := newTestZoneService(t, newMemoryZones(metroZone()), orders)

	if err := svc.Delete(context.Background(), "zone-metro"); !errors.Is(err, ErrZoneInUse) {
		t.Fatalf("expected zone in use, got %v", err)
	}

	delete(orders.orders, "order-1")
	if err := svc.Delete(context.Background(), "zone-metro"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), "zone-metro"); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected deleted zone to be gone, got %v", err)
	}
}

func TestZoneServiceSeedDefaultsIsIdempotent(t *testing.T) {
	local := domain.Zone{ID: "existing", Name: "Local", BaseRate: decimal.NewFromInt(45), Active: true}
	svc := newTestZoneService(t, newMemoryZones(local), newMemoryOrders())
	ctx := context.Background()

	added, err := svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if want := len(pricing.DefaultZones()) - 1; added != want {
		t.Fatalf("expected %d zones added, got %d", want, added)
	}
	again, err := svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("SeedDefaults again: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected nothing added on second run, got %d", again)
	}
	zone, err := svc.Get(ctx, "existing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !zone.BaseRate.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("expected existing zone untouched")
	}
}
