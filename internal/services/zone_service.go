package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/repositories"
)

// ZoneServiceDeps bundles collaborators for NewZoneService.
type ZoneServiceDeps struct {
	Zones       repositories.ZoneRepository
	Orders      repositories.OrderRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type zoneService struct {
	zones    repositories.ZoneRepository
	orders   repositories.OrderRepository
	validate *validator.Validate
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

var _ ZoneService = (*zoneService)(nil)

// NewZoneService constructs the zone admin service.
func NewZoneService(deps ZoneServiceDeps) (ZoneService, error) {
	if deps.Zones == nil {
		return nil, errors.New("zone service: zone repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("zone service: order repository is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &zoneService{
		zones:    deps.Zones,
		orders:   deps.Orders,
		validate: newValidator(),
		clock:    utcClock(deps.Clock),
		newID:    idGen,
		logger:   logger,
	}, nil
}

func (s *zoneService) List(ctx context.Context, activeOnly bool) ([]Zone, error) {
	zones, err := s.zones.List(ctx, repositories.ZoneFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	return zones, nil
}

func (s *zoneService) Get(ctx context.Context, zoneID string) (Zone, error) {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return Zone{}, fieldError(ErrZoneInvalidInput, "zone_id", "required")
	}
	zone, err := s.zones.FindByID(ctx, zoneID)
	if err != nil {
		return Zone{}, mapRepositoryError(err, ErrZoneNotFound, nil)
	}
	return zone, nil
}

func (s *zoneService) Create(ctx context.Context, cmd CreateZoneCommand) (Zone, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if err := s.validate.StructCtx(ctx, cmd); err != nil {
		return Zone{}, validationError(ErrZoneInvalidInput, err)
	}
	if cmd.BaseRate.IsNegative() {
		return Zone{}, fieldError(ErrZoneInvalidInput, "base_rate", "gte")
	}
	if err := s.ensureUniqueName(ctx, cmd.Name, ""); err != nil {
		return Zone{}, err
	}

	now := s.clock()
	zone := Zone{
		ID:           s.newID(),
		Name:         cmd.Name,
		BaseRate:     cmd.BaseRate,
		DeliveryDays: cmd.DeliveryDays,
		Active:       cmd.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.zones.Insert(ctx, zone); err != nil {
		return Zone{}, mapRepositoryError(err, nil, ErrZoneConflict)
	}
	s.logger(ctx, "zone.created", map[string]any{"zoneId": zone.ID, "name": zone.Name})
	return zone, nil
}

func (s *zoneService) Update(ctx context.Context, cmd UpdateZoneCommand) (Zone, error) {
	cmd.ZoneID = strings.TrimSpace(cmd.ZoneID)
	if cmd.Name != nil {
		trimmed := strings.TrimSpace(*cmd.Name)
		cmd.Name = &trimmed
	}
	if err := s.validate.StructCtx(ctx, cmd); err != nil {
		return Zone{}, validationError(ErrZoneInvalidInput, err)
	}

	zone, err := s.Get(ctx, cmd.ZoneID)
	if err != nil {
		return Zone{}, err
	}
	if cmd.Name != nil && !strings.EqualFold(*cmd.Name, zone.Name) {
		if err := s.ensureUniqueName(ctx, *cmd.Name, zone.ID); err != nil {
			return Zone{}, err
		}
		zone.Name = *cmd.Name
	}
	if cmd.BaseRate != nil {
		if cmd.BaseRate.IsNegative() {
			return Zone{}, fieldError(ErrZoneInvalidInput, "base_rate", "gte")
		}
		zone.BaseRate = *cmd.BaseRate
	}
	if cmd.DeliveryDays != nil {
		zone.DeliveryDays = *cmd.DeliveryDays
	}
	if cmd.Active != nil {
		zone.Active = *cmd.Active
	}
	zone.UpdatedAt = s.clock()

	if err := s.zones.Update(ctx, zone); err != nil {
		return Zone{}, mapRepositoryError(err, ErrZoneNotFound, ErrZoneConflict)
	}
	s.logger(ctx, "zone.updated", map[string]any{"zoneId": zone.ID})
	return zone, nil
}

// Delete removes a zone no order references. Referenced zones should be deactivated instead.
func (s *zoneService) Delete(ctx context.Context, zoneID string) error {
	zone, err := s.Get(ctx, zoneID)
	if err != nil {
		return err
	}
	inUse, err := s.orders.ExistsForZone(ctx, zone.ID)
	if err != nil {
		return mapRepositoryError(err, nil, nil)
	}
	if inUse {
		return fmt.Errorf("%w: %s", ErrZoneInUse, zone.Name)
	}
	if err := s.zones.Delete(ctx, zone.ID); err != nil {
		return mapRepositoryError(err, ErrZoneNotFound, nil)
	}
	s.logger(ctx, "zone.deleted", map[string]any{"zoneId": zone.ID})
	return nil
}

// SeedDefaults inserts the default zones that are missing by name and returns how many were added.
func (s *zoneService) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := s.List(ctx, false)
	if err != nil {
		return 0, err
	}
	names := make(map[string]struct{}, len(existing))
	for _, zone := range existing {
		names[strings.ToLower(zone.Name)] = struct{}{}
	}

	added := 0
	for _, zone := range pricing.DefaultZones() {
		if _, ok := names[strings.ToLower(zone.Name)]; ok {
			continue
		}
		if _, err := s.Create(ctx, CreateZoneCommand{
			Name:         zone.Name,
			BaseRate:     zone.BaseRate,
			DeliveryDays: zone.DeliveryDays,
			Active:       zone.Active,
		}); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (s *zoneService) ensureUniqueName(ctx context.Context, name, exceptID string) error {
	zones, err := s.List(ctx, false)
	if err != nil {
		return err
	}
	for _, zone := range zones {
		if zone.ID != exceptID && strings.EqualFold(zone.Name, name) {
			return fmt.Errorf("%w: zone %q already exists", ErrZoneConflict, name)
		}
	}
	return nil
}
