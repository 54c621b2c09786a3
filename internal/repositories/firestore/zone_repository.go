package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/parcelrate/api/internal/domain"
	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
	"github.com/parcelrate/api/internal/repositories"
)

const zonesCollection = "zones"

type zoneDocument struct {
	Name         string    `firestore:"name"`
	BaseRate     string    `firestore:"base_rate"`
	DeliveryDays int       `firestore:"delivery_days"`
	Active       bool      `firestore:"active"`
	CreatedAt    time.Time `firestore:"created_at"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

// ZoneRepository persists delivery zones keyed by ID.
type ZoneRepository struct {
	zones *pfirestore.Collection[zoneDocument]
}

var _ repositories.ZoneRepository = (*ZoneRepository)(nil)

// NewZoneRepository constructs a Firestore-backed zone repository.
func NewZoneRepository(provider *pfirestore.Provider) (*ZoneRepository, error) {
	if provider == nil {
		return nil, errors.New("zone repository requires firestore provider")
	}
	return &ZoneRepository{zones: pfirestore.NewCollection[zoneDocument](provider, zonesCollection)}, nil
}

// List returns zones ordered by name.
func (r *ZoneRepository) List(ctx context.Context, filter repositories.ZoneFilter) ([]domain.Zone, error) {
	docs, err := r.zones.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	zones := make([]domain.Zone, 0, len(docs))
	for _, doc := range docs {
		zone, err := doc.Data.toDomain(doc.ID)
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	return zones, nil
}

// FindByID loads a single zone.
func (r *ZoneRepository) FindByID(ctx context.Context, zoneID string) (domain.Zone, error) {
	doc, err := r.zones.Get(ctx, zoneID)
	if err != nil {
		return domain.Zone{}, err
	}
	return doc.Data.toDomain(doc.ID)
}

// Insert creates the zone, failing with a conflict when the ID is taken.
func (r *ZoneRepository) Insert(ctx context.Context, zone domain.Zone) error {
	return r.zones.Create(ctx, zone.ID, encodeZone(zone))
}

// Update overwrites an existing zone.
func (r *ZoneRepository) Update(ctx context.Context, zone domain.Zone) error {
	if _, err := r.zones.Get(ctx, zone.ID); err != nil {
		return err
	}
	return r.zones.Set(ctx, zone.ID, encodeZone(zone))
}

// Delete removes the zone.
func (r *ZoneRepository) Delete(ctx context.Context, zoneID string) error {
	if _, err := r.zones.Get(ctx, zoneID); err != nil {
		return err
	}
	return r.zones.Delete(ctx, zoneID)
}

func encodeZone(z domain.Zone) zoneDocument {
	return zoneDocument{
		Name:         z.Name,
		BaseRate:     decimalString(z.BaseRate),
		DeliveryDays: z.DeliveryDays,
		Active:       z.Active,
		CreatedAt:    z.CreatedAt.UTC(),
		UpdatedAt:    z.UpdatedAt.UTC(),
	}
}

func (d zoneDocument) toDomain(id string) (domain.Zone, error) {
	rate, err := parseDecimal("base_rate", d.BaseRate)
	if err != nil {
		return domain.Zone{}, fmt.Errorf("zones %s: %w", id, err)
	}
	return domain.Zone{
		ID:           id,
		Name:         d.Name,
		BaseRate:     rate,
		DeliveryDays: d.DeliveryDays,
		Active:       d.Active,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}
