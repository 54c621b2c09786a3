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

const (
	rateConfigCollection        = "rate_configs"
	rateConfigHistoryCollection = "rate_config_history"
	activeRateConfigID          = "active"
	defaultHistoryLimit         = 20
)

type rateConfigDocument struct {
	Version         int       `firestore:"version"`
	GSTRate         string    `firestore:"gst_rate"`
	PickupCity      string    `firestore:"pickup_city"`
	PickupCityODA   string    `firestore:"pickup_city_oda"`
	CityTier1       string    `firestore:"city_tier1"`
	CityTier2       string    `firestore:"city_tier2"`
	RegionalBase    string    `firestore:"regional_base"`
	RegionalPerKg   string    `firestore:"regional_per_kg"`
	NationwideBase  string    `firestore:"nationwide_base"`
	NationwidePerKg string    `firestore:"nationwide_per_kg"`
	ODASurcharge    string    `firestore:"oda_surcharge"`
	MinWeight       string    `firestore:"min_weight"`
	VolumeRate      string    `firestore:"volume_rate"`
	CancellationFee string    `firestore:"cancellation_fee"`
	BookingPickup   string    `firestore:"booking_pickup"`
	ExtraPerKg      string    `firestore:"extra_per_kg"`
	InsuranceRate   string    `firestore:"insurance_rate"`
	CODFeeRate      string    `firestore:"cod_fee_rate"`
	CardFeeRate     string    `firestore:"card_fee_rate"`
	UpdatedAt       time.Time `firestore:"updated_at"`
	UpdatedBy       string    `firestore:"updated_by"`
}

// RateConfigRepository keeps the active tariff in a single document and archives each published
// version in a history collection keyed by zero-padded version.
type RateConfigRepository struct {
	provider *pfirestore.Provider
	active   *pfirestore.Collection[rateConfigDocument]
	history  *pfirestore.Collection[rateConfigDocument]
}

var _ repositories.RateConfigRepository = (*RateConfigRepository)(nil)

// NewRateConfigRepository constructs a Firestore-backed tariff repository.
func NewRateConfigRepository(provider *pfirestore.Provider) (*RateConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("rate config repository requires firestore provider")
	}
	return &RateConfigRepository{
		provider: provider,
		active:   pfirestore.NewCollection[rateConfigDocument](provider, rateConfigCollection),
		history:  pfirestore.NewCollection[rateConfigDocument](provider, rateConfigHistoryCollection),
	}, nil
}

// Active loads the current tariff.
func (r *RateConfigRepository) Active(ctx context.Context) (domain.RateConfig, error) {
	doc, err := r.active.Get(ctx, activeRateConfigID)
	if err != nil {
		return domain.RateConfig{}, err
	}
	return doc.Data.toDomain()
}

// Publish swaps the active tariff and appends it to history in one transaction.
func (r *RateConfigRepository) Publish(ctx context.Context, cfg domain.RateConfig, expectedVersion int) error {
	activeRef, err := r.active.Doc(ctx, activeRateConfigID)
	if err != nil {
		return err
	}
	historyRef, err := r.history.Doc(ctx, historyID(cfg.Version))
	if err != nil {
		return err
	}
	doc := encodeRateConfig(cfg)

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(activeRef)
		current := 0
		switch {
		case err == nil:
			existing, err := pfirestore.Decode[rateConfigDocument](snap)
			if err != nil {
				return err
			}
			current = existing.Data.Version
		case pfirestore.IsNotFoundCode(err):
		default:
			return err
		}
		if current != expectedVersion {
			return pfirestore.Conflict("rate_configs.publish", fmt.Errorf("active version is %d, expected %d", current, expectedVersion))
		}
		if err := tx.Set(activeRef, doc); err != nil {
			return err
		}
		return tx.Create(historyRef, doc)
	})
}

// History returns archived tariffs newest first.
func (r *RateConfigRepository) History(ctx context.Context, limit int) ([]domain.RateConfig, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	docs, err := r.history.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("version", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	configs := make([]domain.RateConfig, 0, len(docs))
	for _, doc := range docs {
		cfg, err := doc.Data.toDomain()
		if err != nil {
			return nil, fmt.Errorf("rate_config_history %s: %w", doc.ID, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func historyID(version int) string {
	return fmt.Sprintf("v%08d", version)
}

func encodeRateConfig(cfg domain.RateConfig) rateConfigDocument {
	return rateConfigDocument{
		Version:         cfg.Version,
		GSTRate:         decimalString(cfg.GSTRate),
		PickupCity:      decimalString(cfg.PickupCity),
		PickupCityODA:   decimalString(cfg.PickupCityODA),
		CityTier1:       decimalString(cfg.CityTier1),
		CityTier2:       decimalString(cfg.CityTier2),
		RegionalBase:    decimalString(cfg.RegionalBase),
		RegionalPerKg:   decimalString(cfg.RegionalPerKg),
		NationwideBase:  decimalString(cfg.NationwideBase),
		NationwidePerKg: decimalString(cfg.NationwidePerKg),
		ODASurcharge:    decimalString(cfg.ODASurcharge),
		MinWeight:       decimalString(cfg.MinWeight),
		VolumeRate:      decimalString(cfg.VolumeRate),
		CancellationFee: decimalString(cfg.CancellationFee),
		BookingPickup:   decimalString(cfg.BookingPickup),
		ExtraPerKg:      decimalString(cfg.ExtraPerKg),
		InsuranceRate:   decimalString(cfg.InsuranceRate),
		CODFeeRate:      decimalString(cfg.CODFeeRate),
		CardFeeRate:     decimalString(cfg.CardFeeRate),
		UpdatedAt:       cfg.UpdatedAt.UTC(),
		UpdatedBy:       cfg.UpdatedBy,
	}
}

func (d rateConfigDocument) toDomain() (domain.RateConfig, error) {
	var r decimalReader
	cfg := domain.RateConfig{
		Version:         d.Version,
		GSTRate:         r.read("gst_rate", d.GSTRate),
		PickupCity:      r.read("pickup_city", d.PickupCity),
		PickupCityODA:   r.read("pickup_city_oda", d.PickupCityODA),
		CityTier1:       r.read("city_tier1", d.CityTier1),
		CityTier2:       r.read("city_tier2", d.CityTier2),
		RegionalBase:    r.read("regional_base", d.RegionalBase),
		RegionalPerKg:   r.read("regional_per_kg", d.RegionalPerKg),
		NationwideBase:  r.read("nationwide_base", d.NationwideBase),
		NationwidePerKg: r.read("nationwide_per_kg", d.NationwidePerKg),
		ODASurcharge:    r.read("oda_surcharge", d.ODASurcharge),
		MinWeight:       r.read("min_weight", d.MinWeight),
		VolumeRate:      r.read("volume_rate", d.VolumeRate),
		CancellationFee: r.read("cancellation_fee", d.CancellationFee),
		BookingPickup:   r.read("booking_pickup", d.BookingPickup),
		ExtraPerKg:      r.read("extra_per_kg", d.ExtraPerKg),
		InsuranceRate:   r.read("insurance_rate", d.InsuranceRate),
		CODFeeRate:      r.read("cod_fee_rate", d.CODFeeRate),
		CardFeeRate:     r.read("card_fee_rate", d.CardFeeRate),
		UpdatedAt:       d.UpdatedAt.UTC(),
		UpdatedBy:       d.UpdatedBy,
	}
	return cfg, r.err
}
