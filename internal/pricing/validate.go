package pricing

import (
	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
)

var one = decimal.NewFromInt(1)

func validateShipment(req domain.ShipmentRequest) error {
	if !req.Weight.IsPositive() {
		return invalid("weight", "must be greater than zero")
	}
	if !req.Dimensions.Length.IsPositive() {
		return invalid("length", "must be greater than zero")
	}
	if !req.Dimensions.Width.IsPositive() {
		return invalid("width", "must be greater than zero")
	}
	if !req.Dimensions.Height.IsPositive() {
		return invalid("height", "must be greater than zero")
	}
	if req.Distance.IsNegative() {
		return invalid("distance", "must not be negative")
	}
	if req.DeclaredValue.IsNegative() {
		return invalid("declared_value", "must not be negative")
	}
	if req.InsuranceValue.IsNegative() {
		return invalid("insurance_value", "must not be negative")
	}
	return nil
}

// ValidateConfig checks the configuration invariants: every rate is non-negative and the GST
// rate lies in [0, 1).
func ValidateConfig(cfg *domain.RateConfig) error {
	if cfg == nil {
		return ErrConfigurationMissing
	}
	for _, field := range configFields(cfg) {
		if field.value.IsNegative() {
			return invalid(field.name, "must not be negative")
		}
	}
	if cfg.GSTRate.GreaterThanOrEqual(one) {
		return invalid("gst_rate", "must be below 1")
	}
	return nil
}

type namedRate struct {
	name  string
	value decimal.Decimal
}

func configFields(cfg *domain.RateConfig) []namedRate {
	return []namedRate{
		{"gst_rate", cfg.GSTRate},
		{"pickup_city", cfg.PickupCity},
		{"pickup_city_oda", cfg.PickupCityODA},
		{"city_tier1", cfg.CityTier1},
		{"city_tier2", cfg.CityTier2},
		{"regional_base", cfg.RegionalBase},
		{"regional_per_kg", cfg.RegionalPerKg},
		{"nationwide_base", cfg.NationwideBase},
		{"nationwide_per_kg", cfg.NationwidePerKg},
		{"oda_surcharge", cfg.ODASurcharge},
		{"min_weight", cfg.MinWeight},
		{"volume_rate", cfg.VolumeRate},
		{"cancellation_fee", cfg.CancellationFee},
		{"booking_pickup", cfg.BookingPickup},
		{"extra_per_kg", cfg.ExtraPerKg},
		{"insurance_rate", cfg.InsuranceRate},
		{"cod_fee_rate", cfg.CODFeeRate},
		{"card_fee_rate", cfg.CardFeeRate},
	}
}
