package pricing

import (
	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
)

// DefaultRateConfig returns the tariff used to seed a fresh installation. The engine itself
// never falls back to it.
func DefaultRateConfig() domain.RateConfig {
	return domain.RateConfig{
		Version:         1,
		GSTRate:         decimal.RequireFromString("0.18"),
		PickupCity:      decimal.NewFromInt(100),
		PickupCityODA:   decimal.NewFromInt(300),
		CityTier1:       decimal.NewFromInt(300),
		CityTier2:       decimal.NewFromInt(500),
		RegionalBase:    decimal.NewFromInt(800),
		RegionalPerKg:   decimal.NewFromInt(20),
		NationwideBase:  decimal.NewFromInt(1500),
		NationwidePerKg: decimal.NewFromInt(30),
		ODASurcharge:    decimal.NewFromInt(300),
		MinWeight:       decimal.NewFromInt(15),
		VolumeRate:      decimal.NewFromInt(50),
		CancellationFee: decimal.NewFromInt(300),
		BookingPickup:   decimal.NewFromInt(100),
		ExtraPerKg:      decimal.NewFromInt(20),
		InsuranceRate:   decimal.RequireFromString("0.005"),
		CODFeeRate:      decimal.RequireFromString("0.02"),
		CardFeeRate:     decimal.RequireFromString("0.015"),
	}
}

// DefaultZones returns the zones seeded alongside the default tariff.
func DefaultZones() []domain.Zone {
	return []domain.Zone{
		{Name: "Local", BaseRate: decimal.NewFromInt(50), DeliveryDays: 1, Active: true},
		{Name: "Regional", BaseRate: decimal.NewFromInt(80), DeliveryDays: 3, Active: true},
		{Name: "National", BaseRate: decimal.NewFromInt(120), DeliveryDays: 5, Active: true},
		{Name: "Express", BaseRate: decimal.NewFromInt(100), DeliveryDays: 1, Active: true},
		{Name: "International", BaseRate: decimal.NewFromInt(500), DeliveryDays: 10, Active: true},
	}
}
