package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OriginClass selects the pickup and delivery tier applied to a shipment.
type OriginClass string

const (
	// OriginCity is a pickup and delivery inside the home city.
	OriginCity OriginClass = "city"
	// OriginCityODA is a home-city address outside the standard delivery area.
	OriginCityODA OriginClass = "city_oda"
	// OriginRegional is an intra-region (state level) shipment.
	OriginRegional OriginClass = "regional"
	// OriginNationwide is a shipment anywhere in the country.
	OriginNationwide OriginClass = "nationwide"
)

// PaymentMode selects the processing fee charged on the booking path.
type PaymentMode string

const (
	PaymentModeCOD     PaymentMode = "cod"
	PaymentModeCard    PaymentMode = "card"
	PaymentModePrepaid PaymentMode = "prepaid"
)

// Valid reports whether the mode is one of the recognised payment modes.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCOD, PaymentModeCard, PaymentModePrepaid:
		return true
	}
	return false
}

// PricingPath names the computation that produced a breakdown.
type PricingPath string

const (
	PricingPathQuote   PricingPath = "quote"
	PricingPathBooking PricingPath = "booking"
)

// RateConfig is the tariff snapshot read by the pricing engine. A single version is active at a time.
type RateConfig struct {
	Version         int
	GSTRate         decimal.Decimal
	PickupCity      decimal.Decimal
	PickupCityODA   decimal.Decimal
	CityTier1       decimal.Decimal
	CityTier2       decimal.Decimal
	RegionalBase    decimal.Decimal
	RegionalPerKg   decimal.Decimal
	NationwideBase  decimal.Decimal
	NationwidePerKg decimal.Decimal
	ODASurcharge    decimal.Decimal
	MinWeight       decimal.Decimal
	VolumeRate      decimal.Decimal
	CancellationFee decimal.Decimal
	BookingPickup   decimal.Decimal
	ExtraPerKg      decimal.Decimal
	InsuranceRate   decimal.Decimal
	CODFeeRate      decimal.Decimal
	CardFeeRate     decimal.Decimal
	UpdatedAt       time.Time
	UpdatedBy       string
}

// Dimensions holds a parcel's bounding box in centimetres.
type Dimensions struct {
	Length decimal.Decimal
	Width  decimal.Decimal
	Height decimal.Decimal
}

// ShipmentRequest carries the declared attributes of a shipment for a single pricing call.
type ShipmentRequest struct {
	Origin             OriginClass
	Distance           decimal.Decimal
	Weight             decimal.Decimal
	Dimensions         Dimensions
	DeclaredValue      decimal.Decimal
	ODA                bool
	PaymentMode        PaymentMode
	InsuranceRequested bool
	InsuranceValue     decimal.Decimal
	Description        string
}

// BookingRequest extends a shipment with the zone rate and parcel count used at booking time.
type BookingRequest struct {
	Shipment     ShipmentRequest
	ZoneBaseRate decimal.Decimal
	Quantity     int
}

// ChargeBreakdown is the itemised result of a pricing call. Components, Subtotal and GST are
// exact; Total is rounded to two decimals.
type ChargeBreakdown struct {
	Path                    PricingPath
	ConfigVersion           int
	Pickup                  decimal.Decimal
	Delivery                decimal.Decimal
	ExtraWeight             decimal.Decimal
	Volumetric              decimal.Decimal
	ODASurcharge            decimal.Decimal
	Insurance               decimal.Decimal
	PaymentFee              decimal.Decimal
	Subtotal                decimal.Decimal
	GST                     decimal.Decimal
	Total                   decimal.Decimal
	CustomsDocumentRequired bool
	Weighting               *BookingWeighting
}

// BookingWeighting records the weight and volume figures behind a booking charge.
type BookingWeighting struct {
	BillableWeight decimal.Decimal
	VolumeCubicM   decimal.Decimal
	WeightCost     decimal.Decimal
	VolumeCost     decimal.Decimal
	VolumeApplied  bool
}
