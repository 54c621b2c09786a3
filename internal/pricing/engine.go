// Package pricing computes itemised shipment charges from a rate configuration snapshot.
//
// Two paths exist. Quote prices a shipment from its origin class, distance and weight for a
// fast estimate. Book prices a shipment at booking time from its zone rate, volume, insurance
// and payment mode. The paths are independent and must not be merged: booked totals depend on
// the booking path alone.
//
// Both functions are pure. They never mutate the configuration and hold no state, so they may
// be called concurrently with a shared snapshot.
package pricing

import (
	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
)

const moneyPlaces = 2

var (
	cityTier1Limit   = decimal.NewFromInt(5)
	cityTier2Limit   = decimal.NewFromInt(15)
	customsThreshold = decimal.NewFromInt(50000)
	cubicCmPerCubicM = decimal.NewFromInt(1_000_000)
)

// CustomsThreshold is the declared value above which an e-way/customs document is required.
func CustomsThreshold() decimal.Decimal {
	return customsThreshold
}

type components struct {
	pickup      decimal.Decimal
	delivery    decimal.Decimal
	extraWeight decimal.Decimal
	volumetric  decimal.Decimal
	oda         decimal.Decimal
	insurance   decimal.Decimal
	paymentFee  decimal.Decimal
}

// Quote prices a shipment on the quote path: pickup by origin class, tiered delivery,
// out-of-delivery-area surcharge and GST. Unrecognised origin classes price at zero.
func Quote(req domain.ShipmentRequest, cfg *domain.RateConfig) (domain.ChargeBreakdown, error) {
	if cfg == nil {
		return domain.ChargeBreakdown{}, ErrConfigurationMissing
	}
	if err := ValidateConfig(cfg); err != nil {
		return domain.ChargeBreakdown{}, err
	}
	if err := validateShipment(req); err != nil {
		return domain.ChargeBreakdown{}, err
	}
	if req.PaymentMode != "" && !req.PaymentMode.Valid() {
		return domain.ChargeBreakdown{}, invalid("payment_mode", "must be one of cod, card, prepaid")
	}

	c := components{
		pickup:   quotePickup(req.Origin, cfg),
		delivery: quoteDelivery(req, cfg),
	}
	if req.ODA {
		c.oda = cfg.ODASurcharge
	}

	return assemble(domain.PricingPathQuote, cfg, req.DeclaredValue, c, nil), nil
}

// Book prices a shipment on the booking path. The larger of the weight-based and the
// volumetric cost becomes the base charge, then pickup, extra weight, insurance and the
// payment processing fee are added before GST.
func Book(req domain.BookingRequest, cfg *domain.RateConfig) (domain.ChargeBreakdown, error) {
	if cfg == nil {
		return domain.ChargeBreakdown{}, ErrConfigurationMissing
	}
	if err := ValidateConfig(cfg); err != nil {
		return domain.ChargeBreakdown{}, err
	}
	s := req.Shipment
	if err := validateShipment(s); err != nil {
		return domain.ChargeBreakdown{}, err
	}
	if req.Quantity < 1 {
		return domain.ChargeBreakdown{}, invalid("quantity", "must be at least 1")
	}
	if req.ZoneBaseRate.IsNegative() {
		return domain.ChargeBreakdown{}, invalid("zone_base_rate", "must not be negative")
	}
	if !s.PaymentMode.Valid() {
		return domain.ChargeBreakdown{}, invalid("payment_mode", "must be one of cod, card, prepaid")
	}

	billable := decimal.Max(s.Weight, cfg.MinWeight)
	weightCost := req.ZoneBaseRate.Mul(billable).Mul(decimal.NewFromInt(int64(req.Quantity)))
	volume := Volume(s.Dimensions)
	volumeCost := volume.Mul(cfg.VolumeRate)
	base := DimensionalBase(weightCost, volumeCost)

	c := components{
		pickup:      cfg.BookingPickup,
		extraWeight: overMinimum(s.Weight, cfg.MinWeight).Mul(cfg.ExtraPerKg),
	}
	volumeApplied := volumeCost.GreaterThan(weightCost)
	if volumeApplied {
		c.volumetric = base
	} else {
		c.delivery = base
	}
	if s.InsuranceRequested && s.InsuranceValue.IsPositive() {
		c.insurance = s.InsuranceValue.Mul(cfg.InsuranceRate)
	}
	c.paymentFee = paymentFee(s.PaymentMode, base.Add(c.pickup).Add(c.extraWeight), cfg)

	weighting := &domain.BookingWeighting{
		BillableWeight: billable,
		VolumeCubicM:   volume,
		WeightCost:     weightCost,
		VolumeCost:     volumeCost,
		VolumeApplied:  volumeApplied,
	}
	return assemble(domain.PricingPathBooking, cfg, s.DeclaredValue, c, weighting), nil
}

// Volume converts a bounding box in centimetres to cubic metres.
func Volume(d domain.Dimensions) decimal.Decimal {
	return d.Length.Mul(d.Width).Mul(d.Height).Div(cubicCmPerCubicM)
}

// DimensionalBase keeps the larger of the weight-based and volumetric cost.
func DimensionalBase(weightCost, volumeCost decimal.Decimal) decimal.Decimal {
	return decimal.Max(weightCost, volumeCost)
}

// BaseCharge returns the shipping base carried by a breakdown, whichever of weight or volume won.
func BaseCharge(b domain.ChargeBreakdown) decimal.Decimal {
	return b.Delivery.Add(b.Volumetric)
}

func quotePickup(origin domain.OriginClass, cfg *domain.RateConfig) decimal.Decimal {
	switch origin {
	case domain.OriginCity:
		return cfg.PickupCity
	case domain.OriginCityODA:
		return cfg.PickupCityODA
	default:
		return decimal.Zero
	}
}

// quoteDelivery charges nothing for city shipments beyond the second tier; no rate is defined there.
func quoteDelivery(req domain.ShipmentRequest, cfg *domain.RateConfig) decimal.Decimal {
	switch req.Origin {
	case domain.OriginCity:
		switch {
		case req.Distance.LessThanOrEqual(cityTier1Limit):
			return cfg.CityTier1
		case req.Distance.LessThanOrEqual(cityTier2Limit):
			return cfg.CityTier2
		default:
			return decimal.Zero
		}
	case domain.OriginRegional:
		return cfg.RegionalBase.Add(overMinimum(req.Weight, cfg.MinWeight).Mul(cfg.RegionalPerKg))
	case domain.OriginNationwide:
		return cfg.NationwideBase.Add(overMinimum(req.Weight, cfg.MinWeight).Mul(cfg.NationwidePerKg))
	default:
		return decimal.Zero
	}
}

func overMinimum(weight, minimum decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, weight.Sub(minimum))
}

func paymentFee(mode domain.PaymentMode, feeBase decimal.Decimal, cfg *domain.RateConfig) decimal.Decimal {
	switch mode {
	case domain.PaymentModeCOD:
		return feeBase.Mul(cfg.CODFeeRate)
	case domain.PaymentModeCard:
		return feeBase.Mul(cfg.CardFeeRate)
	default:
		return decimal.Zero
	}
}

// assemble keeps every component exact. Only the total is rounded; the other amounts are rounded
// where they are presented.
func assemble(path domain.PricingPath, cfg *domain.RateConfig, declared decimal.Decimal, c components, w *domain.BookingWeighting) domain.ChargeBreakdown {
	b := domain.ChargeBreakdown{
		Path:          path,
		ConfigVersion: cfg.Version,
		Pickup:        c.pickup,
		Delivery:      c.delivery,
		ExtraWeight:   c.extraWeight,
		Volumetric:    c.volumetric,
		ODASurcharge:  c.oda,
		Insurance:     c.insurance,
		PaymentFee:    c.paymentFee,
		Weighting:     w,
	}
	b.Subtotal = Sum(b)
	b.GST = b.Subtotal.Mul(cfg.GSTRate)
	b.Total = b.Subtotal.Add(b.GST).Round(moneyPlaces)
	b.CustomsDocumentRequired = declared.GreaterThan(customsThreshold)
	return b
}

// Sum adds the itemised components of a breakdown.
func Sum(b domain.ChargeBreakdown) decimal.Decimal {
	return decimal.Sum(b.Pickup, b.Delivery, b.ExtraWeight, b.Volumetric, b.ODASurcharge, b.Insurance, b.PaymentFee)
}
