package firestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
)

// Amounts are stored as decimal strings so no float rounding creeps into persisted charges.

func decimalString(d decimal.Decimal) string {
	return d.String()
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode %s: %w", field, err)
	}
	return value, nil
}

// decimalReader accumulates the first parse error so decoders stay linear.
type decimalReader struct {
	err error
}

func (r *decimalReader) read(field, raw string) decimal.Decimal {
	if r.err != nil {
		return decimal.Zero
	}
	value, err := parseDecimal(field, raw)
	if err != nil {
		r.err = err
	}
	return value
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

type partyDocument struct {
	Name       string `firestore:"name"`
	Phone      string `firestore:"phone"`
	Email      string `firestore:"email,omitempty"`
	Address    string `firestore:"address"`
	City       string `firestore:"city,omitempty"`
	State      string `firestore:"state,omitempty"`
	PostalCode string `firestore:"postal_code,omitempty"`
}

func encodeParty(p domain.Party) partyDocument {
	return partyDocument(p)
}

func (d partyDocument) toDomain() domain.Party {
	return domain.Party(d)
}

type shipmentDocument struct {
	Origin             string `firestore:"origin"`
	Distance           string `firestore:"distance"`
	Weight             string `firestore:"weight"`
	Length             string `firestore:"length"`
	Width              string `firestore:"width"`
	Height             string `firestore:"height"`
	DeclaredValue      string `firestore:"declared_value"`
	ODA                bool   `firestore:"oda"`
	PaymentMode        string `firestore:"payment_mode"`
	InsuranceRequested bool   `firestore:"insurance_requested"`
	InsuranceValue     string `firestore:"insurance_value"`
	Description        string `firestore:"description,omitempty"`
}

func encodeShipment(s domain.ShipmentRequest) shipmentDocument {
	return shipmentDocument{
		Origin:             string(s.Origin),
		Distance:           decimalString(s.Distance),
		Weight:             decimalString(s.Weight),
		Length:             decimalString(s.Dimensions.Length),
		Width:              decimalString(s.Dimensions.Width),
		Height:             decimalString(s.Dimensions.Height),
		DeclaredValue:      decimalString(s.DeclaredValue),
		ODA:                s.ODA,
		PaymentMode:        string(s.PaymentMode),
		InsuranceRequested: s.InsuranceRequested,
		InsuranceValue:     decimalString(s.InsuranceValue),
		Description:        s.Description,
	}
}

func (d shipmentDocument) toDomain(r *decimalReader) domain.ShipmentRequest {
	return domain.ShipmentRequest{
		Origin:   domain.OriginClass(d.Origin),
		Distance: r.read("distance", d.Distance),
		Weight:   r.read("weight", d.Weight),
		Dimensions: domain.Dimensions{
			Length: r.read("length", d.Length),
			Width:  r.read("width", d.Width),
			Height: r.read("height", d.Height),
		},
		DeclaredValue:      r.read("declared_value", d.DeclaredValue),
		ODA:                d.ODA,
		PaymentMode:        domain.PaymentMode(d.PaymentMode),
		InsuranceRequested: d.InsuranceRequested,
		InsuranceValue:     r.read("insurance_value", d.InsuranceValue),
		Description:        d.Description,
	}
}

type weightingDocument struct {
	BillableWeight string `firestore:"billable_weight"`
	VolumeCubicM   string `firestore:"volume_m3"`
	WeightCost     string `firestore:"weight_cost"`
	VolumeCost     string `firestore:"volume_cost"`
	VolumeApplied  bool   `firestore:"volume_applied"`
}

type breakdownDocument struct {
	Path                    string             `firestore:"path"`
	ConfigVersion           int                `firestore:"config_version"`
	Pickup                  string             `firestore:"pickup"`
	Delivery                string             `firestore:"delivery"`
	ExtraWeight             string             `firestore:"extra_weight"`
	Volumetric              string             `firestore:"volumetric"`
	ODASurcharge            string             `firestore:"oda_surcharge"`
	Insurance               string             `firestore:"insurance"`
	PaymentFee              string             `firestore:"payment_fee"`
	Subtotal                string             `firestore:"subtotal"`
	GST                     string             `firestore:"gst"`
	Total                   string             `firestore:"total"`
	CustomsDocumentRequired bool               `firestore:"customs_document_required"`
	Weighting               *weightingDocument `firestore:"weighting,omitempty"`
}

func encodeBreakdown(b domain.ChargeBreakdown) breakdownDocument {
	doc := breakdownDocument{
		Path:                    string(b.Path),
		ConfigVersion:           b.ConfigVersion,
		Pickup:                  decimalString(b.Pickup),
		Delivery:                decimalString(b.Delivery),
		ExtraWeight:             decimalString(b.ExtraWeight),
		Volumetric:              decimalString(b.Volumetric),
		ODASurcharge:            decimalString(b.ODASurcharge),
		Insurance:               decimalString(b.Insurance),
		PaymentFee:              decimalString(b.PaymentFee),
		Subtotal:                decimalString(b.Subtotal),
		GST:                     decimalString(b.GST),
		Total:                   decimalString(b.Total),
		CustomsDocumentRequired: b.CustomsDocumentRequired,
	}
	if w := b.Weighting; w != nil {
		doc.Weighting = &weightingDocument{
			BillableWeight: decimalString(w.BillableWeight),
			VolumeCubicM:   decimalString(w.VolumeCubicM),
			WeightCost:     decimalString(w.WeightCost),
			VolumeCost:     decimalString(w.VolumeCost),
			VolumeApplied:  w.VolumeApplied,
		}
	}
	return doc
}

func (d breakdownDocument) toDomain(r *decimalReader) domain.ChargeBreakdown {
	b := domain.ChargeBreakdown{
		Path:                    domain.PricingPath(d.Path),
		ConfigVersion:           d.ConfigVersion,
		Pickup:                  r.read("pickup", d.Pickup),
		Delivery:                r.read("delivery", d.Delivery),
		ExtraWeight:             r.read("extra_weight", d.ExtraWeight),
		Volumetric:              r.read("volumetric", d.Volumetric),
		ODASurcharge:            r.read("oda_surcharge", d.ODASurcharge),
		Insurance:               r.read("insurance", d.Insurance),
		PaymentFee:              r.read("payment_fee", d.PaymentFee),
		Subtotal:                r.read("subtotal", d.Subtotal),
		GST:                     r.read("gst", d.GST),
		Total:                   r.read("total", d.Total),
		CustomsDocumentRequired: d.CustomsDocumentRequired,
	}
	if w := d.Weighting; w != nil {
		b.Weighting = &domain.BookingWeighting{
			BillableWeight: r.read("billable_weight", w.BillableWeight),
			VolumeCubicM:   r.read("volume_m3", w.VolumeCubicM),
			WeightCost:     r.read("weight_cost", w.WeightCost),
			VolumeCost:     r.read("volume_cost", w.VolumeCost),
			VolumeApplied:  w.VolumeApplied,
		}
	}
	return b
}
