package firestore

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
)

func TestOrderDocumentKeepsExactAmounts(t *testing.T) {
	placed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.FixedZone("IST", 19800))
	order := domain.Order{
		ID:        "01HZX",
		Reference: "AAAA0124050001",
		Status:    domain.DeliveryStatusPending,
		Breakdown: domain.ChargeBreakdown{
			Path:     domain.PricingPathBooking,
			Subtotal: decimal.RequireFromString("1650.00"),
			GST:      decimal.RequireFromString("297.00"),
			Total:    decimal.RequireFromString("1947.00"),
			Weighting: &domain.BookingWeighting{
				VolumeCubicM: decimal.RequireFromString("0.024"),
			},
		},
		CreatedAt: placed,
	}

	decoded, err := encodeOrder(order).toDomain(order.ID)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Breakdown.Total.Equal(order.Breakdown.Total) {
		t.Fatalf("expected total %s, got %s", order.Breakdown.Total, decoded.Breakdown.Total)
	}
	if decoded.Breakdown.Weighting == nil || !decoded.Breakdown.Weighting.VolumeCubicM.Equal(decimal.RequireFromString("0.024")) {
		t.Fatalf("expected weighting to survive, got %+v", decoded.Breakdown.Weighting)
	}
	if decoded.CreatedAt.Location() != time.UTC || !decoded.CreatedAt.Equal(placed) {
		t.Fatalf("expected UTC instant, got %s", decoded.CreatedAt)
	}
}

func TestOrderDocumentCarriesAssignmentAndInvoice(t *testing.T) {
	at := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:            "01HZY",
		Reference:     "AAAA0205240002",
		PartnerID:     "partner-9",
		AssignedAt:    &at,
		InvoiceNumber: "INV-AAAA0205240002",
		InvoiceDate:   &at,
	}

	doc := encodeOrder(order)
	if doc.PartnerID != "partner-9" || !doc.InvoiceGenerated {
		t.Fatalf("unexpected document %+v", doc)
	}
	if encodeOrder(domain.Order{ID: "01HZZ"}).InvoiceGenerated {
		t.Fatalf("expected uninvoiced order to store invoice_generated false")
	}

	decoded, err := doc.toDomain(order.ID)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.PartnerID != "partner-9" || decoded.AssignedAt == nil || !decoded.AssignedAt.Equal(at) {
		t.Fatalf("expected assignment to survive, got %+v", decoded)
	}
	if !decoded.Invoiced() || decoded.InvoiceNumber != order.InvoiceNumber || !decoded.InvoiceDate.Equal(at) {
		t.Fatalf("expected invoice to survive, got %+v", decoded)
	}
}

func TestOrderDocumentRejectsCorruptAmount(t *testing.T) {
	doc := encodeOrder(domain.Order{ID: "x"})
	doc.Breakdown.Total = "12,00"
	_, err := doc.toDomain("x")
	if err == nil || !strings.Contains(err.Error(), "total") {
		t.Fatalf("expected total decode error, got %v", err)
	}
}

func TestRateConfigDocumentEmptyFieldsDecodeAsZero(t *testing.T) {
	cfg, err := rateConfigDocument{Version: 3, GSTRate: "0.18"}.toDomain()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !cfg.PickupCity.IsZero() || cfg.Version != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
