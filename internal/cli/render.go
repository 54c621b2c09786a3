package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/money"
)

type breakdownJSON struct {
	Path                    string `json:"path"`
	ConfigVersion           int    `json:"config_version"`
	Currency                string `json:"currency"`
	Pickup                  string `json:"pickup"`
	Delivery                string `json:"delivery"`
	ExtraWeight             string `json:"extra_weight"`
	Volumetric              string `json:"volumetric"`
	ODASurcharge            string `json:"oda_surcharge"`
	Insurance               string `json:"insurance"`
	PaymentFee              string `json:"payment_fee"`
	Subtotal                string `json:"subtotal"`
	GST                     string `json:"gst"`
	Total                   string `json:"total"`
	CustomsDocumentRequired bool   `json:"customs_document_required"`
}

func renderBreakdown(w io.Writer, b domain.ChargeBreakdown, opts commonOptions) error {
	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdownJSON{
			Path:                    string(b.Path),
			ConfigVersion:           b.ConfigVersion,
			Currency:                opts.formatter.Code(),
			Pickup:                  money.Amount(b.Pickup),
			Delivery:                money.Amount(b.Delivery),
			ExtraWeight:             money.Amount(b.ExtraWeight),
			Volumetric:              money.Amount(b.Volumetric),
			ODASurcharge:            money.Amount(b.ODASurcharge),
			Insurance:               money.Amount(b.Insurance),
			PaymentFee:              money.Amount(b.PaymentFee),
			Subtotal:                money.Amount(b.Subtotal),
			GST:                     money.Amount(b.GST),
			Total:                   money.Amount(b.Total),
			CustomsDocumentRequired: b.CustomsDocumentRequired,
		})
	}

	header := color.New(color.Bold)
	fmt.Fprintln(w, header.Sprintf("%s breakdown (tariff v%d)", b.Path, b.ConfigVersion))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Pickup", b.Pickup},
		{"Delivery", b.Delivery},
		{"Extra weight", b.ExtraWeight},
		{"Volumetric", b.Volumetric},
		{"ODA surcharge", b.ODASurcharge},
		{"Insurance", b.Insurance},
		{"Payment fee", b.PaymentFee},
	}
	for _, row := range rows {
		if row.amount.IsZero() {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\n", row.label, opts.formatter.Format(row.amount))
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "Subtotal", opts.formatter.Format(b.Subtotal))
	fmt.Fprintf(tw, "  %s\t%s\n", "GST", opts.formatter.Format(b.GST))
	fmt.Fprintf(tw, "  %s\t%s\n", color.New(color.Bold).Sprint("Total"), color.New(color.FgHiGreen, color.Bold).Sprint(opts.formatter.Format(b.Total)))
	if err := tw.Flush(); err != nil {
		return err
	}

	if wt := b.Weighting; wt != nil {
		basis := "weight"
		if wt.VolumeApplied {
			basis = "volume"
		}
		fmt.Fprintf(w, "  billed on %s: %s kg billable, %s m³\n", basis, wt.BillableWeight.String(), wt.VolumeCubicM.String())
	}
	if b.CustomsDocumentRequired {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprint("  customs document required"))
	}
	return nil
}

func renderTariff(w io.Writer, cfg domain.RateConfig, zones []domain.Zone, formatter *money.Formatter) error {
	fmt.Fprintln(w, color.New(color.Bold).Sprintf("Tariff v%d", cfg.Version))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	amounts := []struct {
		label string
		value decimal.Decimal
	}{
		{"Pickup (city)", cfg.PickupCity},
		{"Pickup (city ODA)", cfg.PickupCityODA},
		{"City tier 1 (<=5 km)", cfg.CityTier1},
		{"City tier 2 (<=15 km)", cfg.CityTier2},
		{"Regional base", cfg.RegionalBase},
		{"Regional per kg", cfg.RegionalPerKg},
		{"Nationwide base", cfg.NationwideBase},
		{"Nationwide per kg", cfg.NationwidePerKg},
		{"ODA surcharge", cfg.ODASurcharge},
		{"Volume rate per m³", cfg.VolumeRate},
		{"Booking pickup", cfg.BookingPickup},
		{"Extra per kg", cfg.ExtraPerKg},
		{"Cancellation fee", cfg.CancellationFee},
	}
	for _, row := range amounts {
		fmt.Fprintf(tw, "  %s\t%s\n", row.label, formatter.Format(row.value))
	}
	fmt.Fprintf(tw, "  %s\t%s kg\n", "Minimum weight", cfg.MinWeight.String())
	rates := []struct {
		label string
		value decimal.Decimal
	}{
		{"GST", cfg.GSTRate},
		{"Insurance", cfg.InsuranceRate},
		{"COD fee", cfg.CODFeeRate},
		{"Card fee", cfg.CardFeeRate},
	}
	for _, row := range rates {
		fmt.Fprintf(tw, "  %s\t%s%%\n", row.label, row.value.Shift(2).String())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(zones) == 0 {
		return nil
	}
	fmt.Fprintln(w, color.New(color.Bold).Sprint("Zones"))
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, zone := range zones {
		fmt.Fprintf(tw, "  %s\t%s/kg\t%d days\n", color.New(color.FgCyan).Sprint(zone.Name), formatter.Format(zone.BaseRate), zone.DeliveryDays)
	}
	return tw.Flush()
}
