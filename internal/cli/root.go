// Package cli implements ratectl, an offline front end to the pricing engine.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/pricing"
)

// RootCmd builds the ratectl command tree.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratectl",
		Short: "Price shipments offline against a tariff",
		Long: `ratectl runs the pricing engine locally without the API.

The tariff defaults to the built-in seed. Pass --config with a JSON file to override
individual rates; keys match the admin pricing payload (gst_rate, pickup_city, ...).`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "JSON tariff file overriding the default rates")
	cmd.PersistentFlags().String("currency", money.DefaultCurrency, "ISO currency used when printing amounts")
	cmd.PersistentFlags().Bool("json", false, "Print the breakdown as JSON")

	cmd.AddCommand(quoteCmd())
	cmd.AddCommand(bookCmd())
	cmd.AddCommand(defaultsCmd())
	return cmd
}

// tariffFile mirrors the admin pricing payload. Absent keys keep the default rate.
type tariffFile struct {
	Version         *int             `json:"version"`
	GSTRate         *decimal.Decimal `json:"gst_rate"`
	PickupCity      *decimal.Decimal `json:"pickup_city"`
	PickupCityODA   *decimal.Decimal `json:"pickup_city_oda"`
	CityTier1       *decimal.Decimal `json:"city_tier1"`
	CityTier2       *decimal.Decimal `json:"city_tier2"`
	RegionalBase    *decimal.Decimal `json:"regional_base"`
	RegionalPerKg   *decimal.Decimal `json:"regional_per_kg"`
	NationwideBase  *decimal.Decimal `json:"nationwide_base"`
	NationwidePerKg *decimal.Decimal `json:"nationwide_per_kg"`
	ODASurcharge    *decimal.Decimal `json:"oda_surcharge"`
	MinWeight       *decimal.Decimal `json:"min_weight"`
	VolumeRate      *decimal.Decimal `json:"volume_rate"`
	CancellationFee *decimal.Decimal `json:"cancellation_fee"`
	BookingPickup   *decimal.Decimal `json:"booking_pickup"`
	ExtraPerKg      *decimal.Decimal `json:"extra_per_kg"`
	InsuranceRate   *decimal.Decimal `json:"insurance_rate"`
	CODFeeRate      *decimal.Decimal `json:"cod_fee_rate"`
	CardFeeRate     *decimal.Decimal `json:"card_fee_rate"`
}

func (f tariffFile) apply(cfg *domain.RateConfig) {
	if f.Version != nil {
		cfg.Version = *f.Version
	}
	overrides := []struct {
		src *decimal.Decimal
		dst *decimal.Decimal
	}{
		{f.GSTRate, &cfg.GSTRate},
		{f.PickupCity, &cfg.PickupCity},
		{f.PickupCityODA, &cfg.PickupCityODA},
		{f.CityTier1, &cfg.CityTier1},
		{f.CityTier2, &cfg.CityTier2},
		{f.RegionalBase, &cfg.RegionalBase},
		{f.RegionalPerKg, &cfg.RegionalPerKg},
		{f.NationwideBase, &cfg.NationwideBase},
		{f.NationwidePerKg, &cfg.NationwidePerKg},
		{f.ODASurcharge, &cfg.ODASurcharge},
		{f.MinWeight, &cfg.MinWeight},
		{f.VolumeRate, &cfg.VolumeRate},
		{f.CancellationFee, &cfg.CancellationFee},
		{f.BookingPickup, &cfg.BookingPickup},
		{f.ExtraPerKg, &cfg.ExtraPerKg},
		{f.InsuranceRate, &cfg.InsuranceRate},
		{f.CODFeeRate, &cfg.CODFeeRate},
		{f.CardFeeRate, &cfg.CardFeeRate},
	}
	for _, o := range overrides {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
}

// loadTariff returns the default tariff with any overrides from path applied.
func loadTariff(path string) (domain.RateConfig, error) {
	cfg := pricing.DefaultRateConfig()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.RateConfig{}, fmt.Errorf("failed to read tariff file: %w", err)
	}
	var file tariffFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return domain.RateConfig{}, fmt.Errorf("failed to parse tariff file %s: %w", path, err)
	}
	file.apply(&cfg)
	if err := pricing.ValidateConfig(&cfg); err != nil {
		return domain.RateConfig{}, fmt.Errorf("tariff file %s: %w", path, err)
	}
	return cfg, nil
}

// commonOptions reads the persistent flags shared by every subcommand.
type commonOptions struct {
	tariff    domain.RateConfig
	formatter *money.Formatter
	asJSON    bool
}

func readCommonOptions(cmd *cobra.Command) (commonOptions, error) {
	configPath, _ := cmd.Flags().GetString("config")
	code, _ := cmd.Flags().GetString("currency")
	asJSON, _ := cmd.Flags().GetBool("json")

	tariff, err := loadTariff(configPath)
	if err != nil {
		return commonOptions{}, err
	}
	formatter, err := money.NewFormatter(code, "")
	if err != nil {
		return commonOptions{}, err
	}
	return commonOptions{tariff: tariff, formatter: formatter, asJSON: asJSON}, nil
}

func parseDecimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %q is not a number", name, raw)
	}
	return value, nil
}
