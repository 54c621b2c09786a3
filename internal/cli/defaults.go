package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/parcelrate/api/internal/pricing"
)

func defaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the tariff and zones in effect",
		Long: `Print the tariff ratectl prices with, after --config overrides, and the default zones.

With --json the tariff is printed in the --config file format, so the output can be edited
and fed back:
  ratectl defaults --json > tariff.json
  ratectl quote --config tariff.json --weight 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCommonOptions(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.asJSON {
				cfg := opts.tariff
				version := cfg.Version
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tariffFile{
					Version:         &version,
					GSTRate:         &cfg.GSTRate,
					PickupCity:      &cfg.PickupCity,
					PickupCityODA:   &cfg.PickupCityODA,
					CityTier1:       &cfg.CityTier1,
					CityTier2:       &cfg.CityTier2,
					RegionalBase:    &cfg.RegionalBase,
					RegionalPerKg:   &cfg.RegionalPerKg,
					NationwideBase:  &cfg.NationwideBase,
					NationwidePerKg: &cfg.NationwidePerKg,
					ODASurcharge:    &cfg.ODASurcharge,
					MinWeight:       &cfg.MinWeight,
					VolumeRate:      &cfg.VolumeRate,
					CancellationFee: &cfg.CancellationFee,
					BookingPickup:   &cfg.BookingPickup,
					ExtraPerKg:      &cfg.ExtraPerKg,
					InsuranceRate:   &cfg.InsuranceRate,
					CODFeeRate:      &cfg.CODFeeRate,
					CardFeeRate:     &cfg.CardFeeRate,
				})
			}
			return renderTariff(out, opts.tariff, pricing.DefaultZones(), opts.formatter)
		},
	}
}
