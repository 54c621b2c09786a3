package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/pricing"
)

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Price a shipment on the booking path",
		Long: `Price a shipment at booking time from a zone rate, volume, insurance and payment mode.

The zone is one of the default zones by name, or any rate given with --zone-rate.

Examples:
  ratectl book --zone local --weight 10 --payment prepaid
  ratectl book --zone-rate 95 --weight 22 --length 60 --width 40 --height 40 --payment cod
  ratectl book --zone national --weight 5 --insurance-value 25000 --payment card`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCommonOptions(cmd)
			if err != nil {
				return err
			}
			shipment, err := shipmentFromFlags(cmd)
			if err != nil {
				return err
			}
			if shipment.PaymentMode == "" {
				shipment.PaymentMode = domain.PaymentModePrepaid
			}
			if shipment.InsuranceValue, err = parseDecimalFlag(cmd, "insurance-value"); err != nil {
				return err
			}
			shipment.InsuranceRequested = shipment.InsuranceValue.IsPositive()

			zoneName, _ := cmd.Flags().GetString("zone")
			zone, err := resolveZone(zoneName)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("zone-rate") {
				if zone.BaseRate, err = parseDecimalFlag(cmd, "zone-rate"); err != nil {
					return err
				}
				zone.Name = "custom"
			}
			quantity, _ := cmd.Flags().GetInt("quantity")

			breakdown, err := pricing.Book(domain.BookingRequest{
				Shipment:     shipment,
				ZoneBaseRate: zone.BaseRate,
				Quantity:     quantity,
			}, &opts.tariff)
			if err != nil {
				return err
			}
			return renderBreakdown(cmd.OutOrStdout(), breakdown, opts)
		},
	}
	cmd.Flags().String("zone", "local", "Default zone name")
	cmd.Flags().String("zone-rate", "", "Per-kg zone rate overriding --zone")
	cmd.Flags().Int("quantity", 1, "Number of parcels")
	cmd.Flags().String("insurance-value", "0", "Insured value; zero skips insurance")
	addShipmentFlags(cmd)
	return cmd
}

func resolveZone(name string) (domain.Zone, error) {
	name = strings.TrimSpace(name)
	names := make([]string, 0, 5)
	for _, zone := range pricing.DefaultZones() {
		if strings.EqualFold(zone.Name, name) {
			return zone, nil
		}
		names = append(names, strings.ToLower(zone.Name))
	}
	return domain.Zone{}, fmt.Errorf("unknown zone %q (known: %s)", name, strings.Join(names, ", "))
}
