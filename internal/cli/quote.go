package cli

import (
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/pricing"
)

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a shipment on the quote path",
		Long: `Price a shipment from its origin class, distance and weight.

Origin classes: city, city_oda, regional, nationwide.

Examples:
  ratectl quote --origin city --distance 3 --weight 10
  ratectl quote --origin nationwide --distance 1400 --weight 42 --oda`,
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
			origin, _ := cmd.Flags().GetString("origin")
			shipment.Origin = domain.OriginClass(strings.ToLower(strings.TrimSpace(origin)))

			breakdown, err := pricing.Quote(shipment, &opts.tariff)
			if err != nil {
				return err
			}
			return renderBreakdown(cmd.OutOrStdout(), breakdown, opts)
		},
	}
	cmd.Flags().String("origin", string(domain.OriginCity), "Origin class")
	cmd.Flags().String("distance", "0", "Distance in km")
	cmd.Flags().Bool("oda", false, "Destination is outside the delivery area")
	addShipmentFlags(cmd)
	return cmd
}

// addShipmentFlags registers the parcel attributes shared by quote and book.
func addShipmentFlags(cmd *cobra.Command) {
	cmd.Flags().String("weight", "", "Actual weight in kg")
	cmd.Flags().String("length", "10", "Length in cm")
	cmd.Flags().String("width", "10", "Width in cm")
	cmd.Flags().String("height", "10", "Height in cm")
	cmd.Flags().String("declared-value", "0", "Declared value of the contents")
	cmd.Flags().String("payment", "", "Payment mode: cod, card or prepaid")
}

func shipmentFromFlags(cmd *cobra.Command) (domain.ShipmentRequest, error) {
	var s domain.ShipmentRequest
	var err error
	if s.Weight, err = parseDecimalFlag(cmd, "weight"); err != nil {
		return s, err
	}
	if s.Dimensions.Length, err = parseDecimalFlag(cmd, "length"); err != nil {
		return s, err
	}
	if s.Dimensions.Width, err = parseDecimalFlag(cmd, "width"); err != nil {
		return s, err
	}
	if s.Dimensions.Height, err = parseDecimalFlag(cmd, "height"); err != nil {
		return s, err
	}
	if s.DeclaredValue, err = parseDecimalFlag(cmd, "declared-value"); err != nil {
		return s, err
	}
	if cmd.Flags().Lookup("distance") != nil {
		if s.Distance, err = parseDecimalFlag(cmd, "distance"); err != nil {
			return s, err
		}
	}
	if cmd.Flags().Lookup("oda") != nil {
		s.ODA, _ = cmd.Flags().GetBool("oda")
	}
	payment, _ := cmd.Flags().GetString("payment")
	s.PaymentMode = domain.PaymentMode(strings.ToLower(strings.TrimSpace(payment)))
	return s, nil
}
