package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/pagination"
	"github.com/parcelrate/api/internal/repositories"
)

const reportTopN = 5

// Report walks every order in the window and aggregates counts and revenue. Cancelled orders
// contribute their cancellation fee rather than their booked total.
func (s *orderService) Report(ctx context.Context, cmd OrderReportCommand) (OrderReport, error) {
	from, to := cmd.From.UTC(), cmd.To.UTC()
	if !cmd.From.IsZero() && !cmd.To.IsZero() && !to.After(from) {
		return OrderReport{}, fieldError(ErrOrderInvalidInput, "to", "gtfield")
	}

	acc := newReportAccumulator()
	pager := Pagination{PageSize: pagination.MaxPageSize}
	for {
		page, err := s.list(ctx, repositories.OrderListFilter{Pagination: pager})
		if err != nil {
			return OrderReport{}, err
		}
		for _, order := range page.Items {
			if !cmd.From.IsZero() && order.CreatedAt.Before(from) {
				continue
			}
			if !cmd.To.IsZero() && !order.CreatedAt.Before(to) {
				continue
			}
			acc.add(order)
		}
		if page.NextPageToken == "" {
			break
		}
		pager.PageToken = page.NextPageToken
	}

	report := acc.report()
	report.GeneratedAt = s.clock()
	s.logger(ctx, "order.report", map[string]any{
		"orders":  report.TotalOrders,
		"revenue": report.TotalRevenue.StringFixed(2),
	})
	return report, nil
}

type reportAccumulator struct {
	total      int
	unassigned int
	invoiced   int
	revenue    decimal.Decimal
	statuses   map[domain.DeliveryStatus]int
	months     map[string]*MonthlyRevenue
	zones      map[string]*ZoneRevenue
	partners   map[string]int
}

func newReportAccumulator() *reportAccumulator {
	return &reportAccumulator{
		revenue:  decimal.Zero,
		statuses: map[domain.DeliveryStatus]int{},
		months:   map[string]*MonthlyRevenue{},
		zones:    map[string]*ZoneRevenue{},
		partners: map[string]int{},
	}
}

func (a *reportAccumulator) add(order Order) {
	a.total++
	a.statuses[order.Status]++
	if order.Invoiced() {
		a.invoiced++
	}
	if order.PartnerID == "" {
		a.unassigned++
	} else {
		a.partners[order.PartnerID]++
	}

	amount := orderRevenue(order)
	a.revenue = a.revenue.Add(amount)

	key := order.CreatedAt.UTC().Format("2006-01")
	month, ok := a.months[key]
	if !ok {
		month = &MonthlyRevenue{Month: key, Revenue: decimal.Zero}
		a.months[key] = month
	}
	month.Orders++
	month.Revenue = month.Revenue.Add(amount)

	zone, ok := a.zones[order.ZoneID]
	if !ok {
		zone = &ZoneRevenue{ZoneID: order.ZoneID, ZoneName: order.ZoneName, Revenue: decimal.Zero}
		a.zones[order.ZoneID] = zone
	}
	zone.Orders++
	zone.Revenue = zone.Revenue.Add(amount)
}

func (a *reportAccumulator) report() OrderReport {
	report := OrderReport{
		TotalOrders:    a.total,
		StatusCounts:   a.statuses,
		TotalRevenue:   a.revenue,
		Unassigned:     a.unassigned,
		Invoiced:       a.invoiced,
		RevenueByMonth: make([]MonthlyRevenue, 0, len(a.months)),
	}
	for _, month := range a.months {
		report.RevenueByMonth = append(report.RevenueByMonth, *month)
	}
	sort.Slice(report.RevenueByMonth, func(i, j int) bool {
		return report.RevenueByMonth[i].Month < report.RevenueByMonth[j].Month
	})

	zones := make([]ZoneRevenue, 0, len(a.zones))
	for _, zone := range a.zones {
		zones = append(zones, *zone)
	}
	sort.Slice(zones, func(i, j int) bool {
		if cmp := zones[i].Revenue.Cmp(zones[j].Revenue); cmp != 0 {
			return cmp > 0
		}
		return zones[i].ZoneName < zones[j].ZoneName
	})
	report.TopZones = zones[:min(len(zones), reportTopN)]

	partners := make([]PartnerLoad, 0, len(a.partners))
	for id, count := range a.partners {
		partners = append(partners, PartnerLoad{PartnerID: id, Orders: count})
	}
	sort.Slice(partners, func(i, j int) bool {
		if partners[i].Orders != partners[j].Orders {
			return partners[i].Orders > partners[j].Orders
		}
		return partners[i].PartnerID < partners[j].PartnerID
	})
	report.TopPartners = partners[:min(len(partners), reportTopN)]
	return report
}

func orderRevenue(order Order) decimal.Decimal {
	if order.Status == domain.DeliveryStatusCancelled {
		return order.CancellationFee
	}
	return order.Breakdown.Total
}
