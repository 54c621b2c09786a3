package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/services"
)

var errNotStubbed = errors.New("not implemented")

type stubPricingService struct {
	quoteFn   func(context.Context, services.QuoteCommand) (services.ChargeBreakdown, error)
	bookingFn func(context.Context, services.BookingQuoteCommand) (services.BookingQuote, error)
}

func (s *stubPricingService) Quote(ctx context.Context, cmd services.QuoteCommand) (services.ChargeBreakdown, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, cmd)
	}
	return services.ChargeBreakdown{}, errNotStubbed
}

func (s *stubPricingService) QuoteBooking(ctx context.Context, cmd services.BookingQuoteCommand) (services.BookingQuote, error) {
	if s.bookingFn != nil {
		return s.bookingFn(ctx, cmd)
	}
	return services.BookingQuote{}, errNotStubbed
}

type stubOrderService struct {
	placeFn      func(context.Context, services.PlaceOrderCommand) (services.Order, error)
	getFn        func(context.Context, services.GetOrderCommand) (services.Order, error)
	trackFn      func(context.Context, string) (services.TrackingView, error)
	listFn       func(context.Context, string, services.Pagination) (domain.CursorPage[services.Order], error)
	listAllFn    func(context.Context, services.OrderFilter) (domain.CursorPage[services.Order], error)
	statusFn     func(context.Context, services.UpdateOrderStatusCommand) (services.Order, error)
	cancelFn     func(context.Context, services.CancelOrderCommand) (services.Order, error)
	paymentFn    func(context.Context, services.UpdatePaymentStatusCommand) (services.Order, error)
	eventsFn     func(context.Context, string) ([]services.DeliveryEvent, error)
	timelineFn   func(context.Context, services.GetOrderCommand) ([]services.TimelineEntry, error)
	assignFn     func(context.Context, services.AssignPartnerCommand) (services.Order, error)
	unassignedFn func(context.Context, services.Pagination) (domain.CursorPage[services.Order], error)
	invoiceFn    func(context.Context, services.IssueInvoiceCommand) (services.Order, error)
	reportFn     func(context.Context, services.OrderReportCommand) (services.OrderReport, error)
}

func (s *stubOrderService) Place(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) Get(ctx context.Context, cmd services.GetOrderCommand) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) Track(ctx context.Context, reference string) (services.TrackingView, error) {
	if s.trackFn != nil {
		return s.trackFn(ctx, reference)
	}
	return services.TrackingView{}, errNotStubbed
}

func (s *stubOrderService) ListForCustomer(ctx context.Context, customerID string, pager services.Pagination) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, customerID, pager)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) ListAll(ctx context.Context, filter services.OrderFilter) (domain.CursorPage[services.Order], error) {
	if s.listAllFn != nil {
		return s.listAllFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) UpdatePaymentStatus(ctx context.Context, cmd services.UpdatePaymentStatusCommand) (services.Order, error) {
	if s.paymentFn != nil {
		return s.paymentFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) Events(ctx context.Context, orderID string) ([]services.DeliveryEvent, error) {
	if s.eventsFn != nil {
		return s.eventsFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubOrderService) Timeline(ctx context.Context, cmd services.GetOrderCommand) ([]services.TimelineEntry, error) {
	if s.timelineFn != nil {
		return s.timelineFn(ctx, cmd)
	}
	return nil, nil
}

func (s *stubOrderService) AssignPartner(ctx context.Context, cmd services.AssignPartnerCommand) (services.Order, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) ListUnassigned(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Order], error) {
	if s.unassignedFn != nil {
		return s.unassignedFn(ctx, pager)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) IssueInvoice(ctx context.Context, cmd services.IssueInvoiceCommand) (services.Order, error) {
	if s.invoiceFn != nil {
		return s.invoiceFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) Report(ctx context.Context, cmd services.OrderReportCommand) (services.OrderReport, error) {
	if s.reportFn != nil {
		return s.reportFn(ctx, cmd)
	}
	return services.OrderReport{}, errNotStubbed
}

type stubZoneService struct {
	zones     []services.Zone
	err       error
	created   []services.CreateZoneCommand
	updated   []services.UpdateZoneCommand
	deleteErr error
	lastList  *bool
}

func (s *stubZoneService) List(_ context.Context, activeOnly bool) ([]services.Zone, error) {
	s.lastList = &activeOnly
	return s.zones, s.err
}

func (s *stubZoneService) Get(_ context.Context, zoneID string) (services.Zone, error) {
	for _, zone := range s.zones {
		if zone.ID == zoneID {
			return zone, nil
		}
	}
	return services.Zone{}, services.ErrZoneNotFound
}

func (s *stubZoneService) Create(_ context.Context, cmd services.CreateZoneCommand) (services.Zone, error) {
	s.created = append(s.created, cmd)
	if s.err != nil {
		return services.Zone{}, s.err
	}
	return services.Zone{ID: "zone-new", Name: cmd.Name, BaseRate: cmd.BaseRate, DeliveryDays: cmd.DeliveryDays, Active: cmd.Active}, nil
}

func (s *stubZoneService) Update(_ context.Context, cmd services.UpdateZoneCommand) (services.Zone, error) {
	s.updated = append(s.updated, cmd)
	if s.err != nil {
		return services.Zone{}, s.err
	}
	return services.Zone{ID: cmd.ZoneID}, nil
}

func (s *stubZoneService) Delete(context.Context, string) error {
	return s.deleteErr
}

func (s *stubZoneService) SeedDefaults(context.Context) (int, error) {
	return 4, s.err
}

type stubRateConfigService struct {
	active  services.RateConfig
	err     error
	updates []services.UpdateRateConfigCommand
	limits  []int
	seeded  bool
}

func (s *stubRateConfigService) Active(context.Context) (services.RateConfig, error) {
	return s.active, s.err
}

func (s *stubRateConfigService) Update(_ context.Context, cmd services.UpdateRateConfigCommand) (services.RateConfig, error) {
	s.updates = append(s.updates, cmd)
	if s.err != nil {
		return services.RateConfig{}, s.err
	}
	next := s.active
	next.Version = cmd.ExpectedVersion + 1
	next.GSTRate = cmd.GSTRate
	next.UpdatedBy = cmd.ActorID
	return next, nil
}

func (s *stubRateConfigService) History(_ context.Context, limit int) ([]services.RateConfig, error) {
	s.limits = append(s.limits, limit)
	return []services.RateConfig{s.active}, s.err
}

func (s *stubRateConfigService) SeedDefaults(context.Context, string) (services.RateConfig, bool, error) {
	return s.active, s.seeded, s.err
}

type stubSupportService struct {
	openFn    func(context.Context, services.OpenTicketCommand) (services.SupportTicket, error)
	getFn     func(context.Context, services.GetTicketCommand) (services.SupportTicket, error)
	replyFn   func(context.Context, services.ReplyTicketCommand) (services.SupportTicket, error)
	statusFn  func(context.Context, services.UpdateTicketStatusCommand) (services.SupportTicket, error)
	listAllFn func(context.Context, domain.TicketStatus, services.Pagination) (domain.CursorPage[services.SupportTicket], error)
}

func (s *stubSupportService) Open(ctx context.Context, cmd services.OpenTicketCommand) (services.SupportTicket, error) {
	if s.openFn != nil {
		return s.openFn(ctx, cmd)
	}
	return services.SupportTicket{}, errNotStubbed
}

func (s *stubSupportService) Get(ctx context.Context, cmd services.GetTicketCommand) (services.SupportTicket, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cmd)
	}
	return services.SupportTicket{}, errNotStubbed
}

func (s *stubSupportService) ListForCustomer(context.Context, string, services.Pagination) (domain.CursorPage[services.SupportTicket], error) {
	return domain.CursorPage[services.SupportTicket]{}, nil
}

func (s *stubSupportService) ListAll(ctx context.Context, status domain.TicketStatus, pager services.Pagination) (domain.CursorPage[services.SupportTicket], error) {
	if s.listAllFn != nil {
		return s.listAllFn(ctx, status, pager)
	}
	return domain.CursorPage[services.SupportTicket]{}, nil
}

func (s *stubSupportService) Reply(ctx context.Context, cmd services.ReplyTicketCommand) (services.SupportTicket, error) {
	if s.replyFn != nil {
		return s.replyFn(ctx, cmd)
	}
	return services.SupportTicket{}, errNotStubbed
}

func (s *stubSupportService) UpdateStatus(ctx context.Context, cmd services.UpdateTicketStatusCommand) (services.SupportTicket, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, cmd)
	}
	return services.SupportTicket{}, errNotStubbed
}

var (
	_ services.PricingService    = (*stubPricingService)(nil)
	_ services.OrderService      = (*stubOrderService)(nil)
	_ services.ZoneService       = (*stubZoneService)(nil)
	_ services.RateConfigService = (*stubRateConfigService)(nil)
	_ services.SupportService    = (*stubSupportService)(nil)
)

func withIdentity(req *http.Request, uid string, roles ...string) *http.Request {
	if len(roles) == 0 {
		roles = []string{auth.RoleCustomer}
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("failed to parse response %q: %v", string(body), err)
	}
	return payload
}
