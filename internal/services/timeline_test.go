package services

import (
	"testing"
	"time"

	domain "github.com/parcelrate/api/internal/domain"
)

func TestBuildTimelinePendingShowsExpectedDelivery(t *testing.T) {
	order := Order{
		Status:            domain.DeliveryStatusPending,
		CreatedAt:         testNow,
		EstimatedDelivery: time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC),
	}

	timeline := BuildTimeline(order, nil)

	if len(timeline) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(timeline))
	}
	if timeline[0].Label != "Order Placed" || !timeline[0].Completed {
		t.Fatalf("unexpected first entry %+v", timeline[0])
	}
	last := timeline[1]
	if last.Completed || last.Description != "Expected delivery by March 07, 2024" {
		t.Fatalf("unexpected pending entry %+v", last)
	}
}

func TestBuildTimelineInTransitUsesEventTimes(t *testing.T) {
	picked := testNow.Add(time.Hour)
	moving := testNow.Add(3 * time.Hour)
	order := Order{
		Status:     domain.DeliveryStatusInTransit,
		CreatedAt:  testNow,
		PickedUpAt: &picked,
	}
	events := []DeliveryEvent{
		{Status: domain.DeliveryStatusPending, OccurredAt: testNow},
		{Status: domain.DeliveryStatusPickedUp, OccurredAt: picked},
		{Status: domain.DeliveryStatusInTransit, OccurredAt: moving},
		{Status: domain.DeliveryStatusInTransit, OccurredAt: moving.Add(time.Hour)},
	}

	timeline := BuildTimeline(order, events)

	labels := []string{"Order Placed", "Package Picked Up", "In Transit", "Delivered"}
	if len(timeline) != len(labels) {
		t.Fatalf("expected %d entries, got %d", len(labels), len(timeline))
	}
	for i, label := range labels {
		if timeline[i].Label != label {
			t.Fatalf("entry %d: expected %q, got %q", i, label, timeline[i].Label)
		}
	}
	if timeline[2].Timestamp == nil || !timeline[2].Timestamp.Equal(moving) {
		t.Fatalf("expected first in-transit event time, got %v", timeline[2].Timestamp)
	}
	if timeline[3].Completed {
		t.Fatalf("delivery should still be pending")
	}
}

func TestBuildTimelineTerminalStates(t *testing.T) {
	delivered := testNow.Add(48 * time.Hour)
	order := Order{Status: domain.DeliveryStatusDelivered, CreatedAt: testNow, DeliveredAt: &delivered}
	timeline := BuildTimeline(order, nil)
	last := timeline[len(timeline)-1]
	if last.Label != "Delivered" || !last.Completed || !last.Timestamp.Equal(delivered) {
		t.Fatalf("unexpected delivered entry %+v", last)
	}

	cancelledAt := testNow.Add(time.Hour)
	order = Order{Status: domain.DeliveryStatusCancelled, CreatedAt: testNow, CancelledAt: &cancelledAt}
	timeline = BuildTimeline(order, nil)
	if len(timeline) != 2 || timeline[1].Label != "Cancelled" {
		t.Fatalf("unexpected cancelled timeline %+v", timeline)
	}
}
