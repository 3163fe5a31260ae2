package reservations

import (
	"context"
	"testing"
	"time"
)

func TestAvailabilityDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := f.svc.Location()
	if _, err := f.svc.Create(ctx, validRequest("2025-06-02T09:00:00+02:00", "2025-06-02T09:30:00+02:00")); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	day, err := f.svc.Availability(ctx, time.Date(2025, 6, 2, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if !day.Available || len(day.Slots) != 17 {
		t.Fatalf("expected 17 free slots, got %d", len(day.Slots))
	}
	if got := day.Slots[0].Start.In(loc).Format("15:04"); got != "09:30" {
		t.Fatalf("booked slot must be skipped, first slot %s", got)
	}
	if day.Timezone != "Europe/Paris" || day.Date != "2025-06-02" {
		t.Fatalf("unexpected day header %+v", day)
	}
}

func TestAvailabilityClosedDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := f.svc.Location()
	f.exclusions.items = []Exclusion{{ID: "x", StartDate: "2025-06-10", EndDate: "2025-06-12"}}

	cases := []struct {
		date   time.Time
		reason string
	}{
		{time.Date(2025, 5, 27, 0, 0, 0, 0, loc), ReasonPast},
		{time.Date(2025, 6, 7, 0, 0, 0, 0, loc), ReasonWeekend},
		{time.Date(2025, 6, 11, 0, 0, 0, 0, loc), ReasonExcluded},
	}
	for _, tc := range cases {
		day, err := f.svc.Availability(ctx, tc.date)
		if err != nil {
			t.Fatalf("Availability error: %v", err)
		}
		if day.Available || day.Reason != tc.reason || len(day.Slots) != 0 {
			t.Fatalf("%s: expected closed day (%s), got %+v", tc.date.Format("2006-01-02"), tc.reason, day)
		}
	}
}

func TestNextAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := f.svc.Location()

	day, ok, err := f.svc.NextAvailable(ctx, time.Date(2025, 5, 31, 0, 0, 0, 0, loc))
	if err != nil || !ok {
		t.Fatalf("NextAvailable error: %v ok=%v", err, ok)
	}
	if day.Date != "2025-06-02" {
		t.Fatalf("expected the following Monday, got %s", day.Date)
	}

	day, ok, _ = f.svc.NextAvailable(ctx, time.Date(2025, 5, 1, 0, 0, 0, 0, loc))
	if !ok || day.Date != "2025-05-28" {
		t.Fatalf("past start must clamp to today, got %s", day.Date)
	}
	if got := day.Slots[0].Start.In(loc).Format("15:04"); got != "12:30" {
		t.Fatalf("today's slots must start after now, got %s", got)
	}

	f.exclusions.items = []Exclusion{{ID: "x", StartDate: "2025-05-01", EndDate: "2025-12-31"}}
	if _, ok, _ := f.svc.NextAvailable(ctx, time.Date(2025, 6, 2, 0, 0, 0, 0, loc)); ok {
		t.Fatalf("expected no availability inside a long exclusion")
	}
}
