package availability

import (
	"slices"
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestSlotsFullDay(t *testing.T) {
	loc := mustLoadLoc(t)
	date := time.Date(2026, 2, 2, 0, 0, 0, 0, loc)
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, loc)

	slots := slices.Collect(DefaultHours.Slots(date, loc, now))
	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	if got := slots[0].Start.Format("15:04"); got != "09:00" {
		t.Fatalf("unexpected first slot %s", got)
	}
	last := slots[len(slots)-1]
	if last.Start.Format("15:04") != "17:30" || last.End.Format("15:04") != "18:00" {
		t.Fatalf("unexpected last slot %v", last)
	}
	for _, s := range slots {
		if s.End.Sub(s.Start) != 30*time.Minute {
			t.Fatalf("unexpected slot length %v", s)
		}
	}
}

func TestSlotsIgnoresTimeOfDay(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, loc)
	morning := slices.Collect(DefaultHours.Slots(time.Date(2026, 2, 2, 0, 0, 0, 0, loc), loc, now))
	evening := slices.Collect(DefaultHours.Slots(time.Date(2026, 2, 2, 22, 15, 0, 0, loc), loc, now))
	if len(morning) != len(evening) || !morning[0].Start.Equal(evening[0].Start) {
		t.Fatalf("expected the same slots for the same calendar day")
	}
}

func TestSlotsTodayExcludesPast(t *testing.T) {
	loc := mustLoadLoc(t)
	date := time.Date(2026, 2, 4, 0, 0, 0, 0, loc)
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, loc)

	slots := slices.Collect(DefaultHours.Slots(date, loc, now))
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(slots))
	}
	if got := slots[0].Start.Format("15:04"); got != "10:30" {
		t.Fatalf("slot starting exactly now must be excluded, first slot %s", got)
	}
}

func TestSlotsTodayAfterClosing(t *testing.T) {
	loc := mustLoadLoc(t)
	date := time.Date(2026, 2, 4, 0, 0, 0, 0, loc)
	now := time.Date(2026, 2, 4, 18, 5, 0, 0, loc)

	if n := len(slices.Collect(DefaultHours.Slots(date, loc, now))); n != 0 {
		t.Fatalf("expected no slots after closing, got %d", n)
	}
}

func TestSlotsRestartable(t *testing.T) {
	loc := mustLoadLoc(t)
	seq := DefaultHours.Slots(time.Date(2026, 2, 2, 0, 0, 0, 0, loc), loc, time.Date(2026, 1, 1, 0, 0, 0, 0, loc))

	first := 0
	for range seq {
		first++
		if first == 3 {
			break
		}
	}
	second := len(slices.Collect(seq))
	if first != 3 || second != 18 {
		t.Fatalf("expected a restartable sequence, got %d then %d", first, second)
	}
}

func TestSlotsCustomHours(t *testing.T) {
	loc := mustLoadLoc(t)
	hours := Hours{StartHour: 9, EndHour: 12, SlotMinutes: 45}
	slots := slices.Collect(hours.Slots(time.Date(2026, 2, 2, 0, 0, 0, 0, loc), loc, time.Time{}))
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if got := slots[3].Start.Format("15:04"); got != "11:15" {
		t.Fatalf("unexpected last slot %s", got)
	}

	if n := len(slices.Collect(Hours{StartHour: 18, EndHour: 9, SlotMinutes: 30}.Slots(time.Now(), loc, time.Time{}))); n != 0 {
		t.Fatalf("expected invalid hours to yield nothing, got %d", n)
	}
}

func TestIsDayEligible(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 2, 4, 19, 0, 0, 0, loc) // Wednesday evening

	cases := []struct {
		name string
		date time.Time
		want bool
	}{
		{"today", time.Date(2026, 2, 4, 0, 0, 0, 0, loc), true},
		{"yesterday", time.Date(2026, 2, 3, 0, 0, 0, 0, loc), false},
		{"friday", time.Date(2026, 2, 6, 0, 0, 0, 0, loc), true},
		{"saturday", time.Date(2026, 2, 7, 0, 0, 0, 0, loc), false},
		{"sunday", time.Date(2026, 2, 8, 0, 0, 0, 0, loc), false},
		{"next monday", time.Date(2026, 2, 9, 0, 0, 0, 0, loc), true},
	}
	for _, tc := range cases {
		if got := IsDayEligible(tc.date, loc, now); got != tc.want {
			t.Fatalf("%s: IsDayEligible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	a := Slot{Start: base, End: base.Add(30 * time.Minute)}

	cases := []struct {
		name string
		b    Slot
		want bool
	}{
		{"identical", a, true},
		{"touching after", Slot{Start: a.End, End: a.End.Add(30 * time.Minute)}, false},
		{"touching before", Slot{Start: base.Add(-30 * time.Minute), End: base}, false},
		{"start inside", Slot{Start: base.Add(15 * time.Minute), End: base.Add(45 * time.Minute)}, true},
		{"end inside", Slot{Start: base.Add(-15 * time.Minute), End: base.Add(15 * time.Minute)}, true},
		{"containing", Slot{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}, true},
		{"contained", Slot{Start: base.Add(10 * time.Minute), End: base.Add(20 * time.Minute)}, true},
	}
	for _, tc := range cases {
		if got := Overlaps(a, tc.b); got != tc.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if got := Overlaps(tc.b, a); got != tc.want {
			t.Fatalf("%s (swapped): Overlaps = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFree(t *testing.T) {
	loc := mustLoadLoc(t)
	date := time.Date(2026, 2, 2, 0, 0, 0, 0, loc)
	booked := []Slot{{
		Start: time.Date(2026, 2, 2, 9, 30, 0, 0, loc),
		End:   time.Date(2026, 2, 2, 10, 30, 0, 0, loc),
	}}
	free := slices.Collect(Free(DefaultHours.Slots(date, loc, time.Time{}), booked))
	if len(free) != 16 {
		t.Fatalf("expected 16 free slots, got %d", len(free))
	}
	if free[0].Start.Format("15:04") != "09:00" || free[1].Start.Format("15:04") != "10:30" {
		t.Fatalf("unexpected free slots: %v %v", free[0], free[1])
	}
}

func TestFits(t *testing.T) {
	loc := mustLoadLoc(t)
	at := func(h, m int) time.Time { return time.Date(2026, 2, 2, h, m, 0, 0, loc) }

	cases := []struct {
		name string
		slot Slot
		want bool
	}{
		{"single slot", Slot{Start: at(14, 0), End: at(14, 30)}, true},
		{"two slots", Slot{Start: at(9, 0), End: at(10, 0)}, true},
		{"last slot", Slot{Start: at(17, 30), End: at(18, 0)}, true},
		{"misaligned", Slot{Start: at(14, 10), End: at(14, 40)}, false},
		{"night", Slot{Start: at(3, 7), End: at(3, 19)}, false},
		{"before opening", Slot{Start: at(8, 30), End: at(9, 0)}, false},
		{"after closing", Slot{Start: at(17, 30), End: at(18, 30)}, false},
		{"reversed", Slot{Start: at(10, 0), End: at(9, 30)}, false},
		{"next day", Slot{Start: at(17, 30), End: at(17, 30).AddDate(0, 0, 1)}, false},
	}
	for _, tc := range cases {
		if got := DefaultHours.Fits(tc.slot, loc); got != tc.want {
			t.Fatalf("%s: Fits = %v, want %v", tc.name, got, tc.want)
		}
	}

	utc := Slot{Start: time.Date(2026, 2, 2, 13, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 2, 13, 30, 0, 0, time.UTC)}
	if !DefaultHours.Fits(utc, loc) {
		t.Fatalf("expected 14:00 Paris given in UTC to fit")
	}
}

func TestParseDate(t *testing.T) {
	loc := mustLoadLoc(t)
	if _, err := ParseDate("2026-13-01", loc); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	d, err := ParseDate("2026-02-04", loc)
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if DateOf(d.Add(23*time.Hour), loc) != "2026-02-04" {
		t.Fatalf("unexpected DateOf result")
	}
}
