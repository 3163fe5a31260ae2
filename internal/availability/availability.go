package availability

import (
	"errors"
	"iter"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("invalid date format")
	ErrInvalidHours = errors.New("invalid business hours")
)

// Slot is a candidate booking window, half-open: [Start, End).
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Hours describes the fixed business day the calculator works with.
type Hours struct {
	StartHour   int
	EndHour     int
	SlotMinutes int
}

var DefaultHours = Hours{StartHour: 9, EndHour: 18, SlotMinutes: 30}

func (h Hours) Validate() error {
	if h.SlotMinutes <= 0 || h.StartHour < 0 || h.EndHour > 24 || h.StartHour >= h.EndHour {
		return ErrInvalidHours
	}
	return nil
}

func (h Hours) SlotLength() time.Duration {
	return time.Duration(h.SlotMinutes) * time.Minute
}

// Slots yields every slot of the calendar day of date (its time of day is
// ignored) whose start is strictly after now. The sequence is computed on
// each iteration, so it can be ranged over more than once.
func (h Hours) Slots(date time.Time, loc *time.Location, now time.Time) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if h.Validate() != nil {
			return
		}
		y, m, d := date.In(loc).Date()
		step := h.SlotLength()
		dayEnd := time.Date(y, m, d, h.EndHour, 0, 0, 0, loc)
		for cursor := time.Date(y, m, d, h.StartHour, 0, 0, 0, loc); !cursor.Add(step).After(dayEnd); cursor = cursor.Add(step) {
			if !cursor.After(now) {
				continue
			}
			if !yield(Slot{Start: cursor, End: cursor.Add(step)}) {
				return
			}
		}
	}
}

// Fits reports whether s covers one or more consecutive business slots of a
// single day: both ends sit on the slot grid, between opening and closing.
func (h Hours) Fits(s Slot, loc *time.Location) bool {
	if h.Validate() != nil || !s.Start.Before(s.End) {
		return false
	}
	start, end := s.Start.In(loc), s.End.In(loc)
	y, m, d := start.Date()
	open := time.Date(y, m, d, h.StartHour, 0, 0, 0, loc)
	closing := time.Date(y, m, d, h.EndHour, 0, 0, 0, loc)
	if start.Before(open) || end.After(closing) {
		return false
	}
	step := h.SlotLength()
	return start.Sub(open)%step == 0 && end.Sub(open)%step == 0
}

// IsDayEligible gates which dates can be picked: weekends and days strictly
// before today are not bookable.
func IsDayEligible(date time.Time, loc *time.Location, now time.Time) bool {
	day := StartOfDay(date, loc)
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !day.Before(StartOfDay(now, loc))
}

func IsDatePast(date time.Time, loc *time.Location, now time.Time) bool {
	return StartOfDay(date, loc).Before(StartOfDay(now, loc))
}

// Overlaps uses half-open intervals, so a slot ending exactly when another
// begins does not overlap it.
func Overlaps(a, b Slot) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Free drops every slot that overlaps one of the booked intervals.
func Free(slots iter.Seq[Slot], booked []Slot) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for s := range slots {
			taken := false
			for _, b := range booked {
				if Overlaps(s, b) {
					taken = true
					break
				}
			}
			if taken {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

// DateOf formats the business-calendar date of t.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}
