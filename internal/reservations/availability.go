package reservations

import (
	"context"
	"errors"
	"slices"
	"time"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/httpx"
)

const NextAvailableHorizonDays = 30

// Reasons reported when a day has no bookable slot.
const (
	ReasonPast     = "past"
	ReasonWeekend  = "weekend"
	ReasonExcluded = "excluded"
	ReasonFull     = "full"
)

type DayAvailability struct {
	Date      string              `json:"date"`
	Timezone  string              `json:"timezone"`
	Available bool                `json:"available"`
	Reason    string              `json:"reason,omitempty"`
	Slots     []availability.Slot `json:"slots"`
}

// Availability lists the free slots of one business day.
func (s *Service) Availability(ctx context.Context, date time.Time) (DayAvailability, error) {
	now := s.now()
	day := availability.StartOfDay(date, s.location)
	out := DayAvailability{
		Date:     availability.DateOf(day, s.location),
		Timezone: s.location.String(),
		Slots:    []availability.Slot{},
	}

	if !availability.IsDayEligible(day, s.location, now) {
		out.Reason = ReasonWeekend
		if availability.IsDatePast(day, s.location, now) {
			out.Reason = ReasonPast
		}
		return out, nil
	}

	covering, err := s.exclusions.Covering(ctx, out.Date, out.Date)
	if err != nil {
		return DayAvailability{}, err
	}
	if len(covering) > 0 {
		out.Reason = ReasonExcluded
		return out, nil
	}

	booked, err := s.repo.Overlapping(ctx, availability.Slot{Start: day, End: day.AddDate(0, 0, 1)}, "")
	if err != nil {
		return DayAvailability{}, err
	}
	intervals := make([]availability.Slot, 0, len(booked))
	for _, b := range booked {
		intervals = append(intervals, b.Slot())
	}

	out.Slots = slices.Collect(availability.Free(s.hours.Slots(day, s.location, now), intervals))
	out.Available = len(out.Slots) > 0
	if !out.Available {
		out.Reason = ReasonFull
	}
	return out, nil
}

// NextAvailable scans forward from from, one day at a time, and returns the
// first day with a free slot. ok is false when the horizon is exhausted.
func (s *Service) NextAvailable(ctx context.Context, from time.Time) (DayAvailability, bool, error) {
	day := availability.StartOfDay(from, s.location)
	if today := availability.StartOfDay(s.now(), s.location); day.Before(today) {
		day = today
	}
	for i := 0; i < NextAvailableHorizonDays; i++ {
		candidate := day.AddDate(0, 0, i)
		if !availability.IsDayEligible(candidate, s.location, s.now()) {
			continue
		}
		da, err := s.Availability(ctx, candidate)
		if err != nil {
			return DayAvailability{}, false, err
		}
		if da.Available {
			return da, true, nil
		}
	}
	return DayAvailability{}, false, nil
}

func (s *Service) ListExclusions(ctx context.Context) ([]Exclusion, error) {
	return s.exclusions.List(ctx)
}

func (s *Service) CreateExclusion(ctx context.Context, req ExclusionRequest) (Exclusion, error) {
	if err := s.val.Struct(req); err != nil {
		details := httpx.ValidationDetails(s.val.ValidationErrors(err))
		return Exclusion{}, validationError("validation error", details)
	}
	if req.EndDate < req.StartDate {
		return Exclusion{}, validationError(MsgInvalidDates, map[string]string{"endDate": "gtefield"})
	}

	e := Exclusion{
		ID:        s.newID(),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
		CreatedAt: s.now().In(s.location),
	}
	if err := s.exclusions.Create(ctx, e); err != nil {
		return Exclusion{}, err
	}
	s.invalidateAvailability(ctx)
	return e, nil
}

func (s *Service) DeleteExclusion(ctx context.Context, id string) error {
	if err := s.exclusions.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNoRecord) {
			return &Error{Kind: ErrNotFound, Message: "exclusion not found"}
		}
		return err
	}
	s.invalidateAvailability(ctx)
	return nil
}
