package reservations

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/cache"
	"kairo-backend/internal/events"
	"kairo-backend/internal/httpx"
	"kairo-backend/internal/validation"
)

// AvailabilityCachePrefix namespaces the cached availability payloads that
// every reservation write invalidates.
const AvailabilityCachePrefix = "availability:"

// Notifier delivers the emails that follow a booking change. Implementations
// are best-effort; errors are only logged.
type Notifier interface {
	ReservationCreated(ctx context.Context, r Reservation) error
	ReservationCancelled(ctx context.Context, r Reservation) error
}

type Service struct {
	repo       Repository
	exclusions ExclusionRepository
	val        *validation.Validator
	hours      availability.Hours
	location   *time.Location
	notifier   Notifier
	publisher  events.Publisher
	cache      cache.Cache
	log        *slog.Logger
	now        func() time.Time
	newID      func() string
}

type Options struct {
	Hours     availability.Hours
	Location  *time.Location
	Notifier  Notifier
	Publisher events.Publisher
	Cache     cache.Cache
	Log       *slog.Logger
}

func NewService(repo Repository, exclusions ExclusionRepository, val *validation.Validator, opts Options) *Service {
	s := &Service{
		repo:       repo,
		exclusions: exclusions,
		val:        val,
		hours:      opts.Hours,
		location:   opts.Location,
		notifier:   opts.Notifier,
		publisher:  opts.Publisher,
		cache:      opts.Cache,
		log:        opts.Log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	if s.hours == (availability.Hours{}) {
		s.hours = availability.DefaultHours
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.cache == nil {
		s.cache = cache.NewNoop()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *Service) Location() *time.Location { return s.location }

func (s *Service) Hours() availability.Hours { return s.hours }

// Create validates req and books the slot. Checks run in a fixed order and
// the first failure is returned.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Reservation, error) {
	req = normalizeCreate(req)

	if missing := missingFields(req); len(missing) > 0 {
		return Reservation{}, validationError(MsgMissingFields, missing)
	}

	if err := s.val.Struct(req); err != nil {
		details := httpx.ValidationDetails(s.val.ValidationErrors(err))
		return Reservation{}, validationError("validation error", details)
	}

	slot, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return Reservation{}, err
	}
	if err := s.ensureBookable(slot); err != nil {
		return Reservation{}, err
	}

	if err := s.ensureFree(ctx, slot, ""); err != nil {
		return Reservation{}, err
	}
	if err := s.ensureOpen(ctx, slot); err != nil {
		return Reservation{}, err
	}

	now := s.now().In(s.location)
	res := Reservation{
		ID:                  s.newID(),
		ClientName:          req.ClientName,
		ClientEmail:         req.ClientEmail,
		ClientPhone:         req.ClientPhone,
		Type:                req.Type,
		CommunicationMethod: req.CommunicationMethod,
		ProjectDescription:  req.ProjectDescription,
		StartTime:           slot.Start,
		EndTime:             slot.End,
		Status:              StatusPending,
		CancellationToken:   s.newID(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		if errors.Is(err, ErrOverlap) {
			return Reservation{}, conflictError(MsgSlotBooked)
		}
		return Reservation{}, err
	}

	s.invalidateAvailability(ctx)
	return res, nil
}

func normalizeCreate(req CreateRequest) CreateRequest {
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientEmail = strings.ToLower(strings.TrimSpace(req.ClientEmail))
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.CommunicationMethod = strings.ToLower(strings.TrimSpace(req.CommunicationMethod))
	if req.CommunicationMethod == "" {
		req.CommunicationMethod = MethodVideo
	}
	req.ProjectDescription = strings.TrimSpace(req.ProjectDescription)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	return req
}

func missingFields(req CreateRequest) map[string]string {
	missing := map[string]string{}
	required := map[string]string{
		"clientName":      req.ClientName,
		"clientEmail":     req.ClientEmail,
		"reservationType": req.Type,
		"startTime":       req.StartTime,
		"endTime":         req.EndTime,
	}
	for field, value := range required {
		if value == "" {
			missing[field] = "required"
		}
	}
	return missing
}

func parseInterval(startRaw, endRaw string) (availability.Slot, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return availability.Slot{}, validationError(MsgInvalidDates, map[string]string{"startTime": "rfc3339"})
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return availability.Slot{}, validationError(MsgInvalidDates, map[string]string{"endTime": "rfc3339"})
	}
	if !start.Before(end) {
		return availability.Slot{}, validationError(MsgInvalidDates, map[string]string{"endTime": "gtfield"})
	}
	return availability.Slot{Start: start, End: end}, nil
}

// ensureBookable rejects intervals in the past, on a weekend or off the
// business slot grid.
func (s *Service) ensureBookable(slot availability.Slot) error {
	now := s.now()
	switch {
	case !slot.Start.After(now):
		return validationError(MsgInvalidSlot, map[string]string{"startTime": "past"})
	case !availability.IsDayEligible(slot.Start, s.location, now):
		return validationError(MsgInvalidSlot, map[string]string{"startTime": "weekend"})
	case !s.hours.Fits(slot, s.location):
		return validationError(MsgInvalidSlot, map[string]string{"startTime": "hours"})
	}
	return nil
}

func (s *Service) ensureFree(ctx context.Context, slot availability.Slot, excludeID string) error {
	taken, err := s.repo.Overlapping(ctx, slot, excludeID)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return conflictError(MsgSlotBooked)
	}
	return nil
}

// ensureOpen rejects intervals touching a day covered by an exclusion. The
// end is exclusive, so a slot ending at midnight does not reach the next day.
func (s *Service) ensureOpen(ctx context.Context, slot availability.Slot) error {
	first := availability.DateOf(slot.Start, s.location)
	last := availability.DateOf(slot.End.Add(-time.Nanosecond), s.location)
	covering, err := s.exclusions.Covering(ctx, first, last)
	if err != nil {
		return err
	}
	if len(covering) > 0 {
		return conflictError(MsgDateBlocked)
	}
	return nil
}

// Get returns a reservation to an administrator, or to a client holding its
// cancellation token.
func (s *Service) Get(ctx context.Context, id, token string, admin bool) (Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if !admin && !tokenMatches(res.CancellationToken, token) {
		return Reservation{}, forbiddenError()
	}
	return res, nil
}

func (s *Service) load(ctx context.Context, id string) (Reservation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Reservation{}, validationError(MsgMissingFields, map[string]string{"id": "required"})
	}
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return Reservation{}, notFoundError()
		}
		return Reservation{}, err
	}
	return res, nil
}

func tokenMatches(expected, given string) bool {
	if expected == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Reservation, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, validationError("validation error", map[string]string{"status": "oneof"})
	}
	if !filter.From.IsZero() && !filter.Until.IsZero() && !filter.From.Before(filter.Until) {
		return nil, validationError(MsgInvalidDates, map[string]string{"endDate": "gtfield"})
	}
	return s.repo.List(ctx, filter)
}

// ParseListBound reads a startDate/endDate query value. A calendar date
// covers the whole day in the business time zone: as a lower bound it
// starts at midnight, as an upper bound it extends to the next midnight.
// An RFC 3339 timestamp is used as is.
func (s *Service) ParseListBound(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := availability.ParseDate(raw, s.location)
	if err != nil {
		return time.Time{}, validationError(MsgInvalidDates, nil)
	}
	if upper {
		return day.AddDate(0, 0, 1), nil
	}
	return day, nil
}

// Update merges req into the stored reservation. Overlap is only re-checked
// when the interval moves.
// The returned change list names the fields that moved.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Reservation, []string, error) {
	if err := s.val.Struct(req); err != nil {
		details := httpx.ValidationDetails(s.val.ValidationErrors(err))
		return Reservation{}, nil, validationError("validation error", details)
	}

	res, err := s.load(ctx, id)
	if err != nil {
		return Reservation{}, nil, err
	}
	before := res
	var changes []string

	if req.StartTime != nil || req.EndTime != nil {
		startRaw := res.StartTime.Format(time.RFC3339)
		endRaw := res.EndTime.Format(time.RFC3339)
		if req.StartTime != nil {
			startRaw = strings.TrimSpace(*req.StartTime)
		}
		if req.EndTime != nil {
			endRaw = strings.TrimSpace(*req.EndTime)
		}
		slot, err := parseInterval(startRaw, endRaw)
		if err != nil {
			return Reservation{}, nil, err
		}
		if !slot.Start.Equal(res.StartTime) || !slot.End.Equal(res.EndTime) {
			if err := s.ensureBookable(slot); err != nil {
				return Reservation{}, nil, err
			}
			if res.Status != StatusCancelled {
				if err := s.ensureFree(ctx, slot, res.ID); err != nil {
					return Reservation{}, nil, err
				}
			}
			res.StartTime, res.EndTime = slot.Start, slot.End
			changes = append(changes, "time")
		}
	}

	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if !canTransition(res.Status, status) {
			return Reservation{}, nil, validationError("invalid status transition", map[string]string{"status": res.Status + "->" + status})
		}
		if status != res.Status {
			res.Status = status
			changes = append(changes, "status")
		}
	}
	if req.Notes != nil {
		res.Notes = strings.TrimSpace(*req.Notes)
		changes = append(changes, "notes")
	}
	if req.MeetingLink != nil {
		res.MeetingLink = strings.TrimSpace(*req.MeetingLink)
		changes = append(changes, "meetingLink")
	}

	if len(changes) == 0 {
		return res, nil, nil
	}

	res.UpdatedAt = s.now().In(s.location)
	if err := s.repo.Update(ctx, res); err != nil {
		switch {
		case errors.Is(err, ErrOverlap):
			return Reservation{}, nil, conflictError(MsgSlotBooked)
		case errors.Is(err, ErrNoRecord):
			return Reservation{}, nil, notFoundError()
		}
		return Reservation{}, nil, err
	}

	if !before.StartTime.Equal(res.StartTime) || !before.EndTime.Equal(res.EndTime) || before.Status != res.Status {
		s.invalidateAvailability(ctx)
	}
	return res, changes, nil
}

// Cancel is idempotent: cancelling a cancelled reservation succeeds without
// touching it. The boolean reports whether the status actually changed.
func (s *Service) Cancel(ctx context.Context, id, token string, admin bool) (Reservation, bool, error) {
	res, err := s.Get(ctx, id, token, admin)
	if err != nil {
		return Reservation{}, false, err
	}
	if res.Status == StatusCancelled {
		return res, false, nil
	}

	res.Status = StatusCancelled
	res.UpdatedAt = s.now().In(s.location)
	if err := s.repo.Update(ctx, res); err != nil {
		if errors.Is(err, ErrNoRecord) {
			return Reservation{}, false, notFoundError()
		}
		return Reservation{}, false, err
	}

	s.invalidateAvailability(ctx)
	return res, true, nil
}

// AfterCreate runs the side effects of a new booking. It is called outside
// the request with its own deadline and never fails.
func (s *Service) AfterCreate(ctx context.Context, res Reservation) {
	s.publish(ctx, events.ReservationCreated, res, nil)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ReservationCreated(ctx, res); err != nil {
		s.log.Warn("reservation create: notification failed",
			slog.String("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

// AfterUpdate publishes the change and, when the update cancelled the
// booking, tells the client.
func (s *Service) AfterUpdate(ctx context.Context, res Reservation, changes []string) {
	if len(changes) == 0 {
		return
	}
	s.publish(ctx, events.ReservationUpdated, res, changes)
	if res.Status == StatusCancelled && slices.Contains(changes, "status") {
		s.notifyCancelled(ctx, res)
	}
}

// AfterCancel mirrors AfterCreate for cancellations.
func (s *Service) AfterCancel(ctx context.Context, res Reservation) {
	s.publish(ctx, events.ReservationCancelled, res, nil)
	s.notifyCancelled(ctx, res)
}

func (s *Service) notifyCancelled(ctx context.Context, res Reservation) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ReservationCancelled(ctx, res); err != nil {
		s.log.Warn("reservation cancel: notification failed",
			slog.String("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) publish(ctx context.Context, subject string, res Reservation, changes []string) {
	evt := events.ReservationEvent{
		ReservationID:       res.ID,
		Status:              res.Status,
		ReservationType:     res.Type,
		CommunicationMethod: res.CommunicationMethod,
		ClientEmail:         res.ClientEmail,
		StartTime:           res.StartTime,
		EndTime:             res.EndTime,
		Changes:             changes,
		OccurredAt:          s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, subject, evt); err != nil {
		s.log.Warn("reservation event: publish failed",
			slog.String("subject", subject),
			slog.String("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) invalidateAvailability(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, AvailabilityCachePrefix); err != nil {
		s.log.Warn("availability cache: invalidate failed", slog.String("error", err.Error()))
	}
}
