// Package wizard drives a booking attempt through its four steps: pick a
// date, pick a slot, fill in the details, confirm.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/reservations"
)

type Step int

const (
	StepSelectDate Step = iota
	StepSelectTime
	StepFillDetails
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepSelectDate:
		return "select-date"
	case StepSelectTime:
		return "select-time"
	case StepFillDetails:
		return "fill-details"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

const MinDescriptionLength = 20

var (
	ErrBusy           = errors.New("a request is already in flight")
	ErrWrongStep      = errors.New("action not allowed at this step")
	ErrDateIneligible = errors.New("date is not bookable")
	ErrSlotNotOffered = errors.New("slot is not one of the offered slots")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors lists the form fields that failed client-side validation.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

type Details struct {
	Name        string
	Email       string
	Phone       string
	Type        string
	Method      string
	Description string
}

// Draft is the in-progress selection. It only exists until the server
// accepts it.
type Draft struct {
	Date    time.Time
	Slot    *availability.Slot
	Details Details
}

// SlotLister returns the candidate slots of a day.
type SlotLister interface {
	Slots(ctx context.Context, date time.Time) ([]availability.Slot, error)
}

// Submitter sends the finished draft to the reservation API.
type Submitter interface {
	Submit(ctx context.Context, req reservations.CreateRequest) (reservations.Reservation, error)
}

// LocalSlots computes slots with the calculator, without asking the server
// which ones are taken.
type LocalSlots struct {
	Hours    availability.Hours
	Location *time.Location
	Now      func() time.Time
}

func (l LocalSlots) Slots(_ context.Context, date time.Time) ([]availability.Slot, error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return slices.Collect(l.Hours.Slots(date, l.Location, now())), nil
}

// Wizard is safe to call from several goroutines, but transitions are
// serialized: while a slot fetch or a submission is in flight every other
// transition fails with ErrBusy.
type Wizard struct {
	lister    SlotLister
	submitter Submitter
	location  *time.Location
	now       func() time.Time

	mu      sync.Mutex
	busy    bool
	step    Step
	draft   Draft
	offered []availability.Slot
	result  *reservations.Reservation
	lastErr error
}

func New(lister SlotLister, submitter Submitter, location *time.Location) *Wizard {
	if location == nil {
		location = time.UTC
	}
	return &Wizard{
		lister:    lister,
		submitter: submitter,
		location:  location,
		now:       time.Now,
	}
}

// State is a snapshot for rendering.
type State struct {
	Step    Step
	Draft   Draft
	Offered []availability.Slot
	Loading bool
	Err     error
	Result  *reservations.Reservation
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Step:    w.step,
		Draft:   w.draft,
		Offered: slices.Clone(w.offered),
		Loading: w.busy,
		Err:     w.lastErr,
		Result:  w.result,
	}
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Error is the message to surface to the user, if any.
func (w *Wizard) Error() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Wizard) Result() *reservations.Reservation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// begin checks the guard shared by every transition. It must be called with
// the lock held.
func (w *Wizard) begin(want Step) error {
	if w.busy {
		return ErrBusy
	}
	if w.step != want {
		return fmt.Errorf("%w: at %s", ErrWrongStep, w.step)
	}
	return nil
}

// SelectDate fetches the slots of date and moves to StepSelectTime. On
// failure the wizard stays on StepSelectDate.
func (w *Wizard) SelectDate(ctx context.Context, date time.Time) error {
	w.mu.Lock()
	if err := w.begin(StepSelectDate); err != nil {
		w.mu.Unlock()
		return err
	}
	if !availability.IsDayEligible(date, w.location, w.now()) {
		w.lastErr = ErrDateIneligible
		w.mu.Unlock()
		return ErrDateIneligible
	}
	w.busy = true
	w.lastErr = nil
	w.mu.Unlock()

	slots, err := w.lister.Slots(ctx, date)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if err != nil {
		w.lastErr = err
		return err
	}
	w.draft = Draft{Date: availability.StartOfDay(date, w.location)}
	w.offered = slots
	w.step = StepSelectTime
	return nil
}

func (w *Wizard) SelectSlot(slot availability.Slot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.begin(StepSelectTime); err != nil {
		return err
	}
	idx := slices.IndexFunc(w.offered, func(s availability.Slot) bool {
		return s.Start.Equal(slot.Start) && s.End.Equal(slot.End)
	})
	if idx < 0 {
		w.lastErr = ErrSlotNotOffered
		return ErrSlotNotOffered
	}
	chosen := w.offered[idx]
	w.draft.Slot = &chosen
	w.lastErr = nil
	w.step = StepFillDetails
	return nil
}

func (w *Wizard) SetDetails(d Details) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.begin(StepFillDetails); err != nil {
		return err
	}
	w.draft.Details = d
	return nil
}

// Validate applies the client-side form rules to the current details.
func (w *Wizard) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return validateDetails(w.draft.Details)
}

func validateDetails(d Details) error {
	errs := FieldErrors{}
	if strings.TrimSpace(d.Name) == "" {
		errs["clientName"] = "required"
	}
	if !emailPattern.MatchString(strings.TrimSpace(d.Email)) {
		errs["clientEmail"] = "email"
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.Description)) < MinDescriptionLength {
		errs["projectDescription"] = "min"
	}
	if method(d) == reservations.MethodPhone && strings.TrimSpace(d.Phone) == "" {
		errs["clientPhone"] = "required"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func method(d Details) string {
	if m := strings.TrimSpace(d.Method); m != "" {
		return m
	}
	return reservations.MethodVideo
}

func (w *Wizard) request() reservations.CreateRequest {
	d := w.draft.Details
	kind := strings.TrimSpace(d.Type)
	if kind == "" {
		kind = reservations.TypeDiscovery
	}
	return reservations.CreateRequest{
		ClientName:          strings.TrimSpace(d.Name),
		ClientEmail:         strings.TrimSpace(d.Email),
		ClientPhone:         strings.TrimSpace(d.Phone),
		Type:                kind,
		CommunicationMethod: method(d),
		ProjectDescription:  strings.TrimSpace(d.Description),
		StartTime:           w.draft.Slot.Start.Format(time.RFC3339),
		EndTime:             w.draft.Slot.End.Format(time.RFC3339),
	}
}

// Submit validates the draft and sends it. Any rejection keeps the wizard
// on StepFillDetails with the message available from Error.
func (w *Wizard) Submit(ctx context.Context) (reservations.Reservation, error) {
	w.mu.Lock()
	if err := w.begin(StepFillDetails); err != nil {
		w.mu.Unlock()
		return reservations.Reservation{}, err
	}
	if err := validateDetails(w.draft.Details); err != nil {
		w.lastErr = err
		w.mu.Unlock()
		return reservations.Reservation{}, err
	}
	req := w.request()
	w.busy = true
	w.lastErr = nil
	w.mu.Unlock()

	res, err := w.submitter.Submit(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if err != nil {
		w.lastErr = err
		return reservations.Reservation{}, err
	}
	w.result = &res
	w.draft = Draft{}
	w.offered = nil
	w.step = StepConfirmation
	return res, nil
}

// Back steps one stage back. Returning to date selection drops the whole
// draft; returning to slot selection only drops the chosen slot.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	switch w.step {
	case StepSelectTime:
		w.draft = Draft{}
		w.offered = nil
		w.step = StepSelectDate
	case StepFillDetails:
		w.draft.Slot = nil
		w.step = StepSelectTime
	default:
		return fmt.Errorf("%w: at %s", ErrWrongStep, w.step)
	}
	w.lastErr = nil
	return nil
}

// Reset starts a new booking attempt from scratch.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	w.step = StepSelectDate
	w.draft = Draft{}
	w.offered = nil
	w.result = nil
	w.lastErr = nil
	return nil
}
