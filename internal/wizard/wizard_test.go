package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/reservations"
)

type stubLister struct {
	slots []availability.Slot
	err   error
	calls int
}

func (s *stubLister) Slots(_ context.Context, _ time.Time) ([]availability.Slot, error) {
	s.calls++
	return s.slots, s.err
}

type stubSubmitter struct {
	err  error
	got  []reservations.CreateRequest
	wait chan struct{}
	in   chan struct{}
}

func (s *stubSubmitter) Submit(_ context.Context, req reservations.CreateRequest) (reservations.Reservation, error) {
	s.got = append(s.got, req)
	if s.in != nil {
		close(s.in)
	}
	if s.wait != nil {
		<-s.wait
	}
	if s.err != nil {
		return reservations.Reservation{}, s.err
	}
	return reservations.Reservation{ID: "res-1", ClientName: req.ClientName, Status: reservations.StatusPending}, nil
}

func paris(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func fixture(t *testing.T) (*Wizard, *stubLister, *stubSubmitter, time.Time) {
	loc := paris(t)
	now := time.Date(2026, 2, 4, 8, 0, 0, 0, loc) // Wednesday
	lister := &stubLister{}
	day := time.Date(2026, 2, 5, 0, 0, 0, 0, loc)
	lister.slots = []availability.Slot{
		{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)},
		{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
	}
	sub := &stubSubmitter{}
	w := New(lister, sub, loc)
	w.now = func() time.Time { return now }
	return w, lister, sub, day
}

func validDetails() Details {
	return Details{
		Name:        "Jean Dupont",
		Email:       "jean@example.com",
		Description: "Refonte complète du site vitrine",
	}
}

func advanceToDetails(t *testing.T, w *Wizard, lister *stubLister, day time.Time) {
	t.Helper()
	if err := w.SelectDate(t.Context(), day); err != nil {
		t.Fatalf("SelectDate error: %v", err)
	}
	if err := w.SelectSlot(lister.slots[1]); err != nil {
		t.Fatalf("SelectSlot error: %v", err)
	}
	if err := w.SetDetails(validDetails()); err != nil {
		t.Fatalf("SetDetails error: %v", err)
	}
}

func TestHappyPath(t *testing.T) {
	w, lister, sub, day := fixture(t)
	advanceToDetails(t, w, lister, day)

	res, err := w.Submit(t.Context())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if res.ID != "res-1" || w.Step() != StepConfirmation {
		t.Fatalf("unexpected result %+v at %s", res, w.Step())
	}
	st := w.State()
	if st.Draft.Slot != nil || st.Draft.Details.Name != "" || st.Result == nil {
		t.Fatalf("expected draft discarded and result kept, got %+v", st)
	}
	req := sub.got[0]
	if req.StartTime != lister.slots[1].Start.Format(time.RFC3339) || req.EndTime != lister.slots[1].End.Format(time.RFC3339) {
		t.Fatalf("unexpected submitted interval %s - %s", req.StartTime, req.EndTime)
	}
	if req.Type != reservations.TypeDiscovery || req.CommunicationMethod != reservations.MethodVideo {
		t.Fatalf("expected defaults for type and method, got %q %q", req.Type, req.CommunicationMethod)
	}
}

func TestSelectDateRejectsIneligible(t *testing.T) {
	w, lister, _, day := fixture(t)
	saturday := day.AddDate(0, 0, 2)
	if err := w.SelectDate(t.Context(), saturday); !errors.Is(err, ErrDateIneligible) {
		t.Fatalf("expected ErrDateIneligible for weekend, got %v", err)
	}
	yesterday := day.AddDate(0, 0, -2)
	if err := w.SelectDate(t.Context(), yesterday); !errors.Is(err, ErrDateIneligible) {
		t.Fatalf("expected ErrDateIneligible for past day, got %v", err)
	}
	if lister.calls != 0 || w.Step() != StepSelectDate {
		t.Fatalf("expected no fetch and no transition")
	}
}

func TestSelectDateFetchFailureStays(t *testing.T) {
	w, lister, _, day := fixture(t)
	lister.err = errors.New("network down")
	if err := w.SelectDate(t.Context(), day); err == nil {
		t.Fatalf("expected fetch error")
	}
	if w.Step() != StepSelectDate || w.Error() == nil || w.Loading() {
		t.Fatalf("expected to stay on date selection with error, got %s", w.Step())
	}
}

func TestSelectSlotMustBeOffered(t *testing.T) {
	w, lister, _, day := fixture(t)
	if err := w.SelectSlot(lister.slots[0]); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep before a date is chosen, got %v", err)
	}
	if err := w.SelectDate(t.Context(), day); err != nil {
		t.Fatalf("SelectDate error: %v", err)
	}
	other := availability.Slot{Start: day.Add(14 * time.Hour), End: day.Add(14*time.Hour + 30*time.Minute)}
	if err := w.SelectSlot(other); !errors.Is(err, ErrSlotNotOffered) {
		t.Fatalf("expected ErrSlotNotOffered, got %v", err)
	}
	if w.Step() != StepSelectTime {
		t.Fatalf("expected to stay on slot selection")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Details)
		field string
	}{
		{"missing name", func(d *Details) { d.Name = "  " }, "clientName"},
		{"bad email", func(d *Details) { d.Email = "jean@example" }, "clientEmail"},
		{"short description", func(d *Details) { d.Description = "trop court" }, "projectDescription"},
		{"phone required", func(d *Details) { d.Method = reservations.MethodPhone }, "clientPhone"},
	}
	for _, tc := range cases {
		d := validDetails()
		tc.edit(&d)
		err := validateDetails(d)
		var fields FieldErrors
		if !errors.As(err, &fields) {
			t.Fatalf("%s: expected FieldErrors, got %v", tc.name, err)
		}
		if _, ok := fields[tc.field]; !ok || len(fields) != 1 {
			t.Fatalf("%s: unexpected fields %v", tc.name, fields)
		}
	}

	d := validDetails()
	d.Method = reservations.MethodPhone
	d.Phone = "+33 6 12 34 56 78"
	if err := validateDetails(d); err != nil {
		t.Fatalf("expected phone details to validate, got %v", err)
	}
}

func TestSubmitInvalidDoesNotCallServer(t *testing.T) {
	w, lister, sub, day := fixture(t)
	advanceToDetails(t, w, lister, day)
	bad := validDetails()
	bad.Email = "nope"
	if err := w.SetDetails(bad); err != nil {
		t.Fatalf("SetDetails error: %v", err)
	}
	if _, err := w.Submit(t.Context()); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(sub.got) != 0 || w.Step() != StepFillDetails {
		t.Fatalf("expected no submission and to stay on details")
	}
}

func TestSubmitRejectedKeepsDraft(t *testing.T) {
	w, lister, sub, day := fixture(t)
	advanceToDetails(t, w, lister, day)
	sub.err = errors.New(reservations.MsgSlotBooked)

	if _, err := w.Submit(t.Context()); err == nil {
		t.Fatalf("expected rejection")
	}
	st := w.State()
	if st.Step != StepFillDetails || st.Err == nil || st.Err.Error() != reservations.MsgSlotBooked {
		t.Fatalf("expected server message verbatim on details step, got %+v", st)
	}
	if st.Draft.Slot == nil || st.Draft.Details.Name != "Jean Dupont" {
		t.Fatalf("expected draft kept after rejection")
	}
}

func TestBack(t *testing.T) {
	w, lister, _, day := fixture(t)
	if err := w.Back(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected Back to fail on date selection, got %v", err)
	}
	advanceToDetails(t, w, lister, day)

	if err := w.Back(); err != nil {
		t.Fatalf("Back error: %v", err)
	}
	st := w.State()
	if st.Step != StepSelectTime || st.Draft.Slot != nil || st.Draft.Details.Name == "" || len(st.Offered) != 2 {
		t.Fatalf("expected only the slot to be dropped, got %+v", st)
	}

	if err := w.Back(); err != nil {
		t.Fatalf("Back error: %v", err)
	}
	st = w.State()
	if st.Step != StepSelectDate || !st.Draft.Date.IsZero() || st.Draft.Details.Name != "" || st.Offered != nil {
		t.Fatalf("expected the whole draft to be dropped, got %+v", st)
	}
}

func TestBackFromConfirmationAndReset(t *testing.T) {
	w, lister, _, day := fixture(t)
	advanceToDetails(t, w, lister, day)
	if _, err := w.Submit(t.Context()); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if err := w.Back(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected Back to fail on confirmation, got %v", err)
	}
	if err := w.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if w.Step() != StepSelectDate || w.Result() != nil {
		t.Fatalf("expected a fresh wizard after reset")
	}
}

func TestBusyDuringSubmit(t *testing.T) {
	w, lister, sub, day := fixture(t)
	advanceToDetails(t, w, lister, day)
	sub.in = make(chan struct{})
	sub.wait = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = w.Submit(context.Background())
	}()
	<-sub.in

	if !w.Loading() {
		t.Fatalf("expected loading while submitting")
	}
	if _, err := w.Submit(t.Context()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for a second submit, got %v", err)
	}
	if err := w.Back(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for Back, got %v", err)
	}
	close(sub.wait)
	wg.Wait()

	if w.Loading() || w.Step() != StepConfirmation || len(sub.got) != 1 {
		t.Fatalf("expected exactly one submission to complete")
	}
}

func TestLocalSlots(t *testing.T) {
	loc := paris(t)
	now := time.Date(2026, 2, 5, 16, 45, 0, 0, loc)
	l := LocalSlots{Hours: availability.DefaultHours, Location: loc, Now: func() time.Time { return now }}
	slots, err := l.Slots(t.Context(), time.Date(2026, 2, 5, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Slots error: %v", err)
	}
	if len(slots) != 2 || slots[0].Start.Format("15:04") != "17:00" {
		t.Fatalf("unexpected slots %v", slots)
	}
}
