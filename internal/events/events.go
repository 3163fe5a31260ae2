package events

import (
	"context"
	"time"
)

const (
	ReservationCreated   = "reservation.created"
	ReservationUpdated   = "reservation.updated"
	ReservationCancelled = "reservation.cancelled"
)

// Publisher emits domain events. Publication is fire-and-forget: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// ReservationEvent is the payload of every reservation.* subject.
type ReservationEvent struct {
	ReservationID       string    `json:"reservation_id"`
	Status              string    `json:"status"`
	ReservationType     string    `json:"reservation_type"`
	CommunicationMethod string    `json:"communication_method"`
	ClientEmail         string    `json:"client_email"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	Changes             []string  `json:"changes,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}

type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
func (Noop) Close() error                                       { return nil }
