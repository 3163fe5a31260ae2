package reservations

import (
	"time"

	"kairo-backend/internal/availability"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	TypeDiscovery    = "discovery"
	TypeConsultation = "consultation"
	TypePresentation = "presentation"
	TypeFollowUp     = "follow-up"
)

const (
	MethodVideo = "video"
	MethodPhone = "phone"
)

type Reservation struct {
	ID                  string    `json:"id"`
	ClientName          string    `json:"clientName"`
	ClientEmail         string    `json:"clientEmail"`
	ClientPhone         string    `json:"clientPhone,omitempty"`
	Type                string    `json:"reservationType"`
	CommunicationMethod string    `json:"communicationMethod"`
	ProjectDescription  string    `json:"projectDescription"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime"`
	Status              string    `json:"status"`
	CancellationToken   string    `json:"cancellationToken,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	MeetingLink         string    `json:"meetingLink,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (r Reservation) Slot() availability.Slot {
	return availability.Slot{Start: r.StartTime, End: r.EndTime}
}

// Exclusion blocks new reservations on every day of [StartDate, EndDate],
// both inclusive, in the business time zone.
type Exclusion struct {
	ID        string    `json:"id"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest is the public booking payload. Presence of the required
// fields is checked before the format rules below run.
type CreateRequest struct {
	ClientName          string `json:"clientName" validate:"max=120"`
	ClientEmail         string `json:"clientEmail" validate:"omitempty,email,max=254"`
	ClientPhone         string `json:"clientPhone" validate:"required_if=CommunicationMethod phone,omitempty,phone"`
	Type                string `json:"reservationType" validate:"omitempty,oneof=discovery consultation presentation follow-up"`
	CommunicationMethod string `json:"communicationMethod" validate:"omitempty,oneof=video phone"`
	ProjectDescription  string `json:"projectDescription" validate:"max=5000"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
}

// UpdateRequest is a partial merge: nil fields are left untouched.
type UpdateRequest struct {
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed cancelled"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
	MeetingLink *string `json:"meetingLink,omitempty" validate:"omitempty,url,max=500"`
	StartTime   *string `json:"startTime,omitempty"`
	EndTime     *string `json:"endTime,omitempty"`
}

type ExclusionRequest struct {
	StartDate string `json:"startDate" validate:"required,date"`
	EndDate   string `json:"endDate" validate:"required,date"`
	Reason    string `json:"reason" validate:"max=200"`
}

// ListFilter bounds StartTime to [From, Until). Zero values leave a side open.
type ListFilter struct {
	From   time.Time
	Until  time.Time
	Status string
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

// canTransition lists the status moves an operator may make. Staying on the
// same status is always allowed.
func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	default:
		return false
	}
}
