package reservations

import (
	"errors"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("reservation not found")
)

// Store-level sentinels returned by repositories.
var (
	ErrNoRecord = errors.New("no such record")
	ErrOverlap  = errors.New("interval overlaps an active reservation")
)

const (
	MsgMissingFields = "missing fields"
	MsgInvalidDates  = "invalid dates"
	MsgInvalidSlot   = "slot outside business hours"
	MsgSlotBooked    = "Ce créneau horaire est déjà réservé"
	MsgDateBlocked   = "Cette date n'est pas disponible"
	MsgBadToken      = "Token d'annulation invalide"
	MsgNotFound      = "Réservation introuvable"
)

// Error carries a client-facing message. Anything that is not an *Error is
// treated as a transient failure.
type Error struct {
	Kind    error
	Message string
	Details map[string]string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func validationError(msg string, details map[string]string) error {
	return &Error{Kind: ErrValidation, Message: msg, Details: details}
}

func conflictError(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func forbiddenError() error {
	return &Error{Kind: ErrForbidden, Message: MsgBadToken}
}

func notFoundError() error {
	return &Error{Kind: ErrNotFound, Message: MsgNotFound}
}

// HTTPStatus maps an error from this package to its response code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
