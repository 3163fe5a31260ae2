// Package reservationclient talks to the public booking endpoints over HTTP.
package reservationclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/httpx"
	"kairo-backend/internal/reservations"
)

// APIError carries the message the server returned, unchanged, so it can be
// shown to the user as is.
type APIError struct {
	Status  int
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// Conflict reports whether the server refused the interval.
func (e *APIError) Conflict() bool {
	return e.Status == http.StatusConflict
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	location   *time.Location
}

// New expects baseURL to point at the API root, e.g. https://api.example/api.
func New(baseURL string, location *time.Location) *Client {
	if location == nil {
		location = time.UTC
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		location:   location,
	}
}

// Availability returns the server's view of a day.
func (c *Client) Availability(ctx context.Context, date time.Time) (reservations.DayAvailability, error) {
	var day reservations.DayAvailability
	q := url.Values{"date": {availability.DateOf(date, c.location)}}
	err := c.do(ctx, http.MethodGet, "/availability?"+q.Encode(), nil, &day)
	return day, err
}

// Slots implements wizard.SlotLister. A closed day yields no slots.
func (c *Client) Slots(ctx context.Context, date time.Time) ([]availability.Slot, error) {
	day, err := c.Availability(ctx, date)
	if err != nil {
		return nil, err
	}
	if !day.Available {
		return nil, nil
	}
	return day.Slots, nil
}

// Submit implements wizard.Submitter.
func (c *Client) Submit(ctx context.Context, req reservations.CreateRequest) (reservations.Reservation, error) {
	var res reservations.Reservation
	err := c.do(ctx, http.MethodPost, "/reservation", req, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var payload httpx.ErrorResponse
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		return &APIError{Status: status, Message: http.StatusText(status)}
	}
	return &APIError{Status: status, Message: payload.Error, Details: payload.Details}
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Conflict()
}
