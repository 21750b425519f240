package audit

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action names a consent-affecting action.
type Action string

const (
	ActionConsentGranted Action = "consent_granted"
	ActionConsentRevoked Action = "consent_revoked"
)

// Domain errors
var (
	ErrEmptyUserID = errors.New("audit event requires a user ID")
	ErrEmptyAction = errors.New("audit event requires an action")
)

// Event is a single append-only audit log entry.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent creates a new audit event stamped with now.
// PRE: userID and action are non-empty
// POST: Returns an Event with a fresh ID and "{}" details
func NewEvent(userID string, action Action, now time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Details:   "{}",
		CreatedAt: now,
	}
}

// WithDetails encodes v as the JSON detail payload.
// PRE: v is JSON-encodable
// POST: Details holds the encoding; on failure Details is unchanged and the error is returned
func (e Event) WithDetails(v any) (Event, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return e, err
	}
	e.Details = string(b)
	return e, nil
}

// WithRequest sets IP address and user agent from the HTTP request.
func (e Event) WithRequest(ipAddress, userAgent string) Event {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}

// Validate checks if the Event has valid data.
// PRE: Event struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Event) Validate() error {
	if e.UserID == "" {
		return ErrEmptyUserID
	}
	if e.Action == "" {
		return ErrEmptyAction
	}
	if !json.Valid([]byte(e.Details)) {
		return errors.New("audit details must be valid JSON")
	}
	return nil
}
