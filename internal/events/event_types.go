package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventLoginThrottled EventType = "login_throttled"
	EventTokenRejected  EventType = "token_rejected"
)

// Actor encapsulates who triggered an event. Fields are empty when unknown.
type Actor struct {
	SubjectID string `json:"subject_id,omitempty"`
	Email     string `json:"email,omitempty"`
	IP        string `json:"ip,omitempty"`
}

// Event represents an auth event emitted by services and middleware.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginFailedPayload payload. Reason is invalid_credentials or error.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// LoginThrottledPayload payload.
type LoginThrottledPayload struct {
	RetryAfterSeconds int `json:"retry_after_seconds"`
}

// TokenRejectedPayload payload. Reason is the verification label.
type TokenRejectedPayload struct {
	Reason string `json:"reason"`
	Path   string `json:"path"`
}
