// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueName is the durable queue carrying every listing event.
const QueueName = "listing.events"

const (
	TypeUserRegistered  = "user.registered"
	TypePropertyCreated = "property.created"
)

// Envelope wraps an event payload with its type so one queue can carry
// several kinds of events.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt string          `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// UserRegisteredEvent is published after a successful signup.
type UserRegisteredEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	UserType string `json:"user_type"`
	Location string `json:"location"`
}

// PropertyCreatedEvent is published after a listing is stored. It carries
// enough for consumers to log or index the listing without reading the store.
type PropertyCreatedEvent struct {
	PropertyID    string `json:"property_id"`
	UserID        string `json:"user_id"`
	Location      string `json:"location"`
	PropertyType  string `json:"property_type"`
	TemporaryRent bool   `json:"temporary_rent"`
	ImageCount    int    `json:"image_count"`
}

// NewEnvelope marshals payload and stamps it with at in RFC 3339.
func NewEnvelope(eventType string, payload any, at time.Time) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		Type:       eventType,
		OccurredAt: at.UTC().Format(time.RFC3339),
		Payload:    body,
	}, nil
}
