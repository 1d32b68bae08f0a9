package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of domain event.
type EventType string

const (
	// Identity
	EventUserRegistered EventType = "USER_REGISTERED"
	EventUserLoggedIn   EventType = "USER_LOGGED_IN"
	EventLoginFailed    EventType = "LOGIN_FAILED"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"

	// Catalog
	EventPlatformCreated EventType = "PLATFORM_CREATED"

	// Integrations
	EventIntegrationCreated       EventType = "INTEGRATION_CREATED"
	EventIntegrationReused        EventType = "INTEGRATION_REUSED"
	EventIntegrationStatusChanged EventType = "INTEGRATION_STATUS_CHANGED"
	EventCredentialAdded          EventType = "CREDENTIAL_ADDED"
)

// AllEventTypes lists every event type, for handlers that subscribe to all.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventUserLoggedIn,
	EventLoginFailed,
	EventTokenRefreshed,
	EventPlatformCreated,
	EventIntegrationCreated,
	EventIntegrationReused,
	EventIntegrationStatusChanged,
	EventCredentialAdded,
}

// DomainEvent is an immutable record of something that already happened.
// Events are dispatched after the owning transaction commits.
type DomainEvent struct {
	EventID       string         `json:"event_id"`
	EventType     EventType      `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Actor         string         `json:"actor"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewEvent builds an event with a fresh time-ordered id.
func NewEvent(eventType EventType, aggregateType string, aggregateID int64, actor string, attrs map[string]any) *DomainEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &DomainEvent{
		EventID:       id.String(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		Actor:         actor,
		Attributes:    attrs,
		CreatedAt:     time.Now().UTC(),
	}
}
