package shared

import "time"

// EventType represents the type of domain event.
type EventType string

// Events raised while keeping the schedule current.
const (
	// EventScheduleRefreshed is raised when a new schedule was published.
	EventScheduleRefreshed EventType = "schedule.refreshed"

	// EventConflictsDetected is raised when a published schedule has conflicts.
	EventConflictsDetected EventType = "schedule.conflicts_detected"

	// EventRosterFellBack is raised when the roster came from the fallback source.
	EventRosterFellBack EventType = "roster.fell_back"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	// For schedule events it is the roster fingerprint.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]any
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

func newBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Schedule Events
// ═══════════════════════════════════════════════════════════════════════════

// ScheduleRefreshedEvent is emitted after a schedule for a changed roster
// was published.
type ScheduleRefreshedEvent struct {
	BaseEvent
	Source    string `json:"source"`
	Origin    string `json:"origin"`
	Students  int    `json:"students"`
	Conflicts int    `json:"conflicts"`
}

// Payload implements Event interface.
func (e ScheduleRefreshedEvent) Payload() map[string]any {
	return map[string]any{
		"fingerprint": e.AggregateId,
		"source":      e.Source,
		"origin":      e.Origin,
		"students":    e.Students,
		"conflicts":   e.Conflicts,
	}
}

// NewScheduleRefreshedEvent creates a new ScheduleRefreshedEvent.
func NewScheduleRefreshedEvent(fingerprint, source, origin string, students, conflicts int) ScheduleRefreshedEvent {
	return ScheduleRefreshedEvent{
		BaseEvent: newBaseEvent(EventScheduleRefreshed, fingerprint),
		Source:    source,
		Origin:    origin,
		Students:  students,
		Conflicts: conflicts,
	}
}

// ConflictsDetectedEvent is emitted when a published schedule places a
// student in two rotations on the same day.
type ConflictsDetectedEvent struct {
	BaseEvent
	Count int `json:"count"`
}

// Payload implements Event interface.
func (e ConflictsDetectedEvent) Payload() map[string]any {
	return map[string]any{
		"fingerprint": e.AggregateId,
		"count":       e.Count,
	}
}

// NewConflictsDetectedEvent creates a new ConflictsDetectedEvent.
func NewConflictsDetectedEvent(fingerprint string, count int) ConflictsDetectedEvent {
	return ConflictsDetectedEvent{
		BaseEvent: newBaseEvent(EventConflictsDetected, fingerprint),
		Count:     count,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Roster Events
// ═══════════════════════════════════════════════════════════════════════════

// RosterFellBackEvent is emitted when the primary roster source failed and
// the fallback was used instead.
type RosterFellBackEvent struct {
	BaseEvent
	Source string `json:"source"`
}

// Payload implements Event interface.
func (e RosterFellBackEvent) Payload() map[string]any {
	return map[string]any{
		"fingerprint": e.AggregateId,
		"source":      e.Source,
	}
}

// NewRosterFellBackEvent creates a new RosterFellBackEvent.
func NewRosterFellBackEvent(fingerprint, source string) RosterFellBackEvent {
	return RosterFellBackEvent{
		BaseEvent: newBaseEvent(EventRosterFellBack, fingerprint),
		Source:    source,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
