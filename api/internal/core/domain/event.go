package domain

import "time"

// EventType names a vault mutation.
type EventType string

const (
	EventProfileCreated EventType = "profile_created"
	EventProfileDeleted EventType = "profile_deleted"
	EventKeyAdded       EventType = "key_added"
	EventKeyUpdated     EventType = "key_updated"
	EventKeyDeleted     EventType = "key_deleted"
	EventKeysImported   EventType = "keys_imported"
	EventReconciled     EventType = "profile_reconciled"
)

// Event tells connected web clients that a profile changed. It never
// carries secret values.
type Event struct {
	Type    EventType `json:"type"`
	Profile string    `json:"profile"`
	Key     string    `json:"key,omitempty"`
	At      time.Time `json:"at"`
}

// EventPublisher fans events out to subscribers.
type EventPublisher interface {
	Publish(ev Event)
}
