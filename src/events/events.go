// Package events publishes release events (builds triggered and finished,
// tags moved) to in-process subscribers or a Kafka-compatible broker.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeBuildTriggered    = "build.triggered"
	TypeBuildFinished     = "build.finished"
	TypeDependentFinished = "dependent.finished"
	TypeTagRemoved        = "tag.removed"
	TypeTagMoved          = "tag.moved"
)

// Event describes one release-pipeline state change.
type Event struct {
	// Unique identifier.
	ID string `json:"id"`
	// One of the Type* constants.
	Type string `json:"type"`
	// TeamCity build id the event refers to.
	BuildID int64 `json:"build_id"`
	// Build configuration id.
	BuildTypeID string `json:"build_type_id,omitempty"`
	// Branch name of the build.
	Branch string `json:"branch,omitempty"`
	// Tag moved or removed, for tag events.
	Tag string `json:"tag,omitempty"`
	// Build status for finished events (SUCCESS, FAILURE).
	Status string `json:"status,omitempty"`
	// RFC3339 creation time.
	Timestamp string `json:"timestamp"`
}

// New creates an event with a fresh id and timestamp.
func New(eventType string, buildID int64) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		BuildID:   buildID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Key is the partitioning key of the event.
func (e Event) Key() string {
	return strconv.FormatInt(e.BuildID, 10)
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers release events.
type Publisher interface {
	// Publish sends an event.
	Publish(ctx context.Context, event Event) error
	// Close shuts down the publisher gracefully.
	Close() error
}
