package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue and job names for construction completion
const (
	UpgradesQueue = "upgrades"
	JobConstruct  = "construct"
)

// Message is a durable queue entry.
//
// A message is leased to one consumer at a time; the lease expires after the
// visibility timeout and the message becomes deliverable again.
type Message struct {
	ID             string
	Queue          string
	Job            string
	TaskID         string
	Payload        []byte
	Attempts       int
	LeaseToken     string
	LeaseExpiresAt *time.Time
	AvailableAt    time.Time
	LastError      string
	CreatedAt      time.Time
}

// ConstructPayload is the body of a construct job
type ConstructPayload struct {
	TaskID          string `json:"taskId"`
	DurationSeconds int    `json:"durationSeconds"`
}

// NewConstructMessage builds the completion message for a newly created task
func NewConstructMessage(taskID string, durationSeconds int, now time.Time) (*Message, error) {
	payload, err := json.Marshal(ConstructPayload{TaskID: taskID, DurationSeconds: durationSeconds})
	if err != nil {
		return nil, fmt.Errorf("failed to encode construct payload: %w", err)
	}
	return &Message{
		ID:          uuid.New().String(),
		Queue:       UpgradesQueue,
		Job:         JobConstruct,
		TaskID:      taskID,
		Payload:     payload,
		AvailableAt: now,
		CreatedAt:   now,
	}, nil
}

// DecodeConstructPayload parses a construct job body
func (m *Message) DecodeConstructPayload() (*ConstructPayload, error) {
	var p ConstructPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode construct payload of message %s: %w", m.ID, err)
	}
	if p.TaskID == "" {
		p.TaskID = m.TaskID
	}
	return &p, nil
}
