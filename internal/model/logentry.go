package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a log entry.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the status will never change again.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Failure reasons recorded on FAILED entries.
const (
	ReasonPayloadTooLarge = "Payload too large"
	ReasonRandomFailure   = "Random processing failure"
)

// LogEntry is one ingested log message and its processing outcome.
// Message is a pointer: a submission without a message is accepted and
// stored as nil, which is distinct from an empty string.
type LogEntry struct {
	CorrelationID uuid.UUID  `json:"correlationId"`
	Message       *string    `json:"message,omitempty"`
	Status        Status     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
}
