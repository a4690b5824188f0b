package outbox

import (
	"encoding/json"
	"time"
)

// Op is the kind of remote write an entry represents.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Entry is one pending remote write.
type Entry struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Op         Op              `json:"op"`
	EntityID   string          `json:"entityId"`
	UserID     string          `json:"userId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"lastError,omitempty"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`

	raw string // exact list element, needed to LREM it
}
