package observe

import "time"

type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event records one tool invocation as seen by the server.
type Event struct {
	ID         string         `json:"id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Tool       string         `json:"tool"`
	Status     Status         `json:"status"`
	ErrorKind  string         `json:"errorKind,omitempty"`
	Message    string         `json:"message,omitempty"`
	DurationMs int64          `json:"durationMs,omitempty"`
	Attempts   int            `json:"attempts,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = StatusStarted
	}
}
