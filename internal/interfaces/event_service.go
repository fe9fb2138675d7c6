package interfaces

// JobEventType labels ingestion lifecycle events pushed to websocket
// subscribers.
type JobEventType string

const (
	JobEventStarted   JobEventType = "job_started"
	JobEventProgress  JobEventType = "job_progress"
	JobEventCompleted JobEventType = "job_completed"
	JobEventFailed    JobEventType = "job_failed"
)

// JobEvent is the payload broadcast for a job state change.
type JobEvent struct {
	Type       JobEventType `json:"type"`
	JobID      string       `json:"jobId"`
	Discovered int64        `json:"discovered,omitempty"`
	Ingested   int64        `json:"ingested,omitempty"`
	Failed     int64        `json:"failed,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// EventPublisher broadcasts job events to connected subscribers. A nil or
// no-op publisher is valid; ingestion never blocks on delivery.
type EventPublisher interface {
	Publish(event JobEvent)
}
