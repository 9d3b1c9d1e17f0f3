package models

import "time"

// Chart kinds recorded in chart events.
const (
	ChartKindNatal  = "natal"
	ChartKindToday  = "today"
	ChartKindStored = "stored"
)

// ChartEvent is emitted after every assembled chart for analytics.
type ChartEvent struct {
	EventID   string         `json:"event_id"`
	Kind      string         `json:"kind"`
	Subject   string         `json:"subject"`
	City      string         `json:"city"`
	Timestamp time.Time      `json:"ts"`
	BodyCount int            `json:"body_count"`
	Elements  ElementSummary `json:"elements"`
	Aspects   []AspectRecord `json:"aspects"`
}

// AspectFrequency is one row of the aspect stats.
type AspectFrequency struct {
	Aspect   string  `json:"aspect"`
	Count    uint64  `json:"count"`
	AvgAngle float64 `json:"avg_angle"`
}

// ElementAverages summarises element percentages over stored charts.
type ElementAverages struct {
	Charts uint64         `json:"charts"`
	Mean   ElementSummary `json:"mean"`
}

// Extraction job states.
const (
	JobStatusQueued    = "queued"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusRetrying  = "retrying"
)

// ExtractionJob tracks an asynchronous extraction.
type ExtractionJob struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Save      bool       `json:"save"`
	Result    *BirthData `json:"result,omitempty"`
	RecordID  int64      `json:"record_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ExtractionJobPayload is the queue payload of an extraction job.
type ExtractionJobPayload struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
	Save  bool   `json:"save"`
}
