package models

import "time"

// OutboundMessageRequest represents requests to send a message manually via the API.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// Bilingual carries a user-facing message in the farm's local language (French) and in English.
type Bilingual struct {
	FR string `json:"fr"`
	EN string `json:"en"`
}

// String joins both languages for channels that only carry one text body.
func (b Bilingual) String() string {
	switch {
	case b.FR == "":
		return b.EN
	case b.EN == "":
		return b.FR
	default:
		return b.FR + "\n" + b.EN
	}
}

// Outcome is the terminal result of one ingestion request.
type Outcome string

const (
	OutcomeCommitted     Outcome = "committed"
	OutcomeQueued        Outcome = "queued"
	OutcomeClarification Outcome = "clarification_needed"
	OutcomeRejected      Outcome = "rejected"
)

// ActivitySummary describes one activity in an ingestion acknowledgment.
type ActivitySummary struct {
	Kind       ActivityKind `json:"kind"`
	AnimalID   string       `json:"animal_id,omitempty"`
	Animal     string       `json:"animal,omitempty"`
	FeedType   string       `json:"feed_type,omitempty"`
	Quantity   float64      `json:"quantity,omitempty"`
	Unit       Unit         `json:"unit,omitempty"`
	AnimalsFed int          `json:"animals_fed,omitempty"`
	Date       time.Time    `json:"date"`
	Queued     bool         `json:"queued"`
	ApprovalID string       `json:"approval_id,omitempty"`
}

// IngestResult is the response payload of the ingestion pipeline.
type IngestResult struct {
	Outcome    Outcome           `json:"outcome"`
	Code       string            `json:"code,omitempty"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	Message    Bilingual         `json:"message"`
	Options    []string          `json:"options,omitempty"`
	Activities []ActivitySummary `json:"activities,omitempty"`
	Deadline   *time.Time        `json:"deadline,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
}
