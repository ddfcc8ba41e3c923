package analysis

import "time"

// LogID identifier type
type LogID string

// Log is the append-only audit record of one extraction attempt. It is
// created once per successful extraction and never mutated.
type Log struct {
	ID                LogID     `json:"id"`
	InteractionID     string    `json:"interaction_id"`
	TranscriptText    string    `json:"transcript_text"`
	RawExtractionJSON string    `json:"raw_extraction_json"` // extracted items + safety verdict
	ConfidenceScore   float64   `json:"confidence_score"`    // in [0,1]
	CreatedAt         time.Time `json:"created_at"`
}
