package interactions

import "time"

// InteractionID identifier type
type InteractionID string

// SourceType enum
type SourceType string

const (
	SourceVoice SourceType = "VOICE"
	SourceText  SourceType = "TEXT"
)

// Status enum. An interaction is PENDING only while its pipeline run is in
// flight; the run always leaves it PROCESSED or FAILED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
)

// Interaction is one ingest event (a voice or text submission).
type Interaction struct {
	ID          InteractionID `json:"id"`
	TenantID    string        `json:"tenant_id"`
	CustomerID  string        `json:"customer_id"`
	SourceType  SourceType    `json:"source_type"`
	RawAssetURL string        `json:"raw_asset_url,omitempty"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}
