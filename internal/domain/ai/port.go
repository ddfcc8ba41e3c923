package ai

import "context"

// SafetyDecision is the moderation provider's verdict on a piece of content.
type SafetyDecision string

const (
	DecisionAllow SafetyDecision = "allow"
	DecisionBlock SafetyDecision = "block"
	DecisionFlag  SafetyDecision = "flag"
)

// SafetyVerdict is the full moderation result. The orchestrator, not the
// gateway, decides what each decision means operationally.
type SafetyVerdict struct {
	Decision SafetyDecision `json:"decision"`
	Reason   string         `json:"reason,omitempty"`
	Actions  []string       `json:"actions,omitempty"`
}

// ExtractedItem is one order-line candidate produced by the extraction model.
type ExtractedItem struct {
	SKU     string `json:"sku"`
	Qty     int    `json:"qty"`
	Variant string `json:"variant"`
}

// Gateway is the single abstraction point for all outbound AI calls so the
// pipeline never branches on provider identity.
type Gateway interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
	VerifyContentSafety(ctx context.Context, text string) (SafetyVerdict, error)
	ExtractOrderItems(ctx context.Context, text string) ([]ExtractedItem, error)
}
