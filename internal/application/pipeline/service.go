package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/orderflow-ai/internal/application"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/ai"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/analysis"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/anomaly"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/catalog"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/interactions"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
)

// Safety modes
const (
	SafetyOff    = "off"
	SafetyLog    = "log"
	SafetyStrict = "strict"
)

// extraction logs carry a fixed confidence until a provider exposes one
const defaultConfidence = 0.92

// Store is the transactional persistence boundary the pipeline requires.
// CreateInteraction and MarkInteractionFailed each commit on their own;
// everything else in a run goes through one Tx.
type Store interface {
	CreateInteraction(ctx context.Context, in *interactions.Interaction) error
	MarkInteractionFailed(ctx context.Context, tenant string, id interactions.InteractionID) error
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the unit of work for steps after the interaction exists. Rollback
// after Commit must be a no-op so it can sit in a defer.
type Tx interface {
	CreateAnalysisLog(ctx context.Context, l *analysis.Log) error
	CreateOrder(ctx context.Context, o *orders.Order) error
	CreateOrderItem(ctx context.Context, it *orders.Item) error
	CreateAnomaly(ctx context.Context, a *orders.Anomaly) error
	SetOrderTotal(ctx context.Context, id orders.OrderID, total float64) error
	SetOrderStatus(ctx context.Context, id orders.OrderID, status orders.Status) error
	MarkInteractionProcessed(ctx context.Context, id interactions.InteractionID) error
	Commit() error
	Rollback() error
}

// SafetyPolicy is resolved once at startup from config; the pipeline never
// consults mutable globals to decide whether to screen content.
type SafetyPolicy struct {
	Mode      string // off | log | strict
	HasAPIKey bool
}

// Enabled reports whether the safety gate runs at all.
func (p SafetyPolicy) Enabled() bool {
	return p.Mode != SafetyOff && p.HasAPIKey
}

// Service implements use-cases for the ingest-to-order pipeline.
// Service is designed to be used concurrently and is thread-safe; each run
// owns its interaction, its transaction, and nothing else.
type Service struct {
	Store    Store
	Catalog  catalog.Resolver
	Gateway  ai.Gateway
	Detector *anomaly.Detector
	Safety   SafetyPolicy
	Clock    application.Clock
	Log      *zap.Logger
}

// ProcessCommand is the ingest entrypoint payload. Exactly one of AudioRef
// and Transcript is set, matching SourceType.
type ProcessCommand struct {
	TenantID   string
	CustomerID string
	SourceType interactions.SourceType
	AudioRef   string
	Transcript string
}

// ProcessResult is the summary returned on success.
type ProcessResult struct {
	InteractionID string        `json:"interaction_id"`
	OrderID       string        `json:"order_id"`
	Status        orders.Status `json:"status"`
	AnomalyCount  int           `json:"anomalies_detected"`
}

// analysisPayload is the opaque blob stored on the analysis log.
type analysisPayload struct {
	ExtractedItems []ai.ExtractedItem `json:"extracted_items"`
	SafetyVerdict  *ai.SafetyVerdict  `json:"safety_verdict"`
}

// ProcessInteraction runs the full pipeline:
// ingest -> transcribe -> safety -> extract -> resolve -> order -> commit.
//
// The PENDING interaction is committed first in its own transaction so a
// later failure has something durable to mark FAILED. Every other write
// lands in one transaction committed at the end of the run.
func (s *Service) ProcessInteraction(ctx context.Context, cmd ProcessCommand) (ProcessResult, error) {
	now := s.Clock.Now()
	in := &interactions.Interaction{
		ID:          interactions.InteractionID(uuid.NewString()),
		TenantID:    cmd.TenantID,
		CustomerID:  cmd.CustomerID,
		SourceType:  cmd.SourceType,
		RawAssetURL: cmd.AudioRef,
		Status:      interactions.StatusPending,
		CreatedAt:   now,
	}
	if err := s.Store.CreateInteraction(ctx, in); err != nil {
		// nothing durable yet, nothing to mark FAILED
		return ProcessResult{}, fmt.Errorf("create interaction: %w", err)
	}

	res, err := s.run(ctx, cmd, in)
	if err != nil {
		s.markFailed(ctx, in)
		// policy rejection stays distinguishable from internal failure
		if _, ok := err.(*ContentSafetyError); ok {
			return ProcessResult{}, err
		}
		return ProcessResult{}, &RunError{InteractionID: string(in.ID), Err: err}
	}
	return res, nil
}

func (s *Service) run(ctx context.Context, cmd ProcessCommand, in *interactions.Interaction) (ProcessResult, error) {
	// 1. Obtain transcript: supplied directly or produced from audio.
	transcript := cmd.Transcript
	if cmd.SourceType == interactions.SourceVoice {
		var err error
		transcript, err = s.Gateway.Transcribe(ctx, cmd.AudioRef)
		if err != nil {
			return ProcessResult{}, err
		}
	}

	// 2. Safety gate. Skipped entirely when mode is off or no key is
	// configured; the missing-key warning is the startup's job, not ours.
	var verdict *ai.SafetyVerdict
	if s.Safety.Enabled() {
		v, err := s.Gateway.VerifyContentSafety(ctx, transcript)
		if err != nil {
			return ProcessResult{}, err
		}
		verdict = &v
		if v.Decision == ai.DecisionBlock {
			if s.Safety.Mode == SafetyStrict {
				s.Log.Warn("content blocked by safety policy (strict mode)",
					zap.String("interaction_id", string(in.ID)),
					zap.String("reason", v.Reason))
				return ProcessResult{}, &ContentSafetyError{Reason: v.Reason}
			}
			s.Log.Warn("content flagged by safety policy (log mode), continuing",
				zap.String("interaction_id", string(in.ID)),
				zap.String("reason", v.Reason))
		}
	}

	// 3. Extract items. Any failure here is fatal to the run.
	extracted, err := s.Gateway.ExtractOrderItems(ctx, transcript)
	if err != nil {
		return ProcessResult{}, err
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("begin pipeline tx: %w", err)
	}
	defer tx.Rollback()

	// 4. Persist the analysis log (transcript + raw extraction + verdict).
	rawJSON, err := json.Marshal(analysisPayload{ExtractedItems: extracted, SafetyVerdict: verdict})
	if err != nil {
		return ProcessResult{}, fmt.Errorf("marshal analysis payload: %w", err)
	}
	logEntry := &analysis.Log{
		ID:                analysis.LogID(uuid.NewString()),
		InteractionID:     string(in.ID),
		TranscriptText:    transcript,
		RawExtractionJSON: string(rawJSON),
		ConfidenceScore:   defaultConfidence,
		CreatedAt:         s.Clock.Now(),
	}
	if err := tx.CreateAnalysisLog(ctx, logEntry); err != nil {
		return ProcessResult{}, fmt.Errorf("create analysis log: %w", err)
	}

	// 5. Bulk-resolve all distinct SKUs for this tenant.
	products, err := s.Catalog.ResolveBatch(ctx, cmd.TenantID, distinctSKUs(extracted))
	if err != nil {
		return ProcessResult{}, fmt.Errorf("resolve catalog: %w", err)
	}

	// 6. Build the order. Lines whose SKU did not resolve are dropped, not
	// persisted with a null product: partial information beats no order.
	order := &orders.Order{
		ID:            orders.OrderID(uuid.NewString()),
		TenantID:      cmd.TenantID,
		CustomerID:    cmd.CustomerID,
		InteractionID: string(in.ID),
		Status:        orders.StatusDraft,
		TotalAmount:   0,
		CreatedAt:     s.Clock.Now(),
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return ProcessResult{}, fmt.Errorf("create order: %w", err)
	}

	var items []*orders.Item
	var total float64
	for _, raw := range extracted {
		product, ok := products[raw.SKU]
		if !ok {
			s.Log.Warn("sku not found in catalog, dropping line",
				zap.String("tenant_id", cmd.TenantID),
				zap.String("sku", raw.SKU),
				zap.Int("qty", raw.Qty))
			continue
		}
		if raw.Qty <= 0 {
			s.Log.Warn("non-positive quantity extracted, dropping line",
				zap.String("sku", raw.SKU),
				zap.Int("qty", raw.Qty))
			continue
		}
		it := &orders.Item{
			ID:        uuid.NewString(),
			OrderID:   string(order.ID),
			ProductID: product.ID,
			Quantity:  raw.Qty,
			UnitPrice: product.Price, // snapshot, never revalidated
		}
		if err := tx.CreateOrderItem(ctx, it); err != nil {
			return ProcessResult{}, fmt.Errorf("create order item: %w", err)
		}
		total += float64(it.Quantity) * it.UnitPrice
		items = append(items, it)
	}

	// 7. Set total.
	order.TotalAmount = total
	if err := tx.SetOrderTotal(ctx, order.ID, total); err != nil {
		return ProcessResult{}, fmt.Errorf("set order total: %w", err)
	}

	// 8. Detect anomalies; any hit flags the order for review.
	anomalies := s.Detector.Detect(string(order.ID), items)
	for _, a := range anomalies {
		if err := tx.CreateAnomaly(ctx, a); err != nil {
			return ProcessResult{}, fmt.Errorf("create anomaly: %w", err)
		}
	}
	if len(anomalies) > 0 {
		order.Status = orders.StatusFlagged
		if err := tx.SetOrderStatus(ctx, order.ID, orders.StatusFlagged); err != nil {
			return ProcessResult{}, fmt.Errorf("flag order: %w", err)
		}
	}

	// 9. Mark the interaction processed and commit the whole unit.
	if err := tx.MarkInteractionProcessed(ctx, in.ID); err != nil {
		return ProcessResult{}, fmt.Errorf("mark interaction processed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ProcessResult{}, fmt.Errorf("commit pipeline tx: %w", err)
	}

	s.Log.Info("interaction processed",
		zap.String("interaction_id", string(in.ID)),
		zap.String("order_id", string(order.ID)),
		zap.Int("items", len(items)),
		zap.Int("anomalies", len(anomalies)))

	return ProcessResult{
		InteractionID: string(in.ID),
		OrderID:       string(order.ID),
		Status:        order.Status,
		AnomalyCount:  len(anomalies),
	}, nil
}

// markFailed is the best-effort second write after a run failure. Its own
// failure is logged and swallowed so the original error surfaces.
func (s *Service) markFailed(ctx context.Context, in *interactions.Interaction) {
	// detach from the (possibly cancelled) run context but stay bounded
	ctx2, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Store.MarkInteractionFailed(ctx2, in.TenantID, in.ID); err != nil {
		s.Log.Error("failed to mark interaction FAILED",
			zap.String("interaction_id", string(in.ID)),
			zap.Error(err))
	}
}

func distinctSKUs(items []ai.ExtractedItem) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		if _, ok := seen[it.SKU]; ok {
			continue
		}
		seen[it.SKU] = struct{}{}
		out = append(out, it.SKU)
	}
	return out
}
