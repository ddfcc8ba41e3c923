package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/orderflow-ai/internal/domain/ai"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/analysis"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/anomaly"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/catalog"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/interactions"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
)

//
// ==== stubs ====
//

type memTx struct {
	logs      []*analysis.Log
	orders    []*orders.Order
	items     []*orders.Item
	anomalies []*orders.Anomaly
	totals    map[orders.OrderID]float64
	statuses  map[orders.OrderID]orders.Status
	processed []interactions.InteractionID

	committed  bool
	rolledBack bool
}

func newMemTx() *memTx {
	return &memTx{
		totals:   map[orders.OrderID]float64{},
		statuses: map[orders.OrderID]orders.Status{},
	}
}

func (t *memTx) CreateAnalysisLog(_ context.Context, l *analysis.Log) error {
	t.logs = append(t.logs, l)
	return nil
}

func (t *memTx) CreateOrder(_ context.Context, o *orders.Order) error {
	t.orders = append(t.orders, o)
	return nil
}

func (t *memTx) CreateOrderItem(_ context.Context, it *orders.Item) error {
	t.items = append(t.items, it)
	return nil
}

func (t *memTx) CreateAnomaly(_ context.Context, a *orders.Anomaly) error {
	t.anomalies = append(t.anomalies, a)
	return nil
}

func (t *memTx) SetOrderTotal(_ context.Context, id orders.OrderID, total float64) error {
	t.totals[id] = total
	return nil
}

func (t *memTx) SetOrderStatus(_ context.Context, id orders.OrderID, status orders.Status) error {
	t.statuses[id] = status
	return nil
}

func (t *memTx) MarkInteractionProcessed(_ context.Context, id interactions.InteractionID) error {
	t.processed = append(t.processed, id)
	return nil
}

func (t *memTx) Commit() error {
	t.committed = true
	return nil
}

func (t *memTx) Rollback() error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type memStore struct {
	created  []*interactions.Interaction
	failed   []interactions.InteractionID
	failMark bool
	tx       *memTx
}

func (s *memStore) CreateInteraction(_ context.Context, in *interactions.Interaction) error {
	s.created = append(s.created, in)
	return nil
}

func (s *memStore) MarkInteractionFailed(_ context.Context, _ string, id interactions.InteractionID) error {
	if s.failMark {
		return errors.New("status write failed")
	}
	s.failed = append(s.failed, id)
	return nil
}

func (s *memStore) Begin(_ context.Context) (Tx, error) {
	s.tx = newMemTx()
	return s.tx, nil
}

type stubGateway struct {
	transcript    string
	transcribeErr error
	verdict       ai.SafetyVerdict
	safetyErr     error
	safetyCalls   int
	items         []ai.ExtractedItem
	extractErr    error
}

func (g *stubGateway) Transcribe(context.Context, string) (string, error) {
	return g.transcript, g.transcribeErr
}

func (g *stubGateway) VerifyContentSafety(context.Context, string) (ai.SafetyVerdict, error) {
	g.safetyCalls++
	return g.verdict, g.safetyErr
}

func (g *stubGateway) ExtractOrderItems(context.Context, string) ([]ai.ExtractedItem, error) {
	return g.items, g.extractErr
}

type stubCatalog struct {
	products map[string]*catalog.Product
	gotSKUs  []string
}

func (c *stubCatalog) ResolveBatch(_ context.Context, _ string, skus []string) (map[string]*catalog.Product, error) {
	c.gotSKUs = skus
	out := map[string]*catalog.Product{}
	for _, sku := range skus {
		if p, ok := c.products[sku]; ok {
			out[sku] = p
		}
	}
	return out, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func product(id, sku string, price float64) *catalog.Product {
	return &catalog.Product{ID: id, TenantID: "t1", SKU: sku, Name: sku, Price: price}
}

func newService(store *memStore, gw *stubGateway, cat *stubCatalog, safety SafetyPolicy) *Service {
	return &Service{
		Store:    store,
		Catalog:  cat,
		Gateway:  gw,
		Detector: anomaly.NewDetector(anomaly.DefaultRules(10000)),
		Safety:   safety,
		Clock:    fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		Log:      zap.NewNop(),
	}
}

func textCommand(transcript string) ProcessCommand {
	return ProcessCommand{
		TenantID:   "t1",
		CustomerID: "c1",
		SourceType: interactions.SourceText,
		Transcript: transcript,
	}
}

//
// ==== tests ====
//

func TestProcessHappyPath(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{
		items: []ai.ExtractedItem{
			{SKU: "SKU-1", Qty: 500, Variant: "default"},
			{SKU: "SKU-2", Qty: 20, Variant: "blue"},
		},
	}
	cat := &stubCatalog{products: map[string]*catalog.Product{
		"SKU-1": product("p1", "SKU-1", 10.0),
		"SKU-2": product("p2", "SKU-2", 5.0),
	}}
	svc := newService(store, gw, cat, SafetyPolicy{Mode: SafetyOff})

	res, err := svc.ProcessInteraction(context.Background(), textCommand("need 500 of SKU-1 and 20 of SKU-2"))
	require.NoError(t, err)

	assert.Equal(t, orders.StatusDraft, res.Status)
	assert.Equal(t, 0, res.AnomalyCount)
	assert.NotEmpty(t, res.InteractionID)
	assert.NotEmpty(t, res.OrderID)

	require.NotNil(t, store.tx)
	assert.True(t, store.tx.committed)
	require.Len(t, store.tx.items, 2)
	assert.Equal(t, 500*10.0+20*5.0, store.tx.totals[orders.OrderID(res.OrderID)])
	assert.Equal(t, []interactions.InteractionID{interactions.InteractionID(res.InteractionID)}, store.tx.processed)
	assert.Empty(t, store.failed)

	// unit prices are snapshots of the catalog price
	assert.Equal(t, 10.0, store.tx.items[0].UnitPrice)
	assert.Equal(t, 5.0, store.tx.items[1].UnitPrice)
}

func TestProcessInteractionCreatedPendingBeforeRun(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{items: []ai.ExtractedItem{}}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyOff})

	_, err := svc.ProcessInteraction(context.Background(), textCommand("nothing to order"))
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, interactions.StatusPending, store.created[0].Status)
	assert.Equal(t, "t1", store.created[0].TenantID)
	assert.Equal(t, interactions.SourceText, store.created[0].SourceType)
}

func TestProcessUnresolvableSKUDropped(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{items: []ai.ExtractedItem{{SKU: "SKU-X", Qty: 5}}}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyOff})

	res, err := svc.ProcessInteraction(context.Background(), textCommand("5 of SKU-X"))
	require.NoError(t, err)

	// order still created, with zero items and zero total
	assert.Equal(t, orders.StatusDraft, res.Status)
	require.Len(t, store.tx.orders, 1)
	assert.Empty(t, store.tx.items)
	assert.Equal(t, 0.0, store.tx.totals[orders.OrderID(res.OrderID)])
	assert.True(t, store.tx.committed)
}

func TestProcessAnomalyFlagsOrder(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{items: []ai.ExtractedItem{{SKU: "SKU-1", Qty: 15000}}}
	cat := &stubCatalog{products: map[string]*catalog.Product{
		"SKU-1": product("p1", "SKU-1", 2.0),
	}}
	svc := newService(store, gw, cat, SafetyPolicy{Mode: SafetyOff})

	res, err := svc.ProcessInteraction(context.Background(), textCommand("15000 of SKU-1"))
	require.NoError(t, err)

	assert.Equal(t, orders.StatusFlagged, res.Status)
	assert.Equal(t, 1, res.AnomalyCount)
	require.Len(t, store.tx.anomalies, 1)
	assert.Equal(t, anomaly.CodeUnusualVolume, store.tx.anomalies[0].RuleCode)
	assert.Equal(t, 8.0, store.tx.anomalies[0].SeverityScore)
	assert.Equal(t, orders.StatusFlagged, store.tx.statuses[orders.OrderID(res.OrderID)])
}

func TestProcessZeroPriceAnomaly(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{items: []ai.ExtractedItem{{SKU: "SKU-1", Qty: 3}}}
	cat := &stubCatalog{products: map[string]*catalog.Product{
		"SKU-1": product("p1", "SKU-1", 0),
	}}
	svc := newService(store, gw, cat, SafetyPolicy{Mode: SafetyOff})

	res, err := svc.ProcessInteraction(context.Background(), textCommand("3 of SKU-1"))
	require.NoError(t, err)

	assert.Equal(t, orders.StatusFlagged, res.Status)
	require.Len(t, store.tx.anomalies, 1)
	assert.Equal(t, anomaly.CodeZeroPrice, store.tx.anomalies[0].RuleCode)
	assert.Equal(t, 6.5, store.tx.anomalies[0].SeverityScore)
}

func TestProcessStrictSafetyBlock(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{
		verdict: ai.SafetyVerdict{Decision: ai.DecisionBlock, Reason: "prohibited content"},
		items:   []ai.ExtractedItem{{SKU: "SKU-1", Qty: 1}},
	}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyStrict, HasAPIKey: true})

	_, err := svc.ProcessInteraction(context.Background(), textCommand("bad content"))

	var cse *ContentSafetyError
	require.ErrorAs(t, err, &cse)
	assert.Equal(t, "prohibited content", cse.Reason)

	// interaction marked FAILED, no order transaction ever began
	require.Len(t, store.created, 1)
	assert.Equal(t, []interactions.InteractionID{store.created[0].ID}, store.failed)
	assert.Nil(t, store.tx)
}

func TestProcessLogModeBlockContinues(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{
		verdict: ai.SafetyVerdict{Decision: ai.DecisionBlock, Reason: "questionable"},
		items:   []ai.ExtractedItem{{SKU: "SKU-1", Qty: 2}},
	}
	cat := &stubCatalog{products: map[string]*catalog.Product{
		"SKU-1": product("p1", "SKU-1", 4.0),
	}}
	svc := newService(store, gw, cat, SafetyPolicy{Mode: SafetyLog, HasAPIKey: true})

	res, err := svc.ProcessInteraction(context.Background(), textCommand("questionable content"))
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDraft, res.Status)

	// verdict recorded on the analysis log
	require.Len(t, store.tx.logs, 1)
	var payload struct {
		SafetyVerdict *ai.SafetyVerdict `json:"safety_verdict"`
	}
	require.NoError(t, json.Unmarshal([]byte(store.tx.logs[0].RawExtractionJSON), &payload))
	require.NotNil(t, payload.SafetyVerdict)
	assert.Equal(t, ai.DecisionBlock, payload.SafetyVerdict.Decision)
}

func TestProcessSafetySkippedWithoutKey(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{
		verdict: ai.SafetyVerdict{Decision: ai.DecisionBlock},
		items:   []ai.ExtractedItem{},
	}
	// strict mode but no key configured: the gate is skipped entirely
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyStrict, HasAPIKey: false})

	_, err := svc.ProcessInteraction(context.Background(), textCommand("anything"))
	require.NoError(t, err)
	assert.Equal(t, 0, gw.safetyCalls)
}

func TestProcessSafetySkippedWhenOff(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{items: []ai.ExtractedItem{}}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyOff, HasAPIKey: true})

	_, err := svc.ProcessInteraction(context.Background(), textCommand("anything"))
	require.NoError(t, err)
	assert.Equal(t, 0, gw.safetyCalls)
}

func TestProcessTranscriptionFailure(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{
		transcribeErr: &ai.TranscriptionError{Reasons: []string{"primary: boom", "fallback: boom"}},
	}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyOff})

	_, err := svc.ProcessInteraction(context.Background(), ProcessCommand{
		TenantID:   "t1",
		CustomerID: "c1",
		SourceType: interactions.SourceVoice,
		AudioRef:   "https://assets.example.com/audio.mp3",
	})

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	var terr *ai.TranscriptionError
	assert.ErrorAs(t, err, &terr)

	require.Len(t, store.created, 1)
	assert.Equal(t, []interactions.InteractionID{store.created[0].ID}, store.failed)
	assert.Equal(t, string(store.created[0].ID), runErr.InteractionID)
}

func TestProcessExtractionFailure(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{extractErr: &ai.ExtractionError{Raw: "not json", Err: errors.New("bad")}}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyOff})

	_, err := svc.ProcessInteraction(context.Background(), textCommand("order stuff"))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	var xerr *ai.ExtractionError
	assert.ErrorAs(t, err, &xerr)
	assert.Equal(t, []interactions.InteractionID{store.created[0].ID}, store.failed)
}

func TestProcessFailedMarkFailureSwallowed(t *testing.T) {
	store := &memStore{failMark: true}
	gw := &stubGateway{extractErr: errors.New("provider exploded")}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyOff})

	_, err := svc.ProcessInteraction(context.Background(), textCommand("order stuff"))

	// the original error surfaces even when the FAILED write also fails
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Contains(t, runErr.Err.Error(), "provider exploded")
}

func TestProcessResolvesDistinctSKUsOnly(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{items: []ai.ExtractedItem{
		{SKU: "SKU-1", Qty: 5},
		{SKU: "SKU-1", Qty: 7},
		{SKU: "SKU-2", Qty: 1},
	}}
	cat := &stubCatalog{products: map[string]*catalog.Product{
		"SKU-1": product("p1", "SKU-1", 1.0),
		"SKU-2": product("p2", "SKU-2", 2.0),
	}}
	svc := newService(store, gw, cat, SafetyPolicy{Mode: SafetyOff})

	res, err := svc.ProcessInteraction(context.Background(), textCommand("dupes"))
	require.NoError(t, err)

	assert.Equal(t, []string{"SKU-1", "SKU-2"}, cat.gotSKUs)
	// both lines for SKU-1 still become separate items
	require.Len(t, store.tx.items, 3)
	assert.Equal(t, 5*1.0+7*1.0+1*2.0, store.tx.totals[orders.OrderID(res.OrderID)])
}

func TestProcessNonPositiveQuantityDropped(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{items: []ai.ExtractedItem{{SKU: "SKU-1", Qty: 0}}}
	cat := &stubCatalog{products: map[string]*catalog.Product{
		"SKU-1": product("p1", "SKU-1", 1.0),
	}}
	svc := newService(store, gw, cat, SafetyPolicy{Mode: SafetyOff})

	_, err := svc.ProcessInteraction(context.Background(), textCommand("zero of SKU-1"))
	require.NoError(t, err)
	assert.Empty(t, store.tx.items)
}

func TestProcessAnalysisLogRecordsTranscript(t *testing.T) {
	store := &memStore{}
	gw := &stubGateway{
		transcript: "I need 500 units of SKU-1234",
		items:      []ai.ExtractedItem{},
	}
	svc := newService(store, gw, &stubCatalog{}, SafetyPolicy{Mode: SafetyOff})

	_, err := svc.ProcessInteraction(context.Background(), ProcessCommand{
		TenantID:   "t1",
		CustomerID: "c1",
		SourceType: interactions.SourceVoice,
		AudioRef:   "https://assets.example.com/audio.mp3",
	})
	require.NoError(t, err)

	require.Len(t, store.tx.logs, 1)
	logEntry := store.tx.logs[0]
	assert.Equal(t, "I need 500 units of SKU-1234", logEntry.TranscriptText)
	assert.Equal(t, string(store.created[0].ID), logEntry.InteractionID)
	assert.InDelta(t, 0.92, logEntry.ConfidenceScore, 1e-9)
}
