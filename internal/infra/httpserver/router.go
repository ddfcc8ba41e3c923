package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apporders "github.com/bryanwahyu/orderflow-ai/internal/application/orders"
	"github.com/bryanwahyu/orderflow-ai/internal/application/pipeline"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/analysis"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/catalog"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/customers"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/interactions"
	domorders "github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
	"github.com/bryanwahyu/orderflow-ai/internal/middleware"
)

// maxUploadBytes caps inbound audio uploads (32 MiB).
const maxUploadBytes = 32 << 20

// AudioStore is where inbound voice uploads land before the pipeline runs.
type AudioStore interface {
	PutAudio(ctx context.Context, key string, r io.Reader, size int64) (string, error)
}

type Router struct {
	pipelineSvc  *pipeline.Service
	ordersSvc    *apporders.Service
	interactions interactions.Repository
	analysisRepo analysis.Repository
	catalogRepo  catalog.Repository
	customerRepo customers.Repository
	assets       AudioStore
	log          *zap.Logger
}

func NewRouter(
	pipelineSvc *pipeline.Service,
	ordersSvc *apporders.Service,
	interactionsRepo interactions.Repository,
	analysisRepo analysis.Repository,
	catalogRepo catalog.Repository,
	customerRepo customers.Repository,
	assets AudioStore,
	healthCheckers map[string]middleware.HealthChecker,
	log *zap.Logger,
) http.Handler {
	r := &Router{
		pipelineSvc:  pipelineSvc,
		ordersSvc:    ordersSvc,
		interactions: interactionsRepo,
		analysisRepo: analysisRepo,
		catalogRepo:  catalogRepo,
		customerRepo: customerRepo,
		assets:       assets,
		log:          log,
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	mux.Use(middleware.Logging(log))

	mux.Get("/health", middleware.HealthHandler(healthCheckers))

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/interactions/process-text", r.wrap(r.handleProcessText))
		rt.Post("/interactions/upload", r.wrap(r.handleUpload))
		rt.Get("/interactions/latest", r.wrap(r.handleLatestInteractions))
		rt.Get("/interactions/{id}", r.wrap(r.handleGetInteraction))

		rt.Get("/orders", r.wrap(r.handleListOrders))
		rt.Get("/orders/{id}", r.wrap(r.handleGetOrder))
		rt.Post("/orders/{id}/confirm", r.wrap(r.handleConfirmOrder))
		rt.Post("/anomalies/{id}/resolve", r.wrap(r.handleResolveAnomaly))

		rt.Get("/analytics/summary", r.wrap(r.handleSummary))
		rt.Get("/catalog", r.wrap(r.handleListCatalog))
		rt.Get("/customers", r.wrap(r.handleListCustomers))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps domain errors onto HTTP status codes. Policy rejection is the
// caller's problem (422); everything else internal stays opaque apart from
// the interaction id as a correlation handle.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var cse *pipeline.ContentSafetyError
		if errors.As(err, &cse) {
			writeError(w, http.StatusUnprocessableEntity, "content rejected by safety policy", "")
			return
		}
		if errors.Is(err, domorders.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not found", "")
			return
		}
		if errors.Is(err, domorders.ErrStatusConflict) {
			writeError(w, http.StatusConflict, err.Error(), "")
			return
		}

		r.log.Error("request failed",
			zap.String("path", req.URL.Path),
			zap.Error(err))
		var runErr *pipeline.RunError
		if errors.As(err, &runErr) {
			writeError(w, http.StatusInternalServerError, "internal server error", runErr.InteractionID)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func writeError(w http.ResponseWriter, code int, msg, interactionID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := map[string]string{"error": msg}
	if interactionID != "" {
		body["interaction_id"] = interactionID
	}
	json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/{tenant}/interactions/process-text
// Body: {"customer_id": "...", "transcript": "..."}
func (r *Router) handleProcessText(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		CustomerID string `json:"customer_id"`
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return nil
	}
	if body.CustomerID == "" || body.Transcript == "" {
		writeError(w, http.StatusBadRequest, "customer_id and transcript are required", "")
		return nil
	}

	result, err := r.pipelineSvc.ProcessInteraction(req.Context(), pipeline.ProcessCommand{
		TenantID:   tenant,
		CustomerID: body.CustomerID,
		SourceType: interactions.SourceText,
		Transcript: body.Transcript,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, result)
}

// POST /v1/{tenant}/interactions/upload
// Multipart form: file, customer_id. The audio lands in the object store
// first; its URL becomes the interaction's raw asset reference.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", "")
		return nil
	}
	customerID := req.FormValue("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id is required", "")
		return nil
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required", "")
		return nil
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s%s", tenant, uuid.NewString(), filepath.Ext(header.Filename))
	audioURL, err := r.assets.PutAudio(req.Context(), key, file, header.Size)
	if err != nil {
		return fmt.Errorf("store audio asset: %w", err)
	}

	result, err := r.pipelineSvc.ProcessInteraction(req.Context(), pipeline.ProcessCommand{
		TenantID:   tenant,
		CustomerID: customerID,
		SourceType: interactions.SourceVoice,
		AudioRef:   audioURL,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, result)
}

// GET /v1/{tenant}/interactions/latest?limit=20
func (r *Router) handleLatestInteractions(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.interactions.Latest(req.Context(), tenant, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/interactions/{id}
func (r *Router) handleGetInteraction(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	in, err := r.interactions.Get(req.Context(), tenant, interactions.InteractionID(id))
	if err != nil {
		return err
	}

	resp := struct {
		*interactions.Interaction
		Analysis *analysis.Log `json:"analysis,omitempty"`
	}{Interaction: in}

	if logEntry, err := r.analysisRepo.GetByInteraction(req.Context(), string(in.ID)); err == nil {
		resp.Analysis = logEntry
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

// GET /v1/{tenant}/orders?status=&customer_id=&limit=&offset=
func (r *Router) handleListOrders(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	status := domorders.Status(req.URL.Query().Get("status"))
	customerID := req.URL.Query().Get("customer_id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))

	list, err := r.ordersSvc.List(req.Context(), tenant, status, customerID, limit, offset)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/orders/{id}
func (r *Router) handleGetOrder(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	order, err := r.ordersSvc.Get(req.Context(), tenant, domorders.OrderID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, order)
}

// POST /v1/{tenant}/orders/{id}/confirm
func (r *Router) handleConfirmOrder(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	order, err := r.ordersSvc.Confirm(req.Context(), tenant, domorders.OrderID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, order)
}

// POST /v1/{tenant}/anomalies/{id}/resolve
func (r *Router) handleResolveAnomaly(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	a, err := r.ordersSvc.ResolveAnomaly(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/{tenant}/analytics/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	summary, err := r.ordersSvc.Summary(req.Context(), tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}

// GET /v1/{tenant}/catalog
func (r *Router) handleListCatalog(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	products, err := r.catalogRepo.List(req.Context(), tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, products)
}

// GET /v1/{tenant}/customers
func (r *Router) handleListCustomers(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	list, err := r.customerRepo.List(req.Context(), tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}
