package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/catalog"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/recommend"
	"github.com/opensource-finance/kestrel/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo        domain.Repository
	cache       domain.Cache
	bus         domain.EventBus
	store       *catalog.Store
	recommender *recommend.Recommender
	version     string
	quoteTTL    time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, store *catalog.Store, recommender *recommend.Recommender, version string, quoteTTL time.Duration) *Handler {
	if quoteTTL <= 0 {
		quoteTTL = 5 * time.Minute
	}
	return &Handler{
		repo:        repo,
		cache:       cache,
		bus:         bus,
		store:       store,
		recommender: recommender,
		version:     version,
		quoteTTL:    quoteTTL,
	}
}

// QuoteRequest is the request body for POST /quote. Numeric fields are
// pointers so a missing field is distinguishable from a zero.
type QuoteRequest struct {
	Age              *int     `json:"age"`
	Dependents       *int     `json:"dependentsCount"`
	AnnualIncome     *float64 `json:"annualIncomeBand"`
	RiskTolerance    string   `json:"riskTolerance"`
	PreferredPremium *float64 `json:"preferredPremiumBand"`
	VehicleType      string   `json:"vehicleType,omitempty"`
	HealthFlags      []string `json:"healthFlags,omitempty"`
}

// Quote handles POST /quote requests.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := GetRequestID(ctx)

	// Parse request
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate required fields
	if req.Age == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "age is required",
		})
		return
	}
	if req.AnnualIncome == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "annualIncomeBand is required",
		})
		return
	}
	if req.PreferredPremium == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "preferredPremiumBand is required",
		})
		return
	}
	if req.RiskTolerance == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "riskTolerance is required",
		})
		return
	}

	profile := &domain.Profile{
		Age:              *req.Age,
		AnnualIncome:     *req.AnnualIncome,
		RiskTolerance:    domain.RiskTolerance(req.RiskTolerance),
		PreferredPremium: *req.PreferredPremium,
		VehicleType:      req.VehicleType,
		HealthFlags:      req.HealthFlags,
	}
	if req.Dependents != nil {
		profile.Dependents = *req.Dependents
	}

	// Check cache by profile fingerprint
	fingerprint := profileFingerprint(profile)
	if h.cache != nil {
		if cached, err := h.cache.GetQuote(ctx, fingerprint); err == nil && cached != nil {
			cached.Metadata.RequestID = requestID
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	quote, err := h.recommender.Recommend(ctx, profile)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidProfile):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, domain.ErrCatalogUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "policy catalog unavailable",
			})
		default:
			slog.Error("recommendation failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "recommendation failed",
			})
		}
		return
	}
	quote.Metadata.RequestID = requestID

	// Persist quote history
	if h.repo != nil {
		if err := h.repo.SaveQuote(ctx, quote); err != nil {
			slog.Error("failed to save quote", "quote_id", quote.ID, "error", err)
		}
	}

	// Cache for identical follow-up profiles
	if h.cache != nil {
		if err := h.cache.SetQuote(ctx, fingerprint, quote, h.quoteTTL); err != nil {
			slog.Error("failed to cache quote", "quote_id", quote.ID, "error", err)
		}
		if _, err := h.cache.IncrementCounter(ctx, "quotes", 24*time.Hour); err != nil {
			slog.Debug("failed to increment quote counter", "error", err)
		}
	}

	// Notify downstream consumers
	if h.bus != nil {
		payload, _ := json.Marshal(quote)
		if err := h.bus.Publish(ctx, domain.TopicQuoteGenerated, payload); err != nil {
			slog.Error("failed to publish quote", "quote_id", quote.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, quote)
}

// GetQuote retrieves a stored quote by ID.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quoteID := chi.URLParam(r, "id")

	if quoteID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "quote id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	quote, err := h.repo.GetQuote(ctx, quoteID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get quote", "id", quoteID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "quote not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// ListPolicies returns the full policy catalog.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "policy catalog unavailable",
		})
		return
	}

	policies := h.store.All()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policies": policies,
		"count":    len(policies),
	})
}

// GetPolicy retrieves a catalog record by policy ID.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "id")

	if policyID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "policy id is required",
		})
		return
	}

	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "policy catalog unavailable",
		})
		return
	}

	policy, ok := h.store.Get(policyID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "policy not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, policy)
}

// HandoffRequest is the request body for POST /handoff.
type HandoffRequest struct {
	QuoteID       string `json:"quoteId,omitempty"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	PreferredTime string `json:"preferredTime,omitempty"`
}

// Handoff handles POST /handoff requests. The ticket is created in
// scheduled state; the worker acknowledges it asynchronously.
func (h *Handler) Handoff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req HandoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Name == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and phone are required",
		})
		return
	}

	now := time.Now().UTC()
	ticket := &domain.HandoffTicket{
		ID:            uuid.New().String(),
		QuoteID:       req.QuoteID,
		Name:          req.Name,
		Phone:         req.Phone,
		PreferredTime: req.PreferredTime,
		Status:        domain.HandoffScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if h.repo != nil {
		if err := h.repo.SaveHandoff(ctx, ticket); err != nil {
			slog.Error("failed to save handoff", "ticket_id", ticket.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save handoff",
			})
			return
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(map[string]string{
			"ticketId":      ticket.ID,
			"quoteId":       ticket.QuoteID,
			"name":          ticket.Name,
			"phone":         ticket.Phone,
			"preferredTime": ticket.PreferredTime,
		})
		if err := h.bus.Publish(ctx, domain.TopicHandoffCreated, payload); err != nil {
			slog.Error("failed to publish handoff", "ticket_id", ticket.ID, "error", err)
		}
	}

	slog.Info("handoff scheduled", "ticket_id", ticket.ID, "quote_id", ticket.QuoteID)
	writeJSON(w, http.StatusCreated, ticket)
}

// GetHandoff retrieves a handoff ticket by ID.
func (h *Handler) GetHandoff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticketID := chi.URLParam(r, "id")

	if ticketID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ticket id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	ticket, err := h.repo.GetHandoff(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get handoff", "id", ticketID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "handoff not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	catalogSize := 0
	if h.store != nil {
		catalogSize = h.store.Len()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"version":      h.version,
		"catalog_size": catalogSize,
	})
}

// Ready returns whether the server is ready to accept traffic.
// Readiness requires a loaded catalog.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.store.Len() == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
			"error": "policy catalog not loaded",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// profileFingerprint derives a stable cache key from a profile. Struct
// field order makes the JSON encoding deterministic.
func profileFingerprint(p *domain.Profile) string {
	data, _ := json.Marshal(p)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
