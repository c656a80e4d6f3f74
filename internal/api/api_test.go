package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/catalog"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/recommend"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newPipeline(t *testing.T) (*catalog.Store, *recommend.Recommender) {
	t.Helper()

	store, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create rule engine: %v", err)
	}
	if err := engine.LoadCatalog(store.All()); err != nil {
		t.Fatalf("failed to load constraints: %v", err)
	}

	scorer := scoring.NewScorer(scoring.DefaultWeights(), scoring.DefaultAffinity())
	return store, recommend.NewRecommender(store, engine, scorer, 3)
}

// createTestServer builds a server over the embedded catalog without
// persistence, caching, or messaging.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	store, recommender := newPipeline(t)
	return NewServer(cfg, nil, nil, nil, store, recommender, "test-v1", time.Minute)
}

// createFullTestServer wires in a sqlite repository, an in-memory cache,
// and a channel bus.
func createFullTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	t.Cleanup(func() { lru.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	store, recommender := newPipeline(t)
	return NewServer(cfg, repo, lru, eventBus, store, recommender, "test-v1", time.Minute)
}

func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func validQuoteRequest() QuoteRequest {
	return QuoteRequest{
		Age:              intPtr(32),
		Dependents:       intPtr(2),
		AnnualIncome:     floatPtr(900000),
		RiskTolerance:    "Medium",
		PreferredPremium: floatPtr(18000),
		VehicleType:      "Car",
	}
}

func TestQuoteEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulQuote", func(t *testing.T) {
		rr := postJSON(t, server, "/quote", validQuoteRequest())
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var quote domain.Quote
		if err := json.Unmarshal(rr.Body.Bytes(), &quote); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if quote.ID == "" {
			t.Error("expected quote ID")
		}
		if len(quote.Recommendations) == 0 {
			t.Fatal("expected recommendations")
		}
		if len(quote.Recommendations) > 3 {
			t.Errorf("expected at most 3 recommendations, got %d", len(quote.Recommendations))
		}
		for i := 1; i < len(quote.Recommendations); i++ {
			if quote.Recommendations[i].Score > quote.Recommendations[i-1].Score {
				t.Error("recommendations not ordered best-first")
			}
		}
		if quote.Metadata.PoliciesEvaluated == 0 {
			t.Error("expected policiesEvaluated in metadata")
		}
		if quote.Metadata.EngineVersion == "" {
			t.Error("expected engineVersion in metadata")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBufferString("{broken"))
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingRequiredFields", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*QuoteRequest)
		}{
			{"Age", func(r *QuoteRequest) { r.Age = nil }},
			{"AnnualIncome", func(r *QuoteRequest) { r.AnnualIncome = nil }},
			{"PreferredPremium", func(r *QuoteRequest) { r.PreferredPremium = nil }},
			{"RiskTolerance", func(r *QuoteRequest) { r.RiskTolerance = "" }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				req := validQuoteRequest()
				tc.mutate(&req)

				rr := postJSON(t, server, "/quote", req)
				if rr.Code != http.StatusBadRequest {
					t.Errorf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
				}
			})
		}
	})

	t.Run("InvalidProfile", func(t *testing.T) {
		req := validQuoteRequest()
		req.Age = intPtr(-5)

		rr := postJSON(t, server, "/quote", req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for negative age, got %d", rr.Code)
		}

		req = validQuoteRequest()
		req.RiskTolerance = "Extreme"

		rr = postJSON(t, server, "/quote", req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unknown risk tolerance, got %d", rr.Code)
		}
	})

	t.Run("NoEligiblePoliciesIsStillOK", func(t *testing.T) {
		req := validQuoteRequest()
		req.Age = intPtr(17)
		req.VehicleType = ""
		req.Dependents = intPtr(0)

		rr := postJSON(t, server, "/quote", req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var quote domain.Quote
		json.Unmarshal(rr.Body.Bytes(), &quote)
		if len(quote.Recommendations) != 0 {
			t.Errorf("expected empty recommendations, got %d", len(quote.Recommendations))
		}
	})
}

func TestQuotePersistence(t *testing.T) {
	server := createFullTestServer(t)

	rr := postJSON(t, server, "/quote", validQuoteRequest())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var quote domain.Quote
	if err := json.Unmarshal(rr.Body.Bytes(), &quote); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	t.Run("RetrieveSavedQuote", func(t *testing.T) {
		rr := get(t, server, "/quotes/"+quote.ID)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var got domain.Quote
		json.Unmarshal(rr.Body.Bytes(), &got)
		if got.ID != quote.ID {
			t.Errorf("expected quote %s, got %s", quote.ID, got.ID)
		}
	})

	t.Run("UnknownQuoteIs404", func(t *testing.T) {
		rr := get(t, server, "/quotes/no-such-quote")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("IdenticalProfileServedFromCache", func(t *testing.T) {
		rr := postJSON(t, server, "/quote", validQuoteRequest())
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var second domain.Quote
		json.Unmarshal(rr.Body.Bytes(), &second)
		if second.ID != quote.ID {
			t.Errorf("expected cached quote %s, got %s", quote.ID, second.ID)
		}
	})
}

func TestPolicyEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("ListPolicies", func(t *testing.T) {
		rr := get(t, server, "/policies")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Policies []domain.PolicyRecord `json:"policies"`
			Count    int                   `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Count == 0 || len(resp.Policies) != resp.Count {
			t.Errorf("inconsistent catalog response: count=%d, policies=%d", resp.Count, len(resp.Policies))
		}
	})

	t.Run("GetPolicy", func(t *testing.T) {
		rr := get(t, server, "/policies/HLT-001")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var policy domain.PolicyRecord
		json.Unmarshal(rr.Body.Bytes(), &policy)
		if policy.ID != "HLT-001" {
			t.Errorf("expected policy HLT-001, got %s", policy.ID)
		}
	})

	t.Run("UnknownPolicyIs404", func(t *testing.T) {
		rr := get(t, server, "/policies/ZZZ-999")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestHandoffEndpoints(t *testing.T) {
	server := createFullTestServer(t)

	t.Run("CreateHandoff", func(t *testing.T) {
		rr := postJSON(t, server, "/handoff", HandoffRequest{
			Name:          "Asha Rao",
			Phone:         "+91-9876543210",
			PreferredTime: "evening",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var ticket domain.HandoffTicket
		if err := json.Unmarshal(rr.Body.Bytes(), &ticket); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if ticket.ID == "" {
			t.Error("expected ticket ID")
		}
		if ticket.Status != domain.HandoffScheduled {
			t.Errorf("expected scheduled status, got %s", ticket.Status)
		}

		getRR := get(t, server, "/handoffs/"+ticket.ID)
		if getRR.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", getRR.Code)
		}
	})

	t.Run("MissingContactIs400", func(t *testing.T) {
		rr := postJSON(t, server, "/handoff", HandoffRequest{Name: "No Phone"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("UnknownTicketIs404", func(t *testing.T) {
		rr := get(t, server, "/handoffs/no-such-ticket")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("Health", func(t *testing.T) {
		rr := get(t, server, "/health")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]interface{}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "healthy" {
			t.Errorf("expected healthy status, got %v", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version test-v1, got %v", resp["version"])
		}
	})

	t.Run("Ready", func(t *testing.T) {
		rr := get(t, server, "/ready")
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("NotReadyWithoutCatalog", func(t *testing.T) {
		cfg := domain.ServerConfig{Host: "localhost", Port: 8080, ReadTimeout: 30, WriteTimeout: 30}
		bare := NewServer(cfg, nil, nil, nil, nil, nil, "test-v1", time.Minute)

		rr := get(t, bare, "/ready")
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})

	t.Run("RequestIDHeader", func(t *testing.T) {
		rr := get(t, server, "/health")
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
	})
}
