//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Kestrel quote engine.
//
// These tests verify the COMPLETE recommendation pipeline:
//
//	Profile → Eligibility → Scoring → Ranking → Quote
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. PROFILE: A buyer's declared attributes (age, income, risk appetite,
//    dependents, vehicle, health flags)
//
// 2. ELIGIBILITY: Each catalog policy carries structured gates (age range,
//    income floor, vehicle types, barred health flags) plus an optional
//    CEL constraint. A policy is only scored if every gate passes.
//
// 3. SCORING: Eligible policies get a weighted total:
//   - premiumFit (0.35): how close the premium sits to the buyer's budget
//   - coverage   (0.30): sum insured vs. an income-derived coverage need
//   - riskAlign  (0.20): product risk vs. declared tolerance
//   - bonus      (0.15): situational fit (dependents, vehicle, riders)
//
// 4. QUOTE: Top 3 policies, best first. An empty list is a valid quote;
//    it means nothing in the catalog fits.
//
// 5. HANDOFF: A callback ticket created as "scheduled" and transitioned to
//    "acknowledged" asynchronously by the worker.
//
// The server must be running against the embedded catalog (the default).
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("KESTREL_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{BaseURL: baseURL}
}

// ============================================================================
// API Request/Response Types (matching Kestrel's API contract)
// ============================================================================

// QuoteRequest is the profile sent to POST /quote
type QuoteRequest struct {
	Age              int      `json:"age"`
	Dependents       int      `json:"dependentsCount"`
	AnnualIncome     float64  `json:"annualIncomeBand"`
	RiskTolerance    string   `json:"riskTolerance"`
	PreferredPremium float64  `json:"preferredPremiumBand"`
	VehicleType      string   `json:"vehicleType,omitempty"`
	HealthFlags      []string `json:"healthFlags,omitempty"`
}

// QuoteResponse is what POST /quote returns
type QuoteResponse struct {
	ID              string           `json:"id"`
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        QuoteMetadata    `json:"metadata"`
}

type Recommendation struct {
	Policy Policy  `json:"policy"`
	Score  float64 `json:"score"`
}

type Policy struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type QuoteMetadata struct {
	RequestID         string `json:"requestId"`
	PoliciesEvaluated int    `json:"policiesEvaluated"`
	PoliciesEligible  int    `json:"policiesEligible"`
	EngineVersion     string `json:"engineVersion"`
}

// HandoffResponse is what POST /handoff returns
type HandoffResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func postQuote(t *testing.T, config TestConfig, req QuoteRequest) QuoteResponse {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	resp, respBody := doPost(t, config.BaseURL+"/quote", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
	}

	var result QuoteResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
	}
	return result
}

func doPost(t *testing.T, url string, body []byte) (*http.Response, []byte) {
	t.Helper()

	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp, respBody
}

func doGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp, respBody
}

// ============================================================================
// SCENARIO 1: Typical Family Buyer (Full Recommendations)
// ============================================================================

func TestFamilyBuyer_GetsRecommendations(t *testing.T) {
	/*
	   SCENARIO: A 32-year-old with 2 dependents, solid income, a car,
	   and a mid-range premium budget.

	   EXPECTED BEHAVIOR:
	   - Multiple catalog policies pass eligibility
	   - Up to 3 recommendations, ordered best-first
	   - Term plans rank well because of the dependents bonus
	*/
	config := getTestConfig()

	result := postQuote(t, config, QuoteRequest{
		Age:              32,
		Dependents:       2,
		AnnualIncome:     900000,
		RiskTolerance:    "Medium",
		PreferredPremium: 18000,
		VehicleType:      "Car",
	})

	if result.ID == "" {
		t.Error("Expected a quote ID")
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("Expected at least one recommendation")
	}
	if len(result.Recommendations) > 3 {
		t.Errorf("Expected at most 3 recommendations, got %d", len(result.Recommendations))
	}
	for i := 1; i < len(result.Recommendations); i++ {
		if result.Recommendations[i].Score > result.Recommendations[i-1].Score {
			t.Error("Recommendations are not ordered best-first")
		}
	}
	if result.Metadata.PoliciesEvaluated < result.Metadata.PoliciesEligible {
		t.Errorf("Eligible count (%d) exceeds evaluated count (%d)",
			result.Metadata.PoliciesEligible, result.Metadata.PoliciesEvaluated)
	}

	t.Logf("✓ Family buyer quoted: %d recommendations, best=%s (%.3f)",
		len(result.Recommendations), result.Recommendations[0].Policy.ID, result.Recommendations[0].Score)
}

// ============================================================================
// SCENARIO 2: Ineligible Buyer (Empty Quote, Not An Error)
// ============================================================================

func TestUnderageBuyer_EmptyQuote(t *testing.T) {
	/*
	   SCENARIO: A 17-year-old with no vehicle. Every embedded policy has
	   a minimum entry age of at least 18.

	   EXPECTED BEHAVIOR:
	   - Eligibility filters out the full catalog
	   - Response is still 200 with an empty recommendation list
	*/
	config := getTestConfig()

	result := postQuote(t, config, QuoteRequest{
		Age:              17,
		AnnualIncome:     400000,
		RiskTolerance:    "Low",
		PreferredPremium: 8000,
	})

	if len(result.Recommendations) != 0 {
		t.Errorf("Expected empty recommendations, got %d", len(result.Recommendations))
	}
	if result.Metadata.PoliciesEligible != 0 {
		t.Errorf("Expected 0 eligible policies, got %d", result.Metadata.PoliciesEligible)
	}

	t.Logf("✓ Underage buyer got a valid empty quote")
}

// ============================================================================
// SCENARIO 3: Determinism (Identical Profiles, Identical Rankings)
// ============================================================================

func TestIdenticalProfiles_SameRanking(t *testing.T) {
	config := getTestConfig()

	req := QuoteRequest{
		Age:              45,
		Dependents:       1,
		AnnualIncome:     1500000,
		RiskTolerance:    "High",
		PreferredPremium: 30000,
	}

	first := postQuote(t, config, req)
	second := postQuote(t, config, req)

	if len(first.Recommendations) != len(second.Recommendations) {
		t.Fatalf("Recommendation counts differ: %d vs %d",
			len(first.Recommendations), len(second.Recommendations))
	}
	for i := range first.Recommendations {
		if first.Recommendations[i].Policy.ID != second.Recommendations[i].Policy.ID {
			t.Errorf("Ranking differs at position %d: %s vs %s",
				i, first.Recommendations[i].Policy.ID, second.Recommendations[i].Policy.ID)
		}
	}

	t.Logf("✓ Identical profiles produced identical rankings")
}

// ============================================================================
// SCENARIO 4: Quote Retrieval
// ============================================================================

func TestQuoteRetrieval(t *testing.T) {
	config := getTestConfig()

	quote := postQuote(t, config, QuoteRequest{
		Age:              28,
		AnnualIncome:     700000,
		RiskTolerance:    "Medium",
		PreferredPremium: 12000,
	})

	resp, body := doGet(t, config.BaseURL+"/quotes/"+quote.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(body))
	}

	var stored QuoteResponse
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("Failed to unmarshal stored quote: %v", err)
	}
	if stored.ID != quote.ID {
		t.Errorf("Expected quote %s, got %s", quote.ID, stored.ID)
	}

	t.Logf("✓ Quote %s persisted and retrievable", quote.ID)
}

// ============================================================================
// SCENARIO 5: Advisor Handoff Lifecycle
// ============================================================================

func TestHandoffLifecycle(t *testing.T) {
	/*
	   SCENARIO: A buyer requests a human callback.

	   EXPECTED BEHAVIOR:
	   - POST /handoff returns 201 with a "scheduled" ticket
	   - The worker consumes the handoff event and transitions the
	     ticket to "acknowledged" within a few seconds
	*/
	config := getTestConfig()

	body, _ := json.Marshal(map[string]string{
		"name":          "Integration Tester",
		"phone":         "+91-9000000000",
		"preferredTime": "morning",
	})

	resp, respBody := doPost(t, config.BaseURL+"/handoff", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, string(respBody))
	}

	var ticket HandoffResponse
	if err := json.Unmarshal(respBody, &ticket); err != nil {
		t.Fatalf("Failed to unmarshal ticket: %v", err)
	}
	if ticket.Status != "scheduled" {
		t.Errorf("Expected scheduled status, got %s", ticket.Status)
	}

	// Wait for the worker to acknowledge
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, getBody := doGet(t, fmt.Sprintf("%s/handoffs/%s", config.BaseURL, ticket.ID))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}

		var current HandoffResponse
		if err := json.Unmarshal(getBody, &current); err != nil {
			t.Fatalf("Failed to unmarshal ticket: %v", err)
		}
		if current.Status == "acknowledged" {
			t.Logf("✓ Handoff %s acknowledged by worker", ticket.ID)
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatal("Handoff was never acknowledged")
}

// ============================================================================
// SCENARIO 6: Catalog and Health Surface
// ============================================================================

func TestCatalogAndHealth(t *testing.T) {
	config := getTestConfig()

	resp, body := doGet(t, config.BaseURL+"/policies")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var catalog struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &catalog); err != nil {
		t.Fatalf("Failed to unmarshal catalog: %v", err)
	}
	if catalog.Count == 0 {
		t.Error("Expected a non-empty catalog")
	}

	resp, _ = doGet(t, config.BaseURL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected health 200, got %d", resp.StatusCode)
	}

	resp, _ = doGet(t, config.BaseURL+"/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected ready 200, got %d", resp.StatusCode)
	}

	t.Logf("✓ Catalog has %d policies; server healthy and ready", catalog.Count)
}
