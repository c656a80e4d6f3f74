// Benchmark tool for load-testing the Kestrel quote endpoint.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -requests 10000
//
// This tool:
//   1. Generates randomized buyer profiles across the supported ranges
//   2. Sends each profile to POST /quote
//   3. Tracks latency, error rate, and empty-result rate
//   4. Reports which policies win the top slot and how often
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// QuoteRequest matches the Kestrel API request format.
type QuoteRequest struct {
	Age              int      `json:"age"`
	Dependents       int      `json:"dependentsCount"`
	AnnualIncome     float64  `json:"annualIncomeBand"`
	RiskTolerance    string   `json:"riskTolerance"`
	PreferredPremium float64  `json:"preferredPremiumBand"`
	VehicleType      string   `json:"vehicleType,omitempty"`
	HealthFlags      []string `json:"healthFlags,omitempty"`
}

// QuoteResponse is the subset of the Kestrel API response we inspect.
type QuoteResponse struct {
	ID              string `json:"id"`
	Recommendations []struct {
		Policy struct {
			ID   string `json:"policy_id"`
			Name string `json:"name"`
		} `json:"policy"`
		Score float64 `json:"score"`
	} `json:"recommendations"`
	Metadata struct {
		PoliciesEvaluated int   `json:"policiesEvaluated"`
		PoliciesEligible  int   `json:"policiesEligible"`
		EngineMs          int64 `json:"engineMs"`
	} `json:"metadata"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalProcessed int64
	TotalErrors    int64
	TotalRejected  int64 // 4xx responses
	EmptyResults   int64

	ProcessingTimeMs int64

	mu      sync.Mutex
	winners map[string]int64 // top-ranked policy -> count
}

var (
	riskLevels   = []string{"Low", "Medium", "High"}
	vehicleTypes = []string{"", "Car", "Bike", "Commercial", "EV"}
	healthFlags  = []string{"Smoker", "Diabetic", "Hypertension"}
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	requests := flag.Int("requests", 10000, "Number of quote requests to send")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 42, "Random seed for profile generation")
	verbose := flag.Bool("verbose", false, "Print each quote result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          KESTREL BENCHMARK - Quote Load Generator             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nKestrel URL: %s\n", *baseURL)
	fmt.Printf("Requests:    %d\n", *requests)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Seed:        %d\n", *seed)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  cd kestrel && go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	// Generate profiles up front so results are reproducible
	rng := rand.New(rand.NewSource(*seed))
	profiles := make([]QuoteRequest, *requests)
	for i := range profiles {
		profiles[i] = randomProfile(rng)
	}
	fmt.Printf("✓ Generated %d profiles\n", len(profiles))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(profiles, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func randomProfile(rng *rand.Rand) QuoteRequest {
	req := QuoteRequest{
		Age:              18 + rng.Intn(65),
		Dependents:       rng.Intn(4),
		AnnualIncome:     float64(200000 + rng.Intn(20)*100000),
		RiskTolerance:    riskLevels[rng.Intn(len(riskLevels))],
		PreferredPremium: float64(5000 + rng.Intn(30)*1000),
		VehicleType:      vehicleTypes[rng.Intn(len(vehicleTypes))],
	}

	// Roughly a third of profiles declare a health flag
	if rng.Intn(3) == 0 {
		req.HealthFlags = []string{healthFlags[rng.Intn(len(healthFlags))]}
	}

	return req
}

func runBenchmark(profiles []QuoteRequest, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{winners: make(map[string]int64)}

	work := make(chan QuoteRequest, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for profile := range work {
				start := time.Now()
				result, status, err := requestQuote(client, baseURL, profile)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					if status >= 400 && status < 500 {
						atomic.AddInt64(&metrics.TotalRejected, 1)
					} else {
						atomic.AddInt64(&metrics.TotalErrors, 1)
					}
					if verbose {
						fmt.Printf("ERROR: age=%d risk=%s -> %v\n", profile.Age, profile.RiskTolerance, err)
					}
					continue
				}

				if len(result.Recommendations) == 0 {
					atomic.AddInt64(&metrics.EmptyResults, 1)
				} else {
					winner := result.Recommendations[0].Policy.ID
					metrics.mu.Lock()
					metrics.winners[winner]++
					metrics.mu.Unlock()
				}

				if verbose {
					top := "-"
					score := 0.0
					if len(result.Recommendations) > 0 {
						top = result.Recommendations[0].Policy.ID
						score = result.Recommendations[0].Score
					}
					fmt.Printf("age=%-3d deps=%d risk=%-6s premium=%8.0f vehicle=%-10s | eligible=%2d top=%-8s (%.3f) | %dms\n",
						profile.Age,
						profile.Dependents,
						profile.RiskTolerance,
						profile.PreferredPremium,
						profile.VehicleType,
						result.Metadata.PoliciesEligible,
						top,
						score,
						elapsed,
					)
				}
			}
		}()
	}

	for _, profile := range profiles {
		work <- profile
	}
	close(work)

	wg.Wait()

	return metrics
}

func requestQuote(client *http.Client, baseURL string, profile QuoteRequest) (*QuoteResponse, int, error) {
	body, err := json.Marshal(profile)
	if err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/quote", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, err
	}

	return &result, resp.StatusCode, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 REQUEST STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Rejected (4xx):   %d\n", m.TotalRejected)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	fmt.Printf("   Empty Results:    %d\n", m.EmptyResults)

	succeeded := m.TotalProcessed - m.TotalRejected - m.TotalErrors
	if succeeded > 0 {
		emptyRate := float64(m.EmptyResults) / float64(succeeded) * 100
		fmt.Printf("   Empty Rate:       %.2f%%\n", emptyRate)
	}

	fmt.Printf("\n🏆 TOP-SLOT WINNERS\n")
	type winner struct {
		id    string
		count int64
	}
	var winners []winner
	for id, count := range m.winners {
		winners = append(winners, winner{id, count})
	}
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].count != winners[j].count {
			return winners[i].count > winners[j].count
		}
		return winners[i].id < winners[j].id
	})
	for _, w := range winners {
		fmt.Printf("   %-10s %6d\n", w.id, w.count)
	}
	if len(winners) == 0 {
		fmt.Println("   (no successful quotes)")
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		qps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f quotes/sec\n", qps)
	}

	fmt.Println()
}
