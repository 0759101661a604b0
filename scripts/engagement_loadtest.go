//go:build ignore
// +build ignore

// Engagement Load Test - fires concurrent opens and clicks at one endpoint
// and compares the stored counters with what was sent.
//
// Without serialize_updates the read-merge-write cycle can lose increments;
// this script measures how many. With serialize_updates on, lost should be 0
// and busy responses show lock contention instead.
//
// Usage:
//
//	go run scripts/engagement_loadtest.go \
//	  --base-url="http://localhost:3000" \
//	  --email="loadtest@example.org" \
//	  --opens=500 \
//	  --clicks=100 \
//	  --workers=32
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

type loadTestConfig struct {
	BaseURL  string
	Email    string
	Opens    int
	Clicks   int
	Workers  int
	Timeout  time.Duration
}

// =============================================================================
// METRICS COLLECTION
// =============================================================================

type phaseResult struct {
	Name      string
	Attempted int64
	Succeeded int64
	Busy      int64
	Failed    int64
	Latencies []time.Duration
	Duration  time.Duration

	mu sync.Mutex
}

func (p *phaseResult) record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&p.Attempted, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&p.Failed, 1)
	case status == http.StatusServiceUnavailable:
		atomic.AddInt64(&p.Busy, 1)
	case status >= 400:
		atomic.AddInt64(&p.Failed, 1)
	default:
		atomic.AddInt64(&p.Succeeded, 1)
	}
	p.mu.Lock()
	p.Latencies = append(p.Latencies, latency)
	p.mu.Unlock()
}

func (p *phaseResult) print() {
	fmt.Printf("\n--- %s ---\n", p.Name)
	fmt.Printf("  attempted: %d  ok: %d  busy: %d  failed: %d\n", p.Attempted, p.Succeeded, p.Busy, p.Failed)
	if p.Duration > 0 {
		fmt.Printf("  rate: %.1f req/s over %s\n", float64(p.Attempted)/p.Duration.Seconds(), p.Duration.Round(time.Millisecond))
	}
	fmt.Printf("  p50: %s  p99: %s\n", percentile(p.Latencies, 50), percentile(p.Latencies, 99))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

type loadTest struct {
	cfg    loadTestConfig
	client *http.Client
}

type sendResponse struct {
	Success    bool   `json:"success"`
	MessageID  string `json:"messageId"`
	EndpointID string `json:"endpointId"`
}

type analyticsResponse struct {
	Metrics map[string]float64 `json:"metrics"`
}

func (t *loadTest) send(ctx context.Context) (sendResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"name":    "Load Test",
		"email":   t.cfg.Email,
		"subject": "engagement load test",
		"message": "See https://example.org/loadtest for details.",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return sendResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return sendResponse{}, err
	}
	defer resp.Body.Close()

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return sendResponse{}, fmt.Errorf("decode send response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return sendResponse{}, fmt.Errorf("send returned %d", resp.StatusCode)
	}
	return out, nil
}

func (t *loadTest) metrics(ctx context.Context) (map[string]float64, error) {
	u := t.cfg.BaseURL + "/analytics?email=" + url.QueryEscape(t.cfg.Email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out analyticsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	return out.Metrics, nil
}

// get issues one tracking request without following redirects.
func (t *loadTest) get(ctx context.Context, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// =============================================================================
// PHASES
// =============================================================================

func (t *loadTest) hammer(ctx context.Context, name string, n int, target func(i int) string) *phaseResult {
	result := &phaseResult{Name: name, Latencies: make([]time.Duration, 0, n)}
	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < t.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				began := time.Now()
				status, err := t.get(ctx, target(i))
				result.record(time.Since(began), status, err)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	result.Duration = time.Since(start)
	return result
}

func (t *loadTest) run(ctx context.Context) error {
	fmt.Println("=============================================================")
	fmt.Println(" ENGAGEMENT LOAD TEST")
	fmt.Println("=============================================================")
	fmt.Printf("  target: %s  email: %s  workers: %d\n", t.cfg.BaseURL, t.cfg.Email, t.cfg.Workers)

	sent, err := t.send(ctx)
	if err != nil {
		return fmt.Errorf("seed send: %w", err)
	}
	messageID, endpointID := sent.MessageID, sent.EndpointID
	fmt.Printf("  seeded message %s for endpoint %s\n", messageID, endpointID)

	before, err := t.metrics(ctx)
	if err != nil {
		return err
	}

	opens := t.hammer(ctx, "opens", t.cfg.Opens, func(int) string {
		return fmt.Sprintf("%s/track/open/%s/%s", t.cfg.BaseURL, url.PathEscape(messageID), url.PathEscape(endpointID))
	})
	opens.print()

	clicks := t.hammer(ctx, "clicks", t.cfg.Clicks, func(i int) string {
		dest := fmt.Sprintf("https://example.org/loadtest?n=%d", i)
		return fmt.Sprintf("%s/track/click/%s/%s?url=%s", t.cfg.BaseURL, url.PathEscape(messageID), url.PathEscape(endpointID), url.QueryEscape(dest))
	})
	clicks.print()

	after, err := t.metrics(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=============================================================")
	fmt.Println(" LOST UPDATES")
	fmt.Println("=============================================================")
	lost := report("opens", before["opens"], after["opens"], opens.Succeeded)
	lost += report("clicks", before["clicks"], after["clicks"], clicks.Succeeded)
	if lost > 0 {
		fmt.Println("\n  RESULT: FAIL (enable engagement.serialize_updates to prevent lost increments)")
	} else {
		fmt.Println("\n  RESULT: PASS")
	}
	return nil
}

func report(name string, before, after float64, acknowledged int64) int64 {
	stored := int64(after - before)
	lost := acknowledged - stored
	fmt.Printf("  %-7s acknowledged: %6d  stored: %6d  lost: %6d\n", name, acknowledged, stored, lost)
	return lost
}

func main() {
	cfg := loadTestConfig{}
	flag.StringVar(&cfg.BaseURL, "base-url", "http://localhost:3000", "service base URL")
	flag.StringVar(&cfg.Email, "email", "loadtest@example.org", "recipient whose endpoint is hammered")
	flag.IntVar(&cfg.Opens, "opens", 500, "open requests to send")
	flag.IntVar(&cfg.Clicks, "clicks", 100, "click requests to send")
	flag.IntVar(&cfg.Workers, "workers", 32, "concurrent workers")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	t := &loadTest{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	if err := t.run(context.Background()); err != nil {
		log.Printf("load test failed: %v", err)
		os.Exit(1)
	}
}
