package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	actorEmail    = "load@reviewroom.local"
	reviewerEmail = "reviewer@reviewroom.local"
)

type options struct {
	baseURL  string
	rps      int
	duration time.Duration
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:          "loadgen [health|rooms|reviews|all]",
		Short:        "Load test for the review rooms API",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0])
		},
	}
	root.Flags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	root.Flags().IntVar(&opts.rps, "rps", 5, "requests per second")
	root.Flags().DurationVar(&opts.duration, "duration", 2*time.Minute, "attack duration")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts *options, scenario string) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	slug := fmt.Sprintf("load-room-%d", rng.Intn(100000))

	var targets []vegeta.Target
	switch scenario {
	case "health":
		targets = healthTargets(opts.baseURL)
	case "rooms":
		if err := seedRoom(opts.baseURL, slug); err != nil {
			return err
		}
		targets = roomTargets(opts.baseURL, slug)
	case "reviews":
		if err := seedRoom(opts.baseURL, slug); err != nil {
			return err
		}
		targets = reviewTargets(opts.baseURL, slug)
	case "all":
		if err := seedRoom(opts.baseURL, slug); err != nil {
			return err
		}
		targets = append(healthTargets(opts.baseURL), roomTargets(opts.baseURL, slug)...)
		targets = append(targets, reviewTargets(opts.baseURL, slug)...)
	default:
		return fmt.Errorf("unknown scenario: %s", scenario)
	}

	metrics := attack(vegeta.NewStaticTargeter(targets...), opts, scenario)
	printMetrics(metrics)
	return nil
}

// Комната создаётся один раз до атаки, вебхук не задан чтобы не слать сообщения в Chat
func seedRoom(baseURL, slug string) error {
	body := mustJSON(map[string]any{
		"slug": slug,
		"name": "Load " + slug,
		"allowedUsers": []map[string]string{
			{"email": reviewerEmail},
		},
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/rooms", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header = headers()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("seed room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("seed room: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func healthTargets(baseURL string) []vegeta.Target {
	return []vegeta.Target{
		{Method: http.MethodGet, URL: baseURL + "/health"},
	}
}

func roomTargets(baseURL, slug string) []vegeta.Target {
	return []vegeta.Target{
		{Method: http.MethodGet, URL: baseURL + "/rooms/" + slug, Header: headers()},
		{Method: http.MethodGet, URL: baseURL + "/rooms", Header: headers()},
		{Method: http.MethodGet, URL: baseURL + "/rooms/" + slug + "/stats", Header: headers()},
	}
}

func reviewTargets(baseURL, slug string) []vegeta.Target {
	return []vegeta.Target{
		{
			Method: http.MethodPost,
			URL:    baseURL + "/rooms/" + slug + "/reviews",
			Body: mustJSON(map[string]any{
				"title":     "Load test review",
				"link":      "https://git.example.com/mr/1",
				"assignees": []string{reviewerEmail},
			}),
			Header: headers(),
		},
		{Method: http.MethodGet, URL: baseURL + "/rooms/" + slug + "/reviews", Header: headers()},
		{Method: http.MethodGet, URL: baseURL + "/rooms/" + slug + "/reviews?status=done", Header: headers()},
	}
}

func attack(targeter vegeta.Targeter, opts *options, name string) vegeta.Metrics {
	rate := vegeta.Rate{Freq: opts.rps, Per: time.Second}
	attacker := vegeta.NewAttacker()

	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, rate, opts.duration, name) {
		metrics.Add(res)
	}
	metrics.Close()

	return metrics
}

func headers() http.Header {
	return http.Header{
		"Content-Type": []string{"application/json"},
		"X-User-Email": []string{actorEmail},
	}
}

func mustJSON(v any) []byte {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return body
}

func printMetrics(metrics vegeta.Metrics) {
	fmt.Printf("\n=== Load Test Results ===\n\n")
	fmt.Printf("Requests Total:     %d\n", metrics.Requests)
	fmt.Printf("Success Rate:       %.2f%%\n", metrics.Success*100)
	fmt.Printf("Duration:           %v\n", metrics.Duration)

	if metrics.Requests == 0 {
		return
	}

	fmt.Printf("\nLatency:\n")
	fmt.Printf("  Mean:             %v\n", metrics.Latencies.Mean)
	fmt.Printf("  P50:              %v\n", metrics.Latencies.P50)
	fmt.Printf("  P95:              %v\n", metrics.Latencies.P95)
	fmt.Printf("  P99:              %v\n", metrics.Latencies.P99)
	fmt.Printf("  Max:              %v\n", metrics.Latencies.Max)

	fmt.Printf("\nThroughput:\n")
	fmt.Printf("  Requests/sec:     %.2f\n", metrics.Rate)

	fmt.Printf("\nStatus Codes:\n")
	for code, count := range metrics.StatusCodes {
		fmt.Printf("  %s: %d\n", code, count)
	}

	if len(metrics.Errors) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, err := range metrics.Errors {
			fmt.Printf("  %s\n", err)
		}
	}

	p95ms := metrics.Latencies.P95.Seconds() * 1000
	fmt.Printf("\nSLI:\n")
	fmt.Printf("  P95 Latency:      %.2f ms (target: < 300ms) - %s\n", p95ms, passFail(p95ms < 300))
	fmt.Printf("  Success Rate:     %.2f%% (target: > 99.9%%) - %s\n", metrics.Success*100, passFail(metrics.Success >= 0.999))
	fmt.Println()
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
