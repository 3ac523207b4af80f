package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var defaultBenchQueries = []string{
	"lamp",
	"walnut desk",
	"brass",
	"keybaord",
	"linen shelf",
	"oak stool",
	"wireless mouse",
	"usb",
}

type benchStats struct {
	total   atomic.Int64
	failed  atomic.Int64
	results atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int
}

func newBenchStats() *benchStats {
	return &benchStats{
		latencies: make([]time.Duration, 0, 1<<14),
		codes:     make(map[int]int),
	}
}

func (s *benchStats) record(d time.Duration, code int, err error) {
	s.total.Add(1)
	if err != nil || code < 200 || code >= 300 {
		s.failed.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	s.mu.Unlock()
}

func newBenchCmd() *cobra.Command {
	var (
		baseURL     string
		concurrency int
		duration    time.Duration
		queryFile   string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Replay queries against a running search service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := defaultBenchQueries
			if queryFile != "" {
				var err error
				if queries, err = readQueries(queryFile); err != nil {
					return err
				}
			}
			stats, err := runBench(cmd.Context(), baseURL, queries, concurrency, duration)
			if err != nil {
				return err
			}
			return printBenchReport(cmd.OutOrStdout(), stats, duration)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the search service")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "Number of concurrent clients")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "How long to run")
	cmd.Flags().StringVar(&queryFile, "queries", "", "File with one query per line")
	return cmd
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no queries", path)
	}
	return out, nil
}

// runBench issues GET /api/v1/query/{query} from concurrency clients until
// duration elapses, cycling through queries.
func runBench(ctx context.Context, baseURL string, queries []string, concurrency int, duration time.Duration) (*benchStats, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	base := strings.TrimRight(baseURL, "/")
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	stats := newBenchStats()
	g, ctx := errgroup.WithContext(ctx)
	for worker := range concurrency {
		g.Go(func() error {
			for i := worker; ctx.Err() == nil; i++ {
				target := base + "/api/v1/query/" + url.PathEscape(queries[i%len(queries)])
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					stats.record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func printBenchReport(w io.Writer, s *benchStats, duration time.Duration) error {
	total := s.total.Load()
	if total == 0 {
		return errors.New("no requests completed; is the service running?")
	}
	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	counts := maps.Clone(s.codes)
	s.mu.Unlock()
	codes := slices.Collect(maps.Keys(counts))
	slices.Sort(latencies)
	slices.Sort(codes)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "requests:\t%d\n", total)
	fmt.Fprintf(tw, "failed:\t%d (%.2f%%)\n", s.failed.Load(), 100*float64(s.failed.Load())/float64(total))
	fmt.Fprintf(tw, "throughput:\t%.2f req/s\n", float64(total)/duration.Seconds())
	if len(latencies) > 0 {
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintf(tw, "latency min:\t%s\n", latencies[0])
		fmt.Fprintf(tw, "latency avg:\t%s\n", sum/time.Duration(len(latencies)))
		for _, p := range []float64{50, 90, 99} {
			fmt.Fprintf(tw, "latency p%.0f:\t%s\n", p, percentile(latencies, p))
		}
		fmt.Fprintf(tw, "latency max:\t%s\n", latencies[len(latencies)-1])
	}
	for _, code := range codes {
		fmt.Fprintf(tw, "status %d:\t%d\n", code, counts[code])
	}
	return tw.Flush()
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
