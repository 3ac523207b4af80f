package analytics

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	TotalClicks       int64        `json:"total_clicks"`
	AvgResults        float64      `json:"avg_results"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	TopClicked        []QueryCount `json:"top_clicked"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	Pipeline          *Pipeline    `json:"pipeline,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps counters over the events it is given.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	zeroResults       int64
	totalClicks       int64
	totalResults      int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	clickedQueries    map[string]int64
	startTime         time.Time
	now               func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		clickedQueries:    make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
	}
}

// Record folds one event into the counters. Unknown event types are
// ignored.
func (a *Aggregator) Record(event any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch ev := event.(type) {
	case SearchEvent:
		a.totalSearches++
		a.totalResults += int64(ev.Results)
		a.queryCounts[ev.Query]++
		if ev.Results == 0 {
			a.zeroResults++
			a.zeroResultQueries[ev.Query]++
		}
	case ClickEvent:
		a.totalClicks++
		a.clickedQueries[ev.Query]++
	}
}

// DefaultTop is how many queries each ranking in Stats holds.
const DefaultTop = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTop)
}

// StatsTop is Stats with top entries per ranking.
func (a *Aggregator) StatsTop(top int) AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:     a.totalSearches,
		ZeroResultCount:   a.zeroResults,
		TotalClicks:       a.totalClicks,
		TopQueries:        topN(a.queryCounts, top),
		ZeroResultQueries: topN(a.zeroResultQueries, top),
		TopClicked:        topN(a.clickedQueries, top),
	}
	if a.totalSearches > 0 {
		stats.AvgResults = float64(a.totalResults) / float64(a.totalSearches)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.totalSearches) / elapsed
	}
	return stats
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(result, func(a, b QueryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
