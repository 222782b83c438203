package voting

import (
	"context"
	"sort"

	"github.com/hyepartners-gmail/message-testing-api/storage"
)

// Dimension selects the grouping axis for a results query.
type Dimension string

const (
	GroupByMessage Dimension = "message"
	GroupByGeo     Dimension = "geo"
	GroupByParty   Dimension = "party"
	GroupByDemo    Dimension = "demo"
	GroupByDate    Dimension = "date"
)

var validDimensions = map[Dimension]bool{
	GroupByMessage: true,
	GroupByGeo:     true,
	GroupByParty:   true,
	GroupByDemo:    true,
	GroupByDate:    true,
}

// ResultsQuery narrows and groups the aggregate counters. From/To are
// inclusive YYYY-MM-DD day bounds.
type ResultsQuery struct {
	GroupBy   Dimension
	MessageID string
	Geo       string
	Party     string
	Demo      string
	From      string
	To        string
}

// ResultRow is one group value with its counts split by vote value. Only
// aggregates ever leave this service; individual votes stay private.
type ResultRow struct {
	GroupValue string           `json:"groupValue"`
	Counts     map[string]int64 `json:"counts"`
}

// Results reads the counters the engine maintains. It never writes.
type Results struct {
	counters storage.CounterStorage
}

func NewResults(counters storage.CounterStorage) *Results {
	return &Results{counters: counters}
}

// Aggregate sums matching counters by the requested dimension. Counters only
// grow, so for a fixed filter the returned counts never shrink between runs.
func (r *Results) Aggregate(ctx context.Context, q ResultsQuery) ([]ResultRow, error) {
	if !validDimensions[q.GroupBy] {
		return nil, &ValidationError{Reason: "unknown groupBy dimension " + string(q.GroupBy)}
	}

	counters, err := r.counters.Query(ctx, storage.CounterFilter{
		MessageID: q.MessageID,
		Geo:       q.Geo,
		Party:     q.Party,
		Demo:      q.Demo,
		From:      q.From,
		To:        q.To,
	})
	if err != nil {
		return nil, &StorageError{Op: "counter query", Err: err}
	}

	grouped := make(map[string]map[string]int64)
	for _, c := range counters {
		groupValue := groupValueFor(q.GroupBy, c)
		if grouped[groupValue] == nil {
			grouped[groupValue] = make(map[string]int64)
		}
		grouped[groupValue][c.Value] += c.Count
	}

	rows := make([]ResultRow, 0, len(grouped))
	for groupValue, counts := range grouped {
		rows = append(rows, ResultRow{GroupValue: groupValue, Counts: counts})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].GroupValue < rows[j].GroupValue })
	return rows, nil
}

func groupValueFor(d Dimension, c *storage.AggregateCounter) string {
	switch d {
	case GroupByGeo:
		return c.Geo
	case GroupByParty:
		return c.Party
	case GroupByDemo:
		return c.Demo
	case GroupByDate:
		return c.Day
	default:
		return c.MessageID
	}
}
