package ledger

import (
	"sort"

	"cloud.google.com/go/civil"
)

// Summary is the aggregate of a set of entries over a date range.
type Summary struct {
	TotalIn  int64 `json:"total_in"`
	TotalOut int64 `json:"total_out"`
	Net      int64 `json:"net"`
}

// inRange reports whether d falls within the inclusive range [start, end].
func inRange(d, start, end civil.Date) bool {
	return !d.Before(start) && !d.After(end)
}

// Summarize sums entry quantities over the inclusive date range
// [start, end], optionally restricted to a single SKU (empty sku means
// all products). Net is TotalIn - TotalOut. An empty matching set, and a
// range with start after end, both yield the zero Summary.
func Summarize(entries []Entry, start, end civil.Date, sku string) Summary {
	var s Summary
	if start.After(end) {
		return s
	}
	for _, e := range entries {
		if sku != "" && e.SKU != sku {
			continue
		}
		if !inRange(e.Date, start, end) {
			continue
		}
		switch e.Type {
		case Outflow:
			s.TotalOut += e.Quantity
		default:
			s.TotalIn += e.Quantity
		}
	}
	s.Net = s.TotalIn - s.TotalOut
	return s
}

// DistinctProductsInRange returns the sorted set of SKUs with at least one
// entry in the inclusive date range. Used to restrict product-filter
// choices to products actually active in the selected range.
func DistinctProductsInRange(entries []Entry, start, end civil.Date) []string {
	if start.After(end) {
		return nil
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.SKU != "" && inRange(e.Date, start, end) {
			seen[e.SKU] = true
		}
	}
	skus := make([]string, 0, len(seen))
	for sku := range seen {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

// SortByDateDesc orders entries newest first, matching what the document
// backend returns natively. The sort is stable so same-day entries keep
// their insertion order.
func SortByDateDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[j].Date.Before(entries[i].Date)
	})
}
