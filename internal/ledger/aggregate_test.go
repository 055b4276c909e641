package ledger

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func d(y int, m int, day int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: day}
}

func sampleEntries() []Entry {
	return []Entry{
		{ID: "0", Date: d(2024, 1, 1), SKU: "A1", ProductName: "Vida", Quantity: 5, Type: Inflow},
		{ID: "1", Date: d(2024, 1, 2), SKU: "A1", ProductName: "Vida", Quantity: 2, Type: Outflow},
		{ID: "2", Date: d(2024, 1, 15), SKU: "B2", ProductName: "Somun", Quantity: 10, Type: Inflow},
		{ID: "3", Date: d(2024, 2, 1), SKU: "A1", ProductName: "Vida", Quantity: 7, Type: Inflow},
	}
}

func TestSummarize(t *testing.T) {
	entries := sampleEntries()

	tests := []struct {
		name  string
		start civil.Date
		end   civil.Date
		sku   string
		want  Summary
	}{
		{
			name:  "full january all products",
			start: d(2024, 1, 1), end: d(2024, 1, 31),
			want: Summary{TotalIn: 15, TotalOut: 2, Net: 13},
		},
		{
			name:  "sku filter over two days",
			start: d(2024, 1, 1), end: d(2024, 1, 2), sku: "A1",
			want: Summary{TotalIn: 5, TotalOut: 2, Net: 3},
		},
		{
			name:  "range boundaries are inclusive",
			start: d(2024, 1, 2), end: d(2024, 1, 15),
			want: Summary{TotalIn: 10, TotalOut: 2, Net: 8},
		},
		{
			name:  "empty matching set",
			start: d(2023, 1, 1), end: d(2023, 12, 31),
			want: Summary{},
		},
		{
			name:  "start after end yields zero totals",
			start: d(2024, 2, 1), end: d(2024, 1, 1),
			want: Summary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(entries, tt.start, tt.end, tt.sku)
			if got != tt.want {
				t.Errorf("Summarize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSummarizeNoEntries(t *testing.T) {
	got := Summarize(nil, d(2024, 1, 1), d(2024, 12, 31), "")
	if got != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", got)
	}
}

// Summaries are additive: splitting the input anywhere and adding the
// partial sums gives the full summary.
func TestSummarizeAdditive(t *testing.T) {
	entries := sampleEntries()
	start, end := d(2024, 1, 1), d(2024, 12, 31)
	full := Summarize(entries, start, end, "")

	for k := 0; k <= len(entries); k++ {
		left := Summarize(entries[:k], start, end, "")
		right := Summarize(entries[k:], start, end, "")
		sum := Summary{
			TotalIn:  left.TotalIn + right.TotalIn,
			TotalOut: left.TotalOut + right.TotalOut,
			Net:      left.Net + right.Net,
		}
		if sum != full {
			t.Errorf("split at %d: %+v + %+v = %+v, want %+v", k, left, right, sum, full)
		}
	}
}

func TestDistinctProductsInRange(t *testing.T) {
	entries := sampleEntries()

	tests := []struct {
		name  string
		start civil.Date
		end   civil.Date
		want  []string
	}{
		{name: "both products active", start: d(2024, 1, 1), end: d(2024, 1, 31), want: []string{"A1", "B2"}},
		{name: "only one active", start: d(2024, 2, 1), end: d(2024, 2, 28), want: []string{"A1"}},
		{name: "none active", start: d(2023, 1, 1), end: d(2023, 12, 31), want: nil},
		{name: "inverted range", start: d(2024, 2, 1), end: d(2024, 1, 1), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistinctProductsInRange(entries, tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestSortByDateDesc(t *testing.T) {
	entries := sampleEntries()
	SortByDateDesc(entries)

	for i := 1; i < len(entries); i++ {
		if entries[i].Date.After(entries[i-1].Date) {
			t.Fatalf("entries not descending at %d: %v before %v", i, entries[i-1].Date, entries[i].Date)
		}
	}
	// Stable: the 2024-01-01 inflow keeps its place relative to nothing
	// else on that day, and the newest entry leads.
	if entries[0].ID != "3" {
		t.Errorf("newest entry first = %s, want 3", entries[0].ID)
	}
}
