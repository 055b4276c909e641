// Package ledger holds the canonical warehouse ledger model: products,
// inbound/outbound entries, the column-name normalization applied when
// loading delimited files, and date-range aggregation over entries.
package ledger

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Product is a warehouse product. SKU is the natural key and is immutable
// once created; renaming requires re-creating the record.
type Product struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// EntryType is the direction of a ledger entry. The stored form is always
// the canonical Turkish label, matching the historical data.
type EntryType string

const (
	// Inflow is stock entering the warehouse.
	Inflow EntryType = "Giriş"
	// Outflow is stock leaving the warehouse.
	Outflow EntryType = "Çıkış"
)

// ParseEntryType resolves a stored or user-supplied transaction type into
// the canonical form. It accepts the Turkish labels with or without
// diacritics and the English equivalents, case-insensitively. An empty
// value resolves to Inflow: older ledgers predate the type column and are
// backfilled as inbound.
func ParseEntryType(s string) (EntryType, error) {
	switch foldTurkish(strings.TrimSpace(s)) {
	case "", "giris", "in", "inflow":
		return Inflow, nil
	case "cikis", "out", "outflow":
		return Outflow, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Entry is one transaction in the warehouse ledger.
//
// ID is the synthetic identity used for deletion: the document id in the
// Firestore backend, or the decimal row index of the current snapshot in
// the file backend. ProductName is a denormalized copy of the product name
// at the time of entry and is never re-synced.
type Entry struct {
	ID          string     `json:"id"`
	Date        civil.Date `json:"date"`
	SKU         string     `json:"sku"`
	ProductName string     `json:"product_name"`
	Quantity    int64      `json:"quantity"`
	Type        EntryType  `json:"transaction_type"`
}

// foldTurkish lower-cases s and strips Turkish diacritics so that alias
// and type matching treats "Ürün Adı" and "urun adi" as the same token.
func foldTurkish(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'ş':
			r = 's'
		case 'ı', 'İ':
			r = 'i'
		case 'ç':
			r = 'c'
		case 'ğ':
			r = 'g'
		case 'ü':
			r = 'u'
		case 'ö':
			r = 'o'
		}
		b.WriteRune(r)
	}
	return b.String()
}
