// Package storage defines the backend-neutral contract the two ledger
// backends implement: the Firestore document store and the delimited-file
// store. Both are materialize-everything stores: ledger sizes are
// single-warehouse, human-entry-rate data, so there is no pagination and
// no query pushdown.
package storage

import (
	"context"

	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
)

// Store is the uniform row-oriented read/write contract over the two
// ledgers. Loads never fail on an empty or missing backend; they return an
// empty slice. A backend that exists but cannot be decoded returns an
// empty slice together with a *ledger.MalformedError so callers can
// surface the diagnostic and keep going.
type Store interface {
	// LoadProducts returns every product in the backend.
	LoadProducts(ctx context.Context) ([]ledger.Product, error)

	// SaveProduct persists one product. Uniqueness of the SKU is the
	// caller's responsibility; only backend I/O failures are reported.
	SaveProduct(ctx context.Context, p ledger.Product) error

	// LoadEntries returns every ledger entry. The document backend
	// returns them date-descending; the file backend returns insertion
	// order and callers re-sort when they need a specific order.
	LoadEntries(ctx context.Context) ([]ledger.Entry, error)

	// AppendEntry persists one new entry and returns its identity. A
	// failed write leaves the previously persisted data intact.
	AppendEntry(ctx context.Context, e ledger.Entry) (string, error)

	// DeleteEntry removes exactly one entry by identity. Deleting from an
	// empty ledger is a failure, never a silent rewrite.
	DeleteEntry(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// ProductChecker is an optional capability: backends that can answer an
// existence check directly (rather than from a loaded snapshot) implement
// it, which lets the recorder close the race between a stale snapshot and
// a product write. The file backend deliberately does not implement it;
// its snapshot-only duplicate check is a documented consistency gap.
type ProductChecker interface {
	ProductExists(ctx context.Context, sku string) (bool, error)
}
