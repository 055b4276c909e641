// Package recorder is the write path of the warehouse ledger: it validates
// candidate products and entries, persists them through a storage.Store,
// and owns the in-memory snapshots of both ledgers. Snapshots are reloaded
// when older than a TTL or after any mutation; there is no implicit
// module-level cache.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
	"github.com/oyilmaz/warehouse-ledger/internal/storage"
)

// DefaultTTL is how long a loaded snapshot stays valid for reads. Mutators
// ignore it: they always invalidate their ledger.
const DefaultTTL = time.Minute

// Recorder validates and records ledger mutations and serves snapshot
// reads. Safe for concurrent use, though the expected model is one request
// at a time.
type Recorder struct {
	store storage.Store
	log   zerolog.Logger
	ttl   time.Duration
	now   func() time.Time

	mu               sync.Mutex
	products         []ledger.Product
	productsLoadedAt time.Time
	entries          []ledger.Entry
	entriesLoadedAt  time.Time
}

// New creates a Recorder over the given store. A non-positive ttl falls
// back to DefaultTTL.
func New(store storage.Store, log zerolog.Logger, ttl time.Duration) *Recorder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Recorder{
		store: store,
		log:   log,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Products returns the current product snapshot, reloading it when stale.
func (r *Recorder) Products(ctx context.Context) ([]ledger.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadProductsLocked(ctx, false); err != nil {
		return nil, err
	}
	out := make([]ledger.Product, len(r.products))
	copy(out, r.products)
	return out, nil
}

// Entries returns the current entry snapshot sorted newest first,
// regardless of backend load order.
func (r *Recorder) Entries(ctx context.Context) ([]ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadEntriesLocked(ctx, false); err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, len(r.entries))
	copy(out, r.entries)
	ledger.SortByDateDesc(out)
	return out, nil
}

// AddProduct validates and persists a new product. The duplicate check
// runs against the loaded snapshot; backends that can answer existence
// directly are asked again right before the write.
func (r *Recorder) AddProduct(ctx context.Context, sku, name string) error {
	if sku == "" || name == "" {
		return fmt.Errorf("product needs both a SKU and a name: %w", ledger.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadProductsLocked(ctx, false); err != nil {
		return err
	}
	for _, p := range r.products {
		if p.SKU == sku {
			return fmt.Errorf("product %q already exists: %w", sku, ledger.ErrDuplicateKey)
		}
	}
	if checker, ok := r.store.(storage.ProductChecker); ok {
		exists, err := checker.ProductExists(ctx, sku)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("product %q already exists: %w", sku, ledger.ErrDuplicateKey)
		}
	}

	if err := r.store.SaveProduct(ctx, ledger.Product{SKU: sku, Name: name}); err != nil {
		return err
	}
	r.log.Info().Str("sku", sku).Str("name", name).Msg("Product added")
	r.productsLoadedAt = time.Time{}
	return nil
}

// RecordEntry validates and appends one transaction to the ledger,
// returning the stored entry with its assigned identity.
func (r *Recorder) RecordEntry(ctx context.Context, sku, productName string, quantity int64, typ ledger.EntryType, date civil.Date) (ledger.Entry, error) {
	switch {
	case sku == "":
		return ledger.Entry{}, fmt.Errorf("no product selected: %w", ledger.ErrInvalidInput)
	case quantity <= 0:
		return ledger.Entry{}, fmt.Errorf("quantity must be positive, got %d: %w", quantity, ledger.ErrInvalidInput)
	case typ != ledger.Inflow && typ != ledger.Outflow:
		return ledger.Entry{}, fmt.Errorf("unknown transaction type %q: %w", typ, ledger.ErrInvalidInput)
	case !date.IsValid():
		return ledger.Entry{}, fmt.Errorf("invalid date %v: %w", date, ledger.ErrInvalidInput)
	}

	e := ledger.Entry{
		Date:        date,
		SKU:         sku,
		ProductName: productName,
		Quantity:    quantity,
		Type:        typ,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.store.AppendEntry(ctx, e)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.ID = id

	r.log.Info().
		Str("id", id).
		Str("sku", sku).
		Int64("quantity", quantity).
		Str("type", string(typ)).
		Str("date", date.String()).
		Msg("Entry recorded")
	r.entriesLoadedAt = time.Time{}
	return e, nil
}

// DeleteEntry removes one entry by identity.
func (r *Recorder) DeleteEntry(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("no entry selected: %w", ledger.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DeleteEntry(ctx, id); err != nil {
		return err
	}
	r.log.Info().Str("id", id).Msg("Entry deleted")
	r.entriesLoadedAt = time.Time{}
	return nil
}

// Summary aggregates the current entry snapshot over [start, end] for one
// SKU, or all products when sku is empty.
func (r *Recorder) Summary(ctx context.Context, start, end civil.Date, sku string) (ledger.Summary, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.Summarize(entries, start, end, sku), nil
}

// ActiveSKUs lists the products with at least one entry in [start, end],
// for restricting filter choices to what the range actually contains.
func (r *Recorder) ActiveSKUs(ctx context.Context, start, end civil.Date) ([]string, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.DistinctProductsInRange(entries, start, end), nil
}

// Invalidate drops both snapshots; the next read reloads from the store.
func (r *Recorder) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.productsLoadedAt = time.Time{}
	r.entriesLoadedAt = time.Time{}
}

// Reload forces both snapshots fresh from the store.
func (r *Recorder) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadProductsLocked(ctx, true); err != nil {
		return err
	}
	return r.loadEntriesLocked(ctx, true)
}

func (r *Recorder) loadProductsLocked(ctx context.Context, force bool) error {
	if !force && !r.productsLoadedAt.IsZero() && r.now().Sub(r.productsLoadedAt) < r.ttl {
		return nil
	}
	products, err := r.store.LoadProducts(ctx)
	if err != nil {
		if !errors.Is(err, ledger.ErrMalformedLedger) {
			return err
		}
		// Degrade to an empty ledger; the diagnostic is the log line.
		r.log.Warn().Err(err).Msg("Products ledger is malformed, serving empty snapshot")
		products = []ledger.Product{}
	}
	r.products = products
	r.productsLoadedAt = r.now()
	return nil
}

func (r *Recorder) loadEntriesLocked(ctx context.Context, force bool) error {
	if !force && !r.entriesLoadedAt.IsZero() && r.now().Sub(r.entriesLoadedAt) < r.ttl {
		return nil
	}
	entries, err := r.store.LoadEntries(ctx)
	if err != nil {
		if !errors.Is(err, ledger.ErrMalformedLedger) {
			return err
		}
		r.log.Warn().Err(err).Msg("Transactions ledger is malformed, serving empty snapshot")
		entries = []ledger.Entry{}
	}
	r.entries = entries
	r.entriesLoadedAt = r.now()
	return nil
}
