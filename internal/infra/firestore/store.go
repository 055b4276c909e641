// Package firestore implements the ledger store over Cloud Firestore,
// matching the layout of the original deployment: a "products" collection
// whose document ids are the SKUs, and a "warehouse_entries" collection
// with auto-generated ids and dates stored as ISO 8601 strings (which
// makes lexical order chronological order).
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	firestorelib "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
	"github.com/oyilmaz/warehouse-ledger/internal/storage"
)

const (
	productsCollection = "products"
	entriesCollection  = "warehouse_entries"
)

type productDoc struct {
	Name string `firestore:"name"`
}

type entryDoc struct {
	Date            string `firestore:"date"`
	SKU             string `firestore:"sku"`
	ProductName     string `firestore:"product_name"`
	Quantity        int64  `firestore:"quantity"`
	TransactionType string `firestore:"transaction_type"`
}

// Store is the document-backed ledger store.
type Store struct {
	client *firestorelib.Client
}

// New connects to Firestore. A connection or credential failure here is
// fatal to startup for callers using the document backend.
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := firestorelib.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client for project %q: %w: %v", projectID, ledger.ErrBackendUnavailable, err)
	}
	return &Store{client: client}, nil
}

// LoadProducts implements storage.Store.
func (s *Store) LoadProducts(ctx context.Context) ([]ledger.Product, error) {
	it := s.client.Collection(productsCollection).Documents(ctx)
	defer it.Stop()

	products := []ledger.Product{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load products: %w: %v", ledger.ErrBackendUnavailable, err)
		}
		var p productDoc
		if err := doc.DataTo(&p); err != nil {
			return []ledger.Product{}, &ledger.MalformedError{
				Ledger: "products",
				Reason: fmt.Sprintf("document %s: %v", doc.Ref.ID, err),
			}
		}
		products = append(products, ledger.Product{SKU: doc.Ref.ID, Name: p.Name})
	}
	return products, nil
}

// SaveProduct implements storage.Store. The SKU becomes the document id.
func (s *Store) SaveProduct(ctx context.Context, p ledger.Product) error {
	_, err := s.client.Collection(productsCollection).Doc(p.SKU).Set(ctx, productDoc{Name: p.Name})
	if err != nil {
		return fmt.Errorf("save product %q: %w", p.SKU, err)
	}
	return nil
}

// ProductExists implements storage.ProductChecker with a direct backend
// read, closing the race between a stale snapshot and a product write.
func (s *Store) ProductExists(ctx context.Context, sku string) (bool, error) {
	_, err := s.client.Collection(productsCollection).Doc(sku).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check product %q: %w", sku, err)
	}
	return true, nil
}

// LoadEntries implements storage.Store. Results come back date-descending;
// dates are ISO strings so the string order the server applies is already
// chronological.
func (s *Store) LoadEntries(ctx context.Context) ([]ledger.Entry, error) {
	it := s.client.Collection(entriesCollection).
		OrderBy("date", firestorelib.Desc).
		Documents(ctx)
	defer it.Stop()

	entries := []ledger.Entry{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load entries: %w: %v", ledger.ErrBackendUnavailable, err)
		}
		e, err := decodeEntry(doc)
		if err != nil {
			return []ledger.Entry{}, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeEntry(doc *firestorelib.DocumentSnapshot) (ledger.Entry, error) {
	var d entryDoc
	if err := doc.DataTo(&d); err != nil {
		return ledger.Entry{}, &ledger.MalformedError{
			Ledger: "transactions",
			Reason: fmt.Sprintf("document %s: %v", doc.Ref.ID, err),
		}
	}

	date, err := civil.ParseDate(d.Date)
	if err != nil {
		return ledger.Entry{}, &ledger.MalformedError{
			Ledger: "transactions",
			Reason: fmt.Sprintf("document %s: invalid date %q", doc.Ref.ID, d.Date),
		}
	}

	// Entries written before outflows existed carry no type field.
	typ, err := ledger.ParseEntryType(d.TransactionType)
	if err != nil {
		return ledger.Entry{}, &ledger.MalformedError{
			Ledger: "transactions",
			Reason: fmt.Sprintf("document %s: %v", doc.Ref.ID, err),
		}
	}

	return ledger.Entry{
		ID:          doc.Ref.ID,
		Date:        date,
		SKU:         d.SKU,
		ProductName: d.ProductName,
		Quantity:    d.Quantity,
		Type:        typ,
	}, nil
}

// AppendEntry implements storage.Store as a single new-document insert.
func (s *Store) AppendEntry(ctx context.Context, e ledger.Entry) (string, error) {
	id := uuid.NewString()
	doc := entryDoc{
		Date:            e.Date.String(),
		SKU:             e.SKU,
		ProductName:     e.ProductName,
		Quantity:        e.Quantity,
		TransactionType: string(e.Type),
	}
	if _, err := s.client.Collection(entriesCollection).Doc(id).Create(ctx, doc); err != nil {
		return "", fmt.Errorf("append entry: %w", err)
	}
	return id, nil
}

// DeleteEntry implements storage.Store. The existence precondition makes
// deleting a missing document a reported failure rather than a no-op.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	_, err := s.client.Collection(entriesCollection).Doc(id).Delete(ctx, firestorelib.Exists)
	if err != nil {
		return fmt.Errorf("delete entry %q: %w", id, err)
	}
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	return s.client.Close()
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.ProductChecker = (*Store)(nil)
)
