package flatfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "products.csv"), filepath.Join(dir, "transactions.csv"))
}

func testEntry(day int, typ ledger.EntryType, qty int64) ledger.Entry {
	return ledger.Entry{
		Date:        civil.Date{Year: 2024, Month: time.January, Day: day},
		SKU:         "A1",
		ProductName: "Vida",
		Quantity:    qty,
		Type:        typ,
	}
}

func TestLoadMissingFilesIsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	products, err := s.LoadProducts(ctx)
	if err != nil {
		t.Fatalf("LoadProducts failed: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("got %d products, want 0", len(products))
	}

	entries, err := s.LoadEntries(ctx)
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestSaveAndReloadProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveProduct(ctx, ledger.Product{SKU: "A1", Name: "Vida"}); err != nil {
		t.Fatalf("SaveProduct failed: %v", err)
	}
	if err := s.SaveProduct(ctx, ledger.Product{SKU: "B2", Name: "Somun"}); err != nil {
		t.Fatalf("SaveProduct failed: %v", err)
	}

	products, err := s.LoadProducts(ctx)
	if err != nil {
		t.Fatalf("LoadProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	if products[0] != (ledger.Product{SKU: "A1", Name: "Vida"}) {
		t.Errorf("product 0 = %+v", products[0])
	}
}

func TestAppendAndReloadEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id0, err := s.AppendEntry(ctx, testEntry(10, ledger.Inflow, 5))
	if err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	id1, err := s.AppendEntry(ctx, testEntry(11, ledger.Outflow, 2))
	if err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	if id0 != "0" || id1 != "1" {
		t.Errorf("ids = %q, %q, want row indexes 0, 1", id0, id1)
	}

	entries, err := s.LoadEntries(ctx)
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Insertion order, not date order.
	if entries[0].Type != ledger.Inflow || entries[1].Type != ledger.Outflow {
		t.Errorf("entries out of insertion order: %+v", entries)
	}
}

func TestDeleteEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		if _, err := s.AppendEntry(ctx, testEntry(day, ledger.Inflow, int64(day))); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
	}

	if err := s.DeleteEntry(ctx, "1"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}

	entries, err := s.LoadEntries(ctx)
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries after delete, want 2", len(entries))
	}
	if entries[0].Quantity != 1 || entries[1].Quantity != 3 {
		t.Errorf("wrong row deleted: %+v", entries)
	}
	// Survivors are renumbered.
	if entries[0].ID != "0" || entries[1].ID != "1" {
		t.Errorf("ids after delete = %q, %q", entries[0].ID, entries[1].ID)
	}
}

func TestDeleteFromEmptyLedgerFails(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteEntry(context.Background(), "0"); err == nil {
		t.Fatal("DeleteEntry on empty ledger should fail")
	}
}

func TestDeleteOutOfRangeFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.AppendEntry(ctx, testEntry(1, ledger.Inflow, 1)); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}

	if err := s.DeleteEntry(ctx, "5"); err == nil {
		t.Fatal("DeleteEntry past the end should fail")
	}
	if err := s.DeleteEntry(ctx, "not-a-number"); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("DeleteEntry with bad id = %v, want ErrInvalidInput", err)
	}

	entries, err := s.LoadEntries(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ledger mutated by failed deletes: %v, %v", entries, err)
	}
}

func TestMalformedFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	entriesPath := filepath.Join(dir, "transactions.csv")
	if err := os.WriteFile(entriesPath, []byte("Tarih,Miktar\n2024-01-01,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(filepath.Join(dir, "products.csv"), entriesPath)

	entries, err := s.LoadEntries(context.Background())
	if !errors.Is(err, ledger.ErrMalformedLedger) {
		t.Fatalf("LoadEntries error = %v, want ErrMalformedLedger", err)
	}
	if len(entries) != 0 {
		t.Errorf("malformed load returned %d entries, want 0", len(entries))
	}
}

func TestAppendRefusesToRewriteMalformedFile(t *testing.T) {
	dir := t.TempDir()
	entriesPath := filepath.Join(dir, "transactions.csv")
	original := []byte("garbage without a schema\n")
	if err := os.WriteFile(entriesPath, original, 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(filepath.Join(dir, "products.csv"), entriesPath)

	if _, err := s.AppendEntry(context.Background(), testEntry(1, ledger.Inflow, 1)); err == nil {
		t.Fatal("AppendEntry over a malformed file should fail")
	}

	// The unreadable file must survive untouched.
	data, err := os.ReadFile(entriesPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(original) {
		t.Errorf("malformed file was rewritten: %q", data)
	}
}

func TestEncodingFallbackOnLoad(t *testing.T) {
	dir := t.TempDir()
	productsPath := filepath.Join(dir, "products.csv")
	// "Stok Kodu;Ürün Adı\nA1;Çelik Halat\n" in Windows-1254.
	data := []byte("Stok Kodu;")
	data = append(data, 0xDC, 'r', 0xFC, 'n', ' ', 'A', 'd', 0xFD, '\n')
	data = append(data, []byte("A1;")...)
	data = append(data, 0xC7, 'e', 'l', 'i', 'k', ' ', 'H', 'a', 'l', 'a', 't', '\n')
	if err := os.WriteFile(productsPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(productsPath, filepath.Join(dir, "transactions.csv"))

	products, err := s.LoadProducts(context.Background())
	if err != nil {
		t.Fatalf("LoadProducts failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if products[0].Name != "Çelik Halat" {
		t.Errorf("name = %q, want %q", products[0].Name, "Çelik Halat")
	}
}
