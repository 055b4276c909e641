// Package flatfile implements the ledger store over two delimited text
// files: a semicolon-delimited products file and a comma-delimited
// transactions file. Every mutation is a full-file rewrite through a temp
// file and rename, so a failed write leaves the previous file untouched.
package flatfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
	"github.com/oyilmaz/warehouse-ledger/internal/storage"
)

// Store reads and writes the two ledger files. Entry identity is the
// zero-based row index of the current file content rendered in decimal.
type Store struct {
	productsPath string
	entriesPath  string
}

// New creates a file-backed store. The files do not need to exist yet;
// loading a missing file yields an empty ledger and the first write
// creates it.
func New(productsPath, entriesPath string) *Store {
	return &Store{
		productsPath: productsPath,
		entriesPath:  entriesPath,
	}
}

// LoadProducts implements storage.Store.
func (s *Store) LoadProducts(ctx context.Context) ([]ledger.Product, error) {
	data, err := readFileIfExists(s.productsPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []ledger.Product{}, nil
	}
	products, err := ledger.ParseProducts(data)
	if err != nil {
		return []ledger.Product{}, err
	}
	return products, nil
}

// SaveProduct implements storage.Store. The file is rewritten in full with
// the new product appended.
func (s *Store) SaveProduct(ctx context.Context, p ledger.Product) error {
	products, err := s.LoadProducts(ctx)
	if err != nil && !errors.Is(err, ledger.ErrMalformedLedger) {
		return err
	}
	if errors.Is(err, ledger.ErrMalformedLedger) {
		// Overwriting an undecodable file would destroy whatever it
		// holds; make the caller fix or remove it first.
		return fmt.Errorf("products file is malformed, refusing to rewrite: %w", err)
	}

	products = append(products, p)
	data, err := ledger.MarshalProducts(products)
	if err != nil {
		return fmt.Errorf("marshal products: %w", err)
	}
	return writeAtomic(s.productsPath, data)
}

// LoadEntries implements storage.Store. Order is insertion order; callers
// needing date order re-sort.
func (s *Store) LoadEntries(ctx context.Context) ([]ledger.Entry, error) {
	data, err := readFileIfExists(s.entriesPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []ledger.Entry{}, nil
	}
	entries, err := ledger.ParseEntries(data)
	if err != nil {
		return []ledger.Entry{}, err
	}
	return entries, nil
}

// AppendEntry implements storage.Store. "Append" is a full rewrite of the
// transactions file with the new row last; there is no partial-failure
// state between the old file and the new one.
func (s *Store) AppendEntry(ctx context.Context, e ledger.Entry) (string, error) {
	entries, err := s.LoadEntries(ctx)
	if err != nil && !errors.Is(err, ledger.ErrMalformedLedger) {
		return "", err
	}
	if errors.Is(err, ledger.ErrMalformedLedger) {
		return "", fmt.Errorf("transactions file is malformed, refusing to rewrite: %w", err)
	}

	e.ID = strconv.Itoa(len(entries))
	entries = append(entries, e)
	data, err := ledger.MarshalEntries(entries)
	if err != nil {
		return "", fmt.Errorf("marshal entries: %w", err)
	}
	if err := writeAtomic(s.entriesPath, data); err != nil {
		return "", err
	}
	return e.ID, nil
}

// DeleteEntry implements storage.Store. The identity is the row index in
// the file as it is now; the file is rewritten without that row and the
// surviving rows are renumbered.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 {
		return fmt.Errorf("invalid entry id %q: %w", id, ledger.ErrInvalidInput)
	}

	entries, err := s.LoadEntries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("delete entry %q: transactions ledger is empty", id)
	}
	if idx >= len(entries) {
		return fmt.Errorf("delete entry %q: no such row (ledger has %d rows)", id, len(entries))
	}

	remaining := append(entries[:idx:idx], entries[idx+1:]...)
	data, err := ledger.MarshalEntries(remaining)
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	return writeAtomic(s.entriesPath, data)
}

// Close implements storage.Store. Nothing is held open between operations.
func (s *Store) Close() error { return nil }

// readFileIfExists returns nil data without error when the file is absent.
func readFileIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", path, ledger.ErrBackendUnavailable, err)
	}
	return data, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over path, so readers see either the old content or the new,
// never a torn write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
