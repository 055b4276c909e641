package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Canonical column names written on save. Loads accept the alias spellings
// below; saves always emit these.
const (
	colDate            = "Date"
	colSKU             = "SKU"
	colProductName     = "ProductName"
	colQuantity        = "Quantity"
	colTransactionType = "TransactionType"
)

// Delimiters of the two ledger files. Historical accident: the products
// file was exported semicolon-delimited, the transactions file comma.
const (
	productsComma = ';'
	entriesComma  = ','
)

// fieldSpec binds a canonical field to its accepted header spellings.
// Aliases are matched against trimmed, lower-cased, diacritic-folded
// headers; the first matching column in column order wins.
type fieldSpec struct {
	field    string
	aliases  []string
	required bool
}

var productFields = []fieldSpec{
	{field: colSKU, required: true, aliases: []string{
		"sku", "stok kodu", "stokkodu", "urun kodu", "urunkodu", "kod", "code",
	}},
	{field: colProductName, required: true, aliases: []string{
		"productname", "product name", "urun adi", "urunadi", "urun", "ad", "name",
	}},
}

var entryFields = []fieldSpec{
	{field: colDate, required: true, aliases: []string{
		"date", "tarih",
	}},
	{field: colSKU, required: true, aliases: []string{
		"sku", "stok kodu", "stokkodu", "urun kodu", "urunkodu", "kod", "code",
	}},
	{field: colProductName, required: true, aliases: []string{
		"productname", "product name", "urun adi", "urunadi", "urun", "ad", "name",
	}},
	{field: colQuantity, required: true, aliases: []string{
		"quantity", "miktar", "adet",
	}},
	// Absent from ledgers written before outflows existed; backfilled to
	// Giriş when the column or the cell is missing.
	{field: colTransactionType, aliases: []string{
		"transactiontype", "transaction type", "islem turu", "islemturu", "islem", "tur", "tip",
	}},
}

// candidateEncodings is tried in order when decoding a ledger file. A nil
// encoding means plain UTF-8. The Turkish single-byte charsets cover files
// exported from Windows spreadsheet tools.
var candidateEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{name: "utf-8"},
	{name: "windows-1254", enc: charmap.Windows1254},
	{name: "iso-8859-9", enc: charmap.ISO8859_9},
}

// decodeText decodes raw file bytes with the first candidate encoding that
// produces clean text. A decode that yields replacement runes does not
// count as clean.
func decodeText(data []byte) (string, error) {
	for _, c := range candidateEncodings {
		if c.enc == nil {
			if utf8.Valid(data) {
				return string(data), nil
			}
			continue
		}
		out, err := c.enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), nil
	}
	return "", fmt.Errorf("no candidate encoding decodes the data")
}

// resolveColumns maps each canonical field to the index of its first
// matching column. Headers are trimmed, lower-cased and diacritic-folded
// before matching. A required field with no match fails the whole resolve
// with a diagnostic naming the field and the columns present.
func resolveColumns(ledgerName string, headers []string, specs []fieldSpec) (map[string]int, error) {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = foldTurkish(strings.TrimSpace(h))
	}

	cols := make(map[string]int, len(specs))
	for _, spec := range specs {
	match:
		for i, h := range folded {
			for _, alias := range spec.aliases {
				if h == alias {
					cols[spec.field] = i
					break match
				}
			}
		}
		if _, ok := cols[spec.field]; !ok && spec.required {
			present := make([]string, len(headers))
			for i, h := range headers {
				present[i] = strings.TrimSpace(h)
			}
			return nil, &MalformedError{
				Ledger:       ledgerName,
				MissingField: spec.field,
				Columns:      present,
			}
		}
	}
	return cols, nil
}

// cell returns the trimmed value of column idx in row, or "" when the row
// is too short. Ragged rows happen in hand-edited files.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func readRecords(ledgerName string, data []byte, comma rune) ([][]string, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, &MalformedError{Ledger: ledgerName, Reason: err.Error()}
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, &MalformedError{Ledger: ledgerName, Reason: err.Error()}
	}
	return records, nil
}

// ParseProducts decodes the products ledger into canonical form. An empty
// file is an empty ledger, not an error; a file whose headers cannot be
// reconciled with the canonical schema is a MalformedError and yields no
// partial data.
func ParseProducts(data []byte) ([]Product, error) {
	records, err := readRecords("products", data, productsComma)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Product{}, nil
	}

	cols, err := resolveColumns("products", records[0], productFields)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(records)-1)
	for _, row := range records[1:] {
		sku := cell(row, cols[colSKU])
		if sku == "" {
			continue
		}
		products = append(products, Product{
			SKU:  sku,
			Name: cell(row, cols[colProductName]),
		})
	}
	return products, nil
}

// ParseEntries decodes the transactions ledger into canonical form.
// Entry IDs are the zero-based data-row indexes, which is the identity the
// file backend uses for deletion. A row that cannot be converted (bad date,
// non-integer quantity, unknown type) fails the whole load: partial ledgers
// are worse than empty ones.
func ParseEntries(data []byte) ([]Entry, error) {
	records, err := readRecords("transactions", data, entriesComma)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Entry{}, nil
	}

	cols, err := resolveColumns("transactions", records[0], entryFields)
	if err != nil {
		return nil, err
	}
	typeCol, hasTypeCol := cols[colTransactionType]

	entries := make([]Entry, 0, len(records)-1)
	for i, row := range records[1:] {
		dateStr := cell(row, cols[colDate])
		date, err := civil.ParseDate(dateStr)
		if err != nil {
			return nil, &MalformedError{
				Ledger: "transactions",
				Reason: fmt.Sprintf("row %d: invalid date %q", i+1, dateStr),
			}
		}

		qtyStr := cell(row, cols[colQuantity])
		qty, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil {
			return nil, &MalformedError{
				Ledger: "transactions",
				Reason: fmt.Sprintf("row %d: invalid quantity %q", i+1, qtyStr),
			}
		}

		typeStr := ""
		if hasTypeCol {
			typeStr = cell(row, typeCol)
		}
		typ, err := ParseEntryType(typeStr)
		if err != nil {
			return nil, &MalformedError{
				Ledger: "transactions",
				Reason: fmt.Sprintf("row %d: %v", i+1, err),
			}
		}

		entries = append(entries, Entry{
			ID:          strconv.Itoa(i),
			Date:        date,
			SKU:         cell(row, cols[colSKU]),
			ProductName: cell(row, cols[colProductName]),
			Quantity:    qty,
			Type:        typ,
		})
	}
	return entries, nil
}

// MarshalProducts renders the products ledger in its canonical stored
// form: semicolon-delimited UTF-8 with canonical headers.
func MarshalProducts(products []Product) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = productsComma

	if err := w.Write([]string{colSKU, colProductName}); err != nil {
		return nil, err
	}
	for _, p := range products {
		if err := w.Write([]string{p.SKU, p.Name}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// MarshalEntries renders the transactions ledger in its canonical stored
// form: comma-delimited UTF-8, dates as ISO 8601 strings.
func MarshalEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
