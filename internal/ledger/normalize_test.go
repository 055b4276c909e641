package ledger

import (
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
)

func TestDecodeText(t *testing.T) {
	// "Ürün Adı" in Windows-1254: invalid as UTF-8, so the decoder has to
	// fall through to the Turkish charset.
	win1254 := []byte{0xDC, 'r', 0xFC, 'n', ' ', 'A', 'd', 0xFD}

	t.Run("utf-8 passes through", func(t *testing.T) {
		got, err := decodeText([]byte("Ürün Adı"))
		if err != nil {
			t.Fatalf("decodeText failed: %v", err)
		}
		if got != "Ürün Adı" {
			t.Errorf("decodeText = %q, want %q", got, "Ürün Adı")
		}
	})

	t.Run("windows-1254 fallback", func(t *testing.T) {
		got, err := decodeText(win1254)
		if err != nil {
			t.Fatalf("decodeText failed: %v", err)
		}
		if got != "Ürün Adı" {
			t.Errorf("decodeText = %q, want %q", got, "Ürün Adı")
		}
	})
}

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		want     map[string]int
		wantMiss string
	}{
		{
			name:    "canonical headers",
			headers: []string{"SKU", "ProductName"},
			want:    map[string]int{colSKU: 0, colProductName: 1},
		},
		{
			name:    "turkish aliases with spacing",
			headers: []string{" Stok Kodu ", "Ürün Adı"},
			want:    map[string]int{colSKU: 0, colProductName: 1},
		},
		{
			name:    "reordered columns",
			headers: []string{"Ad", "Kod"},
			want:    map[string]int{colSKU: 1, colProductName: 0},
		},
		{
			name:    "first matching column wins",
			headers: []string{"SKU", "sku", "Name"},
			want:    map[string]int{colSKU: 0, colProductName: 2},
		},
		{
			name:     "missing name column",
			headers:  []string{"SKU", "Fiyat"},
			wantMiss: colProductName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveColumns("products", tt.headers, productFields)
			if tt.wantMiss != "" {
				var malformed *MalformedError
				if !errors.As(err, &malformed) {
					t.Fatalf("resolveColumns error = %v, want MalformedError", err)
				}
				if malformed.MissingField != tt.wantMiss {
					t.Errorf("MissingField = %q, want %q", malformed.MissingField, tt.wantMiss)
				}
				if !errors.Is(err, ErrMalformedLedger) {
					t.Error("MalformedError should unwrap to ErrMalformedLedger")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveColumns failed: %v", err)
			}
			for field, idx := range tt.want {
				if got[field] != idx {
					t.Errorf("column %s = %d, want %d", field, got[field], idx)
				}
			}
		})
	}
}

func TestParseProducts(t *testing.T) {
	t.Run("empty file is an empty ledger", func(t *testing.T) {
		products, err := ParseProducts(nil)
		if err != nil {
			t.Fatalf("ParseProducts failed: %v", err)
		}
		if len(products) != 0 {
			t.Errorf("got %d products, want 0", len(products))
		}
	})

	t.Run("turkish headers", func(t *testing.T) {
		data := []byte("Stok Kodu;Ürün Adı\nA1;Vida 5mm\nB2;Somun\n")
		products, err := ParseProducts(data)
		if err != nil {
			t.Fatalf("ParseProducts failed: %v", err)
		}
		want := []Product{{SKU: "A1", Name: "Vida 5mm"}, {SKU: "B2", Name: "Somun"}}
		if len(products) != len(want) {
			t.Fatalf("got %d products, want %d", len(products), len(want))
		}
		for i := range want {
			if products[i] != want[i] {
				t.Errorf("product %d = %+v, want %+v", i, products[i], want[i])
			}
		}
	})

	t.Run("missing name column is malformed with diagnostic", func(t *testing.T) {
		data := []byte("SKU;Fiyat\nA1;12\n")
		products, err := ParseProducts(data)
		if !errors.Is(err, ErrMalformedLedger) {
			t.Fatalf("ParseProducts error = %v, want ErrMalformedLedger", err)
		}
		if len(products) != 0 {
			t.Errorf("malformed load returned %d products, want 0", len(products))
		}
		if !strings.Contains(err.Error(), colProductName) {
			t.Errorf("diagnostic %q does not name the missing field", err.Error())
		}
		if !strings.Contains(err.Error(), "Fiyat") {
			t.Errorf("diagnostic %q does not list the columns present", err.Error())
		}
	})

	t.Run("rows without sku are skipped", func(t *testing.T) {
		data := []byte("SKU;ProductName\n;Orphan\nA1;Vida\n")
		products, err := ParseProducts(data)
		if err != nil {
			t.Fatalf("ParseProducts failed: %v", err)
		}
		if len(products) != 1 || products[0].SKU != "A1" {
			t.Errorf("got %+v, want only A1", products)
		}
	})
}

func TestParseEntries(t *testing.T) {
	t.Run("canonical file", func(t *testing.T) {
		data := []byte("Date,SKU,ProductName,Quantity,TransactionType\n" +
			"2024-01-10,A1,Vida,5,Giriş\n" +
			"2024-01-11,A1,Vida,2,Çıkış\n")
		entries, err := ParseEntries(data)
		if err != nil {
			t.Fatalf("ParseEntries failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2", len(entries))
		}
		if entries[0].ID != "0" || entries[1].ID != "1" {
			t.Errorf("ids = %q, %q, want row indexes", entries[0].ID, entries[1].ID)
		}
		if entries[0].Type != Inflow || entries[1].Type != Outflow {
			t.Errorf("types = %q, %q", entries[0].Type, entries[1].Type)
		}
		if entries[0].Date != (civil.Date{Year: 2024, Month: 1, Day: 10}) {
			t.Errorf("date = %v", entries[0].Date)
		}
	})

	t.Run("missing type column backfills to inflow", func(t *testing.T) {
		data := []byte("Tarih,Stok Kodu,Ürün Adı,Miktar\n2023-05-01,A1,Vida,3\n")
		entries, err := ParseEntries(data)
		if err != nil {
			t.Fatalf("ParseEntries failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Type != Inflow {
			t.Fatalf("got %+v, want one backfilled inflow", entries)
		}
	})

	t.Run("empty type cell backfills to inflow", func(t *testing.T) {
		data := []byte("Date,SKU,ProductName,Quantity,TransactionType\n2023-05-01,A1,Vida,3,\n")
		entries, err := ParseEntries(data)
		if err != nil {
			t.Fatalf("ParseEntries failed: %v", err)
		}
		if entries[0].Type != Inflow {
			t.Errorf("type = %q, want backfilled Giriş", entries[0].Type)
		}
	})

	t.Run("bad date fails the whole load", func(t *testing.T) {
		data := []byte("Date,SKU,ProductName,Quantity\n10/01/2024,A1,Vida,3\n")
		entries, err := ParseEntries(data)
		if !errors.Is(err, ErrMalformedLedger) {
			t.Fatalf("ParseEntries error = %v, want ErrMalformedLedger", err)
		}
		if len(entries) != 0 {
			t.Errorf("malformed load returned %d entries, want 0", len(entries))
		}
	})

	t.Run("bad quantity fails the whole load", func(t *testing.T) {
		data := []byte("Date,SKU,ProductName,Quantity\n2024-01-10,A1,Vida,many\n")
		if _, err := ParseEntries(data); !errors.Is(err, ErrMalformedLedger) {
			t.Fatalf("ParseEntries error = %v, want ErrMalformedLedger", err)
		}
	})
}

func TestEntriesRoundTrip(t *testing.T) {
	entries := []Entry{
		{ID: "0", Date: civil.Date{Year: 2024, Month: 1, Day: 10}, SKU: "A1", ProductName: "Vida 5mm", Quantity: 5, Type: Inflow},
		{ID: "1", Date: civil.Date{Year: 2024, Month: 2, Day: 29}, SKU: "B2", ProductName: "Somun, paslanmaz", Quantity: 120, Type: Outflow},
		{ID: "2", Date: civil.Date{Year: 2023, Month: 12, Day: 31}, SKU: "C3", ProductName: "Çelik Halat", Quantity: 1, Type: Inflow},
	}

	data, err := MarshalEntries(entries)
	if err != nil {
		t.Fatalf("MarshalEntries failed: %v", err)
	}
	got, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("round trip length = %d, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestProductsRoundTrip(t *testing.T) {
	products := []Product{
		{SKU: "A1", Name: "Vida 5mm"},
		{SKU: "B2", Name: "Ürün; noktalı virgüllü"},
	}
	data, err := MarshalProducts(products)
	if err != nil {
		t.Fatalf("MarshalProducts failed: %v", err)
	}
	got, err := ParseProducts(data)
	if err != nil {
		t.Fatalf("ParseProducts failed: %v", err)
	}
	if len(got) != len(products) {
		t.Fatalf("round trip length = %d, want %d", len(got), len(products))
	}
	for i := range products {
		if got[i] != products[i] {
			t.Errorf("product %d = %+v, want %+v", i, got[i], products[i])
		}
	}
}
