package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/oyilmaz/warehouse-ledger/internal/api/middleware"
	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
	"github.com/oyilmaz/warehouse-ledger/internal/recorder"
)

// ProductsHandler handles product-related endpoints.
type ProductsHandler struct {
	rec *recorder.Recorder
	log zerolog.Logger
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(rec *recorder.Recorder, log zerolog.Logger) *ProductsHandler {
	return &ProductsHandler{
		rec: rec,
		log: log,
	}
}

// ListProducts handles GET /api/products
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.rec.Products(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list products")
		writeLedgerError(w, err, "Failed to list products")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// AddProduct handles POST /api/products
func (h *ProductsHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SKU  string `json:"sku"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.rec.AddProduct(r.Context(), req.SKU, req.Name); err != nil {
		h.log.Warn().Err(err).Str("sku", req.SKU).Msg("Add product rejected")
		writeLedgerError(w, err, "Failed to add product")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, ledger.Product{SKU: req.SKU, Name: req.Name})
}

// EntriesHandler handles ledger entry endpoints.
type EntriesHandler struct {
	rec *recorder.Recorder
	log zerolog.Logger
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(rec *recorder.Recorder, log zerolog.Logger) *EntriesHandler {
	return &EntriesHandler{
		rec: rec,
		log: log,
	}
}

// ListEntries handles GET /api/entries?start=&end=&sku=
// Without a range it returns the full ledger, newest first.
func (h *EntriesHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.rec.Entries(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list entries")
		writeLedgerError(w, err, "Failed to list entries")
		return
	}

	query := r.URL.Query()
	sku := query.Get("sku")
	startStr := query.Get("start")
	endStr := query.Get("end")

	if startStr != "" || endStr != "" || sku != "" {
		start, end, err := parseRange(startStr, endStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := make([]ledger.Entry, 0, len(entries))
		for _, e := range entries {
			if sku != "" && e.SKU != sku {
				continue
			}
			if e.Date.Before(start) || e.Date.After(end) {
				continue
			}
			filtered = append(filtered, e)
		}
		entries = filtered
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// RecordEntry handles POST /api/entries
func (h *EntriesHandler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date            civil.Date `json:"date"`
		SKU             string     `json:"sku"`
		ProductName     string     `json:"product_name"`
		Quantity        int64      `json:"quantity"`
		TransactionType string     `json:"transaction_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	typ, err := ledger.ParseEntryType(req.TransactionType)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.rec.RecordEntry(r.Context(), req.SKU, req.ProductName, req.Quantity, typ, req.Date)
	if err != nil {
		h.log.Warn().Err(err).Str("sku", req.SKU).Msg("Record entry rejected")
		writeLedgerError(w, err, "Failed to record entry")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, entry)
}

// DeleteEntry handles DELETE /api/entries/{id}
func (h *EntriesHandler) DeleteEntry(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.rec.DeleteEntry(r.Context(), id); err != nil {
		h.log.Warn().Err(err).Str("id", id).Msg("Delete entry rejected")
		writeLedgerError(w, err, "Failed to delete entry")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Summary handles GET /api/summary?start=&end=&sku=
func (h *EntriesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, end, err := parseRange(query.Get("start"), query.Get("end"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sku := query.Get("sku")

	summary, err := h.rec.Summary(r.Context(), start, end, sku)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize entries")
		writeLedgerError(w, err, "Failed to summarize entries")
		return
	}
	active, err := h.rec.ActiveSKUs(r.Context(), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list active products")
		writeLedgerError(w, err, "Failed to list active products")
		return
	}
	if active == nil {
		active = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"start":       start,
		"end":         end,
		"sku":         sku,
		"summary":     summary,
		"active_skus": active,
	})
}

// Export handles GET /api/export, streaming the full ledger as a CSV
// download with ISO 8601 dates.
func (h *EntriesHandler) Export(w http.ResponseWriter, r *http.Request) {
	entries, err := h.rec.Entries(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export entries")
		writeLedgerError(w, err, "Failed to export entries")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="warehouse-ledger.csv"`)
	if err := ledger.WriteCSV(w, entries); err != nil {
		h.log.Error().Err(err).Msg("Failed to write export")
	}
}

// parseRange parses the start/end query parameters, defaulting to the last
// year when absent. A start after end is the caller's mistake but a legal
// query: downstream aggregation treats it as an empty range.
func parseRange(startStr, endStr string) (civil.Date, civil.Date, error) {
	var start, end civil.Date
	var err error

	if endStr != "" {
		end, err = civil.ParseDate(endStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid end date %q, want YYYY-MM-DD", endStr)
		}
	} else {
		end = civil.DateOf(time.Now())
	}

	if startStr != "" {
		start, err = civil.ParseDate(startStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid start date %q, want YYYY-MM-DD", startStr)
		}
	} else {
		start = end.AddDays(-365)
	}

	return start, end, nil
}

// writeLedgerError maps the domain error taxonomy onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrDuplicateKey):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrBackendUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Storage backend unavailable")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
