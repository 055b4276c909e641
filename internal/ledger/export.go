package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV renders entries as the canonical comma-delimited download:
// header row, ISO 8601 dates, UTF-8. The same serialization backs the
// transactions file of the file backend and the on-demand export.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	cw.Comma = entriesComma

	header := []string{colDate, colSKU, colProductName, colQuantity, colTransactionType}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Date.String(),
			e.SKU,
			e.ProductName,
			strconv.FormatInt(e.Quantity, 10),
			string(e.Type),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
