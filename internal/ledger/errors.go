package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by every component. Callers match them with
// errors.Is and map them to a user-visible message; none of them is ever
// allowed to escape as a panic.
var (
	// ErrBackendUnavailable reports a storage connection or credential
	// failure. Fatal at startup for the document backend.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrMalformedLedger reports a ledger that could not be decoded into
	// the canonical schema. Loads degrade to an empty ledger plus a
	// diagnostic; the operation itself continues.
	ErrMalformedLedger = errors.New("malformed ledger")

	// ErrDuplicateKey reports a product SKU collision on creation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput reports a missing product selection, a non-positive
	// quantity, or an unknown transaction type.
	ErrInvalidInput = errors.New("invalid input")
)

// MalformedError carries the diagnostic for an undecodable or
// schema-incomplete ledger: which ledger failed, which required field had
// no matching column, and the columns that were actually present.
type MalformedError struct {
	Ledger       string
	MissingField string
	Columns      []string
	Reason       string
}

func (e *MalformedError) Error() string {
	if e.MissingField != "" {
		return fmt.Sprintf("%s ledger: no column matches required field %q (columns present: %s)",
			e.Ledger, e.MissingField, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s ledger: %s", e.Ledger, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedLedger }
