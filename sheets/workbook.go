// Package sheets reads the planning workbook: worksheet 0 holds per-location
// vehicle counts, worksheet 1 holds the station capacity cell and the vehicle
// mix table.
package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

const (
	FleetSheet     = 0
	ReferenceSheet = 1
)

var (
	ErrInsufficientData    = errors.New("insufficient data in fleet sheet")
	ErrNoMatchingLocations = errors.New("no matching locations found")
	ErrReferenceData       = errors.New("failed to read reference data")
	ErrSheetNotFound       = errors.New("worksheet not found")
)

// Workbook returns the cell grid of a worksheet by index.
type Workbook interface {
	Worksheet(ctx context.Context, index int) ([][]string, error)
}

// DataSourceError wraps a failure to read a worksheet from its backend.
type DataSourceError struct {
	Sheet int
	Err   error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("read worksheet %d: %v", e.Sheet, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// readGrid parses CSV content into rows. Rows may have different lengths.
func readGrid(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}
