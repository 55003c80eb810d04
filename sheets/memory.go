package sheets

import (
	"context"
	"fmt"
)

// MemoryWorkbook serves worksheets from memory. Used by tests and the mock
// oracle demo.
type MemoryWorkbook struct {
	sheets [][][]string
	err    error
	reads  int
}

func NewMemoryWorkbook(sheets ...[][]string) *MemoryWorkbook {
	return &MemoryWorkbook{sheets: sheets}
}

// NewMemoryWorkbookWithError returns a workbook whose every read fails with err.
func NewMemoryWorkbookWithError(err error) *MemoryWorkbook {
	return &MemoryWorkbook{err: err}
}

func (w *MemoryWorkbook) Worksheet(ctx context.Context, index int) ([][]string, error) {
	w.reads++
	if w.err != nil {
		return nil, &DataSourceError{Sheet: index, Err: w.err}
	}
	if index < 0 || index >= len(w.sheets) {
		return nil, &DataSourceError{Sheet: index, Err: fmt.Errorf("%w: %d of %d", ErrSheetNotFound, index, len(w.sheets))}
	}
	return w.sheets[index], nil
}

// Reads reports how many worksheet reads were attempted.
func (w *MemoryWorkbook) Reads() int { return w.reads }
