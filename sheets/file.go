package sheets

import (
	"context"
	"fmt"
	"os"
)

// FileWorkbook reads each worksheet from a local CSV file; paths[i] is
// worksheet i.
type FileWorkbook struct {
	Paths []string
}

func NewFileWorkbook(paths ...string) *FileWorkbook {
	return &FileWorkbook{Paths: paths}
}

func (w *FileWorkbook) Worksheet(ctx context.Context, index int) ([][]string, error) {
	if index < 0 || index >= len(w.Paths) {
		return nil, &DataSourceError{Sheet: index, Err: fmt.Errorf("%w: %d of %d", ErrSheetNotFound, index, len(w.Paths))}
	}

	f, err := os.Open(w.Paths[index])
	if err != nil {
		return nil, &DataSourceError{Sheet: index, Err: err}
	}
	defer f.Close()

	grid, err := readGrid(f)
	if err != nil {
		return nil, &DataSourceError{Sheet: index, Err: fmt.Errorf("parse %s: %w", w.Paths[index], err)}
	}
	return grid, nil
}
