// Package sheet reads tabular data for the spreadsheet digest.
package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrSheetNotFound is returned when the named sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Source returns the rows of one sheet, header row first.
type Source interface {
	Rows(ctx context.Context, spreadsheet, sheet string) ([][]string, error)
}

// Dir reads sheets exported as <dir>/<spreadsheet>/<sheet>.csv.
type Dir struct {
	root string
}

// NewDir creates a Source rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Path returns the file a sheet is read from.
func (d *Dir) Path(spreadsheet, sheet string) string {
	return filepath.Join(d.root, spreadsheet, sheet+".csv")
}

// Rows reads every record of the sheet. Records may have varying widths.
func (d *Dir) Rows(ctx context.Context, spreadsheet, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.ContainsAny(spreadsheet+sheet, `/\`) || spreadsheet == ".." || sheet == ".." {
		return nil, fmt.Errorf("invalid sheet name %q/%q", spreadsheet, sheet)
	}

	path := d.Path(spreadsheet, sheet)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", spreadsheet, sheet, ErrSheetNotFound)
		}
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
