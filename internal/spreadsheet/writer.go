// Package spreadsheet turns export payloads into .xlsx files with
// deterministic names, so re-runs overwrite instead of piling up copies.
package spreadsheet

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

const (
	sheetName = "Sheet1"

	// Column widths grow with content up to this cap; remittance remark
	// cells can run to hundreds of characters.
	maxColumnWidth = 50
	columnPadding  = 2

	headerFillColor = "CCCCCC"
)

// Naming carries the pieces a spreadsheet filename is derived from.
// Identifier is the record number or, when the portal suggested one, the
// cleaned export hint.
type Naming struct {
	CategoryLabel string
	Account       string
	Date          string
	Identifier    string
}

// Filename builds the deterministic output name:
// {category}_{account}[_{date}][_{identifier}].xlsx. The same inputs always
// produce the same name.
func Filename(n Naming) string {
	parts := []string{sanitizeFragment(n.CategoryLabel), sanitizeFragment(n.Account)}
	if n.Date != "" {
		parts = append(parts, sanitizeFragment(n.Date))
	}
	if n.Identifier != "" {
		parts = append(parts, sanitizeFragment(n.Identifier))
	}
	return strings.Join(parts, "_") + ".xlsx"
}

// sanitizeFragment makes a name fragment filesystem-safe: spaces and
// hyphens become underscores, brackets are dropped.
func sanitizeFragment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "[", "")
	s = strings.ReplaceAll(s, "]", "")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// Writer persists payloads as styled .xlsx workbooks.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write streams the payload into dir/Filename(naming), creating dir as
// needed. An existing file with the same name is overwritten.
func (w *Writer) Write(payload *portal.ExportPayload, naming Naming, dir string) (*portal.SpreadsheetArtifact, error) {
	if payload == nil || !payload.Valid() {
		return nil, fmt.Errorf("%w: payload has no rows to write", portal.ErrNoDataRows)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	// Stream writers require widths before the first row.
	widths := columnWidths(payload.Rows)
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, row := range payload.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}

		if i == 0 {
			err = sw.SetRow(cell, values, excelize.RowOpts{StyleID: headerStyle})
		} else {
			err = sw.SetRow(cell, values)
		}
		if err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush rows: %w", err)
	}

	path := filepath.Join(dir, Filename(naming))
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}

	artifact := &portal.SpreadsheetArtifact{
		Path:        path,
		RowCount:    len(payload.Rows),
		ColumnCount: len(widths),
	}
	if stat, err := os.Stat(path); err == nil {
		artifact.ByteSize = stat.Size()
	}

	w.logger.Debug("spreadsheet written", "path", path,
		"rows", artifact.RowCount, "columns", artifact.ColumnCount)
	return artifact, nil
}

// columnWidths sizes each column to its longest cell plus padding, capped
// at maxColumnWidth. The slice length is the widest row's column count.
func columnWidths(rows [][]string) []float64 {
	var widths []float64
	for _, row := range rows {
		for j, cell := range row {
			for len(widths) <= j {
				widths = append(widths, 0)
			}
			w := float64(utf8.RuneCountInString(cell) + columnPadding)
			if w > maxColumnWidth {
				w = maxColumnWidth
			}
			if w > widths[j] {
				widths[j] = w
			}
		}
	}
	return widths
}
