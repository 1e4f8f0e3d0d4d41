package wedi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

// fileBlob mirrors the JSON object the portal attaches to its export button.
// Cells arrive as strings or numbers depending on the column type.
type fileBlob struct {
	Data          [][]any `json:"data"`
	FileName      string  `json:"fileName"`
	MimeType      string  `json:"mimeType"`
	FileExtension string  `json:"fileExtension"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// rawPayloadPrefixLen bounds how much of a broken payload gets carried in
// the error for diagnostics.
const rawPayloadPrefixLen = 500

// ExtractPayload pulls tabular data out of a detail page. The embedded JSON
// blob on the export control is authoritative when the control exists: a
// present-but-broken blob is a hard failure for the record, never a silent
// fall-through to table scraping, because an empty export control means the
// portal intentionally has nothing to export. Only a page with no export
// control at all falls back to the rendered table.
func ExtractPayload(html string) (*portal.ExportPayload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portal.ErrParsingFailed, err)
	}

	blobEl := doc.Find(SelectorFileBlobButton).First()
	if blobEl.Length() == 0 {
		blobEl = doc.Find(SelectorFileBlobAny).First()
	}

	if blobEl.Length() > 0 {
		raw, _ := blobEl.Attr("data-fileblob")
		return parseEmbeddedPayload(raw)
	}

	return extractRenderedTable(doc)
}

// ExtractRenderedTable extracts the largest rendered table from a page,
// bypassing the embedded-payload search. Listing-only categories use this
// directly on the query frame.
func ExtractRenderedTable(html string) (*portal.ExportPayload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portal.ErrParsingFailed, err)
	}

	return extractRenderedTable(doc)
}

func parseEmbeddedPayload(raw string) (*portal.ExportPayload, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, portal.ErrEmptyPayload
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var blob fileBlob
	if err := dec.Decode(&blob); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)",
			portal.ErrMalformedPayload, err, truncateText(raw, rawPayloadPrefixLen))
	}

	if len(blob.Data) == 0 {
		return nil, portal.ErrNoDataRows
	}

	rows := make([][]string, len(blob.Data))
	for i, blobRow := range blob.Data {
		row := make([]string, len(blobRow))
		for j, cell := range blobRow {
			row[j] = normalizeCellText(cellString(cell))
		}
		rows[i] = row
	}

	return &portal.ExportPayload{
		Rows:                      rows,
		SuggestedFilenameFragment: cleanFilenameHint(blob.FileName),
		Source:                    portal.SourceEmbeddedJSON,
	}, nil
}

// extractRenderedTable picks the table with the most rows as the data table.
// Tables under 2 rows are too small to hold a header plus data.
func extractRenderedTable(doc *goquery.Document) (*portal.ExportPayload, error) {
	var mainTable *goquery.Selection
	maxRows := 0

	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		rowCount := table.Find("tr").Length()
		if rowCount > maxRows {
			maxRows = rowCount
			mainTable = table
		}
	})

	if mainTable == nil {
		return nil, fmt.Errorf("%w: no table found on page", portal.ErrParsingFailed)
	}
	if maxRows < 2 {
		return nil, fmt.Errorf("%w: largest table has %d row(s)", portal.ErrNoDataRows, maxRows)
	}

	var rows [][]string
	mainTable.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var row []string
		tr.Find("td, th").Each(func(j int, cell *goquery.Selection) {
			row = append(row, normalizeCellText(cell.Text()))
		})
		rows = append(rows, row)
	})

	return &portal.ExportPayload{
		Rows:   rows,
		Source: portal.SourceRenderedTable,
	}, nil
}

// cellString renders a decoded JSON cell value as text. Numbers keep their
// literal form via json.Number.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case json.Number:
		return c.String()
	case bool:
		if c {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(c)
	}
}

// cleanFilenameHint normalizes the blob's fileName for use as an artifact
// name fragment. The portal's placeholder name Excel carries no information
// and is dropped, as are spreadsheet extensions.
func cleanFilenameHint(name string) string {
	hint := strings.TrimSpace(name)

	for _, ext := range []string{".xlsx", ".xls", ".csv"} {
		if strings.HasSuffix(strings.ToLower(hint), ext) {
			hint = hint[:len(hint)-len(ext)]
			break
		}
	}

	if strings.EqualFold(hint, "excel") {
		return ""
	}

	return hint
}

// normalizeCellText strips non-breaking-space entities, collapses whitespace
// runs, and trims. Applying it twice gives the same result as applying it
// once.
func normalizeCellText(s string) string {
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
