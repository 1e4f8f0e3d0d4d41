package wedi

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

var eightDigitPattern = regexp.MustCompile(`^\d{8}$`)

// headerLabels are table header texts that would otherwise pass the
// identifier shape checks in some portal revisions.
var headerLabels = map[string]bool{
	"發票號碼": true,
	"小計":   true,
	"總計":   true,
}

// discoveryStrategy is one heuristic for finding records on a listing page.
// Strategies run in order and the first one that produces records wins;
// results are never merged across strategies.
type discoveryStrategy struct {
	name string
	run  func(doc *goquery.Document, cfg portal.CategoryConfig) []portal.Record
}

var discoveryStrategies = []discoveryStrategy{
	{name: "table_cell_scan", run: scanTableCells},
	{name: "anchor_text_scan", run: scanAnchorText},
}

// DiscoverRecords scans a listing page (already scoped to the query frame)
// for exportable records. Zero records is a valid result meaning nothing to
// export for this period, not an error.
func DiscoverRecords(html string, cfg portal.CategoryConfig, logger *slog.Logger) ([]portal.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portal.ErrParsingFailed, err)
	}

	for _, strategy := range discoveryStrategies {
		records := strategy.run(doc, cfg)
		if len(records) > 0 {
			logger.Info("records discovered",
				"category", cfg.Category,
				"strategy", strategy.name,
				"count", len(records))
			return records, nil
		}
		logger.Debug("discovery strategy found nothing",
			"category", cfg.Category,
			"strategy", strategy.name)
	}

	// Terminal diagnostic: report where the category keywords appear in the
	// page so an empty result can be told apart from a mis-navigated page.
	logKeywordCells(doc, cfg, logger)

	return nil, nil
}

// IsCandidateIdentifier reports whether a table cell text looks like an
// invoice or remittance number: longer than 8 runes, holding at least one
// digit and one ASCII letter, not a known header label, free of CJK
// characters, and not a digits-hyphen-name customer code.
func IsCandidateIdentifier(s string) bool {
	if utf8.RuneCountInString(s) <= 8 {
		return false
	}
	if headerLabels[s] {
		return false
	}

	hasDigit, hasLetter := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if !hasDigit || !hasLetter {
		return false
	}

	if containsCJK(s) {
		return false
	}
	if isCustomerCode(s) {
		return false
	}

	return true
}

// isLooseIdentifier is the relaxed shape check used for anchor text, where
// remittance numbers are shorter and often all digits.
func isLooseIdentifier(s string) bool {
	if utf8.RuneCountInString(s) <= 6 {
		return false
	}
	return containsDigit(s) && !containsCJK(s)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// containsCJK reports whether s holds any character in the unified
// ideograph block. Cells with CJK text are customer names or labels,
// never identifiers.
func containsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

// isCustomerCode matches the portal's digits-hyphen-name customer codes
// (e.g. 123456789-some company name in CJK).
func isCustomerCode(s string) bool {
	idx := strings.IndexAny(s, "-－")
	if idx <= 0 {
		return false
	}

	for _, r := range s[:idx] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return containsCJK(s[idx:])
}

// scanTableCells is the primary discovery strategy: walk every table cell
// looking for identifier-shaped text, then pick the click target (anchor in
// the cell, anchor in the row, or the cell itself) and recover a date from
// the neighboring cells.
func scanTableCells(doc *goquery.Document, cfg portal.CategoryConfig) []portal.Record {
	var records []portal.Record
	seen := make(map[string]bool)

	doc.Find("table").Each(func(tableIdx int, table *goquery.Selection) {
		table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
			cells := row.Find("td, th")
			cells.Each(func(cellIdx int, cell *goquery.Selection) {
				text := normalizeCellText(cell.Text())
				if !IsCandidateIdentifier(text) {
					return
				}

				hint := buildCellHint(cell, row, tableIdx, rowIdx, cellIdx)

				key := text + "|" + hint.Href
				if seen[key] {
					return
				}
				seen[key] = true

				records = append(records, portal.Record{
					DisplayTitle:  text,
					RecordID:      text,
					SecondaryDate: adjacentDate(cells, cellIdx),
					Hint:          hint,
				})
			})
		})
	})

	return records
}

// buildCellHint captures enough to re-find the record after the listing DOM
// is rebuilt: the anchor text and href when a clickable anchor exists in the
// cell or its row, and the table position as a last resort.
func buildCellHint(cell, row *goquery.Selection, tableIdx, rowIdx, cellIdx int) portal.LocatorHint {
	hint := portal.LocatorHint{
		TableIndex: tableIdx,
		RowIndex:   rowIdx,
		CellIndex:  cellIdx,
	}

	anchor := cell.Find("a").First()
	if anchor.Length() == 0 {
		anchor = row.Find("a").First()
	}
	if anchor.Length() > 0 {
		hint.AnchorText = normalizeCellText(anchor.Text())
		hint.Href = anchor.AttrOr("href", "")
		hint.OnClick = anchor.AttrOr("onclick", "")
	}

	return hint
}

// adjacentDate looks for an 8-digit date in the cells directly before and
// after the identifier cell.
func adjacentDate(cells *goquery.Selection, cellIdx int) string {
	for _, neighbor := range []int{cellIdx - 1, cellIdx + 1} {
		if neighbor < 0 || neighbor >= cells.Length() {
			continue
		}
		text := normalizeCellText(cells.Eq(neighbor).Text())
		if eightDigitPattern.MatchString(text) {
			return text
		}
	}
	return ""
}

// scanAnchorText is the fallback discovery strategy: walk every anchor and
// keep the ones whose text matches the category's inclusion rules without
// hitting an exclusion keyword. Exclusions take precedence.
func scanAnchorText(doc *goquery.Document, cfg portal.CategoryConfig) []portal.Record {
	var records []portal.Record
	seen := make(map[string]bool)

	doc.Find("a").Each(func(i int, anchor *goquery.Selection) {
		text := normalizeCellText(anchor.Text())
		if text == "" {
			return
		}
		if matchesAnyKeyword(text, cfg.ExclusionKeywords) {
			return
		}
		if !matchesInclusion(text, cfg) {
			return
		}

		href := anchor.AttrOr("href", "")
		key := text + "|" + href
		if seen[key] {
			return
		}
		seen[key] = true

		records = append(records, portal.Record{
			DisplayTitle: text,
			RecordID:     text,
			Hint: portal.LocatorHint{
				AnchorText: text,
				Href:       href,
				OnClick:    anchor.AttrOr("onclick", ""),
				TableIndex: -1,
				RowIndex:   -1,
				CellIndex:  -1,
			},
		})
	})

	return records
}

// matchesInclusion applies the category's inclusion rules to anchor text:
// a keyword group fully contained in the text, a known numeric code prefix,
// or the relaxed identifier shape.
func matchesInclusion(text string, cfg portal.CategoryConfig) bool {
	if matchesKeywordGroup(text, cfg.MenuKeywords) {
		return true
	}

	for _, prefix := range cfg.RecordPrefixes {
		if strings.HasPrefix(text, prefix) &&
			utf8.RuneCountInString(text) > 4 &&
			containsDigit(text) && !containsCJK(text) {
			return true
		}
	}

	return isLooseIdentifier(text)
}

// matchesKeywordGroup reports whether the text contains every keyword of at
// least one group.
func matchesKeywordGroup(text string, groups [][]string) bool {
	for _, group := range groups {
		all := true
		for _, kw := range group {
			if !strings.Contains(text, kw) {
				all = false
				break
			}
		}
		if all && len(group) > 0 {
			return true
		}
	}
	return false
}

func matchesAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// logKeywordCells reports keyword-bearing table cells when no strategy
// produced records. It deliberately creates nothing: an empty listing with
// visible keywords means the query returned no rows, which is a valid
// terminal state.
func logKeywordCells(doc *goquery.Document, cfg portal.CategoryConfig, logger *slog.Logger) {
	count := 0
	doc.Find("table td").Each(func(i int, cell *goquery.Selection) {
		text := normalizeCellText(cell.Text())
		if text == "" {
			return
		}
		for _, group := range cfg.MenuKeywords {
			for _, kw := range group {
				if strings.Contains(text, kw) {
					count++
					logger.Debug("keyword cell without record",
						"category", cfg.Category,
						"keyword", kw,
						"text", truncateText(text, 80))
					return
				}
			}
		}
	})

	logger.Info("no records discovered",
		"category", cfg.Category,
		"keyword_cells", count)
}

func truncateText(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-3]) + "..."
}
