package portal

import (
	"fmt"
	"regexp"
	"time"
)

// DateShape describes which date inputs a category's query form expects.
type DateShape int

const (
	// DateShapeDailyRange fills a start and end date formatted YYYYMMDD.
	DateShapeDailyRange DateShape = iota
	// DateShapeMonthRange fills a start and end month formatted YYYYMM.
	DateShapeMonthRange
	// DateShapeEndOnly fills a single end date formatted YYYYMMDD.
	DateShapeEndOnly
)

const (
	dailyLayout = "20060102"
	monthLayout = "200601"
)

var (
	dailyPattern = regexp.MustCompile(`^\d{8}$`)
	monthPattern = regexp.MustCompile(`^\d{6}$`)
)

// CategoryConfig carries everything category-specific the pipeline needs:
// menu navigation keywords, listing exclusions, identifier prefixes and the
// shape of the query form. The pipeline itself stays category-agnostic.
type CategoryConfig struct {
	Category    Category
	OutputLabel string

	// MenuKeywords is an ordered list of keyword groups. A menu link matches
	// a group when its text contains every keyword in that group. Groups are
	// tried in order and the first match wins.
	MenuKeywords [][]string

	// ExclusionKeywords filters out navigation chrome and unrelated links
	// when scanning listing rows for candidate records.
	ExclusionKeywords []string

	// RecordPrefixes, when non-empty, accepts loose identifier candidates
	// that start with one of these prefixes.
	RecordPrefixes []string

	DateShape DateShape

	// SinglePage marks categories whose listing page itself carries the
	// exportable table, with no per-record detail pages to drill into.
	SinglePage bool
}

var commonExclusions = []string{
	"語音取件",
	"三節加價",
	"系統公告",
	"操作說明",
	"維護通知",
	"Home",
	"首頁",
	"登出",
	"系統設定",
	"代收款已收未結帳明細",
	"已收未結帳",
	"未結帳明細",
}

var categoryConfigs = map[Category]CategoryConfig{
	CategoryPayment: {
		Category:    CategoryPayment,
		OutputLabel: "代收貨款匯款明細",
		MenuKeywords: [][]string{
			{"代收貨款", "匯款明細"},
			{"(2-1)"},
		},
		ExclusionKeywords: commonExclusions,
		RecordPrefixes:    []string{"4"},
		DateShape:         DateShapeDailyRange,
	},
	CategoryFreight: {
		Category:    CategoryFreight,
		OutputLabel: "運費發票明細",
		MenuKeywords: [][]string{
			{"運費", "月結"},
			{"2-7", "運費"},
			{"結帳資料", "運費"},
		},
		ExclusionKeywords: append([]string{
			"有限公司",
			"股份有限公司",
			"企業",
			"公司",
		}, commonExclusions...),
		DateShape: DateShapeMonthRange,
	},
	CategoryUnpaid: {
		Category:    CategoryUnpaid,
		OutputLabel: "運費未請款明細",
		MenuKeywords: [][]string{
			{"運費", "未請款"},
			{"未請款", "明細"},
			{"運費", "明細", "請款"},
		},
		ExclusionKeywords: commonExclusions,
		DateShape:         DateShapeEndOnly,
		SinglePage:        true,
	},
}

// ConfigFor returns the configuration for a category.
func ConfigFor(c Category) (CategoryConfig, error) {
	cfg, ok := categoryConfigs[c]
	if !ok {
		return CategoryConfig{}, fmt.Errorf("unknown category: %s", c)
	}
	return cfg, nil
}

// Categories lists all supported categories in a stable order.
func Categories() []Category {
	return []Category{CategoryPayment, CategoryFreight, CategoryUnpaid}
}

// DefaultQuery builds the default query window for a date shape relative to now.
func DefaultQuery(shape DateShape, now time.Time) Query {
	switch shape {
	case DateShapeMonthRange:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		prev := firstOfMonth.AddDate(0, -1, 0)
		m := prev.Format(monthLayout)
		return Query{Start: m, End: m}
	case DateShapeEndOnly:
		return Query{End: now.Format(dailyLayout)}
	default:
		return Query{
			Start: now.AddDate(0, 0, -7).Format(dailyLayout),
			End:   now.Format(dailyLayout),
		}
	}
}

// ValidateQuery checks that the query's populated fields match the shape's
// expected format. Empty fields are filled from DefaultQuery by the caller,
// so only non-empty values are validated here.
func ValidateQuery(shape DateShape, q Query) error {
	switch shape {
	case DateShapeMonthRange:
		if q.Start != "" && !monthPattern.MatchString(q.Start) {
			return fmt.Errorf("start month must be YYYYMM, got %q", q.Start)
		}
		if q.End != "" && !monthPattern.MatchString(q.End) {
			return fmt.Errorf("end month must be YYYYMM, got %q", q.End)
		}
	case DateShapeEndOnly:
		if q.Start != "" {
			return fmt.Errorf("start date is not used for this category")
		}
		if q.End != "" && !dailyPattern.MatchString(q.End) {
			return fmt.Errorf("end date must be YYYYMMDD, got %q", q.End)
		}
	default:
		if q.Start != "" && !dailyPattern.MatchString(q.Start) {
			return fmt.Errorf("start date must be YYYYMMDD, got %q", q.Start)
		}
		if q.End != "" && !dailyPattern.MatchString(q.End) {
			return fmt.Errorf("end date must be YYYYMMDD, got %q", q.End)
		}
	}
	return nil
}

// ResolveQuery validates the query and fills empty fields with defaults.
func ResolveQuery(shape DateShape, q Query, now time.Time) (Query, error) {
	if err := ValidateQuery(shape, q); err != nil {
		return Query{}, err
	}
	def := DefaultQuery(shape, now)
	if q.Start == "" && shape != DateShapeEndOnly {
		q.Start = def.Start
	}
	if q.End == "" {
		q.End = def.End
	}
	return q, nil
}
