package wedi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"

	"github.com/chiehwen/wedi-export/internal/scraper/browser"
	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

// clickAnchorJS clicks the first anchor whose text contains every keyword
// of some group and none of the exclusions. Groups are tried in order, so
// earlier groups win. Runs inside the page because the portal's menu
// anchors carry irregular whitespace that server-side text matching trips
// over. Returns the clicked anchor's text, or null.
const clickAnchorJS = `(groups, exclusions) => {
	const anchors = Array.from(document.querySelectorAll('a'));
	const textOf = (a) => (a.textContent || '').replace(/\s+/g, ' ').trim();
	for (const group of groups) {
		for (const a of anchors) {
			const text = textOf(a);
			if (!text) continue;
			if (exclusions.some(x => text.includes(x))) continue;
			if (group.every(k => text.includes(k))) {
				a.click();
				return text;
			}
		}
	}
	return null;
}`

// clickAnchor runs one click attempt. Resolution and click happen in a
// single JS tick, so the target cannot go stale in between.
func clickAnchor(page *rod.Page, groups [][]string, exclusions []string) (string, error) {
	if exclusions == nil {
		exclusions = []string{}
	}
	res, err := page.Eval(clickAnchorJS, groups, exclusions)
	if err != nil {
		return "", err
	}
	if res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}

// clickAnchorWhenReady polls for a matching anchor until the wait budget
// runs out. ASP menus render piecemeal after frame loads, so a single
// probe is not enough.
func (s *Scraper) clickAnchorWhenReady(page *rod.Page, groups [][]string, exclusions []string, wait time.Duration) (string, error) {
	deadline := time.Now().Add(wait)
	for {
		text, err := clickAnchor(page, groups, exclusions)
		if err == nil && text != "" {
			return text, nil
		}

		if time.Now().After(deadline) {
			if err != nil {
				return "", fmt.Errorf("%w: click %v: %v", portal.ErrNavigationFailed, groups, err)
			}
			return "", fmt.Errorf("%w: no anchor matching %v", portal.ErrNavigationFailed, groups)
		}
		time.Sleep(DOMPollInterval)
	}
}

// EnterQueryFrame walks the main menu into the query page and returns the
// scoped content frame. Some portal revisions expose the frame right after
// the first menu click, others add a second-level page link.
func (s *Scraper) EnterQueryFrame(page *rod.Page) (*rod.Page, error) {
	if _, err := s.clickAnchorWhenReady(page, [][]string{{MenuTextQueryMenu}}, nil, s.timeout); err != nil {
		return nil, err
	}
	time.Sleep(FrameSwitchWait)

	if frame, err := browser.GetFrameByName(page, QueryFrameName); err == nil {
		return frame, nil
	}

	if _, err := s.clickAnchorWhenReady(page, [][]string{{MenuTextQueryPage}}, nil, FrameSwitchWait); err != nil {
		if _, err2 := s.clickAnchorWhenReady(page, [][]string{{MenuTextQueryPartial}}, nil, FrameSwitchWait); err2 != nil {
			return nil, err
		}
	}
	time.Sleep(FrameSwitchWait)

	return s.waitQueryFrame(page)
}

func (s *Scraper) waitQueryFrame(page *rod.Page) (*rod.Page, error) {
	deadline := time.Now().Add(s.timeout)
	for {
		frame, err := browser.GetFrameByName(page, QueryFrameName)
		if err == nil {
			return frame, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: query frame: %v", portal.ErrNavigationFailed, err)
		}
		time.Sleep(DOMPollInterval)
	}
}

// OpenCategory clicks the category's menu anchor inside the query frame.
// When no anchor matches but the page body already carries the category's
// keywords, the portal has landed us on the listing directly and no click
// is needed.
func (s *Scraper) OpenCategory(frame *rod.Page, cfg portal.CategoryConfig) error {
	clicked, err := s.clickAnchorWhenReady(frame, cfg.MenuKeywords, cfg.ExclusionKeywords, s.timeout)
	if err != nil {
		html, herr := frame.HTML()
		if herr == nil && pageMentionsCategory(html, cfg) {
			s.logger.Info("category link not found, page already shows category content",
				"category", cfg.Category)
			return nil
		}
		return err
	}

	s.logger.Debug("category opened", "category", cfg.Category, "anchor", clicked)
	time.Sleep(FrameSwitchWait)
	return nil
}

// pageMentionsCategory reports whether the page body already carries every
// keyword of one of the category's menu groups.
func pageMentionsCategory(html string, cfg portal.CategoryConfig) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	body := normalizeCellText(doc.Find("body").Text())
	if body == "" {
		return false
	}
	return matchesKeywordGroup(body, cfg.MenuKeywords)
}

// SubmitQuery fills the category's date filter and fires the query. The
// portal pre-fills date inputs server-side, so every fill replaces instead
// of appending.
func (s *Scraper) SubmitQuery(frame *rod.Page, shape portal.DateShape, q portal.Query) error {
	if _, err := frame.Timeout(FrameSwitchWait).Element("input"); err != nil {
		s.logger.Debug("query form exposes no inputs", "error", err)
	}

	inputs, err := frame.Elements("input[type='text'], input:not([type])")
	if err != nil {
		return fmt.Errorf("%w: list query inputs: %v", portal.ErrNavigationFailed, err)
	}

	if err := s.fillDates(inputs, shape, q); err != nil {
		return err
	}

	s.submitQueryForm(frame)
	time.Sleep(QuerySubmitWait)
	return nil
}

// fillDates writes the query bounds into the form. Range shapes use the
// first two text inputs (from, to); end-only shapes use the last input,
// since those forms put fixed filters before the date.
func (s *Scraper) fillDates(inputs rod.Elements, shape portal.DateShape, q portal.Query) error {
	if len(inputs) == 0 {
		s.logger.Warn("no date inputs found, querying with portal defaults")
		return nil
	}

	if shape == portal.DateShapeEndOnly {
		last := inputs[len(inputs)-1]
		if err := browser.ClearAndType(last, q.End); err != nil {
			return fmt.Errorf("%w: fill end date: %v", portal.ErrNavigationFailed, err)
		}
		return nil
	}

	if len(inputs) < 2 {
		s.logger.Warn("expected two date inputs", "found", len(inputs))
		if err := browser.ClearAndType(inputs[0], q.Start); err != nil {
			return fmt.Errorf("%w: fill start date: %v", portal.ErrNavigationFailed, err)
		}
		return nil
	}

	if err := browser.ClearAndType(inputs[0], q.Start); err != nil {
		return fmt.Errorf("%w: fill start date: %v", portal.ErrNavigationFailed, err)
	}
	if err := browser.ClearAndType(inputs[1], q.End); err != nil {
		return fmt.Errorf("%w: fill end date: %v", portal.ErrNavigationFailed, err)
	}
	return nil
}

// submitQueryForm tries the submit control cascade. A missing submit is
// tolerated: some single-page categories render results on load.
func (s *Scraper) submitQueryForm(frame *rod.Page) {
	for _, sel := range querySubmitSelectors {
		el, err := frame.Timeout(DOMPollInterval).Element(sel)
		if err != nil {
			continue
		}
		if _, err := el.Eval(`() => this.click()`); err != nil {
			s.logger.Debug("submit click failed", "selector", sel, "error", err)
			continue
		}
		s.logger.Debug("query submitted", "selector", sel)
		return
	}
	s.logger.Warn("no submit control found, relying on the portal's auto-query")
}

// OpenListing performs the full navigation from the logged-in main menu to
// a ready listing: query frame, category, date filter. Returns the frame
// the listing renders in.
func (s *Scraper) OpenListing(ctx context.Context, cfg portal.CategoryConfig, q portal.Query) (*rod.Page, error) {
	page := s.page.Context(ctx)

	frame, err := s.EnterQueryFrame(page)
	if err != nil {
		return nil, err
	}
	if err := s.OpenCategory(frame, cfg); err != nil {
		return nil, err
	}
	if err := s.SubmitQuery(frame, cfg.DateShape, q); err != nil {
		return nil, err
	}
	return frame, nil
}
