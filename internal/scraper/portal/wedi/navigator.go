package wedi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

// relocateRecordJS re-finds a record's anchor by identifier. The listing
// DOM is rebuilt by the portal between interactions, so stored element
// references are useless; the cascade re-resolves from scratch each time:
//
//	a) anchor text contains the full identifier
//	b) anchor text contains the base identifier
//	c) href contains the full identifier
//	d) href contains the base identifier
//	e) table re-scan with containment in either direction
//
// When doClick is set, the matched anchor is clicked in the same JS tick,
// which closes the stale-element window completely.
const relocateRecordJS = `(fullId, baseId, doClick) => {
	const textOf = (a) => (a.textContent || '').replace(/\s+/g, ' ').trim();
	const found = (a, method) => {
		const out = {method: method, href: a.getAttribute('href') || '', text: textOf(a)};
		if (doClick) a.click();
		return out;
	};

	const anchors = Array.from(document.querySelectorAll('a'));

	let hit = anchors.find(a => textOf(a).includes(fullId));
	if (hit) return found(hit, 'anchor_text_full');

	if (baseId && baseId !== fullId) {
		hit = anchors.find(a => textOf(a).includes(baseId));
		if (hit) return found(hit, 'anchor_text_base');
	}

	hit = anchors.find(a => (a.getAttribute('href') || '').includes(fullId));
	if (hit) return found(hit, 'href_full');

	if (baseId && baseId !== fullId) {
		hit = anchors.find(a => (a.getAttribute('href') || '').includes(baseId));
		if (hit) return found(hit, 'href_base');
	}

	hit = Array.from(document.querySelectorAll('table a')).find(a => {
		const t = textOf(a);
		return t && (t.includes(fullId) || fullId.includes(t));
	});
	if (hit) return found(hit, 'table_rescan');

	return null;
}`

// relocation describes where the cascade re-found a record.
type relocation struct {
	Method string
	Href   string
	Text   string
}

func relocateRecord(frame *rod.Page, rec portal.Record, doClick bool) (*relocation, error) {
	res, err := frame.Eval(relocateRecordJS, rec.RecordID, baseIdentifier(rec.RecordID), doClick)
	if err != nil {
		return nil, fmt.Errorf("%w: relocate %s: %v", portal.ErrNavigationFailed, rec.RecordID, err)
	}
	if res.Value.Nil() {
		return nil, fmt.Errorf("%w: %s", portal.ErrRecordNotFound, rec.RecordID)
	}
	return &relocation{
		Method: res.Value.Get("method").Str(),
		Href:   res.Value.Get("href").Str(),
		Text:   res.Value.Get("text").Str(),
	}, nil
}

// baseIdentifier strips a sub-item suffix: remittance numbers come back as
// 4250012345-2 on some listings but plain 4250012345 on the detail links.
func baseIdentifier(id string) string {
	base, _, _ := strings.Cut(id, "-")
	return base
}

// isScriptHref reports whether an href runs script instead of navigating.
func isScriptHref(href string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "javascript:")
}

// OpenDetail navigates from the listing to rec's detail view and returns
// the detail HTML plus whether the listing frame was navigated away and
// must be restored before the next record.
//
// Plain hrefs are clicked in place: the detail replaces the listing inside
// the query frame and the caller restores it afterwards. Script hrefs run
// portal JS that depends on surrounding form state, so those are replayed
// in a throwaway secondary window where the full navigation is rebuilt;
// the original listing frame stays untouched.
func (s *Scraper) OpenDetail(ctx context.Context, frame *rod.Page, rec portal.Record, cfg portal.CategoryConfig, q portal.Query) (string, bool, error) {
	rel, err := relocateRecord(frame, rec, false)
	if err != nil {
		return "", false, err
	}
	s.logger.Debug("record relocated", "record_id", rec.RecordID,
		"method", rel.Method, "href", rel.Href)

	if isScriptHref(rel.Href) {
		html, err := s.openDetailSecondary(ctx, rec, cfg, q)
		return html, false, err
	}

	if _, err := relocateRecord(frame, rec, true); err != nil {
		return "", false, err
	}
	time.Sleep(PageLoadWait)

	html, err := frame.HTML()
	if err != nil {
		return "", true, fmt.Errorf("%w: read detail page: %v", portal.ErrNavigationFailed, err)
	}
	return html, true, nil
}

// openDetailSecondary rebuilds the listing in a fresh window, clicks the
// record there, and reads the resulting detail. The window is always
// closed, even on failure, so the portal never accumulates stray sessions.
func (s *Scraper) openDetailSecondary(ctx context.Context, rec portal.Record, cfg portal.CategoryConfig, q portal.Query) (string, error) {
	var html string

	err := s.withSecondaryPage(ctx, func(p *rod.Page) error {
		target := s.mainMenuURL
		if target == "" {
			target = s.baseURL
		}
		if err := p.Timeout(s.timeout).Navigate(target); err != nil {
			return fmt.Errorf("%w: open portal in secondary window: %v", portal.ErrNavigationFailed, err)
		}
		if err := p.Timeout(s.timeout).WaitLoad(); err != nil {
			s.logger.Debug("secondary window load wait ended early", "error", err)
		}

		sframe, err := s.EnterQueryFrame(p)
		if err != nil {
			return err
		}
		if err := s.OpenCategory(sframe, cfg); err != nil {
			return err
		}
		if err := s.SubmitQuery(sframe, cfg.DateShape, q); err != nil {
			return err
		}

		if _, err := relocateRecord(sframe, rec, true); err != nil {
			return err
		}
		time.Sleep(PageLoadWait)

		html, err = sframe.HTML()
		if err != nil {
			return fmt.Errorf("%w: read detail page: %v", portal.ErrNavigationFailed, err)
		}
		return nil
	})

	return html, err
}

// withSecondaryPage runs fn inside a fresh page sharing the session's
// cookies, and always closes it.
func (s *Scraper) withSecondaryPage(ctx context.Context, fn func(*rod.Page) error) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("%w: open secondary window: %v", portal.ErrNavigationFailed, err)
	}
	defer func() { _ = page.Close() }()

	watchAlerts(page)
	return fn(page.Context(ctx))
}
