// Package wedi implements the scraper, navigation, and export pipeline for
// the WEDI freight portal.
package wedi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"

	"github.com/chiehwen/wedi-export/internal/scraper/browser"
	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

// Scraper drives a single browser session against the portal. It is not
// safe for concurrent use; the orchestration layer runs one Scraper per
// account, sequentially.
type Scraper struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	router   *rod.HijackRouter
	page     *rod.Page
	alerts   *alertWatcher

	logger     *slog.Logger
	baseURL    string
	timeout    time.Duration
	headless   bool
	browserBin string
	hijacker   func(*rod.Hijack)

	// mainMenuURL is captured after a successful login so secondary
	// windows can re-enter the portal on the live session cookie.
	mainMenuURL string
}

type ScraperOption func(*Scraper)

// WithHijacker routes all browser requests through h. Used by replay tests
// to serve recorded responses instead of hitting the real portal.
func WithHijacker(h func(*rod.Hijack)) ScraperOption {
	return func(s *Scraper) { s.hijacker = h }
}

// WithTimeout bounds individual element and navigation waits.
func WithTimeout(d time.Duration) ScraperOption {
	return func(s *Scraper) { s.timeout = d }
}

// WithHeadless toggles headless mode. Headed runs help when diagnosing the
// portal's frame layout.
func WithHeadless(enabled bool) ScraperOption {
	return func(s *Scraper) { s.headless = enabled }
}

// WithBrowserBin points the launcher at a specific Chrome/Chromium binary
// instead of the one Rod downloads.
func WithBrowserBin(path string) ScraperOption {
	return func(s *Scraper) { s.browserBin = path }
}

// WithBaseURL overrides the portal entry point.
func WithBaseURL(rawURL string) ScraperOption {
	return func(s *Scraper) { s.baseURL = rawURL }
}

// NewScraper launches a browser and opens a stealth page ready for Login.
func NewScraper(logger *slog.Logger, opts ...ScraperOption) (*Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scraper{
		logger:   logger,
		baseURL:  DefaultBaseURL,
		timeout:  DefaultWait,
		headless: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	l := launcher.New().
		Headless(s.headless).
		Set("disable-blink-features", "AutomationControlled")
	if s.browserBin != "" {
		l = l.Bin(s.browserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %v", portal.ErrBrowserStart, err)
	}
	s.launcher = l

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("%w: connect: %v", portal.ErrBrowserStart, err)
	}
	s.browser = b

	if s.hijacker != nil {
		router := b.HijackRequests()
		if err := router.Add("*", "", s.hijacker); err != nil {
			_ = b.Close()
			l.Cleanup()
			return nil, fmt.Errorf("%w: hijack router: %v", portal.ErrBrowserStart, err)
		}
		go router.Run()
		s.router = router
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("%w: open page: %v", portal.ErrBrowserStart, err)
	}
	s.page = page
	s.alerts = watchAlerts(page)

	return s, nil
}

// Close releases the browser and any hijack router. Safe to call after a
// failed run.
func (s *Scraper) Close() error {
	var errs []error
	if s.router != nil {
		errs = append(errs, s.router.Stop())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

// Login authenticates with the portal. The portal rejects logins via
// synchronous JS alerts (wrong captcha, wrong password), so each attempt
// arms an alert watcher before submitting. Captcha rejections get a fresh
// attempt with the newly rendered code; credential rejections fail fast.
func (s *Scraper) Login(ctx context.Context, username, password string) (*portal.Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", portal.ErrInvalidCredentials)
	}

	page := s.page.Context(ctx)

	var lastErr error
	for attempt := 1; attempt <= MaxLoginAttempts; attempt++ {
		if attempt > 1 {
			s.logger.Info("retrying login", "attempt", attempt)
			time.Sleep(LoginRetryDelay)
		}

		err := s.attemptLogin(page, username, password)
		if err == nil {
			session := &portal.Session{
				ID:        uuid.NewString(),
				StartedAt: time.Now(),
			}
			s.logger.Info("login succeeded", "session_id", session.ID, "attempt", attempt)
			return session, nil
		}

		lastErr = err
		s.logger.Warn("login attempt failed", "attempt", attempt, "error", err)

		if errors.Is(err, portal.ErrInvalidCredentials) {
			// A wrong password never fixes itself; retrying just locks
			// the account faster.
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("login failed after retries: %w", lastErr)
}

func (s *Scraper) attemptLogin(page *rod.Page, username, password string) error {
	s.alerts.drain()

	if err := page.Timeout(s.timeout).Navigate(s.baseURL); err != nil {
		return fmt.Errorf("%w: open login page: %v", portal.ErrNavigationFailed, err)
	}
	if err := page.Timeout(s.timeout).WaitLoad(); err != nil {
		return fmt.Errorf("%w: login page load: %v", portal.ErrTimeout, err)
	}

	userEl, err := page.Timeout(s.timeout).Element(SelectorUserInput)
	if err != nil {
		return fmt.Errorf("%w: username field not found: %v", portal.ErrNavigationFailed, err)
	}
	if err := browser.ClearAndType(userEl, username); err != nil {
		return fmt.Errorf("%w: fill username: %v", portal.ErrLoginFailed, err)
	}

	passEl, err := page.Timeout(s.timeout).Element(SelectorPasswordInput)
	if err != nil {
		return fmt.Errorf("%w: password field not found: %v", portal.ErrNavigationFailed, err)
	}
	if err := browser.ClearAndType(passEl, password); err != nil {
		return fmt.Errorf("%w: fill password: %v", portal.ErrLoginFailed, err)
	}

	if err := s.fillCaptcha(page); err != nil {
		return err
	}

	submit, err := page.Timeout(s.timeout).Element(SelectorLoginSubmit)
	if err != nil {
		return fmt.Errorf("%w: submit button not found: %v", portal.ErrNavigationFailed, err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click submit: %v", portal.ErrLoginFailed, err)
	}

	// Rejections surface as a JS alert before any navigation happens.
	if msg := s.alerts.next(QuerySubmitWait); msg != "" {
		return ClassifyLoginAlert(msg)
	}

	if err := page.Timeout(s.timeout).WaitLoad(); err != nil {
		s.logger.Debug("post-login load wait ended early", "error", err)
	}

	info, err := page.Info()
	if err != nil {
		return fmt.Errorf("%w: read page info: %v", portal.ErrLoginFailed, err)
	}
	html, err := page.HTML()
	if err != nil {
		return fmt.Errorf("%w: read page html: %v", portal.ErrLoginFailed, err)
	}

	ok, reason := LoginVerdict(info.URL, html)
	s.logger.Debug("login verdict", "url", info.URL, "reason", reason)
	if !ok {
		return fmt.Errorf("%w: %s", portal.ErrLoginFailed, reason)
	}

	s.mainMenuURL = info.URL
	return nil
}

// fillCaptcha reads the code printed on the login page and types it into
// the captcha field. A missed code is not fatal here; the submit alert
// tells us and the next attempt gets a fresh page.
func (s *Scraper) fillCaptcha(page *rod.Page) error {
	html, err := page.HTML()
	if err != nil {
		return fmt.Errorf("%w: read login page: %v", portal.ErrLoginFailed, err)
	}

	code, err := ExtractCaptcha(html)
	if err != nil {
		s.logger.Warn("captcha code not detected, submitting without one", "error", err)
		return nil
	}

	captchaEl, err := page.Timeout(FrameSwitchWait).Element(SelectorCaptchaInput)
	if err != nil {
		s.logger.Debug("captcha input not present", "error", err)
		return nil
	}
	if err := browser.ClearAndType(captchaEl, code); err != nil {
		return fmt.Errorf("%w: fill captcha: %v", portal.ErrLoginFailed, err)
	}
	s.logger.Debug("captcha filled", "code", code)
	return nil
}

// alertWatcher accepts every JS dialog the portal opens and queues the
// messages. Without auto-accept a pending alert deadlocks all further CDP
// calls on the page.
type alertWatcher struct {
	texts chan string
}

func watchAlerts(page *rod.Page) *alertWatcher {
	w := &alertWatcher{texts: make(chan string, 8)}

	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(page)
		select {
		case w.texts <- e.Message:
		default:
		}
	})()

	return w
}

// next returns the first alert message observed within the window, or ""
// if none fires.
func (w *alertWatcher) next(window time.Duration) string {
	select {
	case text := <-w.texts:
		return text
	case <-time.After(window):
		return ""
	}
}

// drain discards messages left over from a previous attempt.
func (w *alertWatcher) drain() {
	for {
		select {
		case <-w.texts:
		default:
			return
		}
	}
}
