package wedi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiehwen/wedi-export/internal/scraper/portal"
	"github.com/chiehwen/wedi-export/internal/scraper/testutil"
)

// TestMode
type TestMode string

const (
	TestModeMock   TestMode = "mock"   // Use static fixtures
	TestModeReplay TestMode = "replay" // Replay recorded sessions
	TestModeLive   TestMode = "live"   // Hit the real portal (dangerous!)
)

func getTestMode() TestMode {
	mode := os.Getenv("SCRAPER_TEST_MODE")
	if mode == "" {
		return TestModeMock
	}
	return TestMode(mode)
}

// skipUnlessMode skips test if not in specified mode
func skipUnlessMode(t *testing.T, required TestMode) {
	if getTestMode() != required {
		t.Skipf("Skipping: requires SCRAPER_TEST_MODE=%s", required)
	}
}

func TestLogin_RejectsEmptyCredentials(t *testing.T) {
	s := &Scraper{logger: testLogger()}

	session, err := s.Login(context.Background(), "", "secret")
	require.Error(t, err)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, portal.ErrInvalidCredentials)

	session, err = s.Login(context.Background(), "0001234567", "")
	require.Error(t, err)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, portal.ErrInvalidCredentials)
}

// Integration test - runs only in replay/live mode
func TestScraper_Login_ReplaySuccess_Integration(t *testing.T) {
	skipUnlessMode(t, TestModeReplay)

	// Load recorded session
	harPath := filepath.Join("testdata", "recordings", "login-success.har.json")
	if _, err := os.Stat(harPath); os.IsNotExist(err) {
		t.Skipf("Recording not found: %s\n", harPath)
	}

	har := testutil.MustLoadHAR(t, harPath)
	replayer := testutil.NewReplayer(har, testutil.WithVerbose(true))

	t.Logf("Loaded HAR with %d entries", len(har.Entries))
	stats := replayer.Stats()
	t.Logf("Replayer stats: exact=%d, path=%d", stats["exact_matches"], stats["path_matches"])

	// Create scraper with replay hijacker
	scraper, err := NewScraper(testLogger(),
		WithHijacker(replayer.Middleware()),
		WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	defer func() { _ = scraper.Close() }()

	// Test login (credentials don't matter in replay mode)
	ctx := context.Background()
	session, err := scraper.Login(ctx, "test-user", "test-password")

	require.NoError(t, err, "Login should succeed with recorded session")
	assert.NotEmpty(t, session.ID, "Session ID should be set")
	assert.False(t, session.StartedAt.IsZero(), "Session start time should be set")
}

func TestScraper_Login_ReplayCaptchaRejected_Integration(t *testing.T) {
	skipUnlessMode(t, TestModeReplay)

	// Load recorded rejection session
	harPath := filepath.Join("testdata", "recordings", "login-captcha-rejected.har.json")
	if _, err := os.Stat(harPath); os.IsNotExist(err) {
		t.Skipf("Recording not found: %s\n", harPath)
	}

	har := testutil.MustLoadHAR(t, harPath)
	replayer := testutil.NewReplayer(har)

	scraper, err := NewScraper(testLogger(),
		WithHijacker(replayer.Middleware()),
		WithTimeout(30*time.Second),
	)
	require.NoError(t, err)
	defer func() { _ = scraper.Close() }()

	ctx := context.Background()
	session, err := scraper.Login(ctx, "test-user", "test-password")

	require.Error(t, err, "Login should fail with recorded rejection session")
	assert.Nil(t, session, "Session should be nil on error")
	assert.ErrorIs(t, err, portal.ErrCaptchaRejected,
		"the recorded alert names the captcha, so the classified cause should survive the retries")
}
