package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerRunAll_IsolatesFailures(t *testing.T) {
	m := NewManager(testLogger(), WithPause(0))
	accts := []Account{
		{Username: "first", Password: "x"},
		{Username: "second", Password: "x"},
		{Username: "third", Password: "x"},
	}

	var ran []string
	report := m.RunAll(context.Background(), accts, func(_ context.Context, acct Account) ([]string, error) {
		ran = append(ran, acct.Username)
		if acct.Username == "second" {
			return nil, errors.New("login blew up")
		}
		return []string{"downloads/" + acct.Username + ".xlsx"}, nil
	})

	assert.Equal(t, []string{"first", "second", "third"}, ran,
		"a failed account must not stop the ones after it")
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	require.Len(t, report.Results, 3)
	assert.True(t, report.Results[0].Success)
	assert.False(t, report.Results[1].Success)
	assert.Contains(t, report.Results[1].Error, "login blew up")
	assert.Equal(t, []string{"downloads/third.xlsx"}, report.Results[2].DownloadedPaths)
}

func TestManagerRunAll_SkipsDisabled(t *testing.T) {
	disabled := false
	m := NewManager(testLogger(), WithPause(0))
	accts := []Account{
		{Username: "on", Password: "x"},
		{Username: "off", Password: "x", Enabled: &disabled},
	}

	var ran []string
	report := m.RunAll(context.Background(), accts, func(_ context.Context, acct Account) ([]string, error) {
		ran = append(ran, acct.Username)
		return nil, nil
	})

	assert.Equal(t, []string{"on"}, ran)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, report.Results, 1, "disabled accounts get no result entry")
}

func TestManagerRunAll_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(testLogger(), WithPause(0))
	accts := []Account{
		{Username: "first", Password: "x"},
		{Username: "second", Password: "x"},
	}

	var ran []string
	report := m.RunAll(ctx, accts, func(_ context.Context, acct Account) ([]string, error) {
		ran = append(ran, acct.Username)
		cancel()
		return nil, nil
	})

	assert.Equal(t, []string{"first"}, ran, "cancellation stops before the next account")
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(testLogger(), WithPause(0))

	report := m.RunAll(context.Background(), []Account{{Username: "acct", Password: "x"}},
		func(_ context.Context, _ Account) ([]string, error) {
			return []string{"downloads/acct.xlsx"}, nil
		})
	report.Category = "PAYMENT"

	path, err := WriteReport(dir, report)
	require.NoError(t, err)
	assert.Contains(t, path, report.StartedAt.Format("20060102-150405"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded RunReport
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, report.RunID, loaded.RunID)
	assert.Equal(t, "PAYMENT", loaded.Category)
	require.Len(t, loaded.Results, 1)
	assert.Equal(t, "acct", loaded.Results[0].Username)
	assert.Equal(t, []string{"downloads/acct.xlsx"}, loaded.Results[0].DownloadedPaths)
}
