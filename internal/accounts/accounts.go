// Package accounts loads the account roster and runs the export pipeline
// across it, one account at a time.
package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Account is one portal login. Enabled defaults to true when omitted so a
// roster entry only needs username and password.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

func (a Account) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Settings carries run-wide knobs from the roster file. CLI flags and
// environment variables override these.
type Settings struct {
	Headless        *bool  `json:"headless,omitempty"`
	DownloadBaseDir string `json:"download_base_dir,omitempty"`
	BrowserBin      string `json:"browser_bin,omitempty"`
}

func (s Settings) HeadlessEnabled() bool {
	return s.Headless == nil || *s.Headless
}

// Config is the parsed roster file.
type Config struct {
	Accounts []Account `json:"accounts"`
	Settings Settings  `json:"settings"`
}

// Load reads and validates a roster file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid accounts file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the roster for entries the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}

	seen := make(map[string]struct{}, len(c.Accounts))
	for i, acct := range c.Accounts {
		username := strings.TrimSpace(acct.Username)
		if username == "" {
			return fmt.Errorf("account %d: username is empty", i)
		}
		if acct.Password == "" {
			return fmt.Errorf("account %q: password is empty", username)
		}
		if _, dup := seen[username]; dup {
			return fmt.Errorf("account %q: duplicate username", username)
		}
		seen[username] = struct{}{}
	}
	return nil
}

// Enabled returns the accounts that should run, in roster order.
func (c *Config) Enabled() []Account {
	var out []Account
	for _, acct := range c.Accounts {
		if acct.IsEnabled() {
			out = append(out, acct)
		}
	}
	return out
}
