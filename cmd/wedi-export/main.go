// Command wedi-export walks every configured portal account, discovers the
// records in a category's query window, and exports each one to .xlsx.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chiehwen/wedi-export/internal/accounts"
	"github.com/chiehwen/wedi-export/internal/logging"
	"github.com/chiehwen/wedi-export/internal/scraper/portal"
	"github.com/chiehwen/wedi-export/internal/scraper/portal/wedi"
	"github.com/chiehwen/wedi-export/internal/spreadsheet"
)

var (
	flagAccounts    string
	flagDownloadDir string
	flagReports     string
	flagLogLevel    string
	flagLogFormat   string
	flagHeadless    bool
	flagBrowserBin  string
	flagBaseURL     string
	flagTimeout     time.Duration

	flagStart string
	flagEnd   string
)

var rootCmd = &cobra.Command{
	Use:           "wedi-export",
	Short:         "Export freight records from the WEDI portal",
	Long:          "wedi-export logs in to the WEDI freight portal for every configured account,\nqueries a record category, and exports each discovered record to a spreadsheet.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Export collected-payment remittance details (daily range)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCategory(cmd, portal.CategoryPayment, portal.Query{Start: flagStart, End: flagEnd})
	},
}

var freightCmd = &cobra.Command{
	Use:   "freight",
	Short: "Export monthly freight invoice details (month range)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCategory(cmd, portal.CategoryFreight, portal.Query{Start: flagStart, End: flagEnd})
	},
}

var unpaidCmd = &cobra.Command{
	Use:   "unpaid",
	Short: "Export unbilled freight as of a cutoff date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCategory(cmd, portal.CategoryUnpaid, portal.Query{End: flagEnd})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAccounts, "accounts", "accounts.json", "path to the account roster file")
	rootCmd.PersistentFlags().StringVar(&flagDownloadDir, "download-dir", "", "download directory (default downloads/<category>)")
	rootCmd.PersistentFlags().StringVar(&flagReports, "reports", "reports", "directory for run reports")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "json", "log format: json or text")
	rootCmd.PersistentFlags().BoolVar(&flagHeadless, "headless", true, "run the browser headless")
	rootCmd.PersistentFlags().StringVar(&flagBrowserBin, "browser", "", "path to a Chrome/Chromium binary")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "portal entry URL override")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", wedi.DefaultWait, "element and navigation wait budget")

	paymentCmd.Flags().StringVar(&flagStart, "start-date", "", "range start, YYYYMMDD (default: 7 days ago)")
	paymentCmd.Flags().StringVar(&flagEnd, "end-date", "", "range end, YYYYMMDD (default: today)")

	freightCmd.Flags().StringVar(&flagStart, "start-month", "", "range start, YYYYMM (default: previous month)")
	freightCmd.Flags().StringVar(&flagEnd, "end-month", "", "range end, YYYYMM (default: previous month)")

	unpaidCmd.Flags().StringVar(&flagEnd, "end-date", "", "cutoff date, YYYYMMDD (default: today)")

	rootCmd.AddCommand(paymentCmd, freightCmd, unpaidCmd)
}

func runCategory(cmd *cobra.Command, category portal.Category, query portal.Query) error {
	logger := logging.New(flagLogLevel, flagLogFormat)

	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded environment from .env")
	}

	cfg, err := portal.ConfigFor(category)
	if err != nil {
		return err
	}
	// Reject malformed dates before a browser ever starts.
	if err := portal.ValidateQuery(cfg.DateShape, query); err != nil {
		return err
	}

	accountsPath := resolve(cmd, "accounts", flagAccounts, "WEDI_ACCOUNTS_FILE", flagAccounts)
	roster, err := accounts.Load(accountsPath)
	if err != nil {
		return err
	}

	baseURL := resolve(cmd, "base-url", flagBaseURL, "WEDI_BASE_URL", "")
	browserBin := resolve(cmd, "browser", flagBrowserBin, "WEDI_BROWSER_BIN", roster.Settings.BrowserBin)
	outputDir := outputDirFor(cmd, category, roster.Settings)

	headless := roster.Settings.HeadlessEnabled()
	if cmd.Flags().Changed("headless") {
		headless = flagHeadless
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting roster run",
		"category", category, "accounts", len(roster.Enabled()), "output_dir", outputDir)

	writer := spreadsheet.NewWriter(logger)
	manager := accounts.NewManager(logger)

	report := manager.RunAll(ctx, roster.Accounts, func(ctx context.Context, acct accounts.Account) ([]string, error) {
		opts := []wedi.ScraperOption{
			wedi.WithHeadless(headless),
			wedi.WithTimeout(flagTimeout),
		}
		if baseURL != "" {
			opts = append(opts, wedi.WithBaseURL(baseURL))
		}
		if browserBin != "" {
			opts = append(opts, wedi.WithBrowserBin(browserBin))
		}

		scraper, err := wedi.NewScraper(logger.With("username", acct.Username), opts...)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := scraper.Close(); cerr != nil {
				logger.Warn("browser close failed", "username", acct.Username, "error", cerr)
			}
		}()

		pipeline := wedi.NewPipeline(scraper, writer, logger.With("username", acct.Username))
		artifacts, err := pipeline.Run(ctx, wedi.RunParams{
			Username:  acct.Username,
			Password:  acct.Password,
			Category:  category,
			Query:     query,
			OutputDir: outputDir,
		})

		paths := make([]string, 0, len(artifacts))
		for _, a := range artifacts {
			paths = append(paths, a.Path)
		}
		return paths, err
	})
	report.Category = string(category)

	reportPath, err := accounts.WriteReport(flagReports, report)
	if err != nil {
		logger.Error("run report not written", "error", err)
	} else {
		logger.Info("run report written", "path", reportPath)
	}

	logger.Info("roster run finished",
		"succeeded", report.Succeeded, "failed", report.Failed, "skipped", report.Skipped)

	if report.Failed > 0 && report.Succeeded == 0 {
		return errors.New("all account runs failed")
	}
	return nil
}

// resolve picks a setting with flag > environment > fallback precedence.
// The flag only wins when the user actually set it.
func resolve(cmd *cobra.Command, flagName, flagValue, envName, fallback string) string {
	if cmd.Flags().Changed(flagName) {
		return flagValue
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return flagValue
}

// outputDirFor resolves the download directory: explicit flag, then the
// category's own env var, then the shared base (env or roster settings)
// with a per-category subdirectory.
func outputDirFor(cmd *cobra.Command, category portal.Category, settings accounts.Settings) string {
	if cmd.Flags().Changed("download-dir") {
		return flagDownloadDir
	}

	categoryEnv := string(category) + "_DOWNLOAD_DIR"
	if v := os.Getenv(categoryEnv); v != "" {
		return v
	}

	base := os.Getenv("WEDI_DOWNLOAD_DIR")
	if base == "" {
		base = settings.DownloadBaseDir
	}
	if base == "" {
		base = "downloads"
	}
	return filepath.Join(base, strings.ToLower(string(category)))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
