package wedi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/chiehwen/wedi-export/internal/scraper/portal"
	"github.com/chiehwen/wedi-export/internal/spreadsheet"
)

// RunParams describes one account's export run for a single category.
type RunParams struct {
	Username  string
	Password  string
	Category  portal.Category
	Query     portal.Query
	OutputDir string
}

// Pipeline runs the full discovery and export flow on one scraper session.
type Pipeline struct {
	scraper *Scraper
	writer  *spreadsheet.Writer
	logger  *slog.Logger
}

func NewPipeline(scraper *Scraper, writer *spreadsheet.Writer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{scraper: scraper, writer: writer, logger: logger}
}

// Run logs in, opens the category listing for the resolved query window,
// and exports every discovered record to a spreadsheet. Individual record
// failures are logged and skipped; the run keeps going so one broken
// detail page cannot sink the rest. Failures before the record loop fail
// the whole run.
func (p *Pipeline) Run(ctx context.Context, params RunParams) ([]portal.SpreadsheetArtifact, error) {
	cfg, err := portal.ConfigFor(params.Category)
	if err != nil {
		return nil, err
	}
	q, err := portal.ResolveQuery(cfg.DateShape, params.Query, time.Now())
	if err != nil {
		return nil, err
	}

	p.logger.Info("starting category run", "category", cfg.Category,
		"username", params.Username, "query_start", q.Start, "query_end", q.End)

	session, err := p.scraper.Login(ctx, params.Username, params.Password)
	if err != nil {
		return nil, p.fail(cfg.Category, "Login", err, params.Username)
	}
	session.Category = cfg.Category
	p.logger.Info("session established", "session_id", session.ID)

	frame, err := p.scraper.OpenListing(ctx, cfg, q)
	if err != nil {
		return nil, p.fail(cfg.Category, "OpenListing", err, fmt.Sprintf("query %s..%s", q.Start, q.End))
	}

	if cfg.SinglePage {
		return p.exportSinglePage(frame, cfg, q, params)
	}

	html, err := frame.HTML()
	if err != nil {
		return nil, p.fail(cfg.Category, "ReadListing", err, "")
	}
	records, err := DiscoverRecords(html, cfg, p.logger)
	if err != nil {
		return nil, p.fail(cfg.Category, "DiscoverRecords", err, "")
	}
	if len(records) == 0 {
		p.logger.Info("nothing to export", "category", cfg.Category)
		return nil, nil
	}

	var artifacts []portal.SpreadsheetArtifact
	dirty := false
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}

		// An in-place detail click navigated the frame away; rebuild the
		// listing with the same query before touching the next record.
		if dirty {
			frame, err = p.scraper.OpenListing(ctx, cfg, q)
			if err != nil {
				return artifacts, p.fail(cfg.Category, "RestoreListing", err, rec.RecordID)
			}
			dirty = false
		}

		artifact, navDirty, recErr := p.exportRecord(ctx, frame, rec, cfg, q, params)
		dirty = dirty || navDirty
		if recErr != nil {
			p.logger.Error("record export failed, continuing",
				"record_id", rec.RecordID, "index", i, "error", recErr)
			continue
		}
		artifacts = append(artifacts, *artifact)
	}

	p.logger.Info("category run complete", "category", cfg.Category,
		"discovered", len(records), "exported", len(artifacts))
	return artifacts, nil
}

func (p *Pipeline) exportRecord(ctx context.Context, frame *rod.Page, rec portal.Record, cfg portal.CategoryConfig, q portal.Query, params RunParams) (*portal.SpreadsheetArtifact, bool, error) {
	html, dirty, err := p.scraper.OpenDetail(ctx, frame, rec, cfg, q)
	if err != nil {
		return nil, dirty, err
	}

	payload, err := ExtractPayload(html)
	if err != nil {
		return nil, dirty, err
	}

	naming := spreadsheet.Naming{
		CategoryLabel: cfg.OutputLabel,
		Account:       params.Username,
		Date:          rec.SecondaryDate,
		Identifier:    rec.RecordID,
	}
	if payload.SuggestedFilenameFragment != "" {
		naming.Identifier = payload.SuggestedFilenameFragment
	}

	artifact, err := p.writer.Write(payload, naming, params.OutputDir)
	if err != nil {
		return nil, dirty, err
	}

	p.logger.Info("record exported", "record_id", rec.RecordID,
		"path", artifact.Path, "rows", artifact.RowCount, "source", payload.Source)
	return artifact, dirty, nil
}

// exportSinglePage handles categories whose listing IS the data: no
// per-record drill-down, the rendered table goes straight to one file
// named by the query's end date.
func (p *Pipeline) exportSinglePage(frame *rod.Page, cfg portal.CategoryConfig, q portal.Query, params RunParams) ([]portal.SpreadsheetArtifact, error) {
	html, err := frame.HTML()
	if err != nil {
		return nil, p.fail(cfg.Category, "ReadListing", err, "")
	}

	payload, err := ExtractRenderedTable(html)
	if err != nil {
		if errors.Is(err, portal.ErrNoDataRows) || errors.Is(err, portal.ErrParsingFailed) {
			p.logger.Info("nothing to export", "category", cfg.Category, "reason", err.Error())
			return nil, nil
		}
		return nil, p.fail(cfg.Category, "ExtractTable", err, "")
	}

	naming := spreadsheet.Naming{
		CategoryLabel: cfg.OutputLabel,
		Account:       params.Username,
		Identifier:    q.End,
	}
	artifact, err := p.writer.Write(payload, naming, params.OutputDir)
	if err != nil {
		return nil, p.fail(cfg.Category, "WriteSpreadsheet", err, "")
	}

	p.logger.Info("category exported", "category", cfg.Category,
		"path", artifact.Path, "rows", artifact.RowCount)
	return []portal.SpreadsheetArtifact{*artifact}, nil
}

func (p *Pipeline) fail(category portal.Category, op string, cause error, details string) error {
	err := &portal.PipelineError{
		Category:  category,
		Operation: op,
		Cause:     cause,
		Details:   details,
	}
	p.logger.Error("pipeline operation failed",
		"operation", op, "category", category, "error", cause, "details", details)
	return err
}
