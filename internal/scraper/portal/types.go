package portal

import "time"

type Session struct {
	ID        string
	Category  Category
	StartedAt time.Time
}

// Record is a candidate entry discovered on a listing page. Records are
// rebuilt on every page scan and discarded once their export completes or
// fails; the Hint is what re-finds the element later, never a retained DOM
// handle.
type Record struct {
	DisplayTitle  string
	RecordID      string
	SecondaryDate string // optional 8-digit date recovered from an adjacent cell
	Hint          LocatorHint
}

// LocatorHint carries enough information to re-locate a record's clickable
// element after the listing DOM has been rebuilt.
type LocatorHint struct {
	AnchorText string
	Href       string
	OnClick    string
	TableIndex int
	RowIndex   int
	CellIndex  int
}

// PayloadSource identifies which extraction strategy produced a payload.
type PayloadSource string

const (
	SourceEmbeddedJSON  PayloadSource = "embedded_json"
	SourceRenderedTable PayloadSource = "rendered_table"
)

// ExportPayload is the normalized tabular result of the extraction step.
// Rows holds the header row first. An empty Rows slice means the extraction
// failed; it is never a zero-row success.
type ExportPayload struct {
	Rows                      [][]string
	SuggestedFilenameFragment string
	Source                    PayloadSource
}

func (p *ExportPayload) Valid() bool {
	return len(p.Rows) > 0
}

// SpreadsheetArtifact describes one written spreadsheet file.
type SpreadsheetArtifact struct {
	Path        string
	RowCount    int
	ColumnCount int
	ByteSize    int64
}

// AccountRunResult aggregates one account's outcome. It is assembled by the
// orchestration loop from the pipeline's return values.
type AccountRunResult struct {
	Username        string   `json:"username"`
	Success         bool     `json:"success"`
	DownloadedPaths []string `json:"downloads"`
	Error           string   `json:"error,omitempty"`
}

// Query holds pre-formatted date bounds for a category query: YYYYMMDD for
// daily ranges, YYYYMM for month ranges. End-only shapes leave Start empty.
type Query struct {
	Start string
	End   string
}
