package wedi

import (
	"strings"
	"testing"

	"github.com/chiehwen/wedi-export/internal/scraper/portal"
	"github.com/chiehwen/wedi-export/internal/scraper/portal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPayload_EmbeddedBlob(t *testing.T) {
	html := testutil.LoadFixture(t, "wedi", "detail_blob")

	payload, err := ExtractPayload(html)

	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, portal.SourceEmbeddedJSON, payload.Source)
	assert.Equal(t, "匯款明細_4250012345", payload.SuggestedFilenameFragment)

	want := [][]string{
		{"託運單號", "日期", "代收金額"},
		{"T550019283", "20240608", "1200"},
		{"T550019311", "20240608", "860"},
	}
	assert.Equal(t, want, payload.Rows)
	assert.True(t, payload.Valid())
}

func TestExtractPayload_EmbeddedWinsOverTable(t *testing.T) {
	// The page has both an export blob and a larger rendered table; the
	// blob is authoritative.
	html := `<html><body>
		<button data-fileblob='{"data":[["H"],["A"]],"fileName":"x"}'>匯出</button>
		<table>
			<tr><td>c1</td><td>c2</td></tr>
			<tr><td>c3</td><td>c4</td></tr>
			<tr><td>c5</td><td>c6</td></tr>
			<tr><td>c7</td><td>c8</td></tr>
		</table>
	</body></html>`

	payload, err := ExtractPayload(html)

	require.NoError(t, err)
	assert.Equal(t, portal.SourceEmbeddedJSON, payload.Source)
	assert.Equal(t, [][]string{{"H"}, {"A"}}, payload.Rows)
	assert.Equal(t, "x", payload.SuggestedFilenameFragment)
}

func TestExtractPayload_BlobOnNonButtonElement(t *testing.T) {
	html := `<html><body><div data-fileblob='{"data":[["h"],["1"]]}'></div></body></html>`

	payload, err := ExtractPayload(html)

	require.NoError(t, err)
	assert.Equal(t, portal.SourceEmbeddedJSON, payload.Source)
	assert.Len(t, payload.Rows, 2)
}

func TestExtractPayload_NumericAndNullCells(t *testing.T) {
	html := `<html><body><button data-fileblob='{"data":[["單號","金額","備註"],["T1",1200.50,null]]}'>x</button></body></html>`

	payload, err := ExtractPayload(html)

	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"單號", "金額", "備註"},
		{"T1", "1200.50", ""},
	}, payload.Rows)
}

func TestExtractPayload_BrokenBlobs(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		wantErr error
	}{
		{
			name:    "empty attribute",
			html:    `<button data-fileblob="">x</button>`,
			wantErr: portal.ErrEmptyPayload,
		},
		{
			name:    "whitespace attribute",
			html:    `<button data-fileblob="   ">x</button>`,
			wantErr: portal.ErrEmptyPayload,
		},
		{
			name:    "invalid json",
			html:    `<button data-fileblob='{"data": [[broken'>x</button>`,
			wantErr: portal.ErrMalformedPayload,
		},
		{
			name:    "empty data array",
			html:    `<button data-fileblob='{"data":[],"fileName":"x"}'>x</button>`,
			wantErr: portal.ErrNoDataRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ExtractPayload("<html><body>" + tt.html + "</body></html>")

			assert.Nil(t, payload)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractPayload_MalformedBlobKeepsRawPrefix(t *testing.T) {
	html := `<html><body><button data-fileblob='{"data": [[BROKEN_MARKER'>x</button></body></html>`

	_, err := ExtractPayload(html)

	require.ErrorIs(t, err, portal.ErrMalformedPayload)
	assert.Contains(t, err.Error(), "BROKEN_MARKER")
}

func TestExtractPayload_NoBlobFallsBackToTable(t *testing.T) {
	html := testutil.LoadFixture(t, "wedi", "detail_table")

	payload, err := ExtractPayload(html)

	require.NoError(t, err)
	assert.Equal(t, portal.SourceRenderedTable, payload.Source)
	assert.Empty(t, payload.SuggestedFilenameFragment)

	require.Len(t, payload.Rows, 4)
	assert.Equal(t, []string{"託運單號", "發送日", "件數", "運費"}, payload.Rows[0])
	// Non-breaking spaces around the amounts are normalized away.
	assert.Equal(t, "540", payload.Rows[1][3])
	assert.Equal(t, "180", payload.Rows[2][3])
}

func TestExtractRenderedTable_PicksLargestTable(t *testing.T) {
	html := `<html><body>
		<table><tr><td>small</td></tr><tr><td>table</td></tr></table>
		<table>
			<tr><th>h1</th><th>h2</th></tr>
			<tr><td>a1</td><td>a2</td></tr>
			<tr><td>b1</td><td></td></tr>
		</table>
	</body></html>`

	payload, err := ExtractRenderedTable(html)

	require.NoError(t, err)
	require.Len(t, payload.Rows, 3)
	assert.Equal(t, []string{"h1", "h2"}, payload.Rows[0])
	// Sparse cells keep their position.
	assert.Equal(t, []string{"b1", ""}, payload.Rows[2])
}

func TestExtractRenderedTable_TooSmall(t *testing.T) {
	html := `<html><body><table><tr><td>only row</td></tr></table></body></html>`

	_, err := ExtractRenderedTable(html)

	assert.ErrorIs(t, err, portal.ErrNoDataRows)
}

func TestExtractRenderedTable_NoTable(t *testing.T) {
	html := `<html><body><p>查無資料</p></body></html>`

	_, err := ExtractRenderedTable(html)

	assert.ErrorIs(t, err, portal.ErrParsingFailed)
}

func TestNormalizeCellText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "entity nbsp",
			input: "540&nbsp;",
			want:  "540",
		},
		{
			name:  "unicode nbsp run",
			input: "  運費 明細 ",
			want:  "運費 明細",
		},
		{
			name:  "whitespace runs collapse",
			input: "  a \t b\n\nc  ",
			want:  "a b c",
		},
		{
			name:  "already clean",
			input: "AB12345678",
			want:  "AB12345678",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeCellText(tt.input)

			assert.Equal(t, tt.want, got)
			// Normalization is idempotent.
			assert.Equal(t, got, normalizeCellText(got))
		})
	}
}

func TestCleanFilenameHint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"placeholder", "Excel", ""},
		{"placeholder with extension", "Excel.xlsx", ""},
		{"lowercase placeholder", "excel", ""},
		{"real name with extension", "匯款明細_4250012345.xlsx", "匯款明細_4250012345"},
		{"csv extension", "report.csv", "report"},
		{"plain name", "匯款明細", "匯款明細"},
		{"empty", "", ""},
		{"whitespace", "  x  ", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanFilenameHint(tt.input))
		})
	}
}

func TestExtractPayload_BlobPrefixTruncation(t *testing.T) {
	longTail := strings.Repeat("A", 2000)
	html := `<html><body><button data-fileblob='{"data": [[` + longTail + `'>x</button></body></html>`

	_, err := ExtractPayload(html)

	require.ErrorIs(t, err, portal.ErrMalformedPayload)
	// The diagnostic prefix is bounded, not the whole attribute.
	assert.Less(t, len(err.Error()), 1000)
}
