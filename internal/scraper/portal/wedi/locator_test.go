package wedi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/chiehwen/wedi-export/internal/scraper/portal"
	"github.com/chiehwen/wedi-export/internal/scraper/portal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger discards output; discovery logging is exercised but not asserted.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paymentConfig(t *testing.T) portal.CategoryConfig {
	t.Helper()
	cfg, err := portal.ConfigFor(portal.CategoryPayment)
	require.NoError(t, err)
	return cfg
}

func freightConfig(t *testing.T) portal.CategoryConfig {
	t.Helper()
	cfg, err := portal.ConfigFor(portal.CategoryFreight)
	require.NoError(t, err)
	return cfg
}

func TestIsCandidateIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{
			name:  "invoice number with letters and digits",
			input: "INV12345678",
			want:  true,
		},
		{
			name:  "exactly 8 runes is too short",
			input: "INV12345",
			want:  false,
		},
		{
			name:  "9 runes is long enough",
			input: "INV123456",
			want:  true,
		},
		{
			name:  "all digits",
			input: "5081794210",
			want:  false,
		},
		{
			name:  "all letters",
			input: "INVOICENUMBER",
			want:  false,
		},
		{
			name:  "identifier with CJK suffix",
			input: "AB1234567黑貓",
			want:  false,
		},
		{
			name:  "header label",
			input: "發票號碼",
			want:  false,
		},
		{
			name:  "customer code digits hyphen name",
			input: "123456789-大立通運",
			want:  false,
		},
		{
			name:  "empty string",
			input: "",
			want:  false,
		},
		{
			name:  "identifier with hyphen but no CJK",
			input: "AB12345-678",
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCandidateIdentifier(tt.input))
		})
	}
}

func TestDiscoverRecords_LetterBearingCellWins(t *testing.T) {
	// One header row and one data row; the second cell is all digits and
	// must be rejected, the third has digits and letters and must win.
	html := `<html><body><table>
		<tr><th>日期</th><th>匯款編號</th><th>發票號碼</th></tr>
		<tr><td>20240601</td><td>5081794210</td><td><a href="detail.asp?no=INV12345678">INV12345678</a></td></tr>
	</table></body></html>`

	records, err := DiscoverRecords(html, paymentConfig(t), testLogger())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "INV12345678", records[0].RecordID)
	assert.Equal(t, "INV12345678", records[0].DisplayTitle)
	assert.Equal(t, "detail.asp?no=INV12345678", records[0].Hint.Href)
	assert.Equal(t, 0, records[0].Hint.TableIndex)
	assert.Equal(t, 1, records[0].Hint.RowIndex)
	assert.Equal(t, 2, records[0].Hint.CellIndex)
}

func TestDiscoverRecords_StrategyPrecedence(t *testing.T) {
	// The table cell scan finds one record, so the anchor scan must not
	// contribute the prefix-matching anchor outside the table.
	html := `<html><body>
		<table><tr><td>INV12345678</td><td>20240601</td></tr><tr><td>x</td><td>y</td></tr></table>
		<a href="javascript:showDetail('4250012345')">4250012345</a>
	</body></html>`

	records, err := DiscoverRecords(html, paymentConfig(t), testLogger())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "INV12345678", records[0].RecordID)
}

func TestDiscoverRecords_DateRecovery(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		wantDate string
	}{
		{
			name:     "date in previous cell",
			html:     `<table><tr><td>20240501</td><td>AB12345678</td></tr></table>`,
			wantDate: "20240501",
		},
		{
			name:     "date in next cell",
			html:     `<table><tr><td>AB12345678</td><td>20240502</td></tr></table>`,
			wantDate: "20240502",
		},
		{
			name:     "no adjacent date",
			html:     `<table><tr><td>客戶</td><td>AB12345678</td><td>128,400</td></tr></table>`,
			wantDate: "",
		},
		{
			name:     "seven digit neighbor is not a date",
			html:     `<table><tr><td>2024050</td><td>AB12345678</td></tr></table>`,
			wantDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DiscoverRecords(tt.html, freightConfig(t), testLogger())

			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.wantDate, records[0].SecondaryDate)
		})
	}
}

func TestDiscoverRecords_ClickTargetPreference(t *testing.T) {
	t.Run("anchor inside the cell", func(t *testing.T) {
		html := `<table><tr><td><a href="a.asp" onclick="go()">AB12345678</a></td><td><a href="b.asp">其他</a></td></tr></table>`

		records, err := DiscoverRecords(html, freightConfig(t), testLogger())

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "a.asp", records[0].Hint.Href)
		assert.Equal(t, "go()", records[0].Hint.OnClick)
	})

	t.Run("anchor elsewhere in the row", func(t *testing.T) {
		html := `<table><tr><td>AB12345678</td><td><a href="row.asp">明細</a></td></tr></table>`

		records, err := DiscoverRecords(html, freightConfig(t), testLogger())

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "row.asp", records[0].Hint.Href)
	})

	t.Run("no anchor keeps the table position", func(t *testing.T) {
		html := `<table><tr><td>x</td></tr></table><table><tr><td>h</td></tr><tr><td>skip</td><td>AB12345678</td></tr></table>`

		records, err := DiscoverRecords(html, freightConfig(t), testLogger())

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Empty(t, records[0].Hint.Href)
		assert.Empty(t, records[0].Hint.AnchorText)
		assert.Equal(t, 1, records[0].Hint.TableIndex)
		assert.Equal(t, 1, records[0].Hint.RowIndex)
		assert.Equal(t, 1, records[0].Hint.CellIndex)
	})
}

func TestDiscoverRecords_PaymentListing(t *testing.T) {
	html := testutil.LoadFixture(t, "wedi", "payment_listing")

	records, err := DiscoverRecords(html, paymentConfig(t), testLogger())

	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "4250012345", records[0].RecordID)
	assert.Equal(t, "javascript:showDetail('4250012345')", records[0].Hint.Href)
	assert.Equal(t, "4250067890", records[1].RecordID)

	// Navigation chrome must never surface as a record.
	for _, r := range records {
		assert.NotContains(t, r.DisplayTitle, "登出")
		assert.NotContains(t, r.DisplayTitle, "語音取件")
	}
}

func TestDiscoverRecords_FreightListing(t *testing.T) {
	html := testutil.LoadFixture(t, "wedi", "freight_listing")

	records, err := DiscoverRecords(html, freightConfig(t), testLogger())

	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "AB12345678", records[0].RecordID)
	assert.Equal(t, "20240501", records[0].SecondaryDate)
	assert.Equal(t, "wediinv.asp?no=AB12345678", records[0].Hint.Href)

	assert.Equal(t, "AB12345679", records[1].RecordID)
	assert.Equal(t, "20240501", records[1].SecondaryDate)
}

func TestDiscoverRecords_ExclusionPrecedence(t *testing.T) {
	// The anchor matches the freight keyword group but also carries a
	// company-name exclusion, which wins.
	html := `<html><body>
		<a href="x.asp">運費月結-大立通運股份有限公司</a>
		<a href="y.asp">運費月結清單2024</a>
	</body></html>`

	records, err := DiscoverRecords(html, freightConfig(t), testLogger())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "運費月結清單2024", records[0].RecordID)
}

func TestDiscoverRecords_DuplicateAnchorsCollapse(t *testing.T) {
	html := `<html><body>
		<a href="javascript:showDetail('4250012345')">4250012345</a>
		<a href="javascript:showDetail('4250012345')">4250012345</a>
	</body></html>`

	records, err := DiscoverRecords(html, paymentConfig(t), testLogger())

	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDiscoverRecords_NothingToExport(t *testing.T) {
	// Keyword-bearing cells without any identifier are a valid empty
	// result, not an error.
	html := `<html><body><table>
		<tr><td>代收貨款匯款明細</td></tr>
		<tr><td>查無資料</td></tr>
	</table></body></html>`

	records, err := DiscoverRecords(html, paymentConfig(t), testLogger())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDiscoverRecords_InvalidHTML(t *testing.T) {
	// goquery tolerates malformed markup, so even garbage yields an empty
	// result rather than a parse error.
	records, err := DiscoverRecords("<<<not html>>>", paymentConfig(t), testLogger())

	require.NoError(t, err)
	assert.Empty(t, records)
}
