package wedi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageMentionsCategory(t *testing.T) {
	cfg := paymentConfig(t)

	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			name: "body carries first keyword group",
			html: `<html><body><h3>代收貨款匯款明細查詢</h3><table><tr><td>4250012345</td></tr></table></body></html>`,
			want: true,
		},
		{
			name: "body carries the numbered menu code",
			html: `<html><body><p>(2-1) 貨款查詢</p></body></html>`,
			want: true,
		},
		{
			name: "keywords split across elements still count",
			html: `<html><body><span>代收貨款</span><div><span>匯款明細</span></div></body></html>`,
			want: true,
		},
		{
			name: "unrelated page",
			html: `<html><body><p>系統維護中，請稍後再試</p></body></html>`,
			want: false,
		},
		{
			name: "only half a keyword group",
			html: `<html><body><p>代收貨款作業說明</p></body></html>`,
			want: false,
		},
		{
			name: "empty body",
			html: `<html><body></body></html>`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageMentionsCategory(tt.html, cfg))
		})
	}
}

func TestPageMentionsCategoryFreight(t *testing.T) {
	cfg := freightConfig(t)

	require.True(t, pageMentionsCategory(
		`<html><body><h3>運費月結發票查詢</h3></body></html>`, cfg))
	assert.False(t, pageMentionsCategory(
		`<html><body><h3>代收貨款匯款明細</h3></body></html>`, cfg))
}
