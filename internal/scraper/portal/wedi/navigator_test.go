package wedi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseIdentifier(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "plain number unchanged", id: "4250012345", want: "4250012345"},
		{name: "sub-item suffix stripped", id: "4250012345-2", want: "4250012345"},
		{name: "only first segment kept", id: "AB12-34-56", want: "AB12"},
		{name: "invoice number unchanged", id: "AB12345678", want: "AB12345678"},
		{name: "empty stays empty", id: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, baseIdentifier(tt.id))
		})
	}
}

func TestIsScriptHref(t *testing.T) {
	tests := []struct {
		name string
		href string
		want bool
	}{
		{name: "javascript call", href: "javascript:showDetail('4250012345')", want: true},
		{name: "mixed case scheme", href: "JavaScript:void(0)", want: true},
		{name: "leading whitespace", href: "  javascript:submitForm()", want: true},
		{name: "relative page link", href: "wediinv.asp?no=AB12345678", want: false},
		{name: "absolute link", href: "http://example.com/detail", want: false},
		{name: "empty href", href: "", want: false},
		{name: "anchor only", href: "#top", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isScriptHref(tt.href))
		})
	}
}
