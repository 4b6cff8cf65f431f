package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIdentity_SameContentSameHash(t *testing.T) {
	a := NewIdentity("report.pdf", []byte("content"))
	b := NewIdentity("report.pdf", []byte("content"))
	c := NewIdentity("report.pdf", []byte("different"))
	d := NewIdentity("other.pdf", []byte("content"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	// 名前が異なれば内容が同じでも別ドキュメント
	assert.False(t, a.Equal(d))
	assert.Len(t, a.Hash, 64)
}

// TestJoinPages は空ページのスキップと区切りの挿入をテストします
func TestJoinPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []Page
		want  string
	}{
		{
			name:  "empty slice",
			pages: nil,
			want:  "",
		},
		{
			name: "single page trimmed",
			pages: []Page{
				{Number: 1, Text: "  hello  \n"},
			},
			want: "hello",
		},
		{
			name: "blank pages skipped",
			pages: []Page{
				{Number: 1, Text: "first"},
				{Number: 2, Text: "   \n\t"},
				{Number: 3, Text: "third"},
			},
			want: "first\n\nthird",
		},
		{
			name: "all pages blank",
			pages: []Page{
				{Number: 1, Text: ""},
				{Number: 2, Text: "  "},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinPages(tt.pages))
		})
	}
}
