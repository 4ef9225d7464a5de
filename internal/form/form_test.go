package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDeferredSrc(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "protocol relative",
			html: `<iframe id="sweepwidget-embed" data-src="//sweepwidget.com/view/84321-abc"></iframe>`,
			want: "//sweepwidget.com/view/84321-abc",
		},
		{
			name: "absolute url",
			html: `<div><iframe data-src='https://sweepwidget.com/view/99' width="100%"></iframe></div>`,
			want: "https://sweepwidget.com/view/99",
		},
		{
			name: "no deferred source",
			html: `<iframe src="https://sweepwidget.com/view/99"></iframe>`,
			want: "",
		},
		{
			name: "wrong host",
			html: `<iframe data-src="//ads.example.com/banner"></iframe>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDeferredSrc(tt.html))
		})
	}
}

func TestNormalizeFormURL(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"//sweepwidget.com/view/84321-abc", "https://sweepwidget.com/view/84321-abc"},
		{"https://sweepwidget.com/view/99", "https://sweepwidget.com/view/99"},
		{"http://sweepwidget.com/view/99", "http://sweepwidget.com/view/99"},
		{"javascript:alert(1)", ""},
		{"/relative/path", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeFormURL(tt.src), "src=%q", tt.src)
	}
}

func TestClassifyText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Outcome
	}{
		{"success phrase", "Thank you for entering! Winners announced Friday.", OutcomeSuccess},
		{"success phrase mixed case", "GOOD LUCK in the drawing", OutcomeSuccess},
		{"entry received", "Your entry has been received.", OutcomeSuccess},
		{"no phrase is ambiguous", "Sweepstakes ends 12/31. Official rules apply.", OutcomeAmbiguous},
		{"empty page is ambiguous", "", OutcomeAmbiguous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyText(tt.text))
		})
	}
}

func TestProfileSelectorOverrides(t *testing.T) {
	p := NewProfile("luckyday", "https://luckyday.example.com/win", map[string]string{
		FieldEmail: "input#sw-email-alt",
	})

	assert.Equal(t, "input#sw-email-alt", p.Selector(FieldEmail))
	assert.Equal(t, defaultSelectors[FieldSubmit], p.Selector(FieldSubmit), "unset keys fall back to defaults")
	assert.Equal(t, "", p.Selector("nonexistent"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "ambiguous", OutcomeAmbiguous.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
}
