package markup

import (
	"strings"
	"testing"
)

func TestToMarkdown(t *testing.T) {
	converter := NewConverter("https://jira.example.com/browse", "TRACK")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "bold becomes double asterisk",
			input:    "This is *important* work",
			expected: "This is **important** work",
		},
		{
			name:     "italic becomes single asterisk",
			input:    "a _quiet_ note",
			expected: "a *quiet* note",
		},
		{
			name:     "mismatched emphasis delimiters are left alone",
			input:    "odd *text_ here",
			expected: "odd *text_ here",
		},
		{
			name:     "heading",
			input:    "h2. Results",
			expected: "## Results",
		},
		{
			name:     "numbered list",
			input:    "# first\n# second",
			expected: " 1. first\n 1. second",
		},
		{
			name:     "nested numbered list",
			input:    "## inner",
			expected: "    1. inner",
		},
		{
			name:     "monospace",
			input:    "set {{maxResults}} high",
			expected: "set `maxResults` high",
		},
		{
			name:     "code block keeps content unescaped",
			input:    "{code:java}\nif (a < b) {}\n{code}\n",
			expected: "```java\nif (a < b) {}\n```\n",
		},
		{
			name:     "entities outside code are escaped",
			input:    "a < b & c > d",
			expected: "a &lt; b &amp; c &gt; d",
		},
		{
			name:     "autolink survives escaping",
			input:    "see <https://example.com>",
			expected: "see `<https://example.com>`",
		},
		{
			name:     "wiki link",
			input:    "[the docs|https://example.com/docs]",
			expected: "[the docs](https://example.com/docs)",
		},
		{
			name:     "citation",
			input:    "??ISO 14289??",
			expected: "<cite>ISO 14289</cite>",
		},
		{
			name:     "citation of even length",
			input:    "??Matterhorn Protocol??",
			expected: "<cite>Matterhorn Protocol</cite>",
		},
		{
			name:     "citation with a single question mark inside",
			input:    "??Tagged? Sure. PDF/UA??",
			expected: "<cite>Tagged? Sure. PDF/UA</cite>",
		},
		{
			name:     "superscript and subscript",
			input:    "x^2^ and H~2~O",
			expected: "x<sup>2</sup> and H<sub>2</sub>O",
		},
		{
			name:     "bare issue key becomes reference",
			input:    "duplicate of TRACK-123",
			expected: "duplicate of #123",
		},
		{
			name:     "browse URL becomes reference",
			input:    "see https://jira.example.com/browse/TRACK-55",
			expected: "see #55",
		},
		{
			name:     "prose hash is protected from autolinking",
			input:    "Check #3 passes",
			expected: "Check #&#x2060;3 passes",
		},
		{
			name:     "color tags are stripped",
			input:    "{color:#ff0000}red{color}",
			expected: "red",
		},
		{
			name:     "noformat becomes fence",
			input:    "{noformat}raw{noformat}",
			expected: "```raw```",
		},
		{
			name:     "windows line endings are normalized",
			input:    "one\r\ntwo",
			expected: "one\ntwo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := converter.ToMarkdown(tt.input)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestToMarkdownQuoteBlock(t *testing.T) {
	converter := NewConverter("", "TRACK")

	result := converter.ToMarkdown("{quote}\nwise words\n{quote}\n")
	if !strings.Contains(result, ">wise words") {
		t.Errorf("expected quoted line in %q", result)
	}
}

func TestToMarkdownCodeBlockOrdering(t *testing.T) {
	converter := NewConverter("", "TRACK")

	input := "before & after\n{code}\nx < 1\n{code}\ntail < end"
	result := converter.ToMarkdown(input)

	if !strings.Contains(result, "```\nx < 1\n```") {
		t.Errorf("code block content was escaped: %q", result)
	}
	if !strings.Contains(result, "before &amp; after") {
		t.Errorf("prose ampersand was not escaped: %q", result)
	}
	if !strings.Contains(result, "tail &lt; end") {
		t.Errorf("prose angle bracket was not escaped: %q", result)
	}
}
