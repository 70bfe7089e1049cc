// Package markup converts Jira wiki markup into GitHub-flavored markdown.
package markup

import (
	"fmt"
	"regexp"
	"strings"
)

// wordJoiner is inserted after '#' in prose like "Check #3" so GitHub does
// not autolink the number as an issue reference.
const wordJoiner = "&#x2060;"

var (
	colorTag     = regexp.MustCompile(`\{color(:#[\da-f]+)?\}`)
	codeBlock    = regexp.MustCompile(`(?s)\{code(?::(\S+?))?\}(.*?)\{code\}\n?`)
	autolinkTag  = regexp.MustCompile(`<\S+>`)
	quoteBlock   = regexp.MustCompile(`(?s)\{quote\}\n?(.*?)(\{quote\}\n?|$)`)
	listMarker   = regexp.MustCompile(`(?m)^([-*#]*)([-*#]) `)
	heading      = regexp.MustCompile(`(?m)^h([0-6])\.(.*)$`)
	proseRef     = regexp.MustCompile(`([cC]heck|[tT]est|[sS]tep)s? +#\d+|#\d+(.*(is|are( all)?) (true|false))`)
	refNumber    = regexp.MustCompile(`#(\d+)`)
	emphasis     = regexp.MustCompile(`([*_])([^*_\n]*)([*_])`)
	monospace    = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	citation     = regexp.MustCompile(`\?\?([^?]+(?:\?[^?]+)*)\?\?`)
	inserted     = regexp.MustCompile(`\+([^+\n]*)\+`)
	superscript  = regexp.MustCompile(`\^([^^\n]*)\^`)
	subscript    = regexp.MustCompile(`~([^~\n]*)~`)
	strayCodeTag = regexp.MustCompile(`\{code(?::([^}]+))?\}`)
	wikiLink     = regexp.MustCompile(`\[(.+?)\|(.+?)\]`)
	escapedBrace = regexp.MustCompile(`\\\{`)
	noformatTag  = regexp.MustCompile(`\{noformat\}`)
)

// Converter is a pure Jira-markup-to-markdown translator. Issue references
// to the configured project (bare keys or browse URLs) become #n links.
type Converter struct {
	issueRef *regexp.Regexp
}

// NewConverter returns a converter that rewrites references to issues of
// the given project hosted at browseURL (may be empty to match bare keys
// only).
func NewConverter(browseURL, projectKey string) *Converter {
	pattern := fmt.Sprintf(`%s-(\d+)`, regexp.QuoteMeta(projectKey))
	if browseURL != "" {
		base := strings.TrimSuffix(browseURL, "/")
		pattern = fmt.Sprintf(`(?:%s/)?%s`, regexp.QuoteMeta(base), pattern)
	}
	return &Converter{issueRef: regexp.MustCompile(pattern)}
}

// ToMarkdown converts one block of Jira wiki text to markdown. A nil-ish
// (empty) input yields an empty string.
func (c *Converter) ToMarkdown(text string) string {
	converted := strings.ReplaceAll(text, "\r\n", "\n")
	converted = colorTag.ReplaceAllString(converted, "")

	// Code blocks are cut out before entity escaping and restored after,
	// so their content survives untouched.
	var codeBlocks []string
	converted = codeBlock.ReplaceAllStringFunc(converted, func(match string) string {
		groups := codeBlock.FindStringSubmatch(match)
		marker := fmt.Sprintf("jira2gitMarkdown:%d", len(codeBlocks))
		codeBlocks = append(codeBlocks, "```"+groups[1]+groups[2]+"```\n")
		return marker
	})

	converted = autolinkTag.ReplaceAllString(converted, "`$0`")
	converted = escapeEntities(converted)

	for i, block := range codeBlocks {
		converted = strings.Replace(converted, fmt.Sprintf("jira2gitMarkdown:%d", i), block, 1)
	}

	converted = quoteBlock.ReplaceAllStringFunc(converted, func(match string) string {
		groups := quoteBlock.FindStringSubmatch(match)
		quoted := regexp.MustCompile(`(?m)^`).ReplaceAllString(groups[1], ">")
		return "\n" + quoted + "\n"
	})

	converted = listMarker.ReplaceAllStringFunc(converted, func(match string) string {
		groups := listMarker.FindStringSubmatch(match)
		indent := " "
		for _, char := range groups[1] {
			if char == '#' {
				indent += "   "
			} else {
				indent += "  "
			}
		}
		listOp := groups[2]
		if listOp == "#" {
			listOp = "1."
		}
		return indent + listOp + " "
	})

	converted = heading.ReplaceAllStringFunc(converted, func(match string) string {
		groups := heading.FindStringSubmatch(match)
		return strings.Repeat("#", int(groups[1][0]-'0')) + groups[2]
	})

	// "Check #3", "Step #2", "#4 is true" and friends are prose, not issue
	// references.
	converted = proseRef.ReplaceAllStringFunc(converted, func(match string) string {
		return refNumber.ReplaceAllString(match, "#"+wordJoiner+"$1")
	})

	converted = emphasis.ReplaceAllStringFunc(converted, func(match string) string {
		groups := emphasis.FindStringSubmatch(match)
		if groups[1] != groups[3] {
			return match
		}
		to := "*"
		if groups[1] == "*" {
			to = "**"
		}
		return to + groups[2] + to
	})

	converted = monospace.ReplaceAllString(converted, "`$1`")
	converted = citation.ReplaceAllString(converted, "<cite>$1</cite>")
	converted = inserted.ReplaceAllString(converted, "<ins>$1</ins>")
	converted = superscript.ReplaceAllString(converted, "<sup>$1</sup>")
	converted = subscript.ReplaceAllString(converted, "<sub>$1</sub>")

	converted = strayCodeTag.ReplaceAllStringFunc(converted, func(match string) string {
		groups := strayCodeTag.FindStringSubmatch(match)
		if regexp.MustCompile(`^[a-z]+$`).MatchString(groups[1]) {
			return "```" + groups[1]
		}
		return "```"
	})

	converted = wikiLink.ReplaceAllString(converted, "[$1]($2)")
	converted = escapedBrace.ReplaceAllString(converted, "{")
	converted = noformatTag.ReplaceAllString(converted, "```")

	converted = c.issueRef.ReplaceAllString(converted, "#$1")

	return converted
}

// escapeEntities escapes &, < and > for HTML contexts, leaving the angle
// brackets that directly wrap backticked autolink tokens alone.
func escapeEntities(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '&':
			out.WriteString("&amp;")
		case '<':
			if i > 0 && runes[i-1] == '`' {
				out.WriteRune(r)
			} else {
				out.WriteString("&lt;")
			}
		case '>':
			if i < len(runes)-1 && runes[i+1] == '`' {
				out.WriteRune(r)
			} else {
				out.WriteString("&gt;")
			}
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
