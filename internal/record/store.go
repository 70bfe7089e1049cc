// Package record reads and writes the per-issue structured record files of
// the destination store.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tickethist/jira2git/internal/fields"
)

// commentColumn is the column trailing field comments are aligned to.
const commentColumn = 44

// numberField is the bookkeeping key holding the issue number.
const numberField = "Number"

// Store is the git-backed record store: one structured file per issue,
// regenerated deterministically from the field dictionary's ordering and
// grouping on every write.
type Store struct {
	root string
	dict *fields.Dictionary
	log  *logrus.Entry
}

// NewStore creates a record store rooted at root.
func NewStore(root string, dict *fields.Dictionary, log *logrus.Entry) *Store {
	return &Store{root: root, dict: dict, log: log}
}

// Root returns the store's root directory (the git working tree).
func (s *Store) Root() string {
	return s.root
}

// Path returns the record file path of issue n.
func (s *Store) Path(n int) string {
	return filepath.Join(s.root, "issues", fmt.Sprintf("%d.yaml", n))
}

// AttachmentsDir returns the attachment directory of one issue key.
func (s *Store) AttachmentsDir(issueKey string) string {
	return filepath.Join(s.root, "attachments", issueKey)
}

// TextPath returns the companion long-form text file of one field of issue
// n.
func (s *Store) TextPath(n int, fieldName string) string {
	slug := strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, fieldName))
	return filepath.Join(s.root, "text", fmt.Sprintf("%d-%s.md", n, slug))
}

// Exists reports whether issue n has a record.
func (s *Store) Exists(n int) bool {
	_, err := os.Stat(s.Path(n))
	return err == nil
}

// Read loads the record of issue n into the field value map.
func (s *Store) Read(n int) (map[string]fields.Value, error) {
	data, err := os.ReadFile(s.Path(n))
	if err != nil {
		return nil, fmt.Errorf("failed to read record of issue %d: %w", n, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse record of issue %d: %w", n, err)
	}

	values := make(map[string]fields.Value, len(raw))
	for name, value := range raw {
		if name == numberField {
			continue
		}
		switch typed := value.(type) {
		case nil:
			values[name] = fields.Absent()
		case string:
			values[name] = fields.Scalar(typed)
		case int:
			values[name] = fields.Scalar(fmt.Sprintf("%d", typed))
		case bool:
			values[name] = fields.Scalar(fmt.Sprintf("%t", typed))
		case float64:
			// Legacy records written before numeric scalars were quoted.
			values[name] = fields.Scalar(strconv.FormatFloat(typed, 'f', -1, 64))
		case []any:
			var items []string
			for _, element := range typed {
				items = append(items, fmt.Sprintf("%v", element))
			}
			values[name] = fields.List(items...)
		default:
			return nil, fmt.Errorf("record of issue %d: field %q has unsupported shape %T", n, name, value)
		}
	}
	return values, nil
}

// Write regenerates the record of issue n from scratch: dictionary order
// and grouping, blank separators before each new group and before list
// fields, and optional right-aligned trailing comments. Fields missing
// from the dictionary ordering are surfaced as a consistency warning and
// appended at the end rather than silently dropped.
func (s *Store) Write(n int, values map[string]fields.Value, includeComments bool) error {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("%s: %d\n", numberField, n))

	written := make(map[string]bool)
	previousGroup := ""
	for _, name := range s.dict.Order() {
		value, ok := values[name]
		if !ok || value.IsAbsent() {
			continue
		}
		written[name] = true

		group := s.dict.Group(name)
		if group != previousGroup || s.dict.IsList(name) {
			out.WriteString("\n")
		}
		previousGroup = group

		comment := ""
		if includeComments {
			comment = s.dict.Comment(name)
		}
		s.writeField(&out, n, name, value, comment)
	}

	var missed []string
	for name := range values {
		if !written[name] && !values[name].IsAbsent() {
			missed = append(missed, name)
		}
	}
	if len(missed) > 0 {
		sort.Strings(missed)
		s.log.Warnf("record of issue %d: fields %q are not in the field ordering; appending them at the end", n, missed)
		out.WriteString("\n")
		for _, name := range missed {
			s.writeField(&out, n, name, values[name], "")
		}
	}

	path := s.Path(n)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(out.String()), 0644); err != nil {
		return fmt.Errorf("failed to write record of issue %d: %w", n, err)
	}
	return nil
}

func (s *Store) writeField(out *strings.Builder, n int, name string, value fields.Value, comment string) {
	if value.IsList() || s.dict.IsList(name) {
		items := value.Items()
		if len(items) == 0 {
			// A bare "Name:" would read back as absent; a cleared list
			// stays an explicitly empty one.
			out.WriteString(withComment(fmt.Sprintf("%s: []", name), comment))
			return
		}
		line := fmt.Sprintf("%s:", name)
		out.WriteString(withComment(line, comment))
		for _, item := range items {
			out.WriteString(fmt.Sprintf("  - %s\n", s.formatScalar(n, name, item)))
		}
		return
	}
	line := fmt.Sprintf("%s: %s", name, s.formatScalar(n, name, value.String()))
	out.WriteString(withComment(line, comment))
}

func withComment(line, comment string) string {
	if comment == "" {
		return line + "\n"
	}
	padding := commentColumn - len([]rune(line))
	if padding < 1 {
		padding = 1
	}
	return line + strings.Repeat(" ", padding) + "# " + comment + "\n"
}

// reservedPunctuation are the characters that force single-quoting for a
// safe round trip through the record format.
const reservedPunctuation = ":#{}[]&*?|<>=!%@`'\"\\,"

// formatScalar escapes one scalar for the record file. Values mixing both
// quote styles, or containing characters outside the recognized safe set,
// are reported as warnings but still written.
func (s *Store) formatScalar(n int, name, value string) string {
	if value == "" {
		return "''"
	}

	for _, r := range value {
		if !unicode.IsGraphic(r) && r != '\t' {
			s.log.Warnf("record of issue %d: field %q value contains unexpected character %q", n, name, r)
			break
		}
	}

	needsQuoting := strings.ContainsAny(value, reservedPunctuation) ||
		strings.TrimSpace(value) != value ||
		strings.HasPrefix(value, "- ") ||
		parserTyped(value)
	if !needsQuoting {
		return value
	}

	if strings.Contains(value, "'") && strings.Contains(value, "\"") {
		s.log.Warnf("record of issue %d: field %q value mixes both quote styles: %q", n, name, value)
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// parserTyped reports scalars a parser would read back as a number, a
// boolean, or null instead of a string.
func parserTyped(value string) bool {
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return true
	}
	switch strings.ToLower(value) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		return true
	}
	return false
}
