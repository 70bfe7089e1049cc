// Package jiraexport models the raw Jira REST export of one project and
// its on-disk file store.
package jiraexport

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// jiraTimeLayout is the timestamp format the Jira REST API emits.
const jiraTimeLayout = "2006-01-02T15:04:05.999-0700"

// Timestamp is a Jira REST timestamp. It tolerates the empty string and
// null for fields like resolutiondate.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses a Jira timestamp, accepting null and "".
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if string(data) == "null" {
			t.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("failed to parse timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(jiraTimeLayout, raw)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

// MarshalJSON emits the Jira timestamp format.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(jiraTimeLayout))
}

// Issue is one exported Jira issue, including its full changelog.
type Issue struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	Fields    Fields     `json:"fields"`
	Changelog *Changelog `json:"changelog,omitempty"`
}

// Number returns the numeric part of the issue key.
func (i *Issue) Number() (int, error) {
	_, numberPart, found := strings.Cut(i.Key, "-")
	if !found {
		return 0, fmt.Errorf("issue key %q has no numeric part", i.Key)
	}
	var n int
	if _, err := fmt.Sscanf(numberPart, "%d", &n); err != nil {
		return 0, fmt.Errorf("issue key %q has no numeric part: %w", i.Key, err)
	}
	return n, nil
}

// Fields carries the typed fields the migration consumes directly, plus the
// raw field map for everything else (custom fields in particular).
type Fields struct {
	Summary        string       `json:"summary"`
	Description    string       `json:"description"`
	Created        Timestamp    `json:"created"`
	Updated        Timestamp    `json:"updated"`
	Creator        *User        `json:"creator"`
	Reporter       *User        `json:"reporter"`
	Status         *NamedValue  `json:"status"`
	IssueType      *NamedValue  `json:"issuetype"`
	Resolution     *NamedValue  `json:"resolution"`
	ResolutionDate Timestamp    `json:"resolutiondate"`
	FixVersions    []NamedValue `json:"fixVersions"`
	Components     []NamedValue `json:"components"`
	Labels         []string     `json:"labels"`
	Comment        *CommentList `json:"comment"`
	Attachments    []Attachment `json:"attachment"`
	IssueLinks     []IssueLink  `json:"issuelinks"`

	// Raw is the undecoded field map keyed by internal field key.
	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes the typed fields and simultaneously retains the raw
// field map.
func (f *Fields) UnmarshalJSON(data []byte) error {
	type alias Fields
	var typed alias
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Fields(typed)
	f.Raw = raw
	return nil
}

// MarshalJSON emits the raw field map when present, so reading and
// rewriting an export file does not drop custom fields.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f.Raw != nil {
		return json.Marshal(f.Raw)
	}
	type alias Fields
	return json.Marshal(alias(f))
}

// User is a Jira user reference as it appears in issue fields and
// changelog entries.
type User struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Ref returns the best available identity token for the user: the account
// key, falling back through name, email and display name. Used when a
// changelog author cannot be resolved against the user directory.
func (u *User) Ref() string {
	if u == nil {
		return ""
	}
	for _, candidate := range []string{u.Key, u.Name, u.EmailAddress, u.DisplayName} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// NamedValue is the common {"name": ...} shape of status, issue type,
// resolution, version and component references.
type NamedValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Display returns the name, falling back to the option value.
func (n NamedValue) Display() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Value
}

// CommentList is the comment container of an issue.
type CommentList struct {
	Comments []Comment `json:"comments"`
}

// Comment is one issue comment.
type Comment struct {
	Author  *User     `json:"author"`
	Created Timestamp `json:"created"`
	Body    string    `json:"body"`
}

// Attachment is one issue attachment reference.
type Attachment struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Author   *User     `json:"author"`
	Created  Timestamp `json:"created"`
}

// IssueLink is one directed issue link.
type IssueLink struct {
	Type         IssueLinkType `json:"type"`
	InwardIssue  *Issue        `json:"inwardIssue,omitempty"`
	OutwardIssue *Issue        `json:"outwardIssue,omitempty"`
}

// IssueLinkType describes both directions of a link type.
type IssueLinkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

// Changelog is the issue's recorded field history.
type Changelog struct {
	Histories []History `json:"histories"`
}

// History is one timestamped, authored set of field mutations.
type History struct {
	ID      string    `json:"id"`
	Author  *User     `json:"author"`
	Created Timestamp `json:"created"`
	Items   []Item    `json:"items"`
}

// Item is one atomic field mutation. For list-valued fields only one side
// is populated per item: from-only means removed, to-only means added.
type Item struct {
	Field      string `json:"field"`
	FieldType  string `json:"fieldtype"`
	From       string `json:"from"`
	FromString string `json:"fromString"`
	To         string `json:"to"`
	ToString   string `json:"toString"`
}
