package replay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tickethist/jira2git/internal/fields"
)

type changeKind int

const (
	changeUpdate changeKind = iota
	changeClear
	changeUnset
	changeList
)

// fieldChange is one applied field mutation, kept for commit-message
// synthesis.
type fieldChange struct {
	Issue  int
	Field  string
	Kind   changeKind
	New    fields.Value
	Detail string // list-delta summary like "Remove A; add B"
}

// message renders the specific single-change commit message.
func (c fieldChange) message() string {
	switch c.Kind {
	case changeList:
		return fmt.Sprintf("Update list %s to '%s' in issue #%d: %s", c.Field, c.New.String(), c.Issue, c.Detail)
	case changeClear:
		return fmt.Sprintf("Clear %s in issue #%d", c.Field, c.Issue)
	case changeUnset:
		return fmt.Sprintf("Unset %s in issue #%d", c.Field, c.Issue)
	default:
		return fmt.Sprintf("Update %s to '%s' in issue #%d", c.Field, c.New.String(), c.Issue)
	}
}

// synthesizeMessage builds the commit message of one event group from the
// applied field changes and the accumulated free-text lines (attachment,
// link and rename operations).
func synthesizeMessage(changes []fieldChange, lines []string) string {
	fieldMessage := ""
	switch {
	case len(changes) == 1:
		fieldMessage = changes[0].message()
	case len(changes) > 1:
		fieldMessage = multiChangeMessage(changes)
	}

	if fieldMessage == "" {
		switch len(lines) {
		case 0:
			return ""
		case 1:
			return lines[0]
		default:
			return "Multiple updates\n\n- " + strings.Join(lines, "\n- ")
		}
	}

	if len(lines) == 0 {
		return fieldMessage
	}
	return strings.Join(append(append([]string(nil), lines...), fieldMessage), "\n")
}

// multiChangeMessage summarizes a bulk edit. When every change targets the
// same field with the same value, the message itemizes the consistent
// update; otherwise it stays generic.
func multiChangeMessage(changes []fieldChange) string {
	sameField := true
	sameValue := true
	sameIssue := true
	for _, change := range changes[1:] {
		if change.Field != changes[0].Field {
			sameField = false
		}
		if change.New.String() != changes[0].New.String() || change.Kind != changes[0].Kind {
			sameValue = false
		}
		if change.Issue != changes[0].Issue {
			sameIssue = false
		}
	}

	if sameField && sameValue && !sameIssue && changes[0].Kind == changeUpdate {
		issues := make([]int, 0, len(changes))
		for _, change := range changes {
			issues = append(issues, change.Issue)
		}
		sort.Ints(issues)
		refs := make([]string, len(issues))
		for i, n := range issues {
			refs[i] = fmt.Sprintf("#%d", n)
		}
		return fmt.Sprintf("Update %s to '%s' in issues %s",
			changes[0].Field, changes[0].New.String(), strings.Join(refs, ", "))
	}

	if sameIssue {
		return fmt.Sprintf("Update multiple fields in issue #%d", changes[0].Issue)
	}
	return "Update multiple issues"
}

// safeToForcePrefixes is the explicit policy of commit messages that may
// legitimately produce an empty tree (value already in place, rename that
// matched nothing). A failed commit with one of these messages is retried
// once with --allow-empty; any other failure halts the replay.
var safeToForcePrefixes = []string{
	"Update ",
	"Clear ",
	"Unset ",
	"Rename ",
	"Remove field ",
	"Multiple updates",
}

func safeToForce(message string) bool {
	for _, prefix := range safeToForcePrefixes {
		if strings.HasPrefix(message, prefix) {
			return true
		}
	}
	return false
}
