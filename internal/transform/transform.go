// Package transform turns exported tracker issues into GitHub bulk-import
// payloads.
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/config"
	"github.com/tickethist/jira2git/internal/identity"
	"github.com/tickethist/jira2git/internal/jiraexport"
	"github.com/tickethist/jira2git/internal/markup"
)

// Payload is one GitHub bulk-import request body. JiraKey and DeleteIssue
// are bookkeeping for the import phase and are stripped before posting.
type Payload struct {
	JiraKey     string    `json:"jiraKey"`
	DeleteIssue bool      `json:"deleteIssue,omitempty"`
	Issue       Issue     `json:"issue"`
	Comments    []Comment `json:"comments,omitempty"`
}

// Issue is the issue part of a bulk-import payload.
type Issue struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	CreatedAt string   `json:"created_at,omitempty"`
	Closed    bool     `json:"closed,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Milestone int      `json:"milestone,omitempty"`
}

// Comment is one imported comment.
type Comment struct {
	CreatedAt string `json:"created_at"`
	Body      string `json:"body"`
}

// Transformer builds import payloads from exported issues.
type Transformer struct {
	migration  *config.Migration
	users      *identity.Directory
	convert    *markup.Converter
	milestones map[string]int
	log        *logrus.Entry
}

// New creates a transformer. milestones maps existing GitHub milestone
// titles to their numbers; a nil map disables milestone assignment.
func New(migration *config.Migration, users *identity.Directory, convert *markup.Converter,
	milestones map[string]int, log *logrus.Entry) *Transformer {
	return &Transformer{
		migration:  migration,
		users:      users,
		convert:    convert,
		milestones: milestones,
		log:        log,
	}
}

// Payload builds the bulk-import payload for one exported issue.
func (t *Transformer) Payload(issue *jiraexport.Issue) *Payload {
	payload := &Payload{
		JiraKey: issue.Key,
		Issue: Issue{
			Title: fmt.Sprintf("%s: %s", issue.Key, issue.Fields.Summary),
			Body: fmt.Sprintf("Jira issue originally created by user %s:\n\n%s",
				t.users.Mention(issue.Fields.Creator.Ref()),
				t.convert.ToMarkdown(issue.Fields.Description)),
			CreatedAt: githubTime(issue.Fields.Created),
		},
	}

	if issue.Fields.Status != nil {
		payload.Issue.Closed = t.migration.IsClosedState(issue.Fields.Status.Name)
	}
	if issue.Fields.IssueType != nil && t.migration.KnownIssueType(issue.Fields.IssueType.Name) {
		payload.Issue.Labels = []string{issue.Fields.IssueType.Name}
	}

	if version := lowestFixVersion(issue.Fields.FixVersions); version != "" {
		if number, ok := t.milestones[version]; ok {
			payload.Issue.Milestone = number
		} else {
			t.log.Warnf("%s: no GitHub milestone for fix version %q", issue.Key, version)
		}
	}

	if issue.Fields.Comment != nil {
		for _, comment := range issue.Fields.Comment.Comments {
			payload.Comments = append(payload.Comments, Comment{
				CreatedAt: githubTime(comment.Created),
				Body: fmt.Sprintf("Comment created by %s:\n\n%s",
					t.users.Mention(comment.Author.Ref()),
					t.convert.ToMarkdown(comment.Body)),
			})
		}
	}

	if !issue.Fields.ResolutionDate.IsZero() && issue.Fields.Resolution != nil {
		payload.Comments = append(payload.Comments, Comment{
			CreatedAt: githubTime(issue.Fields.ResolutionDate),
			Body:      fmt.Sprintf("Issue was closed with resolution %q", issue.Fields.Resolution.Name),
		})
	}

	return payload
}

// FakePayload builds the placeholder payload used to keep GitHub issue
// numbers aligned with tracker issue numbers across gaps.
func FakePayload(issueKey string) *Payload {
	return &Payload{
		JiraKey:     issueKey,
		DeleteIssue: true,
		Issue: Issue{
			Title: fmt.Sprintf("%s: fake issue to be deleted", issueKey),
			Body:  fmt.Sprintf("body of fake %s issue to be deleted", issueKey),
		},
	}
}

// githubTime renders a tracker timestamp the way the bulk-import API
// expects: seconds precision with a literal Z suffix, keeping the
// tracker's local clock reading.
func githubTime(t jiraexport.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05") + "Z"
}

// lowestFixVersion picks the lowest fix version, with a leading v stripped.
// Versions above 10.0.0 are out of range and ignored.
func lowestFixVersion(versions []jiraexport.NamedValue) string {
	lowest := ""
	for _, version := range versions {
		name := strings.TrimPrefix(version.Name, "v")
		if name == "" {
			continue
		}
		if lowest == "" || compareVersions(lowest, name) > 0 {
			lowest = name
		}
	}
	if lowest != "" && compareVersions(lowest, "10.0.0") >= 0 {
		return ""
	}
	return lowest
}

// compareVersions compares dotted version strings segment by segment,
// numerically where possible.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	for i := 0; i < len(aParts) || i < len(bParts); i++ {
		var aPart, bPart string
		if i < len(aParts) {
			aPart = aParts[i]
		}
		if i < len(bParts) {
			bPart = bParts[i]
		}
		aNum, aErr := strconv.Atoi(aPart)
		bNum, bErr := strconv.Atoi(bPart)
		switch {
		case aErr == nil && bErr == nil:
			if aNum != bNum {
				if aNum < bNum {
					return -1
				}
				return 1
			}
		default:
			if aPart != bPart {
				return strings.Compare(aPart, bPart)
			}
		}
	}
	return 0
}
