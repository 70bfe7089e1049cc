package transform

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/config"
	"github.com/tickethist/jira2git/internal/identity"
	"github.com/tickethist/jira2git/internal/jiraexport"
	"github.com/tickethist/jira2git/internal/markup"
)

func newTestTransformer(milestones map[string]int) *Transformer {
	migration := &config.Migration{
		ClosedStates: []string{"Done", "Rejected"},
		IssueTypes:   []string{"Bug", "Improvement"},
	}
	users := identity.NewDirectory()
	users.Add(identity.User{DisplayName: "Willem Kester", Email: "wk@example.com", JiraName: "wk", GithubHandle: "willemk"})
	convert := markup.NewConverter("", "PDFUA")
	return New(migration, users, convert, milestones, logrus.NewEntry(logrus.New()))
}

func stamp(t time.Time) jiraexport.Timestamp {
	return jiraexport.Timestamp{Time: t}
}

func TestPayload(t *testing.T) {
	transformer := newTestTransformer(map[string]int{"1.0.1": 3})

	created := time.Date(2020, 1, 10, 10, 30, 15, 999000000, time.UTC)
	resolved := time.Date(2020, 3, 1, 9, 0, 0, 0, time.UTC)
	issue := &jiraexport.Issue{
		Key: "PDFUA-7",
		Fields: jiraexport.Fields{
			Summary:     "Headings are skipped",
			Description: "Some *heading* levels are skipped",
			Created:     stamp(created),
			Creator:     &jiraexport.User{Key: "wk"},
			Status:      &jiraexport.NamedValue{Name: "Done"},
			IssueType:   &jiraexport.NamedValue{Name: "Bug"},
			FixVersions: []jiraexport.NamedValue{{Name: "v1.1.0"}, {Name: "v1.0.1"}},
			Comment: &jiraexport.CommentList{
				Comments: []jiraexport.Comment{
					{
						Author:  &jiraexport.User{Key: "wk"},
						Created: stamp(created.Add(time.Hour)),
						Body:    "Reproduced on 1.0.0",
					},
				},
			},
			Resolution:     &jiraexport.NamedValue{Name: "Fixed"},
			ResolutionDate: stamp(resolved),
		},
	}

	payload := transformer.Payload(issue)

	if payload.JiraKey != "PDFUA-7" {
		t.Errorf("expected Jira key %q, got %q", "PDFUA-7", payload.JiraKey)
	}
	if payload.DeleteIssue {
		t.Error("expected a real payload not to be marked for deletion")
	}
	if expected := "PDFUA-7: Headings are skipped"; payload.Issue.Title != expected {
		t.Errorf("expected title %q, got %q", expected, payload.Issue.Title)
	}
	if expected := "Jira issue originally created by user @willemk:\n\nSome **heading** levels are skipped"; payload.Issue.Body != expected {
		t.Errorf("expected body %q, got %q", expected, payload.Issue.Body)
	}
	if expected := "2020-01-10T10:30:15Z"; payload.Issue.CreatedAt != expected {
		t.Errorf("expected created_at %q, got %q", expected, payload.Issue.CreatedAt)
	}
	if !payload.Issue.Closed {
		t.Error("expected a Done issue to import as closed")
	}
	if len(payload.Issue.Labels) != 1 || payload.Issue.Labels[0] != "Bug" {
		t.Errorf("expected labels [Bug], got %q", payload.Issue.Labels)
	}
	if payload.Issue.Milestone != 3 {
		t.Errorf("expected milestone 3 for the lowest fix version, got %d", payload.Issue.Milestone)
	}

	if len(payload.Comments) != 2 {
		t.Fatalf("expected 2 comments (one real, one resolution), got %d", len(payload.Comments))
	}
	if expected := "Comment created by @willemk:\n\nReproduced on 1.0.0"; payload.Comments[0].Body != expected {
		t.Errorf("expected comment body %q, got %q", expected, payload.Comments[0].Body)
	}
	if expected := `Issue was closed with resolution "Fixed"`; payload.Comments[1].Body != expected {
		t.Errorf("expected resolution comment %q, got %q", expected, payload.Comments[1].Body)
	}
	if expected := "2020-03-01T09:00:00Z"; payload.Comments[1].CreatedAt != expected {
		t.Errorf("expected resolution comment date %q, got %q", expected, payload.Comments[1].CreatedAt)
	}
}

func TestPayloadMinimalIssue(t *testing.T) {
	transformer := newTestTransformer(nil)

	issue := &jiraexport.Issue{
		Key: "PDFUA-9",
		Fields: jiraexport.Fields{
			Summary: "Minimal",
			Status:  &jiraexport.NamedValue{Name: "Reported"},
		},
	}

	payload := transformer.Payload(issue)

	if payload.Issue.Closed {
		t.Error("expected an open issue to stay open")
	}
	if payload.Issue.CreatedAt != "" {
		t.Errorf("expected no created_at without a creation date, got %q", payload.Issue.CreatedAt)
	}
	if len(payload.Issue.Labels) != 0 {
		t.Errorf("expected no labels, got %q", payload.Issue.Labels)
	}
	if payload.Issue.Milestone != 0 {
		t.Errorf("expected no milestone, got %d", payload.Issue.Milestone)
	}
	if len(payload.Comments) != 0 {
		t.Errorf("expected no comments, got %d", len(payload.Comments))
	}
}

func TestPayloadUnmappedMilestone(t *testing.T) {
	transformer := newTestTransformer(map[string]int{"2.0.0": 5})

	issue := &jiraexport.Issue{
		Key: "PDFUA-5",
		Fields: jiraexport.Fields{
			Summary:     "Mismatch",
			FixVersions: []jiraexport.NamedValue{{Name: "1.5.0"}},
		},
	}

	if payload := transformer.Payload(issue); payload.Issue.Milestone != 0 {
		t.Errorf("expected no milestone for an unmapped fix version, got %d", payload.Issue.Milestone)
	}
}

func TestFakePayload(t *testing.T) {
	payload := FakePayload("PDFUA-4")

	if !payload.DeleteIssue {
		t.Error("expected the fake payload to be marked for deletion")
	}
	if expected := "PDFUA-4: fake issue to be deleted"; payload.Issue.Title != expected {
		t.Errorf("expected title %q, got %q", expected, payload.Issue.Title)
	}
	if expected := "body of fake PDFUA-4 issue to be deleted"; payload.Issue.Body != expected {
		t.Errorf("expected body %q, got %q", expected, payload.Issue.Body)
	}
}

func TestLowestFixVersion(t *testing.T) {
	tests := []struct {
		name     string
		versions []jiraexport.NamedValue
		expected string
	}{
		{
			name:     "no versions",
			expected: "",
		},
		{
			name:     "single version with v prefix stripped",
			versions: []jiraexport.NamedValue{{Name: "v1.0.1"}},
			expected: "1.0.1",
		},
		{
			name:     "lowest of several",
			versions: []jiraexport.NamedValue{{Name: "1.10.0"}, {Name: "1.2.0"}, {Name: "1.2.1"}},
			expected: "1.2.0",
		},
		{
			name:     "out-of-range versions are ignored",
			versions: []jiraexport.NamedValue{{Name: "10.0.0"}},
			expected: "",
		},
		{
			name:     "empty names are skipped",
			versions: []jiraexport.NamedValue{{Name: ""}, {Name: "2.0.0"}},
			expected: "2.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := lowestFixVersion(tt.versions); result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{a: "1.0.0", b: "1.0.0", expected: 0},
		{a: "1.2.0", b: "1.10.0", expected: -1},
		{a: "2.0", b: "1.9.9", expected: 1},
		{a: "1.0", b: "1.0.1", expected: -1},
		{a: "1.0.0-rc1", b: "1.0.0-rc2", expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			result := compareVersions(tt.a, tt.b)
			if (result < 0) != (tt.expected < 0) || (result > 0) != (tt.expected > 0) {
				t.Errorf("expected sign %d comparing %q to %q, got %d", tt.expected, tt.a, tt.b, result)
			}
		})
	}
}
