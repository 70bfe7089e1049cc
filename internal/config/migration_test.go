package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	projects := `dataDir: /srv/migration
projects:
  PDFUA: pdf-ua-issues
  TRACK: tracker-issues
`
	if err := os.WriteFile(filepath.Join(dir, "projects.yaml"), []byte(projects), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("JIRA_URL", "https://jira.example.com")
	t.Setenv("JIRA_USER", "migrator")
	t.Setenv("JIRA_TOKEN", "secret")
	t.Setenv("GITHUB_ORG", "example")
	t.Setenv("GITHUB_TOKEN", "ghtoken")
	t.Setenv("CLOSED_STATES", "Done, Rejected,")
	t.Setenv("ISSUE_TYPES", "Bug")

	migration, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if migration.JiraURL != "https://jira.example.com" {
		t.Errorf("expected Jira URL from the environment, got %q", migration.JiraURL)
	}
	if migration.DataDir != "/srv/migration" {
		t.Errorf("expected data dir from projects.yaml, got %q", migration.DataDir)
	}

	repo, ok := migration.Repo("PDFUA")
	if !ok || repo != "pdf-ua-issues" {
		t.Errorf("expected repo %q for PDFUA, got %q (%t)", "pdf-ua-issues", repo, ok)
	}
	if _, ok := migration.Repo("UNKNOWN"); ok {
		t.Error("expected no repo for an unknown project")
	}

	if !migration.IsClosedState("Done") || !migration.IsClosedState("Rejected") {
		t.Error("expected Done and Rejected to count as closed")
	}
	if migration.IsClosedState("Reported") {
		t.Error("expected Reported to stay open")
	}
	if !migration.KnownIssueType("Bug") || migration.KnownIssueType("Task") {
		t.Error("expected only Bug to be a known issue type")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLOSED_STATES", "")
	t.Setenv("ISSUE_TYPES", "")

	migration, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if migration.DataDir != "data" {
		t.Errorf("expected the default data dir, got %q", migration.DataDir)
	}
	if len(migration.Projects) != 0 {
		t.Errorf("expected an empty project table, got %v", migration.Projects)
	}
	if migration.IsClosedState("Done") {
		t.Error("expected no closed states without configuration")
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("JIRA_URL=https://dotenv.example.com\n"), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// godotenv never overrides variables already present, so this must be
	// unset for the file value to land. t.Setenv restores it afterwards.
	t.Setenv("JIRA_URL", "")
	os.Unsetenv("JIRA_URL")

	migration, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migration.JiraURL != "https://dotenv.example.com" {
		t.Errorf("expected the Jira URL from .env, got %q", migration.JiraURL)
	}
}

func TestLoadRejectsBrokenProjectsFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "projects.yaml"), []byte(":\n  - broken"), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("expected an error for a malformed projects file")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "empty", value: "", expected: nil},
		{name: "single", value: "Done", expected: []string{"Done"}},
		{name: "spaces and empties trimmed", value: " Done , Rejected ,,", expected: []string{"Done", "Rejected"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitList(tt.value)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %q, got %q", tt.expected, result)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("expected %q, got %q", tt.expected, result)
				}
			}
		})
	}
}
