package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDirectory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.tsv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unexpected error writing user directory: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeDirectory(t, `# Jira to GitHub user mapping
Willem Kester	wk@example.com	wk	willemk

Ann Other	ann@example.com	ann
`)

	directory, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mention := directory.Mention("wk"); mention != "@willemk" {
		t.Errorf("expected %q, got %q", "@willemk", mention)
	}
	if mention := directory.Mention("ann"); mention != "Ann Other <ann@example.com>" {
		t.Errorf("expected %q, got %q", "Ann Other <ann@example.com>", mention)
	}
}

func TestLoadAcceptsMissingHandleColumn(t *testing.T) {
	path := writeDirectory(t, "Ann Other\tann@example.com\tann\n")

	directory, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mention := directory.Mention("ann"); mention != "Ann Other <ann@example.com>" {
		t.Errorf("expected %q, got %q", "Ann Other <ann@example.com>", mention)
	}
}

func TestLoadRejectsShortLines(t *testing.T) {
	path := writeDirectory(t, "Willem Kester\twk@example.com\n")

	if _, err := Load(path); err == nil {
		t.Error("expected an error for a line with too few columns")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.tsv")); err == nil {
		t.Error("expected an error for a missing user directory")
	}
}

func TestMention(t *testing.T) {
	directory := NewDirectory()
	directory.Add(User{DisplayName: "Willem Kester", Email: "wk@example.com", JiraName: "wk", GithubHandle: "willemk"})
	directory.Add(User{DisplayName: "Ann Other", Email: "ann@example.com", JiraName: "ann"})
	directory.Add(User{DisplayName: "No Mail", JiraName: "nomail"})

	tests := []struct {
		name     string
		jiraName string
		expected string
	}{
		{name: "handle wins", jiraName: "wk", expected: "@willemk"},
		{name: "name and email pair", jiraName: "ann", expected: "Ann Other <ann@example.com>"},
		{name: "partial entry falls back to the token", jiraName: "nomail", expected: "nomail"},
		{name: "unknown user falls back to the token", jiraName: "ghost", expected: "ghost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if mention := directory.Mention(tt.jiraName); mention != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, mention)
			}
		})
	}
}

func TestSignature(t *testing.T) {
	directory := NewDirectory()
	directory.Add(User{DisplayName: "Willem Kester", Email: "wk@example.com", JiraName: "wk"})
	directory.Add(User{Email: "anon@example.com", JiraName: "anon"})

	tests := []struct {
		name          string
		jiraName      string
		expectedName  string
		expectedEmail string
	}{
		{name: "mapped user", jiraName: "wk", expectedName: "Willem Kester", expectedEmail: "wk@example.com"},
		{name: "missing display name keeps the token", jiraName: "anon", expectedName: "anon", expectedEmail: "anon@example.com"},
		{name: "unknown user", jiraName: "tracker", expectedName: "tracker", expectedEmail: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, email := directory.Signature(tt.jiraName)
			if name != tt.expectedName || email != tt.expectedEmail {
				t.Errorf("expected %q <%s>, got %q <%s>", tt.expectedName, tt.expectedEmail, name, email)
			}
		})
	}
}
