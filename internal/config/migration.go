// Package config loads the migration configuration: credentials from the
// environment (optionally seeded from a .env file) and the project table
// from projects.yaml in the user's config directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const projectsFileName = "projects.yaml"

// Migration holds everything the migration commands need: tracker and
// GitHub credentials plus the per-project settings.
type Migration struct {
	JiraURL     string
	JiraUser    string
	JiraToken   string
	GithubOrg   string
	GithubToken string

	// ClosedStates are the Jira status names treated as closed on import.
	ClosedStates []string
	// IssueTypes are the Jira issue types carried over as labels.
	IssueTypes []string

	// DataDir is the root of the on-disk export and payload stores.
	DataDir string `yaml:"dataDir"`
	// Projects maps Jira project keys to GitHub repository names.
	Projects map[string]string `yaml:"projects"`
}

// Load reads the migration configuration from the given config directory.
// A missing .env file is fine as long as the variables are already in the
// environment; a missing projects.yaml yields an empty project table.
func Load(dir string) (*Migration, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	migration := &Migration{Projects: make(map[string]string)}

	projectsPath := filepath.Join(dir, projectsFileName)
	if data, err := os.ReadFile(projectsPath); err == nil {
		if err := yaml.Unmarshal(data, migration); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", projectsFileName, err)
		}
		if migration.Projects == nil {
			migration.Projects = make(map[string]string)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", projectsFileName, err)
	}

	migration.JiraURL = os.Getenv("JIRA_URL")
	migration.JiraUser = os.Getenv("JIRA_USER")
	migration.JiraToken = os.Getenv("JIRA_TOKEN")
	migration.GithubOrg = os.Getenv("GITHUB_ORG")
	migration.GithubToken = os.Getenv("GITHUB_TOKEN")
	migration.ClosedStates = splitList(os.Getenv("CLOSED_STATES"))
	migration.IssueTypes = splitList(os.Getenv("ISSUE_TYPES"))

	if migration.DataDir == "" {
		migration.DataDir = "data"
	}

	return migration, nil
}

// Repo returns the GitHub repository the project migrates into.
func (m *Migration) Repo(project string) (string, bool) {
	repo, ok := m.Projects[project]
	return repo, ok
}

// IsClosedState reports whether the status name counts as closed.
func (m *Migration) IsClosedState(status string) bool {
	for _, state := range m.ClosedStates {
		if state == status {
			return true
		}
	}
	return false
}

// KnownIssueType reports whether the issue type is carried over as a label.
func (m *Migration) KnownIssueType(issueType string) bool {
	for _, known := range m.IssueTypes {
		if known == issueType {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
