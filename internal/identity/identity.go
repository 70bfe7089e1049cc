// Package identity maps Jira user references to destination-side mentions
// and commit signatures.
package identity

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// User is one line of the user directory.
type User struct {
	DisplayName  string
	Email        string
	JiraName     string
	GithubHandle string
}

// Directory resolves Jira user names against the user directory file.
type Directory struct {
	byJiraName map[string]User
}

// NewDirectory creates an empty directory; every lookup falls back to the
// raw Jira token.
func NewDirectory() *Directory {
	return &Directory{byJiraName: make(map[string]User)}
}

// Load reads a tab-separated user directory file with one
// "displayName<TAB>email<TAB>jiraName<TAB>githubHandle" entry per line.
// The GitHub handle column is optional. Blank lines and lines starting
// with '#' are skipped.
func Load(path string) (*Directory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user directory: %w", err)
	}
	defer file.Close()

	directory := NewDirectory()
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		columns := strings.Split(scanner.Text(), "\t")
		if len(columns) < 3 {
			return nil, fmt.Errorf("user directory line %d: expected at least 3 tab-separated columns, got %d", line, len(columns))
		}
		user := User{
			DisplayName: strings.TrimSpace(columns[0]),
			Email:       strings.TrimSpace(columns[1]),
			JiraName:    strings.TrimSpace(columns[2]),
		}
		if len(columns) > 3 {
			user.GithubHandle = strings.TrimSpace(columns[3])
		}
		directory.byJiraName[user.JiraName] = user
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user directory: %w", err)
	}

	return directory, nil
}

// Add registers a user. Intended for tests and programmatic setup.
func (d *Directory) Add(user User) {
	d.byJiraName[user.JiraName] = user
}

// Mention returns a display mention for a Jira user name: the @handle when
// one is mapped, a "Name <email>" pair when only those are known, and the
// raw Jira name otherwise.
func (d *Directory) Mention(jiraName string) string {
	user, ok := d.byJiraName[jiraName]
	if !ok {
		return jiraName
	}
	if user.GithubHandle != "" {
		return "@" + user.GithubHandle
	}
	if user.DisplayName != "" && user.Email != "" {
		return fmt.Sprintf("%s <%s>", user.DisplayName, user.Email)
	}
	return jiraName
}

// Signature resolves a Jira user name to a commit author name and email.
// An unmapped user degrades to the raw token with an empty address.
func (d *Directory) Signature(jiraName string) (name, email string) {
	user, ok := d.byJiraName[jiraName]
	if !ok {
		return jiraName, ""
	}
	name = user.DisplayName
	if name == "" {
		name = jiraName
	}
	return name, user.Email
}
