package jiraexport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Store handles the on-disk layout of one project's export: raw Jira issue
// files, import payload files, and the attachment payload cache.
type Store struct {
	dataDir string
	project string
}

// NewStore creates a store rooted at dataDir for one project key.
func NewStore(dataDir, project string) *Store {
	return &Store{dataDir: dataDir, project: project}
}

// Project returns the project key the store serves.
func (s *Store) Project() string {
	return s.project
}

// ProjectDir returns the per-project data directory.
func (s *Store) ProjectDir() string {
	return filepath.Join(s.dataDir, s.project)
}

// ExportDir returns the directory holding the raw Jira issue files.
func (s *Store) ExportDir() string {
	return filepath.Join(s.ProjectDir(), "jira-export")
}

// AttachmentCacheDir returns the directory holding downloaded attachment
// payloads for one issue, named by attachment id.
func (s *Store) AttachmentCacheDir(issueKey string) string {
	return filepath.Join(s.ProjectDir(), "attachments", issueKey)
}

// ensureDirs creates the store directories if they do not exist.
func (s *Store) ensureDirs() error {
	return os.MkdirAll(s.ExportDir(), 0755)
}

func (s *Store) issueFilePath(issueKey string) string {
	return filepath.Join(s.ExportDir(), fmt.Sprintf("jira-%s.json", issueKey))
}

// WriteRaw stores the raw JSON of one issue as fetched from the tracker.
func (s *Store) WriteRaw(issueKey string, data []byte) error {
	if err := s.ensureDirs(); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(s.issueFilePath(issueKey), data, 0644); err != nil {
		return fmt.Errorf("failed to write issue file: %w", err)
	}
	return nil
}

// ReadIssue loads and parses one exported issue by key.
func (s *Store) ReadIssue(issueKey string) (*Issue, error) {
	data, err := os.ReadFile(s.issueFilePath(issueKey))
	if err != nil {
		return nil, fmt.Errorf("failed to read issue file: %w", err)
	}
	var issue Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse issue %s: %w", issueKey, err)
	}
	return &issue, nil
}

// IssueNumbers scans the export directory and returns the sorted numeric
// ids of all exported issues. A missing directory yields an empty list.
func (s *Store) IssueNumbers() ([]int, error) {
	entries, err := os.ReadDir(s.ExportDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read export directory: %w", err)
	}

	pattern := regexp.MustCompile(fmt.Sprintf(`^jira-%s-(\d+)\.json$`, regexp.QuoteMeta(s.project)))
	var numbers []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// Count returns the number of exported issues; it is the resume offset for
// the export phase.
func (s *Store) Count() (int, error) {
	numbers, err := s.IssueNumbers()
	if err != nil {
		return 0, err
	}
	return len(numbers), nil
}

// MaxIssueNumber returns the highest exported issue number, 0 when none.
func (s *Store) MaxIssueNumber() (int, error) {
	numbers, err := s.IssueNumbers()
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	return numbers[len(numbers)-1], nil
}

// IssueKey formats the key of issue n in this project.
func (s *Store) IssueKey(n int) string {
	return fmt.Sprintf("%s-%d", s.project, n)
}

func (s *Store) payloadFilePath(issueKey string) string {
	return filepath.Join(s.ProjectDir(), fmt.Sprintf("%s.json", issueKey))
}

// HasPayload reports whether a transformed import payload exists for the
// issue.
func (s *Store) HasPayload(issueKey string) bool {
	_, err := os.Stat(s.payloadFilePath(issueKey))
	return err == nil
}

// WritePayload stores one transformed import payload.
func (s *Store) WritePayload(issueKey string, payload any) error {
	if err := os.MkdirAll(s.ProjectDir(), 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := os.WriteFile(s.payloadFilePath(issueKey), data, 0644); err != nil {
		return fmt.Errorf("failed to write payload file: %w", err)
	}
	return nil
}

// ReadPayload loads one transformed import payload into out.
func (s *Store) ReadPayload(issueKey string, out any) error {
	data, err := os.ReadFile(s.payloadFilePath(issueKey))
	if err != nil {
		return fmt.Errorf("failed to read payload file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse payload %s: %w", issueKey, err)
	}
	return nil
}
