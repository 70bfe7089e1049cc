// Package jiraclient wraps the go-jira client with the raw,
// changelog-expanded project search the export phase needs.
package jiraclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	jira "github.com/andygrunwald/go-jira"

	"github.com/tickethist/jira2git/internal/flagutil"
)

// SearchPage is one page of a changelog-expanded project search. Issues
// stay raw so the export persists exactly what the tracker returned.
type SearchPage struct {
	StartAt    int               `json:"startAt"`
	MaxResults int               `json:"maxResults"`
	Total      int               `json:"total"`
	Issues     []json.RawMessage `json:"issues"`
}

// Client wraps the go-jira client with our specific functionality
type Client struct {
	jiraClient *jira.Client
}

// NewClient creates a new Jira client using the existing flagutil pattern
func NewClient(jiraOptions flagutil.JiraOptions) (*Client, error) {
	jiraClient, err := jiraOptions.Client()
	if err != nil {
		return nil, fmt.Errorf("failed to create Jira client: %w", err)
	}

	return &Client{
		jiraClient: jiraClient,
	}, nil
}

// SearchProject fetches one page of the project's issues in creation
// order, with all fields and the full changelog.
func (c *Client) SearchProject(ctx context.Context, project string, startAt int) (*SearchPage, error) {
	query := url.Values{}
	query.Set("jql", fmt.Sprintf("project = %s ORDER BY created ASC", project))
	query.Set("fields", "*all")
	query.Set("expand", "changelog")
	query.Set("startAt", strconv.Itoa(startAt))

	req, err := c.jiraClient.NewRequestWithContext(ctx, "GET", "rest/api/2/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	page := &SearchPage{}
	if _, err := c.jiraClient.Do(req, page); err != nil {
		return nil, fmt.Errorf("failed to search project %s at offset %d: %w", project, startAt, err)
	}
	return page, nil
}

// IssueKey extracts the issue key from one raw search result.
func IssueKey(raw json.RawMessage) (string, error) {
	var envelope struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("failed to parse issue envelope: %w", err)
	}
	if envelope.Key == "" {
		return "", fmt.Errorf("search result has no issue key")
	}
	return envelope.Key, nil
}
