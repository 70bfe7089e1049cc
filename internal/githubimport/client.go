// Package githubimport drives the GitHub bulk issue-import API: milestone
// lookup, payload submission and job polling.
package githubimport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/transform"
)

const (
	defaultBaseURL = "https://api.github.com"
	// acceptImport is the preview media type the bulk-import API requires.
	acceptImport = "application/vnd.github.golden-comet-preview+json"

	pollMaxElapsed = 10 * time.Minute
)

// Client talks to the GitHub API for one target repository.
type Client struct {
	httpClient *http.Client
	baseURL    string
	org        string
	repo       string
	token      string
	log        *logrus.Entry
}

// NewClient creates a client for one organization/repository pair.
func NewClient(org, repo, token string, log *logrus.Entry) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		org:        org,
		repo:       repo,
		token:      token,
		log:        log,
	}
}

// WithBaseURL points the client at a different API root.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.org+" Jira Migration")
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", acceptImport)
	return req, nil
}

// Milestones returns the repository's milestones as a title-to-number map.
func (c *Client) Milestones(ctx context.Context) (map[string]int, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/milestones?state=all&per_page=100", c.baseURL, c.org, c.repo)
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build milestones request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch milestones: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch milestones: HTTP %d: %s", resp.StatusCode, body)
	}

	var milestones []struct {
		Title  string `json:"title"`
		Number int    `json:"number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&milestones); err != nil {
		return nil, fmt.Errorf("failed to parse milestones: %w", err)
	}

	result := make(map[string]int, len(milestones))
	for _, milestone := range milestones {
		result[milestone.Title] = milestone.Number
	}
	return result, nil
}

// Job is one accepted import request being processed by GitHub.
type Job struct {
	URL      string `json:"url"`
	Status   string `json:"status"`
	IssueURL string `json:"issue_url"`
}

// Import submits one payload to the bulk-import endpoint. The payload's
// bookkeeping fields are stripped from the posted body.
func (c *Client) Import(ctx context.Context, payload *transform.Payload) (*Job, error) {
	body := struct {
		Issue    transform.Issue     `json:"issue"`
		Comments []transform.Comment `json:"comments,omitempty"`
	}{Issue: payload.Issue, Comments: payload.Comments}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode import payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/import/issues", c.baseURL, c.org, c.repo)
	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build import request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post import of %s: %w", payload.JiraKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("import of %s rejected: HTTP %d: %s", payload.JiraKey, resp.StatusCode, respBody)
	}

	job := &Job{}
	if err := json.NewDecoder(resp.Body).Decode(job); err != nil {
		return nil, fmt.Errorf("failed to parse import response for %s: %w", payload.JiraKey, err)
	}
	return job, nil
}

// Await polls the job until it leaves the pending state. It returns the
// final job on success and an error when the import failed or polling
// timed out.
func (c *Client) Await(ctx context.Context, job *Job) (*Job, error) {
	current := *job

	// BackOff implementations are stateful; always use a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxElapsedTime = pollMaxElapsed

	poll := func() error {
		req, err := c.newRequest(ctx, http.MethodGet, current.URL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build status request: %w", err))
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to poll import status: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("status poll returned HTTP %d: %s", resp.StatusCode, body)
		}
		if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse import status: %w", err))
		}
		if current.Status == "pending" {
			return fmt.Errorf("import still pending")
		}
		return nil
	}

	if err := backoff.Retry(poll, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	switch current.Status {
	case "imported":
		return &current, nil
	case "failed":
		return nil, fmt.Errorf("import failed for job %s", current.URL)
	default:
		return nil, fmt.Errorf("import job %s finished with unknown status %q", current.URL, current.Status)
	}
}
