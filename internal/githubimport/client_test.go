package githubimport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/transform"
)

func newTestClient(server *httptest.Server) *Client {
	client := NewClient("example", "pdf-ua-issues", "token-value", logrus.NewEntry(logrus.New()))
	return client.WithBaseURL(server.URL)
}

func TestMilestones(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/example/pdf-ua-issues/milestones" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("state"); got != "all" {
			t.Errorf("expected state=all, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "token token-value" {
			t.Errorf("unexpected authorization header %q", got)
		}
		fmt.Fprint(w, `[{"title": "1.0.1", "number": 3}, {"title": "1.1.0", "number": 4}]`)
	}))
	defer server.Close()

	milestones, err := newTestClient(server).Milestones(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(milestones) != 2 || milestones["1.0.1"] != 3 || milestones["1.1.0"] != 4 {
		t.Errorf("unexpected milestone map: %v", milestones)
	}
}

func TestMilestonesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	if _, err := newTestClient(server).Milestones(context.Background()); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestImportStripsBookkeepingFields(t *testing.T) {
	var posted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected a POST, got %s", r.Method)
		}
		if got := r.Header.Get("Accept"); got != acceptImport {
			t.Errorf("expected accept header %q, got %q", acceptImport, got)
		}
		if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
			t.Errorf("unexpected error decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"url": "https://api.github.com/jobs/1", "status": "pending"}`)
	}))
	defer server.Close()

	payload := &transform.Payload{
		JiraKey:     "PDFUA-4",
		DeleteIssue: true,
		Issue:       transform.Issue{Title: "PDFUA-4: fake issue to be deleted", Body: "body"},
	}

	job, err := newTestClient(server).Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != "pending" {
		t.Errorf("expected a pending job, got %q", job.Status)
	}

	if _, ok := posted["jiraKey"]; ok {
		t.Error("expected the Jira key to be stripped from the posted body")
	}
	if _, ok := posted["deleteIssue"]; ok {
		t.Error("expected the deletion marker to be stripped from the posted body")
	}
	if _, ok := posted["issue"]; !ok {
		t.Error("expected the posted body to carry the issue")
	}
}

func TestAwaitPollsPastPending(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := "pending"
		if polls >= 2 {
			status = "imported"
		}
		fmt.Fprintf(w, `{"url": %q, "status": %q, "issue_url": "https://github.com/example/pdf-ua-issues/issues/4"}`,
			"http://"+r.Host+r.URL.Path, status)
	}))
	defer server.Close()

	job := &Job{URL: server.URL + "/jobs/1", Status: "pending"}
	final, err := newTestClient(server).Await(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Status != "imported" {
		t.Errorf("expected status %q, got %q", "imported", final.Status)
	}
	if polls < 2 {
		t.Errorf("expected at least 2 polls, got %d", polls)
	}
}

func TestAwaitFailedImport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"url": "u", "status": "failed"}`)
	}))
	defer server.Close()

	job := &Job{URL: server.URL + "/jobs/1", Status: "pending"}
	if _, err := newTestClient(server).Await(context.Background(), job); err == nil {
		t.Error("expected an error for a failed import")
	} else if !strings.Contains(err.Error(), "import failed") {
		t.Errorf("expected an import failure, got: %v", err)
	}
}
