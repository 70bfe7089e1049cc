package flagutil

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jira "github.com/andygrunwald/go-jira"

	"github.com/tickethist/jira2git/internal/config"
)

const (
	tokenFileName string = "jira-token"
)

// JiraOptions groups the tracker connection flags shared by the migration
// commands. Explicit flags win over the migration configuration.
type JiraOptions struct {
	Endpoint  string
	User      string
	TokenFile string

	token string
}

// AddFlags injects Jira options into the given FlagSet
func (o *JiraOptions) AddFlags(fs *flag.FlagSet) {
	configDir := config.MustMigrationConfigDir()
	defaultTokenPath := filepath.Join(configDir, tokenFileName)

	fs.StringVar(&o.Endpoint, "jira-endpoint", "", "Jira endpoint URL (defaults to JIRA_URL from the migration configuration)")
	fs.StringVar(&o.User, "jira-user", "", "Jira user name (defaults to JIRA_USER)")
	fs.StringVar(&o.TokenFile, "jira-token-file", defaultTokenPath, "Path to the file containing the Jira API token (falls back to JIRA_TOKEN)")
}

// Resolve fills unset options from the migration configuration and reads
// the token file when one exists.
func (o *JiraOptions) Resolve(migration *config.Migration) error {
	if o.Endpoint == "" {
		o.Endpoint = migration.JiraURL
	}
	if o.User == "" {
		o.User = migration.JiraUser
	}

	if data, err := os.ReadFile(o.TokenFile); err == nil {
		o.token = strings.TrimSpace(string(data))
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read Jira token file: %w", err)
	}
	if o.token == "" {
		o.token = migration.JiraToken
	}
	return nil
}

func (o *JiraOptions) Validate() error {
	if o.Endpoint == "" {
		return errors.New("no Jira endpoint configured (set --jira-endpoint or JIRA_URL)")
	}
	if o.User == "" {
		return errors.New("no Jira user configured (set --jira-user or JIRA_USER)")
	}
	if o.token == "" {
		return errors.New("no Jira token configured (provide a token file or JIRA_TOKEN)")
	}
	return nil
}

// Client builds an authenticated Jira client from the resolved options.
func (o *JiraOptions) Client() (*jira.Client, error) {
	transport := jira.BasicAuthTransport{Username: o.User, Password: o.token}
	client, err := jira.NewClient(transport.Client(), o.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to build Jira client: %w", err)
	}
	return client, nil
}
