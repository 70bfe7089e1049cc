package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/config"
	"github.com/tickethist/jira2git/internal/githubimport"
	"github.com/tickethist/jira2git/internal/identity"
	"github.com/tickethist/jira2git/internal/jiraexport"
	"github.com/tickethist/jira2git/internal/markup"
	"github.com/tickethist/jira2git/internal/transform"
)

type options struct {
	configDir string
	usersFile string

	project string
	issue   int
}

func gatherOptions() options {
	var o options
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	configDir := config.MustMigrationConfigDir()
	fs.StringVar(&o.configDir, "config-dir", configDir, "Directory holding the migration configuration (.env, projects.yaml)")
	fs.StringVar(&o.usersFile, "users-file", filepath.Join(configDir, "users.tsv"), "Tab-separated user directory")

	if err := fs.Parse(os.Args[1:]); err != nil {
		logrus.WithError(err).Fatalf("cannot parse args: '%s'", os.Args[1:])
	}

	if fs.NArg() < 1 {
		logrus.Error("Missing argument: Project Key")
		os.Exit(1)
	}
	o.project = fs.Arg(0)

	if fs.NArg() > 1 {
		issue, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			logrus.WithError(err).Fatalf("invalid issue number %q", fs.Arg(1))
		}
		o.issue = issue
	}

	return o
}

func main() {
	o := gatherOptions()

	migration, err := config.Load(o.configDir)
	if err != nil {
		logrus.WithError(err).Fatal("cannot load migration configuration")
	}
	repo, ok := migration.Repo(o.project)
	if !ok {
		logrus.Errorf("Unknown project: %s", o.project)
		os.Exit(2)
	}

	users, err := identity.Load(o.usersFile)
	if err != nil {
		logrus.WithError(err).Fatal("cannot load user directory")
	}

	var milestones map[string]int
	if migration.GithubToken != "" {
		github := githubimport.NewClient(migration.GithubOrg, repo, migration.GithubToken, logrus.WithField("repo", repo))
		milestones, err = github.Milestones(context.Background())
		if err != nil {
			logrus.WithError(err).Error("Could not fetch existing Github Milestones")
			os.Exit(3)
		}
	} else {
		logrus.Warn("No GitHub token configured, skipping milestone assignment")
	}

	convert := markup.NewConverter(migration.JiraURL+"/browse", o.project)
	transformer := transform.New(migration, users, convert, milestones, logrus.WithField("project", o.project))
	store := jiraexport.NewStore(migration.DataDir, o.project)

	numbers := []int{o.issue}
	if o.issue == 0 {
		if numbers, err = store.IssueNumbers(); err != nil {
			logrus.WithError(err).Fatal("cannot scan exported issues")
		}
	}

	for idx, n := range numbers {
		key := store.IssueKey(n)
		issue, err := store.ReadIssue(key)
		if err != nil {
			logrus.WithError(err).Fatalf("cannot read export of %s", key)
		}

		payload := transformer.Payload(issue)
		if err := store.WritePayload(key, payload); err != nil {
			logrus.WithError(err).Fatalf("cannot write payload of %s", key)
		}
		logrus.Infof("Processed issue: %s (Idx: %d)", key, idx)
	}
}
