package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/config"
	"github.com/tickethist/jira2git/internal/githubimport"
	"github.com/tickethist/jira2git/internal/jiraexport"
	"github.com/tickethist/jira2git/internal/transform"
)

type options struct {
	configDir string

	project string
}

func gatherOptions() options {
	var o options
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	fs.StringVar(&o.configDir, "config-dir", config.MustMigrationConfigDir(), "Directory holding the migration configuration (.env, projects.yaml)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		logrus.WithError(err).Fatalf("cannot parse args: '%s'", os.Args[1:])
	}

	if fs.NArg() != 1 {
		logrus.Error("Missing argument: Project Key")
		os.Exit(1)
	}
	o.project = fs.Arg(0)

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
	if migration.GithubToken == "" {
		logrus.Fatal("no GitHub token configured (set GITHUB_TOKEN)")
	}

	store := jiraexport.NewStore(migration.DataDir, o.project)
	github := githubimport.NewClient(migration.GithubOrg, repo, migration.GithubToken, logrus.WithField("repo", repo))

	maxIssue, err := store.MaxIssueNumber()
	if err != nil {
		logrus.WithError(err).Fatal("cannot determine highest issue number")
	}

	ctx := context.Background()
	for n := 1; n <= maxIssue; n++ {
		issueKey := store.IssueKey(n)

		var payload *transform.Payload
		if store.HasPayload(issueKey) {
			logrus.Infof("Creating real issue: %s", issueKey)
			payload = &transform.Payload{}
			if err := store.ReadPayload(issueKey, payload); err != nil {
				logrus.WithError(err).Fatalf("cannot read payload of %s", issueKey)
			}
		} else {
			// A gap in the numbering: GitHub issue numbers must stay
			// aligned with the tracker's, so the gap is filled with a
			// placeholder issue.
			logrus.Infof("Creating fake issue: %s", issueKey)
			payload = transform.FakePayload(issueKey)
		}

		job, err := github.Import(ctx, payload)
		if err != nil {
			logrus.WithError(err).Fatalf("cannot import %s", issueKey)
		}
		if _, err := github.Await(ctx, job); err != nil {
			logrus.WithError(err).Fatalf("import of %s did not complete", issueKey)
		}
		logrus.Infof("Imported %s", issueKey)
	}
}
