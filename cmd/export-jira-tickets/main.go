package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/config"
	"github.com/tickethist/jira2git/internal/flagutil"
	"github.com/tickethist/jira2git/internal/jiraclient"
	"github.com/tickethist/jira2git/internal/jiraexport"
)

type options struct {
	configDir string
	startAt   int

	project string

	jira flagutil.JiraOptions
}

func gatherOptions() options {
	var o options
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	fs.StringVar(&o.configDir, "config-dir", config.MustMigrationConfigDir(), "Directory holding the migration configuration (.env, projects.yaml)")
	fs.IntVar(&o.startAt, "start-at", -1, "Search offset to resume from (default: the number of already exported issues)")

	o.jira.AddFlags(fs)

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
	if _, ok := migration.Repo(o.project); !ok {
		logrus.Errorf("Unknown project: %s", o.project)
		os.Exit(2)
	}

	if err := o.jira.Resolve(migration); err != nil {
		logrus.WithError(err).Fatal("cannot resolve Jira options")
	}
	if err := o.jira.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid options")
	}

	client, err := jiraclient.NewClient(o.jira)
	if err != nil {
		logrus.WithError(err).Fatal("cannot create Jira client")
	}

	store := jiraexport.NewStore(migration.DataDir, o.project)

	startAt := o.startAt
	if startAt < 0 {
		count, err := store.Count()
		if err != nil {
			logrus.WithError(err).Fatal("cannot count already exported issues")
		}
		startAt = count
	}

	ctx := context.Background()
	exported := 0
	for {
		page, err := client.SearchProject(ctx, o.project, startAt)
		if err != nil {
			logrus.WithError(err).Errorf("Could not fetch issues of project '%s'", o.project)
			os.Exit(3)
		}
		if len(page.Issues) == 0 {
			logrus.Infof("Exported %d issues from Jira into %s", exported, store.ExportDir())
			return
		}

		for _, raw := range page.Issues {
			key, err := jiraclient.IssueKey(raw)
			if err != nil {
				logrus.WithError(err).Errorf("Malformed search result at offset %d", startAt)
				os.Exit(3)
			}
			if err := store.WriteRaw(key, raw); err != nil {
				logrus.WithError(err).Fatalf("cannot write export of %s", key)
			}
			logrus.Infof("Processed issue: %s (Idx: %d)", key, startAt)
			startAt++
			exported++
		}

		logrus.Infof("Completed batch, continuing with start at %d", startAt)
	}
}
