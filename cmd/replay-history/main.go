package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/charmbracelet/fang"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tickethist/jira2git/internal/config"
	"github.com/tickethist/jira2git/internal/fields"
	"github.com/tickethist/jira2git/internal/gitrepo"
	"github.com/tickethist/jira2git/internal/history"
	"github.com/tickethist/jira2git/internal/identity"
	"github.com/tickethist/jira2git/internal/jiraexport"
	"github.com/tickethist/jira2git/internal/markup"
	"github.com/tickethist/jira2git/internal/record"
	"github.com/tickethist/jira2git/internal/replay"
	"github.com/tickethist/jira2git/internal/report"
)

var (
	configDir    string
	usersFile    string
	fieldsConfig string
	outputDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "replay-history",
		Short: "Replay a Jira project's changelog history as git commits",
		Long: `Replay a Jira project's full changelog history into a git-backed store
of per-issue record files.

Every issue's original state is reconstructed from its changelog, then all
changes across all issues are replayed in global chronological order, one
commit per (timestamp, author) group, with the original authors and dates
on the commits.`,
	}

	defaultConfigDir := config.MustMigrationConfigDir()
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir, "Directory holding the migration configuration (.env, projects.yaml)")
	rootCmd.PersistentFlags().StringVar(&usersFile, "users-file", filepath.Join(defaultConfigDir, "users.tsv"), "Tab-separated user directory")
	rootCmd.PersistentFlags().StringVar(&fieldsConfig, "fields-config", "", "Field configuration file (defaults to the built-in dictionary)")

	rootCmd.AddCommand(
		newReplayCmd(),
		newInspectCmd(),
	)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <project>",
		Short: "Replay the full project history into a git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0])
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "Git working tree to replay into (default <data>/<project>/history)")

	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <project> <issue>",
		Short: "Show the reconstructed original state and timeline of one issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			issue, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid issue number %q: %w", args[1], err)
			}
			return runInspect(args[0], issue)
		},
	}
}

func loadDictionary() (*fields.Dictionary, error) {
	if fieldsConfig == "" {
		return fields.Default(), nil
	}
	return fields.LoadConfig(fieldsConfig)
}

// reconstructAll reads every exported issue of the project and reconstructs
// its original state and timeline.
func reconstructAll(export *jiraexport.Store, dict *fields.Dictionary, log *logrus.Entry) (map[int]*history.Reconstruction, error) {
	numbers, err := export.IssueNumbers()
	if err != nil {
		return nil, fmt.Errorf("failed to scan exported issues: %w", err)
	}

	recons := make(map[int]*history.Reconstruction, len(numbers))
	for _, n := range numbers {
		key := export.IssueKey(n)
		issue, err := export.ReadIssue(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read export of %s: %w", key, err)
		}
		recon, err := history.Reconstruct(issue, dict, log.WithField("issue", key))
		if err != nil {
			return nil, fmt.Errorf("failed to reconstruct %s: %w", key, err)
		}
		recons[n] = recon
	}
	return recons, nil
}

func runReplay(project string) error {
	log := logrus.WithField("project", project)

	migration, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("failed to load migration configuration: %w", err)
	}

	dict, err := loadDictionary()
	if err != nil {
		return err
	}

	users, err := identity.Load(usersFile)
	if err != nil {
		return fmt.Errorf("failed to load user directory: %w", err)
	}

	export := jiraexport.NewStore(migration.DataDir, project)

	recons, err := reconstructAll(export, dict, log)
	if err != nil {
		return err
	}
	if len(recons) == 0 {
		return fmt.Errorf("no exported issues for project %s under %s", project, export.ExportDir())
	}

	root := outputDir
	if root == "" {
		root = filepath.Join(migration.DataDir, project, "history")
	}

	repo, err := gitrepo.Init(root)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}

	existing, err := repo.HeadCount()
	if err != nil {
		return fmt.Errorf("failed to inspect repository: %w", err)
	}

	records := record.NewStore(root, dict, log)
	convert := markup.NewConverter(migration.JiraURL+"/browse", project)

	replayer := replay.New(dict, users, records, repo, convert, export, log)
	if existing > 0 {
		log.Infof("Repository already holds %d commits, resuming after them", existing)
		replayer.SetSkip(existing)
	}

	counters, err := replayer.Run(recons)
	if err != nil {
		return err
	}

	unknown := make(map[string]int)
	for _, recon := range recons {
		for _, field := range recon.UnknownFields {
			unknown[field]++
		}
	}

	fmt.Println(report.Render(report.Summary{
		Project:  project,
		Issues:   len(recons),
		Counters: counters,
		Unknown:  unknown,
	}))
	return nil
}

func runInspect(project string, issue int) error {
	log := logrus.WithField("project", project)

	migration, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("failed to load migration configuration: %w", err)
	}

	dict, err := loadDictionary()
	if err != nil {
		return err
	}

	export := jiraexport.NewStore(migration.DataDir, project)
	key := export.IssueKey(issue)

	exported, err := export.ReadIssue(key)
	if err != nil {
		return fmt.Errorf("failed to read export of %s: %w", key, err)
	}

	recon, err := history.Reconstruct(exported, dict, log.WithField("issue", key))
	if err != nil {
		return fmt.Errorf("failed to reconstruct %s: %w", key, err)
	}

	fmt.Printf("%s created %s by %s\n", recon.Key,
		gitrepo.FormatWhen(recon.CreatedAt), recon.Creator.Ref())
	if recon.CloneOf != 0 {
		fmt.Printf("cloned from issue #%d\n", recon.CloneOf)
	}

	fmt.Println("\nOriginal state:")
	for _, name := range dict.Order() {
		value, ok := recon.Original[name]
		if !ok {
			continue
		}
		fmt.Printf("  %s: %s\n", name, value.String())
	}
	for name, value := range recon.Original {
		if !dict.Ordered(name) {
			fmt.Printf("  %s: %s\n", name, value.String())
		}
	}

	if len(recon.OriginalAttachments) > 0 {
		fmt.Println("\nAttachments since creation:")
		for _, seed := range recon.OriginalAttachments {
			fmt.Printf("  %s (Jira id %s)\n", seed.Filename, seed.ID)
		}
	}

	fmt.Println("\nTimeline:")
	for _, name := range sortedTimelineFields(recon) {
		for _, change := range recon.Timeline[name] {
			fmt.Printf("  %s %s: %q -> %q by %s\n",
				gitrepo.FormatWhen(change.At), name,
				change.FromText, change.ToText, change.Author.Ref())
		}
	}

	if len(recon.UnknownFields) > 0 {
		fmt.Printf("\nUnknown fields: %v\n", recon.UnknownFields)
	}
	return nil
}

func sortedTimelineFields(recon *history.Reconstruction) []string {
	names := make([]string, 0, len(recon.Timeline))
	for name := range recon.Timeline {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
