package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/defectset/internal/cache"
	"github.com/rohankatakam/defectset/internal/config"
	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/git"
	"github.com/rohankatakam/defectset/internal/github"
	"github.com/rohankatakam/defectset/internal/jira"
	"github.com/rohankatakam/defectset/internal/output"
	"github.com/rohankatakam/defectset/internal/pipeline"
	"github.com/rohankatakam/defectset/internal/storage"
)

var (
	buildOutputDir string
	buildWorkers   int
	buildNoCache   bool
	buildSeed      bool
)

var buildCmd = &cobra.Command{
	Use:   "build [PROJECT...]",
	Short: "Build the defect dataset of one or more projects",
	Long: `Build fetches releases and fixed tickets from the project's tracker,
walks the repository history and writes <PROJECT>_dataset.csv.

Without arguments every project in the configuration is built.

Examples:
  defectset build AVRO BOOKKEEPER
  defectset build --output ./datasets --workers 2`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutputDir, "output", "o", "", "output directory (overrides output.directory)")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "projects built concurrently (overrides workers)")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "do not cache tracker responses")
	buildCmd.Flags().BoolVar(&buildSeed, "seed-head-files", false, "add clean rows for every file at HEAD")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if buildOutputDir != "" {
		cfg.Output.Directory = buildOutputDir
	}
	if buildWorkers > 0 {
		cfg.Workers = buildWorkers
	}
	if buildSeed {
		cfg.Git.SeedHeadFiles = true
	}

	validation := cfg.Validate()
	for _, w := range validation.Warnings {
		logger.Warn(w)
	}
	if err := validation.Err(); err != nil {
		return err
	}

	selected, err := selectProjects(cfg, args)
	if err != nil {
		return err
	}

	var responses *cache.Manager
	if !buildNoCache && cfg.Cache.Path != "" {
		responses, err = cache.Open(cfg.Cache.Path, cfg.Cache.TTL, logger)
		if err != nil {
			logger.WithError(err).Warn("Tracker cache unavailable, continuing without it")
			responses = nil
		}
		defer responses.Close()
	}

	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	files := pipeline.NewFileSink(cfg.Output.Directory, cfg.Output.ARFF, cfg.Output.Manifest, logger)
	runner := pipeline.NewRunner(logger, pipeline.Options{SeedHeadFiles: cfg.Git.SeedHeadFiles}).
		AddSink(files).
		AddRecorder(files)
	if store != nil {
		runner.AddRecorder(pipeline.NewStoreSink(store, logger))
	}

	projects := make([]pipeline.Project, 0, len(selected))
	for _, pc := range selected {
		p, err := newProject(pc, responses)
		if err != nil {
			return err
		}
		projects = append(projects, p)
	}

	outcomes, err := runner.RunAll(ctx, projects, cfg.Workers)
	if err != nil {
		return err
	}

	summary := make([]output.SummaryRow, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			summary = append(summary, output.SummaryRow{Project: o.Project, Err: o.Err})
			continue
		}
		summary = append(summary, o.Result.SummaryRow())
	}

	fmt.Println(output.RenderSummary(summary))
	fmt.Printf("\nDatasets written to %s\n", cfg.Output.Directory)

	if failed > 0 {
		return fmt.Errorf("%d of %d projects failed", failed, len(outcomes))
	}
	return nil
}

// selectProjects returns the configured projects named in args, or all of
// them when args is empty.
func selectProjects(c *config.Config, args []string) ([]config.ProjectConfig, error) {
	if len(args) == 0 {
		if len(c.Projects) == 0 {
			return nil, errors.ConfigErrorf("no projects configured")
		}
		return c.Projects, nil
	}

	selected := make([]config.ProjectConfig, 0, len(args))
	for _, key := range args {
		pc, ok := c.Project(key)
		if !ok {
			return nil, errors.ConfigErrorf("project %q is not configured", strings.ToUpper(key))
		}
		selected = append(selected, pc)
	}
	return selected, nil
}

// newProject wires the tracker and repository of one configured project.
func newProject(pc config.ProjectConfig, responses *cache.Manager) (pipeline.Project, error) {
	p := pipeline.Project{
		Key:         pc.Key,
		OpenCommits: commitOpener(pc),
	}

	switch pc.Tracker {
	case "github":
		client, err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.BaseURL, cfg.GitHub.RateLimit, logger)
		if err != nil {
			return p, err
		}
		tracker := github.NewTracker(client, github.IssueQuery{
			Owner:               pc.Owner,
			Repo:                pc.Repo,
			Key:                 pc.Key,
			BugLabel:            pc.BugLabel,
			AffectedLabelPrefix: pc.AffectedLabelPrefix,
		})
		p.Releases, p.Tickets = tracker, tracker
	default:
		client := jira.NewClient(cfg.Jira.BaseURL, cfg.Jira.PageSize, cfg.Jira.RateLimit, responses, logger)
		p.Releases, p.Tickets = client, client
	}
	return p, nil
}

func commitOpener(pc config.ProjectConfig) func(ctx context.Context) (pipeline.CommitSource, error) {
	opts := git.Options{
		FileExtension: cfg.Git.FileExtension,
		KeepClone:     cfg.Git.KeepClone,
		Logger:        logger,
	}
	return func(ctx context.Context) (pipeline.CommitSource, error) {
		var (
			repo *git.Repository
			err  error
		)
		if pc.RepoPath != "" {
			repo, err = git.Open(pc.RepoPath, opts)
		} else {
			logger.WithFields(logrus.Fields{
				"project": pc.Key,
				"url":     pc.RepoURL,
			}).Info("Cloning repository")
			repo, err = git.Clone(ctx, pc.RepoURL, cfg.Git.WorkDir, opts)
		}
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}
