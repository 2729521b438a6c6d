package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"relkit/src/logger"
	"relkit/src/release"
	"relkit/src/teamcity"
	"relkit/src/tui"
	"relkit/src/version"
)

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func newPinCmd(a *app) *cobra.Command {
	var req release.MoveRequest

	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Move a tag and pin to the build that produced an artifact",
		Long: `Removes the tag from the pinned build that currently carries it (unpinning
that build when the tag was its only one), then tags and pins the newest
build of the configuration on the branch that produced the artifact.

Running the command twice leaves the same state as running it once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			tagger := release.NewTagger(client, a.log, a.publisher())

			result, err := tagger.MoveTag(cmd.Context(), req)
			if err != nil {
				return err
			}
			if result.Previous != nil && result.Previous.ID != result.Current.ID {
				fmt.Fprintf(a.stdout, "Moved %s from build %d to build %d\n", req.Tag, result.Previous.ID, result.Current.ID)
			} else {
				fmt.Fprintf(a.stdout, "Tagged build %d with %s\n", result.Current.ID, req.Tag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Branch, "branch-name", "", "Branch of the builds")
	cmd.Flags().StringVar(&req.BuildConfigID, "build-config-id", "", "TeamCity build configuration id")
	cmd.Flags().StringVar(&req.ArtifactName, "artifact-name", "", "Artifact the new build must have produced")
	cmd.Flags().StringVar(&req.ArtifactPath, "artifact-path", "", "Directory of the artifact inside the build artifacts")
	cmd.Flags().StringVar(&req.Tag, "tag", "", "Tag to move")
	markRequired(cmd, "branch-name", "build-config-id", "artifact-name", "tag")
	return cmd
}

func newTriggerCmd(a *app) *cobra.Command {
	var (
		req            release.RunRequest
		refreshSeconds int
		timeout        time.Duration
		useTUI         bool
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger a build and wait for it and its dependent builds",
		Long: `Queues a build of the configuration on the branch and polls it until it
finishes. When it succeeded, the builds that are snapshot-dependent on it
are waited on as well.

--timeout bounds the whole wait; 0 waits forever.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refreshSeconds <= 0 {
				return fmt.Errorf("--refresh-interval must be positive")
			}
			req.Interval = time.Duration(refreshSeconds) * time.Second

			client, err := a.client()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var log logger.Logger = a.log
			if useTUI {
				log = logger.NewSilentLogger()
			}
			runner := release.NewRunner(client, log, a.publisher())

			var result *release.RunResult
			work := func(ctx context.Context, report func(teamcity.Build)) (bool, error) {
				runner.OnStatus(report)
				var err error
				result, err = runner.Run(ctx, req)
				if err != nil {
					return false, err
				}
				return runSucceeded(result), nil
			}

			var ok bool
			if useTUI {
				title := fmt.Sprintf("%s on %s", req.BuildConfigID, req.Branch)
				ok, err = tui.RunWatch(ctx, title, work)
			} else {
				ok, err = work(ctx, func(b teamcity.Build) {
					a.log.Debug("Build %d: %s %s", b.ID, b.State, b.Status)
				})
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(a.stdout, result.BuildID)
			if !ok {
				return fmt.Errorf("build %d or one of its dependent builds failed", result.BuildID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Branch, "branch-name", "", "Branch to build")
	cmd.Flags().StringVar(&req.BuildConfigID, "build-config-id", "", "TeamCity build configuration id")
	cmd.Flags().IntVarP(&refreshSeconds, "refresh-interval", "f", 30, "Seconds between status polls")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Maximum time to wait (0 waits forever)")
	cmd.Flags().BoolVar(&req.SkipDependents, "skip-dependents", false, "Do not wait for dependent builds")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show live build status in a terminal view")
	markRequired(cmd, "branch-name", "build-config-id")
	return cmd
}

func runSucceeded(r *release.RunResult) bool {
	if r == nil || !r.Succeeded {
		return false
	}
	for _, d := range r.Dependents {
		if !d.Succeeded {
			return false
		}
	}
	return true
}

func newBuildNumberCmd(a *app) *cobra.Command {
	var configID, ver string

	cmd := &cobra.Command{
		Use:   "build-number",
		Short: "Print the build counter of the release build of a version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := version.CheckSemantic(ver); err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			number, err := release.NewLocator(client, a.log).FindBuildNumber(cmd.Context(), configID, ver)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, number)
			return nil
		},
	}

	cmd.Flags().StringVar(&configID, "build-config-id", "", "TeamCity build configuration id")
	cmd.Flags().StringVar(&ver, "version", "", "Release version, e.g. 1.2.3")
	markRequired(cmd, "build-config-id", "version")
	return cmd
}

func newPauseCmd(a *app, pause bool) *cobra.Command {
	var configID string

	use, short := "resume", "Resume a paused build configuration"
	if pause {
		use, short = "pause", "Pause a build configuration"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.SetPaused(cmd.Context(), configID, pause); err != nil {
				return fmt.Errorf("failed to %s %s: %w", use, configID, err)
			}
			a.log.Info("Build configuration %s: paused=%t", configID, pause)
			return nil
		},
	}

	cmd.Flags().StringVar(&configID, "build-config-id", "", "TeamCity build configuration id")
	markRequired(cmd, "build-config-id")
	return cmd
}

func newBuildsCmd(a *app) *cobra.Command {
	var (
		branch, configID, tag string
		count                 int
		pinned                bool
	)

	cmd := &cobra.Command{
		Use:   "builds",
		Short: "List builds of a configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}

			loc := teamcity.BranchConfig(branch, configID).
				With("tag", tag).
				With("count", strconv.Itoa(count))
			if pinned {
				loc = loc.With("pinned", "true")
			}

			builds, err := client.ListBuilds(cmd.Context(), loc)
			if err != nil {
				return err
			}
			if len(builds) == 0 {
				return fmt.Errorf("%w: no builds match %s", teamcity.ErrNotFound, loc)
			}
			printBuilds(a, builds)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch-name", "", "Branch of the builds")
	cmd.Flags().StringVar(&configID, "build-config-id", "", "TeamCity build configuration id")
	cmd.Flags().StringVar(&tag, "tag", "", "Only builds carrying this tag")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "Only pinned builds")
	cmd.Flags().IntVar(&count, "count", 10, "Maximum number of builds")
	markRequired(cmd, "build-config-id")
	return cmd
}

var buildColumns = []struct {
	title string
	width int
}{
	{"ID", 10},
	{"NUMBER", 14},
	{"BRANCH", 24},
	{"STATE", 9},
	{"STATUS", 8},
	{"PINNED", 6},
	{"TAGS", 30},
}

func printBuilds(a *app, builds []teamcity.Build) {
	row := func(cells ...string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = tui.PadRight(c, buildColumns[i].width)
		}
		fmt.Fprintln(a.stdout, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	titles := make([]string, len(buildColumns))
	for i, c := range buildColumns {
		titles[i] = c.title
	}
	row(titles...)

	for i := range builds {
		b := &builds[i]
		pinned := ""
		if b.Pinned {
			pinned = "yes"
		}
		row(strconv.FormatInt(b.ID, 10), b.Number, b.BranchName, b.State, b.Status, pinned, strings.Join(b.TagNames(), ","))
	}
}
