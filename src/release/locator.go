// Package release implements the release-pipeline workflows on top of the
// TeamCity client: locating builds, moving pin/tag pointers, triggering
// builds and waiting on them, and downloading tagged artifacts.
package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"relkit/src/logger"
	"relkit/src/teamcity"
	"relkit/src/version"
)

// Locator finds builds by tag or by produced artifact.
//
// Lookups report "nothing suitable" as an error matching teamcity.ErrNotFound.
// Non-2xx answers to the lookup queries are folded into that outcome;
// transport failures are returned unchanged.
type Locator struct {
	client *teamcity.Client
	log    logger.Logger
}

// NewLocator creates a Locator.
func NewLocator(client *teamcity.Client, log logger.Logger) *Locator {
	return &Locator{client: client, log: log}
}

// FindTaggedBuild returns the full record of the most recent pinned build of
// configID on branch carrying tag.
func (l *Locator) FindTaggedBuild(ctx context.Context, branch, configID, tag string) (*teamcity.Build, error) {
	loc := teamcity.BranchConfig(branch, configID).
		With("tag", tag).
		With("pinned", "true").
		With("count", "1")
	l.log.Debug("Looking up tagged build: %s", loc)

	builds, err := l.client.ListBuilds(ctx, loc)
	if err != nil {
		return nil, softFail(err)
	}
	if len(builds) == 0 {
		return nil, fmt.Errorf("%w: no pinned build of %s on %s tagged %q", teamcity.ErrNotFound, configID, branch, tag)
	}

	build, err := l.client.GetBuild(ctx, builds[0].ID)
	if err != nil {
		return nil, softFail(err)
	}
	return build, nil
}

// FindBuildWithArtifact walks the builds of configID on branch in server
// order and returns the first whose artifacts under artifactPath contain
// artifactName. Candidates whose listing or detail request fails are skipped.
func (l *Locator) FindBuildWithArtifact(ctx context.Context, branch, configID, artifactPath, artifactName string) (*teamcity.Build, error) {
	builds, err := l.client.ListBuilds(ctx, teamcity.BranchConfig(branch, configID))
	if err != nil {
		return nil, softFail(err)
	}

	for _, candidate := range builds {
		files, err := l.client.ListArtifacts(ctx, candidate.ID, artifactPath)
		if err != nil {
			if teamcity.StatusCode(err) == 0 {
				return nil, err
			}
			l.log.Warn("Skipping build %d: artifact listing failed: %v", candidate.ID, err)
			continue
		}
		if !containsFile(files, artifactName) {
			continue
		}

		build, err := l.client.GetBuild(ctx, candidate.ID)
		if err != nil {
			if teamcity.StatusCode(err) == 0 {
				return nil, err
			}
			l.log.Warn("Skipping build %d: %v", candidate.ID, err)
			continue
		}
		return build, nil
	}

	return nil, fmt.Errorf("%w: no build of %s on %s has artifact %q", teamcity.ErrNotFound, configID, branch, artifactName)
}

// FindBuildNumber returns the build counter of the release build for ver:
// the build of configID on release/v<ver> tagged v<ver>. TeamCity numbers
// look like "<counter>+<short hash>"; only the counter is returned.
func (l *Locator) FindBuildNumber(ctx context.Context, configID, ver string) (string, error) {
	tag := version.Tag(ver)
	branch := version.ReleaseBranch(ver)
	loc := teamcity.NewLocator().
		With("buildType", configID).
		With("branch", branch).
		With("tag", tag)

	builds, err := l.client.ListBuilds(ctx, loc)
	if err != nil {
		return "", err
	}
	if len(builds) == 0 {
		return "", fmt.Errorf("%w: no builds found matching the criteria [buildType: %s, branch: %s, tag: %s]",
			teamcity.ErrNotFound, configID, branch, tag)
	}

	counter, _, _ := strings.Cut(builds[0].Number, "+")
	return strings.TrimSpace(counter), nil
}

// softFail folds HTTP errors into the not-found outcome.
func softFail(err error) error {
	if teamcity.StatusCode(err) == 0 || errors.Is(err, teamcity.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", teamcity.ErrNotFound, err)
}

func containsFile(files []teamcity.File, name string) bool {
	for _, f := range files {
		if f.Name == name {
			return true
		}
	}
	return false
}
