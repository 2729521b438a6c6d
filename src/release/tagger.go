package release

import (
	"context"
	"errors"
	"fmt"

	"relkit/src/events"
	"relkit/src/logger"
	"relkit/src/teamcity"
)

// ErrNoCandidate is returned by MoveTag when no build produced the artifact.
// The tag has already been removed from the previous build at that point.
var ErrNoCandidate = errors.New("no build to tag")

// MoveRequest describes a tag move: tag the newest build of BuildConfigID on
// Branch that produced ArtifactName (under ArtifactPath, default root).
type MoveRequest struct {
	Branch        string
	BuildConfigID string
	ArtifactPath  string
	ArtifactName  string
	Tag           string
}

// MoveResult reports what MoveTag changed.
type MoveResult struct {
	// Previous is the build the tag was removed from, if any.
	Previous *teamcity.Build
	// Unpinned is set when Previous lost its pin.
	Unpinned bool
	// Current is the build that now carries the tag and pin.
	Current *teamcity.Build
}

// Tagger pins and tags release builds, treating a tag as a movable pointer.
type Tagger struct {
	client  *teamcity.Client
	locator *Locator
	log     logger.Logger
	notify  notifier
}

// NewTagger creates a Tagger. pub may be nil.
func NewTagger(client *teamcity.Client, log logger.Logger, pub events.Publisher) *Tagger {
	return &Tagger{
		client:  client,
		locator: NewLocator(client, log),
		log:     log,
		notify:  notifier{pub: pub, log: log},
	}
}

// MoveTag removes req.Tag from the build currently carrying it (unpinning
// that build when the tag was its only one), then pins and tags the newest
// build that produced the artifact.
func (t *Tagger) MoveTag(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	result := &MoveResult{}

	old, err := t.locator.FindTaggedBuild(ctx, req.Branch, req.BuildConfigID, req.Tag)
	switch {
	case errors.Is(err, teamcity.ErrNotFound):
		t.log.Debug("No previous build tagged %q: %v", req.Tag, err)
	case err != nil:
		return nil, fmt.Errorf("failed to look up build tagged %q: %w", req.Tag, err)
	default:
		unpinned, err := t.CleanBuild(ctx, old, req.Tag)
		if err != nil {
			return nil, err
		}
		result.Previous = old
		result.Unpinned = unpinned
	}

	current, err := t.locator.FindBuildWithArtifact(ctx, req.Branch, req.BuildConfigID, req.ArtifactPath, req.ArtifactName)
	switch {
	case errors.Is(err, teamcity.ErrNotFound):
		t.log.Warn("Could not find a build to tag artifact '%s'.", req.ArtifactName)
		return result, fmt.Errorf("%w: %w", ErrNoCandidate, err)
	case err != nil:
		return nil, fmt.Errorf("failed to look up build with artifact %q: %w", req.ArtifactName, err)
	}

	if err := t.BagBuild(ctx, current, req.Tag); err != nil {
		return nil, err
	}
	result.Current = current

	t.log.Info("Tagged build %d (%s) with %q", current.ID, current.Number, req.Tag)
	t.notify.emit(ctx, events.TypeTagMoved, current, req.Tag)
	return result, nil
}

// CleanBuild removes tag from build. When tag was the build's only tag the
// build is unpinned too. A build without the tag is left untouched.
// Reports whether the build was unpinned.
func (t *Tagger) CleanBuild(ctx context.Context, build *teamcity.Build, tag string) (bool, error) {
	names := build.TagNames()
	if !build.HasTag(tag) {
		return false, nil
	}

	remaining := make([]string, 0, len(names))
	for _, n := range names {
		if n != tag {
			remaining = append(remaining, n)
		}
	}

	if err := t.client.SetTags(ctx, build.ID, remaining); err != nil {
		return false, fmt.Errorf("failed to untag build %d: %w", build.ID, err)
	}
	t.log.Info("Removed tag %q from build %d", tag, build.ID)

	unpinned := false
	if len(names) == 1 {
		if err := t.client.Unpin(ctx, build.ID); err != nil {
			return false, fmt.Errorf("failed to unpin build %d: %w", build.ID, err)
		}
		t.log.Info("Unpinned build %d", build.ID)
		unpinned = true
	}

	t.notify.emit(ctx, events.TypeTagRemoved, build, tag)
	return unpinned, nil
}

// BagBuild pins build and adds tag to its tag set, keeping a single copy.
func (t *Tagger) BagBuild(ctx context.Context, build *teamcity.Build, tag string) error {
	if err := t.client.Pin(ctx, build.ID); err != nil {
		return fmt.Errorf("failed to pin build %d: %w", build.ID, err)
	}

	names := make([]string, 0, len(build.TagNames())+1)
	for _, n := range build.TagNames() {
		if n != tag {
			names = append(names, n)
		}
	}
	names = append(names, tag)

	if err := t.client.SetTags(ctx, build.ID, names); err != nil {
		return fmt.Errorf("failed to tag build %d: %w", build.ID, err)
	}
	return nil
}
