package release

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relkit/src/events"
	"relkit/src/logger"
	"relkit/src/teamcity"
)

// DefaultWarmupFactor multiplies the poll interval into the delay before each
// query for dependent builds.
const DefaultWarmupFactor = 10

// ErrInvalidInterval is returned when a poll interval is not positive.
var ErrInvalidInterval = errors.New("poll interval must be positive")

// RunRequest describes a build to trigger and wait for.
type RunRequest struct {
	Branch        string
	BuildConfigID string
	// Interval between polls of a running build.
	Interval time.Duration
	// SkipDependents stops after the triggered build finished.
	SkipDependents bool
}

// RunResult reports the outcome of Run.
type RunResult struct {
	BuildID    int64
	Succeeded  bool
	Dependents []DependentResult
}

// DependentResult is the outcome of one snapshot-dependent build.
type DependentResult struct {
	BuildID     int64
	BuildTypeID string
	Succeeded   bool
}

// Runner triggers builds and polls them until they finish.
// Polls block until the context is done; a background context waits forever.
type Runner struct {
	client       *teamcity.Client
	log          logger.Logger
	notify       notifier
	observer     func(teamcity.Build)
	warmupFactor int
}

// NewRunner creates a Runner. pub may be nil.
func NewRunner(client *teamcity.Client, log logger.Logger, pub events.Publisher) *Runner {
	return &Runner{
		client:       client,
		log:          log,
		notify:       notifier{pub: pub, log: log},
		warmupFactor: DefaultWarmupFactor,
	}
}

// OnStatus registers a callback invoked with every polled build record.
func (r *Runner) OnStatus(fn func(teamcity.Build)) {
	r.observer = fn
}

// SetWarmupFactor overrides DefaultWarmupFactor.
func (r *Runner) SetWarmupFactor(n int) {
	if n < 0 {
		n = 0
	}
	r.warmupFactor = n
}

// Run triggers a build, waits for it and, when it succeeded, waits for every
// build that is snapshot-dependent on it.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Interval <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, req.Interval)
	}
	id, err := r.Trigger(ctx, req.Branch, req.BuildConfigID)
	if err != nil {
		return nil, err
	}
	result := &RunResult{BuildID: id}

	ok, err := r.WaitForBuild(ctx, id, req.Interval)
	if err != nil {
		return result, err
	}
	result.Succeeded = ok
	if !ok || req.SkipDependents {
		return result, nil
	}

	deps, err := r.WaitForDependentBuilds(ctx, id, req.Interval)
	result.Dependents = deps
	return result, err
}

// Trigger enqueues a build of configID on branch and returns its id.
func (r *Runner) Trigger(ctx context.Context, branch, configID string) (int64, error) {
	queued, err := r.client.QueueBuild(ctx, configID, branch)
	if err != nil {
		return 0, fmt.Errorf("failed to trigger build: %w", err)
	}
	r.log.Info("Build triggered (id %d).", queued.ID)
	r.notify.emit(ctx, events.TypeBuildTriggered, &teamcity.Build{
		ID:          queued.ID,
		BuildTypeID: configID,
		BranchName:  branch,
		State:       queued.State,
	}, "")
	return queued.ID, nil
}

// WaitForBuild polls the build every interval until it is finished.
// Returns true iff it finished with status SUCCESS.
func (r *Runner) WaitForBuild(ctx context.Context, id int64, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return false, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	r.log.Info("Waiting for build with id %d..", id)
	for {
		build, err := r.client.GetBuild(ctx, id)
		if err != nil {
			return false, fmt.Errorf("failed to poll build %d: %w", id, err)
		}
		if r.observer != nil {
			r.observer(*build)
		}

		if build.Finished() {
			r.notify.emit(ctx, events.TypeBuildFinished, build, "")
			if build.Succeeded() {
				r.log.Info("Build %d succeeded.", id)
				return true, nil
			}
			r.log.Warn("Build %d failed (status %s).", id, build.Status)
			return false, nil
		}

		if err := sleep(ctx, interval); err != nil {
			return false, fmt.Errorf("stopped waiting for build %d: %w", id, err)
		}
	}
}

// WaitForDependentBuilds waits for the builds whose snapshot dependency
// originates at triggerID. Each round sleeps the warm-up delay, re-queries
// the dependents and waits on the unfinished ones one after another; it ends
// once every listed dependent has finished. Dependents that are not yet
// listed when a round finds nothing pending are not waited on.
//
// There is no extra delay ahead of the first round: the first query happens
// one warm-up delay after the call.
func (r *Runner) WaitForDependentBuilds(ctx context.Context, triggerID int64, interval time.Duration) ([]DependentResult, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	delay := time.Duration(r.warmupFactor) * interval
	done := make(map[int64]bool)
	var results []DependentResult

	for {
		if err := sleep(ctx, delay); err != nil {
			return results, fmt.Errorf("stopped waiting for dependent builds: %w", err)
		}

		deps, err := r.client.ListDependentBuilds(ctx, triggerID)
		if err != nil {
			return results, fmt.Errorf("failed to retrieve dependent builds: %w", err)
		}

		pending := 0
		for _, dep := range deps {
			if done[dep.ID] {
				continue
			}
			pending++

			r.log.Info("Running build config %s (build id: %d)", dep.BuildTypeID, dep.ID)
			ok, err := r.WaitForBuild(ctx, dep.ID, interval)
			if err != nil {
				return results, err
			}
			done[dep.ID] = true
			results = append(results, DependentResult{BuildID: dep.ID, BuildTypeID: dep.BuildTypeID, Succeeded: ok})
			r.notify.emit(ctx, events.TypeDependentFinished, &teamcity.Build{
				ID:          dep.ID,
				BuildTypeID: dep.BuildTypeID,
				BranchName:  dep.BranchName,
				Status:      statusOf(ok),
			}, "")
		}

		if pending == 0 {
			r.log.Info("All dependent builds finished.")
			return results, nil
		}
	}
}

func statusOf(ok bool) string {
	if ok {
		return teamcity.StatusSuccess
	}
	return teamcity.StatusFailure
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
