package release

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"relkit/src/events"
	"relkit/src/teamcity"
	"relkit/src/teamcity/teamcitytest"
)

const testInterval = time.Millisecond

func running() teamcitytest.Phase {
	return teamcitytest.Phase{State: teamcity.StateRunning}
}

func finished(status string) teamcitytest.Phase {
	return teamcitytest.Phase{State: teamcity.StateFinished, Status: status}
}

func (f *fixture) runner() *Runner {
	return NewRunner(f.srv.Client(), f.log, f.pub)
}

func TestTriggerAndWait_Success(t *testing.T) {
	f := newFixture(t)
	f.srv.OnQueue = func(b *teamcitytest.Build) {
		b.Phases = []teamcitytest.Phase{running(), running(), finished(teamcity.StatusSuccess)}
	}

	r := f.runner()
	var seen []string
	r.OnStatus(func(b teamcity.Build) { seen = append(seen, b.State) })

	id, err := r.Trigger(context.Background(), "release/v1.2.3", "X")
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if b := f.srv.Build(id); b == nil || b.Branch != "release/v1.2.3" || b.BuildTypeID != "X" {
		t.Fatalf("queued build = %+v", b)
	}

	ok, err := r.WaitForBuild(context.Background(), id, testInterval)
	if err != nil {
		t.Fatalf("WaitForBuild() error = %v", err)
	}
	if !ok {
		t.Error("WaitForBuild() = false, want true")
	}
	if len(seen) != 3 || seen[0] != teamcity.StateRunning || seen[2] != teamcity.StateFinished {
		t.Errorf("observed states = %v, want running, running, finished", seen)
	}
	if len(f.pub.OfType(events.TypeBuildTriggered)) != 1 || len(f.pub.OfType(events.TypeBuildFinished)) != 1 {
		t.Errorf("events = %+v", f.pub.Events())
	}
}

func TestWaitForBuild_Failure(t *testing.T) {
	f := newFixture(t)
	b := f.srv.AddBuild(&teamcitytest.Build{BuildTypeID: "X", Phases: []teamcitytest.Phase{running(), finished(teamcity.StatusFailure)}})

	ok, err := f.runner().WaitForBuild(context.Background(), b.ID, testInterval)
	if err != nil {
		t.Fatalf("WaitForBuild() error = %v", err)
	}
	if ok {
		t.Error("WaitForBuild() = true, want false")
	}
}

func TestWaitForBuild_ContextDeadline(t *testing.T) {
	f := newFixture(t)
	b := f.srv.AddBuild(&teamcitytest.Build{BuildTypeID: "X", Phases: []teamcitytest.Phase{running()}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ok, err := f.runner().WaitForBuild(ctx, b.ID, 5*time.Millisecond)
	if ok || err == nil {
		t.Fatalf("WaitForBuild() = %v, %v; want false and an error", ok, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestWaitForBuild_PollErrorIsHard(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner().WaitForBuild(context.Background(), 424242, testInterval)
	if !errors.Is(err, teamcity.ErrNotFound) {
		t.Errorf("WaitForBuild() error = %v, want wrapped 404", err)
	}
}

func TestTrigger_Rejected(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail("/app/rest/buildQueue", http.StatusBadRequest)

	id, err := f.runner().Trigger(context.Background(), "main", "X")
	if err == nil || id != 0 {
		t.Fatalf("Trigger() = %d, %v; want 0 and an error", id, err)
	}
	if teamcity.StatusCode(err) != http.StatusBadRequest {
		t.Errorf("StatusCode() = %d, want 400", teamcity.StatusCode(err))
	}
}

func TestRunner_RejectsNonPositiveInterval(t *testing.T) {
	f := newFixture(t)
	r := f.runner()

	tests := []struct {
		name string
		call func() error
	}{
		{"WaitForBuild", func() error {
			_, err := r.WaitForBuild(context.Background(), 1, 0)
			return err
		}},
		{"WaitForDependentBuilds", func() error {
			_, err := r.WaitForDependentBuilds(context.Background(), 1, -time.Second)
			return err
		}},
		{"Run", func() error {
			_, err := r.Run(context.Background(), RunRequest{Branch: "main", BuildConfigID: "X"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrInvalidInterval) {
				t.Errorf("error = %v, want ErrInvalidInterval", err)
			}
		})
	}
	if n := f.srv.CountRequests(http.MethodPost, "/app/rest/buildQueue"); n != 0 {
		t.Errorf("expected no build to be queued, got %d POSTs", n)
	}
}

func TestWaitForDependentBuilds(t *testing.T) {
	f := newFixture(t)
	trigger := f.srv.AddBuild(&teamcitytest.Build{BuildTypeID: "X"})
	f.srv.AddBuild(&teamcitytest.Build{ID: 5001, BuildTypeID: "Dep_A", DependsOn: trigger.ID,
		Phases: []teamcitytest.Phase{running(), finished(teamcity.StatusSuccess)}})
	f.srv.AddBuild(&teamcitytest.Build{ID: 5002, BuildTypeID: "Dep_B", DependsOn: trigger.ID,
		Phases: []teamcitytest.Phase{finished(teamcity.StatusFailure)}})
	f.srv.AddBuild(&teamcitytest.Build{ID: 5003, BuildTypeID: "Unrelated", DependsOn: 1})

	results, err := f.runner().WaitForDependentBuilds(context.Background(), trigger.ID, testInterval)
	if err != nil {
		t.Fatalf("WaitForDependentBuilds() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 dependents", results)
	}
	if results[0].BuildID != 5001 || !results[0].Succeeded {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].BuildID != 5002 || results[1].Succeeded {
		t.Errorf("results[1] = %+v", results[1])
	}
	if len(f.pub.OfType(events.TypeDependentFinished)) != 2 {
		t.Errorf("expected 2 dependent events, got %+v", f.pub.Events())
	}
}

func TestWaitForDependentBuilds_NoneListed(t *testing.T) {
	f := newFixture(t)
	trigger := f.srv.AddBuild(&teamcitytest.Build{BuildTypeID: "X"})
	f.srv.AddBuild(&teamcitytest.Build{ID: 5001, BuildTypeID: "Dep_A", DependsOn: trigger.ID})
	f.srv.DependentsVisibleAfter = 1

	results, err := f.runner().WaitForDependentBuilds(context.Background(), trigger.ID, testInterval)
	if err != nil {
		t.Fatalf("WaitForDependentBuilds() error = %v", err)
	}
	// A dependent queued after the first query is not waited on.
	if len(results) != 0 {
		t.Errorf("results = %+v, want none", results)
	}
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	// The first queued build gets id 1001.
	f.srv.AddBuild(&teamcitytest.Build{ID: 5001, BuildTypeID: "Dep_A", DependsOn: 1001,
		Phases: []teamcitytest.Phase{running(), finished(teamcity.StatusSuccess)}})
	f.srv.OnQueue = func(b *teamcitytest.Build) {
		b.Phases = []teamcitytest.Phase{running(), finished(teamcity.StatusSuccess)}
	}

	r := f.runner()
	r.SetWarmupFactor(2)
	result, err := r.Run(context.Background(), RunRequest{Branch: "main", BuildConfigID: "X", Interval: testInterval})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.BuildID != 1001 || !result.Succeeded {
		t.Errorf("Run() = %+v", result)
	}
	if len(result.Dependents) != 1 || result.Dependents[0].BuildID != 5001 {
		t.Errorf("Dependents = %+v", result.Dependents)
	}
}

func TestRun_FailedBuildSkipsDependents(t *testing.T) {
	f := newFixture(t)
	f.srv.OnQueue = func(b *teamcitytest.Build) {
		b.Phases = []teamcitytest.Phase{finished(teamcity.StatusFailure)}
	}

	result, err := f.runner().Run(context.Background(), RunRequest{Branch: "main", BuildConfigID: "X", Interval: testInterval})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Succeeded {
		t.Error("Run() succeeded, want failure")
	}
	if n := f.srv.CountRequests(http.MethodGet, "/app/rest/builds"); n != 1 {
		t.Errorf("expected only the single status poll, got %d GETs", n)
	}
}
