// Package syncrun drives one sync round for a single source table against
// its configured set of targets, deciding per target between snapshot and
// incremental sync, and isolating each target's failures from the others.
package syncrun

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/source"
	"github.com/tablemesh/tablemesh/internal/target"
)

const DefaultIncrementalMaxCommits = 20

// Orchestrator drives rounds for one source table against a fixed set of
// named targets. It holds no state across Round calls beyond what its
// fields were constructed with; per-round snapshot memoization is local to
// one Round invocation.
type Orchestrator struct {
	Source                source.Adapter
	Targets               map[model.TableFormat]target.Adapter
	IncrementalMaxCommits int
	IncrementalEnabled    bool
	Logger                log.Logger
}

func New(src source.Adapter, targets map[model.TableFormat]target.Adapter) *Orchestrator {
	return &Orchestrator{
		Source:                src,
		Targets:               targets,
		IncrementalMaxCommits: DefaultIncrementalMaxCommits,
		IncrementalEnabled:    true,
		Logger:                log.NewNopLogger(),
	}
}

// Round performs one sync round: for each configured target, independently
// decide snapshot vs incremental sync and apply it. A fatal source-side
// error aborts the round for every target that has not yet completed; a
// per-target failure is isolated and recorded without affecting the rest.
func (o *Orchestrator) Round(ctx context.Context) RoundResult {
	logger := o.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	var snapshotOnce *model.Snapshot
	var snapshotErr error
	getSnapshot := func() (model.Snapshot, error) {
		if snapshotOnce == nil {
			snap, err := o.Source.GetCurrentSnapshot(ctx)
			if err != nil {
				snapshotErr = err
				return model.Snapshot{}, err
			}
			snapshotOnce = &snap
		}
		return *snapshotOnce, nil
	}

	var results []TargetResult
	for format, adapter := range o.Targets {
		select {
		case <-ctx.Done():
			results = append(results, TargetResult{Target: format, Status: StatusSkipped, Err: ctx.Err()})
			continue
		default:
		}

		res := o.syncOne(ctx, format, adapter, getSnapshot)
		results = append(results, res)
		level.Info(logger).Log("msg", "target sync complete", "target", format, "status", res.Status)

		if snapshotErr != nil {
			// The source itself is broken; every target still pending
			// this round cannot proceed either.
			for f := range o.Targets {
				if alreadyRecorded(results, f) {
					continue
				}
				results = append(results, TargetResult{Target: f, Status: StatusFailed, Err: snapshotErr})
			}
			return RoundResult{Targets: results, SourceErr: snapshotErr}
		}
	}

	return RoundResult{Targets: results}
}

func alreadyRecorded(results []TargetResult, f model.TableFormat) bool {
	for _, r := range results {
		if r.Target == f {
			return true
		}
	}
	return false
}

func (o *Orchestrator) syncOne(ctx context.Context, format model.TableFormat, adapter target.Adapter, getSnapshot func() (model.Snapshot, error)) TargetResult {
	cp, err := adapter.ReadLastCheckpoint(ctx)
	if err != nil {
		return TargetResult{Target: format, Status: StatusFailed, Err: err}
	}

	mode, plan, err := o.decide(ctx, cp, adapter)
	if err != nil {
		if errs.Is(err, errs.CheckpointConflict) {
			return TargetResult{Target: format, Status: StatusSkipped, Err: err}
		}
		return TargetResult{Target: format, Status: StatusFailed, Err: err}
	}

	if mode == modeSnapshot {
		snap, err := getSnapshot()
		if err != nil {
			return TargetResult{Target: format, Status: StatusFailed, Err: err}
		}
		if _, err := adapter.ApplySnapshot(ctx, snap); err != nil {
			return TargetResult{Target: format, Status: StatusFailed, Err: err}
		}
		return TargetResult{Target: format, Status: StatusOK}
	}

	for _, v := range plan.Commits {
		select {
		case <-ctx.Done():
			return TargetResult{Target: format, Status: StatusFailed, Err: ctx.Err()}
		default:
		}
		commit, err := o.Source.GetCommit(ctx, v)
		if err != nil {
			return TargetResult{Target: format, Status: StatusFailed, Err: err}
		}
		if _, err := adapter.ApplyCommit(ctx, commit); err != nil {
			// Abort this target at the point of failure, leaving its
			// checkpoint at the last successfully applied version.
			return TargetResult{Target: format, Status: StatusFailed, Err: err}
		}
	}
	return TargetResult{Target: format, Status: StatusOK}
}

type syncMode int

const (
	modeSnapshot syncMode = iota
	modeIncremental
)

func (o *Orchestrator) decide(ctx context.Context, cp *model.SyncCheckpoint, adapter target.Adapter) (syncMode, source.CommitPlan, error) {
	if cp == nil || !o.IncrementalEnabled || !adapter.SupportsIncremental() {
		return modeSnapshot, source.CommitPlan{}, nil
	}

	var after *model.VersionToken
	v := cp.LastSourceVersion
	after = &v
	plan, err := o.Source.GetCommitState(ctx, cp.LastSourceInstantMs, after)
	if err != nil {
		return modeSnapshot, source.CommitPlan{}, err
	}
	if plan.MustDoFullSync {
		return modeSnapshot, source.CommitPlan{}, nil
	}
	if len(plan.Commits) > o.IncrementalMaxCommits {
		return modeSnapshot, source.CommitPlan{}, nil
	}
	return modeIncremental, plan, nil
}
