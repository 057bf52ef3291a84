package syncrun

import (
	"context"

	"github.com/tablemesh/tablemesh/internal/model"
)

// TargetPlan is what Plan predicts a round would do for one target,
// without writing anything.
type TargetPlan struct {
	Target       model.TableFormat
	Mode         string // "SNAPSHOT" or "INCREMENTAL"
	PendingCount int
	Err          error
}

// Plan computes, for every configured target, what Round would do this
// round — snapshot vs incremental and the pending commit count — without
// calling any target's ApplySnapshot/ApplyCommit. It backs the CLI's
// --dry-run flag.
func (o *Orchestrator) Plan(ctx context.Context) []TargetPlan {
	var plans []TargetPlan
	for format, adapter := range o.Targets {
		cp, err := adapter.ReadLastCheckpoint(ctx)
		if err != nil {
			plans = append(plans, TargetPlan{Target: format, Err: err})
			continue
		}
		mode, plan, err := o.decide(ctx, cp, adapter)
		if err != nil {
			plans = append(plans, TargetPlan{Target: format, Err: err})
			continue
		}
		if mode == modeSnapshot {
			plans = append(plans, TargetPlan{Target: format, Mode: "SNAPSHOT"})
			continue
		}
		plans = append(plans, TargetPlan{Target: format, Mode: "INCREMENTAL", PendingCount: len(plan.Commits)})
	}
	return plans
}
