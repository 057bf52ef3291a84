package syncrun

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/target"
)

func TestRunBatchRunsEveryJobAndPreservesOrder(t *testing.T) {
	t.Parallel()

	jobs := make([]TableJob, 0, 8)
	for i := 0; i < 8; i++ {
		src := &fakeSource{snapshot: model.Snapshot{SourceVersion: model.NewVersionToken("v1", 1)}}
		tgt := &fakeTarget{supportsIncremental: true}
		o := New(src, map[model.TableFormat]target.Adapter{model.FormatDelta: tgt})
		jobs = append(jobs, TableJob{Name: tableName(i), Orchestrator: o})
	}

	results := RunBatch(context.Background(), jobs, nil)

	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, tableName(i), r.Table, "results must align with jobs by index, not completion order")
		assert.False(t, r.Round.Failed())
	}
}

func TestRunBatchIsolatesOneJobsFailure(t *testing.T) {
	t.Parallel()

	goodSrc := &fakeSource{snapshot: model.Snapshot{SourceVersion: model.NewVersionToken("v1", 1)}}
	goodTgt := &fakeTarget{supportsIncremental: true}
	badSrc := &fakeSource{snapshotErr: fmt.Errorf("source unreachable")}
	badTgt := &fakeTarget{supportsIncremental: true}

	jobs := []TableJob{
		{Name: "orders", Orchestrator: New(goodSrc, map[model.TableFormat]target.Adapter{model.FormatDelta: goodTgt})},
		{Name: "shipments", Orchestrator: New(badSrc, map[model.TableFormat]target.Adapter{model.FormatDelta: badTgt})},
	}

	results := RunBatch(context.Background(), jobs, nil)

	require.Len(t, results, 2)
	assert.False(t, results[0].Round.Failed())
	assert.True(t, results[1].Round.Failed())
}

func tableName(i int) string {
	return [...]string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7"}[i]
}
