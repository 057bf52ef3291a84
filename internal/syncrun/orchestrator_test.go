package syncrun

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/source"
	"github.com/tablemesh/tablemesh/internal/target"
)

type fakeSource struct {
	snapshot    model.Snapshot
	snapshotErr error
	commitPlan  source.CommitPlan
	commitPlanErr error
	commits     map[int64]model.Commit
	commitErr   error
}

func (f *fakeSource) GetTable(ctx context.Context, at model.VersionToken) (model.TableDescriptor, error) {
	return f.snapshot.Table, nil
}

func (f *fakeSource) GetSchemaCatalog(ctx context.Context, at model.VersionToken) (map[model.SchemaVersion]*model.CanonicalSchema, error) {
	return f.snapshot.SchemaCatalog, nil
}

func (f *fakeSource) GetCurrentSnapshot(ctx context.Context) (model.Snapshot, error) {
	if f.snapshotErr != nil {
		return model.Snapshot{}, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeSource) GetCommitState(ctx context.Context, afterInstantMs int64, after *model.VersionToken) (source.CommitPlan, error) {
	return f.commitPlan, f.commitPlanErr
}

func (f *fakeSource) GetCommit(ctx context.Context, v model.VersionToken) (model.Commit, error) {
	if f.commitErr != nil {
		return model.Commit{}, f.commitErr
	}
	c, ok := f.commits[v.Ord]
	if !ok {
		return model.Commit{}, fmt.Errorf("no fake commit for ordinal %d", v.Ord)
	}
	return c, nil
}

type fakeTarget struct {
	supportsIncremental bool
	checkpoint          *model.SyncCheckpoint
	checkpointErr       error

	snapshotApplied int
	commitsApplied  []model.VersionToken
	applyErr        error
}

func (f *fakeTarget) SupportsIncremental() bool { return f.supportsIncremental }

func (f *fakeTarget) ReadLastCheckpoint(ctx context.Context) (*model.SyncCheckpoint, error) {
	return f.checkpoint, f.checkpointErr
}

func (f *fakeTarget) ApplySnapshot(ctx context.Context, snap model.Snapshot) (model.SyncCheckpoint, error) {
	if f.applyErr != nil {
		return model.SyncCheckpoint{}, f.applyErr
	}
	f.snapshotApplied++
	return model.SyncCheckpoint{LastSourceVersion: snap.SourceVersion}, nil
}

func (f *fakeTarget) ApplyCommit(ctx context.Context, commit model.Commit) (model.SyncCheckpoint, error) {
	if f.applyErr != nil {
		return model.SyncCheckpoint{}, f.applyErr
	}
	f.commitsApplied = append(f.commitsApplied, commit.Version)
	return model.SyncCheckpoint{LastSourceVersion: commit.Version}, nil
}

func TestRoundSnapshotAndIncrementalDecision(t *testing.T) {
	t.Parallel()

	src := &fakeSource{snapshot: model.Snapshot{SourceVersion: model.NewVersionToken("v5", 5)}}
	noCheckpoint := &fakeTarget{supportsIncremental: true, checkpoint: nil}
	incremental := &fakeTarget{
		supportsIncremental: true,
		checkpoint:          &model.SyncCheckpoint{LastSourceVersion: model.NewVersionToken("v2", 2)},
	}
	src.commitPlan = source.CommitPlan{Commits: []model.VersionToken{model.NewVersionToken("v3", 3)}}
	src.commits = map[int64]model.Commit{3: {Version: model.NewVersionToken("v3", 3)}}

	o := New(src, map[model.TableFormat]target.Adapter{
		model.FormatDelta:   noCheckpoint,
		model.FormatIceberg: incremental,
	})

	result := o.Round(context.Background())

	require.Len(t, result.Targets, 2)
	for _, r := range result.Targets {
		assert.Equal(t, StatusOK, r.Status)
	}
	assert.Equal(t, 1, noCheckpoint.snapshotApplied, "a target with no checkpoint must snapshot-sync")
	assert.Equal(t, 0, incremental.snapshotApplied, "a target with a checkpoint under the commit plan must incremental-sync")
	assert.Equal(t, []model.VersionToken{model.NewVersionToken("v3", 3)}, incremental.commitsApplied)
}

func TestRoundFallsBackToSnapshotPastMaxCommits(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		snapshot:   model.Snapshot{SourceVersion: model.NewVersionToken("v100", 100)},
		commitPlan: source.CommitPlan{Commits: make([]model.VersionToken, 5)},
	}
	tgt := &fakeTarget{
		supportsIncremental: true,
		checkpoint:          &model.SyncCheckpoint{LastSourceVersion: model.NewVersionToken("v90", 90)},
	}

	o := New(src, map[model.TableFormat]target.Adapter{model.FormatDelta: tgt})
	o.IncrementalMaxCommits = 2

	result := o.Round(context.Background())

	require.Len(t, result.Targets, 1)
	assert.Equal(t, StatusOK, result.Targets[0].Status)
	assert.Equal(t, 1, tgt.snapshotApplied, "exceeding IncrementalMaxCommits must fall back to a full snapshot")
	assert.Empty(t, tgt.commitsApplied)
}

func TestRoundSourceFailureFailsEveryPendingTarget(t *testing.T) {
	t.Parallel()

	src := &fakeSource{snapshotErr: errs.New(errs.SourceReadError, "object store unreachable")}
	a := &fakeTarget{supportsIncremental: true, checkpoint: nil}
	b := &fakeTarget{supportsIncremental: true, checkpoint: nil}

	o := New(src, map[model.TableFormat]target.Adapter{model.FormatDelta: a, model.FormatIceberg: b})
	result := o.Round(context.Background())

	require.Error(t, result.SourceErr)
	assert.True(t, result.Failed())
	for _, r := range result.Targets {
		assert.Equal(t, StatusFailed, r.Status)
	}
}

func TestRoundIsolatesOneTargetsFailureFromAnother(t *testing.T) {
	t.Parallel()

	src := &fakeSource{snapshot: model.Snapshot{SourceVersion: model.NewVersionToken("v1", 1)}}
	broken := &fakeTarget{supportsIncremental: true, checkpoint: nil, applyErr: errs.New(errs.TargetWriteError, "disk full")}
	healthy := &fakeTarget{supportsIncremental: true, checkpoint: nil}

	o := New(src, map[model.TableFormat]target.Adapter{model.FormatDelta: broken, model.FormatIceberg: healthy})
	result := o.Round(context.Background())

	require.Len(t, result.Targets, 2)
	var sawFailed, sawOK bool
	for _, r := range result.Targets {
		if r.Target == model.FormatDelta {
			assert.Equal(t, StatusFailed, r.Status)
			sawFailed = true
		}
		if r.Target == model.FormatIceberg {
			assert.Equal(t, StatusOK, r.Status)
			sawOK = true
		}
	}
	assert.True(t, sawFailed)
	assert.True(t, sawOK)
}

func TestRoundSkipsWhenContextAlreadyCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{snapshot: model.Snapshot{SourceVersion: model.NewVersionToken("v1", 1)}}
	tgt := &fakeTarget{supportsIncremental: true, checkpoint: nil}

	o := New(src, map[model.TableFormat]target.Adapter{model.FormatDelta: tgt})
	result := o.Round(ctx)

	require.Len(t, result.Targets, 1)
	assert.Equal(t, StatusSkipped, result.Targets[0].Status)
	assert.Zero(t, tgt.snapshotApplied)
}
