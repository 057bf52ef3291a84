package delta

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore"

	"github.com/tablemesh/tablemesh/internal/model"
)

func testTable() model.TableDescriptor {
	id := func(i int) *int { return &i }
	s := model.NewRecord("root", false, id(0),
		model.NewLeaf("order_id", model.KindLong, false, id(1)),
		model.NewLeaf("region", model.KindString, true, id(2)),
	)
	return model.TableDescriptor{
		Name:         "orders",
		SourceFormat: model.FormatIceberg,
		ReadSchema:   s,
	}
}

func testSnapshot() model.Snapshot {
	table := testTable()
	return model.Snapshot{
		Table:         table,
		SourceVersion: model.NewVersionToken("7", 7),
		Files: model.PartitionedDataFiles{Groups: []model.PartitionedGroup{
			{Files: []model.DataFile{
				{Path: "a.parquet", FileSizeBytes: 10},
				{Path: "b.parquet", FileSizeBytes: 20},
			}},
		}},
	}
}

func TestApplySnapshotWritesInitialCommitAndCheckpoint(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	adapter := New(bucket, "tables/orders", nil)

	cp, err := adapter.ApplySnapshot(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, int64(7), cp.LastSourceVersion.Ord)

	readBack, err := adapter.ReadLastCheckpoint(context.Background())
	require.NoError(t, err)
	require.NotNil(t, readBack)
	assert.True(t, readBack.LastSourceVersion.Equal(cp.LastSourceVersion))
}

func TestApplyCommitSkipsWhenCheckpointAlreadyAdvancedPastIt(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	adapter := New(bucket, "tables/orders", nil)

	_, err := adapter.ApplySnapshot(context.Background(), testSnapshot())
	require.NoError(t, err)

	stale := model.Commit{
		Version:    model.NewVersionToken("3", 3),
		TableAfter: testTable(),
	}
	cp, err := adapter.ApplyCommit(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cp.LastSourceVersion.Ord)
}

func TestApplyCommitAppendsNewCommitForAdvancingVersion(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	adapter := New(bucket, "tables/orders", nil)

	_, err := adapter.ApplySnapshot(context.Background(), testSnapshot())
	require.NoError(t, err)

	next := model.Commit{
		Version:    model.NewVersionToken("8", 8),
		TableAfter: testTable(),
		FilesDiff: model.DataFilesDiff{
			Added: []model.DataFile{{Path: "c.parquet", FileSizeBytes: 30}},
		},
	}
	cp, err := adapter.ApplyCommit(context.Background(), next)
	require.NoError(t, err)
	assert.Equal(t, int64(8), cp.LastSourceVersion.Ord)

	readBack, err := adapter.ReadLastCheckpoint(context.Background())
	require.NoError(t, err)
	require.NotNil(t, readBack)
	assert.Equal(t, int64(8), readBack.LastSourceVersion.Ord)
}

func TestSupportsIncrementalIsTrue(t *testing.T) {
	t.Parallel()
	assert.True(t, New(objstore.NewInMemBucket(), "t", nil).SupportsIncremental())
}
