package hudi

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
	)
	s.RecordKeys = []string{"root.order_id"}
	return model.TableDescriptor{Name: "orders", ReadSchema: s}
}

func testSnapshot() model.Snapshot {
	p := "default"
	return model.Snapshot{
		Table:         testTable(),
		SourceVersion: model.NewVersionToken("9", 9),
		Files: model.PartitionedDataFiles{Groups: []model.PartitionedGroup{
			{Files: []model.DataFile{{Path: "default/f1.parquet", FileSizeBytes: 10, PartitionPath: &p}}},
		}},
	}
}

func TestApplySnapshotInitializesTableAndWritesCommit(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	adapter := New(bucket, "tables/orders")

	cp, err := adapter.ApplySnapshot(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, int64(9), cp.LastSourceVersion.Ord)

	_, err = bucket.Get(context.Background(), "tables/orders/"+propertiesFile)
	require.NoError(t, err)
	_, err = bucket.Get(context.Background(), "tables/orders/"+schemaFile)
	require.NoError(t, err)

	readBack, err := adapter.ReadLastCheckpoint(context.Background())
	require.NoError(t, err)
	require.NotNil(t, readBack)
	assert.Equal(t, int64(9), readBack.LastSourceVersion.Ord)
}

func TestApplyCommitSkipsStaleVersionButWritesAdvancingOne(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	adapter := New(bucket, "tables/orders")

	_, err := adapter.ApplySnapshot(context.Background(), testSnapshot())
	require.NoError(t, err)

	stale := model.Commit{Version: model.NewVersionToken("5", 5), TableAfter: testTable()}
	cp, err := adapter.ApplyCommit(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, int64(9), cp.LastSourceVersion.Ord)

	advancing := model.Commit{
		Version:    model.NewVersionToken("10", 10),
		TableAfter: testTable(),
		FilesDiff: model.DataFilesDiff{
			Added: []model.DataFile{{Path: "default/f2.parquet", FileSizeBytes: 5}},
		},
	}
	cp2, err := adapter.ApplyCommit(context.Background(), advancing)
	require.NoError(t, err)
	assert.Equal(t, int64(10), cp2.LastSourceVersion.Ord)
}

func TestApplySnapshotRejectsNonValueTransformPartitioning(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	adapter := New(bucket, "tables/orders")

	snap := testSnapshot()
	snap.Table.PartitionSpec = model.PartitionSpec{Fields: []model.PartitionField{
		{SourceFieldID: 1, Transform: model.YearTransform(), Name: "year"},
	}}

	_, err := adapter.ApplySnapshot(context.Background(), snap)
	assert.Error(t, err)
}
