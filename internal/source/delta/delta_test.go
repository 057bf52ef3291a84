package delta

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore"

	json "github.com/tablemesh/tablemesh/internal/codec"
	"github.com/tablemesh/tablemesh/internal/model"
)

const testSchemaString = `{"type":"struct","fields":[
  {"name":"order_id","type":"long","nullable":false,"metadata":{}},
  {"name":"region","type":"string","nullable":true,"metadata":{}}
]}`

func putCommit(t *testing.T, bucket objstore.Bucket, basePath string, version int64, actions ...Action) {
	t.Helper()
	var buf bytes.Buffer
	for _, a := range actions {
		line, err := json.Marshal(a)
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteByte('\n')
	}
	path := New(bucket, basePath, nil).commitPath(version)
	require.NoError(t, bucket.Upload(context.Background(), path, bytes.NewReader(buf.Bytes())))
}

func seedTwoVersionTable(t *testing.T, bucket objstore.Bucket, basePath string) {
	t.Helper()
	putCommit(t, bucket, basePath, 0,
		Action{Protocol: &Protocol{MinReaderVersion: 1, MinWriterVersion: 2}},
		Action{MetaData: &MetaData{ID: "t1", Name: "orders", SchemaString: testSchemaString}},
		Action{Add: &AddFile{Path: "p1.parquet", Size: 100, DataChange: true}},
	)
	putCommit(t, bucket, basePath, 1,
		Action{Add: &AddFile{Path: "p2.parquet", Size: 200, DataChange: true}},
		Action{Remove: &RemoveFile{Path: "p1.parquet", DataChange: true}},
	)
}

func TestGetCurrentSnapshotReflectsLiveFilesAfterRemoves(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	seedTwoVersionTable(t, bucket, "tables/orders")
	adapter := New(bucket, "tables/orders", nil)

	snap, err := adapter.GetCurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "orders", snap.Table.Name)
	assert.Equal(t, int64(1), snap.SourceVersion.Ord)

	var paths []string
	for _, g := range snap.Files.Groups {
		for _, f := range g.Files {
			paths = append(paths, f.Path)
		}
	}
	assert.ElementsMatch(t, []string{"p2.parquet"}, paths)
}

func TestGetCommitStateMustDoFullSyncWhenNoCheckpoint(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	seedTwoVersionTable(t, bucket, "tables/orders")
	adapter := New(bucket, "tables/orders", nil)

	plan, err := adapter.GetCommitState(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.True(t, plan.MustDoFullSync)
}

func TestGetCommitStateReturnsCommitsAfterCheckpoint(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	seedTwoVersionTable(t, bucket, "tables/orders")
	adapter := New(bucket, "tables/orders", nil)

	after := model.NewVersionToken("0", 0)
	plan, err := adapter.GetCommitState(context.Background(), 0, &after)
	require.NoError(t, err)
	require.False(t, plan.MustDoFullSync)
	require.Len(t, plan.Commits, 1)
	assert.Equal(t, int64(1), plan.Commits[0].Ord)

	commit, err := adapter.GetCommit(context.Background(), plan.Commits[0])
	require.NoError(t, err)
	assert.Len(t, commit.FilesDiff.Added, 1)
	assert.Len(t, commit.FilesDiff.Removed, 1)
}

func TestGetTableReturnsCanonicalSchemaAndPartitionSpec(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	seedTwoVersionTable(t, bucket, "tables/orders")
	adapter := New(bucket, "tables/orders", nil)

	table, err := adapter.GetTable(context.Background(), model.NewVersionToken("1", 1))
	require.NoError(t, err)
	require.NotNil(t, table.ReadSchema)
	assert.Len(t, table.ReadSchema.Fields, 2)
	assert.True(t, table.PartitionSpec.IsUnpartitioned())
	assert.Equal(t, model.LayoutFlat, table.Layout)
}

func seedPartitionedTable(t *testing.T, bucket objstore.Bucket, basePath string) {
	t.Helper()
	putCommit(t, bucket, basePath, 0,
		Action{Protocol: &Protocol{MinReaderVersion: 1, MinWriterVersion: 2}},
		Action{MetaData: &MetaData{ID: "t1", Name: "orders", SchemaString: testSchemaString, PartitionColumns: []string{"region"}}},
		Action{Add: &AddFile{Path: "region=east/p1.parquet", PartitionValues: map[string]string{"region": "east"}, Size: 100, DataChange: true}},
		Action{Add: &AddFile{Path: "region=west/p2.parquet", PartitionValues: map[string]string{"region": "west"}, Size: 150, DataChange: true}},
	)
}

// TestGetTableReportsDirHierarchyLayoutForPartitionedTable covers the
// partitioned-Delta-source scenario: a table with a non-empty
// partitionColumns list must report DIR_HIERARCHY_PARTITION_VALUES, not FLAT.
func TestGetTableReportsDirHierarchyLayoutForPartitionedTable(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	seedPartitionedTable(t, bucket, "tables/orders_p")
	adapter := New(bucket, "tables/orders_p", nil)

	table, err := adapter.GetTable(context.Background(), model.NewVersionToken("0", 0))
	require.NoError(t, err)
	assert.False(t, table.PartitionSpec.IsUnpartitioned())
	assert.Equal(t, model.LayoutDirHierarchyPartitioned, table.Layout)
}

// TestGetCurrentSnapshotGroupsFilesByPartitionValue covers the partitioned
// snapshot read path: files must be grouped under their source partition
// value, not collapsed into a single unpartitioned group.
func TestGetCurrentSnapshotGroupsFilesByPartitionValue(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	seedPartitionedTable(t, bucket, "tables/orders_p")
	adapter := New(bucket, "tables/orders_p", nil)

	snap, err := adapter.GetCurrentSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Files.Groups, 2)

	var paths []string
	for _, g := range snap.Files.Groups {
		require.NotEmpty(t, g.PartitionValues)
		for _, f := range g.Files {
			paths = append(paths, f.Path)
		}
	}
	assert.ElementsMatch(t, []string{"region=east/p1.parquet", "region=west/p2.parquet"}, paths)
}

// TestGetCommitDropPartitionRemovesAllFilesUnderThatPartitionValue covers the
// drop-partition scenario: removing every file under one partition value
// must surface as a FilesDiff.Removed entry per dropped file, with the
// other partition's files left untouched.
func TestGetCommitDropPartitionRemovesAllFilesUnderThatPartitionValue(t *testing.T) {
	t.Parallel()

	bucket := objstore.NewInMemBucket()
	seedPartitionedTable(t, bucket, "tables/orders_p")
	putCommit(t, bucket, "tables/orders_p", 1,
		Action{Remove: &RemoveFile{Path: "region=east/p1.parquet", DataChange: true, PartitionValues: map[string]string{"region": "east"}}},
	)
	adapter := New(bucket, "tables/orders_p", nil)

	plan, err := adapter.GetCommitState(context.Background(), 0, ptrVersionToken(model.NewVersionToken("0", 0)))
	require.NoError(t, err)
	require.False(t, plan.MustDoFullSync)
	require.Len(t, plan.Commits, 1)

	commit, err := adapter.GetCommit(context.Background(), plan.Commits[0])
	require.NoError(t, err)
	assert.Empty(t, commit.FilesDiff.Added)
	require.Len(t, commit.FilesDiff.Removed, 1)
	assert.Equal(t, "region=east/p1.parquet", commit.FilesDiff.Removed[0].Path)

	snap, err := adapter.GetCurrentSnapshot(context.Background())
	require.NoError(t, err)
	var paths []string
	for _, g := range snap.Files.Groups {
		for _, f := range g.Files {
			paths = append(paths, f.Path)
		}
	}
	assert.ElementsMatch(t, []string{"region=west/p2.parquet"}, paths)
}

func ptrVersionToken(v model.VersionToken) *model.VersionToken { return &v }
