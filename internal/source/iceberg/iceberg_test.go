package iceberg

import (
	"testing"

	icebergpkg "github.com/polarsignals/iceberg-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/model"
)

func TestPartitionSpecFromIcebergResolvesSourceFieldNamesAndTransform(t *testing.T) {
	t.Parallel()

	canonical := model.NewRecord("order", false, nil,
		model.NewLeaf("order_id", model.KindLong, false, intPtr(1)),
		model.NewLeaf("region", model.KindString, true, intPtr(2)),
	)

	identity, err := icebergpkg.ParseTransform("identity")
	require.NoError(t, err)
	icebergSpec := icebergpkg.NewPartitionSpec(icebergpkg.PartitionField{SourceID: 2, Name: "region", Transform: identity})

	spec, err := partitionSpecFromIceberg(icebergSpec, canonical)
	require.NoError(t, err)
	require.Len(t, spec.Fields, 1)
	assert.Equal(t, 2, spec.Fields[0].SourceFieldID)
	assert.Equal(t, "order.region", spec.Fields[0].SourceName)
	assert.Equal(t, model.ValueTransform(), spec.Fields[0].Transform)
}

func TestPartitionSpecFromIcebergRejectsUnknownSourceID(t *testing.T) {
	t.Parallel()

	canonical := model.NewRecord("order", false, nil,
		model.NewLeaf("order_id", model.KindLong, false, intPtr(1)),
	)
	identity, err := icebergpkg.ParseTransform("identity")
	require.NoError(t, err)
	icebergSpec := icebergpkg.NewPartitionSpec(icebergpkg.PartitionField{SourceID: 99, Name: "ghost", Transform: identity})

	_, err = partitionSpecFromIceberg(icebergSpec, canonical)
	assert.Error(t, err)
}

// TestDataFileToCanonicalDecodesPartitionTuple covers the partitioned
// Iceberg source scenario: the partition tuple a writer attaches to a
// manifest entry (keyed by source field id, the same convention the
// Iceberg target's appendExistingFile uses) must decode into per-field
// PartitionValues rather than an empty set.
func TestDataFileToCanonicalDecodesPartitionTuple(t *testing.T) {
	t.Parallel()

	spec := model.PartitionSpec{Fields: []model.PartitionField{
		{SourceFieldID: 2, SourceName: "region", Name: "region", Transform: model.ValueTransform()},
	}}
	df := icebergpkg.NewDataFile("region=east/p1.parquet", icebergpkg.ParquetFile,
		map[int]any{2: "east"}, 10, 1024)

	canonical, pv := dataFileToCanonical(df, spec)
	assert.Equal(t, "region=east/p1.parquet", canonical.Path)
	assert.Equal(t, uint64(10), canonical.RecordCount)
	require.Contains(t, pv, spec.Fields[0].Key())
	assert.Equal(t, "east", pv[spec.Fields[0].Key()].Max.String())
}

func TestDataFileToCanonicalLeavesUnpartitionedValuesEmpty(t *testing.T) {
	t.Parallel()

	df := icebergpkg.NewDataFile("p1.parquet", icebergpkg.ParquetFile, map[int]any{}, 1, 1)
	_, pv := dataFileToCanonical(df, model.PartitionSpec{})
	assert.Empty(t, pv)
}

func TestPartitionGroupKeyIsStableAcrossEqualPartitionValues(t *testing.T) {
	t.Parallel()

	field := model.PartitionField{SourceFieldID: 2, Transform: model.ValueTransform()}
	a := model.PartitionValues{field.Key(): model.PointRange(model.StringValue("east"))}
	b := model.PartitionValues{field.Key(): model.PointRange(model.StringValue("east"))}
	assert.Equal(t, partitionGroupKey(a), partitionGroupKey(b))

	c := model.PartitionValues{field.Key(): model.PointRange(model.StringValue("west"))}
	assert.NotEqual(t, partitionGroupKey(a), partitionGroupKey(c))
}

func intPtr(i int) *int { return &i }
