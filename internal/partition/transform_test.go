package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

func TestTargetColumnNameAndIsSynthesizedColumnRoundTrip(t *testing.T) {
	t.Parallel()

	name := TargetColumnName(model.DayTransform(), "event_ts")
	assert.Equal(t, "tablemesh_partition_col_DAY_event_ts", name)
	assert.True(t, IsSynthesizedColumn(name))
	assert.False(t, IsSynthesizedColumn("event_ts"))
}

func TestTargetColumnKindByGranularity(t *testing.T) {
	t.Parallel()

	year, err := TargetColumnKind(model.TransformYear)
	require.NoError(t, err)
	assert.Equal(t, model.KindInt, year)

	month, err := TargetColumnKind(model.TransformMonth)
	require.NoError(t, err)
	assert.Equal(t, model.KindString, month)

	day, err := TargetColumnKind(model.TransformDay)
	require.NoError(t, err)
	assert.Equal(t, model.KindDate, day)
}

func TestTargetColumnKindRejectsNonTimeTransform(t *testing.T) {
	t.Parallel()

	_, err := TargetColumnKind(model.TransformValue)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.UnsupportedPartitionTransform))
}
