package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

func TestParseGeneratedExpressionFunctionForm(t *testing.T) {
	t.Parallel()

	col, kind, err := ParseGeneratedExpression("YEAR(event_ts)")
	require.NoError(t, err)
	assert.Equal(t, "event_ts", col)
	assert.Equal(t, model.TransformYear, kind)
}

func TestParseGeneratedExpressionCastDateIsDayGranularity(t *testing.T) {
	t.Parallel()

	col, kind, err := ParseGeneratedExpression("CAST(event_ts AS DATE)")
	require.NoError(t, err)
	assert.Equal(t, "event_ts", col)
	assert.Equal(t, model.TransformDay, kind)
}

func TestParseGeneratedExpressionDateFormatPattern(t *testing.T) {
	t.Parallel()

	col, kind, err := ParseGeneratedExpression("DATE_FORMAT(event_ts, 'yyyy-MM')")
	require.NoError(t, err)
	assert.Equal(t, "event_ts", col)
	assert.Equal(t, model.TransformMonth, kind)
}

func TestParseGeneratedExpressionRejectsUnrecognizedPattern(t *testing.T) {
	t.Parallel()

	_, _, err := ParseGeneratedExpression("DATE_FORMAT(event_ts, 'MM/dd/yyyy')")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.UnsupportedPartitionTransform))
}

func TestParseGeneratedExpressionRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := ParseGeneratedExpression("UPPER(region)")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.UnsupportedPartitionTransform))
}

func TestCollapseGeneratedColumnsKeepsFinestGranularity(t *testing.T) {
	t.Parallel()

	cols := []GeneratedColumn{
		{Name: "event_year", SourceFieldID: 3, SourceFieldName: "event_ts", GeneratedExpr: "YEAR(event_ts)"},
		{Name: "event_day", SourceFieldID: 3, SourceFieldName: "event_ts", GeneratedExpr: "CAST(event_ts AS DATE)"},
	}

	spec, err := CollapseGeneratedColumns(cols)
	require.NoError(t, err)
	require.Len(t, spec.Fields, 1)
	assert.Equal(t, model.DayTransform(), spec.Fields[0].Transform)
	assert.Equal(t, "event_day", spec.Fields[0].Name)
}

func TestCollapseGeneratedColumnsRejectsDuplicateGranularity(t *testing.T) {
	t.Parallel()

	cols := []GeneratedColumn{
		{Name: "d1", SourceFieldID: 3, SourceFieldName: "event_ts", GeneratedExpr: "CAST(event_ts AS DATE)"},
		{Name: "d2", SourceFieldID: 3, SourceFieldName: "event_ts", GeneratedExpr: "DATE_FORMAT(event_ts, 'yyyy-MM-dd')"},
	}

	_, err := CollapseGeneratedColumns(cols)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidPartitionSpec))
}

func TestCollapseGeneratedColumnsPassesThroughPlainColumnsAsValue(t *testing.T) {
	t.Parallel()

	cols := []GeneratedColumn{
		{Name: "region", SourceFieldID: 1, SourceFieldName: "region"},
	}

	spec, err := CollapseGeneratedColumns(cols)
	require.NoError(t, err)
	require.Len(t, spec.Fields, 1)
	assert.Equal(t, model.ValueTransform(), spec.Fields[0].Transform)
}
