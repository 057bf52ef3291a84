package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/model"
)

func TestSerializeValueNilIsHiveDefault(t *testing.T) {
	t.Parallel()

	s, err := SerializeValue(nil, model.ValueTransform())
	require.NoError(t, err)
	assert.Equal(t, NullPartitionToken, s)
}

func TestSerializeValueScalarKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		v    model.Value
		want string
	}{
		{"bool true", model.BoolValue(true), "true"},
		{"bool false", model.BoolValue(false), "false"},
		{"int", model.IntValue(42), "42"},
		{"long", model.LongValue(-9), "-9"},
		{"string", model.StringValue("us-east"), "us-east"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := SerializeValue(&tc.v, model.ValueTransform())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSerializeValueTimeTransformsFormatByGranularity(t *testing.T) {
	t.Parallel()

	// 2024-03-05 is day 19787 since epoch.
	date := model.DateValue(19787)

	year, err := SerializeValue(&date, model.YearTransform())
	require.NoError(t, err)
	assert.Equal(t, "2024", year)

	month, err := SerializeValue(&date, model.MonthTransform())
	require.NoError(t, err)
	assert.Equal(t, "2024-03", month)

	day, err := SerializeValue(&date, model.DayTransform())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", day)
}

func TestSerializeValueRejectsTimeTransformOverNonTemporalValue(t *testing.T) {
	t.Parallel()

	s := model.StringValue("not-a-date")
	_, err := SerializeValue(&s, model.YearTransform())
	assert.Error(t, err)
}

func TestFormatPartitionPathJoinsFieldsInOrder(t *testing.T) {
	t.Parallel()

	spec := model.PartitionSpec{Fields: []model.PartitionField{
		{SourceFieldID: 1, Transform: model.YearTransform(), Name: "year"},
		{SourceFieldID: 1, Transform: model.MonthTransform(), Name: "month"},
	}}
	date := model.DateValue(19787)
	values := model.PartitionValues{
		spec.Fields[0].Key(): {Min: date, Max: date},
		spec.Fields[1].Key(): {Min: date, Max: date},
	}

	path, err := FormatPartitionPath(spec, values)
	require.NoError(t, err)
	assert.Equal(t, "year=2024/month=2024-03", path)
}

func TestFormatPartitionPathMissingValueUsesHiveDefault(t *testing.T) {
	t.Parallel()

	spec := model.PartitionSpec{Fields: []model.PartitionField{
		{SourceFieldID: 1, Transform: model.ValueTransform(), Name: "region"},
	}}

	path, err := FormatPartitionPath(spec, model.PartitionValues{})
	require.NoError(t, err)
	assert.Equal(t, "region="+NullPartitionToken, path)
}
