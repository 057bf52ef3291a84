package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/model"
)

const hudiSchemaJSON = `{
  "type": "record",
  "name": "orders",
  "fields": [
    {"name": "order_id", "type": "long"},
    {"name": "region", "type": ["null", "string"], "default": null},
    {"name": "tags", "type": {"type": "array", "items": "string"}}
  ]
}`

func TestFromHudiParsesAvroAndAppliesRecordKeys(t *testing.T) {
	t.Parallel()

	s, err := FromHudi(hudiSchemaJSON, []string{"order_id", " region "}, NewFieldIDCounter(1))
	require.NoError(t, err)
	require.Len(t, s.Fields, 3)
	assert.Equal(t, []string{"root.order_id", "root.region"}, s.RecordKeys)

	assert.Equal(t, model.KindLong, s.Fields[0].Kind)
	assert.False(t, s.Fields[0].Nullable)

	assert.Equal(t, model.KindString, s.Fields[1].Kind)
	assert.True(t, s.Fields[1].Nullable)

	assert.Equal(t, model.KindArray, s.Fields[2].Kind)
}

func TestFromHudiRejectsNonRecordRoot(t *testing.T) {
	t.Parallel()

	_, err := FromHudi(`"string"`, nil, NewFieldIDCounter(1))
	assert.Error(t, err)
}

func TestHudiRoundTripThroughAvroString(t *testing.T) {
	t.Parallel()

	canon, err := FromHudi(hudiSchemaJSON, []string{"order_id"}, NewFieldIDCounter(1))
	require.NoError(t, err)

	avroStr, err := ToHudi(canon, "orders", "tablemesh")
	require.NoError(t, err)
	require.NotEmpty(t, avroStr)

	back, err := FromHudi(avroStr, []string{"order_id"}, NewFieldIDCounter(1))
	require.NoError(t, err)
	require.Len(t, back.Fields, 3)
	assert.Equal(t, model.KindLong, back.Fields[0].Kind)
	assert.Equal(t, model.KindString, back.Fields[1].Kind)
	assert.True(t, back.Fields[1].Nullable)
}

func TestToHudiRejectsNonRecordRoot(t *testing.T) {
	t.Parallel()

	leaf := model.NewLeaf("x", model.KindInt, false, nil)
	_, err := ToHudi(leaf, "x", "ns")
	assert.Error(t, err)
}
