package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/model"
)

func icebergDoc() IcebergSchemaDoc {
	return IcebergSchemaDoc{
		Type:     "struct",
		SchemaID: 0,
		Fields: []IcebergField{
			{ID: 1, Name: "order_id", Required: true, Type: PrimitiveType("long")},
			{ID: 2, Name: "amount", Required: false, Type: DecimalType(10, 2)},
		},
		IdentifierFieldIDs: []int{1},
	}
}

func TestFromIcebergPreservesFieldIDsAndIdentifiers(t *testing.T) {
	t.Parallel()

	s, err := FromIceberg(icebergDoc())
	require.NoError(t, err)
	require.Len(t, s.Fields, 2)

	require.NotNil(t, s.Fields[0].FieldID)
	assert.Equal(t, 1, *s.Fields[0].FieldID)
	assert.False(t, s.Fields[0].Nullable)

	require.NotNil(t, s.Fields[1].FieldID)
	assert.Equal(t, 2, *s.Fields[1].FieldID)
	assert.True(t, s.Fields[1].Nullable)

	assert.Equal(t, []string{"root.order_id"}, s.RecordKeys)
}

func TestIcebergRoundTripPreservesFieldIDs(t *testing.T) {
	t.Parallel()

	canon, err := FromIceberg(icebergDoc())
	require.NoError(t, err)

	back, err := ToIceberg(canon, 1, canon.RecordKeys, NewFieldIDCounter(100))
	require.NoError(t, err)
	require.Len(t, back.Fields, 2)
	assert.Equal(t, 1, back.Fields[0].ID)
	assert.Equal(t, "long", back.Fields[0].Type.Primitive)
	assert.Equal(t, 2, back.Fields[1].ID)
	assert.Equal(t, "decimal(10,2)", back.Fields[1].Type.Primitive)
	assert.Equal(t, []int{1}, back.IdentifierFieldIDs)
}

func TestToIcebergMintsFieldIDsWhenCanonicalHasNone(t *testing.T) {
	t.Parallel()

	root := model.NewRecord("root", false, nil,
		model.NewLeaf("order_id", model.KindLong, false, nil),
	)

	doc, err := ToIceberg(root, 0, nil, NewFieldIDCounter(50))
	require.NoError(t, err)
	require.Len(t, doc.Fields, 1)
	assert.Equal(t, 50, doc.Fields[0].ID)
}

func TestToIcebergRejectsNonRecordRoot(t *testing.T) {
	t.Parallel()

	leaf := model.NewLeaf("x", model.KindInt, false, nil)
	_, err := ToIceberg(leaf, 0, nil, NewFieldIDCounter(1))
	assert.Error(t, err)
}

func TestUUIDRoundTripsAsFixed16(t *testing.T) {
	t.Parallel()

	doc := IcebergSchemaDoc{Fields: []IcebergField{
		{ID: 1, Name: "id", Required: true, Type: PrimitiveType("uuid")},
	}}
	canon, err := FromIceberg(doc)
	require.NoError(t, err)
	assert.Equal(t, model.KindFixed, canon.Fields[0].Kind)
	assert.Equal(t, 16, canon.Fields[0].Meta.FixedLength)

	back, err := ToIceberg(canon, 0, nil, NewFieldIDCounter(10))
	require.NoError(t, err)
	assert.Equal(t, "uuid", back.Fields[0].Type.Primitive)
}
