package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

func testSchema() *model.CanonicalSchema {
	id := func(i int) *int { return &i }
	return model.NewRecord("orders", false, id(0),
		model.NewLeaf("order_id", model.KindLong, false, id(1)),
		model.NewRecord("customer", true, id(2),
			model.NewLeaf("email", model.KindString, true, id(3)),
		),
	)
}

func TestResolveRecordKeysAcceptsKnownPaths(t *testing.T) {
	t.Parallel()

	err := ResolveRecordKeys(testSchema(), []string{"orders.order_id", "orders.customer.email"})
	assert.NoError(t, err)
}

func TestResolveRecordKeysRejectsUnknownPath(t *testing.T) {
	t.Parallel()

	err := ResolveRecordKeys(testSchema(), []string{"orders.shipping_address"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.SchemaMismatch))
}

func TestFieldIDCounterIsMonotonicFromStart(t *testing.T) {
	t.Parallel()

	c := NewFieldIDCounter(5)
	assert.Equal(t, 5, c.Next())
	assert.Equal(t, 6, c.Next())
	assert.Equal(t, 7, c.Next())
}
