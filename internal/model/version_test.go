package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionTokenOrdering(t *testing.T) {
	t.Parallel()

	older := NewVersionToken("v3", 3)
	newer := NewVersionToken("v10", 10)

	assert.True(t, older.Less(newer))
	assert.False(t, newer.Less(older))
	assert.Equal(t, -1, older.Compare(newer))
	assert.Equal(t, 1, newer.Compare(older))
	assert.Equal(t, 0, older.Compare(older))
}

func TestVersionTokenEqualityIsRawAndOrd(t *testing.T) {
	t.Parallel()

	a := NewVersionToken("v3", 3)
	b := NewVersionToken("v3", 3)
	c := NewVersionToken("v3-alt", 3)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c), "same Ord but different Raw must not compare equal")
}

func TestVersionTokenIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, VersionToken{}.IsZero())
	assert.False(t, NewVersionToken("v0", 0).IsZero(), "a non-empty Raw at ordinal 0 is not the zero value")
}

func TestSyncCheckpointAdvances(t *testing.T) {
	t.Parallel()

	cp := SyncCheckpoint{LastSourceVersion: NewVersionToken("v5", 5)}

	assert.True(t, cp.Advances(NewVersionToken("v6", 6)))
	assert.False(t, cp.Advances(NewVersionToken("v5", 5)), "equal ordinal does not advance")
	assert.False(t, cp.Advances(NewVersionToken("v4", 4)), "lower ordinal does not advance")
}
