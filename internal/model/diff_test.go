package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataFilesDiffIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, DataFilesDiff{}.IsEmpty())
	assert.False(t, DataFilesDiff{Added: []DataFile{{Path: "a.parquet"}}}.IsEmpty())
	assert.False(t, DataFilesDiff{Removed: []RemovedFile{{Path: "b.parquet"}}}.IsEmpty())
}

func TestDataFilesDiffValidateRejectsOverlap(t *testing.T) {
	t.Parallel()

	diff := DataFilesDiff{
		Added:   []DataFile{{Path: "same.parquet"}},
		Removed: []RemovedFile{{Path: "same.parquet"}},
	}
	require.Error(t, diff.Validate(), "a path added and removed in the same commit is never valid")
}

func TestDataFilesDiffValidateAllowsDisjointPaths(t *testing.T) {
	t.Parallel()

	diff := DataFilesDiff{
		Added:   []DataFile{{Path: "new.parquet"}},
		Removed: []RemovedFile{{Path: "old.parquet"}},
	}
	assert.NoError(t, diff.Validate())
}

func TestDataFilesDiffPathSets(t *testing.T) {
	t.Parallel()

	diff := DataFilesDiff{
		Added:   []DataFile{{Path: "a.parquet"}, {Path: "b.parquet"}},
		Removed: []RemovedFile{{Path: "c.parquet"}},
	}

	added := diff.AddedPathSet()
	removed := diff.RemovedPathSet()

	assert.Len(t, added, 2)
	assert.Contains(t, added, "a.parquet")
	assert.Contains(t, added, "b.parquet")
	assert.Len(t, removed, 1)
	assert.Contains(t, removed, "c.parquet")
}
