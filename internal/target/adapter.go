// Package target defines the contract every format-specific target adapter
// (delta, iceberg, hudi) implements.
package target

import (
	"context"

	"github.com/tablemesh/tablemesh/internal/model"
)

// Adapter is the capability record a format-specific package builds to
// expose a table as a sync target. Like source.Adapter, there is no shared
// base type; every format package implements this standalone.
//
// ApplySnapshot must be idempotent: applying the same Snapshot twice
// produces no user-visible change beyond an additional no-op target commit.
// ApplyCommit must be idempotent per source version: if the target's last
// checkpoint already covers a commit's version, it returns the existing
// checkpoint unchanged without writing anything.
type Adapter interface {
	ReadLastCheckpoint(ctx context.Context) (*model.SyncCheckpoint, error)
	ApplySnapshot(ctx context.Context, snap model.Snapshot) (model.SyncCheckpoint, error)
	ApplyCommit(ctx context.Context, commit model.Commit) (model.SyncCheckpoint, error)
	SupportsIncremental() bool
}
