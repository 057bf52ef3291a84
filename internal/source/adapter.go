// Package source defines the contract every format-specific source adapter
// (delta, iceberg, hudi) implements, plus the bounded incremental-changes
// cache shared by all of them.
package source

import (
	"context"

	"github.com/tablemesh/tablemesh/internal/model"
)

// CommitPlan is the ordered list of commits strictly after a checkpoint,
// together with whether the source can serve them incrementally at all.
type CommitPlan struct {
	Commits        []model.VersionToken
	MustDoFullSync bool
}

// Adapter is the capability record a format-specific package builds to
// expose its table as a sync source. There is deliberately no shared base
// type or embedding: every adapter implements this set of methods standalone,
// and the orchestrator only ever holds an Adapter value.
type Adapter interface {
	GetTable(ctx context.Context, at model.VersionToken) (model.TableDescriptor, error)
	GetSchemaCatalog(ctx context.Context, at model.VersionToken) (map[model.SchemaVersion]*model.CanonicalSchema, error)
	GetCurrentSnapshot(ctx context.Context) (model.Snapshot, error)
	GetCommitState(ctx context.Context, afterInstantMs int64, after *model.VersionToken) (CommitPlan, error)
	GetCommit(ctx context.Context, v model.VersionToken) (model.Commit, error)
}
