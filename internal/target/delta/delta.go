// Package delta implements the Delta Lake target adapter: writing new
// commit JSON files to _delta_log and persisting the sync checkpoint inside
// a table property, never rewriting or renaming data files.
package delta

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/thanos-io/objstore"

	json "github.com/tablemesh/tablemesh/internal/codec"
	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/objio"
	"github.com/tablemesh/tablemesh/internal/partition"
	"github.com/tablemesh/tablemesh/internal/schema"
	deltafmt "github.com/tablemesh/tablemesh/internal/source/delta"
)

const (
	logDir            = "_delta_log"
	checkpointConfKey = "tablemesh.lastSyncVersion"
)

// Adapter writes a Delta table's transaction log, translating the
// canonical schema/partition spec/diff it's handed back into Delta's own
// action shapes.
type Adapter struct {
	bucket   objstore.Bucket
	basePath string
	logger   log.Logger
}

func New(bucket objstore.Bucket, basePath string, logger log.Logger) *Adapter {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Adapter{bucket: bucket, basePath: strings.TrimSuffix(basePath, "/"), logger: logger}
}

func (a *Adapter) SupportsIncremental() bool { return true }

func (a *Adapter) commitPath(version int64) string {
	return fmt.Sprintf("%s/%s/%020d.json", a.basePath, logDir, version)
}

func (a *Adapter) nextVersion(ctx context.Context) (int64, error) {
	names, err := objio.ListDir(ctx, a.bucket, a.basePath+"/"+logDir+"/")
	if err != nil {
		return 0, err
	}
	var max int64 = -1
	for _, n := range names {
		base := n[strings.LastIndex(n, "/")+1:]
		if !strings.HasSuffix(base, ".json") {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSuffix(base, ".json"), 10, 64)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}
	return max + 1, nil
}

// ReadLastCheckpoint reads the checkpoint stored in the most recent
// metaData action's Configuration map.
func (a *Adapter) ReadLastCheckpoint(ctx context.Context) (*model.SyncCheckpoint, error) {
	names, err := objio.ListDir(ctx, a.bucket, a.basePath+"/"+logDir+"/")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	for i := len(names) - 1; i >= 0; i-- {
		var actions []deltafmt.Action
		err := objio.ListJSONLines(ctx, a.bucket, names[i], func() any { return &deltafmt.Action{} }, func(v any) error {
			actions = append(actions, *v.(*deltafmt.Action))
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, act := range actions {
			if act.MetaData == nil {
				continue
			}
			raw, ok := act.MetaData.Configuration[checkpointConfKey]
			if !ok {
				return nil, nil
			}
			parts := strings.SplitN(raw, "@", 2)
			if len(parts) != 2 {
				return nil, errs.New(errs.TargetWriteError, "malformed checkpoint value %q", raw)
			}
			ord, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, errs.Wrap(errs.TargetWriteError, err, "parsing checkpoint ordinal")
			}
			cp := model.SyncCheckpoint{LastSourceVersion: model.NewVersionToken(parts[0], ord)}
			return &cp, nil
		}
	}
	return nil, nil
}

func (a *Adapter) writeCheckpointAction(cp model.SyncCheckpoint) deltafmt.MetaData {
	return deltafmt.MetaData{
		Configuration: map[string]string{
			checkpointConfKey: fmt.Sprintf("%s@%d", cp.LastSourceVersion.Raw, cp.LastSourceVersion.Ord),
		},
	}
}

// ApplySnapshot writes a full-replace commit: RemoveFile for every path
// currently tracked (if any) plus AddFile for every file in snap, and a
// schema-evolution metaData action.
func (a *Adapter) ApplySnapshot(ctx context.Context, snap model.Snapshot) (model.SyncCheckpoint, error) {
	version, err := a.nextVersion(ctx)
	if err != nil {
		return model.SyncCheckpoint{}, err
	}

	doc, err := schema.ToDelta(snap.Table.ReadSchema, true, schema.NewFieldIDCounter(1))
	if err != nil {
		return model.SyncCheckpoint{}, err
	}
	schemaString, err := json.Marshal(doc)
	if err != nil {
		return model.SyncCheckpoint{}, errs.Wrap(errs.TargetWriteError, err, "encoding delta schema")
	}

	if err := partition.RejectNonIdentityForDelta(snap.Table.PartitionSpec); err != nil {
		return model.SyncCheckpoint{}, err
	}
	partitionCols := partitionColumnNames(snap.Table.PartitionSpec)

	cp := model.SyncCheckpoint{LastSourceVersion: snap.SourceVersion}
	md := a.writeCheckpointAction(cp)
	md.ID = snap.Table.Name
	md.Name = snap.Table.Name
	md.SchemaString = string(schemaString)
	md.PartitionColumns = partitionCols

	var actions []deltafmt.Action
	actions = append(actions, deltafmt.Action{MetaData: &md})
	for _, f := range snap.Files.AllFiles() {
		actions = append(actions, deltafmt.Action{Add: dataFileToAdd(f, snap.Table.PartitionSpec)})
	}

	if err := a.writeCommit(ctx, version, actions); err != nil {
		return model.SyncCheckpoint{}, err
	}
	return cp, nil
}

// ApplyCommit writes one incremental Delta commit mirroring the source
// commit's add/remove actions.
func (a *Adapter) ApplyCommit(ctx context.Context, commit model.Commit) (model.SyncCheckpoint, error) {
	last, err := a.ReadLastCheckpoint(ctx)
	if err != nil {
		return model.SyncCheckpoint{}, err
	}
	if last != nil && !last.Advances(commit.Version) {
		return *last, nil
	}

	version, err := a.nextVersion(ctx)
	if err != nil {
		return model.SyncCheckpoint{}, err
	}

	cp := model.SyncCheckpoint{LastSourceVersion: commit.Version, LastSourceInstantMs: commit.TimestampMs}
	md := a.writeCheckpointAction(cp)

	var actions []deltafmt.Action
	actions = append(actions, deltafmt.Action{MetaData: &md})
	for _, f := range commit.FilesDiff.Added {
		actions = append(actions, deltafmt.Action{Add: dataFileToAdd(f, commit.TableAfter.PartitionSpec)})
	}
	for _, r := range commit.FilesDiff.Removed {
		actions = append(actions, deltafmt.Action{Remove: &deltafmt.RemoveFile{
			Path:              r.Path,
			DeletionTimestamp: commit.TimestampMs,
			DataChange:        true,
			PartitionValues:   serializePartitionValues(r.PartitionValues, commit.TableAfter.PartitionSpec),
		}})
	}

	if err := a.writeCommit(ctx, version, actions); err != nil {
		return model.SyncCheckpoint{}, err
	}
	return cp, nil
}

func (a *Adapter) writeCommit(ctx context.Context, version int64, actions []deltafmt.Action) error {
	var b strings.Builder
	for _, act := range actions {
		line, err := json.Marshal(act)
		if err != nil {
			return errs.Wrap(errs.TargetWriteError, err, "encoding action")
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := a.bucket.Upload(ctx, a.commitPath(version), strings.NewReader(b.String())); err != nil {
		return errs.Wrap(errs.TargetWriteError, err, "writing commit %d", version)
	}
	return nil
}

func partitionColumnNames(spec model.PartitionSpec) []string {
	names := make([]string, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		names = append(names, f.Name)
	}
	return names
}

func fieldNameFor(spec model.PartitionSpec, k model.PartitionFieldKey) string {
	for _, f := range spec.Fields {
		if f.Key() == k {
			return f.Name
		}
	}
	return fmt.Sprintf("field_%d", k.SourceFieldID)
}

func serializePartitionValues(pv model.PartitionValues, spec model.PartitionSpec) map[string]string {
	out := make(map[string]string, len(pv))
	for k, r := range pv {
		s, err := partition.SerializeValue(&r.Max, k.Transform)
		if err != nil {
			continue
		}
		out[fieldNameFor(spec, k)] = s
	}
	return out
}

func dataFileToAdd(f model.DataFile, spec model.PartitionSpec) *deltafmt.AddFile {
	return &deltafmt.AddFile{
		Path:             f.Path,
		PartitionValues:  serializePartitionValues(f.PartitionValues, spec),
		Size:             int64(f.FileSizeBytes),
		ModificationTime: f.LastModifiedMs,
		DataChange:       true,
	}
}
