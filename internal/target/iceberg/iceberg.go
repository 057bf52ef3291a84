// Package iceberg implements the Iceberg target adapter: committing new
// snapshots that reference existing physical data files without rewriting
// them, and persisting the sync checkpoint inside the table's own
// properties.
package iceberg

import (
	"context"
	"fmt"

	icebergpkg "github.com/polarsignals/iceberg-go"
	"github.com/polarsignals/iceberg-go/catalog"
	"github.com/polarsignals/iceberg-go/table"
	"github.com/thanos-io/objstore"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/partition"
	"github.com/tablemesh/tablemesh/internal/schema"
)

const checkpointPropKey = "tablemesh.lastSyncVersion"

var writerOptions = []table.WriterOption{
	table.WithMergeSchema(),
	table.WithMetadataDeleteAfterCommit(),
	table.WithMetadataPreviousVersionsMax(3),
}

// Adapter writes an Iceberg table's snapshot log, translating the
// canonical schema/partition spec/diff it's handed back into Iceberg's own
// manifest entries.
type Adapter struct {
	catalog    catalog.Catalog
	bucket     objstore.Bucket
	tableIdent []string
}

func New(ctlg catalog.Catalog, bucket objstore.Bucket, tableIdent []string) *Adapter {
	return &Adapter{catalog: ctlg, bucket: bucket, tableIdent: tableIdent}
}

func (a *Adapter) SupportsIncremental() bool { return true }

func (a *Adapter) loadOrCreateTable(ctx context.Context, desc model.TableDescriptor, counter *schema.FieldIDCounter) (table.Table, error) {
	t, err := a.catalog.LoadTable(ctx, a.tableIdent, icebergpkg.Properties{})
	if err == nil {
		return t, nil
	}
	if !catalogErrNotFound(err) {
		return nil, errs.Wrap(errs.TargetWriteError, err, "loading iceberg table %v", a.tableIdent)
	}

	doc, err := schema.ToIceberg(desc.ReadSchema, 0, desc.ReadSchema.RecordKeys, counter)
	if err != nil {
		return nil, err
	}
	icebergSchema, err := docToIcebergSchema(doc)
	if err != nil {
		return nil, err
	}
	spec, err := partitionSpecToIceberg(desc.PartitionSpec)
	if err != nil {
		return nil, err
	}

	t, err = a.catalog.CreateTable(ctx, a.tableIdent, icebergSchema, icebergpkg.Properties{},
		catalog.WithPartitionSpec(spec),
	)
	if err != nil {
		return nil, errs.Wrap(errs.TargetWriteError, err, "creating iceberg table %v", a.tableIdent)
	}
	return t, nil
}

func (a *Adapter) ReadLastCheckpoint(ctx context.Context) (*model.SyncCheckpoint, error) {
	t, err := a.catalog.LoadTable(ctx, a.tableIdent, icebergpkg.Properties{})
	if err != nil {
		if catalogErrNotFound(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.TargetWriteError, err, "loading iceberg table %v", a.tableIdent)
	}
	raw, ok := t.Metadata().Properties()[checkpointPropKey]
	if !ok {
		return nil, nil
	}
	tok, err := parseCheckpointValue(raw)
	if err != nil {
		return nil, err
	}
	return &model.SyncCheckpoint{LastSourceVersion: tok}, nil
}

// ApplySnapshot commits a full-replace snapshot: the writer deletes every
// data file not present in snap and appends every file snap carries that
// the table doesn't already have.
func (a *Adapter) ApplySnapshot(ctx context.Context, snap model.Snapshot) (model.SyncCheckpoint, error) {
	counter := schema.NewFieldIDCounter(1)
	t, err := a.loadOrCreateTable(ctx, snap.Table, counter)
	if err != nil {
		return model.SyncCheckpoint{}, err
	}

	w, err := t.SnapshotWriter(writerOptions...)
	if err != nil {
		return model.SyncCheckpoint{}, errs.Wrap(errs.TargetWriteError, err, "opening snapshot writer")
	}
	defer w.Close(ctx)

	wanted := snap.Files.PathSet()
	if err := w.DeleteDataFile(ctx, func(d icebergpkg.DataFile) bool {
		_, keep := wanted[d.FilePath()]
		return !keep
	}); err != nil {
		return model.SyncCheckpoint{}, errs.Wrap(errs.TargetWriteError, err, "pruning stale data files")
	}

	for _, f := range snap.Files.AllFiles() {
		if err := appendExistingFile(ctx, w, f, snap.Table.PartitionSpec); err != nil {
			return model.SyncCheckpoint{}, err
		}
	}

	cp := model.SyncCheckpoint{LastSourceVersion: snap.SourceVersion}
	if err := commitWithCheckpoint(ctx, w, t, a.catalog, a.tableIdent, cp); err != nil {
		return model.SyncCheckpoint{}, err
	}
	return cp, nil
}

// ApplyCommit appends/removes the files named by one source commit's diff.
func (a *Adapter) ApplyCommit(ctx context.Context, commit model.Commit) (model.SyncCheckpoint, error) {
	last, err := a.ReadLastCheckpoint(ctx)
	if err != nil {
		return model.SyncCheckpoint{}, err
	}
	if last != nil && !last.Advances(commit.Version) {
		return *last, nil
	}

	counter := schema.NewFieldIDCounter(1)
	t, err := a.loadOrCreateTable(ctx, commit.TableAfter, counter)
	if err != nil {
		return model.SyncCheckpoint{}, err
	}

	w, err := t.SnapshotWriter(writerOptions...)
	if err != nil {
		return model.SyncCheckpoint{}, errs.Wrap(errs.TargetWriteError, err, "opening snapshot writer")
	}
	defer w.Close(ctx)

	removed := commit.FilesDiff.RemovedPathSet()
	if len(removed) > 0 {
		if err := w.DeleteDataFile(ctx, func(d icebergpkg.DataFile) bool {
			_, gone := removed[d.FilePath()]
			return gone
		}); err != nil {
			return model.SyncCheckpoint{}, errs.Wrap(errs.TargetWriteError, err, "applying removed files")
		}
	}
	for _, f := range commit.FilesDiff.Added {
		if err := appendExistingFile(ctx, w, f, commit.TableAfter.PartitionSpec); err != nil {
			return model.SyncCheckpoint{}, err
		}
	}

	cp := model.SyncCheckpoint{LastSourceVersion: commit.Version, LastSourceInstantMs: commit.TimestampMs}
	if err := commitWithCheckpoint(ctx, w, t, a.catalog, a.tableIdent, cp); err != nil {
		return model.SyncCheckpoint{}, err
	}
	return cp, nil
}

// appendExistingFile registers an already-written Parquet file as a new
// manifest entry — never reading or re-encoding its row data.
func appendExistingFile(ctx context.Context, w table.SnapshotWriter, f model.DataFile, spec model.PartitionSpec) error {
	partitionTuple, err := partitionTupleFor(f, spec)
	if err != nil {
		return err
	}
	df := icebergpkg.NewDataFile(f.Path, icebergpkg.ParquetFile, partitionTuple, int64(f.RecordCount), int64(f.FileSizeBytes))
	if err := w.AppendDataFile(ctx, df); err != nil {
		return errs.Wrap(errs.TargetWriteError, err, "appending data file %s", f.Path)
	}
	return nil
}

func partitionTupleFor(f model.DataFile, spec model.PartitionSpec) (map[int]any, error) {
	tuple := map[int]any{}
	for _, field := range spec.Fields {
		r, ok := f.PartitionValues[field.Key()]
		if !ok {
			continue
		}
		s, err := partition.SerializeValue(&r.Max, field.Transform)
		if err != nil {
			return nil, err
		}
		tuple[field.SourceFieldID] = s
	}
	return tuple, nil
}

func commitWithCheckpoint(ctx context.Context, w table.SnapshotWriter, t table.Table, ctlg catalog.Catalog, ident []string, cp model.SyncCheckpoint) error {
	if err := w.SetProperty(checkpointPropKey, fmt.Sprintf("%s@%d", cp.LastSourceVersion.Raw, cp.LastSourceVersion.Ord)); err != nil {
		return errs.Wrap(errs.TargetWriteError, err, "setting checkpoint property")
	}
	if err := w.Close(ctx); err != nil {
		return errs.Wrap(errs.TargetWriteError, err, "committing snapshot for %v", ident)
	}
	return nil
}

func parseCheckpointValue(raw string) (model.VersionToken, error) {
	for i := len(raw) - 1; i >= 0; i-- {
		if raw[i] == '@' {
			var ord int64
			if _, err := fmt.Sscanf(raw[i+1:], "%d", &ord); err != nil {
				return model.VersionToken{}, errs.Wrap(errs.TargetWriteError, err, "parsing checkpoint ordinal from %q", raw)
			}
			return model.NewVersionToken(raw[:i], ord), nil
		}
	}
	return model.VersionToken{}, errs.New(errs.TargetWriteError, "malformed checkpoint value %q", raw)
}

func catalogErrNotFound(err error) bool {
	return err != nil && catalog.ErrorTableNotFound != nil && errorIs(err, catalog.ErrorTableNotFound)
}

func errorIs(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func docToIcebergSchema(doc schema.IcebergSchemaDoc) (*icebergpkg.Schema, error) {
	fields, err := docFieldsToNested(doc.Fields)
	if err != nil {
		return nil, err
	}
	return icebergpkg.NewSchemaWithIdentifiers(doc.SchemaID, doc.IdentifierFieldIDs, fields...), nil
}

func docFieldsToNested(fields []schema.IcebergField) ([]icebergpkg.NestedField, error) {
	out := make([]icebergpkg.NestedField, 0, len(fields))
	for _, f := range fields {
		t, err := docTypeToIceberg(f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, icebergpkg.NestedField{ID: f.ID, Name: f.Name, Type: t, Required: f.Required, Doc: f.Doc})
	}
	return out, nil
}

func docTypeToIceberg(t schema.IcebergType) (icebergpkg.Type, error) {
	switch {
	case t.Struct != nil:
		fields, err := docFieldsToNested(t.Struct.Fields)
		if err != nil {
			return nil, err
		}
		return icebergpkg.StructType{FieldList: fields}, nil
	case t.List != nil:
		elem, err := docTypeToIceberg(t.List.Element)
		if err != nil {
			return nil, err
		}
		return icebergpkg.ListType{ElementID: t.List.ElementID, Element: elem, ElementRequired: t.List.ElementRequired}, nil
	case t.Map != nil:
		key, err := docTypeToIceberg(t.Map.Key)
		if err != nil {
			return nil, err
		}
		val, err := docTypeToIceberg(t.Map.Value)
		if err != nil {
			return nil, err
		}
		return icebergpkg.MapType{KeyID: t.Map.KeyID, KeyType: key, ValueID: t.Map.ValueID, ValueType: val, ValueRequired: t.Map.ValueRequired}, nil
	default:
		return icebergpkg.PrimitiveTypeFromString(t.Primitive)
	}
}

func partitionSpecToIceberg(spec model.PartitionSpec) (icebergpkg.PartitionSpec, error) {
	var fields []icebergpkg.PartitionField
	for _, f := range spec.Fields {
		t, err := partition.ToIcebergTransform(f.Transform)
		if err != nil {
			return icebergpkg.PartitionSpec{}, err
		}
		transform, err := icebergpkg.ParseTransform(t)
		if err != nil {
			return icebergpkg.PartitionSpec{}, errs.Wrap(errs.UnsupportedPartitionTransform, err, "parsing transform %q", t)
		}
		fields = append(fields, icebergpkg.PartitionField{SourceID: f.SourceFieldID, Name: f.Name, Transform: transform})
	}
	return icebergpkg.NewPartitionSpec(fields...), nil
}
