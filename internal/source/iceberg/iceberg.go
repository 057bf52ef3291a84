// Package iceberg implements the Iceberg source adapter on top of
// polarsignals/iceberg-go's catalog/table types, walking the snapshot chain
// and manifest lists for metadata only — no Parquet row data is ever opened.
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
	"github.com/tablemesh/tablemesh/internal/source"
)

// Adapter reads an Iceberg table's metadata.json, schema list and manifest
// lists through a catalog.Catalog, translating into the canonical model.
type Adapter struct {
	catalog    catalog.Catalog
	bucket     objstore.Bucket
	tableIdent []string
	cache      *source.ChangesCache
}

func New(ctlg catalog.Catalog, bucket objstore.Bucket, tableIdent []string) *Adapter {
	return &Adapter{catalog: ctlg, bucket: bucket, tableIdent: tableIdent, cache: source.NewChangesCache(16)}
}

func (a *Adapter) loadTable(ctx context.Context) (table.Table, error) {
	t, err := a.catalog.LoadTable(ctx, a.tableIdent, icebergpkg.Properties{})
	if err != nil {
		return nil, errs.Wrap(errs.SourceReadError, err, "loading iceberg table %v", a.tableIdent)
	}
	return t, nil
}

func (a *Adapter) GetTable(ctx context.Context, at model.VersionToken) (model.TableDescriptor, error) {
	t, err := a.loadTable(ctx)
	if err != nil {
		return model.TableDescriptor{}, err
	}
	return a.describeTable(t)
}

func (a *Adapter) describeTable(t table.Table) (model.TableDescriptor, error) {
	doc, err := schemaDocFromIceberg(t.Schema())
	if err != nil {
		return model.TableDescriptor{}, err
	}
	canonical, err := schema.FromIceberg(doc)
	if err != nil {
		return model.TableDescriptor{}, err
	}
	spec, err := partitionSpecFromIceberg(t.Metadata().PartitionSpec(), canonical)
	if err != nil {
		return model.TableDescriptor{}, err
	}
	layout := model.LayoutFlat
	if !spec.IsUnpartitioned() {
		layout = model.LayoutDirHierarchyPartitioned
	}
	return model.TableDescriptor{
		Name:          fmt.Sprintf("%v", a.tableIdent),
		SourceFormat:  model.FormatIceberg,
		BasePath:      t.Metadata().Location(),
		ReadSchema:    canonical,
		PartitionSpec: spec,
		Layout:        layout,
	}, nil
}

func (a *Adapter) GetSchemaCatalog(ctx context.Context, at model.VersionToken) (map[model.SchemaVersion]*model.CanonicalSchema, error) {
	t, err := a.loadTable(ctx)
	if err != nil {
		return nil, err
	}
	out := map[model.SchemaVersion]*model.CanonicalSchema{}
	for _, s := range t.Metadata().Schemas() {
		doc, err := schemaDocFromIceberg(s)
		if err != nil {
			return nil, err
		}
		canonical, err := schema.FromIceberg(doc)
		if err != nil {
			return nil, err
		}
		out[model.SchemaVersion(doc.SchemaID)] = canonical
	}
	if len(out) == 0 {
		return nil, errs.New(errs.SourceReadError, "iceberg table %v has no schemas", a.tableIdent)
	}
	return out, nil
}

func (a *Adapter) GetCurrentSnapshot(ctx context.Context) (model.Snapshot, error) {
	t, err := a.loadTable(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap := t.CurrentSnapshot()
	if snap == nil {
		return model.Snapshot{}, errs.New(errs.SourceReadError, "iceberg table %v has no current snapshot", a.tableIdent)
	}

	descriptor, err := a.describeTable(t)
	if err != nil {
		return model.Snapshot{}, err
	}
	catalog_, err := a.GetSchemaCatalog(ctx, model.VersionToken{})
	if err != nil {
		return model.Snapshot{}, err
	}
	files, err := a.listDataFiles(snap, descriptor.PartitionSpec)
	if err != nil {
		return model.Snapshot{}, err
	}

	return model.Snapshot{
		Table:         descriptor,
		SchemaCatalog: catalog_,
		Files:         files,
		SourceVersion: sequenceToken(snap),
	}, nil
}

// listDataFiles replays one snapshot's manifest list into a flat set of
// live (non-deleted) data files, grouped by partition value vector.
func (a *Adapter) listDataFiles(snap *icebergpkg.Snapshot, spec model.PartitionSpec) (model.PartitionedDataFiles, error) {
	manifests, err := snap.Manifests(a.bucket)
	if err != nil {
		return model.PartitionedDataFiles{}, errs.Wrap(errs.SourceReadError, err, "reading manifest list")
	}

	groups := map[string]*model.PartitionedGroup{}
	var order []string

	for _, m := range manifests {
		entries, _, err := m.FetchEntries(a.bucket, false)
		if err != nil {
			return model.PartitionedDataFiles{}, errs.Wrap(errs.SourceReadError, err, "reading manifest entries")
		}
		for _, e := range entries {
			if e.Status() == icebergpkg.EntryStatusDELETED {
				continue
			}
			df, pv := dataFileToCanonical(e.DataFile(), spec)
			key := partitionGroupKey(pv)
			g, ok := groups[key]
			if !ok {
				g = &model.PartitionedGroup{PartitionValues: pv}
				groups[key] = g
				order = append(order, key)
			}
			g.Files = append(g.Files, df)
		}
	}

	out := model.PartitionedDataFiles{}
	for _, k := range order {
		out.Groups = append(out.Groups, *groups[k])
	}
	return out, nil
}

func (a *Adapter) GetCommitState(ctx context.Context, afterInstantMs int64, after *model.VersionToken) (source.CommitPlan, error) {
	t, err := a.loadTable(ctx)
	if err != nil {
		return source.CommitPlan{}, err
	}
	if after == nil {
		return source.CommitPlan{MustDoFullSync: true}, nil
	}

	var pending []model.VersionToken
	found := false
	for _, s := range t.Metadata().Snapshots() {
		ord := s.SequenceNumber()
		if ord == after.Ord {
			found = true
			continue
		}
		if ord > after.Ord {
			pending = append(pending, model.NewVersionToken(fmt.Sprintf("%d", ord), ord))
		}
	}
	if !found {
		// The checkpointed snapshot has expired out of the metadata's
		// snapshot list (snapshot expiry ran since the last round) —
		// incremental replay from it is no longer possible.
		return source.CommitPlan{MustDoFullSync: true}, nil
	}
	return source.CommitPlan{Commits: pending}, nil
}

func (a *Adapter) GetCommit(ctx context.Context, v model.VersionToken) (model.Commit, error) {
	t, err := a.loadTable(ctx)
	if err != nil {
		return model.Commit{}, err
	}

	var target, parent *icebergpkg.Snapshot
	for _, s := range t.Metadata().Snapshots() {
		if s.SequenceNumber() == v.Ord {
			target = s
		}
	}
	if target == nil {
		return model.Commit{}, errs.New(errs.SourceReadError, "snapshot with sequence number %d not found", v.Ord)
	}
	if pid := target.ParentSnapshotID(); pid != nil {
		for _, s := range t.Metadata().Snapshots() {
			if s.SnapshotID() == *pid {
				parent = s
			}
		}
	}

	descriptor, err := a.describeTable(t)
	if err != nil {
		return model.Commit{}, err
	}

	beforePaths := map[string]struct{}{}
	if parent != nil {
		before, err := a.listDataFiles(parent, descriptor.PartitionSpec)
		if err != nil {
			return model.Commit{}, err
		}
		beforePaths = before.PathSet()
	}

	after, err := a.listDataFiles(target, descriptor.PartitionSpec)
	if err != nil {
		return model.Commit{}, err
	}
	afterPaths := after.PathSet()

	var diff model.DataFilesDiff
	for _, f := range after.AllFiles() {
		if _, existed := beforePaths[f.Path]; !existed {
			diff.Added = append(diff.Added, f)
		}
	}
	for p := range beforePaths {
		if _, stillThere := afterPaths[p]; !stillThere {
			diff.Removed = append(diff.Removed, model.RemovedFile{Path: p})
		}
	}
	if err := diff.Validate(); err != nil {
		return model.Commit{}, errs.Wrap(errs.SourceReadError, err, "snapshot %d diff is inconsistent", v.Ord)
	}

	return model.Commit{
		Version:     v,
		TimestampMs: target.TimestampMs(),
		FilesDiff:   diff,
		TableAfter:  descriptor,
	}, nil
}

func sequenceToken(s *icebergpkg.Snapshot) model.VersionToken {
	return model.NewVersionToken(fmt.Sprintf("%d", s.SequenceNumber()), s.SequenceNumber())
}

func partitionGroupKey(pv model.PartitionValues) string {
	s := ""
	for k, r := range pv {
		s += fmt.Sprintf("%d/%d:%s;", k.SourceFieldID, k.Transform.Kind, r.Max.String())
	}
	return s
}

func dataFileToCanonical(d icebergpkg.DataFile, spec model.PartitionSpec) (model.DataFile, model.PartitionValues) {
	df := model.DataFile{
		Path:          d.FilePath(),
		Format:        model.FileFormatParquet,
		FileSizeBytes: uint64(d.FileSizeBytes()),
		RecordCount:   uint64(d.Count()),
	}
	return df, partitionValuesOf(d, spec)
}

// partitionValuesOf decodes a manifest entry's partition tuple, keyed by
// source field ID the same way appendExistingFile's partitionTupleFor
// builds it on the write side, mirroring the delta source's partitionValuesOf.
func partitionValuesOf(d icebergpkg.DataFile, spec model.PartitionSpec) model.PartitionValues {
	tuple := d.Partition()
	out := make(model.PartitionValues, len(spec.Fields))
	for _, f := range spec.Fields {
		raw, ok := tuple[f.SourceFieldID]
		if !ok || raw == nil {
			continue
		}
		v := model.StringValue(fmt.Sprintf("%v", raw))
		out[f.Key()] = model.PointRange(v)
	}
	return out
}

func schemaDocFromIceberg(s *icebergpkg.Schema) (schema.IcebergSchemaDoc, error) {
	fields, err := nestedFieldsToDoc(s.Fields())
	if err != nil {
		return schema.IcebergSchemaDoc{}, err
	}
	var identifierIDs []int
	if ids, ok := any(s).(interface{ IdentifierFieldIDs() []int }); ok {
		identifierIDs = ids.IdentifierFieldIDs()
	}
	return schema.IcebergSchemaDoc{
		Type:               "struct",
		SchemaID:           s.ID(),
		IdentifierFieldIDs: identifierIDs,
		Fields:             fields,
	}, nil
}

func nestedFieldsToDoc(fields []icebergpkg.NestedField) ([]schema.IcebergField, error) {
	out := make([]schema.IcebergField, 0, len(fields))
	for _, f := range fields {
		t, err := icebergTypeToDoc(f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.IcebergField{
			ID:       f.ID,
			Name:     f.Name,
			Required: f.Required,
			Type:     t,
			Doc:      f.Doc,
		})
	}
	return out, nil
}

func icebergTypeToDoc(t icebergpkg.Type) (schema.IcebergType, error) {
	switch tt := t.(type) {
	case icebergpkg.StructType:
		fields, err := nestedFieldsToDoc(tt.FieldList)
		if err != nil {
			return schema.IcebergType{}, err
		}
		return schema.IcebergType{Struct: &schema.IcebergStructType{Fields: fields}}, nil
	case icebergpkg.ListType:
		elem, err := icebergTypeToDoc(tt.Element)
		if err != nil {
			return schema.IcebergType{}, err
		}
		return schema.IcebergType{List: &schema.IcebergListType{
			ElementID:       tt.ElementID,
			ElementRequired: tt.ElementRequired,
			Element:         elem,
		}}, nil
	case icebergpkg.MapType:
		key, err := icebergTypeToDoc(tt.KeyType)
		if err != nil {
			return schema.IcebergType{}, err
		}
		val, err := icebergTypeToDoc(tt.ValueType)
		if err != nil {
			return schema.IcebergType{}, err
		}
		return schema.IcebergType{Map: &schema.IcebergMapType{
			KeyID:         tt.KeyID,
			Key:           key,
			ValueID:       tt.ValueID,
			ValueRequired: tt.ValueRequired,
			Value:         val,
		}}, nil
	case icebergpkg.DecimalType:
		return schema.PrimitiveType(fmt.Sprintf("decimal(%d,%d)", tt.Precision(), tt.Scale())), nil
	case icebergpkg.FixedType:
		return schema.FixedType(tt.Len()), nil
	default:
		name := t.Type()
		return schema.PrimitiveType(name), nil
	}
}

func partitionSpecFromIceberg(spec icebergpkg.PartitionSpec, canonical *model.CanonicalSchema) (model.PartitionSpec, error) {
	idx := canonical.FieldIndex()
	var fields []model.PartitionField
	for i := 0; i < spec.NumFields(); i++ {
		f := spec.Field(i)
		t, err := partition.FromIcebergTransform(f.Transform.String())
		if err != nil {
			return model.PartitionSpec{}, err
		}
		name, ok := idx[f.SourceID]
		if !ok {
			return model.PartitionSpec{}, errs.New(errs.InvalidSchema, "partition source field id %d not in schema", f.SourceID)
		}
		fields = append(fields, model.PartitionField{
			SourceFieldID: f.SourceID,
			SourceName:    name,
			Transform:     t,
			Name:          f.Name,
		})
	}
	return model.PartitionSpec{Fields: fields}, nil
}
