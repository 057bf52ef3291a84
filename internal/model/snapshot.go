package model

// Snapshot is a full point-in-time view of a source table.
type Snapshot struct {
	Table          TableDescriptor
	SchemaCatalog  map[SchemaVersion]*CanonicalSchema
	Files          PartitionedDataFiles
	SourceVersion  VersionToken
}
