package model

// TableFormat identifies a source or target table format.
type TableFormat string

const (
	FormatDelta   TableFormat = "DELTA"
	FormatIceberg TableFormat = "ICEBERG"
	FormatHudi    TableFormat = "HUDI"
)

// LayoutStrategy describes how a table's data files are physically laid
// out.
type LayoutStrategy string

const (
	LayoutFlat                     LayoutStrategy = "FLAT"
	LayoutDirHierarchyPartitioned  LayoutStrategy = "DIR_HIERARCHY_PARTITION_VALUES"
)

// TableDescriptor is the format-independent description of a table at one
// point in its history.
type TableDescriptor struct {
	Name          string
	SourceFormat  TableFormat
	BasePath      string
	ReadSchema    *CanonicalSchema
	PartitionSpec PartitionSpec
	Layout        LayoutStrategy
}
