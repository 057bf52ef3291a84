package model

// Commit is one atomic unit of change in a source table's log.
// Schema evolution is conveyed by TableAfter.ReadSchema differing from the
// previous commit's schema; field identity is preserved by FieldID.
type Commit struct {
	Version     VersionToken
	TimestampMs int64
	FilesDiff   DataFilesDiff
	TableAfter  TableDescriptor
}
