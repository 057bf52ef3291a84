package model

// ColumnStat is the per-column statistic set tracked for a data file. A nil
// *ColumnStat.Range (not a zero Value) represents "no range known"; absent
// stats for an entire column are represented by the column's key simply
// being missing from the enclosing map, never by a zero-valued ColumnStat.
type ColumnStat struct {
	Range          *Range[Value]
	NumNulls       uint64
	NumValues      uint64
	TotalSizeBytes uint64
}

// ColumnStats maps a schema field id to its ColumnStat. Fields with no
// recorded statistics are simply absent from the map.
type ColumnStats map[int]ColumnStat
