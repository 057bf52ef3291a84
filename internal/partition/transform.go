// Package partition implements the bidirectional partition-spec translator:
// recognizing Delta's generated-column time transforms, collapsing
// co-occurring granularities to the finest one, and re-synthesizing
// equivalent target partition columns or native transforms.
package partition

import (
	"fmt"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// targetColumnPrefix names the synthetic partition columns tablemesh writes
// to targets that have no native partition-transform concept (Delta, Hudi)
// for a non-VALUE transform.
const targetColumnPrefix = "tablemesh_partition_col_"

// TargetColumnName builds the synthesized target column name for a non-VALUE
// transform over sourceName: "tablemesh_partition_col_<TRANSFORM>_<source>".
func TargetColumnName(transform model.Transform, sourceName string) string {
	return fmt.Sprintf("%s%s_%s", targetColumnPrefix, transform.Kind.String(), sourceName)
}

// IsSynthesizedColumn reports whether name looks like a column this package
// itself generated, so a round-trip read doesn't mistake it for a real
// VALUE-transform source column.
func IsSynthesizedColumn(name string) bool {
	return len(name) > len(targetColumnPrefix) && name[:len(targetColumnPrefix)] == targetColumnPrefix
}

// TargetColumnKind returns the logical type of the synthesized target column
// for a time-based transform: YEAR projects to INT, MONTH/HOUR to STRING,
// DAY to DATE.
func TargetColumnKind(kind model.TransformKind) (model.Kind, error) {
	switch kind {
	case model.TransformYear:
		return model.KindInt, nil
	case model.TransformMonth, model.TransformHour:
		return model.KindString, nil
	case model.TransformDay:
		return model.KindDate, nil
	default:
		return model.KindInvalid, errs.New(errs.UnsupportedPartitionTransform, "transform %s has no synthesized target column type", kind)
	}
}

// dateFormat returns the Go reference-time layout used to format a time
// value for a given time-based transform, matching spec-level "canonical
// date format" per granularity.
func dateFormat(kind model.TransformKind) (string, error) {
	switch kind {
	case model.TransformYear:
		return "2006", nil
	case model.TransformMonth:
		return "2006-01", nil
	case model.TransformDay:
		return "2006-01-02", nil
	case model.TransformHour:
		return "2006-01-02-15", nil
	default:
		return "", errs.New(errs.UnsupportedPartitionTransform, "transform %s is not time-based", kind)
	}
}
