package partition

import (
	"fmt"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// ToIcebergTransform renders a canonical Transform as Iceberg's own
// partition-spec transform string ("identity","year","month","day","hour",
// "bucket[n]","truncate[w]"). Iceberg targets configure this natively on
// the source field instead of synthesizing a generated column.
func ToIcebergTransform(t model.Transform) (string, error) {
	switch t.Kind {
	case model.TransformValue:
		return "identity", nil
	case model.TransformYear:
		return "year", nil
	case model.TransformMonth:
		return "month", nil
	case model.TransformDay:
		return "day", nil
	case model.TransformHour:
		return "hour", nil
	case model.TransformBucket:
		return fmt.Sprintf("bucket[%d]", t.Param), nil
	case model.TransformTruncate:
		return fmt.Sprintf("truncate[%d]", t.Param), nil
	default:
		return "", errs.New(errs.UnsupportedPartitionTransform, "transform kind %v has no iceberg analog", t.Kind)
	}
}

// FromIcebergTransform parses an Iceberg partition-spec transform string
// back into a canonical Transform.
func FromIcebergTransform(s string) (model.Transform, error) {
	switch s {
	case "identity":
		return model.ValueTransform(), nil
	case "year":
		return model.YearTransform(), nil
	case "month":
		return model.MonthTransform(), nil
	case "day":
		return model.DayTransform(), nil
	case "hour":
		return model.HourTransform(), nil
	}
	if n, ok := parseParam("bucket", s); ok {
		return model.BucketTransform(n), nil
	}
	if n, ok := parseParam("truncate", s); ok {
		return model.TruncateTransform(n), nil
	}
	return model.Transform{}, errs.New(errs.UnsupportedPartitionTransform, "iceberg transform %q is not recognized", s)
}

func parseParam(prefix, s string) (int, bool) {
	want := prefix + "["
	if len(s) <= len(want)+1 || s[:len(want)] != want || s[len(s)-1] != ']' {
		return 0, false
	}
	var n int
	_, err := fmt.Sscanf(s[len(want):len(s)-1], "%d", &n)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RejectNonIdentityForDelta enforces that BUCKET/TRUNCATE transforms, which
// have no Delta or Hudi generated-column equivalent, are rejected outright
// rather than silently downgraded to VALUE.
func RejectNonIdentityForDelta(spec model.PartitionSpec) error {
	for _, f := range spec.Fields {
		if f.Transform.Kind == model.TransformBucket || f.Transform.Kind == model.TransformTruncate {
			return errs.New(errs.UnsupportedPartitionTransform,
				"transform %s on field %q has no delta/hudi generated-column equivalent", f.Transform, f.SourceName)
		}
	}
	return nil
}
