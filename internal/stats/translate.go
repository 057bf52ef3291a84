// Package stats implements C4, projecting per-file column statistics from a
// source format's native representation to the canonical ColumnStat map.
// There is no mapping back from ColumnStats to a format's own stats.
package stats

import (
	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// RawColumnStat is one source-format column stat entry keyed by the leaf
// field's canonical field id, before precision normalization.
type RawColumnStat struct {
	FieldID        int
	Min, Max       model.Value
	NumNulls       uint64
	NumValues      uint64
	TotalSizeBytes uint64
}

// Translate projects raw, per-leaf-field stats into canonical ColumnStats.
// Min and Max are kept exactly as given: no TIMESTAMP/TIMESTAMP_NTZ bound is
// converted to the schema's declared precision here, and Translate does not
// call NormalizeTimestampPrecision. Composite (non-leaf) field ids are rejected — stats are never
// synthesized for parents. A nil or empty input produces an empty map, not
// a nil one, so callers can distinguish "no stats collected" from absent
// translation.
func Translate(raw []RawColumnStat, schema *model.CanonicalSchema) (model.ColumnStats, error) {
	out := make(model.ColumnStats, len(raw))
	idx := schema.FieldIndex()
	leaves := leafFieldSet(schema, idx)

	for _, r := range raw {
		if !leaves[r.FieldID] {
			return nil, errs.New(errs.InvalidSchema, "stats present for non-leaf or unknown field id %d", r.FieldID)
		}
		rng, err := model.NewValueRange(r.Min, r.Max)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidSchema, err, "building stat range for field id %d", r.FieldID)
		}
		out[r.FieldID] = model.ColumnStat{
			Range:          &rng,
			NumNulls:       r.NumNulls,
			NumValues:      r.NumValues,
			TotalSizeBytes: r.TotalSizeBytes,
		}
	}
	return out, nil
}

// leafFieldSet returns the set of field ids in schema that name a leaf
// (non-composite) node.
func leafFieldSet(schema *model.CanonicalSchema, idx map[int]string) map[int]bool {
	set := make(map[int]bool, len(idx))
	var walk func(s *model.CanonicalSchema)
	walk = func(s *model.CanonicalSchema) {
		if s.Kind.IsComposite() {
			for _, c := range s.Fields {
				walk(c)
			}
			return
		}
		if s.FieldID != nil {
			set[*s.FieldID] = true
		}
	}
	walk(schema)
	return set
}

// NormalizeTimestampPrecision converts a TIMESTAMP/TIMESTAMP_NTZ bound
// carried in sourceUnits (micros or millis, per sourceIsMillis) to the
// schema field's declared precision.
func NormalizeTimestampPrecision(v model.Value, sourceIsMillis bool, targetPrec model.TimePrecision) model.Value {
	if v.Kind != model.KindTimestamp && v.Kind != model.KindTimestampNTZ {
		return v
	}
	units := v.Int()
	switch {
	case sourceIsMillis && targetPrec == model.PrecisionMicros:
		units *= 1000
	case !sourceIsMillis && targetPrec == model.PrecisionMillis:
		units /= 1000
	}
	return model.TimestampValue(units, v.Kind == model.KindTimestampNTZ)
}
