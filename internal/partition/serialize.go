package partition

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// NullPartitionToken is the literal Hive-style string a null partition
// value serializes to.
const NullPartitionToken = "__HIVE_DEFAULT_PARTITION__"

// epoch anchors DATE (days) and TIMESTAMP* (µs) values to a wall-clock time
// for formatting time-transform partition values.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// SerializeValue renders a single partition value to its on-disk string
// form. v == nil serializes to NullPartitionToken regardless of transform.
// For a VALUE transform the scalar's own lexical form is used; for a
// time-based transform the value is formatted with that transform's
// canonical date format.
func SerializeValue(v *model.Value, transform model.Transform) (string, error) {
	if v == nil {
		return NullPartitionToken, nil
	}
	if transform.Kind.IsTimeBased() {
		return serializeTimeValue(*v, transform.Kind)
	}
	return serializeScalar(*v)
}

func serializeTimeValue(v model.Value, kind model.TransformKind) (string, error) {
	layout, err := dateFormat(kind)
	if err != nil {
		return "", err
	}
	t, err := valueToTime(v)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(layout), nil
}

func valueToTime(v model.Value) (time.Time, error) {
	switch v.Kind {
	case model.KindDate:
		return epoch.AddDate(0, 0, int(v.Int())), nil
	case model.KindTimestamp, model.KindTimestampNTZ:
		return epoch.Add(time.Duration(v.Int()) * time.Microsecond), nil
	default:
		return time.Time{}, errs.New(errs.UnsupportedPartitionTransform, "value of kind %s cannot back a time transform", v.Kind)
	}
}

func serializeScalar(v model.Value) (string, error) {
	switch v.Kind {
	case model.KindBool:
		if v.Bool() {
			return "true", nil
		}
		return "false", nil
	case model.KindInt, model.KindLong:
		return strconv.FormatInt(v.Int(), 10), nil
	case model.KindFloat, model.KindDouble:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case model.KindString, model.KindEnum:
		return v.String(), nil
	case model.KindBytes, model.KindFixed:
		return string(v.Bytes()), nil
	case model.KindDecimal:
		if v.Decimal() == nil {
			return "", errs.New(errs.InvalidSchema, "decimal partition value has nil magnitude")
		}
		return v.Decimal().RatString(), nil
	case model.KindDate:
		t, err := valueToTime(v)
		if err != nil {
			return "", err
		}
		return t.UTC().Format("2006-01-02"), nil
	case model.KindTimestamp, model.KindTimestampNTZ:
		t, err := valueToTime(v)
		if err != nil {
			return "", err
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", errs.New(errs.UnsupportedType, "value kind %s has no partition serialization", v.Kind)
	}
}

// serializeRangeMax formats a Range's Max bound — the value time-based
// transforms serialize, per the max_value rule.
func serializeRangeMax(r model.Range[model.Value], transform model.Transform) (string, error) {
	max := r.Max
	return SerializeValue(&max, transform)
}

// FormatPartitionPath joins a PartitionSpec's fields and a matching set of
// serialized values into a Hive-style directory path segment sequence,
// e.g. "year=2024/month=2024-07".
func FormatPartitionPath(spec model.PartitionSpec, values model.PartitionValues) (string, error) {
	segments := make([]string, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		r, ok := values[f.Key()]
		var serialized string
		var err error
		if !ok {
			serialized = NullPartitionToken
		} else {
			serialized, err = serializeRangeMax(r, f.Transform)
			if err != nil {
				return "", err
			}
		}
		segments = append(segments, fmt.Sprintf("%s=%s", f.Name, serialized))
	}
	path := ""
	for i, s := range segments {
		if i > 0 {
			path += "/"
		}
		path += s
	}
	return path, nil
}
