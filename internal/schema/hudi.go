package schema

import (
	"strings"

	"github.com/hamba/avro/v2"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// FromHudi canonicalizes a Hudi table's Avro schema. Hudi keeps no field ids
// of its own, so counter mints one per field exactly as it would for Delta.
// recordKeyFields is "hoodie.table.recordkey.fields" split on commas — Hudi
// stores record keys as table configuration, never inside the Avro schema
// document itself, so the caller supplies them separately. Each key is
// trimmed and, unless it already starts with "root.", rooted at the
// canonical root record so it resolves through FindPath.
func FromHudi(schemaJSON string, recordKeyFields []string, counter *FieldIDCounter) (*model.CanonicalSchema, error) {
	s, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidSchema, err, "parsing hudi avro schema")
	}
	rec, ok := s.(*avro.RecordSchema)
	if !ok {
		return nil, errs.New(errs.InvalidSchema, "hudi table schema root must be an avro record, got %s", s.Type())
	}
	id := counter.Next()
	root, err := avroRecordToCanonical("root", rec, &id, counter)
	if err != nil {
		return nil, err
	}
	root.Nullable = false
	root.RecordKeys = normalizeRecordKeys(recordKeyFields)
	if err := root.Validate(); err != nil {
		return nil, errs.Wrap(errs.InvalidSchema, err, "invalid hudi schema")
	}
	return root, nil
}

func normalizeRecordKeys(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, "root.") {
			f = "root." + f
		}
		out = append(out, f)
	}
	return out
}

func avroRecordToCanonical(name string, rec *avro.RecordSchema, fieldID *int, counter *FieldIDCounter) (*model.CanonicalSchema, error) {
	children := make([]*model.CanonicalSchema, 0, len(rec.Fields()))
	for _, f := range rec.Fields() {
		cid := counter.Next()
		fieldType, nullable := unwrapAvroNullable(f.Type())
		cs, err := avroTypeToCanonical(f.Name(), fieldType, &cid, counter)
		if err != nil {
			return nil, err
		}
		cs.Nullable = nullable
		children = append(children, cs)
	}
	return model.NewRecord(name, true, fieldID, children...), nil
}

// unwrapAvroNullable recognizes Hudi/Avro's standard nullable encoding: a
// two-branch union with avro.Null as one branch.
func unwrapAvroNullable(s avro.Schema) (avro.Schema, bool) {
	union, ok := s.(*avro.UnionSchema)
	if !ok {
		return s, false
	}
	types := union.Types()
	if len(types) != 2 {
		return s, false
	}
	if types[0].Type() == avro.Null {
		return types[1], true
	}
	if types[1].Type() == avro.Null {
		return types[0], true
	}
	return s, false
}

func avroTypeToCanonical(name string, s avro.Schema, fieldID *int, counter *FieldIDCounter) (*model.CanonicalSchema, error) {
	switch t := s.(type) {
	case *avro.RecordSchema:
		return avroRecordToCanonical(name, t, fieldID, counter)
	case *avro.ArraySchema:
		elID := counter.Next()
		itemType, nullable := unwrapAvroNullable(t.Items())
		el, err := avroTypeToCanonical("element", itemType, &elID, counter)
		if err != nil {
			return nil, err
		}
		el.Nullable = nullable
		return model.NewArray(name, true, fieldID, el), nil
	case *avro.MapSchema:
		keyID := counter.Next()
		key := model.NewLeaf("key", model.KindString, true, &keyID)
		valID := counter.Next()
		valType, nullable := unwrapAvroNullable(t.Values())
		val, err := avroTypeToCanonical("value", valType, &valID, counter)
		if err != nil {
			return nil, err
		}
		val.Nullable = nullable
		return model.NewMap(name, true, fieldID, key, val), nil
	case *avro.FixedSchema:
		if logical := t.Logical(); logical != nil && logical.Type() == avro.Decimal {
			dec := logical.(*avro.DecimalLogicalSchema)
			leaf := model.NewLeaf(name, model.KindDecimal, true, fieldID)
			leaf.Meta.DecimalPrecision = dec.Precision()
			leaf.Meta.DecimalScale = dec.Scale()
			return leaf, nil
		}
		leaf := model.NewLeaf(name, model.KindFixed, true, fieldID)
		leaf.Meta.FixedLength = t.Size()
		return leaf, nil
	case *avro.EnumSchema:
		return model.NewLeaf(name, model.KindEnum, true, fieldID), nil
	case *avro.PrimitiveSchema:
		return avroPrimitiveToCanonical(name, t, fieldID)
	default:
		return nil, errs.New(errs.UnsupportedType, "avro schema node %T has no canonical analog", s)
	}
}

func avroPrimitiveToCanonical(name string, t *avro.PrimitiveSchema, fieldID *int) (*model.CanonicalSchema, error) {
	if logical := t.Logical(); logical != nil {
		switch logical.Type() {
		case avro.Decimal:
			dec := logical.(*avro.DecimalLogicalSchema)
			leaf := model.NewLeaf(name, model.KindDecimal, true, fieldID)
			leaf.Meta.DecimalPrecision = dec.Precision()
			leaf.Meta.DecimalScale = dec.Scale()
			return leaf, nil
		case avro.Date:
			return model.NewLeaf(name, model.KindDate, true, fieldID), nil
		case avro.TimestampMillis:
			leaf := model.NewLeaf(name, model.KindTimestamp, true, fieldID)
			leaf.Meta.TimestampPrec = model.PrecisionMillis
			return leaf, nil
		case avro.TimestampMicros:
			leaf := model.NewLeaf(name, model.KindTimestamp, true, fieldID)
			leaf.Meta.TimestampPrec = model.PrecisionMicros
			return leaf, nil
		case avro.LocalTimestampMillis:
			leaf := model.NewLeaf(name, model.KindTimestampNTZ, true, fieldID)
			leaf.Meta.TimestampPrec = model.PrecisionMillis
			return leaf, nil
		case avro.LocalTimestampMicros:
			leaf := model.NewLeaf(name, model.KindTimestampNTZ, true, fieldID)
			leaf.Meta.TimestampPrec = model.PrecisionMicros
			return leaf, nil
		}
	}

	switch t.Type() {
	case avro.Boolean:
		return model.NewLeaf(name, model.KindBool, true, fieldID), nil
	case avro.Int:
		return model.NewLeaf(name, model.KindInt, true, fieldID), nil
	case avro.Long:
		return model.NewLeaf(name, model.KindLong, true, fieldID), nil
	case avro.Float:
		return model.NewLeaf(name, model.KindFloat, true, fieldID), nil
	case avro.Double:
		return model.NewLeaf(name, model.KindDouble, true, fieldID), nil
	case avro.String:
		return model.NewLeaf(name, model.KindString, true, fieldID), nil
	case avro.Bytes:
		return model.NewLeaf(name, model.KindBytes, true, fieldID), nil
	default:
		return nil, errs.New(errs.UnsupportedType, "avro primitive %q has no canonical analog", t.Type())
	}
}

// ToHudi builds an Avro record schema document from a canonical schema.
// Nullable fields are emitted as the standard Avro [null, type] union;
// recordName/namespace name the emitted root record, as Hudi requires every
// table's Avro schema to carry a concrete name.
func ToHudi(s *model.CanonicalSchema, recordName, namespace string) (string, error) {
	if s.Kind != model.KindRecord {
		return "", errs.New(errs.InvalidSchema, "root schema must be a RECORD")
	}
	fields, err := canonicalFieldsToAvro(s.Fields, namespace)
	if err != nil {
		return "", err
	}
	rec, err := avro.NewRecordSchema(recordName, namespace, fields)
	if err != nil {
		return "", errs.Wrap(errs.UnsupportedType, err, "building avro record schema %q", recordName)
	}
	return rec.String(), nil
}

func canonicalFieldsToAvro(fields []*model.CanonicalSchema, namespace string) ([]*avro.Field, error) {
	out := make([]*avro.Field, 0, len(fields))
	for _, f := range fields {
		t, err := canonicalTypeToAvro(f, namespace)
		if err != nil {
			return nil, err
		}
		if f.Nullable {
			union, uerr := avro.NewUnionSchema([]avro.Schema{&avro.NullSchema{}, t})
			if uerr != nil {
				return nil, errs.Wrap(errs.UnsupportedType, uerr, "building nullable union for field %q", f.Name)
			}
			t = union
		}
		field, ferr := avro.NewField(f.Name, t)
		if ferr != nil {
			return nil, errs.Wrap(errs.UnsupportedType, ferr, "building avro field %q", f.Name)
		}
		out = append(out, field)
	}
	return out, nil
}

func canonicalTypeToAvro(f *model.CanonicalSchema, namespace string) (avro.Schema, error) {
	switch f.Kind {
	case model.KindRecord:
		fields, err := canonicalFieldsToAvro(f.Fields, namespace)
		if err != nil {
			return nil, err
		}
		rec, rerr := avro.NewRecordSchema(f.Name, namespace, fields)
		if rerr != nil {
			return nil, errs.Wrap(errs.UnsupportedType, rerr, "building avro record schema %q", f.Name)
		}
		return rec, nil
	case model.KindArray:
		el := f.Element()
		itemType, err := canonicalTypeToAvro(el, namespace)
		if err != nil {
			return nil, err
		}
		if el.Nullable {
			union, uerr := avro.NewUnionSchema([]avro.Schema{&avro.NullSchema{}, itemType})
			if uerr != nil {
				return nil, errs.Wrap(errs.UnsupportedType, uerr, "building nullable array element union")
			}
			itemType = union
		}
		return avro.NewArraySchema(itemType), nil
	case model.KindMap:
		val := f.ValueField()
		valType, err := canonicalTypeToAvro(val, namespace)
		if err != nil {
			return nil, err
		}
		if val.Nullable {
			union, uerr := avro.NewUnionSchema([]avro.Schema{&avro.NullSchema{}, valType})
			if uerr != nil {
				return nil, errs.Wrap(errs.UnsupportedType, uerr, "building nullable map value union")
			}
			valType = union
		}
		return avro.NewMapSchema(valType), nil
	default:
		return canonicalPrimitiveToAvro(f, namespace)
	}
}

func canonicalPrimitiveToAvro(f *model.CanonicalSchema, namespace string) (avro.Schema, error) {
	switch f.Kind {
	case model.KindBool:
		return avro.NewPrimitiveSchema(avro.Boolean, nil), nil
	case model.KindInt:
		return avro.NewPrimitiveSchema(avro.Int, nil), nil
	case model.KindLong:
		return avro.NewPrimitiveSchema(avro.Long, nil), nil
	case model.KindFloat:
		return avro.NewPrimitiveSchema(avro.Float, nil), nil
	case model.KindDouble:
		return avro.NewPrimitiveSchema(avro.Double, nil), nil
	case model.KindString, model.KindEnum:
		return avro.NewPrimitiveSchema(avro.String, nil), nil
	case model.KindBytes:
		return avro.NewPrimitiveSchema(avro.Bytes, nil), nil
	case model.KindFixed:
		fixed, ferr := avro.NewFixedSchema(f.Name+"_fixed", namespace, f.Meta.FixedLength, nil)
		if ferr != nil {
			return nil, errs.Wrap(errs.UnsupportedType, ferr, "building avro fixed schema %q", f.Name)
		}
		return fixed, nil
	case model.KindDecimal:
		logical := avro.NewDecimalLogicalSchema(f.Meta.DecimalPrecision, f.Meta.DecimalScale)
		size := decimalFixedSize(f.Meta.DecimalPrecision)
		fixed, ferr := avro.NewFixedSchema(f.Name+"_decimal", namespace, size, logical)
		if ferr != nil {
			return nil, errs.Wrap(errs.UnsupportedType, ferr, "building avro decimal schema %q", f.Name)
		}
		return fixed, nil
	case model.KindDate:
		return avro.NewPrimitiveSchema(avro.Int, avro.NewPrimitiveLogicalSchema(avro.Date)), nil
	case model.KindTimestamp:
		if f.Meta.TimestampPrec == model.PrecisionMillis {
			return avro.NewPrimitiveSchema(avro.Long, avro.NewPrimitiveLogicalSchema(avro.TimestampMillis)), nil
		}
		return avro.NewPrimitiveSchema(avro.Long, avro.NewPrimitiveLogicalSchema(avro.TimestampMicros)), nil
	case model.KindTimestampNTZ:
		if f.Meta.TimestampPrec == model.PrecisionMillis {
			return avro.NewPrimitiveSchema(avro.Long, avro.NewPrimitiveLogicalSchema(avro.LocalTimestampMillis)), nil
		}
		return avro.NewPrimitiveSchema(avro.Long, avro.NewPrimitiveLogicalSchema(avro.LocalTimestampMicros)), nil
	default:
		return nil, errs.New(errs.UnsupportedType, "canonical kind %s has no avro analog", f.Kind)
	}
}

// decimalFixedSize picks the smallest fixed byte width that can hold
// precision decimal digits, matching Avro's fixed-backed decimal encoding.
func decimalFixedSize(precision int) int {
	switch {
	case precision <= 2:
		return 1
	case precision <= 4:
		return 2
	case precision <= 6:
		return 3
	case precision <= 9:
		return 4
	case precision <= 11:
		return 5
	case precision <= 14:
		return 6
	case precision <= 16:
		return 7
	case precision <= 18:
		return 8
	default:
		return 16
	}
}
