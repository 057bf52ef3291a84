package schema

import (
	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// FromDelta canonicalizes a Delta schemaString document. Delta carries no
// field ids of its own unless column mapping is enabled, in which case
// "delta.columnMapping.id" on each field is reused; otherwise counter mints
// one. Delta has no schema-level notion of record keys, so the result's
// RecordKeys is always empty — callers that need Hudi/Iceberg record keys
// populate them from table configuration, not from the schema document.
func FromDelta(doc DeltaSchemaDoc, counter *FieldIDCounter) (*model.CanonicalSchema, error) {
	fields, err := deltaFieldsToCanonical(doc.Fields, counter)
	if err != nil {
		return nil, err
	}
	root := model.NewRecord("root", false, nil, fields...)
	if err := root.Validate(); err != nil {
		return nil, errs.Wrap(errs.InvalidSchema, err, "invalid delta schema")
	}
	return root, nil
}

func deltaFieldsToCanonical(fields []DeltaStructField, counter *FieldIDCounter) ([]*model.CanonicalSchema, error) {
	out := make([]*model.CanonicalSchema, 0, len(fields))
	for _, f := range fields {
		id, ok := f.columnMappingID()
		if !ok {
			id = counter.Next()
		}
		cs, err := deltaTypeToCanonical(f.Name, f.Type, &id, counter)
		if err != nil {
			return nil, err
		}
		cs.Nullable = f.Nullable
		out = append(out, cs)
	}
	return out, nil
}

func deltaTypeToCanonical(name string, t DeltaType, fieldID *int, counter *FieldIDCounter) (*model.CanonicalSchema, error) {
	switch {
	case t.Struct != nil:
		children, err := deltaFieldsToCanonical(t.Struct.Fields, counter)
		if err != nil {
			return nil, err
		}
		return model.NewRecord(name, true, fieldID, children...), nil
	case t.Array != nil:
		elID := counter.Next()
		el, err := deltaTypeToCanonical("element", t.Array.ElementType, &elID, counter)
		if err != nil {
			return nil, err
		}
		el.Nullable = t.Array.ContainsNull
		return model.NewArray(name, true, fieldID, el), nil
	case t.Map != nil:
		keyID := counter.Next()
		key, err := deltaTypeToCanonical("key", t.Map.KeyType, &keyID, counter)
		if err != nil {
			return nil, err
		}
		valID := counter.Next()
		val, err := deltaTypeToCanonical("value", t.Map.ValueType, &valID, counter)
		if err != nil {
			return nil, err
		}
		val.Nullable = t.Map.ValueContainsNull
		return model.NewMap(name, true, fieldID, key, val), nil
	default:
		return deltaPrimitiveToCanonical(name, t.Primitive, fieldID)
	}
}

func deltaPrimitiveToCanonical(name, primitive string, fieldID *int) (*model.CanonicalSchema, error) {
	if p, s, ok := parseDeltaDecimal(primitive); ok {
		leaf := model.NewLeaf(name, model.KindDecimal, true, fieldID)
		leaf.Meta.DecimalPrecision = p
		leaf.Meta.DecimalScale = s
		return leaf, nil
	}

	switch primitive {
	case "boolean":
		return model.NewLeaf(name, model.KindBool, true, fieldID), nil
	case "byte", "short", "integer":
		return model.NewLeaf(name, model.KindInt, true, fieldID), nil
	case "long":
		return model.NewLeaf(name, model.KindLong, true, fieldID), nil
	case "float":
		return model.NewLeaf(name, model.KindFloat, true, fieldID), nil
	case "double":
		return model.NewLeaf(name, model.KindDouble, true, fieldID), nil
	case "date":
		return model.NewLeaf(name, model.KindDate, true, fieldID), nil
	case "timestamp":
		leaf := model.NewLeaf(name, model.KindTimestamp, true, fieldID)
		leaf.Meta.TimestampPrec = model.PrecisionMicros
		return leaf, nil
	case "timestamp_ntz":
		leaf := model.NewLeaf(name, model.KindTimestampNTZ, true, fieldID)
		leaf.Meta.TimestampPrec = model.PrecisionMicros
		return leaf, nil
	case "string":
		return model.NewLeaf(name, model.KindString, true, fieldID), nil
	case "binary":
		return model.NewLeaf(name, model.KindBytes, true, fieldID), nil
	default:
		return nil, errs.New(errs.UnsupportedType, "delta type %q has no canonical analog", primitive)
	}
}

// ToDelta builds a Delta schemaString document from a canonical schema. When
// columnMapping is true every emitted field carries its canonical field id
// (minting one via counter if the canonical schema has none) under
// "delta.columnMapping.id"; when false no ids are emitted, matching a Delta
// table with column mapping disabled.
func ToDelta(s *model.CanonicalSchema, columnMapping bool, counter *FieldIDCounter) (DeltaSchemaDoc, error) {
	if s.Kind != model.KindRecord {
		return DeltaSchemaDoc{}, errs.New(errs.InvalidSchema, "root schema must be a RECORD")
	}
	fields, err := canonicalFieldsToDelta(s.Fields, columnMapping, counter)
	if err != nil {
		return DeltaSchemaDoc{}, err
	}
	return DeltaSchemaDoc{Type: "struct", Fields: fields}, nil
}

func canonicalFieldsToDelta(fields []*model.CanonicalSchema, columnMapping bool, counter *FieldIDCounter) ([]DeltaStructField, error) {
	out := make([]DeltaStructField, 0, len(fields))
	for _, f := range fields {
		t, err := canonicalTypeToDelta(f, columnMapping, counter)
		if err != nil {
			return nil, err
		}
		field := DeltaStructField{Name: f.Name, Type: t, Nullable: f.Nullable}
		if columnMapping {
			field.Metadata = map[string]any{
				"delta.columnMapping.id":           assignID(f.FieldID, counter),
				"delta.columnMapping.physicalName": "col-" + f.Name,
			}
		}
		out = append(out, field)
	}
	return out, nil
}

func canonicalTypeToDelta(f *model.CanonicalSchema, columnMapping bool, counter *FieldIDCounter) (DeltaType, error) {
	switch f.Kind {
	case model.KindRecord:
		fields, err := canonicalFieldsToDelta(f.Fields, columnMapping, counter)
		if err != nil {
			return DeltaType{}, err
		}
		return DeltaType{Struct: &DeltaStructInner{Fields: fields}}, nil
	case model.KindArray:
		el := f.Element()
		elType, err := canonicalTypeToDelta(el, columnMapping, counter)
		if err != nil {
			return DeltaType{}, err
		}
		return DeltaType{Array: &DeltaArrayType{ElementType: elType, ContainsNull: el.Nullable}}, nil
	case model.KindMap:
		key := f.KeyField()
		val := f.ValueField()
		keyType, err := canonicalTypeToDelta(key, columnMapping, counter)
		if err != nil {
			return DeltaType{}, err
		}
		valType, err := canonicalTypeToDelta(val, columnMapping, counter)
		if err != nil {
			return DeltaType{}, err
		}
		return DeltaType{Map: &DeltaMapType{KeyType: keyType, ValueType: valType, ValueContainsNull: val.Nullable}}, nil
	default:
		return canonicalPrimitiveToDelta(f)
	}
}

func canonicalPrimitiveToDelta(f *model.CanonicalSchema) (DeltaType, error) {
	switch f.Kind {
	case model.KindBool:
		return DeltaPrimitive("boolean"), nil
	case model.KindInt:
		return DeltaPrimitive("integer"), nil
	case model.KindLong:
		return DeltaPrimitive("long"), nil
	case model.KindFloat:
		return DeltaPrimitive("float"), nil
	case model.KindDouble:
		return DeltaPrimitive("double"), nil
	case model.KindString, model.KindEnum:
		return DeltaPrimitive("string"), nil
	case model.KindBytes, model.KindFixed:
		return DeltaPrimitive("binary"), nil
	case model.KindDecimal:
		return DeltaDecimal(f.Meta.DecimalPrecision, f.Meta.DecimalScale), nil
	case model.KindDate:
		return DeltaPrimitive("date"), nil
	case model.KindTimestamp:
		return DeltaPrimitive("timestamp"), nil
	case model.KindTimestampNTZ:
		return DeltaPrimitive("timestamp_ntz"), nil
	default:
		return DeltaType{}, errs.New(errs.UnsupportedType, "canonical kind %s has no delta analog", f.Kind)
	}
}
