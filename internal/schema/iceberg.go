package schema

import (
	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// FromIceberg canonicalizes an Iceberg schema document. Iceberg always
// carries its own field ids, so they flow through unchanged.
func FromIceberg(doc IcebergSchemaDoc) (*model.CanonicalSchema, error) {
	fields := make([]*model.CanonicalSchema, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		cf, err := icebergFieldToCanonical(f)
		if err != nil {
			return nil, err
		}
		fields = append(fields, cf)
	}
	root := model.NewRecord("root", false, nil, fields...)
	root.RecordKeys = identifierFieldPaths(root, doc.IdentifierFieldIDs)
	if err := root.Validate(); err != nil {
		return nil, errs.Wrap(errs.InvalidSchema, err, "invalid iceberg schema")
	}
	return root, nil
}

func identifierFieldPaths(root *model.CanonicalSchema, ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	idx := root.FieldIndex()
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := idx[id]; ok {
			paths = append(paths, p)
		}
	}
	return paths
}

func icebergFieldToCanonical(f IcebergField) (*model.CanonicalSchema, error) {
	id := f.ID
	cs, err := icebergTypeToCanonical(f.Name, f.Type, &id)
	if err != nil {
		return nil, err
	}
	cs.Nullable = !f.Required
	return cs, nil
}

func icebergTypeToCanonical(name string, t IcebergType, fieldID *int) (*model.CanonicalSchema, error) {
	switch {
	case t.Struct != nil:
		children := make([]*model.CanonicalSchema, 0, len(t.Struct.Fields))
		for _, cf := range t.Struct.Fields {
			c, err := icebergFieldToCanonical(cf)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return model.NewRecord(name, true, fieldID, children...), nil
	case t.List != nil:
		eid := t.List.ElementID
		el, err := icebergTypeToCanonical("element", t.List.Element, &eid)
		if err != nil {
			return nil, err
		}
		el.Nullable = !t.List.ElementRequired
		return model.NewArray(name, true, fieldID, el), nil
	case t.Map != nil:
		kid := t.Map.KeyID
		key, err := icebergTypeToCanonical("key", t.Map.Key, &kid)
		if err != nil {
			return nil, err
		}
		vid := t.Map.ValueID
		val, err := icebergTypeToCanonical("value", t.Map.Value, &vid)
		if err != nil {
			return nil, err
		}
		val.Nullable = !t.Map.ValueRequired
		return model.NewMap(name, true, fieldID, key, val), nil
	default:
		return icebergPrimitiveToCanonical(name, t.Primitive, fieldID)
	}
}

func icebergPrimitiveToCanonical(name, primitive string, fieldID *int) (*model.CanonicalSchema, error) {
	if n, p, s, isFixed, isDecimal := parseFixedOrDecimal(primitive); isFixed || isDecimal {
		if isFixed {
			leaf := model.NewLeaf(name, model.KindFixed, true, fieldID)
			leaf.Meta.FixedLength = n
			return leaf, nil
		}
		leaf := model.NewLeaf(name, model.KindDecimal, true, fieldID)
		leaf.Meta.DecimalPrecision = p
		leaf.Meta.DecimalScale = s
		return leaf, nil
	}

	switch primitive {
	case "boolean":
		return model.NewLeaf(name, model.KindBool, true, fieldID), nil
	case "int":
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
		leaf := model.NewLeaf(name, model.KindTimestampNTZ, true, fieldID)
		leaf.Meta.TimestampPrec = model.PrecisionMicros
		return leaf, nil
	case "timestamptz":
		leaf := model.NewLeaf(name, model.KindTimestamp, true, fieldID)
		leaf.Meta.TimestampPrec = model.PrecisionMicros
		return leaf, nil
	case "string":
		return model.NewLeaf(name, model.KindString, true, fieldID), nil
	case "uuid":
		leaf := model.NewLeaf(name, model.KindFixed, true, fieldID)
		leaf.Meta.FixedLength = 16
		return leaf, nil
	case "binary":
		return model.NewLeaf(name, model.KindBytes, true, fieldID), nil
	default:
		return nil, errs.New(errs.UnsupportedType, "iceberg type %q has no canonical analog", primitive)
	}
}

// ToIceberg builds an Iceberg schema document from a canonical schema,
// assigning field ids with counter wherever the canonical schema doesn't
// already carry one. Composite children are assigned ids in a single
// left-to-right pass per level before recursing, as Iceberg's ordering
// convention requires.
func ToIceberg(s *model.CanonicalSchema, schemaID int, identifierPaths []string, counter *FieldIDCounter) (IcebergSchemaDoc, error) {
	if s.Kind != model.KindRecord {
		return IcebergSchemaDoc{}, errs.New(errs.InvalidSchema, "root schema must be a RECORD")
	}
	fields, err := canonicalFieldsToIceberg(s.Fields, counter)
	if err != nil {
		return IcebergSchemaDoc{}, err
	}
	doc := IcebergSchemaDoc{Type: "struct", SchemaID: schemaID, Fields: fields}
	if len(identifierPaths) > 0 {
		idx := map[string]int{}
		// Build a fresh schema with assigned ids to resolve paths against.
		rebuilt, err := FromIceberg(doc)
		if err != nil {
			return IcebergSchemaDoc{}, err
		}
		for id, p := range rebuilt.FieldIndex() {
			idx[p] = id
		}
		ids := make([]int, 0, len(identifierPaths))
		for _, p := range identifierPaths {
			id, ok := idx[p]
			if !ok {
				return IcebergSchemaDoc{}, errs.New(errs.SchemaMismatch, "record-key path %q not found in emitted schema", p)
			}
			ids = append(ids, id)
		}
		doc.IdentifierFieldIDs = ids
	}
	return doc, nil
}

// assignID returns the canonical schema's existing field id, or mints one
// from counter: if the source carries none of its own, ids are assigned
// by a monotonic counter.
func assignID(existing *int, counter *FieldIDCounter) int {
	if existing != nil {
		return *existing
	}
	return counter.Next()
}

func canonicalFieldsToIceberg(fields []*model.CanonicalSchema, counter *FieldIDCounter) ([]IcebergField, error) {
	// Iceberg ordering requirement: assign every field at this level an id
	// in a single left-to-right pass before recursing into any child.
	ids := make([]int, len(fields))
	for i, f := range fields {
		ids[i] = assignID(f.FieldID, counter)
	}
	out := make([]IcebergField, len(fields))
	for i, f := range fields {
		t, err := canonicalTypeToIceberg(f, counter)
		if err != nil {
			return nil, err
		}
		out[i] = IcebergField{ID: ids[i], Name: f.Name, Required: !f.Nullable, Type: t}
	}
	return out, nil
}

func canonicalTypeToIceberg(f *model.CanonicalSchema, counter *FieldIDCounter) (IcebergType, error) {
	switch f.Kind {
	case model.KindRecord:
		fields, err := canonicalFieldsToIceberg(f.Fields, counter)
		if err != nil {
			return IcebergType{}, err
		}
		return IcebergType{Struct: &IcebergStructType{Fields: fields}}, nil
	case model.KindArray:
		el := f.Element()
		elID := assignID(el.FieldID, counter)
		elType, err := canonicalTypeToIceberg(el, counter)
		if err != nil {
			return IcebergType{}, err
		}
		return IcebergType{List: &IcebergListType{ElementID: elID, ElementRequired: !el.Nullable, Element: elType}}, nil
	case model.KindMap:
		key := f.KeyField()
		val := f.ValueField()
		keyID := assignID(key.FieldID, counter)
		valID := assignID(val.FieldID, counter)
		keyType, err := canonicalTypeToIceberg(key, counter)
		if err != nil {
			return IcebergType{}, err
		}
		valType, err := canonicalTypeToIceberg(val, counter)
		if err != nil {
			return IcebergType{}, err
		}
		return IcebergType{Map: &IcebergMapType{KeyID: keyID, Key: keyType, ValueID: valID, Value: valType, ValueRequired: !val.Nullable}}, nil
	default:
		return canonicalPrimitiveToIceberg(f)
	}
}

func canonicalPrimitiveToIceberg(f *model.CanonicalSchema) (IcebergType, error) {
	switch f.Kind {
	case model.KindBool:
		return PrimitiveType("boolean"), nil
	case model.KindInt:
		return PrimitiveType("int"), nil
	case model.KindLong:
		return PrimitiveType("long"), nil
	case model.KindFloat:
		return PrimitiveType("float"), nil
	case model.KindDouble:
		return PrimitiveType("double"), nil
	case model.KindString, model.KindEnum:
		return PrimitiveType("string"), nil
	case model.KindBytes:
		return PrimitiveType("binary"), nil
	case model.KindFixed:
		if f.Meta.FixedLength == 16 {
			return PrimitiveType("uuid"), nil
		}
		return FixedType(f.Meta.FixedLength), nil
	case model.KindDecimal:
		return DecimalType(f.Meta.DecimalPrecision, f.Meta.DecimalScale), nil
	case model.KindDate:
		return PrimitiveType("date"), nil
	case model.KindTimestamp:
		return PrimitiveType("timestamptz"), nil
	case model.KindTimestampNTZ:
		return PrimitiveType("timestamp"), nil
	default:
		return IcebergType{}, errs.New(errs.UnsupportedType, "canonical kind %s has no iceberg analog", f.Kind)
	}
}
