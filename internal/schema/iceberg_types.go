package schema

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/tablemesh/tablemesh/internal/codec"
)

// IcebergSchemaDoc is the JSON document shape of an Iceberg table schema, as
// written to table metadata.json ("schemas" entries).
type IcebergSchemaDoc struct {
	Type               string          `json:"type"`
	SchemaID           int             `json:"schema-id"`
	IdentifierFieldIDs []int           `json:"identifier-field-ids,omitempty"`
	Fields             []IcebergField  `json:"fields"`
}

// IcebergField is one field of an Iceberg struct type.
type IcebergField struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Required bool        `json:"required"`
	Type     IcebergType `json:"type"`
	Doc      string      `json:"doc,omitempty"`
}

// IcebergType is a node of an Iceberg type tree: a primitive (encoded as a
// bare JSON string) or one of struct/list/map (encoded as a JSON object).
// It implements json.Marshaler/Unmarshaler by hand because Iceberg's type
// encoding is polymorphic on the JSON value's own shape.
type IcebergType struct {
	Primitive string // non-empty for primitive leaves: "boolean","int","long","float","double","date","time","timestamp","timestamptz","string","uuid","binary", "fixed[n]", "decimal(p,s)"
	Struct    *IcebergStructType
	List      *IcebergListType
	Map       *IcebergMapType
}

type IcebergStructType struct {
	Fields []IcebergField
}

type IcebergListType struct {
	ElementID       int
	ElementRequired bool
	Element         IcebergType
}

type IcebergMapType struct {
	KeyID         int
	Key           IcebergType
	ValueID       int
	ValueRequired bool
	Value         IcebergType
}

func PrimitiveType(name string) IcebergType { return IcebergType{Primitive: name} }

func FixedType(length int) IcebergType {
	return IcebergType{Primitive: fmt.Sprintf("fixed[%d]", length)}
}

func DecimalType(precision, scale int) IcebergType {
	return IcebergType{Primitive: fmt.Sprintf("decimal(%d,%d)", precision, scale)}
}

func (t IcebergType) IsPrimitive() bool { return t.Primitive != "" }

func (t IcebergType) MarshalJSON() ([]byte, error) {
	switch {
	case t.Primitive != "":
		return json.Marshal(t.Primitive)
	case t.Struct != nil:
		return json.Marshal(struct {
			Type   string         `json:"type"`
			Fields []IcebergField `json:"fields"`
		}{Type: "struct", Fields: t.Struct.Fields})
	case t.List != nil:
		return json.Marshal(struct {
			Type            string      `json:"type"`
			ElementID       int         `json:"element-id"`
			Element         IcebergType `json:"element"`
			ElementRequired bool        `json:"element-required"`
		}{Type: "list", ElementID: t.List.ElementID, Element: t.List.Element, ElementRequired: t.List.ElementRequired})
	case t.Map != nil:
		return json.Marshal(struct {
			Type          string      `json:"type"`
			KeyID         int         `json:"key-id"`
			Key           IcebergType `json:"key"`
			ValueID       int         `json:"value-id"`
			Value         IcebergType `json:"value"`
			ValueRequired bool        `json:"value-required"`
		}{Type: "map", KeyID: t.Map.KeyID, Key: t.Map.Key, ValueID: t.Map.ValueID, Value: t.Map.Value, ValueRequired: t.Map.ValueRequired})
	default:
		return nil, fmt.Errorf("schema: empty IcebergType")
	}
}

func (t *IcebergType) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var prim string
		if err := json.Unmarshal(data, &prim); err != nil {
			return err
		}
		t.Primitive = prim
		return nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Type {
	case "struct":
		var s struct {
			Fields []IcebergField `json:"fields"`
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t.Struct = &IcebergStructType{Fields: s.Fields}
	case "list":
		var l struct {
			ElementID       int         `json:"element-id"`
			Element         IcebergType `json:"element"`
			ElementRequired bool        `json:"element-required"`
		}
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		t.List = &IcebergListType{ElementID: l.ElementID, Element: l.Element, ElementRequired: l.ElementRequired}
	case "map":
		var m struct {
			KeyID         int         `json:"key-id"`
			Key           IcebergType `json:"key"`
			ValueID       int         `json:"value-id"`
			Value         IcebergType `json:"value"`
			ValueRequired bool        `json:"value-required"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		t.Map = &IcebergMapType{KeyID: m.KeyID, Key: m.Key, ValueID: m.ValueID, Value: m.Value, ValueRequired: m.ValueRequired}
	default:
		return fmt.Errorf("schema: unrecognized iceberg type object %q", head.Type)
	}
	return nil
}

// parseFixedOrDecimal recognizes "fixed[n]" and "decimal(p,s)" primitive
// spellings, returning ok=false for any other primitive name.
func parseFixedOrDecimal(primitive string) (length, precision, scale int, isFixed, isDecimal bool) {
	if strings.HasPrefix(primitive, "fixed[") && strings.HasSuffix(primitive, "]") {
		n, err := strconv.Atoi(primitive[len("fixed[") : len(primitive)-1])
		if err == nil {
			return n, 0, 0, true, false
		}
	}
	if strings.HasPrefix(primitive, "decimal(") && strings.HasSuffix(primitive, ")") {
		inner := primitive[len("decimal(") : len(primitive)-1]
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) == 2 {
			p, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			s, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 == nil && err2 == nil {
				return 0, p, s, false, true
			}
		}
	}
	return 0, 0, 0, false, false
}
