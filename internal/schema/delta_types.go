package schema

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/tablemesh/tablemesh/internal/codec"
)

// DeltaSchemaDoc is the JSON shape Delta stores under "schemaString" in a
// metaData action: a Spark SQL struct type document.
type DeltaSchemaDoc struct {
	Type   string            `json:"type"`
	Fields []DeltaStructField `json:"fields"`
}

// DeltaStructField is one field of a Delta struct type. Metadata commonly
// carries column-mapping keys ("delta.columnMapping.id",
// "delta.columnMapping.physicalName") when the table has column mapping
// enabled.
type DeltaStructField struct {
	Name     string         `json:"name"`
	Type     DeltaType      `json:"type"`
	Nullable bool           `json:"nullable"`
	Metadata map[string]any `json:"metadata"`
}

func (f DeltaStructField) columnMappingID() (int, bool) {
	if f.Metadata == nil {
		return 0, false
	}
	v, ok := f.Metadata["delta.columnMapping.id"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// DeltaType is a node of a Delta/Spark type tree: a primitive (bare JSON
// string) or one of struct/array/map (JSON object). Like IcebergType, it
// implements json.Marshaler/Unmarshaler by hand for the same reason.
type DeltaType struct {
	Primitive string // "string","integer","long","short","byte","float","double","boolean","binary","date","timestamp","timestamp_ntz", "decimal(p,s)"
	Struct    *DeltaStructInner
	Array     *DeltaArrayType
	Map       *DeltaMapType
}

type DeltaStructInner struct {
	Fields []DeltaStructField
}

type DeltaArrayType struct {
	ElementType   DeltaType
	ContainsNull  bool
}

type DeltaMapType struct {
	KeyType           DeltaType
	ValueType         DeltaType
	ValueContainsNull bool
}

func DeltaPrimitive(name string) DeltaType { return DeltaType{Primitive: name} }

func DeltaDecimal(precision, scale int) DeltaType {
	return DeltaType{Primitive: fmt.Sprintf("decimal(%d,%d)", precision, scale)}
}

func (t DeltaType) MarshalJSON() ([]byte, error) {
	switch {
	case t.Primitive != "":
		return json.Marshal(t.Primitive)
	case t.Struct != nil:
		return json.Marshal(struct {
			Type   string             `json:"type"`
			Fields []DeltaStructField `json:"fields"`
		}{Type: "struct", Fields: t.Struct.Fields})
	case t.Array != nil:
		return json.Marshal(struct {
			Type         string    `json:"type"`
			ElementType  DeltaType `json:"elementType"`
			ContainsNull bool      `json:"containsNull"`
		}{Type: "array", ElementType: t.Array.ElementType, ContainsNull: t.Array.ContainsNull})
	case t.Map != nil:
		return json.Marshal(struct {
			Type              string    `json:"type"`
			KeyType           DeltaType `json:"keyType"`
			ValueType         DeltaType `json:"valueType"`
			ValueContainsNull bool      `json:"valueContainsNull"`
		}{Type: "map", KeyType: t.Map.KeyType, ValueType: t.Map.ValueType, ValueContainsNull: t.Map.ValueContainsNull})
	default:
		return nil, fmt.Errorf("schema: empty DeltaType")
	}
}

func (t *DeltaType) UnmarshalJSON(data []byte) error {
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
			Fields []DeltaStructField `json:"fields"`
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t.Struct = &DeltaStructInner{Fields: s.Fields}
	case "array":
		var a struct {
			ElementType  DeltaType `json:"elementType"`
			ContainsNull bool      `json:"containsNull"`
		}
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		t.Array = &DeltaArrayType{ElementType: a.ElementType, ContainsNull: a.ContainsNull}
	case "map":
		var m struct {
			KeyType           DeltaType `json:"keyType"`
			ValueType         DeltaType `json:"valueType"`
			ValueContainsNull bool      `json:"valueContainsNull"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		t.Map = &DeltaMapType{KeyType: m.KeyType, ValueType: m.ValueType, ValueContainsNull: m.ValueContainsNull}
	default:
		return fmt.Errorf("schema: unrecognized delta type object %q", head.Type)
	}
	return nil
}

// parseDeltaDecimal recognizes the "decimal(p,s)" primitive spelling.
func parseDeltaDecimal(primitive string) (precision, scale int, ok bool) {
	if !strings.HasPrefix(primitive, "decimal(") || !strings.HasSuffix(primitive, ")") {
		return 0, 0, false
	}
	inner := primitive[len("decimal(") : len(primitive)-1]
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	p, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	s, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return p, s, true
}
