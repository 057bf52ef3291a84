package model

import (
	"fmt"
	"strings"
)

// TimePrecision distinguishes microsecond- from millisecond-resolution
// TIMESTAMP/TIMESTAMP_NTZ fields.
type TimePrecision int

const (
	PrecisionUnspecified TimePrecision = iota
	PrecisionMillis
	PrecisionMicros
)

// FieldMeta carries the logical-type metadata a bare Kind cannot express:
// decimal precision/scale, fixed-width byte length, and timestamp precision.
type FieldMeta struct {
	DecimalPrecision int
	DecimalScale     int
	FixedLength      int
	TimestampPrec    TimePrecision
}

// CanonicalSchema is a single node in a schema tree: either a primitive leaf
// or a composite (RECORD/ARRAY/MAP) with nested children. The zero value is
// not meaningful; build one with NewField/NewRecord/NewArray/NewMap.
type CanonicalSchema struct {
	Name     string
	FieldID  *int // nil when unassigned
	Kind     Kind
	Nullable bool
	Default  *Value
	Meta     FieldMeta
	Fields   []*CanonicalSchema // RECORD: named children; ARRAY: [element]; MAP: [key, value]

	// RecordKeys holds dotted paths identifying this schema's record-key
	// fields (e.g. Iceberg's identifier_field_ids). Only meaningful on a
	// root schema.
	RecordKeys []string
}

// NewLeaf builds a primitive field.
func NewLeaf(name string, kind Kind, nullable bool, fieldID *int) *CanonicalSchema {
	return &CanonicalSchema{Name: name, Kind: kind, Nullable: nullable, FieldID: fieldID}
}

// NewRecord builds a RECORD field with the given named children.
func NewRecord(name string, nullable bool, fieldID *int, fields ...*CanonicalSchema) *CanonicalSchema {
	return &CanonicalSchema{Name: name, Kind: KindRecord, Nullable: nullable, FieldID: fieldID, Fields: fields}
}

// NewArray builds an ARRAY field; element must be named "element".
func NewArray(name string, nullable bool, fieldID *int, element *CanonicalSchema) *CanonicalSchema {
	element.Name = "element"
	return &CanonicalSchema{Name: name, Kind: KindArray, Nullable: nullable, FieldID: fieldID, Fields: []*CanonicalSchema{element}}
}

// NewMap builds a MAP field; children must be named "key" and "value".
func NewMap(name string, nullable bool, fieldID *int, key, value *CanonicalSchema) *CanonicalSchema {
	key.Name = "key"
	value.Name = "value"
	return &CanonicalSchema{Name: name, Kind: KindMap, Nullable: nullable, FieldID: fieldID, Fields: []*CanonicalSchema{key, value}}
}

// Element returns an ARRAY schema's element child, or nil.
func (s *CanonicalSchema) Element() *CanonicalSchema {
	if s.Kind != KindArray || len(s.Fields) != 1 {
		return nil
	}
	return s.Fields[0]
}

// KeyField returns a MAP schema's key child, or nil.
func (s *CanonicalSchema) KeyField() *CanonicalSchema {
	if s.Kind != KindMap || len(s.Fields) != 2 {
		return nil
	}
	return s.Fields[0]
}

// ValueField returns a MAP schema's value child, or nil.
func (s *CanonicalSchema) ValueField() *CanonicalSchema {
	if s.Kind != KindMap || len(s.Fields) != 2 {
		return nil
	}
	return s.Fields[1]
}

// Validate checks the structural constraints required of
// composite nodes: MAP must have exactly key+value children, ARRAY must
// have exactly one element child, and those children must carry their own
// names ("key"/"value"/"element").
func (s *CanonicalSchema) Validate() error {
	return s.validate("")
}

func (s *CanonicalSchema) validate(path string) error {
	here := path
	if here == "" {
		here = s.Name
	} else {
		here = path + "." + s.Name
	}
	switch s.Kind {
	case KindArray:
		if len(s.Fields) != 1 || s.Fields[0].Name != "element" {
			return fmt.Errorf("model: %w: array %q must have exactly one child named element", errInvalidSchema, here)
		}
	case KindMap:
		if len(s.Fields) != 2 || s.Fields[0].Name != "key" || s.Fields[1].Name != "value" {
			return fmt.Errorf("model: %w: map %q must have exactly children key and value", errInvalidSchema, here)
		}
	case KindRecord:
		seen := map[string]bool{}
		for _, f := range s.Fields {
			if seen[f.Name] {
				return fmt.Errorf("model: %w: record %q has duplicate field %q", errInvalidSchema, here, f.Name)
			}
			seen[f.Name] = true
		}
	}
	for _, f := range s.Fields {
		if err := f.validate(here); err != nil {
			return err
		}
	}
	return nil
}

var errInvalidSchema = fmt.Errorf("invalid schema")

// FieldIndex walks the schema tree and returns a map from assigned field id
// to its dotted path, synthesizing ".element" for array elements and
// ".key_value.key" / ".key_value.value" for map children, the scheme
// requires. Fields without an assigned id are omitted.
func (s *CanonicalSchema) FieldIndex() map[int]string {
	idx := map[int]string{}
	s.walkPaths(s.Name, idx)
	return idx
}

func (s *CanonicalSchema) walkPaths(path string, idx map[int]string) {
	if s.FieldID != nil {
		idx[*s.FieldID] = path
	}
	switch s.Kind {
	case KindArray:
		if el := s.Element(); el != nil {
			el.walkPaths(path+".element", idx)
		}
	case KindMap:
		if k := s.KeyField(); k != nil {
			k.walkPaths(path+".key_value.key", idx)
		}
		if v := s.ValueField(); v != nil {
			v.walkPaths(path+".key_value.value", idx)
		}
	case KindRecord:
		for _, f := range s.Fields {
			f.walkPaths(path+"."+f.Name, idx)
		}
	}
}

// FindPath resolves a dotted path (using the same synthesized segments
// FieldIndex emits) to its field, accepting the synthesized segments
// every format uniformly.
func (s *CanonicalSchema) FindPath(path string) (*CanonicalSchema, bool) {
	segs := strings.Split(path, ".")
	if len(segs) == 0 || segs[0] != s.Name {
		return nil, false
	}
	cur := s
	for _, seg := range segs[1:] {
		switch seg {
		case "element":
			cur = cur.Element()
		case "key_value":
			continue
		case "key":
			cur = cur.KeyField()
		case "value":
			if cur.Kind == KindMap {
				cur = cur.ValueField()
			} else {
				return nil, false
			}
		default:
			found := false
			for _, f := range cur.Fields {
				if f.Name == seg {
					cur = f
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		}
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Equal performs structural equality: same name, kind, nullability, metadata
// and children, and either no field id on both sides or the same id on both.
func (s *CanonicalSchema) Equal(o *CanonicalSchema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Name != o.Name || s.Kind != o.Kind || s.Nullable != o.Nullable || s.Meta != o.Meta {
		return false
	}
	if (s.FieldID == nil) != (o.FieldID == nil) {
		return false
	}
	if s.FieldID != nil && *s.FieldID != *o.FieldID {
		return false
	}
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if !s.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

// EqualModuloFieldIDs is Equal but ignores field-id assignment entirely —
// the notion of equality a schema roundtrip property uses
// ("identity modulo id renaming").
func (s *CanonicalSchema) EqualModuloFieldIDs(o *CanonicalSchema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Name != o.Name || s.Kind != o.Kind || s.Nullable != o.Nullable || s.Meta != o.Meta {
		return false
	}
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if !s.Fields[i].EqualModuloFieldIDs(o.Fields[i]) {
			return false
		}
	}
	return true
}
