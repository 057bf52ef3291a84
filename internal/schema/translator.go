package schema

import (
	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

// ResolveRecordKeys checks that every dotted path in keys names an actual
// field of s (leaf or composite), returning a SchemaMismatch error naming the first path
// that doesn't resolve. Hudi and Iceberg both supply record keys out of
// band from the schema document itself (table config / identifier-field-ids
// respectively), so every translator that consumes them needs this check
// before trusting the canonical schema's RecordKeys.
func ResolveRecordKeys(s *model.CanonicalSchema, keys []string) error {
	for _, k := range keys {
		if _, ok := s.FindPath(k); !ok {
			return errs.New(errs.SchemaMismatch, "record-key path %q not present in schema", k)
		}
	}
	return nil
}
