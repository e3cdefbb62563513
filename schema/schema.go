// Package schema defines the structural schema entities of a config-table
// container: field descriptors, sheet schemas, and table schemas, together
// with their structural validation and canonical binary form.
//
// Schemas are immutable after construction; the decode and encode engines
// treat them as read-only and never mutate them.
package schema

import (
	"fmt"
	"sort"

	"github.com/arloliu/conftab/errs"
)

// Field describes one column of a sheet.
type Field struct {
	// Name is the field name, unique within the owning sheet.
	Name string

	// ArrayLength is 0 for a scalar field, or n >= 1 for a fixed-size array
	// of n elements of Type.
	ArrayLength uint32

	// Type is the open type tag naming a registered value codec
	// ("int32", "string", ...) or a registered nested struct type.
	Type string

	// Index is the zero-based slot used to locate this field's encoded
	// value(s) inside a row payload. Unique within the owning sheet.
	Index uint32
}

// IsArray reports whether the field is a fixed-size array.
func (f Field) IsArray() bool {
	return f.ArrayLength > 0
}

// SheetMeta declares the lookup dimension of a sheet: Key names the field
// whose value identifies a row inside Category's namespace.
type SheetMeta struct {
	Category string
	Key      string
}

// SheetSchema describes one logical tabular dataset within a table.
type SheetSchema struct {
	Name   string
	Meta   SheetMeta
	Fields []Field
}

// TableSchema is a named grouping of related sheets.
type TableSchema struct {
	Name   string
	Sheets []SheetSchema
}

// Validate checks the sheet's structural invariants:
//   - field names are unique
//   - field slot indexes are unique
//   - Meta.Key names a declared field, and that field is a scalar
//     (array values cannot serve as lookup keys)
//
// The returned error wraps the matching sentinel from the errs package and
// carries the sheet and field identifiers.
func (s *SheetSchema) Validate() error {
	names := make(map[string]struct{}, len(s.Fields))
	indexes := make(map[uint32]string, len(s.Fields))

	for _, f := range s.Fields {
		if _, ok := names[f.Name]; ok {
			return fmt.Errorf("%w: sheet %q declares field %q twice",
				errs.ErrDuplicateFieldName, s.Name, f.Name)
		}
		names[f.Name] = struct{}{}

		if prev, ok := indexes[f.Index]; ok {
			return fmt.Errorf("%w: sheet %q slot %d used by fields %q and %q",
				errs.ErrDuplicateFieldIndex, s.Name, f.Index, prev, f.Name)
		}
		indexes[f.Index] = f.Name
	}

	if _, err := s.KeyField(); err != nil {
		return err
	}

	return nil
}

// KeyField resolves Meta.Key against the declared field list.
func (s *SheetSchema) KeyField() (Field, error) {
	for _, f := range s.Fields {
		if f.Name != s.Meta.Key {
			continue
		}
		if f.IsArray() {
			return Field{}, fmt.Errorf("%w: sheet %q key %q is an array field",
				errs.ErrKeyFieldMissing, s.Name, s.Meta.Key)
		}

		return f, nil
	}

	return Field{}, fmt.Errorf("%w: sheet %q key %q not declared",
		errs.ErrKeyFieldMissing, s.Name, s.Meta.Key)
}

// FieldsByIndex returns a copy of the field list ordered by ascending slot
// index. Row decoding and encoding both walk fields in this order.
func (s *SheetSchema) FieldsByIndex() []Field {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Index < fields[j].Index
	})

	return fields
}
