// Package table implements the decode and encode engines for config-table
// containers: schema-indexed row decoding with header-hash verification, the
// category/key lookup index, and the inverse assembly of typed rows back into
// a container artifact.
package table

import (
	"github.com/arloliu/conftab/schema"
)

// SheetKey identifies one (table, sheet) pair within a container.
type SheetKey struct {
	Table string
	Sheet string
}

// Row is one decoded, typed record. Values are ordered by ascending slot
// index and are independent of the source container: the caller owns them
// after decode and may release the container.
type Row struct {
	fields []schema.Field
	values []any
}

// Value returns the decoded value of the named field.
// Array fields yield []any, nested struct fields yield map[string]any.
func (r *Row) Value(name string) (any, bool) {
	for i, f := range r.fields {
		if f.Name == name {
			return r.values[i], true
		}
	}

	return nil, false
}

// Values returns the row's decoded values in slot order.
// The returned slice is shared and must not be mutated.
func (r *Row) Values() []any {
	return r.values
}

// Fields returns the row's field descriptors in slot order.
// The returned slice is shared and must not be mutated.
func (r *Row) Fields() []schema.Field {
	return r.fields
}

// Map returns the row as a field-name keyed map, the shape accepted by the
// encoder. Re-encoding the map reproduces the row byte-for-byte.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for i, f := range r.fields {
		out[f.Name] = r.values[i]
	}

	return out
}

// Sheet is one decoded tabular dataset: the resolved schema plus its rows in
// the exact order they appeared in the sheet's data block.
type Sheet struct {
	schema schema.SheetSchema
	rows   []Row
}

// Schema returns the sheet's resolved schema.
func (s *Sheet) Schema() schema.SheetSchema {
	return s.schema
}

// Rows returns the decoded rows in their original order.
// The returned slice is shared and must not be mutated.
func (s *Sheet) Rows() []Row {
	return s.rows
}

// Len returns the number of rows in the sheet.
func (s *Sheet) Len() int {
	return len(s.rows)
}

// Warning records a non-fatal condition observed while building the lookup
// index, such as a duplicate key resolved by last-write-wins. The engine
// never logs; diagnostics are returned as data.
type Warning struct {
	Table    string
	Sheet    string
	Category string
	Key      any
	Message  string
}

// Set is the result of decoding a container: every sheet keyed by
// (table, sheet), plus the category/key point-lookup index declared by each
// sheet's metadata.
//
// A Set is immutable after decode and safe for concurrent reads.
type Set struct {
	sheets   map[SheetKey]*Sheet
	order    []SheetKey
	lookup   map[string]map[any]*Row
	warnings []Warning
}

// Sheet returns the decoded sheet for a (table, sheet) pair.
func (s *Set) Sheet(table, sheet string) (*Sheet, bool) {
	sh, ok := s.sheets[SheetKey{Table: table, Sheet: sheet}]
	return sh, ok
}

// Keys returns the (table, sheet) pairs in the order their data blocks
// appeared in the container.
func (s *Set) Keys() []SheetKey {
	out := make([]SheetKey, len(s.order))
	copy(out, s.order)

	return out
}

// Lookup resolves a row by the key value declared in its sheet's metadata,
// scoped to the category namespace. When several sheets share a category,
// they share one namespace.
func (s *Set) Lookup(category string, key any) (*Row, bool) {
	byKey, ok := s.lookup[category]
	if !ok {
		return nil, false
	}
	row, ok := byKey[key]

	return row, ok
}

// Warnings returns the non-fatal conditions recorded during decode, in
// deterministic container order.
func (s *Set) Warnings() []Warning {
	return s.warnings
}
