package rowcodec

import (
	"fmt"
	"sort"

	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/schema"
	"google.golang.org/protobuf/encoding/protowire"
)

// Plan is a compiled field list: fields ordered by ascending slot index with
// their codecs resolved. Compiling once per sheet keeps registry lookups and
// ordering out of the per-row path.
//
// A Plan is immutable after construction and safe for concurrent use.
type Plan struct {
	fields []planField
}

type planField struct {
	schema.Field
	codec Codec
}

// NewPlan compiles fields against the registry.
//
// It fails with ErrDuplicateFieldIndex or ErrDuplicateFieldName if the field
// list violates slot or name uniqueness, and with ErrUnknownFieldType if any
// field names a type the registry does not know.
func NewPlan(reg *Registry, fields []schema.Field) (*Plan, error) {
	p := &Plan{fields: make([]planField, 0, len(fields))}

	names := make(map[string]struct{}, len(fields))
	indexes := make(map[uint32]string, len(fields))
	for _, f := range fields {
		if _, ok := names[f.Name]; ok {
			return nil, fmt.Errorf("%w: field %q declared twice", errs.ErrDuplicateFieldName, f.Name)
		}
		names[f.Name] = struct{}{}

		if prev, ok := indexes[f.Index]; ok {
			return nil, fmt.Errorf("%w: slot %d used by fields %q and %q",
				errs.ErrDuplicateFieldIndex, f.Index, prev, f.Name)
		}
		indexes[f.Index] = f.Name

		codec, ok := reg.Lookup(f.Type)
		if !ok {
			return nil, fmt.Errorf("%w: field %q declares type %q", errs.ErrUnknownFieldType, f.Name, f.Type)
		}

		p.fields = append(p.fields, planField{Field: f, codec: codec})
	}

	sort.Slice(p.fields, func(i, j int) bool {
		return p.fields[i].Index < p.fields[j].Index
	})

	return p, nil
}

// Fields returns the plan's fields in slot order. The returned slice is
// shared and must not be mutated.
func (p *Plan) Fields() []schema.Field {
	out := make([]schema.Field, len(p.fields))
	for i, pf := range p.fields {
		out[i] = pf.Field
	}

	return out
}

// Len returns the number of fields in the plan.
func (p *Plan) Len() int {
	return len(p.fields)
}

// DecodeRecord decodes one raw row into its typed values, ordered by
// ascending slot index (the same order as Fields).
//
// Arity is strict in both directions: a scalar slot must carry exactly one
// occurrence and an array slot exactly ArrayLength occurrences. Fewer fails
// with ErrTruncatedRecord, more with ErrExcessValues. Occurrences at slots
// the plan does not declare are ignored.
func (p *Plan) DecodeRecord(rec []byte) ([]any, error) {
	slots, err := ScanRecord(rec)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(p.fields))
	for i, pf := range p.fields {
		occ := slots[pf.Index]

		if pf.IsArray() {
			want := int(pf.ArrayLength)
			if len(occ) < want {
				return nil, fmt.Errorf("%w: field %q wants %d elements at slot %d, record has %d",
					errs.ErrTruncatedRecord, pf.Name, want, pf.Index, len(occ))
			}
			if len(occ) > want {
				return nil, fmt.Errorf("%w: field %q wants %d elements at slot %d, record has %d",
					errs.ErrExcessValues, pf.Name, want, pf.Index, len(occ))
			}

			arr := make([]any, want)
			for j, val := range occ {
				decoded, err := pf.codec.Decode(val)
				if err != nil {
					return nil, fmt.Errorf("field %q element %d: %w", pf.Name, j, err)
				}
				arr[j] = decoded
			}
			values[i] = arr

			continue
		}

		if len(occ) == 0 {
			return nil, fmt.Errorf("%w: field %q has no value at slot %d",
				errs.ErrTruncatedRecord, pf.Name, pf.Index)
		}
		if len(occ) > 1 {
			return nil, fmt.Errorf("%w: scalar field %q has %d values at slot %d",
				errs.ErrExcessValues, pf.Name, len(occ), pf.Index)
		}

		decoded, err := pf.codec.Decode(occ[0])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", pf.Name, err)
		}
		values[i] = decoded
	}

	return values, nil
}

// DecodeRecordMap decodes one raw row into a field-name keyed map.
func (p *Plan) DecodeRecordMap(rec []byte) (map[string]any, error) {
	values, err := p.DecodeRecord(rec)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(values))
	for i, pf := range p.fields {
		out[pf.Name] = values[i]
	}

	return out, nil
}

// AppendRecord encodes one row, supplied as a field-name keyed map, and
// appends the wire bytes to dst. Slots are written in ascending index order,
// giving a canonical encoding for equal rows.
//
// A missing field fails with ErrTruncatedRecord; a key that names no declared
// field fails with ErrExcessValues; an array value whose length differs from
// ArrayLength fails with the matching arity error.
func (p *Plan) AppendRecord(dst []byte, values map[string]any) ([]byte, error) {
	for _, pf := range p.fields {
		v, ok := values[pf.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no value for field %q", errs.ErrTruncatedRecord, pf.Name)
		}

		num := protowire.Number(pf.Index + 1)

		if pf.IsArray() {
			arr, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("field %q: %w", pf.Name, typeErr("[]any", v))
			}
			want := int(pf.ArrayLength)
			if len(arr) < want {
				return nil, fmt.Errorf("%w: field %q wants %d elements, got %d",
					errs.ErrTruncatedRecord, pf.Name, want, len(arr))
			}
			if len(arr) > want {
				return nil, fmt.Errorf("%w: field %q wants %d elements, got %d",
					errs.ErrExcessValues, pf.Name, want, len(arr))
			}

			for j, elem := range arr {
				encoded, err := pf.codec.Append(dst, num, elem)
				if err != nil {
					return nil, fmt.Errorf("field %q element %d: %w", pf.Name, j, err)
				}
				dst = encoded
			}

			continue
		}

		encoded, err := pf.codec.Append(dst, num, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", pf.Name, err)
		}
		dst = encoded
	}

	if len(values) > len(p.fields) {
		for name := range values {
			if !p.declares(name) {
				return nil, fmt.Errorf("%w: value for undeclared field %q", errs.ErrExcessValues, name)
			}
		}
	}

	return dst, nil
}

func (p *Plan) declares(name string) bool {
	for _, pf := range p.fields {
		if pf.Name == name {
			return true
		}
	}

	return false
}
