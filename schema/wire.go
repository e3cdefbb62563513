package schema

import (
	"fmt"

	"github.com/arloliu/conftab/errs"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for the schema messages. These are part of the artifact
// contract and must never be renumbered.
const (
	tableFieldName   = 1 // TableSchema.name (string)
	tableFieldSheets = 2 // TableSchema.sheets (repeated message)

	sheetFieldName   = 1 // SheetSchema.name (string)
	sheetFieldMeta   = 2 // SheetSchema.meta (message)
	sheetFieldFields = 3 // SheetSchema.fields (repeated message)

	metaFieldCategory = 1 // SheetMeta.category (string)
	metaFieldKey      = 2 // SheetMeta.key (string)

	fieldFieldName        = 1 // Field.field_name (string)
	fieldFieldArrayLength = 2 // Field.array_length (varint)
	fieldFieldType        = 3 // Field.pb_type (string)
	fieldFieldIndex       = 4 // Field.pb_index (varint)
)

// AppendTableSchema appends the wire encoding of t to dst and returns the
// extended buffer. Fields are emitted in ascending field-number order and
// slices in declared order, so the output is canonical: equal schemas always
// produce equal bytes.
func AppendTableSchema(dst []byte, t *TableSchema) []byte {
	if t.Name != "" {
		dst = protowire.AppendTag(dst, tableFieldName, protowire.BytesType)
		dst = protowire.AppendString(dst, t.Name)
	}
	for i := range t.Sheets {
		dst = protowire.AppendTag(dst, tableFieldSheets, protowire.BytesType)
		dst = protowire.AppendBytes(dst, AppendSheetSchema(nil, &t.Sheets[i]))
	}

	return dst
}

// AppendSheetSchema appends the wire encoding of s to dst.
func AppendSheetSchema(dst []byte, s *SheetSchema) []byte {
	if s.Name != "" {
		dst = protowire.AppendTag(dst, sheetFieldName, protowire.BytesType)
		dst = protowire.AppendString(dst, s.Name)
	}
	if s.Meta != (SheetMeta{}) {
		dst = protowire.AppendTag(dst, sheetFieldMeta, protowire.BytesType)
		dst = protowire.AppendBytes(dst, appendSheetMeta(nil, s.Meta))
	}
	for _, f := range s.Fields {
		dst = protowire.AppendTag(dst, sheetFieldFields, protowire.BytesType)
		dst = protowire.AppendBytes(dst, appendField(nil, f))
	}

	return dst
}

func appendSheetMeta(dst []byte, m SheetMeta) []byte {
	if m.Category != "" {
		dst = protowire.AppendTag(dst, metaFieldCategory, protowire.BytesType)
		dst = protowire.AppendString(dst, m.Category)
	}
	if m.Key != "" {
		dst = protowire.AppendTag(dst, metaFieldKey, protowire.BytesType)
		dst = protowire.AppendString(dst, m.Key)
	}

	return dst
}

func appendField(dst []byte, f Field) []byte {
	if f.Name != "" {
		dst = protowire.AppendTag(dst, fieldFieldName, protowire.BytesType)
		dst = protowire.AppendString(dst, f.Name)
	}
	if f.ArrayLength != 0 {
		dst = protowire.AppendTag(dst, fieldFieldArrayLength, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(f.ArrayLength))
	}
	if f.Type != "" {
		dst = protowire.AppendTag(dst, fieldFieldType, protowire.BytesType)
		dst = protowire.AppendString(dst, f.Type)
	}
	if f.Index != 0 {
		dst = protowire.AppendTag(dst, fieldFieldIndex, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(f.Index))
	}

	return dst
}

// Canonical returns the canonical serialization of a schemas list: every
// table schema wire-encoded and length-prefixed, concatenated in order.
// This is the digest input for the container header hash.
func Canonical(schemas []TableSchema) []byte {
	var dst []byte
	for i := range schemas {
		dst = protowire.AppendBytes(dst, AppendTableSchema(nil, &schemas[i]))
	}

	return dst
}

// ParseTableSchema parses one wire-encoded table schema.
// Unknown fields are skipped, matching protobuf semantics.
func ParseTableSchema(b []byte) (TableSchema, error) {
	var t TableSchema
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return t, wireError("table schema", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == tableFieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return t, wireError("table schema name", protowire.ParseError(n))
			}
			t.Name = v
			b = b[n:]
		case num == tableFieldSheets && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return t, wireError("table schema sheets", protowire.ParseError(n))
			}
			sheet, err := ParseSheetSchema(v)
			if err != nil {
				return t, err
			}
			t.Sheets = append(t.Sheets, sheet)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return t, wireError("table schema", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return t, nil
}

// ParseSheetSchema parses one wire-encoded sheet schema.
func ParseSheetSchema(b []byte) (SheetSchema, error) {
	var s SheetSchema
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, wireError("sheet schema", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == sheetFieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return s, wireError("sheet schema name", protowire.ParseError(n))
			}
			s.Name = v
			b = b[n:]
		case num == sheetFieldMeta && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return s, wireError("sheet schema meta", protowire.ParseError(n))
			}
			meta, err := parseSheetMeta(v)
			if err != nil {
				return s, err
			}
			s.Meta = meta
			b = b[n:]
		case num == sheetFieldFields && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return s, wireError("sheet schema fields", protowire.ParseError(n))
			}
			field, err := parseField(v)
			if err != nil {
				return s, err
			}
			s.Fields = append(s.Fields, field)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return s, wireError("sheet schema", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return s, nil
}

func parseSheetMeta(b []byte) (SheetMeta, error) {
	var m SheetMeta
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, wireError("sheet meta", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == metaFieldCategory && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, wireError("sheet meta category", protowire.ParseError(n))
			}
			m.Category = v
			b = b[n:]
		case num == metaFieldKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, wireError("sheet meta key", protowire.ParseError(n))
			}
			m.Key = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return m, wireError("sheet meta", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return m, nil
}

func parseField(b []byte) (Field, error) {
	var f Field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, wireError("field descriptor", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldFieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return f, wireError("field name", protowire.ParseError(n))
			}
			f.Name = v
			b = b[n:]
		case num == fieldFieldArrayLength && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, wireError("field array length", protowire.ParseError(n))
			}
			f.ArrayLength = uint32(v)
			b = b[n:]
		case num == fieldFieldType && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return f, wireError("field type", protowire.ParseError(n))
			}
			f.Type = v
			b = b[n:]
		case num == fieldFieldIndex && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, wireError("field index", protowire.ParseError(n))
			}
			f.Index = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, wireError("field descriptor", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return f, nil
}

func wireError(what string, err error) error {
	return fmt.Errorf("%w: malformed %s: %v", errs.ErrInvalidContainer, what, err)
}
