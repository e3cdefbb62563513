package rowcodec

import (
	"fmt"

	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/schema"
	"google.golang.org/protobuf/encoding/protowire"
)

// StructCodec codes a named nested struct type: a length-delimited sub-record
// whose fields follow their own descriptor list. Values decode to
// map[string]any keyed by field name, and encode from the same shape.
//
// Register one under the producer's struct type name to let sheet fields
// declare it like any scalar:
//
//	reg := rowcodec.NewRegistry()
//	pos, _ := rowcodec.NewStructCodec(reg, []schema.Field{
//	    {Name: "x", Type: "int32", Index: 0},
//	    {Name: "y", Type: "int32", Index: 1},
//	})
//	reg.Register("Position", pos)
type StructCodec struct {
	plan *Plan
}

var _ Codec = (*StructCodec)(nil)

// NewStructCodec compiles the nested field list against reg.
//
// The registry is consulted at construction, so nested struct types must be
// registered innermost first.
func NewStructCodec(reg *Registry, fields []schema.Field) (*StructCodec, error) {
	plan, err := NewPlan(reg, fields)
	if err != nil {
		return nil, err
	}

	return &StructCodec{plan: plan}, nil
}

// Append encodes v, a map[string]any, as a length-delimited sub-record.
func (c *StructCodec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	mv, ok := v.(map[string]any)
	if !ok {
		return nil, typeErr("map[string]any", v)
	}

	sub, err := c.plan.AppendRecord(nil, mv)
	if err != nil {
		return nil, err
	}

	dst = protowire.AppendTag(dst, num, protowire.BytesType)

	return protowire.AppendBytes(dst, sub), nil
}

// Decode parses a length-delimited sub-record into a map[string]any.
func (c *StructCodec) Decode(val Value) (any, error) {
	if val.Type != protowire.BytesType {
		return nil, fmt.Errorf("%w: struct value must be length-delimited, got wire type %d",
			errs.ErrValueTypeMismatch, val.Type)
	}

	return c.plan.DecodeRecordMap(val.Bytes)
}
