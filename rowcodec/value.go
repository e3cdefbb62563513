// Package rowcodec implements the schema-driven row value codec: an open
// registry mapping field type names to codec implementations, and the record
// plan that extracts scalar and fixed-array values from protobuf-wire row
// payloads by slot index.
package rowcodec

import (
	"fmt"

	"github.com/arloliu/conftab/errs"
	"google.golang.org/protobuf/encoding/protowire"
)

// Value is one raw occurrence of a slot inside a row record, prior to typed
// decoding. Exactly one payload member is meaningful, selected by Type.
type Value struct {
	Type    protowire.Type
	Varint  uint64
	Fixed32 uint32
	Fixed64 uint64
	Bytes   []byte
}

// ScanRecord parses one wire-encoded row into per-slot occurrence lists.
//
// The wire field number n maps to slot n-1 (slots are zero-based, protobuf
// field numbers start at 1). Occurrence order within a slot is preserved;
// it is the element order for fixed-array fields. Occurrences for slots the
// schema does not declare are retained here and ignored by the plan, matching
// protobuf unknown-field semantics.
func ScanRecord(rec []byte) (map[uint32][]Value, error) {
	slots := make(map[uint32][]Value)

	b := rec
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: malformed record tag", errs.ErrTruncatedRecord)
		}
		b = b[n:]

		var val Value
		val.Type = typ

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: malformed varint at slot %d", errs.ErrTruncatedRecord, num-1)
			}
			val.Varint = v
			b = b[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: malformed fixed32 at slot %d", errs.ErrTruncatedRecord, num-1)
			}
			val.Fixed32 = v
			b = b[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: malformed fixed64 at slot %d", errs.ErrTruncatedRecord, num-1)
			}
			val.Fixed64 = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: malformed bytes at slot %d", errs.ErrTruncatedRecord, num-1)
			}
			val.Bytes = v
			b = b[n:]
		default:
			return nil, fmt.Errorf("%w: unsupported wire type %d at slot %d", errs.ErrTruncatedRecord, typ, num-1)
		}

		slot := uint32(num - 1)
		slots[slot] = append(slots[slot], val)
	}

	return slots, nil
}
