package rowcodec

import (
	"fmt"
	"math"

	"github.com/arloliu/conftab/errs"
	"google.golang.org/protobuf/encoding/protowire"
)

// Codec encodes and decodes one logical value of a named field type.
//
// Implementations must be stateless and safe for concurrent use; a single
// codec instance serves every sheet that declares its type name.
type Codec interface {
	// Append encodes v as one occurrence of the wire field num and appends
	// the tag plus payload to dst.
	Append(dst []byte, num protowire.Number, v any) ([]byte, error)

	// Decode interprets one raw occurrence of the field.
	Decode(val Value) (any, error)
}

// Registry maps open field type names to their codecs. The type set is open
// by design: producers may introduce new type names, and consumers register
// matching codecs at process start. An unregistered name surfaces as
// ErrUnknownFieldType at decode time, never as a silent coercion.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry creates a registry pre-populated with the builtin scalar types:
// int32, int64, uint32, uint64, bool, string, bytes, float, double.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec, len(builtinRowCodecs))}
	for name, codec := range builtinRowCodecs {
		r.codecs[name] = codec
	}

	return r
}

// Register adds or replaces the codec for a type name.
func (r *Registry) Register(name string, codec Codec) {
	r.codecs[name] = codec
}

// Lookup resolves a type name to its codec.
func (r *Registry) Lookup(name string) (Codec, bool) {
	codec, ok := r.codecs[name]
	return codec, ok
}

var builtinRowCodecs = map[string]Codec{
	"int32":  Int32Codec{},
	"int64":  Int64Codec{},
	"uint32": Uint32Codec{},
	"uint64": Uint64Codec{},
	"bool":   BoolCodec{},
	"string": StringCodec{},
	"bytes":  BytesCodec{},
	"float":  FloatCodec{},
	"double": DoubleCodec{},
}

func typeErr(want string, got any) error {
	return fmt.Errorf("%w: want %s, got %T", errs.ErrValueTypeMismatch, want, got)
}

func wireTypeErr(want string, got protowire.Type) error {
	return fmt.Errorf("%w: want %s encoding, got wire type %d", errs.ErrValueTypeMismatch, want, got)
}

// Int32Codec codes "int32" values as sign-extended varints.
type Int32Codec struct{}

func (Int32Codec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	iv, ok := v.(int32)
	if !ok {
		return nil, typeErr("int32", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.VarintType)

	return protowire.AppendVarint(dst, uint64(int64(iv))), nil
}

func (Int32Codec) Decode(val Value) (any, error) {
	if val.Type != protowire.VarintType {
		return nil, wireTypeErr("varint", val.Type)
	}

	return int32(int64(val.Varint)), nil //nolint:gosec
}

// Int64Codec codes "int64" values as varints.
type Int64Codec struct{}

func (Int64Codec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	iv, ok := v.(int64)
	if !ok {
		return nil, typeErr("int64", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.VarintType)

	return protowire.AppendVarint(dst, uint64(iv)), nil //nolint:gosec
}

func (Int64Codec) Decode(val Value) (any, error) {
	if val.Type != protowire.VarintType {
		return nil, wireTypeErr("varint", val.Type)
	}

	return int64(val.Varint), nil //nolint:gosec
}

// Uint32Codec codes "uint32" values as varints.
type Uint32Codec struct{}

func (Uint32Codec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	uv, ok := v.(uint32)
	if !ok {
		return nil, typeErr("uint32", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.VarintType)

	return protowire.AppendVarint(dst, uint64(uv)), nil
}

func (Uint32Codec) Decode(val Value) (any, error) {
	if val.Type != protowire.VarintType {
		return nil, wireTypeErr("varint", val.Type)
	}

	return uint32(val.Varint), nil //nolint:gosec
}

// Uint64Codec codes "uint64" values as varints.
type Uint64Codec struct{}

func (Uint64Codec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	uv, ok := v.(uint64)
	if !ok {
		return nil, typeErr("uint64", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.VarintType)

	return protowire.AppendVarint(dst, uv), nil
}

func (Uint64Codec) Decode(val Value) (any, error) {
	if val.Type != protowire.VarintType {
		return nil, wireTypeErr("varint", val.Type)
	}

	return val.Varint, nil
}

// BoolCodec codes "bool" values as 0/1 varints.
type BoolCodec struct{}

func (BoolCodec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	bv, ok := v.(bool)
	if !ok {
		return nil, typeErr("bool", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.VarintType)
	var raw uint64
	if bv {
		raw = 1
	}

	return protowire.AppendVarint(dst, raw), nil
}

func (BoolCodec) Decode(val Value) (any, error) {
	if val.Type != protowire.VarintType {
		return nil, wireTypeErr("varint", val.Type)
	}

	return val.Varint != 0, nil
}

// StringCodec codes "string" values as length-delimited UTF-8 bytes.
type StringCodec struct{}

func (StringCodec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	sv, ok := v.(string)
	if !ok {
		return nil, typeErr("string", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)

	return protowire.AppendString(dst, sv), nil
}

func (StringCodec) Decode(val Value) (any, error) {
	if val.Type != protowire.BytesType {
		return nil, wireTypeErr("length-delimited", val.Type)
	}

	return string(val.Bytes), nil
}

// BytesCodec codes "bytes" values as length-delimited opaque bytes.
// The decoded slice is copied out of the record buffer, so it stays valid
// after the container is released.
type BytesCodec struct{}

func (BytesCodec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	bv, ok := v.([]byte)
	if !ok {
		return nil, typeErr("[]byte", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)

	return protowire.AppendBytes(dst, bv), nil
}

func (BytesCodec) Decode(val Value) (any, error) {
	if val.Type != protowire.BytesType {
		return nil, wireTypeErr("length-delimited", val.Type)
	}
	out := make([]byte, len(val.Bytes))
	copy(out, val.Bytes)

	return out, nil
}

// FloatCodec codes "float" values as fixed32 IEEE-754 bits.
type FloatCodec struct{}

func (FloatCodec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	fv, ok := v.(float32)
	if !ok {
		return nil, typeErr("float32", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.Fixed32Type)

	return protowire.AppendFixed32(dst, math.Float32bits(fv)), nil
}

func (FloatCodec) Decode(val Value) (any, error) {
	if val.Type != protowire.Fixed32Type {
		return nil, wireTypeErr("fixed32", val.Type)
	}

	return math.Float32frombits(val.Fixed32), nil
}

// DoubleCodec codes "double" values as fixed64 IEEE-754 bits.
type DoubleCodec struct{}

func (DoubleCodec) Append(dst []byte, num protowire.Number, v any) ([]byte, error) {
	fv, ok := v.(float64)
	if !ok {
		return nil, typeErr("float64", v)
	}
	dst = protowire.AppendTag(dst, num, protowire.Fixed64Type)

	return protowire.AppendFixed64(dst, math.Float64bits(fv)), nil
}

func (DoubleCodec) Decode(val Value) (any, error) {
	if val.Type != protowire.Fixed64Type {
		return nil, wireTypeErr("fixed64", val.Type)
	}

	return math.Float64frombits(val.Fixed64), nil
}
