// Package container implements the top-level config-table artifact: a
// versioned, self-describing binary envelope bundling table schemas and
// per-sheet row payloads.
//
// The envelope is a protobuf wire message assembled and parsed by hand with
// protowire; no generated code is involved. The layout is:
//
//	Container:   1=version(string) 2=header_hash(string)
//	             3=schemas(repeated TableSchema) 4=datas(repeated SheetData)
//	             5=compression(varint)
//	SheetData:   1=table(string) 2=sheet(string) 3=row(repeated bytes)
//	             4=block(bytes, compressed row frames)
//
// When the container's compression type is not CompressionNone, every sheet's
// row frames are compressed as one block and carried in SheetData field 4;
// field 3 is used only for uncompressed containers. Parsing always yields
// uncompressed rows either way.
package container

import (
	"fmt"

	"github.com/arloliu/conftab/compress"
	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/format"
	"github.com/arloliu/conftab/internal/pool"
	"github.com/arloliu/conftab/schema"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	containerFieldVersion     = 1
	containerFieldHeaderHash  = 2
	containerFieldSchemas     = 3
	containerFieldDatas       = 4
	containerFieldCompression = 5

	sheetDataFieldTable = 1
	sheetDataFieldSheet = 2
	sheetDataFieldRow   = 3
	sheetDataFieldBlock = 4
)

// SheetData carries the ordered raw row payloads for one (table, sheet) pair.
// Row order is significant and preserved through marshal/parse.
type SheetData struct {
	Table string
	Sheet string
	Rows  [][]byte
}

// Container is the top-level artifact. It exclusively owns its schemas and
// data blocks for the duration of a load/decode pass and is never mutated
// after construction.
type Container struct {
	// Version is the x.y.z format version text.
	Version string

	// HeaderHash is the digest computed over the canonical serialization of
	// Schemas at production time.
	HeaderHash string

	Schemas []schema.TableSchema
	Datas   []SheetData

	// Compression is the block compression applied to every sheet's row
	// payload. Defaults to CompressionNone when absent from the wire.
	Compression format.CompressionType
}

// MarshalBinary serializes the container into its wire form.
func (c *Container) MarshalBinary() ([]byte, error) {
	if !validVersion(c.Version) {
		return nil, fmt.Errorf("%w: %q is not x.y.z text", errs.ErrInvalidVersion, c.Version)
	}

	codec, err := compress.GetCodec(c.Compression)
	if err != nil {
		return nil, err
	}

	var dst []byte
	dst = protowire.AppendTag(dst, containerFieldVersion, protowire.BytesType)
	dst = protowire.AppendString(dst, c.Version)

	if c.HeaderHash != "" {
		dst = protowire.AppendTag(dst, containerFieldHeaderHash, protowire.BytesType)
		dst = protowire.AppendString(dst, c.HeaderHash)
	}

	for i := range c.Schemas {
		dst = protowire.AppendTag(dst, containerFieldSchemas, protowire.BytesType)
		dst = protowire.AppendBytes(dst, schema.AppendTableSchema(nil, &c.Schemas[i]))
	}

	for i := range c.Datas {
		encoded, err := marshalSheetData(&c.Datas[i], c.Compression, codec)
		if err != nil {
			return nil, err
		}
		dst = protowire.AppendTag(dst, containerFieldDatas, protowire.BytesType)
		dst = protowire.AppendBytes(dst, encoded)
	}

	dst = protowire.AppendTag(dst, containerFieldCompression, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(c.Compression))

	return dst, nil
}

func marshalSheetData(sd *SheetData, compression format.CompressionType, codec compress.Codec) ([]byte, error) {
	var dst []byte
	if sd.Table != "" {
		dst = protowire.AppendTag(dst, sheetDataFieldTable, protowire.BytesType)
		dst = protowire.AppendString(dst, sd.Table)
	}
	if sd.Sheet != "" {
		dst = protowire.AppendTag(dst, sheetDataFieldSheet, protowire.BytesType)
		dst = protowire.AppendString(dst, sd.Sheet)
	}

	if compression == format.CompressionNone {
		for _, row := range sd.Rows {
			dst = protowire.AppendTag(dst, sheetDataFieldRow, protowire.BytesType)
			dst = protowire.AppendBytes(dst, row)
		}

		return dst, nil
	}

	// Frame all rows into one payload and compress it as a single block.
	buf := pool.GetContainerBuffer()
	defer pool.PutContainerBuffer(buf)
	for _, row := range sd.Rows {
		buf.B = protowire.AppendTag(buf.B, sheetDataFieldRow, protowire.BytesType)
		buf.B = protowire.AppendBytes(buf.B, row)
	}

	block, err := codec.Compress(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to compress sheet %s/%s payload: %w", sd.Table, sd.Sheet, err)
	}

	dst = protowire.AppendTag(dst, sheetDataFieldBlock, protowire.BytesType)
	dst = protowire.AppendBytes(dst, block)

	return dst, nil
}

// Parse parses a wire-encoded container from data.
//
// Wire fields may appear in any order; sheet payload blocks are decompressed
// once the container's compression type is known, so parsed Rows are always
// uncompressed regardless of how the artifact was produced.
func Parse(data []byte) (*Container, error) {
	c := &Container{Compression: format.CompressionNone}

	var rawDatas [][]byte
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError("container", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == containerFieldVersion && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, wireError("container version", protowire.ParseError(n))
			}
			c.Version = v
			b = b[n:]
		case num == containerFieldHeaderHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, wireError("container header hash", protowire.ParseError(n))
			}
			c.HeaderHash = v
			b = b[n:]
		case num == containerFieldSchemas && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireError("container schemas", protowire.ParseError(n))
			}
			ts, err := schema.ParseTableSchema(v)
			if err != nil {
				return nil, err
			}
			c.Schemas = append(c.Schemas, ts)
			b = b[n:]
		case num == containerFieldDatas && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireError("container datas", protowire.ParseError(n))
			}
			rawDatas = append(rawDatas, v)
			b = b[n:]
		case num == containerFieldCompression && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireError("container compression", protowire.ParseError(n))
			}
			c.Compression = format.CompressionType(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireError("container", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !validVersion(c.Version) {
		return nil, fmt.Errorf("%w: %q is not x.y.z text", errs.ErrInvalidVersion, c.Version)
	}

	codec, err := compress.GetCodec(c.Compression)
	if err != nil {
		return nil, err
	}

	c.Datas = make([]SheetData, 0, len(rawDatas))
	for _, raw := range rawDatas {
		sd, err := parseSheetData(raw, codec)
		if err != nil {
			return nil, err
		}
		c.Datas = append(c.Datas, sd)
	}

	return c, nil
}

func parseSheetData(b []byte, codec compress.Codec) (SheetData, error) {
	var sd SheetData
	var block []byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return sd, wireError("sheet data", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == sheetDataFieldTable && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return sd, wireError("sheet data table", protowire.ParseError(n))
			}
			sd.Table = v
			b = b[n:]
		case num == sheetDataFieldSheet && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return sd, wireError("sheet data sheet", protowire.ParseError(n))
			}
			sd.Sheet = v
			b = b[n:]
		case num == sheetDataFieldRow && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sd, wireError("sheet data row", protowire.ParseError(n))
			}
			sd.Rows = append(sd.Rows, v)
			b = b[n:]
		case num == sheetDataFieldBlock && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sd, wireError("sheet data block", protowire.ParseError(n))
			}
			block = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return sd, wireError("sheet data", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if block == nil {
		return sd, nil
	}

	payload, err := codec.Decompress(block)
	if err != nil {
		return sd, fmt.Errorf("failed to decompress sheet %s/%s payload: %w", sd.Table, sd.Sheet, err)
	}

	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 || num != sheetDataFieldRow || typ != protowire.BytesType {
			return sd, fmt.Errorf("%w: malformed sheet data payload", errs.ErrInvalidContainer)
		}
		payload = payload[n:]

		v, n := protowire.ConsumeBytes(payload)
		if n < 0 {
			return sd, wireError("sheet data payload row", protowire.ParseError(n))
		}
		sd.Rows = append(sd.Rows, v)
		payload = payload[n:]
	}

	return sd, nil
}

// validVersion reports whether v is dotted x.y.z text with numeric parts.
func validVersion(v string) bool {
	parts := 1
	digits := 0
	for i := 0; i < len(v); i++ {
		switch {
		case v[i] >= '0' && v[i] <= '9':
			digits++
		case v[i] == '.':
			if digits == 0 {
				return false
			}
			parts++
			digits = 0
		default:
			return false
		}
	}

	return parts == 3 && digits > 0
}

func wireError(what string, err error) error {
	return fmt.Errorf("%w: malformed %s: %v", errs.ErrInvalidContainer, what, err)
}
