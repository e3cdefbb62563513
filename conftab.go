// Package conftab provides a self-describing, versioned binary container
// format for tabular configuration data.
//
// A conftab artifact bundles the schemas that describe its tables together
// with the row data itself, so a single file is sufficient to decode without
// any out-of-band contract. Rows are encoded as compact protobuf wire
// records, schemas are hashed with xxHash64, and the decoder verifies the
// hash before touching a single row.
//
// # Core Features
//
//   - Self-describing artifacts: schemas travel with the data
//   - Header-hash integrity check (64-bit xxHash64) over the canonical schema serialization
//   - Typed row decoding with a pluggable field type registry
//   - Category/key point-lookup index declared per sheet
//   - Optional block compression (None, Zstd, S2, LZ4)
//   - Parallel per-sheet decoding with preserved row order
//
// # Basic Usage
//
// Encoding rows into an artifact:
//
//	import "github.com/arloliu/conftab"
//
//	schemas := []schema.TableSchema{ ... }
//	encoder, _ := conftab.NewEncoder(schemas)
//	encoder.AppendRow("Item", "Item", map[string]any{
//	    "id":   int32(1001),
//	    "name": "Sword",
//	    "tags": []any{"melee", "rare", "epic"},
//	})
//	container, _ := encoder.Finish()
//	data, _ := container.MarshalBinary()
//
// Decoding an artifact and resolving a row:
//
//	set, _ := conftab.Unmarshal(data)
//	row, ok := set.Lookup("item", int32(1001))
//	if ok {
//	    name, _ := row.Value("name")
//	    fmt.Println(name) // "Sword"
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the table and
// container packages, simplifying the most common use cases. For fine-grained
// control over containers, schemas, and row codecs, use the table, container,
// schema, and rowcodec packages directly.
package conftab

import (
	"github.com/arloliu/conftab/container"
	"github.com/arloliu/conftab/schema"
	"github.com/arloliu/conftab/table"
)

// NewEncoder creates an encoder that assembles typed rows into a container
// artifact for the given schemas.
//
// Parameters:
//   - schemas: The table schemas the artifact will carry and describe itself with
//   - opts: Optional configuration functions (see table.EncoderOption)
//
// Returns:
//   - *table.Encoder: The created encoder.
//   - error: An error if a schema is invalid or an option is rejected.
//
// Available options:
//   - table.WithEncodeRegistry(reg)
//   - table.WithDataCompression(format.CompressionNone|Zstd|S2|LZ4)
//   - table.WithVersion(version)
func NewEncoder(schemas []schema.TableSchema, opts ...table.EncoderOption) (*table.Encoder, error) {
	return table.NewEncoder(schemas, opts...)
}

// Marshal is the one-shot encoding form: it serializes the given row lists,
// keyed by (table, sheet), into artifact bytes.
//
// Rows are appended in declared sheet order, so the output is deterministic
// for identical input.
func Marshal(schemas []schema.TableSchema, rows map[table.SheetKey][]map[string]any, opts ...table.EncoderOption) ([]byte, error) {
	c, err := table.Encode(schemas, rows, opts...)
	if err != nil {
		return nil, err
	}

	return c.MarshalBinary()
}

// Unmarshal parses artifact bytes, verifies the header hash, and decodes
// every sheet into typed rows.
//
// Parameters:
//   - data: The raw artifact bytes (from Marshal, encoder.Finish, or storage)
//   - opts: Optional configuration functions (see table.DecodeOption)
//
// Returns:
//   - *table.Set: The decoded sheets plus the category/key lookup index.
//   - error: An error if the container is malformed, the hash does not match,
//     or any row fails to decode.
//
// Available options:
//   - table.WithDecodeRegistry(reg)
//   - table.WithConcurrency(n)
func Unmarshal(data []byte, opts ...table.DecodeOption) (*table.Set, error) {
	c, err := container.Parse(data)
	if err != nil {
		return nil, err
	}

	return table.Decode(c, opts...)
}
