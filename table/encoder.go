package table

import (
	"fmt"

	"github.com/arloliu/conftab/container"
	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/format"
	"github.com/arloliu/conftab/internal/hash"
	"github.com/arloliu/conftab/internal/options"
	"github.com/arloliu/conftab/internal/pool"
	"github.com/arloliu/conftab/rowcodec"
	"github.com/arloliu/conftab/schema"
)

type encoderConfig struct {
	registry    *rowcodec.Registry
	compression format.CompressionType
	version     string
}

// EncoderOption is a functional option for configuring an Encoder.
type EncoderOption = options.Option[*encoderConfig]

// WithEncodeRegistry sets the row value codec registry used to resolve field
// type names. Use the same registrations on both sides of the round trip.
func WithEncodeRegistry(reg *rowcodec.Registry) EncoderOption {
	return options.New(func(cfg *encoderConfig) error {
		if reg == nil {
			return fmt.Errorf("encode registry must not be nil")
		}
		cfg.registry = reg

		return nil
	})
}

// WithDataCompression sets the block compression applied to every sheet's
// row payload. Default is format.CompressionNone.
func WithDataCompression(ct format.CompressionType) EncoderOption {
	return options.New(func(cfg *encoderConfig) error {
		switch ct {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
			cfg.compression = ct
			return nil
		default:
			return fmt.Errorf("%w: %s", errs.ErrInvalidCompression, ct)
		}
	})
}

// WithVersion overrides the container version text. Default is format.Version.
func WithVersion(version string) EncoderOption {
	return options.NoError(func(cfg *encoderConfig) {
		cfg.version = version
	})
}

// Encoder assembles typed rows into a container artifact.
//
// Rows are serialized as they are appended; Finish computes the header hash
// over the canonical schema serialization with the same digest function the
// decoder verifies against, so a freshly produced artifact always passes its
// own integrity check.
//
// An Encoder is single-use: after Finish it must not be reused.
type Encoder struct {
	cfg     encoderConfig
	schemas []schema.TableSchema
	plans   map[SheetKey]*rowcodec.Plan
	order   []SheetKey
	rows    map[SheetKey][][]byte
}

// NewEncoder creates an encoder for the given schemas.
//
// Every sheet schema is validated up front; schema corruption surfaces here
// rather than in the middle of an append stream.
func NewEncoder(schemas []schema.TableSchema, opts ...EncoderOption) (*Encoder, error) {
	cfg := encoderConfig{
		registry:    rowcodec.NewRegistry(),
		compression: format.CompressionNone,
		version:     format.Version,
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	e := &Encoder{
		cfg:     cfg,
		schemas: schemas,
		plans:   make(map[SheetKey]*rowcodec.Plan),
		rows:    make(map[SheetKey][][]byte),
	}

	for ti := range schemas {
		ts := &schemas[ti]
		for si := range ts.Sheets {
			ss := &ts.Sheets[si]

			key := SheetKey{Table: ts.Name, Sheet: ss.Name}
			if _, ok := e.plans[key]; ok {
				return nil, fmt.Errorf("%w: %s/%s declared twice",
					errs.ErrDuplicateSheet, key.Table, key.Sheet)
			}

			if err := ss.Validate(); err != nil {
				return nil, fmt.Errorf("table %q: %w", ts.Name, err)
			}

			plan, err := rowcodec.NewPlan(cfg.registry, ss.Fields)
			if err != nil {
				return nil, fmt.Errorf("table %q sheet %q: %w", ts.Name, ss.Name, err)
			}

			e.plans[key] = plan
			e.order = append(e.order, key)
		}
	}

	return e, nil
}

// AppendRow serializes one row, supplied as a field-name keyed map, onto the
// named sheet. Rows keep their append order through encode and decode.
func (e *Encoder) AppendRow(table, sheet string, values map[string]any) error {
	key := SheetKey{Table: table, Sheet: sheet}
	plan, ok := e.plans[key]
	if !ok {
		return fmt.Errorf("%w: %s/%s is not declared by the encoder schemas",
			errs.ErrUnknownSheet, table, sheet)
	}

	buf := pool.GetRowBuffer()
	defer pool.PutRowBuffer(buf)

	encoded, err := plan.AppendRecord(buf.B, values)
	if err != nil {
		return fmt.Errorf("table %q sheet %q: %w", table, sheet, err)
	}

	rec := make([]byte, len(encoded))
	copy(rec, encoded)
	e.rows[key] = append(e.rows[key], rec)

	return nil
}

// Finish assembles the container: one data block per declared sheet (empty
// sheets included), the schemas, and the header hash.
func (e *Encoder) Finish() (*container.Container, error) {
	c := &container.Container{
		Version:     e.cfg.version,
		HeaderHash:  hash.Sum(schema.Canonical(e.schemas)),
		Schemas:     e.schemas,
		Compression: e.cfg.compression,
	}

	c.Datas = make([]container.SheetData, 0, len(e.order))
	for _, key := range e.order {
		c.Datas = append(c.Datas, container.SheetData{
			Table: key.Table,
			Sheet: key.Sheet,
			Rows:  e.rows[key],
		})
	}

	return c, nil
}

// Encode is the one-shot form of the encoder: it serializes every row list
// keyed by (table, sheet) and returns the assembled container.
func Encode(schemas []schema.TableSchema, rows map[SheetKey][]map[string]any, opts ...EncoderOption) (*container.Container, error) {
	e, err := NewEncoder(schemas, opts...)
	if err != nil {
		return nil, err
	}

	for key := range rows {
		if _, ok := e.plans[key]; !ok {
			return nil, fmt.Errorf("%w: %s/%s is not declared by the schemas",
				errs.ErrUnknownSheet, key.Table, key.Sheet)
		}
	}

	// Append in declared sheet order so the artifact is deterministic
	// regardless of map iteration order.
	for _, key := range e.order {
		for _, values := range rows[key] {
			if err := e.AppendRow(key.Table, key.Sheet, values); err != nil {
				return nil, err
			}
		}
	}

	return e.Finish()
}
