package table

import (
	"fmt"
	"runtime"

	"github.com/arloliu/conftab/container"
	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/internal/hash"
	"github.com/arloliu/conftab/internal/options"
	"github.com/arloliu/conftab/rowcodec"
	"github.com/arloliu/conftab/schema"
	"golang.org/x/sync/errgroup"
)

type decoderConfig struct {
	registry    *rowcodec.Registry
	concurrency int
}

// DecodeOption is a functional option for configuring Decode.
type DecodeOption = options.Option[*decoderConfig]

// WithDecodeRegistry sets the row value codec registry used to resolve field
// type names. Default is a fresh registry with the builtin scalar types.
func WithDecodeRegistry(reg *rowcodec.Registry) DecodeOption {
	return options.New(func(cfg *decoderConfig) error {
		if reg == nil {
			return fmt.Errorf("decode registry must not be nil")
		}
		cfg.registry = reg

		return nil
	})
}

// WithConcurrency caps the number of sheets decoded in parallel.
// Default is runtime.GOMAXPROCS(0). Row order within every sheet is
// preserved regardless of this setting.
func WithConcurrency(n int) DecodeOption {
	return options.New(func(cfg *decoderConfig) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		cfg.concurrency = n

		return nil
	})
}

// sheetPlan is one sheet's resolved decoding state: its schema, compiled
// field plan, and the slot-order position of the lookup key field.
type sheetPlan struct {
	table  string
	schema *schema.SheetSchema
	plan   *rowcodec.Plan
	keyPos int
}

// Decode validates a parsed container and decodes every sheet data block
// into typed rows.
//
// The header hash is verified over the canonical serialization of the
// schemas before any row is touched; a corrupted or out-of-sync schema
// section never silently produces garbage rows. Independent sheets decode in
// parallel, each into a pre-sized slot so row order inside a sheet is
// preserved exactly.
//
// The engine performs no I/O and does not retain the container: the returned
// Set is fully independent of it.
func Decode(c *container.Container, opts ...DecodeOption) (*Set, error) {
	cfg := &decoderConfig{
		registry:    rowcodec.NewRegistry(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if digest := hash.Sum(schema.Canonical(c.Schemas)); digest != c.HeaderHash {
		return nil, fmt.Errorf("%w: header declares %q, schemas hash to %q",
			errs.ErrSchemaHashMismatch, c.HeaderHash, digest)
	}

	plans, err := buildSheetPlans(cfg.registry, c.Schemas)
	if err != nil {
		return nil, err
	}

	// A second data block for the same sheet would silently shadow the
	// first, so reject it before spending any decode work.
	seen := make(map[SheetKey]struct{}, len(c.Datas))
	for i := range c.Datas {
		key := SheetKey{Table: c.Datas[i].Table, Sheet: c.Datas[i].Sheet}
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: duplicate data block for %s/%s",
				errs.ErrDuplicateSheet, key.Table, key.Sheet)
		}
		seen[key] = struct{}{}

		if _, ok := plans[key]; !ok {
			return nil, fmt.Errorf("%w: data block %s/%s has no declared schema",
				errs.ErrUnknownSheet, key.Table, key.Sheet)
		}
	}

	decoded := make([]*Sheet, len(c.Datas))

	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	for i := range c.Datas {
		i := i
		g.Go(func() error {
			sd := &c.Datas[i]
			sp := plans[SheetKey{Table: sd.Table, Sheet: sd.Sheet}]

			sheet, err := decodeSheet(sp, sd)
			if err != nil {
				return err
			}
			decoded[i] = sheet

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assembleSet(c, plans, decoded)
}

func buildSheetPlans(reg *rowcodec.Registry, schemas []schema.TableSchema) (map[SheetKey]*sheetPlan, error) {
	plans := make(map[SheetKey]*sheetPlan)
	for ti := range schemas {
		ts := &schemas[ti]
		for si := range ts.Sheets {
			ss := &ts.Sheets[si]

			key := SheetKey{Table: ts.Name, Sheet: ss.Name}
			if _, ok := plans[key]; ok {
				return nil, fmt.Errorf("%w: %s/%s declared twice",
					errs.ErrDuplicateSheet, key.Table, key.Sheet)
			}

			if err := ss.Validate(); err != nil {
				return nil, fmt.Errorf("table %q: %w", ts.Name, err)
			}

			plan, err := rowcodec.NewPlan(reg, ss.Fields)
			if err != nil {
				return nil, fmt.Errorf("table %q sheet %q: %w", ts.Name, ss.Name, err)
			}

			plans[key] = &sheetPlan{
				table:  ts.Name,
				schema: ss,
				plan:   plan,
				keyPos: keyPosition(plan, ss.Meta.Key),
			}
		}
	}

	return plans, nil
}

// keyPosition returns the slot-order position of the key field.
// Validate has already guaranteed the field exists.
func keyPosition(plan *rowcodec.Plan, keyName string) int {
	for i, f := range plan.Fields() {
		if f.Name == keyName {
			return i
		}
	}

	return -1
}

func decodeSheet(sp *sheetPlan, sd *container.SheetData) (*Sheet, error) {
	fields := sp.plan.Fields()
	rows := make([]Row, len(sd.Rows))
	for j, raw := range sd.Rows {
		values, err := sp.plan.DecodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("table %q sheet %q row %d: %w", sd.Table, sd.Sheet, j, err)
		}
		rows[j] = Row{fields: fields, values: values}
	}

	return &Sheet{schema: *sp.schema, rows: rows}, nil
}

// assembleSet installs decoded sheets in container order and builds the
// category/key lookup index. Duplicate keys within one category namespace
// resolve last-write-wins, each overwrite recorded as a warning.
func assembleSet(c *container.Container, plans map[SheetKey]*sheetPlan, decoded []*Sheet) (*Set, error) {
	set := &Set{
		sheets: make(map[SheetKey]*Sheet, len(decoded)),
		order:  make([]SheetKey, 0, len(decoded)),
		lookup: make(map[string]map[any]*Row),
	}

	for i, sheet := range decoded {
		key := SheetKey{Table: c.Datas[i].Table, Sheet: c.Datas[i].Sheet}
		set.sheets[key] = sheet
		set.order = append(set.order, key)

		sp := plans[key]
		category := sp.schema.Meta.Category
		byKey := set.lookup[category]
		if byKey == nil {
			byKey = make(map[any]*Row, sheet.Len())
			set.lookup[category] = byKey
		}

		for j := range sheet.rows {
			row := &sheet.rows[j]
			kv := row.values[sp.keyPos]
			if !indexable(kv) {
				return nil, fmt.Errorf("%w: table %q sheet %q key %q decodes to non-indexable %T",
					errs.ErrKeyFieldMissing, key.Table, key.Sheet, sp.schema.Meta.Key, kv)
			}

			if _, exists := byKey[kv]; exists {
				set.warnings = append(set.warnings, Warning{
					Table:    key.Table,
					Sheet:    key.Sheet,
					Category: category,
					Key:      kv,
					Message:  "duplicate key overwrites earlier row",
				})
			}
			byKey[kv] = row
		}
	}

	return set, nil
}

// indexable reports whether a decoded key value can serve as a lookup map
// key. Builtin scalar types qualify; arrays, byte slices, and struct values
// do not.
func indexable(v any) bool {
	switch v.(type) {
	case string, bool,
		int32, int64, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
