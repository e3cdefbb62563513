package table

import (
	"fmt"
	"testing"

	"github.com/arloliu/conftab/container"
	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/format"
	"github.com/arloliu/conftab/internal/hash"
	"github.com/arloliu/conftab/rowcodec"
	"github.com/arloliu/conftab/schema"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func encodeItems(t *testing.T, rows ...map[string]any) *container.Container {
	t.Helper()

	enc, err := NewEncoder(itemSchemas())
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, enc.AppendRow("Item", "Item", row))
	}

	c, err := enc.Finish()
	require.NoError(t, err)

	return c
}

func TestDecode_LookupByCategoryAndKey(t *testing.T) {
	set, err := Decode(encodeItems(t, swordRow()))
	require.NoError(t, err)

	row, ok := set.Lookup("item", int32(1001))
	require.True(t, ok)

	name, ok := row.Value("name")
	require.True(t, ok)
	require.Equal(t, "Sword", name)

	tags, ok := row.Value("tags")
	require.True(t, ok)
	require.Equal(t, []any{"melee", "rare", "epic"}, tags)

	_, ok = set.Lookup("item", int32(9999))
	require.False(t, ok)
	_, ok = set.Lookup("weapon", int32(1001))
	require.False(t, ok)

	// Lookup is typed: an int64 key never matches an int32 field.
	_, ok = set.Lookup("item", int64(1001))
	require.False(t, ok)
}

func TestDecode_HeaderHashMismatch(t *testing.T) {
	c := encodeItems(t, swordRow())
	c.HeaderHash = "0123456789abcdef"

	_, err := Decode(c)
	require.ErrorIs(t, err, errs.ErrSchemaHashMismatch)
}

func TestDecode_HashCoversSchemaMutations(t *testing.T) {
	mutations := map[string]func(schemas []schema.TableSchema){
		"field index":  func(s []schema.TableSchema) { s[0].Sheets[0].Fields[1].Index = 5 },
		"field type":   func(s []schema.TableSchema) { s[0].Sheets[0].Fields[0].Type = "int64" },
		"array length": func(s []schema.TableSchema) { s[0].Sheets[0].Fields[2].ArrayLength = 2 },
		"lookup key":   func(s []schema.TableSchema) { s[0].Sheets[0].Meta.Key = "name" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := encodeItems(t, swordRow())
			mutate(c.Schemas)

			_, err := Decode(c)
			require.ErrorIs(t, err, errs.ErrSchemaHashMismatch)
		})
	}
}

func TestDecode_UnknownSheetDataBlock(t *testing.T) {
	c := encodeItems(t, swordRow())
	c.Datas = append(c.Datas, container.SheetData{Table: "Item", Sheet: "Recipe"})

	_, err := Decode(c)
	require.ErrorIs(t, err, errs.ErrUnknownSheet)
}

func TestDecode_DuplicateSheetDataBlock(t *testing.T) {
	c := encodeItems(t, swordRow())
	c.Datas = append(c.Datas, container.SheetData{Table: "Item", Sheet: "Item"})

	_, err := Decode(c)
	require.ErrorIs(t, err, errs.ErrDuplicateSheet)
}

func TestDecode_TruncatedRecord(t *testing.T) {
	c := encodeItems(t)

	// A record carrying only the id slot is missing name and tags.
	var rec []byte
	rec = protowire.AppendTag(rec, 1, protowire.VarintType)
	rec = protowire.AppendVarint(rec, 1001)
	c.Datas[0].Rows = [][]byte{rec}

	_, err := Decode(c)
	require.ErrorIs(t, err, errs.ErrTruncatedRecord)
}

func TestDecode_DuplicateKeyLastWriteWins(t *testing.T) {
	first := swordRow()
	second := map[string]any{
		"id":   int32(1001),
		"name": "Shield",
		"tags": []any{"defense", "rare", "epic"},
	}

	set, err := Decode(encodeItems(t, first, second))
	require.NoError(t, err)

	row, ok := set.Lookup("item", int32(1001))
	require.True(t, ok)
	name, _ := row.Value("name")
	require.Equal(t, "Shield", name)

	// Both rows survive in the sheet; only the index is overwritten.
	sheet, _ := set.Sheet("Item", "Item")
	require.Equal(t, 2, sheet.Len())

	warnings := set.Warnings()
	require.Len(t, warnings, 1)
	require.Equal(t, Warning{
		Table:    "Item",
		Sheet:    "Item",
		Category: "item",
		Key:      int32(1001),
		Message:  "duplicate key overwrites earlier row",
	}, warnings[0])
}

func TestDecode_SheetsSharingCategoryShareNamespace(t *testing.T) {
	schemas := itemSchemas()
	schemas[1].Sheets[0].Meta.Category = "item"

	enc, err := NewEncoder(schemas)
	require.NoError(t, err)
	require.NoError(t, enc.AppendRow("Item", "Item", swordRow()))
	require.NoError(t, enc.AppendRow("Npc", "Npc", map[string]any{"id": int32(42), "hp": int64(99)}))

	c, err := enc.Finish()
	require.NoError(t, err)
	set, err := Decode(c)
	require.NoError(t, err)

	_, ok := set.Lookup("item", int32(1001))
	require.True(t, ok)
	row, ok := set.Lookup("item", int32(42))
	require.True(t, ok)
	hp, _ := row.Value("hp")
	require.Equal(t, int64(99), hp)
	require.Empty(t, set.Warnings())
}

func TestDecode_NonIndexableKey(t *testing.T) {
	schemas := []schema.TableSchema{
		{
			Name: "Blob",
			Sheets: []schema.SheetSchema{
				{
					Name: "Blob",
					Meta: schema.SheetMeta{Category: "blob", Key: "raw"},
					Fields: []schema.Field{
						{Name: "raw", Type: "bytes", Index: 0},
					},
				},
			},
		},
	}

	enc, err := NewEncoder(schemas)
	require.NoError(t, err)
	require.NoError(t, enc.AppendRow("Blob", "Blob", map[string]any{"raw": []byte{1, 2}}))

	c, err := enc.Finish()
	require.NoError(t, err)

	_, err = Decode(c)
	require.ErrorIs(t, err, errs.ErrKeyFieldMissing)
}

func TestDecode_UnknownFieldType(t *testing.T) {
	schemas := []schema.TableSchema{
		{
			Name: "Item",
			Sheets: []schema.SheetSchema{
				{
					Name: "Item",
					Meta: schema.SheetMeta{Category: "item", Key: "id"},
					Fields: []schema.Field{
						{Name: "id", Type: "int32", Index: 0},
						{Name: "pos", Type: "vec3", Index: 1},
					},
				},
			},
		},
	}

	c := &container.Container{
		Version:     format.Version,
		HeaderHash:  hash.Sum(schema.Canonical(schemas)),
		Schemas:     schemas,
		Compression: format.CompressionNone,
	}

	_, err := Decode(c)
	require.ErrorIs(t, err, errs.ErrUnknownFieldType)
}

func TestDecode_CustomRegistryType(t *testing.T) {
	statFields := []schema.Field{
		{Name: "atk", Type: "int32", Index: 0},
		{Name: "def", Type: "int32", Index: 1},
	}

	newRegistry := func(t *testing.T) *rowcodec.Registry {
		t.Helper()
		reg := rowcodec.NewRegistry()
		sc, err := rowcodec.NewStructCodec(reg, statFields)
		require.NoError(t, err)
		reg.Register("stat", sc)

		return reg
	}

	schemas := []schema.TableSchema{
		{
			Name: "Hero",
			Sheets: []schema.SheetSchema{
				{
					Name: "Hero",
					Meta: schema.SheetMeta{Category: "hero", Key: "id"},
					Fields: []schema.Field{
						{Name: "id", Type: "int32", Index: 0},
						{Name: "stat", Type: "stat", Index: 1},
					},
				},
			},
		},
	}

	row := map[string]any{
		"id":   int32(3),
		"stat": map[string]any{"atk": int32(12), "def": int32(8)},
	}

	enc, err := NewEncoder(schemas, WithEncodeRegistry(newRegistry(t)))
	require.NoError(t, err)
	require.NoError(t, enc.AppendRow("Hero", "Hero", row))

	c, err := enc.Finish()
	require.NoError(t, err)

	set, err := Decode(c, WithDecodeRegistry(newRegistry(t)))
	require.NoError(t, err)

	got, ok := set.Lookup("hero", int32(3))
	require.True(t, ok)
	require.Equal(t, row, got.Map())
}

func TestDecode_RowAndSheetOrderPreserved(t *testing.T) {
	const sheets = 8
	const rowsPerSheet = 50

	schemas := make([]schema.TableSchema, sheets)
	for i := range schemas {
		schemas[i] = schema.TableSchema{
			Name: fmt.Sprintf("T%d", i),
			Sheets: []schema.SheetSchema{
				{
					Name: "Main",
					Meta: schema.SheetMeta{Category: fmt.Sprintf("cat%d", i), Key: "id"},
					Fields: []schema.Field{
						{Name: "id", Type: "int32", Index: 0},
						{Name: "seq", Type: "uint32", Index: 1},
					},
				},
			},
		}
	}

	enc, err := NewEncoder(schemas)
	require.NoError(t, err)
	for i := 0; i < sheets; i++ {
		for j := 0; j < rowsPerSheet; j++ {
			row := map[string]any{"id": int32(j), "seq": uint32(i*rowsPerSheet + j)}
			require.NoError(t, enc.AppendRow(fmt.Sprintf("T%d", i), "Main", row))
		}
	}
	c, err := enc.Finish()
	require.NoError(t, err)

	for _, concurrency := range []int{1, 4} {
		set, err := Decode(c, WithConcurrency(concurrency))
		require.NoError(t, err)

		keys := set.Keys()
		require.Len(t, keys, sheets)
		for i, key := range keys {
			require.Equal(t, fmt.Sprintf("T%d", i), key.Table)

			sheet, ok := set.Sheet(key.Table, key.Sheet)
			require.True(t, ok)
			require.Equal(t, rowsPerSheet, sheet.Len())
			for j, row := range sheet.Rows() {
				seq, _ := row.Value("seq")
				require.Equal(t, uint32(i*rowsPerSheet+j), seq)
			}
		}
	}
}

func TestWithConcurrency_RejectsNonPositive(t *testing.T) {
	_, err := Decode(encodeItems(t), WithConcurrency(0))
	require.Error(t, err)
}
