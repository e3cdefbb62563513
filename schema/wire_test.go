package schema

import (
	"testing"

	"github.com/arloliu/conftab/errs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleTable() TableSchema {
	return TableSchema{
		Name: "Item",
		Sheets: []SheetSchema{
			{
				Name: "Item",
				Meta: SheetMeta{Category: "item", Key: "id"},
				Fields: []Field{
					{Name: "id", Type: "int32", Index: 0},
					{Name: "name", Type: "string", Index: 1},
					{Name: "tags", ArrayLength: 3, Type: "string", Index: 2},
				},
			},
			{
				Name: "ItemEffect",
				Meta: SheetMeta{Category: "item", Key: "effect_id"},
				Fields: []Field{
					{Name: "effect_id", Type: "uint32", Index: 0},
					{Name: "power", Type: "double", Index: 1},
				},
			},
		},
	}
}

func TestTableSchema_WireRoundTrip(t *testing.T) {
	in := sampleTable()

	encoded := AppendTableSchema(nil, &in)
	out, err := ParseTableSchema(encoded)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestTableSchema_WireRoundTrip_Empty(t *testing.T) {
	in := TableSchema{}
	encoded := AppendTableSchema(nil, &in)
	require.Empty(t, encoded)

	out, err := ParseTableSchema(encoded)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestCanonical_Deterministic(t *testing.T) {
	schemas := []TableSchema{sampleTable()}
	require.Equal(t, Canonical(schemas), Canonical(schemas))
}

func TestCanonical_SensitiveToFieldChanges(t *testing.T) {
	base := []TableSchema{sampleTable()}
	baseline := Canonical(base)

	mutations := []func(*TableSchema){
		func(ts *TableSchema) { ts.Sheets[0].Fields[0].Index = 7 },
		func(ts *TableSchema) { ts.Sheets[0].Fields[2].ArrayLength = 4 },
		func(ts *TableSchema) { ts.Sheets[0].Fields[1].Type = "bytes" },
		func(ts *TableSchema) { ts.Sheets[0].Meta.Key = "name" },
	}

	for i, mutate := range mutations {
		mutated := []TableSchema{sampleTable()}
		mutate(&mutated[0])
		require.NotEqual(t, baseline, Canonical(mutated), "mutation %d left canonical bytes unchanged", i)
	}
}

func TestParseTableSchema_SkipsUnknownFields(t *testing.T) {
	in := sampleTable()
	encoded := AppendTableSchema(nil, &in)

	// Append a field number this version does not know about.
	encoded = protowire.AppendTag(encoded, 15, protowire.VarintType)
	encoded = protowire.AppendVarint(encoded, 99)

	out, err := ParseTableSchema(encoded)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestParseTableSchema_Malformed(t *testing.T) {
	// A bytes-typed tag followed by a length pointing past the buffer.
	bad := protowire.AppendTag(nil, tableFieldName, protowire.BytesType)
	bad = protowire.AppendVarint(bad, 100)
	bad = append(bad, 'x')

	_, err := ParseTableSchema(bad)
	require.ErrorIs(t, err, errs.ErrInvalidContainer)
}
