package table

import (
	"testing"

	"github.com/arloliu/conftab/container"
	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/format"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_RoundTrip validates the central engine law: decoding an
// encoded artifact reproduces the source rows exactly, for any row content
// and any block compression.
func TestProperty_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	encodeDecode := func(row map[string]any, ct format.CompressionType) (map[string]any, error) {
		enc, err := NewEncoder(itemSchemas(), WithDataCompression(ct))
		if err != nil {
			return nil, err
		}
		if err := enc.AppendRow("Item", "Item", row); err != nil {
			return nil, err
		}
		c, err := enc.Finish()
		if err != nil {
			return nil, err
		}

		data, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		parsed, err := container.Parse(data)
		if err != nil {
			return nil, err
		}

		set, err := Decode(parsed)
		if err != nil {
			return nil, err
		}
		sheet, ok := set.Sheet("Item", "Item")
		if !ok || sheet.Len() != 1 {
			return nil, errs.ErrUnknownSheet
		}

		return sheet.Rows()[0].Map(), nil
	}

	equalRow := func(a, b map[string]any) bool {
		if a["id"] != b["id"] || a["name"] != b["name"] {
			return false
		}
		at, aok := a["tags"].([]any)
		bt, bok := b["tags"].([]any)
		if !aok || !bok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if at[i] != bt[i] {
				return false
			}
		}

		return true
	}

	properties.Property("decode reverses encode for any row content", prop.ForAll(
		func(id int32, name string, tags []string) bool {
			row := map[string]any{
				"id":   id,
				"name": name,
				"tags": []any{tags[0], tags[1], tags[2]},
			}

			got, err := encodeDecode(row, format.CompressionNone)
			if err != nil {
				return false
			}

			return equalRow(row, got)
		},
		gen.Int32(),
		gen.AnyString(),
		gen.SliceOfN(3, gen.AnyString()),
	))

	properties.Property("every compression type yields the same rows", prop.ForAll(
		func(id int32, name string) bool {
			row := map[string]any{
				"id":   id,
				"name": name,
				"tags": []any{name, name, name},
			}

			baseline, err := encodeDecode(row, format.CompressionNone)
			if err != nil {
				return false
			}
			for _, ct := range []format.CompressionType{
				format.CompressionZstd,
				format.CompressionS2,
				format.CompressionLZ4,
			} {
				got, err := encodeDecode(row, ct)
				if err != nil || !equalRow(baseline, got) {
					return false
				}
			}

			return true
		},
		gen.Int32(),
		gen.AnyString(),
	))

	properties.Property("any single-digit hash corruption is detected", prop.ForAll(
		func(pos uint8) bool {
			enc, err := NewEncoder(itemSchemas())
			if err != nil {
				return false
			}
			if err := enc.AppendRow("Item", "Item", swordRow()); err != nil {
				return false
			}
			c, err := enc.Finish()
			if err != nil {
				return false
			}

			digits := []byte(c.HeaderHash)
			i := int(pos) % len(digits)
			if digits[i] == '0' {
				digits[i] = 'f'
			} else {
				digits[i] = '0'
			}
			c.HeaderHash = string(digits)

			_, err = Decode(c)

			return err != nil
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
