package compress

import (
	"bytes"
	"testing"

	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/format"
	"github.com/stretchr/testify/require"
)

func samplePayload() []byte {
	// Repetitive enough that every real codec actually shrinks it.
	var buf bytes.Buffer
	for i := 0; i < 200; i++ {
		buf.WriteString("row-payload-with-repeated-structure;")
	}

	return buf.Bytes()
}

func TestGetCodec_Builtins(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		codec, err := GetCodec(ct)
		require.NoError(t, err, "compression type %s", ct)
		require.NotNil(t, codec)
	}
}

func TestGetCodec_Invalid(t *testing.T) {
	_, err := GetCodec(format.CompressionType(0xFF))
	require.ErrorIs(t, err, errs.ErrInvalidCompression)
}

func TestCodecs_RoundTrip(t *testing.T) {
	payload := samplePayload()

	tests := []struct {
		name  string
		ct    format.CompressionType
		gains bool
	}{
		{"none", format.CompressionNone, false},
		{"zstd", format.CompressionZstd, true},
		{"s2", format.CompressionS2, true},
		{"lz4", format.CompressionLZ4, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			codec, err := GetCodec(tc.ct)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			if tc.gains {
				require.Less(t, len(compressed), len(payload))
			}

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)
		})
	}
}

func TestCodecs_EmptyInput(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		compressed, err := codec.Compress(nil)
		require.NoError(t, err)

		restored, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Empty(t, restored)
	}
}

func TestZstd_RejectsCorruptedInput(t *testing.T) {
	codec := NewZstdCompressor()
	_, err := codec.Decompress([]byte("definitely not a zstd frame"))
	require.Error(t, err)
}
