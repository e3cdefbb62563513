// Package compress provides the block compression codecs applied to sheet
// row payloads inside a container.
//
// Each sheet's encoded rows are compressed as a single block before the
// container is assembled, and decompressed as a single block when it is
// parsed. Compression never affects the schema section or the header hash.
package compress

import (
	"fmt"

	"github.com/arloliu/conftab/errs"
	"github.com/arloliu/conftab/format"
)

// Compressor compresses a sheet payload block.
//
// Memory management:
//   - Returned slice is newly allocated and owned by the caller
//   - Input slice is not modified
//   - Internal buffers may be reused for efficiency
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a sheet payload block compressed with the matching
// algorithm. It validates the input format and returns an error if the data
// is corrupted or was produced by an incompatible codec.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves the built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCompression, compressionType)
}
