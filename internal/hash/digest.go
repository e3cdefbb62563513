package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sum computes the xxHash64 digest of data, rendered as 16 lowercase hex digits.
//
// This is the header hash function for the container format: the encoder
// computes it over the canonical serialization of the schemas list, and the
// decoder recomputes it with the same function before any row is decoded.
func Sum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
