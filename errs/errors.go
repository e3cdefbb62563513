// Package errs defines the sentinel errors shared across conftab packages.
//
// Every structural validation failure wraps one of these sentinels with
// fmt.Errorf("%w: ...") so callers can match with errors.Is while still
// receiving the table/sheet/field context needed to diagnose the artifact
// without re-parsing it.
package errs

import "errors"

var (
	// ErrSchemaHashMismatch indicates the digest recomputed over the schemas
	// list disagrees with the header hash declared in the container.
	ErrSchemaHashMismatch = errors.New("schema hash mismatch")

	// ErrDuplicateSheet indicates two schemas (or two data blocks) share the
	// same (table, sheet) identity.
	ErrDuplicateSheet = errors.New("duplicate sheet")

	// ErrUnknownSheet indicates a data block or row references a
	// (table, sheet) pair absent from the declared schemas.
	ErrUnknownSheet = errors.New("unknown sheet")

	// ErrDuplicateFieldIndex indicates two fields in one sheet share a slot index.
	ErrDuplicateFieldIndex = errors.New("duplicate field index")

	// ErrDuplicateFieldName indicates two fields in one sheet share a name.
	ErrDuplicateFieldName = errors.New("duplicate field name")

	// ErrUnknownFieldType indicates a field's type name is not registered.
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrTruncatedRecord indicates a record carries fewer values than its
	// schema requires at a field's slot.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrExcessValues indicates a record carries more values than its schema
	// allows at a field's slot. Trailing padding is rejected, not ignored.
	ErrExcessValues = errors.New("excess values in record")

	// ErrKeyFieldMissing indicates a sheet's meta key does not name a usable
	// scalar field declared in the sheet.
	ErrKeyFieldMissing = errors.New("key field missing")

	// ErrValueTypeMismatch indicates a value supplied to the encoder does not
	// match the registered codec for its field type.
	ErrValueTypeMismatch = errors.New("value type mismatch")

	// ErrInvalidContainer indicates the byte buffer does not parse as a
	// well-formed container.
	ErrInvalidContainer = errors.New("invalid container")

	// ErrInvalidVersion indicates the container version is not x.y.z text.
	ErrInvalidVersion = errors.New("invalid container version")

	// ErrInvalidCompression indicates an unsupported compression type.
	ErrInvalidCompression = errors.New("invalid compression type")
)
