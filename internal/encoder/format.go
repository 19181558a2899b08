// Package encoder serializes result sets into the Colport columnar
// artifact format and reads them back.
//
// Artifact layout:
//
//	magic "CPA1"
//	uint32 LE header length, then the JSON header
//	one block per column, in schema order
//
// Each block is framed as uint32 LE compressed length, uint64 LE murmur3
// checksum of the compressed bytes, then the snappy-compressed payload.
// The payload holds a null bitmap (one bit per row, LSB first) followed by
// the non-null values in row order. The embedded header makes the artifact
// self-describing: column names, logical types, and row count can all be
// recovered without the originating query or database.
package encoder

import (
	"github.com/colport/colport/pkg/types"
)

// Magic identifies a Colport artifact.
const Magic = "CPA1"

// FormatVersion is the current artifact format version.
const FormatVersion = 1

// maxHeaderLen bounds the JSON header when reading, so a corrupt length
// field cannot trigger an enormous allocation.
const maxHeaderLen = 64 << 20

// fileHeader is the JSON metadata embedded after the magic.
type fileHeader struct {
	Version  int               `json:"version"`
	RowCount int               `json:"row_count"`
	Columns  []types.ColumnDef `json:"columns"`
}
