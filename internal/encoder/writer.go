package encoder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/pkg/types"
)

// Write transposes the result set into column-major blocks and serializes
// them to outputPath. Parent directories are created as needed and an
// existing file at the path is replaced without warning. A failure partway
// through may leave a partial file behind; callers needing atomicity
// should write to a temporary path and rename on success.
func Write(rs *types.ResultSet, sch types.Schema, outputPath string) error {
	if len(sch.Columns) != len(rs.Columns) {
		return colerrors.NewEncodingError(colerrors.CodeKindMismatch,
			fmt.Sprintf("schema has %d columns, result set has %d", len(sch.Columns), len(rs.Columns)))
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return colerrors.NewIOError(colerrors.CodeCreateFailed,
				fmt.Sprintf("failed to create output directory %s", dir), err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return colerrors.NewIOError(colerrors.CodeCreateFailed,
			fmt.Sprintf("failed to create %s", outputPath), err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if _, err := w.WriteString(Magic); err != nil {
		return colerrors.NewIOError(colerrors.CodeWriteFailed, "failed to write magic", err)
	}

	header := fileHeader{
		Version:  FormatVersion,
		RowCount: rs.RowCount(),
		Columns:  sch.Columns,
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return colerrors.NewInternalError("failed to marshal artifact header", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(headerJSON))); err != nil {
		return colerrors.NewIOError(colerrors.CodeWriteFailed, "failed to write header length", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return colerrors.NewIOError(colerrors.CodeWriteFailed, "failed to write header", err)
	}

	// Row-major to column-major transposition happens here: each column is
	// encoded as one contiguous block, rows in original order.
	for colIdx, col := range sch.Columns {
		payload, err := encodeColumn(rs, colIdx, col)
		if err != nil {
			return err
		}

		compressed := snappy.Encode(nil, payload)
		checksum := murmur3.Sum64(compressed)

		if err := binary.Write(w, binary.LittleEndian, uint32(len(compressed))); err != nil {
			return colerrors.NewIOError(colerrors.CodeWriteFailed,
				fmt.Sprintf("failed to write block frame for column %q", col.Name), err)
		}
		if err := binary.Write(w, binary.LittleEndian, checksum); err != nil {
			return colerrors.NewIOError(colerrors.CodeWriteFailed,
				fmt.Sprintf("failed to write block checksum for column %q", col.Name), err)
		}
		if _, err := w.Write(compressed); err != nil {
			return colerrors.NewIOError(colerrors.CodeWriteFailed,
				fmt.Sprintf("failed to write block for column %q", col.Name), err)
		}
	}

	if err := w.Flush(); err != nil {
		return colerrors.NewIOError(colerrors.CodeWriteFailed, "failed to flush artifact", err)
	}
	if err := f.Close(); err != nil {
		return colerrors.NewIOError(colerrors.CodeWriteFailed, "failed to close artifact", err)
	}

	return nil
}

// encodeColumn builds the uncompressed block payload for one column:
// null bitmap first, then the non-null values in row order.
func encodeColumn(rs *types.ResultSet, colIdx int, col types.ColumnDef) ([]byte, error) {
	n := rs.RowCount()
	bitmap := make([]byte, (n+7)/8)

	var values bytes.Buffer
	scratch := make([]byte, binary.MaxVarintLen64)

	for rowIdx, row := range rs.Rows {
		v := row[colIdx]
		if v.IsNull() {
			bitmap[rowIdx>>3] |= 1 << (rowIdx & 7)
			continue
		}

		coerced, ok := types.Coerce(v, col.Type)
		if !ok {
			// Unreachable when inference ran over the same result set.
			return nil, colerrors.NewEncodingError(colerrors.CodeKindMismatch,
				fmt.Sprintf("column %q row %d: %s value cannot be encoded as %s",
					col.Name, rowIdx, v.Kind(), col.Type))
		}

		switch col.Type {
		case types.KindBool:
			b := byte(0)
			if coerced.BoolVal() {
				b = 1
			}
			values.WriteByte(b)
		case types.KindInt:
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(coerced.IntVal()))
			values.Write(buf[:])
		case types.KindFloat:
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(coerced.FloatVal()))
			values.Write(buf[:])
		case types.KindString:
			s := coerced.StringVal()
			nLen := binary.PutUvarint(scratch, uint64(len(s)))
			values.Write(scratch[:nLen])
			values.WriteString(s)
		case types.KindTime:
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(coerced.TimeVal().UnixNano()))
			values.Write(buf[:])
		default:
			return nil, colerrors.NewEncodingError(colerrors.CodeKindMismatch,
				fmt.Sprintf("column %q has unencodable type %s", col.Name, col.Type))
		}
	}

	payload := make([]byte, 0, len(bitmap)+values.Len())
	payload = append(payload, bitmap...)
	payload = append(payload, values.Bytes()...)
	return payload, nil
}
