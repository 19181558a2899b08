package encoder

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/pkg/types"
)

// Read decodes an artifact back into a result set and its schema, proving
// the file is self-describing: no external context is needed. Block
// checksums are verified before decompression. Times are returned in UTC.
func Read(path string) (*types.ResultSet, types.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.Schema{}, colerrors.NewIOError(colerrors.CodeReadFailed,
			fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, types.Schema{}, colerrors.NewIOError(colerrors.CodeReadFailed,
			"failed to read magic", err)
	}
	if string(magic) != Magic {
		return nil, types.Schema{}, colerrors.NewEncodingError(colerrors.CodeBadMagic,
			fmt.Sprintf("not a colport artifact: magic %q", magic))
	}

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, types.Schema{}, colerrors.NewIOError(colerrors.CodeReadFailed,
			"failed to read header length", err)
	}
	if headerLen > maxHeaderLen {
		return nil, types.Schema{}, colerrors.NewEncodingError(colerrors.CodeCorruptBlock,
			fmt.Sprintf("header length %d exceeds limit", headerLen))
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return nil, types.Schema{}, colerrors.NewIOError(colerrors.CodeReadFailed,
			"failed to read header", err)
	}

	var header fileHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, types.Schema{}, colerrors.NewEncodingError(colerrors.CodeCorruptBlock,
			fmt.Sprintf("failed to parse header: %v", err))
	}
	if header.Version != FormatVersion {
		return nil, types.Schema{}, colerrors.NewEncodingError(colerrors.CodeUnsupportedVersion,
			fmt.Sprintf("unsupported artifact version %d", header.Version))
	}

	sch := types.Schema{Columns: header.Columns}
	rs := &types.ResultSet{Columns: sch.ColumnNames()}

	rs.Rows = make([]types.Row, header.RowCount)
	for i := range rs.Rows {
		rs.Rows[i] = make(types.Row, len(sch.Columns))
	}

	for colIdx, col := range sch.Columns {
		payload, err := readBlock(f, col.Name)
		if err != nil {
			return nil, types.Schema{}, err
		}
		if err := decodeColumn(payload, rs, colIdx, col, header.RowCount); err != nil {
			return nil, types.Schema{}, err
		}
	}

	return rs, sch, nil
}

// readBlock reads one framed column block and returns the decompressed payload.
func readBlock(r io.Reader, colName string) ([]byte, error) {
	var compressedLen uint32
	if err := binary.Read(r, binary.LittleEndian, &compressedLen); err != nil {
		return nil, colerrors.NewIOError(colerrors.CodeReadFailed,
			fmt.Sprintf("failed to read block frame for column %q", colName), err)
	}

	var checksum uint64
	if err := binary.Read(r, binary.LittleEndian, &checksum); err != nil {
		return nil, colerrors.NewIOError(colerrors.CodeReadFailed,
			fmt.Sprintf("failed to read block checksum for column %q", colName), err)
	}

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, colerrors.NewIOError(colerrors.CodeReadFailed,
			fmt.Sprintf("failed to read block for column %q", colName), err)
	}

	if murmur3.Sum64(compressed) != checksum {
		return nil, colerrors.NewEncodingError(colerrors.CodeChecksumMismatch,
			fmt.Sprintf("checksum mismatch in column %q", colName))
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, colerrors.NewEncodingError(colerrors.CodeCorruptBlock,
			fmt.Sprintf("failed to decompress column %q: %v", colName, err))
	}
	return payload, nil
}

// decodeColumn fills column colIdx of every row from one block payload.
func decodeColumn(payload []byte, rs *types.ResultSet, colIdx int, col types.ColumnDef, rowCount int) error {
	bitmapLen := (rowCount + 7) / 8
	if len(payload) < bitmapLen {
		return colerrors.NewEncodingError(colerrors.CodeCorruptBlock,
			fmt.Sprintf("column %q: block shorter than null bitmap", col.Name))
	}
	bitmap := payload[:bitmapLen]
	r := bytes.NewReader(payload[bitmapLen:])

	for rowIdx := 0; rowIdx < rowCount; rowIdx++ {
		if bitmap[rowIdx>>3]&(1<<(rowIdx&7)) != 0 {
			rs.Rows[rowIdx][colIdx] = types.Null()
			continue
		}

		v, err := readValue(r, col.Type)
		if err != nil {
			return colerrors.NewEncodingError(colerrors.CodeCorruptBlock,
				fmt.Sprintf("column %q row %d: %v", col.Name, rowIdx, err))
		}
		rs.Rows[rowIdx][colIdx] = v
	}

	return nil
}

// readValue decodes one scalar of the given kind.
func readValue(r *bytes.Reader, kind types.Kind) (types.Value, error) {
	switch kind {
	case types.KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return types.Value{}, err
		}
		return types.Bool(b != 0), nil
	case types.KindInt:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return types.Value{}, err
		}
		return types.Int(int64(binary.LittleEndian.Uint64(buf[:]))), nil
	case types.KindFloat:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return types.Value{}, err
		}
		return types.Float(math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))), nil
	case types.KindString:
		strLen, err := binary.ReadUvarint(r)
		if err != nil {
			return types.Value{}, err
		}
		if strLen > uint64(r.Len()) {
			return types.Value{}, fmt.Errorf("string length %d exceeds remaining block", strLen)
		}
		buf := make([]byte, strLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return types.Value{}, err
		}
		return types.String(string(buf)), nil
	case types.KindTime:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return types.Value{}, err
		}
		nanos := int64(binary.LittleEndian.Uint64(buf[:]))
		return types.Time(time.Unix(0, nanos).UTC()), nil
	default:
		return types.Value{}, fmt.Errorf("undecodable kind %s", kind)
	}
}
