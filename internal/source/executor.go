package source

import (
	"context"
	"fmt"
	"time"

	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/pkg/types"
)

// Execute runs a query on the connection and materializes the full result
// set in memory. The cursor is released on every path, success or failure.
// A zero-row result is valid and still carries the declared column names.
func Execute(ctx context.Context, conn *Connection, query string) (*types.ResultSet, error) {
	if conn == nil || conn.db == nil || conn.closed {
		return nil, colerrors.NewConnectionError(colerrors.CodeNotOpen,
			"connection is not open", nil)
	}

	rows, err := conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, colerrors.NewQueryError(colerrors.CodeQueryRejected,
			"query rejected by source database", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, colerrors.NewQueryError(colerrors.CodeColumnMetadata,
			"failed to read column metadata", err)
	}

	rs := &types.ResultSet{Columns: cols}

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, colerrors.NewQueryError(colerrors.CodeRowScanFailed,
				"failed to scan row", err)
		}

		row := make(types.Row, len(cols))
		for i, v := range values {
			cell, err := fromDriverValue(v)
			if err != nil {
				return nil, colerrors.NewQueryError(colerrors.CodeRowScanFailed,
					fmt.Sprintf("column %q: %v", cols[i], err), err)
			}
			row[i] = cell
		}
		rs.Rows = append(rs.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, colerrors.NewQueryError(colerrors.CodeQueryRejected,
			"query failed during iteration", err)
	}

	return rs, nil
}

// fromDriverValue converts a database/sql scan result into a tagged value.
// With untyped scan targets the standard library only produces the types
// handled here.
func fromDriverValue(v any) (types.Value, error) {
	switch val := v.(type) {
	case nil:
		return types.Null(), nil
	case bool:
		return types.Bool(val), nil
	case int64:
		return types.Int(val), nil
	case float64:
		return types.Float(val), nil
	case []byte:
		return types.String(string(val)), nil
	case string:
		return types.String(val), nil
	case time.Time:
		return types.Time(val), nil
	default:
		return types.Value{}, fmt.Errorf("unsupported driver value type %T", v)
	}
}
