// Package schema derives a single column schema from a materialized
// result set.
package schema

import (
	"fmt"

	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/pkg/types"
)

// Infer scans every row of the result set and assigns each column position
// one logical type, widening along bool -> int -> float. A column whose
// non-null values cannot share one type fails with a SCHEMA error rather
// than being silently stringified. Columns that never carry a non-null
// value (including every column of a zero-row result) fall back to
// nullable string.
func Infer(rs *types.ResultSet) (types.Schema, error) {
	cols := make([]types.ColumnDef, len(rs.Columns))

	kinds := make([]types.Kind, len(rs.Columns))
	nullable := make([]bool, len(rs.Columns))
	for i := range kinds {
		kinds[i] = types.KindNull
	}

	for rowIdx, row := range rs.Rows {
		if len(row) != len(rs.Columns) {
			return types.Schema{}, colerrors.NewSchemaError(colerrors.CodeArityMismatch,
				fmt.Sprintf("row %d has %d values, expected %d", rowIdx, len(row), len(rs.Columns)))
		}
		for colIdx, v := range row {
			if v.IsNull() {
				nullable[colIdx] = true
				continue
			}
			widened, ok := promote(kinds[colIdx], v.Kind())
			if !ok {
				return types.Schema{}, colerrors.NewSchemaError(colerrors.CodeTypeConflict,
					fmt.Sprintf("column %q: value of type %s at row %d conflicts with inferred type %s",
						rs.Columns[colIdx], v.Kind(), rowIdx, kinds[colIdx])).
					WithDetails(map[string]interface{}{
						"column":   rs.Columns[colIdx],
						"position": colIdx,
						"row":      rowIdx,
						"inferred": kinds[colIdx].String(),
						"observed": v.Kind().String(),
					})
			}
			kinds[colIdx] = widened
		}
	}

	for i, name := range rs.Columns {
		kind := kinds[i]
		if kind == types.KindNull {
			// No value ever observed for this position: deterministic
			// fallback to a nullable string column.
			kind = types.KindString
			nullable[i] = true
		}
		cols[i] = types.ColumnDef{Name: name, Type: kind, Nullable: nullable[i]}
	}

	return types.Schema{Columns: cols}, nil
}

// promote returns the widest of two kinds. Null promotes to anything.
// Bool, int, and float widen among themselves; string and time only
// combine with themselves (and null).
func promote(a, b types.Kind) (types.Kind, bool) {
	if a == types.KindNull {
		return b, true
	}
	if b == types.KindNull {
		return a, true
	}
	if a == b {
		return a, true
	}
	if isNumeric(a) && isNumeric(b) {
		if a > b {
			return a, true
		}
		return b, true
	}
	return types.KindNull, false
}

// isNumeric reports whether the kind participates in numeric widening.
func isNumeric(k types.Kind) bool {
	return k == types.KindBool || k == types.KindInt || k == types.KindFloat
}
