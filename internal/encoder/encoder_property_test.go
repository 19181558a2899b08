package encoder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/colport/colport/internal/schema"
	"github.com/colport/colport/pkg/types"
)

// genCell produces any encodable scalar, nulls included. Times are clamped
// to the UnixNano-representable range and generated in UTC.
func genCell() gopter.Gen {
	return gen.OneGenOf(
		gen.Const(types.Null()),
		gen.Bool().Map(func(b bool) types.Value { return types.Bool(b) }),
		gen.Int64().Map(func(i int64) types.Value { return types.Int(i) }),
		gen.Float64Range(-1e12, 1e12).Map(func(f float64) types.Value { return types.Float(f) }),
		gen.AnyString().Map(func(s string) types.Value { return types.String(s) }),
		gen.Int64Range(0, 4_000_000_000_000_000_000).Map(func(n int64) types.Value {
			return types.Time(time.Unix(0, n).UTC())
		}),
	)
}

func TestProperty_RoundTripPreservesSingleColumn(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	tmpDir := t.TempDir()
	counter := 0

	properties.Property("write then read returns the same cells for a uniform column", prop.ForAll(
		func(strs []string, withNulls bool) bool {
			rs := &types.ResultSet{Columns: []string{"v"}}
			for i, s := range strs {
				cell := types.String(s)
				if withNulls && i%3 == 0 {
					cell = types.Null()
				}
				rs.Rows = append(rs.Rows, types.Row{cell})
			}

			sch, err := schema.Infer(rs)
			if err != nil {
				return false
			}

			counter++
			path := filepath.Join(tmpDir, "prop", "a"+string(rune('0'+counter%10))+".cpa")
			if err := Write(rs, sch, path); err != nil {
				return false
			}
			back, backSch, err := Read(path)
			if err != nil {
				return false
			}
			if !sch.Equal(backSch) || back.RowCount() != rs.RowCount() {
				return false
			}
			for i := range rs.Rows {
				if !back.Rows[i][0].Equal(rs.Rows[i][0]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_RoundTripPreservesMixedKindColumns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	tmpDir := t.TempDir()
	counter := 0

	properties.Property("any inferable result set survives a round trip after widening", prop.ForAll(
		func(cells []types.Value) bool {
			rs := &types.ResultSet{Columns: []string{"v"}}
			for _, c := range cells {
				rs.Rows = append(rs.Rows, types.Row{c})
			}

			sch, err := schema.Infer(rs)
			if err != nil {
				// Conflicting kinds are inference's concern, not the encoder's
				return true
			}

			counter++
			path := filepath.Join(tmpDir, "mixed", "b"+string(rune('0'+counter%10))+".cpa")
			if err := Write(rs, sch, path); err != nil {
				return false
			}
			back, _, err := Read(path)
			if err != nil {
				return false
			}
			if back.RowCount() != rs.RowCount() {
				return false
			}
			for i, row := range rs.Rows {
				want := row[0]
				if !want.IsNull() {
					widened, ok := types.Coerce(want, sch.Columns[0].Type)
					if !ok {
						return false
					}
					want = widened
				}
				if !back.Rows[i][0].Equal(want) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genCell()),
	))

	properties.TestingRun(t)
}
