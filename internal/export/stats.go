package export

import (
	"fmt"

	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/pkg/types"
)

// ColumnStats holds summary statistics for one exported column. Min and Max
// are formatted values; they are nil when every value in the column is null.
type ColumnStats struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	NullCount int64   `json:"null_count"`
	Min       *string `json:"min,omitempty"`
	Max       *string `json:"max,omitempty"`
}

// StatsTracker computes per-column null counts and min/max while rows
// stream through an export.
type StatsTracker struct {
	schema types.Schema

	nullCounts []int64
	mins       []types.Value
	maxs       []types.Value
	hasValue   []bool
}

// NewStatsTracker creates a tracker for the given schema.
func NewStatsTracker(schema types.Schema) *StatsTracker {
	n := len(schema.Columns)
	return &StatsTracker{
		schema:     schema,
		nullCounts: make([]int64, n),
		mins:       make([]types.Value, n),
		maxs:       make([]types.Value, n),
		hasValue:   make([]bool, n),
	}
}

// Update folds one row into the statistics. The row must match the
// tracker's schema arity; values are widened to the column type before
// comparison.
func (s *StatsTracker) Update(row types.Row) error {
	for i, v := range row {
		if v.IsNull() {
			s.nullCounts[i]++
			continue
		}

		widened, ok := types.Coerce(v, s.schema.Columns[i].Type)
		if !ok {
			return colerrors.NewEncodingError(colerrors.CodeKindMismatch,
				fmt.Sprintf("column %q: %s value does not fit %s",
					s.schema.Columns[i].Name, v.Kind(), s.schema.Columns[i].Type))
		}

		if !s.hasValue[i] {
			s.mins[i] = widened
			s.maxs[i] = widened
			s.hasValue[i] = true
			continue
		}
		if widened.Less(s.mins[i]) {
			s.mins[i] = widened
		}
		if s.maxs[i].Less(widened) {
			s.maxs[i] = widened
		}
	}
	return nil
}

// Collect returns the accumulated statistics in schema column order.
func (s *StatsTracker) Collect() []ColumnStats {
	stats := make([]ColumnStats, len(s.schema.Columns))
	for i, col := range s.schema.Columns {
		cs := ColumnStats{
			Name:      col.Name,
			Type:      col.Type.String(),
			NullCount: s.nullCounts[i],
		}
		if s.hasValue[i] {
			min := s.mins[i].Format()
			max := s.maxs[i].Format()
			cs.Min = &min
			cs.Max = &max
		}
		stats[i] = cs
	}
	return stats
}
