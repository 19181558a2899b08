package types

// Schema describes the single logical type of every column position in a
// result set. It is fixed once by inference before encoding begins.
type Schema struct {
	// Columns defines the columns in positional order.
	Columns []ColumnDef `json:"columns"`
}

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column name, taken verbatim from the result set.
	Name string `json:"name"`

	// Type is the logical type every non-null value in the column carries
	// after widening.
	Type Kind `json:"type"`

	// Nullable indicates whether the column contains NULL values.
	Nullable bool `json:"nullable"`
}

// ColumnNames returns the column names in positional order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Equal reports whether two schemas have identical columns in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.Columns) != len(o.Columns) {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}
