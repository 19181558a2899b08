package types

// Row is an ordered, fixed-arity sequence of scalar values. All rows from
// one query execution share the same arity and positional column identity.
type Row []Value

// ResultSet holds the fully materialized output of one query execution:
// the declared column names plus every row, in server order. It is built
// once and never mutated.
type ResultSet struct {
	// Columns are the declared column names, in positional order.
	// Duplicate names are preserved as-is.
	Columns []string `json:"columns"`

	// Rows are the result rows in the order the server produced them.
	Rows []Row `json:"rows"`
}

// RowCount returns the number of rows in the result set.
func (rs *ResultSet) RowCount() int {
	return len(rs.Rows)
}

// Arity returns the number of columns in the result set.
func (rs *ResultSet) Arity() int {
	return len(rs.Columns)
}
