package tabular

// Table is an ordered set of named columns with a uniform row count.
// Column names are unique; consumers treat a Table as read-only.
type Table struct {
	Columns []Column
}

type Column struct {
	Name   string
	Values []any
}

func NewTable(names []string, rows [][]any) Table {
	columns := make([]Column, len(names))
	for i, name := range names {
		values := make([]any, 0, len(rows))
		for _, row := range rows {
			if i < len(row) {
				values = append(values, row[i])
			} else {
				values = append(values, nil)
			}
		}
		columns[i] = Column{Name: name, Values: values}
	}
	return Table{Columns: columns}
}

func (t Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

func (t Table) NumColumns() int {
	return len(t.Columns)
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, column := range t.Columns {
		names[i] = column.Name
	}
	return names
}

func (t Table) Lookup(name string) (Column, bool) {
	for _, column := range t.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

func (t Table) HasColumn(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Project returns a table holding only the named columns, in the given order.
// Unknown names are skipped.
func (t Table) Project(names ...string) Table {
	projected := Table{}
	for _, name := range names {
		if column, ok := t.Lookup(name); ok {
			projected.Columns = append(projected.Columns, column)
		}
	}
	return projected
}

// Truncate returns the first n rows and whether anything was dropped.
func (t Table) Truncate(n int) (Table, bool) {
	if n <= 0 || t.NumRows() <= n {
		return t, false
	}
	truncated := Table{Columns: make([]Column, len(t.Columns))}
	for i, column := range t.Columns {
		truncated.Columns[i] = Column{Name: column.Name, Values: column.Values[:n]}
	}
	return truncated, true
}

// Clone deep-copies the column slices so callers can rewrite values safely.
func (t Table) Clone() Table {
	cloned := Table{Columns: make([]Column, len(t.Columns))}
	for i, column := range t.Columns {
		values := make([]any, len(column.Values))
		copy(values, column.Values)
		cloned.Columns[i] = Column{Name: column.Name, Values: values}
	}
	return cloned
}

// Row materializes row i across all columns.
func (t Table) Row(i int) []any {
	row := make([]any, len(t.Columns))
	for c, column := range t.Columns {
		if i < len(column.Values) {
			row[c] = column.Values[i]
		}
	}
	return row
}
