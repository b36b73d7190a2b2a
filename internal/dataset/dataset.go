// Package dataset reads and writes named tables, standing in for the
// warehouse that owns the master, candidate, index and result tables.
package dataset

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrTableNotFound is returned when reading a table that does not exist.
var ErrTableNotFound = errors.New("table not found")

// Row maps column names to values. A nil value is a SQL NULL.
type Row map[string]any

// Lookup returns the value of column, matching the name exactly first and
// case-insensitively otherwise. When several keys match case-insensitively
// the lexically smallest wins. ok is false when no such column exists.
func (r Row) Lookup(column string) (value any, ok bool) {
	if v, ok := r[column]; ok {
		return v, true
	}
	var keys []string
	for k := range r {
		if strings.EqualFold(k, column) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	return r[keys[0]], true
}

// Table is a materialised dataset.
type Table struct {
	Columns []string
	Rows    []Row
}

// Column resolves name against t.Columns: the exact name if present,
// otherwise the first column, in table order, equal under case folding.
func (t *Table) Column(name string) (string, bool) {
	for _, c := range t.Columns {
		if c == name {
			return c, true
		}
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Provider reads and writes tables.
type Provider interface {
	// ReadTable loads a whole table.
	ReadTable(ctx context.Context, name string) (*Table, error)
	// WriteTable replaces a table with the given contents.
	WriteTable(ctx context.Context, name string, table *Table) error
}
