package dataset

import (
	"context"
	"fmt"
	"sync"
)

// MemoryProvider keeps tables in memory.
type MemoryProvider struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{tables: make(map[string]*Table)}
}

// ReadTable returns a copy of the named table.
func (p *MemoryProvider) ReadTable(_ context.Context, name string) (*Table, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return cloneTable(t), nil
}

// WriteTable stores a copy of table under name.
func (p *MemoryProvider) WriteTable(_ context.Context, name string, table *Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables[name] = cloneTable(table)
	return nil
}

func cloneTable(t *Table) *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		row := make(Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		out.Rows[i] = row
	}
	return out
}
