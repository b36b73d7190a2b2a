package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// CSVProvider stores each table as <dir>/<name>.csv with a header row.
// CSV cannot express NULL: every present cell reads as a string.
type CSVProvider struct {
	dir string
	mu  sync.RWMutex
}

// NewCSVProvider creates a provider rooted at dir, creating it if needed.
func NewCSVProvider(dir string) (*CSVProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	return &CSVProvider{dir: dir}, nil
}

func (p *CSVProvider) path(name string) (string, error) {
	file := name + ".csv"
	if !filepath.IsLocal(file) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return filepath.Join(p.dir, file), nil
}

// ReadTable parses the table file.
func (p *CSVProvider) ReadTable(_ context.Context, name string) (*Table, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	path, err := p.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	t := &Table{Columns: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteTable writes the table to a temporary file and renames it into place.
func (p *CSVProvider) WriteTable(_ context.Context, name string, table *Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	path, err := p.path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(p.dir, ".tmp-"+name+"-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(table.Columns); err != nil {
		_ = tmp.Close()
		return err
	}
	rec := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			v, ok := row.Lookup(col)
			if !ok || v == nil {
				rec[i] = ""
				continue
			}
			rec[i] = format(v)
		}
		if err := w.Write(rec); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
