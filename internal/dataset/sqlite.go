package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteProvider reads and writes tables in a SQLite database file.
// WriteTable replaces the table, mirroring a materialised warehouse table.
type SQLiteProvider struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps the pragmas below in effect
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}
	return &SQLiteProvider{db: db}, nil
}

// Close closes the database.
func (p *SQLiteProvider) Close() error { return p.db.Close() }

// ReadTable selects every row of the table in rowid order.
func (p *SQLiteProvider) ReadTable(ctx context.Context, name string) (*Table, error) {
	var found string
	err := p.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", quoteIdent(name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// WriteTable drops and recreates the table in one transaction. Column types
// are taken from the first non-null value of each column.
func (p *SQLiteProvider) WriteTable(ctx context.Context, name string, table *Table) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return err
	}
	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		defs[i] = quoteIdent(col) + " " + columnType(table, col)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	if len(table.Rows) > 0 {
		cols := make([]string, len(table.Columns))
		marks := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			cols[i] = quoteIdent(col)
			marks[i] = "?"
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(name), strings.Join(cols, ", "), strings.Join(marks, ", ")))
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := make([]any, len(table.Columns))
		for _, row := range table.Rows {
			for i, col := range table.Columns {
				args[i], _ = row.Lookup(col)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert into %s: %w", name, err)
			}
		}
	}
	return tx.Commit()
}

func columnType(table *Table, col string) string {
	for _, row := range table.Rows {
		v, _ := row.Lookup(col)
		switch v.(type) {
		case nil:
			continue
		case int, int32, int64:
			return "INTEGER"
		case float32, float64:
			return "REAL"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
