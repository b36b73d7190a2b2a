package dataset

import (
	"fmt"
	"strconv"

	"entitymatch/internal/domain"
)

// Records converts table rows into records. Column names are resolved
// against table.Columns first. A row whose id or text column is missing or
// null fails with *domain.InvalidRecordError.
func Records(table *Table, idColumn, textColumn string) ([]domain.Record, error) {
	if name, ok := table.Column(idColumn); ok {
		idColumn = name
	}
	if name, ok := table.Column(textColumn); ok {
		textColumn = name
	}
	out := make([]domain.Record, 0, table.Len())
	for i, row := range table.Rows {
		id, ok := row.Lookup(idColumn)
		if !ok || id == nil {
			return nil, &domain.InvalidRecordError{Row: i, Field: idColumn}
		}
		text, ok := row.Lookup(textColumn)
		if !ok || text == nil {
			return nil, &domain.InvalidRecordError{Row: i, Field: textColumn}
		}
		out = append(out, domain.Record{ID: format(id), Text: format(text)})
	}
	return out, nil
}

// IndexTable builds the index output table.
func IndexTable(entries []domain.IndexEntry) *Table {
	t := &Table{
		Columns: []string{domain.ColumnID, domain.ColumnText, domain.ColumnPosition},
		Rows:    make([]Row, len(entries)),
	}
	for i, e := range entries {
		t.Rows[i] = Row{
			domain.ColumnID:       e.ID,
			domain.ColumnText:     e.Text,
			domain.ColumnPosition: int64(e.Position),
		}
	}
	return t
}

// MatchTable builds the match output table.
func MatchTable(results []domain.MatchResult) *Table {
	t := &Table{
		Columns: []string{
			domain.ColumnNewEntityID,
			domain.ColumnNewText,
			domain.ColumnMatchedID,
			domain.ColumnMatchedText,
			domain.ColumnMatchScore,
		},
		Rows: make([]Row, len(results)),
	}
	for i, r := range results {
		t.Rows[i] = Row{
			domain.ColumnNewEntityID: r.CandidateID,
			domain.ColumnNewText:     r.CandidateText,
			domain.ColumnMatchedID:   r.MatchedID,
			domain.ColumnMatchedText: r.MatchedText,
			domain.ColumnMatchScore:  r.Score,
		}
	}
	return t
}

// format renders a scalar cell as text. Integers keep base 10 and floats use
// the shortest representation that round-trips.
func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
