package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitymatch/internal/domain"
	"entitymatch/internal/tfidf"
)

type fakeLookup struct {
	vec     *tfidf.Vectorizer
	hits    []domain.ScoredRecord
	err     error
	queries []string
}

func (f *fakeLookup) Size() int { return 2 }

func (f *fakeLookup) Query(text string, topK int) ([]domain.ScoredRecord, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeLookup) Terms(text string) []string {
	if f.vec == nil {
		return nil
	}
	return f.vec.Terms(text)
}

func (f *fakeLookup) Spans(text string) []domain.TermSpan {
	if f.vec == nil {
		return nil
	}
	return f.vec.Spans(text)
}

func typeAndSubmit(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func TestQueryAndNavigate(t *testing.T) {
	lookup := &fakeLookup{hits: []domain.ScoredRecord{
		{Record: domain.Record{ID: "1", Text: "ALPHA CORP"}, Position: 1, Score: 0.9},
		{Record: domain.Record{ID: "2", Text: "BETA INC"}, Position: 2, Score: 0.1},
	}}
	m := New(lookup, 5)
	assert.Equal(t, "2 master records loaded", m.summary)

	m = typeAndSubmit(m, "ALPHA")
	require.Equal(t, []string{"ALPHA"}, lookup.queries)
	assert.Len(t, m.results, 2)
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.status, "2 matches")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderResults(), "Row 2  id=2")
}

func TestQueryError(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("boom")}
	m := typeAndSubmit(New(lookup, 5), "x")
	assert.Equal(t, "Error: boom", m.status)
	assert.Nil(t, m.results)
	assert.Equal(t, "No results yet.", m.renderResults())
}

func TestViewBeforeResize(t *testing.T) {
	m := New(&fakeLookup{}, 0)
	assert.Equal(t, 10, m.topK)
	assert.Equal(t, "Loading...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, next.View(), "Entity Match")
}

func TestSharedMask(t *testing.T) {
	vec, err := tfidf.Fit([]string{"ALPHA CORP", "BETA INC"})
	require.NoError(t, err)
	m := typeAndSubmit(New(&fakeLookup{vec: vec}, 5), "CORPORATE")

	assert.Equal(t, []bool{false, false, false, false, false, false, true, true, true, true}, m.sharedMask("ALPHA CORP"))
	assert.Nil(t, m.sharedMask("BETA INC"))
	assert.Equal(t, "BETA INC", m.highlightShared("BETA INC"))
}

func TestSharedMaskFollowsNormalisation(t *testing.T) {
	vec, err := tfidf.Fit([]string{"ALPHA CORP", "BETA INC"}, tfidf.WithLowercase(true))
	require.NoError(t, err)
	m := typeAndSubmit(New(&fakeLookup{vec: vec}, 5), "alpha")

	// The query is lower case; the stored text is not.
	mask := m.sharedMask("ALPHA  CORP")
	require.Len(t, mask, 11)
	assert.Equal(t, []bool{true, true, true, true, true, false, false, false, false, false, false}, mask)
	assert.Contains(t, m.highlightShared("ALPHA  CORP"), "CORP")
}

func TestSharedMaskBeforeQuery(t *testing.T) {
	vec, err := tfidf.Fit([]string{"ALPHA CORP"})
	require.NoError(t, err)
	m := New(&fakeLookup{vec: vec}, 5)
	assert.Nil(t, m.sharedMask("ALPHA CORP"))
}
