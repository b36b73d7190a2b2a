// Package indexer fits the n-gram TF-IDF model on a master dataset and
// produces the index table rows.
package indexer

import (
	"context"

	"entitymatch/internal/artifact"
	"entitymatch/internal/domain"
	"entitymatch/internal/sparse"
	"entitymatch/internal/tfidf"
)

// Index is a fitted master dataset.
type Index struct {
	Entries    []domain.IndexEntry
	Vectorizer *tfidf.Vectorizer
	Matrix     *sparse.Matrix
}

// ArtifactWriter persists a fitted model.
type ArtifactWriter interface {
	Save(ctx context.Context, m *artifact.Model) error
}

// Build fits a vectorizer on the master text and numbers the records from 1.
func Build(master []domain.Record, opts ...tfidf.Option) (*Index, error) {
	vec, matrix, err := tfidf.FitTransform(domain.Texts(master), opts...)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.IndexEntry, len(master))
	for i, r := range master {
		entries[i] = domain.IndexEntry{ID: r.ID, Text: r.Text, Position: i + 1}
	}
	return &Index{Entries: entries, Vectorizer: vec, Matrix: matrix}, nil
}

// Records returns the indexed records in fit order.
func (idx *Index) Records() []domain.Record {
	out := make([]domain.Record, len(idx.Entries))
	for i, e := range idx.Entries {
		out[i] = domain.Record{ID: e.ID, Text: e.Text}
	}
	return out
}

// Fingerprint identifies the indexed records and their order.
func (idx *Index) Fingerprint() string {
	return domain.Fingerprint(idx.Records())
}

// Persist writes the vectorizer and the matrix through w, tagged with the
// index fingerprint.
func (idx *Index) Persist(ctx context.Context, w ArtifactWriter) error {
	return w.Save(ctx, &artifact.Model{
		Vectorizer:  idx.Vectorizer,
		Matrix:      idx.Matrix,
		Fingerprint: idx.Fingerprint(),
	})
}
