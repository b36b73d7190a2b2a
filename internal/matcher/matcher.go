// Package matcher finds, for each candidate record, the most similar master
// record under character n-gram TF-IDF cosine similarity.
package matcher

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"entitymatch/internal/domain"
	"entitymatch/internal/sparse"
	"entitymatch/internal/tfidf"
)

// Matcher holds a fitted master index. It is read-only after New and safe
// for concurrent use.
type Matcher struct {
	master     []domain.Record
	vectorizer *tfidf.Vectorizer
	matrix     *sparse.Matrix
	postings   *sparse.Postings
	workers    int
	batchSize  int
}

// Match fits a matcher on master and matches every candidate against it.
func Match(ctx context.Context, master, candidates []domain.Record, opts ...Option) ([]domain.MatchResult, error) {
	m, err := New(master, opts...)
	if err != nil {
		return nil, err
	}
	return m.Match(ctx, candidates)
}

// New builds a matcher over master. Unless a vectorizer is supplied, one is
// fitted on the master text.
func New(master []domain.Record, opts ...Option) (*Matcher, error) {
	if len(master) == 0 {
		return nil, domain.ErrEmptyMaster
	}
	o := buildOptions(opts)
	if o.fingerprint != "" && o.fingerprint != domain.Fingerprint(master) {
		return nil, fmt.Errorf("%w: master records differ from the ones the vectorizer was fitted on", domain.ErrStateMismatch)
	}
	texts := domain.Texts(master)

	vec := o.vectorizer
	matrix := o.matrix
	if vec == nil {
		fitted, err := tfidf.Fit(texts, o.tfidfOpts...)
		if err != nil {
			return nil, err
		}
		vec = fitted
		matrix = nil
	}
	if matrix == nil {
		matrix = vec.Transform(texts)
	}
	if matrix.Len() != len(master) {
		return nil, fmt.Errorf("%w: matrix has %d rows, master has %d records", domain.ErrStateMismatch, matrix.Len(), len(master))
	}
	if matrix.Cols != vec.Dimension() {
		return nil, fmt.Errorf("%w: matrix has %d columns, vocabulary has %d terms", domain.ErrStateMismatch, matrix.Cols, vec.Dimension())
	}

	records := make([]domain.Record, len(master))
	copy(records, master)
	return &Matcher{
		master:     records,
		vectorizer: vec,
		matrix:     matrix,
		postings:   sparse.NewPostings(matrix),
		workers:    o.workers,
		batchSize:  o.batchSize,
	}, nil
}

// Size returns the number of master records.
func (m *Matcher) Size() int { return len(m.master) }

// Vectorizer returns the fitted vectorizer.
func (m *Matcher) Vectorizer() *tfidf.Vectorizer { return m.vectorizer }

// Matrix returns the master document-term matrix.
func (m *Matcher) Matrix() *sparse.Matrix { return m.matrix }

// Match returns one result per candidate, in candidate order. Each candidate
// is paired with the first master record of maximal cosine similarity; a
// candidate sharing no n-gram with the master set is paired with the first
// master record at score 0.
func (m *Matcher) Match(ctx context.Context, candidates []domain.Record) ([]domain.MatchResult, error) {
	results := make([]domain.MatchResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for start := 0; start < len(candidates); start += m.batchSize {
		if gctx.Err() != nil {
			break
		}
		start := start
		end := min(start+m.batchSize, len(candidates))
		g.Go(func() error {
			return m.matchBatch(gctx, candidates[start:end], results[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (m *Matcher) matchBatch(ctx context.Context, candidates []domain.Record, out []domain.MatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	scores := make([]float64, m.postings.Rows())
	for i, c := range candidates {
		scores = m.postings.Scores(m.vectorizer.TransformOne(c.Text), scores)
		j, score := sparse.Argmax(scores)
		best := m.master[j]
		out[i] = domain.MatchResult{
			CandidateID:   c.ID,
			CandidateText: c.Text,
			MatchedID:     best.ID,
			MatchedText:   best.Text,
			Score:         clamp(score),
		}
	}
	return nil
}

// Lookup returns the topK master records most similar to text, best first.
// Equal scores keep master order.
func (m *Matcher) Lookup(text string, topK int) []domain.ScoredRecord {
	if topK <= 0 {
		topK = defaultTopK
	}
	scores := m.postings.Scores(m.vectorizer.TransformOne(text), nil)
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	out := make([]domain.ScoredRecord, 0, topK)
	for _, j := range idxs[:topK] {
		out = append(out, domain.ScoredRecord{Record: m.master[j], Position: j + 1, Score: clamp(scores[j])})
	}
	return out
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}

// clamp keeps rounding noise of unit-vector dot products inside [0, 1].
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
