// Package tfidf implements a character n-gram TF-IDF vectorizer.
//
// Rows produced by Transform are L2-normalised, so the cosine similarity of
// two rows is their dot product.
package tfidf

import (
	"fmt"
	"math"
	"sort"

	"entitymatch/internal/domain"
	"entitymatch/internal/sparse"
)

// Vectorizer maps text into a fitted n-gram vector space. It is immutable
// after Fit and safe for concurrent use.
type Vectorizer struct {
	opts       Options
	vocabulary map[string]int
	terms      []string
	idf        []float64
	documents  int
}

// Fit builds the vocabulary and IDF weights from corpus.
//
// IDF is smoothed as ln((1+N)/(1+df)) + 1, where N is the corpus size and df
// the number of documents containing the n-gram.
func Fit(corpus []string, opts ...Option) (*Vectorizer, error) {
	if len(corpus) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	o := buildOptions(opts)
	// Build vocabulary and document frequencies
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, gram := range ngrams(text, o) {
			if _, ok := seen[gram]; ok {
				continue
			}
			seen[gram] = struct{}{}
			df[gram]++
		}
	}
	terms := make([]string, 0, len(df))
	for term, n := range df {
		if n < o.MinDF {
			continue
		}
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vectorizer{
		opts:       o,
		vocabulary: make(map[string]int, len(terms)),
		terms:      terms,
		idf:        make([]float64, len(terms)),
		documents:  len(corpus),
	}
	N := float64(len(corpus))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
	}
	return v, nil
}

// FitTransform fits a vectorizer on corpus and transforms the same corpus.
func FitTransform(corpus []string, opts ...Option) (*Vectorizer, *sparse.Matrix, error) {
	v, err := Fit(corpus, opts...)
	if err != nil {
		return nil, nil, err
	}
	return v, v.Transform(corpus), nil
}

// Transform maps each document to an L2-normalised TF-IDF row.
func (v *Vectorizer) Transform(docs []string) *sparse.Matrix {
	m := &sparse.Matrix{Cols: len(v.terms), Rows: make([]sparse.Vector, len(docs))}
	for i, doc := range docs {
		m.Rows[i] = v.TransformOne(doc)
	}
	return m
}

// TransformOne maps a single document. N-grams outside the fitted vocabulary
// are ignored; a document without known n-grams maps to the zero vector.
func (v *Vectorizer) TransformOne(doc string) sparse.Vector {
	counts := make(map[int]int)
	for _, gram := range ngrams(doc, v.opts) {
		if idx, ok := v.vocabulary[gram]; ok {
			counts[idx]++
		}
	}
	vec := sparse.Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	if len(counts) == 0 {
		return vec
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, float64(counts[idx])*v.idf[idx])
	}
	vec.Normalize()
	return vec
}

// Options returns the options the vectorizer was fitted with.
func (v *Vectorizer) Options() Options { return v.opts }

// Dimension returns the vocabulary size.
func (v *Vectorizer) Dimension() int { return len(v.terms) }

// Documents returns the number of documents seen at fit time.
func (v *Vectorizer) Documents() int { return v.documents }

// Vocabulary returns the fitted n-grams in column order.
func (v *Vectorizer) Vocabulary() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// IDF returns the inverse document frequency weight of term.
func (v *Vectorizer) IDF(term string) (float64, bool) {
	idx, ok := v.vocabulary[term]
	if !ok {
		return 0, false
	}
	return v.idf[idx], true
}

// Terms returns the distinct fitted n-grams that occur in text, in column order.
func (v *Vectorizer) Terms(text string) []string {
	vec := v.TransformOne(text)
	out := make([]string, len(vec.Indices))
	for i, idx := range vec.Indices {
		out[i] = v.terms[idx]
	}
	return out
}

// Spans returns every occurrence in text of a fitted n-gram, in text order,
// with the rune range of text it covers.
func (v *Vectorizer) Spans(text string) []domain.TermSpan {
	var out []domain.TermSpan
	for _, s := range analyze(text, v.opts) {
		if _, ok := v.vocabulary[s.Term]; ok {
			out = append(out, s)
		}
	}
	return out
}

// State is the serialisable form of a fitted Vectorizer.
type State struct {
	Options    Options   `json:"options"`
	Documents  int       `json:"documents"`
	Vocabulary []string  `json:"vocabulary"`
	IDF        []float64 `json:"idf"`
}

// State exports the fitted vectorizer.
func (v *Vectorizer) State() State {
	idf := make([]float64, len(v.idf))
	copy(idf, v.idf)
	return State{
		Options:    v.opts,
		Documents:  v.documents,
		Vocabulary: v.Vocabulary(),
		IDF:        idf,
	}
}

// FromState restores a vectorizer exported with State.
func FromState(s State) (*Vectorizer, error) {
	if len(s.Vocabulary) != len(s.IDF) {
		return nil, fmt.Errorf("tfidf state: %d terms but %d idf weights", len(s.Vocabulary), len(s.IDF))
	}
	if s.Options.NGramSize <= 0 {
		return nil, fmt.Errorf("tfidf state: invalid ngram size %d", s.Options.NGramSize)
	}
	v := &Vectorizer{
		opts:       s.Options,
		vocabulary: make(map[string]int, len(s.Vocabulary)),
		terms:      make([]string, len(s.Vocabulary)),
		idf:        make([]float64, len(s.IDF)),
		documents:  s.Documents,
	}
	copy(v.terms, s.Vocabulary)
	copy(v.idf, s.IDF)
	for i, term := range v.terms {
		if _, dup := v.vocabulary[term]; dup {
			return nil, fmt.Errorf("tfidf state: duplicate term %q", term)
		}
		v.vocabulary[term] = i
	}
	return v, nil
}
