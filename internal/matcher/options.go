package matcher

import (
	"entitymatch/internal/sparse"
	"entitymatch/internal/tfidf"
)

const (
	defaultBatchSize = 256
	defaultTopK      = 5
)

type options struct {
	vectorizer  *tfidf.Vectorizer
	matrix      *sparse.Matrix
	fingerprint string
	tfidfOpts   []tfidf.Option
	workers     int
	batchSize   int
}

// Option configures a Matcher.
type Option func(*options)

// WithVectorizer reuses a fitted vectorizer instead of fitting one on the master text.
func WithVectorizer(v *tfidf.Vectorizer) Option {
	return func(o *options) { o.vectorizer = v }
}

// WithMatrix reuses a precomputed master document-term matrix.
// It is only honoured together with WithVectorizer.
func WithMatrix(m *sparse.Matrix) Option {
	return func(o *options) { o.matrix = m }
}

// WithFingerprint requires the master records to hash to fp (see
// domain.Fingerprint), as recorded when the reused vectorizer and matrix
// were fitted.
func WithFingerprint(fp string) Option {
	return func(o *options) { o.fingerprint = fp }
}

// WithTFIDFOptions sets the options used when the matcher fits its own vectorizer.
func WithTFIDFOptions(opts ...tfidf.Option) Option {
	return func(o *options) { o.tfidfOpts = append(o.tfidfOpts, opts...) }
}

// WithWorkers sets how many candidate batches are scored concurrently.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithBatchSize sets the number of candidates scored per batch.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

func buildOptions(opts []Option) options {
	o := options{workers: 1, batchSize: defaultBatchSize}
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers <= 0 {
		o.workers = 1
	}
	if o.batchSize <= 0 {
		o.batchSize = defaultBatchSize
	}
	return o
}
