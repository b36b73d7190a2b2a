package tfidf

// Options configures how a Vectorizer extracts character n-grams.
// The zero value is not useful; start from DefaultOptions.
type Options struct {
	// NGramSize is the number of characters per feature.
	NGramSize int `yaml:"ngram_size" json:"ngram_size"`
	// Lowercase folds text to lower case before extracting n-grams.
	Lowercase bool `yaml:"lowercase" json:"lowercase"`
	// CollapseWhitespace replaces every run of two or more whitespace
	// characters with a single space before extracting n-grams.
	CollapseWhitespace bool `yaml:"collapse_whitespace" json:"collapse_whitespace"`
	// MinDF drops n-grams that occur in fewer documents than this.
	MinDF int `yaml:"min_df" json:"min_df"`
}

// DefaultOptions returns case-sensitive character trigrams with no
// document-frequency filtering.
func DefaultOptions() Options {
	return Options{
		NGramSize:          3,
		Lowercase:          false,
		CollapseWhitespace: true,
		MinDF:              1,
	}
}

// Option mutates Options.
type Option func(*Options)

// WithOptions replaces all options at once.
func WithOptions(o Options) Option {
	return func(dst *Options) { *dst = o }
}

// WithNGramSize sets the n-gram length.
func WithNGramSize(n int) Option {
	return func(o *Options) { o.NGramSize = n }
}

// WithLowercase enables or disables case folding.
func WithLowercase(enabled bool) Option {
	return func(o *Options) { o.Lowercase = enabled }
}

// WithCollapseWhitespace enables or disables whitespace run collapsing.
func WithCollapseWhitespace(enabled bool) Option {
	return func(o *Options) { o.CollapseWhitespace = enabled }
}

// WithMinDF sets the minimum document frequency of a kept n-gram.
func WithMinDF(n int) Option {
	return func(o *Options) { o.MinDF = n }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.NGramSize <= 0 {
		o.NGramSize = 3
	}
	if o.MinDF <= 0 {
		o.MinDF = 1
	}
	return o
}
