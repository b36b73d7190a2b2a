package tfidf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitymatch/internal/domain"
)

func TestFitEmptyCorpus(t *testing.T) {
	_, err := Fit(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestSingleTrigramDocument(t *testing.T) {
	v, err := Fit([]string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, v.Vocabulary())

	w, ok := v.IDF("abc")
	require.True(t, ok)
	// ln((1+1)/(1+1)) + 1
	assert.InDelta(t, 1.0, w, 1e-12)

	m := v.Transform([]string{"abc"})
	require.Equal(t, 1, m.Len())
	assert.Equal(t, []int{0}, m.Row(0).Indices)
	assert.InDelta(t, 1.0, m.Row(0).Values[0], 1e-12)
}

func TestSmoothedIDF(t *testing.T) {
	v, err := Fit([]string{"abcd", "abcx", "zzz"})
	require.NoError(t, err)

	w, ok := v.IDF("abc")
	require.True(t, ok)
	assert.InDelta(t, math.Log(4.0/3.0)+1, w, 1e-12)

	w, ok = v.IDF("bcd")
	require.True(t, ok)
	assert.InDelta(t, math.Log(4.0/2.0)+1, w, 1e-12)

	_, ok = v.IDF("nope")
	assert.False(t, ok)
}

func TestRowsAreUnitNorm(t *testing.T) {
	corpus := []string{"ALPHA CORP", "BETA INC", "ab", "", "gamma gamma gamma", "Ünïcödé ßtraße"}
	v, m, err := FitTransform(corpus)
	require.NoError(t, err)
	require.Equal(t, len(corpus), m.Len())
	assert.Equal(t, v.Dimension(), m.Cols)

	for i, row := range m.Rows {
		if corpus[i] == "" || corpus[i] == "ab" {
			assert.True(t, row.IsZero(), "row %d should be zero", i)
			assert.Equal(t, 0, row.NNZ())
			continue
		}
		assert.InDelta(t, 1.0, row.Norm(), 1e-9, "row %d", i)
	}
}

func TestCaseSensitiveByDefault(t *testing.T) {
	v, err := Fit([]string{"ABC"})
	require.NoError(t, err)
	assert.True(t, v.TransformOne("abc").IsZero())
	assert.False(t, v.TransformOne("ABC").IsZero())

	lv, err := Fit([]string{"ABC"}, WithLowercase(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, lv.Vocabulary())
	assert.False(t, lv.TransformOne("AbC").IsZero())
}

func TestOutOfVocabularyIgnored(t *testing.T) {
	v, err := Fit([]string{"hello"})
	require.NoError(t, err)
	vec := v.TransformOne("hello world")
	assert.Equal(t, 3, vec.NNZ())
	assert.InDelta(t, 1.0, vec.Norm(), 1e-12)
	assert.True(t, v.TransformOne("xyz").IsZero())
}

func TestSingletonTermsKept(t *testing.T) {
	v, err := Fit([]string{"abcdef", "uvwxyz"})
	require.NoError(t, err)
	assert.Equal(t, 8, v.Dimension())

	filtered, err := Fit([]string{"abcd", "abce", "zzzz"}, WithMinDF(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, filtered.Vocabulary())
}

func TestNoNGramsCorpus(t *testing.T) {
	v, err := Fit([]string{"", "ab"})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Dimension())
	assert.True(t, v.TransformOne("abc").IsZero())
}

func TestNGrams(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, []string{"abc", "bcd"}, ngrams("abcd", o))
	assert.Nil(t, ngrams("ab", o))
	assert.Equal(t, []string{"a b", " b ", "b c"}, ngrams("a   b c", o))
	assert.Equal(t, []string{"a\tb"}, ngrams("a\tb", o))
	assert.Equal(t, []string{"äöü"}, ngrams("äöü", o))

	o.CollapseWhitespace = false
	assert.Equal(t, []string{"a  ", "  b"}, ngrams("a  b", o))

	o.NGramSize = 2
	assert.Equal(t, []string{"ab", "bc"}, ngrams("abc", o))
}

func TestRepeatedTermsWeighted(t *testing.T) {
	v, err := Fit([]string{"aaaa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa"}, v.Vocabulary())
	vec := v.TransformOne("aaaa")
	assert.InDelta(t, 1.0, vec.Values[0], 1e-12)
}

func TestStateRoundTrip(t *testing.T) {
	v, err := Fit([]string{"ALPHA CORP", "BETA INC"}, WithMinDF(1))
	require.NoError(t, err)

	restored, err := FromState(v.State())
	require.NoError(t, err)
	assert.Equal(t, v.Vocabulary(), restored.Vocabulary())
	assert.Equal(t, v.Options(), restored.Options())
	assert.Equal(t, v.Documents(), restored.Documents())
	assert.Equal(t, v.TransformOne("ALPHA INC"), restored.TransformOne("ALPHA INC"))
}

func TestFromStateInvalid(t *testing.T) {
	_, err := FromState(State{Options: DefaultOptions(), Vocabulary: []string{"abc"}})
	assert.Error(t, err)

	_, err = FromState(State{Options: DefaultOptions(), Vocabulary: []string{"abc", "abc"}, IDF: []float64{1, 1}})
	assert.Error(t, err)

	_, err = FromState(State{Vocabulary: []string{"abc"}, IDF: []float64{1}})
	assert.Error(t, err)
}

func TestTerms(t *testing.T) {
	v, err := Fit([]string{"ALPHA CORP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ALP", "LPH", "PHA"}, v.Terms("ALPHA"))
}

func TestSpans(t *testing.T) {
	v, err := Fit([]string{"alpha corp", "beta inc"}, WithLowercase(true))
	require.NoError(t, err)

	// "ALPHA  CORP" normalises to "alpha corp"; the collapsed run maps back
	// to both raw spaces.
	spans := v.Spans("ALPHA  CORP")
	require.Len(t, spans, 8)
	assert.Equal(t, domain.TermSpan{Term: "alp", Start: 0, End: 3}, spans[0])
	assert.Equal(t, domain.TermSpan{Term: "ha ", Start: 3, End: 7}, spans[3])
	assert.Equal(t, domain.TermSpan{Term: "a c", Start: 4, End: 8}, spans[4])
	assert.Equal(t, domain.TermSpan{Term: "orp", Start: 8, End: 11}, spans[7])

	assert.Nil(t, v.Spans("zzzz"))
	assert.ElementsMatch(t, []string{"bet", "eta"}, v.Terms("BETA"))
}
