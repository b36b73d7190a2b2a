package tfidf

import (
	"unicode"

	"entitymatch/internal/domain"
)

// ngrams returns every contiguous run of exactly o.NGramSize runes in text.
// Text shorter than the n-gram size yields nothing.
func ngrams(text string, o Options) []string {
	spans := analyze(text, o)
	if spans == nil {
		return nil
	}
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Term
	}
	return out
}

// analyze normalises text (case folding, whitespace collapsing) and returns
// its n-grams together with the rune range of the original text each one
// was taken from.
func analyze(text string, o Options) []domain.TermSpan {
	raw := []rune(text)
	runes := make([]rune, 0, len(raw))
	// starts[i] is the raw offset of normalised rune i.
	starts := make([]int, 0, len(raw)+1)
	for i := 0; i < len(raw); {
		r := raw[i]
		if o.CollapseWhitespace && unicode.IsSpace(r) {
			j := i + 1
			for j < len(raw) && unicode.IsSpace(raw[j]) {
				j++
			}
			if j-i >= 2 {
				runes = append(runes, ' ')
				starts = append(starts, i)
				i = j
				continue
			}
		}
		if o.Lowercase {
			r = unicode.ToLower(r)
		}
		runes = append(runes, r)
		starts = append(starts, i)
		i++
	}
	starts = append(starts, len(raw))

	n := o.NGramSize
	if len(runes) < n {
		return nil
	}
	out := make([]domain.TermSpan, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, domain.TermSpan{Term: string(runes[i : i+n]), Start: starts[i], End: starts[i+n]})
	}
	return out
}
