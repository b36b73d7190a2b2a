package domain

// Record is one row of a master or candidate dataset.
type Record struct {
	ID   string
	Text string
}

// IndexEntry is a master record together with its 1-based position at fit time.
// Position is a human-visible row number, matching is done by slice position.
type IndexEntry struct {
	ID       string
	Text     string
	Position int
}

// MatchResult pairs a candidate with its best scoring master record.
type MatchResult struct {
	CandidateID   string
	CandidateText string
	MatchedID     string
	MatchedText   string
	Score         float64
}

// ScoredRecord is a master record returned by a top-K lookup.
type ScoredRecord struct {
	Record   Record
	Position int
	Score    float64
}

// TermSpan is one n-gram occurrence in a text. Start and End are rune
// offsets into the original, unnormalised text.
type TermSpan struct {
	Term  string
	Start int
	End   int
}

// Output column names of the index and match tables.
const (
	ColumnID       = "id"
	ColumnText     = "text"
	ColumnPosition = "position"

	ColumnNewEntityID = "new_entity_id"
	ColumnNewText     = "new_text"
	ColumnMatchedID   = "matched_id"
	ColumnMatchedText = "matched_text"
	ColumnMatchScore  = "match_score"
)

// Texts returns the text column of records in order.
func Texts(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

// EntityLookup is the subset of the matching service used by interactive front ends.
type EntityLookup interface {
	Size() int
	Query(text string, topK int) ([]ScoredRecord, error)
	// Terms returns the distinct fitted n-grams of text.
	Terms(text string) []string
	// Spans locates the fitted n-grams of text.
	Spans(text string) []TermSpan
}
