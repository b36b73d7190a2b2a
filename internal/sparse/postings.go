package sparse

type posting struct {
	row    int
	weight float64
}

// Postings is a column-major view of a Matrix. Scoring a query against every
// row only touches the columns the query actually has.
type Postings struct {
	rows    int
	columns [][]posting
}

// NewPostings builds the inverted view of m.
func NewPostings(m *Matrix) *Postings {
	p := &Postings{rows: m.Len(), columns: make([][]posting, m.Cols)}
	for r, vec := range m.Rows {
		for k, c := range vec.Indices {
			if c >= m.Cols {
				continue
			}
			p.columns[c] = append(p.columns[c], posting{row: r, weight: vec.Values[k]})
		}
	}
	return p
}

// Rows returns the number of rows of the underlying matrix.
func (p *Postings) Rows() int { return p.rows }

// Scores computes q·row for every row. If dst has enough capacity it is reused.
func (p *Postings) Scores(q Vector, dst []float64) []float64 {
	if cap(dst) < p.rows {
		dst = make([]float64, p.rows)
	}
	dst = dst[:p.rows]
	for i := range dst {
		dst[i] = 0
	}
	for k, c := range q.Indices {
		if c < 0 || c >= len(p.columns) {
			continue
		}
		w := q.Values[k]
		for _, e := range p.columns[c] {
			dst[e.row] += w * e.weight
		}
	}
	return dst
}

// Argmax returns the index and value of the first maximum of scores.
// It returns (-1, 0) for an empty slice.
func Argmax(scores []float64) (int, float64) {
	if len(scores) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}
