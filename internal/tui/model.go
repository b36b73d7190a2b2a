package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"entitymatch/internal/domain"
)

// Model is the Bubble Tea model for the interactive lookup.
type Model struct {
	lookup   domain.EntityLookup
	topK     int
	input    textinput.Model
	viewport viewport.Model
	results  []domain.ScoredRecord
	terms    map[string]struct{}
	summary  string
	status   string
	cursor   int
	ready    bool
}

// New creates a new TUI model over a fitted master set.
func New(lookup domain.EntityLookup, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type an entity and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 10
	}
	return Model{
		lookup:   lookup,
		topK:     topK,
		input:    ti,
		viewport: vp,
		summary:  fmt.Sprintf("%d master records loaded", lookup.Size()),
		status:   "Loaded. Type to search.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + summary
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResults())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := m.input.Value()
			if strings.TrimSpace(q) != "" {
				res, err := m.lookup.Query(q, m.topK)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.results = nil
				} else {
					m.status = fmt.Sprintf("%d matches for %q", len(res), q)
					m.results = res
					m.cursor = 0
					m.terms = toTermSet(m.lookup.Terms(q))
				}
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current results.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Entity Match")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResults() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	var b strings.Builder
	for i, r := range m.results {
		line := fmt.Sprintf("%2d. [%s] score=%.3f  %s", i+1, r.Record.ID, r.Score, m.highlightShared(r.Record.Text))
		if i == m.cursor {
			line = selectedStyle.Render(">") + line
		} else {
			line = " " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	r := m.results[m.cursor]
	fmt.Fprintf(&b, "\nRow %d  id=%s", r.Position, r.Record.ID)
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

func toTermSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

// highlightShared renders text with every rune covered by an n-gram of the
// last query highlighted. N-grams are compared after the vectorizer's own
// normalisation, so highlighting agrees with scoring.
func (m Model) highlightShared(text string) string {
	mask := m.sharedMask(text)
	if mask == nil {
		return text
	}
	runes := []rune(text)
	var b strings.Builder
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && mask[i] == mask[start] {
			continue
		}
		seg := string(runes[start:i])
		if mask[start] {
			seg = highlightStyle.Render(seg)
		}
		b.WriteString(seg)
		start = i
	}
	return b.String()
}

// sharedMask marks the runes of text that belong to an n-gram of the last
// query. It returns nil when nothing is shared.
func (m Model) sharedMask(text string) []bool {
	if len(m.terms) == 0 {
		return nil
	}
	var mask []bool
	for _, span := range m.lookup.Spans(text) {
		if _, ok := m.terms[span.Term]; !ok {
			continue
		}
		if mask == nil {
			mask = make([]bool, len([]rune(text)))
		}
		for j := span.Start; j < span.End; j++ {
			mask[j] = true
		}
	}
	return mask
}
