// Package pipeline runs the index and match steps against a dataset
// provider and an optional artifact store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"entitymatch/internal/artifact"
	"entitymatch/internal/config"
	"entitymatch/internal/dataset"
	"entitymatch/internal/domain"
	"entitymatch/internal/indexer"
	"entitymatch/internal/matcher"
	"entitymatch/internal/tfidf"
)

// exactScore is the score from which a match counts as exact in summaries.
const exactScore = 1 - 1e-9

// Service runs the transformation steps.
type Service struct {
	provider  dataset.Provider
	artifacts *artifact.Store
	cfg       *config.AppConfig
	log       *logrus.Entry
}

// IndexSummary describes a finished index step.
type IndexSummary struct {
	RunID      string
	Records    int
	Vocabulary int
	NonZeros   int
	Persisted  bool
	Duration   time.Duration
}

// MatchSummary describes a finished match step.
type MatchSummary struct {
	RunID      string
	Master     int
	Candidates int
	Exact      int
	NoOverlap  int
	MeanScore  float64
	Reused     bool
	Duration   time.Duration
}

// NewService wires a service. artifacts may be nil when persistence is disabled.
func NewService(provider dataset.Provider, artifacts *artifact.Store, cfg *config.AppConfig, log *logrus.Entry) *Service {
	return &Service{provider: provider, artifacts: artifacts, cfg: cfg, log: log}
}

func (s *Service) tfidfOptions() []tfidf.Option {
	return []tfidf.Option{tfidf.WithOptions(s.cfg.Vectorizer)}
}

// BuildIndex reads the master table, fits the vectorizer, writes the index
// table and persists the fitted artifacts when enabled.
func (s *Service) BuildIndex(ctx context.Context) (*IndexSummary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "step": "index"})

	master, err := s.readRecords(ctx, s.cfg.Tables.Master, s.cfg.Columns.ID, s.cfg.Columns.Text)
	if err != nil {
		return nil, err
	}
	log.WithField("records", len(master)).Info("Fitting vectorizer on master data")

	idx, err := indexer.Build(master, s.tfidfOptions()...)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if err := s.provider.WriteTable(ctx, s.cfg.Tables.Index, dataset.IndexTable(idx.Entries)); err != nil {
		return nil, fmt.Errorf("write table %s: %w", s.cfg.Tables.Index, err)
	}

	summary := &IndexSummary{
		RunID:      runID,
		Records:    len(idx.Entries),
		Vocabulary: idx.Vectorizer.Dimension(),
		NonZeros:   idx.Matrix.NNZ(),
	}
	if s.artifacts != nil {
		if err := idx.Persist(ctx, s.artifacts); err != nil {
			return nil, fmt.Errorf("persist artifacts: %w", err)
		}
		summary.Persisted = true
		log.Debug("Persisted vectorizer and matrix")
	}
	summary.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"table":      s.cfg.Tables.Index,
		"vocabulary": summary.Vocabulary,
		"nnz":        summary.NonZeros,
		"duration":   summary.Duration,
	}).Info("Index built")
	return summary, nil
}

// MatchEntities matches the candidate table against the configured source
// table and writes the results table.
func (s *Service) MatchEntities(ctx context.Context) (*MatchSummary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "step": "match"})

	m, reused, err := s.loadMatcher(ctx, log)
	if err != nil {
		return nil, err
	}
	candidates, err := s.readRecords(ctx, s.cfg.Tables.Candidates, s.cfg.Columns.ID, s.cfg.Columns.Text)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"master": m.Size(), "candidates": len(candidates)}).Info("Matching candidates")

	results, err := m.Match(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	if err := s.provider.WriteTable(ctx, s.cfg.Tables.Results, dataset.MatchTable(results)); err != nil {
		return nil, fmt.Errorf("write table %s: %w", s.cfg.Tables.Results, err)
	}

	summary := &MatchSummary{RunID: runID, Master: m.Size(), Candidates: len(results), Reused: reused}
	total := 0.0
	for _, r := range results {
		total += r.Score
		switch {
		case r.Score >= exactScore:
			summary.Exact++
		case r.Score == 0:
			summary.NoOverlap++
		}
	}
	if len(results) > 0 {
		summary.MeanScore = total / float64(len(results))
	}
	summary.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"table":      s.cfg.Tables.Results,
		"exact":      summary.Exact,
		"no_overlap": summary.NoOverlap,
		"mean_score": summary.MeanScore,
		"duration":   summary.Duration,
	}).Info("Matching finished")
	return summary, nil
}

// Lookup loads the source table into an interactive lookup.
func (s *Service) Lookup(ctx context.Context) (*Lookup, error) {
	m, _, err := s.loadMatcher(ctx, s.log.WithField("step", "lookup"))
	if err != nil {
		return nil, err
	}
	return &Lookup{matcher: m}, nil
}

func (s *Service) loadMatcher(ctx context.Context, log *logrus.Entry) (*matcher.Matcher, bool, error) {
	master, err := s.sourceRecords(ctx)
	if err != nil {
		return nil, false, err
	}
	opts := []matcher.Option{
		matcher.WithTFIDFOptions(s.tfidfOptions()...),
		matcher.WithWorkers(s.cfg.Matcher.Workers),
		matcher.WithBatchSize(s.cfg.Matcher.BatchSize),
	}
	reused := false
	if s.cfg.Matcher.ReuseArtifacts && s.artifacts != nil {
		model, err := s.artifacts.Load(ctx)
		if err != nil {
			return nil, false, err
		}
		opts = append(opts,
			matcher.WithVectorizer(model.Vectorizer),
			matcher.WithMatrix(model.Matrix),
			matcher.WithFingerprint(model.Fingerprint),
		)
		reused = true
		log.WithFields(logrus.Fields{
			"vocabulary":  model.Vectorizer.Dimension(),
			"fingerprint": model.Fingerprint,
		}).Debug("Reusing persisted vectorizer")
	}
	m, err := matcher.New(master, opts...)
	if err != nil {
		return nil, false, err
	}
	return m, reused, nil
}

// sourceRecords reads the master records either from the index table (in
// position order) or straight from the master table.
func (s *Service) sourceRecords(ctx context.Context) ([]domain.Record, error) {
	switch s.cfg.Matcher.Source {
	case "master":
		return s.readRecords(ctx, s.cfg.Tables.Master, s.cfg.Columns.ID, s.cfg.Columns.Text)
	case "index", "":
		table, err := s.provider.ReadTable(ctx, s.cfg.Tables.Index)
		if err != nil {
			return nil, fmt.Errorf("read table %s: %w", s.cfg.Tables.Index, err)
		}
		sortByPosition(table)
		return s.records(table, s.cfg.Tables.Index, domain.ColumnID, domain.ColumnText)
	default:
		return nil, fmt.Errorf("unknown match source %q", s.cfg.Matcher.Source)
	}
}

func (s *Service) readRecords(ctx context.Context, name, idCol, textCol string) ([]domain.Record, error) {
	table, err := s.provider.ReadTable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}
	return s.records(table, name, idCol, textCol)
}

func (s *Service) records(table *dataset.Table, name, idCol, textCol string) ([]domain.Record, error) {
	records, err := dataset.Records(table, idCol, textCol)
	var invalid *domain.InvalidRecordError
	if errors.As(err, &invalid) {
		invalid.Table = name
	}
	return records, err
}

// sortByPosition orders index rows by their position column. Tables whose
// positions are missing or not integers keep their stored order.
func sortByPosition(table *dataset.Table) {
	column := domain.ColumnPosition
	if name, ok := table.Column(column); ok {
		column = name
	}
	pos := make([]int64, len(table.Rows))
	for i, row := range table.Rows {
		v, ok := row.Lookup(column)
		if !ok {
			return
		}
		switch x := v.(type) {
		case int64:
			pos[i] = x
		case float64:
			pos[i] = int64(x)
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return
			}
			pos[i] = n
		default:
			return
		}
	}
	order := make([]int, len(table.Rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pos[order[a]] < pos[order[b]] })
	rows := make([]dataset.Row, len(order))
	for i, j := range order {
		rows[i] = table.Rows[j]
	}
	table.Rows = rows
}

// Lookup answers interactive top-K queries against a fitted master set.
type Lookup struct {
	matcher *matcher.Matcher
}

// Size returns the number of master records.
func (l *Lookup) Size() int { return l.matcher.Size() }

// Query returns the topK master records most similar to text.
func (l *Lookup) Query(text string, topK int) ([]domain.ScoredRecord, error) {
	return l.matcher.Lookup(text, topK), nil
}

// Terms returns the distinct fitted n-grams of text.
func (l *Lookup) Terms(text string) []string {
	return l.matcher.Vectorizer().Terms(text)
}

// Spans locates the fitted n-grams of text.
func (l *Lookup) Spans(text string) []domain.TermSpan {
	return l.matcher.Vectorizer().Spans(text)
}
