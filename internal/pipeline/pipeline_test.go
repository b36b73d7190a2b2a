package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitymatch/internal/artifact"
	"entitymatch/internal/blobstore"
	"entitymatch/internal/config"
	"entitymatch/internal/dataset"
	"entitymatch/internal/domain"
)

func newTestService(t *testing.T, withArtifacts bool) (*Service, *dataset.MemoryProvider, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.Default()
	cfg.Columns = config.ColumnsConfig{ID: "ID", Text: "FULL_DETAILS"}

	provider := dataset.NewMemoryProvider()
	ctx := context.Background()
	require.NoError(t, provider.WriteTable(ctx, cfg.Tables.Master, &dataset.Table{
		Columns: []string{"ID", "FULL_DETAILS"},
		Rows: []dataset.Row{
			{"ID": int64(1), "FULL_DETAILS": "ALPHA CORP"},
			{"ID": int64(2), "FULL_DETAILS": "BETA INC"},
		},
	}))
	require.NoError(t, provider.WriteTable(ctx, cfg.Tables.Candidates, &dataset.Table{
		Columns: []string{"ID", "FULL_DETAILS"},
		Rows: []dataset.Row{
			{"ID": int64(10), "FULL_DETAILS": "ALPHA CORP"},
			{"ID": int64(11), "FULL_DETAILS": "BETA INCORPORATED"},
			{"ID": int64(12), "FULL_DETAILS": "zzz"},
		},
	}))

	var store *artifact.Store
	if withArtifacts {
		store = artifact.NewStore(blobstore.NewMemoryStore(), cfg.Artifacts.Prefix, artifact.CodecZSTD)
	}
	return NewService(provider, store, cfg, logger.WithField("service", "pipeline")), provider, hook
}

func TestBuildIndexWritesIndexTable(t *testing.T) {
	svc, provider, hook := newTestService(t, true)
	ctx := context.Background()

	summary, err := svc.BuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records)
	assert.True(t, summary.Persisted)
	assert.NotEmpty(t, summary.RunID)
	assert.Positive(t, summary.Vocabulary)

	index, err := provider.ReadTable(ctx, svc.cfg.Tables.Index)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "text", "position"}, index.Columns)
	require.Len(t, index.Rows, 2)
	assert.Equal(t, "1", index.Rows[0]["id"])
	assert.Equal(t, "BETA INC", index.Rows[1]["text"])
	assert.Equal(t, int64(2), index.Rows[1]["position"])

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "Index built", last.Message)
	assert.Equal(t, summary.RunID, last.Data["run_id"])
}

func TestMatchEntitiesFromIndex(t *testing.T) {
	svc, provider, _ := newTestService(t, false)
	ctx := context.Background()

	_, err := svc.BuildIndex(ctx)
	require.NoError(t, err)
	summary, err := svc.MatchEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Master)
	assert.Equal(t, 3, summary.Candidates)
	assert.Equal(t, 1, summary.Exact)
	assert.Equal(t, 1, summary.NoOverlap)
	assert.False(t, summary.Reused)

	results, err := provider.ReadTable(ctx, svc.cfg.Tables.Results)
	require.NoError(t, err)
	require.Len(t, results.Rows, 3)

	first := results.Rows[0]
	assert.Equal(t, "10", first["new_entity_id"])
	assert.Equal(t, "1", first["matched_id"])
	assert.InDelta(t, 1.0, first["match_score"], 1e-9)

	second := results.Rows[1]
	assert.Equal(t, "2", second["matched_id"])
	assert.Greater(t, second["match_score"], 0.0)

	third := results.Rows[2]
	assert.Equal(t, "zzz", third["new_text"])
	assert.Equal(t, "1", third["matched_id"])
	assert.Equal(t, 0.0, third["match_score"])
}

func TestMatchEntitiesFromMasterWithoutIndex(t *testing.T) {
	svc, provider, _ := newTestService(t, false)
	svc.cfg.Matcher.Source = "master"
	ctx := context.Background()

	_, err := svc.MatchEntities(ctx)
	require.NoError(t, err)

	_, err = provider.ReadTable(ctx, svc.cfg.Tables.Index)
	assert.ErrorIs(t, err, dataset.ErrTableNotFound)
	results, err := provider.ReadTable(ctx, svc.cfg.Tables.Results)
	require.NoError(t, err)
	assert.Len(t, results.Rows, 3)
}

func TestMatchEntitiesReusesArtifacts(t *testing.T) {
	svc, provider, _ := newTestService(t, true)
	svc.cfg.Matcher.ReuseArtifacts = true
	ctx := context.Background()

	_, err := svc.BuildIndex(ctx)
	require.NoError(t, err)
	summary, err := svc.MatchEntities(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Reused)

	results, err := provider.ReadTable(ctx, svc.cfg.Tables.Results)
	require.NoError(t, err)
	assert.Equal(t, "1", results.Rows[0]["matched_id"])
	assert.InDelta(t, 1.0, results.Rows[0]["match_score"], 1e-9)
}

func TestMatchEntitiesReuseWithoutArtifacts(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	svc.cfg.Matcher.Source = "master"
	svc.cfg.Matcher.ReuseArtifacts = true

	_, err := svc.MatchEntities(context.Background())
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestMatchEntitiesReusedStateMismatch(t *testing.T) {
	svc, provider, _ := newTestService(t, true)
	svc.cfg.Matcher.ReuseArtifacts = true
	ctx := context.Background()

	_, err := svc.BuildIndex(ctx)
	require.NoError(t, err)
	// Index table grows after the artifacts were persisted.
	index, err := provider.ReadTable(ctx, svc.cfg.Tables.Index)
	require.NoError(t, err)
	index.Rows = append(index.Rows, dataset.Row{"id": "3", "text": "GAMMA LTD", "position": int64(3)})
	require.NoError(t, provider.WriteTable(ctx, svc.cfg.Tables.Index, index))

	_, err = svc.MatchEntities(ctx)
	assert.ErrorIs(t, err, domain.ErrStateMismatch)
}

func TestMatchEntitiesReusedStaleMaster(t *testing.T) {
	svc, provider, _ := newTestService(t, true)
	svc.cfg.Matcher.Source = "master"
	svc.cfg.Matcher.ReuseArtifacts = true
	ctx := context.Background()

	_, err := svc.BuildIndex(ctx)
	require.NoError(t, err)
	// Same row count, different order: the persisted rows no longer line up.
	require.NoError(t, provider.WriteTable(ctx, svc.cfg.Tables.Master, &dataset.Table{
		Columns: []string{"ID", "FULL_DETAILS"},
		Rows: []dataset.Row{
			{"ID": int64(2), "FULL_DETAILS": "BETA INC"},
			{"ID": int64(1), "FULL_DETAILS": "ALPHA CORP"},
		},
	}))

	_, err = svc.MatchEntities(ctx)
	require.ErrorIs(t, err, domain.ErrStateMismatch)
	_, err = provider.ReadTable(ctx, svc.cfg.Tables.Results)
	assert.ErrorIs(t, err, dataset.ErrTableNotFound)

	// Refitting from the new master gives consistent results.
	svc.cfg.Matcher.ReuseArtifacts = false
	_, err = svc.MatchEntities(ctx)
	require.NoError(t, err)
	results, err := provider.ReadTable(ctx, svc.cfg.Tables.Results)
	require.NoError(t, err)
	assert.Equal(t, "ALPHA CORP", results.Rows[0]["new_text"])
	assert.Equal(t, "1", results.Rows[0]["matched_id"])
	assert.Equal(t, "ALPHA CORP", results.Rows[0]["matched_text"])
}

func TestBuildIndexEmptyMaster(t *testing.T) {
	svc, provider, _ := newTestService(t, false)
	ctx := context.Background()
	require.NoError(t, provider.WriteTable(ctx, svc.cfg.Tables.Master, &dataset.Table{Columns: []string{"ID", "FULL_DETAILS"}}))

	_, err := svc.BuildIndex(ctx)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestMatchEntitiesEmptyMaster(t *testing.T) {
	svc, provider, _ := newTestService(t, false)
	svc.cfg.Matcher.Source = "master"
	ctx := context.Background()
	require.NoError(t, provider.WriteTable(ctx, svc.cfg.Tables.Master, &dataset.Table{Columns: []string{"ID", "FULL_DETAILS"}}))

	_, err := svc.MatchEntities(ctx)
	assert.ErrorIs(t, err, domain.ErrEmptyMaster)
}

func TestInvalidRecordNamesTable(t *testing.T) {
	svc, provider, _ := newTestService(t, false)
	ctx := context.Background()
	require.NoError(t, provider.WriteTable(ctx, svc.cfg.Tables.Master, &dataset.Table{
		Columns: []string{"ID", "FULL_DETAILS"},
		Rows: []dataset.Row{
			{"ID": int64(1), "FULL_DETAILS": "ALPHA CORP"},
			{"ID": int64(2), "FULL_DETAILS": nil},
		},
	}))

	_, err := svc.BuildIndex(ctx)
	require.ErrorIs(t, err, domain.ErrInvalidRecord)
	var invalid *domain.InvalidRecordError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, svc.cfg.Tables.Master, invalid.Table)
	assert.Equal(t, 1, invalid.Row)
	assert.Equal(t, "FULL_DETAILS", invalid.Field)
}

func TestUnknownSource(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	svc.cfg.Matcher.Source = "warehouse"

	_, err := svc.MatchEntities(context.Background())
	assert.ErrorContains(t, err, "unknown match source")
}

func TestSortByPosition(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"id", "text", "position"},
		Rows: []dataset.Row{
			{"id": "b", "text": "B", "position": "2"},
			{"id": "a", "text": "A", "position": "1"},
			{"id": "c", "text": "C", "position": "3"},
		},
	}
	sortByPosition(table)
	assert.Equal(t, "a", table.Rows[0]["id"])
	assert.Equal(t, "b", table.Rows[1]["id"])
	assert.Equal(t, "c", table.Rows[2]["id"])

	unsorted := &dataset.Table{Rows: []dataset.Row{{"id": "b"}, {"id": "a"}}}
	sortByPosition(unsorted)
	assert.Equal(t, "b", unsorted.Rows[0]["id"])
}

func TestLookup(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	svc.cfg.Matcher.Source = "master"

	lookup, err := svc.Lookup(context.Background())
	require.NoError(t, err)
	var _ domain.EntityLookup = lookup
	assert.Equal(t, 2, lookup.Size())

	hits, err := lookup.Query("BETA", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2", hits[0].Record.ID)
	assert.Equal(t, []string{"BET", "ETA"}, lookup.Terms("BETA"))
	assert.Len(t, lookup.Spans("BETA INC"), 6)
}
