package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-progress-system/models"
	"skill-progress-system/repository"
)

func newAchievementFixture() (*fakeStore, *AchievementService) {
	store := newFakeStore()
	return store, NewAchievementService(newFakeGateway(store))
}

func TestEnsureBackfilled_CreatesRecordPerCatalogEntry(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addType("q-500", models.AchievementKindQuestion, 500)
	store.addType("lvl-100", models.AchievementKindLevel, 100)

	records, err := svc.EnsureBackfilled(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, models.AchievementStatusInProgress, rec.Status)
		assert.Equal(t, float64(0), rec.ProgressPercent)
		assert.Equal(t, "user-1", rec.ExternalUserID)
		assert.NotEmpty(t, rec.ID)
	}
}

func TestEnsureBackfilled_Idempotent(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addType("lvl-100", models.AchievementKindLevel, 100)

	first, err := svc.EnsureBackfilled(context.Background(), "user-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := svc.EnsureBackfilled(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, again, 2)
	}

	// Same rows, not replacements
	byType := map[string]string{}
	for _, rec := range first {
		byType[rec.AchievementTypeID] = rec.ID
	}
	final, err := svc.EnsureBackfilled(context.Background(), "user-1")
	require.NoError(t, err)
	for _, rec := range final {
		assert.Equal(t, byType[rec.AchievementTypeID], rec.ID)
	}
}

func TestEnsureBackfilled_OnlyFillsMissing(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addType("lvl-100", models.AchievementKindLevel, 100)
	store.putAchievement(models.UserAchievement{
		ID: "existing", ExternalUserID: "user-1", AchievementTypeID: "q-50",
		Status: models.AchievementStatusCompleted, ProgressPercent: 100,
	})

	records, err := svc.EnsureBackfilled(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, records, 2)
	existing := store.achievementFor("user-1", "q-50")
	assert.Equal(t, "existing", existing.ID)
	assert.Equal(t, models.AchievementStatusCompleted, existing.Status)
}

func TestEnsureBackfilled_SwallowsDuplicateInsertRace(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)

	// A concurrent caller lands its insert between our read and our write.
	store.afterListAchievements = func(s *fakeStore) {
		s.putAchievement(models.UserAchievement{
			ID: "raced", ExternalUserID: "user-1", AchievementTypeID: "q-50",
			Status: models.AchievementStatusInProgress,
		})
	}

	records, err := svc.EnsureBackfilled(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "raced", records[0].ID, "the racing writer's row survives")
}

func TestEnsureBackfilled_CatalogUnavailable(t *testing.T) {
	store, svc := newAchievementFixture()
	store.catalogErr = assert.AnError

	_, err := svc.EnsureBackfilled(context.Background(), "user-1")

	require.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestRecompute_ThresholdWalk(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: 49})

	records, err := svc.Recompute(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AchievementStatusInProgress, records[0].Status)
	assert.Equal(t, 98.00, records[0].ProgressPercent)

	store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: 50})
	records, err = svc.Recompute(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.AchievementStatusCompleted, records[0].Status)
	assert.Equal(t, 100.00, records[0].ProgressPercent)
	require.NotNil(t, records[0].CompletedAt)

	// Counter unchanged: no further writes
	writesBefore := store.updateCalls
	records, err = svc.Recompute(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.AchievementStatusCompleted, records[0].Status)
	assert.Equal(t, 100.00, records[0].ProgressPercent)
	assert.Equal(t, writesBefore, store.updateCalls, "no-op recompute must not write")
}

func TestRecompute_CompletedIsTerminal(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: 60})

	records, err := svc.Recompute(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, models.AchievementStatusCompleted, records[0].Status)

	// A stale read shows the counter lower than it ever was. The completed
	// record must not regress.
	store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: 10})
	records, err = svc.Recompute(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.AchievementStatusCompleted, records[0].Status)
	assert.Equal(t, 100.00, records[0].ProgressPercent)
}

func TestRecompute_LevelKindComparesLevelProgress(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("lvl-1000", models.AchievementKindLevel, 1000)
	store.addStats("user-1", models.UserStats{
		LevelProgress:          250,
		QuestionsAnsweredTotal: 100000, // must be ignored for level badges
	})

	records, err := svc.Recompute(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AchievementStatusInProgress, records[0].Status)
	assert.Equal(t, 25.00, records[0].ProgressPercent)
}

func TestRecompute_MonotonicProgress(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)

	prev := -1.0
	for _, counter := range []int64{0, 10, 24, 24, 49, 50, 50} {
		store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: counter})
		records, err := svc.Recompute(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.GreaterOrEqual(t, records[0].ProgressPercent, prev)
		prev = records[0].ProgressPercent
	}
	assert.Equal(t, 100.00, prev)
}

func TestRecompute_BackfillsBeforeComputing(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: 25})

	records, err := svc.Recompute(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 50.00, records[0].ProgressPercent)
}

func TestRecompute_NoStatsRowReadsAsZero(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)

	records, err := svc.Recompute(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AchievementStatusInProgress, records[0].Status)
	assert.Equal(t, 0.00, records[0].ProgressPercent)
}

func TestRecompute_StatsUnavailable(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.statsErr = assert.AnError

	_, err := svc.Recompute(context.Background(), "user-1")

	require.ErrorIs(t, err, ErrStatsUnavailable)
}

func TestRecompute_RetriesWriteConflictOnce(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: 25})
	store.conflictUpdates = 1

	records, err := svc.Recompute(context.Background(), "user-1")

	require.NoError(t, err, "a single conflict resolves on the retry")
	require.Len(t, records, 1)
	assert.Equal(t, 50.00, records[0].ProgressPercent)
}

func TestRecompute_SurfacesPersistentConflict(t *testing.T) {
	store, svc := newAchievementFixture()
	store.addType("q-50", models.AchievementKindQuestion, 50)
	store.addStats("user-1", models.UserStats{QuestionsAnsweredTotal: 25})
	store.conflictUpdates = 2

	_, err := svc.Recompute(context.Background(), "user-1")

	require.ErrorIs(t, err, ErrWriteConflict)
	// The HTTP layer matches on services errors only; the repository
	// sentinel must stay internal.
	assert.NotErrorIs(t, err, repository.ErrConflict)
}

func TestProgressForRounding(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.AchievementKind
		target  int64
		counter int64
		want    float64
	}{
		{"one third of 3", models.AchievementKindQuestion, 3, 1, 33.33},
		{"two thirds of 3", models.AchievementKindQuestion, 3, 2, 66.67},
		{"49 of 50", models.AchievementKindQuestion, 50, 49, 98.00},
		{"rounding must not fake completion", models.AchievementKindQuestion, 100000, 99999, 99.99},
		{"zero", models.AchievementKindLevel, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := models.AchievementType{Kind: tt.kind, Target: tt.target}
			counters := models.UserCounters{
				QuestionsAnsweredTotal: tt.counter,
				LevelProgress:          tt.counter,
			}
			status, pct := progressFor(def, counters)
			assert.Equal(t, models.AchievementStatusInProgress, status)
			assert.Equal(t, tt.want, pct)
		})
	}
}
