package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"interview-analyzer-api/pkg/database"
	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *AnalysisRepository {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAnalysisRepository(db)
}

func analysisFixture(id, candidateID string, total int, recommendation string, at time.Time) *dynamics.FinalAnalysis {
	return &dynamics.FinalAnalysis{
		AnalysisID:     id,
		CandidateID:    candidateID,
		CandidateName:  "Name " + candidateID,
		TotalScore:     total,
		WeightedScore:  float64(total) / 10,
		Recommendation: recommendation,
		Scores: map[dynamics.Criterion]dynamics.CriterionScore{
			dynamics.CommunicationSkills: {Criterion: dynamics.CommunicationSkills, Score: 8},
		},
		Quality: dynamics.Quality{
			ClassificationSource: dynamics.SourceFallback,
			AssessmentSource:     dynamics.SourceHolistic,
		},
		AnalysisTimestamp: at,
		ModelVersion:      dynamics.ModelVersion,
	}
}

func TestSaveAndGetByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := analysisFixture("a-1", "c-1", 72, "Proceed", at)
	require.NoError(t, repo.Save(ctx, a,
		models.ProcessingLog{Stage: "classification", Status: "fallback", Message: "timeout"},
		models.ProcessingLog{Stage: "analyze", Status: "ok", DurationMS: 120},
	))

	rec, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)

	assert.Equal(t, "c-1", rec.CandidateID)
	assert.Equal(t, 72, rec.TotalScore)
	assert.Equal(t, 7.2, rec.WeightedScore)
	assert.True(t, rec.Degraded)
	assert.True(t, at.Equal(rec.CreatedAt))
	require.NotNil(t, rec.Analysis)
	assert.Equal(t, 8, rec.Analysis.Scores[dynamics.CommunicationSkills].Score)
	assert.Equal(t, dynamics.SourceFallback, rec.Analysis.Quality.ClassificationSource)

	logs, err := repo.Logs(ctx, "a-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "classification", logs[0].Stage)
	assert.Equal(t, int64(120), logs[1].DurationMS)
}

func TestSave_Upserts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Now()

	require.NoError(t, repo.Save(ctx, analysisFixture("a-1", "c-1", 50, "Reject", at)))
	require.NoError(t, repo.Save(ctx, analysisFixture("a-1", "c-1", 90, "Hire", at)))

	rec, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, 90, rec.TotalScore)
	assert.Equal(t, "Hire", rec.Recommendation)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, analysisFixture("a-1", "c-1", 60, "Maybe", base)))
	require.NoError(t, repo.Save(ctx, analysisFixture("a-2", "c-2", 70, "Proceed", base.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, analysisFixture("a-3", "c-1", 80, "Proceed", base.Add(2*time.Hour))))

	all, err := repo.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-3", all[0].ID, "新しい順")
	assert.Nil(t, all[0].Analysis)

	c1, err := repo.List(ctx, "c-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, c1, 2)

	page, err := repo.List(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a-2", page[0].ID)
}

func TestStatistics(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Now()

	for i, total := range []int{90, 85, 70, 55, 54} {
		rec := "Proceed"
		if total < 55 {
			rec = ""
		}
		id := string(rune('a' + i))
		require.NoError(t, repo.Save(ctx, analysisFixture(id, "c", total, rec, at)))
	}

	stats, err := repo.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalInterviews)
	assert.Equal(t, 70.8, stats.AverageScore)
	assert.Equal(t, 2, stats.ScoreDistribution.Excellent)
	assert.Equal(t, 1, stats.ScoreDistribution.Good)
	assert.Equal(t, 1, stats.ScoreDistribution.Average)
	assert.Equal(t, 1, stats.ScoreDistribution.Poor)
	assert.Equal(t, map[string]int{"Proceed": 4, "Unknown": 1}, stats.RecommendationsBreakdown)
}

func TestStatistics_Empty(t *testing.T) {
	repo := newTestRepository(t)

	stats, err := repo.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalInterviews)
	assert.Zero(t, stats.AverageScore)
	assert.Empty(t, stats.RecommendationsBreakdown)
}
