package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	saved []*dynamics.FinalAnalysis
	logs  [][]models.ProcessingLog
	err   error
}

func (f *fakeStore) Save(_ context.Context, a *dynamics.FinalAnalysis, logs ...models.ProcessingLog) error {
	f.saved = append(f.saved, a)
	f.logs = append(f.logs, logs)
	return f.err
}

type fakeSink struct {
	appended int
	err      error
}

func (f *fakeSink) Append(*dynamics.FinalAnalysis) error {
	f.appended++
	return f.err
}

type fakeArchive struct {
	archived int
	ctxErr   error
}

func (f *fakeArchive) ArchiveAnalysis(ctx context.Context, _ *dynamics.FinalAnalysis) error {
	f.archived++
	f.ctxErr = ctx.Err()
	return nil
}

func interviewInput(seconds float64) dynamics.Input {
	return dynamics.Input{
		Transcript: dynamics.Transcript{Text: strings.Repeat("word ", 120)},
		Video:      dynamics.VideoFeatures{Duration: seconds},
		Candidate:  dynamics.Candidate{ID: "c-1", Name: "Test Candidate"},
	}
}

func TestAnalysisService_PersistsEverywhere(t *testing.T) {
	store, sink, archive := &fakeStore{}, &fakeSink{}, &fakeArchive{}
	monitor := NewMonitoringService()
	svc := NewAnalysisService(dynamics.NewEngine(dynamics.DefaultConfig(), nil, nil), store, sink, archive, monitor)

	a, err := svc.Analyze(context.Background(), interviewInput(90))
	require.NoError(t, err)

	assert.Len(t, a.Segments, 3)
	assert.Equal(t, 1, sink.appended)
	assert.Equal(t, 1, archive.archived)
	require.Len(t, store.saved, 1)
	assert.Same(t, a, store.saved[0])

	stages := map[string]string{}
	for _, l := range store.logs[0] {
		stages[l.Stage] = l.Status
	}
	// 分類器・評価器なしなので両方フォールバック
	assert.Equal(t, "fallback", stages["classification"])
	assert.Equal(t, "fallback", stages["assessment"])
	assert.Equal(t, "ok", stages["workbook"])
	assert.Equal(t, "ok", stages["archive"])
	assert.Equal(t, 1, monitor.GetDashboardData(1).Analyses.Total)
}

func TestAnalysisService_PersistenceFailuresDoNotFail(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	sink := &fakeSink{err: errors.New("locked")}
	svc := NewAnalysisService(dynamics.NewEngine(dynamics.DefaultConfig(), nil, nil), store, sink, nil, nil)

	a, err := svc.Analyze(context.Background(), interviewInput(30))
	require.NoError(t, err)
	assert.NotNil(t, a)

	require.Len(t, store.logs, 1)
	last := store.logs[0][len(store.logs[0])-1]
	assert.Equal(t, "workbook", last.Stage)
	assert.Equal(t, "error", last.Status)
	assert.Equal(t, "locked", last.Message)
}

func TestAnalysisService_MalformedInputSkipsPersistence(t *testing.T) {
	store := &fakeStore{}
	svc := NewAnalysisService(dynamics.NewEngine(dynamics.DefaultConfig(), nil, nil), store, nil, nil, nil)

	_, err := svc.Analyze(context.Background(), interviewInput(-5))
	assert.ErrorIs(t, err, dynamics.ErrMalformedInput)
	assert.Empty(t, store.saved)
}

func TestAnalysisService_PersistsAfterCallerCancels(t *testing.T) {
	archive := &fakeArchive{}
	engine := dynamics.NewEngine(dynamics.DefaultConfig(), nil, nil)
	svc := NewAnalysisService(engine, nil, nil, archive, nil)

	ctx, cancel := context.WithCancel(context.Background())
	a, err := svc.Analyze(ctx, interviewInput(30))
	cancel()
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NoError(t, archive.ctxErr)
}

func TestProcessingLogs(t *testing.T) {
	a := &dynamics.FinalAnalysis{Quality: dynamics.Quality{
		ClassificationSource: dynamics.SourceSemantic,
		AssessmentSource:     dynamics.SourceFallback,
		AssessmentError:      "timeout",
	}}

	logs := ProcessingLogs(a, 1500*time.Millisecond)

	require.Len(t, logs, 3)
	assert.Equal(t, "ok", logs[0].Status)
	assert.Equal(t, "fallback", logs[1].Status)
	assert.Equal(t, "timeout", logs[1].Message)
	assert.Equal(t, int64(1500), logs[2].DurationMS)
}
