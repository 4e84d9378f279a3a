package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"interview-analyzer-api/pkg/dynamics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware_SkipsAdminAndMonitoring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewMonitoringService()

	r := gin.New()
	r.Use(s.LoggingMiddleware())
	r.GET("/api/v1/criteria", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/monitoring/logs", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/api/v1/criteria", "/api/v1/monitoring/logs", "/api/v1/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	data := s.GetDashboardData(1)
	assert.Equal(t, map[string]int{"/api/v1/criteria": 1, "/api/v1/boom": 1}, data.Endpoints)
	require.Len(t, data.RecentErrors, 1)
	assert.Equal(t, "/api/v1/boom", data.RecentErrors[0].Path)
	assert.Len(t, data.RequestsOverTime, 1)
}

func TestGetDashboardData_StatusCodes(t *testing.T) {
	s := NewMonitoringService()
	now := time.Now()
	s.LogRequest(LogEntry{Timestamp: now, Path: "/a", StatusCode: 200, ResponseTime: 10 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now, Path: "/a", StatusCode: 400, ResponseTime: 30 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now.Add(-48 * time.Hour), Path: "/old", StatusCode: 500})

	data := s.GetDashboardData(24)

	counts := map[string]interface{}{}
	for _, sc := range data.StatusCodes {
		counts[sc["name"].(string)] = sc["value"]
	}
	assert.Equal(t, 1, counts["2xx Success"])
	assert.Equal(t, 1, counts["4xx Client Error"])
	assert.Equal(t, 0, counts["5xx Server Error"])
	require.Len(t, data.AvgResponseTimes, 1)
	assert.Equal(t, int64(20), data.AvgResponseTimes[0]["responseTime"])
	assert.Empty(t, data.RecentErrors)
}

func TestRecordAnalysis(t *testing.T) {
	s := NewMonitoringService()

	ok := sampleFinalAnalysis("a-1", "c-1", 7)
	ok.Segments = make([]dynamics.Segment, 4)
	degraded := sampleFinalAnalysis("a-2", "c-2", 5)
	degraded.Segments = make([]dynamics.Segment, 2)
	degraded.Quality.AssessmentSource = dynamics.SourceFallback

	s.RecordAnalysis(ok, 300*time.Millisecond)
	s.RecordAnalysis(degraded, 100*time.Millisecond)

	summary := s.GetDashboardData(1).Analyses
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 0, summary.ClassificationFallback)
	assert.Equal(t, 1, summary.AssessmentFallback)
	assert.Equal(t, int64(200), summary.AvgDurationMs)
	assert.Equal(t, 3.0, summary.AvgSegments)
}

func TestLogRetentionIsCapped(t *testing.T) {
	s := NewMonitoringService()
	for i := 0; i < maxMonitoringEntries+5; i++ {
		s.LogRequest(LogEntry{Timestamp: time.Now(), Path: "/x", StatusCode: 200})
	}
	assert.Len(t, s.logs, maxMonitoringEntries)
}
