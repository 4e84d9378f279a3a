package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"interview-analyzer-api/pkg/dynamics"

	"github.com/gin-gonic/gin"
)

// 保持するログの上限。古いものから捨てる。
const maxMonitoringEntries = 10000

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
}

// AnalysisEvent は分析1件の処理結果を表します。
type AnalysisEvent struct {
	Timestamp            time.Time       `json:"timestamp"`
	AnalysisID           string          `json:"analysisId"`
	Segments             int             `json:"segments"`
	Duration             time.Duration   `json:"duration"`
	ClassificationSource dynamics.Source `json:"classificationSource"`
	AssessmentSource     dynamics.Source `json:"assessmentSource"`
}

// MonitoringService はAPIと分析エンジンのモニタリング機能を提供します。
type MonitoringService struct {
	logs     []LogEntry
	analyses []AnalysisEvent
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService() *MonitoringService {
	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		analyses: make([]AnalysisEvent, 0),
		now:      time.Now,
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = appendCapped(s.logs, entry)
}

// RecordAnalysis は分析結果の品質と処理時間を記録します。
func (s *MonitoringService) RecordAnalysis(a *dynamics.FinalAnalysis, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = appendCapped(s.analyses, AnalysisEvent{
		Timestamp:            s.now(),
		AnalysisID:           a.AnalysisID,
		Segments:             len(a.Segments),
		Duration:             elapsed,
		ClassificationSource: a.Quality.ClassificationSource,
		AssessmentSource:     a.Quality.AssessmentSource,
	})
}

func appendCapped[T any](items []T, item T) []T {
	items = append(items, item)
	if len(items) > maxMonitoringEntries {
		items = items[len(items)-maxMonitoringEntries:]
	}
	return items
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// 管理系とモニタリング自体は記録しない
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		})
	}
}

// AnalysisSummary は期間内の分析の集計です。
type AnalysisSummary struct {
	Total                  int     `json:"total"`
	ClassificationFallback int     `json:"classificationFallback"`
	AssessmentFallback     int     `json:"assessmentFallback"`
	AvgDurationMs          int64   `json:"avgDurationMs"`
	AvgSegments            float64 `json:"avgSegments"`
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
	Analyses         AnalysisSummary          `json:"analyses"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// JSTが取得できない場合はUTC
	jst, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		jst = time.UTC
	}

	now := s.now().In(jst)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filteredLogs := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filteredLogs = append(filteredLogs, entry)
		}
	}

	// requestsOverTime: 過去から現在へ1時間ごと
	requestsOverTime := make([]map[string]interface{}, periodHours)
	hourlyBuckets := make(map[string]int)
	for _, entry := range filteredLogs {
		hourlyBuckets[entry.Timestamp.In(jst).Truncate(time.Hour).Format(time.RFC3339)]++
	}
	for i := 0; i < periodHours; i++ {
		targetTime := now.Add(-time.Duration(periodHours-1-i) * time.Hour)
		bucketKey := targetTime.Truncate(time.Hour).Format(time.RFC3339)
		requestsOverTime[i] = map[string]interface{}{
			"time":     targetTime.Format("15:00"),
			"requests": hourlyBuckets[bucketKey],
		}
	}

	endpoints := make(map[string]int)
	statusCodes := map[string]int{
		"2xx Success":      0,
		"4xx Client Error": 0,
		"5xx Server Error": 0,
	}
	responseTimeSum := make(map[string]time.Duration)
	responseCount := make(map[string]int)
	for _, entry := range filteredLogs {
		endpoints[entry.Path]++
		switch {
		case entry.StatusCode >= 500:
			statusCodes["5xx Server Error"]++
		case entry.StatusCode >= 400:
			statusCodes["4xx Client Error"]++
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusCodes["2xx Success"]++
		}
		responseTimeSum[entry.Path] += entry.ResponseTime
		responseCount[entry.Path]++
	}

	statusCodesSlice := make([]map[string]interface{}, 0, len(statusCodes))
	for name, value := range statusCodes {
		statusCodesSlice = append(statusCodesSlice, map[string]interface{}{"name": name, "value": value})
	}
	sort.Slice(statusCodesSlice, func(i, j int) bool {
		return statusCodesSlice[i]["name"].(string) < statusCodesSlice[j]["name"].(string)
	})

	avgResponseTimes := make([]map[string]interface{}, 0, len(responseTimeSum))
	for path, total := range responseTimeSum {
		avg := total.Milliseconds() / int64(responseCount[path])
		avgResponseTimes = append(avgResponseTimes, map[string]interface{}{"endpoint": path, "responseTime": avg})
	}

	// 直近のサーバーエラー（新しい順に最大10件）
	recentErrors := make([]LogEntry, 0)
	for i := len(filteredLogs) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filteredLogs[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filteredLogs[i])
		}
	}

	return DashboardData{
		RequestsOverTime: requestsOverTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodesSlice,
		AvgResponseTimes: avgResponseTimes,
		RecentErrors:     recentErrors,
		Analyses:         s.summarizeAnalyses(since),
	}
}

func (s *MonitoringService) summarizeAnalyses(since time.Time) AnalysisSummary {
	var summary AnalysisSummary
	var totalDuration time.Duration
	var totalSegments int
	for _, ev := range s.analyses {
		if !ev.Timestamp.After(since) {
			continue
		}
		summary.Total++
		if ev.ClassificationSource == dynamics.SourceFallback {
			summary.ClassificationFallback++
		}
		if ev.AssessmentSource == dynamics.SourceFallback {
			summary.AssessmentFallback++
		}
		totalDuration += ev.Duration
		totalSegments += ev.Segments
	}
	if summary.Total > 0 {
		summary.AvgDurationMs = totalDuration.Milliseconds() / int64(summary.Total)
		summary.AvgSegments = roundTo(float64(totalSegments)/float64(summary.Total), 1)
	}
	return summary
}
