package models

import (
	"time"

	"interview-analyzer-api/pkg/dynamics"
)

// AnalysisRecord 保存済みの分析結果1件
type AnalysisRecord struct {
	ID             string                  `json:"id"`
	CandidateID    string                  `json:"candidate_id"`
	CandidateName  string                  `json:"candidate_name"`
	CandidateEmail string                  `json:"candidate_email,omitempty"`
	TotalScore     int                     `json:"total_score"`
	WeightedScore  float64                 `json:"weighted_score"`
	Recommendation string                  `json:"recommendation"`
	Degraded       bool                    `json:"degraded"` // 分類・評価のどちらかがフォールバックした
	CreatedAt      time.Time               `json:"created_at"`
	Analysis       *dynamics.FinalAnalysis `json:"analysis,omitempty"` // 一覧では省略
}

// NewAnalysisRecord 分析結果から保存用レコードを作成
func NewAnalysisRecord(a *dynamics.FinalAnalysis) AnalysisRecord {
	return AnalysisRecord{
		ID:             a.AnalysisID,
		CandidateID:    a.CandidateID,
		CandidateName:  a.CandidateName,
		CandidateEmail: a.CandidateEmail,
		TotalScore:     a.TotalScore,
		WeightedScore:  a.WeightedScore,
		Recommendation: a.Recommendation,
		Degraded:       a.Quality.Degraded(),
		CreatedAt:      a.AnalysisTimestamp,
		Analysis:       a,
	}
}

// AnalysisListResponse 分析一覧のレスポンス
type AnalysisListResponse struct {
	Analyses []AnalysisRecord `json:"analyses"`
	Count    int              `json:"count"`
}

// ScoreDistribution 合計点（10-100）の分布
type ScoreDistribution struct {
	Excellent int `json:"excellent"` // 85以上
	Good      int `json:"good"`      // 70-84
	Average   int `json:"average"`   // 55-69
	Poor      int `json:"poor"`      // 55未満
}

// Add 合計点を該当する区分に数える
func (d *ScoreDistribution) Add(totalScore int) {
	switch {
	case totalScore >= 85:
		d.Excellent++
	case totalScore >= 70:
		d.Good++
	case totalScore >= 55:
		d.Average++
	default:
		d.Poor++
	}
}

// AnalysisStatistics 分析結果の集計
type AnalysisStatistics struct {
	TotalInterviews          int               `json:"total_interviews"`
	AverageScore             float64           `json:"average_score"`
	AverageWeightedScore     float64           `json:"average_weighted_score"`
	RecommendationsBreakdown map[string]int    `json:"recommendations_breakdown"`
	ScoreDistribution        ScoreDistribution `json:"score_distribution"`
}

// ProcessingLog 分析処理の段階ごとのログ
type ProcessingLog struct {
	ID         int64     `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	Stage      string    `json:"stage"`  // "analyze", "classification", "assessment", "workbook", "archive"
	Status     string    `json:"status"` // "ok", "fallback", "error"
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// SimilarAnalysis ベクトル検索でヒットした過去の分析
type SimilarAnalysis struct {
	AnalysisID     string  `json:"analysis_id"`
	CandidateID    string  `json:"candidate_id"`
	CandidateName  string  `json:"candidate_name"`
	TotalScore     int     `json:"total_score"`
	WeightedScore  float64 `json:"weighted_score"`
	Recommendation string  `json:"recommendation"`
	Summary        string  `json:"summary"`
	Similarity     float32 `json:"similarity"`
}

// SimilarSearchResponse 類似分析検索のレスポンス
type SimilarSearchResponse struct {
	Query   string            `json:"query"`
	Results []SimilarAnalysis `json:"results"`
}

// CriteriaResponse 評価基準カタログ
type CriteriaResponse struct {
	Criteria     []dynamics.CriterionDescription `json:"criteria"`
	ModelVersion string                          `json:"model_version"`
}
