package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"
	"interview-analyzer-api/pkg/repository"
	"interview-analyzer-api/pkg/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Analyzer 面接1件を分析する
type Analyzer interface {
	Analyze(ctx context.Context, in dynamics.Input) (*dynamics.FinalAnalysis, error)
}

// AnalysisReader 保存済みの分析結果を読む
type AnalysisReader interface {
	GetByID(ctx context.Context, id string) (*models.AnalysisRecord, error)
	List(ctx context.Context, candidateID string, limit, offset int) ([]models.AnalysisRecord, error)
	Logs(ctx context.Context, analysisID string) ([]models.ProcessingLog, error)
	Statistics(ctx context.Context) (*models.AnalysisStatistics, error)
}

// SimilarSearcher 類似した過去の分析を検索する
type SimilarSearcher interface {
	SearchSimilar(ctx context.Context, query string, limit uint64, excludeCandidateID string) ([]models.SimilarAnalysis, error)
}

// AnalysisHandler 面接分析APIのハンドラ
type AnalysisHandler struct {
	analyzer Analyzer
	reader   AnalysisReader
	searcher SimilarSearcher
}

// NewAnalysisHandler 新しいAnalysisHandlerを作成。reader と searcher は nil でもよい。
func NewAnalysisHandler(analyzer Analyzer, reader AnalysisReader, searcher SimilarSearcher) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		reader:   reader,
		searcher: searcher,
	}
}

// Analyze POST /analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var in dynamics.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が正しくありません", "details": err.Error()})
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), in)
	switch {
	case errors.Is(err, dynamics.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "入力データが不正です", "details": err.Error()})
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析が中断されました", "details": err.Error()})
		return
	case err != nil:
		log.Printf("[分析API] 分析に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "分析に失敗しました"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// GetCriteria GET /criteria
func (h *AnalysisHandler) GetCriteria(c *gin.Context) {
	c.JSON(http.StatusOK, models.CriteriaResponse{
		Criteria:     dynamics.Criteria(),
		ModelVersion: dynamics.ModelVersion,
	})
}

// ListAnalyses GET /analyses?candidate_id=&limit=&offset=
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	if !h.requireReader(c) {
		return
	}
	limit := queryInt(c, "limit", 50, 1, 500)
	offset := queryInt(c, "offset", 0, 0, 1<<30)

	records, err := h.reader.List(c.Request.Context(), c.Query("candidate_id"), limit, offset)
	if err != nil {
		log.Printf("[分析API] 一覧の取得に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "分析一覧の取得に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, models.AnalysisListResponse{Analyses: records, Count: len(records)})
}

// GetStatistics GET /analyses/statistics
func (h *AnalysisHandler) GetStatistics(c *gin.Context) {
	if !h.requireReader(c) {
		return
	}
	stats, err := h.reader.Statistics(c.Request.Context())
	if err != nil {
		log.Printf("[分析API] 統計の取得に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "統計の取得に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SearchSimilar GET /analyses/similar?q=&limit=&exclude_candidate_id=
func (h *AnalysisHandler) SearchSimilar(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "類似検索は利用できません（Qdrant未設定）"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q パラメータは必須です"})
		return
	}
	limit := queryInt(c, "limit", 5, 1, 50)

	results, err := h.searcher.SearchSimilar(c.Request.Context(), query, uint64(limit), c.Query("exclude_candidate_id"))
	if err != nil {
		log.Printf("[分析API] 類似検索に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "類似検索に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, models.SimilarSearchResponse{Query: query, Results: results})
}

// GetAnalysis GET /analyses/:id
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetAnalysisLogs GET /analyses/:id/logs
func (h *AnalysisHandler) GetAnalysisLogs(c *gin.Context) {
	if !h.requireReader(c) {
		return
	}
	logs, err := h.reader.Logs(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("[分析API] 処理ログの取得に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "処理ログの取得に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis_id": c.Param("id"), "logs": logs})
}

// ExportAnalysis GET /analyses/:id/export
func (h *AnalysisHandler) ExportAnalysis(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	if rec.Analysis == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "分析結果の本体がありません"})
		return
	}
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.xlsx"`, rec.ID))
	c.Status(http.StatusOK)
	if err := services.WriteAnalysisWorkbook(rec.Analysis, c.Writer); err != nil {
		log.Printf("[分析API] エクスポートに失敗: %v", err)
	}
}

func (h *AnalysisHandler) loadRecord(c *gin.Context) (*models.AnalysisRecord, bool) {
	if !h.requireReader(c) {
		return nil, false
	}
	rec, err := h.reader.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "分析が見つかりません"})
		return nil, false
	}
	if err != nil {
		log.Printf("[分析API] 分析の取得に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "分析の取得に失敗しました"})
		return nil, false
	}
	return rec, true
}

func (h *AnalysisHandler) requireReader(c *gin.Context) bool {
	if h.reader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析履歴は利用できません（データベース未設定）"})
		return false
	}
	return true
}
