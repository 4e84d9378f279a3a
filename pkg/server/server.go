// Package server は外部サービスの初期化とGinルーターの組み立てを行います。
// cmd/server（常駐プロセス）と api/（Vercel関数）の両方から使われます。
package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/azure"
	"interview-analyzer-api/pkg/database"
	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/handlers"
	"interview-analyzer-api/pkg/repository"
	"interview-analyzer-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// App ルーターが必要とする依存関係一式
type App struct {
	Config     *config.Config
	Analysis   *services.AnalysisService
	Reader     handlers.AnalysisReader
	Searcher   handlers.SimilarSearcher
	Monitoring *services.MonitoringService
	Components handlers.ComponentStatus

	closers []func()
}

// Build 外部サービスを初期化する。使えないものは無効のまま続行する。
func Build(ctx context.Context, cfg *config.Config, prompts *config.PromptConfig) *App {
	a := &App{Config: cfg, Monitoring: services.NewMonitoringService()}

	// Azure OpenAI（質問分類・総合評価・埋め込み）
	client := azure.NewOpenAIClient(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
		cfg.HTTPProxyURL,
	)
	aiService := services.NewAzureOpenAIService(client, prompts, cfg.SegmentWindowSeconds)

	// 未設定の *AzureOpenAIService をインターフェースに入れると nil 判定が効かない
	var classifier dynamics.Classifier
	var assessor dynamics.Assessor
	if aiService.Configured() {
		classifier = aiService
		assessor = aiService
		a.Components.AzureOpenAI = true
	} else {
		log.Println("[分析エンジン] Azure OpenAI 未設定のため、質問分類と総合評価はフォールバックで動作します")
	}

	engine := dynamics.NewEngine(dynamics.Config{
		WindowSeconds:     float64(cfg.SegmentWindowSeconds),
		ClassifierTimeout: cfg.ClassifierTimeout,
		AssessorTimeout:   cfg.AssessorTimeout,
	}, classifier, assessor)

	// SQLite
	var store services.AnalysisStore
	if cfg.DatabasePath != "" {
		db, err := database.Open(ctx, cfg.DatabasePath)
		if err != nil {
			log.Printf("[データベース] 初期化に失敗しました。履歴機能は無効です: %v", err)
		} else {
			repo := repository.NewAnalysisRepository(db)
			store = repo
			a.Reader = repo
			a.Components.Database = true
			a.closers = append(a.closers, func() { closeDB(db) })
		}
	}

	// 結果ブック
	var sink services.ResultsSink
	if cfg.ResultsWorkbookPath != "" {
		sink = services.NewResultsWorkbookService(cfg.ResultsWorkbookPath)
		a.Components.ResultsWorkbook = true
	}

	// Qdrant（埋め込みが使える場合のみ）
	var archive services.AnalysisArchive
	if cfg.QdrantURL != "" && aiService.EmbeddingsEnabled() {
		conn, err := services.DialQdrant(cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			log.Printf("[Qdrant] 接続に失敗しました。類似検索は無効です: %v", err)
		} else if vs, err := services.NewVectorStoreService(ctx, conn, aiService, cfg.QdrantCollection); err != nil {
			log.Printf("[Qdrant] 初期化に失敗しました。類似検索は無効です: %v", err)
			conn.Close()
		} else {
			archive = vs
			a.Searcher = vs
			a.Components.VectorStore = true
			a.closers = append(a.closers, func() { conn.Close() })
		}
	}

	a.Analysis = services.NewAnalysisService(engine, store, sink, archive, a.Monitoring)
	return a
}

// Close 開いた接続を閉じる
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Printf("[データベース] クローズに失敗しました: %v", err)
	}
}

// APIKeyMiddleware X-API-KEY ヘッダーを検証する。キー未設定なら素通し。
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" || apiKey == "default_secret_key" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// NewRouter ルーティングとミドルウェアを登録したGinエンジンを返す
func NewRouter(a *App) *gin.Engine {
	r := gin.Default()

	analysisHandler := handlers.NewAnalysisHandler(a.Analysis, a.Reader, a.Searcher)
	adminHandler := handlers.NewAdminHandler(a.Config, a.Components)
	monitoringHandler := handlers.NewMonitoringHandler(a.Monitoring)

	// ミドルウェアの登録
	r.Use(a.Monitoring.LoggingMiddleware())
	corsConfig := cors.DefaultConfig()
	if len(a.Config.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = a.Config.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-API-KEY")
	r.Use(cors.New(corsConfig))

	// ヘルスチェックエンドポイント
	r.GET("/health", adminHandler.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(APIKeyMiddleware(a.Config.APIKey))
	{
		v1.POST("/analyze", analysisHandler.Analyze)
		v1.GET("/criteria", analysisHandler.GetCriteria)

		analyses := v1.Group("/analyses")
		{
			analyses.GET("", analysisHandler.ListAnalyses)
			analyses.GET("/statistics", analysisHandler.GetStatistics)
			analyses.GET("/similar", analysisHandler.SearchSimilar)
			analyses.GET("/:id", analysisHandler.GetAnalysis)
			analyses.GET("/:id/logs", analysisHandler.GetAnalysisLogs)
			analyses.GET("/:id/export", analysisHandler.ExportAnalysis)
		}

		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	return r
}
