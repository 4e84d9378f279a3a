package main

import (
	"context"
	"log"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	prompts, err := config.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		log.Fatalf("FATAL: プロンプトの読み込みに失敗しました: %v", err)
	}

	app := server.Build(context.Background(), cfg, prompts)
	defer app.Close()

	r := server.NewRouter(app)

	log.Printf("Starting Interview Analyzer API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
