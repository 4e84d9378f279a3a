package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port        string
	Environment string

	// API 認証
	APIKey         string
	AdminUsername  string
	AdminPassword  string
	AllowedOrigins []string

	// Azure OpenAI
	AzureOpenAIEndpoint                string
	AzureOpenAIAPIKey                  string
	AzureOpenAIAPIVersion              string
	AzureOpenAIChatDeploymentName      string
	AzureOpenAIEmbeddingDeploymentName string
	HTTPProxyURL                       string

	// Qdrant
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// 永続化
	DatabasePath        string
	ResultsWorkbookPath string
	PromptsPath         string

	// 分析エンジン
	SegmentWindowSeconds int
	ClassifierTimeout    time.Duration
	AssessorTimeout      time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		APIKey:         getEnv("API_KEY", ""),
		AdminUsername:  getEnv("ADMIN_USERNAME", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		AzureOpenAIEndpoint:                getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:                  getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:              getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
		AzureOpenAIChatDeploymentName:      getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", "gpt-4o-mini"),
		AzureOpenAIEmbeddingDeploymentName: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME", ""),
		HTTPProxyURL:                       getEnv("HTTP_PROXY_URL", ""),

		QdrantURL:        getEnv("QDRANT_URL", ""),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "interview_analyses"),

		DatabasePath:        getEnv("DATABASE_PATH", "data/interviews.db"),
		ResultsWorkbookPath: getEnv("RESULTS_WORKBOOK_PATH", "data/results.xlsx"),
		PromptsPath:         getEnv("PROMPTS_PATH", ""),

		SegmentWindowSeconds: getEnvInt("SEGMENT_WINDOW_SECONDS", 30),
		ClassifierTimeout:    getEnvDuration("CLASSIFIER_TIMEOUT", 60*time.Second),
		AssessorTimeout:      getEnvDuration("ASSESSOR_TIMEOUT", 120*time.Second),
	}
}

// IsProduction 本番環境かどうか
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 正の整数として読めない値はデフォルト値にする
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("警告: %s の値が不正です (%q)。デフォルト値 %d を使用します", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration "90s" 形式と秒数の整数の両方を受け付ける
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("警告: %s の値が不正です (%q)。デフォルト値 %s を使用します", key, value, defaultValue)
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
