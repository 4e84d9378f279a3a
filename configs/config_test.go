package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":                              "9090",
		"ENVIRONMENT":                       "test",
		"AZURE_OPENAI_ENDPOINT":             "https://test.openai.azure.com/",
		"AZURE_OPENAI_API_KEY":              "test-key",
		"AZURE_OPENAI_API_VERSION":          "2024-02-01",
		"AZURE_OPENAI_CHAT_DEPLOYMENT_NAME": "test-deployment",
		"QDRANT_URL":                        "localhost:6334",
		"ALLOWED_ORIGINS":                   "http://a.example, http://b.example",
		"SEGMENT_WINDOW_SECONDS":            "45",
		"CLASSIFIER_TIMEOUT":                "15s",
		"ASSESSOR_TIMEOUT":                  "90",
	}
	for key, value := range testCases {
		t.Setenv(key, value)
	}

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "https://test.openai.azure.com/", cfg.AzureOpenAIEndpoint)
	assert.Equal(t, "test-key", cfg.AzureOpenAIAPIKey)
	assert.Equal(t, "2024-02-01", cfg.AzureOpenAIAPIVersion)
	assert.Equal(t, "test-deployment", cfg.AzureOpenAIChatDeploymentName)
	assert.Equal(t, "localhost:6334", cfg.QdrantURL)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 45, cfg.SegmentWindowSeconds)
	assert.Equal(t, 15*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 90*time.Second, cfg.AssessorTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigDefaults(t *testing.T) {
	// 環境変数をクリア
	vars := []string{
		"PORT", "ENVIRONMENT", "AZURE_OPENAI_API_VERSION", "AZURE_OPENAI_CHAT_DEPLOYMENT_NAME",
		"QDRANT_COLLECTION", "DATABASE_PATH", "RESULTS_WORKBOOK_PATH",
		"SEGMENT_WINDOW_SECONDS", "CLASSIFIER_TIMEOUT", "ASSESSOR_TIMEOUT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "2024-06-01", cfg.AzureOpenAIAPIVersion)
	assert.Equal(t, "gpt-4o-mini", cfg.AzureOpenAIChatDeploymentName)
	assert.Equal(t, "interview_analyses", cfg.QdrantCollection)
	assert.Equal(t, "data/interviews.db", cfg.DatabasePath)
	assert.Equal(t, "data/results.xlsx", cfg.ResultsWorkbookPath)
	assert.Equal(t, 30, cfg.SegmentWindowSeconds)
	assert.Equal(t, 60*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 120*time.Second, cfg.AssessorTimeout)
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("SEGMENT_WINDOW_SECONDS", "-10")
	t.Setenv("CLASSIFIER_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 30, cfg.SegmentWindowSeconds)
	assert.Equal(t, 60*time.Second, cfg.ClassifierTimeout)
}

func TestLoadPrompts_Embedded(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)

	assert.NotEmpty(t, prompts.Version)
	assert.Contains(t, prompts.Classifier.User, "{{segments}}")
	assert.Contains(t, prompts.Assessor.User, "{{context}}")
}

func TestLoadPrompts_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `
version: "test"
classifier:
  system: classify
  user: "segments: {{segments}} count={{count}}"
assessor:
  system: assess
  user: "context: {{context}}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)

	assert.Equal(t, "test", prompts.Version)
	assert.Equal(t, "segments: A B count=2", prompts.Classifier.Render(map[string]string{"segments": "A B", "count": "2"}))
}

func TestLoadPrompts_Invalid(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.yaml")
	_, err := LoadPrompts(missing)
	assert.Error(t, err)

	noPlaceholder := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(noPlaceholder, []byte("classifier:\n  system: s\n  user: u\nassessor:\n  system: s\n  user: \"{{context}}\"\n"), 0o600))
	_, err = LoadPrompts(noPlaceholder)
	assert.Error(t, err)
}
