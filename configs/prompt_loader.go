package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var embeddedPrompts []byte

// PromptTemplate system / user の2つのテンプレート
type PromptTemplate struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// PromptConfig はprompts.yamlの構造を定義
type PromptConfig struct {
	Version    string         `yaml:"version"`
	Classifier PromptTemplate `yaml:"classifier"`
	Assessor   PromptTemplate `yaml:"assessor"`
}

var (
	defaultPromptsOnce sync.Once
	defaultPrompts     *PromptConfig
	defaultPromptsErr  error
)

// LoadPrompts プロンプト設定を読み込む。path が空なら組み込みの prompts.yaml を使う。
func LoadPrompts(path string) (*PromptConfig, error) {
	if path == "" {
		defaultPromptsOnce.Do(func() {
			defaultPrompts, defaultPromptsErr = parsePrompts(embeddedPrompts)
		})
		return defaultPrompts, defaultPromptsErr
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("プロンプト設定ファイルの読み込みに失敗: %w", err)
	}
	return parsePrompts(data)
}

func parsePrompts(data []byte) (*PromptConfig, error) {
	var cfg PromptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *PromptConfig) validate() error {
	required := map[string]struct {
		tmpl         PromptTemplate
		placeholders []string
	}{
		"classifier": {c.Classifier, []string{"{{segments}}"}},
		"assessor":   {c.Assessor, []string{"{{context}}"}},
	}
	for name, r := range required {
		if strings.TrimSpace(r.tmpl.System) == "" || strings.TrimSpace(r.tmpl.User) == "" {
			return fmt.Errorf("プロンプト %s の system / user が空です", name)
		}
		for _, p := range r.placeholders {
			if !strings.Contains(r.tmpl.User, p) {
				return fmt.Errorf("プロンプト %s に %s がありません", name, p)
			}
		}
	}
	return nil
}

// Render {{key}} を値で置き換える
func (t PromptTemplate) Render(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t.User)
}
