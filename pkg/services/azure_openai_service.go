package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/azure"
	"interview-analyzer-api/pkg/dynamics"
)

const (
	classifierMaxTokens   = 1000
	classifierTemperature = 0.1
	assessorMaxTokens     = 4000
	assessorTemperature   = 0.2
)

// AzureOpenAIService Azure OpenAI を使った質問分類と総合評価
type AzureOpenAIService struct {
	client        *azure.OpenAIClient
	prompts       *config.PromptConfig
	windowSeconds int
}

// NewAzureOpenAIService 新しいAzure OpenAI サービスを作成
func NewAzureOpenAIService(client *azure.OpenAIClient, prompts *config.PromptConfig, windowSeconds int) *AzureOpenAIService {
	if windowSeconds <= 0 {
		windowSeconds = dynamics.DefaultWindowSeconds
	}
	return &AzureOpenAIService{
		client:        client,
		prompts:       prompts,
		windowSeconds: windowSeconds,
	}
}

// Configured Azure OpenAI が利用可能か
func (aos *AzureOpenAIService) Configured() bool {
	return aos != nil && aos.client.Configured() && aos.prompts != nil
}

type rawClassification struct {
	Type        string          `json:"type"`
	Complexity  json.RawMessage `json:"complexity"`
	Description string          `json:"description"`
}

// ClassifyQuestions セグメントの書き起こしから質問タイプと難易度を判定する。
// 応答にないセグメントは unknown / 5 として埋める。
func (aos *AzureOpenAIService) ClassifyQuestions(ctx context.Context, transcripts []string) ([]dynamics.QuestionClassification, error) {
	if !aos.Configured() {
		return nil, fmt.Errorf("Azure OpenAI が設定されていません")
	}

	var sb strings.Builder
	for i, text := range transcripts {
		start := i * aos.windowSeconds
		fmt.Fprintf(&sb, "segment_%d (%d-%ds): %s\n\n", i+1, start, start+aos.windowSeconds, strings.TrimSpace(text))
	}
	userPrompt := aos.prompts.Classifier.Render(map[string]string{
		"window":   strconv.Itoa(aos.windowSeconds),
		"count":    strconv.Itoa(len(transcripts)),
		"segments": sb.String(),
	})

	content, err := aos.client.Complete(ctx, aos.prompts.Classifier.System, userPrompt, azure.CompletionOptions{
		MaxTokens:   classifierMaxTokens,
		Temperature: classifierTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("質問分類APIの呼び出しに失敗: %w", err)
	}

	var raw map[string]rawClassification
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &raw); err != nil {
		return nil, fmt.Errorf("質問分類の応答をパースできません: %w", err)
	}

	out := make([]dynamics.QuestionClassification, len(transcripts))
	missing := 0
	for i := range transcripts {
		entry, ok := raw[fmt.Sprintf("segment_%d", i+1)]
		if !ok {
			missing++
			out[i] = dynamics.QuestionClassification{
				SegmentID:   i + 1,
				Type:        dynamics.QuestionUnknown,
				Complexity:  5,
				Description: "Not classified",
			}
			continue
		}
		out[i] = dynamics.QuestionClassification{
			SegmentID:   i + 1,
			Type:        dynamics.QuestionType(entry.Type),
			Complexity:  parseComplexity(entry.Complexity),
			Description: entry.Description,
		}
	}
	if missing > 0 {
		log.Printf("[質問分類] %d/%d セグメントが応答に含まれていません", missing, len(transcripts))
	}
	return out, nil
}

// parseComplexity 数値でも文字列でも受け付ける。読めなければ 0（未指定）。
func parseComplexity(raw json.RawMessage) int {
	n, ok := parseNumber(raw)
	if !ok {
		return 0
	}
	return int(n + 0.5)
}

// parseNumber JSON の数値と数値文字列（"8" など）の両方を読む
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// rawAssessment holistic_scores だけは値の型を問わずに受け取る
type rawAssessment struct {
	dynamics.HolisticAssessment
	Scores map[dynamics.Criterion]json.RawMessage `json:"holistic_scores"`
}

// AssessCandidate 時系列の行動データをもとに10基準の総合評価を依頼する
func (aos *AzureOpenAIService) AssessCandidate(ctx context.Context, ac dynamics.AssessmentContext) (*dynamics.HolisticAssessment, error) {
	if !aos.Configured() {
		return nil, fmt.Errorf("Azure OpenAI が設定されていません")
	}

	userPrompt := aos.prompts.Assessor.Render(map[string]string{
		"context": BuildAssessmentPrompt(ac),
	})

	content, err := aos.client.Complete(ctx, aos.prompts.Assessor.System, userPrompt, azure.CompletionOptions{
		MaxTokens:   assessorMaxTokens,
		Temperature: assessorTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("総合評価APIの呼び出しに失敗: %w", err)
	}

	var raw rawAssessment
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &raw); err != nil {
		return nil, fmt.Errorf("総合評価の応答をパースできません: %w", err)
	}

	assessment := raw.HolisticAssessment
	assessment.Scores = make(map[dynamics.Criterion]float64, len(raw.Scores))
	for c, v := range raw.Scores {
		score, ok := parseNumber(v)
		if !ok {
			log.Printf("[総合評価] %s のスコアを読めません: %s", c, string(v))
			continue
		}
		assessment.Scores[c] = score
	}
	if len(assessment.Scores) == 0 {
		return nil, fmt.Errorf("総合評価の応答にスコアがありません")
	}
	return &assessment, nil
}

// CreateEmbedding テキストをベクトル化する
func (aos *AzureOpenAIService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return aos.client.CreateEmbedding(ctx, text)
}

// EmbeddingsEnabled Embedding 用のデプロイが設定されているか
func (aos *AzureOpenAIService) EmbeddingsEnabled() bool {
	return aos != nil && aos.client.EmbeddingsEnabled()
}

// BuildAssessmentPrompt 総合評価器に渡す構造化コンテキストをテキストにする
func BuildAssessmentPrompt(ac dynamics.AssessmentContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "CANDIDATE: %s (id %s)\n", orDash(ac.Candidate.Name), orDash(ac.Candidate.ID))
	if ac.Candidate.Preferences != "" {
		fmt.Fprintf(&sb, "PREFERENCES: %s\n", ac.Candidate.Preferences)
	}
	fmt.Fprintf(&sb, "DURATION: %.0f seconds, %d segments of %.0f seconds\n\n", ac.Duration, len(ac.Segments), ac.WindowSeconds)

	sb.WriteString("SEGMENT DYNAMICS:\n")
	for _, d := range ac.Dynamics {
		fmt.Fprintf(&sb, "- %ss [%s, complexity %d]: confidence %.1f, stress %.1f, communication %.1f, engagement %.1f, adaptability %.1f (%s)\n",
			d.TimeLabel, d.QuestionType, d.Complexity, d.Confidence, d.Stress, d.Communication, d.Engagement, d.Adaptability, d.AdaptationType)
		if len(d.StressIndicators) > 0 {
			fmt.Fprintf(&sb, "  stress indicators: %s\n", strings.Join(d.StressIndicators, ", "))
		}
	}

	sb.WriteString("\nBEHAVIOUR BY QUESTION TYPE:\n")
	for _, tc := range ac.TypeCorrelations {
		fmt.Fprintf(&sb, "- %s (%d segments, complexity %d-%d): confidence %.1f, stress %.1f, communication %.1f, engagement %.1f\n",
			tc.Type, tc.SegmentCount, tc.MinComplexity, tc.MaxComplexity,
			tc.AverageConfidence, tc.AverageStress, tc.AverageCommunication, tc.AverageEngagement)
	}

	p := ac.Patterns
	sb.WriteString("\nTEMPORAL PATTERNS:\n")
	fmt.Fprintf(&sb, "- confidence trend: %s (%.1f -> %.1f, stability %.2f, volatility %.2f)\n",
		p.ConfidenceTrend.Direction, p.ConfidenceTrend.StartLevel, p.ConfidenceTrend.EndLevel,
		p.ConfidenceTrend.Stability, p.ConfidenceTrend.Volatility)
	fmt.Fprintf(&sb, "- stress: max %.1f, average %.1f, peaks in segments %v\n",
		p.StressPattern.Max, p.StressPattern.Average, p.StressPattern.PeakSegments)
	fmt.Fprintf(&sb, "- communication stability %.2f, average engagement %.1f\n", p.CommunicationStability, p.AverageEngagement)
	for _, m := range p.CriticalMoments {
		fmt.Fprintf(&sb, "- critical moment at %ss: %s by %.1f\n", m.TimeLabel, m.Direction, m.Magnitude)
	}
	for _, a := range p.AdaptationPoints {
		fmt.Fprintf(&sb, "- adaptation at %ss: %s (%.1f)\n", a.TimeLabel, a.AdaptationType, a.Score)
	}

	return sb.String()
}

// extractJSONObject コードフェンスや前後の文章を取り除き、最初の { から最後の } までを返す
func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end < start {
		return strings.TrimSpace(content)
	}
	return content[start : end+1]
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
