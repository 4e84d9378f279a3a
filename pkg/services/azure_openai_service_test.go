package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/azure"
	"interview-analyzer-api/pkg/dynamics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService 固定の応答本文を返すチャット補完サーバーにつないだサービスを作る
func newTestService(t *testing.T, content string, captured *azure.ChatCompletionRequest) *AzureOpenAIService {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]string{"role": "assistant", "content": content},
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(server.Close)

	prompts, err := config.LoadPrompts("")
	require.NoError(t, err)

	client := azure.NewOpenAIClient(server.URL, "key", "2024-06-01", "chat", "", "")
	return NewAzureOpenAIService(client, prompts, 30)
}

func TestClassifyQuestions(t *testing.T) {
	var req azure.ChatCompletionRequest
	content := `{"segment_1": {"type": "greeting", "complexity": 2, "description": "Intro"},
	             "segment_2": {"type": "technical", "complexity": "8", "description": "Go internals"}}`
	svc := newTestService(t, content, &req)

	got, err := svc.ClassifyQuestions(context.Background(), []string{"hello there", "explain goroutines", "thanks"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, dynamics.QuestionType("greeting"), got[0].Type)
	assert.Equal(t, 2, got[0].Complexity)
	assert.Equal(t, 8, got[1].Complexity)
	// 応答にないセグメントは unknown / 5
	assert.Equal(t, dynamics.QuestionUnknown, got[2].Type)
	assert.Equal(t, 5, got[2].Complexity)
	assert.Equal(t, 3, got[2].SegmentID)

	assert.Equal(t, classifierMaxTokens, req.MaxTokens)
	assert.InDelta(t, classifierTemperature, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[1].Content, "segment_2 (30-60s): explain goroutines")
	assert.NotContains(t, req.Messages[1].Content, "{{segments}}")
}

func TestClassifyQuestions_InvalidJSON(t *testing.T) {
	svc := newTestService(t, "I cannot classify this", nil)

	_, err := svc.ClassifyQuestions(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestClassifyQuestions_NotConfigured(t *testing.T) {
	svc := NewAzureOpenAIService(azure.NewOpenAIClient("", "", "", "", "", ""), nil, 30)

	assert.False(t, svc.Configured())
	_, err := svc.ClassifyQuestions(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestAssessCandidate(t *testing.T) {
	content := "```json\n" + `{
	  "holistic_scores": {"communication_skills": 8, "stress_resistance": 6},
	  "temporal_insights": {"stress_response": "Recovers quickly"},
	  "detailed_observations": {"communication_skills": ["clear at 0-30s"]},
	  "comprehensive_feedback": "Solid candidate",
	  "recommendation": "Proceed"
	}` + "\n```"
	var req azure.ChatCompletionRequest
	svc := newTestService(t, content, &req)

	got, err := svc.AssessCandidate(context.Background(), sampleAssessmentContext())
	require.NoError(t, err)

	assert.Equal(t, 8.0, got.Scores[dynamics.CommunicationSkills])
	assert.Equal(t, "Recovers quickly", got.TemporalInsights.StressResponse)
	assert.Equal(t, []string{"clear at 0-30s"}, got.Observations[dynamics.CommunicationSkills])
	assert.Equal(t, "Proceed", got.Recommendation)

	assert.Equal(t, assessorMaxTokens, req.MaxTokens)
	assert.Contains(t, req.Messages[1].Content, "SEGMENT DYNAMICS")
}

func TestAssessCandidate_StringScores(t *testing.T) {
	content := `{
	  "holistic_scores": {"communication_skills": "8", "stress_resistance": 6.5, "adaptability": "n/a"},
	  "recommendation": "Proceed"
	}`
	svc := newTestService(t, content, nil)

	got, err := svc.AssessCandidate(context.Background(), sampleAssessmentContext())
	require.NoError(t, err)

	assert.Equal(t, 8.0, got.Scores[dynamics.CommunicationSkills])
	assert.Equal(t, 6.5, got.Scores[dynamics.StressResistance])
	_, ok := got.Scores[dynamics.Adaptability]
	assert.False(t, ok, "読めないスコアは欠損扱い")
	assert.Equal(t, "Proceed", got.Recommendation)
}

func TestAssessCandidate_UnreadableScores(t *testing.T) {
	svc := newTestService(t, `{"holistic_scores": {"communication_skills": "good"}}`, nil)

	_, err := svc.AssessCandidate(context.Background(), sampleAssessmentContext())
	assert.Error(t, err)
}

func TestAssessCandidate_NoScores(t *testing.T) {
	svc := newTestService(t, `{"comprehensive_feedback": "n/a"}`, nil)

	_, err := svc.AssessCandidate(context.Background(), sampleAssessmentContext())
	assert.Error(t, err)
}

func TestBuildAssessmentPrompt(t *testing.T) {
	prompt := BuildAssessmentPrompt(sampleAssessmentContext())

	assert.Contains(t, prompt, "CANDIDATE: Jane Doe (id c-1)")
	assert.Contains(t, prompt, "- 30-60s [technical, complexity 8]")
	assert.Contains(t, prompt, "confidence trend: falling")
	assert.Contains(t, prompt, "critical moment at 30-60s: confidence_drop by 3.0")
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSONObject(`Here you go: {"a":{"b":2}} hope it helps`))
	assert.Equal(t, "no json", extractJSONObject("no json"))
}

func TestParseComplexity(t *testing.T) {
	assert.Equal(t, 7, parseComplexity(json.RawMessage(`7`)))
	assert.Equal(t, 7, parseComplexity(json.RawMessage(`6.6`)))
	assert.Equal(t, 4, parseComplexity(json.RawMessage(`" 4 "`)))
	assert.Equal(t, 0, parseComplexity(json.RawMessage(`"hard"`)))
	assert.Equal(t, 0, parseComplexity(nil))
}

func sampleAssessmentContext() dynamics.AssessmentContext {
	return dynamics.AssessmentContext{
		Candidate:     dynamics.Candidate{ID: "c-1", Name: "Jane Doe"},
		Duration:      60,
		WindowSeconds: 30,
		Segments:      []dynamics.Segment{{ID: 1, EndTime: 30}, {ID: 2, StartTime: 30, EndTime: 60}},
		Dynamics: []dynamics.SegmentDynamics{
			{SegmentID: 1, TimeLabel: "0-30", QuestionType: dynamics.QuestionGreeting, Complexity: 2, Confidence: 8, Stress: 2},
			{SegmentID: 2, TimeLabel: "30-60", QuestionType: dynamics.QuestionTechnical, Complexity: 8, Confidence: 5, Stress: 6,
				StressIndicators: []string{"frequent pauses (14)"}},
		},
		TypeCorrelations: []dynamics.TypeCorrelation{
			{Type: dynamics.QuestionGreeting, SegmentCount: 1, AverageConfidence: 8, MinComplexity: 2, MaxComplexity: 2},
		},
		Patterns: dynamics.TemporalPatterns{
			ConfidenceTrend: dynamics.ConfidenceTrend{Direction: dynamics.TrendFalling, StartLevel: 8, EndLevel: 5},
			CriticalMoments: []dynamics.CriticalMoment{
				{SegmentID: 2, Direction: dynamics.ConfidenceDrop, Change: -3, Magnitude: 3, TimeLabel: "30-60"},
			},
		},
	}
}
