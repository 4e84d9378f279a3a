package dynamics

import (
	"context"
	"fmt"
)

// Classifier 外部の意味的質問分類器。
// セグメントの書き起こしを受け取り、同じ順序・同じ件数の分類を返す。
type Classifier interface {
	ClassifyQuestions(ctx context.Context, transcripts []string) ([]QuestionClassification, error)
}

// classifyQuestions 外部分類器を呼び、失敗時は位置ベースのフォールバックに切り替える。
// 戻り値の error はフォールバックの理由（分析は継続する）。
func classifyQuestions(ctx context.Context, classifier Classifier, segments []Segment) ([]QuestionClassification, error) {
	if classifier == nil {
		return FallbackClassifications(segments), fmt.Errorf("質問分類器が設定されていません")
	}

	transcripts := make([]string, len(segments))
	for i, seg := range segments {
		transcripts[i] = seg.TranscriptExcerpt
	}

	result, err := classifier.ClassifyQuestions(ctx, transcripts)
	if err != nil {
		return FallbackClassifications(segments), fmt.Errorf("質問分類に失敗: %w", err)
	}
	if len(result) != len(segments) {
		return FallbackClassifications(segments), fmt.Errorf("質問分類の件数が一致しません: got %d, want %d", len(result), len(segments))
	}

	out := make([]QuestionClassification, len(segments))
	for i, c := range result {
		out[i] = NormalizeClassification(segments[i].ID, c)
	}
	return out, nil
}

// NormalizeClassification ラベルを閉じた集合に寄せ、難易度を 1..10 に収める。
// 難易度 0 は未指定扱いで 5。
func NormalizeClassification(segmentID int, c QuestionClassification) QuestionClassification {
	complexity := c.Complexity
	if complexity == 0 {
		complexity = 5
	}
	return QuestionClassification{
		SegmentID:   segmentID,
		Type:        ParseQuestionType(string(c.Type)),
		Complexity:  clampInt(complexity, 1, 10),
		Description: c.Description,
	}
}

// FallbackClassifications 位置ベースの決定的な分類。
// 先頭20%: greeting/2、次の30%: experience/4、次の30%: technical/7、残り: problem/8
func FallbackClassifications(segments []Segment) []QuestionClassification {
	n := len(segments)
	out := make([]QuestionClassification, n)
	for i, seg := range segments {
		var c QuestionClassification
		switch {
		case i*10 < n*fallbackGreetingTenths:
			c = QuestionClassification{Type: QuestionGreeting, Complexity: 2, Description: "Introduction"}
		case i*10 < n*fallbackExperienceTenths:
			c = QuestionClassification{Type: QuestionExperience, Complexity: 4, Description: "Experience questions"}
		case i*10 < n*fallbackTechnicalTenths:
			c = QuestionClassification{Type: QuestionTechnical, Complexity: 7, Description: "Technical questions"}
		default:
			c = QuestionClassification{Type: QuestionProblem, Complexity: 8, Description: "Problem-solving questions"}
		}
		c.SegmentID = seg.ID
		out[i] = c
	}
	return out
}
