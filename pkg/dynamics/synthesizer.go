package dynamics

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// AssessmentContext 総合評価器に渡す構造化コンテキスト
type AssessmentContext struct {
	Candidate        Candidate
	Duration         float64
	WindowSeconds    float64
	Segments         []Segment
	Classifications  []QuestionClassification
	Dynamics         []SegmentDynamics
	TypeCorrelations []TypeCorrelation
	Patterns         TemporalPatterns
}

// TemporalInsights 総合評価器が返す時系列の所見
type TemporalInsights struct {
	DynamicPatterns       string `json:"dynamic_patterns"`
	AdaptationAnalysis    string `json:"adaptation_analysis"`
	StressResponse        string `json:"stress_response"`
	ConsistencyEvaluation string `json:"consistency_evaluation"`
}

// HolisticAssessment 総合評価器の出力。スコアはこちらが正。
type HolisticAssessment struct {
	Scores                 map[Criterion]float64  `json:"holistic_scores"`
	TemporalInsights       TemporalInsights       `json:"temporal_insights"`
	BehaviorByQuestionType map[string]string      `json:"behavior_by_question_type"`
	Observations           map[Criterion][]string `json:"detailed_observations"`
	Feedback               string                 `json:"comprehensive_feedback"`
	Recommendation         string                 `json:"recommendation"`
}

// Assessor 外部の総合評価器
type Assessor interface {
	AssessCandidate(ctx context.Context, ac AssessmentContext) (*HolisticAssessment, error)
}

const (
	maxObservations = 3
	maxExamples     = 3

	defaultRecommendation = "Additional assessment required"
)

// Synthesis スコア合成の結果
type Synthesis struct {
	Scores           map[Criterion]CriterionScore
	TotalScore       int
	WeightedScore    float64
	Recommendation   string
	DetailedFeedback string
}

// Synthesize 総合評価とダイナミクスから10基準の最終スコアを作る。
// assessment が nil の場合は全基準 5 の劣化モード。
func Synthesize(assessment *HolisticAssessment, ac AssessmentContext) Synthesis {
	fallback := assessment == nil
	scores := make(map[Criterion]CriterionScore, len(AllCriteria))

	for _, c := range AllCriteria {
		score := int(NeutralScore)
		var observations []string
		var explanation string

		if fallback {
			explanation = fmt.Sprintf("%s Score %d/10 for '%s' is a neutral default because the holistic assessment could not be obtained",
				AssessmentUnavailableMarker, score, criteriaCatalogue[c].Name)
		} else {
			score = rawScore(assessment.Scores, c)
			observations = capList(assessment.Observations[c], maxObservations)
			explanation = explain(c, score, assessment.TemporalInsights)
		}

		examples := capList(Evidence(c, ac), maxExamples)
		scores[c] = CriterionScore{
			Criterion:           c,
			Score:               score,
			VerbalScore:         VerbalScore(score),
			NonVerbalScore:      NonVerbalScore(score),
			Explanation:         explanation,
			Observations:        observations,
			Examples:            examples,
			FormattedEvaluation: FormatEvaluation(score, explanation, examples),
		}
	}

	out := Synthesis{
		Scores:        scores,
		TotalScore:    TotalScore(scores),
		WeightedScore: WeightedScore(scores),
	}
	if fallback {
		out.Recommendation = PlaceholderRecommendation
		out.DetailedFeedback = temporalFeedback("Holistic assessment unavailable: criterion scores are neutral defaults.", ac)
		return out
	}

	out.Recommendation = strings.TrimSpace(assessment.Recommendation)
	if out.Recommendation == "" {
		out.Recommendation = defaultRecommendation
	}
	out.DetailedFeedback = temporalFeedback(assessment.Feedback, ac)
	return out
}

// rawScore 評価器のスコアを整数 1..10 に丸める。欠損・非数は 5。
func rawScore(raw map[Criterion]float64, c Criterion) int {
	v, ok := raw[c]
	if !ok || !isFinite(v) {
		return int(NeutralScore)
	}
	return int(clampScore(math.Round(v)))
}

// VerbalScore 言語面スコア（1..5）
func VerbalScore(score int) int {
	return clampInt(score/2+1, 1, 5)
}

// NonVerbalScore 非言語面スコア（1..5）
func NonVerbalScore(score int) int {
	return clampInt(score-score/2, 1, 5)
}

// TotalScore 10基準の合計（10..100）
func TotalScore(scores map[Criterion]CriterionScore) int {
	total := 0
	for _, s := range scores {
		total += s.Score
	}
	return total
}

// WeightedScore Σ(score×weight)/Σweight。重みは全基準分で割る。
func WeightedScore(scores map[Criterion]CriterionScore) float64 {
	var sum, weights float64
	for _, c := range AllCriteria {
		w := CriterionWeights[c]
		weights += w
		if s, ok := scores[c]; ok {
			sum += float64(s.Score) * w
		} else {
			sum += NeutralScore * w
		}
	}
	if weights == 0 {
		return NeutralScore
	}
	return round2(sum / weights)
}

// FormatEvaluation "X/10 - 説明 Examples: a; b; c" 形式
func FormatEvaluation(score int, explanation string, examples []string) string {
	result := fmt.Sprintf("%d/10 - %s", score, explanation)
	if len(examples) > 0 {
		result += " Examples: " + strings.Join(capList(examples, maxExamples), "; ")
	}
	return result
}

func explain(c Criterion, score int, insights TemporalInsights) string {
	base := fmt.Sprintf("Score %d/10 for '%s' considering temporal dynamics", score, criteriaCatalogue[c].Name)
	var detail, label string
	switch c {
	case CommunicationSkills:
		label, detail = "Dynamics", insights.DynamicPatterns
	case StressResistance:
		label, detail = "Stress response", insights.StressResponse
	case Adaptability:
		label, detail = "Adaptation", insights.AdaptationAnalysis
	case OverallImpression:
		label, detail = "Consistency", insights.ConsistencyEvaluation
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		return fmt.Sprintf("%s. %s: %s", base, label, detail)
	}
	return base
}

func capList(items []string, n int) []string {
	out := make([]string, 0, min(len(items), n))
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		if len(out) == n {
			break
		}
		out = append(out, it)
	}
	return out
}

// Evidence 基準ごとの根拠となるダイナミクス上の事実
func Evidence(c Criterion, ac AssessmentContext) []string {
	p := ac.Patterns
	switch c {
	case CommunicationSkills:
		return join(
			[]string{fmt.Sprintf("communication stability %.2f across the interview", p.CommunicationStability)},
			typeEvidence(ac, "communication", nil),
		)
	case MotivationLearning:
		return join(engagementEvidence(p), trendEvidence(p))
	case ProfessionalSkills:
		return join(typeEvidence(ac, "confidence", []QuestionType{QuestionTechnical, QuestionExperience}), trendEvidence(p))
	case AnalyticalThinking:
		return join(typeEvidence(ac, "confidence", []QuestionType{QuestionProblem, QuestionTechnical}), momentEvidence(p))
	case UnconventionalThinking:
		return join(typeEvidence(ac, "engagement", []QuestionType{QuestionProblem}), momentEvidence(p))
	case TeamworkAbility:
		return join(typeEvidence(ac, "communication", []QuestionType{QuestionBehavioral, QuestionPersonal}), engagementEvidence(p))
	case StressResistance:
		return join(stressEvidence(p), momentEvidence(p))
	case Adaptability:
		return join(adaptationEvidence(p), momentEvidence(p))
	case CreativityInnovation:
		return join(engagementEvidence(p), typeEvidence(ac, "engagement", nil))
	default:
		return join(trendEvidence(p), stressEvidence(p), engagementEvidence(p))
	}
}

func join(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func trendEvidence(p TemporalPatterns) []string {
	t := p.ConfidenceTrend
	return []string{fmt.Sprintf("confidence trend %s (%.1f → %.1f, stability %.2f)", t.Direction, t.StartLevel, t.EndLevel, t.Stability)}
}

func engagementEvidence(p TemporalPatterns) []string {
	return []string{fmt.Sprintf("average engagement %.1f/10", p.AverageEngagement)}
}

func stressEvidence(p TemporalPatterns) []string {
	s := p.StressPattern
	if len(s.PeakSegments) == 0 {
		return []string{fmt.Sprintf("average stress %.1f/10 with no stress peaks (max %.1f/10)", s.Average, s.Max)}
	}
	return []string{fmt.Sprintf("average stress %.1f/10, peaks in segments %v (max %.1f/10)", s.Average, s.PeakSegments, s.Max)}
}

func momentEvidence(p TemporalPatterns) []string {
	var out []string
	for _, m := range p.CriticalMoments {
		out = append(out, fmt.Sprintf("segment %d (%ss): %s of %.1f", m.SegmentID, m.TimeLabel, m.Direction, m.Magnitude))
	}
	return out
}

func adaptationEvidence(p TemporalPatterns) []string {
	if len(p.AdaptationPoints) == 0 {
		return []string{"no strong adaptation events between question types"}
	}
	var out []string
	for _, a := range p.AdaptationPoints {
		out = append(out, fmt.Sprintf("segment %d (%ss): %s, adaptability %.1f/10", a.SegmentID, a.TimeLabel, a.AdaptationType, a.Score))
	}
	return out
}

// typeEvidence 質問タイプ別の平均。types が nil なら全タイプ。
func typeEvidence(ac AssessmentContext, metric string, types []QuestionType) []string {
	wanted := map[QuestionType]bool{}
	for _, t := range types {
		wanted[t] = true
	}
	var out []string
	for _, tc := range ac.TypeCorrelations {
		if len(wanted) > 0 && !wanted[tc.Type] {
			continue
		}
		var v float64
		switch metric {
		case "communication":
			v = tc.AverageCommunication
		case "engagement":
			v = tc.AverageEngagement
		default:
			v = tc.AverageConfidence
		}
		out = append(out, fmt.Sprintf("%s questions: %s %.1f/10 over %d segment(s)", tc.Type, metric, v, tc.SegmentCount))
	}
	return out
}

// temporalFeedback 評価器の講評に時系列の所見を付け加える
func temporalFeedback(narrative string, ac AssessmentContext) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(narrative))
	b.WriteString("\n\nTEMPORAL INSIGHTS:\n")

	t := ac.Patterns.ConfidenceTrend
	fmt.Fprintf(&b, "• Confidence trend: %s (%.1f → %.1f)\n", t.Direction, t.StartLevel, t.EndLevel)
	s := ac.Patterns.StressPattern
	fmt.Fprintf(&b, "• Stress: peaks in %d segment(s), average %.1f/10\n", len(s.PeakSegments), s.Average)

	if len(ac.TypeCorrelations) > 0 {
		b.WriteString("\nBEHAVIOUR BY QUESTION TYPE:\n")
		for _, tc := range ac.TypeCorrelations {
			fmt.Fprintf(&b, "• %s: confidence %.1f/10, communication %.1f/10\n", tc.Type, tc.AverageConfidence, tc.AverageCommunication)
		}
	}
	if n := len(ac.Patterns.CriticalMoments); n > 0 {
		fmt.Fprintf(&b, "\nCRITICAL MOMENTS: %d significant behaviour change(s) worth reviewing\n", n)
	}
	if n := len(ac.Patterns.AdaptationPoints); n > 0 {
		fmt.Fprintf(&b, "\nADAPTABILITY: %d successful adaptation(s) to new question types\n", n)
	}
	return strings.TrimSpace(b.String())
}
