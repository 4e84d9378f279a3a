package dynamics

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
)

// Config エンジンの設定
type Config struct {
	WindowSeconds     float64
	ClassifierTimeout time.Duration
	AssessorTimeout   time.Duration
}

// DefaultConfig デフォルト設定
func DefaultConfig() Config {
	return Config{
		WindowSeconds:     DefaultWindowSeconds,
		ClassifierTimeout: DefaultClassifierTimeout,
		AssessorTimeout:   DefaultAssessorTimeout,
	}
}

// Engine 時系列行動ダイナミクス分析エンジン。
// 状態を持たないので複数リクエストから同時に使ってよい。
type Engine struct {
	cfg        Config
	segmenter  *Segmenter
	classifier Classifier
	assessor   Assessor
	now        func() time.Time
}

// NewEngine 新しいエンジンを作成。classifier / assessor は nil でもよい（常にフォールバック）。
func NewEngine(cfg Config, classifier Classifier, assessor Assessor) *Engine {
	if !(cfg.WindowSeconds > 0) {
		cfg.WindowSeconds = DefaultWindowSeconds
	}
	if cfg.ClassifierTimeout <= 0 {
		cfg.ClassifierTimeout = DefaultClassifierTimeout
	}
	if cfg.AssessorTimeout <= 0 {
		cfg.AssessorTimeout = DefaultAssessorTimeout
	}
	return &Engine{
		cfg:        cfg,
		segmenter:  NewSegmenter(cfg.WindowSeconds),
		classifier: classifier,
		assessor:   assessor,
		now:        time.Now,
	}
}

// Analyze 面接1件を分析する。
// 外部呼び出しの失敗はフォールバックで吸収し、入力不正と呼び出し元のキャンセルのみエラーを返す。
func (e *Engine) Analyze(ctx context.Context, in Input) (*FinalAnalysis, error) {
	segments, err := e.segmenter.Split(in.Video.Duration, in.Transcript.Text, in.Audio, in.Video)
	if err != nil {
		return nil, err
	}
	log.Printf("[分析エンジン] 候補者 %s: %d セグメントに分割 (%.0f秒)", in.Candidate.ID, len(segments), in.Video.Duration)

	quality := Quality{ClassificationSource: SourceSemantic, AssessmentSource: SourceHolistic}

	classifyCtx, cancel := context.WithTimeout(ctx, e.cfg.ClassifierTimeout)
	classifications, classifyErr := classifyQuestions(classifyCtx, e.classifier, segments)
	cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if classifyErr != nil {
		quality.ClassificationSource = SourceFallback
		quality.ClassificationError = classifyErr.Error()
		log.Printf("[質問分類] フォールバック分類を使用: %v", classifyErr)
	}

	dynamics := BuildDynamics(segments, classifications)
	correlations := CorrelateByType(dynamics)
	patterns := ExtractPatterns(dynamics)

	ac := AssessmentContext{
		Candidate:        in.Candidate,
		Duration:         in.Video.Duration,
		WindowSeconds:    e.cfg.WindowSeconds,
		Segments:         segments,
		Classifications:  classifications,
		Dynamics:         dynamics,
		TypeCorrelations: correlations,
		Patterns:         patterns,
	}

	assessment, assessErr := e.assess(ctx, ac)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if assessErr != nil {
		assessment = nil
		quality.AssessmentSource = SourceFallback
		quality.AssessmentError = assessErr.Error()
		log.Printf("[総合評価] 総合評価に失敗したため中立スコアを使用: %v", assessErr)
	}

	syn := Synthesize(assessment, ac)

	result := &FinalAnalysis{
		AnalysisID:        uuid.New().String(),
		CandidateID:       in.Candidate.ID,
		CandidateName:     in.Candidate.Name,
		CandidateEmail:    in.Candidate.Email,
		CandidatePhone:    in.Candidate.Phone,
		InterviewDuration: in.Video.Duration,

		Scores:        syn.Scores,
		TotalScore:    syn.TotalScore,
		WeightedScore: syn.WeightedScore,

		AudioQuality:         captureQuality(segments, func(q DataQuality) *float64 { return q.SpeechClarity }),
		VideoQuality:         captureQuality(segments, func(q DataQuality) *float64 { return q.VideoVisibility }),
		EmotionAnalysis:      meanEmotions(segments),
		EyeContactPercentage: round1(meanOf(segments, func(s Segment) float64 { return s.Video.EyeContactPercentage })),
		GestureFrequency:     round1(meanOf(segments, func(s Segment) float64 { return s.Video.GestureFrequency })),
		PostureConfidence:    clampInt(int(math.Round(meanOf(segments, func(s Segment) float64 { return s.Video.PostureConfidence }))), 1, 10),
		SpeechPace:           SpeechPace(meanOf(segments, func(s Segment) float64 { return s.Audio.SpeechRate })),
		AnswerStructure:      answerStructure(dynamics),

		Recommendation:   syn.Recommendation,
		DetailedFeedback: syn.DetailedFeedback,

		Segments:         segments,
		Classifications:  classifications,
		Dynamics:         dynamics,
		TypeCorrelations: correlations,
		Patterns:         patterns,

		Quality:           quality,
		AnalysisTimestamp: e.now().UTC(),
		ModelVersion:      ModelVersion,
	}

	log.Printf("[分析エンジン] 分析完了: candidate=%s total=%d weighted=%.2f classification=%s assessment=%s",
		result.CandidateID, result.TotalScore, result.WeightedScore, quality.ClassificationSource, quality.AssessmentSource)
	return result, nil
}

func (e *Engine) assess(ctx context.Context, ac AssessmentContext) (*HolisticAssessment, error) {
	if e.assessor == nil {
		return nil, fmt.Errorf("総合評価器が設定されていません")
	}
	assessCtx, cancel := context.WithTimeout(ctx, e.cfg.AssessorTimeout)
	defer cancel()

	assessment, err := e.assessor.AssessCandidate(assessCtx, ac)
	if err != nil {
		return nil, fmt.Errorf("総合評価に失敗: %w", err)
	}
	if assessment == nil {
		return nil, fmt.Errorf("総合評価の結果が空です")
	}
	return assessment, nil
}

// SpeechPace 平均話速の分類
func SpeechPace(wpm float64) string {
	switch {
	case wpm < SlowSpeechRate:
		return "slow"
	case wpm > FastSpeechRate:
		return "fast"
	default:
		return "normal"
	}
}

func meanOf(segments []Segment, get func(Segment) float64) float64 {
	vals := make([]float64, len(segments))
	for i, s := range segments {
		vals[i] = get(s)
	}
	return calculateMean(vals)
}

func meanEmotions(segments []Segment) map[string]float64 {
	sums := map[string]float64{}
	for _, s := range segments {
		for k, v := range s.Video.EmotionDistribution {
			sums[k] += v
		}
	}
	out := make(map[string]float64, len(sums))
	for k, v := range sums {
		out[k] = round1(v / float64(len(segments)))
	}
	return out
}

// answerStructure コミュニケーション平均の整数部
func answerStructure(dynamics []SegmentDynamics) int {
	vals := make([]float64, len(dynamics))
	for i, d := range dynamics {
		vals[i] = d.Communication
	}
	if len(vals) == 0 {
		return int(NeutralScore)
	}
	return clampInt(int(calculateMean(vals)), 1, 10)
}

// captureQuality 品質指標（10点満点）の平均を 1..10 の整数にする。指標がなければ既定値 8。
func captureQuality(segments []Segment, get func(DataQuality) *float64) int {
	var vals []float64
	for _, s := range segments {
		if p := get(s.DataQuality); p != nil {
			vals = append(vals, *p)
		}
	}
	if len(vals) == 0 {
		return DefaultCaptureQuality
	}
	return clampInt(int(math.Round(calculateMean(vals))), 1, 10)
}
