package dynamics

import "time"

// セグメント分割
const (
	// DefaultWindowSeconds 固定ウィンドウ長（秒）
	DefaultWindowSeconds = 30.0
	// NeutralScore ゼロ除算・データ欠損時の中立スコア
	NeutralScore = 5.0

	MinScore = 1.0
	MaxScore = 10.0

	// MaxInterviewSeconds 受け付ける面接時間の上限（24時間）
	MaxInterviewSeconds = 24 * 60 * 60.0
	// MaxSegments 1件の面接から作るセグメント数の上限
	MaxSegments = 10000
)

// 外部呼び出しのデフォルトタイムアウト
const (
	DefaultClassifierTimeout = 60 * time.Second
	DefaultAssessorTimeout   = 120 * time.Second
)

// 生特徴量が欠損している場合の既定値
const (
	DefaultSpeechRate       = 150.0
	DefaultSpeechClarity    = 5.0
	DefaultPauseFrequency   = 5.0
	DefaultEnergyLevel      = 0.5
	DefaultTempoStability   = 0.8
	DefaultPitchVariation   = 30.0
	DefaultEyeContact       = 50.0
	DefaultPostureConfident = 5.0
	DefaultGestureFrequency = 10.0
)

// DefaultEmotionDistribution 感情分布そのものが欠損している場合に使う分布
func DefaultEmotionDistribution() map[string]float64 {
	return map[string]float64{
		EmotionConfident: 30,
		EmotionHappy:     20,
		EmotionNeutral:   45,
		EmotionNervous:   5,
	}
}

// 感情ラベル
const (
	EmotionConfident = "confident"
	EmotionHappy     = "happy"
	EmotionNeutral   = "neutral"
	EmotionNervous   = "nervous"
)

// 自信スコアの重み
const (
	ConfidenceWeightClarity        = 0.20
	ConfidenceWeightTempoStability = 0.15
	ConfidenceWeightEyeContact     = 0.25
	ConfidenceWeightPosture        = 0.15
	ConfidenceWeightEmotion        = 0.15
	ConfidenceWeightGesture        = 0.10

	// 12回/分をジェスチャーの最適値とみなす
	GestureOptimumPerMinute = 12.0
	GestureToleranceSpan    = 15.0
	GestureAppropriateFloor = 0.3
	GestureAppropriateCeil  = 1.0
)

// ストレススコアの定数
const (
	StressPauseCap            = 20.0
	BaselineSpeechRate        = 150.0
	SpeechRateDeviationSpan   = 100.0
	StressClarityThreshold    = 7.0
	StressEyeContactThreshold = 70.0
	StressGestureThreshold    = 15.0
	StressGestureSpan         = 10.0
)

// コミュニケーションスコアの定数
const (
	PositiveExpressionSpan = 60.0
	ContentLengthWords     = 20.0
)

// エンゲージメントスコアの定数
const (
	GestureActivitySpan   = 15.0
	EmotionPresenceShare  = 10.0
	EmotionVarietyDivisor = 5.0
	PitchVariationSpan    = 60.0
	percentScale          = 100.0
	tenPointScale         = 10.0
)

// 適応性スコアの定数
const (
	AdaptabilityComplexityFactor = 0.5
	AdaptabilityHarderClamp      = 3.0
	AdaptabilityEasierClamp      = 2.0
)

// 時系列パターンの閾値
const (
	TrendThreshold          = 1.0
	StressPeakMargin        = 2.0
	CriticalMomentThreshold = 2.0
	AdaptationPointScore    = 7.0
	ComplexityShiftMargin   = 1
)

// 位置ベースのフォールバック分類（10分率）: 先頭20%、次の30%、次の30%、残り20%
const (
	fallbackGreetingTenths   = 2
	fallbackExperienceTenths = 5
	fallbackTechnicalTenths  = 8
)

// CriterionWeights 加重スコアの重みテーブル
var CriterionWeights = map[Criterion]float64{
	CommunicationSkills:    1.2,
	MotivationLearning:     1.1,
	ProfessionalSkills:     1.0,
	AnalyticalThinking:     1.0,
	UnconventionalThinking: 0.9,
	TeamworkAbility:        1.0,
	StressResistance:       0.9,
	Adaptability:           0.9,
	CreativityInnovation:   0.8,
	OverallImpression:      1.1,
}

// 劣化モードの識別子
const (
	// AssessmentUnavailableMarker 総合評価が得られなかった場合に説明文へ必ず含まれる
	AssessmentUnavailableMarker = "[assessment unavailable]"
	// PlaceholderRecommendation 総合評価の失敗時に設定される推奨文
	PlaceholderRecommendation = "Re-analysis required: holistic assessment unavailable"

	ModelVersion = "temporal-v1.0"
)

// 話速の分類境界（語/分）
const (
	SlowSpeechRate = 120.0
	FastSpeechRate = 180.0
)

// データ品質の既定値
const DefaultCaptureQuality = 8
