package dynamics

import "strings"

// --- 入力 ---

// AudioSample 音声特徴量。集約値としても時刻付きサンプルとしても使う。
// nil のフィールドは欠損扱い。
type AudioSample struct {
	Time            float64  `json:"time,omitempty"` // 面接開始からの秒数（サンプルのみ）
	SpeechRate      *float64 `json:"speech_rate,omitempty"`
	SpeechClarity   *float64 `json:"speech_clarity,omitempty"`
	PauseFrequency  *float64 `json:"pause_frequency,omitempty"`
	EnergyLevel     *float64 `json:"energy_level,omitempty"`
	TempoStability  *float64 `json:"tempo_stability,omitempty"`
	PitchVariation  *float64 `json:"pitch_variation,omitempty"`
	BackgroundNoise *float64 `json:"background_noise,omitempty"`
}

// AudioFeatures 面接全体の音声特徴量
type AudioFeatures struct {
	AudioSample
	Samples []AudioSample `json:"samples,omitempty"`
}

// VideoSample 映像特徴量
type VideoSample struct {
	Time                 float64            `json:"time,omitempty"`
	EmotionDistribution  map[string]float64 `json:"emotion_distribution,omitempty"`
	EyeContactPercentage *float64           `json:"eye_contact_percentage,omitempty"`
	PostureConfidence    *float64           `json:"posture_confidence,omitempty"`
	GestureFrequency     *float64           `json:"gesture_frequency,omitempty"`
	HeadMovement         map[string]float64 `json:"head_movement,omitempty"`
	FacialExpressions    map[string]float64 `json:"facial_expressions,omitempty"`
	Visibility           *float64           `json:"visibility,omitempty"`
}

// VideoFeatures 面接全体の映像特徴量。Duration は面接全体の長さ（秒）。
type VideoFeatures struct {
	VideoSample
	Duration float64       `json:"duration"`
	Samples  []VideoSample `json:"samples,omitempty"`
}

// Transcript 面接の書き起こし
type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Candidate 候補者のメタデータ
type Candidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Preferences string `json:"preferences,omitempty"`
}

// Input 分析リクエスト1件分の入力スナップショット
type Input struct {
	Transcript Transcript    `json:"transcript"`
	Video      VideoFeatures `json:"video_features"`
	Audio      AudioFeatures `json:"audio_features"`
	Candidate  Candidate     `json:"candidate"`
}

// --- セグメント ---

// AudioMetrics 欠損を既定値で埋めた後のセグメント音声指標
type AudioMetrics struct {
	SpeechRate     float64 `json:"speech_rate"`
	SpeechClarity  float64 `json:"speech_clarity"`
	PauseFrequency float64 `json:"pause_frequency"`
	EnergyLevel    float64 `json:"energy_level"`
	TempoStability float64 `json:"tempo_stability"`
	PitchVariation float64 `json:"pitch_variation"`
}

// VideoMetrics 欠損を既定値で埋めた後のセグメント映像指標
type VideoMetrics struct {
	EmotionDistribution  map[string]float64 `json:"emotion_distribution"`
	EyeContactPercentage float64            `json:"eye_contact_percentage"`
	PostureConfidence    float64            `json:"posture_confidence"`
	GestureFrequency     float64            `json:"gesture_frequency"`
	HeadMovement         map[string]float64 `json:"head_movement,omitempty"`
	FacialExpressions    map[string]float64 `json:"facial_expressions,omitempty"`
}

// DataQuality セグメントの信頼性指標。スコア計算には使わない。
type DataQuality struct {
	SpeechClarity   *float64 `json:"speech_clarity,omitempty"`
	VideoVisibility *float64 `json:"video_visibility,omitempty"`
	BackgroundNoise *float64 `json:"background_noise,omitempty"`
	AudioSamples    int      `json:"audio_samples"`
	VideoSamples    int      `json:"video_samples"`
}

// Segment 固定長ウィンドウ1つ分
type Segment struct {
	ID                int          `json:"id"`
	StartTime         float64      `json:"start_time"`
	EndTime           float64      `json:"end_time"`
	Duration          float64      `json:"duration"`
	TranscriptExcerpt string       `json:"transcript_excerpt"`
	WordCount         int          `json:"word_count"`
	Audio             AudioMetrics `json:"audio_metrics"`
	Video             VideoMetrics `json:"video_metrics"`
	DataQuality       DataQuality  `json:"data_quality"`
}

// TimeLabel "0-30" 形式の時間ラベル
func (s Segment) TimeLabel() string {
	return formatSeconds(s.StartTime) + "-" + formatSeconds(s.EndTime)
}

// --- 質問分類 ---

// QuestionType 質問タイプ（閉じた集合）
type QuestionType string

const (
	QuestionGreeting   QuestionType = "greeting"
	QuestionExperience QuestionType = "experience"
	QuestionTechnical  QuestionType = "technical"
	QuestionBehavioral QuestionType = "behavioral"
	QuestionProblem    QuestionType = "problem"
	QuestionMotivation QuestionType = "motivation"
	QuestionPersonal   QuestionType = "personal"
	QuestionUnknown    QuestionType = "unknown"
)

var questionTypeAliases = map[string]QuestionType{
	"greeting":        QuestionGreeting,
	"introduction":    QuestionGreeting,
	"знакомство":      QuestionGreeting,
	"experience":      QuestionExperience,
	"опыт":            QuestionExperience,
	"technical":       QuestionTechnical,
	"технические":     QuestionTechnical,
	"behavioral":      QuestionBehavioral,
	"behavioural":     QuestionBehavioral,
	"поведенческие":   QuestionBehavioral,
	"problem":         QuestionProblem,
	"problem_solving": QuestionProblem,
	"проблемные":      QuestionProblem,
	"motivation":      QuestionMotivation,
	"мотивация":       QuestionMotivation,
	"personal":        QuestionPersonal,
	"личные":          QuestionPersonal,
	"unknown":         QuestionUnknown,
}

// ParseQuestionType ラベルを閉じた集合に正規化する。未知のラベルは unknown。
func ParseQuestionType(label string) QuestionType {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.ReplaceAll(key, " ", "_")
	if qt, ok := questionTypeAliases[key]; ok {
		return qt
	}
	return QuestionUnknown
}

// QuestionClassification セグメントごとの質問タイプと難易度
type QuestionClassification struct {
	SegmentID   int          `json:"segment_id"`
	Type        QuestionType `json:"type"`
	Complexity  int          `json:"complexity"`
	Description string       `json:"description"`
}

// --- ダイナミクス ---

// SegmentDynamics セグメントごとの行動スコア
type SegmentDynamics struct {
	SegmentID            int            `json:"segment_id"`
	TimeLabel            string         `json:"time"`
	QuestionType         QuestionType   `json:"question_type"`
	Complexity           int            `json:"complexity"`
	Confidence           float64        `json:"confidence"`
	Stress               float64        `json:"stress"`
	Communication        float64        `json:"communication"`
	Engagement           float64        `json:"engagement"`
	Adaptability         float64        `json:"adaptability"`
	AdaptationType       AdaptationType `json:"adaptation_type"`
	StressIndicators     []string       `json:"stress_indicators"`
	CommunicationFactors []string       `json:"communication_factors"`
	EngagementIndicators []string       `json:"engagement_indicators"`
}

// TypeCorrelation 質問タイプ別の行動平均
type TypeCorrelation struct {
	Type                 QuestionType `json:"type"`
	SegmentCount         int          `json:"segment_count"`
	AverageConfidence    float64      `json:"average_confidence"`
	AverageStress        float64      `json:"average_stress"`
	AverageCommunication float64      `json:"average_communication"`
	AverageEngagement    float64      `json:"average_engagement"`
	MinComplexity        int          `json:"min_complexity"`
	AvgComplexity        float64      `json:"avg_complexity"`
	MaxComplexity        int          `json:"max_complexity"`
}

// TrendDirection 自信度の傾向
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
)

// ConfidenceTrend 自信度の推移
type ConfidenceTrend struct {
	Direction  TrendDirection `json:"direction"`
	StartLevel float64        `json:"start_level"`
	EndLevel   float64        `json:"end_level"`
	Change     float64        `json:"change"`
	Stability  float64        `json:"stability"`
	Volatility float64        `json:"volatility"`
}

// StressPattern ストレスの分布
type StressPattern struct {
	Max          float64 `json:"max"`
	Average      float64 `json:"average"`
	PeakSegments []int   `json:"peak_segments"`
}

// MomentDirection 急変の向き
type MomentDirection string

const (
	ConfidenceRise MomentDirection = "confidence_rise"
	ConfidenceDrop MomentDirection = "confidence_drop"
)

// CriticalMoment 連続セグメント間の自信度の急変
type CriticalMoment struct {
	SegmentID int             `json:"segment"`
	Direction MomentDirection `json:"direction"`
	Change    float64         `json:"change"`
	Magnitude float64         `json:"magnitude"`
	TimeLabel string          `json:"time"`
}

// AdaptationType 適応の種類
type AdaptationType string

const (
	AdaptationToComplexity AdaptationType = "adaptation_to_complexity"
	ReturnToComfort        AdaptationType = "return_to_comfort"
	AdaptationToNewTopic   AdaptationType = "adaptation_to_new_topic"
	StableState            AdaptationType = "stable_state"
	InitialAdaptation      AdaptationType = "initial_adaptation"
)

// AdaptationPoint 適応に成功したセグメント
type AdaptationPoint struct {
	SegmentID      int            `json:"segment"`
	Score          float64        `json:"score"`
	AdaptationType AdaptationType `json:"adaptation_type"`
	TimeLabel      string         `json:"time"`
}

// TemporalPatterns 面接全体の時系列パターン
type TemporalPatterns struct {
	ConfidenceTrend        ConfidenceTrend   `json:"confidence_trend"`
	StressPattern          StressPattern     `json:"stress_pattern"`
	CommunicationStability float64           `json:"communication_stability"`
	AverageEngagement      float64           `json:"average_engagement"`
	CriticalMoments        []CriticalMoment  `json:"critical_moments"`
	AdaptationPoints       []AdaptationPoint `json:"adaptation_points"`
}
