package dynamics

import (
	"fmt"
	"math"
)

// Scores セグメント1つ分の4つの行動スコア
type Scores struct {
	Confidence    float64
	Stress        float64
	Communication float64
	Engagement    float64
}

// ScoreSegment 生特徴量から4スコアを計算する（各 1..10、小数1桁）
func ScoreSegment(seg Segment) Scores {
	return Scores{
		Confidence:    CalculateConfidence(seg.Audio, seg.Video),
		Stress:        CalculateStress(seg.Audio, seg.Video),
		Communication: CalculateCommunication(seg.Audio, seg.Video, seg.WordCount),
		Engagement:    CalculateEngagement(seg.Audio, seg.Video),
	}
}

func emotion(v VideoMetrics, name string) float64 {
	return v.EmotionDistribution[name]
}

// gestureAppropriateness 12回/分からの乖離を 0.3..1.0 に写像
func gestureAppropriateness(freq float64) float64 {
	return clamp(1-math.Abs(freq-GestureOptimumPerMinute)/GestureToleranceSpan, GestureAppropriateFloor, GestureAppropriateCeil)
}

// CalculateConfidence 自信スコア
func CalculateConfidence(a AudioMetrics, v VideoMetrics) float64 {
	sum := ConfidenceWeightClarity*a.SpeechClarity/tenPointScale +
		ConfidenceWeightTempoStability*a.TempoStability +
		ConfidenceWeightEyeContact*v.EyeContactPercentage/percentScale +
		ConfidenceWeightPosture*v.PostureConfidence/tenPointScale +
		ConfidenceWeightEmotion*emotion(v, EmotionConfident)/percentScale +
		ConfidenceWeightGesture*gestureAppropriateness(v.GestureFrequency)
	return round1(clampScore(sum * tenPointScale))
}

// CalculateStress ストレススコア。6指標（0..1）の平均を10倍する。
func CalculateStress(a AudioMetrics, v VideoMetrics) float64 {
	indicators := []float64{
		math.Min(1, a.PauseFrequency/StressPauseCap),
		math.Abs(a.SpeechRate-BaselineSpeechRate) / SpeechRateDeviationSpan,
		math.Max(0, (StressClarityThreshold-a.SpeechClarity)/StressClarityThreshold),
		emotion(v, EmotionNervous) / percentScale,
		math.Max(0, (StressEyeContactThreshold-v.EyeContactPercentage)/StressEyeContactThreshold),
		math.Max(0, (v.GestureFrequency-StressGestureThreshold)/StressGestureSpan),
	}
	return round1(clampScore(calculateMean(indicators) * tenPointScale))
}

// CalculateCommunication コミュニケーションスコア
func CalculateCommunication(a AudioMetrics, v VideoMetrics, wordCount int) float64 {
	positive := emotion(v, EmotionConfident) + emotion(v, EmotionHappy)
	factors := []float64{
		a.SpeechClarity / tenPointScale,
		1 - math.Abs(a.SpeechRate-BaselineSpeechRate)/SpeechRateDeviationSpan,
		v.EyeContactPercentage / percentScale,
		math.Min(1, positive/PositiveExpressionSpan),
		math.Min(1, float64(wordCount)/ContentLengthWords),
	}
	return round1(clampScore(calculateMean(factors) * tenPointScale))
}

// CalculateEngagement エンゲージメントスコア
func CalculateEngagement(a AudioMetrics, v VideoMetrics) float64 {
	variety := 0
	for _, share := range v.EmotionDistribution {
		if share > EmotionPresenceShare {
			variety++
		}
	}
	factors := []float64{
		a.EnergyLevel,
		v.EyeContactPercentage / percentScale,
		math.Min(1, v.GestureFrequency/GestureActivitySpan),
		float64(variety) / EmotionVarietyDivisor,
		math.Min(1, a.PitchVariation/PitchVariationSpan),
	}
	return round1(clampScore(calculateMean(factors) * tenPointScale))
}

// 説明用の指標しきい値
const (
	indicatorPauseHigh       = 12.0
	indicatorClarityLow      = 6.0
	indicatorClarityGood     = 8.0
	indicatorEyeContactLow   = 50.0
	indicatorEyeContactGood  = 75.0
	indicatorNervousHigh     = 15.0
	indicatorWordsDetailed   = 20
	indicatorWordsModerate   = 10
	indicatorEnergyHigh      = 0.7
	indicatorEnergyModerate  = 0.4
	indicatorGesturesActive  = 15.0
	indicatorGesturesMedium  = 8.0
	indicatorPositiveEmotion = 50.0
)

// StressIndicators ストレスの兆候（説明用、スコアには影響しない）
func StressIndicators(a AudioMetrics, v VideoMetrics) []string {
	indicators := []string{}
	if a.PauseFrequency > indicatorPauseHigh {
		indicators = append(indicators, fmt.Sprintf("frequent pauses (%.0f)", a.PauseFrequency))
	}
	if a.SpeechClarity < indicatorClarityLow {
		indicators = append(indicators, fmt.Sprintf("reduced speech clarity (%.1f/10)", a.SpeechClarity))
	}
	if v.EyeContactPercentage < indicatorEyeContactLow {
		indicators = append(indicators, fmt.Sprintf("avoiding eye contact (%.1f%%)", v.EyeContactPercentage))
	}
	if n := emotion(v, EmotionNervous); n > indicatorNervousHigh {
		indicators = append(indicators, fmt.Sprintf("nervousness (%.1f%%)", n))
	}
	return indicators
}

// CommunicationFactors コミュニケーションの要因
func CommunicationFactors(a AudioMetrics, v VideoMetrics, wordCount int) []string {
	var factors []string

	switch c := a.SpeechClarity; {
	case c >= indicatorClarityGood:
		factors = append(factors, fmt.Sprintf("excellent speech clarity (%.1f/10)", c))
	case c >= indicatorClarityLow:
		factors = append(factors, fmt.Sprintf("good speech clarity (%.1f/10)", c))
	default:
		factors = append(factors, fmt.Sprintf("unclear speech (%.1f/10)", c))
	}

	switch e := v.EyeContactPercentage; {
	case e >= indicatorEyeContactGood:
		factors = append(factors, fmt.Sprintf("excellent eye contact (%.1f%%)", e))
	case e >= indicatorEyeContactLow:
		factors = append(factors, fmt.Sprintf("moderate eye contact (%.1f%%)", e))
	default:
		factors = append(factors, fmt.Sprintf("weak eye contact (%.1f%%)", e))
	}

	switch {
	case wordCount >= indicatorWordsDetailed:
		factors = append(factors, fmt.Sprintf("detailed answers (%d words)", wordCount))
	case wordCount >= indicatorWordsModerate:
		factors = append(factors, fmt.Sprintf("moderate answers (%d words)", wordCount))
	default:
		factors = append(factors, fmt.Sprintf("brief answers (%d words)", wordCount))
	}
	return factors
}

// EngagementIndicators エンゲージメントの兆候
func EngagementIndicators(a AudioMetrics, v VideoMetrics) []string {
	var indicators []string

	switch e := a.EnergyLevel; {
	case e >= indicatorEnergyHigh:
		indicators = append(indicators, fmt.Sprintf("high vocal energy (%.2f)", e))
	case e >= indicatorEnergyModerate:
		indicators = append(indicators, fmt.Sprintf("moderate vocal energy (%.2f)", e))
	default:
		indicators = append(indicators, fmt.Sprintf("low vocal energy (%.2f)", e))
	}

	switch g := v.GestureFrequency; {
	case g >= indicatorGesturesActive:
		indicators = append(indicators, fmt.Sprintf("active gesturing (%.0f/min)", g))
	case g >= indicatorGesturesMedium:
		indicators = append(indicators, fmt.Sprintf("moderate gesturing (%.0f/min)", g))
	default:
		indicators = append(indicators, fmt.Sprintf("restrained gesturing (%.0f/min)", g))
	}

	if p := emotion(v, EmotionHappy) + emotion(v, EmotionConfident); p >= indicatorPositiveEmotion {
		indicators = append(indicators, fmt.Sprintf("positive emotional state (%.1f%%)", p))
	}
	return indicators
}
