package dynamics

import "math"

// ExtractPatterns 面接全体の傾向・ストレスのピーク・急変・適応ポイントを抽出する
func ExtractPatterns(dynamics []SegmentDynamics) TemporalPatterns {
	confidence := make([]float64, len(dynamics))
	stress := make([]float64, len(dynamics))
	communication := make([]float64, len(dynamics))
	engagement := make([]float64, len(dynamics))
	for i, d := range dynamics {
		confidence[i] = d.Confidence
		stress[i] = d.Stress
		communication[i] = d.Communication
		engagement[i] = d.Engagement
	}

	return TemporalPatterns{
		ConfidenceTrend:        confidenceTrend(confidence),
		StressPattern:          stressPattern(dynamics, stress),
		CommunicationStability: stability(communication),
		AverageEngagement:      round1(calculateMean(engagement)),
		CriticalMoments:        criticalMoments(dynamics),
		AdaptationPoints:       adaptationPoints(dynamics),
	}
}

// stability 1 - (max-min)/10。空列は 1。
func stability(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	lo, hi := minMax(values)
	return round2(clamp(1-(hi-lo)/MaxScore, 0, 1))
}

func confidenceTrend(values []float64) ConfidenceTrend {
	if len(values) == 0 {
		return ConfidenceTrend{Direction: TrendStable, StartLevel: NeutralScore, EndLevel: NeutralScore, Stability: 1}
	}

	// 3件未満でも先頭・末尾の1件ずつで比較する
	third := max(1, len(values)/3)
	start := calculateMean(values[:third])
	end := calculateMean(values[len(values)-third:])

	direction := TrendStable
	switch {
	case end > start+TrendThreshold:
		direction = TrendRising
	case end < start-TrendThreshold:
		direction = TrendFalling
	}

	return ConfidenceTrend{
		Direction:  direction,
		StartLevel: round1(start),
		EndLevel:   round1(end),
		Change:     round1(end - start),
		Stability:  stability(values),
		Volatility: round2(calculateStandardDeviation(values)),
	}
}

func stressPattern(dynamics []SegmentDynamics, stress []float64) StressPattern {
	pattern := StressPattern{PeakSegments: []int{}}
	if len(stress) == 0 {
		return pattern
	}
	_, hi := minMax(stress)
	avg := calculateMean(stress)
	pattern.Max = hi
	pattern.Average = round1(avg)
	for _, d := range dynamics {
		if d.Stress > avg+StressPeakMargin {
			pattern.PeakSegments = append(pattern.PeakSegments, d.SegmentID)
		}
	}
	return pattern
}

func criticalMoments(dynamics []SegmentDynamics) []CriticalMoment {
	moments := []CriticalMoment{}
	for i := 1; i < len(dynamics); i++ {
		change := round1(dynamics[i].Confidence - dynamics[i-1].Confidence)
		if math.Abs(change) < CriticalMomentThreshold {
			continue
		}
		direction := ConfidenceRise
		if change < 0 {
			direction = ConfidenceDrop
		}
		moments = append(moments, CriticalMoment{
			SegmentID: dynamics[i].SegmentID,
			Direction: direction,
			Change:    change,
			Magnitude: math.Abs(change),
			TimeLabel: dynamics[i].TimeLabel,
		})
	}
	return moments
}

func adaptationPoints(dynamics []SegmentDynamics) []AdaptationPoint {
	points := []AdaptationPoint{}
	for _, d := range dynamics {
		if d.Adaptability >= AdaptationPointScore {
			points = append(points, AdaptationPoint{
				SegmentID:      d.SegmentID,
				Score:          d.Adaptability,
				AdaptationType: d.AdaptationType,
				TimeLabel:      d.TimeLabel,
			})
		}
	}
	return points
}
