package dynamics

// AdaptabilityScore 直前セグメントとの比較で適応性を計算する。
// 質問タイプが変わらない場合と先頭セグメントは中立の 5。
func AdaptabilityScore(prev, cur QuestionClassification, prevConfidence, curConfidence float64, first bool) float64 {
	if first || prev.Type == cur.Type {
		return NeutralScore
	}

	confidenceDelta := curConfidence - prevConfidence
	complexityDelta := float64(cur.Complexity - prev.Complexity)

	var adjustment float64
	if complexityDelta > 0 {
		// 難しくなっても自信を保てていれば加点
		adjustment = clamp(-confidenceDelta+AdaptabilityComplexityFactor*complexityDelta, -AdaptabilityHarderClamp, AdaptabilityHarderClamp)
	} else {
		adjustment = clamp(-confidenceDelta, -AdaptabilityEasierClamp, AdaptabilityEasierClamp)
	}
	return round1(clampScore(NeutralScore + adjustment))
}

// ClassifyAdaptation 難易度の変化から適応の種類を決める
func ClassifyAdaptation(prev, cur QuestionClassification, first bool) AdaptationType {
	switch {
	case first:
		return InitialAdaptation
	case cur.Complexity > prev.Complexity+ComplexityShiftMargin:
		return AdaptationToComplexity
	case cur.Complexity < prev.Complexity-ComplexityShiftMargin:
		return ReturnToComfort
	case cur.Type != prev.Type:
		return AdaptationToNewTopic
	default:
		return StableState
	}
}
