package dynamics

// BuildDynamics 各セグメントの行動スコアを計算する。
// classifications は segments と同じ順序・件数であること。
func BuildDynamics(segments []Segment, classifications []QuestionClassification) []SegmentDynamics {
	out := make([]SegmentDynamics, len(segments))
	for i, seg := range segments {
		scores := ScoreSegment(seg)
		qc := classifications[i]

		d := SegmentDynamics{
			SegmentID:            seg.ID,
			TimeLabel:            seg.TimeLabel(),
			QuestionType:         qc.Type,
			Complexity:           qc.Complexity,
			Confidence:           scores.Confidence,
			Stress:               scores.Stress,
			Communication:        scores.Communication,
			Engagement:           scores.Engagement,
			Adaptability:         NeutralScore,
			AdaptationType:       InitialAdaptation,
			StressIndicators:     StressIndicators(seg.Audio, seg.Video),
			CommunicationFactors: CommunicationFactors(seg.Audio, seg.Video, seg.WordCount),
			EngagementIndicators: EngagementIndicators(seg.Audio, seg.Video),
		}
		if i > 0 {
			prev := classifications[i-1]
			d.Adaptability = AdaptabilityScore(prev, qc, out[i-1].Confidence, d.Confidence, false)
			d.AdaptationType = ClassifyAdaptation(prev, qc, false)
		}
		out[i] = d
	}
	return out
}

// CorrelateByType 質問タイプごとに行動スコアを平均する。
// 出力順はタイプが最初に現れた順。
func CorrelateByType(dynamics []SegmentDynamics) []TypeCorrelation {
	type group struct {
		confidence, stress, communication, engagement []float64
		complexity                                    []float64
	}
	var order []QuestionType
	groups := map[QuestionType]*group{}

	for _, d := range dynamics {
		g, ok := groups[d.QuestionType]
		if !ok {
			g = &group{}
			groups[d.QuestionType] = g
			order = append(order, d.QuestionType)
		}
		g.confidence = append(g.confidence, d.Confidence)
		g.stress = append(g.stress, d.Stress)
		g.communication = append(g.communication, d.Communication)
		g.engagement = append(g.engagement, d.Engagement)
		g.complexity = append(g.complexity, float64(d.Complexity))
	}

	out := make([]TypeCorrelation, 0, len(order))
	for _, qt := range order {
		g := groups[qt]
		if len(g.confidence) == 0 {
			continue
		}
		lo, hi := minMax(g.complexity)
		out = append(out, TypeCorrelation{
			Type:                 qt,
			SegmentCount:         len(g.confidence),
			AverageConfidence:    round1(calculateMean(g.confidence)),
			AverageStress:        round1(calculateMean(g.stress)),
			AverageCommunication: round1(calculateMean(g.communication)),
			AverageEngagement:    round1(calculateMean(g.engagement)),
			MinComplexity:        int(lo),
			AvgComplexity:        round1(calculateMean(g.complexity)),
			MaxComplexity:        int(hi),
		})
	}
	return out
}
