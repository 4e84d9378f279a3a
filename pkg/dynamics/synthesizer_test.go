package dynamics

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContext() AssessmentContext {
	dynamics := []SegmentDynamics{
		dyn(1, QuestionGreeting, 2, 6, 2),
		dyn(2, QuestionTechnical, 7, 8.5, 3),
		dyn(3, QuestionProblem, 8, 6, 7),
	}
	dynamics[1].Adaptability = 7.5
	dynamics[1].AdaptationType = AdaptationToComplexity
	return AssessmentContext{
		Candidate:        Candidate{ID: "c-1", Name: "Alex"},
		Duration:         90,
		Dynamics:         dynamics,
		TypeCorrelations: CorrelateByType(dynamics),
		Patterns:         ExtractPatterns(dynamics),
	}
}

func uniformScores(v float64) map[Criterion]float64 {
	out := map[Criterion]float64{}
	for _, c := range AllCriteria {
		out[c] = v
	}
	return out
}

func TestSynthesize_FallbackIsUniformFive(t *testing.T) {
	syn := Synthesize(nil, sampleContext())

	assert.Equal(t, 50, syn.TotalScore)
	assert.Equal(t, 5.0, syn.WeightedScore)
	assert.Equal(t, PlaceholderRecommendation, syn.Recommendation)
	require.Len(t, syn.Scores, 10)
	for _, c := range AllCriteria {
		s := syn.Scores[c]
		assert.Equal(t, 5, s.Score, c)
		assert.Contains(t, s.Explanation, AssessmentUnavailableMarker, c)
		assert.Equal(t, 3, s.VerbalScore)
		assert.Equal(t, 3, s.NonVerbalScore)
	}
	assert.Contains(t, syn.DetailedFeedback, "TEMPORAL INSIGHTS")
}

func TestSynthesize_RawScoresAreAuthoritative(t *testing.T) {
	raw := uniformScores(7)
	raw[CommunicationSkills] = 9
	raw[StressResistance] = 3

	syn := Synthesize(&HolisticAssessment{
		Scores:         raw,
		Recommendation: "Hire",
		Feedback:       "Solid interview.",
		TemporalInsights: TemporalInsights{
			StressResponse: "recovers quickly after hard questions",
		},
		Observations: map[Criterion][]string{
			CommunicationSkills: {"a", "b", "c", "d"},
		},
	}, sampleContext())

	assert.Equal(t, 9, syn.Scores[CommunicationSkills].Score)
	assert.Equal(t, 3, syn.Scores[StressResistance].Score)
	assert.Equal(t, 9+3+7*8, syn.TotalScore)
	assert.Equal(t, "Hire", syn.Recommendation)
	assert.True(t, strings.HasPrefix(syn.DetailedFeedback, "Solid interview."))

	comm := syn.Scores[CommunicationSkills]
	assert.Equal(t, []string{"a", "b", "c"}, comm.Observations)
	assert.LessOrEqual(t, len(comm.Examples), 3)
	assert.NotEmpty(t, comm.Examples)
	assert.Equal(t, 5, comm.VerbalScore)
	assert.Equal(t, 5, comm.NonVerbalScore)
	assert.True(t, strings.HasPrefix(comm.FormattedEvaluation, "9/10 - "))
	assert.Contains(t, comm.FormattedEvaluation, " Examples: ")

	assert.Contains(t, syn.Scores[StressResistance].Explanation, "recovers quickly after hard questions")
	assert.NotContains(t, syn.Scores[StressResistance].Explanation, AssessmentUnavailableMarker)
}

func TestSynthesize_MissingAndOutOfRangeScores(t *testing.T) {
	raw := map[Criterion]float64{
		CommunicationSkills: 14,
		MotivationLearning:  -3,
		ProfessionalSkills:  math.NaN(),
		AnalyticalThinking:  6.6,
	}

	syn := Synthesize(&HolisticAssessment{Scores: raw}, sampleContext())

	assert.Equal(t, 10, syn.Scores[CommunicationSkills].Score)
	assert.Equal(t, 1, syn.Scores[MotivationLearning].Score)
	assert.Equal(t, 5, syn.Scores[ProfessionalSkills].Score)
	assert.Equal(t, 7, syn.Scores[AnalyticalThinking].Score)
	assert.Equal(t, 5, syn.Scores[OverallImpression].Score)
	assert.Equal(t, "Additional assessment required", syn.Recommendation)
}

func TestWeightedScore(t *testing.T) {
	scores := map[Criterion]CriterionScore{}
	for _, c := range AllCriteria {
		scores[c] = CriterionScore{Score: 5}
	}
	scores[CommunicationSkills] = CriterionScore{Score: 10}

	// (10*1.2 + 5*8.7) / 9.9 = 55.5 / 9.9
	assert.Equal(t, 5.61, WeightedScore(scores))
}

func TestSynthesize_ScoreBoundsHold(t *testing.T) {
	for _, v := range []float64{-100, 0, 1, 5.5, 10, 1e9} {
		syn := Synthesize(&HolisticAssessment{Scores: uniformScores(v)}, sampleContext())

		assert.GreaterOrEqual(t, syn.TotalScore, 10)
		assert.LessOrEqual(t, syn.TotalScore, 100)
		assert.GreaterOrEqual(t, syn.WeightedScore, 1.0)
		assert.LessOrEqual(t, syn.WeightedScore, 10.0)
		for _, s := range syn.Scores {
			assert.GreaterOrEqual(t, s.Score, 1)
			assert.LessOrEqual(t, s.Score, 10)
			assert.GreaterOrEqual(t, s.VerbalScore, 1)
			assert.LessOrEqual(t, s.VerbalScore, 5)
			assert.GreaterOrEqual(t, s.NonVerbalScore, 1)
			assert.LessOrEqual(t, s.NonVerbalScore, 5)
		}
	}
}

func TestVerbalAndNonVerbalScores(t *testing.T) {
	testCases := []struct {
		score, verbal, nonVerbal int
	}{
		{1, 1, 1},
		{2, 2, 1},
		{5, 3, 3},
		{7, 4, 4},
		{8, 5, 4},
		{10, 5, 5},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.verbal, VerbalScore(tc.score), "verbal %d", tc.score)
		assert.Equal(t, tc.nonVerbal, NonVerbalScore(tc.score), "non-verbal %d", tc.score)
	}
}

func TestFormatEvaluation(t *testing.T) {
	assert.Equal(t, "6/10 - fine", FormatEvaluation(6, "fine", nil))
	assert.Equal(t, "6/10 - fine Examples: a; b; c", FormatEvaluation(6, "fine", []string{"a", "b", "c", "d"}))
}

func TestEvidence(t *testing.T) {
	ac := sampleContext()

	adapt := Evidence(Adaptability, ac)
	require.NotEmpty(t, adapt)
	assert.Contains(t, adapt[0], "adaptation_to_complexity")

	stress := Evidence(StressResistance, ac)
	assert.Contains(t, stress[0], "peaks in segments [3]")

	professional := Evidence(ProfessionalSkills, ac)
	assert.Contains(t, professional[0], "technical questions")
}

func TestCriteriaCatalogue(t *testing.T) {
	criteria := Criteria()
	require.Len(t, criteria, 10)

	total := 0.0
	for i, c := range criteria {
		assert.Equal(t, AllCriteria[i], c.Criterion)
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.KeyIndicators)
		assert.NotEmpty(t, c.VerbalAspects)
		assert.NotEmpty(t, c.NonVerbalAspects)
		total += c.Weight
	}
	assert.InDelta(t, 9.9, total, 1e-9)
}
