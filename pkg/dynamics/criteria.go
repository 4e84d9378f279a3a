package dynamics

import "time"

// Criterion 評価基準（10項目固定）
type Criterion string

const (
	CommunicationSkills    Criterion = "communication_skills"
	MotivationLearning     Criterion = "motivation_learning"
	ProfessionalSkills     Criterion = "professional_skills"
	AnalyticalThinking     Criterion = "analytical_thinking"
	UnconventionalThinking Criterion = "unconventional_thinking"
	TeamworkAbility        Criterion = "teamwork_ability"
	StressResistance       Criterion = "stress_resistance"
	Adaptability           Criterion = "adaptability"
	CreativityInnovation   Criterion = "creativity_innovation"
	OverallImpression      Criterion = "overall_impression"
)

// AllCriteria 出力順を固定した評価基準の一覧
var AllCriteria = []Criterion{
	CommunicationSkills,
	MotivationLearning,
	ProfessionalSkills,
	AnalyticalThinking,
	UnconventionalThinking,
	TeamworkAbility,
	StressResistance,
	Adaptability,
	CreativityInnovation,
	OverallImpression,
}

// CriterionDescription 評価基準の説明
type CriterionDescription struct {
	Criterion        Criterion `json:"criterion"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Weight           float64   `json:"weight"`
	KeyIndicators    []string  `json:"key_indicators"`
	VerbalAspects    []string  `json:"verbal_aspects"`
	NonVerbalAspects []string  `json:"non_verbal_aspects"`
}

var criteriaCatalogue = map[Criterion]CriterionDescription{
	CommunicationSkills: {
		Name:             "Communication skills",
		Description:      "Ability to communicate clearly and effectively",
		KeyIndicators:    []string{"Speech clarity", "Structured answers", "Active listening", "Understanding of questions"},
		VerbalAspects:    []string{"Pronunciation", "Volume and pace", "Professional vocabulary", "Grammar"},
		NonVerbalAspects: []string{"Eye contact", "Facial expression", "Posture and gestures", "Confident manner"},
	},
	MotivationLearning: {
		Name:             "Motivation to learn",
		Description:      "Drive to grow and learn new things",
		KeyIndicators:    []string{"Interest in self-development", "Readiness for challenges", "Clear career goals", "Enthusiasm"},
		VerbalAspects:    []string{"Mentions of courses and study", "Questions about growth", "Plans for the future", "Energetic speech"},
		NonVerbalAspects: []string{"Visible interest", "Active gestures", "Upright posture", "Emotional involvement"},
	},
	ProfessionalSkills: {
		Name:             "Professional skills",
		Description:      "Technical and applied knowledge of the field",
		KeyIndicators:    []string{"Domain knowledge", "Practical experience", "Technical skills", "Awareness of trends"},
		VerbalAspects:    []string{"Use of terminology", "Examples from practice", "Depth of answers", "Concrete achievements"},
		NonVerbalAspects: []string{"Confidence while answering", "No hesitation", "Precise gestures", "Direct gaze"},
	},
	AnalyticalThinking: {
		Name:             "Analytical thinking",
		Description:      "Logical analysis and problem solving",
		KeyIndicators:    []string{"Logical reasoning", "Decomposition", "Cause and effect", "Critical thinking"},
		VerbalAspects:    []string{"Answer structure", "Logical connectives", "Argumentation", "Solution examples"},
		NonVerbalAspects: []string{"Pauses for reflection", "Concentration", "Explanatory gestures", "Attentive gaze"},
	},
	UnconventionalThinking: {
		Name:             "Unconventional thinking",
		Description:      "Creative, non-trivial approach to problems",
		KeyIndicators:    []string{"Original solutions", "Non-standard approach", "Breaking patterns", "Innovative thinking"},
		VerbalAspects:    []string{"Unusual ideas", "Creative analogies", "Non-standard examples", "Innovative proposals"},
		NonVerbalAspects: []string{"Expressive face", "Creative gestures", "Engaged gaze", "Dynamic movement"},
	},
	TeamworkAbility: {
		Name:             "Teamwork",
		Description:      "Working effectively in a team",
		KeyIndicators:    []string{"Team experience", "Group communication", "Supporting colleagues", "Constructiveness"},
		VerbalAspects:    []string{"Examples of joint work", "Saying \"we\" rather than \"I\"", "Mentions of colleagues", "Willingness to compromise"},
		NonVerbalAspects: []string{"Open gestures", "Friendly expression", "Attention to the interviewer", "Goodwill"},
	},
	StressResistance: {
		Name:             "Stress resistance",
		Description:      "Working effectively under pressure",
		KeyIndicators:    []string{"Calm in difficult situations", "Emotional control", "Work under pressure", "Recovery after setbacks"},
		VerbalAspects:    []string{"Even tone of voice", "No speech breakdowns", "Calm answers", "Examples of overcoming difficulties"},
		NonVerbalAspects: []string{"Relaxed posture", "Controlled facial expression", "No anxious gestures", "Even breathing"},
	},
	Adaptability: {
		Name:             "Adaptability",
		Description:      "Flexibility and openness to change",
		KeyIndicators:    []string{"Openness to change", "Fast learning", "Flexible thinking", "Adjusting to the new"},
		VerbalAspects:    []string{"Readiness for change", "Examples of adaptation", "Positive attitude to novelty", "Quick topic switching"},
		NonVerbalAspects: []string{"Open gestures", "Flexible movement", "Fast reaction", "Interest"},
	},
	CreativityInnovation: {
		Name:             "Creativity and innovation",
		Description:      "Creative thinking and novel solutions",
		KeyIndicators:    []string{"Non-standard solutions", "Creative approach", "Innovative ideas", "Original thinking"},
		VerbalAspects:    []string{"Unusual examples", "Creative solutions", "New ideas", "Non-standard approaches"},
		NonVerbalAspects: []string{"Lively expression", "Expressive gestures", "Enthusiasm", "Dynamism"},
	},
	OverallImpression: {
		Name:             "Overall impression",
		Description:      "Holistic assessment of the candidate as a future employee",
		KeyIndicators:    []string{"Professionalism", "Personal maturity", "Cultural fit", "Growth potential"},
		VerbalAspects:    []string{"Overall answer level", "Professional speech", "Meets expectations", "Impression of the dialogue"},
		NonVerbalAspects: []string{"Presentability", "Professional appearance", "Self-confidence", "Charisma"},
	},
}

// Criteria 評価基準カタログを AllCriteria の順で返す
func Criteria() []CriterionDescription {
	out := make([]CriterionDescription, 0, len(AllCriteria))
	for _, c := range AllCriteria {
		d := criteriaCatalogue[c]
		d.Criterion = c
		d.Weight = CriterionWeights[c]
		out = append(out, d)
	}
	return out
}

// --- 結果 ---

// CriterionScore 1評価基準分の最終スコア
type CriterionScore struct {
	Criterion           Criterion `json:"criterion"`
	Score               int       `json:"score"`
	VerbalScore         int       `json:"verbal_score"`
	NonVerbalScore      int       `json:"non_verbal_score"`
	Explanation         string    `json:"explanation"`
	Observations        []string  `json:"key_observations"`
	Examples            []string  `json:"specific_examples"`
	FormattedEvaluation string    `json:"formatted_evaluation"`
}

// Source 外部呼び出しの結果がどこから来たか
type Source string

const (
	SourceSemantic Source = "semantic"
	SourceHolistic Source = "holistic"
	SourceFallback Source = "fallback"
)

// Quality 劣化モードの記録
type Quality struct {
	ClassificationSource Source `json:"classification_source"`
	AssessmentSource     Source `json:"assessment_source"`
	ClassificationError  string `json:"classification_error,omitempty"`
	AssessmentError      string `json:"assessment_error,omitempty"`
}

// Degraded どちらかの外部呼び出しがフォールバックしたか
func (q Quality) Degraded() bool {
	return q.ClassificationSource == SourceFallback || q.AssessmentSource == SourceFallback
}

// FinalAnalysis 面接1件分の分析結果
type FinalAnalysis struct {
	AnalysisID        string  `json:"analysis_id"`
	CandidateID       string  `json:"candidate_id"`
	CandidateName     string  `json:"candidate_name"`
	CandidateEmail    string  `json:"candidate_email,omitempty"`
	CandidatePhone    string  `json:"candidate_phone,omitempty"`
	InterviewDuration float64 `json:"interview_duration"`

	Scores        map[Criterion]CriterionScore `json:"scores"`
	TotalScore    int                          `json:"total_score"`
	WeightedScore float64                      `json:"weighted_score"`

	AudioQuality         int                `json:"audio_quality"`
	VideoQuality         int                `json:"video_quality"`
	EmotionAnalysis      map[string]float64 `json:"emotion_analysis"`
	EyeContactPercentage float64            `json:"eye_contact_percentage"`
	GestureFrequency     float64            `json:"gesture_frequency"`
	PostureConfidence    int                `json:"posture_confidence"`
	SpeechPace           string             `json:"speech_pace"`
	AnswerStructure      int                `json:"answer_structure"`

	Recommendation   string `json:"recommendation"`
	DetailedFeedback string `json:"detailed_feedback"`

	Segments         []Segment                `json:"segments"`
	Classifications  []QuestionClassification `json:"question_classifications"`
	Dynamics         []SegmentDynamics        `json:"segment_dynamics"`
	TypeCorrelations []TypeCorrelation        `json:"type_correlations"`
	Patterns         TemporalPatterns         `json:"temporal_patterns"`

	Quality           Quality   `json:"quality"`
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
	ModelVersion      string    `json:"ai_model_version"`
}

// OrderedScores スコアを AllCriteria の順で返す
func (a *FinalAnalysis) OrderedScores() []CriterionScore {
	out := make([]CriterionScore, 0, len(AllCriteria))
	for _, c := range AllCriteria {
		if s, ok := a.Scores[c]; ok {
			out = append(out, s)
		}
	}
	return out
}
