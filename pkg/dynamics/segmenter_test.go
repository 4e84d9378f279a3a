package dynamics

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

func TestSplit_NinetySecondsGivesThreeWindows(t *testing.T) {
	s := NewSegmenter(30)

	segments, err := s.Split(90, words(30), AudioFeatures{}, VideoFeatures{})
	require.NoError(t, err)
	require.Len(t, segments, 3)

	bounds := [][2]float64{{0, 30}, {30, 60}, {60, 90}}
	for i, seg := range segments {
		assert.Equal(t, i+1, seg.ID)
		assert.Equal(t, bounds[i][0], seg.StartTime)
		assert.Equal(t, bounds[i][1], seg.EndTime)
		assert.Equal(t, 30.0, seg.Duration)
		assert.Equal(t, 10, seg.WordCount)
	}
}

func TestSplit_SegmentCountAndCoverage(t *testing.T) {
	s := NewSegmenter(DefaultWindowSeconds)

	for _, d := range []float64{30, 31, 59.5, 60, 61, 95, 300, 1234.5} {
		segments, err := s.Split(d, words(50), AudioFeatures{}, VideoFeatures{})
		require.NoError(t, err)

		assert.Equal(t, int(math.Ceil(d/30)), len(segments), "duration %v", d)

		total := 0.0
		for i, seg := range segments {
			total += seg.Duration
			if i > 0 {
				// 連続・非重複
				assert.Equal(t, segments[i-1].EndTime, seg.StartTime)
			}
		}
		assert.InDelta(t, d, total, 1e-9, "duration %v", d)
		assert.Equal(t, 0.0, segments[0].StartTime)
		assert.Equal(t, d, segments[len(segments)-1].EndTime)
	}
}

func TestSplit_LastSegmentIsShorter(t *testing.T) {
	segments, err := NewSegmenter(30).Split(95, words(8), AudioFeatures{}, VideoFeatures{})
	require.NoError(t, err)
	require.Len(t, segments, 4)
	assert.Equal(t, 5.0, segments[3].Duration)
	assert.Equal(t, "90-95", segments[3].TimeLabel())
}

func TestSplit_WordAllocation(t *testing.T) {
	transcript := "one two three four five six seven eight nine ten"

	segments, err := NewSegmenter(30).Split(90, transcript, AudioFeatures{}, VideoFeatures{})
	require.NoError(t, err)

	assert.Equal(t, "one two three four", segments[0].TranscriptExcerpt)
	assert.Equal(t, "five six seven", segments[1].TranscriptExcerpt)
	assert.Equal(t, "eight nine ten", segments[2].TranscriptExcerpt)
	assert.Equal(t, []int{4, 3, 3}, []int{segments[0].WordCount, segments[1].WordCount, segments[2].WordCount})
}

func TestSplit_WordsAreSpreadWithoutEmptyWindows(t *testing.T) {
	segments, err := NewSegmenter(30).Split(150, "a b c d e f g", AudioFeatures{}, VideoFeatures{})
	require.NoError(t, err)
	require.Len(t, segments, 5)

	var counts []int
	var joined []string
	for _, seg := range segments {
		counts = append(counts, seg.WordCount)
		joined = append(joined, seg.TranscriptExcerpt)
	}
	assert.Equal(t, []int{2, 2, 1, 1, 1}, counts)
	assert.Equal(t, "a b c d e f g", strings.Join(joined, " "))
}

func TestSplit_MoreSegmentsThanWords(t *testing.T) {
	segments, err := NewSegmenter(30).Split(150, "hello there", AudioFeatures{}, VideoFeatures{})
	require.NoError(t, err)
	require.Len(t, segments, 5)

	total := 0
	for _, seg := range segments {
		total += seg.WordCount
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, "", segments[4].TranscriptExcerpt)
}

func TestSplit_DegenerateInput(t *testing.T) {
	testCases := []struct {
		name       string
		duration   float64
		transcript string
	}{
		{"zero duration", 0, "some words here"},
		{"empty transcript", 120, ""},
		{"whitespace transcript", 60, "   \n\t "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			segments, err := NewSegmenter(30).Split(tc.duration, tc.transcript, AudioFeatures{}, VideoFeatures{})
			require.NoError(t, err)
			require.Len(t, segments, 1)
			assert.Equal(t, 1, segments[0].ID)
			assert.Equal(t, 0.0, segments[0].Duration)
			assert.Equal(t, "", segments[0].TranscriptExcerpt)
			assert.Equal(t, 0, segments[0].WordCount)
			assert.Equal(t, DefaultSpeechRate, segments[0].Audio.SpeechRate)
		})
	}
}

func TestSplit_MalformedDuration(t *testing.T) {
	for _, d := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1), MaxInterviewSeconds + 1, 1e10, 1e300} {
		segments, err := NewSegmenter(30).Split(d, "hello", AudioFeatures{}, VideoFeatures{})
		assert.ErrorIs(t, err, ErrMalformedInput, "duration %v", d)
		assert.Nil(t, segments)
	}
}

func TestSplit_DurationLimit(t *testing.T) {
	segments, err := NewSegmenter(30).Split(MaxInterviewSeconds, "hello", AudioFeatures{}, VideoFeatures{})
	require.NoError(t, err)
	assert.Len(t, segments, int(MaxInterviewSeconds/30))

	_, err = NewSegmenter(1).Split(MaxSegments+1, "hello", AudioFeatures{}, VideoFeatures{})
	assert.ErrorIs(t, err, ErrMalformedInput, "ウィンドウが短すぎてセグメント数が上限を超える")
}

func TestSplit_MissingFeaturesUseDefaults(t *testing.T) {
	segments, err := NewSegmenter(30).Split(30, "hello", AudioFeatures{}, VideoFeatures{})
	require.NoError(t, err)
	seg := segments[0]

	assert.Equal(t, AudioMetrics{
		SpeechRate:     150,
		SpeechClarity:  5,
		PauseFrequency: 5,
		EnergyLevel:    0.5,
		TempoStability: 0.8,
		PitchVariation: 30,
	}, seg.Audio)
	assert.Equal(t, 50.0, seg.Video.EyeContactPercentage)
	assert.Equal(t, 5.0, seg.Video.PostureConfidence)
	assert.Equal(t, 10.0, seg.Video.GestureFrequency)
	assert.Equal(t, DefaultEmotionDistribution(), seg.Video.EmotionDistribution)
	assert.Nil(t, seg.DataQuality.SpeechClarity)
}

func TestSplit_NonFiniteAggregateIsTreatedAsAbsent(t *testing.T) {
	audio := AudioFeatures{AudioSample: AudioSample{SpeechRate: ptr(math.NaN()), SpeechClarity: ptr(math.Inf(1))}}
	video := VideoFeatures{VideoSample: VideoSample{EyeContactPercentage: ptr(math.NaN())}}

	segments, err := NewSegmenter(30).Split(30, "hello", audio, video)
	require.NoError(t, err)

	assert.Equal(t, DefaultSpeechRate, segments[0].Audio.SpeechRate)
	assert.Equal(t, DefaultSpeechClarity, segments[0].Audio.SpeechClarity)
	assert.Equal(t, DefaultEyeContact, segments[0].Video.EyeContactPercentage)
}

func TestSplit_TimeIndexedSamplesAreAveragedPerWindow(t *testing.T) {
	audio := AudioFeatures{
		AudioSample: AudioSample{SpeechRate: ptr(150), SpeechClarity: ptr(7)},
		Samples: []AudioSample{
			{Time: 5, SpeechRate: ptr(100)},
			{Time: 10, SpeechRate: ptr(120), SpeechClarity: ptr(9)},
			{Time: 40, SpeechRate: ptr(200)},
			{Time: 90, SpeechRate: ptr(160)}, // 終端は最後のウィンドウに含める
		},
	}
	video := VideoFeatures{
		Duration: 90,
		VideoSample: VideoSample{
			EmotionDistribution: map[string]float64{"confident": 40, "neutral": 60},
		},
		Samples: []VideoSample{
			{Time: 35, EmotionDistribution: map[string]float64{"confident": 10, "nervous": 30}},
			{Time: 45, EmotionDistribution: map[string]float64{"confident": 30, "nervous": 10}},
		},
	}

	segments, err := NewSegmenter(30).Split(90, words(9), audio, video)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, 110.0, segments[0].Audio.SpeechRate)
	assert.Equal(t, 9.0, segments[0].Audio.SpeechClarity)
	assert.Equal(t, 2, segments[0].DataQuality.AudioSamples)

	assert.Equal(t, 200.0, segments[1].Audio.SpeechRate)
	assert.Equal(t, 7.0, segments[1].Audio.SpeechClarity, "サンプルに値がなければ集約値")
	assert.Equal(t, map[string]float64{"confident": 20, "nervous": 20}, segments[1].Video.EmotionDistribution)

	assert.Equal(t, 160.0, segments[2].Audio.SpeechRate)
	assert.Equal(t, map[string]float64{"confident": 40, "neutral": 60}, segments[2].Video.EmotionDistribution)
}

func TestNewSegmenter_InvalidWindowFallsBackToDefault(t *testing.T) {
	for _, w := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		assert.Equal(t, DefaultWindowSeconds, NewSegmenter(w).window)
	}
}
