package dynamics

import (
	"fmt"
	"math"
	"strings"
)

// Segmenter 面接を固定長ウィンドウに分割し、各ウィンドウに生特徴量を割り当てる
type Segmenter struct {
	window float64
}

// NewSegmenter 新しいセグメンタを作成。window<=0 はデフォルト 30 秒。
func NewSegmenter(window float64) *Segmenter {
	if !(window > 0) || math.IsInf(window, 0) {
		window = DefaultWindowSeconds
	}
	return &Segmenter{window: window}
}

// Split 面接時間・書き起こし・特徴量からセグメント列を作る。
// 面接時間が負・NaN・無限大、または上限超えなら ErrMalformedInput。
func (s *Segmenter) Split(duration float64, transcript string, audio AudioFeatures, video VideoFeatures) ([]Segment, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: 面接時間が数値ではありません (%v)", ErrMalformedInput, duration)
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: 面接時間が負の値です (%v)", ErrMalformedInput, duration)
	}
	if duration > MaxInterviewSeconds {
		return nil, fmt.Errorf("%w: 面接時間が上限 %.0f 秒を超えています (%v)", ErrMalformedInput, MaxInterviewSeconds, duration)
	}

	words := strings.Fields(transcript)
	if duration == 0 || len(words) == 0 {
		seg := Segment{ID: 1}
		s.fillMetrics(&seg, audio, video, nil, nil)
		return []Segment{seg}, nil
	}

	segmentCount := math.Ceil(duration / s.window)
	if segmentCount > MaxSegments {
		return nil, fmt.Errorf("%w: セグメント数が上限 %d を超えます (%.0f)", ErrMalformedInput, MaxSegments, segmentCount)
	}
	count := int(segmentCount)

	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * s.window
		end := math.Min(float64(i+1)*s.window, duration)

		lo, hi := chunkBounds(len(words), count, i)
		excerpt := words[lo:hi]

		seg := Segment{
			ID:                i + 1,
			StartTime:         start,
			EndTime:           end,
			Duration:          end - start,
			TranscriptExcerpt: strings.Join(excerpt, " "),
			WordCount:         len(excerpt),
		}
		last := i == count-1
		s.fillMetrics(&seg,
			audio, video,
			audioSamplesIn(audio.Samples, start, end, last),
			videoSamplesIn(video.Samples, start, end, last),
		)
		segments = append(segments, seg)
	}
	return segments, nil
}

// chunkBounds n語を count 個に分けたときの i 番目の範囲。
// 余りは先頭から1語ずつ配るので、後ろのチャンクほど短いか同じ長さになる。
func chunkBounds(n, count, i int) (lo, hi int) {
	size, rest := n/count, n%count
	lo = i*size + min(i, rest)
	hi = lo + size
	if i < rest {
		hi++
	}
	return lo, hi
}

// inWindow 最後のウィンドウだけ終端を含む
func inWindow(t, start, end float64, last bool) bool {
	if !isFinite(t) {
		return false
	}
	if last {
		return t >= start && t <= end
	}
	return t >= start && t < end
}

func audioSamplesIn(samples []AudioSample, start, end float64, last bool) []AudioSample {
	var out []AudioSample
	for _, smp := range samples {
		if inWindow(smp.Time, start, end, last) {
			out = append(out, smp)
		}
	}
	return out
}

func videoSamplesIn(samples []VideoSample, start, end float64, last bool) []VideoSample {
	var out []VideoSample
	for _, smp := range samples {
		if inWindow(smp.Time, start, end, last) {
			out = append(out, smp)
		}
	}
	return out
}

// fillMetrics ウィンドウ内サンプルの平均 → 集約値 → 既定値 の順で埋める
func (s *Segmenter) fillMetrics(seg *Segment, audio AudioFeatures, video VideoFeatures, as []AudioSample, vs []VideoSample) {
	pickA := func(get func(AudioSample) *float64, def float64) float64 {
		return resolve(averageOf(as, get), get(audio.AudioSample), def)
	}
	pickV := func(get func(VideoSample) *float64, def float64) float64 {
		return resolve(averageOf(vs, get), get(video.VideoSample), def)
	}

	seg.Audio = AudioMetrics{
		SpeechRate:     pickA(func(a AudioSample) *float64 { return a.SpeechRate }, DefaultSpeechRate),
		SpeechClarity:  pickA(func(a AudioSample) *float64 { return a.SpeechClarity }, DefaultSpeechClarity),
		PauseFrequency: pickA(func(a AudioSample) *float64 { return a.PauseFrequency }, DefaultPauseFrequency),
		EnergyLevel:    pickA(func(a AudioSample) *float64 { return a.EnergyLevel }, DefaultEnergyLevel),
		TempoStability: pickA(func(a AudioSample) *float64 { return a.TempoStability }, DefaultTempoStability),
		PitchVariation: pickA(func(a AudioSample) *float64 { return a.PitchVariation }, DefaultPitchVariation),
	}
	seg.Video = VideoMetrics{
		EmotionDistribution:  resolveMap(averageMaps(vs, func(v VideoSample) map[string]float64 { return v.EmotionDistribution }), video.EmotionDistribution, DefaultEmotionDistribution()),
		EyeContactPercentage: pickV(func(v VideoSample) *float64 { return v.EyeContactPercentage }, DefaultEyeContact),
		PostureConfidence:    pickV(func(v VideoSample) *float64 { return v.PostureConfidence }, DefaultPostureConfident),
		GestureFrequency:     pickV(func(v VideoSample) *float64 { return v.GestureFrequency }, DefaultGestureFrequency),
		HeadMovement:         resolveMap(averageMaps(vs, func(v VideoSample) map[string]float64 { return v.HeadMovement }), video.HeadMovement, nil),
		FacialExpressions:    resolveMap(averageMaps(vs, func(v VideoSample) map[string]float64 { return v.FacialExpressions }), video.FacialExpressions, nil),
	}

	optA := func(get func(AudioSample) *float64) *float64 {
		return firstPresent(averageOf(as, get), get(audio.AudioSample))
	}
	seg.DataQuality = DataQuality{
		SpeechClarity:   optA(func(a AudioSample) *float64 { return a.SpeechClarity }),
		BackgroundNoise: optA(func(a AudioSample) *float64 { return a.BackgroundNoise }),
		VideoVisibility: firstPresent(averageOf(vs, func(v VideoSample) *float64 { return v.Visibility }), video.Visibility),
		AudioSamples:    len(as),
		VideoSamples:    len(vs),
	}
}

// averageOf 値を持つサンプルだけで平均する。1件もなければ nil。
func averageOf[T any](samples []T, get func(T) *float64) *float64 {
	var vals []float64
	for _, smp := range samples {
		if p := get(smp); p != nil && isFinite(*p) {
			vals = append(vals, *p)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	m := calculateMean(vals)
	return &m
}

func averageMaps(samples []VideoSample, get func(VideoSample) map[string]float64) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, smp := range samples {
		for k, v := range get(smp) {
			if !isFinite(v) {
				continue
			}
			sums[k] += v
			counts[k]++
		}
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}

func firstPresent(values ...*float64) *float64 {
	for _, p := range values {
		if p != nil && isFinite(*p) {
			v := *p
			return &v
		}
	}
	return nil
}

func resolve(windowed, aggregate *float64, def float64) float64 {
	if p := firstPresent(windowed, aggregate); p != nil {
		return *p
	}
	return def
}

func resolveMap(windowed, aggregate, def map[string]float64) map[string]float64 {
	for _, m := range []map[string]float64{windowed, aggregate} {
		clean := finiteEntries(m)
		if len(clean) > 0 {
			return clean
		}
	}
	return def
}

func finiteEntries(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if isFinite(v) {
			out[k] = v
		}
	}
	return out
}
