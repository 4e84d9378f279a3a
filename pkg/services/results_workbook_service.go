package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheetName = "Results"

	colAnalysisID     = "Analysis ID"
	colTimestamp      = "Timestamp"
	colCandidateID    = "Candidate ID"
	colName           = "Name"
	colFinalScore     = "Final Score"
	colWeightedScore  = "Weighted Score"
	colRecommendation = "Recommendation"
)

// resultsHeaders 結果シートの列。評価基準の列は AllCriteria の順。
func resultsHeaders() []string {
	headers := []string{colAnalysisID, colTimestamp, colCandidateID, colName, "Email", "Phone"}
	for i, d := range dynamics.Criteria() {
		headers = append(headers, fmt.Sprintf("%d. %s", i+1, d.Name))
	}
	return append(headers, colFinalScore, colWeightedScore, colRecommendation, "Degraded")
}

// ResultsWorkbookService 分析結果を1行ずつExcelブックに追記する
type ResultsWorkbookService struct {
	path string
	mu   sync.Mutex
}

// NewResultsWorkbookService 新しいResultsWorkbookServiceを作成
func NewResultsWorkbookService(path string) *ResultsWorkbookService {
	return &ResultsWorkbookService{path: path}
}

// Path 結果ブックのファイルパス
func (s *ResultsWorkbookService) Path() string {
	return s.path
}

// Append 分析結果を結果シートの末尾に追加する
func (s *ResultsWorkbookService) Append(a *dynamics.FinalAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openOrCreate()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(resultsSheetName)
	if err != nil {
		return fmt.Errorf("結果シートの行取得に失敗: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	row := resultRow(a)
	if err := f.SetSheetRow(resultsSheetName, cell, &row); err != nil {
		return fmt.Errorf("結果シートへの書き込みに失敗: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("結果ブックのディレクトリ作成に失敗: %w", err)
		}
	}
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("結果ブックの保存に失敗: %w", err)
	}
	log.Printf("[結果ブック] %s の結果を追記しました (%s)", a.CandidateName, cell)
	return nil
}

func (s *ResultsWorkbookService) openOrCreate() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), resultsSheetName); err != nil {
			return nil, err
		}
		if err := writeHeader(f, resultsSheetName, resultsHeaders()); err != nil {
			return nil, err
		}
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("結果ブックを開けません: %w", err)
	}

	idx, err := f.GetSheetIndex(resultsSheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	if idx == -1 {
		if _, err := f.NewSheet(resultsSheetName); err != nil {
			f.Close()
			return nil, err
		}
		if err := writeHeader(f, resultsSheetName, resultsHeaders()); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func resultRow(a *dynamics.FinalAnalysis) []interface{} {
	row := []interface{}{
		a.AnalysisID,
		a.AnalysisTimestamp.Format(time.RFC3339),
		a.CandidateID,
		a.CandidateName,
		a.CandidateEmail,
		a.CandidatePhone,
	}
	for _, c := range dynamics.AllCriteria {
		if score, ok := a.Scores[c]; ok {
			row = append(row, score.FormattedEvaluation)
		} else {
			row = append(row, "Not evaluated")
		}
	}
	degraded := "no"
	if a.Quality.Degraded() {
		degraded = "yes"
	}
	return append(row, fmt.Sprintf("%d/100", a.TotalScore), a.WeightedScore, a.Recommendation, degraded)
}

// readRecords ヘッダー行をキーにした行のマップを返す。ブックがなければ空。
func (s *ResultsWorkbookService) readRecords() ([]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("結果ブックを開けません: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(resultsSheetName)
	if err != nil {
		return nil, fmt.Errorf("結果シートの行取得に失敗: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// History 結果シートの全行。candidateID を指定するとその候補者だけに絞る。
func (s *ResultsWorkbookService) History(candidateID string) ([]map[string]string, error) {
	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}
	if candidateID == "" {
		return records, nil
	}
	filtered := make([]map[string]string, 0)
	for _, r := range records {
		if r[colCandidateID] == candidateID {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Statistics 結果シートから合計点の平均・推薦の内訳・分布を集計する
func (s *ResultsWorkbookService) Statistics() (*models.AnalysisStatistics, error) {
	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}

	stats := &models.AnalysisStatistics{
		TotalInterviews:          len(records),
		RecommendationsBreakdown: make(map[string]int),
	}
	var totalSum, weightedSum float64
	var scored, weighted int
	for _, r := range records {
		rec := r[colRecommendation]
		if rec == "" {
			rec = "Unknown"
		}
		stats.RecommendationsBreakdown[rec]++

		if total, ok := parseFinalScore(r[colFinalScore]); ok {
			totalSum += float64(total)
			scored++
			stats.ScoreDistribution.Add(total)
		}
		if w, err := strconv.ParseFloat(r[colWeightedScore], 64); err == nil {
			weightedSum += w
			weighted++
		}
	}
	if scored > 0 {
		stats.AverageScore = roundTo(totalSum/float64(scored), 1)
	}
	if weighted > 0 {
		stats.AverageWeightedScore = roundTo(weightedSum/float64(weighted), 2)
	}
	return stats, nil
}

// parseFinalScore "73/100" 形式と数値だけの形式を受け付ける
func parseFinalScore(value string) (int, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "/100"))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// --- 分析1件分のエクスポート ---

// BuildAnalysisWorkbook 分析結果1件を Summary / Scores / Dynamics / Patterns の4シートにまとめる
func BuildAnalysisWorkbook(a *dynamics.FinalAnalysis) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), "Summary"); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Analysis ID", a.AnalysisID},
		{"Candidate", a.CandidateName},
		{"Candidate ID", a.CandidateID},
		{"Interview duration (s)", a.InterviewDuration},
		{"Total score", fmt.Sprintf("%d/100", a.TotalScore)},
		{"Weighted score", a.WeightedScore},
		{"Recommendation", a.Recommendation},
		{"Speech pace", a.SpeechPace},
		{"Eye contact (%)", a.EyeContactPercentage},
		{"Gesture frequency", a.GestureFrequency},
		{"Posture confidence", a.PostureConfidence},
		{"Answer structure", a.AnswerStructure},
		{"Audio quality", a.AudioQuality},
		{"Video quality", a.VideoQuality},
		{"Classification source", string(a.Quality.ClassificationSource)},
		{"Assessment source", string(a.Quality.AssessmentSource)},
		{"Analyzed at", a.AnalysisTimestamp.Format(time.RFC3339)},
		{"Model version", a.ModelVersion},
		{"Feedback", a.DetailedFeedback},
	}
	if err := writeRows(f, "Summary", nil, summary); err != nil {
		return nil, err
	}

	scores := make([][]interface{}, 0, len(dynamics.AllCriteria))
	for _, s := range a.OrderedScores() {
		scores = append(scores, []interface{}{
			string(s.Criterion), s.Score, s.VerbalScore, s.NonVerbalScore, s.Explanation,
			strings.Join(s.Observations, "; "), strings.Join(s.Examples, "; "),
		})
	}
	if err := writeSheet(f, "Scores",
		[]string{"Criterion", "Score", "Verbal", "Non-verbal", "Explanation", "Observations", "Examples"}, scores); err != nil {
		return nil, err
	}

	segs := make([][]interface{}, 0, len(a.Dynamics))
	for _, d := range a.Dynamics {
		segs = append(segs, []interface{}{
			d.SegmentID, d.TimeLabel, string(d.QuestionType), d.Complexity,
			d.Confidence, d.Stress, d.Communication, d.Engagement, d.Adaptability, string(d.AdaptationType),
		})
	}
	if err := writeSheet(f, "Dynamics",
		[]string{"Segment", "Time", "Question type", "Complexity", "Confidence", "Stress", "Communication", "Engagement", "Adaptability", "Adaptation"}, segs); err != nil {
		return nil, err
	}

	p := a.Patterns
	patterns := [][]interface{}{
		{"confidence_trend", string(p.ConfidenceTrend.Direction), p.ConfidenceTrend.StartLevel, p.ConfidenceTrend.EndLevel},
		{"confidence_stability", p.ConfidenceTrend.Stability},
		{"stress_max", p.StressPattern.Max},
		{"stress_average", p.StressPattern.Average},
		{"communication_stability", p.CommunicationStability},
		{"average_engagement", p.AverageEngagement},
	}
	for _, m := range p.CriticalMoments {
		patterns = append(patterns, []interface{}{"critical_moment", m.TimeLabel, string(m.Direction), m.Magnitude})
	}
	for _, ap := range p.AdaptationPoints {
		patterns = append(patterns, []interface{}{"adaptation_point", ap.TimeLabel, string(ap.AdaptationType), ap.Score})
	}
	if err := writeSheet(f, "Patterns", []string{"Pattern", "Value", "Detail", "Level"}, patterns); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteAnalysisWorkbook エクスポート用ブックを w に書き出す
func WriteAnalysisWorkbook(a *dynamics.FinalAnalysis, w io.Writer) error {
	f, err := BuildAnalysisWorkbook(a)
	if err != nil {
		return fmt.Errorf("エクスポート用ブックの作成に失敗: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}

// SaveAnalysisWorkbook エクスポート用ブックをファイルに保存する
func SaveAnalysisWorkbook(a *dynamics.FinalAnalysis, path string) error {
	f, err := BuildAnalysisWorkbook(a)
	if err != nil {
		return fmt.Errorf("エクスポート用ブックの作成に失敗: %w", err)
	}
	defer f.Close()
	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	return writeRows(f, sheet, header, rows)
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	start := 1
	if header != nil {
		if err := writeHeader(f, sheet, header); err != nil {
			return err
		}
		start = 2
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E6E6E6"}},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}
