package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"interview-analyzer-api/pkg/database"
	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"
)

// ErrNotFound 指定IDの分析が存在しない
var ErrNotFound = errors.New("analysis not found")

// AnalysisRepository 分析結果と処理ログのデータベース操作
type AnalysisRepository struct {
	db *sql.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save 分析結果を保存する。同じIDがあれば上書き。処理ログも同じトランザクションで書く。
func (r *AnalysisRepository) Save(ctx context.Context, a *dynamics.FinalAnalysis, logs ...models.ProcessingLog) error {
	resultJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("分析結果のJSON変換に失敗: %w", err)
	}

	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analyses (
				id, candidate_id, candidate_name, candidate_email, total_score,
				weighted_score, recommendation, degraded, result_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				candidate_id = excluded.candidate_id,
				candidate_name = excluded.candidate_name,
				candidate_email = excluded.candidate_email,
				total_score = excluded.total_score,
				weighted_score = excluded.weighted_score,
				recommendation = excluded.recommendation,
				degraded = excluded.degraded,
				result_json = excluded.result_json
		`,
			a.AnalysisID,
			a.CandidateID,
			a.CandidateName,
			a.CandidateEmail,
			a.TotalScore,
			a.WeightedScore,
			a.Recommendation,
			a.Quality.Degraded(),
			string(resultJSON),
			a.AnalysisTimestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("分析結果の保存に失敗: %w", err)
		}

		for _, l := range logs {
			if err := insertLog(ctx, tx, a.AnalysisID, l); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddLog 処理ログを1件追加する
func (r *AnalysisRepository) AddLog(ctx context.Context, l models.ProcessingLog) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		return insertLog(ctx, tx, l.AnalysisID, l)
	})
}

func insertLog(ctx context.Context, tx *sql.Tx, analysisID string, l models.ProcessingLog) error {
	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO processing_logs (analysis_id, stage, status, message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, analysisID, l.Stage, l.Status, l.Message, l.DurationMS, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("処理ログの保存に失敗: %w", err)
	}
	return nil
}

// GetByID 分析結果を全体込みで取得する
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, candidate_id, candidate_name, candidate_email, total_score,
			   weighted_score, recommendation, degraded, created_at, result_json
		FROM analyses
		WHERE id = ?
	`, id)

	var rec models.AnalysisRecord
	var resultJSON string
	err := row.Scan(
		&rec.ID,
		&rec.CandidateID,
		&rec.CandidateName,
		&rec.CandidateEmail,
		&rec.TotalScore,
		&rec.WeightedScore,
		&rec.Recommendation,
		&rec.Degraded,
		&rec.CreatedAt,
		&resultJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("分析結果の取得に失敗: %w", err)
	}

	var analysis dynamics.FinalAnalysis
	if err := json.Unmarshal([]byte(resultJSON), &analysis); err != nil {
		return nil, fmt.Errorf("保存済み分析結果の復元に失敗: %w", err)
	}
	rec.Analysis = &analysis
	return &rec, nil
}

// List 分析結果の一覧（新しい順）。candidateID が空なら全候補者。
func (r *AnalysisRepository) List(ctx context.Context, candidateID string, limit, offset int) ([]models.AnalysisRecord, error) {
	query := `
		SELECT id, candidate_id, candidate_name, candidate_email, total_score,
			   weighted_score, recommendation, degraded, created_at
		FROM analyses
		WHERE 1=1
	`
	args := []interface{}{}
	if candidateID != "" {
		query += " AND candidate_id = ?"
		args = append(args, candidateID)
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("分析一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	records := make([]models.AnalysisRecord, 0)
	for rows.Next() {
		var rec models.AnalysisRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.CandidateID,
			&rec.CandidateName,
			&rec.CandidateEmail,
			&rec.TotalScore,
			&rec.WeightedScore,
			&rec.Recommendation,
			&rec.Degraded,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("分析一覧の読み取りに失敗: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Logs 分析の処理ログを記録順に返す
func (r *AnalysisRepository) Logs(ctx context.Context, analysisID string) ([]models.ProcessingLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, analysis_id, stage, status, message, duration_ms, created_at
		FROM processing_logs
		WHERE analysis_id = ?
		ORDER BY id
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("処理ログの取得に失敗: %w", err)
	}
	defer rows.Close()

	logs := make([]models.ProcessingLog, 0)
	for rows.Next() {
		var l models.ProcessingLog
		if err := rows.Scan(&l.ID, &l.AnalysisID, &l.Stage, &l.Status, &l.Message, &l.DurationMS, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("処理ログの読み取りに失敗: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Statistics 合計点の平均、推薦の内訳、点数分布を集計する
func (r *AnalysisRepository) Statistics(ctx context.Context) (*models.AnalysisStatistics, error) {
	stats := &models.AnalysisStatistics{RecommendationsBreakdown: make(map[string]int)}

	var avgTotal, avgWeighted sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(total_score), AVG(weighted_score),
			   COALESCE(SUM(CASE WHEN total_score >= 85 THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN total_score >= 70 AND total_score < 85 THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN total_score >= 55 AND total_score < 70 THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN total_score < 55 THEN 1 ELSE 0 END), 0)
		FROM analyses
	`).Scan(
		&stats.TotalInterviews,
		&avgTotal,
		&avgWeighted,
		&stats.ScoreDistribution.Excellent,
		&stats.ScoreDistribution.Good,
		&stats.ScoreDistribution.Average,
		&stats.ScoreDistribution.Poor,
	)
	if err != nil {
		return nil, fmt.Errorf("統計の集計に失敗: %w", err)
	}
	if avgTotal.Valid {
		stats.AverageScore = math.Round(avgTotal.Float64*10) / 10
	}
	if avgWeighted.Valid {
		stats.AverageWeightedScore = math.Round(avgWeighted.Float64*100) / 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT CASE WHEN recommendation = '' THEN 'Unknown' ELSE recommendation END, COUNT(*)
		FROM analyses
		GROUP BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("推薦内訳の集計に失敗: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec string
		var n int
		if err := rows.Scan(&rec, &n); err != nil {
			return nil, err
		}
		stats.RecommendationsBreakdown[rec] = n
	}
	return stats, rows.Err()
}
