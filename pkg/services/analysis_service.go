package services

import (
	"context"
	"log"
	"time"

	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"
)

// 分析後の保存処理全体に与える時間
const persistTimeout = 30 * time.Second

// AnalysisStore 分析結果の保存先（SQLite）
type AnalysisStore interface {
	Save(ctx context.Context, a *dynamics.FinalAnalysis, logs ...models.ProcessingLog) error
}

// ResultsSink 分析結果の一覧表（Excelブック）
type ResultsSink interface {
	Append(a *dynamics.FinalAnalysis) error
}

// AnalysisArchive 類似検索用のアーカイブ（Qdrant）
type AnalysisArchive interface {
	ArchiveAnalysis(ctx context.Context, a *dynamics.FinalAnalysis) error
}

// AnalysisService 分析エンジンを実行し、結果を各保存先へ書き出す。
// 保存先はどれも省略可能で、保存の失敗はログに残すだけで分析結果には影響しない。
type AnalysisService struct {
	engine   *dynamics.Engine
	store    AnalysisStore
	workbook ResultsSink
	archive  AnalysisArchive
	monitor  *MonitoringService
}

// NewAnalysisService 新しいAnalysisServiceを作成
func NewAnalysisService(engine *dynamics.Engine, store AnalysisStore, workbook ResultsSink, archive AnalysisArchive, monitor *MonitoringService) *AnalysisService {
	return &AnalysisService{
		engine:   engine,
		store:    store,
		workbook: workbook,
		archive:  archive,
		monitor:  monitor,
	}
}

// Analyze 面接1件を分析して保存する
func (s *AnalysisService) Analyze(ctx context.Context, in dynamics.Input) (*dynamics.FinalAnalysis, error) {
	start := time.Now()
	a, err := s.engine.Analyze(ctx, in)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if s.monitor != nil {
		s.monitor.RecordAnalysis(a, elapsed)
	}

	// 呼び出し元が切断しても保存は最後まで行う
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	s.persist(persistCtx, a, elapsed)

	return a, nil
}

func (s *AnalysisService) persist(ctx context.Context, a *dynamics.FinalAnalysis, elapsed time.Duration) {
	logs := ProcessingLogs(a, elapsed)

	if s.workbook != nil {
		stepStart := time.Now()
		if err := s.workbook.Append(a); err != nil {
			log.Printf("[結果ブック] 追記に失敗しました (analysis=%s): %v", a.AnalysisID, err)
			logs = append(logs, stageLog("workbook", "error", err.Error(), time.Since(stepStart)))
		} else {
			logs = append(logs, stageLog("workbook", "ok", "", time.Since(stepStart)))
		}
	}

	if s.archive != nil {
		stepStart := time.Now()
		if err := s.archive.ArchiveAnalysis(ctx, a); err != nil {
			log.Printf("[Qdrant] アーカイブに失敗しました (analysis=%s): %v", a.AnalysisID, err)
			logs = append(logs, stageLog("archive", "error", err.Error(), time.Since(stepStart)))
		} else {
			logs = append(logs, stageLog("archive", "ok", "", time.Since(stepStart)))
		}
	}

	if s.store != nil {
		if err := s.store.Save(ctx, a, logs...); err != nil {
			log.Printf("[データベース] 分析結果の保存に失敗しました (analysis=%s): %v", a.AnalysisID, err)
		}
	}
}

// ProcessingLogs 分析本体の段階ごとの処理ログ
func ProcessingLogs(a *dynamics.FinalAnalysis, elapsed time.Duration) []models.ProcessingLog {
	classification := stageLog("classification", "ok", "", 0)
	if a.Quality.ClassificationSource == dynamics.SourceFallback {
		classification = stageLog("classification", "fallback", a.Quality.ClassificationError, 0)
	}
	assessment := stageLog("assessment", "ok", "", 0)
	if a.Quality.AssessmentSource == dynamics.SourceFallback {
		assessment = stageLog("assessment", "fallback", a.Quality.AssessmentError, 0)
	}
	return []models.ProcessingLog{
		classification,
		assessment,
		stageLog("analyze", "ok", "", elapsed),
	}
}

func stageLog(stage, status, message string, d time.Duration) models.ProcessingLog {
	return models.ProcessingLog{
		Stage:      stage,
		Status:     status,
		Message:    message,
		DurationMS: d.Milliseconds(),
		CreatedAt:  time.Now(),
	}
}
