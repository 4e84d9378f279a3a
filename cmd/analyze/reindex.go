package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/azure"
	"interview-analyzer-api/pkg/database"
	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"
	"interview-analyzer-api/pkg/repository"
	"interview-analyzer-api/pkg/services"

	"github.com/spf13/cobra"
)

const reindexPageSize = 100

type analysisSource interface {
	List(ctx context.Context, candidateID string, limit, offset int) ([]models.AnalysisRecord, error)
	GetByID(ctx context.Context, id string) (*models.AnalysisRecord, error)
}

type analysisArchiver interface {
	ArchiveAnalysis(ctx context.Context, a *dynamics.FinalAnalysis) error
	DeleteArchivedAnalyses(ctx context.Context) error
}

func newReindexCmd(out io.Writer) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "SQLiteの分析結果をQdrantの類似検索アーカイブへ再登録する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := config.LoadConfig()
			if cfg.QdrantURL == "" {
				return errors.New("QDRANT_URL が設定されていません")
			}

			db, err := database.Open(ctx, cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			client := azure.NewOpenAIClient(
				cfg.AzureOpenAIEndpoint,
				cfg.AzureOpenAIAPIKey,
				cfg.AzureOpenAIAPIVersion,
				cfg.AzureOpenAIChatDeploymentName,
				cfg.AzureOpenAIEmbeddingDeploymentName,
				cfg.HTTPProxyURL,
			)
			if !client.EmbeddingsEnabled() {
				return errors.New("埋め込み用のデプロイメントが設定されていません")
			}

			conn, err := services.DialQdrant(cfg.QdrantURL, cfg.QdrantAPIKey)
			if err != nil {
				return err
			}
			defer conn.Close()
			vs, err := services.NewVectorStoreService(ctx, conn, client, cfg.QdrantCollection)
			if err != nil {
				return err
			}

			archived, failed, err := reindexArchive(ctx, repository.NewAnalysisRepository(db), vs, purge)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "archived: %d, failed: %d\n", archived, failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "再登録の前にアーカイブ済みの分析を削除する")
	return cmd
}

// reindexArchive 保存済みの分析を1件ずつアーカイブする。個別の失敗は数えて続行する。
func reindexArchive(ctx context.Context, src analysisSource, archive analysisArchiver, purge bool) (archived, failed int, err error) {
	if purge {
		if err := archive.DeleteArchivedAnalyses(ctx); err != nil {
			log.Printf("[Qdrant] 既存アーカイブの削除中に警告: %v", err)
		}
	}

	for offset := 0; ; offset += reindexPageSize {
		page, err := src.List(ctx, "", reindexPageSize, offset)
		if err != nil {
			return archived, failed, fmt.Errorf("分析一覧の取得に失敗: %w", err)
		}
		for _, summary := range page {
			rec, err := src.GetByID(ctx, summary.ID)
			if err != nil || rec.Analysis == nil {
				log.Printf("[Qdrant] 分析 '%s' の読み込みに失敗: %v", summary.ID, err)
				failed++
				continue
			}
			if err := archive.ArchiveAnalysis(ctx, rec.Analysis); err != nil {
				log.Printf("[Qdrant] 分析 '%s' のアーカイブに失敗: %v", summary.ID, err)
				failed++
				continue
			}
			archived++
		}
		if len(page) < reindexPageSize {
			return archived, failed, nil
		}
	}
}
