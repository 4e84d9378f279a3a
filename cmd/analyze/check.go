package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/azure"

	"github.com/spf13/cobra"
)

func newCheckCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Azure OpenAI への接続（プロキシ経由を含む）を確認する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := config.LoadConfig()
			client := azure.NewOpenAIClient(
				cfg.AzureOpenAIEndpoint,
				cfg.AzureOpenAIAPIKey,
				cfg.AzureOpenAIAPIVersion,
				cfg.AzureOpenAIChatDeploymentName,
				cfg.AzureOpenAIEmbeddingDeploymentName,
				cfg.HTTPProxyURL,
			)
			if cfg.HTTPProxyURL != "" {
				fmt.Fprintf(out, "proxy: %s\n", cfg.HTTPProxyURL)
			}
			return checkAzure(ctx, client, out)
		},
	}
}

// checkAzure チャット補完と（設定があれば）埋め込みを1回ずつ呼ぶ
func checkAzure(ctx context.Context, client *azure.OpenAIClient, out io.Writer) error {
	if !client.Configured() {
		return errors.New("AZURE_OPENAI_ENDPOINT / AZURE_OPENAI_API_KEY が設定されていません")
	}

	reply, err := client.Complete(ctx, "Reply with OK.", "Hello!", azure.CompletionOptions{MaxTokens: 5})
	if err != nil {
		fmt.Fprintf(out, "chat: ERROR %v\n", err)
		return fmt.Errorf("チャット補完の確認に失敗: %w", err)
	}
	fmt.Fprintf(out, "chat: OK (%q)\n", reply)

	if !client.EmbeddingsEnabled() {
		fmt.Fprintln(out, "embeddings: skipped (deployment not set)")
		return nil
	}
	vector, err := client.CreateEmbedding(ctx, "connectivity check")
	if err != nil {
		fmt.Fprintf(out, "embeddings: ERROR %v\n", err)
		return fmt.Errorf("埋め込みの確認に失敗: %w", err)
	}
	fmt.Fprintf(out, "embeddings: OK (%d dims)\n", len(vector))
	return nil
}
