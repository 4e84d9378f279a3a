package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/azure"
	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type runOptions struct {
	input   string
	output  string
	xlsx    string
	offline bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "analyze",
		Short:        "面接の特徴量ファイルを時系列ダイナミクスで分析する",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newRunCmd(out), newCriteriaCmd(out), newReindexCmd(out), newCheckCmd(out))
	return root
}

func newRunCmd(out io.Writer) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "特徴量JSONを分析して結果を出力する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalysis(cmd.Context(), opts, config.LoadConfig(), out)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "分析入力JSONファイル")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "結果JSONの出力先（省略時は標準出力）")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "結果をExcelブックとしても保存する")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Azure OpenAI を使わずフォールバックのみで分析する")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newCriteriaCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "criteria",
		Short: "評価基準と重みを表示する",
		RunE: func(*cobra.Command, []string) error {
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCRITERION\tWEIGHT")
			for i, c := range dynamics.Criteria() {
				fmt.Fprintf(w, "%d\t%s\t%.2f\n", i+1, c.Name, c.Weight)
			}
			fmt.Fprintf(w, "\nmodel: %s\n", dynamics.ModelVersion)
			return w.Flush()
		},
	}
}

func runAnalysis(ctx context.Context, opts runOptions, cfg *config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("入力ファイルの読み込みに失敗: %w", err)
	}
	var in dynamics.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("入力JSONの解析に失敗: %w", err)
	}

	engine, err := newEngine(cfg, opts.offline)
	if err != nil {
		return err
	}
	analysis, err := engine.Analyze(ctx, in)
	if err != nil {
		return fmt.Errorf("分析に失敗: %w", err)
	}

	result, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("結果のエンコードに失敗: %w", err)
	}
	if opts.output != "" {
		if err := os.WriteFile(opts.output, result, 0o644); err != nil {
			return fmt.Errorf("結果の書き込みに失敗: %w", err)
		}
	} else {
		fmt.Fprintln(out, string(result))
	}

	if opts.xlsx != "" {
		if err := services.SaveAnalysisWorkbook(analysis, opts.xlsx); err != nil {
			return fmt.Errorf("Excelブックの保存に失敗: %w", err)
		}
	}

	log.Printf("[分析エンジン] %s: %d/100 (weighted %.1f, %s)", analysis.AnalysisID, analysis.TotalScore, analysis.WeightedScore, analysis.Recommendation)
	return nil
}

func newEngine(cfg *config.Config, offline bool) (*dynamics.Engine, error) {
	engineCfg := dynamics.Config{
		WindowSeconds:     float64(cfg.SegmentWindowSeconds),
		ClassifierTimeout: cfg.ClassifierTimeout,
		AssessorTimeout:   cfg.AssessorTimeout,
	}
	if offline {
		return dynamics.NewEngine(engineCfg, nil, nil), nil
	}

	prompts, err := config.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("プロンプトの読み込みに失敗: %w", err)
	}
	client := azure.NewOpenAIClient(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
		cfg.HTTPProxyURL,
	)
	aiService := services.NewAzureOpenAIService(client, prompts, cfg.SegmentWindowSeconds)
	if !aiService.Configured() {
		log.Println("[分析エンジン] Azure OpenAI 未設定のため、フォールバックで分析します")
		return dynamics.NewEngine(engineCfg, nil, nil), nil
	}
	return dynamics.NewEngine(engineCfg, aiService, aiService), nil
}
