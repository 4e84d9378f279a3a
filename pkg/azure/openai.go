package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenAIClient Azure OpenAI REST API のクライアント。
// endpoint には Azure OpenAI のエンドポイント、または転送用リバースプロキシの URL を指定する。
type OpenAIClient struct {
	endpoint                string
	apiKey                  string
	apiVersion              string
	chatDeploymentName      string
	embeddingDeploymentName string
	httpClient              *http.Client
}

// NewOpenAIClient 新しいAzure OpenAIクライアントを作成
func NewOpenAIClient(endpoint, apiKey, apiVersion, chatDeploymentName, embeddingDeploymentName, proxyURL string) *OpenAIClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxy)
			log.Println("HTTPクライアントにプロキシを設定しました:", proxyURL)
		} else {
			log.Printf("警告: 無効なプロキシURLです。プロキシは使用されません: %v", err)
		}
	}

	return &OpenAIClient{
		endpoint:                strings.TrimSuffix(endpoint, "/"),
		apiKey:                  apiKey,
		apiVersion:              apiVersion,
		chatDeploymentName:      chatDeploymentName,
		embeddingDeploymentName: embeddingDeploymentName,
		// 総合評価は長い応答を返すので余裕を持たせる。呼び出しごとの期限は ctx で管理する。
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   180 * time.Second,
		},
	}
}

// Configured エンドポイントとキーが揃っているか
func (c *OpenAIClient) Configured() bool {
	return c != nil && c.endpoint != "" && c.apiKey != ""
}

// EmbeddingsEnabled Embedding 用のデプロイが設定されているか
func (c *OpenAIClient) EmbeddingsEnabled() bool {
	return c.Configured() && c.embeddingDeploymentName != ""
}

// --- データ構造定義 ---

// ChatMessage チャットメッセージ
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat 応答形式の指定（"json_object" で JSON モード）
type ResponseFormat struct {
	Type string `json:"type"`
}

// CompletionOptions チャット補完のパラメータ
type CompletionOptions struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	JSONMode    bool
}

// ChatCompletionRequest チャット補完リクエスト
type ChatCompletionRequest struct {
	Messages       []ChatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float32         `json:"temperature"`
	TopP           float32         `json:"top_p,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatCompletionResponse チャット補完レスポンス
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest Embedding APIリクエスト
type EmbeddingRequest struct {
	Input string `json:"input"`
}

// EmbeddingResponse Embedding APIレスポンス
type EmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// --- メソッド定義 ---

// ChatCompletion チャット補完を実行
func (c *OpenAIClient) ChatCompletion(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (*ChatCompletionResponse, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, c.chatDeploymentName, c.apiVersion)

	request := ChatCompletionRequest{
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	if opts.JSONMode {
		request.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	var response ChatCompletionResponse
	if err := c.doRequest(ctx, url, request, &response); err != nil {
		return nil, fmt.Errorf("Azure OpenAI API 呼び出しに失敗: %w", err)
	}
	return &response, nil
}

// Complete system / user の2メッセージで補完し、最初の選択肢の本文を返す
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	response, err := c.ChatCompletion(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("Azure OpenAI からの応答が空です")
	}
	return response.Choices[0].Message.Content, nil
}

// CreateEmbedding テキストのベクトル表現を生成
func (c *OpenAIClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.embeddingDeploymentName == "" {
		return nil, fmt.Errorf("Embedding deployment name が設定されていません")
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		c.endpoint, c.embeddingDeploymentName, c.apiVersion)

	var embeddingResp EmbeddingResponse
	if err := c.doRequest(ctx, url, EmbeddingRequest{Input: text}, &embeddingResp); err != nil {
		return nil, err
	}

	if len(embeddingResp.Data) == 0 || len(embeddingResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("APIから有効なEmbeddingが返されませんでした")
	}
	return embeddingResp.Data[0].Embedding, nil
}

// doRequest HTTPリクエストの実行と共通のレスポンス処理
func (c *OpenAIClient) doRequest(ctx context.Context, url string, requestData, responseData any) error {
	if c.apiKey == "" {
		return fmt.Errorf("API key が設定されていません")
	}

	requestBody, err := json.Marshal(requestData)
	if err != nil {
		return fmt.Errorf("リクエストのJSON化に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの実行に失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return fmt.Errorf("Azure OpenAI API エラー (status: %d): %s", resp.StatusCode, errorResp.Error.Message)
		}
		return fmt.Errorf("Azure OpenAI API エラー (status: %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, responseData); err != nil {
		return fmt.Errorf("レスポンスのJSON解析に失敗: %w", err)
	}
	return nil
}
