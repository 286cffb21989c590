package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com"
	openAIChatCompletePath = "/v1/chat/completions"

	// maxTokens は1応答あたりのトークン上限。レポート要約を含む長い
	// ツール結果を踏まえた回答が収まるよう 2000 に固定する。
	maxTokens = 2000
)

type openAIBrain struct {
	cfg    Config
	client *http.Client
}

func newOpenAIBrain(cfg Config) *openAIBrain {
	return &openAIBrain{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// chatRequest は Chat Completions API のリクエストボディ。
type chatRequest struct {
	Model        string               `json:"model"`
	Messages     []schema.Message     `json:"messages"`
	Functions    []schema.FunctionDef `json:"functions,omitempty"`
	FunctionCall string               `json:"function_call,omitempty"`
	MaxTokens    int                  `json:"max_tokens"`
}

// chatResponse は Chat Completions API のレスポンス構造体（必要最小限）。
type chatResponse struct {
	Choices []struct {
		Message schema.Message `json:"message"`
	} `json:"choices"`
}

func (b *openAIBrain) Complete(
	ctx context.Context,
	messages []schema.Message,
	functions []schema.FunctionDef,
	mode FunctionMode,
) (*schema.Message, error) {
	body := chatRequest{
		Model:        b.cfg.Model,
		Messages:     messages,
		Functions:    functions,
		FunctionCall: string(mode),
		MaxTokens:    maxTokens,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("brain: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("brain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.Token)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brain: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("brain: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brain: API error %d: %s", resp.StatusCode, string(respBytes))
	}

	return parseChatResponse(respBytes)
}

// endpoint は BaseURL から補完エンドポイントの URL を組み立てる。
// BaseURL が既に /v1 で終わっている場合は /chat/completions のみ付加する
// （OpenAI 互換サーバー: http://server:8080/v1 → .../v1/chat/completions）。
func (b *openAIBrain) endpoint() string {
	baseURL := b.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + openAIChatCompletePath
}

func parseChatResponse(data []byte) (*schema.Message, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("brain: unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("brain: empty choices in response")
	}
	msg := resp.Choices[0].Message
	return &msg, nil
}
