// Package brain はホスト型チャット補完 API を共通インターフェースで抽象化する。
// function calling プロトコル（モデルがツール実行を要求できる）を前提とする。
package brain

import (
	"context"
	"errors"
	"os"

	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

// FunctionMode は1回の補完呼び出しでモデルにツール要求を許すかどうか。
type FunctionMode string

const (
	// FunctionAuto はモデルの判断でツール要求を許す（ターンの1回目）。
	FunctionAuto FunctionMode = "auto"

	// FunctionNone はツール要求を禁止する（ツール実行後の2回目）。
	FunctionNone FunctionMode = "none"
)

// Config は Brain の設定を保持する。
type Config struct {
	Model   string
	Token   string
	BaseURL string // テスト時にモックサーバーを指定するために使う（空なら公式エンドポイント）
}

// Brain はチャットモデルとの対話インターフェース。
type Brain interface {
	// Complete は全履歴とツールスキーマを渡し、モデルの次メッセージを返す。
	// 返り値はテキスト応答か function_call 要求のどちらか。
	Complete(ctx context.Context, messages []schema.Message, functions []schema.FunctionDef, mode FunctionMode) (*schema.Message, error)
}

// defaultModel は function calling をサポートするデフォルトモデル。
const defaultModel = "gpt-4o"

// New は Config に基づいて Brain 実装を返す。
func New(cfg Config) (Brain, error) {
	if cfg.Token == "" {
		return nil, errors.New("brain: token must not be empty (set OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return newOpenAIBrain(cfg), nil
}

// LoadConfig は環境変数から認証情報を解決して Config を返す。
//
// 解決順序:
//  1. OPENAI_API_KEY   （必須）
//  2. OPENAI_BASE_URL  （省略可。プロキシや OpenAI 互換サーバー向け）
func LoadConfig(model string) (Config, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return Config{}, errors.New(
			"brain: OpenAI 認証情報が見つかりません\n" +
				"  export OPENAI_API_KEY=sk-...",
		)
	}
	return Config{
		Model:   model,
		Token:   key,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}, nil
}
