// Package agent は会話履歴・ツールスキーマ・チャットモデルとの
// 2ラウンドプロトコルを所有するオーケストレーター。
//
// 1ターンの流れ:
//
//	ユーザー入力 → Complete(FunctionAuto) → テキスト応答ならそのまま返す
//	             → function_call 要求なら ローカル実行 → 結果を履歴に追加
//	             → Complete(FunctionNone) → 最終回答
//
// どのラウンドで失敗しても、チャット面には必ず読めるテキストを返す。
// エラーが Process の外へ伝播することはない。
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/KutalVolkan/conversational-agent-garak/internal/brain"
	"github.com/KutalVolkan/conversational-agent-garak/internal/garak"
	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

// systemPrompt は履歴の先頭に固定されるシステムメッセージ。
const systemPrompt = "You are an AI assistant integrated with Garak (an LLM vulnerability scanner). " +
	"You can answer user questions and use the provided tools to list probes, describe probes, " +
	"run vulnerability scans, and summarize scan results. When you use a tool, respond with its results."

// emptyContentPlaceholder はモデルが空応答を返したときの代替テキスト。
const emptyContentPlaceholder = "(No content)"

// maxAnomalyRetries はプロトコル異常（2回目の補完でさらに function_call が
// 返ってくる）時の再処理回数の上限。無制限の自己再帰は行わない。
const maxAnomalyRetries = 1

// Agent は1セッション分の会話を管理する。
//
// 履歴はプロセスローカルな共有可変状態のため、mu でターン単位に直列化する。
// REST シェルは1つの Agent を全リクエストで共有する。
type Agent struct {
	br          brain.Brain
	scanner     garak.Scanner
	historyPath string
	artifacts   []string // Clear で履歴と一緒に削除するスキャン生成物
	log         zerolog.Logger

	mu       sync.Mutex
	messages []schema.Message
}

// Config は Agent の依存をまとめて渡す。ambient なグローバルは持たない。
type Config struct {
	Brain       brain.Brain
	Scanner     garak.Scanner
	HistoryPath string
	// Artifacts は Clear 時に削除するファイル（スキャンログ・固定 prefix レポート）。
	Artifacts []string
	Logger    zerolog.Logger
}

// New は Agent を構築する。履歴ファイルが存在すれば読み込んで文脈を復元し、
// 存在しない・壊れている場合はシステムメッセージのみの新規履歴で開始する。
func New(cfg Config) *Agent {
	a := &Agent{
		br:          cfg.Brain,
		scanner:     cfg.Scanner,
		historyPath: cfg.HistoryPath,
		artifacts:   cfg.Artifacts,
		log:         cfg.Logger,
	}
	a.messages = a.loadHistory()
	return a
}

// Process はユーザーメッセージを1ターン処理し、アシスタントの最終テキストを返す。
// ネットワーク・ツール・解析のどの失敗もテキストに畳み込むため、エラーは返さない。
func (a *Agent) Process(ctx context.Context, userText string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.process(ctx, userText, maxAnomalyRetries)
}

func (a *Agent) process(ctx context.Context, userText string, retriesLeft int) string {
	a.messages = append(a.messages, schema.Message{Role: schema.RoleUser, Content: userText})

	first, err := a.br.Complete(ctx, a.messages, functionDefs, brain.FunctionAuto)
	if err != nil {
		return a.failTurn(fmt.Sprintf("Sorry, I couldn't process your request due to an API error: %v", err))
	}

	// ツール要求なし: そのままテキスト応答を返す
	if first.FunctionCall == nil {
		answer := first.Content
		if answer == "" {
			answer = emptyContentPlaceholder
		}
		a.messages = append(a.messages, schema.Message{Role: schema.RoleAssistant, Content: answer})
		a.saveHistory()
		return answer
	}

	// ツール要求あり: 要求をそのまま履歴に記録してからローカル実行する
	call := first.FunctionCall
	a.log.Debug().Str("function", call.Name).Str("args", call.Arguments).
		Msg("assistant requested function call")
	a.messages = append(a.messages, schema.Message{Role: schema.RoleAssistant, FunctionCall: call})

	args := a.decodeArgs(call.Arguments)
	result := a.dispatch(ctx, call.Name, args)
	a.messages = append(a.messages, schema.Message{
		Role:    schema.RoleFunction,
		Name:    call.Name,
		Content: result,
	})

	// 2ラウンド目はツール要求を禁止して最終回答を得る
	second, err := a.br.Complete(ctx, a.messages, functionDefs, brain.FunctionNone)
	if err != nil {
		return a.failTurn(fmt.Sprintf("Error after using tool: %v", err))
	}

	if second.FunctionCall != nil {
		// プロトコル異常: function_call 禁止なのにツール要求が返ってきた。
		// 空メッセージで再処理するのは retriesLeft 回まで。
		a.log.Warn().Str("function", second.FunctionCall.Name).
			Msg("unexpected function call in final response")
		if retriesLeft > 0 {
			return a.process(ctx, "", retriesLeft-1)
		}
		return a.failTurn("Sorry, the model kept requesting tools instead of answering. Please try again.")
	}

	answer := second.Content
	if answer == "" {
		answer = emptyContentPlaceholder
	}
	a.messages = append(a.messages, schema.Message{Role: schema.RoleAssistant, Content: answer})
	a.saveHistory()
	return answer
}

// failTurn はエラーテキストをアシスタントメッセージとして履歴に記録し、
// そのまま返す。チャット面に生のスタックトレースは出さない。
func (a *Agent) failTurn(text string) string {
	a.log.Error().Msg(text)
	a.messages = append(a.messages, schema.Message{Role: schema.RoleAssistant, Content: text})
	a.saveHistory()
	return text
}
