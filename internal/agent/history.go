package agent

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

// freshHistory はシステムメッセージのみの新規履歴を返す。
func freshHistory() []schema.Message {
	return []schema.Message{{Role: schema.RoleSystem, Content: systemPrompt}}
}

// loadHistory は履歴ファイルを読み込む。
// ファイルなし → 新規開始。JSON 破損 → 警告して新規開始（失敗はさせない）。
func (a *Agent) loadHistory() []schema.Message {
	data, err := os.ReadFile(a.historyPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.log.Warn().Err(err).Str("path", a.historyPath).Msg("could not read history file; starting fresh")
		}
		return freshHistory()
	}

	var messages []schema.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		a.log.Warn().Err(err).Str("path", a.historyPath).Msg("history file is corrupt; starting fresh")
		return freshHistory()
	}
	if len(messages) == 0 {
		return freshHistory()
	}
	return messages
}

// saveHistory は履歴全体を JSON 配列としてファイルに書き直す（毎ターン全上書き）。
// 保存失敗は会話を止めるほどの障害ではないため、警告ログに留める。
func (a *Agent) saveHistory() {
	if err := os.MkdirAll(filepath.Dir(a.historyPath), 0o750); err != nil {
		a.log.Warn().Err(err).Msg("could not create history directory")
		return
	}
	data, err := json.MarshalIndent(a.messages, "", "  ")
	if err != nil {
		a.log.Warn().Err(err).Msg("could not serialize conversation history")
		return
	}
	if err := os.WriteFile(a.historyPath, data, 0o600); err != nil {
		a.log.Warn().Err(err).Msg("could not save conversation history")
	}
}

// History は現在の会話履歴のコピーを返す（読み取り専用ビュー）。
func (a *Agent) History() []schema.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]schema.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Clear は履歴をシステムメッセージのみに戻し、履歴ファイルと
// 既知のスキャン生成物（ログ・固定 prefix レポート）を削除する。
func (a *Agent) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.messages = freshHistory()
	for _, path := range append([]string{a.historyPath}, a.artifacts...) {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.log.Warn().Err(err).Str("path", path).Msg("could not remove artifact")
		}
	}
}
