// Package schema defines the shared JSON types exchanged between the Agent,
// the chat-completion API, and the persisted conversation history.
package schema

import "encoding/json"

// Role はメッセージの発話者を識別する。
type Role string

const (
	// RoleSystem は会話の先頭に固定される指示メッセージ。
	RoleSystem Role = "system"

	// RoleUser はユーザーの入力。
	RoleUser Role = "user"

	// RoleAssistant はモデルの応答（テキスト or function_call 要求）。
	RoleAssistant Role = "assistant"

	// RoleFunction はローカルツール実行結果をモデルに返すメッセージ。
	// Name にツール名を必ず持つ。
	RoleFunction Role = "function"
)

// Message is one conversation entry. The same shape is used for the wire
// format to the chat-completion API and for the persisted history file
// (a JSON array of Message, rewritten wholesale each turn).
//
// 履歴ファイルの不変条件: 先頭は常に RoleSystem のメッセージ。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// FunctionCall はモデルがツール実行を要求したときのみ設定される
	// （Role == assistant のメッセージ上）。
	FunctionCall *FunctionCall `json:"function_call,omitempty"`

	// Name は Role == function のとき、実行したツール名を持つ。
	Name string `json:"name,omitempty"`
}

// FunctionCall is the tool-call request emitted by the model.
//
// Arguments はモデルが生成した生の JSON 文字列のまま保持する。
// 構造化デコードは dispatch 境界で一度だけ行う（agent.decodeArgs）。
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionDef describes one callable tool to the model.
//
// Parameters は JSON Schema のオブジェクトリテラル。プロセス起動後は不変。
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}
