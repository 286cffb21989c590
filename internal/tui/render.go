package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

// renderTranscript は会話履歴をトランスクリプト文字列に変換する。
//
// system と function のメッセージは表示しない（ユーザーに見せるのは
// ユーザー入力・アシスタント応答・ツール呼び出しの印だけ）。
func renderTranscript(messages []schema.Message, width int, markdown *glamour.TermRenderer) string {
	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case schema.RoleUser:
			if msg.Content == "" {
				continue // 異常リトライで挿入される空メッセージは表示しない
			}
			sb.WriteString(userLabelStyle.Render("You"))
			sb.WriteString("\n")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")

		case schema.RoleAssistant:
			if msg.FunctionCall != nil {
				sb.WriteString(renderToolCall(msg.FunctionCall))
				continue
			}
			sb.WriteString(assistantLabelStyle.Render("Assistant"))
			sb.WriteString("\n")
			sb.WriteString(renderAssistantText(msg.Content, markdown))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// renderToolCall はアシスタントのツール要求を1行の印として表示する。
// Format: ● list_probes {...}
func renderToolCall(call *schema.FunctionCall) string {
	line := "● " + call.Name
	if args := strings.TrimSpace(call.Arguments); args != "" && args != "{}" && args != "null" {
		line += " " + args
	}
	return toolCallStyle.Render(line) + "\n\n"
}

// renderAssistantText は応答本文を glamour で Markdown レンダリングする。
// レンダラー未初期化やレンダリング失敗時はプレーンテキストで返す。
func renderAssistantText(content string, markdown *glamour.TermRenderer) string {
	if looksLikeError(content) {
		return errorStyle.Render(content) + "\n"
	}
	if markdown == nil {
		return content + "\n"
	}
	rendered, err := markdown.Render(content)
	if err != nil {
		return content + "\n"
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

// looksLikeError は Agent がエラーを畳み込んだ応答かどうかの推定。
// 表示色を変えるためだけの判定で、処理は分岐しない。
func looksLikeError(content string) bool {
	return strings.HasPrefix(content, "Sorry, I couldn't process") ||
		strings.HasPrefix(content, "Error after using tool:") ||
		strings.HasPrefix(content, "Error during '")
}
