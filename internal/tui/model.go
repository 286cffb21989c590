// Package tui implements the Bubble Tea chat UI for the Garak assistant.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

// ChatAgent は TUI が必要とする Agent の操作面。
type ChatAgent interface {
	Process(ctx context.Context, message string) string
	History() []schema.Message
	Clear()
}

// turnDoneMsg は Agent のターン処理完了を通知する Bubble Tea メッセージ。
type turnDoneMsg struct{}

// Model is the root Bubble Tea model for the chat console.
type Model struct {
	agent ChatAgent

	width  int
	height int
	ready  bool

	// waiting が true の間は入力を受け付けず、スピナーを回す
	waiting bool

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	// markdown は Assistant 応答のレンダラー（端末幅で再構築する）
	markdown *glamour.TermRenderer
}

// New は ChatAgent に接続された Model を初期化する。
func New(agent ChatAgent) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about probes, run a scan, summarize results..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		agent: agent,
		input: ti,
		spin:  sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// processTurnCmd は Agent のターン処理をバックグラウンドで実行する。
// Process はエラーを返さない契約（失敗も会話テキストに畳み込まれる）。
func processTurnCmd(agent ChatAgent, message string) tea.Cmd {
	return func() tea.Msg {
		agent.Process(context.Background(), message)
		return turnDoneMsg{}
	}
}
