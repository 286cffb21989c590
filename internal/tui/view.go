package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Layout constants (frame = border 上下/左右の合計)
const (
	statusBarHeight       = 1
	inputBarHeight        = 3
	transcriptFrameHeight = 2
	transcriptFrameWidth  = 2
	inputFrameWidth       = 6 // border + prompt "> "
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	status := m.renderStatusBar()
	transcript := transcriptStyle.Width(m.width - transcriptFrameWidth).Render(m.viewport.View())

	inputStyle := inputBarStyle
	if !m.waiting {
		inputStyle = inputBarActiveStyle
	}
	inputBar := inputStyle.Width(m.width - transcriptFrameWidth).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, status, transcript, inputBar)
}

// renderStatusBar はタイトルと状態（待機中/入力待ち）を1行で描画する。
func (m Model) renderStatusBar() string {
	title := "GARAK ASSISTANT"
	state := "ready — enter: send · ctrl+l: clear · ctrl+c: quit"
	if m.waiting {
		state = m.spin.View() + " thinking..."
	}

	// 画面幅に収まるよう表示幅基準で切り詰める（スタイル適用前に行う）
	bar := runewidth.Truncate(title+"  "+state, m.width-2, "…")
	return statusBarStyle.Width(m.width).Render(bar)
}
