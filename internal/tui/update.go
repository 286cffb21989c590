package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnDoneMsg:
		m.waiting = false
		m.input.Focus()
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, textinput.Blink

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := m.height - statusBarHeight - inputBarHeight - transcriptFrameHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	vpWidth := m.width - transcriptFrameWidth
	if vpWidth < 1 {
		vpWidth = 1
	}

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = vpHeight
	}

	// glamour は折り返し幅をレンダラー構築時に固定するため、リサイズごとに作り直す
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(vpWidth),
	)
	if err == nil {
		m.markdown = renderer
	}

	m.input.Width = m.width - inputFrameWidth
	m.refreshTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+l":
		// 履歴と既知のスキャン生成物を破棄する
		if m.waiting {
			return m, nil
		}
		m.agent.Clear()
		m.refreshTranscript()
		return m, nil

	case "enter":
		if m.waiting {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.input.Blur()
		m.waiting = true
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spin.Tick, processTurnCmd(m.agent, text))

	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// refreshTranscript は履歴からトランスクリプト全体を再構築する。
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderTranscript(m.agent.History(), m.viewport.Width, m.markdown))
}
