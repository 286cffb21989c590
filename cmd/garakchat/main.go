package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/KutalVolkan/conversational-agent-garak/internal/agent"
	"github.com/KutalVolkan/conversational-agent-garak/internal/brain"
	"github.com/KutalVolkan/conversational-agent-garak/internal/config"
	"github.com/KutalVolkan/conversational-agent-garak/internal/garak"
	"github.com/KutalVolkan/conversational-agent-garak/internal/tui"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "設定ファイルのパス")
		model      = flag.String("model", "", "モデル名（省略時は設定ファイル / gpt-4o）")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `🔍 garakchat — Conversational Garak Assistant

Usage:
  garakchat [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  OPENAI_API_KEY   OpenAI API キー（必須）
  OPENAI_BASE_URL  OpenAI 互換エンドポイント（省略可）

Examples:
  garakchat                        # デフォルト設定で起動
  garakchat -model gpt-4o-mini     # モデルを指定して起動

Chat commands:
  "list all probes"                probe カタログの一覧
  "run a scan with lmrc.Profanity" スキャン実行
  "summarize the last scan"        最新レポートの要約
`)
	}
	flag.Parse()

	// .env（OPENAI_API_KEY 等）を読み込む。ファイルがなければ黙って続行。
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "設定読み込みエラー:", err)
		os.Exit(1)
	}
	if *model != "" {
		cfg.Model = *model
	}

	// TUI の画面を壊さないよう、ログはファイルに出す
	logger := fileLogger(cfg.LogsDir)

	// --- Brain ---
	brainCfg, err := brain.LoadConfig(cfg.Model)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Brain 設定エラー:", err)
		os.Exit(1)
	}
	br, err := brain.New(brainCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Brain 初期化エラー:", err)
		os.Exit(1)
	}

	// --- Scanner ---
	scanner := garak.NewCLI(garak.Options{
		Binary:         cfg.GarakBinary,
		ReportsDir:     cfg.ReportsDir,
		LogsDir:        cfg.LogsDir,
		RESTConfigPath: cfg.RESTConfig,
		ScanTimeout:    cfg.ScanTimeout(),
	}, logger)

	// --- Agent ---
	ag := agent.New(agent.Config{
		Brain:       br,
		Scanner:     scanner,
		HistoryPath: cfg.HistoryFile,
		Artifacts:   []string{scanner.ScanLogPath(), scanner.ReportPath()},
		Logger:      logger,
	})

	// --- TUI ---
	p := tea.NewProgram(tui.New(ag), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "TUI エラー:", err)
		os.Exit(1)
	}
}

// fileLogger は logs/garakchat.log へ書く zerolog.Logger を返す。
// ログファイルが開けない場合は破棄ロガーで続行する（チャットは止めない）。
func fileLogger(logsDir string) zerolog.Logger {
	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		return zerolog.Nop()
	}
	f, err := os.OpenFile(filepath.Join(logsDir, "garakchat.log"),
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop()
	}
	return zerolog.New(f).With().Timestamp().Logger()
}
