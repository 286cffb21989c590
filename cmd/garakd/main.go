// garakd は Agent を REST API として公開するサーバー。
//
// Endpoints:
//   - POST /api/chat    {message} → {response, history}
//   - GET  /api/history 会話履歴の取得
//   - POST /api/clear   履歴とスキャン生成物のリセット
//   - GET  /health      死活確認
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/KutalVolkan/conversational-agent-garak/internal/agent"
	"github.com/KutalVolkan/conversational-agent-garak/internal/api"
	"github.com/KutalVolkan/conversational-agent-garak/internal/brain"
	"github.com/KutalVolkan/conversational-agent-garak/internal/config"
	"github.com/KutalVolkan/conversational-agent-garak/internal/garak"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "設定ファイルのパス")
		addr       = flag.String("addr", "", "リッスンアドレス（省略時は設定ファイル / :8000）")
	)
	flag.Parse()

	// Setup structured logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env（OPENAI_API_KEY 等）を読み込む。ファイルがなければ黙って続行。
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}

	brainCfg, err := brain.LoadConfig(cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve chat API credentials")
	}
	br, err := brain.New(brainCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize brain")
	}

	scanner := garak.NewCLI(garak.Options{
		Binary:         cfg.GarakBinary,
		ReportsDir:     cfg.ReportsDir,
		LogsDir:        cfg.LogsDir,
		RESTConfigPath: cfg.RESTConfig,
		ScanTimeout:    cfg.ScanTimeout(),
	}, log.Logger)

	// API は1つの Agent（＝1セッション）を全リクエストで共有する。
	// ターンの直列化は Agent 内部のロックが行う。
	ag := agent.New(agent.Config{
		Brain:       br,
		Scanner:     scanner,
		HistoryPath: cfg.HistoryFile,
		Artifacts:   []string{scanner.ScanLogPath(), scanner.ReportPath()},
		Logger:      log.Logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      api.NewRouter(ag),
		ReadTimeout:  30 * time.Second,
		// 1ターンはチャット API 2往復＋スキャン実行を含みうるため長めに取る
		WriteTimeout: cfg.ScanTimeout() + 5*time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.API.Addr).Msg("garakd listening")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}
