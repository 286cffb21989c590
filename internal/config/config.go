// Package config は config.yaml とプロセス環境からアプリ設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// APIConfig は REST サーバー（garakd）の設定
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig は config.yaml の統合設定構造
type AppConfig struct {
	// Model はチャット補完に使うモデル名
	Model string `yaml:"model"`

	// GarakBinary は garak CLI のバイナリ名（PATH 解決）
	GarakBinary string `yaml:"garak_binary"`

	// HistoryFile は会話履歴 JSON の保存先
	HistoryFile string `yaml:"history_file"`

	// ReportsDir はスキャンレポート（*.report.jsonl）の出力先
	ReportsDir string `yaml:"reports_dir"`

	// LogsDir は scan_output.log とアプリログの出力先
	LogsDir string `yaml:"logs_dir"`

	// RESTConfig は --generator_option_file に渡すデフォルト設定ファイル
	RESTConfig string `yaml:"rest_config"`

	// ScanTimeoutSeconds はスキャンサブプロセスの制限時間
	ScanTimeoutSeconds int `yaml:"scan_timeout_seconds"`

	API APIConfig `yaml:"api"`
}

// applyDefaults はゼロ値のフィールドにデフォルト値を適用する
func (c *AppConfig) applyDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.GarakBinary == "" {
		c.GarakBinary = "garak"
	}
	if c.HistoryFile == "" {
		c.HistoryFile = "data/conversation_history.json"
	}
	if c.ReportsDir == "" {
		c.ReportsDir = "reports"
	}
	if c.LogsDir == "" {
		c.LogsDir = "logs"
	}
	if c.RESTConfig == "" {
		c.RESTConfig = "rest_target/rest_config.json"
	}
	if c.ScanTimeoutSeconds == 0 {
		c.ScanTimeoutSeconds = 600
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8000"
	}
}

// ScanTimeout は ScanTimeoutSeconds を time.Duration で返す。
func (c *AppConfig) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutSeconds) * time.Second
}

// Load は config.yaml を読み込む。
// パス系フィールドの ${VAR} 環境変数を展開する。
// ファイルが存在しない場合はデフォルトの AppConfig を返す。
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &AppConfig{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	// 環境変数を展開（パス系フィールドの ${VAR}）
	cfg.HistoryFile = expandEnvString(cfg.HistoryFile)
	cfg.ReportsDir = expandEnvString(cfg.ReportsDir)
	cfg.LogsDir = expandEnvString(cfg.LogsDir)
	cfg.RESTConfig = expandEnvString(cfg.RESTConfig)

	// デフォルト値の適用
	cfg.applyDefaults()

	return &cfg, nil
}

// expandEnvString は文字列内の ${VAR} をホスト環境変数で展開する
func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}
