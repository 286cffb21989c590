package garak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// reportPrefix はレポートファイルの固定ベース名。
//
// 既知の設計ギャップ: prefix が固定のため連続スキャンは同じベース名を
// 上書きする。呼び出し側（summarizer）は「更新時刻が最新のファイル」を
// 正とみなして補償する。
const reportPrefix = "garak_rest"

// scanLogName は実行ログのファイル名。コマンドラインと stdout/stderr を保存する。
const scanLogName = "scan_output.log"

// reportClosedPattern は Garak が stdout に出す
// "report closed ... : <path>" 行からレポートパスを回収する。
var reportClosedPattern = regexp.MustCompile(`report closed.*:\s*(\S+)`)

// ReportPath は固定 prefix から期待されるレポートファイルの絶対パスを返す。
func (c *CLI) ReportPath() string {
	abs, err := filepath.Abs(filepath.Join(c.reportsDir, reportPrefix))
	if err != nil {
		abs = filepath.Join(c.reportsDir, reportPrefix)
	}
	return abs + ".report.jsonl"
}

// ScanLogPath は実行ログの保存先を返す。
func (c *CLI) ScanLogPath() string {
	return filepath.Join(c.logsDir, scanLogName)
}

// RunScan は Garak スキャンをサブプロセスとして実行する。
//
// 失敗分類:
//   - タイムアウト       → ErrScanTimeout を包んだエラー（ログに TIMEOUT マーカー追記）
//   - 非ゼロ終了        → exit code とログパスを含むエラー
//   - レポート未生成     → stdout の "report closed" 行から回収を試み、失敗なら記述的エラー
//
// どの経路の失敗もログファイルに追記してから返す。
func (c *CLI) RunScan(ctx context.Context, params ScanParams) (msg string, err error) {
	configPath := params.ConfigPath
	if configPath == "" {
		configPath = c.restConfig
	}
	configPath, absErr := filepath.Abs(configPath)
	if absErr != nil {
		return "", fmt.Errorf("garak: resolve config path: %w", absErr)
	}

	if mkErr := os.MkdirAll(c.reportsDir, 0o750); mkErr != nil {
		return "", fmt.Errorf("garak: create reports dir: %w", mkErr)
	}
	if mkErr := os.MkdirAll(c.logsDir, 0o750); mkErr != nil {
		return "", fmt.Errorf("garak: create logs dir: %w", mkErr)
	}

	reportFile := c.ReportPath()
	prefix := strings.TrimSuffix(reportFile, ".report.jsonl")

	generations := params.Generations
	if generations <= 0 {
		generations = 1
	}

	args := []string{
		"--model_type", "rest",
		"--generator_option_file", configPath,
		"--generations", strconv.Itoa(generations),
		"--report_prefix", prefix,
		"--parallel_attempts", strconv.Itoa(parallelAttempts),
	}
	if cleaned := cleanProbes(params.Probes); len(cleaned) > 0 {
		args = append(args, "--probes", strings.Join(cleaned, ","))
	}

	logPath := c.ScanLogPath()
	logFile, openErr := os.Create(logPath)
	if openErr != nil {
		return "", fmt.Errorf("garak: create scan log: %w", openErr)
	}
	defer logFile.Close()

	// 失敗時はエラー内容もログに残す（再現調査用）
	defer func() {
		if err != nil {
			fmt.Fprintf(logFile, "\nException: %v\n", err)
		}
	}()

	cmdLine := c.binary + " " + strings.Join(args, " ")
	fmt.Fprintf(logFile, "Running Garak command:\n%s\n", cmdLine)
	c.log.Debug().Str("cmd", cmdLine).Msg("executing garak scan")

	runCtx, cancel := context.WithTimeout(ctx, c.scanTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		fmt.Fprintf(logFile, "\n--- TIMEOUT ---\nCommand timed out after %.0f seconds.\n", c.scanTimeout.Seconds())
		return "", fmt.Errorf("%w after %.0f seconds, see %s for details",
			ErrScanTimeout, c.scanTimeout.Seconds(), logPath)
	}

	fmt.Fprintf(logFile, "\n--- STDOUT ---\n%s\n", stdout.String())
	fmt.Fprintf(logFile, "\n--- STDERR ---\n%s\n", stderr.String())

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			fmt.Fprintf(logFile, "\nExit code: %d\n", exitErr.ExitCode())
			return "", fmt.Errorf("garak: scan failed with exit code %d, see %s for details",
				exitErr.ExitCode(), logPath)
		}
		return "", fmt.Errorf("garak: scan failed to run: %w", runErr)
	}
	fmt.Fprintf(logFile, "\nExit code: 0\n")

	// 期待パスにレポートがない場合、stdout の "report closed" 行から回収する
	if _, statErr := os.Stat(reportFile); statErr != nil {
		match := reportClosedPattern.FindStringSubmatch(stdout.String())
		if match == nil {
			return "", fmt.Errorf("garak: scan completed but no report file was created, check %s for details", logPath)
		}
		reportFile = match[1]
		c.log.Debug().Str("report", reportFile).Msg("recovered report path from stdout")
		if _, statErr := os.Stat(reportFile); statErr != nil {
			return "", fmt.Errorf("garak: recovered report path %s does not exist, check %s for details", reportFile, logPath)
		}
	}

	return fmt.Sprintf("Scan complete. Report: %s", reportFile), nil
}

// cleanProbes は probe 名から ANSI エスケープと冗長な "probes." 接頭辞を落とす。
func cleanProbes(probes []string) []string {
	var cleaned []string
	for _, p := range probes {
		p = strings.TrimSpace(StripANSI(p))
		p = strings.TrimPrefix(p, "probes.")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
