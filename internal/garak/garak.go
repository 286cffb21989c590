// Package garak は Garak CLI（LLM 脆弱性スキャナー）を細いケイパビリティ
// インターフェースの背後に隠す。Agent は Scanner だけに依存するため、
// テストでは CLI を立てずにスタブへ差し替えられる。
package garak

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

// ErrScanTimeout はスキャンが制限時間内に終了しなかったことを示す。
// errors.Is で分類できるよう sentinel として公開する。
var ErrScanTimeout = errors.New("garak: scan timed out")

// Scanner は Garak に対する4つのローカル操作。
type Scanner interface {
	// ListProbes は利用可能な probe 識別子をカタログ順で返す。
	ListProbes(ctx context.Context) ([]string, error)

	// MatchProbes は partial を大文字小文字無視の部分一致で照合する。
	// 一致ゼロのときは空スライスではなく sentinel 1 要素を返す
	// （"No matches found for '<partial>'"）。呼び出し側は IsNoMatch で判定する。
	MatchProbes(ctx context.Context, partial string) ([]string, error)

	// DescribeProbe は probe の説明文を返す。見つからない場合もエラーではなく
	// "not found" メッセージを返す。
	DescribeProbe(ctx context.Context, name string) (string, error)

	// RunScan はスキャンを実行し、レポートパスを含む完了メッセージを返す。
	RunScan(ctx context.Context, params ScanParams) (string, error)

	// SummarizeLastScan は最新レポートの集計結果を返す。
	// 失敗してもエラーは返さず、ReportSummary.Error に畳み込む。
	SummarizeLastScan() *ReportSummary
}

// ScanParams は run_scan 1回分の設定。外部コマンドの寿命を超えて保持しない。
type ScanParams struct {
	ConfigPath  string   // REST ジェネレーター設定ファイル（空なら CLI のデフォルト）
	Probes      []string // probe 識別子（空なら Garak のデフォルトセット）
	Generations int      // probe attempt あたりの生成数（0 なら 1）
}

// CLI は garak コマンドをサブプロセスとして起動する Scanner 実装。
type CLI struct {
	binary      string
	reportsDir  string
	logsDir     string
	restConfig  string
	scanTimeout time.Duration
	log         zerolog.Logger
}

// Options は NewCLI のゼロ値フィールドにデフォルトを適用する前の設定。
type Options struct {
	Binary         string        // garak バイナリ名（デフォルト "garak"）
	ReportsDir     string        // レポート出力先
	LogsDir        string        // scan_output.log の出力先
	RESTConfigPath string        // --generator_option_file のデフォルト
	ScanTimeout    time.Duration // デフォルト 600s
}

// parallelAttempts はスキャンの並列度。Garak 側の推奨値に固定する。
const parallelAttempts = 4

// NewCLI は CLI Scanner を構築する。
func NewCLI(opts Options, log zerolog.Logger) *CLI {
	if opts.Binary == "" {
		opts.Binary = "garak"
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 600 * time.Second
	}
	return &CLI{
		binary:      opts.Binary,
		reportsDir:  opts.ReportsDir,
		logsDir:     opts.LogsDir,
		restConfig:  opts.RESTConfigPath,
		scanTimeout: opts.ScanTimeout,
		log:         log,
	}
}

// ansiPattern は端末制御エスケープシーケンス（CSI 含む）にマッチする。
var ansiPattern = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// StripANSI は文字列から ANSI エスケープシーケンスを除去する。
// チャット UI 経由で渡ってくる probe 名は色コードを含むことがある。
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
