package garak

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// probeMarker は `garak --list_probes` の出力中で probe 行を識別する目印。
// 行末の識別子（marker 以降）だけを取り出す。
const probeMarker = "probes:"

// ListProbes は `garak --list_probes` を実行して probe 識別子を返す。
// CLI が非ゼロ終了した場合は stderr を含むエラーを返す。
func (c *CLI) ListProbes(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, c.binary, "--list_probes")
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("garak: list probes: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return parseProbeList(stdout.String()), nil
}

// parseProbeList は --list_probes の stdout から probe 識別子を抽出する。
// "probes:" を含む行だけが対象。色コード付き出力にも耐えるよう ANSI を除去する。
func parseProbeList(stdout string) []string {
	var probes []string
	for _, line := range strings.Split(stdout, "\n") {
		if !strings.Contains(line, probeMarker) {
			continue
		}
		idx := strings.LastIndex(line, probeMarker)
		name := strings.TrimSpace(StripANSI(line[idx+len(probeMarker):]))
		if name != "" {
			probes = append(probes, name)
		}
	}
	return probes
}

// noMatchSentinel は一致ゼロを表す sentinel 文字列を生成する。
func noMatchSentinel(partial string) string {
	return fmt.Sprintf("No matches found for '%s'", partial)
}

// IsNoMatch は MatchProbes の戻り値が sentinel かどうかを判定する。
func IsNoMatch(matches []string) bool {
	return len(matches) == 0 ||
		(len(matches) == 1 && strings.HasPrefix(matches[0], "No matches found"))
}

// MatchProbes は partial をカタログ全体と部分一致照合する。
// 一致はカタログ順を保つ。空文字の partial は全件にマッチする。
func (c *CLI) MatchProbes(ctx context.Context, partial string) ([]string, error) {
	all, err := c.ListProbes(ctx)
	if err != nil {
		return nil, err
	}
	return matchProbes(all, partial), nil
}

func matchProbes(catalog []string, partial string) []string {
	lower := strings.ToLower(partial)
	var matches []string
	for _, p := range catalog {
		if strings.Contains(strings.ToLower(p), lower) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return []string{noMatchSentinel(partial)}
	}
	return matches
}

// DescribeProbe は name を MatchProbes で解決し、最初の一致の説明文を返す。
// Garak CLI に個別 probe の照会コマンドがないため、説明はプレースホルダー。
func (c *CLI) DescribeProbe(ctx context.Context, name string) (string, error) {
	matches, err := c.MatchProbes(ctx, name)
	if err != nil {
		return "", err
	}
	if IsNoMatch(matches) {
		return fmt.Sprintf("No matching probe found for '%s'.", name), nil
	}
	return describeProbe(matches[0]), nil
}

func describeProbe(fullName string) string {
	return fmt.Sprintf("Description for probe '%s' (detailed description would go here).", fullName)
}
