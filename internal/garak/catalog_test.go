package garak

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// fakeGarak は garak CLI の代わりに実行するシェルスクリプトを作る。
func fakeGarak(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "garak")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testCLI(t *testing.T, script string) *CLI {
	t.Helper()
	dir := t.TempDir()
	return NewCLI(Options{
		Binary:     fakeGarak(t, script),
		ReportsDir: filepath.Join(dir, "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	}, zerolog.Nop())
}

func TestParseProbeList(t *testing.T) {
	stdout := strings.Join([]string{
		"garak LLM vulnerability scanner v0.9",
		"probes: lmrc.Profanity",
		"probes: dan.Dan_11_0",
		"unrelated line",
		"probes: \x1b[32mpromptinject.HijackKillHumansMini\x1b[0m",
		"",
	}, "\n")

	got := parseProbeList(stdout)
	want := []string{"lmrc.Profanity", "dan.Dan_11_0", "promptinject.HijackKillHumansMini"}
	if len(got) != len(want) {
		t.Fatalf("probes: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("probes[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMatchProbes_EmptyPartialReturnsAllInOrder(t *testing.T) {
	catalog := []string{"probes.lmrc.Profanity", "probes.dan.Dan_11_0"}
	got := matchProbes(catalog, "")
	if len(got) != 2 || got[0] != catalog[0] || got[1] != catalog[1] {
		t.Errorf("got %v, want %v in order", got, catalog)
	}
}

func TestMatchProbes_CaseInsensitive(t *testing.T) {
	catalog := []string{"lmrc.Profanity", "dan.Dan_11_0"}
	got := matchProbes(catalog, "PROFANITY")
	if len(got) != 1 || got[0] != "lmrc.Profanity" {
		t.Errorf("got %v, want [lmrc.Profanity]", got)
	}
}

func TestMatchProbes_NoMatchReturnsSentinel(t *testing.T) {
	catalog := []string{"probes.lmrc.Profanity", "probes.dan.Dan_11_0"}
	got := matchProbes(catalog, "zzz")
	if len(got) != 1 {
		t.Fatalf("want sentinel slice of length 1, got %v", got)
	}
	if got[0] != "No matches found for 'zzz'" {
		t.Errorf("sentinel: got %q", got[0])
	}
	if !IsNoMatch(got) {
		t.Error("IsNoMatch should report the sentinel")
	}
	if IsNoMatch(catalog) {
		t.Error("IsNoMatch must not flag real matches")
	}
}

func TestListProbes_ParsesCLIOutput(t *testing.T) {
	cli := testCLI(t, `echo "probes: lmrc.Profanity"
echo "probes: dan.Dan_11_0"`)

	got, err := cli.ListProbes(context.Background())
	if err != nil {
		t.Fatalf("ListProbes: %v", err)
	}
	if len(got) != 2 || got[0] != "lmrc.Profanity" || got[1] != "dan.Dan_11_0" {
		t.Errorf("got %v", got)
	}
}

// 同一のツール出力に対して ListProbes は決定的であること。
func TestListProbes_IdempotentUnderFixedOutput(t *testing.T) {
	cli := testCLI(t, `echo "probes: lmrc.Profanity"`)

	first, err := cli.ListProbes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := cli.ListProbes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("successive calls differ: %v vs %v", first, second)
	}
}

func TestListProbes_NonZeroExitCarriesStderr(t *testing.T) {
	cli := testCLI(t, `echo "garak exploded" >&2
exit 3`)

	_, err := cli.ListProbes(context.Background())
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "garak exploded") {
		t.Errorf("error should carry stderr text, got: %v", err)
	}
}

func TestDescribeProbe_NotFound(t *testing.T) {
	cli := testCLI(t, `echo "probes: lmrc.Profanity"`)

	got, err := cli.DescribeProbe(context.Background(), "zzz")
	if err != nil {
		t.Fatal(err)
	}
	if got != "No matching probe found for 'zzz'." {
		t.Errorf("got %q", got)
	}
}

func TestDescribeProbe_FirstMatchWins(t *testing.T) {
	cli := testCLI(t, `echo "probes: dan.Dan_11_0"
echo "probes: dan.Dan_10_0"`)

	got, err := cli.DescribeProbe(context.Background(), "dan")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "'dan.Dan_11_0'") {
		t.Errorf("should describe the first match in catalog order, got %q", got)
	}
}

func TestStripANSI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"\x1b[1;32mprobes.lmrc.Profanity\x1b[0m", "probes.lmrc.Profanity"},
	}
	for _, tt := range tests {
		if got := StripANSI(tt.in); got != tt.want {
			t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
