package garak

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func reportCLI(t *testing.T) *CLI {
	t.Helper()
	dir := t.TempDir()
	return NewCLI(Options{
		Binary:     "garak",
		ReportsDir: dir,
		LogsDir:    filepath.Join(dir, "logs"),
	}, zerolog.Nop())
}

func writeReport(t *testing.T, cli *CLI, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(cli.reportsDir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSummarizeLastScan_NoReport(t *testing.T) {
	cli := reportCLI(t)

	summary := cli.SummarizeLastScan()
	if summary.Error != "No report found." {
		t.Errorf("Error: got %q, want \"No report found.\"", summary.Error)
	}

	// JSON 形状は {"error": "No report found."} のみ
	b, err := json.Marshal(summary)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"error":"No report found."}` {
		t.Errorf("marshaled: got %s", b)
	}
}

func TestSummarizeLastScan_AggregatesSyntheticReport(t *testing.T) {
	cli := reportCLI(t)
	writeReport(t, cli, "garak_rest.report.jsonl", []string{
		`{"entry_type": "start_run setup", "model_type": "rest"}`,
		`{"entry_type": "init", "garak_version": "0.9", "start_time": "2024-01-01T00:00:00"}`,
		`{"entry_type": "attempt", "probe": "lmrc.Profanity", "seq": 1}`,
		`{"entry_type": "attempt", "probe": "lmrc.Profanity", "seq": 2}`,
		`{"entry_type": "eval", "probe": "lmrc.Profanity", "passed": 3, "total": 5}`,
		`{"entry_type": "eval", "probe": "lmrc.Profanity", "passed": 1, "total": 5}`,
		`{"entry_type": "completion", "end_time": "2024-01-01T00:10:00"}`,
	})

	summary := cli.SummarizeLastScan()
	if summary.Error != "" {
		t.Fatalf("unexpected error: %s", summary.Error)
	}
	if summary.Config == nil || summary.Init == nil || summary.Completion == nil {
		t.Fatal("config/init/completion records should all be classified")
	}

	m := summary.Metrics
	if m.TotalAttempts != 2 {
		t.Errorf("TotalAttempts: got %d, want 2", m.TotalAttempts)
	}
	if m.TotalEvaluations != 2 {
		t.Errorf("TotalEvaluations: got %d, want 2", m.TotalEvaluations)
	}
	if m.RunDurationSeconds == nil || *m.RunDurationSeconds != 600.0 {
		t.Errorf("RunDurationSeconds: got %v, want 600.0", m.RunDurationSeconds)
	}

	if len(m.Scores) != 1 {
		t.Fatalf("Scores: got %d entries, want 1", len(m.Scores))
	}
	s := m.Scores[0]
	if s.Probe != "lmrc.Profanity" || s.Passed != 4 || s.Total != 10 {
		t.Errorf("aggregation: got %+v, want passed=4 total=10", s)
	}
	if s.ScorePercentage == nil || *s.ScorePercentage != 40.0 {
		t.Errorf("ScorePercentage: got %v, want 40.0", s.ScorePercentage)
	}
}

func TestSummarizeLastScan_ZeroTotalGuard(t *testing.T) {
	cli := reportCLI(t)
	writeReport(t, cli, "garak_rest.report.jsonl", []string{
		`{"entry_type": "eval", "probe": "dan.Dan_11_0", "passed": 0, "total": 0}`,
	})

	summary := cli.SummarizeLastScan()
	if summary.Error != "" {
		t.Fatalf("unexpected error: %s", summary.Error)
	}
	if len(summary.Metrics.Scores) != 1 {
		t.Fatal("eval record should still be aggregated")
	}
	if summary.Metrics.Scores[0].ScorePercentage != nil {
		t.Errorf("zero total must yield nil percentage, got %v", *summary.Metrics.Scores[0].ScorePercentage)
	}
}

func TestSummarizeLastScan_FirstRecordWins(t *testing.T) {
	cli := reportCLI(t)
	writeReport(t, cli, "garak_rest.report.jsonl", []string{
		`{"entry_type": "init", "start_time": "2024-01-01T00:00:00", "which": "first"}`,
		`{"entry_type": "init", "start_time": "2030-01-01T00:00:00", "which": "second"}`,
		`{"entry_type": "completion", "end_time": "2024-01-01T00:10:00", "which": "first"}`,
		`{"entry_type": "completion", "end_time": "2030-01-01T00:00:00", "which": "second"}`,
	})

	summary := cli.SummarizeLastScan()
	if summary.Init["which"] != "first" {
		t.Error("init: first record should win")
	}
	if summary.Completion["which"] != "first" {
		t.Error("completion: later completions must be silently ignored")
	}
	if summary.Metrics.RunDurationSeconds == nil || *summary.Metrics.RunDurationSeconds != 600.0 {
		t.Errorf("duration should use the first records, got %v", summary.Metrics.RunDurationSeconds)
	}
}

func TestSummarizeLastScan_MissingTimesYieldNilDuration(t *testing.T) {
	cli := reportCLI(t)
	writeReport(t, cli, "garak_rest.report.jsonl", []string{
		`{"entry_type": "init", "start_time": "not-a-timestamp"}`,
		`{"entry_type": "completion", "end_time": "2024-01-01T00:10:00"}`,
	})

	summary := cli.SummarizeLastScan()
	if summary.Error != "" {
		t.Fatalf("unparsable timestamp must not fail the summary: %s", summary.Error)
	}
	if summary.Metrics.RunDurationSeconds != nil {
		t.Errorf("duration should be nil, got %v", *summary.Metrics.RunDurationSeconds)
	}
}

func TestSummarizeLastScan_PicksLatestByMtime(t *testing.T) {
	cli := reportCLI(t)
	older := writeReport(t, cli, "old.report.jsonl", []string{
		`{"entry_type": "eval", "probe": "old.Probe", "passed": 1, "total": 1}`,
	})
	newer := writeReport(t, cli, "new.report.jsonl", []string{
		`{"entry_type": "eval", "probe": "new.Probe", "passed": 1, "total": 1}`,
	})

	// mtime を明示して新旧を固定する
	now := time.Now()
	if err := os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatal(err)
	}

	summary := cli.SummarizeLastScan()
	if summary.Report != newer {
		t.Errorf("report: got %q, want latest %q", summary.Report, newer)
	}
	if len(summary.Metrics.Scores) != 1 || summary.Metrics.Scores[0].Probe != "new.Probe" {
		t.Errorf("should summarize the newest report, got %+v", summary.Metrics.Scores)
	}
}

func TestSummarizeLastScan_MalformedLineBecomesErrorResult(t *testing.T) {
	cli := reportCLI(t)
	writeReport(t, cli, "garak_rest.report.jsonl", []string{
		`{"entry_type": "init"}`,
		`this is not json`,
	})

	summary := cli.SummarizeLastScan()
	if summary.Error == "" {
		t.Fatal("malformed line should surface as an error result")
	}
	if !strings.Contains(summary.Error, "Could not load or parse report") {
		t.Errorf("got %q", summary.Error)
	}
}

func TestParseISOTime_Variants(t *testing.T) {
	tests := []string{
		"2024-01-01T00:00:00",
		"2024-01-01T00:00:00.123456",
		"2024-01-01T00:00:00Z",
		"2024-01-01T00:00:00+02:00",
	}
	for _, in := range tests {
		if _, err := parseISOTime(in); err != nil {
			t.Errorf("parseISOTime(%q): %v", in, err)
		}
	}
	if _, err := parseISOTime("garbage"); err == nil {
		t.Error("parseISOTime should reject garbage")
	}
}
