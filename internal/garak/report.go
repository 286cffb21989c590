package garak

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportSummary は最新スキャンレポートの集計結果。
// 毎回新規に構築され、永続化されない。JSON 形状:
//
//	{"report": ..., "config": ..., "init": ..., "attempts": [...],
//	 "evaluations": [...], "completion": ..., "aggregated_metrics": {...}}
//
// 失敗時は {"error": "<message>"} のみを持つ。
type ReportSummary struct {
	Error string `json:"error,omitempty"`

	Report      string           `json:"report,omitempty"`
	Config      map[string]any   `json:"config,omitempty"`
	Init        map[string]any   `json:"init,omitempty"`
	Attempts    []map[string]any `json:"attempts,omitempty"`
	Evaluations []map[string]any `json:"evaluations,omitempty"`
	Completion  map[string]any   `json:"completion,omitempty"`
	Metrics     *Metrics         `json:"aggregated_metrics,omitempty"`
}

// Metrics はレポート全体から導出した集計値。
type Metrics struct {
	TotalAttempts    int          `json:"total_attempts"`
	TotalEvaluations int          `json:"total_evaluations"`
	// RunDurationSeconds は init.start_time と completion.end_time の差。
	// どちらかが欠落・不正なら nil（JSON では null）。
	RunDurationSeconds *float64     `json:"run_duration_seconds"`
	Scores             []ProbeScore `json:"scores"`
}

// ProbeScore は probe 単位に集約した eval スコア。
type ProbeScore struct {
	Probe  string `json:"probe"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
	// ScorePercentage は passed/total×100。Total が 0 なら nil（ゼロ除算回避）。
	ScorePercentage *float64 `json:"score_percentage"`
}

// SummarizeLastScan は reports ディレクトリ内で最も新しい *.report.jsonl を
// 集計する。固定 prefix の上書き挙動（runner.go 参照）を「最新の更新時刻が正」
// というルールで補償する。失敗は Error フィールドに畳み込み、panic も error も
// 呼び出し側に漏らさない。
func (c *CLI) SummarizeLastScan() *ReportSummary {
	pattern := filepath.Join(c.reportsDir, "*.report.jsonl")
	files, err := filepath.Glob(pattern)
	if err != nil || len(files) == 0 {
		return &ReportSummary{Error: "No report found."}
	}

	latest := latestByMtime(files)
	c.log.Info().Str("report", latest).Msg("loading report")

	summary, err := summarizeFile(latest)
	if err != nil {
		return &ReportSummary{Error: fmt.Sprintf("Could not load or parse report: %v", err)}
	}
	return summary
}

// latestByMtime は更新時刻が最も新しいファイルを返す。
// Stat に失敗したファイルはゼロ時刻扱いで後回しになる。
func latestByMtime(files []string) string {
	latest := files[0]
	var latestMod time.Time
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.ModTime().After(latestMod) {
			latestMod = info.ModTime()
			latest = f
		}
	}
	return latest
}

// summarizeFile は JSONL レポート1本を分類・集計する。
func summarizeFile(path string) (*ReportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	summary := &ReportSummary{Report: path}

	scanner := bufio.NewScanner(f)
	// attempt レコードは probe の全出力を含み 64KB を超えることがある
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse report line: %w", err)
		}
		classify(summary, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	summary.Metrics = aggregate(summary)
	return summary, nil
}

// classify はレコードを entry_type で振り分ける。
// config/init/completion は最初の1件のみ採用し、以降は黙って捨てる。
func classify(s *ReportSummary, rec map[string]any) {
	entryType, _ := rec["entry_type"].(string)
	switch {
	case strings.HasPrefix(entryType, "start_run"):
		if s.Config == nil {
			s.Config = rec
		}
	case entryType == "init":
		if s.Init == nil {
			s.Init = rec
		}
	case entryType == "attempt":
		s.Attempts = append(s.Attempts, rec)
	case entryType == "eval":
		s.Evaluations = append(s.Evaluations, rec)
	case entryType == "completion":
		if s.Completion == nil {
			s.Completion = rec
		}
	}
}

// aggregate は分類済みレコード群から集計値を導出する。
func aggregate(s *ReportSummary) *Metrics {
	m := &Metrics{
		TotalAttempts:    len(s.Attempts),
		TotalEvaluations: len(s.Evaluations),
		Scores:           []ProbeScore{},
	}

	m.RunDurationSeconds = runDuration(s.Init, s.Completion)

	// probe ごとに passed/total を合算。出現順を保つため index を別持ちする。
	index := map[string]int{}
	for _, eval := range s.Evaluations {
		probe, ok := eval["probe"].(string)
		if !ok {
			continue
		}
		passed := intField(eval, "passed")
		total := intField(eval, "total")
		i, seen := index[probe]
		if !seen {
			index[probe] = len(m.Scores)
			m.Scores = append(m.Scores, ProbeScore{Probe: probe})
			i = index[probe]
		}
		m.Scores[i].Passed += passed
		m.Scores[i].Total += total
	}
	for i := range m.Scores {
		if m.Scores[i].Total > 0 {
			pct := float64(m.Scores[i].Passed) / float64(m.Scores[i].Total) * 100
			m.Scores[i].ScorePercentage = &pct
		}
	}
	return m
}

// runDuration は completion.end_time − init.start_time を秒で返す。
// レコード欠落やタイムスタンプ不正のときは nil。
func runDuration(init, completion map[string]any) *float64 {
	if init == nil || completion == nil {
		return nil
	}
	start, ok1 := init["start_time"].(string)
	end, ok2 := completion["end_time"].(string)
	if !ok1 || !ok2 {
		return nil
	}
	startT, err1 := parseISOTime(start)
	endT, err2 := parseISOTime(end)
	if err1 != nil || err2 != nil {
		return nil
	}
	d := endT.Sub(startT).Seconds()
	return &d
}

// isoLayouts は Garak レポートで観測される ISO-8601 のバリエーション。
// タイムゾーンなし・小数秒あり/なし・RFC3339 をすべて受ける。
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseISOTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// intField は JSON 数値（float64 でデコードされる）を int として読む。
func intField(rec map[string]any, key string) int {
	if v, ok := rec[key].(float64); ok {
		return int(v)
	}
	return 0
}
