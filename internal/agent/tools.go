package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KutalVolkan/conversational-agent-garak/internal/garak"
	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

// functionDefs はモデルに公開する4つのツールスキーマ。
// プロセスの寿命を通じて不変。モデルが従うべき契約そのもの。
var functionDefs = []schema.FunctionDef{
	{
		Name:        "list_probes",
		Description: "List all available Garak vulnerability probes.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
	},
	{
		Name:        "describe_probe",
		Description: "Get details about a specific Garak probe (what it tests and how).",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"probe_name": {
					"type": "string",
					"description": "Full name of the probe to describe, e.g. 'lmrc.Profanity'"
				}
			},
			"required": ["probe_name"]
		}`),
	},
	{
		Name:        "run_scan",
		Description: "Run a Garak scan on the configured model. Optionally specify a list of probes.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"probes": {
					"type": "array",
					"items": {"type": "string"},
					"description": "List of probe names to use (full identifiers). If omitted, all default probes will run."
				}
			}
		}`),
	},
	{
		Name:        "summarize_last_scan",
		Description: "Summarize the results of the most recent Garak scan (indicating which probes failed or passed).",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
	},
}

// decodeArgs はモデルが生成した引数ペイロードを dispatch 境界で一度だけ
// 構造化する。variant は {raw-text, structured-mapping} の2択で、
// デコード失敗は警告つきで空マッピングに落とす（ターンは失敗させない）。
func (a *Agent) decodeArgs(raw string) map[string]any {
	if raw == "" || raw == "null" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		a.log.Warn().Str("raw", raw).Err(err).
			Msg("failed to decode function arguments; using empty set")
		return map[string]any{}
	}
	if args == nil {
		return map[string]any{}
	}
	return args
}

// dispatch はツール名で4つのローカル操作のいずれかを実行する。
// 実行中のエラーはエラー文字列へ変換し、会話を継続できるようにする。
func (a *Agent) dispatch(ctx context.Context, name string, args map[string]any) string {
	result, err := a.invoke(ctx, name, args)
	if err != nil {
		a.log.Error().Str("function", name).Err(err).Msg("function execution failed")
		return fmt.Sprintf("Error during '%s': %v", name, err)
	}
	return result
}

func (a *Agent) invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "list_probes":
		probes, err := a.scanner.ListProbes(ctx)
		if err != nil {
			return "", err
		}
		return toJSON(probes), nil

	case "describe_probe":
		probeName, _ := args["probe_name"].(string)
		return a.scanner.DescribeProbe(ctx, probeName)

	case "run_scan":
		return a.scanner.RunScan(ctx, garak.ScanParams{
			Probes: stringSlice(args["probes"]),
		})

	case "summarize_last_scan":
		return toJSON(a.scanner.SummarizeLastScan()), nil

	default:
		// 未知のツール名は raise せずエラー文字列として返す
		return fmt.Sprintf("Error: Function '%s' is not implemented.", name), nil
	}
}

// toJSON は非文字列のツール結果を正準的なテキスト形へ直列化する。
func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("Error: could not serialize result: %v", err)
	}
	return string(b)
}

// stringSlice は JSON デコード済みの []any から文字列要素だけを取り出す。
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
