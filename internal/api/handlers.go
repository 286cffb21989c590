// Package api は Agent を REST で公開する薄いステートレスシェル。
// ロジックは持たず、リクエストを Agent の単一エントリポイントへ転送するだけ。
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/KutalVolkan/conversational-agent-garak/pkg/schema"
)

// ChatAgent は API が必要とする Agent の操作面。
// テストではスタブに差し替える。
type ChatAgent interface {
	Process(ctx context.Context, message string) string
	History() []schema.Message
	Clear()
}

// Handlers holds the handler dependencies.
type Handlers struct {
	Agent ChatAgent
}

// ChatRequest は POST /api/chat のリクエストボディ。
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse はアシスタントの応答と全履歴を返す。
type ChatResponse struct {
	Response string           `json:"response"`
	History  []schema.Message `json:"history"`
}

// Chat はチャットメッセージを1件処理する。
//
// Agent レベルの失敗（API 障害・ツール失敗）は Agent 側で会話テキストに
// 畳み込まれるため、ここでは常に 200 を返す。4xx になるのは
// リクエストボディ自体が壊れている場合のみ。
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	response := h.Agent.Process(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, ChatResponse{
		Response: response,
		History:  h.Agent.History(),
	})
}

// GetHistory は現在の会話履歴を返す。
func (h *Handlers) GetHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": h.Agent.History()})
}

// Clear は会話履歴とスキャン生成物をリセットする。
func (h *Handlers) Clear(w http.ResponseWriter, _ *http.Request) {
	h.Agent.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Health は死活確認エンドポイント。
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
