package types

import "aiwallet/aiwallet/agents/core"

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

type ChatResponse struct {
	SessionID string             `json:"session_id"`
	Messages  []core.ChatMessage `json:"messages"`
}

// For session/thread summary in threads panel
// LastActivity: RFC3339 string
type ChatSessionSummary struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
}

// ChatHello is the first frame of a chat websocket.
type ChatHello struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id,omitempty"`
}

const (
	EventSession = "session"
	EventMessage = "message"
	EventTx      = "event"
	EventError   = "error"
)

// ChatEvent is every frame the server sends on a chat websocket.
type ChatEvent struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Message   *core.ChatMessage `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
}
