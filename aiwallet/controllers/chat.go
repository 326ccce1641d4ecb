package controllers

import (
	"aiwallet/aiwallet/agents/core"
	"aiwallet/aiwallet/sources/psql/dao"
	"aiwallet/aiwallet/utils/logging"
	"aiwallet/aiwallet/utils/types"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const sessionListLimit = 50

// ChatController runs dispatcher turns and serves the stored chat history.
type ChatController struct {
	agent      *core.WalletAgent
	convs      *core.ConversationStore
	chatDAO    *dao.ChatMessageDAO
	sessionDAO *dao.ChatSessionDAO
}

func NewChatController(agent *core.WalletAgent, convs *core.ConversationStore, chatDAO *dao.ChatMessageDAO, sessionDAO *dao.ChatSessionDAO) *ChatController {
	return &ChatController{agent: agent, convs: convs, chatDAO: chatDAO, sessionDAO: sessionDAO}
}

// conversation resolves the live conversation for a session. Sessions not in
// memory are restored from storage; sessions of other users are not found.
func (c *ChatController) conversation(ctx context.Context, userID int, sessionID string) (*core.Conversation, error) {
	if sessionID != "" {
		owner, ok, err := c.sessionDAO.Owner(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if ok && owner != userID {
			return nil, core.ErrSessionNotFound
		}
	}
	conv, err := c.convs.GetOrCreate(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sessionID != "" && len(conv.Messages()) == 0 {
		history, err := c.history(ctx, userID, sessionID)
		if err != nil {
			return nil, err
		}
		conv.Restore(history)
	}
	return conv, nil
}

func (c *ChatController) history(ctx context.Context, userID int, sessionID string) ([]core.ChatMessage, error) {
	rows, err := c.chatDAO.GetChatHistoryBySession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	msgs := make([]core.ChatMessage, len(rows))
	for i, row := range rows {
		msgs[i] = core.FromModel(row)
	}
	return msgs, nil
}

func (c *ChatController) Chat(ctx context.Context, userID int, req types.ChatRequest) (types.ChatResponse, error) {
	conv, err := c.conversation(ctx, userID, req.SessionID)
	if err != nil {
		return types.ChatResponse{}, err
	}
	msgs, err := c.agent.ProcessCommand(ctx, conv, userID, req.Content)
	if err != nil {
		return types.ChatResponse{}, err
	}
	return types.ChatResponse{SessionID: conv.ID, Messages: msgs}, nil
}

func (c *ChatController) ListSessions(ctx context.Context, userID int) ([]types.ChatSessionSummary, error) {
	sessions, err := c.sessionDAO.ListSessions(ctx, userID, sessionListLimit)
	if err != nil {
		return nil, err
	}
	out := make([]types.ChatSessionSummary, len(sessions))
	for i, s := range sessions {
		out[i] = types.ChatSessionSummary{
			SessionID:    s.SessionID,
			Title:        s.Title,
			CreatedAt:    s.CreatedAt.Format(time.RFC3339),
			LastActivity: s.UpdatedAt.Format(time.RFC3339),
		}
	}
	return out, nil
}

func (c *ChatController) GetMessagesForSession(ctx context.Context, userID int, sessionID string) ([]core.ChatMessage, error) {
	if err := c.ensureOwner(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return c.history(ctx, userID, sessionID)
}

func (c *ChatController) DeleteSession(ctx context.Context, userID int, sessionID string) error {
	if err := c.ensureOwner(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := c.chatDAO.DeleteSession(ctx, sessionID, userID); err != nil {
		return err
	}
	c.convs.Delete(userID, sessionID)
	return nil
}

func (c *ChatController) ensureOwner(ctx context.Context, userID int, sessionID string) error {
	owner, ok, err := c.sessionDAO.Owner(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok || owner != userID {
		return core.ErrSessionNotFound
	}
	return nil
}

// ChatWebSocket serves one authenticated chat socket: every text frame is a
// turn, and transaction outcomes are pushed as they arrive.
func (c *ChatController) ChatWebSocket(ctx context.Context, conn *websocket.Conn, userID int, sessionID string) {
	defer conn.Close(websocket.StatusInternalError, "internal error")

	conv, err := c.conversation(ctx, userID, sessionID)
	if err != nil {
		wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventError, Error: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "session not found")
		return
	}
	if err := wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventSession, SessionID: conv.ID}); err != nil {
		return
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	events, unsubscribe := conv.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-events:
				if err := wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventTx, SessionID: conv.ID, Message: &msg}); err != nil {
					stop()
					return
				}
			}
		}
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				logging.ErrorLogger.Error("websocket read error", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventError, Error: "unsupported data"})
			continue
		}
		var req types.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventError, Error: "invalid json"})
			continue
		}

		msgs, err := c.agent.ProcessCommand(ctx, conv, userID, req.Content)
		if err != nil {
			wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventError, SessionID: conv.ID, Error: err.Error()})
			continue
		}
		for i := range msgs {
			if err := wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventMessage, SessionID: conv.ID, Message: &msgs[i]}); err != nil {
				logging.ErrorLogger.Error("websocket write error", zap.Error(err))
				return
			}
		}
	}
}
