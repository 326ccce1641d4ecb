package routes

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/middlewares"
	"aiwallet/aiwallet/utils/logging"
	"aiwallet/aiwallet/utils/types"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func ChatRoutes(ctrl *controllers.ChatController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// POST /chat/ : run one turn
		gr.Post("/", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			var req types.ChatRequest
			if err := decode(r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			resp, err := ctrl.Chat(r.Context(), id, req)
			if err != nil {
				return nil, statusFor(err), err
			}
			return resp, http.StatusOK, nil
		}))

		gr.Get("/sessions", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			sessions, err := ctrl.ListSessions(r.Context(), id)
			if err != nil {
				return nil, statusFor(err), err
			}
			return sessions, http.StatusOK, nil
		}))

		gr.Get("/session/{session_id}/messages", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			msgs, err := ctrl.GetMessagesForSession(r.Context(), id, chi.URLParam(r, "session_id"))
			if err != nil {
				return nil, statusFor(err), err
			}
			return msgs, http.StatusOK, nil
		}))

		gr.Delete("/session/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			if err := ctrl.DeleteSession(r.Context(), id, chi.URLParam(r, "session_id")); err != nil {
				return nil, statusFor(err), err
			}
			return nil, http.StatusNoContent, nil
		}))
	})

	// Browsers cannot set headers on a websocket, so the token is the first frame.
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			logging.ErrorLogger.Error("websocket accept error", zap.Error(err))
			return
		}
		ctx := r.Context()

		var hello types.ChatHello
		if err := wsjson.Read(ctx, conn, &hello); err != nil {
			conn.Close(websocket.StatusUnsupportedData, "expected hello frame")
			return
		}
		id, err := middlewares.ParseToken(cfg.JWTSecret, hello.Token)
		if err != nil {
			wsjson.Write(ctx, conn, types.ChatEvent{Type: types.EventError, Error: "invalid token"})
			conn.Close(websocket.StatusPolicyViolation, "invalid token")
			return
		}
		ctrl.ChatWebSocket(ctx, conn, id, hello.SessionID)
	})
	return r
}
