package routes

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/middlewares"
	"aiwallet/aiwallet/types"
	"aiwallet/aiwallet/utils/logging"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func WalletRoutes(ctrl *controllers.WalletsController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			snap, err := ctrl.List(r.Context(), id)
			if err != nil {
				return nil, statusFor(err), err
			}
			return snap, http.StatusOK, nil
		}))

		gr.Post("/", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			var req types.CreateWalletRequest
			if r.ContentLength != 0 {
				if err := decode(r, &req); err != nil {
					return nil, http.StatusBadRequest, err
				}
			}
			created, err := ctrl.Create(r.Context(), id, req.Name)
			if err != nil {
				return nil, statusFor(err), err
			}
			return created, http.StatusCreated, nil
		}))

		gr.Post("/import", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			var req types.ImportWalletRequest
			if err := decode(r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			rec, err := ctrl.Import(r.Context(), id, req)
			if err != nil {
				return nil, statusFor(err), err
			}
			return rec, http.StatusCreated, nil
		}))

		gr.Get("/active/state", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
			st, err := ctrl.State(r.Context(), id, refresh)
			if err != nil {
				return nil, statusFor(err), err
			}
			return st, http.StatusOK, nil
		}))

		gr.Post("/active/lock", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			res, err := ctrl.ToggleLock(r.Context(), id)
			if err != nil {
				return nil, statusFor(err), err
			}
			return res, http.StatusAccepted, nil
		}))

		gr.Post("/active/withdraw", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			res, err := ctrl.EmergencyWithdraw(r.Context(), id)
			if err != nil {
				return nil, statusFor(err), err
			}
			return res, http.StatusAccepted, nil
		}))

		gr.Get("/active/activity", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			activity, err := ctrl.Activity(r.Context(), id, limit)
			if err != nil {
				return nil, statusFor(err), err
			}
			return activity, http.StatusOK, nil
		}))

		gr.Put("/{id}/active", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			rec, err := ctrl.SwitchActive(r.Context(), id, chi.URLParam(r, "id"))
			if err != nil {
				return nil, statusFor(err), err
			}
			return rec, http.StatusOK, nil
		}))

		gr.Put("/{id}/name", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			var req types.RenameWalletRequest
			if err := decode(r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			rec, err := ctrl.Rename(r.Context(), id, chi.URLParam(r, "id"), req.Name)
			if err != nil {
				return nil, statusFor(err), err
			}
			return rec, http.StatusOK, nil
		}))

		gr.Delete("/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			snap, err := ctrl.Remove(r.Context(), id, chi.URLParam(r, "id"))
			if err != nil {
				return nil, statusFor(err), err
			}
			return snap, http.StatusOK, nil
		}))

		gr.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			id, ok := middlewares.UserID(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
			if err != nil {
				logging.ErrorLogger.Error("websocket accept error", zap.Error(err))
				return
			}
			ctrl.WatchState(r.Context(), conn, id)
		})
	})
	return r
}
