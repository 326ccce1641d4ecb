package routes

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/middlewares"
	"aiwallet/aiwallet/types"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

var errMissingCommand = errors.New("command is required")

// AgentRoutes serves the classifier relay mounted at /api.
func AgentRoutes(ctrl *controllers.AgentsController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Post("/ai-agent", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			var req types.AgentCommandRequest
			if err := decode(r, &req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			if strings.TrimSpace(req.Command) == "" {
				return nil, http.StatusBadRequest, errMissingCommand
			}
			it, err := ctrl.Interpret(r.Context(), id, req.Command)
			if err != nil {
				return nil, statusFor(err), err
			}
			return it, http.StatusOK, nil
		}))
	})
	return r
}
