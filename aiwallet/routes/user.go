package routes

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/middlewares"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func UserRoutes(ctrl *controllers.UserController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/me", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := userID(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			user, err := ctrl.GetUser(r.Context(), id)
			if err != nil {
				return nil, statusFor(err), err
			}
			return user, http.StatusOK, nil
		}))
	})
	return r
}
