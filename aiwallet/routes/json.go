package routes

import (
	"aiwallet/aiwallet/agents/actions"
	"aiwallet/aiwallet/agents/core"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/middlewares"
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/services/walletlist"
	httputils "aiwallet/aiwallet/utils/http"
	"aiwallet/aiwallet/utils/logging"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

var errUnauthorized = errors.New("unauthorized")

// handleJSON is the generic wrapper every JSON route goes through.
// A nil result with no error writes only the status.
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			if status >= http.StatusInternalServerError {
				logging.ErrorLogger.Error("request failed",
					zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
			}
			httputils.WriteError(w, status, err.Error())
			return
		}
		if res == nil {
			w.WriteHeader(status)
			return
		}
		httputils.WriteJSON(w, status, res)
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func userID(r *http.Request) (int, error) {
	id, ok := middlewares.UserID(r.Context())
	if !ok {
		return 0, errUnauthorized
	}
	return id, nil
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, walletlist.ErrWalletNotFound),
		errors.Is(err, walletlist.ErrNoActiveWallet),
		errors.Is(err, controllers.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyCommand),
		errors.Is(err, controllers.ErrEmptyUsername),
		errors.Is(err, controllers.ErrMissingSecret),
		errors.Is(err, wallet.ErrInvalidKey),
		errors.Is(err, wallet.ErrNotOwner),
		errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, wallet.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, actions.ErrWalletLocked),
		errors.Is(err, actions.ErrDailyLimitExceeded):
		return http.StatusConflict
	case errors.Is(err, controllers.ErrProvisioningDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
