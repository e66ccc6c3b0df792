package handler

import (
	"encoding/json"
	"net/http"
	"studyhub/internal/api/middleware"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
)

// Middleware is how routers hand the authentication step to handlers.
type Middleware func(http.Handler) http.Handler

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithAppError(w, common.Errorf("invalid request payload: %v: %w", err, common.ErrBadRequest))
		return false
	}
	return true
}

func callerFrom(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		common.RespondWithAppError(w, common.Errorf("missing user context: %w", common.ErrUnauthorized))
	}
	return p, ok
}
