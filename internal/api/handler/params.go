package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"todo_app/internal/api/middleware"
	"todo_app/internal/common"
	"todo_app/internal/common/security"

	"github.com/go-chi/chi/v5"
)

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", common.ErrBadRequest, name)
	}
	return id, nil
}

func identity(w http.ResponseWriter, r *http.Request) (*security.Identity, bool) {
	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication Failed")
	}
	return id, ok
}
