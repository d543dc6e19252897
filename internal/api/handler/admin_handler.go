package handler

import (
	"net/http"
	"todo_app/internal/app/service"
	"todo_app/internal/common"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	todoService *service.TodoService
}

func NewAdminHandler(ts *service.TodoService) *AdminHandler {
	return &AdminHandler{todoService: ts}
}

// RegisterRoutes expects a router already behind Authenticator and AdminOnly.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/todos", h.listAllTodos)           // GET /admin/todos
	r.Delete("/todos/{todoID}", h.deleteTodo) // DELETE /admin/todos/{todoID}
}

func (h *AdminHandler) listAllTodos(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	todos, err := h.todoService.ListAll(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, todos)
}

func (h *AdminHandler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	if err := h.todoService.AdminDelete(r.Context(), id, todoID); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondNoContent(w)
}
