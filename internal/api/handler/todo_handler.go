package handler

import (
	"encoding/json"
	"net/http"
	"todo_app/internal/app/service"
	"todo_app/internal/common"

	"github.com/go-chi/chi/v5"
)

type TodoHandler struct {
	todoService *service.TodoService
}

func NewTodoHandler(ts *service.TodoService) *TodoHandler {
	return &TodoHandler{todoService: ts}
}

// RegisterRoutes expects an authenticated router.
func (h *TodoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listTodos)             // GET /todos
	r.Post("/", h.createTodo)           // POST /todos
	r.Get("/{todoID}", h.getTodo)       // GET /todos/{todoID}
	r.Put("/{todoID}", h.updateTodo)    // PUT /todos/{todoID}
	r.Delete("/{todoID}", h.deleteTodo) // DELETE /todos/{todoID}
}

func (h *TodoHandler) listTodos(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	todos, err := h.todoService.List(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) getTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	todo, err := h.todoService.Get(r.Context(), id, todoID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) createTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	req, ok := decodeTodo(w, r)
	if !ok {
		return
	}

	todo, err := h.todoService.Create(r.Context(), id, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) updateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	req, ok := decodeTodo(w, r)
	if !ok {
		return
	}

	if err := h.todoService.Update(r.Context(), id, todoID, req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondNoContent(w)
}

func (h *TodoHandler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	if err := h.todoService.Delete(r.Context(), id, todoID); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondNoContent(w)
}

func decodeTodo(w http.ResponseWriter, r *http.Request) (service.TodoRequest, bool) {
	var req service.TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return req, false
	}
	if err := common.Validate(req); err != nil {
		common.RespondWithDomainError(w, err)
		return req, false
	}
	return req, true
}
