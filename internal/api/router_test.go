package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	"todo_app/internal/app/service"
	"todo_app/internal/common/security"
	"todo_app/internal/domain/model"
	"todo_app/internal/domain/repository/repotest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const maxLoginFailures = 3

type testServer struct {
	handler http.Handler
	store   *repotest.Store
	mock    sqlmock.Sqlmock
	tokens  *security.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	tokens, err := security.NewTokenService([]byte("router-test-secret"), 20*time.Minute)
	require.NoError(t, err)
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	store := repotest.NewStore()
	log := zap.NewNop()

	h := NewRouter(
		service.NewAuthService(db, store, hasher, tokens, service.NewMemoryLoginLimiter(maxLoginFailures, time.Minute), log),
		service.NewTodoService(db, store, log),
		service.NewUserService(db, store, hasher, log),
		security.NewIdentityResolver(tokens),
		log,
	)
	return &testServer{handler: h, store: store, mock: mock, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// expectTx registers one transaction that ends in commit or rollback.
func (s *testServer) expectTx(commit bool) {
	s.mock.ExpectBegin()
	if commit {
		s.mock.ExpectCommit()
	} else {
		s.mock.ExpectRollback()
	}
}

func (s *testServer) register(t *testing.T, username, password, role string) model.User {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u
}

func (s *testServer) loginRaw(username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.loginRaw(username, password)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp service.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func (s *testServer) createTodo(t *testing.T, token, title string) model.Todo {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/todos", token, service.TodoRequest{Title: title, Description: "something to do", Priority: 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var td model.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &td))
	return td
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hashed_password")
	assert.NotContains(t, rec.Body.String(), "pw123456")

	stored, ok := s.store.User(1)
	require.True(t, ok)
	assert.True(t, stored.IsActive)
	assert.NotEqual(t, "pw123456", stored.HashedPassword)

	dup := s.do(t, http.MethodPost, "/auth", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "pw123456",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)

	invalid := s.do(t, http.MethodPost, "/auth", "", map[string]string{"username": "bob"})
	require.Equal(t, http.StatusBadRequest, invalid.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(invalid.Body.Bytes(), &body))
	assert.Equal(t, "ValidationFailed", body.Error)
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "pw123456", "")

	token := s.login(t, "alice", "pw123456")
	claims, err := s.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, alice.ID, *claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)

	assert.Equal(t, http.StatusUnauthorized, s.loginRaw("alice", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, s.loginRaw("ghost", "pw123456").Code)
	assert.Equal(t, http.StatusBadRequest, s.loginRaw("", "").Code)
}

func TestLogin_Throttled(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw123456", "")

	for i := 0; i < maxLoginFailures; i++ {
		require.Equal(t, http.StatusUnauthorized, s.loginRaw("alice", "wrong").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, s.loginRaw("alice", "pw123456").Code)
}

func TestLogin_ConcurrentGuessesThrottled(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw123456", "")

	const guesses = 30
	codes := make(chan int, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- s.loginRaw("alice", "wrong").Code
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for c := range codes {
		counts[c]++
	}
	assert.Equal(t, maxLoginFailures, counts[http.StatusUnauthorized])
	assert.Equal(t, guesses-maxLoginFailures, counts[http.StatusTooManyRequests])
}

func TestTodos_OwnerScoped(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "pw123456", "")
	s.register(t, "bob", "pw123456", "")
	aliceToken := s.login(t, "alice", "pw123456")
	bobToken := s.login(t, "bob", "pw123456")

	mine := s.createTodo(t, aliceToken, "alice's todo")
	assert.Equal(t, alice.ID, mine.OwnerID)
	s.createTodo(t, bobToken, "bob's todo")

	rec := s.do(t, http.MethodGet, "/todos", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var todos []model.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todos))
	require.Len(t, todos, 1)
	assert.Equal(t, "alice's todo", todos[0].Title)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/todos/%d", mine.ID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.expectTx(true)
	update := service.TodoRequest{Title: "renamed", Description: "still mine", Priority: 5, Completed: true}
	rec = s.do(t, http.MethodPut, fmt.Sprintf("/todos/%d", mine.ID), aliceToken, update)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	stored, _ := s.store.Todo(mine.ID)
	assert.Equal(t, "renamed", stored.Title)

	s.expectTx(true)
	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/todos/%d", mine.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/todos/%d", mine.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTodos_CrossOwnerIsNotFound(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw123456", "")
	s.register(t, "bob", "pw123456", "")
	mine := s.createTodo(t, s.login(t, "alice", "pw123456"), "alice's todo")
	bobToken := s.login(t, "bob", "pw123456")
	path := fmt.Sprintf("/todos/%d", mine.ID)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, bobToken, nil).Code)

	s.expectTx(false)
	update := service.TodoRequest{Title: "hijacked", Description: "not yours", Priority: 1}
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, path, bobToken, update).Code)

	s.expectTx(false)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, bobToken, nil).Code)

	stored, ok := s.store.Todo(mine.ID)
	require.True(t, ok)
	assert.Equal(t, "alice's todo", stored.Title)
}

func TestTodos_Validation(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw123456", "")
	token := s.login(t, "alice", "pw123456")

	tests := []struct {
		name string
		req  service.TodoRequest
	}{
		{"short title", service.TodoRequest{Title: "ab", Description: "fine text", Priority: 1}},
		{"short description", service.TodoRequest{Title: "fine", Description: "ab", Priority: 1}},
		{"long description", service.TodoRequest{Title: "fine", Description: strings.Repeat("x", 101), Priority: 1}},
		{"priority zero", service.TodoRequest{Title: "fine", Description: "fine text", Priority: 0}},
		{"priority six", service.TodoRequest{Title: "fine", Description: "fine text", Priority: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/todos", token, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	for _, id := range []string{"0", "-1", "abc"} {
		rec := s.do(t, http.MethodGet, "/todos/"+id, token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestAuthentication_Rejected(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "pw123456", "")

	expired, err := s.tokens.Issue("alice", alice.ID, model.RoleUser, -time.Second)
	require.NoError(t, err)
	other, err := security.NewTokenService([]byte("someone-elses-secret"), time.Minute)
	require.NoError(t, err)
	forged, err := other.Issue("alice", alice.ID, model.RoleAdmin, time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing": "",
		"expired": expired,
		"forged":  forged,
		"garbage": "a.b.c",
	} {
		rec := s.do(t, http.MethodGet, "/todos", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestAdmin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "root", "pw123456", model.RoleAdmin)
	s.register(t, "alice", "pw123456", "")
	adminToken := s.login(t, "root", "pw123456")
	aliceToken := s.login(t, "alice", "pw123456")
	td := s.createTodo(t, aliceToken, "alice's todo")
	s.createTodo(t, adminToken, "root's todo")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/admin/todos", aliceToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodDelete, fmt.Sprintf("/admin/todos/%d", td.ID), aliceToken, nil).Code)

	rec := s.do(t, http.MethodGet, "/admin/todos", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	path := fmt.Sprintf("/admin/todos/%d", td.ID)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, adminToken, nil).Code)
}

func TestUser_ProfileAndPasswordChange(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw123456", "")
	token := s.login(t, "alice", "pw123456")

	rec := s.do(t, http.MethodGet, "/user", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "hashed")

	s.expectTx(false)
	rec = s.do(t, http.MethodPut, "/user/password", token, map[string]string{"password": "wrong", "new_password": "newpass1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPut, "/user/password", token, map[string]string{"password": "pw123456", "new_password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.expectTx(true)
	rec = s.do(t, http.MethodPut, "/user/password", token, map[string]string{"password": "pw123456", "new_password": "newpass1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, s.loginRaw("alice", "pw123456").Code)
	s.login(t, "alice", "newpass1")
}

func TestUser_ChangePhone(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "pw123456", "")
	token := s.login(t, "alice", "pw123456")

	rec := s.do(t, http.MethodPut, "/user/phone", token, map[string]string{"phone_number": "12345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.expectTx(true)
	rec = s.do(t, http.MethodPut, "/user/phone", token, map[string]string{"phone_number": "123456789"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stored, _ := s.store.User(alice.ID)
	assert.Equal(t, "123456789", stored.PhoneNumber)
}
