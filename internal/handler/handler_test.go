package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/merchkpi/dashboard/backend/internal/config"
	"github.com/merchkpi/dashboard/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "password123"

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	messages []amqp.Publishing
	keys     []string
}

func (p *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) mails(t *testing.T) []domain.MailMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	mails := make([]domain.MailMessage, 0, len(p.messages))
	for _, msg := range p.messages {
		m := domain.MailMessage{}
		require.NoError(t, json.Unmarshal(msg.Body, &m))
		mails = append(mails, m)
	}
	return mails
}

type testEnv struct {
	h         *Handler
	repo      *fakeRepository
	publisher *fakePublisher
	redis     *miniredis.Miniredis

	admin     *domain.User
	ana       *domain.User
	li        *domain.User
	inactive  *domain.User
	adminRole *domain.RoleEntity
	merchRole *domain.RoleEntity
	fixedNow  time.Time
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Environment = "test"
	cfg.InitialAdmin.Email = "admin@example.com"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.RabbitMQ.Queue = "email_queue"
	cfg.RabbitMQ.PublishTimeout = 5
	cfg.Redis.OperationTimeout = 5
	cfg.OTP.Expiration = 900
	cfg.NewUser.PasswordLength = 12
	cfg.KPI.DailyTarget = 50
	cfg.KPI.Timezone = "UTC"
	cfg.Upload.Dir = t.TempDir()
	cfg.Upload.MaxSize = 1 << 20
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := newFakeRepository()
	publisher := &fakePublisher{}

	h, err := NewHandler(testConfig(t), repo, publisher, rdb)
	require.NoError(t, err)

	env := &testEnv{
		h:         h,
		repo:      repo,
		publisher: publisher,
		redis:     mr,
		fixedNow:  time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC),
	}
	h.now = func() time.Time { return env.fixedNow }
	h.RegisterRoutes()

	env.adminRole = &domain.RoleEntity{Name: domain.RoleAdmin}
	require.NoError(t, repo.CreateRole(env.adminRole))
	env.merchRole = &domain.RoleEntity{Name: domain.RoleMerchandiser}
	require.NoError(t, repo.CreateRole(env.merchRole))

	env.admin = env.createUser(t, "Administrator", "admin@example.com", env.adminRole.ID)
	env.ana = env.createUser(t, "Ana Lopez", "ana@example.com", env.merchRole.ID)
	env.li = env.createUser(t, "Li Wei", "li@example.com", env.merchRole.ID)
	env.inactive = env.createUser(t, "Old Timer", "old@example.com", env.merchRole.ID)

	env.inactive.IsActive = false
	require.NoError(t, repo.UpdateUser(env.inactive))

	return env
}

func (e *testEnv) createUser(t *testing.T, name, email string, roleID int64) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{Name: name, Email: email, PasswordHash: string(hash), RoleID: roleID}
	require.NoError(t, e.repo.CreateUser(user))
	return user
}

func (e *testEnv) token(t *testing.T, user *domain.User) string {
	t.Helper()

	ss, _, err := e.h.signToken(user, time.Now())
	require.NoError(t, err)
	return ss
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.h.Mux.ServeHTTP(rr, req)

	resp := envelope{}
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func decodeData[T any](t *testing.T, resp envelope) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rr, resp := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "ana@example.com", "password": testPassword}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)

	data := decodeData[struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}](t, resp)
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, env.ana.ID, data.User.ID)
	assert.Equal(t, domain.RoleMerchandiser, data.User.Role)
	assert.NotContains(t, rr.Body.String(), "passwordHash")

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/my-info", nil)
	req.AddCookie(cookies[0])
	rr2 := httptest.NewRecorder()
	env.h.Mux.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusOK, rr2.Code)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"wrong password", map[string]string{"email": "ana@example.com", "password": "nope"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "ghost@example.com", "password": testPassword}, http.StatusUnauthorized},
		{"inactive account", map[string]string{"email": "old@example.com", "password": testPassword}, http.StatusForbidden},
		{"invalid email", map[string]string{"email": "ana", "password": testPassword}, http.StatusBadRequest},
		{"malformed body", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := env.do(t, http.MethodPost, "/auth/login", tt.body, "")
			assert.Equal(t, tt.status, rr.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestLoginValidationMessageIsTranslated(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "ana", "password": "x"}, "")
	assert.Equal(t, "email must be a valid email address", resp.Message)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rr, _ := env.do(t, http.MethodGet, "/my-info", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = env.do(t, http.MethodGet, "/my-info", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, resp := env.do(t, http.MethodGet, "/my-info", nil, env.token(t, env.li))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, env.li.Email, decodeData[domain.User](t, resp).Email)
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.li)

	require.NoError(t, env.repo.DeleteUser(env.li.ID))

	rr, _ := env.do(t, http.MethodGet, "/my-info", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRoleChangeAppliesWithoutNewLogin(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.li)

	rr, _ := env.do(t, http.MethodGet, "/admin/overview", nil, token)
	require.Equal(t, http.StatusForbidden, rr.Code)

	li, err := env.repo.GetUserByID(env.li.ID)
	require.NoError(t, err)
	li.RoleID = env.adminRole.ID
	require.NoError(t, env.repo.UpdateUser(li))

	rr, _ = env.do(t, http.MethodGet, "/admin/overview", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rr, resp := env.do(t, http.MethodPost, "/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
}

func TestUpdateMyPassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.ana)

	rr, _ := env.do(t, http.MethodPatch, "/my-info/password", map[string]string{"oldPassword": "wrong", "newPassword": "newsecret"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = env.do(t, http.MethodPatch, "/my-info/password", map[string]string{"oldPassword": testPassword, "newPassword": "123"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = env.do(t, http.MethodPatch, "/my-info/password", map[string]string{"oldPassword": testPassword, "newPassword": "newsecret"}, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "ana@example.com", "password": "newsecret"}, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPanicIsRecovered(t *testing.T) {
	env := newTestEnv(t)
	env.h.Mux.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr, resp := env.do(t, http.MethodGet, "/panic", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", resp.Message)
}

func TestPublishFailureDoesNotFailUserCreation(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")

	rr, resp := env.do(t, http.MethodPost, "/users", map[string]any{
		"name": "Mei", "email": "mei@example.com", "roleId": env.merchRole.ID,
	}, env.token(t, env.admin))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)

	_, err := env.repo.GetUserByEmail("mei@example.com")
	assert.NoError(t, err)
}
