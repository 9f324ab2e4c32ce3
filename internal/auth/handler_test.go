package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/forecourt-hq/sentinel/internal/auth"
	"github.com/forecourt-hq/sentinel/internal/shared"
	_ "github.com/forecourt-hq/sentinel/testing"
)

func newHandler(t *testing.T, password string) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	handler := auth.NewHandler(nil, auth.NewService(string(hash)), sessionManager, csrfManager)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, sessionManager
}

func doLogin(t *testing.T, router http.Handler, sessionManager *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.NoError(t, sessionManager.Commit(ctx, res, req, sess))
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	router, sessionManager := newHandler(t, "hunter22")
	res, sess := doLogin(t, router, sessionManager, `{"password":"hunter22"}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "csrfToken")
	require.Equal(t, auth.ManagerActor, sess.User())
}

func TestLoginWrongPassword(t *testing.T) {
	router, sessionManager := newHandler(t, "hunter22")
	res, sess := doLogin(t, router, sessionManager, `{"password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.User())
}

func TestLoginMissingPassword(t *testing.T) {
	router, sessionManager := newHandler(t, "hunter22")
	res, _ := doLogin(t, router, sessionManager, `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	router, sessionManager := newHandler(t, "hunter22")
	_, sess := doLogin(t, router, sessionManager, `{"password":"hunter22"}`)
	require.Equal(t, auth.ManagerActor, sess.User())

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, sessionManager.Commit(ctx, res, req, sess))

	loaded, err := sessionManager.Load(context.Background(), requestWithCookie(res, "/"))
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}

func requestWithCookie(res *httptest.ResponseRecorder, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range res.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			req.AddCookie(c)
		}
	}
	return req
}
