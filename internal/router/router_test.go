package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/middleware"
	"github.com/psds-microservice/helpy/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNew_ServiceRoutes(t *testing.T) {
	h, err := New(Options{Log: zap.NewNop()})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, paths.PathHealth, nil).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, paths.PathReady, nil).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/metrics", nil).Code)

	w := serve(t, h, http.MethodGet, paths.PathSwagger+"/openapi.json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/telegram/webhook")
}

func TestNew_ReadyReportsDatabase(t *testing.T) {
	h, err := New(Options{Ping: func(context.Context) error { return errors.New("down") }})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, http.MethodGet, paths.PathReady, nil).Code)
}

func TestNew_TelegramRoutes(t *testing.T) {
	tg := handler.NewTelegramHandler(nil, nil, zap.NewNop())
	h, err := New(Options{Telegram: tg, WebhookSecret: "hook"})
	require.NoError(t, err)

	w := serve(t, h, http.MethodOptions, "/api/v1/telegram/webhook", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(t, h, http.MethodOptions, "/api/v1/telegram/send", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "x-caller-id")

	// без секрета до intake дело не доходит
	w = serve(t, h, http.MethodPost, "/api/v1/telegram/webhook", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(t, h, http.MethodPost, "/api/v1/telegram/send", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(t, h, http.MethodPost, "/api/v1/telegram/send", map[string]string{middleware.HeaderCallerID: "agent-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
