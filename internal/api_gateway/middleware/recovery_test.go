package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecoveryRouter(logBuffer *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(slog.New(slog.NewJSONHandler(logBuffer, &slog.HandlerOptions{Level: slog.LevelError}))))
	router.Use(CorrelationID())
	return router
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("RecoversAndLogsCaller", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newRecoveryRouter(&logBuffer)
		router.POST("/stakes", AccountIdentity(), func(c *gin.Context) {
			panic(errors.New("nil selection"))
		})

		req := httptest.NewRequest(http.MethodPost, "/stakes", nil)
		req.Header.Set(CorrelationIDHeader, "req-77")
		req.Header.Set(AccountIDHeader, "punter-9")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		errorField, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", errorField["code"])
		assert.Equal(t, "req-77", body["correlation_id"])
		assert.NotContains(t, rr.Body.String(), "nil selection")

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"msg":"Panic recovered"`)
		assert.Contains(t, logOutput, `"panic":"nil selection"`)
		assert.Contains(t, logOutput, `"stack":`)
		assert.Contains(t, logOutput, `"path":"/stakes"`)
		assert.Contains(t, logOutput, `"correlation_id":"req-77"`)
		assert.Contains(t, logOutput, `"account_id":"punter-9"`)
	})

	t.Run("ReraisesAbortHandler", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newRecoveryRouter(&logBuffer)
		router.GET("/abort", func(c *gin.Context) {
			panic(http.ErrAbortHandler)
		})

		req := httptest.NewRequest(http.MethodGet, "/abort", nil)
		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			router.ServeHTTP(httptest.NewRecorder(), req)
		})
		assert.Empty(t, logBuffer.String())
	})

	t.Run("NoPanicNoEffect", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newRecoveryRouter(&logBuffer)
		router.GET("/ok", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, logBuffer.String())
	})
}
