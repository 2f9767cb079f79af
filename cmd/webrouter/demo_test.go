package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sembiance/webrouter"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "json").Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(&buf, "error", "text").Info("hidden")
	assert.Empty(t, buf.String())
}

func TestDemoRoutes(t *testing.T) {
	router, err := webrouter.NewInlineRouter(context.Background(), webrouter.Options{
		UploadDir:  t.TempDir(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		SilentMode: true,
	})
	require.NoError(t, err)
	defer router.Close()
	registerDemoRoutes(router, "templates")

	for _, path := range []string{"/", "/index.html"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "text/html;charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "Hello, Roberto!")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/testjson", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"abc":123}`, rec.Body.String())
}
