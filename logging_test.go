package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := buildLogger("warn", false, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "v", line["k"])
	assert.Contains(t, line, "timestamp")
}

func TestLogFrom_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := buildLogger("debug", false, &buf)

	ctx := withRequestID(context.Background(), "abc123")
	logFrom(ctx, log).Info().Msg("x")
	assert.Contains(t, buf.String(), `"request_id":"abc123"`)

	assert.NotEmpty(t, requestIDFrom(withRequestID(context.Background(), "")))
}

func TestRequestLogger_EchoesIncomingID(t *testing.T) {
	var buf bytes.Buffer
	log := buildLogger("debug", false, &buf)
	h := requestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-1", requestIDFrom(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-1", rr.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"status":418`)
}

func TestRecoverer_TurnsPanicInto500(t *testing.T) {
	var buf bytes.Buffer
	h := recoverer(buildLogger("info", false, &buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "kaboom")
}
