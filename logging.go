package main

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey string

const ctxReqIDKey ctxKey = "request_id"

func buildLogger(level string, console bool, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "msg"

	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func withRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return context.WithValue(ctx, ctxReqIDKey, reqID)
}

func requestIDFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxReqIDKey).(string); ok {
		return s
	}
	return ""
}

// logFrom returns a child of parent tagged with the request id carried by ctx.
func logFrom(ctx context.Context, parent zerolog.Logger) *zerolog.Logger {
	l := parent
	if id := requestIDFrom(ctx); id != "" {
		l = parent.With().Str("request_id", id).Logger()
	}
	return &l
}
