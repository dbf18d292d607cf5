package ctxlogger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttrsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)}).With("component", "test")

	parent := AppendCtx(context.Background(), slog.String("request_id", "r1"))
	child := AppendCtx(parent, slog.String("room", "movie-night"))
	logger.InfoContext(child, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "r1", rec["request_id"])
	assert.Equal(t, "movie-night", rec["room"])
	assert.Equal(t, "test", rec["component"])

	buf.Reset()
	logger.InfoContext(parent, "again")
	var parentRec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parentRec))
	assert.NotContains(t, parentRec, "room", "child attributes must not leak into the parent context")
}
