package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "debug", Output: &buf, Service: "appforge-test", Version: "0.0.1"})

	ctx := WithRequestID(context.Background(), "req-42")
	l := FromContext(ctx, "generate")
	l.Info().Msg("turn finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "generate", entry["operation"])
	assert.Equal(t, "appforge-test", entry["service"])
	assert.Equal(t, "turn finished", entry["message"])
}

func TestFromContext_UnknownRequest(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "info", Output: &buf})

	l := FromContext(context.Background(), "publish")
	l.Warn().Msg("no id")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "unknown", entry["request_id"])
	assert.Equal(t, "appforge", entry["service"])
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))
}
