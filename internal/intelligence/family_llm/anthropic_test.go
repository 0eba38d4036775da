package family_llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/pkg/errors"
)

func newAnthropicTestClient(t *testing.T, h http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewAnthropicClient(AnthropicConfig{BaseURL: srv.URL, APIKey: "sk-test", RetryMax: 2}, nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestAnalyze_Success(t *testing.T) {
	c := newAnthropicTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req messageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-sonnet-4-20250514", req.Model)
		assert.Equal(t, 1024, req.MaxTokens)
		assert.Equal(t, "sys", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[0].Content)

		w.Write([]byte(`{"content":[{"type":"text","text":"contin"},{"type":"tool_use"},{"type":"text","text":"uation"}]}`))
	})

	out, err := c.Analyze(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "continuation", out)
}

func TestAnalyze_RetriesOverloaded(t *testing.T) {
	var calls int32
	c := newAnthropicTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(529)
		default:
			w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
		}
	})

	out, err := c.Analyze(context.Background(), "", "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAnalyze_ErrorMessage(t *testing.T) {
	var calls int32
	c := newAnthropicTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	})

	_, err := c.Analyze(context.Background(), "", "x")
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Equal(t, http.StatusBadRequest, errors.UpstreamStatus(err))
	assert.Contains(t, err.Error(), "max_tokens too large")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnalyze_MissingKey(t *testing.T) {
	c := NewAnthropicClient(AnthropicConfig{}, nil)
	_, err := c.Analyze(context.Background(), "", "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIModelNotAvailable))
}

func TestAnalyze_Cancelled(t *testing.T) {
	c := newAnthropicTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Analyze(ctx, "", "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeCancelled))
}

func TestAnalyzerFunc(t *testing.T) {
	var a Analyzer = AnalyzerFunc(func(_ context.Context, system, user string) (string, error) {
		return system + "|" + user, nil
	})
	out, err := a.Analyze(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "s|u", out)
}

//Personal.AI order the ending
