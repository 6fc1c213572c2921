package test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/halcyon/model-bridge-api/internal/analytics"
	"github.com/halcyon/model-bridge-api/internal/config"
	"github.com/halcyon/model-bridge-api/internal/gateway"
	"github.com/halcyon/model-bridge-api/internal/resolver"
	"github.com/halcyon/model-bridge-api/internal/server"
	"github.com/halcyon/model-bridge-api/internal/server/validator"
	"github.com/halcyon/model-bridge-api/internal/upstream"
	"github.com/halcyon/model-bridge-api/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const testAPIKey = "test-api-key"

// startBridge wires a full in-process bridge against a mock upstream and
// returns the bridge's base URL.
func startBridge(t *testing.T, upstreamHandler http.Handler) string {
	t.Helper()

	validator.InitValidator()

	mock := httptest.NewServer(upstreamHandler)
	t.Cleanup(mock.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:    "0",
			Env:     "test",
			APIKeys: []string{testAPIKey},
		},
		Upstream: config.UpstreamConfig{
			BaseURL:        mock.URL,
			APIKey:         "upstream-key",
			RequestTimeout: 10 * time.Second,
			ProbeTimeout:   time.Second,
		},
		Thinking: config.ThinkingConfig{
			Enable: true,
			Show:   true,
			Models: []string{"deepseek-ai/deepseek-r1"},
		},
		Resolver: config.ResolverConfig{
			Aliases: map[string]string{
				"deepseek": "deepseek-ai/deepseek-r1",
				"plain":    "meta/llama-3.1-8b-instruct",
			},
			Fallback: config.FallbackConfig{
				Large:  "meta/llama-3.1-405b-instruct",
				Medium: "meta/llama-3.1-70b-instruct",
				Small:  "meta/llama-3.1-8b-instruct",
			},
		},
	}

	logger := zap.NewNop()
	client := upstream.NewClient(cfg.Upstream, logger)
	res := resolver.New(cfg.Resolver, cfg.Thinking.Models, client, nil, analytics.NewNop(), logger)
	service := gateway.NewService(cfg.Thinking, res, client, analytics.NewNop(), logger)

	srv := httptest.NewServer(server.New(cfg, logger, service, res, nil).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func mockUpstream() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, line := range []string{
				`data: {"id":"up-s","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"reasoning_content":"pondering"}}]}`,
				`data: {"id":"up-s","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"streamed answer"},"finish_reason":"stop"}]}`,
				`data: [DONE]`,
			} {
				_, _ = w.Write([]byte(line + "\n\n"))
				flusher.Flush()
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "up-1",
			"model": "` + req.Model + `",
			"choices": [{"index":0,"message":{"role":"assistant","content":"the answer"},"finish_reason":"stop"}],
			"usage": {"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}
		}`))
	})
	return mux
}

func postJSON(t *testing.T, url string, payload interface{}, authorized bool) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealthCheck(t *testing.T) {
	base := startBridge(t, mockUpstream())

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChatCompletion(t *testing.T) {
	base := startBridge(t, mockUpstream())

	resp := postJSON(t, base+"/v1/chat/completions", map[string]interface{}{
		"model":    "plain",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	}, true)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "plain", out.Model)
	assert.Equal(t, "the answer", out.Choices[0].Message.Content.AsText())
	assert.Equal(t, 6, out.Usage.TotalTokens)
}

func TestChatCompletion_EmptyMessagesRejected(t *testing.T) {
	base := startBridge(t, mockUpstream())

	resp := postJSON(t, base+"/v1/chat/completions", map[string]interface{}{
		"model":    "plain",
		"messages": []map[string]string{},
	}, true)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "invalid_request_error", envelope.Error.Type)
	assert.NotEmpty(t, envelope.Error.Message)
}

func TestChatCompletion_RequiresAuth(t *testing.T) {
	base := startBridge(t, mockUpstream())

	resp := postJSON(t, base+"/v1/chat/completions", map[string]interface{}{
		"model":    "plain",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	}, false)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatCompletion_Streaming(t *testing.T) {
	base := startBridge(t, mockUpstream())

	resp := postJSON(t, base+"/v1/chat/completions", map[string]interface{}{
		"model":    "deepseek",
		"stream":   true,
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	}, true)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	require.NoError(t, scanner.Err())
	require.NotEmpty(t, lines)
	assert.Equal(t, "data: [DONE]", lines[len(lines)-1])

	// The JSON encoder escapes angle brackets on the wire, so reassemble
	// the decoded delta text before asserting on the markers.
	var text strings.Builder
	for _, line := range lines[:len(lines)-1] {
		payload := strings.TrimPrefix(line, "data: ")
		assert.False(t, gjson.Get(payload, "choices.0.delta.reasoning_content").Exists())
		text.WriteString(gjson.Get(payload, "choices.0.delta.content").String())
	}

	full := text.String()
	assert.Contains(t, full, "<think>\npondering")
	assert.Contains(t, full, "\n</think>\n\n")
	assert.Contains(t, full, "streamed answer")
}

func TestChatCompletion_UpstreamErrorEnvelope(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"backend melting"}}`))
	})
	base := startBridge(t, failing)

	resp := postJSON(t, base+"/v1/chat/completions", map[string]interface{}{
		"model":    "plain",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	}, true)
	defer resp.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "backend melting", envelope.Error.Message)
	assert.Equal(t, "api_error", envelope.Error.Type)
}

func TestListModels(t *testing.T) {
	base := startBridge(t, mockUpstream())

	req, _ := http.NewRequest(http.MethodGet, base+"/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Object string      `json:"object"`
		Data   []api.Model `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "list", out.Object)

	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, "deepseek")
	assert.Contains(t, ids, "plain")
	assert.Contains(t, ids, "meta/llama-3.1-405b-instruct")
}

func TestUnknownRouteEnvelope(t *testing.T) {
	base := startBridge(t, mockUpstream())

	resp, err := http.Get(base + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "not_found_error")
}
