package translate

import (
	"testing"

	"github.com/halcyon/model-bridge-api/pkg/api"
	"github.com/stretchr/testify/assert"
)

func baseRequest() *api.ChatRequest {
	return &api.ChatRequest{
		Model: "gpt-4",
		Messages: []api.ChatMessage{
			{Role: "user", Content: api.Content{Text: "hello"}},
		},
	}
}

func TestBuildUpstreamRequest_Defaults(t *testing.T) {
	req := baseRequest()

	out := BuildUpstreamRequest(req, "meta/llama-3.1-405b-instruct", false)

	assert.Equal(t, "meta/llama-3.1-405b-instruct", out.Model)
	assert.Equal(t, DefaultMaxTokens, out.MaxTokens)
	if assert.NotNil(t, out.Temperature) {
		assert.Equal(t, DefaultTemperature, *out.Temperature)
	}
	// untouched input
	assert.Equal(t, "gpt-4", req.Model)
	assert.Nil(t, req.Temperature)
}

func TestBuildUpstreamRequest_CallerValuesWin(t *testing.T) {
	zero := 0.0
	req := baseRequest()
	req.Temperature = &zero
	req.MaxTokens = 128

	out := BuildUpstreamRequest(req, "backend", false)

	// an explicit 0 temperature is a real value, not an absence
	assert.Equal(t, 0.0, *out.Temperature)
	assert.Equal(t, 128, out.MaxTokens)
}

func TestBuildUpstreamRequest_ThinkingDirective(t *testing.T) {
	out := BuildUpstreamRequest(baseRequest(), "deepseek-ai/deepseek-r1", true)
	assert.Equal(t, map[string]interface{}{"thinking": true}, out.ChatTemplateKwargs)
}

func TestBuildUpstreamRequest_ThinkingOmittedNotFalse(t *testing.T) {
	req := baseRequest()
	// even a caller-supplied directive is stripped for ineligible backends
	req.ChatTemplateKwargs = map[string]interface{}{"thinking": true}

	out := BuildUpstreamRequest(req, "meta/llama-3.1-8b-instruct", false)
	assert.Nil(t, out.ChatTemplateKwargs)
}

func TestBuildUpstreamRequest_MessagesVerbatim(t *testing.T) {
	req := baseRequest()
	req.Messages = append(req.Messages, api.ChatMessage{
		Role: "assistant", Content: api.Content{Text: "hi there"},
	})

	out := BuildUpstreamRequest(req, "backend", false)
	assert.Equal(t, req.Messages, out.Messages)
}
