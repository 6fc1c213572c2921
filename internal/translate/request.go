package translate

import "github.com/halcyon/model-bridge-api/pkg/api"

// Defaults applied when the caller leaves a knob unset.
const (
	DefaultTemperature = 0.6
	DefaultMaxTokens   = 4096
)

// BuildUpstreamRequest produces the request forwarded to the backend.
// Messages are copied verbatim. The thinking directive is injected only for
// eligible backends; for everything else the key is omitted entirely so
// models that reject unknown fields never see it.
func BuildUpstreamRequest(req *api.ChatRequest, backend string, withThinking bool) *api.ChatRequest {
	out := *req
	out.Model = backend

	if out.Temperature == nil {
		t := float64(DefaultTemperature)
		out.Temperature = &t
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = DefaultMaxTokens
	}

	if withThinking {
		out.ChatTemplateKwargs = map[string]interface{}{"thinking": true}
	} else {
		out.ChatTemplateKwargs = nil
	}

	return &out
}
