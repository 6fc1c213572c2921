package translate

import (
	"time"

	"github.com/google/uuid"
	"github.com/halcyon/model-bridge-api/pkg/api"
)

// BuildResponse translates a complete upstream response into the outbound
// envelope. The envelope gets a fresh id and timestamp and echoes the
// caller's requested model name, never the resolved backend name.
func BuildResponse(requestedModel string, upstream *api.ChatResponse, thinkingEligible, showThinking bool) *api.ChatResponse {
	out := &api.ChatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   requestedModel,
	}

	for i, choice := range upstream.Choices {
		var content, reasoning string
		role := "assistant"
		if choice.Message != nil {
			content = choice.Message.Content.AsText()
			reasoning = choice.Message.ReasoningText()
			if choice.Message.Role != "" {
				role = choice.Message.Role
			}
		}

		// Some backends are not thinking-eligible yet still emit an
		// inline trace in plain text. Pull it out so the display policy
		// applies uniformly.
		if !thinkingEligible && reasoning == "" && HasInlineThinking(content) {
			content, reasoning = SplitInlineThinking(content)
		}

		if reasoning != "" && showThinking {
			content = WrapThinking(reasoning, content)
		}

		out.Choices = append(out.Choices, api.Choice{
			Index: i,
			Message: &api.ChatMessage{
				Role:    role,
				Content: api.Content{Text: content},
			},
			FinishReason: choice.FinishReason,
		})
	}

	// Usage counters pass through verbatim; absent counters become zeros.
	if upstream.Usage != nil {
		out.Usage = upstream.Usage
	} else {
		out.Usage = &api.ResponseUsage{}
	}

	return out
}
