package api

import "encoding/json"

type ChatRequest struct {
	// message array is required, dive in and deep validate
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`

	// the public model name; resolved to a backend model before forwarding
	Model string `json:"model" binding:"required"`

	// Enable streaming, defaults to `false` (empty)
	Stream bool `json:"stream,omitempty"`

	StreamOptions *StreamOptions `json:"stream_options,omitempty"`

	// Can be string or []string
	Stop *Stop `json:"stop,omitempty"`

	// LLM parameters. Temperature is a pointer so an absent value is
	// distinguishable from an explicit 0.
	MaxTokens        int      `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             float64  `json:"top_p,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty"`
	Seed             int      `json:"seed,omitempty"`

	// Backend-specific template options. Only ever populated by the
	// request translator; models that reject unknown fields never see
	// the key because it is omitted when empty.
	ChatTemplateKwargs map[string]interface{} `json:"chat_template_kwargs,omitempty"`

	User string `json:"user,omitempty"`
}

type ChatMessage struct {
	Role    string  `json:"role" binding:"required,oneof=user assistant system tool"`
	Content Content `json:"content"` // string or []ContentPart
	Name    string  `json:"name,omitempty"`

	// Reasoning trace channels some backends attach to assistant
	// messages. Two spellings exist in the wild.
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
}

// ReasoningText returns whichever reasoning channel the upstream populated.
func (m *ChatMessage) ReasoningText() string {
	if m.ReasoningContent != "" {
		return m.ReasoningContent
	}
	return m.Reasoning
}

// Content handles the union type: string | []ContentPart
type Content struct {
	Text  string
	Parts []ContentPart
}

func (c *Content) UnmarshalJSON(data []byte) error {
	// Try string first
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	// Try array of parts
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &c.Parts)
	}
	// Null or other?
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// AsText flattens the union into plain text for envelope manipulation.
func (c Content) AsText() string {
	if c.Parts == nil {
		return c.Text
	}
	var out string
	for _, p := range c.Parts {
		if p.Type == "" || p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Stop struct {
	Val []string
}

func (s *Stop) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &s.Val)
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	s.Val = []string{str}
	return nil
}

func (s Stop) MarshalJSON() ([]byte, error) {
	if len(s.Val) == 1 {
		return json.Marshal(s.Val[0])
	}
	return json.Marshal(s.Val)
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}
