package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const reasoningStream = `data: {"id":"c1","object":"chat.completion.chunk","model":"deepseek-ai/deepseek-r1","choices":[{"index":0,"delta":{"role":"assistant","reasoning_content":"a"}}]}

data: {"id":"c1","object":"chat.completion.chunk","model":"deepseek-ai/deepseek-r1","choices":[{"index":0,"delta":{"reasoning_content":"b"}}]}

data: {"id":"c1","object":"chat.completion.chunk","model":"deepseek-ai/deepseek-r1","choices":[{"index":0,"delta":{"content":"c"},"finish_reason":"stop"}]}

data: [DONE]

`

// feed pushes input through a transformer in fixed-size chunks and returns
// the emitted event payloads with their framing stripped.
func feed(t *testing.T, tr *StreamTransformer, input string, chunkSize int) []string {
	t.Helper()

	var events [][]byte
	data := []byte(input)
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		events = append(events, tr.Next(data[:n])...)
		data = data[n:]
	}
	events = append(events, tr.Flush()...)

	var payloads []string
	for _, ev := range events {
		s := string(ev)
		require.True(t, strings.HasPrefix(s, "data: "), "unframed event: %q", s)
		require.True(t, strings.HasSuffix(s, "\n\n"), "unterminated event: %q", s)
		payloads = append(payloads, strings.TrimSuffix(strings.TrimPrefix(s, "data: "), "\n\n"))
	}
	return payloads
}

func deltaContent(t *testing.T, payload string) string {
	t.Helper()
	return gjson.Get(payload, "choices.0.delta.content").String()
}

func TestStreamTransformer_TraceBracketing(t *testing.T) {
	tr := NewStreamTransformer(true, zap.NewNop())

	payloads := feed(t, tr, reasoningStream, 1<<20)
	require.Len(t, payloads, 5)

	assert.Equal(t, "<think>\na", deltaContent(t, payloads[0]))
	assert.Equal(t, "b", deltaContent(t, payloads[1]))

	// the closing marker travels alone, never glued to real content
	assert.Equal(t, "\n</think>\n\n", deltaContent(t, payloads[2]))
	assert.Equal(t, "c", deltaContent(t, payloads[3]))
	assert.Equal(t, "[DONE]", payloads[4])
	assert.True(t, tr.Done())
}

func TestStreamTransformer_ChunkBoundaryInvariance(t *testing.T) {
	whole := feed(t, NewStreamTransformer(true, zap.NewNop()), reasoningStream, 1<<20)

	for _, size := range []int{1, 2, 3, 7, 64} {
		split := feed(t, NewStreamTransformer(true, zap.NewNop()), reasoningStream, size)
		assert.Equal(t, whole, split, "chunk size %d diverged", size)
	}
}

func TestStreamTransformer_ReasoningFieldNeverForwarded(t *testing.T) {
	for _, show := range []bool{true, false} {
		tr := NewStreamTransformer(show, zap.NewNop())
		for _, payload := range feed(t, tr, reasoningStream, 1<<20) {
			if payload == "[DONE]" {
				continue
			}
			assert.False(t, gjson.Get(payload, "choices.0.delta.reasoning_content").Exists())
			assert.False(t, gjson.Get(payload, "choices.0.delta.reasoning").Exists())
		}
	}
}

func TestStreamTransformer_ShowDisabledDiscardsReasoning(t *testing.T) {
	tr := NewStreamTransformer(false, zap.NewNop())

	payloads := feed(t, tr, reasoningStream, 1<<20)
	require.Len(t, payloads, 4)

	assert.Equal(t, "", deltaContent(t, payloads[0]))
	assert.Equal(t, "", deltaContent(t, payloads[1]))
	assert.Equal(t, "c", deltaContent(t, payloads[2]))
	assert.Equal(t, "[DONE]", payloads[3])
}

func TestStreamTransformer_AlternateReasoningKey(t *testing.T) {
	input := "data: {\"id\":\"c2\",\"choices\":[{\"index\":0,\"delta\":{\"reasoning\":\"r\"}}]}\n\n"

	tr := NewStreamTransformer(true, zap.NewNop())
	payloads := feed(t, tr, input, 1<<20)

	require.Len(t, payloads, 2) // reasoning event plus the flushed closer
	assert.Equal(t, "<think>\nr", deltaContent(t, payloads[0]))
	assert.Equal(t, "\n</think>\n\n", deltaContent(t, payloads[1]))
}

func TestStreamTransformer_MalformedEventDropped(t *testing.T) {
	input := "data: {not json at all\n\n" +
		"data: {\"id\":\"c3\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ok\"}}]}\n\n"

	tr := NewStreamTransformer(true, zap.NewNop())
	payloads := feed(t, tr, input, 1<<20)

	require.Len(t, payloads, 1)
	assert.Equal(t, "ok", deltaContent(t, payloads[0]))
}

func TestStreamTransformer_NonDataLinesIgnored(t *testing.T) {
	input := ": keep-alive comment\n" +
		"event: message\n" +
		"data: {\"id\":\"c4\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"x\"}}]}\n\n"

	tr := NewStreamTransformer(true, zap.NewNop())
	payloads := feed(t, tr, input, 1<<20)

	require.Len(t, payloads, 1)
	assert.Equal(t, "x", deltaContent(t, payloads[0]))
}

func TestStreamTransformer_UnknownFieldsSurvive(t *testing.T) {
	input := "data: {\"id\":\"c5\",\"system_fingerprint\":\"fp_x\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"x\"},\"logprobs\":null}]}\n\n"

	tr := NewStreamTransformer(false, zap.NewNop())
	payloads := feed(t, tr, input, 1<<20)

	require.Len(t, payloads, 1)
	assert.Equal(t, "fp_x", gjson.Get(payloads[0], "system_fingerprint").String())
}

func TestStreamTransformer_UsageTailForwardedAsIs(t *testing.T) {
	input := "data: {\"id\":\"c6\",\"choices\":[],\"usage\":{\"prompt_tokens\":1,\"completion_tokens\":2,\"total_tokens\":3}}\n\n"

	tr := NewStreamTransformer(true, zap.NewNop())
	payloads := feed(t, tr, input, 1<<20)

	require.Len(t, payloads, 1)
	assert.Equal(t, int64(3), gjson.Get(payloads[0], "usage.total_tokens").Int())
}

func TestStreamTransformer_DoneClosesDanglingReasoning(t *testing.T) {
	input := "data: {\"id\":\"c7\",\"choices\":[{\"index\":0,\"delta\":{\"reasoning_content\":\"r\"}}]}\n\n" +
		"data: [DONE]\n\n"

	tr := NewStreamTransformer(true, zap.NewNop())
	payloads := feed(t, tr, input, 1<<20)

	require.Len(t, payloads, 3)
	assert.Equal(t, "<think>\nr", deltaContent(t, payloads[0]))
	assert.Equal(t, "\n</think>\n\n", deltaContent(t, payloads[1]))
	assert.Equal(t, "[DONE]", payloads[2])

	// marker events reuse the envelope of the last real event
	assert.Equal(t, "c7", gjson.Get(payloads[1], "id").String())
}

func TestStreamTransformer_MarkersEscapedOnWire(t *testing.T) {
	input := "data: {\"id\":\"c9\",\"choices\":[{\"index\":0,\"delta\":{\"reasoning_content\":\"r\"}}]}\n\n"

	tr := NewStreamTransformer(true, zap.NewNop())
	events := tr.Next([]byte(input))
	require.Len(t, events, 1)

	// the JSON encoder escapes angle brackets, so the raw bytes carry
	// \u003c sequences while the decoded content carries the markers
	raw := string(events[0])
	assert.Contains(t, raw, `\u003cthink\u003e`)
	assert.NotContains(t, raw, "<think>")

	payload := strings.TrimSuffix(strings.TrimPrefix(raw, "data: "), "\n\n")
	assert.Equal(t, "<think>\nr", gjson.Get(payload, "choices.0.delta.content").String())
}

func TestStreamTransformer_CRLFLines(t *testing.T) {
	input := "data: {\"id\":\"c8\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"x\"}}]}\r\n\r\n"

	tr := NewStreamTransformer(true, zap.NewNop())
	payloads := feed(t, tr, input, 1<<20)

	require.Len(t, payloads, 1)
	assert.Equal(t, "x", deltaContent(t, payloads[0]))
}
