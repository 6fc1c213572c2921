package translate

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

const (
	doneSignal  = "[DONE]"
	contentPath = "choices.0.delta.content"
	deltaPath   = "choices.0.delta"
)

// streamed marker text; the opener precedes the first reasoning delta, the
// closer always travels in an event of its own so append-only renderers
// can terminate the block cleanly.
const (
	thinkOpenChunk  = ThinkStart + "\n"
	thinkCloseChunk = "\n" + ThinkEnd + "\n\n"
)

var errMalformedEvent = errors.New("malformed stream event payload")

// StreamTransformer re-frames an upstream SSE byte stream, merging the
// reasoning channel into the content channel. Input chunks may split lines
// and JSON payloads at arbitrary byte offsets; the transformer owns line
// reconstruction. One transformer exists per in-flight stream and is never
// shared.
type StreamTransformer struct {
	showThinking bool
	logger       *zap.Logger

	buffer        string
	reasoningOpen bool
	doneSeen      bool

	// last decodable payload, used as the envelope template when the
	// transformer synthesizes marker events
	template string
}

func NewStreamTransformer(showThinking bool, logger *zap.Logger) *StreamTransformer {
	return &StreamTransformer{
		showThinking: showThinking,
		logger:       logger,
	}
}

// Next consumes one upstream chunk and returns zero or more fully framed
// output events. Feeding a byte stream split at any boundaries produces
// the same output as feeding it whole.
func (t *StreamTransformer) Next(chunk []byte) [][]byte {
	t.buffer += string(chunk)

	lines := strings.Split(t.buffer, "\n")
	t.buffer = lines[len(lines)-1]

	var out [][]byte
	for _, line := range lines[:len(lines)-1] {
		line = strings.TrimSuffix(line, "\r")
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// comments, event names, blank separators
			continue
		}
		payload = strings.TrimSpace(payload)

		if payload == doneSignal {
			if t.reasoningOpen {
				out = append(out, t.markerEvent(thinkCloseChunk))
				t.reasoningOpen = false
			}
			t.doneSeen = true
			out = append(out, frame(payload))
			continue
		}

		events, err := t.transform(payload)
		if err != nil {
			// a single mangled event must not kill a healthy stream
			t.logger.Warn("dropping malformed stream event",
				zap.String("payload", payload), zap.Error(err))
			continue
		}
		out = append(out, events...)
	}

	return out
}

// Flush closes a dangling reasoning section when the upstream ended
// without a termination signal.
func (t *StreamTransformer) Flush() [][]byte {
	if !t.reasoningOpen {
		return nil
	}
	t.reasoningOpen = false
	return [][]byte{t.markerEvent(thinkCloseChunk)}
}

// Done reports whether the upstream sent its own termination signal.
func (t *StreamTransformer) Done() bool {
	return t.doneSeen
}

func (t *StreamTransformer) transform(payload string) ([][]byte, error) {
	if !gjson.Valid(payload) {
		return nil, errMalformedEvent
	}
	t.template = payload

	reasoning := deltaReasoning(payload)
	content := gjson.Get(payload, contentPath).String()

	// the reasoning channel never reaches the caller in its own field
	cleaned, _ := sjson.Delete(payload, deltaPath+".reasoning_content")
	cleaned, _ = sjson.Delete(cleaned, deltaPath+".reasoning")

	if !gjson.Get(cleaned, deltaPath).Exists() {
		// no delta (e.g. a usage-only tail chunk): forward as-is
		return [][]byte{frame(cleaned)}, nil
	}

	if !t.showThinking {
		ev, err := sjson.Set(cleaned, contentPath, content)
		if err != nil {
			return nil, err
		}
		return [][]byte{frame(ev)}, nil
	}

	var out [][]byte

	if reasoning != "" {
		text := reasoning
		if !t.reasoningOpen {
			text = thinkOpenChunk + text
			t.reasoningOpen = true
		}
		ev, err := sjson.Set(cleaned, contentPath, text)
		if err != nil {
			return nil, err
		}
		out = append(out, frame(ev))

		if content == "" {
			return out, nil
		}
	}

	// first content after a reasoning run: the closing marker gets its
	// own event, never concatenated with real content
	if t.reasoningOpen && content != "" {
		out = append(out, t.markerEvent(thinkCloseChunk))
		t.reasoningOpen = false
	}

	ev, err := sjson.Set(cleaned, contentPath, content)
	if err != nil {
		return nil, err
	}
	out = append(out, frame(ev))

	return out, nil
}

// markerEvent synthesizes a delta event carrying only marker text, reusing
// the last seen envelope so ids and model names stay consistent.
func (t *StreamTransformer) markerEvent(marker string) []byte {
	tpl := t.template
	if tpl == "" {
		tpl = `{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{}}]}`
	}

	ev, _ := sjson.Set(tpl, deltaPath, map[string]interface{}{"content": marker})
	ev, _ = sjson.Set(ev, "choices.0.finish_reason", nil)
	ev, _ = sjson.Delete(ev, "usage")
	return frame(ev)
}

// DoneEvent is the outbound stream-termination event.
func DoneEvent() []byte {
	return frame(doneSignal)
}

func deltaReasoning(payload string) string {
	if v := gjson.Get(payload, deltaPath+".reasoning_content"); v.Exists() {
		return v.String()
	}
	return gjson.Get(payload, deltaPath+".reasoning").String()
}

func frame(payload string) []byte {
	return []byte("data: " + payload + "\n\n")
}
