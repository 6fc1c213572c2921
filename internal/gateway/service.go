package gateway

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/halcyon/model-bridge-api/internal/analytics"
	"github.com/halcyon/model-bridge-api/internal/config"
	"github.com/halcyon/model-bridge-api/internal/httpclient"
	"github.com/halcyon/model-bridge-api/internal/resolver"
	"github.com/halcyon/model-bridge-api/internal/store/model"
	"github.com/halcyon/model-bridge-api/internal/translate"
	"github.com/halcyon/model-bridge-api/internal/upstream"
	"github.com/halcyon/model-bridge-api/pkg/api"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// StreamEvent is one framed outbound event, or a terminal error. After an
// Err the channel closes without further data; partial output already sent
// is not retracted.
type StreamEvent struct {
	Data []byte
	Err  error
}

// Service is the business logic for bridging a chat completion: resolve
// the model, translate the request, call the upstream, translate back.
type Service interface {
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	StreamChat(ctx context.Context, req *api.ChatRequest) (<-chan StreamEvent, error)
}

type service struct {
	thinking config.ThinkingConfig
	resolver *resolver.Resolver
	upstream *upstream.Client
	ingestor analytics.Ingestor
	logger   *zap.Logger
}

func NewService(thinking config.ThinkingConfig, res *resolver.Resolver, up *upstream.Client, ingestor analytics.Ingestor, logger *zap.Logger) Service {
	return &service{
		thinking: thinking,
		resolver: res,
		upstream: up,
		ingestor: ingestor,
		logger:   logger,
	}
}

func (s *service) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	start := time.Now()

	backend := s.resolver.Resolve(ctx, req.Model)
	eligible := s.resolver.ThinkingEligible(backend)

	upReq := translate.BuildUpstreamRequest(req, backend, eligible && s.thinking.Enable)

	resp, err := s.upstream.Chat(ctx, upReq)
	if err != nil {
		return nil, mapUpstreamError(err)
	}

	out := translate.BuildResponse(req.Model, resp, eligible, s.thinking.Show)

	log := &model.RequestLog{
		ID:             out.ID,
		RequestedModel: req.Model,
		ResolvedModel:  backend,
		Thinking:       eligible,
		StatusCode:     200,
		LatencyMS:      time.Since(start).Milliseconds(),
		CreatedAt:      time.Now(),
	}
	if len(out.Choices) > 0 {
		log.FinishReason = out.Choices[0].FinishReason
	}
	if out.Usage != nil {
		log.InputTokens = out.Usage.PromptTokens
		log.OutputTokens = out.Usage.CompletionTokens
	}
	s.ingestor.LogRequest(log)

	return out, nil
}

func (s *service) StreamChat(ctx context.Context, req *api.ChatRequest) (<-chan StreamEvent, error) {
	start := time.Now()

	backend := s.resolver.Resolve(ctx, req.Model)
	eligible := s.resolver.ThinkingEligible(backend)

	upReq := translate.BuildUpstreamRequest(req, backend, eligible && s.thinking.Enable)

	// Connect synchronously so a rejected call still carries the
	// upstream status; once events flow the status is already written.
	body, cancel, err := s.upstream.OpenStream(ctx, upReq)
	if err != nil {
		return nil, mapUpstreamError(err)
	}

	ch := make(chan StreamEvent)

	go func() {
		defer close(ch)
		defer cancel()
		defer func() { _ = body.Close() }()

		tr := translate.NewStreamTransformer(s.thinking.Show, s.logger)

		emit := func(events [][]byte) bool {
			for _, ev := range events {
				select {
				case ch <- StreamEvent{Data: ev}:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		buf := make([]byte, 4096)
		for {
			n, readErr := body.Read(buf)
			if n > 0 {
				if !emit(tr.Next(buf[:n])) {
					return
				}
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				// mid-stream failure: log and end the stream; the
				// caller keeps whatever was already delivered
				s.logger.Error("upstream stream failed mid-flight",
					zap.String("backend", backend), zap.Error(readErr))
				select {
				case ch <- StreamEvent{Err: readErr}:
				case <-ctx.Done():
				}
				return
			}
		}

		if !emit(tr.Flush()) {
			return
		}
		if !tr.Done() {
			// upstream ended without its own signal; close the frame
			// protocol for the caller
			if !emit([][]byte{translate.DoneEvent()}) {
				return
			}
		}

		s.ingestor.LogRequest(&model.RequestLog{
			ID:             "chatcmpl-" + uuid.NewString(),
			RequestedModel: req.Model,
			ResolvedModel:  backend,
			Thinking:       eligible,
			Stream:         true,
			StatusCode:     200,
			LatencyMS:      time.Since(start).Milliseconds(),
			CreatedAt:      time.Now(),
		})
	}()

	return ch, nil
}

// mapUpstreamError converts transport failures into the outbound error
// envelope, carrying the upstream status code when one exists.
func mapUpstreamError(err error) *api.Error {
	var ue *httpclient.UpstreamError
	if !errors.As(err, &ue) {
		return api.UpstreamError(0, "upstream request failed", err)
	}

	message := gjson.GetBytes(ue.Body, "error.message").String()
	if message == "" {
		message = "upstream request failed"
	}

	return api.UpstreamError(ue.StatusCode, message, err)
}
