package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/halcyon/model-bridge-api/internal/config"
	"github.com/halcyon/model-bridge-api/internal/httpclient"
	"github.com/halcyon/model-bridge-api/pkg/api"
	"go.uber.org/zap"
)

// Client talks to the backend inference API. One client is shared by all
// requests; per-call deadlines come from contexts, not the http.Client.
type Client struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	requestTimeout time.Duration
	probeTimeout   time.Duration
	logger         *zap.Logger
}

func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		client:         &http.Client{},
		requestTimeout: cfg.RequestTimeout,
		probeTimeout:   cfg.ProbeTimeout,
		logger:         logger,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}
}

func (c *Client) completionsURL() string {
	return fmt.Sprintf("%s/chat/completions", c.baseURL)
}

// Chat issues a non-streaming completion call.
func (c *Client) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req.Stream = false

	var resp api.ChatResponse
	if err := httpclient.SendRequest(ctx, c.client, http.MethodPost, c.completionsURL(), c.headers(), req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// OpenStream starts a streaming completion call and returns the raw body
// once the upstream has accepted the request. The returned cancel func
// releases the call's deadline and must be invoked when the body is done.
func (c *Client) OpenStream(ctx context.Context, req *api.ChatRequest) (io.ReadCloser, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)

	req.Stream = true

	body, err := httpclient.OpenStream(ctx, c.client, http.MethodPost, c.completionsURL(), c.headers(), req)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	return body, cancel, nil
}

// Probe checks whether a public name is itself a valid backend model by
// issuing a minimal one-token completion. Any 2xx means yes; every other
// outcome (timeout included) means no.
func (c *Client) Probe(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	probe := &api.ChatRequest{
		Model: model,
		Messages: []api.ChatMessage{
			{Role: "user", Content: api.Content{Text: "ping"}},
		},
		MaxTokens: 1,
	}

	start := time.Now()
	err := httpclient.SendRequest(ctx, c.client, http.MethodPost, c.completionsURL(), c.headers(), probe, nil)
	if err != nil {
		c.logger.Debug("model probe rejected",
			zap.String("model", model),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	return nil
}
