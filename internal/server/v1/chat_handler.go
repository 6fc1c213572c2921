package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/halcyon/model-bridge-api/internal/gateway"
	"github.com/halcyon/model-bridge-api/internal/server/validator"
	"github.com/halcyon/model-bridge-api/pkg/api"
)

type ChatHandler struct {
	service gateway.Service
}

func NewChatHandler(service gateway.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) CreateCompletion(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// invalid input fails before any resolution or upstream call
		_ = c.Error(api.ValidationError(validator.ParseError(err)))
		return
	}

	// if we want to stream the response, roll down into streaming
	if req.Stream {
		h.handleStream(c, &req)
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) handleStream(c *gin.Context, req *api.ChatRequest) {
	streamChan, err := h.service.StreamChat(c.Request.Context(), req)
	if err != nil {
		// nothing has been written yet, so the envelope still applies
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			c.JSON(apiErr.Status, api.Envelope(apiErr))
			return
		}

		c.JSON(http.StatusInternalServerError, api.Envelope(
			api.InternalError("Failed to open upstream stream", err),
		))
		return
	}

	// set headers for sse
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	// consume the channel and flush each event to the caller; events
	// arrive fully framed, including the terminating [DONE]
	c.Stream(func(w io.Writer) bool {
		event, ok := <-streamChan
		if !ok {
			return false
		}

		// the status is already on the wire; a failure just ends the stream
		if event.Err != nil {
			return false
		}

		if _, err := w.Write(event.Data); err != nil {
			return false
		}
		return true
	})
}
