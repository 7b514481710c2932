package handlers

import (
	"bufio"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AIReplyHandler streams AI-generated replies over Server-Sent Events.
type AIReplyHandler struct {
	replies *service.ReplyService
	logger  *zap.Logger
}

// NewAIReplyHandler constructs handler.
func NewAIReplyHandler(replyService *service.ReplyService, logger *zap.Logger) *AIReplyHandler {
	return &AIReplyHandler{replies: replyService, logger: logger}
}

// StreamReply GET /tickets/:id/ai-response.
//
// Ownership and the provider connection are checked before any byte
// is written, so NotFound and UpstreamUnavailable still map to their
// status codes. After that the response is committed; failures are
// reported as an "error" event on the stream.
func (h *AIReplyHandler) StreamReply(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	stream, err := h.replies.OpenStream(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	ticketID := c.Params("id")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer stream.Close()

		for {
			fragment, err := stream.Recv()
			if err == io.EOF {
				writeSSEEvent(w, "done", "[DONE]")
				_ = w.Flush()
				return
			}
			if err != nil {
				h.logger.Warn("ai reply stream failed",
					zap.String("ticket_id", ticketID), zap.Error(err))
				writeSSEEvent(w, "error", "upstream unavailable")
				_ = w.Flush()
				return
			}

			writeSSEData(w, fragment)
			// A flush error means the client went away; stop pulling
			// so the upstream call is canceled and nothing partial is
			// persisted.
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

// writeSSEData frames a fragment as one SSE event. Newlines become
// additional data lines, which a conforming client rejoins.
func writeSSEData(w *bufio.Writer, data string) {
	for _, line := range strings.Split(data, "\n") {
		_, _ = w.WriteString("data: " + line + "\n")
	}
	_, _ = w.WriteString("\n")
}

func writeSSEEvent(w *bufio.Writer, event, data string) {
	_, _ = w.WriteString("event: " + event + "\n")
	writeSSEData(w, data)
}
