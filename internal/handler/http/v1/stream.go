package v1

import (
	"io"

	"github.com/gin-gonic/gin"
)

// @Summary Stream incident lifecycle events
// @Description Server-sent event stream of incident lifecycle events (created, updated, verified, deleted). Each SSE event name is the lifecycle event type and the data is the JSON payload.
// @Tags Notifications
// @Produce text/event-stream
// @Security ApiKeyAuth
// @Success 200 {string} string "SSE stream"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /notifications/stream [get]
func (h *Handler) streamEvents(c *gin.Context) {
	log := h.logger.WithField("method", "streamEvents")

	ctx := c.Request.Context()
	eventCh, closeFn := h.eventStream.Subscribe(ctx)
	defer func() {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("Failed to close event subscription")
		}
	}()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	log.Info("Client subscribed to event stream")
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case <-ctx.Done():
			return false
		}
	})
	log.Info("Client disconnected from event stream")
}
