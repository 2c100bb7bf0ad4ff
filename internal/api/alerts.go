package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novarobotics/stormdrain/internal/metrics"
)

const keepAliveInterval = 25 * time.Second

// streamAlerts pushes high-risk alerts to the client as Server-Sent Events
// until either side goes away.
func (h *Handler) streamAlerts(c *gin.Context) {
	if h.svc.Alerts == nil {
		errorJSON(c, http.StatusServiceUnavailable, "alert stream not available")
		return
	}

	id, alerts := h.svc.Alerts.Subscribe()
	defer h.svc.Alerts.Unsubscribe(id)

	metrics.AlertSubscribers.Inc()
	defer metrics.AlertSubscribers.Dec()

	slog.Debug("alert stream opened", "subscriber", id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	// send headers now so clients see the stream open before the first alert
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case a, ok := <-alerts:
			if !ok {
				return false
			}
			c.SSEvent("alert", a)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})

	slog.Debug("alert stream closed", "subscriber", id)
}
