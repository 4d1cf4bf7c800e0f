// Package sse bridges one long-lived HTTP connection to one broadcaster
// subscription, translating list events into Server-Sent-Event frames.
package sse

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/familylists/realtime/pkg/broadcaster"
	"github.com/familylists/realtime/pkg/listevent"
	"github.com/familylists/realtime/pkg/observability/logger"
)

// AuthorizeStreamFunc validates access to a list's stream before subscribing.
type AuthorizeStreamFunc func(c *gin.Context, listID string) error

// HandlerConfig configures the SSE stream endpoint.
type HandlerConfig struct {
	Broadcaster *broadcaster.Broadcaster
	Logger      logger.Logger
	// HeartbeatInterval bounds how long the handler waits without traffic
	// before writing a comment frame; the failed write on a dead connection
	// is what detects disconnects on idle lists. Default 30s.
	HeartbeatInterval time.Duration

	AuthorizeStream AuthorizeStreamFunc
}

// Handler exposes the SSE stream endpoint.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler creates an SSE handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Broadcaster == nil {
		return nil, errors.New("broadcaster is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Handler{cfg: cfg}, nil
}

// Stream returns the gin handler for GET /v1/lists/:list_id/stream.
func (h *Handler) Stream() gin.HandlerFunc {
	return func(c *gin.Context) {
		listID := strings.TrimSpace(c.Param("list_id"))
		if listID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing list id"})
			return
		}

		if h.cfg.AuthorizeStream != nil {
			if err := h.cfg.AuthorizeStream(c, listID); err != nil {
				c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
				return
			}
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "response writer does not support streaming"})
			return
		}

		sub, err := h.cfg.Broadcaster.Subscribe(listID)
		if err != nil {
			if errors.Is(err, broadcaster.ErrTooManySubscribers) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
			return
		}
		defer h.cfg.Broadcaster.Unsubscribe(sub)

		log := h.cfg.Logger.With("list_id", listID, "subscriber_id", sub.ID())
		log.Info("sse stream opened")

		header := c.Writer.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache, no-transform")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")

		c.Writer.WriteHeader(http.StatusOK)
		flusher.Flush()

		if err := writeConnectedFrame(c.Writer, listID); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(h.cfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				log.Info("sse client disconnected")
				return
			case <-sub.Closed():
				log.Info("sse subscription closed")
				return
			case <-ticker.C:
				if err := writeComment(c.Writer, "heartbeat"); err != nil {
					log.Info("sse heartbeat write failed, closing stream")
					return
				}
				flusher.Flush()
			case evt := <-sub.Events():
				if err := writeEventFrame(c.Writer, evt, log); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeConnectedFrame(w http.ResponseWriter, listID string) error {
	_, err := fmt.Fprintf(w, "event: connected\ndata: {\"list_id\": %q}\n\n", listID)
	return err
}

func writeComment(w http.ResponseWriter, value string) error {
	_, err := w.Write([]byte(": " + value + "\n\n"))
	return err
}

// writeEventFrame renders one event. A serialization failure skips only that
// frame; the stream stays alive. A write failure ends the stream.
func writeEventFrame(w http.ResponseWriter, evt listevent.Event, log logger.Logger) error {
	data, err := evt.WireJSON()
	if err != nil {
		log.Error("sse event serialization failed, skipping frame",
			"event_type", evt.Type, "item_id", evt.ItemID, "error", err)
		return nil
	}

	var buffer bytes.Buffer
	buffer.WriteString("event: ")
	buffer.WriteString(string(evt.Type))
	buffer.WriteByte('\n')
	buffer.WriteString("data: ")
	buffer.Write(data)
	buffer.WriteString("\n\n")

	_, err = w.Write(buffer.Bytes())
	return err
}
