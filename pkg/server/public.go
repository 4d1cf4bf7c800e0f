package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/familylists/realtime/pkg/broadcaster"
	"github.com/familylists/realtime/pkg/config"
	"github.com/familylists/realtime/pkg/listevent"
	"github.com/familylists/realtime/pkg/notify"
	"github.com/familylists/realtime/pkg/observability/logger"
	"github.com/familylists/realtime/pkg/realtime/sse"
	"github.com/familylists/realtime/pkg/version"
)

// PublicDeps carries the collaborators of the public API server.
type PublicDeps struct {
	Logger      logger.Logger
	Broadcaster *broadcaster.Broadcaster
	Batcher     *notify.Batcher
	Stream      *sse.Handler

	// Resolver supplies recipients when a publish request omits them.
	// Optional; without it such requests skip notification batching.
	Resolver notify.RecipientResolver
}

// PublicServer serves the stream endpoint and the internal event
// publish endpoint used by the CRUD backend.
type PublicServer struct {
	*Server
	deps        PublicDeps
	limiter     *rate.Limiter
	serviceName string
}

// NewPublicServer creates the public API server.
func NewPublicServer(cfg *config.Config, deps PublicDeps) (*PublicServer, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Broadcaster == nil {
		return nil, errors.New("broadcaster is required")
	}
	if deps.Batcher == nil {
		return nil, errors.New("batcher is required")
	}
	if deps.Stream == nil {
		return nil, errors.New("stream handler is required")
	}

	s := &PublicServer{
		deps:        deps,
		serviceName: cfg.Service.Name,
	}
	if cfg.RateLimit.Enabled {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}

	engine := gin.New()
	engine.Use(RequestID(), RequestLogging(deps.Logger), Recovery(deps.Logger))
	s.registerRoutes(engine)

	s.Server = NewServer(cfg.HTTP, engine, deps.Logger)
	return s, nil
}

func (s *PublicServer) registerRoutes(engine *gin.Engine) {
	engine.GET("/version", s.handleVersion)

	v1 := engine.Group("/v1")
	v1.GET("/lists/:list_id/stream", s.deps.Stream.Stream())

	internal := engine.Group("/internal/v1")
	internal.POST("/events", s.rateLimit, s.handlePublish)
}

// rateLimit sheds internal publish load before any parsing happens.
func (s *PublicServer) rateLimit(c *gin.Context) {
	if s.limiter != nil && !s.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Next()
}

// publishRequest is the internal wire format the CRUD backend posts
// after committing a mutation.
type publishRequest struct {
	EventType  string   `json:"event_type"`
	ListID     string   `json:"list_id"`
	ListName   string   `json:"list_name"`
	ItemID     string   `json:"item_id"`
	ItemName   string   `json:"item_name"`
	UserID     string   `json:"user_id"`
	UserName   string   `json:"user_name"`
	Recipients []string `json:"recipients"`
}

// handlePublish fans the mutation out to live streams and enqueues it
// for notification batching. The response never waits on delivery.
func (s *PublicServer) handlePublish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	event, err := listevent.New(listevent.Type(req.EventType), req.ListID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event = event.WithItem(req.ItemID, req.ItemName).WithActor(req.UserID, req.UserName)

	log := s.deps.Logger.WithContext(c.Request.Context())

	s.deps.Broadcaster.Publish(event)

	recipients := req.Recipients
	if recipients == nil && s.deps.Resolver != nil {
		recipients, err = s.deps.Resolver.Recipients(c.Request.Context(), event.ListID)
		if err != nil {
			// Live streams were already served; notifications are
			// best-effort on top of that.
			log.Warn("recipient resolution failed, skipping notification batching",
				"list_id", event.ListID, "error", err)
			recipients = nil
		}
	}

	if len(recipients) > 0 {
		err = s.deps.Batcher.Enqueue(c.Request.Context(), notify.EnqueueRequest{
			ListID:     event.ListID,
			ListName:   req.ListName,
			EventType:  event.Type,
			ItemName:   event.ItemName,
			ActorID:    event.ActorID,
			ActorName:  event.ActorName,
			Recipients: recipients,
		})
		if err != nil {
			log.Warn("notification enqueue failed", "list_id", event.ListID, "error", err)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *PublicServer) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current(s.serviceName))
}
