package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/familylists/realtime/pkg/config"
	"github.com/familylists/realtime/pkg/health"
	"github.com/familylists/realtime/pkg/observability/logger"
	"github.com/familylists/realtime/pkg/observability/metrics"
	"github.com/familylists/realtime/pkg/version"
)

// ManagementServer serves health, readiness, and metrics on a port
// separate from public traffic.
type ManagementServer struct {
	*Server
	healthRegistry  *health.Registry
	metricsRegistry *metrics.Registry
	serviceName     string
}

// NewManagementServer creates the management server.
func NewManagementServer(
	cfg *config.Config,
	log logger.Logger,
	healthRegistry *health.Registry,
	metricsRegistry *metrics.Registry,
) (*ManagementServer, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if healthRegistry == nil {
		return nil, errors.New("health registry is required")
	}
	if metricsRegistry == nil {
		return nil, errors.New("metrics registry is required")
	}

	s := &ManagementServer{
		healthRegistry:  healthRegistry,
		metricsRegistry: metricsRegistry,
		serviceName:     cfg.Service.Name,
	}

	engine := gin.New()
	engine.Use(RequestID(), Recovery(log))
	s.registerRoutes(engine)

	httpCfg := config.HTTPConfig{
		Port:         cfg.Management.Port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.Server = NewServer(httpCfg, engine, log)
	return s, nil
}

func (s *ManagementServer) registerRoutes(engine *gin.Engine) {
	engine.GET("/health", s.handleHealth)
	engine.GET("/ready", s.handleReady)
	engine.GET("/metrics", gin.WrapH(s.metricsRegistry.Handler()))
	engine.GET("/version", s.handleVersion)
}

// handleHealth is the liveness probe; it answers as long as the
// process serves HTTP.
func (s *ManagementServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReady runs the registered dependency checks. Degraded still
// reports ready; only unhealthy takes the instance out of rotation.
func (s *ManagementServer) handleReady(c *gin.Context) {
	result := s.healthRegistry.Check(c.Request.Context())

	status := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

func (s *ManagementServer) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current(s.serviceName))
}
