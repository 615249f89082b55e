// Package api exposes the agent's local command surface as an HTTP
// API bound to the loopback interface: it is consumed by the desktop
// shell, never by the network.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/daemon"
	"github.com/shoreagents/staffmon/internal/domain"
)

// Server hosts the loopback command API.
type Server struct {
	agent  *daemon.Agent
	logger *zap.Logger
	http   *http.Server
}

// NewServer builds the gin engine and routes.
func NewServer(agent *daemon.Agent, port int, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost", "http://127.0.0.1"},
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		agent:  agent,
		logger: logger,
		http: &http.Server{
			// Loopback bind keeps the surface off the network.
			Addr:    fmt.Sprintf("127.0.0.1:%d", port),
			Handler: engine,
		},
	}
	s.routes(engine)
	return s
}

func (s *Server) routes(engine *gin.Engine) {
	engine.GET("/healthz", s.handleHealth)

	api := engine.Group("/api")
	{
		api.POST("/tracking/start", s.handleTrackingStart)
		api.POST("/tracking/stop", s.handleTrackingStop)
		api.POST("/tracking/pause", s.handleTrackingPause)
		api.POST("/tracking/resume", s.handleTrackingResume)

		api.POST("/breaks/start", s.handleBreakStart)
		api.POST("/breaks/end", s.handleBreakEnd)

		api.POST("/metrics/reset", s.handleClockIn)
		api.POST("/sync", s.handleForceSync)
		api.POST("/capture", s.handleForceCapture)

		api.POST("/navigation", s.handleNavigation)
		api.POST("/session", s.handleSession)
		api.DELETE("/session", s.handleSessionClear)

		api.GET("/snapshot", s.handleSnapshot)
		api.GET("/status", s.handleStatus)
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("command API listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTrackingStart(c *gin.Context) {
	s.agent.StartTracking()
	c.JSON(http.StatusOK, s.agent.Status())
}

func (s *Server) handleTrackingStop(c *gin.Context) {
	s.agent.StopTracking()
	c.JSON(http.StatusOK, s.agent.Status())
}

func (s *Server) handleTrackingPause(c *gin.Context) {
	s.agent.PauseTracking()
	c.JSON(http.StatusOK, s.agent.Status())
}

func (s *Server) handleTrackingResume(c *gin.Context) {
	s.agent.ResumeTracking()
	c.JSON(http.StatusOK, s.agent.Status())
}

type breakStartRequest struct {
	Type           string     `json:"type" binding:"required"`
	AwayReason     string     `json:"awayReason"`
	ScheduledStart *time.Time `json:"scheduledStart"`
}

func (s *Server) handleBreakStart(c *gin.Context) {
	var req breakStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session := s.agent.StartBreak(domain.BreakType(req.Type), req.AwayReason, req.ScheduledStart)
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleBreakEnd(c *gin.Context) {
	session := s.agent.EndBreak()
	if session == nil {
		// Ending while working is a no-op, not an error.
		c.JSON(http.StatusOK, gin.H{"ended": false})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleClockIn(c *gin.Context) {
	s.agent.ClockIn()
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (s *Server) handleForceSync(c *gin.Context) {
	s.agent.ForceSync()
	c.JSON(http.StatusAccepted, gin.H{"sync": "requested"})
}

func (s *Server) handleForceCapture(c *gin.Context) {
	go s.agent.ForceCapture()
	c.JSON(http.StatusAccepted, gin.H{"capture": "requested"})
}

type navigationRequest struct {
	Context string `json:"context" binding:"required"`
}

func (s *Server) handleNavigation(c *gin.Context) {
	var req navigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.agent.Navigate(domain.WorkContext(req.Context))
	c.JSON(http.StatusOK, s.agent.Status())
}

type sessionRequest struct {
	Credential string `json:"credential" binding:"required"`
}

func (s *Server) handleSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.agent.BindCredential(req.Credential)
	c.JSON(http.StatusOK, gin.H{"bound": true})
}

func (s *Server) handleSessionClear(c *gin.Context) {
	s.agent.ClearCredential()
	c.JSON(http.StatusOK, gin.H{"bound": false})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.agent.Snapshot())
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.agent.Status())
}
