package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/agenthands/truthseeker/internal/core/factcheck"
	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/agenthands/truthseeker/internal/logging"
	"github.com/agenthands/truthseeker/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

type Checker interface {
	Check(ctx context.Context, statement string, progress *factcheck.Progress) model.AnalysisResult
}

type Options struct {
	// AllowOrigins for CORS. Empty allows any origin.
	AllowOrigins []string
	Logger       logrus.FieldLogger
	Metrics      *metrics.Metrics
}

type Server struct {
	Checker Checker
	opts    Options
	log     logrus.FieldLogger
}

func NewServer(checker Checker, opts Options) *Server {
	return &Server{
		Checker: checker,
		opts:    opts,
		log:     logging.Component(opts.Logger, "server"),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(s.opts.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.opts.AllowOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", s.Health)
	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}
	r.POST("/fact-check", s.FactCheck)
	r.POST("/fact-check/stream", s.FactCheckStream)

	return r
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Info("Request handled")
	}
}

type FactCheckRequest struct {
	Statement string `json:"statement" binding:"required"`
}

type FactCheckResponse struct {
	model.AnalysisResult
	TotalTime float64 `json:"total_time"`
	RequestID string  `json:"request_id"`
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) bindStatement(c *gin.Context) (string, bool) {
	var req FactCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Statement) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: statement is required"})
		return "", false
	}
	return strings.TrimSpace(req.Statement), true
}

func (s *Server) FactCheck(c *gin.Context) {
	statement, ok := s.bindStatement(c)
	if !ok {
		return
	}

	result := s.Checker.Check(c.Request.Context(), statement, nil)
	c.JSON(http.StatusOK, newResponse(c.GetString("request_id"), result))
}

func newResponse(requestID string, result model.AnalysisResult) FactCheckResponse {
	return FactCheckResponse{
		AnalysisResult: result,
		TotalTime:      result.TotalTime(),
		RequestID:      requestID,
	}
}

type sseEvent struct {
	name string
	data any
}

// FactCheckStream runs an incremental check and relays progress as server-sent events:
// "status" and "chunk" while the model works, then a single "result".
func (s *Server) FactCheckStream(c *gin.Context) {
	statement, ok := s.bindStatement(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	requestID := c.GetString("request_id")
	events := make(chan sseEvent, 32)
	send := func(ev sseEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)
		result := s.Checker.Check(ctx, statement, &factcheck.Progress{
			OnStatus: func(status string) { send(sseEvent{"status", gin.H{"status": status}}) },
			OnChunk:  func(text string) { send(sseEvent{"chunk", gin.H{"text": text}}) },
		})
		send(sseEvent{"result", newResponse(requestID, result)})
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for ev := range events {
		c.SSEvent(ev.name, ev.data)
		c.Writer.Flush()
	}
}
