// Package webhook 告警接入与只读状态面板的 HTTP 层。
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/betbot/titanbridge/internal/arbiter"
	"github.com/betbot/titanbridge/internal/domain"
	"github.com/betbot/titanbridge/internal/metrics"
	"github.com/betbot/titanbridge/internal/signal"
)

const (
	defaultMaxConcurrent = 32
	defaultMaxBodyBytes  = 64 << 10
)

// Engine 仲裁引擎在 HTTP 层可见的部分
type Engine interface {
	Handle(ctx context.Context, s *signal.Signal) (*domain.Decision, error)
	Snapshot() arbiter.Snapshot
}

type Config struct {
	MaxConcurrentRequests int64
	MaxBodyBytes          int64
}

type Server struct {
	engine  Engine
	sem     *semaphore.Weighted
	maxBody int64
	log     *logrus.Entry
}

func New(engine Engine, cfg Config, log *logrus.Entry) *Server {
	if cfg.MaxConcurrentRequests <= 0 {
		cfg.MaxConcurrentRequests = defaultMaxConcurrent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		engine:  engine,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrentRequests),
		maxBody: cfg.MaxBodyBytes,
		log:     log.WithField("component", "webhook"),
	}
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/", s.handleHealth)
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/dashboard", s.handleDashboard)
	r.POST("/webhook", s.admit(), s.handleWebhook)

	return r
}

// admit 限制同时处理的请求数，等待期间客户端断开则放弃
func (s *Server) admit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.sem.Acquire(c.Request.Context(), 1); err != nil {
			metrics.RequestsThrottled.Add(1)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "server busy"})
			return
		}
		defer s.sem.Release(1)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"remote":  c.ClientIP(),
		}).Debug("http request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "titanbridge webhook running (trend-gated entries, exit+reverse on repeated signal)",
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

type webhookResponse struct {
	OK           bool                    `json:"ok"`
	Event        domain.Event            `json:"event"`
	DecisionID   string                  `json:"decision_id"`
	Instrument   string                  `json:"instrument"`
	Direction    domain.Direction        `json:"direction"`
	Instructions []domain.Instruction    `json:"instructions"`
	Results      []domain.DeliveryResult `json:"results"`
	Invariant    string                  `json:"invariant_violation,omitempty"`
}

func (s *Server) handleWebhook(c *gin.Context) {
	metrics.SignalsReceived.Add(1)

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		metrics.SignalsRejected.Add(1)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "read body failed"})
		return
	}

	sig, err := signal.Parse(raw)
	if err != nil {
		metrics.SignalsRejected.Add(1)
		s.log.WithField("body", truncate(raw, 256)).Warnf("拒绝无法识别的告警: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	s.log.WithFields(logrus.Fields{
		"instrument": sig.Instrument,
		"kind":       sig.Kind,
	}).Info("收到告警")

	// 告警源断开不能中断已开始的决策：反手的两条指令都要发出，每条投递由自身超时约束
	ctx := context.WithoutCancel(c.Request.Context())
	decision, err := s.engine.Handle(ctx, sig)
	if err != nil {
		s.log.WithField("instrument", sig.Instrument).Errorf("处理信号失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	if decision.Emits() {
		s.log.WithFields(logrus.Fields{
			"instrument":   decision.Instrument,
			"event":        decision.Event,
			"instructions": len(decision.Instructions),
			"ok":           decision.OK,
		}).Info("指令已投递")
	}

	status := http.StatusOK
	if !decision.OK {
		status = http.StatusInternalServerError
	}
	c.JSON(status, webhookResponse{
		OK:           decision.OK,
		Event:        decision.Event,
		DecisionID:   decision.ID,
		Instrument:   decision.Instrument,
		Direction:    decision.ToDirection,
		Instructions: decision.Instructions,
		Results:      decision.Results,
		Invariant:    decision.Invariant,
	})
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
