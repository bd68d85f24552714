// Package web exposes the runtime control surface: instrument
// management, health and Prometheus metrics.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"intraday-trader/internal/engine"
	"intraday-trader/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type instrumentRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Quantity int    `json:"quantity"`
}

// Server is the HTTP control plane over the feed manager.
type Server struct {
	manager *engine.Manager
	srv     *http.Server
}

// NewServer builds the router and binds it to addr.
func NewServer(addr string, manager *engine.Manager) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{manager: manager}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/instruments", s.listInstruments)
	r.POST("/instruments", s.addInstrument)
	r.DELETE("/instruments/:symbol", s.removeInstrument)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in a goroutine until Shutdown.
func (s *Server) Start(ctx context.Context) {
	go func() {
		logger.Info(ctx, "control server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "control server failed", err)
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"market_open": s.manager.MarketOpen(),
		"instruments": len(s.manager.ListInstruments()),
	})
}

func (s *Server) listInstruments(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.ListInstruments())
}

func (s *Server) addInstrument(c *gin.Context) {
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.manager.AddInstrument(c.Request.Context(), req.Symbol, req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"symbol": req.Symbol})
}

func (s *Server) removeInstrument(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := s.manager.RemoveInstrument(c.Request.Context(), symbol); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
