// Package monitor serves the operational HTTP surface: health,
// position and order snapshots, and prometheus metrics.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/harborfin/tradegate/internal/logging"
	"github.com/harborfin/tradegate/internal/types"
)

// Source provides the live snapshots the monitor exposes.
type Source interface {
	ActiveOrders() []types.OrderData
	Positions() []types.PositionData
	Accounts() []types.AccountData
}

// Server is the monitoring HTTP server.
type Server struct {
	source Source
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer builds the server on addr. Nothing listens until Start.
func NewServer(addr string, source Source) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		source: source,
		logger: logging.Component("monitor"),
	}

	router.GET("/health", s.handleHealth)
	router.GET("/orders", s.handleOrders)
	router.GET("/positions", s.handlePositions)
	router.GET("/accounts", s.handleAccounts)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start listens in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("monitor listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("monitor server stopped")
		}
	}()
}

// Stop shuts the listener down, waiting up to five seconds for
// in-flight requests.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("monitor shutdown failed")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleOrders(c *gin.Context) {
	orders := s.source.ActiveOrders()
	if orders == nil {
		orders = []types.OrderData{}
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) handlePositions(c *gin.Context) {
	positions := s.source.Positions()
	if positions == nil {
		positions = []types.PositionData{}
	}
	c.JSON(http.StatusOK, positions)
}

func (s *Server) handleAccounts(c *gin.Context) {
	accounts := s.source.Accounts()
	if accounts == nil {
		accounts = []types.AccountData{}
	}
	c.JSON(http.StatusOK, accounts)
}
