// Package api serves backtests, Monte Carlo analysis and walk-forward
// validation over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/internal/metrics"
	"github.com/rustyeddy/polypaper/journal"
	"github.com/rustyeddy/polypaper/montecarlo"
	"github.com/rustyeddy/polypaper/strategies"
	"go.uber.org/zap"
)

// Journal is the subset of the result store the API uses.
type Journal interface {
	SaveBacktest(ctx context.Context, symbol string, params strategies.Params, res *backtest.Result) (string, error)
	GetBacktest(ctx context.Context, runID string) (journal.BacktestRun, error)
	ListBacktests(ctx context.Context, limit int) ([]journal.BacktestRun, error)
	ListTrades(ctx context.Context, runID string) ([]journal.TradeRecord, error)
}

type Options struct {
	Registry   *strategies.Registry
	Recorder   *metrics.Recorder
	Logger     *zap.Logger
	Journal    Journal // optional
	Engine     backtest.Config
	MonteCarlo montecarlo.Options
	// Workers bounds walk-forward grid concurrency per request.
	Workers int
}

type Server struct {
	registry *strategies.Registry
	rec      *metrics.Recorder
	log      *zap.Logger
	journal  Journal
	engine   backtest.Config
	mc       montecarlo.Options
	workers  int
}

func NewServer(opts Options) *Server {
	s := &Server{
		registry: opts.Registry,
		rec:      opts.Recorder,
		log:      opts.Logger,
		journal:  opts.Journal,
		engine:   opts.Engine,
		mc:       opts.MonteCarlo,
		workers:  opts.Workers,
	}
	if s.registry == nil {
		s.registry = strategies.Default()
	}
	if s.rec == nil {
		s.rec = metrics.NewRecorder()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.engine.InitialCapital.IsZero() {
		s.engine = backtest.DefaultConfig()
	}
	if s.mc.NumSimulations == 0 && s.mc.BlockSize == 0 {
		s.mc = montecarlo.DefaultOptions()
	}
	s.mc.Logger = s.log
	return s
}

// Router builds the gin engine with logging, recovery and metrics.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), s.rec.Middleware())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.rec.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/strategies", s.listStrategies)
	v1.POST("/backtests", s.runBacktest)
	v1.GET("/backtests", s.listBacktests)
	v1.GET("/backtests/:id", s.getBacktest)
	v1.POST("/montecarlo", s.runMonteCarlo)
	v1.POST("/walkforward", s.runWalkForward)
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("Server exited properly")
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}
