package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/feed"
	"github.com/rustyeddy/polypaper/internal/metrics"
	"github.com/rustyeddy/polypaper/journal"
	"github.com/rustyeddy/polypaper/market"
	"github.com/rustyeddy/polypaper/montecarlo"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/rustyeddy/polypaper/walkforward"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EngineOverrides replaces individual fill model settings for one request.
type EngineOverrides struct {
	InitialCapital *float64 `json:"initial_capital" binding:"omitempty,gt=0"`
	PositionCap    *float64 `json:"position_cap" binding:"omitempty,gt=0"`
	FeeRate        *float64 `json:"fee_rate" binding:"omitempty,gte=0,lt=1"`
	SlippageRate   *float64 `json:"slippage_rate" binding:"omitempty,gte=0,lt=1"`
	RiskFreeRate   *float64 `json:"risk_free_rate"`
}

func (o *EngineOverrides) apply(cfg backtest.Config) backtest.Config {
	if o == nil {
		return cfg
	}
	set := func(dst *decimal.Decimal, v *float64) {
		if v != nil {
			*dst = decimal.NewFromFloat(*v)
		}
	}
	set(&cfg.InitialCapital, o.InitialCapital)
	set(&cfg.PositionCap, o.PositionCap)
	set(&cfg.FeeRate, o.FeeRate)
	set(&cfg.SlippageRate, o.SlippageRate)
	if o.RiskFreeRate != nil {
		cfg.RiskFreeRate = *o.RiskFreeRate
	}
	return cfg
}

type BacktestRequest struct {
	StrategyID string            `json:"strategy_id" binding:"required"`
	Params     strategies.Params `json:"params"`
	Symbol     string            `json:"symbol"`
	Bars       []market.Bar      `json:"bars" binding:"required,min=1"`
	Engine     *EngineOverrides  `json:"engine"`
	Save       bool              `json:"save"`
}

type BacktestResponse struct {
	RunID  string           `json:"run_id,omitempty"`
	Result *backtest.Result `json:"result"`
	Report string           `json:"report"`
}

type MonteCarloRequest struct {
	Returns        []float64 `json:"returns"`
	EquityCurve    []float64 `json:"equity_curve"`
	InitialCapital float64   `json:"initial_capital" binding:"omitempty,gt=0"`
	NumSimulations *int      `json:"num_simulations" binding:"omitempty,gte=0,lte=100000"`
	BlockSize      *int      `json:"block_size" binding:"omitempty,gte=1"`
	RuinThreshold  *float64  `json:"ruin_threshold" binding:"omitempty,gt=0,lte=1"`
	Seed           int64     `json:"seed"`
}

type MonteCarloResponse struct {
	Result *montecarlo.Result `json:"result"`
	Report string             `json:"report"`
}

type WalkForwardRequest struct {
	StrategyID string                   `json:"strategy_id" binding:"required"`
	Params     strategies.Params        `json:"params"`
	Ranges     []walkforward.ParamRange `json:"ranges" binding:"dive"`
	Symbol     string                   `json:"symbol"`
	Bars       []market.Bar             `json:"bars" binding:"required,min=1"`
	Engine     *EngineOverrides         `json:"engine"`
	TrainDays  int                      `json:"train_days" binding:"required,gt=0"`
	TestDays   int                      `json:"test_days" binding:"required,gt=0"`
	Metric     string                   `json:"metric"`
	Start      *time.Time               `json:"start"`
	End        *time.Time               `json:"end"`
}

type WalkForwardResponse struct {
	Result *walkforward.Result `json:"result"`
	Report string              `json:"report"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": s.registry.List()})
}

func (s *Server) runBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if req.Save && s.journal == nil {
		abort(c, http.StatusBadRequest, errors.New("save requested but no journal is configured"))
		return
	}

	strat, err := s.registry.New(req.StrategyID, req.Params)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	res, err := backtest.Run(strat, req.Bars, req.Engine.apply(s.engine))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	s.rec.ObserveBacktest(res.StrategyID)

	resp := BacktestResponse{Result: res, Report: backtest.FormatReport(res)}
	if req.Save {
		symbol := req.Symbol
		if symbol == "" {
			symbol = req.Bars[0].Symbol
		}
		resp.RunID, err = s.journal.SaveBacktest(c.Request.Context(), symbol, req.Params, res)
		if err != nil {
			s.log.Error("save backtest", zap.Error(err))
			abort(c, http.StatusInternalServerError, err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listBacktests(c *gin.Context) {
	if s.journal == nil {
		abort(c, http.StatusNotFound, errors.New("no journal is configured"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}
	runs, err := s.journal.ListBacktests(c.Request.Context(), limit)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []journal.BacktestRun{}
	}
	c.JSON(http.StatusOK, gin.H{"backtests": runs})
}

func (s *Server) getBacktest(c *gin.Context) {
	if s.journal == nil {
		abort(c, http.StatusNotFound, errors.New("no journal is configured"))
		return
	}
	ctx := c.Request.Context()
	run, err := s.journal.GetBacktest(ctx, c.Param("id"))
	if errors.Is(err, journal.ErrNotFound) {
		abort(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	trades, err := s.journal.ListTrades(ctx, run.RunID)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backtest": run, "trades": trades})
}

func (s *Server) runMonteCarlo(c *gin.Context) {
	var req MonteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if (len(req.Returns) == 0) == (len(req.EquityCurve) == 0) {
		abort(c, http.StatusBadRequest, errors.New("provide exactly one of returns or equity_curve"))
		return
	}

	opts := s.mc
	if req.NumSimulations != nil {
		opts.NumSimulations = *req.NumSimulations
	}
	if req.BlockSize != nil {
		opts.BlockSize = *req.BlockSize
	}
	if req.RuinThreshold != nil {
		opts.RuinThreshold = *req.RuinThreshold
	}
	opts.Seed = req.Seed

	var res *montecarlo.Result
	if len(req.Returns) > 0 {
		initial := req.InitialCapital
		if initial == 0 {
			initial = s.engine.InitialCapital.InexactFloat64()
		}
		res = montecarlo.Run(req.Returns, initial, opts)
	} else {
		res = montecarlo.RunFromEquityCurve(req.EquityCurve, opts)
	}
	s.rec.ObserveMonteCarlo(res.NumSimulations)
	c.JSON(http.StatusOK, MonteCarloResponse{Result: res, Report: montecarlo.FormatReport(res)})
}

func (s *Server) runWalkForward(c *gin.Context) {
	var req WalkForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, err := s.registry.New(req.StrategyID, req.Params); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	metric, err := walkforward.ParseMetric(req.Metric)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	src := feed.NewMemorySource(req.Bars)
	first, last, _ := src.Bounds()
	start, end := first, last.Add(time.Millisecond)
	if req.Start != nil {
		start = req.Start.UTC()
	}
	if req.End != nil {
		end = req.End.UTC()
	}

	eval := metrics.InstrumentEvaluator(
		walkforward.NewBarEvaluator(req.StrategyID, s.registry, src, req.Symbol, req.Engine.apply(s.engine)),
		s.rec)
	opts := walkforward.Options{
		TrainDays: req.TrainDays,
		TestDays:  req.TestDays,
		Metric:    metric,
		Workers:   s.workers,
		Logger:    s.log,
		OnFold:    s.rec.ObserveFold,
	}
	res, err := walkforward.Run(c.Request.Context(), eval, req.Params, req.Ranges, start, end, opts)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, WalkForwardResponse{Result: res, Report: walkforward.FormatReport(res)})
}
