package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/polypaper/journal"
	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func risingBars(n int) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		p := decimal.NewFromInt(int64(100 + i))
		bars[i] = market.Bar{
			Symbol:    "BTC",
			Timestamp: t0.Add(time.Duration(i) * 24 * time.Hour).UnixMilli(),
			Open:      p, High: p, Low: p, Close: p,
		}
	}
	return bars
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTestServer(t *testing.T, withJournal bool) http.Handler {
	t.Helper()

	opts := Options{}
	if withJournal {
		j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = j.Close() })
		opts.Journal = j
	}
	return NewServer(opts).Router()
}

func TestHealthAndStrategies(t *testing.T) {
	t.Parallel()

	r := newTestServer(t, false)

	w := do(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Strategies []struct {
			ID string `json:"id"`
		} `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	var ids []string
	for _, s := range body.Strategies {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "buy-and-hold")
	assert.Contains(t, ids, "trend-following-v1")

	w = do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "polypaper_http_requests_total")
}

func TestRunBacktest(t *testing.T) {
	t.Parallel()

	r := newTestServer(t, true)
	capital := 5000.0
	w := do(t, r, http.MethodPost, "/api/v1/backtests", map[string]any{
		"strategy_id": "buy-and-hold",
		"params":      map[string]any{"exitAfterBars": 5},
		"bars":        risingBars(20),
		"engine":      map[string]any{"initial_capital": capital},
		"save":        true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BacktestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "buy-and-hold", resp.Result.StrategyID)
	assert.Equal(t, 1, resp.Result.TotalTrades)
	assert.True(t, resp.Result.InitialCapital.Equal(decimal.NewFromInt(5000)))
	assert.Contains(t, resp.Report, "Backtest Report: buy-and-hold")

	w = do(t, r, http.MethodGet, "/api/v1/backtests/"+resp.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Backtest journal.BacktestRun   `json:"backtest"`
		Trades   []journal.TradeRecord `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "BTC", got.Backtest.Symbol)
	assert.Len(t, got.Trades, 2)

	w = do(t, r, http.MethodGet, "/api/v1/backtests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.RunID)

	w = do(t, r, http.MethodGet, "/api/v1/backtests/01HZZZZZZZZZZZZZZZZZZZZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunBacktestBadRequests(t *testing.T) {
	t.Parallel()

	r := newTestServer(t, false)
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing strategy", map[string]any{"bars": risingBars(2)}, "StrategyID"},
		{"no bars", map[string]any{"strategy_id": "noop", "bars": []market.Bar{}}, "Bars"},
		{"unknown strategy", map[string]any{"strategy_id": "martingale", "bars": risingBars(2)}, "unknown strategy"},
		{"bad engine", map[string]any{"strategy_id": "noop", "bars": risingBars(2), "engine": map[string]any{"fee_rate": 2}}, "FeeRate"},
		{"save without journal", map[string]any{"strategy_id": "noop", "bars": risingBars(2), "save": true}, "no journal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/backtests", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}

	w := do(t, r, http.MethodGet, "/api/v1/backtests", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunMonteCarlo(t *testing.T) {
	t.Parallel()

	r := newTestServer(t, false)
	w := do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{
		"returns":         []float64{0.01, 0.01, 0.01, 0.01},
		"initial_capital": 1000,
		"num_simulations": 100,
		"block_size":      2,
		"seed":            3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp MonteCarloResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp.Result.NumSimulations)
	assert.Equal(t, int64(3), resp.Result.Seed)
	assert.Equal(t, 1.0, resp.Result.ProbProfit)
	assert.Equal(t, 0.0, resp.Result.ProbRuin)
	assert.Contains(t, resp.Report, "Monte Carlo Analysis")

	w = do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{
		"returns":      []float64{0.01},
		"equity_curve": []float64{100, 101},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunWalkForward(t *testing.T) {
	t.Parallel()

	r := newTestServer(t, false)
	w := do(t, r, http.MethodPost, "/api/v1/walkforward", map[string]any{
		"strategy_id": "buy-and-hold",
		"bars":        risingBars(120),
		"ranges":      []map[string]any{{"name": "exitAfterBars", "values": []int{2, 10}}},
		"train_days":  40,
		"test_days":   20,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp WalkForwardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "buy-and-hold", resp.Result.StrategyID)
	assert.Positive(t, resp.Result.NumFolds)
	assert.Len(t, resp.Result.ParameterHistory, resp.Result.NumFolds+len(resp.Result.FailedFolds))
	assert.Contains(t, w.Body.String(), `"profit_factor":"Inf"`)
	assert.Contains(t, resp.Report, "Walk-Forward Report")

	w = do(t, r, http.MethodPost, "/api/v1/walkforward", map[string]any{
		"strategy_id": "buy-and-hold",
		"bars":        risingBars(10),
		"train_days":  40,
		"test_days":   20,
		"metric":      "sortino",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown metric")

	w = do(t, r, http.MethodPost, "/api/v1/walkforward", map[string]any{
		"strategy_id": "buy-and-hold",
		"bars":        risingBars(10),
		"test_days":   20,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
