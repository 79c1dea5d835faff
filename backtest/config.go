package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config is fixed when an Engine is built.
type Config struct {
	InitialCapital decimal.Decimal `json:"initial_capital"`
	PositionCap    decimal.Decimal `json:"position_cap"`  // quote currency per entry
	FeeRate        decimal.Decimal `json:"fee_rate"`      // fraction of notional, both legs
	SlippageRate   decimal.Decimal `json:"slippage_rate"` // fraction of price, adverse
	RiskFreeRate   float64         `json:"risk_free_rate"`
}

// DefaultConfig returns 10000 capital, a 20 position cap, 0.1% fees,
// 0.05% slippage and a 2% risk free rate.
func DefaultConfig() Config {
	return Config{
		InitialCapital: decimal.NewFromInt(10000),
		PositionCap:    decimal.NewFromInt(20),
		FeeRate:        decimal.RequireFromString("0.001"),
		SlippageRate:   decimal.RequireFromString("0.0005"),
		RiskFreeRate:   0.02,
	}
}

func (c Config) Validate() error {
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("backtest: initial capital must be positive")
	}
	if !c.PositionCap.IsPositive() {
		return fmt.Errorf("backtest: position cap must be positive")
	}
	if c.FeeRate.IsNegative() {
		return fmt.Errorf("backtest: fee rate must not be negative")
	}
	if c.SlippageRate.IsNegative() {
		return fmt.Errorf("backtest: slippage rate must not be negative")
	}
	return nil
}
