package strategies

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is the circuit breaker carried by the shipped strategies. All
// timestamps are epoch milliseconds taken from bar time, never the wall
// clock, so replays are deterministic.
type State struct {
	ConsecutiveLosses int   `json:"consecutive_losses" yaml:"consecutive_losses"`
	CooldownUntil     int64 `json:"cooldown_until,omitempty" yaml:"cooldown_until,omitempty"`
	LastLossAt        int64 `json:"last_loss_at,omitempty" yaml:"last_loss_at,omitempty"`
}

// InCooldown reports whether ts falls before the end of the cooldown.
func (s *State) InCooldown(ts int64) bool {
	return ts < s.CooldownUntil
}

// Allow reports whether a strategy may act at ts. Once a tripped breaker's
// cooldown has elapsed it is cleared.
func (s *State) Allow(ts int64, maxLosses int) bool {
	if s.InCooldown(ts) {
		return false
	}
	if maxLosses > 0 && s.ConsecutiveLosses >= maxLosses {
		s.ConsecutiveLosses = 0
		s.CooldownUntil = 0
	}
	return true
}

// RecordClose updates the breaker with a realized PnL. A loss that brings the
// streak to maxLosses starts a cooldown of the given length from ts.
func (s *State) RecordClose(pnl decimal.Decimal, ts int64, maxLosses int, cooldown time.Duration) {
	if !pnl.IsNegative() {
		s.ConsecutiveLosses = 0
		return
	}
	s.ConsecutiveLosses++
	s.LastLossAt = ts
	if maxLosses > 0 && s.ConsecutiveLosses >= maxLosses {
		s.CooldownUntil = ts + cooldown.Milliseconds()
	}
}

// breaker bundles the sizing and circuit breaker parameters shared by the
// shipped strategies.
type breaker struct {
	State

	positionCap decimal.Decimal
	maxLosses   int
	cooldown    time.Duration
}

func newBreaker(p Params, cooldownHours float64) breaker {
	return breaker{
		positionCap: p.Decimal("positionCapUsd", decimal.NewFromInt(20)),
		maxLosses:   p.Int("maxConsecutiveLosses", 3),
		cooldown:    time.Duration(p.Float("cooldownHours", cooldownHours) * float64(time.Hour)),
	}
}

func (b *breaker) size(price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return b.positionCap.Div(price)
}

func (b *breaker) OnPositionClose(pnl decimal.Decimal, ts int64) {
	b.RecordClose(pnl, ts, b.maxLosses, b.cooldown)
}

func breakerParams(cooldownHours float64) map[string]ParamSpec {
	return map[string]ParamSpec{
		"positionCapUsd":       {Type: "number", Default: 20.0, Description: "Maximum position size in USD"},
		"maxConsecutiveLosses": {Type: "number", Default: 3, Description: "Circuit breaker threshold"},
		"cooldownHours":        {Type: "number", Default: cooldownHours, Description: "Cooldown period after circuit breaker"},
	}
}
