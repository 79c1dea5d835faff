package indicators

import "fmt"

// ExponentialMA is a streaming EMA seeded with the SMA of its first period
// values.
type ExponentialMA struct {
	period int
	count  int
	sum    float64
	value  float64
}

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{period: period}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.count = 0
	e.sum = 0
	e.value = 0
}

func (e *ExponentialMA) Update(v float64) {
	e.count++
	if e.count <= e.period {
		e.sum += v
		if e.count == e.period {
			e.value = e.sum / float64(e.period)
		}
		return
	}
	k := 2.0 / float64(e.period+1)
	e.value = (v-e.value)*k + e.value
}

func (e *ExponentialMA) Ready() bool {
	return e.period > 0 && e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}
