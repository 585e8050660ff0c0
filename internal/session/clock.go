package session

import "time"

// Ticker drives the session timers. Production code wraps time.Ticker; tests
// feed a channel directly so timer behavior is verifiable without wall-clock
// waits.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func NewTicker(interval time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(interval)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
