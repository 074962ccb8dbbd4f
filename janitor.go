package goBroker

import (
	"context"
	"sync"
	"time"
)

// janitor periodically sweeps expired authorization codes, CSRF pairs,
// and rate buckets to bound memory. The sweep is advisory: every
// verification path checks expiry itself and never depends on the
// janitor having run.
type janitor struct {
	engine   *Engine
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newJanitor(engine *Engine, interval time.Duration) *janitor {
	return &janitor{
		engine:   engine,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *janitor) Start() {
	go j.run()
}

func (j *janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		<-j.done
	})
}

func (j *janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval/2)
	defer cancel()

	now := time.Now()

	codes, err := j.engine.codes.Sweep(ctx, now)
	if err != nil {
		j.engine.logger.Warn("janitor code sweep failed", "err", err)
	}

	pairs, err := j.engine.csrf.pairs.Sweep(ctx, now)
	if err != nil {
		j.engine.logger.Warn("janitor csrf sweep failed", "err", err)
	}

	buckets := 0
	if j.engine.limiter != nil {
		buckets, err = j.engine.limiter.Sweep(ctx, now)
		if err != nil {
			j.engine.logger.Warn("janitor rate sweep failed", "err", err)
		}
	}

	if codes+pairs+buckets > 0 {
		j.engine.logger.Debug("janitor sweep",
			"codes", codes, "csrf_pairs", pairs, "rate_buckets", buckets)
	}
}
