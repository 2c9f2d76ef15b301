package runner

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// pacer delays the start of the next trial.
type pacer interface {
	Wait(ctx context.Context) error
}

func newPacer(opt Options) pacer {
	if opt.RatePerSecond <= 0 {
		return nil
	}
	switch opt.Pacing {
	case PacingPoisson:
		sampler := opt.Sampler
		if sampler == nil {
			sampler = rand.New(rand.NewSource(opt.RandomSeed)).ExpFloat64
		}
		return &poissonPacer{rate: opt.RatePerSecond, sample: sampler}
	default:
		return &uniformPacer{limiter: opt.LimiterFactory(opt.RatePerSecond)}
	}
}

// uniformPacer delegates spacing to a rate.Limiter.
type uniformPacer struct {
	limiter *rate.Limiter
}

func (u *uniformPacer) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

// poissonPacer sleeps for exponentially distributed gaps with mean 1/rate.
type poissonPacer struct {
	rate   float64
	sample func() float64
}

func (p *poissonPacer) Wait(ctx context.Context) error {
	delay := p.nextDelay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *poissonPacer) nextDelay() time.Duration {
	if p.rate <= 0 || p.sample == nil {
		return 0
	}
	delay := float64(time.Second) * p.sample() / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay)
}
