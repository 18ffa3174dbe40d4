package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("SERVICES")

// Waiter polls service probes until all services are ready.
type Waiter struct {
	// PollInterval is the time between probe attempts per service.
	// Defaults to 1s.
	PollInterval time.Duration
	// Timeout bounds the total wait. Defaults to 2m. The context passed to
	// WaitFor can cut the wait shorter still.
	Timeout time.Duration
}

// DefaultWaiter is a waiter with sane defaults.
var DefaultWaiter = Waiter{
	PollInterval: time.Second,
	Timeout:      2 * time.Minute,
}

// WaitFor blocks until every service answers its probe, polling each one in
// parallel. Returns the first probe error when the timeout or context
// expires before all services are ready.
func (w Waiter) WaitFor(ctx context.Context, services []Service) error {
	if len(services) == 0 {
		return nil
	}
	pollInterval := w.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultWaiter.PollInterval
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultWaiter.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(services))
	for i, service := range services {
		wg.Add(1)
		go func(i int, service Service) {
			defer wg.Done()
			errs[i] = waitForService(ctx, service, pollInterval)
		}(i, service)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("service %q: %w", services[i].Ref.Name, err)
		}
	}
	return nil
}

func waitForService(ctx context.Context, service Service, pollInterval time.Duration) error {
	start := time.Now()
	var lastErr error
	for attempt := 1; ; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, pollInterval*5)
		err := service.Prober.Probe(probeCtx)
		cancel()
		if err == nil {
			log.Debug().
				WithString("service", service.Ref.Name).
				WithInt("attempt", attempt).
				WithDuration("elapsed", time.Since(start)).
				Message("Service is ready.")
			return nil
		}
		lastErr = err
		log.Debug().
			WithString("service", service.Ref.Name).
			WithInt("attempt", attempt).
			WithError(err).
			Message("Service not ready yet.")
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w (last probe: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
