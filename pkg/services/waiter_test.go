package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaiter_WaitForNoServices(t *testing.T) {
	err := DefaultWaiter.WaitFor(context.Background(), nil)
	assert.NoError(t, err)
}

func TestWaiter_WaitForEventuallyReady(t *testing.T) {
	var attempts int32
	flaky := ProberFunc(func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	w := Waiter{PollInterval: time.Millisecond, Timeout: time.Second}
	err := w.WaitFor(context.Background(), []Service{
		{Ref: pipeyml.ServiceRef{Name: "flaky:1"}, Prober: flaky},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(3))
}

func TestWaiter_WaitForTimesOut(t *testing.T) {
	probeErr := errors.New("connection refused")
	never := ProberFunc(func(ctx context.Context) error {
		return probeErr
	})
	w := Waiter{PollInterval: time.Millisecond, Timeout: 20 * time.Millisecond}
	err := w.WaitFor(context.Background(), []Service{
		{Ref: pipeyml.ServiceRef{Name: "never:1"}, Prober: never},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, `service "never:1"`)
}

func TestWaiter_WaitForCancelled(t *testing.T) {
	never := ProberFunc(func(ctx context.Context) error {
		return errors.New("not yet")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := Waiter{PollInterval: time.Millisecond, Timeout: time.Second}
	err := w.WaitFor(ctx, []Service{
		{Ref: pipeyml.ServiceRef{Name: "never:1"}, Prober: never},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaiter_WaitForMultiple(t *testing.T) {
	var readyCount int32
	ready := ProberFunc(func(ctx context.Context) error {
		atomic.AddInt32(&readyCount, 1)
		return nil
	})
	w := Waiter{PollInterval: time.Millisecond, Timeout: time.Second}
	err := w.WaitFor(context.Background(), []Service{
		{Ref: pipeyml.ServiceRef{Name: "a:1"}, Prober: ready},
		{Ref: pipeyml.ServiceRef{Name: "b:1"}, Prober: ready},
		{Ref: pipeyml.ServiceRef{Name: "c:1"}, Prober: ready},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&readyCount))
}
