package app

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"

	"traderDashboard/internal/ports"
)

// Watch keeps an account's dashboard live. It loads the dashboard at once,
// then again every interval and whenever the account's settings change, and
// passes each result to fn. Failed or degraded loads are retried with
// exponential backoff instead of the regular interval. The loop ends when
// ctx is done, the returned cancel is called or the account is unlinked.
// fn runs on the watch goroutine.
func (s *DashboardService) Watch(ctx context.Context, accountID string, interval time.Duration, fn func(*Dashboard, error)) (cancel func()) {
	ctx, cancel = context.WithCancel(ctx)
	if interval <= 0 {
		interval = 30 * time.Second
	}

	trigger := make(chan struct{}, 1)
	sub := s.hub.Subscribe(accountID, func(AccountEvent) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	b := &backoff.Backoff{
		Min:    interval / 4,
		Max:    8 * interval,
		Factor: 2,
		Jitter: true,
	}

	go func() {
		defer sub.Cancel()
		s.logger.Debug(ctx, "Dashboard watch started", map[string]interface{}{"accountID": accountID, "interval": interval.String()})
		for {
			d, err := s.Dashboard(ctx, accountID)
			if ctx.Err() != nil {
				s.logger.Debug(context.Background(), "Dashboard watch stopped", map[string]interface{}{"accountID": accountID})
				return
			}
			fn(d, err)
			if errors.Is(err, ports.ErrNotFound) {
				s.logger.Info(ctx, "Watched account no longer exists, stopping", map[string]interface{}{"accountID": accountID})
				return
			}

			wait := interval
			if err != nil || (d != nil && len(d.Warnings) > 0) {
				wait = b.Duration()
				s.logger.Warn(ctx, "Dashboard refresh degraded, backing off", map[string]interface{}{"accountID": accountID, "attempt": b.Attempt(), "wait": wait.String()})
			} else {
				b.Reset()
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Debug(context.Background(), "Dashboard watch stopped", map[string]interface{}{"accountID": accountID})
				return
			case <-trigger:
				timer.Stop()
			case <-timer.C:
			}
		}
	}()

	return cancel
}
