package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medhelper/labcart/internal/domain"
)

const (
	windowStart = 23*time.Hour + 50*time.Minute
	windowEnd   = 24*time.Hour + 10*time.Minute
)

type Store interface {
	ListPendingScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.TestRecord, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier interface {
	Reminder(ctx context.Context, u domain.User, rec domain.TestRecord) (bool, error)
}

type Result struct {
	Sent    int
	Skipped int
	Failed  int
}

func (r Result) String() string {
	return fmt.Sprintf("sent=%d skipped=%d failed=%d", r.Sent, r.Skipped, r.Failed)
}

// Poller sends the day-ahead reminder for pending appointments. Each sweep
// starts where the previous successful one ended, so consecutive windows
// neither overlap nor leave gaps when a tick fires late or a sweep fails.
// The first sweep covers [now+23h50m, now+24h10m). A Poller is not safe for
// concurrent Sweep calls.
type Poller struct {
	store    Store
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger

	// cursor is the exclusive end of the last listed window
	cursor time.Time
}

// NewPoller ticks every interval, capped at the 20 minute window width so
// no appointment is reminded later than 23h50m ahead.
func NewPoller(store Store, notifier Notifier, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 || interval > windowEnd-windowStart {
		interval = windowEnd - windowStart
	}
	return &Poller{
		store:    store,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Run sweeps once right away and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.sweepAndLog(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sweepAndLog(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) sweepAndLog(ctx context.Context) {
	res, err := p.Sweep(ctx)
	if err != nil {
		p.log.ErrorContext(ctx, "reminder sweep failed", "error", err)
		return
	}
	p.log.InfoContext(ctx, "reminder sweep done", "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed)
}

func (p *Poller) window(now time.Time) (from, to time.Time) {
	from, to = now.Add(windowStart), now.Add(windowEnd)
	if !p.cursor.IsZero() {
		from = p.cursor
		if from.Before(now) {
			from = now
		}
	}
	return from, to
}

// Sweep notifies every pending record in the next window.
func (p *Poller) Sweep(ctx context.Context) (Result, error) {
	from, to := p.window(p.now())
	if !to.After(from) {
		return Result{}, nil
	}
	records, err := p.store.ListPendingScheduledBetween(ctx, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("list upcoming records: %w", err)
	}
	p.cursor = to

	var res Result
	for _, rec := range records {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		user, err := p.store.GetUser(ctx, rec.UserID)
		if err != nil {
			p.log.ErrorContext(ctx, "reminder recipient lookup failed", "record_id", rec.ID, "error", err)
			res.Failed++
			continue
		}

		sent, err := p.notifier.Reminder(ctx, *user, rec)
		switch {
		case err != nil:
			p.log.ErrorContext(ctx, "reminder failed", "record_id", rec.ID, "error", err)
			res.Failed++
		case sent:
			res.Sent++
		default:
			res.Skipped++
		}
	}
	return res, nil
}
