package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RescanTarget is the narrow interface the sweeper drives — satisfied by
// *beanserver.Server.
type RescanTarget interface {
	Rescan()
}

// Sweeper periodically re-triggers a registry rescan on a cron schedule,
// checked at checkInterval (background goroutine lifecycle grounded on the
// teacher's internal/scheduler.Scheduler: context-cancel + done-channel
// Start/Stop around a ticker loop, next-fire-time computed once and
// advanced after each fire rather than re-parsed every tick).
type Sweeper struct {
	target        RescanTarget
	schedule      cron.Schedule
	checkInterval time.Duration
	log           *slog.Logger

	nextRun time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSweeper builds a Sweeper. cronExpr follows the standard five-field
// minute/hour/dom/month/dow cron grammar (e.g. "*/5 * * * *" for every five
// minutes). checkInterval bounds how promptly a due fire is noticed; it
// defaults to 10s when zero or negative.
func NewSweeper(target RescanTarget, cronExpr string, checkInterval time.Duration, log *slog.Logger) (*Sweeper, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("dispatch: parsing rescan schedule %q: %w", cronExpr, err)
	}
	if checkInterval <= 0 {
		checkInterval = 10 * time.Second
	}
	return &Sweeper{target: target, schedule: sched, checkInterval: checkInterval, log: log}, nil
}

// Start begins the background sweep goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.nextRun = s.schedule.Next(time.Now())

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop cancels the background goroutine and waits for it to exit.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

func (s *Sweeper) tick() {
	now := time.Now()
	if s.nextRun.After(now) {
		return
	}
	s.target.Rescan()
	if s.log != nil {
		s.log.Debug("dispatch: periodic rescan fired", "next_run_at", s.schedule.Next(now))
	}
	s.nextRun = s.schedule.Next(now)
}
