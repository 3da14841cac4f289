package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"crypto-mining-client/services"
)

// Task is one scheduled poll action. A failing tick is logged and retried
// at the next scheduled interval, never immediately; one failure must not
// stop the timer.
type Task func(ctx context.Context) error

// Poller owns the standing refresh timers (mining progress every 5s,
// deposits every 15s). The interval is a first-class cache policy here
// rather than an ad hoc timer, and the scheduler takes an injectable
// clock so tests drive ticks deterministically.
type Poller struct {
	sched    gocron.Scheduler
	sessions *services.SessionStore
}

// NewPoller builds a stopped scheduler. clock may be nil for wall-clock
// time; sessions may be nil to disable the logged-out guard.
func NewPoller(clock clockwork.Clock, sessions *services.SessionStore) (*Poller, error) {
	var opts []gocron.SchedulerOption
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll scheduler: %w", err)
	}
	return &Poller{sched: sched, sessions: sessions}, nil
}

// Add registers a repeating poll. Ticks are skipped while logged out (an
// authenticated poll without a token would fail before the network anyway)
// and singleton mode skips a tick while the previous run is still going,
// so a slow response never stacks a second fetch behind it.
func (p *Poller) Add(name string, interval time.Duration, task Task) error {
	_, err := p.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if p.sessions != nil && !p.sessions.IsAuthenticated() {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := task(ctx); err != nil {
				log.Printf("❌ [POLL] %s failed: %v, retrying next tick", name, err)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s poll: %w", name, err)
	}
	return nil
}

// Start begins ticking all registered polls.
func (p *Poller) Start() {
	p.sched.Start()
	log.Println("🔁 Poll workers started")
}

// Stop halts all timers. In-flight requests are not aborted; their results
// are simply discarded by the owning cache if it was invalidated meanwhile.
func (p *Poller) Stop() error {
	if err := p.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop poll scheduler: %w", err)
	}
	log.Println("⏹️ Poll workers stopped")
	return nil
}
