package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"stock_alert_backend/config"
	"stock_alert_backend/models"
	"stock_alert_backend/services/calendar"
	"stock_alert_backend/services/notify"
	"stock_alert_backend/services/signals"
	"stock_alert_backend/services/symbols"
)

// PriceSource supplies one cycle's price series for a symbol universe. The
// result map carries an entry per requested symbol; nil marks an absent one.
type PriceSource interface {
	Fetch(ctx context.Context, syms []symbols.Symbol) map[symbols.Symbol]*models.Series
}

// NameResolver supplies a display name for a symbol, or "" when unknown.
type NameResolver interface {
	DisplayName(ctx context.Context, sym symbols.Symbol) string
}

// CycleStats is a snapshot of the most recent cycle, served on /status.
type CycleStats struct {
	LastRun          time.Time `json:"last_run"`
	Skipped          bool      `json:"skipped"`
	Users            int       `json:"users"`
	SymbolsRequested int       `json:"symbols_requested"`
	SymbolsAbsent    int       `json:"symbols_absent"`
	SignalsFired     int       `json:"signals_fired"`
	AlertsSent       int       `json:"alerts_sent"`
	AlertsSuppressed int       `json:"alerts_suppressed"`
}

// Deps carries the collaborators a Scheduler drives. All are constructed once
// at startup and passed in explicitly.
type Deps struct {
	DB         *gorm.DB
	Source     PriceSource
	Deduper    *notify.Deduper
	Mailer     notify.Mailer
	Names      NameResolver
	Calendar   calendar.Calendar
	Slots      *calendar.SlotTable // nil selects continuous mode
	Strategies []signals.Strategy  // continuous-mode strategy list
}

// Scheduler runs polling cycles, either continuously on a fixed interval or
// as externally triggered single shots.
type Scheduler struct {
	cfg  *config.Config
	deps Deps
	cron *gocron.Scheduler

	mu    sync.RWMutex
	stats CycleStats
}

// NewScheduler creates a scheduler instance.
func NewScheduler(cfg *config.Config, deps Deps) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		deps: deps,
		cron: gocron.NewScheduler(time.UTC),
	}
}

// Start begins the continuous loop. SingletonMode prevents a slow cycle from
// overlapping the next tick.
func (s *Scheduler) Start() {
	log.Printf("Starting scheduler, cycle interval %s", s.cfg.CycleInterval)

	s.cron.Every(s.cfg.CycleInterval).SingletonMode().Do(func() {
		s.RunCycle(context.Background())
	})

	s.cron.StartAsync()
}

// Stop halts the continuous loop. A running cycle finishes its work.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// Stats returns a snapshot of the latest cycle.
func (s *Scheduler) Stats() CycleStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// RunCycle executes one cycle at the current instant. Exported for the
// single-shot mode and external triggering.
func (s *Scheduler) RunCycle(ctx context.Context) {
	s.runCycleAt(ctx, time.Now())
}

// runCycleAt is the cycle body with an injectable clock.
func (s *Scheduler) runCycleAt(ctx context.Context, now time.Time) {
	stats := CycleStats{LastRun: now}
	defer func() {
		s.mu.Lock()
		s.stats = stats
		s.mu.Unlock()
	}()

	// Gate before any side effect.
	if !s.deps.Calendar.AnyOpen(now) {
		log.Println("All monitored markets closed, skipping cycle")
		s.deps.Calendar.LogGate(now)
		stats.Skipped = true
		return
	}

	strategies := s.deps.Strategies
	singleBest := false
	if s.deps.Slots != nil {
		kind, ok := s.deps.Slots.Active(now)
		if !ok {
			log.Println("No strategy slot matches the current minute, skipping cycle")
			stats.Skipped = true
			return
		}
		strat, err := signals.New(kind)
		if err != nil {
			log.Printf("Slot strategy unavailable: %v", err)
			stats.Skipped = true
			return
		}
		strategies = []signals.Strategy{strat}
		singleBest = true
		log.Printf("Slot matched, running strategy %s", kind)
	}
	if len(strategies) == 0 {
		log.Println("No strategies configured, skipping cycle")
		stats.Skipped = true
		return
	}

	var users []models.User
	if err := s.deps.DB.WithContext(ctx).
		Where("notify_enabled = ?", true).
		Find(&users).Error; err != nil {
		log.Printf("Failed to load users, aborting cycle: %v", err)
		stats.Skipped = true
		return
	}
	stats.Users = len(users)
	if len(users) == 0 {
		log.Println("No enabled users, skipping cycle")
		stats.Skipped = true
		return
	}

	registry := symbols.NewRegistry(s.cfg.MaxSymbolsUser, s.cfg.MaxSymbolsAdmin)
	sets := registry.BuildEffectiveSets(users)
	universe := symbols.Union(sets)
	stats.SymbolsRequested = len(universe)
	if len(universe) == 0 {
		log.Println("No symbols on any watchlist, skipping cycle")
		stats.Skipped = true
		return
	}

	log.Printf("Cycle start: %d users, %d symbols, %d strategies",
		len(users), len(universe), len(strategies))

	// One fetch serves every user this cycle.
	data := s.deps.Source.Fetch(ctx, universe)
	for _, series := range data {
		if series == nil {
			stats.SymbolsAbsent++
		}
	}

	for i := range users {
		s.processUser(ctx, &users[i], sets[users[i].ID], data, strategies, singleBest, now, &stats)
	}

	log.Printf("Cycle done: %d signals fired, %d alerts sent, %d suppressed, %d symbols absent",
		stats.SignalsFired, stats.AlertsSent, stats.AlertsSuppressed, stats.SymbolsAbsent)
}

// processUser evaluates one user's effective symbols and delivers at most one
// email. A panic in strategy code is contained to this user.
func (s *Scheduler) processUser(ctx context.Context, user *models.User, set []symbols.Symbol,
	data map[symbols.Symbol]*models.Series, strategies []signals.Strategy,
	singleBest bool, now time.Time, stats *CycleStats) {

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic while processing user %d: %v", user.ID, r)
		}
	}()

	var lines []notify.AlertLine

	for _, sym := range set {
		series := data[sym]
		if series == nil {
			continue
		}
		for _, strat := range strategies {
			sig := strat.Evaluate(series)
			if sig == nil {
				continue
			}
			stats.SignalsFired++

			if !s.deps.Deduper.ShouldNotify(ctx, user.ID, sym, sig.Kind, now) {
				stats.AlertsSuppressed++
				continue
			}

			lines = append(lines, notify.AlertLine{
				Symbol: sym,
				Name:   s.deps.Names.DisplayName(ctx, sym),
				Signal: sig,
			})
			if singleBest {
				// First surviving signal wins; the rest of this cycle's
				// hits for the user are dropped without a history record.
				s.deliver(ctx, user, lines, singleBest, now, stats)
				return
			}
		}
	}

	if len(lines) > 0 {
		s.deliver(ctx, user, lines, singleBest, now, stats)
	}
}

// deliver composes and sends one email, then records history for each line.
// History is written only after a successful send, so a failed delivery gets
// retried naturally on the next cycle.
func (s *Scheduler) deliver(ctx context.Context, user *models.User,
	lines []notify.AlertLine, singleBest bool, now time.Time, stats *CycleStats) {

	if user.Email == "" {
		log.Printf("User %d has no email address, dropping %d alert(s)", user.ID, len(lines))
		return
	}

	var subject, body string
	if singleBest && s.deps.Slots != nil {
		kind, _ := s.deps.Slots.Active(now)
		subject, body = notify.ComposeSingle(lines, kind, now)
	} else {
		subject, body = notify.ComposeAggregate(lines, now)
	}

	if err := s.deps.Mailer.Send(ctx, user.Email, subject, body); err != nil {
		log.Printf("Failed to send alert mail to user %d: %v", user.ID, err)
		return
	}
	stats.AlertsSent++
	log.Printf("Sent %d alert(s) to user %d", len(lines), user.ID)

	for _, line := range lines {
		if err := s.deps.Deduper.Record(ctx, user.ID, line.Symbol, line.Signal.Kind, now); err != nil {
			log.Printf("Failed to record history for user %d %s: %v", user.ID, line.Symbol, err)
		}
	}
}
