package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock_alert_backend/config"
	"stock_alert_backend/models"
	"stock_alert_backend/services/calendar"
	"stock_alert_backend/services/notify"
	"stock_alert_backend/services/signals"
	"stock_alert_backend/services/symbols"
)

// cycleInstant is a Wednesday; the test calendar keeps its market open all day.
var cycleInstant = time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	data    map[symbols.Symbol]*models.Series
	fetches int
}

func (s *stubSource) Fetch(ctx context.Context, syms []symbols.Symbol) map[symbols.Symbol]*models.Series {
	s.fetches++
	out := make(map[symbols.Symbol]*models.Series, len(syms))
	for _, sym := range syms {
		out[sym] = s.data[sym]
	}
	return out
}

type recordedMail struct {
	to, subject, body string
}

type stubMailer struct {
	sent []recordedMail
	fail bool
}

func (m *stubMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.fail {
		return errors.New("mail transport down")
	}
	m.sent = append(m.sent, recordedMail{to: to, subject: subject, body: body})
	return nil
}

type stubNames struct{}

func (stubNames) DisplayName(ctx context.Context, sym symbols.Symbol) string {
	return "Name of " + string(sym)
}

func openCalendar() calendar.Calendar {
	return calendar.Calendar{Markets: []calendar.Market{{
		Name:     "test",
		Location: time.UTC,
		Open:     calendar.ClockTime{Hour: 0, Minute: 0},
		Close:    calendar.ClockTime{Hour: 23, Minute: 59},
	}}}
}

func schedulerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.MigrateNotificationModels(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM notification_histories")
		db.Exec("DELETE FROM users")
	})
	return db
}

// goldenSeries declines then jumps, so the fast EMA crosses above the slow
// one on the final bar.
func goldenSeries(sym symbols.Symbol) *models.Series {
	series := models.NewSeries(string(sym))
	base := cycleInstant.Add(-3 * time.Hour)
	price := func(i int) float64 {
		if i == 29 {
			return 150
		}
		return 110 - 0.5*float64(i)
	}
	for i := 0; i < 30; i++ {
		p := price(i)
		series.Append(models.Bar{
			Time:   base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   decimal.NewFromFloat(p),
			High:   decimal.NewFromFloat(p + 1),
			Low:    decimal.NewFromFloat(p - 1),
			Close:  decimal.NewFromFloat(p),
			Volume: 1000,
		})
	}
	return series
}

// quietSeries rises monotonically; no crossover ever fires on it.
func quietSeries(sym symbols.Symbol) *models.Series {
	series := models.NewSeries(string(sym))
	base := cycleInstant.Add(-3 * time.Hour)
	for i := 0; i < 30; i++ {
		p := 100 + float64(i)
		series.Append(models.Bar{
			Time:   base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   decimal.NewFromFloat(p),
			High:   decimal.NewFromFloat(p + 1),
			Low:    decimal.NewFromFloat(p - 1),
			Close:  decimal.NewFromFloat(p),
			Volume: 1000,
		})
	}
	return series
}

func testConfig() *config.Config {
	return &config.Config{
		MaxSymbolsUser:  100,
		MaxSymbolsAdmin: 10000,
		CycleInterval:   30 * time.Minute,
	}
}

func newTestScheduler(t *testing.T, db *gorm.DB, source *stubSource, mailer *stubMailer, slots *calendar.SlotTable) *Scheduler {
	t.Helper()
	strat, err := signals.New(signals.StrategyEMACross)
	if err != nil {
		t.Fatalf("New strategy: %v", err)
	}
	return NewScheduler(testConfig(), Deps{
		DB:         db,
		Source:     source,
		Deduper:    notify.NewDeduper(db, 15*time.Minute),
		Mailer:     mailer,
		Names:      stubNames{},
		Calendar:   openCalendar(),
		Slots:      slots,
		Strategies: []signals.Strategy{strat},
	})
}

func TestCycleSendsAndThenSuppresses(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Symbols: "7203\nAAPL", NotifyEnabled: true})

	source := &stubSource{data: map[symbols.Symbol]*models.Series{
		"7203.T": goldenSeries("7203.T"),
		"AAPL":   quietSeries("AAPL"),
	}}
	mailer := &stubMailer{}
	s := newTestScheduler(t, db, source, mailer, nil)

	s.runCycleAt(context.Background(), cycleInstant)

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.to != "alice@example.com" {
		t.Errorf("mail went to %s", mail.to)
	}
	if !strings.Contains(mail.body, "7203.T") || !strings.Contains(mail.body, "Name of 7203.T") {
		t.Errorf("mail body missing the fired symbol:\n%s", mail.body)
	}
	if strings.Contains(mail.body, "AAPL") {
		t.Errorf("quiet symbol should not appear in the mail:\n%s", mail.body)
	}

	var histories int64
	db.Model(&models.NotificationHistory{}).Count(&histories)
	if histories != 1 {
		t.Errorf("history rows = %d, want 1", histories)
	}

	stats := s.Stats()
	if stats.SignalsFired != 1 || stats.AlertsSent != 1 || stats.AlertsSuppressed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.SymbolsRequested != 2 {
		t.Errorf("symbols requested = %d, want 2", stats.SymbolsRequested)
	}

	// Second cycle inside the dedup window: fired again but suppressed.
	s.runCycleAt(context.Background(), cycleInstant.Add(5*time.Minute))

	if len(mailer.sent) != 1 {
		t.Errorf("repeat cycle sent a duplicate mail")
	}
	stats = s.Stats()
	if stats.AlertsSuppressed != 1 || stats.AlertsSent != 0 {
		t.Errorf("repeat cycle stats = %+v", stats)
	}
}

func TestCycleSkipsWhenMarketsClosed(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Symbols: "AAPL", NotifyEnabled: true})

	source := &stubSource{}
	s := newTestScheduler(t, db, source, &stubMailer{}, nil)

	// A Sunday.
	s.runCycleAt(context.Background(), time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC))

	if source.fetches != 0 {
		t.Error("closed-market cycle must not fetch")
	}
	if !s.Stats().Skipped {
		t.Error("cycle should report skipped")
	}
}

func TestCycleIgnoresDisabledUsers(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "muted", Email: "muted@example.com",
		Role: models.RoleUser, Symbols: "7203", NotifyEnabled: false})

	source := &stubSource{data: map[symbols.Symbol]*models.Series{
		"7203.T": goldenSeries("7203.T"),
	}}
	mailer := &stubMailer{}
	s := newTestScheduler(t, db, source, mailer, nil)

	s.runCycleAt(context.Background(), cycleInstant)

	if len(mailer.sent) != 0 {
		t.Error("disabled user received mail")
	}
	if source.fetches != 0 {
		t.Error("cycle with no enabled users must not fetch")
	}
}

func TestCycleBroadcastsAdminSymbols(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Symbols: "AAPL", NotifyEnabled: true})
	db.Create(&models.User{Username: "root", Email: "root@example.com",
		Role: models.RoleAdmin, Symbols: "9984", NotifyEnabled: true})

	source := &stubSource{data: map[symbols.Symbol]*models.Series{
		"AAPL":   quietSeries("AAPL"),
		"9984.T": goldenSeries("9984.T"),
	}}
	mailer := &stubMailer{}
	s := newTestScheduler(t, db, source, mailer, nil)

	s.runCycleAt(context.Background(), cycleInstant)

	// Both the admin (own set) and the standard user (broadcast) get the hit.
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d mails, want 2", len(mailer.sent))
	}
	for _, mail := range mailer.sent {
		if !strings.Contains(mail.body, "9984.T") {
			t.Errorf("mail to %s missing broadcast symbol:\n%s", mail.to, mail.body)
		}
	}
}

func TestCycleSkipsUserWithoutEmail(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "ghost", Email: "",
		Role: models.RoleUser, Symbols: "7203", NotifyEnabled: true})

	source := &stubSource{data: map[symbols.Symbol]*models.Series{
		"7203.T": goldenSeries("7203.T"),
	}}
	mailer := &stubMailer{}
	s := newTestScheduler(t, db, source, mailer, nil)

	s.runCycleAt(context.Background(), cycleInstant)

	if len(mailer.sent) != 0 {
		t.Error("user without an email address received mail")
	}
	var histories int64
	db.Model(&models.NotificationHistory{}).Count(&histories)
	if histories != 0 {
		t.Error("undeliverable alert must not be recorded")
	}
}

func TestFailedSendLeavesNoHistory(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Symbols: "7203", NotifyEnabled: true})

	source := &stubSource{data: map[symbols.Symbol]*models.Series{
		"7203.T": goldenSeries("7203.T"),
	}}
	mailer := &stubMailer{fail: true}
	s := newTestScheduler(t, db, source, mailer, nil)

	s.runCycleAt(context.Background(), cycleInstant)

	var histories int64
	db.Model(&models.NotificationHistory{}).Count(&histories)
	if histories != 0 {
		t.Error("failed delivery must not be recorded, so the next cycle retries")
	}

	// Transport recovers; the same signal goes out on the next cycle.
	mailer.fail = false
	s.runCycleAt(context.Background(), cycleInstant.Add(5*time.Minute))
	if len(mailer.sent) != 1 {
		t.Errorf("recovered cycle sent %d mails, want 1", len(mailer.sent))
	}
}

func TestSlotModeSingleBest(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Symbols: "7203\n9984", NotifyEnabled: true})

	source := &stubSource{data: map[symbols.Symbol]*models.Series{
		"7203.T": goldenSeries("7203.T"),
		"9984.T": goldenSeries("9984.T"),
	}}
	mailer := &stubMailer{}

	slots, err := calendar.ParseSlotTable("12:00=ema_cross", time.UTC)
	if err != nil {
		t.Fatalf("ParseSlotTable: %v", err)
	}
	s := newTestScheduler(t, db, source, mailer, slots)

	s.runCycleAt(context.Background(), cycleInstant)

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.subject != "EMA crossover alert" {
		t.Errorf("subject = %q, want the strategy-specific one", mail.subject)
	}
	// Only the first surviving signal is reported and recorded.
	if strings.Contains(mail.body, "9984.T") {
		t.Errorf("second hit should be dropped in slot mode:\n%s", mail.body)
	}
	var histories int64
	db.Model(&models.NotificationHistory{}).Count(&histories)
	if histories != 1 {
		t.Errorf("history rows = %d, want 1", histories)
	}
}

func TestSlotModeSkipsBetweenSlots(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Symbols: "7203", NotifyEnabled: true})

	source := &stubSource{}
	slots, err := calendar.ParseSlotTable("09:30=ema_cross", time.UTC)
	if err != nil {
		t.Fatalf("ParseSlotTable: %v", err)
	}
	s := newTestScheduler(t, db, source, &stubMailer{}, slots)

	s.runCycleAt(context.Background(), cycleInstant) // 12:00, no slot

	if source.fetches != 0 {
		t.Error("cycle outside any slot must not fetch")
	}
	if !s.Stats().Skipped {
		t.Error("cycle should report skipped")
	}
}

func TestCyclePanicIsolatedPerUser(t *testing.T) {
	db := schedulerDB(t)
	db.Create(&models.User{Username: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Symbols: "7203", NotifyEnabled: true})
	db.Create(&models.User{Username: "bob", Email: "bob@example.com",
		Role: models.RoleUser, Symbols: "7203", NotifyEnabled: true})

	source := &stubSource{data: map[symbols.Symbol]*models.Series{
		"7203.T": goldenSeries("7203.T"),
	}}
	mailer := &stubMailer{}

	s := newTestScheduler(t, db, source, mailer, nil)
	s.deps.Strategies = []signals.Strategy{&panicOnce{inner: s.deps.Strategies[0]}}

	s.runCycleAt(context.Background(), cycleInstant)

	// The first user's panic must not stop the second user's processing.
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1 from the surviving user", len(mailer.sent))
	}
	if mailer.sent[0].to != "bob@example.com" {
		t.Errorf("surviving mail went to %s", mailer.sent[0].to)
	}
}

// panicOnce panics on its first evaluation and delegates afterwards.
type panicOnce struct {
	inner signals.Strategy
	fired bool
}

func (p *panicOnce) Name() string { return p.inner.Name() }

func (p *panicOnce) Evaluate(s *models.Series) *signals.Signal {
	if !p.fired {
		p.fired = true
		panic(fmt.Sprintf("strategy blew up on %s", s.Symbol))
	}
	return p.inner.Evaluate(s)
}
