// Package notify suppresses repeat alerts inside a trailing time window and
// delivers the survivors through a pluggable mail transport.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"stock_alert_backend/models"
	"stock_alert_backend/services/signals"
	"stock_alert_backend/services/symbols"
)

// Deduper answers whether a (user, symbol, pattern) alert was already sent
// within the trailing window, backed by the persisted notification history.
// Check-then-act is not atomic across processes; a single active scheduler
// instance is assumed.
type Deduper struct {
	db     *gorm.DB
	window time.Duration
}

// NewDeduper creates a deduper with the given suppression window.
func NewDeduper(db *gorm.DB, window time.Duration) *Deduper {
	return &Deduper{db: db, window: window}
}

// Window returns the suppression window.
func (d *Deduper) Window() time.Duration {
	return d.window
}

// ShouldNotify reports whether an alert for the triple may be sent at now.
// A lookup error is logged and treated as sendable; losing one suppression
// beats silently losing an alert.
func (d *Deduper) ShouldNotify(ctx context.Context, userID uint, sym symbols.Symbol, kind signals.Kind, now time.Time) bool {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.NotificationHistory{}).
		Where("user_id = ? AND symbol = ? AND kind = ? AND sent_at >= ?",
			userID, string(sym), string(kind), now.Add(-d.window)).
		Count(&count).Error
	if err != nil {
		log.Printf("History lookup failed for user %d %s/%s: %v", userID, sym, kind, err)
		return true
	}
	if count > 0 {
		log.Printf("Skipping duplicate alert for user %d: %s %s (within %s window)",
			userID, sym, kind, d.window)
		return false
	}
	return true
}

// Record persists a history row for an alert that was just sent, so a rapid
// second cycle inside the window sees it.
func (d *Deduper) Record(ctx context.Context, userID uint, sym symbols.Symbol, kind signals.Kind, now time.Time) error {
	rec := models.NotificationHistory{
		UserID: userID,
		Symbol: string(sym),
		Kind:   string(kind),
		SentAt: now,
	}
	if err := d.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}
