package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"care-portal-server/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lease is a database-backed lock that keeps a job from running in two
// processes at once. An expired lease can be taken over.
type Lease struct {
	db     *gorm.DB
	name   string
	holder string
	ttl    time.Duration

	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
}

// NewLease returns a lease on name, valid for ttl after each acquisition.
func NewLease(db *gorm.DB, name string, ttl time.Duration) *Lease {
	host, _ := os.Hostname()
	return &Lease{
		db:     db,
		name:   name,
		holder: fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8]),
		ttl:    ttl,
		Now:    time.Now,
	}
}

// Holder identifies this process in the lease table.
func (l *Lease) Holder() string { return l.holder }

// Acquire takes the lease if it is free, expired or already ours.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	now := l.Now()

	seed := models.JobLease{Name: l.name, Holder: l.holder, ExpiresAt: now}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error
	if err != nil {
		return false, fmt.Errorf("seed job lease: %w", err)
	}

	res := l.db.WithContext(ctx).
		Model(&models.JobLease{}).
		Where("name = ? AND (expires_at <= ? OR holder = ?)", l.name, now, l.holder).
		Updates(map[string]any{"holder": l.holder, "expires_at": now.Add(l.ttl)})
	if res.Error != nil {
		return false, fmt.Errorf("acquire job lease: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Release expires the lease if this process holds it.
func (l *Lease) Release(ctx context.Context) error {
	err := l.db.WithContext(ctx).
		Model(&models.JobLease{}).
		Where("name = ? AND holder = ?", l.name, l.holder).
		Update("expires_at", l.Now()).Error
	if err != nil {
		return fmt.Errorf("release job lease: %w", err)
	}
	return nil
}
