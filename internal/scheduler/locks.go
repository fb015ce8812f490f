package scheduler

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobLock is a database-backed lease so only one instance runs a
// scheduled job at a time. The lease expires on its own, so a crashed
// holder never wedges the job permanently.
type JobLock struct {
	Name        string    `gorm:"primaryKey;type:text"`
	LockedUntil time.Time `gorm:"not null"`
}

func (JobLock) TableName() string { return "scheduler_locks" }

// acquireLock claims the named lease for the given duration. It
// returns false when another instance holds an unexpired lease.
func acquireLock(ctx context.Context, db *gorm.DB, name string, now time.Time, lease time.Duration) (bool, error) {
	lock := JobLock{Name: name, LockedUntil: now.Add(lease)}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = db.WithContext(ctx).Model(&JobLock{}).
		Where("name = ? AND locked_until <= ?", name, now).
		Update("locked_until", now.Add(lease))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// releaseLock lets the next run claim the lease immediately.
func releaseLock(ctx context.Context, db *gorm.DB, name string, now time.Time) error {
	return db.WithContext(ctx).Model(&JobLock{}).
		Where("name = ?", name).
		Update("locked_until", now).Error
}
