package repository

import (
	"context"
	"errors"

	"skill-progress-system/models"
)

// Storage-level failure signals. Services match on these with errors.Is and
// translate them into their own error vocabulary.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrConflict     = errors.New("write conflict")
)

// Tx exposes the typed reads and writes the core services need. Every method
// runs inside the transaction that produced the Tx; the transaction commits
// when the RunInTransaction callback returns nil and rolls back otherwise.
type Tx interface {
	// Stat store. The achievement engine only reads counters; mutation
	// belongs to the stats flow, which takes the row lock first.
	GetUserCounters(userID string) (models.UserCounters, error)
	GetUserStatsForUpdate(userID string) (*models.UserStats, error)
	CreateUserStats(stats *models.UserStats) error
	SaveUserStats(stats *models.UserStats) error

	// DeductRewardBalance subtracts amount from the user's balance only if
	// the balance covers it, and returns the new balance. ErrConflict is
	// returned when the guarded update matches no row (balance moved
	// underneath us or the stats row is gone).
	DeductRewardBalance(userID string, amount int64) (int64, error)

	// Achievement catalog (append-only, seeded at boot).
	ListAchievementTypes() ([]models.AchievementType, error)

	// User achievement records.
	ListUserAchievements(userID string) ([]models.UserAchievement, error)
	// InsertUserAchievement inserts the record. If a record for the same
	// (user, achievement type) already exists it is left untouched and
	// ErrDuplicateKey is returned without aborting the transaction.
	InsertUserAchievement(rec *models.UserAchievement) error
	// UpdateUserAchievementProgress writes status/percent for a record that
	// is still in progress. ErrConflict is returned when the row was
	// concurrently completed (the guard matched nothing).
	UpdateUserAchievementProgress(rec *models.UserAchievement) error

	// Store.
	GetStoreItem(itemID string) (*models.StoreItem, error)
	GetOwnership(userID, itemID string) (*models.ItemOwnership, error)
	InsertOwnership(own *models.ItemOwnership) error
}

// Gateway is the transactional boundary the core is written against, so the
// storage engine stays swappable (Postgres in production, an in-memory fake
// in tests).
type Gateway interface {
	RunInTransaction(ctx context.Context, fn func(Tx) error) error
}
