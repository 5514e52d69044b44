package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skill-progress-system/models"
)

// Postgres SQLSTATEs we care about
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// GormGateway implements Gateway on top of a GORM Postgres connection.
type GormGateway struct {
	DB *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{DB: db}
}

func (g *GormGateway) RunInTransaction(ctx context.Context, fn func(Tx) error) error {
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	return translateErr(err)
}

// translateErr maps driver errors onto the repository sentinels so services
// never import pgx or gorm.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Code)
		}
	}
	return err
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetUserCounters(userID string) (models.UserCounters, error) {
	var stats models.UserStats
	err := t.db.Where("external_user_id = ?", userID).First(&stats).Error
	if err != nil {
		return models.UserCounters{}, translateErr(err)
	}
	return stats.Counters(), nil
}

func (t *gormTx) GetUserStatsForUpdate(userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", userID).
		First(&stats).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &stats, nil
}

func (t *gormTx) CreateUserStats(stats *models.UserStats) error {
	return translateErr(t.db.Create(stats).Error)
}

func (t *gormTx) SaveUserStats(stats *models.UserStats) error {
	return translateErr(t.db.Save(stats).Error)
}

func (t *gormTx) DeductRewardBalance(userID string, amount int64) (int64, error) {
	res := t.db.Model(&models.UserStats{}).
		Where("external_user_id = ? AND reward_balance >= ?", userID, amount).
		UpdateColumn("reward_balance", gorm.Expr("reward_balance - ?", amount))
	if res.Error != nil {
		return 0, translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// Balance moved underneath the caller's read, or the row is gone.
		return 0, fmt.Errorf("%w: balance deduction matched no row for user %s", ErrConflict, userID)
	}
	var stats models.UserStats
	if err := t.db.Where("external_user_id = ?", userID).First(&stats).Error; err != nil {
		return 0, translateErr(err)
	}
	return stats.RewardBalance, nil
}

func (t *gormTx) ListAchievementTypes() ([]models.AchievementType, error) {
	var types []models.AchievementType
	err := t.db.Order("created_at ASC").Find(&types).Error
	return types, translateErr(err)
}

func (t *gormTx) ListUserAchievements(userID string) ([]models.UserAchievement, error) {
	var recs []models.UserAchievement
	err := t.db.Where("external_user_id = ?", userID).Find(&recs).Error
	return recs, translateErr(err)
}

func (t *gormTx) InsertUserAchievement(rec *models.UserAchievement) error {
	// ON CONFLICT DO NOTHING keeps a lost backfill race from aborting the
	// surrounding transaction; the caller sees ErrDuplicateKey and moves on.
	res := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "achievement_type_id"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user achievement %s/%s", ErrDuplicateKey, rec.ExternalUserID, rec.AchievementTypeID)
	}
	return nil
}

func (t *gormTx) UpdateUserAchievementProgress(rec *models.UserAchievement) error {
	// Guarded on the row still being in progress: completion is terminal,
	// so a concurrently-completed row must never take a stale write.
	res := t.db.Model(&models.UserAchievement{}).
		Where("id = ? AND status = ?", rec.ID, models.AchievementStatusInProgress).
		Updates(map[string]interface{}{
			"status":           rec.Status,
			"progress_percent": rec.ProgressPercent,
			"completed_at":     rec.CompletedAt,
		})
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user achievement %s", ErrConflict, rec.ID)
	}
	return nil
}

func (t *gormTx) GetStoreItem(itemID string) (*models.StoreItem, error) {
	var item models.StoreItem
	err := t.db.Where("id = ?", itemID).First(&item).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &item, nil
}

func (t *gormTx) GetOwnership(userID, itemID string) (*models.ItemOwnership, error) {
	var own models.ItemOwnership
	err := t.db.Where("external_user_id = ? AND store_item_id = ?", userID, itemID).First(&own).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &own, nil
}

func (t *gormTx) InsertOwnership(own *models.ItemOwnership) error {
	// Plain insert: a duplicate here must fail the whole transaction so the
	// balance deduction rolls back with it.
	return translateErr(t.db.Create(own).Error)
}
