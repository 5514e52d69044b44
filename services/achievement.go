package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"skill-progress-system/models"
	"skill-progress-system/repository"
)

// AchievementService derives per-user achievement records from stat counters.
// It owns all writes to the user_achievements table and touches nothing else.
type AchievementService struct {
	Gateway repository.Gateway
}

func NewAchievementService(gw repository.Gateway) *AchievementService {
	return &AchievementService{Gateway: gw}
}

// EnsureBackfilled creates one in-progress record per catalog entry the user
// is missing, and returns the complete set. Safe to call concurrently for the
// same user: a lost duplicate-insert race means another caller already
// backfilled that row, and is not an error.
func (s *AchievementService) EnsureBackfilled(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var records []models.UserAchievement
	err := s.Gateway.RunInTransaction(ctx, func(tx repository.Tx) error {
		types, err := tx.ListAchievementTypes()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		recs, err := tx.ListUserAchievements(userID)
		if err != nil {
			return err
		}
		records, err = backfillMissing(tx, userID, types, recs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Recompute refreshes status and progress percentage for every record still
// in progress, backfilling first if needed. Completed records are terminal
// and never re-derived from live counters. A detected write conflict is
// retried once with a fresh read before being surfaced.
func (s *AchievementService) Recompute(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	records, err := s.recomputeOnce(ctx, userID)
	if errors.Is(err, repository.ErrConflict) {
		records, err = s.recomputeOnce(ctx, userID)
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrWriteConflict, err)
		}
	}
	return records, err
}

func (s *AchievementService) recomputeOnce(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var records []models.UserAchievement
	err := s.Gateway.RunInTransaction(ctx, func(tx repository.Tx) error {
		types, err := tx.ListAchievementTypes()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}

		counters, err := tx.GetUserCounters(userID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
			}
			// No stats row yet — every counter reads as zero.
			counters = models.UserCounters{Level: 1}
		}

		recs, err := tx.ListUserAchievements(userID)
		if err != nil {
			return err
		}
		recs, err = backfillMissing(tx, userID, types, recs)
		if err != nil {
			return err
		}

		byID := make(map[string]models.AchievementType, len(types))
		for _, t := range types {
			byID[t.ID] = t
		}

		for i := range recs {
			rec := &recs[i]
			if rec.Completed() {
				continue // terminal
			}
			def, ok := byID[rec.AchievementTypeID]
			if !ok {
				continue // definition gone from catalog; leave the record alone
			}
			status, pct := progressFor(def, counters)
			if status == rec.Status && pct == rec.ProgressPercent {
				continue // skip no-op writes
			}
			rec.Status = status
			rec.ProgressPercent = pct
			if status == models.AchievementStatusCompleted {
				now := time.Now()
				rec.CompletedAt = &now
			}
			if err := tx.UpdateUserAchievementProgress(rec); err != nil {
				return err
			}
		}

		records = recs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// backfillMissing inserts a zero-progress record for each catalog entry the
// user lacks. When anything was inserted (or an insert lost a race) the set
// is re-read so the caller always gets the complete, consistent view.
func backfillMissing(tx repository.Tx, userID string, types []models.AchievementType, recs []models.UserAchievement) ([]models.UserAchievement, error) {
	have := make(map[string]bool, len(recs))
	for _, r := range recs {
		have[r.AchievementTypeID] = true
	}

	changed := false
	for _, t := range types {
		if have[t.ID] {
			continue
		}
		rec := models.UserAchievement{
			ID:                uuid.NewString(),
			ExternalUserID:    userID,
			AchievementTypeID: t.ID,
			Status:            models.AchievementStatusInProgress,
			ProgressPercent:   0,
		}
		err := tx.InsertUserAchievement(&rec)
		if errors.Is(err, repository.ErrDuplicateKey) {
			// A concurrent caller backfilled this row first — already done.
			changed = true
			continue
		}
		if err != nil {
			return nil, err
		}
		changed = true
	}

	if !changed {
		return recs, nil
	}
	return tx.ListUserAchievements(userID)
}

// progressFor evaluates the threshold predicate for one definition against
// the current counters.
func progressFor(def models.AchievementType, c models.UserCounters) (models.AchievementStatus, float64) {
	var counter int64
	switch def.Kind {
	case models.AchievementKindLevel:
		counter = c.LevelProgress
	case models.AchievementKindQuestion:
		counter = c.QuestionsAnsweredTotal
	default:
		return models.AchievementStatusInProgress, 0
	}

	if counter >= def.Target {
		return models.AchievementStatusCompleted, 100
	}

	pct := round2(float64(counter) / float64(def.Target) * 100)
	if pct < 0 {
		pct = 0
	}
	if pct >= 100 {
		// Rounding must not fake completion while the counter is short.
		pct = 99.99
	}
	return models.AchievementStatusInProgress, pct
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
