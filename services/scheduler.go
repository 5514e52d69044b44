// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"skill-progress-system/models"
)

// StartReconcileScheduler periodically re-runs Recompute for users active
// since the previous sweep, catching achievement rows a crashed or timed-out
// request never got to update.
func StartReconcileScheduler(db *gorm.DB, achievements *AchievementService, interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	lastSweep := time.Now()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			since := lastSweep
			lastSweep = time.Now()

			var userIDs []string
			err := db.Model(&models.UserStats{}).
				Where("last_activity_at >= ?", since).
				Pluck("external_user_id", &userIDs).Error
			if err != nil {
				log.Printf("[Reconcile] DB error: %v", err)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			for _, userID := range userIDs {
				if _, err := achievements.Recompute(ctx, userID); err != nil {
					log.Printf("[Reconcile] Recompute failed for user %s: %v", userID, err)
				}
			}
			if len(userIDs) > 0 {
				log.Printf("✅ Reconciled achievements for %d active users", len(userIDs))
			}
		}),
	)
}
