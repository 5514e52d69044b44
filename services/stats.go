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

// Scoring weights (tunable via config/env later)
const (
	PointsPerCorrectAnswer = 10 // level points
	RewardPerCorrectAnswer = 5  // spendable reward balance
)

// BasePointsPerLevel: points needed for the *next* level grow as
// floor(BasePointsPerLevel * n^1.2), so early levels come quickly.
const BasePointsPerLevel = 100

// pointsForNextLevel returns points required to go from currentLevel to the next
func pointsForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BasePointsPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// levelFor derives the level from cumulative level points. LevelProgress
// never resets, so the derived level never goes down.
func levelFor(points int64) int {
	level := 1
	var threshold int64
	for {
		threshold += pointsForNextLevel(level)
		if points < threshold {
			return level
		}
		level++
	}
}

// StatsService is the single owning flow for counter mutation. Everything
// else in the system reads counters; only quiz completion moves them (and
// only the store purchase path ever decrements reward balance).
type StatsService struct {
	Gateway      repository.Gateway
	Achievements *AchievementService
}

func NewStatsService(gw repository.Gateway, achievements *AchievementService) *StatsService {
	return &StatsService{Gateway: gw, Achievements: achievements}
}

// QuizCompletionResult bundles everything a client needs to render the
// post-quiz screen in one response.
type QuizCompletionResult struct {
	Stats        models.UserStats         `json:"stats"`
	LeveledUp    bool                     `json:"leveled_up"`
	RewardEarned int64                    `json:"reward_earned"`
	Achievements []models.UserAchievement `json:"achievements"`
}

// EnsureStatsRecord ensures a UserStats row exists (idempotent)
func (s *StatsService) EnsureStatsRecord(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats *models.UserStats
	err := s.Gateway.RunInTransaction(ctx, func(tx repository.Tx) error {
		existing, err := tx.GetUserStatsForUpdate(userID)
		if err == nil {
			stats = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
		}
		stats = &models.UserStats{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			Level:          1,
		}
		return tx.CreateUserStats(stats)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RecordQuizCompletion transactionally applies one quiz's worth of counter
// increments, then recomputes achievements as a single awaited unit of work.
func (s *StatsService) RecordQuizCompletion(ctx context.Context, userID string, questionsAnswered, correctAnswers int) (*QuizCompletionResult, error) {
	if questionsAnswered <= 0 || correctAnswers < 0 || correctAnswers > questionsAnswered {
		return nil, fmt.Errorf("invalid quiz result: %d correct of %d answered", correctAnswers, questionsAnswered)
	}

	result, err := s.recordOnce(ctx, userID, questionsAnswered, correctAnswers)
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrDuplicateKey) {
		// Raced with another completion (or a concurrent lazy create); the
		// row exists now, one fresh attempt settles it.
		result, err = s.recordOnce(ctx, userID, questionsAnswered, correctAnswers)
	}
	if err != nil {
		return nil, err
	}

	achievements, err := s.Achievements.Recompute(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.Achievements = achievements
	return result, nil
}

func (s *StatsService) recordOnce(ctx context.Context, userID string, questionsAnswered, correctAnswers int) (*QuizCompletionResult, error) {
	var result *QuizCompletionResult
	err := s.Gateway.RunInTransaction(ctx, func(tx repository.Tx) error {
		stats, err := tx.GetUserStatsForUpdate(userID)
		if errors.Is(err, repository.ErrNotFound) {
			stats = &models.UserStats{
				ID:             uuid.NewString(),
				ExternalUserID: userID,
				Level:          1,
			}
			if err := tx.CreateUserStats(stats); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
		}

		reward := int64(correctAnswers) * RewardPerCorrectAnswer

		stats.QuestionsAnsweredTotal += int64(questionsAnswered)
		stats.LevelProgress += int64(correctAnswers) * PointsPerCorrectAnswer
		stats.RewardBalance += reward

		leveled := false
		if newLevel := levelFor(stats.LevelProgress); newLevel > stats.Level {
			now := time.Now()
			stats.Level = newLevel
			stats.LastLevelUpAt = &now
			leveled = true
		}
		now := time.Now()
		stats.LastActivityAt = &now

		if err := tx.SaveUserStats(stats); err != nil {
			return err
		}

		result = &QuizCompletionResult{
			Stats:        *stats,
			LeveledUp:    leveled,
			RewardEarned: reward,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
