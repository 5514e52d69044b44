package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStats tracks cumulative learning progress for each user (denormalized for performance)
type UserStats struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core counters — monotonically non-decreasing
	Level                  int   `json:"level" gorm:"default:1"`
	LevelProgress          int64 `json:"level_progress" gorm:"default:0"` // points toward the next level
	QuestionsAnsweredTotal int64 `json:"questions_answered_total" gorm:"default:0"`

	// Spendable currency — only the store purchase path decrements this
	RewardBalance int64 `json:"reward_balance" gorm:"default:0"`

	// Milestones
	LastLevelUpAt  *time.Time `json:"last_level_up_at,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty" gorm:"index"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// UserCounters is the read-only stat snapshot the achievement engine consumes.
type UserCounters struct {
	Level                  int
	LevelProgress          int64
	QuestionsAnsweredTotal int64
	RewardBalance          int64
}

// Counters projects the mutable stats row into a read-only snapshot.
func (s *UserStats) Counters() UserCounters {
	return UserCounters{
		Level:                  s.Level,
		LevelProgress:          s.LevelProgress,
		QuestionsAnsweredTotal: s.QuestionsAnsweredTotal,
		RewardBalance:          s.RewardBalance,
	}
}
