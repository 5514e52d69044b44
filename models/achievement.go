package models

import (
	"time"
)

// AchievementKind selects which stat counter a badge threshold is compared against
type AchievementKind string

const (
	AchievementKindLevel    AchievementKind = "level"    // compares UserStats.LevelProgress
	AchievementKindQuestion AchievementKind = "question" // compares UserStats.QuestionsAnsweredTotal
)

// AchievementStatus is a two-state machine: in_progress → completed (terminal)
type AchievementStatus string

const (
	AchievementStatusInProgress AchievementStatus = "in_progress"
	AchievementStatusCompleted  AchievementStatus = "completed"
)

// AchievementType: static catalog entry (seeded at boot, append-only)
type AchievementType struct {
	ID          string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code        string          `gorm:"uniqueIndex;not null" json:"code"` // e.g., "quick-study", "level-10"
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	IconURL     string          `gorm:"type:text" json:"icon_url"` // R2 URL to SVG/png
	Kind        AchievementKind `gorm:"type:varchar(16);not null" json:"kind"`
	Target      int64           `gorm:"not null" json:"target"` // threshold, always > 0
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement: per-user progress record, exactly one per catalog entry once backfilled.
// Never deleted — completed badges are permanent history.
type UserAchievement struct {
	ID                string            `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID    string            `gorm:"not null;uniqueIndex:idx_user_achievement" json:"external_user_id"`
	AchievementTypeID string            `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_type_id"`
	Status            AchievementStatus `gorm:"type:varchar(16);not null;default:'in_progress'" json:"status"`
	ProgressPercent   float64           `gorm:"not null;default:0" json:"progress_percent"` // [0,100], 2 decimals
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// Completed reports whether the record has reached its terminal state.
func (ua *UserAchievement) Completed() bool {
	return ua.Status == AchievementStatusCompleted
}

// Seed achievement definitions (codes are slugged from names at seeding time)
var AchievementSeed = []AchievementType{
	{
		Name:        "First Steps",
		Description: "Answered your first question",
		Kind:        AchievementKindQuestion,
		Target:      1,
	},
	{
		Name:        "Quick Study",
		Description: "Answered 50 questions",
		Kind:        AchievementKindQuestion,
		Target:      50,
	},
	{
		Name:        "Scholar",
		Description: "Answered 500 questions",
		Kind:        AchievementKindQuestion,
		Target:      500,
	},
	{
		Name:        "Walking Encyclopedia",
		Description: "Answered 5000 questions",
		Kind:        AchievementKindQuestion,
		Target:      5000,
	},
	{
		Name:        "Getting Warmed Up",
		Description: "Earned 100 level points",
		Kind:        AchievementKindLevel,
		Target:      100,
	},
	{
		Name:        "On A Roll",
		Description: "Earned 1000 level points",
		Kind:        AchievementKindLevel,
		Target:      1000,
	},
}
