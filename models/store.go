package models

import (
	"time"

	"gorm.io/gorm"
)

// StoreItemStatus indicates the publishing status of a store item
type StoreItemStatus string

const (
	StoreItemStatusDraft     StoreItemStatus = "draft"
	StoreItemStatusPublished StoreItemStatus = "published"
	StoreItemStatusArchived  StoreItemStatus = "archived"
)

// StoreItem is a purchasable content item. Price is authoritative here —
// clients echo it back on purchase and a mismatch rejects the request.
type StoreItem struct {
	ID          string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code        string          `gorm:"uniqueIndex;not null" json:"code"` // slug, e.g., "dark-theme"
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	IconURL     string          `gorm:"type:text" json:"icon_url"`
	Price       int64           `gorm:"not null;default:0" json:"price"` // reward points, ≥ 0
	Status      StoreItemStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ItemOwnership records a completed purchase. The unique (user, item) index is
// the backstop against double-purchase races: the second insert fails and the
// transaction rolls back its balance deduction.
type ItemOwnership struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_user_item" json:"external_user_id"`
	StoreItemID    string    `gorm:"not null;uniqueIndex:idx_user_item" json:"store_item_id"`
	PricePaid      int64     `gorm:"not null" json:"price_paid"`
	AcquiredAt     time.Time `gorm:"autoCreateTime" json:"acquired_at"`
}

// Seed store items (codes slugged from names at seeding time)
var StoreItemSeed = []StoreItem{
	{Name: "Dark Theme", Description: "Night-friendly color scheme", Price: 50, Status: StoreItemStatusPublished},
	{Name: "Streak Freeze", Description: "Protects your streak for one missed day", Price: 120, Status: StoreItemStatusPublished},
	{Name: "Bonus Question Pack", Description: "20 extra practice questions", Price: 200, Status: StoreItemStatusPublished},
	{Name: "Golden Avatar Frame", Description: "Show off a little", Price: 500, Status: StoreItemStatusPublished},
}
