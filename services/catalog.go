package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skill-progress-system/models"
	"skill-progress-system/utils"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// CatalogService manages the achievement catalog and the store item list.
// Both are append-only from the core's point of view: the progress engine and
// the purchase transaction only ever read them.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// SeedAll upserts the predefined achievement definitions and store items.
// Idempotent on the unique code, so it runs on every boot.
func (s *CatalogService) SeedAll() error {
	for _, def := range models.AchievementSeed {
		def.ID = uuid.NewString()
		def.Code = slug.Make(def.Name)
		def.Name = titleCaser.String(def.Name)
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&def).Error; err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", def.Code, err)
		}
	}

	for _, item := range models.StoreItemSeed {
		item.ID = uuid.NewString()
		item.Code = slug.Make(item.Name)
		item.Name = titleCaser.String(item.Name)
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&item).Error; err != nil {
			return fmt.Errorf("failed to seed store item %s: %w", item.Code, err)
		}
	}

	log.Printf("✅ Catalog seeded: %d achievement definitions, %d store items",
		len(models.AchievementSeed), len(models.StoreItemSeed))
	return nil
}

// ListAchievementTypes returns the full catalog, oldest first.
func (s *CatalogService) ListAchievementTypes() ([]models.AchievementType, error) {
	var types []models.AchievementType
	err := s.DB.Order("created_at ASC").Find(&types).Error
	return types, err
}

// ListPublishedItems returns the store items visible to users.
func (s *CatalogService) ListPublishedItems() ([]models.StoreItem, error) {
	var items []models.StoreItem
	err := s.DB.Where("status = ?", models.StoreItemStatusPublished).
		Order("price ASC").
		Find(&items).Error
	return items, err
}

// --- Admin Handlers ---

// CreateStoreItem creates a new store item (Admin only)
func (s *CatalogService) CreateStoreItem(c *fiber.Ctx) error {
	var req struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Price       *int64                 `json:"price"`
		Status      models.StoreItemStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.Price == nil || *req.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must be a non-negative integer"})
	}
	status := req.Status
	switch status {
	case "":
		status = models.StoreItemStatusDraft
	case models.StoreItemStatusDraft, models.StoreItemStatusPublished, models.StoreItemStatusArchived:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	item := models.StoreItem{
		ID:          uuid.NewString(),
		Code:        slug.Make(req.Name),
		Name:        titleCaser.String(req.Name),
		Description: req.Description,
		Price:       *req.Price,
		Status:      status,
	}
	if err := s.DB.Create(&item).Error; err != nil {
		log.Printf("DB Error creating store item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create store item"})
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateStoreItemStatus allows admin to change publish status (e.g., draft -> published)
func (s *CatalogService) UpdateStoreItemStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	var req struct {
		Status models.StoreItemStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	switch req.Status {
	case models.StoreItemStatusDraft, models.StoreItemStatusPublished, models.StoreItemStatusArchived:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	var item models.StoreItem
	if err := s.DB.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Store item not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	item.Status = req.Status
	if err := s.DB.Save(&item).Error; err != nil {
		log.Printf("DB Error updating store item status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update status"})
	}
	return c.JSON(item)
}

// UploadItemIcon uploads an icon for a store item to R2 (Admin only)
func (s *CatalogService) UploadItemIcon(c *fiber.Ctx) error {
	return s.uploadIcon(c, "store-items", func(id, url string) error {
		return s.DB.Model(&models.StoreItem{}).Where("id = ?", id).
			Update("icon_url", url).Error
	})
}

// UploadAchievementIcon uploads an icon for an achievement definition (Admin only)
func (s *CatalogService) UploadAchievementIcon(c *fiber.Ctx) error {
	return s.uploadIcon(c, "achievements", func(id, url string) error {
		return s.DB.Model(&models.AchievementType{}).Where("id = ?", id).
			Update("icon_url", url).Error
	})
}

func (s *CatalogService) uploadIcon(c *fiber.Ctx, prefix string, save func(id, url string) error) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	fileHeader, err := c.FormFile("icon")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
	}

	key := fmt.Sprintf("%s/%s/%s", prefix, id, fileHeader.Filename)
	url, err := utils.UploadIcon(fileHeader, key)
	if err != nil {
		log.Printf("Icon upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload icon"})
	}

	if err := save(id, url); err != nil {
		log.Printf("DB Error saving icon URL: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save icon URL"})
	}
	return c.JSON(fiber.Map{"icon_url": url})
}
