package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"skill-progress-system/models"
	"skill-progress-system/repository"
)

// StoreService exchanges reward balance for item ownership. It is the only
// writer of reward_balance; the deduction and the ownership insert always
// land in the same transaction or not at all.
type StoreService struct {
	Gateway repository.Gateway
}

func NewStoreService(gw repository.Gateway) *StoreService {
	return &StoreService{Gateway: gw}
}

// PurchaseResult is returned on a successful purchase.
type PurchaseResult struct {
	Balance   int64                `json:"balance"`
	Ownership models.ItemOwnership `json:"ownership"`
}

// Purchase atomically checks the authoritative price, existing ownership and
// balance, then deducts and grants in one transaction. Retrying a purchase
// that already succeeded yields ErrAlreadyOwned with no second charge. A
// detected write conflict is retried once before being surfaced.
func (s *StoreService) Purchase(ctx context.Context, userID, itemID string, expectedPrice int64) (*PurchaseResult, error) {
	result, err := s.purchaseOnce(ctx, userID, itemID, expectedPrice)
	if errors.Is(err, repository.ErrConflict) {
		result, err = s.purchaseOnce(ctx, userID, itemID, expectedPrice)
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrWriteConflict, err)
		}
	}
	return result, err
}

func (s *StoreService) purchaseOnce(ctx context.Context, userID, itemID string, expectedPrice int64) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := s.Gateway.RunInTransaction(ctx, func(tx repository.Tx) error {
		item, err := tx.GetStoreItem(itemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		if item.Status != models.StoreItemStatusPublished {
			return ErrItemNotFound
		}
		// The client echoes the price it displayed; a stale cached price
		// must not buy at the new one.
		if item.Price != expectedPrice {
			return fmt.Errorf("%w: item %s costs %d, client expected %d", ErrPriceMismatch, item.Code, item.Price, expectedPrice)
		}

		// Row lock on the stats row serializes purchases per user.
		stats, err := tx.GetUserStatsForUpdate(userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
		}

		if _, err := tx.GetOwnership(userID, itemID); err == nil {
			return ErrAlreadyOwned
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		var balance int64
		if stats != nil {
			balance = stats.RewardBalance
		}
		if balance < item.Price {
			return fmt.Errorf("%w: balance %d, price %d", ErrInsufficientFunds, balance, item.Price)
		}

		newBalance := balance
		if item.Price > 0 {
			newBalance, err = tx.DeductRewardBalance(userID, item.Price)
			if err != nil {
				return err
			}
		}

		own := models.ItemOwnership{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			StoreItemID:    item.ID,
			PricePaid:      item.Price,
		}
		if err := tx.InsertOwnership(&own); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				// Lost the race — the other purchase owns the row, and this
				// transaction's deduction rolls back with the error.
				return ErrAlreadyOwned
			}
			return err
		}

		result = &PurchaseResult{Balance: newBalance, Ownership: own}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
