package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) Service {
	return Service{db: db}
}

// SelectedItems returns the user's items marked for checkout, most recently
// touched first.
func (s Service) SelectedItems(ctx context.Context, userID uuid.UUID) ([]*Item, error) {
	var items []*Item
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_selected = ?", userID, true).
		Order("updated_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("could not find selected cart items: %w", err)
	}
	return items, nil
}

// ClearSelected removes the user's selected items after checkout.
func (s Service) ClearSelected(ctx context.Context, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_selected = ?", userID, true).
		Delete(&Item{}).Error
	if err != nil {
		return fmt.Errorf("could not clear selected cart items: %w", err)
	}
	return nil
}
