package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the subset of catalog persistence the derived-field
// recomputation and checkout paths need.
type Store interface {
	Product(ctx context.Context, id uuid.UUID) (*Product, error)
	ProductByCode(ctx context.Context, productCode string) (*Product, error)
	ProductsByStatus(ctx context.Context, status Status) ([]*Product, error)
	Ratings(ctx context.Context, productID uuid.UUID) ([]*Rating, error)
	Update(ctx context.Context, p *Product) error
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type Storage struct {
	db *gorm.DB
}

func NewStorage(db *gorm.DB) Storage {
	return Storage{db: db}
}

func (s Storage) Product(ctx context.Context, id uuid.UUID) (*Product, error) {
	p := &Product{}
	if err := s.db.WithContext(ctx).First(p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not find product: %w", err)
	}
	return p, nil
}

func (s Storage) ProductByCode(ctx context.Context, productCode string) (*Product, error) {
	p := &Product{}
	if err := s.db.WithContext(ctx).First(p, "product_code = ?", productCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not find product: %w", err)
	}
	return p, nil
}

func (s Storage) ProductsByStatus(ctx context.Context, status Status) ([]*Product, error) {
	var products []*Product
	if err := s.db.WithContext(ctx).Where("status = ?", status).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("could not find products: %w", err)
	}
	return products, nil
}

func (s Storage) Ratings(ctx context.Context, productID uuid.UUID) ([]*Rating, error) {
	var ratings []*Rating
	if err := s.db.WithContext(ctx).Where("product_id = ?", productID).Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("could not find product ratings: %w", err)
	}
	return ratings, nil
}

func (s Storage) Update(ctx context.Context, p *Product) error {
	err := s.db.WithContext(ctx).
		Model(&Product{}).
		Omit("ID", "ProductCode", "CreatedAt").
		Where("id = ?", p.ID).
		Updates(p).Error
	if err != nil {
		return fmt.Errorf("could not update product: %w", err)
	}
	return nil
}

// DecrementStock applies the quantity atomically so concurrent checkouts
// don't lose updates.
func (s Storage) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	err := s.db.WithContext(ctx).
		Model(&Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("GREATEST(stock - ?, 0)", quantity)).Error
	if err != nil {
		return fmt.Errorf("could not decrement product stock: %w", err)
	}
	return nil
}
