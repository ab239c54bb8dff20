package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/page"
	"gorm.io/gorm"
)

type Store interface {
	Create(ctx context.Context, o *Order) error
	Order(ctx context.Context, orderCode string) (*Order, error)
	OrderByTransID(ctx context.Context, transID string) (*Order, error)
	Orders(ctx context.Context, userID uuid.UUID, statuses []Status, pagination page.Pagination) (page.Page[*Order], error)
	Update(ctx context.Context, o *Order) error
}

type Storage struct {
	db *gorm.DB
}

func NewStorage(db *gorm.DB) Storage {
	return Storage{db: db}
}

func (s Storage) Create(ctx context.Context, o *Order) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("could not create order: %w", err)
	}
	return nil
}

func (s Storage) Order(ctx context.Context, orderCode string) (*Order, error) {
	o := &Order{}
	if err := s.db.WithContext(ctx).First(o, "order_code = ?", orderCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not find order: %w", err)
	}
	return o, nil
}

func (s Storage) OrderByTransID(ctx context.Context, transID string) (*Order, error) {
	o := &Order{}
	if err := s.db.WithContext(ctx).First(o, "payment_trans_id = ?", transID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not find order by transaction id: %w", err)
	}
	return o, nil
}

func (s Storage) Orders(ctx context.Context, userID uuid.UUID, statuses []Status, pagination page.Pagination) (page.Page[*Order], error) {
	query := s.db.WithContext(ctx).
		Model(&Order{}).
		Where("user_id = ?", userID).
		Order("placed_at DESC")
	if len(statuses) != 0 {
		query = query.Where("status IN ?", statuses)
	}

	orders, err := page.Paginate[*Order](query, pagination)
	if err != nil {
		return page.Page[*Order]{}, fmt.Errorf("could not find orders: %w", err)
	}
	return orders, nil
}

func (s Storage) Update(ctx context.Context, o *Order) error {
	// Select all columns explicitly. Struct based updates skip zero values,
	// which would leave cleared payment fields, like the transaction id
	// after a method change, stale in the database.
	err := s.db.WithContext(ctx).
		Model(&Order{}).
		Select("*").
		Omit("ID", "OrderCode", "CreatedAt").
		Where("order_code = ?", o.OrderCode).
		Updates(o).Error
	if err != nil {
		return fmt.Errorf("could not update order: %w", err)
	}
	return nil
}

// CompletedItemQuantities sums the quantity of each product across orders in
// completed status. Feeds the catalog sales recomputation.
func (s Storage) CompletedItemQuantities(ctx context.Context) (map[uuid.UUID]int, error) {
	var orders []*Order
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusCompleted).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("could not find completed orders: %w", err)
	}

	quantities := map[uuid.UUID]int{}
	for _, o := range orders {
		for _, item := range o.Items {
			quantities[item.ProductID] += item.Quantity
		}
	}
	return quantities, nil
}
