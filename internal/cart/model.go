// Package cart holds the cart items order creation consumes. Cart CRUD
// itself lives in a separate service.
package cart

import (
	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/timeutil"
)

type Item struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID
	ProductID   uuid.UUID
	ProductCode string
	Name        string
	Quantity    int
	Price       int64
	Status      Status
	IsSelected  bool

	CreatedAt timeutil.DateTime
	UpdatedAt timeutil.DateTime
}

func (Item) TableName() string {
	return "cart_items"
}

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusSoldOut     Status = "SOLD_OUT"
	StatusUnavailable Status = "UNAVAILABLE"
)

// Available reports whether the item can be checked out.
func (s Status) Available() bool {
	return s == StatusAvailable
}
