// Package product maintains the catalog fields derived from orders and
// ratings. Catalog CRUD and search are out of scope.
package product

import (
	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/timeutil"
)

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductCode string    `gorm:"uniqueIndex"`
	Name        string
	Status      Status
	Stock       int
	Price       int64
	// RateScore and RateCount are recomputed from all rating records.
	RateScore float64
	RateCount int
	// Sale is the number of units sold across completed orders.
	Sale int

	CreatedAt timeutil.DateTime
	UpdatedAt timeutil.DateTime
}

type Status string

const (
	StatusSelling      Status = "SELLING"
	StatusSoldOut      Status = "SOLD_OUT"
	StatusDiscontinued Status = "DISCONTINUED"
	StatusComingSoon   Status = "COMING_SOON"
)

type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID
	UserID    uuid.UUID
	Score     int

	CreatedAt timeutil.DateTime
	UpdatedAt timeutil.DateTime
}

func (Rating) TableName() string {
	return "product_ratings"
}
