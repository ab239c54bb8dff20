package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/timeutil"
)

// SalesSource reports how many units of each product were sold across
// orders in completed status.
type SalesSource interface {
	CompletedItemQuantities(ctx context.Context) (map[uuid.UUID]int, error)
}

type Service struct {
	store Store
	sales SalesSource
}

func NewService(store Store, sales SalesSource) Service {
	return Service{store: store, sales: sales}
}

// RefreshRatingsAndSales recomputes the mean rating, rating count and units
// sold for every product in selling status. Both are full recalculations
// from source data, so re-execution is safe.
func (s Service) RefreshRatingsAndSales(ctx context.Context) error {
	if err := s.refreshRatings(ctx); err != nil {
		return err
	}
	return s.refreshSales(ctx)
}

func (s Service) refreshRatings(ctx context.Context) error {
	products, err := s.store.ProductsByStatus(ctx, StatusSelling)
	if err != nil {
		return fmt.Errorf("could not load selling products: %w", err)
	}

	for _, p := range products {
		ratings, err := s.store.Ratings(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(ratings) == 0 {
			continue
		}

		var total int
		for _, r := range ratings {
			total += r.Score
		}
		mean := float64(total) / float64(len(ratings))

		p.RateScore = math.Round(mean*10) / 10
		p.RateCount = len(ratings)
		p.UpdatedAt = timeutil.DateTimeNow()
		if err := s.store.Update(ctx, p); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "product ratings refreshed", "products", len(products))
	return nil
}

func (s Service) refreshSales(ctx context.Context) error {
	quantities, err := s.sales.CompletedItemQuantities(ctx)
	if err != nil {
		return fmt.Errorf("could not load completed order quantities: %w", err)
	}

	for productID, sold := range quantities {
		p, err := s.store.Product(ctx, productID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}

		p.Sale = sold
		p.UpdatedAt = timeutil.DateTimeNow()
		if err := s.store.Update(ctx, p); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "product sales refreshed", "products", len(quantities))
	return nil
}

// Publish moves a coming-soon product to selling at its scheduled release
// time. Re-execution on an already published product is a no-op.
func (s Service) Publish(ctx context.Context, productCode string) error {
	p, err := s.store.ProductByCode(ctx, productCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "publish job references missing product", "product_code", productCode)
			return nil
		}
		return err
	}

	if p.Status != StatusComingSoon {
		slog.InfoContext(ctx, "product already published, skipping", "product_code", productCode)
		return nil
	}

	p.Status = StatusSelling
	p.UpdatedAt = timeutil.DateTimeNow()
	if err := s.store.Update(ctx, p); err != nil {
		return err
	}

	slog.InfoContext(ctx, "product published", "product_code", productCode)
	return nil
}

// DecrementStock reduces stock for a checked-out item.
func (s Service) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	return s.store.DecrementStock(ctx, productID, quantity)
}
