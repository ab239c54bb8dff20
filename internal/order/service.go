package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/cart"
	"github.com/shop24h/shop24h/internal/errorutil"
	"github.com/shop24h/shop24h/internal/gateway"
	"github.com/shop24h/shop24h/internal/job"
	"github.com/shop24h/shop24h/internal/page"
	"github.com/shop24h/shop24h/internal/timeutil"
)

const (
	// paymentWindow is how long an online order may stay unpaid before the
	// system cancels it.
	paymentWindow = 24 * time.Hour
	// requestWindow bounds the validity of a single gateway redirect URL.
	requestWindow = 15 * time.Minute
)

type CartService interface {
	SelectedItems(ctx context.Context, userID uuid.UUID) ([]*cart.Item, error)
	ClearSelected(ctx context.Context, userID uuid.UUID) error
}

type ProductService interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
}

// Scheduler is the slice of the job engine the order flow depends on.
type Scheduler interface {
	CreateOneTime(ctx context.Context, jobType string, scheduleTime timeutil.DateTime, referenceID string) (*job.Job, error)
	Cancel(ctx context.Context, referenceID string) error
}

type Service struct {
	store     Store
	cart      CartService
	products  ProductService
	gateway   gateway.Client
	scheduler Scheduler
}

func NewService(store Store, cartService CartService, products ProductService, gatewayClient gateway.Client, scheduler Scheduler) Service {
	return Service{
		store:     store,
		cart:      cartService,
		products:  products,
		gateway:   gatewayClient,
		scheduler: scheduler,
	}
}

type CreateRequest struct {
	CustomerInfo   CustomerInfo
	ShippingOption string
	PaymentMethod  Method
}

// Create checks out the user's selected cart items into a new order. Cash
// orders start pending confirmation. Gateway orders start unpaid with a
// redirect URL and a cancellation job armed at the payment deadline.
func (s Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Order, error) {
	if req.CustomerInfo.FullName == "" || req.CustomerInfo.Phone == "" || req.CustomerInfo.Address == "" {
		return nil, errorutil.Format("%w: fullName, phone and address are required", ErrMissingField)
	}

	switch req.PaymentMethod {
	case MethodCashOnDelivery, MethodZaloPay:
	default:
		return nil, errorutil.Format("%w: %s", ErrUnsupportedPaymentMethod, req.PaymentMethod)
	}

	shipping, err := shippingOption(req.ShippingOption)
	if err != nil {
		return nil, err
	}

	items, err := s.cart.SelectedItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var subtotal int64
	orderItems := make([]Item, 0, len(items))
	for _, item := range items {
		if !item.Status.Available() {
			return nil, errorutil.Format("%w: %s", ErrItemUnavailable, item.ProductCode)
		}
		subtotal += item.Price * int64(item.Quantity)
		orderItems = append(orderItems, Item{
			ProductID:   item.ProductID,
			ProductCode: item.ProductCode,
			Name:        item.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	now := timeutil.DateTimeNow()
	estimatedDelivery := now.Add(time.Duration(shipping.MaxDays) * 24 * time.Hour)
	o := &Order{
		OrderCode:      NewOrderCode(),
		UserID:         userID,
		Items:          orderItems,
		SubtotalAmount: subtotal,
		ShippingFee:    shipping.Cost,
		TotalAmount:    subtotal + shipping.Cost,
		CustomerInfo:   req.CustomerInfo,
		ShippingMethod: ShippingMethod{
			Name:    shipping.Title,
			Cost:    shipping.Cost,
			MinDays: shipping.MinDays,
			MaxDays: shipping.MaxDays,
		},
		Status: StatusPending,
		Payment: Payment{
			Method: req.PaymentMethod,
			Status: PaymentStatusPending,
			Amount: subtotal + shipping.Cost,
		},
		PlacedAt:            now,
		EstimatedDeliveryAt: &estimatedDelivery,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if req.PaymentMethod.Online() {
		o.Status = StatusUnpaid
		o.Payment.TransID = NewTransID()
		paymentExpiry := now.Add(paymentWindow)
		o.PaymentExpiredAt = &paymentExpiry
	}

	// The order is persisted before the cancellation job exists. The
	// opposite ordering could leave a job pointing at nothing after a crash.
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	if o.PaymentExpiredAt != nil {
		if _, err := s.scheduler.CreateOneTime(ctx, job.TypeCancelOrder, *o.PaymentExpiredAt, o.OrderCode); err != nil {
			return nil, fmt.Errorf("could not schedule order cancellation: %w", err)
		}

		paymentOrder, err := s.gateway.CreatePaymentRequest(ctx, gateway.PaymentRequest{
			TransID:      o.Payment.TransID,
			OrderCode:    o.OrderCode,
			CustomerName: req.CustomerInfo.FullName,
			Amount:       o.TotalAmount,
		})
		if err != nil {
			// The order exists and its expiry job is armed. The customer can
			// regenerate the URL through the payment retry endpoint.
			slog.ErrorContext(ctx, "could not create payment request",
				"order_code", o.OrderCode, "error", err)
		} else {
			requestExpiry := timeutil.DateTimeNow().Add(requestWindow)
			o.Payment.URL = paymentOrder.RedirectURL
			o.PaymentRequestExpiredAt = &requestExpiry
			if err := s.store.Update(ctx, o); err != nil {
				return nil, err
			}
		}
	}

	for _, item := range orderItems {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			slog.ErrorContext(ctx, "could not decrement product stock",
				"order_code", o.OrderCode, "product_id", item.ProductID, "error", err)
		}
	}
	if err := s.cart.ClearSelected(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "could not clear cart after checkout",
			"order_code", o.OrderCode, "error", err)
	}

	slog.InfoContext(ctx, "order created",
		"order_code", o.OrderCode, "payment_method", o.Payment.Method, "total", o.TotalAmount)
	return o, nil
}

// Order returns one of the user's orders.
func (s Service) Order(ctx context.Context, userID uuid.UUID, orderCode string) (*Order, error) {
	o, err := s.store.Order(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// Orders lists the user's orders, optionally filtered by status.
func (s Service) Orders(ctx context.Context, userID uuid.UUID, statuses []Status, pagination page.Pagination) (page.Page[*Order], error) {
	return s.store.Orders(ctx, userID, statuses, pagination)
}

// Status returns the order after reconciling its payment state with the
// gateway. Polling covers the case where the gateway callback never arrived.
func (s Service) Status(ctx context.Context, userID uuid.UUID, orderCode string) (*Order, error) {
	o, err := s.Order(ctx, userID, orderCode)
	if err != nil {
		return nil, err
	}

	if !o.Payment.Method.Online() || o.Status != StatusUnpaid || o.Payment.Status == PaymentStatusSuccess {
		return o, nil
	}

	status, err := s.gateway.QueryStatus(ctx, o.Payment.TransID)
	if err != nil {
		// The stored state is still authoritative, surface it as is.
		slog.ErrorContext(ctx, "could not query transaction status",
			"order_code", orderCode, "trans_id", o.Payment.TransID, "error", err)
		return o, nil
	}

	switch status.State {
	case gateway.StatePaid:
		if err := s.confirm(ctx, o, status.Amount); err != nil {
			return nil, err
		}
	case gateway.StateFailed:
		o.Payment.Status = PaymentStatusFailed
		o.UpdatedAt = timeutil.DateTimeNow()
		if err := s.store.Update(ctx, o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ConfirmPayment records a successful gateway payment identified by its
// transaction id. Called from the gateway callback.
func (s Service) ConfirmPayment(ctx context.Context, transID string, amount int64) error {
	o, err := s.store.OrderByTransID(ctx, transID)
	if err != nil {
		return err
	}
	return s.confirm(ctx, o, amount)
}

// confirm moves an unpaid order to pending after payment. Duplicate and
// late confirmations are no-ops: once the order left unpaid status, whether
// by payment or cancellation, the outcome stands.
func (s Service) confirm(ctx context.Context, o *Order, amount int64) error {
	if o.Payment.Status == PaymentStatusSuccess || o.Status != StatusUnpaid {
		slog.InfoContext(ctx, "ignoring payment confirmation for settled order",
			"order_code", o.OrderCode, "status", o.Status)
		return nil
	}

	now := timeutil.DateTimeNow()
	o.Status = StatusPending
	o.Payment.Status = PaymentStatusSuccess
	if amount > 0 {
		o.Payment.Amount = amount
	}
	o.PaidAt = &now
	o.UpdatedAt = now
	if err := s.store.Update(ctx, o); err != nil {
		return err
	}

	// The payment won the race once the paid state is durable. Cancelling
	// the expiry job afterwards is safe: if it fires in between, the
	// cancellation handler sees a non-unpaid order and backs off.
	if err := s.scheduler.Cancel(ctx, o.OrderCode); err != nil {
		slog.ErrorContext(ctx, "could not cancel expiry job",
			"order_code", o.OrderCode, "error", err)
	}

	slog.InfoContext(ctx, "payment confirmed", "order_code", o.OrderCode, "amount", o.Payment.Amount)
	return nil
}

// CancelExpired is the cancel_order job handler. It cancels the order only
// if it is still unpaid; a missing or already settled order is a no-op so
// at-least-once job execution stays safe.
func (s Service) CancelExpired(ctx context.Context, orderCode string) error {
	o, err := s.store.Order(ctx, orderCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "expiry job references missing order", "order_code", orderCode)
			return nil
		}
		return err
	}

	if o.Status != StatusUnpaid {
		slog.InfoContext(ctx, "order settled before expiry, skipping cancellation",
			"order_code", orderCode, "status", o.Status)
		return nil
	}

	now := timeutil.DateTimeNow()
	o.Status = StatusCanceled
	o.CancellationDetails = &CancellationDetails{
		Reason:         "expired due to unpaid",
		InitiatedBy:    InitiatorSystem,
		ApprovalStatus: ApprovalStatusApproved,
	}
	o.CancellationCompletedAt = &now
	o.UpdatedAt = now
	if err := s.store.Update(ctx, o); err != nil {
		return err
	}

	slog.InfoContext(ctx, "unpaid order cancelled after payment window", "order_code", orderCode)
	return nil
}

// RequestCancellation files a cancellation request for seller review.
// Shipped and later orders cannot be cancelled, and only one request may be
// open per order. Approval itself happens outside this service; the expiry
// job is left in place until the order actually leaves unpaid status.
func (s Service) RequestCancellation(ctx context.Context, userID uuid.UUID, orderCode, reason string) (*Order, error) {
	if reason == "" {
		return nil, errorutil.Format("%w: reason is required", ErrMissingField)
	}

	o, err := s.Order(ctx, userID, orderCode)
	if err != nil {
		return nil, err
	}

	if o.Status == StatusCanceled || o.Status.postShipment() {
		return nil, errorutil.Format("%w: %s", ErrCancelNotAllowed, o.Status)
	}
	if o.CancellationDetails != nil {
		switch o.CancellationDetails.ApprovalStatus {
		case ApprovalStatusPending:
			return nil, ErrCancellationPending
		case ApprovalStatusApproved, ApprovalStatusDeclined:
			return nil, ErrCancellationDecided
		}
	}

	now := timeutil.DateTimeNow()
	o.CancellationRequestedAt = &now
	o.CancellationDetails = &CancellationDetails{
		Reason:         reason,
		InitiatedBy:    InitiatorUser,
		ApprovalStatus: ApprovalStatusPending,
	}
	o.UpdatedAt = now
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "cancellation requested", "order_code", orderCode)
	return o, nil
}

// ChangePaymentMethod switches an unpaid gateway order to another payment
// method. The orderCode-keyed expiry job is deliberately left untouched: the
// same payment window still governs the order regardless of method.
func (s Service) ChangePaymentMethod(ctx context.Context, userID uuid.UUID, orderCode string, method Method) (*Order, error) {
	switch method {
	case MethodCashOnDelivery, MethodZaloPay:
	default:
		return nil, errorutil.Format("%w: %s", ErrUnsupportedPaymentMethod, method)
	}

	o, err := s.Order(ctx, userID, orderCode)
	if err != nil {
		return nil, err
	}

	if o.Payment.Status == PaymentStatusSuccess {
		return nil, ErrAlreadyPaid
	}
	if o.Status != StatusUnpaid {
		return nil, errorutil.Format("%w: %s", ErrMethodChangeNotAllowed, o.Status)
	}
	if o.Payment.Method == method {
		return nil, ErrSamePaymentMethod
	}

	o.Payment.Method = method
	if !method.Online() {
		o.Payment.TransID = ""
		o.Payment.URL = ""
		o.PaymentRequestExpiredAt = nil
	}
	o.UpdatedAt = timeutil.DateTimeNow()
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "payment method changed",
		"order_code", orderCode, "method", method)
	return o, nil
}

// RetryPayment returns a usable redirect URL for an unpaid gateway order.
// An expired payment request gets a fresh transaction id since the gateway
// rejects reuse of an expired one. The 24h payment deadline never moves.
func (s Service) RetryPayment(ctx context.Context, userID uuid.UUID, orderCode string) (*Order, error) {
	o, err := s.Order(ctx, userID, orderCode)
	if err != nil {
		return nil, err
	}

	if o.Payment.Status == PaymentStatusSuccess {
		return nil, ErrAlreadyPaid
	}
	if o.Status != StatusUnpaid || !o.Payment.Method.Online() {
		return nil, errorutil.Format("%w: %s", ErrPaymentRetryNotAllowed, o.Status)
	}

	now := timeutil.DateTimeNow()
	if o.PaymentRequestExpiredAt != nil && now.Before(o.PaymentRequestExpiredAt.Time) &&
		o.Payment.URL != "" && o.Payment.Status != PaymentStatusFailed {
		return o, nil
	}

	o.Payment.TransID = NewTransID()
	paymentOrder, err := s.gateway.CreatePaymentRequest(ctx, gateway.PaymentRequest{
		TransID:      o.Payment.TransID,
		OrderCode:    o.OrderCode,
		CustomerName: o.CustomerInfo.FullName,
		Amount:       o.TotalAmount,
	})
	if err != nil {
		return nil, err
	}

	requestExpiry := now.Add(requestWindow)
	o.Payment.URL = paymentOrder.RedirectURL
	o.Payment.Status = PaymentStatusPending
	o.PaymentRequestExpiredAt = &requestExpiry
	o.UpdatedAt = now
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "payment request regenerated",
		"order_code", orderCode, "trans_id", o.Payment.TransID)
	return o, nil
}

func shippingOption(value string) (ShippingOption, error) {
	for _, opt := range ShippingOptions {
		if opt.Value == value {
			return opt, nil
		}
	}
	return ShippingOption{}, errorutil.Format("%w: %s", ErrInvalidShippingOption, value)
}
