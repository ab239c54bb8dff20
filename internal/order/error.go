package order

import "github.com/shop24h/shop24h/internal/errorutil"

var (
	ErrNotFound                 = errorutil.New("order not found")
	ErrMissingField             = errorutil.New("missing required field")
	ErrEmptyCart                = errorutil.New("cart is empty")
	ErrItemUnavailable          = errorutil.New("cart contains unavailable items")
	ErrInvalidShippingOption    = errorutil.New("invalid shipping option")
	ErrUnsupportedPaymentMethod = errorutil.New("unsupported payment method")
	ErrAlreadyPaid              = errorutil.New("order has already been paid")
	ErrPaymentRetryNotAllowed   = errorutil.New("cannot retry payment for this order")
	ErrMethodChangeNotAllowed   = errorutil.New("cannot change payment method for this order")
	ErrSamePaymentMethod        = errorutil.New("order already uses this payment method")
	ErrCancelNotAllowed         = errorutil.New("cannot cancel order in this state")
	ErrCancellationPending      = errorutil.New("cancellation request is under review")
	ErrCancellationDecided      = errorutil.New("cancellation request has already been processed")
)
