// Package gateway talks to the third-party payment processor. The rest of
// the system only depends on the Client interface; the concrete
// implementation is ZaloPay shaped.
package gateway

import (
	"context"

	"github.com/shop24h/shop24h/internal/errorutil"
)

var ErrGateway = errorutil.New("payment gateway error")

// State is the processor-side view of a transaction.
type State string

const (
	StatePaid    State = "paid"
	StateFailed  State = "failed"
	StatePending State = "pending"
)

type PaymentRequest struct {
	TransID      string
	OrderCode    string
	CustomerName string
	Amount       int64
}

type PaymentOrder struct {
	RedirectURL string
}

type TransactionStatus struct {
	State  State
	Amount int64
}

type Client interface {
	// CreatePaymentRequest registers the transaction with the processor and
	// returns the URL the customer is redirected to.
	CreatePaymentRequest(ctx context.Context, req PaymentRequest) (*PaymentOrder, error)
	// QueryStatus polls the processor for the transaction's current state.
	QueryStatus(ctx context.Context, transID string) (*TransactionStatus, error)
}
