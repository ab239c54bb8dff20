// Package order implements the order payment state machine: creation,
// gateway reconciliation, expiry driven cancellation and the user facing
// order operations.
package order

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/timeutil"
)

type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode string    `gorm:"uniqueIndex"`
	UserID    uuid.UUID

	Items          []Item         `gorm:"serializer:json"`
	SubtotalAmount int64
	ShippingFee    int64
	TotalAmount    int64
	CustomerInfo   CustomerInfo   `gorm:"serializer:json"`
	ShippingMethod ShippingMethod `gorm:"serializer:json"`

	Status  Status
	Payment Payment `gorm:"embedded;embeddedPrefix:payment_"`

	CancellationDetails *CancellationDetails `gorm:"serializer:json"`

	PlacedAt timeutil.DateTime
	// PaymentExpiredAt is the deadline after which an unpaid gateway order
	// is eligible for cancellation. Online payment orders only.
	PaymentExpiredAt *timeutil.DateTime
	// PaymentRequestExpiredAt bounds the validity of the last payment
	// redirect URL. Its expiry triggers correlation id regeneration, never
	// order cancellation.
	PaymentRequestExpiredAt *timeutil.DateTime
	PaidAt                  *timeutil.DateTime
	CancellationRequestedAt *timeutil.DateTime
	CancellationCompletedAt *timeutil.DateTime
	EstimatedDeliveryAt     *timeutil.DateTime

	CreatedAt timeutil.DateTime
	UpdatedAt timeutil.DateTime
}

type Item struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductCode string    `json:"productCode"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Price       int64     `json:"price"`
}

type CustomerInfo struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Note     string `json:"note,omitempty"`
}

type ShippingMethod struct {
	Name    string `json:"name"`
	Cost    int64  `json:"cost"`
	MinDays int    `json:"minDays"`
	MaxDays int    `json:"maxDays"`
}

type Status string

const (
	StatusUnpaid        Status = "UNPAID"
	StatusPending       Status = "PENDING"
	StatusConfirmed     Status = "CONFIRMED"
	StatusInPreparation Status = "IN_PREPARATION"
	StatusShipped       Status = "SHIPPED"
	StatusDelivered     Status = "DELIVERED"
	StatusCompleted     Status = "COMPLETED"
	StatusCanceled      Status = "CANCELED"
	StatusReturned      Status = "RETURNED"
)

// postShipment reports whether the order has progressed beyond the point
// where cancellation is allowed.
func (s Status) postShipment() bool {
	switch s {
	case StatusShipped, StatusDelivered, StatusCompleted, StatusReturned:
		return true
	}
	return false
}

type Payment struct {
	Method  Method
	Status  PaymentStatus
	TransID string
	URL     string
	Amount  int64
}

type Method string

const (
	MethodCashOnDelivery Method = "CASH_ON_DELIVERY"
	MethodZaloPay        Method = "ZALOPAY"
)

// Online reports whether the method settles through a payment gateway.
func (m Method) Online() bool {
	return m == MethodZaloPay
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type CancellationDetails struct {
	Reason         string         `json:"reason"`
	InitiatedBy    Initiator      `json:"initiatedBy"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus"`
}

type Initiator string

const (
	InitiatorUser   Initiator = "USER"
	InitiatorSeller Initiator = "SELLER"
	InitiatorSystem Initiator = "SYSTEM"
)

type ApprovalStatus string

const (
	ApprovalStatusNone     ApprovalStatus = "NONE"
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusDeclined ApprovalStatus = "DECLINED"
)

const orderCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderCode mints an identifier of the form YYMMDDXXXXXXXX.
func NewOrderCode() string {
	suffix := make([]byte, 8)
	for i := range suffix {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(orderCodeAlphabet))))
		suffix[i] = orderCodeAlphabet[n.Int64()]
	}
	return timeutil.Now().Format("060102") + string(suffix)
}

// NewTransID mints a gateway correlation id of the form YYMMDD_<unix-ms>.
// Regenerated whenever a payment request expires before completion.
func NewTransID() string {
	now := timeutil.Now()
	return now.Format("060102") + "_" + strconv.FormatInt(now.UnixMilli(), 10)
}

type ShippingOption struct {
	Title   string `json:"title"`
	Value   string `json:"value"`
	Cost    int64  `json:"costPrice"`
	MinDays int    `json:"minDay"`
	MaxDays int    `json:"maxDay"`
}

// ShippingOptions is the fixed catalog of shipping tiers.
var ShippingOptions = []ShippingOption{
	{Title: "Express Shipping", Value: "express-shipping", Cost: 70000, MinDays: 1, MaxDays: 3},
	{Title: "Standard Shipping", Value: "standard-shipping", Cost: 25000, MinDays: 3, MaxDays: 5},
	{Title: "Free Shipping", Value: "free-shipping", Cost: 0, MinDays: 7, MaxDays: 14},
}
