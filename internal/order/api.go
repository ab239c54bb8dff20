package order

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/api"
	"github.com/shop24h/shop24h/internal/page"
	"github.com/shop24h/shop24h/internal/timeutil"
)

type Server struct {
	service Service
}

func NewServer(service Service) Server {
	return Server{service: service}
}

func (s Server) Register(mux *http.ServeMux) {
	mux.Handle("POST /orders", s.createHandler())
	mux.Handle("GET /orders", s.listHandler())
	mux.Handle("GET /orders/shipping-options", s.shippingOptionsHandler())
	mux.Handle("GET /orders/{orderCode}", s.getHandler())
	mux.Handle("GET /orders/{orderCode}/status", s.statusHandler())
	mux.Handle("POST /orders/{orderCode}/cancellation", s.cancellationHandler())
	mux.Handle("PATCH /orders/{orderCode}/payment-method", s.paymentMethodHandler())
	mux.Handle("POST /orders/{orderCode}/payment-retry", s.paymentRetryHandler())
}

func (s Server) createHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}

		var req struct {
			CustomerInfo   CustomerInfo `json:"customerInfo"`
			ShippingOption string       `json:"shippingOption"`
			PaymentMethod  Method       `json:"paymentMethod"`
		}
		if err := api.ParseJSON(r, &req); err != nil {
			api.WriteError(w, api.NewError("INVALID_BODY", http.StatusBadRequest, "could not parse request body"))
			return
		}

		o, err := s.service.Create(r.Context(), userID, CreateRequest{
			CustomerInfo:   req.CustomerInfo,
			ShippingOption: req.ShippingOption,
			PaymentMethod:  req.PaymentMethod,
		})
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}

		api.WriteJSON(w, struct {
			Message string   `json:"message"`
			Data    response `json:"data"`
		}{"order created", newResponse(o)}, http.StatusCreated)
	})
}

func (s Server) listHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}

		var statuses []Status
		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			for _, s := range strings.Split(statusParam, ",") {
				statuses = append(statuses, Status(strings.TrimSpace(s)))
			}
		}
		pagination := page.ParsePagination(r.URL.Query().Get("page"), r.URL.Query().Get("size"))

		orders, err := s.service.Orders(r.Context(), userID, statuses, pagination)
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}

		records := make([]response, 0, len(orders.Records))
		for _, o := range orders.Records {
			records = append(records, newResponse(o))
		}
		api.WriteJSON(w, struct {
			Data []response `json:"data"`
			Meta pageMeta   `json:"meta"`
		}{records, pageMeta{
			Page:         orders.Number,
			Size:         orders.Size,
			TotalRecords: orders.TotalRecords,
			TotalPages:   orders.TotalPages,
		}}, http.StatusOK)
	})
}

func (s Server) shippingOptionsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, struct {
			Data []ShippingOption `json:"data"`
		}{ShippingOptions}, http.StatusOK)
	})
}

func (s Server) getHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}

		o, err := s.service.Order(r.Context(), userID, r.PathValue("orderCode"))
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}
		api.WriteJSON(w, struct {
			Data response `json:"data"`
		}{newResponse(o)}, http.StatusOK)
	})
}

func (s Server) statusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}

		o, err := s.service.Status(r.Context(), userID, r.PathValue("orderCode"))
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}
		api.WriteJSON(w, struct {
			Data statusResponse `json:"data"`
		}{statusResponse{
			OrderCode:     o.OrderCode,
			Status:        o.Status,
			PaymentStatus: o.Payment.Status,
			PaidAt:        o.PaidAt,
		}}, http.StatusOK)
	})
}

func (s Server) cancellationHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}

		var req struct {
			Reason string `json:"reason"`
		}
		if err := api.ParseJSON(r, &req); err != nil {
			api.WriteError(w, api.NewError("INVALID_BODY", http.StatusBadRequest, "could not parse request body"))
			return
		}

		o, err := s.service.RequestCancellation(r.Context(), userID, r.PathValue("orderCode"), req.Reason)
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}
		api.WriteJSON(w, struct {
			Message string   `json:"message"`
			Data    response `json:"data"`
		}{"cancellation processed", newResponse(o)}, http.StatusOK)
	})
}

func (s Server) paymentMethodHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}

		var req struct {
			PaymentMethod Method `json:"paymentMethod"`
		}
		if err := api.ParseJSON(r, &req); err != nil {
			api.WriteError(w, api.NewError("INVALID_BODY", http.StatusBadRequest, "could not parse request body"))
			return
		}

		o, err := s.service.ChangePaymentMethod(r.Context(), userID, r.PathValue("orderCode"), req.PaymentMethod)
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}
		api.WriteJSON(w, struct {
			Message string   `json:"message"`
			Data    response `json:"data"`
		}{"payment method changed", newResponse(o)}, http.StatusOK)
	})
}

func (s Server) paymentRetryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}

		o, err := s.service.RetryPayment(r.Context(), userID, r.PathValue("orderCode"))
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}
		api.WriteJSON(w, struct {
			Data paymentResponse `json:"data"`
		}{paymentResponse{
			OrderCode:               o.OrderCode,
			TransID:                 o.Payment.TransID,
			PaymentURL:              o.Payment.URL,
			PaymentRequestExpiredAt: o.PaymentRequestExpiredAt,
		}}, http.StatusOK)
	})
}

// requestUserID resolves the caller's identity from the X-User-ID header set
// by the authentication proxy in front of this service.
func requestUserID(r *http.Request) (uuid.UUID, error) {
	userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		return uuid.Nil, api.NewError("UNAUTHORIZED", http.StatusUnauthorized, "missing or invalid user id")
	}
	return userID, nil
}

func writeableError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return api.NewError("ORDER_NOT_FOUND", http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMissingField),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrInvalidShippingOption),
		errors.Is(err, ErrUnsupportedPaymentMethod):
		return api.NewError("INVALID_REQUEST", http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrPaymentRetryNotAllowed),
		errors.Is(err, ErrMethodChangeNotAllowed),
		errors.Is(err, ErrSamePaymentMethod),
		errors.Is(err, ErrCancelNotAllowed),
		errors.Is(err, ErrCancellationPending),
		errors.Is(err, ErrCancellationDecided):
		return api.NewError("CONFLICT", http.StatusConflict, err.Error())
	default:
		return err
	}
}

type response struct {
	OrderCode               string               `json:"orderCode"`
	Status                  Status               `json:"status"`
	Items                   []Item               `json:"items"`
	SubtotalAmount          int64                `json:"subtotalAmount"`
	ShippingFee             int64                `json:"shippingFee"`
	TotalAmount             int64                `json:"totalAmount"`
	CustomerInfo            CustomerInfo         `json:"customerInfo"`
	ShippingMethod          ShippingMethod       `json:"shippingMethod"`
	PaymentMethod           Method               `json:"paymentMethod"`
	PaymentStatus           PaymentStatus        `json:"paymentStatus"`
	PaymentURL              string               `json:"paymentUrl,omitempty"`
	CancellationDetails     *CancellationDetails `json:"cancellationDetails,omitempty"`
	PlacedAt                timeutil.DateTime    `json:"placedAt"`
	PaymentExpiredAt        *timeutil.DateTime   `json:"paymentExpiredAt,omitempty"`
	PaidAt                  *timeutil.DateTime   `json:"paidAt,omitempty"`
	CancellationCompletedAt *timeutil.DateTime   `json:"cancellationCompletedAt,omitempty"`
	EstimatedDeliveryAt     *timeutil.DateTime   `json:"estimatedDeliveryAt,omitempty"`
}

func newResponse(o *Order) response {
	return response{
		OrderCode:               o.OrderCode,
		Status:                  o.Status,
		Items:                   o.Items,
		SubtotalAmount:          o.SubtotalAmount,
		ShippingFee:             o.ShippingFee,
		TotalAmount:             o.TotalAmount,
		CustomerInfo:            o.CustomerInfo,
		ShippingMethod:          o.ShippingMethod,
		PaymentMethod:           o.Payment.Method,
		PaymentStatus:           o.Payment.Status,
		PaymentURL:              o.Payment.URL,
		CancellationDetails:     o.CancellationDetails,
		PlacedAt:                o.PlacedAt,
		PaymentExpiredAt:        o.PaymentExpiredAt,
		PaidAt:                  o.PaidAt,
		CancellationCompletedAt: o.CancellationCompletedAt,
		EstimatedDeliveryAt:     o.EstimatedDeliveryAt,
	}
}

type statusResponse struct {
	OrderCode     string             `json:"orderCode"`
	Status        Status             `json:"status"`
	PaymentStatus PaymentStatus      `json:"paymentStatus"`
	PaidAt        *timeutil.DateTime `json:"paidAt,omitempty"`
}

type paymentResponse struct {
	OrderCode               string             `json:"orderCode"`
	TransID                 string             `json:"transId"`
	PaymentURL              string             `json:"paymentUrl"`
	PaymentRequestExpiredAt *timeutil.DateTime `json:"paymentRequestExpiredAt,omitempty"`
}

type pageMeta struct {
	Page         int `json:"page"`
	Size         int `json:"size"`
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
}
