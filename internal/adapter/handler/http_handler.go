package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/shop-cart/internal/core/domain"
	"github.com/rl1809/shop-cart/internal/core/service"
	"github.com/rl1809/shop-cart/pkg/logger"
)

// SessionHeader carries the shopper session id in both directions.
const SessionHeader = "X-Session-ID"

var errCheckoutUnavailable = errors.New("checkout unavailable")

type HTTPHandler struct {
	sessions *service.SessionManager
	orders   *service.OrderService
	gatherer prometheus.Gatherer
	log      *logger.Logger
	validate *validator.Validate
}

type quantityRequest struct {
	Quantity any `json:"quantity"`
}

type variantRequest struct {
	VariantID domain.ID `json:"variant_id" validate:"required"`
}

type viewRequest struct {
	Mode domain.ViewMode `json:"mode" validate:"required"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

type checkoutRequest struct {
	RequestID string `json:"request_id" validate:"required"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type productView struct {
	domain.Product
	DisplayPrice    string          `json:"display_price"`
	Quantity        int             `json:"quantity"`
	SelectedVariant *domain.Variant `json:"selected_variant,omitempty"`
	Warning         string          `json:"warning,omitempty"`
}

type sessionView struct {
	SessionID       string               `json:"session_id"`
	View            domain.ViewMode      `json:"view"`
	Sidebar         domain.SidebarState  `json:"sidebar"`
	Items           domain.Ledger        `json:"items"`
	LineWarnings    map[domain.ID]string `json:"line_warnings,omitempty"`
	ProductWarnings map[domain.ID]string `json:"product_warnings,omitempty"`
	Coupon          service.CouponState  `json:"coupon"`
	Subtotal        string               `json:"subtotal"`
	DiscountPercent int                  `json:"discount_percent"`
	Total           string               `json:"total"`
}

type checkoutView struct {
	OrderID string `json:"order_id"`
	Total   string `json:"total"`
	Status  string `json:"status"`
}

// NewHTTPHandler wires the cart API. orders may be nil, in which case
// checkout answers 503.
func NewHTTPHandler(sessions *service.SessionManager, orders *service.OrderService, gatherer prometheus.Gatherer, log *logger.Logger) *HTTPHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPHandler{
		sessions: sessions,
		orders:   orders,
		gatherer: gatherer,
		log:      log,
		validate: validator.New(),
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.Catalog)
		r.Get("/session", h.Session)
		r.Put("/session/view", h.SelectView)
		r.Post("/cart/toggle", h.ToggleCart)
		r.Post("/cart/close", h.CloseCart)
		r.Put("/products/{productId}/quantity", h.SetQuantity)
		r.Put("/products/{productId}/variant", h.SelectVariant)
		r.Post("/products/{productId}/add", h.AddToCart)
		r.Put("/cart/lines/{lineId}/quantity", h.ChangeQuantity)
		r.Post("/coupon", h.ApplyCoupon)
		r.Post("/checkout", h.Checkout)
	})
	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		products := s.Catalog().Available()
		out := make([]productView, 0, len(products))
		for _, p := range products {
			out = append(out, toProductView(s, p))
		}
		return http.StatusOK, out, nil
	})
}

func (h *HTTPHandler) Session(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		return http.StatusOK, toSessionView(s), nil
	})
}

func (h *HTTPHandler) SelectView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		if err := s.SelectView(ctx, req.Mode); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, toSessionView(s), nil
	})
}

func (h *HTTPHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		s.ToggleCart()
		return http.StatusOK, toSessionView(s), nil
	})
}

func (h *HTTPHandler) CloseCart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		s.CloseCart()
		return http.StatusOK, toSessionView(s), nil
	})
}

func (h *HTTPHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID := domain.ID(chi.URLParam(r, "productId"))
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		p, ok := s.Catalog().Product(productID)
		if !ok {
			return 0, nil, service.ErrProductNotFound
		}
		res := s.SetQuantity(productID, req.Quantity)
		if !res.OK() {
			return http.StatusUnprocessableEntity, Response{Success: false, Message: res.Message, Data: toProductView(s, p)}, nil
		}
		return http.StatusOK, toProductView(s, p), nil
	})
}

func (h *HTTPHandler) SelectVariant(w http.ResponseWriter, r *http.Request) {
	productID := domain.ID(chi.URLParam(r, "productId"))
	var req variantRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		if _, err := s.SelectVariant(productID, req.VariantID); err != nil {
			return 0, nil, err
		}
		p, _ := s.Catalog().Product(productID)
		return http.StatusOK, toProductView(s, p), nil
	})
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	productID := domain.ID(chi.URLParam(r, "productId"))
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		if _, err := s.AddToCart(ctx, productID); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, toSessionView(s), nil
	})
}

func (h *HTTPHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	lineID := domain.ID(chi.URLParam(r, "lineId"))
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		res, err := s.ChangeQuantity(ctx, lineID, req.Quantity)
		if err != nil {
			return 0, nil, err
		}
		if !res.OK() {
			return http.StatusUnprocessableEntity, Response{Success: false, Message: res.Message, Data: toSessionView(s)}, nil
		}
		return http.StatusOK, toSessionView(s), nil
	})
}

func (h *HTTPHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		state, err := s.ApplyCoupon(req.Code)
		if errors.Is(err, service.ErrInvalidCoupon) {
			return http.StatusUnprocessableEntity, Response{Success: false, Message: state.ErrorMessage, Data: toSessionView(s)}, nil
		}
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, Response{Success: true, Message: state.SuccessMessage, Data: toSessionView(s)}, nil
	})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *service.Session) (int, any, error) {
		if h.orders == nil {
			return 0, nil, errCheckoutUnavailable
		}
		order, err := s.Checkout(ctx, h.orders, req.RequestID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusAccepted, Response{
			Success: true,
			Message: "order placed successfully",
			Data: checkoutView{
				OrderID: order.ID,
				Total:   order.Total.StringFixed(2),
				Status:  string(order.Status),
			},
		}, nil
	})
}

// withSession resolves the caller's session, runs fn under its lock and
// writes the result. A body that is already a Response is written as is.
func (h *HTTPHandler) withSession(w http.ResponseWriter, r *http.Request, fn func(context.Context, *service.Session) (int, any, error)) {
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	w.Header().Set(SessionHeader, sessionID)

	ctx := h.log.WithSessionID(r.Context(), sessionID)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		ctx = h.log.WithRequestID(ctx, reqID)
	}

	var (
		status int
		body   any
	)
	err := h.sessions.With(ctx, sessionID, func(s *service.Session) error {
		var err error
		status, body, err = fn(ctx, s)
		return err
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if resp, ok := body.(Response); ok {
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, status, Response{Success: true, Data: body})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "missing required fields"})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		status, message = http.StatusNotFound, "product not found"
	case errors.Is(err, service.ErrLineNotFound):
		status, message = http.StatusNotFound, "cart line not found"
	case errors.Is(err, service.ErrWarningActive):
		status, message = http.StatusConflict, "resolve the quantity warning first"
	case errors.Is(err, service.ErrInvalidViewMode):
		status, message = http.StatusBadRequest, "invalid view mode"
	case errors.Is(err, service.ErrCouponCodeRequired):
		status, message = http.StatusBadRequest, "coupon code required"
	case errors.Is(err, service.ErrEmptyCart):
		status, message = http.StatusBadRequest, "cart is empty"
	case errors.Is(err, service.ErrDuplicateRequest):
		status, message = http.StatusConflict, "duplicate request"
	case errors.Is(err, service.ErrInsufficientStock):
		status, message = http.StatusGone, "sold out"
	case errors.Is(err, errCheckoutUnavailable):
		status, message = http.StatusServiceUnavailable, "checkout unavailable"
	default:
		h.log.Error(ctx, "request failed", err)
	}

	writeJSON(w, status, Response{Success: false, Message: message})
}

func toProductView(s *service.Session, p domain.Product) productView {
	view := productView{
		Product:      p,
		DisplayPrice: s.DisplayPrice(p.ID).StringFixed(2),
		Quantity:     s.PendingQuantity(p.ID),
		Warning:      s.ProductWarning(p.ID),
	}
	if v, ok := s.SelectedVariant(p.ID); ok {
		view.SelectedVariant = &v
	}
	return view
}

func toSessionView(s *service.Session) sessionView {
	totals := s.Totals()
	items := s.Ledger()
	if items == nil {
		items = domain.Ledger{}
	}
	return sessionView{
		SessionID:       s.ID(),
		View:            s.View().Effective(),
		Sidebar:         s.Sidebar(),
		Items:           items,
		LineWarnings:    s.LineWarnings(),
		ProductWarnings: s.ProductWarnings(),
		Coupon:          s.Coupon(),
		Subtotal:        totals.DisplaySubtotal(),
		DiscountPercent: totals.DiscountPercent,
		Total:           totals.DisplayTotal(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
