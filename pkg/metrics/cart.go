package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart activity. A nil *CartMetrics is valid and records nothing.
type CartMetrics struct {
	mutations   *prometheus.CounterVec
	validations *prometheus.CounterVec
	coupons     *prometheus.CounterVec
	persistence prometheus.Counter
	checkouts   *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return nil
	}
	m := &CartMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart ledger mutations by operation.",
		}, []string{"op"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_validation_failures_total",
			Help: "Quantity validations rejected, by reason.",
		}, []string{"reason"}),
		coupons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_coupon_applications_total",
			Help: "Coupon applications by result.",
		}, []string{"result"}),
		persistence: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_persistence_failures_total",
			Help: "Session writes that failed and were dropped.",
		}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_checkouts_total",
			Help: "Checkout attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.mutations, m.validations, m.coupons, m.persistence, m.checkouts)
	return m
}

func (m *CartMetrics) IncMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *CartMetrics) IncValidationFailure(reason string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *CartMetrics) IncCoupon(result string) {
	if m == nil {
		return
	}
	m.coupons.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *CartMetrics) IncPersistenceFailure() {
	if m == nil {
		return
	}
	m.persistence.Inc()
}

func (m *CartMetrics) IncCheckout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
