package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshop_orders_total",
		Help: "Total orders by status transition",
	}, []string{"status"})

	OrderAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gameshop_order_amount",
		Help:    "Order totals at create time",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	})

	CreditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshop_credits_moved_total",
		Help: "Credits credited or debited by ledger kind",
	}, []string{"kind", "direction"})

	DailyRewardClaims = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameshop_daily_reward_claims_total",
		Help: "Total successful daily reward claims",
	})

	ReferralsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameshop_referrals_applied_total",
		Help: "Total referral codes successfully applied",
	})

	PromoValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshop_promo_validations_total",
		Help: "Promo validation outcomes",
	}, []string{"outcome"})

	EmailSendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gameshop_email_send_duration_seconds",
		Help:    "Time to deliver one notification email",
		Buckets: prometheus.DefBuckets,
	})

	EmailSendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameshop_email_send_errors_total",
		Help: "Notification emails that exhausted their retries",
	})
)

func IncOrder(status string) {
	label := strings.TrimSpace(status)
	if label == "" {
		label = "unknown"
	}
	OrdersTotal.WithLabelValues(label).Inc()
}

func ObserveOrderAmount(amount float64) {
	if amount < 0 {
		return
	}
	OrderAmount.Observe(amount)
}

func AddCreditsMoved(kind string, amount float64) {
	label := strings.TrimSpace(kind)
	if label == "" {
		label = "unknown"
	}
	direction := "credit"
	if amount < 0 {
		direction = "debit"
		amount = -amount
	}
	CreditsMoved.WithLabelValues(label, direction).Add(amount)
}

func IncDailyRewardClaim() {
	DailyRewardClaims.Inc()
}

func IncReferralApplied() {
	ReferralsApplied.Inc()
}

func IncPromoValidation(outcome string) {
	label := strings.TrimSpace(outcome)
	if label == "" {
		label = "unknown"
	}
	PromoValidations.WithLabelValues(label).Inc()
}

func ObserveEmailSendDuration(duration time.Duration) {
	EmailSendDuration.Observe(duration.Seconds())
}

func IncEmailSendError() {
	EmailSendErrors.Inc()
}
