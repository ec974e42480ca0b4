package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/padelpoint/access-service/pkg/logger"
)

// AccessMetrics интерфейс для метрик допуска и жизненного цикла
type AccessMetrics interface {
	IncValidation(branchID string, result string, reason string)
	IncRecorded(branchID string)
	IncWebhookEvent(eventType string, outcome string)
	IncWindowRecompute(kind string)
	IncPauseApplied(actor string)
	IncPauseLifted(actor string)
	IncNoShow()
	IncWarningStop()
}

type accessMetrics struct {
	log              *logger.Logger
	validations      *prometheus.CounterVec
	checkInsRecorded *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	windowRecomputes *prometheus.CounterVec
	pausesApplied    *prometheus.CounterVec
	pausesLifted     *prometheus.CounterVec
	noShows          prometheus.Counter
	warningStops     prometheus.Counter
}

// NewAccessMetrics создает новые метрики допуска
func NewAccessMetrics(registry *prometheus.Registry, log *logger.Logger) AccessMetrics {
	validations := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_validations_total",
			Help: "The total number of check-in validations by outcome",
		},
		[]string{"branch", "result", "reason"},
	)

	checkInsRecorded := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_recorded_total",
			Help: "The total number of recorded check-ins",
		},
		[]string{"branch"},
	)

	webhookEvents := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "The total number of processed billing webhook events",
		},
		[]string{"event_type", "outcome"},
	)

	windowRecomputes := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "member_window_recomputes_total",
			Help: "The total number of member window recomputations by result",
		},
		[]string{"kind"},
	)

	pausesApplied := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "member_pauses_applied_total",
			Help: "The total number of applied member pauses",
		},
		[]string{"actor"},
	)

	pausesLifted := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "member_pauses_lifted_total",
			Help: "The total number of lifted member pauses",
		},
		[]string{"actor"},
	)

	noShows := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "member_no_shows_total",
			Help: "The total number of recorded no-shows",
		},
	)

	warningStops := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "member_warning_stops_total",
			Help: "The total number of members stopped after reaching the no-show limit",
		},
	)

	return &accessMetrics{
		log:              log,
		validations:      validations,
		checkInsRecorded: checkInsRecorded,
		webhookEvents:    webhookEvents,
		windowRecomputes: windowRecomputes,
		pausesApplied:    pausesApplied,
		pausesLifted:     pausesLifted,
		noShows:          noShows,
		warningStops:     warningStops,
	}
}

// IncValidation увеличивает счетчик проверок допуска
func (m *accessMetrics) IncValidation(branchID string, result string, reason string) {
	m.validations.WithLabelValues(branchID, result, reason).Inc()
	m.log.Debugw("Check-in validation metric recorded", "branch", branchID, "result", result, "reason", reason)
}

// IncRecorded увеличивает счетчик записанных визитов
func (m *accessMetrics) IncRecorded(branchID string) {
	m.checkInsRecorded.WithLabelValues(branchID).Inc()
}

// IncWebhookEvent увеличивает счетчик вебхук-событий
func (m *accessMetrics) IncWebhookEvent(eventType string, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// IncWindowRecompute увеличивает счетчик пересчетов окна
func (m *accessMetrics) IncWindowRecompute(kind string) {
	m.windowRecomputes.WithLabelValues(kind).Inc()
}

// IncPauseApplied увеличивает счетчик поставленных пауз
func (m *accessMetrics) IncPauseApplied(actor string) {
	m.pausesApplied.WithLabelValues(actor).Inc()
}

// IncPauseLifted увеличивает счетчик снятых пауз
func (m *accessMetrics) IncPauseLifted(actor string) {
	m.pausesLifted.WithLabelValues(actor).Inc()
}

// IncNoShow увеличивает счетчик неявок
func (m *accessMetrics) IncNoShow() {
	m.noShows.Inc()
}

// IncWarningStop увеличивает счетчик остановок по предупреждениям
func (m *accessMetrics) IncWarningStop() {
	m.warningStops.Inc()
}
