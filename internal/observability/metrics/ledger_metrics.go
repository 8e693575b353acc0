package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	LedgerReasonDeadlineExceeded     = "deadline_exceeded"
	LedgerReasonDBLockTimeout        = "db_lock_timeout"
	LedgerReasonDeadlock             = "deadlock"
	LedgerReasonSerializationFailure = "serialization_failure"
	LedgerReasonUniqueViolation      = "unique_violation"
	LedgerReasonUnknown              = "unknown"
)

const (
	LedgerOperationDeduct        = "deduct"
	LedgerOperationTopUp         = "topup"
	LedgerOperationResolvePeriod = "resolve_period"
	LedgerOperationRead          = "read"
)

const (
	PeriodRowCreated  = "created"
	PeriodRowExisting = "existing"
	PeriodRowRaceLost = "race_lost"
)

const (
	CacheResultHit   = "hit"
	CacheResultMiss  = "miss"
	CacheResultError = "error"
)

// LedgerMetrics captures ledger store and credit cache health as Prometheus series.
type LedgerMetrics struct {
	lockWait           *prometheus.HistogramVec
	txErrors           *prometheus.CounterVec
	periodRows         *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// NewLedgerMetrics returns the process-wide ledger metrics registered on the default registry.
func NewLedgerMetrics(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = newLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

func newLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "commcredit"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "commcredit_ledger_lock_wait_seconds",
		Help:        "Time spent waiting for the usage row lock inside a deduction.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"channel"})
	txErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "commcredit_ledger_errors_total",
		Help:        "Ledger store failures by operation and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	periodRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "commcredit_usage_period_resolutions_total",
		Help:        "Usage period find-or-create outcomes.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "commcredit_credit_cache_lookups_total",
		Help:        "Credit cache lookups by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	cacheInvalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "commcredit_credit_cache_invalidations_total",
		Help:        "Credit cache invalidations by result.",
		ConstLabels: constLabels,
	}, []string{"result"})

	registerer.MustRegister(lockWait, txErrors, periodRows, cacheLookups, cacheInvalidations)

	return &LedgerMetrics{
		lockWait:           lockWait,
		txErrors:           txErrors,
		periodRows:         periodRows,
		cacheLookups:       cacheLookups,
		cacheInvalidations: cacheInvalidations,
	}
}

// ObserveLockWait records how long a deduction waited for the usage row.
func (m *LedgerMetrics) ObserveLockWait(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(channel).Observe(duration.Seconds())
}

// IncError classifies and counts a ledger store failure.
func (m *LedgerMetrics) IncError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.txErrors.WithLabelValues(operation, ClassifyLedgerReason(err)).Inc()
}

func (m *LedgerMetrics) IncPeriodResolution(outcome string) {
	if m == nil {
		return
	}
	m.periodRows.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *LedgerMetrics) IncCacheInvalidation(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = CacheResultError
	}
	m.cacheInvalidations.WithLabelValues(result).Inc()
}

// ClassifyLedgerReason maps store errors to low-cardinality reasons.
func ClassifyLedgerReason(err error) string {
	switch {
	case err == nil:
		return LedgerReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return LedgerReasonDeadlineExceeded
	case hasSQLState(err, "55P03"):
		return LedgerReasonDBLockTimeout
	case hasSQLState(err, "40P01"):
		return LedgerReasonDeadlock
	case hasSQLState(err, "40001"):
		return LedgerReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasSQLState(err, "23505"):
		return LedgerReasonUniqueViolation
	default:
		return LedgerReasonUnknown
	}
}

// IsRetryable reports whether a store error is transient.
func IsRetryable(err error) bool {
	switch ClassifyLedgerReason(err) {
	case LedgerReasonDBLockTimeout, LedgerReasonDeadlock, LedgerReasonSerializationFailure:
		return true
	default:
		return false
	}
}

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
