// Package metrics объявляет счётчики Prometheus для входа, кодов, сессий и доступа.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы попытки входа.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid_credentials"
	OutcomeLocked  = "locked"
	OutcomeError   = "error"
)

// Recorder набор счётчиков сервиса.
type Recorder struct {
	loginAttempts     *prometheus.CounterVec
	lockouts          prometheus.Counter
	codes             *prometheus.CounterVec
	sessionSuperseded prometheus.Counter
	accessChecks      *prometheus.CounterVec
	sweeperRows       *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_account_lockouts_total",
			Help: "Accounts locked after reaching the failed attempt threshold.",
		}),
		codes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_verification_codes_total",
			Help: "Verification code events by action.",
		}, []string{"action", "event"}),
		sessionSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_sessions_superseded_total",
			Help: "Sessions deactivated by single-device policy.",
		}),
		accessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_access_checks_total",
			Help: "Content access decisions.",
		}, []string{"granted", "via"}),
		sweeperRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_sweeper_rows_total",
			Help: "Rows changed by the background sweeper.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(r.loginAttempts, r.lockouts, r.codes, r.sessionSuperseded, r.accessChecks, r.sweeperRows)
	}
	return r
}

// NewNop создаёт счётчики без регистрации. Для тестов.
func NewNop() *Recorder {
	return New(nil)
}

// LoginAttempt учитывает попытку входа.
func (r *Recorder) LoginAttempt(outcome string) {
	r.loginAttempts.WithLabelValues(outcome).Inc()
}

// Lockout учитывает блокировку аккаунта.
func (r *Recorder) Lockout() {
	r.lockouts.Inc()
}

// Code учитывает событие кода подтверждения: issued, consumed, rejected.
func (r *Recorder) Code(action, event string) {
	r.codes.WithLabelValues(action, event).Inc()
}

// SessionsSuperseded учитывает сессии, вытесненные новой.
func (r *Recorder) SessionsSuperseded(n int64) {
	if n > 0 {
		r.sessionSuperseded.Add(float64(n))
	}
}

// AccessCheck учитывает решение о доступе.
func (r *Recorder) AccessCheck(granted bool, via string) {
	r.accessChecks.WithLabelValues(strconv.FormatBool(granted), via).Inc()
}

// SweeperRows учитывает строки, изменённые очисткой.
func (r *Recorder) SweeperRows(kind string, n int64) {
	if n > 0 {
		r.sweeperRows.WithLabelValues(kind).Add(float64(n))
	}
}
