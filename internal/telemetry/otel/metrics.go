package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "session-auth-service/auth"

// AuthMetrics holds the auth counters. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	logins          metric.Int64Counter
	refreshes       metric.Int64Counter
	sessionsRevoked metric.Int64Counter
	sessionsDeleted metric.Int64Counter
}

// NewAuthMetrics registers the auth instruments on mp. A nil mp uses a no-op provider.
func NewAuthMetrics(mp metric.MeterProvider) (*AuthMetrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	logins, err := meter.Int64Counter("auth.login.attempts",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter("auth.refresh.attempts",
		metric.WithDescription("Refresh attempts by result"))
	if err != nil {
		return nil, err
	}
	revoked, err := meter.Int64Counter("auth.sessions.revoked",
		metric.WithDescription("Sessions revoked by reason"))
	if err != nil {
		return nil, err
	}
	deleted, err := meter.Int64Counter("auth.sessions.deleted",
		metric.WithDescription("Expired sessions deleted by the sweeper"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{logins: logins, refreshes: refreshes, sessionsRevoked: revoked, sessionsDeleted: deleted}, nil
}

// LoginAttempt records a login with result "success", "invalid_credentials" or "error".
func (m *AuthMetrics) LoginAttempt(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RefreshAttempt records a refresh with result "success", "invalid" or "error".
func (m *AuthMetrics) RefreshAttempt(ctx context.Context, result string, rotated bool) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.Bool("rotated", rotated),
	))
}

// SessionsRevoked records n revocations with reason "logout", "logout_all", "revoke", "rotation" or "single_session".
func (m *AuthMetrics) SessionsRevoked(ctx context.Context, reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsRevoked.Add(ctx, n, metric.WithAttributes(attribute.String("reason", reason)))
}

// SessionsDeleted records n expired sessions removed from the store.
func (m *AuthMetrics) SessionsDeleted(ctx context.Context, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsDeleted.Add(ctx, n)
}
