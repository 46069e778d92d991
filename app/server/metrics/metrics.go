// Package metrics counts auth outcomes through the global OpenTelemetry meter provider.
// Nothing is exported unless the process installs a provider.
package metrics

import (
	"context"
	"fmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "alumni-network/auth"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

type Auth struct {
	login         metric.Int64Counter
	refresh       metric.Int64Counter
	otpRequest    metric.Int64Counter
	passwordReset metric.Int64Counter
}

func NewAuth(provider metric.MeterProvider) (*Auth, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		a   Auth
		err error
	)
	if a.login, err = meter.Int64Counter("auth.login", metric.WithDescription("login attempts")); err != nil {
		return nil, fmt.Errorf("create login counter: %w", err)
	}
	if a.refresh, err = meter.Int64Counter("auth.refresh", metric.WithDescription("refresh token rotations")); err != nil {
		return nil, fmt.Errorf("create refresh counter: %w", err)
	}
	if a.otpRequest, err = meter.Int64Counter("auth.otp.request", metric.WithDescription("password reset codes requested")); err != nil {
		return nil, fmt.Errorf("create otp counter: %w", err)
	}
	if a.passwordReset, err = meter.Int64Counter("auth.password.reset", metric.WithDescription("password resets")); err != nil {
		return nil, fmt.Errorf("create reset counter: %w", err)
	}

	return &a, nil
}

func add(ctx context.Context, c metric.Int64Counter, kind string, outcome Outcome) {
	c.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", string(outcome)),
	))
}

func (a *Auth) Login(ctx context.Context, kind string, outcome Outcome) {
	add(ctx, a.login, kind, outcome)
}

func (a *Auth) Refresh(ctx context.Context, kind string, outcome Outcome) {
	add(ctx, a.refresh, kind, outcome)
}

func (a *Auth) OTPRequest(ctx context.Context, kind string, outcome Outcome) {
	add(ctx, a.otpRequest, kind, outcome)
}

func (a *Auth) PasswordReset(ctx context.Context, kind string, outcome Outcome) {
	add(ctx, a.passwordReset, kind, outcome)
}
