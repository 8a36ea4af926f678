// Package auth obtains a bearer token from the evaluation service.
//
// AUTHENTICATION FLOW:
//  1. POST /register with the static Credentials → {clientID, clientSecret}
//  2. POST /auth with email, name, rollNo, accessCode + the client pair → access_token
//
// The client pair is used once and thrown away. The token is opaque to us
// and treated as valid indefinitely: there is no expiry check and no renewal.
// Inspect can decode it for diagnostics, but never rejects it.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/social-analytics/internal/model"
)

// Registrar is the part of the evaluation API the login flow needs.
// *evalapi.Client satisfies it.
type Registrar interface {
	Register(ctx context.Context, creds model.Credentials) (model.ClientRegistration, error)
	Authenticate(ctx context.Context, req model.AuthRequest) (string, error)
}

// Authenticator runs the register → auth sequence.
type Authenticator struct {
	api    Registrar
	logger *slog.Logger
}

func NewAuthenticator(api Registrar, logger *slog.Logger) *Authenticator {
	return &Authenticator{api: api, logger: logger}
}

// Login registers creds and exchanges the resulting client pair for a token.
//
// A failure at either step is returned as-is (an apperror.ErrNetwork or
// apperror.ErrAuth) with the step named in the wrap. No retry.
func (a *Authenticator) Login(ctx context.Context, creds model.Credentials) (string, error) {
	reg, err := a.api.Register(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("auth: registering: %w", err)
	}

	token, err := a.api.Authenticate(ctx, model.NewAuthRequest(creds, reg))
	if err != nil {
		return "", fmt.Errorf("auth: obtaining token: %w", err)
	}

	info := Inspect(token)
	a.logger.Info("obtained access token",
		slog.String("clientID", reg.ClientID),
		slog.Bool("jwt", !info.Opaque),
		slog.Time("expiresAt", info.ExpiresAt),
	)

	return token, nil
}
