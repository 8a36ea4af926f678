package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read out of an access token without the issuer's
// key. Zero times mean the claim was absent.
type TokenInfo struct {
	// Opaque is true when the token is not a decodable JWT.
	Opaque    bool
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim that lies before now.
// Informational only: callers keep using expired tokens.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}

// Inspect decodes the token's claims WITHOUT verifying the signature.
//
// UNVERIFIED PARSING:
// We do not hold the evaluation service's signing key, so verification is
// impossible. ParseUnverified only base64-decodes the payload. The result
// must never be used for an access decision; it feeds logs and the
// "analyticsctl token" command.
func Inspect(token string) TokenInfo {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{Opaque: true}
	}

	info := TokenInfo{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}
