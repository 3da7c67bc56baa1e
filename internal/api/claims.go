package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the client reads from its own access token.
type TokenClaims struct {
	UserID    string
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry before now.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Claims decodes an access token without verifying its signature. The
// client has no key to verify with; the server checks the token on every
// request, so this is only used to learn the caller's own identity.
func Claims(token string) (TokenClaims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return TokenClaims{}, fmt.Errorf("parse token: empty")
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}

	out := TokenClaims{
		Subject: claimString(mc["sub"]),
		Role:    claimString(mc["role"]),
		UserID:  claimString(mc["userId"]),
	}
	if out.UserID == "" {
		out.UserID = out.Subject
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		// Some issuers send roles as a list; the first one is the primary.
		if len(t) > 0 {
			return claimString(t[0])
		}
	}
	return ""
}
