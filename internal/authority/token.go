package authority

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiryMargin is how long before actual expiry a token is treated
// as stale, so a re-login happens before a request can be rejected
// mid-interaction.
const tokenExpiryMargin = 30 * time.Second

// TokenExpiry returns the expiry time of an access token without
// verifying its signature. The client cannot verify (it does not hold
// the authority's secret); it only uses the claim to decide when to
// re-authenticate. The authority remains the enforcer.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("authority: parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("authority: token has no expiry claim")
	}
	return exp.Time, nil
}

// TokenValid reports whether the client's stored token exists and is not
// within the expiry margin. A malformed token counts as invalid.
func (c *Client) TokenValid(now time.Time) bool {
	if c.token == "" {
		return false
	}
	exp, err := TokenExpiry(c.token)
	if err != nil {
		return false
	}
	return now.Add(tokenExpiryMargin).Before(exp)
}
