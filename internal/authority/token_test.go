package authority

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{"sub": "p1", "exp": exp.Unix()})

	got, err := TokenExpiry(token)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expected %v, got %v", exp, got)
	}
}

func TestTokenExpiry_MissingClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "p1"})
	if _, err := TokenExpiry(token); err == nil {
		t.Fatal("expected error for token without exp")
	}
}

func TestTokenValid(t *testing.T) {
	now := time.Now()
	c := NewClient("http://localhost")

	if c.TokenValid(now) {
		t.Fatal("empty token is not valid")
	}

	c.SetToken("garbage")
	if c.TokenValid(now) {
		t.Fatal("malformed token is not valid")
	}

	c.SetToken(signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}))
	if !c.TokenValid(now) {
		t.Fatal("fresh token should be valid")
	}

	// Within the renewal margin counts as stale.
	c.SetToken(signedToken(t, jwt.MapClaims{"exp": now.Add(10 * time.Second).Unix()}))
	if c.TokenValid(now) {
		t.Fatal("token inside the expiry margin should be stale")
	}

	c.SetToken(signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}))
	if c.TokenValid(now) {
		t.Fatal("expired token is not valid")
	}
}
