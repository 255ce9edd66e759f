package auth

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestJWTer(now time.Time) *JWTer {
	return &JWTer{
		Secret: []byte("test-secret"),
		Issuer: "hrms-test",
		TTL:    15 * time.Minute,
		Now:    fixedClock(now),
	}
}

func TestJWTer_IssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	j := newTestJWTer(now)

	tok, exp, err := j.Issue("user-1", []string{"ADMIN", "MANAGER"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !exp.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("exp = %v, want %v", exp, now.Add(15*time.Minute))
	}

	claims, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", claims.Subject)
	}
	if !reflect.DeepEqual(claims.Roles, []string{"ADMIN", "MANAGER"}) {
		t.Errorf("Roles = %v", claims.Roles)
	}
	if claims.ExpiresAt.Time.Unix() != exp.Unix() {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt.Time, exp)
	}
}

func TestJWTer_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	j := newTestJWTer(now)
	tok, _, err := j.Issue("user-1", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	j.Now = fixedClock(now.Add(15*time.Minute - time.Second))
	if _, err := j.Verify(tok); err != nil {
		t.Errorf("Verify() just before expiry error = %v", err)
	}

	j.Now = fixedClock(now.Add(15 * time.Minute))
	if _, err := j.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() at expiry error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTer_Rejects(t *testing.T) {
	now := time.Now()
	j := newTestJWTer(now)
	good, _, _ := j.Issue("user-1", nil)

	other := newTestJWTer(now)
	other.Secret = []byte("another-secret")
	foreign, _, _ := other.Issue("user-1", nil)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "hrms-test",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered", good + "x"},
		{"wrong secret", foreign},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := j.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
