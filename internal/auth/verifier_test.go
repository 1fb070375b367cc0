package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-adorn/internal/common"
)

func signToken(t *testing.T, secret, issuer, subject string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject(subject).
		IssuedAt(time.Now()).
		Expiration(exp).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestParseAccessToken(t *testing.T) {
	v := Verifier{Secret: []byte("secret"), Issuer: "adorn"}

	raw := signToken(t, "secret", "adorn", "user-1", time.Now().Add(time.Hour))
	subject, err := v.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("subject = %q", subject)
	}

	if _, err := v.ParseAccessToken(signToken(t, "other", "adorn", "user-1", time.Now().Add(time.Hour))); err == nil {
		t.Fatal("expected error for wrong secret")
	}
	if _, err := v.ParseAccessToken(signToken(t, "secret", "someone-else", "user-1", time.Now().Add(time.Hour))); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
	if _, err := v.ParseAccessToken(signToken(t, "secret", "adorn", "user-1", time.Now().Add(-time.Hour))); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestRequireAuth(t *testing.T) {
	mw := Middleware{Verifier: Verifier{Secret: []byte("secret"), Issuer: "adorn"}}
	var gotUser string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", "adorn", "user-9", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || gotUser != "user-9" {
		t.Fatalf("code=%d user=%q", rec.Code, gotUser)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
