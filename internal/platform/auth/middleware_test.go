package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signHS256(t *testing.T, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "biller-7",
			Issuer:    "https://idp.example.test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: "clinic_north",
		Roles:    []string{"billing"},
	}
}

func serve(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (int, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scoring-config", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	var seen echo.Context
	err := mw(func(c echo.Context) error {
		seen = c
		return nil
	})(c)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, nil
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return http.StatusOK, seen
}

func TestJWTMiddleware_ValidHS256(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{Issuer: "https://idp.example.test", SigningKey: testKey})
	code, c := serve(t, mw, "Bearer "+signHS256(t, validClaims()))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if tid := c.Get("jwt_tenant_id"); tid != "clinic_north" {
		t.Errorf("expected tenant clinic_north, got %v", tid)
	}
	ctx := c.Request().Context()
	if UserIDFromContext(ctx) != "biller-7" {
		t.Errorf("expected subject biller-7, got %s", UserIDFromContext(ctx))
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "billing" {
		t.Errorf("unexpected roles %v", roles)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{Issuer: "https://idp.example.test", SigningKey: testKey})

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noExp := validClaims()
	noExp.ExpiresAt = nil
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://other.example.test"

	cases := map[string]string{
		"missing header": "",
		"basic scheme":   "Basic dXNlcjpwYXNz",
		"garbage token":  "Bearer not.a.jwt",
		"expired":        "Bearer " + signHS256(t, expired),
		"no expiry":      "Bearer " + signHS256(t, noExp),
		"wrong issuer":   "Bearer " + signHS256(t, wrongIssuer),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			if code, _ := serve(t, mw, header); code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", code)
			}
		})
	}
}

func TestJWTMiddleware_RejectsWrongKey(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: []byte("another-key")})
	if code, _ := serve(t, mw, "Bearer "+signHS256(t, validClaims())); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey, Skipper: func(echo.Context) bool { return true }})
	if code, _ := serve(t, mw, ""); code != http.StatusOK {
		t.Errorf("expected skipped request to pass, got %d", code)
	}
}

func TestJWTMiddleware_JWKS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"n":   base64.RawURLEncoding.EncodeToString(priv.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(priv)
	if err != nil {
		t.Fatal(err)
	}

	mw := JWTMiddleware(JWTConfig{JWKSURL: srv.URL})
	if code, _ := serve(t, mw, "Bearer "+signed); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	// HS256 tokens are refused once JWKS verification is configured.
	if code, _ := serve(t, mw, "Bearer "+signHS256(t, validClaims())); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for HS256 token, got %d", code)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	code, c := serve(t, DevAuthMiddleware(), "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if c.Get("jwt_tenant_id") != "default" {
		t.Errorf("expected default tenant, got %v", c.Get("jwt_tenant_id"))
	}
	if !HasRole(RolesFromContext(c.Request().Context()), RoleBilling) {
		t.Error("expected dev user to pass role checks")
	}
}

func TestAuthSkipper(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())
	c.SetPath("/health")
	if !AuthSkipper(c) {
		t.Error("expected /health to be public")
	}
	c.SetPath("/api/v1/claims/validate")
	if AuthSkipper(c) {
		t.Error("expected validate route to require auth")
	}
}
