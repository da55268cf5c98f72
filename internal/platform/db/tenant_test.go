package db

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newCtx(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestExtractTenantID_FromHeader(t *testing.T) {
	c := newCtx("/")
	c.Request().Header.Set("X-Tenant-ID", "clinic_north")

	if tid := extractTenantID(c, "default"); tid != "clinic_north" {
		t.Errorf("expected clinic_north, got %s", tid)
	}
}

func TestExtractTenantID_FromQuery(t *testing.T) {
	c := newCtx("/?tenant_id=clinic_south")

	if tid := extractTenantID(c, "default"); tid != "clinic_south" {
		t.Errorf("expected clinic_south, got %s", tid)
	}
}

func TestExtractTenantID_Default(t *testing.T) {
	c := newCtx("/")

	if tid := extractTenantID(c, "default"); tid != "default" {
		t.Errorf("expected default, got %s", tid)
	}
}

func TestExtractTenantID_Priority(t *testing.T) {
	c := newCtx("/?tenant_id=query")
	c.Request().Header.Set("X-Tenant-ID", "header")
	c.Set("jwt_tenant_id", "jwt")

	// token claim wins over header and query
	if tid := extractTenantID(c, "default"); tid != "jwt" {
		t.Errorf("expected jwt, got %s", tid)
	}

	c.Set("jwt_tenant_id", "")
	if tid := extractTenantID(c, "default"); tid != "header" {
		t.Errorf("expected header, got %s", tid)
	}
}

func TestTenantIDPattern(t *testing.T) {
	for _, v := range []string{"abc", "clinic_1", "A1B2"} {
		if !ValidTenantID(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}
	for _, v := range []string{"", "a-b", "x; DROP SCHEMA public", "tenant.1"} {
		if ValidTenantID(v) {
			t.Errorf("expected %q to be rejected", v)
		}
	}
}

func TestSchemaFor(t *testing.T) {
	if got := SchemaFor("default"); got != "tenant_default" {
		t.Errorf("expected tenant_default, got %s", got)
	}
}

func TestTenantContext(t *testing.T) {
	ctx := context.Background()
	if tid := TenantFromContext(ctx); tid != "" {
		t.Errorf("expected empty tenant, got %q", tid)
	}
	if got := Table(ctx, "unit_limit"); got != `"unit_limit"` {
		t.Errorf("expected unqualified table, got %s", got)
	}

	ctx = WithTenant(ctx, "clinic_1")
	if tid := TenantFromContext(ctx); tid != "clinic_1" {
		t.Errorf("expected clinic_1, got %q", tid)
	}
	if got := Table(ctx, "unit_limit"); got != `"tenant_clinic_1"."unit_limit"` {
		t.Errorf("expected qualified table, got %s", got)
	}
}

func TestTenantMiddleware(t *testing.T) {
	mw := TenantMiddleware("default")

	c := newCtx("/")
	c.Request().Header.Set("X-Tenant-ID", "clinic_east")
	var seen string
	if err := mw(func(c echo.Context) error {
		seen = TenantFromContext(c.Request().Context())
		return nil
	})(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "clinic_east" || c.Get("tenant_id") != "clinic_east" {
		t.Errorf("expected clinic_east in context, got %q", seen)
	}

	c = newCtx("/?tenant_id=bad-id")
	err := mw(func(echo.Context) error { return nil })(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid tenant, got %v", err)
	}
}
