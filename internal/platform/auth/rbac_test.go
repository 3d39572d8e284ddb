package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(req *http.Request, roles []string) *http.Request {
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	return req.WithContext(ctx)
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name     string
		required []string
		has      []string
		allowed  bool
	}{
		{"exact match", []string{"facility-manager"}, []string{"facility-manager"}, true},
		{"admin override", []string{"facility-manager"}, []string{"admin"}, true},
		{"any of several", []string{"admin", "facility-manager"}, []string{"facility-manager"}, true},
		{"missing role", []string{"facility-manager"}, []string{"nurse"}, false},
		{"no roles", []string{"facility-manager"}, nil, false},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = contextWithRoles(req, tc.has)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := RequireRole(tc.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			err := h(c)
			if tc.allowed {
				if err != nil {
					t.Fatalf("expected access, got %v", err)
				}
				return
			}
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %v", err)
			}
		})
	}
}
