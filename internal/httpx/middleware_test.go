package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MikeMC777/menu-orders/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("rid=%q", w.Header().Get("X-Request-ID"))
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["rid"] != "abc" || ctx["path"] != "/ping" || ctx["status"] != int64(200) {
		t.Fatalf("fields=%v", ctx)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id not generated")
	}
}

func TestAdminOnly(t *testing.T) {
	hash, err := auth.HashToken("letmein")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		hash  string
		token string
		want  int
	}{
		{"valid", hash, "letmein", http.StatusNoContent},
		{"wrong token", hash, "nope", http.StatusUnauthorized},
		{"missing token", hash, "", http.StatusUnauthorized},
		{"disabled", "", "letmein", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.DELETE("/x", AdminOnly(tc.hash), func(c *gin.Context) { c.Status(http.StatusNoContent) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodDelete, "/x", nil)
			if tc.token != "" {
				req.Header.Set(AdminTokenHeader, tc.token)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
		})
	}
}
