package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testSecret = "middleware-test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()), Logger(zap.NewNop()))
	return r
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func issue(t *testing.T, secret string, perms []string, ttl time.Duration) string {
	t.Helper()
	token, err := IssueToken(secret, "nimo-pcf", JWTClaims{UserID: "u1", Name: "User", Permissions: perms}, ttl)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestJWTAuth(t *testing.T) {
	r := newRouter()
	r.GET("/me", JWTAuth(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})

	w := serve(r, "GET", "/me", issue(t, testSecret, nil, time.Hour))
	if w.Code != http.StatusOK || w.Body.String() != "u1" {
		t.Errorf("Expected 200 u1, got %d %q", w.Code, w.Body.String())
	}

	if w := serve(r, "GET", "/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
	if w := serve(r, "GET", "/me", issue(t, "other-secret", nil, time.Hour)); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong signature, got %d", w.Code)
	}
	if w := serve(r, "GET", "/me", issue(t, testSecret, nil, -time.Minute)); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for expired token, got %d", w.Code)
	}

	// SSE 客户端通过 query 传递 token
	if w := serve(r, "GET", "/me?token="+issue(t, testSecret, nil, time.Hour), ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for query token, got %d", w.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	r := newRouter()
	r.POST("/write", JWTAuth(testSecret), RequirePermission(PermWrite), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		perms []string
		want  int
	}{
		{[]string{PermWrite}, http.StatusNoContent},
		{[]string{"*"}, http.StatusNoContent},
		{[]string{PermAdmin}, http.StatusNoContent},
		{[]string{"pcf:*"}, http.StatusNoContent},
		{[]string{PermRead}, http.StatusForbidden},
		{nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		w := serve(r, "POST", "/write", issue(t, testSecret, tc.perms, time.Hour))
		if w.Code != tc.want {
			t.Errorf("perms %v: expected %d, got %d", tc.perms, tc.want, w.Code)
		}
	}
}

func TestHasPermission(t *testing.T) {
	if HasPermission([]string{"srm:*"}, PermRead) {
		t.Errorf("Expected srm:* not to cover %s", PermRead)
	}
	if !HasPermission([]string{"pcf:*"}, PermRead) {
		t.Errorf("Expected pcf:* to cover %s", PermRead)
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter()
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := serve(r, "GET", "/ping", "")
	if w.Header().Get("X-Request-ID") == "" || w.Body.String() != w.Header().Get("X-Request-ID") {
		t.Errorf("Expected generated request id to be echoed, got %q", w.Header().Get("X-Request-ID"))
	}

	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("Expected incoming request id to be kept, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestRecovery(t *testing.T) {
	r := newRouter()
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	if w := serve(r, "GET", "/boom", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := newRouter()
	r.Use(CORS([]string{"https://pcf.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "https://pcf.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://pcf.example.com" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}
}
