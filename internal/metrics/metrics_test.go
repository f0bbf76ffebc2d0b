package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecompute(t *testing.T) {
	before := testutil.ToFloat64(RecomputeTotal.WithLabelValues("error"))
	RecordRecompute("cradle_to_gate", errors.New("boom"), time.Millisecond)
	if got := testutil.ToFloat64(RecomputeTotal.WithLabelValues("error")); got != before+1 {
		t.Errorf("Expected error counter %v, got %v", before+1, got)
	}
}

func TestRecordBatch(t *testing.T) {
	before := testutil.ToFloat64(BatchRecords.WithLabelValues("apply", "failed"))
	RecordBatch("apply", 3, 2)
	if got := testutil.ToFloat64(BatchRecords.WithLabelValues("apply", "failed")); got != before+2 {
		t.Errorf("Expected failed counter %v, got %v", before+2, got)
	}
}

func TestForgetProduct(t *testing.T) {
	MissingFactors.WithLabelValues("gone").Set(3)
	MissingFactors.WithLabelValues("kept").Set(1)
	ForgetProduct("gone")

	if n := testutil.CollectAndCount(MissingFactors); n < 1 {
		t.Fatalf("Expected kept series to remain, got %d series", n)
	}
	if MissingFactors.DeleteLabelValues("gone") {
		t.Errorf("Expected series for deleted product to be gone already")
	}
	if got := testutil.ToFloat64(MissingFactors.WithLabelValues("kept")); got != 1 {
		t.Errorf("Expected kept series 1, got %v", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `pcf_http_requests_total{method="GET",route="/ping",status="200"}`) {
		t.Errorf("Expected /ping to be counted")
	}
}
