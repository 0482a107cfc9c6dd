package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	collector, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	r := gin.New()
	r.Use(collector.Middleware())
	r.GET("/portfolio/:email", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/portfolio/a@b.com", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, `cortexfolio_http_requests_total{method="GET",path="/portfolio/:email",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}
}

func TestWorkflowAndUpstreamCounters(t *testing.T) {
	collector, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	collector.ObserveWorkflow("trading", time.Now(), nil)
	collector.ObserveWorkflow("trading", time.Now(), errors.New("boom"))
	collector.UpstreamError("polygon")

	body := scrape(t, collector)
	for _, want := range []string{
		`cortexfolio_workflow_runs_total{outcome="ok",workflow="trading"} 1`,
		`cortexfolio_workflow_runs_total{outcome="error",workflow="trading"} 1`,
		`cortexfolio_upstream_errors_total{provider="polygon"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in %q", want, body)
		}
	}

	var nilCollector *Collector
	nilCollector.ObserveWorkflow("noop", time.Now(), nil)
	nilCollector.UpstreamError("noop")
}
