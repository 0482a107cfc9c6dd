package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/result"
)

func TestPolygonHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/aggs/ticker/AAPL/range/1/day/2024-08-15/2025-03-03" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sort") != "asc" || q.Get("limit") != "200" || q.Get("apiKey") != "k" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"o":1,"h":2,"l":0.5,"c":1.5,"v":100,"t":1704067200000},{"o":1.5,"h":3,"l":1,"c":2.5,"v":200,"t":1704153600000}]}`))
	}))
	defer srv.Close()

	c := NewPolygonClient(srv.URL, "k", time.Second)
	c.now = func() time.Time { return time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC) }

	series, err := c.History(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(series.Bars) != 2 || series.Last().Close != 2.5 {
		t.Fatalf("unexpected series %+v", series)
	}
	if !series.Bars[0].Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bar date = %v", series.Bars[0].Date)
	}
}

func TestPolygonLatestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/MSFT/prev"):
			if r.URL.Query().Get("adjusted") != "true" {
				t.Errorf("adjusted flag missing")
			}
			_, _ = w.Write([]byte(`{"results":[{"c":410.5,"t":1740960000000}]}`))
		case strings.HasSuffix(r.URL.Path, "/EMPTY/prev"):
			_, _ = w.Write([]byte(`{"results":[]}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c := NewPolygonClient(srv.URL, "k", time.Second)
	q, err := c.LatestPrice(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if q.Price != 410.5 || q.Source != "polygon" || q.Time.UnixMilli() != 1740960000000 {
		t.Fatalf("unexpected quote %+v", q)
	}

	if _, err := c.LatestPrice(context.Background(), "EMPTY"); !result.IsKind(err, result.KindNotFound) {
		t.Fatalf("empty results: err = %v", err)
	}
	if _, err := c.LatestPrice(context.Background(), "DENIED"); !result.IsKind(err, result.KindUpstream) {
		t.Fatalf("403: err = %v", err)
	}
}

func TestPolygonRequiresKey(t *testing.T) {
	c := NewPolygonClient("http://127.0.0.1:1", "", time.Second)
	if _, err := c.LatestPrice(context.Background(), "AAPL"); !result.IsKind(err, result.KindPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
}
