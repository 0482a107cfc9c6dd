package dataflows

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/result"
)

const articlesBody = `{"data":{"articles":[
 {"id":"1","source_name":"wire","title":"Apple (AAPL) beats estimates","economic_terms":["earnings"],"createdAt":"2025-01-01"},
 {"id":"2","source_name":"wire","title":"Fed holds rates","content":"inflation cools","economic_terms":["Inflation"]},
 {"id":"3","source_name":"wire","title":"Microsoft cloud growth","description":"MSFT up 3%"}
]}}`

func TestArticlesQueryAndFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req["query"], "economic_terms createdAt") {
			t.Errorf("unexpected query %q", req["query"])
		}
		_, _ = w.Write([]byte(articlesBody))
	}))
	defer srv.Close()

	c := NewArticlesClient(srv.URL, time.Second)
	ctx := context.Background()

	all, err := c.Articles(ctx, ArticleFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %d, err = %v", len(all), err)
	}
	if all[0].CreatedAt != "2025-01-01" || all[0].SourceName != "wire" {
		t.Fatalf("fields not decoded: %+v", all[0])
	}

	bySymbol, _ := c.Articles(ctx, ArticleFilter{Symbol: "msft"})
	if len(bySymbol) != 1 || bySymbol[0].ID != "3" {
		t.Fatalf("symbol filter = %+v", bySymbol)
	}

	byTerm, _ := c.Articles(ctx, ArticleFilter{EconomicTerm: "inflation"})
	if len(byTerm) != 1 || byTerm[0].ID != "2" {
		t.Fatalf("term filter = %+v", byTerm)
	}

	limited, _ := c.Articles(ctx, ArticleFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestArticlesGraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"boom"}]}`))
	}))
	defer srv.Close()

	_, err := NewArticlesClient(srv.URL, time.Second).Articles(context.Background(), ArticleFilter{})
	if !result.IsKind(err, result.KindUpstream) {
		t.Fatalf("err = %v", err)
	}

	_, err = NewArticlesClient("", time.Second).Articles(context.Background(), ArticleFilter{})
	if !result.IsKind(err, result.KindPrecondition) {
		t.Fatalf("missing endpoint err = %v", err)
	}
}
