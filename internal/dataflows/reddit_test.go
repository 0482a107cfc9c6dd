package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const redditSearchBody = `{"data":{"children":[
 {"kind":"t3","data":{"id":"p1","title":"AAPL to the moon","score":900,"url":"https://x/1","subreddit":"stocks"}},
 {"kind":"t3","data":{"id":"p2","title":"AAPL earnings","score":400,"url":"https://x/2","subreddit":"investing"}}
]}}`

const redditCommentsBody = `[{"data":{"children":[]}},{"data":{"children":[
 {"kind":"t1","data":{"body":"a","score":1}},
 {"kind":"t1","data":{"body":"b","score":50}},
 {"kind":"t1","data":{"body":"c","score":7}},
 {"kind":"t1","data":{"body":"d","score":30}},
 {"kind":"t1","data":{"body":"e","score":2}},
 {"kind":"t1","data":{"body":"f","score":90}},
 {"kind":"more","data":{"count":12}}
]}}]`

func TestRedditPublicSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/all/search.json":
			q := r.URL.Query()
			if q.Get("q") != "AAPL" || q.Get("sort") != "top" || q.Get("t") != "week" || q.Get("limit") != "3" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(redditSearchBody))
		case "/comments/p1.json", "/comments/p2.json":
			_, _ = w.Write([]byte(redditCommentsBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewRedditClient(RedditConfig{BaseURL: srv.URL, OAuthURL: srv.URL, Timeout: time.Second})
	posts, err := c.Search(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d", len(posts))
	}
	got := posts[0].Comments
	if len(got) != 5 || got[0].Body != "f" || got[1].Body != "b" || got[4].Body != "e" {
		t.Fatalf("comments not top-5 by score: %+v", got)
	}
	if posts[0].Query != "AAPL" || posts[1].Subreddit != "investing" {
		t.Fatalf("unexpected post fields %+v", posts[1])
	}
}

func TestRedditOAuthTokenReused(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/access_token":
			tokenCalls.Add(1)
			if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "secret" {
				t.Errorf("missing basic auth")
			}
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		case "/r/all/search":
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer token")
			}
			_, _ = w.Write([]byte(redditSearchBody))
		case "/comments/p1", "/comments/p2":
			_, _ = w.Write([]byte(redditCommentsBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewRedditClient(RedditConfig{ClientID: "id", Secret: "secret", BaseURL: srv.URL, OAuthURL: srv.URL, Timeout: time.Second})
	if _, err := c.Search(context.Background(), "MSFT"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if tokenCalls.Load() != 1 {
		t.Fatalf("token requested %d times", tokenCalls.Load())
	}
}
