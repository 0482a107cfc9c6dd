package dataflows

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

const (
	redditSearchLimit = 3
	redditTopComments = 5
)

type RedditConfig struct {
	ClientID  string
	Secret    string
	UserAgent string
	BaseURL   string // public site, also issues tokens
	OAuthURL  string
	Timeout   time.Duration
}

// RedditClient searches r/all. With app credentials it uses an app-only
// OAuth token, otherwise the public .json endpoints.
type RedditClient struct {
	public   *resty.Client
	oauth    *resty.Client
	clientID string
	secret   string

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewRedditClient(cfg RedditConfig) *RedditClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.reddit.com"
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = "https://oauth.reddit.com"
	}
	return &RedditClient{
		public:   newRestyClient(cfg.BaseURL, cfg.Timeout, cfg.UserAgent),
		oauth:    newRestyClient(cfg.OAuthURL, cfg.Timeout, cfg.UserAgent),
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
	}
}

func (c *RedditClient) authenticated() bool {
	return c.clientID != "" && c.secret != ""
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPostData struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Score     int    `json:"score"`
	URL       string `json:"url"`
	Subreddit string `json:"subreddit"`
}

type redditCommentData struct {
	Body  string `json:"body"`
	Score int    `json:"score"`
}

func (c *RedditClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	const op = "reddit.token"
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := c.public.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.secret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post("/api/v1/access_token")
	if err := checkResponse(op, resp, err); err != nil {
		return "", err
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", result.Wrap(result.KindParse, op, err)
	}
	if body.AccessToken == "" {
		return "", result.Errorf(result.KindUpstream, op, "empty access token")
	}
	c.token = body.AccessToken
	// refresh a minute early
	c.expires = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *RedditClient) get(ctx context.Context, op, path string, params map[string]string) (*resty.Response, error) {
	var req *resty.Request
	if c.authenticated() {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		req = c.oauth.R().SetAuthToken(token)
	} else {
		req = c.public.R()
		path += ".json"
	}
	resp, err := req.SetContext(ctx).SetQueryParams(params).Get(path)
	if err := checkResponse(op, resp, err); err != nil {
		return nil, err
	}
	return resp, nil
}

// Search returns this week's top posts for query across r/all, each with
// its five highest-scored comments.
func (c *RedditClient) Search(ctx context.Context, query string) ([]models.RedditPost, error) {
	const op = "reddit.search"
	resp, err := c.get(ctx, op, "/r/all/search", map[string]string{
		"q":     query,
		"sort":  "top",
		"t":     "week",
		"limit": "3",
	})
	if err != nil {
		return nil, err
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, result.Wrap(result.KindParse, op, err)
	}

	posts := make([]models.RedditPost, 0, redditSearchLimit)
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p redditPostData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			continue
		}
		comments, err := c.topComments(ctx, p.ID)
		if err != nil {
			comments = []models.RedditComment{}
		}
		posts = append(posts, models.RedditPost{
			Query:     query,
			Title:     p.Title,
			Score:     p.Score,
			URL:       p.URL,
			Subreddit: p.Subreddit,
			Comments:  comments,
		})
		if len(posts) == redditSearchLimit {
			break
		}
	}
	return posts, nil
}

func (c *RedditClient) topComments(ctx context.Context, postID string) ([]models.RedditComment, error) {
	const op = "reddit.comments"
	resp, err := c.get(ctx, op, "/comments/"+postID, map[string]string{"depth": "1"})
	if err != nil {
		return nil, err
	}

	// [post listing, comment listing]
	var listings []redditListing
	if err := json.Unmarshal(resp.Body(), &listings); err != nil {
		return nil, result.Wrap(result.KindParse, op, err)
	}
	if len(listings) < 2 {
		return []models.RedditComment{}, nil
	}

	comments := make([]models.RedditComment, 0, len(listings[1].Data.Children))
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var cd redditCommentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			continue
		}
		comments = append(comments, models.RedditComment{Body: cd.Body, Score: cd.Score})
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].Score > comments[j].Score })
	if len(comments) > redditTopComments {
		comments = comments[:redditTopComments]
	}
	return comments, nil
}
