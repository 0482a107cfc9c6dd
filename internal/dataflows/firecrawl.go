package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

var (
	scrapeIncludeTags = []string{"main", "article", "section", "div"}
	scrapeExcludeTags = []string{"nav", "footer", "header", "aside", "advertisement"}
)

// SearchQuery is a canned web search with its result limit.
type SearchQuery struct {
	Query string
	Limit int
}

func MarketDataQuery(q string) SearchQuery {
	return SearchQuery{Query: fmt.Sprintf("%s financial market data API trading platform", q), Limit: 5}
}

func PriceAnalysisQuery(q string) SearchQuery {
	return SearchQuery{Query: fmt.Sprintf("%s price analysis financial data", q), Limit: 3}
}

func EconomicDataQuery(q string) SearchQuery {
	return SearchQuery{Query: fmt.Sprintf("%s economic data statistics government source", q), Limit: 2}
}

func ToolComparisonQuery(q string) SearchQuery {
	return SearchQuery{Query: fmt.Sprintf("%s financial tools comparison best platforms analysis", q), Limit: 3}
}

func DataPlatformQuery(q string) SearchQuery {
	return SearchQuery{Query: fmt.Sprintf("%s financial data API platform", q), Limit: 4}
}

func OfficialSiteQuery(name string) SearchQuery {
	return SearchQuery{Query: fmt.Sprintf("%s official website financial data", name), Limit: 1}
}

// Scraper fetches a single page as text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*models.WebPage, error)
}

// FirecrawlClient wraps the Firecrawl v1 search and scrape endpoints.
// Without an API key, Scrape falls back to the configured Scraper and
// Search reports a precondition error.
type FirecrawlClient struct {
	client   *resty.Client
	apiKey   string
	fallback Scraper
}

func NewFirecrawlClient(baseURL, apiKey string, timeout time.Duration, fallback Scraper) *FirecrawlClient {
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	client := newRestyClient(baseURL, timeout, "")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &FirecrawlClient{client: client, apiKey: apiKey, fallback: fallback}
}

type firecrawlPage struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown"`
	Metadata    struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SourceURL   string `json:"sourceURL"`
	} `json:"metadata"`
}

func (p firecrawlPage) toWebPage() models.WebPage {
	page := models.WebPage{URL: p.URL, Title: p.Title, Description: p.Description, Markdown: p.Markdown}
	if page.URL == "" {
		page.URL = p.Metadata.SourceURL
	}
	if page.Title == "" {
		page.Title = p.Metadata.Title
	}
	if page.Description == "" {
		page.Description = p.Metadata.Description
	}
	return page
}

func (c *FirecrawlClient) post(ctx context.Context, op, path string, body any, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err := checkResponse(op, resp, err); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return result.Wrap(result.KindParse, op, err)
	}
	return nil
}

func (c *FirecrawlClient) Search(ctx context.Context, q SearchQuery) ([]models.WebPage, error) {
	const op = "firecrawl.search"
	if err := requireKey(op, "FIRECRAWL_API_KEY", c.apiKey); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	var body struct {
		Success bool            `json:"success"`
		Data    []firecrawlPage `json:"data"`
		Error   string          `json:"error"`
	}
	err := c.post(ctx, op, "/v1/search", map[string]any{
		"query":         q.Query,
		"limit":         limit,
		"scrapeOptions": map[string]any{"formats": []string{"markdown"}},
	}, &body)
	if err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, result.Errorf(result.KindUpstream, op, "search failed: %s", body.Error)
	}

	pages := make([]models.WebPage, 0, len(body.Data))
	for _, p := range body.Data {
		pages = append(pages, p.toWebPage())
	}
	return pages, nil
}

func (c *FirecrawlClient) Scrape(ctx context.Context, url string) (*models.WebPage, error) {
	const op = "firecrawl.scrape"
	if c.apiKey == "" {
		if c.fallback == nil {
			return nil, result.Errorf(result.KindPrecondition, op, "FIRECRAWL_API_KEY not configured")
		}
		return c.fallback.Scrape(ctx, url)
	}

	var body struct {
		Success bool          `json:"success"`
		Data    firecrawlPage `json:"data"`
		Error   string        `json:"error"`
	}
	err := c.post(ctx, op, "/v1/scrape", map[string]any{
		"url":         url,
		"formats":     []string{"markdown"},
		"includeTags": scrapeIncludeTags,
		"excludeTags": scrapeExcludeTags,
	}, &body)
	if err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, result.Errorf(result.KindUpstream, op, "scrape failed: %s", body.Error)
	}
	page := body.Data.toWebPage()
	if page.URL == "" {
		page.URL = url
	}
	return &page, nil
}
