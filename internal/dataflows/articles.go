package dataflows

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

const articlesQuery = `{ articles { id source_name author title description url urlToImage content economic_terms createdAt } }`

// ArticleFilter narrows the feed client-side. Empty fields match everything.
type ArticleFilter struct {
	Symbol       string
	EconomicTerm string
	Limit        int
}

func (f ArticleFilter) match(a models.Article) bool {
	if f.EconomicTerm != "" && !a.HasTerm(f.EconomicTerm) && !a.Mentions(f.EconomicTerm) {
		return false
	}
	if f.Symbol != "" && !a.Mentions(f.Symbol) {
		return false
	}
	return true
}

// ArticlesClient reads the economic news feed over GraphQL.
type ArticlesClient struct {
	client   *resty.Client
	endpoint string
}

func NewArticlesClient(endpoint string, timeout time.Duration) *ArticlesClient {
	return &ArticlesClient{
		client:   newRestyClient("", timeout, ""),
		endpoint: endpoint,
	}
}

func (c *ArticlesClient) Articles(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	const op = "articles.query"
	if err := requireKey(op, "URL_ARTICLES", c.endpoint); err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"query": articlesQuery}).
		Post(c.endpoint)
	if err := checkResponse(op, resp, err); err != nil {
		return nil, err
	}

	var body struct {
		Data struct {
			Articles []models.Article `json:"articles"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, result.Wrap(result.KindParse, op, err)
	}
	if len(body.Errors) > 0 && len(body.Data.Articles) == 0 {
		return nil, result.Errorf(result.KindUpstream, op, "graphql: %s", body.Errors[0].Message)
	}

	out := make([]models.Article, 0, len(body.Data.Articles))
	for _, a := range body.Data.Articles {
		if !filter.match(a) {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
