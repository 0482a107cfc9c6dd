package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/models"
)

type SentimentInput struct {
	Query string `json:"query"`
}

type SentimentOutput struct {
	Query string              `json:"query"`
	Posts []models.RedditPost `json:"posts"`
	Error string              `json:"error,omitempty"`
}

func NewSentimentTool(src dataflows.SentimentSource) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_sentiment",
			Desc: "Search this week's top Reddit posts and their top comments for a ticker or topic",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Ticker or topic to search for",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input SentimentInput) (*SentimentOutput, error) {
			q := strings.TrimSpace(input.Query)
			if q == "" {
				return nil, fmt.Errorf("query parameter is required")
			}
			if err := dataflows.Pace(ctx); err != nil {
				return nil, err
			}
			posts, err := src.Search(ctx, q)
			if posts == nil {
				posts = []models.RedditPost{}
			}
			return &SentimentOutput{Query: q, Posts: posts, Error: failure(err)}, nil
		},
	)
}
