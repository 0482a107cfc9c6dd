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
	"github.com/dyike/CortexFolio/pkg/utils"
)

const maxSnippet = 1500

type SearchInput struct {
	Query string `json:"query"`
}

type SearchOutput struct {
	Results []models.WebPage `json:"results"`
	Error   string           `json:"error,omitempty"`
}

func NewSearchTool(src WebSearcher) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "search_web",
			Desc: "Search the web for financial market data, prices and analysis",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Search query",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input SearchInput) (*SearchOutput, error) {
			q := strings.TrimSpace(input.Query)
			if q == "" {
				return nil, fmt.Errorf("query parameter is required")
			}
			if err := dataflows.Pace(ctx); err != nil {
				return nil, err
			}
			pages, err := src.Search(ctx, dataflows.MarketDataQuery(q))
			for i := range pages {
				pages[i].Markdown = utils.Truncate(pages[i].Markdown, maxSnippet)
			}
			if pages == nil {
				pages = []models.WebPage{}
			}
			return &SearchOutput{Results: pages, Error: failure(err)}, nil
		},
	)
}
