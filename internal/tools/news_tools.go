package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/models"
)

const maxNewsResults = 10

type NewsInput struct {
	Ticker       string `json:"ticker"`
	EconomicTerm string `json:"economic_term"`
}

type NewsOutput struct {
	Articles []models.Article `json:"articles"`
	Error    string           `json:"error,omitempty"`
}

func NewNewsTool(src dataflows.NewsSource) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_news",
			Desc: "Get recent economic news articles, optionally filtered by ticker or economic term",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type: "string",
					Desc: "Ticker or company name mentioned in the article",
				},
				"economic_term": {
					Type: "string",
					Desc: "Economic term the article is tagged with, e.g. inflation",
				},
			}),
		},
		func(ctx context.Context, input NewsInput) (*NewsOutput, error) {
			if err := dataflows.Pace(ctx); err != nil {
				return nil, err
			}
			articles, err := src.Articles(ctx, dataflows.ArticleFilter{
				Symbol:       strings.TrimSpace(input.Ticker),
				EconomicTerm: strings.TrimSpace(input.EconomicTerm),
				Limit:        maxNewsResults,
			})
			if articles == nil {
				articles = []models.Article{}
			}
			return &NewsOutput{Articles: articles, Error: failure(err)}, nil
		},
	)
}
