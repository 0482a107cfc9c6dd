package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/models"
)

// WebSearcher is the search half of the Firecrawl client.
type WebSearcher interface {
	Search(ctx context.Context, q dataflows.SearchQuery) ([]models.WebPage, error)
}

// Deps are the adapters exposed to the tools agent. Nil entries are left out.
type Deps struct {
	Prices    dataflows.QuoteSource
	History   dataflows.HistorySource
	Sentiment dataflows.SentimentSource
	News      dataflows.NewsSource
	Search    WebSearcher
}

// New returns one tool per configured adapter.
func New(d Deps) []tool.BaseTool {
	var out []tool.BaseTool
	if d.Prices != nil {
		out = append(out, NewPriceTool(d.Prices))
	}
	if d.History != nil {
		out = append(out, NewHistoryTool(d.History))
	}
	if d.Sentiment != nil {
		out = append(out, NewSentimentTool(d.Sentiment))
	}
	if d.News != nil {
		out = append(out, NewNewsTool(d.News))
	}
	if d.Search != nil {
		out = append(out, NewSearchTool(d.Search))
	}
	return out
}

// Infos returns the tool descriptions, for binding to a chat model.
func Infos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// failure is reported to the model as tool output so the agent can carry on.
func failure(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
