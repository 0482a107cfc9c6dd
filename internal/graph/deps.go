package graph

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
	"github.com/dyike/CortexFolio/internal/storage"
)

// WebResearch searches and scrapes the web.
type WebResearch interface {
	Search(ctx context.Context, q dataflows.SearchQuery) ([]models.WebPage, error)
	Scrape(ctx context.Context, url string) (*models.WebPage, error)
}

// Researcher gathers per-ticker market data.
type Researcher interface {
	Research(ctx context.Context, tickers []string) ([]models.ResearchRecord, error)
}

// Deps are the collaborators shared by every workflow. Each workflow
// constructor checks the ones it needs.
type Deps struct {
	Config     config.Config
	Chat       model.ToolCallingChatModel
	Structured *llm.StructuredClient
	Research   Researcher
	Prices     dataflows.QuoteSource
	Articles   dataflows.NewsSource
	Web        WebResearch
	Tools      []tool.BaseTool
	Store      storage.Store
	Logger     *zap.Logger
	Now        func() time.Time
}

// paced gives one run its own pacer, so concurrent runs do not wait on
// each other.
func (d Deps) paced(ctx context.Context) context.Context {
	return dataflows.WithPacer(ctx, dataflows.NewPacer(d.Config.ToolPacing))
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d Deps) jsonModel() llm.JSONModel {
	return llm.JSONModel{Chat: d.Chat, Structured: d.Structured, Logger: d.logger()}
}

// require returns a precondition error naming every missing collaborator.
func require(op string, missing map[string]bool) error {
	var names []string
	for name, isMissing := range missing {
		if isMissing {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return result.Errorf(result.KindPrecondition, op, "not configured: %s", strings.Join(names, ", "))
}

func today(t time.Time) string {
	return t.Format("2006-01-02")
}
