package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/extract"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/pkg/utils"
)

const (
	maxExtractedTools  = 5
	maxResearchedTools = 4
	articleContentLen  = 1500
	serviceContentLen  = 2500
)

const recommendationUnavailable = "Unable to generate recommendations at this time."

type ResearchState struct {
	Query    string
	Report   models.ResearchReport
	Warnings []string
}

func (s *ResearchState) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// FinancialResearch compares financial tools and data services for a query:
// extract_tools -> research_services -> analyze.
type FinancialResearch struct {
	deps   Deps
	runner *Runner[ResearchState]
}

func NewFinancialResearch(ctx context.Context, deps Deps) (*FinancialResearch, error) {
	if err := require(consts.FinancialResearch, map[string]bool{
		"chat model": deps.Chat == nil,
		"web search": deps.Web == nil,
	}); err != nil {
		return nil, err
	}
	f := &FinancialResearch{deps: deps}
	r, err := Pipeline[ResearchState]{
		Name: consts.FinancialResearch,
		Before: []Step[ResearchState]{
			{Name: consts.NodeExtractTools, Run: f.extractTools},
			{Name: consts.NodeResearchServices, Run: f.researchServices},
			{Name: consts.NodeAnalyze, Run: f.analyze},
		},
	}.Compile(ctx)
	if err != nil {
		return nil, err
	}
	f.runner = r
	return f, nil
}

func (f *FinancialResearch) Run(ctx context.Context, query string, handlers ...callbacks.Handler) (*ResearchState, error) {
	query = strings.TrimSpace(query)
	return f.runner.Run(f.deps.paced(ctx), &ResearchState{Query: query, Report: models.ResearchReport{Query: query}}, handlers...)
}

func truncate(s string, n int) string {
	return utils.Truncate(s, n)
}

// search paces and runs one web search. Failures other than cancellation
// are recorded as warnings and yield no pages.
func (f *FinancialResearch) search(ctx context.Context, s *ResearchState, q dataflows.SearchQuery) ([]models.WebPage, error) {
	if err := dataflows.Pace(ctx); err != nil {
		return nil, err
	}
	pages, err := f.deps.Web.Search(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.warn("web search %q: %v", q.Query, err)
		return nil, nil
	}
	return pages, nil
}

// pageContent returns the page markdown, scraping the URL when the search
// result carried none.
func (f *FinancialResearch) pageContent(ctx context.Context, s *ResearchState, p models.WebPage) (string, error) {
	if p.Markdown != "" || p.URL == "" {
		return p.Markdown, nil
	}
	if err := dataflows.Pace(ctx); err != nil {
		return "", err
	}
	page, err := f.deps.Web.Scrape(ctx, p.URL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.warn("scrape %s: %v", p.URL, err)
		return "", nil
	}
	if page == nil {
		return "", nil
	}
	return page.Markdown, nil
}

func (f *FinancialResearch) extractTools(ctx context.Context, s *ResearchState) error {
	pages, err := f.search(ctx, s, dataflows.ToolComparisonQuery(s.Query))
	if err != nil {
		return err
	}

	var content strings.Builder
	for _, p := range pages {
		text, err := f.pageContent(ctx, s, p)
		if err != nil {
			return err
		}
		if text != "" {
			content.WriteString(truncate(text, articleContentLen))
			content.WriteString("\n\n")
		}
	}

	msgs, err := llm.ToolExtractionPrompt.Messages(ctx, map[string]any{
		"query":   s.Query,
		"content": content.String(),
	})
	if err != nil {
		return err
	}
	text, err := llm.Text(ctx, f.deps.Chat, msgs)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.warn("extract tools: %v", err)
		return nil
	}
	s.Report.ExtractedTools = extract.Lines(text, maxExtractedTools)
	f.deps.logger().Info("extracted financial tools",
		zap.String("query", s.Query), zap.Strings("tools", s.Report.ExtractedTools))
	return nil
}

// candidates are the service names to research: the extracted tools, or
// the titles of a direct platform search when extraction found none.
func (f *FinancialResearch) candidates(ctx context.Context, s *ResearchState) ([]string, error) {
	if len(s.Report.ExtractedTools) > 0 {
		names := s.Report.ExtractedTools
		if len(names) > maxResearchedTools {
			names = names[:maxResearchedTools]
		}
		return names, nil
	}
	pages, err := f.search(ctx, s, dataflows.DataPlatformQuery(s.Query))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pages))
	for _, p := range pages {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = "Unknown Financial Service"
		}
		names = append(names, title)
	}
	return names, nil
}

func (f *FinancialResearch) researchServices(ctx context.Context, s *ResearchState) error {
	names, err := f.candidates(ctx, s)
	if err != nil {
		return err
	}
	for _, name := range names {
		pages, err := f.search(ctx, s, dataflows.OfficialSiteQuery(name))
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			continue
		}
		site := pages[0]
		company := models.CompanyInfo{
			Name:        name,
			Description: site.Markdown,
			Website:     site.URL,
		}

		content := ""
		if site.URL != "" {
			if err := dataflows.Pace(ctx); err != nil {
				return err
			}
			page, err := f.deps.Web.Scrape(ctx, site.URL)
			switch {
			case err != nil && ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				s.warn("scrape %s: %v", site.URL, err)
			case page != nil:
				content = page.Markdown
			}
		}
		if content != "" {
			company.FinancialAnalysis = f.analyzeService(ctx, s, name, content)
			company.Description = company.FinancialAnalysis.Description
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Report.Companies = append(s.Report.Companies, company)
	}
	return nil
}

func (f *FinancialResearch) analyzeService(ctx context.Context, s *ResearchState, name, content string) models.FinancialAnalysis {
	msgs, err := llm.ToolAnalysisPrompt.Messages(ctx, map[string]any{
		"name":    name,
		"content": truncate(content, serviceContentLen),
	})
	if err == nil {
		var analysis models.FinancialAnalysis
		analysis, _, err = llm.Decode[models.FinancialAnalysis](ctx, f.deps.jsonModel(), "financial_analysis", msgs)
		if err == nil {
			return analysis
		}
	}
	s.warn("analyze %s: %v", name, err)
	return models.UnknownAnalysis()
}

func (f *FinancialResearch) analyze(ctx context.Context, s *ResearchState) error {
	parts := make([]string, 0, len(s.Report.Companies))
	for _, c := range s.Report.Companies {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		parts = append(parts, string(data))
	}
	msgs, err := llm.RecommendationsPrompt.Messages(ctx, map[string]any{
		"query":     s.Query,
		"companies": strings.Join(parts, ", "),
	})
	if err != nil {
		return err
	}
	text, err := llm.Text(ctx, f.deps.Chat, msgs)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.warn("recommendations: %v", err)
		text = recommendationUnavailable
	}
	s.Report.Analysis = text
	return nil
}
