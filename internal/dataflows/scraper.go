package dataflows

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// PageScraper is a plain HTTP + goquery scraper used when Firecrawl is
// not configured. It keeps text from content containers only.
type PageScraper struct {
	client *resty.Client
}

func NewPageScraper(timeout time.Duration) *PageScraper {
	return &PageScraper{
		client: newRestyClient("", timeout, "Mozilla/5.0 (compatible; CortexFolio/1.0)"),
	}
}

func (s *PageScraper) Scrape(ctx context.Context, url string) (*models.WebPage, error) {
	const op = "scraper.get"
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err := checkResponse(op, resp, err); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, result.Wrap(result.KindParse, op, err)
	}
	page := extractPage(doc)
	page.URL = url
	return page, nil
}

func extractPage(doc *goquery.Document) *models.WebPage {
	page := &models.WebPage{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		page.Description = strings.TrimSpace(desc)
	} else if desc, ok := doc.Find("meta[property='og:description']").Attr("content"); ok {
		page.Description = strings.TrimSpace(desc)
	}

	doc.Find(strings.Join(append(scrapeExcludeTags, "script", "style", "noscript"), ",")).Remove()

	var parts []string
	for _, sel := range []string{"main", "article", "section"} {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := collapse(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			break
		}
	}
	if len(parts) == 0 {
		if text := collapse(doc.Find("body").Text()); text != "" {
			parts = append(parts, text)
		}
	}
	page.Markdown = strings.Join(parts, "\n\n")
	return page
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
