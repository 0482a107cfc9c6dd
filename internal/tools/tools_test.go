package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"

	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/models"
)

type fakeQuotes struct{}

func (fakeQuotes) Name() string { return "fake" }

func (fakeQuotes) LatestPrice(_ context.Context, ticker string) (*models.Quote, error) {
	if ticker == "NOPE" {
		return nil, errors.New("no data")
	}
	return &models.Quote{Symbol: ticker, Price: 123.45, Source: "fake", Time: time.Unix(0, 0).UTC()}, nil
}

type fakeHistory struct{}

func (fakeHistory) Name() string { return "fake" }

func (fakeHistory) History(_ context.Context, ticker string) (*models.PriceSeries, error) {
	s := &models.PriceSeries{Symbol: ticker, Source: "fake"}
	for i := 0; i < 50; i++ {
		s.Bars = append(s.Bars, models.PriceBar{Close: float64(i)})
	}
	return s, nil
}

type fakeNews struct{ got dataflows.ArticleFilter }

func (f *fakeNews) Articles(_ context.Context, filter dataflows.ArticleFilter) ([]models.Article, error) {
	f.got = filter
	return nil, nil
}

func run(t *testing.T, bt tool.BaseTool, args string, out any) {
	t.Helper()
	it, ok := bt.(tool.InvokableTool)
	if !ok {
		t.Fatalf("tool is not invokable")
	}
	raw, err := it.InvokableRun(context.Background(), args)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestPriceTool(t *testing.T) {
	var out PriceOutput
	run(t, NewPriceTool(fakeQuotes{}), `{"ticker":" aapl "}`, &out)
	if out.Ticker != "AAPL" || out.Quote == nil || out.Quote.Price != 123.45 {
		t.Fatalf("unexpected output %+v", out)
	}

	var failed PriceOutput
	run(t, NewPriceTool(fakeQuotes{}), `{"ticker":"NOPE"}`, &failed)
	if failed.Error == "" || failed.Quote != nil {
		t.Fatalf("adapter failure not reported: %+v", failed)
	}
}

func TestHistoryToolTrims(t *testing.T) {
	var out HistoryOutput
	run(t, NewHistoryTool(fakeHistory{}), `{"ticker":"msft","days":5}`, &out)
	if len(out.Bars) != 5 || out.Bars[4].Close != 49 {
		t.Fatalf("bars = %+v", out.Bars)
	}

	run(t, NewHistoryTool(fakeHistory{}), `{"ticker":"msft"}`, &out)
	if len(out.Bars) != defaultHistoryDays {
		t.Fatalf("default days = %d", len(out.Bars))
	}
}

func TestNewsToolFilter(t *testing.T) {
	news := &fakeNews{}
	var out NewsOutput
	run(t, NewNewsTool(news), `{"ticker":"NVDA","economic_term":"inflation"}`, &out)
	if news.got.Symbol != "NVDA" || news.got.EconomicTerm != "inflation" || news.got.Limit != maxNewsResults {
		t.Fatalf("filter = %+v", news.got)
	}
	if out.Articles == nil {
		t.Fatalf("articles should be an empty list")
	}
}

func TestNewSkipsMissingDeps(t *testing.T) {
	ts := New(Deps{Prices: fakeQuotes{}, History: fakeHistory{}})
	infos, err := Infos(context.Background(), ts)
	if err != nil {
		t.Fatalf("Infos: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "get_price" || infos[1].Name != "get_history" {
		t.Fatalf("tools = %+v", infos)
	}
}
