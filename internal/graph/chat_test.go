package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/llm/llmtest"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
	"github.com/dyike/CortexFolio/internal/tools"
)

func chatDeps(chat *llmtest.Model) Deps {
	return Deps{Config: testConfig(), Chat: chat, Now: func() time.Time { return testNow }}
}

func TestChatbot(t *testing.T) {
	ctx := context.Background()
	chat := llmtest.Replies("Diversify.")
	bot, err := NewChatbot(ctx, chatDeps(chat))
	if err != nil {
		t.Fatalf("NewChatbot: %v", err)
	}
	s, err := bot.Run(ctx, ChatRequest{Message: "How should I invest {carefully}?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Response != "Diversify." {
		t.Fatalf("response = %q", s.Response)
	}
	if got := chat.LastUser(0); got != "How should I invest {carefully}?" {
		t.Fatalf("user message = %q", got)
	}
	if sys := chat.Calls()[0][0].Content; !strings.Contains(sys, "2025-03-03") {
		t.Fatalf("system prompt lacks date: %q", sys)
	}
}

func TestChatbotUpstreamError(t *testing.T) {
	ctx := context.Background()
	bot, err := NewChatbot(ctx, chatDeps(llmtest.Failing(errors.New("rate limited"))))
	if err != nil {
		t.Fatalf("NewChatbot: %v", err)
	}
	_, err = bot.Run(ctx, ChatRequest{Message: "hi"})
	if !result.IsKind(err, result.KindUpstream) {
		t.Fatalf("err = %v, want upstream", err)
	}
}

func TestArticlesChat(t *testing.T) {
	ctx := context.Background()
	chat := llmtest.Replies("Rates are rising.")
	news := &stubNews{articles: []models.Article{{Title: "Fed raises rates", EconomicTerms: []string{"inflation"}}}}
	deps := chatDeps(chat)
	deps.Articles = news

	bot, err := NewArticlesChat(ctx, deps)
	if err != nil {
		t.Fatalf("NewArticlesChat: %v", err)
	}
	s, err := bot.Run(ctx, ChatRequest{Message: "What about rates?", EconomicTerm: "inflation", Symbol: "SPY"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if news.got.EconomicTerm != "inflation" || news.got.Symbol != "SPY" || news.got.Limit != articlesForChat {
		t.Fatalf("filter = %+v", news.got)
	}
	if sys := chat.Calls()[0][0].Content; !strings.Contains(sys, "Fed raises rates") {
		t.Fatalf("articles missing from prompt: %q", sys)
	}
	if s.Response != "Rates are rising." || len(s.Warnings) != 0 {
		t.Fatalf("state = %+v", s)
	}
}

func TestArticlesChatDegradesWithoutFeed(t *testing.T) {
	ctx := context.Background()
	deps := chatDeps(llmtest.Replies("No articles, but here is my view."))
	deps.Articles = &stubNews{err: errors.New("feed down")}

	bot, err := NewArticlesChat(ctx, deps)
	if err != nil {
		t.Fatalf("NewArticlesChat: %v", err)
	}
	s, err := bot.Run(ctx, ChatRequest{Message: "news?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.Warnings) != 1 || s.Response == "" || s.Articles == nil {
		t.Fatalf("state = %+v", s)
	}

	if _, err := NewArticlesChat(ctx, chatDeps(llmtest.Replies("x"))); !result.IsKind(err, result.KindPrecondition) {
		t.Fatalf("missing feed err = %v", err)
	}
}

func TestToolsAgentAnswersWithoutToolCalls(t *testing.T) {
	ctx := context.Background()
	chat := llmtest.Replies("AAPL trades at 42.")
	deps := chatDeps(chat)
	deps.Tools = tools.New(tools.Deps{Prices: stubQuotes{}})

	agent, err := NewToolsAgent(ctx, deps)
	if err != nil {
		t.Fatalf("NewToolsAgent: %v", err)
	}
	s, err := agent.Run(ctx, ChatRequest{Message: "price of AAPL?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Response != "AAPL trades at 42." {
		t.Fatalf("response = %q", s.Response)
	}
	if infos := chat.Tools(); len(infos) != 1 || infos[0].Name != "get_price" {
		t.Fatalf("bound tools = %+v", infos)
	}

	if _, err := NewToolsAgent(ctx, chatDeps(chat)); !result.IsKind(err, result.KindPrecondition) {
		t.Fatalf("agent without tools err = %v", err)
	}
}
