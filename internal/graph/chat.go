package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

const (
	articlesForChat = 10
	agentMaxStep    = 12
)

// ChatRequest is the input of both chat workflows.
type ChatRequest struct {
	Message      string `json:"message"`
	EconomicTerm string `json:"economic_term,omitempty"`
	Symbol       string `json:"symbol,omitempty"`
}

type ChatState struct {
	Request  ChatRequest
	Articles []models.Article
	Warnings []string
	Response string
}

// Chatbot answers a single message with one model call.
type Chatbot struct {
	deps   Deps
	runner *Runner[ChatState]
}

func NewChatbot(ctx context.Context, deps Deps) (*Chatbot, error) {
	if err := require(consts.Chatbot, map[string]bool{"chat model": deps.Chat == nil}); err != nil {
		return nil, err
	}
	c := &Chatbot{deps: deps}
	r, err := Pipeline[ChatState]{
		Name:   consts.Chatbot,
		Before: []Step[ChatState]{{Name: consts.NodeChatbot, Run: c.answer(llm.ChatPrompt)}},
	}.Compile(ctx)
	if err != nil {
		return nil, err
	}
	c.runner = r
	return c, nil
}

func (c *Chatbot) answer(p llm.Prompt) func(ctx context.Context, s *ChatState) error {
	return func(ctx context.Context, s *ChatState) error {
		articles, err := json.Marshal(s.Articles)
		if err != nil {
			return err
		}
		msgs, err := p.Messages(ctx, map[string]any{
			"date":     today(c.deps.now()),
			"message":  s.Request.Message,
			"articles": string(articles),
		})
		if err != nil {
			return err
		}
		text, err := llm.Text(ctx, c.deps.Chat, msgs)
		if err != nil {
			return result.Wrap(result.KindUpstream, consts.NodeChatbot, err)
		}
		s.Response = text
		return nil
	}
}

func (c *Chatbot) Run(ctx context.Context, req ChatRequest, handlers ...callbacks.Handler) (*ChatState, error) {
	return c.runner.Run(ctx, &ChatState{Request: req}, handlers...)
}

// ArticlesChat answers with recent articles in context:
// fetch_articles -> chatbot.
type ArticlesChat struct {
	Chatbot
}

func NewArticlesChat(ctx context.Context, deps Deps) (*ArticlesChat, error) {
	if err := require(consts.ChatbotTools, map[string]bool{
		"chat model":    deps.Chat == nil,
		"articles feed": deps.Articles == nil,
	}); err != nil {
		return nil, err
	}
	c := &ArticlesChat{Chatbot: Chatbot{deps: deps}}
	r, err := Pipeline[ChatState]{
		Name: consts.ChatbotTools,
		Before: []Step[ChatState]{
			{Name: consts.NodeFetchArticles, Run: c.fetchArticles},
			{Name: consts.NodeChatbot, Run: c.answer(llm.ArticlesChatPrompt)},
		},
	}.Compile(ctx)
	if err != nil {
		return nil, err
	}
	c.runner = r
	return c, nil
}

func (c *ArticlesChat) fetchArticles(ctx context.Context, s *ChatState) error {
	articles, err := c.deps.Articles.Articles(ctx, dataflows.ArticleFilter{
		Symbol:       s.Request.Symbol,
		EconomicTerm: s.Request.EconomicTerm,
		Limit:        articlesForChat,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.deps.logger().Warn("articles unavailable", zap.Error(err))
		s.Warnings = append(s.Warnings, "articles: "+err.Error())
	}
	if articles == nil {
		articles = []models.Article{}
	}
	s.Articles = articles
	return nil
}

// ToolsAgent is a react agent that calls the market tools as it sees fit.
type ToolsAgent struct {
	deps   Deps
	agent  *react.Agent
	runner *Runner[ChatState]
}

func NewToolsAgent(ctx context.Context, deps Deps) (*ToolsAgent, error) {
	if err := require(consts.NodeToolsAgent, map[string]bool{
		"chat model": deps.Chat == nil,
		"tools":      len(deps.Tools) == 0,
	}); err != nil {
		return nil, err
	}
	agent, err := react.NewAgent(ctx, &react.AgentConfig{
		MaxStep:          agentMaxStep,
		ToolCallingModel: deps.Chat,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: deps.Tools,
		},
		StreamToolCallChecker: ToolCallChecker,
	})
	if err != nil {
		return nil, err
	}
	a := &ToolsAgent{deps: deps, agent: agent}
	r, err := Pipeline[ChatState]{
		Name:   consts.NodeToolsAgent,
		Before: []Step[ChatState]{{Name: consts.NodeToolsAgent, Run: a.run}},
	}.Compile(ctx)
	if err != nil {
		return nil, err
	}
	a.runner = r
	return a, nil
}

func (a *ToolsAgent) run(ctx context.Context, s *ChatState) error {
	msgs, err := llm.Prompt{System: llm.ToolsAgentSystem, User: "{message}"}.Messages(ctx, map[string]any{
		"date":    today(a.deps.now()),
		"message": s.Request.Message,
	})
	if err != nil {
		return err
	}
	out, err := a.agent.Generate(ctx, msgs)
	if err != nil {
		return result.Wrap(result.KindUpstream, consts.NodeToolsAgent, err)
	}
	s.Response = out.Content
	return nil
}

func (a *ToolsAgent) Run(ctx context.Context, req ChatRequest, handlers ...callbacks.Handler) (*ChatState, error) {
	return a.runner.Run(a.deps.paced(ctx), &ChatState{Request: req}, handlers...)
}

// ToolCallChecker reports whether a streamed model reply contains tool calls.
func ToolCallChecker(ctx context.Context, sr *schema.StreamReader[*schema.Message]) (bool, error) {
	defer sr.Close()
	for {
		msg, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if len(msg.ToolCalls) > 0 {
			return true, nil
		}
	}
}
