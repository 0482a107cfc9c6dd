package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/result"
)

func (s *Service) unavailable(workflow string) error {
	if err, ok := s.buildErrs[workflow]; ok {
		return err
	}
	return result.Errorf(result.KindPrecondition, workflow, "workflow not configured")
}

func (s *Service) Chat(ctx context.Context, message string) (*graph.ChatState, error) {
	if s.chatbot == nil {
		return nil, s.unavailable(consts.Chatbot)
	}
	if strings.TrimSpace(message) == "" {
		return nil, result.Errorf(result.KindPrecondition, consts.Chatbot, "message is required")
	}
	_, cb, done := s.observe(consts.Chatbot)
	st, err := s.chatbot.Run(ctx, graph.ChatRequest{Message: message}, cb)
	done(err)
	return st, err
}

// ChatWithArticles answers with the economic news feed in context.
func (s *Service) ChatWithArticles(ctx context.Context, req graph.ChatRequest) (*graph.ChatState, error) {
	if s.articles == nil {
		return nil, s.unavailable(consts.ChatbotTools)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, result.Errorf(result.KindPrecondition, consts.ChatbotTools, "message is required")
	}
	_, cb, done := s.observe(consts.ChatbotTools)
	st, err := s.articles.Run(ctx, req, cb)
	done(err)
	return st, err
}

// ChatWithAgent lets the model call the market tools before answering.
func (s *Service) ChatWithAgent(ctx context.Context, message string) (*graph.ChatState, error) {
	if s.agent == nil {
		return nil, s.unavailable(consts.NodeToolsAgent)
	}
	if strings.TrimSpace(message) == "" {
		return nil, result.Errorf(result.KindPrecondition, consts.NodeToolsAgent, "message is required")
	}
	_, cb, done := s.observe(consts.NodeToolsAgent)
	st, err := s.agent.Run(ctx, graph.ChatRequest{Message: message}, cb)
	done(err)
	return st, err
}

func (s *Service) Trade(ctx context.Context, prefs models.UserPreferences) (*graph.TradingState, error) {
	if s.trading == nil {
		return nil, s.unavailable(consts.TradingAgent)
	}
	runID, cb, done := s.observe(consts.TradingAgent)
	st, err := s.trading.Run(ctx, runID, prefs, cb)
	done(err)
	if err == nil && len(st.Warnings) > 0 {
		s.logger.Warn("trading run degraded", zap.String("run", runID),
			zap.String("user", st.Prefs.Email), zap.Strings("warnings", st.Warnings))
	}
	return st, err
}

// Rebalance reconciles one user's stored allocation. force ignores the
// minimum snapshot age.
func (s *Service) Rebalance(ctx context.Context, email string, force bool) (*graph.RebalanceState, error) {
	if s.rebalance == nil {
		return nil, s.unavailable(consts.Rebalance)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, result.Errorf(result.KindPrecondition, consts.Rebalance, "email is required")
	}
	_, cb, done := s.observe(consts.Rebalance)
	st, err := s.rebalance.Run(ctx, email, force, cb)
	done(err)
	return st, err
}

// BatchItem is the outcome of one user in a RebalanceAll pass.
type BatchItem struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RebalanceAll runs Rebalance for every stored user in turn. A failure for
// one user is logged and recorded; the pass continues with the next user.
// It only returns an error when the users cannot be listed or ctx ends.
func (s *Service) RebalanceAll(ctx context.Context) ([]BatchItem, error) {
	if s.rebalance == nil {
		return nil, s.unavailable(consts.Rebalance)
	}
	emails, err := s.store.ListUserEmails(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]BatchItem, 0, len(emails))
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		item := BatchItem{Email: email}
		st, err := s.Rebalance(ctx, email, false)
		switch {
		case err != nil:
			item.Status = consts.StatusFailed
			item.Error = err.Error()
			s.logger.Error("rebalance failed", zap.String("user", email), zap.Error(err))
		default:
			item.Status = st.Status()
			item.Reason = st.Skipped
		}
		items = append(items, item)
	}
	s.logger.Info("rebalance pass finished", zap.Int("users", len(items)))
	return items, nil
}

func (s *Service) Research(ctx context.Context, query string) (*graph.ResearchState, error) {
	if s.research == nil {
		return nil, s.unavailable(consts.FinancialResearch)
	}
	if strings.TrimSpace(query) == "" {
		return nil, result.Errorf(result.KindPrecondition, consts.FinancialResearch, "query is required")
	}
	_, cb, done := s.observe(consts.FinancialResearch)
	st, err := s.research.Run(ctx, query, cb)
	done(err)
	return st, err
}

// Portfolio returns the stored trading record for email.
func (s *Service) Portfolio(ctx context.Context, email string) (*models.TradingRecord, error) {
	if s.store == nil {
		return nil, result.Errorf(result.KindPrecondition, "portfolio", "store not configured")
	}
	return s.store.GetTradingRecord(ctx, strings.ToLower(strings.TrimSpace(email)))
}
