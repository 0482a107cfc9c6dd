package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/storage"
)

type Handler struct {
	Service ServiceFunc
	Logger  *zap.Logger
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.POST("/chatbot", h.chatbot)
	r.POST("/chatbottools", h.chatbotTools)
	r.POST("/trading-agent", h.tradingAgent)
	r.POST("/trading-agent/rebalance", h.rebalance)
	r.POST("/financial-research", h.financialResearch)
	r.GET("/portfolio/:email", h.portfolio)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// degraded answers 200 with the error; workflow failures are reported in
// the body, not the status code.
func (h *Handler) degraded(c *gin.Context, workflow string, err error) {
	h.Logger.Warn("workflow request failed", zap.String("workflow", workflow), zap.Error(err))
	c.JSON(http.StatusOK, gin.H{"status": consts.StatusFailed, "error": err.Error()})
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"msg": "server is running"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"msg": "server is healthy"})
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) chatbot(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.Service().Chat(c.Request.Context(), req.Message)
	if err != nil {
		h.degraded(c, consts.Chatbot, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": st.Response})
}

type chatToolsRequest struct {
	Message      string `json:"message" binding:"required"`
	EconomicTerm string `json:"economic_term"`
	Symbol       string `json:"symbol"`
}

func (h *Handler) chatbotTools(c *gin.Context) {
	var req chatToolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.Service().ChatWithArticles(c.Request.Context(), graph.ChatRequest{
		Message:      req.Message,
		EconomicTerm: req.EconomicTerm,
		Symbol:       req.Symbol,
	})
	if err != nil {
		h.degraded(c, consts.ChatbotTools, err)
		return
	}
	body := gin.H{"response": st.Response}
	if len(st.Warnings) > 0 {
		body["warnings"] = st.Warnings
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) tradingAgent(c *gin.Context) {
	var prefs models.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		badRequest(c, err)
		return
	}
	prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	st, err := h.Service().Trade(c.Request.Context(), prefs)
	if err != nil {
		h.degraded(c, consts.TradingAgent, err)
		return
	}
	body := gin.H{
		"run_id":       st.RunID,
		"response":     st.Response,
		"plan":         st.Plan,
		"allocation":   st.Allocation.Positions,
		"cash_reserve": st.Allocation.CashReserve,
		"orders":       st.Orders,
		"status":       st.Status(),
	}
	if len(st.Warnings) > 0 {
		body["warnings"] = st.Warnings
	}
	c.JSON(http.StatusOK, body)
}

type rebalanceRequest struct {
	Email string `json:"email" binding:"required"`
	Force bool   `json:"force"`
}

func (h *Handler) rebalance(c *gin.Context) {
	var req rebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.Service().Rebalance(c.Request.Context(), req.Email, req.Force)
	if err != nil {
		h.degraded(c, consts.Rebalance, err)
		return
	}
	body := gin.H{"status": st.Status()}
	if st.Skipped != "" {
		body["reason"] = st.Skipped
	} else {
		body["summary"] = st.Summary
		body["decisions"] = st.Decisions
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) financialResearch(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.Service().Research(c.Request.Context(), req.Message)
	if err != nil {
		h.degraded(c, consts.FinancialResearch, err)
		return
	}
	companies := st.Report.Companies
	if companies == nil {
		companies = []models.CompanyInfo{}
	}
	c.JSON(http.StatusOK, gin.H{
		"query":           st.Report.Query,
		"extracted_tools": st.Report.ExtractedTools,
		"companies":       companies,
		"analysis":        st.Report.Analysis,
	})
}

func (h *Handler) portfolio(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	rec, err := h.Service().Portfolio(c.Request.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no trading record for " + email})
		return
	}
	if err != nil {
		h.degraded(c, "portfolio", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
