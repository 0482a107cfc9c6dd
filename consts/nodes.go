package consts

// Workflow names, also used as eino graph names and metric labels.
const (
	Chatbot           = "chatbot"
	ChatbotTools      = "chatbot_tools"
	TradingAgent      = "trading_agent"
	Rebalance         = "rebalance"
	FinancialResearch = "financial_research"
)

const (
	// chat
	NodeChatbot       = "chatbot"
	NodeFetchArticles = "fetch_articles"
	NodeToolsAgent    = "tools_agent"

	// trading
	NodePreferences = "load_preferences"
	NodeResearch    = "research"
	NodeWebContext  = "web_context"
	NodePlan        = "plan"
	NodeAllocate    = "allocate"
	NodeVirtual     = "virtual"
	NodeLive        = "live"
	NodePersist     = "persist"

	// rebalance
	NodeLoadRecord     = "load_record"
	NodeExtractSymbols = "extract_symbols"
	NodeReconcile      = "reconcile"
	NodeDecide         = "decide"
	NodeSaveAnalysis   = "save_analysis"

	// financial research
	NodeExtractTools     = "extract_tools"
	NodeResearchServices = "research_services"
	NodeAnalyze          = "analyze"
)
