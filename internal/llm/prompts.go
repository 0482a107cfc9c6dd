package llm

import "github.com/cloudwego/eino/schema"

var ChatPrompt = Prompt{
	System: `You are a helpful financial assistant. Answer clearly and concisely. Today is {date}.`,
	User:   `{message}`,
}

var ArticlesChatPrompt = Prompt{
	System: `You are a financial news assistant. Answer the user's question using the articles below when they are relevant, and say so when they are not. Today is {date}.

Articles:
{articles}`,
	User: `{message}`,
}

var ToolsAgentSystem = `You are a market research assistant with access to tools for prices, price history, Reddit sentiment, economic news and web search.
Call the tools you need before answering. Cite the figures you used. Today is {date}.`

var TickerSuggestionPrompt = Prompt{
	User: `Generate a Python list of 10 stock ticker symbols relevant to '{query}'. Return ONLY the Python list.`,
}

// TradingPlanPrompt uses Go template syntax because the body contains JSON.
var TradingPlanPrompt = Prompt{
	Format: schema.GoTemplate,
	System: `You are a professional trading analyst. You receive market research gathered for the user and you produce a trading plan as a single JSON document.`,
	User: `USER PREFERENCES:
- Interest: {{.query}}
- Budget: ${{.budget}}
- Risk level: {{.risk}}
- Strategy: {{.strategy}}
- Markets: {{.markets}}
- Execution mode: {{.mode}}
{{- if .stocks}}
- Stocks requested by the user: {{.stocks}}
{{- end}}

MARKET RESEARCH (per ticker: latest price, recent price history, Reddit sentiment, related articles):
{{.research}}

WEB CONTEXT:
{{.web}}

Select up to 8 stocks that match the interest, risk level, strategy and markets. Respond with ONLY this JSON structure:

{
  "trading_plan": {
    "status": "generated",
    "timestamp": "{{.now}}",
    "strategy": "{{.strategy}}",
    "risk_level": "{{.risk}}",
    "total_budget": {{.budget}},
    "user_query": "{{.query}}",
    "market_analysis": {
      "sentiment_score": 0.0,
      "sentiment_summary": "...",
      "key_trends": ["..."],
      "risk_factors": ["..."],
      "market_outlook": "positive/negative/neutral"
    },
    "selected_stocks": [
      {
        "symbol": "TICKER",
        "company_name": "Company Name",
        "current_price": 0.00,
        "allocation_percentage": 20.0,
        "allocation_amount": 0.0,
        "shares_to_buy": 0,
        "target_price": 0.00,
        "stop_loss_price": 0.00,
        "confidence_score": 8.0,
        "reasoning": "why this stock fits the strategy and risk level",
        "expected_return": 15.0,
        "time_horizon": "3-6 months"
      }
    ],
    "risk_management": {
      "max_single_position": {{.max_position}},
      "cash_reserve_percentage": {{.cash_reserve}},
      "stop_loss_percentage": {{.stop_loss}},
      "take_profit_percentage": {{.take_profit}},
      "position_sizing_method": "equal_weight",
      "rebalance_frequency": "monthly"
    },
    "execution_plan": {
      "execution_timeline": "immediate",
      "order_type": "market",
      "execution_mode": "{{.mode}}",
      "monitoring_frequency": "daily",
      "review_date": "YYYY-MM-DD"
    },
    "performance_targets": {
      "expected_annual_return": 12.0,
      "maximum_drawdown": 15.0,
      "sharpe_ratio_target": 1.2,
      "success_metrics": ["total_return", "risk_adjusted_return", "drawdown_control"]
    },
    "next_actions": ["..."]
  }
}

REQUIREMENTS:
1. Use the prices from the research; never leave current_price at 0 when a price is known.
2. Allocation percentages must sum to at most {{.max_total}}% (keep {{.cash_reserve}}% cash); no single position above {{.max_position}}%.
3. Set target_price 15-25% above current_price and stop_loss_price 8-12% below it.
4. Base sentiment_score on the Reddit data, on a -1 to +1 scale.
5. Give specific reasoning for every stock.
{{- if .sanctions}}
6. Never select any of these tickers: {{.sanctions}}.
{{- end}}`,
}

var ToolExtractionPrompt = Prompt{
	System: `You are a financial analyst and researcher. Extract specific financial tool, platform, service, or data provider names from articles.
Focus on actual products and services that investors, traders or financial analysts can use, not general concepts or market terminology.`,
	User: `Query: {query}
Article Content: {content}

Extract a list of specific financial tool or service names mentioned in this content that are relevant to "{query}".

Rules:
- Only include actual product names, not generic financial terms
- Focus on tools investors and traders can directly use
- Include data providers, trading platforms and analysis tools, free or paid
- Limit to the 5 most relevant tools
- Return just the tool names, one per line, no descriptions`,
}

var ToolAnalysisPrompt = Prompt{
	System: `You are analyzing financial tools, trading platforms and market data services for investors, traders and financial analysts.
Pay special attention to market data, trading capabilities, financial metrics and analysis features. Respond with JSON only.`,
	User: `Financial Service: {name}
Website Content: {content}

Return a JSON object with:
- pricing_model: one of "Free", "Freemium", "Paid", "Enterprise", "Unknown"
- is_data_provider: true if it provides financial or market data, false if not, null if unclear
- financial_metrics: list of supported metrics (P/E ratio, RSI, MACD, Beta, ...)
- description: one sentence on what the service does for investors or traders
- api_available: true if a REST, WebSocket or other programmatic API is mentioned
- market_coverage: list of markets or exchanges covered (NYSE, NASDAQ, LSE, crypto, forex, ...)
- integration_platforms: list of platforms it integrates with (TradingView, MetaTrader, Excel, ...)
- real_time_data: true if real-time, false if delayed, null if unclear`,
}

var RecommendationsPrompt = Prompt{
	System: `You are a senior financial analyst giving quick, actionable recommendations on investment tools, weighing risks and opportunities.
Keep responses brief and practical, four to five sentences at most.`,
	User: `Financial Query: {query}
Financial Tools/Services Analyzed: {companies}

Give a brief recommendation (3-4 sentences) covering which tool is best for the query and why, the key pricing consideration, and the main advantage for analysis or trading.`,
}
