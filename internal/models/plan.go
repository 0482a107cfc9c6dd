package models

// PlanEnvelope is the top-level object the model is asked to produce.
type PlanEnvelope struct {
	TradingPlan TradingPlan `json:"trading_plan"`
}

type TradingPlan struct {
	Status             string             `json:"status"`
	Timestamp          string             `json:"timestamp"`
	Strategy           string             `json:"strategy"`
	RiskLevel          string             `json:"risk_level"`
	TotalBudget        float64            `json:"total_budget"`
	UserQuery          string             `json:"user_query"`
	MarketAnalysis     MarketAnalysis     `json:"market_analysis"`
	SelectedStocks     []StockAllocation  `json:"selected_stocks"`
	RiskManagement     RiskManagement     `json:"risk_management"`
	ExecutionPlan      ExecutionPlan      `json:"execution_plan"`
	PerformanceTargets PerformanceTargets `json:"performance_targets"`
	NextActions        []string           `json:"next_actions"`
}

type MarketAnalysis struct {
	SentimentScore   float64  `json:"sentiment_score"`
	SentimentSummary string   `json:"sentiment_summary"`
	KeyTrends        []string `json:"key_trends"`
	RiskFactors      []string `json:"risk_factors"`
	MarketOutlook    string   `json:"market_outlook"`
}

// StockAllocation is one selected instrument in a plan.
type StockAllocation struct {
	Symbol               string  `json:"symbol" bson:"symbol"`
	CompanyName          string  `json:"company_name" bson:"company_name"`
	CurrentPrice         float64 `json:"current_price" bson:"current_price"`
	AllocationPercentage float64 `json:"allocation_percentage" bson:"allocation_percentage"`
	AllocationAmount     float64 `json:"allocation_amount" bson:"allocation_amount"`
	SharesToBuy          float64 `json:"shares_to_buy" bson:"shares_to_buy"`
	TargetPrice          float64 `json:"target_price" bson:"target_price"`
	StopLossPrice        float64 `json:"stop_loss_price" bson:"stop_loss_price"`
	ConfidenceScore      float64 `json:"confidence_score" bson:"confidence_score"`
	Reasoning            string  `json:"reasoning" bson:"reasoning"`
	ExpectedReturn       float64 `json:"expected_return" bson:"expected_return"`
	TimeHorizon          string  `json:"time_horizon" bson:"time_horizon"`
	Status               string  `json:"status,omitempty" bson:"status,omitempty"`
}

type RiskManagement struct {
	MaxSinglePosition     float64 `json:"max_single_position"`
	CashReservePercentage float64 `json:"cash_reserve_percentage"`
	StopLossPercentage    float64 `json:"stop_loss_percentage"`
	TakeProfitPercentage  float64 `json:"take_profit_percentage"`
	PositionSizingMethod  string  `json:"position_sizing_method"`
	RebalanceFrequency    string  `json:"rebalance_frequency"`
}

type ExecutionPlan struct {
	ExecutionTimeline   string `json:"execution_timeline"`
	OrderType           string `json:"order_type"`
	ExecutionMode       string `json:"execution_mode"`
	MonitoringFrequency string `json:"monitoring_frequency"`
	ReviewDate          string `json:"review_date"`
}

type PerformanceTargets struct {
	ExpectedAnnualReturn float64  `json:"expected_annual_return"`
	MaximumDrawdown      float64  `json:"maximum_drawdown"`
	SharpeRatioTarget    float64  `json:"sharpe_ratio_target"`
	SuccessMetrics       []string `json:"success_metrics"`
}

// Symbols returns the plan's tickers in order, skipping blanks.
func (p TradingPlan) Symbols() []string {
	out := make([]string, 0, len(p.SelectedStocks))
	for _, s := range p.SelectedStocks {
		if s.Symbol != "" {
			out = append(out, s.Symbol)
		}
	}
	return out
}

func (p TradingPlan) Empty() bool {
	return len(p.SelectedStocks) == 0
}
