package models

// FinancialAnalysis is the structured model output for one financial service.
type FinancialAnalysis struct {
	PricingModel         string   `json:"pricing_model"`
	IsDataProvider       *bool    `json:"is_data_provider"`
	FinancialMetrics     []string `json:"financial_metrics"`
	Description          string   `json:"description"`
	APIAvailable         *bool    `json:"api_available"`
	MarketCoverage       []string `json:"market_coverage"`
	IntegrationPlatforms []string `json:"integration_platforms"`
	RealTimeData         *bool    `json:"real_time_data"`
}

type CompanyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	FinancialAnalysis
}

type ResearchReport struct {
	Query          string        `json:"query"`
	ExtractedTools []string      `json:"extracted_tools"`
	Companies      []CompanyInfo `json:"companies"`
	Analysis       string        `json:"analysis"`
}

// UnknownAnalysis is used when the model output for a service cannot be parsed.
func UnknownAnalysis() FinancialAnalysis {
	return FinancialAnalysis{
		PricingModel:         "Unknown",
		Description:          "Analysis failed",
		FinancialMetrics:     []string{},
		MarketCoverage:       []string{},
		IntegrationPlatforms: []string{},
	}
}
