package consts

// Run outcomes reported by workflows and the HTTP layer.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// Database statuses appended to the persisted trading response.
const (
	DBSaved  = "saved"
	DBFailed = "failed"
)

// Portfolio document statuses.
const (
	PortfolioActive  = "active"
	PortfolioPending = "pending"
)
