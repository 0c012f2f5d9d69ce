package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"category"`
	Amount Money  `json:"amount"`
}

// MonthAmount is the rollup of one calendar month, keyed YYYY-MM.
type MonthAmount struct {
	Month  string `json:"month"`
	Amount Money  `json:"amount"`
}

// Summary is the derived report over an owner's whole ledger.
// ByCategory is sorted by name and MonthlyTrend strictly ascending by month.
type Summary struct {
	Total        Money            `json:"total"`
	ByCategory   []CategoryAmount `json:"categoryWise"`
	MonthlyTrend []MonthAmount    `json:"monthlyTrend"`
}
