package contracts

// NewsSummary is the news/sentiment provider's answer for one symbol
// over a lookback window. A zero Count with a nil error is a real
// answer: the symbol simply had no coverage.
type NewsSummary struct {
	Count           int    `json:"count"`
	PositiveCount   int    `json:"positive_count"`
	NegativeCount   int    `json:"negative_count"`
	CatalystPresent bool   `json:"catalyst_present"`
	CatalystType    string `json:"catalyst_type,omitempty"`
}

// ShortMetrics carries the squeeze-enabler metrics for one symbol.
// Every field is a tagged Metric: scrape misses stay absent instead of
// turning into fake zeros.
type ShortMetrics struct {
	FloatShares      Metric `json:"float_shares"`
	ShortInterestPct Metric `json:"short_interest_pct"`
	UtilizationPct   Metric `json:"utilization_pct"`
	BorrowFeePct     Metric `json:"borrow_fee_pct"`
	Estimated        bool   `json:"estimated"`
}
