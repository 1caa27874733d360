package core

// ChainStats is the dashboard aggregate over chains and claims.
type ChainStats struct {
	TotalChains      int     `json:"total_chains"`
	CompletedChains  int     `json:"completed_chains"`
	ActiveChains     int     `json:"active_chains"`
	TotalValueLocked string  `json:"total_value_locked"`
	TotalClaims      int     `json:"total_claims_attempted"`
	SuccessfulClaims int     `json:"total_successful_claims"`
	CompletionRate   float64 `json:"average_completion_rate"`
}
