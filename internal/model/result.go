package model

// PoolResult is the audit record of a resolved or cancelled pool.
type PoolResult struct {
	PoolID       uint32 `json:"pool_id"`
	StartTime    uint32 `json:"start_time"`
	EndTime      uint32 `json:"end_time"`
	Participants uint32 `json:"participants"`
	StakeAmount  string `json:"stake_amount"`
	RandomValue  string `json:"random_value"`
	Status       string `json:"status"`
}

// PayoutRow is one participant's payout in a resolved pool, by rank.
type PayoutRow struct {
	PoolID uint32 `json:"pool_id"`
	Rank   uint32 `json:"rank"`
	Staker string `json:"staker"`
	Amount string `json:"amount"`
}
