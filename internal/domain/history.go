package domain

import "balance-history/internal/numeric"

// NativeHistoryItem is one reconstructed native coin history entry.
type NativeHistoryItem struct {
	InvolvedAccountID     *AccountID   `json:"involved_account_id"`
	DeltaBalance          numeric.I128 `json:"delta_balance"`
	DeltaAvailableBalance numeric.I128 `json:"delta_available_balance"`
	DeltaStakedBalance    numeric.I128 `json:"delta_staked_balance"`
	TotalBalance          numeric.U128 `json:"total_balance"`
	AvailableBalance      numeric.U128 `json:"available_balance"`
	StakedBalance         numeric.U128 `json:"staked_balance"`
	Cause                 string       `json:"cause"`
	BlockTimestampNanos   uint64       `json:"block_timestamp_nanos,string"`
	BlockHeight           uint64       `json:"block_height,string"`
}

// CoinHistoryItem is one reconstructed fungible token history entry.
// Balance is the balance immediately after the event.
type CoinHistoryItem struct {
	ActionKind          string        `json:"action_kind"`
	InvolvedAccountID   *AccountID    `json:"involved_account_id"`
	DeltaBalance        numeric.I128  `json:"delta_balance"`
	Balance             numeric.U128  `json:"balance"`
	CoinMetadata        *CoinMetadata `json:"coin_metadata,omitempty"`
	BlockTimestampNanos uint64        `json:"block_timestamp_nanos,string"`
	BlockHeight         uint64        `json:"block_height,string"`
}
