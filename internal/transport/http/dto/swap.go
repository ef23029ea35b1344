// Package dto defines the HTTP wire types of the swap front door.
package dto

// SwapRequest accepts either a free-form phrase in Text or the structured
// fields. Text wins when both are present.
type SwapRequest struct {
	Text string `json:"text,omitempty"`

	FromChain string `json:"from_chain,omitempty"`
	ToChain   string `json:"to_chain,omitempty"`
	FromToken string `json:"from_token,omitempty"`
	ToToken   string `json:"to_token,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

// StatusResponse is the stateless re-check of a submitted transaction.
type StatusResponse struct {
	Chain         string `json:"chain"`
	TxHash        string `json:"tx_hash"`
	State         string `json:"state"`
	BlockNumber   uint64 `json:"block_number,omitempty"`
	Confirmations uint64 `json:"confirmations,omitempty"`
}

// BalanceResponse reports a native token balance.
type BalanceResponse struct {
	Chain      string `json:"chain"`
	Address    string `json:"address"`
	BalanceWei string `json:"balance_wei"`
	Balance    string `json:"balance"`
	Symbol     string `json:"symbol"`
}
