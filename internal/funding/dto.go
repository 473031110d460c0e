package funding

// SettlementRequest is the gateway's "funds arrived" callback body. Amount is
// a decimal string in Currency.
type SettlementRequest struct {
	ExternalReference   string `json:"external_reference"`
	DestinationWalletID string `json:"destination_wallet_id"`
	Amount              string `json:"amount"`
	Currency            string `json:"currency"`
	Description         string `json:"description"`
}

// ReversalRequest is the gateway's "funds reversed" callback body.
type ReversalRequest struct {
	ExternalReference string `json:"external_reference"`
	Reason            string `json:"reason"`
}

// EventResponse acknowledges a gateway event.
type EventResponse struct {
	ExternalReference string   `json:"external_reference"`
	TransactionIDs    []string `json:"transaction_ids"`
	WalletBalance     *int64   `json:"wallet_balance,omitempty"`
	Replayed          bool     `json:"replayed"`
}
