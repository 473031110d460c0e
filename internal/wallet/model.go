package wallet

import (
	"time"

	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// ProvisionInput captures data required to open a custodial wallet.
type ProvisionInput struct {
	ID             string
	Name           string
	Type           ledger.WalletType
	Currency       string
	SecurityLevel  ledger.SecurityLevel
	Limits         ledger.Limits
	OpeningBalance int64
	ActorID        string
}

// Balance is a point-in-time view of a wallet's balance split.
type Balance struct {
	WalletID  string
	Currency  string
	Total     int64
	Available int64
	Reserved  int64
	AsOf      time.Time
}
