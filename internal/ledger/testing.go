package ledger

import "time"

// SeedWallet is a test helper that writes a wallet directly into the in-memory
// store, bypassing the processor. Seeded balances have no ledger history.
func SeedWallet(s Store, w Wallet) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	if w.Status == "" {
		w.Status = WalletStatusActive
	}
	if w.Type == "" {
		w.Type = WalletTypeOperational
	}
	if w.Currency == "" {
		w.Currency = "XAF"
	}
	if w.SecurityLevel == "" {
		w.SecurityLevel = SecurityLevelStandard
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
		w.UpdatedAt = w.CreatedAt
	}
	mem.state.wallets[w.ID] = w
}
