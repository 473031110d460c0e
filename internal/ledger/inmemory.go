package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryState struct {
	wallets         map[string]Wallet
	transactions    []WalletTransaction
	txIndex         map[string]int
	allocations     map[string]Allocation
	reconciliations []ReconciliationRecord
	alerts          map[string]SecurityAlert
	audit           []AuditEntry
}

func newMemoryState() *memoryState {
	return &memoryState{
		wallets:     make(map[string]Wallet),
		txIndex:     make(map[string]int),
		allocations: make(map[string]Allocation),
		alerts:      make(map[string]SecurityAlert),
	}
}

// inMemoryStore serialises every unit of work behind one mutex. A unit writes
// to the live state and records an undo step per write; a failed or panicking
// unit replays its undo log in reverse.
type inMemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and local development.
func NewInMemory() Store {
	return &inMemoryStore{state: newMemoryState()}
}

func (s *inMemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{state: s.state}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *inMemoryStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.audit = append(s.state.audit, e)
	return nil
}

func (s *inMemoryStore) GetWallet(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.wallets[id]
	if !ok {
		return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	return w, nil
}

func (s *inMemoryStore) ListWallets(_ context.Context, f WalletFilter) ([]Wallet, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Wallet
	for _, w := range s.state.wallets {
		if f.Type != "" && w.Type != f.Type {
			continue
		}
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return paginate(out, f.Page), len(out), nil
}

func (s *inMemoryStore) ListTransactions(_ context.Context, f TransactionFilter) ([]WalletTransaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WalletTransaction
	for i := len(s.state.transactions) - 1; i >= 0; i-- {
		t := s.state.transactions[i]
		if f.WalletID != "" && t.WalletID != f.WalletID {
			continue
		}
		if f.Reference != "" && t.Reference != f.Reference {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if !f.Range.Contains(t.CreatedAt) {
			continue
		}
		out = append(out, t)
	}
	return paginate(out, f.Page), len(out), nil
}

func (s *inMemoryStore) GetAllocation(_ context.Context, id string) (Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.allocations[id]
	if !ok {
		return Allocation{}, fmt.Errorf("%w: %s", ErrAllocationNotFound, id)
	}
	return a, nil
}

func (s *inMemoryStore) ListAllocations(_ context.Context, f AllocationFilter) ([]Allocation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Allocation
	for _, a := range s.state.allocations {
		if f.SourceWalletID != "" && a.SourceWalletID != f.SourceWalletID {
			continue
		}
		if f.TargetID != "" && a.TargetID != f.TargetID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.Range.Contains(a.CreatedAt) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page), len(out), nil
}

func (s *inMemoryStore) ListReconciliations(_ context.Context, f ReconciliationFilter) ([]ReconciliationRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ReconciliationRecord
	for i := len(s.state.reconciliations) - 1; i >= 0; i-- {
		r := s.state.reconciliations[i]
		if f.WalletID != "" && r.WalletID != f.WalletID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if !f.Range.Contains(r.CreatedAt) {
			continue
		}
		out = append(out, r)
	}
	return paginate(out, f.Page), len(out), nil
}

func (s *inMemoryStore) GetAlert(_ context.Context, id string) (SecurityAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.alerts[id]
	if !ok {
		return SecurityAlert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return a, nil
}

func (s *inMemoryStore) ListAlerts(_ context.Context, f AlertFilter) ([]SecurityAlert, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SecurityAlert
	for _, a := range s.state.alerts {
		if f.WalletID != "" && a.WalletID != f.WalletID {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Resolved != nil && a.Resolved != *f.Resolved {
			continue
		}
		if !f.Range.Contains(a.DetectedAt) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return paginate(out, f.Page), len(out), nil
}

func (s *inMemoryStore) ListAudit(_ context.Context, f AuditFilter) ([]AuditEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AuditEntry
	for i := len(s.state.audit) - 1; i >= 0; i-- {
		e := s.state.audit[i]
		if f.WalletID != "" && e.WalletID != f.WalletID {
			continue
		}
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if !f.Range.Contains(e.CreatedAt) {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, f.Page), len(out), nil
}

func (s *inMemoryStore) Summarize(_ context.Context, walletID string, period TimeRange) (LedgerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.state.wallets[walletID]; !ok {
		return LedgerSummary{}, fmt.Errorf("%w: %s", ErrWalletNotFound, walletID)
	}
	return s.state.summarize(walletID, period), nil
}

func (st *memoryState) summarize(walletID string, period TimeRange) LedgerSummary {
	var sum LedgerSummary
	for _, t := range st.transactions {
		if t.WalletID != walletID {
			continue
		}
		switch {
		case !period.From.IsZero() && t.CreatedAt.Before(period.From):
			sum.Opening += t.Amount
		case !period.To.IsZero() && !t.CreatedAt.Before(period.To):
			sum.TrailingNet += t.Amount
		default:
			sum.PeriodNet += t.Amount
			sum.Count++
			if t.Amount < 0 {
				sum.TotalDebits += -t.Amount
			} else {
				sum.TotalCredits += t.Amount
			}
		}
	}
	return sum
}

type memoryTx struct {
	state *memoryState
	undo  []func()
}

func (t *memoryTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// restoreEntry captures m[key] so the undo step puts it back or removes it.
func restoreEntry[V any](m map[string]V, key string) func() {
	prev, existed := m[key]
	return func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	}
}

func txKey(walletID, reference string) string {
	return walletID + "\x00" + reference
}

func (t *memoryTx) LockWallets(_ context.Context, ids ...string) (map[string]*Wallet, error) {
	out := make(map[string]*Wallet, len(ids))
	for _, id := range sortedUnique(ids) {
		w, ok := t.state.wallets[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
		out[id] = &w
	}
	return out, nil
}

func (t *memoryTx) InsertWallet(_ context.Context, w Wallet) error {
	if _, exists := t.state.wallets[w.ID]; exists {
		return fmt.Errorf("%w: wallet %s exists", ErrConflict, w.ID)
	}
	t.onRollback(restoreEntry(t.state.wallets, w.ID))
	t.state.wallets[w.ID] = w
	return nil
}

func (t *memoryTx) UpdateWallet(_ context.Context, w Wallet) error {
	if _, exists := t.state.wallets[w.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, w.ID)
	}
	t.onRollback(restoreEntry(t.state.wallets, w.ID))
	t.state.wallets[w.ID] = w
	return nil
}

func (t *memoryTx) FindTransaction(_ context.Context, walletID, reference string) (WalletTransaction, bool, error) {
	idx, ok := t.state.txIndex[txKey(walletID, reference)]
	if !ok {
		return WalletTransaction{}, false, nil
	}
	return t.state.transactions[idx], true, nil
}

func (t *memoryTx) TransactionsByReference(_ context.Context, reference string) ([]WalletTransaction, error) {
	var out []WalletTransaction
	for _, tr := range t.state.transactions {
		if tr.Reference == reference {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, tr WalletTransaction) error {
	key := txKey(tr.WalletID, tr.Reference)
	if _, exists := t.state.txIndex[key]; exists {
		return fmt.Errorf("%w: reference %s already used by wallet %s", ErrConflict, tr.Reference, tr.WalletID)
	}
	st, n := t.state, len(t.state.transactions)
	t.onRollback(func() {
		delete(st.txIndex, key)
		st.transactions = st.transactions[:n]
	})
	st.transactions = append(st.transactions, tr)
	st.txIndex[key] = n
	return nil
}

func (t *memoryTx) MarkReversed(_ context.Context, id string, at time.Time) error {
	for i := range t.state.transactions {
		if t.state.transactions[i].ID == id {
			st, prev := t.state, t.state.transactions[i]
			t.onRollback(func() { st.transactions[i] = prev })
			t.state.transactions[i].Status = TxStatusReversed
			t.state.transactions[i].UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
}

func (t *memoryTx) DebitTotalSince(_ context.Context, walletID string, since time.Time) (int64, error) {
	var total int64
	for _, tr := range t.state.transactions {
		if tr.WalletID == walletID && tr.Amount < 0 && !tr.CreatedAt.Before(since) {
			total += -tr.Amount
		}
	}
	return total, nil
}

func (t *memoryTx) GetAllocationForUpdate(_ context.Context, id string) (Allocation, error) {
	a, ok := t.state.allocations[id]
	if !ok {
		return Allocation{}, fmt.Errorf("%w: %s", ErrAllocationNotFound, id)
	}
	return a, nil
}

func (t *memoryTx) InsertAllocation(_ context.Context, a Allocation) error {
	if _, exists := t.state.allocations[a.ID]; exists {
		return fmt.Errorf("%w: allocation %s exists", ErrConflict, a.ID)
	}
	t.onRollback(restoreEntry(t.state.allocations, a.ID))
	t.state.allocations[a.ID] = a
	return nil
}

func (t *memoryTx) UpdateAllocation(_ context.Context, a Allocation) error {
	if _, exists := t.state.allocations[a.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrAllocationNotFound, a.ID)
	}
	t.onRollback(restoreEntry(t.state.allocations, a.ID))
	t.state.allocations[a.ID] = a
	return nil
}

func (t *memoryTx) DueAllocations(_ context.Context, now time.Time, limit int) ([]Allocation, error) {
	var out []Allocation
	for _, a := range t.state.allocations {
		if a.Status.Terminal() || a.ExpiresAt == nil || a.ExpiresAt.After(now) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memoryTx) Summarize(_ context.Context, walletID string, period TimeRange) (LedgerSummary, error) {
	return t.state.summarize(walletID, period), nil
}

func (t *memoryTx) InsertReconciliation(_ context.Context, r ReconciliationRecord) error {
	st, n := t.state, len(t.state.reconciliations)
	t.onRollback(func() { st.reconciliations = st.reconciliations[:n] })
	st.reconciliations = append(st.reconciliations, r)
	return nil
}

func (t *memoryTx) GetAlertForUpdate(_ context.Context, id string) (SecurityAlert, error) {
	a, ok := t.state.alerts[id]
	if !ok {
		return SecurityAlert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return a, nil
}

func (t *memoryTx) InsertAlert(_ context.Context, a SecurityAlert) error {
	if _, exists := t.state.alerts[a.ID]; exists {
		return fmt.Errorf("%w: alert %s exists", ErrConflict, a.ID)
	}
	t.onRollback(restoreEntry(t.state.alerts, a.ID))
	t.state.alerts[a.ID] = a
	return nil
}

func (t *memoryTx) UpdateAlert(_ context.Context, a SecurityAlert) error {
	if _, exists := t.state.alerts[a.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, a.ID)
	}
	t.onRollback(restoreEntry(t.state.alerts, a.ID))
	t.state.alerts[a.ID] = a
	return nil
}

func (t *memoryTx) AppendAudit(_ context.Context, e AuditEntry) error {
	st, n := t.state, len(t.state.audit)
	t.onRollback(func() { st.audit = st.audit[:n] })
	st.audit = append(st.audit, e)
	return nil
}

func paginate[T any](items []T, p Page) []T {
	p = p.Normalize()
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
