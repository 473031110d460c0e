package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore persists wallets and their ledger in PostgreSQL. Wallet rows
// are locked with SELECT ... FOR UPDATE in ascending id order.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

// InTx runs fn inside one database transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapPgError(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	return insertAudit(ctx, s.db, e)
}

// isConflict reports SQLSTATEs that mean a concurrent writer won: unique
// violation, serialization failure and deadlock.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return true
		}
	}
	return false
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// where accumulates positional filter clauses.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) timeRange(column string, r TimeRange) {
	if !r.From.IsZero() {
		w.add(column+" >= $%d", r.From)
	}
	if !r.To.IsZero() {
		w.add(column+" < $%d", r.To)
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause.
func (w *where) page(p Page) (string, []any) {
	p = p.Normalize()
	n := len(w.args)
	args := append(append([]any(nil), w.args...), p.Limit, p.Offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

func count(ctx context.Context, q querier, table string, w *where) (int, error) {
	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+w.String(), w.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func collect[T any](rows pgx.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const walletColumns = `id, name, type, currency, balance, available_balance, reserve_balance,
    security_level, status, per_transaction_limit, daily_limit, monthly_limit, created_at, updated_at`

func scanWallet(row scanner) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.Name, &w.Type, &w.Currency, &w.Balance, &w.AvailableBalance, &w.ReserveBalance,
		&w.SecurityLevel, &w.Status, &w.Limits.PerTransaction, &w.Limits.Daily, &w.Limits.Monthly,
		&w.CreatedAt, &w.UpdatedAt)
	return w, err
}

const transactionColumns = `id, wallet_id, type, amount, currency, balance_before, balance_after, description,
    reference, counterparty_wallet_id, risk_score, risk_level, status, processed_by, created_at, updated_at`

func scanTransaction(row scanner) (WalletTransaction, error) {
	var t WalletTransaction
	err := row.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Currency, &t.BalanceBefore, &t.BalanceAfter,
		&t.Description, &t.Reference, &t.CounterpartyWalletID, &t.RiskScore, &t.RiskLevel, &t.Status,
		&t.ProcessedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const allocationColumns = `id, source_wallet_id, target_id, amount, remaining_amount, used_amount, released_amount,
    purpose, status, requested_by, allocated_by, expires_at, created_at, updated_at`

func scanAllocation(row scanner) (Allocation, error) {
	var a Allocation
	err := row.Scan(&a.ID, &a.SourceWalletID, &a.TargetID, &a.Amount, &a.RemainingAmount, &a.UsedAmount,
		&a.ReleasedAmount, &a.Purpose, &a.Status, &a.RequestedBy, &a.AllocatedBy, &a.ExpiresAt,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

const reconciliationColumns = `id, wallet_id, period_start, period_end, expected_balance, actual_balance, difference,
    transaction_count, total_debits, total_credits, status, performed_by, created_at`

func scanReconciliation(row scanner) (ReconciliationRecord, error) {
	var r ReconciliationRecord
	err := row.Scan(&r.ID, &r.WalletID, &r.PeriodStart, &r.PeriodEnd, &r.ExpectedBalance, &r.ActualBalance,
		&r.Difference, &r.TransactionCount, &r.TotalDebits, &r.TotalCredits, &r.Status, &r.PerformedBy, &r.CreatedAt)
	return r, err
}

const alertColumns = `id, wallet_id, type, severity, message, detected_at, resolved, resolution_note, resolved_by, resolved_at`

func scanAlert(row scanner) (SecurityAlert, error) {
	var a SecurityAlert
	err := row.Scan(&a.ID, &a.WalletID, &a.Type, &a.Severity, &a.Message, &a.DetectedAt, &a.Resolved,
		&a.ResolutionNote, &a.ResolvedBy, &a.ResolvedAt)
	return a, err
}

const auditColumns = `id, wallet_id, actor_id, action, entity_type, entity_id, description, risk_level, created_at`

func scanAudit(row scanner) (AuditEntry, error) {
	var e AuditEntry
	err := row.Scan(&e.ID, &e.WalletID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.Description,
		&e.RiskLevel, &e.CreatedAt)
	return e, err
}

func notFound(err error, sentinel error, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return err
}

func (s *PostgresStore) GetWallet(ctx context.Context, id string) (Wallet, error) {
	w, err := scanWallet(s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
	if err != nil {
		return Wallet{}, notFound(err, ErrWalletNotFound, id)
	}
	return w, nil
}

func (s *PostgresStore) ListWallets(ctx context.Context, f WalletFilter) ([]Wallet, int, error) {
	w := &where{}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	total, err := count(ctx, s.db, "wallets", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(f.Page)
	rows, err := s.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets`+w.String()+` ORDER BY created_at, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanWallet)
	return out, total, err
}

func (s *PostgresStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]WalletTransaction, int, error) {
	w := &where{}
	if f.WalletID != "" {
		w.add("wallet_id = $%d", f.WalletID)
	}
	if f.Reference != "" {
		w.add("reference = $%d", f.Reference)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	w.timeRange("created_at", f.Range)
	total, err := count(ctx, s.db, "wallet_transactions", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(f.Page)
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM wallet_transactions`+w.String()+
		` ORDER BY created_at DESC, id DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanTransaction)
	return out, total, err
}

func (s *PostgresStore) GetAllocation(ctx context.Context, id string) (Allocation, error) {
	a, err := scanAllocation(s.db.QueryRow(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE id = $1`, id))
	if err != nil {
		return Allocation{}, notFound(err, ErrAllocationNotFound, id)
	}
	return a, nil
}

func (s *PostgresStore) ListAllocations(ctx context.Context, f AllocationFilter) ([]Allocation, int, error) {
	w := &where{}
	if f.SourceWalletID != "" {
		w.add("source_wallet_id = $%d", f.SourceWalletID)
	}
	if f.TargetID != "" {
		w.add("target_id = $%d", f.TargetID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	w.timeRange("created_at", f.Range)
	total, err := count(ctx, s.db, "allocations", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(f.Page)
	rows, err := s.db.Query(ctx, `SELECT `+allocationColumns+` FROM allocations`+w.String()+
		` ORDER BY created_at DESC, id DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanAllocation)
	return out, total, err
}

func (s *PostgresStore) ListReconciliations(ctx context.Context, f ReconciliationFilter) ([]ReconciliationRecord, int, error) {
	w := &where{}
	if f.WalletID != "" {
		w.add("wallet_id = $%d", f.WalletID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	w.timeRange("created_at", f.Range)
	total, err := count(ctx, s.db, "reconciliations", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(f.Page)
	rows, err := s.db.Query(ctx, `SELECT `+reconciliationColumns+` FROM reconciliations`+w.String()+
		` ORDER BY created_at DESC, id DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanReconciliation)
	return out, total, err
}

func (s *PostgresStore) GetAlert(ctx context.Context, id string) (SecurityAlert, error) {
	a, err := scanAlert(s.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM security_alerts WHERE id = $1`, id))
	if err != nil {
		return SecurityAlert{}, notFound(err, ErrAlertNotFound, id)
	}
	return a, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f AlertFilter) ([]SecurityAlert, int, error) {
	w := &where{}
	if f.WalletID != "" {
		w.add("wallet_id = $%d", f.WalletID)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.Severity != "" {
		w.add("severity = $%d", f.Severity)
	}
	if f.Resolved != nil {
		w.add("resolved = $%d", *f.Resolved)
	}
	w.timeRange("detected_at", f.Range)
	total, err := count(ctx, s.db, "security_alerts", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(f.Page)
	rows, err := s.db.Query(ctx, `SELECT `+alertColumns+` FROM security_alerts`+w.String()+
		` ORDER BY detected_at DESC, id DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanAlert)
	return out, total, err
}

func (s *PostgresStore) ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, int, error) {
	w := &where{}
	if f.WalletID != "" {
		w.add("wallet_id = $%d", f.WalletID)
	}
	if f.ActorID != "" {
		w.add("actor_id = $%d", f.ActorID)
	}
	if f.Action != "" {
		w.add("action = $%d", f.Action)
	}
	w.timeRange("created_at", f.Range)
	total, err := count(ctx, s.db, "audit_entries", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(f.Page)
	rows, err := s.db.Query(ctx, `SELECT `+auditColumns+` FROM audit_entries`+w.String()+
		` ORDER BY created_at DESC, id DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanAudit)
	return out, total, err
}

var (
	openFrom = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	openTo   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

func (s *PostgresStore) Summarize(ctx context.Context, walletID string, period TimeRange) (LedgerSummary, error) {
	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return LedgerSummary{}, err
	}
	return summarize(ctx, s.db, walletID, period)
}

func summarize(ctx context.Context, q querier, walletID string, period TimeRange) (LedgerSummary, error) {
	from, to := period.From, period.To
	if from.IsZero() {
		from = openFrom
	}
	if to.IsZero() {
		to = openTo
	}
	const query = `
        SELECT
            COALESCE(SUM(amount) FILTER (WHERE created_at < $2), 0)::BIGINT,
            COALESCE(SUM(amount) FILTER (WHERE created_at >= $2 AND created_at < $3), 0)::BIGINT,
            COALESCE(SUM(amount) FILTER (WHERE created_at >= $3), 0)::BIGINT,
            COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $3),
            COALESCE(SUM(-amount) FILTER (WHERE created_at >= $2 AND created_at < $3 AND amount < 0), 0)::BIGINT,
            COALESCE(SUM(amount) FILTER (WHERE created_at >= $2 AND created_at < $3 AND amount > 0), 0)::BIGINT
        FROM wallet_transactions
        WHERE wallet_id = $1`
	var sum LedgerSummary
	err := q.QueryRow(ctx, query, walletID, from, to).Scan(
		&sum.Opening, &sum.PeriodNet, &sum.TrailingNet, &sum.Count, &sum.TotalDebits, &sum.TotalCredits)
	if err != nil {
		return LedgerSummary{}, mapPgError(err)
	}
	return sum, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockWallets(ctx context.Context, ids ...string) (map[string]*Wallet, error) {
	sorted := sortedUnique(ids)
	rows, err := t.tx.Query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`, sorted)
	if err != nil {
		return nil, mapPgError(err)
	}
	wallets, err := collect(rows, scanWallet)
	if err != nil {
		return nil, mapPgError(err)
	}
	out := make(map[string]*Wallet, len(wallets))
	for i := range wallets {
		out[wallets[i].ID] = &wallets[i]
	}
	for _, id := range sorted {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
	}
	return out, nil
}

func (t *pgTx) InsertWallet(ctx context.Context, w Wallet) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO wallets (`+walletColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		w.ID, w.Name, w.Type, w.Currency, w.Balance, w.AvailableBalance, w.ReserveBalance,
		w.SecurityLevel, w.Status, w.Limits.PerTransaction, w.Limits.Daily, w.Limits.Monthly,
		w.CreatedAt, w.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) UpdateWallet(ctx context.Context, w Wallet) error {
	tag, err := t.tx.Exec(ctx, `UPDATE wallets SET name = $2, balance = $3, available_balance = $4,
        reserve_balance = $5, security_level = $6, status = $7, per_transaction_limit = $8,
        daily_limit = $9, monthly_limit = $10, updated_at = $11
        WHERE id = $1`,
		w.ID, w.Name, w.Balance, w.AvailableBalance, w.ReserveBalance, w.SecurityLevel, w.Status,
		w.Limits.PerTransaction, w.Limits.Daily, w.Limits.Monthly, w.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, w.ID)
	}
	return nil
}

func (t *pgTx) FindTransaction(ctx context.Context, walletID, reference string) (WalletTransaction, bool, error) {
	tr, err := scanTransaction(t.tx.QueryRow(ctx, `SELECT `+transactionColumns+`
        FROM wallet_transactions WHERE wallet_id = $1 AND reference = $2`, walletID, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WalletTransaction{}, false, nil
		}
		return WalletTransaction{}, false, mapPgError(err)
	}
	return tr, true, nil
}

func (t *pgTx) TransactionsByReference(ctx context.Context, reference string) ([]WalletTransaction, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+transactionColumns+`
        FROM wallet_transactions WHERE reference = $1 ORDER BY created_at, id`, reference)
	if err != nil {
		return nil, mapPgError(err)
	}
	return collect(rows, scanTransaction)
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr WalletTransaction) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO wallet_transactions (`+transactionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		tr.ID, tr.WalletID, tr.Type, tr.Amount, tr.Currency, tr.BalanceBefore, tr.BalanceAfter,
		tr.Description, tr.Reference, tr.CounterpartyWalletID, tr.RiskScore, tr.RiskLevel, tr.Status,
		tr.ProcessedBy, tr.CreatedAt, tr.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) MarkReversed(ctx context.Context, id string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE wallet_transactions SET status = $2, updated_at = $3 WHERE id = $1`,
		id, TxStatusReversed, at)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return nil
}

func (t *pgTx) DebitTotalSince(ctx context.Context, walletID string, since time.Time) (int64, error) {
	var total int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(-amount), 0)::BIGINT FROM wallet_transactions
        WHERE wallet_id = $1 AND amount < 0 AND created_at >= $2`, walletID, since).Scan(&total)
	return total, mapPgError(err)
}

func (t *pgTx) GetAllocationForUpdate(ctx context.Context, id string) (Allocation, error) {
	a, err := scanAllocation(t.tx.QueryRow(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Allocation{}, mapPgError(notFound(err, ErrAllocationNotFound, id))
	}
	return a, nil
}

func (t *pgTx) InsertAllocation(ctx context.Context, a Allocation) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO allocations (`+allocationColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.SourceWalletID, a.TargetID, a.Amount, a.RemainingAmount, a.UsedAmount, a.ReleasedAmount,
		a.Purpose, a.Status, a.RequestedBy, a.AllocatedBy, a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) UpdateAllocation(ctx context.Context, a Allocation) error {
	tag, err := t.tx.Exec(ctx, `UPDATE allocations SET remaining_amount = $2, used_amount = $3,
        released_amount = $4, status = $5, updated_at = $6 WHERE id = $1`,
		a.ID, a.RemainingAmount, a.UsedAmount, a.ReleasedAmount, a.Status, a.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAllocationNotFound, a.ID)
	}
	return nil
}

func (t *pgTx) DueAllocations(ctx context.Context, now time.Time, limit int) ([]Allocation, error) {
	if limit <= 0 {
		limit = maxPageLimit
	}
	rows, err := t.tx.Query(ctx, `SELECT `+allocationColumns+` FROM allocations
        WHERE status IN ('active', 'suspended') AND expires_at IS NOT NULL AND expires_at <= $1
        ORDER BY expires_at LIMIT $2 FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, mapPgError(err)
	}
	return collect(rows, scanAllocation)
}

func (t *pgTx) Summarize(ctx context.Context, walletID string, period TimeRange) (LedgerSummary, error) {
	return summarize(ctx, t.tx, walletID, period)
}

func (t *pgTx) InsertReconciliation(ctx context.Context, r ReconciliationRecord) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO reconciliations (`+reconciliationColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.WalletID, r.PeriodStart, r.PeriodEnd, r.ExpectedBalance, r.ActualBalance, r.Difference,
		r.TransactionCount, r.TotalDebits, r.TotalCredits, r.Status, r.PerformedBy, r.CreatedAt)
	return mapPgError(err)
}

func (t *pgTx) GetAlertForUpdate(ctx context.Context, id string) (SecurityAlert, error) {
	a, err := scanAlert(t.tx.QueryRow(ctx, `SELECT `+alertColumns+` FROM security_alerts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return SecurityAlert{}, mapPgError(notFound(err, ErrAlertNotFound, id))
	}
	return a, nil
}

func (t *pgTx) InsertAlert(ctx context.Context, a SecurityAlert) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO security_alerts (`+alertColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.WalletID, a.Type, a.Severity, a.Message, a.DetectedAt, a.Resolved, a.ResolutionNote,
		a.ResolvedBy, a.ResolvedAt)
	return mapPgError(err)
}

func (t *pgTx) UpdateAlert(ctx context.Context, a SecurityAlert) error {
	tag, err := t.tx.Exec(ctx, `UPDATE security_alerts SET resolved = $2, resolution_note = $3,
        resolved_by = $4, resolved_at = $5 WHERE id = $1`,
		a.ID, a.Resolved, a.ResolutionNote, a.ResolvedBy, a.ResolvedAt)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, a.ID)
	}
	return nil
}

func (t *pgTx) AppendAudit(ctx context.Context, e AuditEntry) error {
	return mapPgError(insertAudit(ctx, t.tx, e))
}

func insertAudit(ctx context.Context, q querier, e AuditEntry) error {
	_, err := q.Exec(ctx, `INSERT INTO audit_entries (`+auditColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.WalletID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Description, e.RiskLevel, e.CreatedAt)
	return err
}
