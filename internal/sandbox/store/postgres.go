package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lenden-pay/lenden/internal/identity"
)

// PostgresStore implements Store on PostgreSQL for sandboxes that must
// survive restarts.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres builds a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `id, name, email, phone, role, pin_hash, national_id, balance, agent_income, approved, blocked, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc  Account
		id   uuid.UUID
		role string
	)
	err := row.Scan(&id, &acc.Name, &acc.Email, &acc.Phone, &role, &acc.PINHash, &acc.NationalID,
		&acc.Balance, &acc.AgentIncome, &acc.Approved, &acc.Blocked, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acc.ID = id.String()
	acc.Role = identity.ParseRole(role)
	acc.CreatedAt = acc.CreatedAt.UTC()
	return acc, nil
}

func (p *PostgresStore) CreateAccount(ctx context.Context, acc Account) error {
	accountID, err := uuid.Parse(acc.ID)
	if err != nil {
		return err
	}
	var exists bool
	err = p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE phone = $1 OR lower(email) = lower($2))`,
		acc.Phone, acc.Email).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateAccount
	}
	_, err = p.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		accountID, acc.Name, acc.Email, acc.Phone, string(acc.Role), acc.PINHash, acc.NationalID,
		acc.Balance, acc.AgentIncome, acc.Approved, acc.Blocked, acc.CreatedAt.UTC())
	return err
}

func (p *PostgresStore) AccountByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return scanAccount(p.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
}

func (p *PostgresStore) AccountByPhone(ctx context.Context, phone string) (Account, error) {
	return scanAccount(p.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = $1`, phone))
}

func (p *PostgresStore) AccountByLogin(ctx context.Context, emailOrMobile string) (Account, error) {
	return scanAccount(p.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE phone = $1 OR lower(email) = lower($1)`, emailOrMobile))
}

func (p *PostgresStore) ListAccounts(ctx context.Context, f AccountFilter) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	args := []any{}
	if f.Role != "" {
		args = append(args, string(f.Role))
		query += ` AND role = $` + itoa(len(args))
	}
	if f.ApprovedOnly {
		query += ` AND approved`
	}
	if f.PendingOnly {
		query += ` AND NOT approved`
	}
	if f.PhoneSearch != "" {
		args = append(args, "%"+f.PhoneSearch+"%")
		query += ` AND phone LIKE $` + itoa(len(args))
	}
	if f.NewestFirst {
		query += ` ORDER BY created_at DESC`
	} else {
		query += ` ORDER BY created_at ASC`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdateAccount(ctx context.Context, acc Account) error {
	accountID, err := uuid.Parse(acc.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := p.db.Exec(ctx, `UPDATE accounts SET name = $1, email = $2, phone = $3, role = $4,
        pin_hash = $5, national_id = $6, balance = $7, agent_income = $8, approved = $9, blocked = $10
        WHERE id = $11`,
		acc.Name, acc.Email, acc.Phone, string(acc.Role), acc.PINHash, acc.NationalID,
		acc.Balance, acc.AgentIncome, acc.Approved, acc.Blocked, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) DeleteAccount(ctx context.Context, id string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := p.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Post(ctx context.Context, posting Posting) (PostResult, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PostResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromID, err := uuid.Parse(posting.FromID)
	if err != nil {
		return PostResult{}, ErrNotFound
	}
	toID, err := uuid.Parse(posting.ToID)
	if err != nil {
		return PostResult{}, ErrNotFound
	}

	var fromBalance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, fromID).Scan(&fromBalance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostResult{}, ErrNotFound
		}
		return PostResult{}, err
	}
	if fromBalance < posting.Amount+posting.Fee {
		return PostResult{}, ErrInsufficientFunds
	}

	var toBalance, toIncome int64
	if err := tx.QueryRow(ctx, `SELECT balance, agent_income FROM accounts WHERE id = $1 FOR UPDATE`, toID).Scan(&toBalance, &toIncome); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostResult{}, ErrNotFound
		}
		return PostResult{}, err
	}

	fromBalance -= posting.Amount + posting.Fee
	toBalance += posting.Amount
	toIncome += posting.Commission

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, fromBalance, fromID); err != nil {
		return PostResult{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1, agent_income = $2 WHERE id = $3`, toBalance, toIncome, toID); err != nil {
		return PostResult{}, err
	}

	record := Transaction{
		ID:        uuid.NewString(),
		Kind:      posting.Kind,
		FromID:    posting.FromID,
		ToID:      posting.ToID,
		Amount:    posting.Amount,
		Fee:       posting.Fee,
		Reference: posting.Reference,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, kind, from_id, to_id, amount, fee, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.MustParse(record.ID), record.Kind, fromID, toID, record.Amount, record.Fee, record.Reference, record.CreatedAt); err != nil {
		return PostResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PostResult{}, err
	}
	return PostResult{Tx: record, FromBalance: fromBalance, ToBalance: toBalance, ToIncome: toIncome}, nil
}

func (p *PostgresStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	query := `SELECT id, kind, from_id, to_id, amount, fee, reference, created_at FROM transactions`
	args := []any{}
	if accountID != "" {
		id, err := uuid.Parse(accountID)
		if err != nil {
			return nil, ErrNotFound
		}
		args = append(args, id)
		query += ` WHERE from_id = $1 OR to_id = $1`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + itoa(len(args))
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var (
			tx               Transaction
			id, fromID, toID uuid.UUID
		)
		if err := rows.Scan(&id, &tx.Kind, &fromID, &toID, &tx.Amount, &tx.Fee, &tx.Reference, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.ID = id.String()
		tx.FromID = fromID.String()
		tx.ToID = toID.String()
		tx.CreatedAt = tx.CreatedAt.UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateRequest(ctx context.Context, req Request) error {
	requestID, err := uuid.Parse(req.ID)
	if err != nil {
		return err
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `INSERT INTO requests (id, agent_id, kind, amount, reason, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		requestID, agentID, req.Kind, req.Amount, req.Reason, req.Status, req.CreatedAt.UTC())
	return err
}

func (p *PostgresStore) ListRequests(ctx context.Context, kind, status string) ([]Request, error) {
	query := `SELECT id, agent_id, kind, amount, reason, status, created_at FROM requests WHERE 1=1`
	args := []any{}
	if kind != "" {
		args = append(args, kind)
		query += ` AND kind = $` + itoa(len(args))
	}
	if status != "" {
		args = append(args, status)
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Request, 0)
	for rows.Next() {
		var (
			req         Request
			id, agentID uuid.UUID
		)
		if err := rows.Scan(&id, &agentID, &req.Kind, &req.Amount, &req.Reason, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		req.ID = id.String()
		req.AgentID = agentID.String()
		req.CreatedAt = req.CreatedAt.UTC()
		out = append(out, req)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ResolveRequest(ctx context.Context, id string, approve bool) (Request, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		req     Request
		agentID uuid.UUID
	)
	row := tx.QueryRow(ctx, `SELECT id, agent_id, kind, amount, reason, status, created_at
        FROM requests WHERE id = $1 FOR UPDATE`, requestID)
	var reqID uuid.UUID
	if err := row.Scan(&reqID, &agentID, &req.Kind, &req.Amount, &req.Reason, &req.Status, &req.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	req.ID = reqID.String()
	req.AgentID = agentID.String()
	if req.Status != StatusPending {
		return Request{}, ErrRequestResolved
	}

	status := StatusRejected
	if approve {
		status = StatusApproved
		switch req.Kind {
		case RequestCash:
			if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, req.Amount, agentID); err != nil {
				return Request{}, err
			}
		case RequestWithdraw:
			cmd, err := tx.Exec(ctx, `UPDATE accounts SET agent_income = agent_income - $1
                WHERE id = $2 AND agent_income >= $1`, req.Amount, agentID)
			if err != nil {
				return Request{}, err
			}
			if cmd.RowsAffected() == 0 {
				return Request{}, ErrInsufficientFunds
			}
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE requests SET status = $1 WHERE id = $2`, status, requestID); err != nil {
		return Request{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	req.Status = status
	return req, nil
}

func (p *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := p.db.QueryRow(ctx, `SELECT
        COUNT(*) FILTER (WHERE role = 'User'),
        COUNT(*) FILTER (WHERE role = 'Agent'),
        COALESCE(SUM(balance), 0),
        COALESCE(SUM(agent_income), 0)
        FROM accounts`).Scan(&s.TotalUsers, &s.TotalAgents, &s.SystemBalance, &s.TotalAgentIncome)
	if err != nil {
		return Stats{}, err
	}
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&s.TotalTransactions); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
