package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/settlement"
	"github.com/Tiel0043/projecthub/minipay/user"
	"github.com/google/uuid"
)

// Store implements the account, transaction-log, settlement, and user
// persistence contracts on top of a Connection. Reads go through the
// resolver (and may hit the replica); versioned writes always run on the
// primary inside a transaction.
type Store struct {
	conn *Connection
}

// NewStore wraps a connection hub.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

const accountColumns = `id, user_id, kind, balance, version, limit_used, limit_max, limit_period_date, created_at, updated_at`

// Account loads an account by id.
func (s *Store) Account(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return ledger.Account{}, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.NewDomainError(ledger.ErrorAccountNotFound, "id", "account not found")
	}

	return account, err
}

// CreateAccount persists a new account at version zero.
func (s *Store) CreateAccount(ctx context.Context, account ledger.Account) error {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, $9)`,
		account.ID, account.UserID, account.Kind, account.Balance,
		account.Limit.Used, account.Limit.Max, account.Limit.PeriodDate,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// SaveAccounts applies all updates in one transaction, each conditioned on
// its expected version. Any stale version rolls back the whole batch with
// ledger.ErrVersionConflict.
func (s *Store) SaveAccounts(ctx context.Context, updates ...ledger.AccountUpdate) error {
	primary, err := s.conn.Primary(ctx)
	if err != nil {
		return err
	}

	tx, err := primary.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for _, update := range updates {
		account := update.Account

		result, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance = $1,
			    version = version + 1,
			    limit_used = $2,
			    limit_max = $3,
			    limit_period_date = $4,
			    updated_at = $5
			WHERE id = $6 AND version = $7`,
			account.Balance, account.Limit.Used, account.Limit.Max,
			account.Limit.PeriodDate, account.UpdatedAt,
			account.ID, update.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		if affected == 0 {
			// Distinguish a stale version from a missing row.
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, account.ID).Scan(&exists); err != nil {
				return fmt.Errorf("check account existence: %w", err)
			}

			if !exists {
				return ledger.NewDomainError(ledger.ErrorAccountNotFound, "id", "account not found")
			}

			return ledger.ErrVersionConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// AccountsByUser returns the user's accounts, oldest first.
func (s *Store) AccountsByUser(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(scanner interface{ Scan(dest ...any) error }) (ledger.Account, error) {
	var account ledger.Account

	if err := scanner.Scan(
		&account.ID,
		&account.UserID,
		&account.Kind,
		&account.Balance,
		&account.Version,
		&account.Limit.Used,
		&account.Limit.Max,
		&account.Limit.PeriodDate,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Account{}, err
		}

		return ledger.Account{}, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// ---------------------------------------------------------------------------
// Transaction log
// ---------------------------------------------------------------------------

// Append adds a record to the log.
func (s *Store) Append(ctx context.Context, record ledger.TransactionRecord) error {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO transaction_records (id, kind, status, from_account_id, to_account_id, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.Kind, record.Status, record.FromAccountID,
		record.ToAccountID, record.Amount, record.Description, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction record: %w", err)
	}

	return nil
}

// RecordsByAccount returns the records touching an account, oldest first.
func (s *Store) RecordsByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.TransactionRecord, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, status, from_account_id, to_account_id, amount, description, created_at
		FROM transaction_records
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at, id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transaction records: %w", err)
	}
	defer rows.Close()

	var records []ledger.TransactionRecord

	for rows.Next() {
		var record ledger.TransactionRecord

		if err := rows.Scan(
			&record.ID,
			&record.Kind,
			&record.Status,
			&record.FromAccountID,
			&record.ToAccountID,
			&record.Amount,
			&record.Description,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction record: %w", err)
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// ---------------------------------------------------------------------------
// Settlements
// ---------------------------------------------------------------------------

// Settlement loads a settlement aggregate with its shares in creation order.
func (s *Store) Settlement(ctx context.Context, id uuid.UUID) (settlement.Settlement, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return settlement.Settlement{}, err
	}

	var stored settlement.Settlement

	err = db.QueryRowContext(ctx, `
		SELECT id, requester_id, total_amount, policy, status, version, created_at
		FROM settlements WHERE id = $1`, id,
	).Scan(
		&stored.ID,
		&stored.RequesterID,
		&stored.TotalAmount,
		&stored.Policy,
		&stored.Status,
		&stored.Version,
		&stored.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return settlement.Settlement{}, ledger.NewDomainError(ledger.ErrorSettlementNotFound, "id", "settlement not found")
	}

	if err != nil {
		return settlement.Settlement{}, fmt.Errorf("scan settlement: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT participant_id, amount, status
		FROM settlement_shares
		WHERE settlement_id = $1
		ORDER BY position`, id,
	)
	if err != nil {
		return settlement.Settlement{}, fmt.Errorf("query settlement shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var share settlement.Share

		if err := rows.Scan(&share.ParticipantID, &share.Amount, &share.Status); err != nil {
			return settlement.Settlement{}, fmt.Errorf("scan settlement share: %w", err)
		}

		stored.Shares = append(stored.Shares, share)
	}

	return stored, rows.Err()
}

// CreateSettlement persists a new settlement aggregate at version zero.
func (s *Store) CreateSettlement(ctx context.Context, stored settlement.Settlement) error {
	primary, err := s.conn.Primary(ctx)
	if err != nil {
		return err
	}

	tx, err := primary.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO settlements (id, requester_id, total_amount, policy, status, version, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		stored.ID, stored.RequesterID, stored.TotalAmount, stored.Policy, stored.Status, stored.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	if err := insertShares(ctx, tx, stored.ID, stored.Shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// SaveSettlement persists a mutated aggregate conditionally on its version,
// replacing the share rows wholesale.
func (s *Store) SaveSettlement(ctx context.Context, stored settlement.Settlement, expectedVersion int64) error {
	primary, err := s.conn.Primary(ctx)
	if err != nil {
		return err
	}

	tx, err := primary.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE settlements
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3`,
		stored.Status, stored.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}

	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM settlements WHERE id = $1)`, stored.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check settlement existence: %w", err)
		}

		if !exists {
			return ledger.NewDomainError(ledger.ErrorSettlementNotFound, "id", "settlement not found")
		}

		return ledger.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM settlement_shares WHERE settlement_id = $1`, stored.ID); err != nil {
		return fmt.Errorf("delete settlement shares: %w", err)
	}

	if err := insertShares(ctx, tx, stored.ID, stored.Shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func insertShares(ctx context.Context, tx *sql.Tx, settlementID uuid.UUID, shares []settlement.Share) error {
	for position, share := range shares {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settlement_shares (settlement_id, participant_id, amount, status, position)
			VALUES ($1, $2, $3, $4, $5)`,
			settlementID, share.ParticipantID, share.Amount, share.Status, position,
		)
		if err != nil {
			return fmt.Errorf("insert settlement share: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// User loads a user by id.
func (s *Store) User(ctx context.Context, id uuid.UUID) (user.User, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return user.User{}, err
	}

	var stored user.User

	err = db.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE id = $1`, id).
		Scan(&stored.ID, &stored.Username, &stored.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, ledger.NewDomainError(ledger.ErrorUserNotFound, "id", "user not found")
	}

	if err != nil {
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}

	return stored, nil
}

// CreateUser persists a new user.
func (s *Store) CreateUser(ctx context.Context, stored user.User) error {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `INSERT INTO users (id, username, created_at) VALUES ($1, $2, $3)`,
		stored.ID, stored.Username, stored.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}
