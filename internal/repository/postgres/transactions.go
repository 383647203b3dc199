package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/domain/transaction"
)

// schemaLockID serializes DDL across concurrent migrations.
const schemaLockID int64 = 2026101901

const schemaDDL = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transaction_items (
	transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	item_id TEXT NOT NULL,
	position INT NOT NULL,
	PRIMARY KEY (transaction_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_transaction_items_item ON transaction_items(item_id);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);
`

const coPurchasedQuery = `
SELECT ti.item_id, COUNT(*) AS cnt
FROM transaction_items ti
WHERE ti.transaction_id IN (
	SELECT transaction_id FROM transaction_items WHERE item_id = $1
)
AND ti.item_id <> $1
GROUP BY ti.item_id
ORDER BY cnt DESC, ti.item_id ASC
LIMIT $2
`

// TransactionRepository persists transactions in Postgres.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a repository over db.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Migrate creates the transaction tables if they do not exist.
func (r *TransactionRepository) Migrate(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Create stores t and its items atomically.
func (r *TransactionRepository) Create(ctx context.Context, t transaction.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, created_at) VALUES ($1, $2, $3)`,
		t.ID(), t.UserID(), t.CreatedAt(),
	); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	for pos, itemID := range t.ItemIDs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, item_id, position) VALUES ($1, $2, $3)`,
			t.ID(), itemID, pos,
		); err != nil {
			return fmt.Errorf("insert transaction item %s: %w", itemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get loads a transaction with its items in purchase order.
func (r *TransactionRepository) Get(ctx context.Context, id string) (transaction.Transaction, error) {
	var t struct {
		userID string
		at     sql.NullTime
	}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, created_at FROM transactions WHERE id = $1`, id,
	).Scan(&t.userID, &t.at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		return transaction.Transaction{}, fmt.Errorf("select transaction: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id FROM transaction_items WHERE transaction_id = $1 ORDER BY position`, id)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("select transaction items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var itemIDs []string
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return transaction.Transaction{}, fmt.Errorf("scan transaction item: %w", err)
		}
		itemIDs = append(itemIDs, itemID)
	}
	if err := rows.Err(); err != nil {
		return transaction.Transaction{}, fmt.Errorf("iterate transaction items: %w", err)
	}

	return transaction.Reconstruct(id, t.userID, itemIDs, t.at.Time.UTC()), nil
}

// CoPurchased returns up to limit ids of items bought together with itemID,
// most frequent first, ties broken by id ascending. itemID itself is excluded.
func (r *TransactionRepository) CoPurchased(ctx context.Context, itemID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, coPurchasedQuery, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("co-purchase query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var (
			id    string
			count int64
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan co-purchase row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate co-purchase rows: %w", err)
	}
	return ids, nil
}

// Ping checks connectivity for health probes.
func (r *TransactionRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
