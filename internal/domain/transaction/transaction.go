// Package transaction models a recorded purchase of catalog items.
package transaction

import (
	"fmt"
	"strings"
	"time"
)

// MaxItems is the maximum number of distinct items in one transaction.
const MaxItems = 256

// Transaction is a purchase by one user.
type Transaction struct {
	id        string
	userID    string
	itemIDs   []string
	createdAt time.Time
}

// New validates and creates a Transaction. Duplicate item ids collapse onto
// their first occurrence.
func New(id, userID string, itemIDs []string, createdAt time.Time) (Transaction, error) {
	if id == "" {
		return Transaction{}, fmt.Errorf("transaction ID is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Transaction{}, fmt.Errorf("user ID is required")
	}

	seen := make(map[string]struct{}, len(itemIDs))
	ids := make([]string, 0, len(itemIDs))
	for _, raw := range itemIDs {
		itemID := strings.TrimSpace(raw)
		if itemID == "" {
			return Transaction{}, fmt.Errorf("item ID must not be empty")
		}
		if _, dup := seen[itemID]; dup {
			continue
		}
		seen[itemID] = struct{}{}
		ids = append(ids, itemID)
	}
	if len(ids) == 0 {
		return Transaction{}, fmt.Errorf("at least one item is required")
	}
	if len(ids) > MaxItems {
		return Transaction{}, fmt.Errorf("too many items (max %d)", MaxItems)
	}

	return Transaction{id: id, userID: userID, itemIDs: ids, createdAt: createdAt.UTC()}, nil
}

// Reconstruct creates a Transaction without validation (storage hydration).
func Reconstruct(id, userID string, itemIDs []string, createdAt time.Time) Transaction {
	return Transaction{id: id, userID: userID, itemIDs: itemIDs, createdAt: createdAt}
}

// ID returns the transaction identifier.
func (t *Transaction) ID() string { return t.id }

// UserID returns the purchasing user.
func (t *Transaction) UserID() string { return t.userID }

// ItemIDs returns the purchased item ids in first-seen order.
func (t *Transaction) ItemIDs() []string { return t.itemIDs }

// CreatedAt returns the purchase time.
func (t *Transaction) CreatedAt() time.Time { return t.createdAt }
