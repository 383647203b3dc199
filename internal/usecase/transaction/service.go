// Package transaction records purchases after checking the catalog.
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/souq/internal/domain"
	domtx "github.com/kailas-cloud/souq/internal/domain/transaction"
)

// Repository persists transactions.
type Repository interface {
	Create(ctx context.Context, t domtx.Transaction) error
}

// ItemChecker reports whether a catalog item exists.
type ItemChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service creates transactions.
type Service struct {
	repo  Repository
	items ItemChecker
	now   func() time.Time
	newID func() string
}

// New creates a transaction service.
func New(repo Repository, items ItemChecker) *Service {
	return &Service{repo: repo, items: items, now: time.Now, newID: uuid.NewString}
}

// Create validates the purchase, checks that every item is in the catalog
// and stores it. It returns the new transaction id.
func (s *Service) Create(ctx context.Context, userID string, itemIDs []string) (string, error) {
	t, err := domtx.New(s.newID(), userID, itemIDs, s.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidTransaction, err)
	}

	for _, id := range t.ItemIDs() {
		ok, err := s.items.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check item %s: %w", id, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
		}
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	return t.ID(), nil
}
