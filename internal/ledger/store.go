// Package ledger holds the durable state of the mint core: collections,
// balances, referral attachments, receipts and phase transitions. It has no
// business rules; callers hand it fully computed updates to apply atomically.
package ledger

import (
	"context"
	"errors"
	"time"

	"niftacore/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a keyed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a guarded update finds the row changed
	// underneath it.
	ErrConflict = errors.New("concurrent modification detected")
)

// Sort orders for ListCollections.
const (
	SortNewest      = "newest"
	SortOldest      = "oldest"
	SortMostMinted  = "most_minted"
	SortEndingSoon  = "ending_soon"
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListOptions selects a page of collections.
type ListOptions struct {
	Sort   string
	Offset int
	Limit  int
	// Now bounds the ending_soon listing to windows still open.
	Now time.Time
}

// Credit adds Amount wei to Address's balance.
type Credit struct {
	Address string
	Amount  decimal.Decimal
}

// MintCommit is everything one mint writes.
type MintCommit struct {
	// Collection carries the state after the mint.
	Collection *models.Collection
	// ExpectedCounter is the mint counter the update was computed from.
	ExpectedCounter uint64
	Receipt         *models.MintReceipt
	Credits         []Credit
	Transitions     []models.PhaseTransition
	// Attachment is recorded only if the minter has none yet.
	Attachment *models.ReferralAttachment
}

// CaptureFunc runs inside the commit after all writes are staged; an error
// aborts the commit.
type CaptureFunc func(ctx context.Context) error

// Store is the persistence boundary of the mint core.
type Store interface {
	CreateCollection(ctx context.Context, c *models.Collection) error
	GetCollection(ctx context.Context, id string) (*models.Collection, error)
	ListCollections(ctx context.Context, opts ListOptions) ([]models.Collection, int64, error)
	// ListExpired returns running timers whose deadline is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]models.Collection, error)

	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// GetReferral returns nil and no error when the minter has no attachment.
	GetReferral(ctx context.Context, minter string) (*models.ReferralAttachment, error)
	// AttachReferral records a if the minter has no attachment and returns
	// the attachment in effect and whether a was the one stored.
	AttachReferral(ctx context.Context, a *models.ReferralAttachment) (*models.ReferralAttachment, bool, error)
	ClearReferral(ctx context.Context, minter string) (bool, error)

	ListReceipts(ctx context.Context, collectionID string, limit int) ([]models.MintReceipt, error)
	ListTransitions(ctx context.Context, collectionID string) ([]models.PhaseTransition, error)

	// CommitMint applies m and runs capture as a single transaction.
	CommitMint(ctx context.Context, m *MintCommit, capture CaptureFunc) error
	// EndCollection persists TimerActive -> Ended for c.
	EndCollection(ctx context.Context, c *models.Collection, tr models.PhaseTransition) error
}

// MergeCredits folds credits to the same address together and drops zeros.
func MergeCredits(credits []Credit) []Credit {
	idx := make(map[string]int, len(credits))
	out := make([]Credit, 0, len(credits))
	for _, c := range credits {
		if c.Amount.IsZero() {
			continue
		}
		if i, ok := idx[c.Address]; ok {
			out[i].Amount = out[i].Amount.Add(c.Amount)
			continue
		}
		idx[c.Address] = len(out)
		out = append(out, c)
	}
	return out
}

func pageBounds(opts ListOptions) (int, int) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
