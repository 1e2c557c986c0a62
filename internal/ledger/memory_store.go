package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"niftacore/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]models.Collection
	balances    map[string]decimal.Decimal
	referrals   map[string]models.ReferralAttachment
	receipts    map[string][]models.MintReceipt
	transitions map[string][]models.PhaseTransition
	nextID      uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]models.Collection),
		balances:    make(map[string]decimal.Decimal),
		referrals:   make(map[string]models.ReferralAttachment),
		receipts:    make(map[string][]models.MintReceipt),
		transitions: make(map[string][]models.PhaseTransition),
	}
}

func (s *MemoryStore) CreateCollection(_ context.Context, c *models.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[c.ID]; exists {
		return ErrConflict
	}
	s.collections[c.ID] = cloneCollection(*c)
	return nil
}

func (s *MemoryStore) GetCollection(_ context.Context, id string) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCollection(c)
	return &c, nil
}

func (s *MemoryStore) ListCollections(_ context.Context, opts ListOptions) ([]models.Collection, int64, error) {
	offset, limit := pageBounds(opts)

	s.mu.RLock()
	all := make([]models.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		if opts.Sort == SortEndingSoon &&
			(c.Phase != models.PhaseTimerActive || c.Deadline == nil || !c.Deadline.After(opts.Now)) {
			continue
		}
		all = append(all, cloneCollection(c))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch opts.Sort {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		case SortMostMinted:
			if a.MintCounter != b.MintCounter {
				return a.MintCounter > b.MintCounter
			}
			return a.CreatedAt.After(b.CreatedAt)
		case SortEndingSoon:
			return a.Deadline.Before(*b.Deadline)
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []models.Collection{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *MemoryStore) ListExpired(_ context.Context, now time.Time) ([]models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Collection
	for _, c := range s.collections {
		if c.Phase == models.PhaseTimerActive && c.Deadline != nil && !c.Deadline.After(now) {
			out = append(out, cloneCollection(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(*out[j].Deadline) })
	return out, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, address string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.balances[address]; ok {
		return b, nil
	}
	return decimal.Zero, nil
}

func (s *MemoryStore) GetReferral(_ context.Context, minter string) (*models.ReferralAttachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.referrals[minter]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryStore) AttachReferral(_ context.Context, a *models.ReferralAttachment) (*models.ReferralAttachment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.referrals[a.Minter]; ok {
		return &existing, false, nil
	}
	s.referrals[a.Minter] = *a
	stored := *a
	return &stored, true, nil
}

func (s *MemoryStore) ClearReferral(_ context.Context, minter string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.referrals[minter]
	delete(s.referrals, minter)
	return ok, nil
}

func (s *MemoryStore) ListReceipts(_ context.Context, collectionID string, limit int) ([]models.MintReceipt, error) {
	_, limit = pageBounds(ListOptions{Limit: limit})
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.receipts[collectionID]
	out := make([]models.MintReceipt, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) ListTransitions(_ context.Context, collectionID string) ([]models.PhaseTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PhaseTransition(nil), s.transitions[collectionID]...), nil
}

// CommitMint validates the guard, runs capture without holding the store
// lock, then re-validates and applies the writes. A failed capture leaves
// nothing behind. Callers serialize mints per collection.
func (s *MemoryStore) CommitMint(ctx context.Context, m *MintCommit, capture CaptureFunc) error {
	s.mu.RLock()
	err := s.checkMintGuard(m)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if capture != nil {
		if err := capture(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMintGuard(m); err != nil {
		return err
	}

	updated := cloneCollection(*m.Collection)
	updated.UpdatedAt = m.Receipt.CreatedAt
	s.collections[updated.ID] = updated

	for _, credit := range MergeCredits(m.Credits) {
		s.balances[credit.Address] = s.balances[credit.Address].Add(credit.Amount)
	}
	for _, tr := range m.Transitions {
		s.nextID++
		tr.ID = s.nextID
		s.transitions[tr.CollectionID] = append(s.transitions[tr.CollectionID], tr)
	}
	if m.Attachment != nil {
		if _, exists := s.referrals[m.Attachment.Minter]; !exists {
			s.referrals[m.Attachment.Minter] = *m.Attachment
		}
	}
	s.receipts[m.Receipt.CollectionID] = append(s.receipts[m.Receipt.CollectionID], *m.Receipt)
	return nil
}

func (s *MemoryStore) checkMintGuard(m *MintCommit) error {
	current, ok := s.collections[m.Collection.ID]
	if !ok {
		return ErrNotFound
	}
	if current.MintCounter != m.ExpectedCounter || current.Phase == models.PhaseEnded {
		return ErrConflict
	}
	return nil
}

func (s *MemoryStore) EndCollection(_ context.Context, c *models.Collection, tr models.PhaseTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.collections[c.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Phase != models.PhaseTimerActive {
		return ErrConflict
	}
	at := tr.At
	current.Phase = models.PhaseEnded
	current.EndedAt = &at
	current.UpdatedAt = at
	s.collections[c.ID] = current

	s.nextID++
	tr.ID = s.nextID
	s.transitions[c.ID] = append(s.transitions[c.ID], tr)
	return nil
}

// cloneCollection copies the pointer fields so callers cannot mutate stored rows.
func cloneCollection(c models.Collection) models.Collection {
	if c.TriggerAt != nil {
		v := *c.TriggerAt
		c.TriggerAt = &v
	}
	if c.Deadline != nil {
		v := *c.Deadline
		c.Deadline = &v
	}
	if c.EndedAt != nil {
		v := *c.EndedAt
		c.EndedAt = &v
	}
	if c.FirstPaidMinter != nil {
		v := *c.FirstPaidMinter
		c.FirstPaidMinter = &v
	}
	return c
}
