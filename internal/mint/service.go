// Package mint is the single entry point of the mint core. Every mutation of
// a collection runs inside that collection's critical section: validate,
// check the timer, resolve the referrer, split the payment, advance the
// counter and commit everything together with the payment capture.
package mint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"niftacore/internal/ledger"
	"niftacore/internal/models"
	"niftacore/internal/referral"
	"niftacore/internal/revenue"
	"niftacore/internal/trigger"
	"niftacore/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MaxQuantity bounds a single mint call.
const MaxQuantity = 10000

// Defaults taken from the factory deployment.
var (
	DefaultPriceWei         = decimal.RequireFromString("100000000000000") // 0.0001 ETH
	DefaultTriggerThreshold = uint64(1000)
)

// Config holds the economic parameters of the service.
type Config struct {
	PlatformTreasury        string
	DefaultPriceWei         decimal.Decimal
	DefaultTriggerThreshold uint64
}

// Option customizes a Service.
type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

func WithPaymentGateway(g PaymentGateway) Option { return func(s *Service) { s.payments = g } }

func WithPublisher(p ReceiptPublisher) Option { return func(s *Service) { s.publisher = p } }

// Service orchestrates collections, mints and referral attachments.
type Service struct {
	store     ledger.Store
	resolver  *referral.Resolver
	payments  PaymentGateway
	publisher ReceiptPublisher
	clock     Clock
	locks     *keyedMutex
	cfg       Config
}

func NewService(store ledger.Store, cfg Config, opts ...Option) (*Service, error) {
	treasury, err := utils.NormalizeAddress(cfg.PlatformTreasury)
	if err != nil {
		return nil, fmt.Errorf("platform treasury: %w", err)
	}
	cfg.PlatformTreasury = treasury
	if cfg.DefaultPriceWei.IsZero() {
		cfg.DefaultPriceWei = DefaultPriceWei
	}
	if cfg.DefaultTriggerThreshold == 0 {
		cfg.DefaultTriggerThreshold = DefaultTriggerThreshold
	}

	s := &Service{
		store:     store,
		resolver:  referral.NewResolver(store),
		payments:  EscrowedPayments{},
		publisher: nopPublisher{},
		clock:     SystemClock{},
		locks:     newKeyedMutex(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PlatformTreasury returns the normalized treasury address.
func (s *Service) PlatformTreasury() string {
	return s.cfg.PlatformTreasury
}

// CreateCollection registers a new collection in the Unlimited phase.
func (s *Service) CreateCollection(ctx context.Context, req CreateCollectionRequest) (*CollectionState, error) {
	creator, err := utils.NormalizeAddress(req.Creator)
	if err != nil {
		return nil, fmt.Errorf("creator: %w", err)
	}
	if err := validateMetadata(req); err != nil {
		return nil, err
	}

	price := req.PriceWei
	if price.IsZero() {
		price = s.cfg.DefaultPriceWei
	}
	if price.IsNegative() || !price.Equal(price.Truncate(0)) {
		return nil, fmt.Errorf("%w: price must be a positive whole number of wei", ErrInvalidCollection)
	}
	threshold := req.TriggerThreshold
	if threshold == 0 {
		threshold = s.cfg.DefaultTriggerThreshold
	}

	now := s.clock.Now()
	c := &models.Collection{
		ID:               uuid.NewString(),
		Creator:          creator,
		Name:             strings.TrimSpace(req.Name),
		Description:      strings.TrimSpace(req.Description),
		ImageURL:         strings.TrimSpace(req.ImageURL),
		PriceWei:         price,
		TriggerThreshold: threshold,
		TimerSeconds:     int64(trigger.TimerDuration / time.Second),
		Phase:            models.PhaseUnlimited,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateCollection(ctx, c); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"collection_id": c.ID,
		"creator":       creator,
		"price_wei":     price.String(),
		"trigger":       threshold,
	}).Info("Collection created")

	st := stateFromModel(c, now)
	return &st, nil
}

func validateMetadata(req CreateCollectionRequest) error {
	if len(strings.TrimSpace(req.Name)) < 3 {
		return fmt.Errorf("%w: name must be at least 3 characters", ErrInvalidCollection)
	}
	if d := strings.TrimSpace(req.Description); d != "" && len(d) < 10 {
		return fmt.Errorf("%w: description must be at least 10 characters", ErrInvalidCollection)
	}
	if img := strings.TrimSpace(req.ImageURL); img != "" {
		u, err := url.Parse(img)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: image must be an absolute URL", ErrInvalidCollection)
		}
	}
	return nil
}

// Mint performs one mint and returns its receipt. Concurrent mints on the
// same collection are serialized; nothing is written unless every step,
// including the payment capture, succeeds.
func (s *Service) Mint(ctx context.Context, req MintRequest) (*Receipt, error) {
	if req.Quantity < 1 || req.Quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	minter, err := utils.NormalizeAddress(req.Minter)
	if err != nil {
		return nil, fmt.Errorf("minter: %w", err)
	}

	unlock := s.locks.Lock(req.CollectionID)
	defer unlock()

	c, err := s.getCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	state := trigger.FromCollection(c)
	if err := state.CheckEligible(now); err != nil {
		return nil, err
	}

	expected := c.PriceWei.Mul(decimal.NewFromInt(int64(req.Quantity)))
	if !req.Payment.Equal(expected) {
		return nil, fmt.Errorf("%w: expected %s wei, got %s", ErrInvalidPayment, expected, req.Payment)
	}

	res, err := s.resolver.Resolve(ctx, minter, strings.TrimSpace(req.ReferrerHint))
	if err != nil {
		return nil, err
	}

	split, err := revenue.Compute(req.Payment, res.HasReferrer())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayment, err)
	}

	firstMinter := minter
	if c.FirstPaidMinter != nil {
		firstMinter = *c.FirstPaidMinter
	}

	next, transitions, err := state.Advance(req.Quantity, now)
	if err != nil {
		return nil, err
	}
	phaseRows, err := toModelTransitions(c.ID, transitions)
	if err != nil {
		return nil, err
	}
	updated := *c
	next.Apply(&updated)
	updated.FirstPaidMinter = &firstMinter
	updated.UpdatedAt = now

	receipt := &models.MintReceipt{
		ID:                 uuid.NewString(),
		CollectionID:       c.ID,
		Minter:             minter,
		StartIndex:         c.MintCounter + 1,
		Quantity:           req.Quantity,
		Payment:            req.Payment,
		CreatorAddress:     c.Creator,
		CreatorAmount:      split.Creator,
		FirstMinterAddress: firstMinter,
		FirstMinterAmount:  split.FirstMinter,
		ReferralAddress:    res.Referrer,
		ReferralAmount:     split.Referral,
		ReferralRedirected: split.ReferralRedirected,
		PlatformAddress:    s.cfg.PlatformTreasury,
		PlatformAmount:     split.Platform,
		PhaseAfter:         next.Phase,
		CreatedAt:          now,
	}

	commit := &ledger.MintCommit{
		Collection:      &updated,
		ExpectedCounter: c.MintCounter,
		Receipt:         receipt,
		Credits: []ledger.Credit{
			{Address: c.Creator, Amount: split.Creator},
			{Address: firstMinter, Amount: split.FirstMinter},
			{Address: res.Referrer, Amount: split.Referral},
			{Address: s.cfg.PlatformTreasury, Amount: split.Platform},
		},
		Transitions: phaseRows,
	}
	if res.Capture != nil {
		res.Capture.CreatedAt = now
		commit.Attachment = res.Capture
	}

	intent := PaymentIntent{
		ReceiptID:      receipt.ID,
		CollectionID:   c.ID,
		Minter:         minter,
		Quantity:       req.Quantity,
		Amount:         req.Payment,
		IdempotencyKey: req.IdempotencyKey,
	}
	captured := false
	err = s.store.CommitMint(ctx, commit, func(ctx context.Context) error {
		if err := s.payments.Capture(ctx, intent); err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentCaptureFailed, err)
		}
		captured = true
		return nil
	})
	if err != nil {
		if captured {
			if relErr := s.payments.Release(ctx, intent); relErr != nil {
				logrus.Errorf("Failed to release payment for receipt %s: %v", receipt.ID, relErr)
			}
		}
		if errors.Is(err, ledger.ErrConflict) {
			// the worker's sweep may have closed the window in the meantime
			if cur, getErr := s.store.GetCollection(ctx, c.ID); getErr == nil && cur.Phase == models.PhaseEnded {
				return nil, fmt.Errorf("%w: %s", ErrMintingEnded, c.ID)
			}
			return nil, fmt.Errorf("%w: %s", ErrConcurrencyConflict, c.ID)
		}
		return nil, err
	}

	out := receiptFromModel(receipt)
	logrus.WithFields(logrus.Fields{
		"collection_id": c.ID,
		"minter":        minter,
		"quantity":      req.Quantity,
		"mint_counter":  updated.MintCounter,
		"phase":         updated.Phase,
		"referrer":      res.Referrer,
		"referral_from": res.Source,
	}).Info("Mint committed")
	for _, tr := range transitions {
		logrus.WithFields(logrus.Fields{
			"collection_id": c.ID,
			"from":          tr.From,
			"to":            tr.To,
		}).Info("Collection phase advanced")
	}

	if err := s.publisher.PublishReceipt(ctx, out); err != nil {
		logrus.Warnf("Failed to publish receipt %s: %v", out.ID, err)
	}
	return out, nil
}

// toModelTransitions converts machine transitions to rows, refusing any step
// that skips or reverses a phase.
func toModelTransitions(collectionID string, transitions []trigger.Transition) ([]models.PhaseTransition, error) {
	out := make([]models.PhaseTransition, 0, len(transitions))
	for _, tr := range transitions {
		if !trigger.ValidTransition(tr.From, tr.To) {
			return nil, fmt.Errorf("invalid phase transition %s -> %s on %s", tr.From, tr.To, collectionID)
		}
		out = append(out, models.PhaseTransition{
			CollectionID: collectionID,
			FromPhase:    tr.From,
			ToPhase:      tr.To,
			At:           tr.At,
		})
	}
	return out, nil
}

func (s *Service) getCollection(ctx context.Context, id string) (*models.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

// GetCollectionState returns the read view of a collection. It does not take
// the collection lock, so it may lag a mint in flight.
func (s *Service) GetCollectionState(ctx context.Context, id string) (*CollectionState, error) {
	c, err := s.getCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	st := stateFromModel(c, s.clock.Now())
	return &st, nil
}

// ListCollections pages through collections for the explore view.
func (s *Service) ListCollections(ctx context.Context, sort string, page, pageSize int) ([]CollectionState, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = ledger.DefaultPageSize
	}
	if pageSize > ledger.MaxPageSize {
		pageSize = ledger.MaxPageSize
	}
	now := s.clock.Now()
	rows, total, err := s.store.ListCollections(ctx, ledger.ListOptions{
		Sort:   sort,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
		Now:    now,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]CollectionState, 0, len(rows))
	for i := range rows {
		out = append(out, stateFromModel(&rows[i], now))
	}
	return out, total, nil
}

// ListReceipts returns the most recent receipts of a collection, newest first.
func (s *Service) ListReceipts(ctx context.Context, collectionID string, limit int) ([]*Receipt, error) {
	if _, err := s.getCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListReceipts(ctx, collectionID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Receipt, 0, len(rows))
	for i := range rows {
		out = append(out, receiptFromModel(&rows[i]))
	}
	return out, nil
}

// ListTransitions returns the phase history of a collection.
func (s *Service) ListTransitions(ctx context.Context, collectionID string) ([]models.PhaseTransition, error) {
	if _, err := s.getCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	return s.store.ListTransitions(ctx, collectionID)
}

// GetBalance returns the accumulated payouts of address in wei.
func (s *Service) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	a, err := utils.NormalizeAddress(address)
	if err != nil {
		return decimal.Zero, err
	}
	return s.store.GetBalance(ctx, a)
}

// AttachReferral records referrer as the minter's first-touch referrer. An
// existing attachment is kept and returned with created=false.
func (s *Service) AttachReferral(ctx context.Context, minter, referrer string) (*models.ReferralAttachment, bool, error) {
	a, err := referral.NewAttachment(minter, referrer)
	if err != nil {
		return nil, false, err
	}
	a.CreatedAt = s.clock.Now()
	return s.store.AttachReferral(ctx, a)
}

// GetReferral returns the minter's attachment or nil.
func (s *Service) GetReferral(ctx context.Context, minter string) (*models.ReferralAttachment, error) {
	m, err := utils.NormalizeAddress(minter)
	if err != nil {
		return nil, err
	}
	return s.store.GetReferral(ctx, m)
}

// ClearReferral removes the minter's attachment so a later visit can set a new one.
func (s *Service) ClearReferral(ctx context.Context, minter string) (bool, error) {
	m, err := utils.NormalizeAddress(minter)
	if err != nil {
		return false, err
	}
	return s.store.ClearReferral(ctx, m)
}

// SweepExpired persists the Ended phase for every running timer whose
// deadline has passed and returns how many collections it closed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	expired, err := s.store.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	ended := 0
	for i := range expired {
		ok, err := s.endCollection(ctx, expired[i].ID, now)
		if err != nil {
			return ended, fmt.Errorf("end collection %s: %w", expired[i].ID, err)
		}
		if ok {
			ended++
		}
	}
	return ended, nil
}

func (s *Service) endCollection(ctx context.Context, id string, now time.Time) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.getCollection(ctx, id)
	if err != nil {
		return false, err
	}
	next, tr, ok := trigger.FromCollection(c).End(now)
	if !ok {
		return false, nil
	}
	rows, err := toModelTransitions(id, []trigger.Transition{tr})
	if err != nil {
		return false, err
	}
	if err := s.store.EndCollection(ctx, c, rows[0]); err != nil {
		return false, err
	}

	logrus.WithFields(logrus.Fields{
		"collection_id": id,
		"mint_counter":  c.MintCounter,
		"phase":         next.Phase,
	}).Info("Collection minting window closed")
	return true, nil
}
