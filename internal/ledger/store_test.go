package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"niftacore/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	creator  = "0xc000000000000000000000000000000000000001"
	minterA  = "0xa000000000000000000000000000000000000001"
	minterB  = "0xb000000000000000000000000000000000000001"
	referrer = "0xf000000000000000000000000000000000000001"
	platform = "0x9000000000000000000000000000000000000001"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := NewGormStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

// forEachStore runs fn against both backends. sqlite stores decimal(30,0)
// with NUMERIC affinity, so amounts past int64 lose precision there; tests
// of wei totals beyond that range run on the memory store only. Postgres
// NUMERIC keeps them exact.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("gorm", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func newCollection(id string, createdAt time.Time) *models.Collection {
	return &models.Collection{
		ID:               id,
		Creator:          creator,
		Name:             "Cute Kitty",
		PriceWei:         decimal.NewFromInt(1000),
		TriggerThreshold: 3,
		TimerSeconds:     int64((48 * time.Hour).Seconds()),
		Phase:            models.PhaseUnlimited,
		CreatedAt:        createdAt,
	}
}

func mintCommit(c *models.Collection, minter string, qty uint64, at time.Time) *MintCommit {
	prev := c.MintCounter
	next := *c
	next.MintCounter = prev + qty
	if next.FirstPaidMinter == nil {
		m := minter
		next.FirstPaidMinter = &m
	}
	return &MintCommit{
		Collection:      &next,
		ExpectedCounter: prev,
		Receipt: &models.MintReceipt{
			ID:                 c.ID + "-" + at.Format(time.RFC3339Nano),
			CollectionID:       c.ID,
			Minter:             minter,
			StartIndex:         prev + 1,
			Quantity:           qty,
			Payment:            decimal.NewFromInt(1000),
			CreatorAddress:     creator,
			CreatorAmount:      decimal.NewFromInt(500),
			FirstMinterAddress: *next.FirstPaidMinter,
			FirstMinterAmount:  decimal.NewFromInt(100),
			PlatformAddress:    platform,
			PlatformAmount:     decimal.NewFromInt(400),
			ReferralAmount:     decimal.Zero,
			ReferralRedirected: true,
			PhaseAfter:         next.Phase,
			CreatedAt:          at,
		},
		Credits: []Credit{
			{Address: creator, Amount: decimal.NewFromInt(500)},
			{Address: *next.FirstPaidMinter, Amount: decimal.NewFromInt(100)},
			{Address: platform, Amount: decimal.NewFromInt(200)},
			{Address: platform, Amount: decimal.NewFromInt(200)},
		},
	}
}

func TestStoreCollections(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.GetCollection(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.CreateCollection(ctx, newCollection("c1", base)))
		require.NoError(t, s.CreateCollection(ctx, newCollection("c2", base.Add(time.Minute))))
		c3 := newCollection("c3", base.Add(2*time.Minute))
		c3.MintCounter = 5
		require.NoError(t, s.CreateCollection(ctx, c3))

		got, err := s.GetCollection(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, creator, got.Creator)
		assert.True(t, got.PriceWei.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, models.PhaseUnlimited, got.Phase)

		list, total, err := s.ListCollections(ctx, ListOptions{Sort: SortNewest})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, list, 3)
		assert.Equal(t, "c3", list[0].ID)

		list, _, err = s.ListCollections(ctx, ListOptions{Sort: SortOldest, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "c2", list[0].ID)

		list, _, err = s.ListCollections(ctx, ListOptions{Sort: SortMostMinted})
		require.NoError(t, err)
		assert.Equal(t, "c3", list[0].ID)

		list, total, err = s.ListCollections(ctx, ListOptions{Sort: SortEndingSoon, Now: base})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, list)
	})
}

func TestStoreCommitMint(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCollection("c1", base)
		require.NoError(t, s.CreateCollection(ctx, c))

		commit := mintCommit(c, minterA, 2, base.Add(time.Second))
		commit.Attachment = &models.ReferralAttachment{Minter: minterA, Referrer: referrer, CreatedAt: base}
		require.NoError(t, s.CommitMint(ctx, commit, nil))

		got, err := s.GetCollection(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), got.MintCounter)
		require.NotNil(t, got.FirstPaidMinter)
		assert.Equal(t, minterA, *got.FirstPaidMinter)

		bal, err := s.GetBalance(ctx, platform)
		require.NoError(t, err)
		assert.True(t, bal.Equal(decimal.NewFromInt(400)), "got %s", bal)

		bal, err = s.GetBalance(ctx, creator)
		require.NoError(t, err)
		assert.True(t, bal.Equal(decimal.NewFromInt(500)))

		att, err := s.GetReferral(ctx, minterA)
		require.NoError(t, err)
		require.NotNil(t, att)
		assert.Equal(t, referrer, att.Referrer)

		// second commit from the same starting counter is stale
		err = s.CommitMint(ctx, mintCommit(c, minterB, 1, base.Add(2*time.Second)), nil)
		assert.ErrorIs(t, err, ErrConflict)

		receipts, err := s.ListReceipts(ctx, "c1", 10)
		require.NoError(t, err)
		require.Len(t, receipts, 1)
		assert.Equal(t, uint64(1), receipts[0].StartIndex)
		assert.True(t, receipts[0].CreatorAmount.Equal(decimal.NewFromInt(500)))
	})
}

func TestStoreCommitMintRollsBackOnCaptureFailure(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCollection("c1", base)
		require.NoError(t, s.CreateCollection(ctx, c))

		captureErr := errors.New("card declined")
		commit := mintCommit(c, minterA, 1, base.Add(time.Second))
		commit.Attachment = &models.ReferralAttachment{Minter: minterA, Referrer: referrer, CreatedAt: base}
		err := s.CommitMint(ctx, commit, func(context.Context) error { return captureErr })
		assert.ErrorIs(t, err, captureErr)

		got, err := s.GetCollection(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), got.MintCounter)
		assert.Nil(t, got.FirstPaidMinter)

		bal, err := s.GetBalance(ctx, creator)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())

		att, err := s.GetReferral(ctx, minterA)
		require.NoError(t, err)
		assert.Nil(t, att)

		receipts, err := s.ListReceipts(ctx, "c1", 10)
		require.NoError(t, err)
		assert.Empty(t, receipts)
	})
}

func TestMemoryStoreLargeBalancesStayExact(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := newCollection("c1", base)
	require.NoError(t, s.CreateCollection(ctx, c))

	// 50 ETH per credit, well past int64 once summed
	big := decimal.RequireFromString("50000000000000000000")
	for i := 0; i < 3; i++ {
		commit := mintCommit(c, minterA, 1, base.Add(time.Duration(i+1)*time.Second))
		commit.Credits = []Credit{{Address: creator, Amount: big}}
		require.NoError(t, s.CommitMint(ctx, commit, nil))
		c = commit.Collection
	}

	bal, err := s.GetBalance(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, "150000000000000000000", bal.String())
}

func TestMemoryStoreCaptureRunsOutsideStoreLock(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := newCollection("c1", base)
	require.NoError(t, s.CreateCollection(ctx, c))
	other := newCollection("c2", base)
	require.NoError(t, s.CreateCollection(ctx, other))

	commit := mintCommit(c, minterA, 1, base.Add(time.Second))
	err := s.CommitMint(ctx, commit, func(ctx context.Context) error {
		// reads and writes on other collections proceed during capture
		if _, err := s.GetCollection(ctx, "c2"); err != nil {
			return err
		}
		return s.CommitMint(ctx, mintCommit(other, minterB, 1, base.Add(time.Second)), nil)
	})
	require.NoError(t, err)

	got, err := s.GetCollection(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.MintCounter)

	// a mint on the same collection landing during capture invalidates the commit
	prev := commit.Collection
	commit = mintCommit(prev, minterA, 1, base.Add(2*time.Second))
	err = s.CommitMint(ctx, commit, func(ctx context.Context) error {
		return s.CommitMint(ctx, mintCommit(prev, minterB, 1, base.Add(3*time.Second)), nil)
	})
	assert.ErrorIs(t, err, ErrConflict)

	got, err = s.GetCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.MintCounter)
}

func TestStoreReferrals(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a, created, err := s.AttachReferral(ctx, &models.ReferralAttachment{Minter: minterA, Referrer: referrer, CreatedAt: base})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, referrer, a.Referrer)

		a, created, err = s.AttachReferral(ctx, &models.ReferralAttachment{Minter: minterA, Referrer: minterB, CreatedAt: base})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, referrer, a.Referrer, "first touch wins")

		removed, err := s.ClearReferral(ctx, minterA)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = s.ClearReferral(ctx, minterA)
		require.NoError(t, err)
		assert.False(t, removed)

		_, created, err = s.AttachReferral(ctx, &models.ReferralAttachment{Minter: minterA, Referrer: minterB, CreatedAt: base})
		require.NoError(t, err)
		assert.True(t, created, "cleared attachment can be replaced")
	})
}

func TestStoreEndCollection(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := newCollection("c1", base)
		trigger := base
		deadline := base.Add(48 * time.Hour)
		c.Phase = models.PhaseTimerActive
		c.MintCounter = 3
		c.TriggerAt = &trigger
		c.Deadline = &deadline
		require.NoError(t, s.CreateCollection(ctx, c))
		require.NoError(t, s.CreateCollection(ctx, newCollection("c2", base)))

		expired, err := s.ListExpired(ctx, deadline.Add(-time.Second))
		require.NoError(t, err)
		assert.Empty(t, expired)

		expired, err = s.ListExpired(ctx, deadline)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "c1", expired[0].ID)

		tr := models.PhaseTransition{CollectionID: "c1", FromPhase: models.PhaseTimerActive, ToPhase: models.PhaseEnded, At: deadline}
		require.NoError(t, s.EndCollection(ctx, c, tr))
		assert.ErrorIs(t, s.EndCollection(ctx, c, tr), ErrConflict)

		got, err := s.GetCollection(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, models.PhaseEnded, got.Phase)
		require.NotNil(t, got.EndedAt)

		transitions, err := s.ListTransitions(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, transitions, 1)
		assert.Equal(t, models.PhaseEnded, transitions[0].ToPhase)
	})
}

func TestMergeCredits(t *testing.T) {
	merged := MergeCredits([]Credit{
		{Address: creator, Amount: decimal.NewFromInt(5)},
		{Address: platform, Amount: decimal.Zero},
		{Address: creator, Amount: decimal.NewFromInt(7)},
		{Address: minterA, Amount: decimal.NewFromInt(1)},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, creator, merged[0].Address)
	assert.True(t, merged[0].Amount.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, minterA, merged[1].Address)
}
