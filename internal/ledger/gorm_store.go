package ledger

import (
	"context"
	"errors"
	"time"

	"niftacore/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps ledger state in a SQL database through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the ledger tables.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Collection{},
		&models.Balance{},
		&models.ReferralAttachment{},
		&models.MintReceipt{},
		&models.PhaseTransition{},
	)
}

func (s *GormStore) CreateCollection(ctx context.Context, c *models.Collection) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	var c models.Collection
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) ListCollections(ctx context.Context, opts ListOptions) ([]models.Collection, int64, error) {
	offset, limit := pageBounds(opts)

	filter := func(db *gorm.DB) *gorm.DB {
		if opts.Sort == SortEndingSoon {
			return db.Where("phase = ? AND deadline > ?", models.PhaseTimerActive, opts.Now)
		}
		return db
	}

	// Get total count
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Collection{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Scopes(filter)
	switch opts.Sort {
	case SortOldest:
		q = q.Order("created_at asc").Order("id asc")
	case SortMostMinted:
		q = q.Order("mint_counter desc").Order("created_at desc")
	case SortEndingSoon:
		q = q.Order("deadline asc")
	default:
		q = q.Order("created_at desc").Order("id desc")
	}

	var collections []models.Collection
	if err := q.Offset(offset).Limit(limit).Find(&collections).Error; err != nil {
		return nil, 0, err
	}
	return collections, total, nil
}

func (s *GormStore) ListExpired(ctx context.Context, now time.Time) ([]models.Collection, error) {
	var collections []models.Collection
	err := s.db.WithContext(ctx).
		Where("phase = ? AND deadline <= ?", models.PhaseTimerActive, now).
		Order("deadline asc").
		Find(&collections).Error
	return collections, err
}

func (s *GormStore) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var b models.Balance
	if err := s.db.WithContext(ctx).First(&b, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return b.Amount, nil
}

func (s *GormStore) GetReferral(ctx context.Context, minter string) (*models.ReferralAttachment, error) {
	var a models.ReferralAttachment
	if err := s.db.WithContext(ctx).First(&a, "minter = ?", minter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) AttachReferral(ctx context.Context, a *models.ReferralAttachment) (*models.ReferralAttachment, bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(a)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return a, true, nil
	}
	existing, err := s.GetReferral(ctx, a.Minter)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *GormStore) ClearReferral(ctx context.Context, minter string) (bool, error) {
	res := s.db.WithContext(ctx).Where("minter = ?", minter).Delete(&models.ReferralAttachment{})
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) ListReceipts(ctx context.Context, collectionID string, limit int) ([]models.MintReceipt, error) {
	_, limit = pageBounds(ListOptions{Limit: limit})
	var receipts []models.MintReceipt
	err := s.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("start_index desc").
		Limit(limit).
		Find(&receipts).Error
	return receipts, err
}

func (s *GormStore) ListTransitions(ctx context.Context, collectionID string) ([]models.PhaseTransition, error) {
	var transitions []models.PhaseTransition
	err := s.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("id asc").
		Find(&transitions).Error
	return transitions, err
}

// CommitMint stages every write of the mint in one transaction, then runs
// capture; any failure rolls the whole mint back.
func (s *GormStore) CommitMint(ctx context.Context, m *MintCommit, capture CaptureFunc) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	c := m.Collection
	res := tx.Model(&models.Collection{}).
		Where("id = ? AND mint_counter = ? AND phase <> ?", c.ID, m.ExpectedCounter, models.PhaseEnded).
		Updates(map[string]interface{}{
			"phase":             c.Phase,
			"mint_counter":      c.MintCounter,
			"trigger_at":        c.TriggerAt,
			"deadline":          c.Deadline,
			"first_paid_minter": c.FirstPaidMinter,
		})
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ErrConflict
	}

	now := m.Receipt.CreatedAt
	for _, credit := range MergeCredits(m.Credits) {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"amount":     gorm.Expr("balances.amount + excluded.amount"),
				"updated_at": now,
			}),
		}).Create(&models.Balance{Address: credit.Address, Amount: credit.Amount}).Error
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	if len(m.Transitions) > 0 {
		if err := tx.Create(&m.Transitions).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	if m.Attachment != nil {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(m.Attachment).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Create(m.Receipt).Error; err != nil {
		tx.Rollback()
		return err
	}

	if capture != nil {
		if err := capture(ctx); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}
	return nil
}

func (s *GormStore) EndCollection(ctx context.Context, c *models.Collection, tr models.PhaseTransition) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	res := tx.Model(&models.Collection{}).
		Where("id = ? AND phase = ?", c.ID, models.PhaseTimerActive).
		Updates(map[string]interface{}{
			"phase":    models.PhaseEnded,
			"ended_at": tr.At,
		})
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ErrConflict
	}

	if err := tx.Create(&tr).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
