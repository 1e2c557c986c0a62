package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance 地址累计收益 (wei)
type Balance struct {
	Address   string          `gorm:"primarykey;size:42" json:"address"`
	Amount    decimal.Decimal `gorm:"type:decimal(30,0);not null" json:"amount"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Balance) TableName() string {
	return "balances"
}

// ReferralAttachment binds a minter to the first referrer that brought them in.
type ReferralAttachment struct {
	Minter    string    `gorm:"primarykey;size:42" json:"minter"`
	Referrer  string    `gorm:"size:42;not null;index" json:"referrer"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReferralAttachment) TableName() string {
	return "referral_attachments"
}

// MintReceipt is the immutable record of one successful mint call.
type MintReceipt struct {
	ID                 string          `gorm:"primarykey;size:36" json:"id"`
	CollectionID       string          `gorm:"size:36;not null;index" json:"collection_id"`
	Minter             string          `gorm:"size:42;not null;index" json:"minter"`
	StartIndex         uint64          `gorm:"not null" json:"start_index"`
	Quantity           uint64          `gorm:"not null" json:"quantity"`
	Payment            decimal.Decimal `gorm:"type:decimal(30,0);not null" json:"payment"`
	CreatorAddress     string          `gorm:"size:42;not null" json:"creator_address"`
	CreatorAmount      decimal.Decimal `gorm:"type:decimal(30,0);not null" json:"creator_amount"`
	FirstMinterAddress string          `gorm:"size:42;not null" json:"first_minter_address"`
	FirstMinterAmount  decimal.Decimal `gorm:"type:decimal(30,0);not null" json:"first_minter_amount"`
	ReferralAddress    string          `gorm:"size:42" json:"referral_address"`
	ReferralAmount     decimal.Decimal `gorm:"type:decimal(30,0);not null" json:"referral_amount"`
	ReferralRedirected bool            `gorm:"default:false" json:"referral_redirected"`
	PlatformAddress    string          `gorm:"size:42;not null" json:"platform_address"`
	PlatformAmount     decimal.Decimal `gorm:"type:decimal(30,0);not null" json:"platform_amount"`
	PhaseAfter         Phase           `gorm:"size:20;not null" json:"phase_after"`
	CreatedAt          time.Time       `gorm:"not null;index" json:"created_at"`
}

func (MintReceipt) TableName() string {
	return "mint_receipts"
}
