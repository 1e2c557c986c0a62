package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the lifecycle stage of a collection's trigger/timer machine.
type Phase string

const (
	PhaseUnlimited      Phase = "unlimited"
	PhaseTriggerReached Phase = "trigger_reached"
	PhaseTimerActive    Phase = "timer_active"
	PhaseEnded          Phase = "ended"
)

// Collection is a single-NFT collection and its minting state.
type Collection struct {
	ID               string          `gorm:"primarykey;size:36" json:"id"`
	Creator          string          `gorm:"size:42;not null;index" json:"creator"`
	Name             string          `gorm:"size:64;not null" json:"name"`
	Description      string          `gorm:"type:text" json:"description"`
	ImageURL         string          `gorm:"size:512" json:"image_url"`
	PriceWei         decimal.Decimal `gorm:"type:decimal(30,0);not null" json:"price_wei"`
	TriggerThreshold uint64          `gorm:"not null" json:"trigger_threshold"`
	TimerSeconds     int64           `gorm:"not null" json:"timer_seconds"`
	Phase            Phase           `gorm:"size:20;not null;default:'unlimited';index" json:"phase"`
	MintCounter      uint64          `gorm:"not null;default:0" json:"mint_counter"`
	TriggerAt        *time.Time      `json:"trigger_at"`
	Deadline         *time.Time      `gorm:"index" json:"deadline"`
	EndedAt          *time.Time      `json:"ended_at"`
	FirstPaidMinter  *string         `gorm:"size:42" json:"first_paid_minter"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Collection) TableName() string {
	return "collections"
}

// PhaseTransition records one forward step of a collection's phase.
type PhaseTransition struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CollectionID string    `gorm:"size:36;not null;index" json:"collection_id"`
	FromPhase    Phase     `gorm:"size:20;not null" json:"from_phase"`
	ToPhase      Phase     `gorm:"size:20;not null" json:"to_phase"`
	At           time.Time `gorm:"not null" json:"at"`
}

func (PhaseTransition) TableName() string {
	return "phase_transitions"
}
