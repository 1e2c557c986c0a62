package mint

import (
	"time"

	"niftacore/internal/models"
	"niftacore/internal/trigger"

	"github.com/shopspring/decimal"
)

// CreateCollectionRequest carries a creator's new collection. Zero price or
// trigger fall back to the service defaults.
type CreateCollectionRequest struct {
	Creator          string          `json:"creator" binding:"required"`
	Name             string          `json:"name" binding:"required"`
	Description      string          `json:"description"`
	ImageURL         string          `json:"image_url"`
	PriceWei         decimal.Decimal `json:"price_wei"`
	TriggerThreshold uint64          `json:"trigger_threshold"`
}

// MintRequest is one mint call. Payment must equal price * quantity.
type MintRequest struct {
	CollectionID   string          `json:"-"`
	Minter         string          `json:"minter" binding:"required"`
	Quantity       uint64          `json:"quantity"`
	Payment        decimal.Decimal `json:"payment"`
	ReferrerHint   string          `json:"referrer"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// Payout is one line of the revenue breakdown.
type Payout struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// Payouts is the four-way breakdown of a mint payment.
type Payouts struct {
	Creator     Payout `json:"creator"`
	FirstMinter Payout `json:"first_minter"`
	// Referral has an empty address and zero amount when redirected to Platform.
	Referral           Payout `json:"referral"`
	Platform           Payout `json:"platform"`
	ReferralRedirected bool   `json:"referral_redirected"`
}

// Receipt is returned for every successful mint.
type Receipt struct {
	ID           string          `json:"id"`
	CollectionID string          `json:"collection_id"`
	Minter       string          `json:"minter"`
	StartIndex   uint64          `json:"start_index"`
	Quantity     uint64          `json:"quantity"`
	Payment      decimal.Decimal `json:"payment"`
	Payouts      Payouts         `json:"payouts"`
	Phase        models.Phase    `json:"phase"`
	Timestamp    time.Time       `json:"timestamp"`
}

func receiptFromModel(m *models.MintReceipt) *Receipt {
	return &Receipt{
		ID:           m.ID,
		CollectionID: m.CollectionID,
		Minter:       m.Minter,
		StartIndex:   m.StartIndex,
		Quantity:     m.Quantity,
		Payment:      m.Payment,
		Payouts: Payouts{
			Creator:            Payout{Address: m.CreatorAddress, Amount: m.CreatorAmount},
			FirstMinter:        Payout{Address: m.FirstMinterAddress, Amount: m.FirstMinterAmount},
			Referral:           Payout{Address: m.ReferralAddress, Amount: m.ReferralAmount},
			Platform:           Payout{Address: m.PlatformAddress, Amount: m.PlatformAmount},
			ReferralRedirected: m.ReferralRedirected,
		},
		Phase:     m.PhaseAfter,
		Timestamp: m.CreatedAt,
	}
}

// CollectionState is the read view of a collection. Phase is the effective
// phase at read time, so an elapsed timer reads as ended.
type CollectionState struct {
	ID               string          `json:"id"`
	Creator          string          `json:"creator"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	ImageURL         string          `json:"image_url"`
	PriceWei         decimal.Decimal `json:"price_wei"`
	TriggerThreshold uint64          `json:"trigger_threshold"`
	Phase            models.Phase    `json:"phase"`
	MintCounter      uint64          `json:"mint_counter"`
	TriggerAt        *time.Time      `json:"trigger_at"`
	Deadline         *time.Time      `json:"deadline"`
	SecondsLeft      int64           `json:"seconds_left"`
	FirstPaidMinter  *string         `json:"first_paid_minter"`
	CreatedAt        time.Time       `json:"created_at"`
}

func stateFromModel(c *models.Collection, now time.Time) CollectionState {
	st := trigger.FromCollection(c)
	return CollectionState{
		ID:               c.ID,
		Creator:          c.Creator,
		Name:             c.Name,
		Description:      c.Description,
		ImageURL:         c.ImageURL,
		PriceWei:         c.PriceWei,
		TriggerThreshold: c.TriggerThreshold,
		Phase:            st.EffectivePhase(now),
		MintCounter:      c.MintCounter,
		TriggerAt:        c.TriggerAt,
		Deadline:         c.Deadline,
		SecondsLeft:      int64(st.Remaining(now) / time.Second),
		FirstPaidMinter:  c.FirstPaidMinter,
		CreatedAt:        c.CreatedAt,
	}
}
