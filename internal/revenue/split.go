// Package revenue computes how a mint payment is divided between the parties
// of a collection.
package revenue

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Share percentages of the gross payment. Platform absorbs every truncation remainder.
const (
	CreatorPercent     = 50
	FirstMinterPercent = 10
	ReferralPercent    = 20
	PlatformPercent    = 20
)

var hundred = decimal.NewFromInt(100)

// ErrInvalidAmount is returned for negative or fractional payments.
var ErrInvalidAmount = errors.New("payment must be a non-negative whole number of wei")

// Split is the four-way distribution of one payment.
type Split struct {
	Creator     decimal.Decimal `json:"creator"`
	FirstMinter decimal.Decimal `json:"first_minter"`
	Referral    decimal.Decimal `json:"referral"`
	Platform    decimal.Decimal `json:"platform"`

	// ReferralRedirected is true when no referrer applied and the referral
	// share was added to Platform.
	ReferralRedirected bool `json:"referral_redirected"`
}

// Total returns the sum of all four payouts.
func (s Split) Total() decimal.Decimal {
	return s.Creator.Add(s.FirstMinter).Add(s.Referral).Add(s.Platform)
}

// Compute splits payment 50/10/20/20 using floor division. hasReferrer
// decides whether the referral share is paid out or redirected to platform.
func Compute(payment decimal.Decimal, hasReferrer bool) (Split, error) {
	if payment.IsNegative() || !payment.Equal(payment.Truncate(0)) {
		return Split{}, ErrInvalidAmount
	}

	creator := percentOf(payment, CreatorPercent)
	firstMinter := percentOf(payment, FirstMinterPercent)
	referral := percentOf(payment, ReferralPercent)
	platform := payment.Sub(creator).Sub(firstMinter).Sub(referral)

	s := Split{
		Creator:     creator,
		FirstMinter: firstMinter,
		Referral:    referral,
		Platform:    platform,
	}
	if !hasReferrer {
		s.Platform = s.Platform.Add(s.Referral)
		s.Referral = decimal.Zero
		s.ReferralRedirected = true
	}
	return s, nil
}

func percentOf(amount decimal.Decimal, percent int64) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromInt(percent)).QuoRem(hundred, 0)
	return q
}
