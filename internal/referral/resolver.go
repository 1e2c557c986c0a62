// Package referral decides which address, if any, earns the referral share
// of a mint.
package referral

import (
	"context"
	"errors"

	"niftacore/internal/models"
	"niftacore/pkg/utils"
)

// ErrSelfReferral is returned when a minter tries to attach themselves as referrer.
var ErrSelfReferral = errors.New("self referral rejected")

// Source tells where a resolved referrer came from.
type Source string

const (
	SourceNone       Source = "none"
	SourceHint       Source = "hint"
	SourceAttachment Source = "attachment"
)

// AttachmentReader is the lookup the resolver needs from the ledger.
// It returns nil and no error when the minter has no attachment.
type AttachmentReader interface {
	GetReferral(ctx context.Context, minter string) (*models.ReferralAttachment, error)
}

// Resolution is the outcome of resolving a referrer for one mint.
type Resolution struct {
	Referrer string
	Source   Source

	// Capture is set when the hint should be recorded as the minter's first
	// touch because no attachment exists yet.
	Capture *models.ReferralAttachment
}

// HasReferrer reports whether a referrer earns the share.
func (r Resolution) HasReferrer() bool {
	return r.Referrer != ""
}

// Resolver resolves referrers against stored attachments.
type Resolver struct {
	store AttachmentReader
}

func NewResolver(store AttachmentReader) *Resolver {
	return &Resolver{store: store}
}

// Resolve picks the referrer for minter. A well-formed hint is authoritative
// for this call; a hint naming the minter yields no referrer. Without a
// usable hint the stored attachment applies unless it names the minter.
// minter must already be normalized.
func (r *Resolver) Resolve(ctx context.Context, minter, hint string) (Resolution, error) {
	existing, err := r.store.GetReferral(ctx, minter)
	if err != nil {
		return Resolution{}, err
	}

	if utils.IsAddress(hint) {
		if hint == minter {
			return Resolution{Source: SourceNone}, nil
		}
		res := Resolution{Referrer: hint, Source: SourceHint}
		if existing == nil {
			res.Capture = &models.ReferralAttachment{Minter: minter, Referrer: hint}
		}
		return res, nil
	}

	if existing != nil && existing.Referrer != minter {
		return Resolution{Referrer: existing.Referrer, Source: SourceAttachment}, nil
	}
	return Resolution{Source: SourceNone}, nil
}

// NewAttachment validates an explicit attach request. Both addresses are
// normalized; a referrer equal to the minter is rejected.
func NewAttachment(minter, referrer string) (*models.ReferralAttachment, error) {
	m, err := utils.NormalizeAddress(minter)
	if err != nil {
		return nil, err
	}
	ref, err := utils.NormalizeAddress(referrer)
	if err != nil {
		return nil, err
	}
	if m == ref {
		return nil, ErrSelfReferral
	}
	return &models.ReferralAttachment{Minter: m, Referrer: ref}, nil
}
