package mint

import (
	"errors"

	"niftacore/internal/referral"
	"niftacore/internal/trigger"
	"niftacore/pkg/utils"
)

var (
	ErrInvalidPayment       = errors.New("payment does not equal price * quantity")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrMintingEnded         = trigger.ErrMintingEnded
	ErrCollectionNotFound   = errors.New("collection not found")
	ErrSelfReferralRejected = referral.ErrSelfReferral
	ErrPaymentCaptureFailed = errors.New("payment capture failed")
	// ErrConcurrencyConflict means two mutations of one collection overlapped.
	// With the per-collection lock in place it only surfaces if the store is
	// shared with a writer outside this process.
	ErrConcurrencyConflict = errors.New("concurrent mint on collection")
	ErrInvalidAddress      = utils.ErrInvalidAddress
	ErrInvalidCollection   = errors.New("invalid collection parameters")
)
