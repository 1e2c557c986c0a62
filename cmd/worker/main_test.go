package main

import (
	"encoding/json"
	"testing"

	"niftacore/internal/events"
	"niftacore/internal/mint"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMintEvent(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	msg, err := json.Marshal(events.MintEvent{
		Type: events.TypeMintCommitted,
		Receipt: &mint.Receipt{
			ID:           "r-1",
			CollectionID: "c-1",
			Minter:       "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Quantity:     2,
			Payment:      decimal.NewFromInt(200),
			Payouts:      mint.Payouts{ReferralRedirected: true},
		},
	})
	require.NoError(t, err)

	require.NoError(t, handleMintEvent(msg))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "c-1", entry.Data["collection_id"])
	assert.Equal(t, "200", entry.Data["payment"])
	assert.NotContains(t, entry.Data, "referral")
}

func TestHandleMintEventDropsMalformed(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	assert.NoError(t, handleMintEvent([]byte("{not json")))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
