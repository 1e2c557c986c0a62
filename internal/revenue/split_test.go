package revenue

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSumsExactly(t *testing.T) {
	for p := int64(1); p <= 20000; p++ {
		payment := decimal.NewFromInt(p)
		for _, hasReferrer := range []bool{true, false} {
			s, err := Compute(payment, hasReferrer)
			require.NoError(t, err)
			if !s.Total().Equal(payment) {
				t.Fatalf("payment %d referrer=%v: payouts sum to %s", p, hasReferrer, s.Total())
			}
			for _, v := range []decimal.Decimal{s.Creator, s.FirstMinter, s.Referral, s.Platform} {
				if v.IsNegative() {
					t.Fatalf("payment %d: negative share %s", p, v)
				}
			}
		}
	}
}

func TestComputeLargeWeiAmounts(t *testing.T) {
	// 1234 mints at 0.0001 ETH plus an odd wei to force a remainder
	payment, err := decimal.NewFromString("123400000000000001")
	require.NoError(t, err)

	s, err := Compute(payment, true)
	require.NoError(t, err)
	assert.Equal(t, "61700000000000000", s.Creator.String())
	assert.Equal(t, "12340000000000000", s.FirstMinter.String())
	assert.Equal(t, "24680000000000000", s.Referral.String())
	assert.Equal(t, "24680000000000001", s.Platform.String())
	assert.True(t, s.Total().Equal(payment))
}

func TestComputeShares(t *testing.T) {
	t.Run("with referrer", func(t *testing.T) {
		s, err := Compute(decimal.NewFromInt(1000), true)
		require.NoError(t, err)
		assert.True(t, s.Creator.Equal(decimal.NewFromInt(500)))
		assert.True(t, s.FirstMinter.Equal(decimal.NewFromInt(100)))
		assert.True(t, s.Referral.Equal(decimal.NewFromInt(200)))
		assert.True(t, s.Platform.Equal(decimal.NewFromInt(200)))
		assert.False(t, s.ReferralRedirected)
	})

	t.Run("referral share redirected to platform", func(t *testing.T) {
		s, err := Compute(decimal.NewFromInt(1000), false)
		require.NoError(t, err)
		assert.True(t, s.Referral.IsZero())
		assert.True(t, s.Platform.Equal(decimal.NewFromInt(400)))
		assert.True(t, s.ReferralRedirected)
	})

	t.Run("minimum payable unit goes to platform", func(t *testing.T) {
		s, err := Compute(decimal.NewFromInt(1), true)
		require.NoError(t, err)
		assert.True(t, s.Creator.IsZero())
		assert.True(t, s.FirstMinter.IsZero())
		assert.True(t, s.Referral.IsZero())
		assert.True(t, s.Platform.Equal(decimal.NewFromInt(1)))
	})

	t.Run("remainder only to platform", func(t *testing.T) {
		s, err := Compute(decimal.NewFromInt(19), true)
		require.NoError(t, err)
		assert.Equal(t, "9", s.Creator.String())
		assert.Equal(t, "1", s.FirstMinter.String())
		assert.Equal(t, "3", s.Referral.String())
		assert.Equal(t, "6", s.Platform.String())
	})
}

func TestComputeRejectsInvalidAmounts(t *testing.T) {
	_, err := Compute(decimal.NewFromInt(-1), true)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Compute(decimal.RequireFromString("1.5"), true)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
