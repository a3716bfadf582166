// Package fees computes platform and community fees in basis points.
//
// All amounts are integer minor units and every fee rounds down, so a fee
// never exceeds the amount it is taken from.
package fees

import (
	"math"
	"math/big"

	"github.com/fastprodman/creatorledger/internal/apperr"
)

// Scale is 100% in basis points.
const Scale int64 = 10_000

// Compute returns floor(amount*bps/10000).
func Compute(amount, bps int64) (int64, error) {
	if amount < 0 {
		return 0, apperr.Invalid("amount", "must not be negative, got %d", amount)
	}

	if bps < 0 || bps > Scale {
		return 0, apperr.Invalid("bps", "must be within [0, %d], got %d", Scale, bps)
	}

	if amount == 0 || bps == 0 {
		return 0, nil
	}

	if amount <= math.MaxInt64/bps {
		return amount * bps / Scale, nil
	}

	p := new(big.Int).Mul(big.NewInt(amount), big.NewInt(bps))

	return p.Quo(p, big.NewInt(Scale)).Int64(), nil
}

type Breakdown struct {
	Gross        int64 `json:"gross"`
	PlatformFee  int64 `json:"platformFee"`
	CommunityFee int64 `json:"communityFee"`
	Net          int64 `json:"net"`
}

// Split divides gross into platform fee, community fee and the net remainder.
func Split(gross, platformBps, communityBps int64) (Breakdown, error) {
	if platformBps+communityBps > Scale {
		return Breakdown{}, apperr.Invalid("bps", "platform %d + community %d exceeds %d", platformBps, communityBps, Scale)
	}

	platform, err := Compute(gross, platformBps)
	if err != nil {
		return Breakdown{}, err
	}

	community, err := Compute(gross, communityBps)
	if err != nil {
		return Breakdown{}, err
	}

	return Breakdown{
		Gross:        gross,
		PlatformFee:  platform,
		CommunityFee: community,
		Net:          gross - platform - community,
	}, nil
}
