// Package parimutuel computes pool totals and proportional payouts for
// multi-option bets. The whole pool is shared among the stakes on the
// winning option in proportion to each stake; nothing is kept by the house.
package parimutuel

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stake is one entry in a pool.
type Stake struct {
	ID     uuid.UUID
	Option string
	Amount int64
}

// Payout is the amount credited to a winning stake.
type Payout struct {
	ID       uuid.UUID
	Winnings int64
}

// Summary aggregates a pool per option.
type Summary struct {
	TotalPool       int64            `json:"totalPool"`
	PoolByOption    map[string]int64 `json:"poolByOption"`
	EntriesByOption map[string]int   `json:"entriesByOption"`
	TotalEntries    int              `json:"totalEntries"`
}

// Summarize totals stakes per option. Every option in options is present
// in the maps, with zero when nobody picked it.
func Summarize(options []string, stakes []Stake) Summary {
	s := Summary{
		PoolByOption:    make(map[string]int64, len(options)),
		EntriesByOption: make(map[string]int, len(options)),
	}
	for _, o := range options {
		s.PoolByOption[o] = 0
		s.EntriesByOption[o] = 0
	}
	for _, st := range stakes {
		s.TotalPool += st.Amount
		s.PoolByOption[st.Option] += st.Amount
		s.EntriesByOption[st.Option]++
		s.TotalEntries++
	}
	return s
}

// Distribute returns the winnings of every stake on winning, in input order.
//
// Each winner receives amount × totalPool / winningPool rounded half up.
// Rounding remainders are not redistributed, so the sum of winnings may
// differ from the pool by at most one unit per winner. When nobody picked
// the winning option the result is empty and the pool is forfeited.
func Distribute(stakes []Stake, winning string) []Payout {
	var total, winPool int64
	for _, st := range stakes {
		total += st.Amount
		if st.Option == winning {
			winPool += st.Amount
		}
	}
	if winPool == 0 {
		return nil
	}

	totalDec := decimal.NewFromInt(total)
	winDec := decimal.NewFromInt(winPool)

	payouts := make([]Payout, 0, len(stakes))
	for _, st := range stakes {
		if st.Option != winning {
			continue
		}
		share := decimal.NewFromInt(st.Amount).Mul(totalDec).DivRound(winDec, 0)
		payouts = append(payouts, Payout{ID: st.ID, Winnings: share.IntPart()})
	}
	return payouts
}
