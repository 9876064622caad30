package core

import "github.com/shopspring/decimal"

// SecondPriceMechanism implements §4.1.1: the period's entire supply goes
// to the single highest bidder, paying the second-highest admitted price
// per token (or the floor if there is no second bid).
type SecondPriceMechanism struct{}

func (SecondPriceMechanism) Clear(bids []Bid, supply, floor decimal.Decimal) (ClearResult, error) {
	if len(bids) == 0 {
		return ClearResult{ClearingPrice: floor}, nil
	}

	sorted := sortBidsByPriceDesc(bids)
	winner := sorted[0]

	price := floor
	if len(sorted) >= 2 {
		price = sorted[1].PricePerToken
	}

	return ClearResult{
		ClearingPrice:   price,
		TokensAllocated: supply,
		Allocations: []Allocation{{
			Agent:         winner.Agent,
			Tokens:        supply,
			PricePerToken: price,
			TotalPaid:     price.Mul(supply),
		}},
	}, nil
}
