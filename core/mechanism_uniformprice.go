package core

import "github.com/shopspring/decimal"

// proRataPrecision is the fixed fractional precision banker's rounding is
// applied at for pro-rata shares (§6.4, §9 open question ii).
const proRataPrecision int32 = 8

// UniformPriceMechanism implements §4.1.2: every bid expresses a
// price-per-token and a total-cost budget, demand is filled from the top of
// the price-descending book, and the margin is rationed pro-rata.
type UniformPriceMechanism struct{}

func (UniformPriceMechanism) Clear(bids []Bid, supply, floor decimal.Decimal) (ClearResult, error) {
	if len(bids) == 0 {
		return ClearResult{ClearingPrice: floor}, nil
	}

	sorted := sortBidsByPriceDesc(bids)
	quantities := make([]decimal.Decimal, len(sorted))
	totalDemand := decimal.Zero
	for i, b := range sorted {
		q := b.TotalCost.Div(b.PricePerToken)
		quantities[i] = q
		totalDemand = totalDemand.Add(q)
	}

	if totalDemand.LessThanOrEqual(supply) {
		allocations := make([]Allocation, len(sorted))
		for i, b := range sorted {
			allocations[i] = Allocation{
				Agent:         b.Agent,
				Tokens:        quantities[i],
				PricePerToken: floor,
				TotalPaid:     floor.Mul(quantities[i]),
			}
		}
		return ClearResult{
			ClearingPrice:   floor,
			TokensAllocated: totalDemand,
			Allocations:     allocations,
		}, nil
	}

	// Find the marginal bid: cumulative demand first reaches or exceeds
	// supply.
	marginalPrice := decimal.Zero
	cumulative := decimal.Zero
	for i, q := range quantities {
		cumulative = cumulative.Add(q)
		if cumulative.GreaterThanOrEqual(supply) {
			marginalPrice = sorted[i].PricePerToken
			break
		}
	}

	var allocations []Allocation
	aboveFilled := decimal.Zero
	var atMarginIdx []int
	for i, b := range sorted {
		switch {
		case b.PricePerToken.GreaterThan(marginalPrice):
			q := quantities[i]
			allocations = append(allocations, Allocation{
				Agent:         b.Agent,
				Tokens:        q,
				PricePerToken: marginalPrice,
				TotalPaid:     marginalPrice.Mul(q),
			})
			aboveFilled = aboveFilled.Add(q)
		case b.PricePerToken.Equal(marginalPrice):
			atMarginIdx = append(atMarginIdx, i)
		}
	}

	residual := supply.Sub(aboveFilled)
	sumAtMarginDemand := decimal.Zero
	for _, idx := range atMarginIdx {
		sumAtMarginDemand = sumAtMarginDemand.Add(quantities[idx])
	}

	allocated := decimal.Zero
	for pos, idx := range atMarginIdx {
		b := sorted[idx]
		var share decimal.Decimal
		if pos == len(atMarginIdx)-1 {
			// Last tied bid absorbs the rounding residue so the
			// allocation sums exactly to the residual.
			share = residual.Sub(allocated)
		} else {
			share = residual.Mul(quantities[idx]).Div(sumAtMarginDemand).RoundBank(proRataPrecision)
		}
		allocated = allocated.Add(share)
		allocations = append(allocations, Allocation{
			Agent:         b.Agent,
			Tokens:        share,
			PricePerToken: marginalPrice,
			TotalPaid:     marginalPrice.Mul(share),
		})
	}

	return ClearResult{
		ClearingPrice:   marginalPrice,
		TokensAllocated: aboveFilled.Add(allocated),
		Allocations:     allocations,
	}, nil
}
