package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestSecondPriceMechanism_NoBids_ClearsAtFloor(t *testing.T) {
	result, err := SecondPriceMechanism{}.Clear(nil, decimal.NewFromInt(100), decimal.NewFromInt(10))
	check.Nil(t, err)
	check.Equal(t, true, result.ClearingPrice.Equal(decimal.NewFromInt(10)))
	check.Equal(t, 0, len(result.Allocations))
}

func TestSecondPriceMechanism_SingleBid_PaysFloor(t *testing.T) {
	bids := []Bid{
		{Agent: "alice", PricePerToken: decimal.NewFromInt(15)},
	}
	result, err := SecondPriceMechanism{}.Clear(bids, decimal.NewFromInt(100), decimal.NewFromInt(10))
	check.Nil(t, err)
	check.Equal(t, true, result.ClearingPrice.Equal(decimal.NewFromInt(10)))
	check.Equal(t, 1, len(result.Allocations))
	check.Equal(t, AgentID("alice"), result.Allocations[0].Agent)
	check.Equal(t, true, result.Allocations[0].Tokens.Equal(decimal.NewFromInt(100)))
}

func TestSecondPriceMechanism_TwoBids_WinnerPaysRunnerUpPrice(t *testing.T) {
	bids := []Bid{
		{Agent: "alice", PricePerToken: decimal.NewFromInt(20), SubmittedAt: 0},
		{Agent: "bob", PricePerToken: decimal.NewFromInt(15), SubmittedAt: 1},
	}
	result, err := SecondPriceMechanism{}.Clear(bids, decimal.NewFromInt(50), decimal.NewFromInt(10))
	check.Nil(t, err)
	check.Equal(t, true, result.ClearingPrice.Equal(decimal.NewFromInt(15)))
	check.Equal(t, 1, len(result.Allocations))
	check.Equal(t, AgentID("alice"), result.Allocations[0].Agent)
	check.Equal(t, true, result.Allocations[0].TotalPaid.Equal(decimal.NewFromInt(15*50)))
}

func TestSecondPriceMechanism_TiedTopBids_FIFOBreaksTie(t *testing.T) {
	bids := []Bid{
		{Agent: "bob", PricePerToken: decimal.NewFromInt(20), SubmittedAt: 1},
		{Agent: "alice", PricePerToken: decimal.NewFromInt(20), SubmittedAt: 0},
	}
	result, err := SecondPriceMechanism{}.Clear(bids, decimal.NewFromInt(50), decimal.NewFromInt(10))
	check.Nil(t, err)
	check.Equal(t, 1, len(result.Allocations))
	check.Equal(t, AgentID("alice"), result.Allocations[0].Agent)
	check.Equal(t, true, result.ClearingPrice.Equal(decimal.NewFromInt(20)))
}
