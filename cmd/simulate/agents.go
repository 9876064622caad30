package main

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/tokentourney/core"
)

// FixedMarkupAgent always bids floor+markup and applies a fixed rescind
// policy. It exists to drive this demo harness — agent implementations are
// explicitly out of the engine's core scope.
type FixedMarkupAgent struct {
	id            core.AgentID
	markup        decimal.Decimal
	alwaysRescind bool
}

func NewFixedMarkupAgent(id core.AgentID, markup decimal.Decimal, alwaysRescind bool) *FixedMarkupAgent {
	return &FixedMarkupAgent{id: id, markup: markup, alwaysRescind: alwaysRescind}
}

func (a *FixedMarkupAgent) AgentID() core.AgentID { return a.id }

func (a *FixedMarkupAgent) DecideBids(obs core.Observation) (core.BidDecision, error) {
	if !obs.RemainingBudget.IsPositive() {
		return core.BidDecision{}, nil
	}
	price := obs.Floor.Add(a.markup)
	return core.BidDecision{Offers: []core.BidOffer{{PricePerToken: price}}}, nil
}

func (a *FixedMarkupAgent) DecideRescind(obs core.Observation, preliminary core.PeriodRecord) (core.RescindDecision, error) {
	return core.RescindDecision{Rescind: a.alwaysRescind}, nil
}

// JitterAgent bids floor plus a seeded random markup. Every randomising
// agent carries its own seeded source (§9's "PRNG contract") so a batch run
// stays reproducible given the same master seed.
type JitterAgent struct {
	id        core.AgentID
	rng       *rand.Rand
	maxMarkup decimal.Decimal
}

func NewJitterAgent(id core.AgentID, seed int64, maxMarkup decimal.Decimal) *JitterAgent {
	return &JitterAgent{id: id, rng: rand.New(rand.NewSource(seed)), maxMarkup: maxMarkup}
}

func (a *JitterAgent) AgentID() core.AgentID { return a.id }

func (a *JitterAgent) DecideBids(obs core.Observation) (core.BidDecision, error) {
	if !obs.RemainingBudget.IsPositive() {
		return core.BidDecision{}, nil
	}
	jitter := a.maxMarkup.Mul(decimal.NewFromFloat(a.rng.Float64()))
	price := obs.Floor.Add(jitter)
	return core.BidDecision{Offers: []core.BidOffer{{PricePerToken: price}}}, nil
}

func (a *JitterAgent) DecideRescind(obs core.Observation, preliminary core.PeriodRecord) (core.RescindDecision, error) {
	return core.RescindDecision{Rescind: false}, nil
}
