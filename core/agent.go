package core

import "github.com/shopspring/decimal"

// BidOffer is one price an agent is willing to pay per token, for the full
// batch offered this period (§6.1).
type BidOffer struct {
	PricePerToken decimal.Decimal
}

// BidDecision is an agent's response to decide-bids. An empty Offers slice
// means "skip this period."
type BidDecision struct {
	Offers []BidOffer
}

// RescindDecision is an agent's response to decide-rescind.
type RescindDecision struct {
	Rescind bool
}

// Agent is the capability set every tournament participant implements
// (§6.1, §9 "agent polymorphism" — a small interface, no inheritance).
// Implementations must be value-in/value-out: the Observation they receive
// is a standalone copy and must not be retained or mutated to affect engine
// state.
type Agent interface {
	// AgentID returns this agent's stable identifier.
	AgentID() AgentID

	// DecideBids is called once per period after observation construction.
	// A returned error is treated as an agent-decision failure: the period
	// runner drops all of this agent's offers for the period and continues.
	DecideBids(obs Observation) (BidDecision, error)

	// DecideRescind is called only when this agent won the just-cleared
	// period and rescind is allowed. A returned error is treated as
	// no-rescind.
	DecideRescind(obs Observation, preliminary PeriodRecord) (RescindDecision, error)
}
