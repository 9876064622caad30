// Package core implements the tournament state machine: the clearing
// mechanisms, the state store, the rescind ledger, the observation builder,
// the period runner, and the tournament driver.
package core

import "github.com/shopspring/decimal"

// AgentID uniquely identifies a participant for the lifetime of a tournament.
type AgentID string

// MechanismTag names a clearing mechanism known to the registry.
type MechanismTag string

const (
	// MechanismSecondPriceSingleWinner awards the full period supply to the
	// highest bidder at the second-highest admitted price (§4.1.1).
	MechanismSecondPriceSingleWinner MechanismTag = "second-price-single-winner"
	// MechanismUniformPriceMultiWinner fills demand at a single marginal
	// clearing price, rationing the margin pro-rata (§4.1.2).
	MechanismUniformPriceMultiWinner MechanismTag = "uniform-price-multi-winner"

	// Reserved tags (§4.1.3): enumerated by the registry, always fail their
	// availability probe, and reject at period time with ErrUnimplemented.
	MechanismDiscriminatoryPayAsBid MechanismTag = "discriminatory-pay-as-bid"
	MechanismDescendingPrice        MechanismTag = "descending-price"
	MechanismSealedFirstPrice       MechanismTag = "sealed-first-price"
)

// RescindStatus is the externally-observable state of a period record's
// rescind flag. There is no transient "false" state visible outside the
// store: a record is RescindUnset until the 2-period delay matures, at
// which point it flips once to RescindTrue.
type RescindStatus int

const (
	RescindUnset RescindStatus = iota
	RescindTrue
)

// StageConfig describes one contiguous block of periods sharing a supply,
// floor, points multiplier, and clearing mechanism.
type StageConfig struct {
	BaseSupply      decimal.Decimal
	PointsPerToken  decimal.Decimal
	Floor           decimal.Decimal
	Periods         int
	MaxBidsPerAgent int
	Mechanism       MechanismTag
}

// TournamentConfig is immutable for the lifetime of a run.
type TournamentConfig struct {
	StartingBudget decimal.Decimal
	Stages         []StageConfig
	SPVector       []decimal.Decimal
	OverallBonusSP decimal.Decimal
}

// Holding is a retained allocation: tokens an agent has not rescinded.
type Holding struct {
	Stage             int
	Period            int
	Quantity          decimal.Decimal
	PricePaidPerToken decimal.Decimal
	PointsPerToken    decimal.Decimal
}

// PrivateInfoEntry is visible only to the agent that rescinded. It is
// removed from the agent's state at the moment its reveal period arrives.
type PrivateInfoEntry struct {
	TargetStage            int
	TargetPeriod           int
	Tokens                 decimal.Decimal
	RevealAtAbsolutePeriod int
}

// AgentState is the complete mutable state the engine tracks for one
// participant across the whole tournament.
type AgentState struct {
	ID              AgentID
	RemainingBudget decimal.Decimal
	Holdings        []Holding
	StageTokens     map[int]decimal.Decimal
	WeightedPoints  decimal.Decimal
	SP              decimal.Decimal
	PrivateInfo     []PrivateInfoEntry
}

// Bid is one admitted offer inside a period, as seen by a clearing
// mechanism. TotalCost is the bidder's declared spend; the implied quantity
// demanded is TotalCost / PricePerToken. The period runner always
// constructs TotalCost = PricePerToken * period supply when turning an
// agent's {price-per-token} offer (§6.1) into a Bid, since every offer is a
// bid for the full batch; mechanisms themselves place no such restriction,
// so they can also be driven directly with arbitrary per-bid demand (as in
// the uniform-price worked examples).
type Bid struct {
	ID            string
	Agent         AgentID
	PricePerToken decimal.Decimal
	TotalCost     decimal.Decimal
	SubmittedAt   int
}

// Allocation is one agent's award from a cleared period.
type Allocation struct {
	Agent         AgentID
	Tokens        decimal.Decimal
	PricePerToken decimal.Decimal
	TotalPaid     decimal.Decimal
}

// PeriodRecord is one completed period in the tournament's append-only log.
type PeriodRecord struct {
	Stage           int
	PeriodInStage   int
	AbsolutePeriod  int
	TokensAvailable decimal.Decimal
	Floor           decimal.Decimal
	PointsPerToken  decimal.Decimal
	ClearingPrice   decimal.Decimal
	Allocations     []Allocation
	Winner          *AgentID
	Rescinded       RescindStatus
	AdmittedBids    []Bid
	Mechanism       MechanismTag
}

// PendingRescind is an in-flight rescind awaiting its 2-period revelation.
type PendingRescind struct {
	Agent                 AgentID
	SourceStage           int
	SourcePeriod          int
	Tokens                decimal.Decimal
	RefundedPricePerToken decimal.Decimal
	TotalRefunded         decimal.Decimal
	RescindedAt           int
	RevealAt              int
}

// SupplyInjection is a future period's extra supply, owed by a rescind made
// two periods earlier.
type SupplyInjection struct {
	TargetAbsolutePeriod int
	Tokens               decimal.Decimal
	Provenance           string
}

// LeaderboardEntry is the public view of one agent's standing.
type LeaderboardEntry struct {
	Agent          AgentID
	StageTokens    map[int]decimal.Decimal
	WeightedPoints decimal.Decimal
	SP             decimal.Decimal
}

// Observation is the value each agent receives at the start of a period. It
// is a standalone copy: mutating it can never affect engine state (§4.5,
// §9).
type Observation struct {
	Stage                    int
	PeriodInStage            int
	AbsolutePeriod           int
	PeriodsRemainingInStage  int
	StagesRemaining          int
	RemainingBudget          decimal.Decimal
	Holdings                 []Holding
	WeightedPoints           decimal.Decimal
	StageTokens              map[int]decimal.Decimal
	SP                       decimal.Decimal
	PrivateInfo              []PrivateInfoEntry
	TokensAvailable          decimal.Decimal
	Floor                    decimal.Decimal
	PointsPerToken           decimal.Decimal
	History                  []PeriodRecord
	Leaderboard              []LeaderboardEntry
}

// AgentSummary is the per-agent closing line of a tournament result (§4.6).
type AgentSummary struct {
	SP                  decimal.Decimal
	WeightedPoints      decimal.Decimal
	StageTokens         map[int]decimal.Decimal
	SpentBudget         decimal.Decimal
	RemainingBudget     decimal.Decimal
	PeriodsWon          int
	RescindsMade        int
	MeanRealisedPrice   decimal.Decimal
	PointsPerSpentBudget decimal.Decimal
}

// TournamentResult is the final, immutable output of a completed run.
type TournamentResult struct {
	Config      TournamentConfig
	Leaderboard []LeaderboardEntry
	Winner      AgentID
	PeriodLog   []PeriodRecord
	Summaries   map[AgentID]AgentSummary
}
