package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

type scriptedAgent struct {
	id       AgentID
	price    decimal.Decimal
	skip     bool
	rescind  bool
	panicOn  string
}

func (a *scriptedAgent) AgentID() AgentID { return a.id }

func (a *scriptedAgent) DecideBids(obs Observation) (BidDecision, error) {
	if a.panicOn == "bids" {
		panic("boom")
	}
	if a.skip {
		return BidDecision{}, nil
	}
	return BidDecision{Offers: []BidOffer{{PricePerToken: a.price}}}, nil
}

func (a *scriptedAgent) DecideRescind(obs Observation, preliminary PeriodRecord) (RescindDecision, error) {
	if a.panicOn == "rescind" {
		panic("boom")
	}
	return RescindDecision{Rescind: a.rescind}, nil
}

func basePeriodInput() periodInput {
	return periodInput{
		Stage:          0,
		PeriodInStage:  0,
		AbsolutePeriod: 0,
		StageCount:     1,
		PeriodsInStage: 9,
		Supply:         decimal.NewFromInt(100),
		Floor:          decimal.NewFromInt(10),
		PointsPerToken: decimal.NewFromInt(1),
		Mechanism:      MechanismSecondPriceSingleWinner,
		MaxBids:        1,
		RescindAllowed: true,
		StageLengths:   []int{9},
	}
}

func TestRunPeriod_AdmitsBidsAboveFloorAndSettles(t *testing.T) {
	s, err := NewStore(decimal.NewFromInt(10000), []AgentID{"alice", "bob"})
	check.Nil(t, err)
	registry := NewRegistry()

	agents := []Agent{
		&scriptedAgent{id: "alice", price: decimal.NewFromInt(20)},
		&scriptedAgent{id: "bob", price: decimal.NewFromInt(15)},
	}

	record, err := RunPeriod(s, registry, agents, basePeriodInput())
	check.Nil(t, err)
	check.Equal(t, 1, len(record.Allocations))
	check.Equal(t, AgentID("alice"), record.Allocations[0].Agent)
	check.Equal(t, true, record.ClearingPrice.Equal(decimal.NewFromInt(15)))

	st, err := s.AgentState("alice")
	check.Nil(t, err)
	check.Equal(t, true, st.RemainingBudget.Equal(decimal.NewFromInt(10000).Sub(decimal.NewFromInt(15).Mul(decimal.NewFromInt(100)))))
}

func TestRunPeriod_BidBelowFloorIsNotAdmitted(t *testing.T) {
	s, err := NewStore(decimal.NewFromInt(10000), []AgentID{"alice"})
	check.Nil(t, err)
	registry := NewRegistry()

	agents := []Agent{&scriptedAgent{id: "alice", price: decimal.NewFromInt(5)}}

	record, err := RunPeriod(s, registry, agents, basePeriodInput())
	check.Nil(t, err)
	check.Equal(t, 0, len(record.Allocations))
	check.Equal(t, true, record.ClearingPrice.Equal(decimal.NewFromInt(10)))
}

func TestRunPeriod_PanickingAgentIsRecoveredAndDropped(t *testing.T) {
	s, err := NewStore(decimal.NewFromInt(10000), []AgentID{"alice", "bob"})
	check.Nil(t, err)
	registry := NewRegistry()

	agents := []Agent{
		&scriptedAgent{id: "alice", price: decimal.NewFromInt(20), panicOn: "bids"},
		&scriptedAgent{id: "bob", price: decimal.NewFromInt(15)},
	}

	record, err := RunPeriod(s, registry, agents, basePeriodInput())
	check.Nil(t, err)
	check.Equal(t, 1, len(record.Allocations))
	check.Equal(t, AgentID("bob"), record.Allocations[0].Agent)
}

func TestRunPeriod_WinnerRescinds_EnqueuesPendingRescindAndFutureSupply(t *testing.T) {
	s, err := NewStore(decimal.NewFromInt(10000), []AgentID{"alice"})
	check.Nil(t, err)
	registry := NewRegistry()

	agents := []Agent{&scriptedAgent{id: "alice", price: decimal.NewFromInt(20), rescind: true}}

	in := basePeriodInput()
	_, err = RunPeriod(s, registry, agents, in)
	check.Nil(t, err)

	st, err := s.AgentState("alice")
	check.Nil(t, err)
	check.Equal(t, 0, len(st.Holdings))
	check.Equal(t, true, st.RemainingBudget.Equal(decimal.NewFromInt(10000)))

	injected := s.SupplyDueThisPeriod(2)
	check.Equal(t, true, injected.Equal(decimal.NewFromInt(100)))
}

func TestRunPeriod_RescindNotAllowed_TokensAreKept(t *testing.T) {
	s, err := NewStore(decimal.NewFromInt(10000), []AgentID{"alice"})
	check.Nil(t, err)
	registry := NewRegistry()

	agents := []Agent{&scriptedAgent{id: "alice", price: decimal.NewFromInt(20), rescind: true}}

	in := basePeriodInput()
	in.RescindAllowed = false
	_, err = RunPeriod(s, registry, agents, in)
	check.Nil(t, err)

	st, err := s.AgentState("alice")
	check.Nil(t, err)
	check.Equal(t, 1, len(st.Holdings))
}

func TestRunPeriod_MaxBidsTruncatesExcessOffers(t *testing.T) {
	s, err := NewStore(decimal.NewFromInt(10000), []AgentID{"alice"})
	check.Nil(t, err)
	registry := NewRegistry()

	agent := &multiOfferAgent{id: "alice", prices: []decimal.Decimal{decimal.NewFromInt(20), decimal.NewFromInt(30)}}
	in := basePeriodInput()
	in.MaxBids = 1

	record, err := RunPeriod(s, registry, []Agent{agent}, in)
	check.Nil(t, err)
	check.Equal(t, 1, len(record.AdmittedBids))
	check.Equal(t, true, record.AdmittedBids[0].PricePerToken.Equal(decimal.NewFromInt(20)))
}

type multiOfferAgent struct {
	id     AgentID
	prices []decimal.Decimal
}

func (a *multiOfferAgent) AgentID() AgentID { return a.id }

func (a *multiOfferAgent) DecideBids(obs Observation) (BidDecision, error) {
	offers := make([]BidOffer, len(a.prices))
	for i, p := range a.prices {
		offers[i] = BidOffer{PricePerToken: p}
	}
	return BidDecision{Offers: offers}, nil
}

func (a *multiOfferAgent) DecideRescind(obs Observation, preliminary PeriodRecord) (RescindDecision, error) {
	return RescindDecision{}, nil
}
