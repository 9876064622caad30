package core

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// callDecideBids invokes agent.DecideBids, recovering any panic into an
// error so a misbehaving agent can never take the tournament down (§4.4
// step 3, §6.1).
func callDecideBids(agent Agent, obs Observation) (decision BidDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked in decide-bids: %v", agent.AgentID(), r)
		}
	}()
	return agent.DecideBids(obs)
}

// callDecideRescind invokes agent.DecideRescind with the same panic
// recovery as callDecideBids (§4.4 step 6).
func callDecideRescind(agent Agent, obs Observation, preliminary PeriodRecord) (decision RescindDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked in decide-rescind: %v", agent.AgentID(), r)
		}
	}()
	return agent.DecideRescind(obs, preliminary)
}

// decomposeAbsolutePeriod maps an absolute period index to its (stage,
// period-within-stage) coordinates given the tournament's per-stage period
// counts. ok is false if absPeriod falls outside the tournament horizon.
func decomposeAbsolutePeriod(absPeriod int, stageLengths []int) (stage, periodInStage int, ok bool) {
	remaining := absPeriod
	for s, length := range stageLengths {
		if remaining < length {
			return s, remaining, true
		}
		remaining -= length
	}
	return 0, 0, false
}

// periodInput bundles the fixed-for-this-call parameters the driver
// computes before invoking RunPeriod (§4.4's listed inputs).
type periodInput struct {
	Stage           int
	PeriodInStage   int
	AbsolutePeriod  int
	StageCount      int
	PeriodsInStage  int
	Supply          decimal.Decimal
	Floor           decimal.Decimal
	PointsPerToken  decimal.Decimal
	Mechanism       MechanismTag
	MaxBids         int
	RescindAllowed  bool
	StageLengths    []int
}

// RunPeriod drives one period end to end (§4.4): observation and bid
// collection, admission filtering, clearing, settlement, and the rescind
// offer to a single winner.
func RunPeriod(store *Store, registry *MechanismRegistry, agents []Agent, in periodInput) (PeriodRecord, error) {
	mechanism, err := registry.Resolve(in.Mechanism)
	if err != nil {
		return PeriodRecord{}, err
	}

	var admitted []Bid
	seq := 0

	for _, agent := range agents {
		obs, err := BuildObservation(store, agent.AgentID(), in.Stage, in.PeriodInStage, in.AbsolutePeriod,
			in.StageCount, in.PeriodsInStage, in.Supply, in.Floor, in.PointsPerToken)
		if err != nil {
			return PeriodRecord{}, err
		}

		decision, err := callDecideBids(agent, obs)
		if err != nil {
			log.Printf("WARNING: period %d: %v", in.AbsolutePeriod, err)
			continue
		}

		offers := decision.Offers
		if in.MaxBids >= 0 && len(offers) > in.MaxBids {
			offers = offers[:in.MaxBids]
		}

		st, err := store.AgentState(agent.AgentID())
		if err != nil {
			return PeriodRecord{}, err
		}

		for _, offer := range offers {
			price := offer.PricePerToken
			totalCost := price.Mul(in.Supply)

			if price.LessThan(in.Floor) || !price.GreaterThan(decimal.Zero) || totalCost.GreaterThan(st.RemainingBudget) {
				continue
			}

			admitted = append(admitted, Bid{
				ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%d", in.AbsolutePeriod, seq))).String(),
				Agent:         agent.AgentID(),
				PricePerToken: price,
				TotalCost:     totalCost,
				SubmittedAt:   seq,
			})
			seq++
		}
	}

	clearResult, err := mechanism.Clear(admitted, in.Supply, in.Floor)
	if err != nil {
		return PeriodRecord{}, fmt.Errorf("clearing period %d: %w", in.AbsolutePeriod, err)
	}

	for _, alloc := range clearResult.Allocations {
		if _, err := store.DeductBudget(alloc.Agent, alloc.TotalPaid); err != nil {
			return PeriodRecord{}, fmt.Errorf("settling period %d: %w", in.AbsolutePeriod, err)
		}
		if err := store.AddHolding(alloc.Agent, Holding{
			Stage:             in.Stage,
			Period:            in.PeriodInStage,
			Quantity:          alloc.Tokens,
			PricePaidPerToken: alloc.PricePerToken,
			PointsPerToken:    in.PointsPerToken,
		}); err != nil {
			return PeriodRecord{}, err
		}
	}

	var winner *AgentID
	if len(clearResult.Allocations) == 1 {
		id := clearResult.Allocations[0].Agent
		winner = &id
	}

	record := PeriodRecord{
		Stage:           in.Stage,
		PeriodInStage:   in.PeriodInStage,
		AbsolutePeriod:  in.AbsolutePeriod,
		TokensAvailable: in.Supply,
		Floor:           in.Floor,
		PointsPerToken:  in.PointsPerToken,
		ClearingPrice:   clearResult.ClearingPrice,
		Allocations:     clearResult.Allocations,
		Winner:          winner,
		Rescinded:       RescindUnset,
		AdmittedBids:    admitted,
		Mechanism:       in.Mechanism,
	}

	if winner != nil && in.RescindAllowed {
		if err := offerRescind(store, agents, *winner, in, record); err != nil {
			log.Printf("WARNING: period %d: %v", in.AbsolutePeriod, err)
		}
	}

	store.AppendPeriodRecord(record)
	log.Printf("INFO: period %d (stage %d, period %d): cleared at %s, winner=%v", in.AbsolutePeriod, in.Stage, in.PeriodInStage, clearResult.ClearingPrice, winner)

	return record, nil
}

// offerRescind requests a rescind decision from the winning agent and, if
// accepted, executes the atomic rescind transition (§4.3).
func offerRescind(store *Store, agents []Agent, winner AgentID, in periodInput, record PeriodRecord) error {
	var agent Agent
	for _, a := range agents {
		if a.AgentID() == winner {
			agent = a
			break
		}
	}
	if agent == nil {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, winner)
	}

	obs, err := BuildObservation(store, winner, in.Stage, in.PeriodInStage, in.AbsolutePeriod,
		in.StageCount, in.PeriodsInStage, in.Supply, in.Floor, in.PointsPerToken)
	if err != nil {
		return err
	}

	decision, err := callDecideRescind(agent, obs, record)
	if err != nil {
		return fmt.Errorf("decide-rescind failed, keeping tokens: %w", err)
	}
	if !decision.Rescind {
		return nil
	}

	holding, ok, err := store.RemoveHolding(winner, in.Stage, in.PeriodInStage)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	refund := holding.Quantity.Mul(holding.PricePaidPerToken)
	if _, err := store.RefundBudget(winner, refund); err != nil {
		return err
	}

	revealAt := in.AbsolutePeriod + 2
	targetStage, targetPeriod, ok := decomposeAbsolutePeriod(revealAt, in.StageLengths)
	if !ok {
		return fmt.Errorf("rescind at period %d reveals outside tournament horizon", in.AbsolutePeriod)
	}

	pending := PendingRescind{
		Agent:                 winner,
		SourceStage:           in.Stage,
		SourcePeriod:          in.PeriodInStage,
		Tokens:                holding.Quantity,
		RefundedPricePerToken: holding.PricePaidPerToken,
		TotalRefunded:         refund,
		RescindedAt:           in.AbsolutePeriod,
		RevealAt:              revealAt,
	}
	injection := SupplyInjection{
		TargetAbsolutePeriod: revealAt,
		Tokens:               holding.Quantity,
		Provenance:           fmt.Sprintf("rescind by %s at absolute period %d", winner, in.AbsolutePeriod),
	}
	info := PrivateInfoEntry{
		TargetStage:            targetStage,
		TargetPeriod:           targetPeriod,
		Tokens:                 holding.Quantity,
		RevealAtAbsolutePeriod: revealAt,
	}

	log.Printf("INFO: agent %s rescinded stage %d period %d (%s tokens), revealing at absolute period %d",
		winner, in.Stage, in.PeriodInStage, holding.Quantity, revealAt)

	return store.EnqueuePendingRescind(pending, injection, info)
}
