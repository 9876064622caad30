package core

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

// BuildObservation constructs agent's view of the world at the start of a
// period (§4.5). The returned value is a deep copy: encoding it through
// CBOR and decoding the result back structurally forbids any alias into
// engine memory, so an agent holding onto an Observation can never mutate
// store state (§9 "Observation immutability").
func BuildObservation(
	store *Store,
	agent AgentID,
	stage, periodInStage, absolutePeriod int,
	stageCount, periodsInStage int,
	tokensAvailable, floor, pointsPerToken decimal.Decimal,
) (Observation, error) {
	st, err := store.AgentState(agent)
	if err != nil {
		return Observation{}, err
	}

	leaderboard := make([]LeaderboardEntry, 0, len(store.agentOrder))
	for _, id := range store.agentOrder {
		other := store.agents[id]
		stageTokens := make(map[int]decimal.Decimal, len(other.StageTokens))
		for k, v := range other.StageTokens {
			stageTokens[k] = v
		}
		leaderboard = append(leaderboard, LeaderboardEntry{
			Agent:          id,
			StageTokens:    stageTokens,
			WeightedPoints: other.WeightedPoints,
			SP:             other.SP,
		})
	}

	holdings := make([]Holding, len(st.Holdings))
	copy(holdings, st.Holdings)

	privateInfo := make([]PrivateInfoEntry, len(st.PrivateInfo))
	copy(privateInfo, st.PrivateInfo)

	stageTokens := make(map[int]decimal.Decimal, len(st.StageTokens))
	for k, v := range st.StageTokens {
		stageTokens[k] = v
	}

	raw := Observation{
		Stage:                   stage,
		PeriodInStage:           periodInStage,
		AbsolutePeriod:          absolutePeriod,
		PeriodsRemainingInStage: periodsInStage - periodInStage - 1,
		StagesRemaining:         stageCount - stage - 1,
		RemainingBudget:         st.RemainingBudget,
		Holdings:                holdings,
		WeightedPoints:          st.WeightedPoints,
		StageTokens:             stageTokens,
		SP:                      st.SP,
		PrivateInfo:             privateInfo,
		TokensAvailable:         tokensAvailable,
		Floor:                   floor,
		PointsPerToken:          pointsPerToken,
		History:                 store.PeriodLog(),
		Leaderboard:             leaderboard,
	}

	encoded, err := cbor.Marshal(raw)
	if err != nil {
		return Observation{}, fmt.Errorf("encode observation snapshot: %w", err)
	}
	var snapshot Observation
	if err := cbor.Unmarshal(encoded, &snapshot); err != nil {
		return Observation{}, fmt.Errorf("decode observation snapshot: %w", err)
	}
	return snapshot, nil
}
