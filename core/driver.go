package core

import (
	"fmt"
	"log"
	"sort"

	"github.com/shopspring/decimal"
)

// validateConfig rejects malformed configuration at construction time
// (§7): non-positive stage length, negative floor, negative supply, or a
// negative per-agent bid cap.
func validateConfig(cfg TournamentConfig) error {
	if len(cfg.Stages) == 0 {
		return fmt.Errorf("%w: no stages configured", ErrInvalidConfig)
	}
	if cfg.StartingBudget.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: negative starting budget", ErrInvalidConfig)
	}
	for i, stage := range cfg.Stages {
		if stage.Periods <= 0 {
			return fmt.Errorf("%w: stage %d has non-positive period count %d", ErrInvalidConfig, i, stage.Periods)
		}
		if stage.Floor.LessThan(decimal.Zero) {
			return fmt.Errorf("%w: stage %d has negative floor", ErrInvalidConfig, i)
		}
		if stage.BaseSupply.LessThan(decimal.Zero) {
			return fmt.Errorf("%w: stage %d has negative base supply", ErrInvalidConfig, i)
		}
		if stage.MaxBidsPerAgent < 0 {
			return fmt.Errorf("%w: stage %d has negative max bids per agent", ErrInvalidConfig, i)
		}
	}
	return nil
}

// RunTournament drives a complete tournament end to end (§4.6) and returns
// the final result. Agents are consulted synchronously, in the order they
// appear in agents; duplicate agent identifiers are a fatal construction
// error.
func RunTournament(cfg TournamentConfig, agents []Agent) (*TournamentResult, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	agentIDs := make([]AgentID, len(agents))
	for i, a := range agents {
		agentIDs[i] = a.AgentID()
	}

	store, err := NewStore(cfg.StartingBudget, agentIDs)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	for _, stage := range cfg.Stages {
		if !registry.Available(stage.Mechanism) {
			if _, resolveErr := registry.Resolve(stage.Mechanism); resolveErr != nil {
				return nil, resolveErr
			}
			return nil, fmt.Errorf("%w: %s", ErrUnimplemented, stage.Mechanism)
		}
	}

	stageLengths := make([]int, len(cfg.Stages))
	for i, stage := range cfg.Stages {
		stageLengths[i] = stage.Periods
	}

	log.Printf("INFO: tournament starting: %d stages, %d agents", len(cfg.Stages), len(agents))

	absolutePeriod := 0
	for stageIdx, stage := range cfg.Stages {
		isTerminal := stageIdx == len(cfg.Stages)-1
		baseShare := stage.BaseSupply.Div(decimal.NewFromInt(int64(stage.Periods)))

		for q := 0; q < stage.Periods; q++ {
			store.RevealDueRescinds(absolutePeriod)

			injected := store.SupplyDueThisPeriod(absolutePeriod)
			supply := baseShare.Add(injected)
			periodsRemainingInStage := stage.Periods - q - 1
			rescindAllowed := !(isTerminal && periodsRemainingInStage < 2)

			in := periodInput{
				Stage:          stageIdx,
				PeriodInStage:  q,
				AbsolutePeriod: absolutePeriod,
				StageCount:     len(cfg.Stages),
				PeriodsInStage: stage.Periods,
				Supply:         supply,
				Floor:          stage.Floor,
				PointsPerToken: stage.PointsPerToken,
				Mechanism:      stage.Mechanism,
				MaxBids:        stage.MaxBidsPerAgent,
				RescindAllowed: rescindAllowed,
				StageLengths:   stageLengths,
			}

			if _, err := RunPeriod(store, registry, agents, in); err != nil {
				return nil, err
			}
			absolutePeriod++
		}

		ranking := store.StageRanking(stageIdx)
		for place, id := range ranking {
			if place >= len(cfg.SPVector) {
				break
			}
			if err := store.AwardSP(id, cfg.SPVector[place]); err != nil {
				return nil, err
			}
		}
		log.Printf("INFO: stage %d complete, SP awarded to top %d ranked agents", stageIdx, min(len(ranking), len(cfg.SPVector)))
	}

	overall := store.OverallRanking()
	if len(overall) > 0 {
		topState, err := store.AgentState(overall[0])
		if err != nil {
			return nil, err
		}
		if topState.WeightedPoints.GreaterThan(decimal.Zero) {
			if err := store.AwardSP(overall[0], cfg.OverallBonusSP); err != nil {
				return nil, err
			}
		}
	}

	return assembleResult(store, cfg)
}

// assembleResult builds the final leaderboard, winner, and per-agent
// summaries (§4.6 step 5).
func assembleResult(store *Store, cfg TournamentConfig) (*TournamentResult, error) {
	ids := store.AgentIDs()

	leaderboard := make([]LeaderboardEntry, 0, len(ids))
	summaries := make(map[AgentID]AgentSummary, len(ids))

	periodLog := store.PeriodLog()

	for _, id := range ids {
		st, err := store.AgentState(id)
		if err != nil {
			return nil, err
		}

		stageTokens := make(map[int]decimal.Decimal, len(st.StageTokens))
		for k, v := range st.StageTokens {
			stageTokens[k] = v
		}

		leaderboard = append(leaderboard, LeaderboardEntry{
			Agent:          id,
			StageTokens:    stageTokens,
			WeightedPoints: st.WeightedPoints,
			SP:             st.SP,
		})

		periodsWon, rescindsMade := 0, 0
		for _, rec := range periodLog {
			if rec.Winner == nil || *rec.Winner != id {
				continue
			}
			if rec.Rescinded == RescindTrue {
				rescindsMade++
			} else {
				periodsWon++
			}
		}

		meanRealisedPrice := decimal.Zero
		if len(st.Holdings) > 0 {
			sum := decimal.Zero
			for _, h := range st.Holdings {
				sum = sum.Add(h.PricePaidPerToken)
			}
			meanRealisedPrice = sum.Div(decimal.NewFromInt(int64(len(st.Holdings))))
		}

		spent := cfg.StartingBudget.Sub(st.RemainingBudget)
		pointsPerSpent := decimal.Zero
		if spent.GreaterThan(decimal.Zero) {
			pointsPerSpent = st.WeightedPoints.Div(spent)
		}

		summaries[id] = AgentSummary{
			SP:                   st.SP,
			WeightedPoints:       st.WeightedPoints,
			StageTokens:          stageTokens,
			SpentBudget:          spent,
			RemainingBudget:      st.RemainingBudget,
			PeriodsWon:           periodsWon,
			RescindsMade:         rescindsMade,
			MeanRealisedPrice:    meanRealisedPrice,
			PointsPerSpentBudget: pointsPerSpent,
		}
	}

	sort.SliceStable(leaderboard, func(i, j int) bool {
		if !leaderboard[i].SP.Equal(leaderboard[j].SP) {
			return leaderboard[i].SP.GreaterThan(leaderboard[j].SP)
		}
		return leaderboard[i].WeightedPoints.GreaterThan(leaderboard[j].WeightedPoints)
	})

	var winner AgentID
	if len(leaderboard) > 0 {
		winner = leaderboard[0].Agent
	}

	log.Printf("INFO: tournament complete, winner=%q", winner)

	return &TournamentResult{
		Config:      cfg,
		Leaderboard: leaderboard,
		Winner:      winner,
		PeriodLog:   periodLog,
		Summaries:   summaries,
	}, nil
}
