package core

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestRunTournament_RejectsInvalidConfig(t *testing.T) {
	cfg := TournamentConfig{}
	_, err := RunTournament(cfg, nil)
	check.Equal(t, true, errors.Is(err, ErrInvalidConfig))
}

func TestRunTournament_RejectsReservedMechanism(t *testing.T) {
	cfg := TournamentConfig{
		StartingBudget: decimal.NewFromInt(1000),
		Stages: []StageConfig{
			{BaseSupply: decimal.NewFromInt(10), Periods: 1, Floor: decimal.NewFromInt(1), Mechanism: MechanismDescendingPrice},
		},
	}
	_, err := RunTournament(cfg, []Agent{&scriptedAgent{id: "alice", price: decimal.NewFromInt(5)}})
	check.Equal(t, true, errors.Is(err, ErrUnimplemented))
}

func smallTournamentConfig() TournamentConfig {
	return TournamentConfig{
		StartingBudget: decimal.NewFromInt(10000),
		Stages: []StageConfig{
			{
				BaseSupply:      decimal.NewFromInt(90),
				PointsPerToken:  decimal.NewFromInt(1),
				Floor:           decimal.NewFromInt(10),
				Periods:         3,
				MaxBidsPerAgent: 1,
				Mechanism:       MechanismSecondPriceSingleWinner,
			},
			{
				BaseSupply:      decimal.NewFromInt(60),
				PointsPerToken:  decimal.NewFromInt(2),
				Floor:           decimal.NewFromInt(10),
				Periods:         3,
				MaxBidsPerAgent: 1,
				Mechanism:       MechanismSecondPriceSingleWinner,
			},
		},
		SPVector:       []decimal.Decimal{decimal.NewFromInt(3), decimal.NewFromInt(2), decimal.NewFromInt(1)},
		OverallBonusSP: decimal.NewFromInt(1),
	}
}

func TestRunTournament_EndToEnd_ProducesRankedLeaderboard(t *testing.T) {
	agents := []Agent{
		&scriptedAgent{id: "alice", price: decimal.NewFromInt(25)},
		&scriptedAgent{id: "bob", price: decimal.NewFromInt(15)},
	}

	result, err := RunTournament(smallTournamentConfig(), agents)
	check.Nil(t, err)
	check.Equal(t, AgentID("alice"), result.Winner)
	check.Equal(t, 2, len(result.Leaderboard))
	check.Equal(t, 6, len(result.PeriodLog))

	aliceSummary := result.Summaries["alice"]
	check.Equal(t, true, aliceSummary.WeightedPoints.GreaterThan(decimal.Zero))
	check.Equal(t, 6, aliceSummary.PeriodsWon)
}

func TestRunTournament_BudgetConservation_SpentPlusRemainingEqualsStarting(t *testing.T) {
	agents := []Agent{
		&scriptedAgent{id: "alice", price: decimal.NewFromInt(25)},
		&scriptedAgent{id: "bob", price: decimal.NewFromInt(15)},
	}

	result, err := RunTournament(smallTournamentConfig(), agents)
	check.Nil(t, err)

	for _, summary := range result.Summaries {
		total := summary.SpentBudget.Add(summary.RemainingBudget)
		check.Equal(t, true, total.Equal(decimal.NewFromInt(10000)))
	}
}

func TestRunTournament_NoBids_EveryPeriodClearsAtFloorWithNoWinner(t *testing.T) {
	agents := []Agent{&scriptedAgent{id: "alice", skip: true}}

	result, err := RunTournament(smallTournamentConfig(), agents)
	check.Nil(t, err)
	for _, rec := range result.PeriodLog {
		check.Equal(t, true, rec.ClearingPrice.Equal(rec.Floor))
		check.Equal(t, (*AgentID)(nil), rec.Winner)
	}
}
